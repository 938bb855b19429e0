package block_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/block"
)

func sampleStateBlock() *block.Block {
	b := &block.Block{Type: block.TypeState}
	b.Account[0] = 0xAA
	b.Previous[0] = 0xBB
	b.Representative[0] = 0xCC
	b.Balance = block.AmountFromUint64(1000)
	b.Link[0] = 0xDD
	b.Signature[0] = 0xEE
	b.Work = block.Work{1, 2, 3, 4, 5, 6, 7, 8}
	return b
}

func TestWriteReadBlockRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		b    *block.Block
	}{
		{"state", sampleStateBlock()},
		{"send", &block.Block{Type: block.TypeSend, Balance: block.AmountFromUint64(5)}},
		{"receive", &block.Block{Type: block.TypeReceive}},
		{"change", &block.Block{Type: block.TypeChange}},
		{"open", &block.Block{Type: block.TypeOpen}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, block.WriteBlock(&buf, tc.b))

			size, ok := block.BodySize(tc.b.Type)
			require.True(t, ok)
			assert.Equal(t, size+1, buf.Len())

			got, err := block.ReadBlock(&buf)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tc.b, got)
		})
	}
}

func TestReadBlockCleanEOF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, block.WriteNotABlock(&buf))
	got, err := block.ReadBlock(&buf)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadBlockShortReadIsFramingError(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(block.TypeSend))
	buf.Write(make([]byte, 10)) // short of the 152-byte send body
	_, err := block.ReadBlock(&buf)
	assert.Error(t, err)
}

func TestReadBlockUnknownTypeByte(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0xF0)
	_, err := block.ReadBlock(&buf)
	assert.Error(t, err)
}

func TestBulkPullRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := block.BulkPullRequest{Count: 256}
	req.Start[0] = 0x01
	require.NoError(t, req.Encode(&buf))
	got, err := block.DecodeBulkPullRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestContentHashDeterministic(t *testing.T) {
	b1 := sampleStateBlock()
	b2 := sampleStateBlock()
	assert.Equal(t, b1.ContentHash(), b2.ContentHash())

	b2.Balance = block.AmountFromUint64(999)
	assert.NotEqual(t, b1.ContentHash(), b2.ContentHash())
}

func TestAmountArithmetic(t *testing.T) {
	a := block.AmountFromUint64(100)
	b := block.AmountFromUint64(40)

	sum := a.Add(b)
	assert.Equal(t, 0, sum.Cmp(block.AmountFromUint64(140)))

	diff, ok := a.Sub(b)
	require.True(t, ok)
	assert.Equal(t, 0, diff.Cmp(block.AmountFromUint64(60)))

	_, ok = b.Sub(a)
	assert.False(t, ok, "subtracting a larger amount must report !ok, not wrap")
}
