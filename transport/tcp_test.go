package transport_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/transport"
)

func TestTCPDialer_NoPeersReturnsErrNoPeer(t *testing.T) {
	d := transport.NewTCPDialer(nil, nil)
	_, err := d.Dial(context.Background())
	assert.ErrorIs(t, err, transport.ErrNoPeer)
}

func TestTCPDialer_IdleIsEmptyUntilReleased(t *testing.T) {
	d := transport.NewTCPDialer(nil, nil)
	_, ok := d.Idle()
	assert.False(t, ok)
}

// TestTCPDialer_RequestAndReadBlockRoundTrip dials a local listener that
// plays the peer side of one bulk_pull cycle: read the request frame,
// write one block, then the not_a_block terminator.
func TestTCPDialer_RequestAndReadBlockRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	genesis := &block.Block{Type: block.TypeState, Account: block.Account{1}, Balance: block.AmountFromUint64(1000)}

	serverDone := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()
		var header [2]byte
		if _, err := conn.Read(header[:]); err != nil {
			serverDone <- err
			return
		}
		if _, err := block.DecodeBulkPullRequest(conn); err != nil {
			serverDone <- err
			return
		}
		if err := block.WriteBlock(conn, genesis); err != nil {
			serverDone <- err
			return
		}
		serverDone <- block.WriteNotABlock(conn)
	}()

	d := transport.NewTCPDialer([]string{ln.Addr().String()}, nil)
	conn, err := d.Dial(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Request(block.BulkPullRequest{Start: block.Hash(genesis.Account), Count: 16}))

	got, err := conn.ReadBlock()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, genesis.ContentHash(), got.ContentHash())

	end, err := conn.ReadBlock()
	require.NoError(t, err)
	assert.Nil(t, end)

	require.NoError(t, conn.Close())
	require.NoError(t, <-serverDone)

	d.Release(conn)
	_, ok := d.Idle()
	assert.True(t, ok)
}
