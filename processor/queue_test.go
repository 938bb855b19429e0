package processor_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/check"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/processor"
	"github.com/tolelom/latticenode/store/storetest"
)

func sign(t *testing.T, priv crypto.PrivateKey, b *block.Block) {
	t.Helper()
	b.Signature = crypto.SignHash(priv, b.ContentHash())
}

type observed struct {
	mu      sync.Mutex
	account block.Account
	result  block.ProcessResult
	sb      *block.Sideband
}

func TestQueue_ProcessesOpenAndFiresObservers(t *testing.T) {
	s := storetest.NewStore()
	c, err := check.NewContext([]byte("q-test"), check.DefaultWorkThresholds(), 0)
	require.NoError(t, err)
	q := processor.NewQueue(s, c, 8)
	defer q.Close()

	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)

	var got observed
	done := make(chan struct{})
	q.OnProcessed(func(account block.Account, result block.ProcessResult, b *block.Block, sb *block.Sideband) {
		got.mu.Lock()
		got.account, got.result, got.sb = account, result, sb
		got.mu.Unlock()
		close(done)
	})

	// A zero-link opening state block is a noop, so it keeps the zero
	// balance of a never-opened account.
	open := &block.Block{Type: block.TypeState, Account: acct, Balance: block.ZeroAmount}
	sign(t, priv, open)
	q.Add(open)
	q.Flush()
	<-done

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, acct, got.account)
	assert.Equal(t, block.ResultProgress, got.result)
	require.NotNil(t, got.sb)
	assert.Equal(t, uint64(1), got.sb.Height)

	snap, err := s.NewSnapshot()
	require.NoError(t, err)
	info, ok, err := snap.AccountInfo(acct)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, open.ContentHash(), info.Head)
}

func TestQueue_SendCreatesPendingThenReceiveConsumesIt(t *testing.T) {
	s := storetest.NewStore()
	c, err := check.NewContext([]byte("q-test-2"), check.DefaultWorkThresholds(), 0)
	require.NoError(t, err)
	q := processor.NewQueue(s, c, 8)
	defer q.Close()

	senderPriv, senderPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := crypto.AccountOf(senderPub)
	destPriv, destPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	dest := crypto.AccountOf(destPub)

	// Fund the sender: a source block and its pending entry go straight
	// into the store, so the opening block receives 1000 from it.
	source := &block.Block{Type: block.TypeState, Account: block.Account{0x5E}, Link: block.Hash(sender)}
	txn, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.PutBlock(source, block.Sideband{Account: source.Account, Height: 1}))
	require.NoError(t, txn.PutPending(sender, source.ContentHash(), block.PendingInfo{Sender: source.Account, Amount: block.AmountFromUint64(1000)}))
	require.NoError(t, txn.Commit())

	open := &block.Block{Type: block.TypeState, Account: sender, Balance: block.AmountFromUint64(1000), Link: source.ContentHash()}
	sign(t, senderPriv, open)
	q.Add(open)
	q.Flush()

	send := &block.Block{
		Type:     block.TypeState,
		Account:  sender,
		Previous: open.ContentHash(),
		Balance:  block.AmountFromUint64(400),
		Link:     block.Hash(dest),
	}
	sign(t, senderPriv, send)
	q.Add(send)
	q.Flush()

	snap, err := s.NewSnapshot()
	require.NoError(t, err)
	pending, ok, err := snap.Pending(dest, send.ContentHash())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, pending.Amount.Cmp(block.AmountFromUint64(600)))
	assert.Equal(t, sender, pending.Sender)

	recv := &block.Block{Type: block.TypeState, Account: dest, Balance: block.AmountFromUint64(600), Link: block.Hash(send.ContentHash())}
	sign(t, destPriv, recv)
	q.Add(recv)
	q.Flush()

	snap2, err := s.NewSnapshot()
	require.NoError(t, err)
	_, stillPending, err := snap2.Pending(dest, send.ContentHash())
	require.NoError(t, err)
	assert.False(t, stillPending, "receive must consume the pending entry")

	info, ok, err := snap2.AccountInfo(dest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, info.Balance.Cmp(block.AmountFromUint64(600)))
}

func TestQueue_RejectedBlockFiresProcessedWithNilSideband(t *testing.T) {
	s := storetest.NewStore()
	c, err := check.NewContext([]byte("q-test-3"), check.DefaultWorkThresholds(), 0)
	require.NoError(t, err)
	q := processor.NewQueue(s, c, 8)
	defer q.Close()

	_, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	other, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)

	bad := &block.Block{Type: block.TypeState, Account: acct, Balance: block.ZeroAmount}
	sign(t, other, bad)

	var got observed
	done := make(chan struct{})
	q.OnProcessed(func(account block.Account, result block.ProcessResult, b *block.Block, sb *block.Sideband) {
		got.mu.Lock()
		got.result, got.sb = result, sb
		got.mu.Unlock()
		close(done)
	})
	q.Add(bad)
	q.Flush()
	<-done

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, block.ResultBadSignature, got.result)
	assert.Nil(t, got.sb)
}

func TestQueue_HalfFullAndFullReflectBufferOccupancy(t *testing.T) {
	s := storetest.NewStore()
	c, err := check.NewContext([]byte("q-test-4"), check.DefaultWorkThresholds(), 0)
	require.NoError(t, err)
	q := processor.NewQueue(s, c, 2)
	defer q.Close()

	assert.False(t, q.HalfFull())
	assert.False(t, q.Full())
}
