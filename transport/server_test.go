package transport_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
	"github.com/tolelom/latticenode/store/storetest"
	"github.com/tolelom/latticenode/transport"
)

func sign(t *testing.T, priv crypto.PrivateKey, b *block.Block) {
	t.Helper()
	b.Signature = crypto.SignHash(priv, b.ContentHash())
}

// seedGenesisOnly commits a single opening state block for acct and
// returns its hash, mirroring scenario 1's "peer A holds only the genesis
// block".
func seedGenesisOnly(t *testing.T, s store.Store, priv crypto.PrivateKey, acct block.Account) block.Hash {
	t.Helper()
	open := &block.Block{Type: block.TypeState, Account: acct, Balance: block.AmountFromUint64(1000)}
	sign(t, priv, open)

	txn, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.PutBlock(open, block.Sideband{
		Account: acct, Balance: open.Balance, Height: 1,
	}))
	require.NoError(t, txn.PutAccountInfo(acct, block.AccountInfo{
		Head: open.ContentHash(), Balance: open.Balance, BlockCount: 1,
	}))
	require.NoError(t, txn.Commit())
	return open.ContentHash()
}

func TestServeBulkPull_ByAccountReturnsWholeChain(t *testing.T) {
	s := storetest.NewStore()
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)
	genesisHash := seedGenesisOnly(t, s, priv, acct)

	snap, err := s.NewSnapshot()
	require.NoError(t, err)

	chain, err := transport.ServeBulkPull(snap, block.BulkPullRequest{
		Start: block.Hash(acct),
		Count: 16,
	})
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, genesisHash, chain[0].ContentHash())
}

func TestServeBulkPull_ResumeFromHashExcludesEarlierBlocks(t *testing.T) {
	s := storetest.NewStore()
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)
	open := &block.Block{Type: block.TypeState, Account: acct, Balance: block.AmountFromUint64(1000)}
	sign(t, priv, open)
	txn, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.PutBlock(open, block.Sideband{Account: acct, Balance: open.Balance, Height: 1}))
	require.NoError(t, txn.PutAccountInfo(acct, block.AccountInfo{Head: open.ContentHash(), Balance: open.Balance, BlockCount: 1}))
	require.NoError(t, txn.Commit())

	second := &block.Block{Type: block.TypeState, Account: acct, Previous: open.ContentHash(), Balance: block.AmountFromUint64(1000)}
	sign(t, priv, second)
	txn2, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, txn2.PutBlock(second, block.Sideband{Account: acct, Balance: second.Balance, Height: 2}))
	require.NoError(t, txn2.PutAccountInfo(acct, block.AccountInfo{Head: second.ContentHash(), Balance: second.Balance, BlockCount: 2}))
	require.NoError(t, txn2.Commit())

	snap, err := s.NewSnapshot()
	require.NoError(t, err)
	chain, err := transport.ServeBulkPull(snap, block.BulkPullRequest{
		Start: second.ContentHash(),
		Count: 16,
	})
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, second.ContentHash(), chain[0].ContentHash())
}

func TestServeBulkPull_UnknownStartReturnsNothing(t *testing.T) {
	s := storetest.NewStore()
	snap, err := s.NewSnapshot()
	require.NoError(t, err)

	chain, err := transport.ServeBulkPull(snap, block.BulkPullRequest{Start: block.Hash{0xFF}, Count: 16})
	require.NoError(t, err)
	assert.Nil(t, chain)
}

func TestWriteBulkPullResponse_TerminatesWithNotABlock(t *testing.T) {
	s := storetest.NewStore()
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)
	seedGenesisOnly(t, s, priv, acct)

	snap, err := s.NewSnapshot()
	require.NoError(t, err)

	r, w := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- transport.WriteBulkPullResponse(w, snap, block.BulkPullRequest{Start: block.Hash(acct), Count: 16})
		w.Close()
	}()

	b, err := block.ReadBlock(r)
	require.NoError(t, err)
	require.NotNil(t, b)

	end, err := block.ReadBlock(r)
	require.NoError(t, err)
	assert.Nil(t, end, "stream must terminate with not_a_block")

	require.NoError(t, <-done)
}
