package bootpeer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/bootpeer"
	"github.com/tolelom/latticenode/selection"
	"github.com/tolelom/latticenode/store/storetest"
)

func TestSeed_UnblocksEveryKnownAccount(t *testing.T) {
	s := storetest.NewStore()
	var a, b block.Account
	a[0] = 0x01
	b[0] = 0x02

	txn, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.PutAccountInfo(a, block.AccountInfo{BlockCount: 1}))
	require.NoError(t, txn.PutAccountInfo(b, block.AccountInfo{BlockCount: 1}))
	require.NoError(t, txn.Commit())

	sel := selection.NewSet()
	require.NoError(t, bootpeer.Seed(s, sel))

	assert.Equal(t, 2, sel.Size())
	// Next draws by weight, so one account can come up twice in a row;
	// enough draws make both show up.
	seen := map[block.Account]bool{}
	for i := 0; i < 20; i++ {
		got, ok := sel.Next()
		require.True(t, ok)
		seen[got] = true
	}
	assert.True(t, seen[a])
	assert.True(t, seen[b])
}

func TestSeed_ForwardsPendingDestinations(t *testing.T) {
	s := storetest.NewStore()
	var dest, source block.Account
	dest[0] = 0x03
	var sourceHash block.Hash
	sourceHash[0] = 0x04
	_ = source

	txn, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.PutPending(dest, sourceHash, block.PendingInfo{Amount: block.AmountFromUint64(7)}))
	require.NoError(t, txn.Commit())

	sel := selection.NewSet()
	require.NoError(t, bootpeer.Seed(s, sel))

	// A forwarded account must win over any freshly-unblocked-only
	// account when Next is consulted, since Forward takes priority.
	other := block.Account{0xff}
	sel.Unblock(other)

	got, ok := sel.Next()
	require.True(t, ok)
	assert.Equal(t, dest, got, "forwarded pending destination must be returned before a plain unblocked account")
}

func TestSeed_EmptyStoreLeavesSelectionEmpty(t *testing.T) {
	s := storetest.NewStore()
	sel := selection.NewSet()
	require.NoError(t, bootpeer.Seed(s, sel))
	assert.Equal(t, 0, sel.Size())
	_, ok := sel.Next()
	assert.False(t, ok)
}
