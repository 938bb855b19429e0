package check_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/check"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store/storetest"
)

// TestCheck_EpochUpgradeProgressesAndBumpsEpoch is scenario 5: an
// account already open on Epoch0 receives a correctly-countersigned
// epoch-upgrade block and its sideband records the new epoch.
func TestCheck_EpochUpgradeProgressesAndBumpsEpoch(t *testing.T) {
	c := newContext(t)
	s := storetest.NewStore()

	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)

	open := receiveOpen(t, s, priv, acct, block.AmountFromUint64(100))
	snap, err := s.NewSnapshot()
	require.NoError(t, err)
	result, sideband, err := c.Check(snap, open)
	require.NoError(t, err)
	require.Equal(t, block.ResultProgress, result)
	commitBlock(t, s, open, sideband)

	epochKey := check.EpochSigningKey(block.Epoch1, chainSeed)
	upgrade := &block.Block{
		Type:     block.TypeState,
		Account:  acct,
		Previous: open.ContentHash(),
		Balance:  block.AmountFromUint64(100),
		Link:     check.EpochLink(block.Epoch1, chainSeed),
	}
	sign(t, epochKey, upgrade)

	snap2, err := s.NewSnapshot()
	require.NoError(t, err)
	result2, sideband2, err := c.Check(snap2, upgrade)
	require.NoError(t, err)
	require.Equal(t, block.ResultProgress, result2)
	assert.True(t, sideband2.Details.IsEpoch)
	assert.Equal(t, block.Epoch1, sideband2.Details.Epoch)
	assert.Equal(t, 0, sideband2.Balance.Cmp(block.AmountFromUint64(100)))
}

// TestCheck_EpochUpgradeSignedByAccountIsRejected asserts the signer
// rule: an epoch-upgrade block signed by the account it upgrades,
// instead of the designated epoch-signing key, is a bad signature.
func TestCheck_EpochUpgradeSignedByAccountIsRejected(t *testing.T) {
	c := newContext(t)
	s := storetest.NewStore()

	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)

	open := openState(t, priv, acct, block.ZeroAmount)
	snap, err := s.NewSnapshot()
	require.NoError(t, err)
	result, sideband, err := c.Check(snap, open)
	require.NoError(t, err)
	require.Equal(t, block.ResultProgress, result)
	commitBlock(t, s, open, sideband)

	upgrade := &block.Block{
		Type:     block.TypeState,
		Account:  acct,
		Previous: open.ContentHash(),
		Balance:  block.ZeroAmount,
		Link:     check.EpochLink(block.Epoch1, chainSeed),
	}
	sign(t, priv, upgrade) // wrong signer: the account itself, not the epoch key

	snap2, err := s.NewSnapshot()
	require.NoError(t, err)
	result2, _, err := c.Check(snap2, upgrade)
	require.NoError(t, err)
	assert.Equal(t, block.ResultBadSignature, result2)
}

// TestCheck_EpochUpgradeSkippingAnEpochIsBlockPosition asserts epoch
// upgrades only ever advance by exactly one.
func TestCheck_EpochUpgradeSkippingAnEpochIsBlockPosition(t *testing.T) {
	c := newContext(t)
	s := storetest.NewStore()

	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)

	open := openState(t, priv, acct, block.ZeroAmount)
	snap, err := s.NewSnapshot()
	require.NoError(t, err)
	result, sideband, err := c.Check(snap, open)
	require.NoError(t, err)
	require.Equal(t, block.ResultProgress, result)
	commitBlock(t, s, open, sideband)

	skipKey := check.EpochSigningKey(block.Epoch2, chainSeed)
	upgrade := &block.Block{
		Type:     block.TypeState,
		Account:  acct,
		Previous: open.ContentHash(),
		Balance:  block.ZeroAmount,
		Link:     check.EpochLink(block.Epoch2, chainSeed), // Epoch0 -> Epoch2 skips Epoch1
	}
	sign(t, skipKey, upgrade)

	snap2, err := s.NewSnapshot()
	require.NoError(t, err)
	result2, _, err := c.Check(snap2, upgrade)
	require.NoError(t, err)
	assert.Equal(t, block.ResultBlockPosition, result2)
}

// TestCheck_EpochOpenWithoutPendingIsGapEpochOpenPending covers an
// epoch-upgrade block opening a never-before-seen account: it must name
// at least one pending send, mirroring an ordinary open block.
func TestCheck_EpochOpenWithoutPendingIsGapEpochOpenPending(t *testing.T) {
	c := newContext(t)
	s := storetest.NewStore()
	snap, err := s.NewSnapshot()
	require.NoError(t, err)

	_, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	acct := crypto.AccountOf(pub)

	epochKey := check.EpochSigningKey(block.Epoch1, chainSeed)
	upgrade := &block.Block{
		Type:    block.TypeState,
		Account: acct,
		Balance: block.ZeroAmount,
		Link:    check.EpochLink(block.Epoch1, chainSeed),
	}
	sign(t, epochKey, upgrade)

	result, _, err := c.Check(snap, upgrade)
	require.NoError(t, err)
	assert.Equal(t, block.ResultGapEpochOpenPending, result)
}
