package store

import (
	"errors"

	"github.com/tolelom/latticenode/block"
)

// ErrNotFound is returned by Snapshot lookups that find nothing, mirroring
// the teacher's core.ErrNotFound sentinel.
var ErrNotFound = errors.New("store: not found")

// Snapshot is the read-only view check.Context validates a candidate
// block against. It never blocks on a concurrent writer. The view
// Store.NewSnapshot returns in this package reads the underlying KV
// directly, so it is not point-in-time: writes committed after it was
// taken are visible through it.
type Snapshot interface {
	// AccountInfo returns the head-of-chain summary for acct, or
	// ok=false if the account has never been opened.
	AccountInfo(acct block.Account) (info block.AccountInfo, ok bool, err error)

	// Block returns a previously accepted block and the sideband
	// check.Context derived for it, or ok=false if hash is unknown.
	Block(hash block.Hash) (b *block.Block, sb block.Sideband, ok bool, err error)

	// IsPruned reports whether hash was accepted and later pruned: its
	// body is gone, but check.Context still counts it as existing for
	// duplicate detection.
	IsPruned(hash block.Hash) (bool, error)

	// Pending looks up one unreceived send keyed by (destination,
	// source block hash).
	Pending(dest block.Account, source block.Hash) (info block.PendingInfo, ok bool, err error)

	// HasAnyPending reports whether dest has at least one pending entry,
	// the test an opening epoch block must pass (ResultGapEpochOpenPending
	// otherwise).
	HasAnyPending(dest block.Account) (bool, error)

	// IterateAccounts calls fn for every account in the ledger in key
	// order, stopping early if fn returns cont=false or an error.
	IterateAccounts(fn func(block.Account, block.AccountInfo) (cont bool, err error)) error

	// IteratePendingDestinations calls fn once per distinct destination
	// account that currently has at least one pending entry, in key
	// order, stopping early on cont=false or an error.
	IteratePendingDestinations(fn func(dest block.Account) (cont bool, err error)) error
}

// WriteTxn is the single-writer mutation surface processor.Queue drives:
// one goroutine runs check.Check against a WriteTxn (which embeds
// Snapshot, so the rules it evaluates see its own uncommitted writes)
// and then applies the resulting sideband before calling Commit.
type WriteTxn interface {
	Snapshot

	PutBlock(b *block.Block, sb block.Sideband) error
	PutAccountInfo(acct block.Account, info block.AccountInfo) error
	PutPending(dest block.Account, source block.Hash, info block.PendingInfo) error
	DeletePending(dest block.Account, source block.Hash) error
	PutPruned(hash block.Hash) error

	// Commit flushes the transaction's writes atomically. A WriteTxn
	// must not be used again after Commit or Discard.
	Commit() error
	// Discard abandons all writes made through this transaction.
	Discard()
}

// Store is the root handle processor.Queue and bootpeer.Seed depend on.
type Store interface {
	NewSnapshot() (Snapshot, error)
	Begin() (WriteTxn, error)
	Close() error
}
