// Package store defines the persisted-state collaborator that check and
// processor depend on. spec.md treats the ledger store as out of scope
// ("the persistent ledger store... exposed as Store"); this package
// defines the interfaces that boundary needs and ships one concrete
// goleveldb-backed implementation with our own key layout (not the
// reference node's on-disk format, which Non-goals explicitly exclude).
package store

// Batch is an atomic write buffer: operations apply together via Write or
// are discarded together on error.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Write() error
}

// KV is the generic key-value seam underneath Store, kept distinct from
// Store itself so the block/account/pending encoding lives in one place
// (ledgerStore) regardless of which raw KV backend is plugged in
// underneath.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	NewBatch() Batch
	Close() error
}

// Iterator walks key-value pairs matching a prefix in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}
