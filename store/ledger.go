package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tolelom/latticenode/block"
)

// ledgerStore implements Store over any KV, the same split the teacher
// keeps between storage.DB and storage.StateDB: this package owns the
// account/block/pending encoding, KV owns bytes on disk.
type ledgerStore struct {
	mu sync.Mutex // serializes Begin; this package has exactly one writer
	kv KV
}

// NewStore wraps kv as a Store. Callers normally go through NewLevelDB or
// storetest.NewStore rather than calling this directly.
func NewStore(kv KV) Store {
	return &ledgerStore{kv: kv}
}

func (s *ledgerStore) NewSnapshot() (Snapshot, error) {
	return &reader{get: s.kv.Get, iterate: s.kv.NewIterator}, nil
}

func (s *ledgerStore) Begin() (WriteTxn, error) {
	s.mu.Lock()
	w := &writeTxn{
		store:   s,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
	w.reader = reader{get: w.bufferedGet, iterate: w.bufferedIterate}
	return w, nil
}

func (s *ledgerStore) Close() error { return s.kv.Close() }

// reader implements the read half of Snapshot against a get/iterate pair.
// writeTxn configures one whose get/iterate consult its own write buffer
// first, so a check run mid-transaction sees its own uncommitted writes;
// Store.NewSnapshot configures one that reads the KV directly.
type reader struct {
	get     func(key []byte) ([]byte, error)
	iterate func(prefix []byte) Iterator
}

func (r *reader) AccountInfo(acct block.Account) (block.AccountInfo, bool, error) {
	data, err := r.get(acctKey(acct))
	if err != nil {
		if err == ErrNotFound {
			return block.AccountInfo{}, false, nil
		}
		return block.AccountInfo{}, false, err
	}
	var info block.AccountInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return block.AccountInfo{}, false, fmt.Errorf("store: decode account info: %w", err)
	}
	return info, true, nil
}

type storedBlock struct {
	Block    *block.Block
	Sideband block.Sideband
}

func (r *reader) Block(hash block.Hash) (*block.Block, block.Sideband, bool, error) {
	data, err := r.get(blockKey(hash))
	if err != nil {
		if err == ErrNotFound {
			return nil, block.Sideband{}, false, nil
		}
		return nil, block.Sideband{}, false, err
	}
	var sb storedBlock
	if err := json.Unmarshal(data, &sb); err != nil {
		return nil, block.Sideband{}, false, fmt.Errorf("store: decode block: %w", err)
	}
	return sb.Block, sb.Sideband, true, nil
}

func (r *reader) IsPruned(hash block.Hash) (bool, error) {
	_, err := r.get(prunedKey(hash))
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *reader) Pending(dest block.Account, source block.Hash) (block.PendingInfo, bool, error) {
	data, err := r.get(pendingKey(dest, source))
	if err != nil {
		if err == ErrNotFound {
			return block.PendingInfo{}, false, nil
		}
		return block.PendingInfo{}, false, err
	}
	var info block.PendingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return block.PendingInfo{}, false, fmt.Errorf("store: decode pending: %w", err)
	}
	return info, true, nil
}

func (r *reader) HasAnyPending(dest block.Account) (bool, error) {
	it := r.iterate(pendingDestPrefix(dest))
	defer it.Release()
	has := it.Next()
	return has, it.Error()
}

func (r *reader) IterateAccounts(fn func(block.Account, block.AccountInfo) (bool, error)) error {
	it := r.iterate([]byte(prefixAccount))
	defer it.Release()
	for it.Next() {
		acct, ok := accountFromKey(it.Key())
		if !ok {
			continue
		}
		var info block.AccountInfo
		if err := json.Unmarshal(it.Value(), &info); err != nil {
			return fmt.Errorf("store: decode account info for %s: %w", acct, err)
		}
		cont, err := fn(acct, info)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return it.Error()
}

func (r *reader) IteratePendingDestinations(fn func(block.Account) (bool, error)) error {
	it := r.iterate([]byte(prefixPending))
	defer it.Release()
	seen := make(map[block.Account]bool)
	for it.Next() {
		dest, ok := destFromPendingPrefixScan(it.Key())
		if !ok || seen[dest] {
			continue
		}
		seen[dest] = true
		cont, err := fn(dest)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return it.Error()
}

// writeTxn buffers writes in memory (mirroring the teacher's StateDB
// dirty/deleted maps) and flushes them through one KV batch on Commit.
type writeTxn struct {
	reader
	store *ledgerStore

	dirty   map[string][]byte
	deleted map[string]bool
	done    bool
}

func (w *writeTxn) bufferedGet(key []byte) ([]byte, error) {
	k := string(key)
	if w.deleted[k] {
		return nil, ErrNotFound
	}
	if v, ok := w.dirty[k]; ok {
		return v, nil
	}
	return w.store.kv.Get(key)
}

type kvPair struct{ key, value []byte }

type sliceIterator struct {
	pairs []kvPair
	idx   int
	err   error
}

func (it *sliceIterator) Next() bool    { it.idx++; return it.idx < len(it.pairs) }
func (it *sliceIterator) Key() []byte   { return it.pairs[it.idx].key }
func (it *sliceIterator) Value() []byte { return it.pairs[it.idx].value }
func (it *sliceIterator) Release()      {}
func (it *sliceIterator) Error() error  { return it.err }

// bufferedIterate merges the underlying KV with this transaction's
// uncommitted dirty/deleted entries before handing back a prefix scan, so
// a transaction can observe writes (e.g. a pending entry just inserted by
// an earlier block in the same batch) it has not committed yet.
func (w *writeTxn) bufferedIterate(prefix []byte) Iterator {
	p := string(prefix)
	merged := make(map[string][]byte)

	it := w.store.kv.NewIterator(prefix)
	for it.Next() {
		v := make([]byte, len(it.Value()))
		copy(v, it.Value())
		merged[string(it.Key())] = v
	}
	scanErr := it.Error()
	it.Release()

	for k, v := range w.dirty {
		if strings.HasPrefix(k, p) {
			merged[k] = v
		}
	}
	for k := range w.deleted {
		if strings.HasPrefix(k, p) {
			delete(merged, k)
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]kvPair, len(keys))
	for i, k := range keys {
		pairs[i] = kvPair{key: []byte(k), value: merged[k]}
	}
	return &sliceIterator{pairs: pairs, idx: -1, err: scanErr}
}

func (w *writeTxn) set(key []byte, value []byte) {
	k := string(key)
	delete(w.deleted, k)
	w.dirty[k] = value
}

func (w *writeTxn) del(key []byte) {
	k := string(key)
	delete(w.dirty, k)
	w.deleted[k] = true
}

func (w *writeTxn) PutBlock(b *block.Block, sb block.Sideband) error {
	data, err := json.Marshal(storedBlock{Block: b, Sideband: sb})
	if err != nil {
		return err
	}
	w.set(blockKey(b.ContentHash()), data)
	return nil
}

func (w *writeTxn) PutAccountInfo(acct block.Account, info block.AccountInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	w.set(acctKey(acct), data)
	return nil
}

func (w *writeTxn) PutPending(dest block.Account, source block.Hash, info block.PendingInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	w.set(pendingKey(dest, source), data)
	return nil
}

func (w *writeTxn) DeletePending(dest block.Account, source block.Hash) error {
	w.del(pendingKey(dest, source))
	return nil
}

func (w *writeTxn) PutPruned(hash block.Hash) error {
	w.set(prunedKey(hash), []byte{1})
	return nil
}

func (w *writeTxn) Commit() error {
	if w.done {
		return fmt.Errorf("store: commit on finished transaction")
	}
	w.done = true
	defer w.store.mu.Unlock()

	batch := w.store.kv.NewBatch()
	for k, v := range w.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range w.deleted {
		batch.Delete([]byte(k))
	}
	return batch.Write()
}

func (w *writeTxn) Discard() {
	if w.done {
		return
	}
	w.done = true
	w.store.mu.Unlock()
}
