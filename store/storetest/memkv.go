// Package storetest provides an in-memory store.Store for tests, adapted
// from the teacher's internal/testutil.MemDB. Never import this from
// production code.
package storetest

import (
	"sort"
	"strings"
	"sync"

	"github.com/tolelom/latticenode/store"
)

// memKV is a thread-safe in-memory store.KV.
type memKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore returns a fresh in-memory store.Store.
func NewStore() store.Store {
	return store.NewStore(&memKV{data: make(map[string][]byte)})
}

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *memKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *memKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memKV) NewIterator(prefix []byte) store.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := string(prefix)
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]memPair, len(keys))
	for i, k := range keys {
		v := m.data[k]
		cp := make([]byte, len(v))
		copy(cp, v)
		pairs[i] = memPair{key: []byte(k), value: cp}
	}
	return &memIterator{pairs: pairs, idx: -1}
}

func (m *memKV) NewBatch() store.Batch {
	return &memBatch{db: m}
}

func (m *memKV) Close() error { return nil }

type memBatch struct {
	db  *memKV
	ops []memOp
}

type memOp struct {
	key   string
	value []byte // nil means delete
}

func (b *memBatch) Set(key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.ops = append(b.ops, memOp{key: string(key), value: cp})
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, memOp{key: string(key), value: nil})
}

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		if op.value == nil {
			delete(b.db.data, op.key)
		} else {
			b.db.data[op.key] = op.value
		}
	}
	return nil
}

type memPair struct{ key, value []byte }

type memIterator struct {
	pairs []memPair
	idx   int
}

func (it *memIterator) Next() bool    { it.idx++; return it.idx < len(it.pairs) }
func (it *memIterator) Key() []byte   { return it.pairs[it.idx].key }
func (it *memIterator) Value() []byte { return it.pairs[it.idx].value }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return nil }
