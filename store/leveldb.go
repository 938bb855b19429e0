package store

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelKV implements KV using goleveldb, adapted from the teacher's
// storage.LevelDB.
type levelKV struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a goleveldb database at path and returns
// the reference Store backend.
func NewLevelDB(path string) (Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open leveldb %q: %w", path, err)
	}
	return NewStore(&levelKV{db: db}), nil
}

func (l *levelKV) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return val, err
}

func (l *levelKV) Set(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *levelKV) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *levelKV) NewIterator(prefix []byte) Iterator {
	return l.db.NewIterator(util.BytesPrefix(prefix), nil)
}

func (l *levelKV) NewBatch() Batch {
	return &levelBatch{db: l.db, batch: new(leveldb.Batch)}
}

func (l *levelKV) Close() error {
	return l.db.Close()
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Set(key, value []byte) { b.batch.Put(key, value) }
func (b *levelBatch) Delete(key []byte)     { b.batch.Delete(key) }
func (b *levelBatch) Write() error          { return b.db.Write(b.batch, nil) }
