// Copyright 2025 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package rawdb

import (
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/kvdb"
)

// table is a wrapper around a database that prefixes each key access with a
// table prefix. Every logical table of the authority store is one such view
// over the namespace database.
//
// table 是对数据库的封装，每次键访问都加上表前缀。
type table struct {
	db     kvdb.KeyValueStore
	prefix []byte
}

// NewTable returns a database object that prefixes all keys with a given prefix.
func NewTable(db kvdb.KeyValueStore, prefix []byte) kvdb.KeyValueStore {
	return &table{
		db:     db,
		prefix: common.CopyBytes(prefix),
	}
}

func (t *table) key(key []byte) []byte {
	return append(common.CopyBytes(t.prefix), key...)
}

// Close is a noop: the namespace database is owned by the store.
func (t *table) Close() error {
	return nil
}

// Has retrieves if a prefixed version of a key is present in the database.
func (t *table) Has(key []byte) (bool, error) {
	return t.db.Has(t.key(key))
}

// Get retrieves the given prefixed key if it's present in the database.
func (t *table) Get(key []byte) ([]byte, error) {
	return t.db.Get(t.key(key))
}

// Put inserts the given value into the database at a prefixed version of the
// provided key.
func (t *table) Put(key []byte, value []byte) error {
	return t.db.Put(t.key(key), value)
}

// Delete removes the given prefixed key from the database.
func (t *table) Delete(key []byte) error {
	return t.db.Delete(t.key(key))
}

// DeleteRange deletes all of the keys (and values) in the range [start,end)
// (inclusive on start, exclusive on end). A nil end stops at the end of the
// table.
func (t *table) DeleteRange(start, end []byte) error {
	limit := kvdb.UpperBound(t.prefix)
	if end != nil {
		limit = t.key(end)
	}
	return t.db.DeleteRange(t.key(start), limit)
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of table content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
func (t *table) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	return newTableIterator(t.db, t.prefix, prefix, start)
}

// NewSnapshot creates a snapshot of the namespace viewed through the table.
func (t *table) NewSnapshot() (kvdb.Snapshot, error) {
	snap, err := t.db.NewSnapshot()
	if err != nil {
		return nil, err
	}
	return &tableSnapshot{snap: snap, prefix: t.prefix}, nil
}

// Stat returns the statistic data of the database.
func (t *table) Stat() (string, error) {
	return t.db.Stat()
}

// Compact flattens the underlying data store for the table's key range.
func (t *table) Compact(start []byte, limit []byte) error {
	// If no start was specified, use the table prefix as the first value
	if start == nil {
		start = common.CopyBytes(t.prefix)
	} else {
		start = t.key(start)
	}
	// If no limit was specified, use the first key not matching the prefix
	if limit == nil {
		limit = kvdb.UpperBound(t.prefix)
	} else {
		limit = t.key(limit)
	}
	return t.db.Compact(start, limit)
}

// NewBatch creates a write-only database that buffers changes to its host db
// until a final write is called, each operation prefixing all keys with the
// table prefix.
func (t *table) NewBatch() kvdb.Batch {
	return &tableBatch{t.db.NewBatch(), t.prefix}
}

// NewBatchWithSize creates a write-only database batch with pre-allocated buffer.
func (t *table) NewBatchWithSize(size int) kvdb.Batch {
	return &tableBatch{t.db.NewBatchWithSize(size), t.prefix}
}

// NewTableReader returns a read-only prefixed view, used over snapshots.
func NewTableReader(r kvdb.Reader, prefix []byte) kvdb.Reader {
	return &tableReader{r: r, prefix: common.CopyBytes(prefix)}
}

type tableReader struct {
	r      kvdb.Reader
	prefix []byte
}

func (t *tableReader) Has(key []byte) (bool, error) {
	return t.r.Has(append(common.CopyBytes(t.prefix), key...))
}

func (t *tableReader) Get(key []byte) ([]byte, error) {
	return t.r.Get(append(common.CopyBytes(t.prefix), key...))
}

func (t *tableReader) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	return newTableIterator(t.r, t.prefix, prefix, start)
}

// tableSnapshot is a snapshot viewed through a table prefix.
type tableSnapshot struct {
	snap   kvdb.Snapshot
	prefix []byte
}

func (s *tableSnapshot) Has(key []byte) (bool, error) {
	return s.snap.Has(append(common.CopyBytes(s.prefix), key...))
}

func (s *tableSnapshot) Get(key []byte) ([]byte, error) {
	return s.snap.Get(append(common.CopyBytes(s.prefix), key...))
}

func (s *tableSnapshot) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	return newTableIterator(s.snap, s.prefix, prefix, start)
}

func (s *tableSnapshot) Release() {
	s.snap.Release()
}

// tableBatch is a wrapper around a database batch that prefixes each key access
// with a pre-configured prefix.
type tableBatch struct {
	batch  kvdb.Batch
	prefix []byte
}

// Put inserts the given value into the batch for later committing.
func (b *tableBatch) Put(key, value []byte) error {
	return b.batch.Put(append(common.CopyBytes(b.prefix), key...), value)
}

// Delete inserts a key removal into the batch for later committing.
func (b *tableBatch) Delete(key []byte) error {
	return b.batch.Delete(append(common.CopyBytes(b.prefix), key...))
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *tableBatch) ValueSize() int {
	return b.batch.ValueSize()
}

// Write flushes any accumulated data to disk.
func (b *tableBatch) Write() error {
	return b.batch.Write()
}

// Reset resets the batch for reuse.
func (b *tableBatch) Reset() {
	b.batch.Reset()
}

// Replay replays the batch contents with the table prefix stripped.
func (b *tableBatch) Replay(w kvdb.KeyValueWriter) error {
	return b.batch.Replay(&tableReplayer{w: w, prefix: b.prefix})
}

// tableReplayer is a wrapper around a batch replayer which truncates
// the added prefix.
type tableReplayer struct {
	w      kvdb.KeyValueWriter
	prefix []byte
}

// Put implements the interface KeyValueWriter.
func (r *tableReplayer) Put(key []byte, value []byte) error {
	return r.w.Put(key[len(r.prefix):], value)
}

// Delete implements the interface KeyValueWriter.
func (r *tableReplayer) Delete(key []byte) error {
	return r.w.Delete(key[len(r.prefix):])
}

// tableIterator is a wrapper around a database iterator that strips the table
// prefix from every key.
type tableIterator struct {
	iter   kvdb.Iterator
	prefix []byte
}

func newTableIterator(db kvdb.Iteratee, tablePrefix, prefix, start []byte) *tableIterator {
	innerPrefix := append(common.CopyBytes(tablePrefix), prefix...)
	return &tableIterator{
		iter:   db.NewIterator(innerPrefix, start),
		prefix: tablePrefix,
	}
}

// Next moves the iterator to the next key/value pair. It returns whether the
// iterator is exhausted.
func (iter *tableIterator) Next() bool {
	return iter.iter.Next()
}

// Error returns any accumulated error.
func (iter *tableIterator) Error() error {
	return iter.iter.Error()
}

// Key returns the key of the current key/value pair without the table prefix,
// or nil if done.
func (iter *tableIterator) Key() []byte {
	key := iter.iter.Key()
	if key == nil {
		return nil
	}
	return key[len(iter.prefix):]
}

// Value returns the value of the current key/value pair, or nil if done.
func (iter *tableIterator) Value() []byte {
	return iter.iter.Value()
}

// Release releases associated resources.
func (iter *tableIterator) Release() {
	iter.iter.Release()
}
