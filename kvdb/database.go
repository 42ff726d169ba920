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

// Package kvdb defines the interfaces for an ordered key-value store backing
// the authority tables.
// Package kvdb 定义了支撑权威表的有序键值存储接口。
package kvdb

import (
	"errors"
	"io"
)

var (
	// ErrNotFound is returned by every backend when a requested key is absent.
	// Callers distinguish absence from I/O failure with errors.Is.
	//
	// ErrNotFound 在请求的键不存在时由所有后端返回。
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned if a store was already closed at the invocation of a
	// data access operation.
	ErrClosed = errors.New("database closed")
)

// IsNotFound reports whether err signals a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// KeyValueReader wraps the Has and Get method of a backing data store.
//
// KeyValueReader 封装了底层数据存储的 Has 和 Get 方法。
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	// A missing key yields ErrNotFound.
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put method of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	Put(key []byte, value []byte) error

	// Delete removes the key from the key-value data store.
	Delete(key []byte) error
}

// KeyValueRangeDeleter wraps the DeleteRange method of a backing data store.
type KeyValueRangeDeleter interface {
	// DeleteRange deletes all of the keys (and values) in the range [start,end)
	// (inclusive on start, exclusive on end).
	DeleteRange(start, end []byte) error
}

// KeyValueStater wraps the Stat method of a backing data store.
type KeyValueStater interface {
	// Stat returns the statistic data of the database.
	Stat() (string, error)
}

// Compacter wraps the Compact method of a backing data store.
//
// Compacter 封装了底层数据存储的 Compact 方法。
type Compacter interface {
	// Compact flattens the underlying data store for the given key range. A nil
	// start is treated as a key before all keys in the data store; a nil limit
	// is treated as a key after all keys in the data store.
	Compact(start []byte, limit []byte) error
}

// Snapshot is a frozen, read-only view of a key-value store. Writes that land
// after the snapshot was taken are not visible through it.
//
// Snapshot 是键值存储的冻结只读视图。快照之后的写入对其不可见。
type Snapshot interface {
	KeyValueReader
	Iteratee

	// Release releases associated resources. Release should always succeed and
	// can be called multiple times without causing error.
	Release()
}

// Snapshotter wraps the NewSnapshot method of a backing data store.
type Snapshotter interface {
	// NewSnapshot creates a database snapshot based on the current state.
	NewSnapshot() (Snapshot, error)
}

// Reader contains the read side of a store, used by the dump and inspect tools.
type Reader interface {
	KeyValueReader
	Iteratee
}

// KeyValueStore contains all the methods required to allow handling different
// key-value data stores backing the high level database.
//
// KeyValueStore 包含处理不同键值数据存储所需的所有方法。
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	KeyValueStater
	KeyValueRangeDeleter
	Batcher
	Iteratee
	Snapshotter
	Compacter
	io.Closer
}
