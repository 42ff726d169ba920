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
package memorydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/kvdb"
	"github.com/sunyihoo/authstore/kvdb/dbtest"
)

func TestMemoryDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() kvdb.KeyValueStore {
			return New()
		})
	})
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	db := New()
	require.NoError(t, db.Put([]byte("k"), []byte{1}))

	snap, err := db.NewSnapshot()
	require.NoError(t, err)

	require.NoError(t, db.Put([]byte("k"), []byte{2}))
	val, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, val)

	snap.Release()
	_, err = snap.Get([]byte("k"))
	assert.ErrorIs(t, err, kvdb.ErrClosed)
}

func TestStat(t *testing.T) {
	db := New()
	db.Put([]byte("ab"), []byte("cd"))
	stat, err := db.Stat()
	require.NoError(t, err)
	assert.Contains(t, stat, "entries: 1")
	assert.Equal(t, 1, db.Len())
}

func BenchmarkMemoryDB(b *testing.B) {
	dbtest.BenchDatabaseSuite(b, func() kvdb.KeyValueStore {
		return New()
	})
}
