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

// Package dbtest holds the conformance suite every kvdb backend must pass.
package dbtest

import (
	"bytes"
	"crypto/rand"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/kvdb"
)

// TestDatabaseSuite runs a suite of tests against a KeyValueStore database
// implementation.
//
// TestDatabaseSuite 针对 KeyValueStore 实现运行一组测试。
func TestDatabaseSuite(t *testing.T, New func() kvdb.KeyValueStore) {
	t.Run("Iterator", func(t *testing.T) {
		tests := []struct {
			content map[string]string
			prefix  string
			start   string
			order   []string
		}{
			// Empty databases should be iterable
			{map[string]string{}, "", "", nil},
			{map[string]string{}, "non-existent-prefix", "", nil},

			// Single-item databases should be iterable
			{map[string]string{"key": "val"}, "", "", []string{"key"}},
			{map[string]string{"key": "val"}, "k", "", []string{"key"}},
			{map[string]string{"key": "val"}, "l", "", nil},

			// Multi-item databases should be fully iterable
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"", "",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"k", "",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			// Multi-item databases should be prefix-iterable
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"ka", "",
				[]string{"ka1", "ka2", "ka3", "ka4", "ka5"},
			},
			// Multi-item databases should be prefix-iterable with start position
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"ka", "3",
				[]string{"ka3", "ka4", "ka5"},
			},
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"ka", "8",
				nil,
			},
		}
		for i, tt := range tests {
			// Create the key-value data store
			db := New()
			for key, val := range tt.content {
				require.NoError(t, db.Put([]byte(key), []byte(val)), "test %d", i)
			}
			// Iterate over the database with the given configs and verify the results
			it, idx := db.NewIterator([]byte(tt.prefix), []byte(tt.start)), 0
			for it.Next() {
				require.Less(t, idx, len(tt.order), "test %d: prefix=%q more items than expected", i, tt.prefix)
				assert.Equal(t, tt.order[idx], string(it.Key()), "test %d: item %d", i, idx)
				assert.Equal(t, tt.content[tt.order[idx]], string(it.Value()), "test %d: item %d", i, idx)
				idx++
			}
			require.NoError(t, it.Error(), "test %d", i)
			assert.Equal(t, len(tt.order), idx, "test %d: iteration terminated prematurely", i)
			it.Release()
			db.Close()
		}
	})

	t.Run("IteratorWith", func(t *testing.T) {
		db := New()
		defer db.Close()

		keys := []string{"1", "2", "3", "4", "6", "10", "11", "12", "20", "21", "22"}
		sort.Strings(keys) // 1, 10, 11, etc

		for _, k := range keys {
			require.NoError(t, db.Put([]byte(k), nil))
		}
		{
			it := db.NewIterator(nil, nil)
			got, want := iterateKeys(it), keys
			require.NoError(t, it.Error())
			assert.Equal(t, want, got)
		}
		{
			it := db.NewIterator([]byte("1"), nil)
			got, want := iterateKeys(it), []string{"1", "10", "11", "12"}
			require.NoError(t, it.Error())
			assert.Equal(t, want, got)
		}
		{
			it := db.NewIterator([]byte("5"), nil)
			got, want := iterateKeys(it), []string{}
			require.NoError(t, it.Error())
			assert.Equal(t, want, got)
		}
		{
			it := db.NewIterator(nil, []byte("2"))
			got, want := iterateKeys(it), []string{"2", "20", "21", "22", "3", "4", "6"}
			require.NoError(t, it.Error())
			assert.Equal(t, want, got)
		}
		{
			it := db.NewIterator(nil, []byte("5"))
			got, want := iterateKeys(it), []string{"6"}
			require.NoError(t, it.Error())
			assert.Equal(t, want, got)
		}
	})

	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")

		got, err := db.Has(key)
		require.NoError(t, err)
		assert.False(t, got)

		_, err = db.Get(key)
		assert.ErrorIs(t, err, kvdb.ErrNotFound)

		value := []byte("hello world")
		require.NoError(t, db.Put(key, value))

		got, err = db.Has(key)
		require.NoError(t, err)
		assert.True(t, got)

		dat, err := db.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, dat)

		require.NoError(t, db.Delete(key))
		got, err = db.Has(key)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("Batch", func(t *testing.T) {
		db := New()
		defer db.Close()

		b := db.NewBatch()
		for _, k := range []string{"1", "2", "3", "4"} {
			require.NoError(t, b.Put([]byte(k), nil))
		}
		has, err := db.Has([]byte("1"))
		require.NoError(t, err)
		assert.False(t, has, "batch contents visible before Write")

		require.NoError(t, b.Write())
		assert.Equal(t, []string{"1", "2", "3", "4"}, iterateKeys(db.NewIterator(nil, nil)))

		b.Reset()

		// Mix writes and deletes in batch
		b.Put([]byte("5"), nil)
		b.Delete([]byte("1"))
		b.Put([]byte("6"), nil)

		b.Delete([]byte("3")) // delete then put
		b.Put([]byte("3"), nil)

		b.Put([]byte("7"), nil) // put then delete
		b.Delete([]byte("7"))

		require.NoError(t, b.Write())
		assert.Equal(t, []string{"2", "3", "4", "5", "6"}, iterateKeys(db.NewIterator(nil, nil)))
	})

	t.Run("BatchReplay", func(t *testing.T) {
		db := New()
		defer db.Close()

		want := []string{"1", "2", "3", "4"}
		b := db.NewBatch()
		for _, k := range want {
			require.NoError(t, b.Put([]byte(k), nil))
		}
		b2 := db.NewBatch()
		require.NoError(t, b.Replay(b2))
		require.NoError(t, b2.Replay(db))
		assert.Equal(t, want, iterateKeys(db.NewIterator(nil, nil)))
	})

	t.Run("Snapshot", func(t *testing.T) {
		db := New()
		defer db.Close()

		require.NoError(t, db.Put([]byte("a1"), []byte("v1")))
		require.NoError(t, db.Put([]byte("a2"), []byte("v2")))

		snap, err := db.NewSnapshot()
		require.NoError(t, err)
		defer snap.Release()

		require.NoError(t, db.Put([]byte("a3"), []byte("v3")))
		require.NoError(t, db.Put([]byte("a1"), []byte("changed")))
		require.NoError(t, db.Delete([]byte("a2")))

		dat, err := snap.Get([]byte("a1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), dat)

		has, err := snap.Has([]byte("a3"))
		require.NoError(t, err)
		assert.False(t, has)

		_, err = snap.Get([]byte("a3"))
		assert.ErrorIs(t, err, kvdb.ErrNotFound)

		it := snap.NewIterator([]byte("a"), nil)
		assert.Equal(t, []string{"a1", "a2"}, iterateKeys(it))
	})

	t.Run("DeleteRange", func(t *testing.T) {
		db := New()
		defer db.Close()

		addKeys := func(start, stop int) {
			for i := start; i <= stop; i++ {
				db.Put([]byte{byte(i)}, []byte("v"))
			}
		}
		checkRange := func(start, stop int, exp bool) {
			for i := start; i <= stop; i++ {
				has, _ := db.Has([]byte{byte(i)})
				assert.Equal(t, exp, has, "key %d", i)
			}
		}
		addKeys(1, 9)
		require.NoError(t, db.DeleteRange([]byte{3}, []byte{6}))
		checkRange(1, 2, true)
		checkRange(3, 5, false)
		checkRange(6, 9, true)
	})

	t.Run("OperationsAfterClose", func(t *testing.T) {
		db := New()
		db.Put([]byte("key"), []byte("value"))
		db.Close()
		_, err := db.Get([]byte("key"))
		assert.Error(t, err)
	})
}

// BenchDatabaseSuite runs a suite of benchmarks against a KeyValueStore database
// implementation.
func BenchDatabaseSuite(b *testing.B, New func() kvdb.KeyValueStore) {
	var (
		keys, vals   = makeDataset(1_000, 32, 32, false)
		sKeys, sVals = makeDataset(1_000, 32, 32, true)
	)
	b.Run("WriteSorted", func(b *testing.B) {
		benchWrite(b, New, sKeys, sVals)
	})
	b.Run("WriteRandom", func(b *testing.B) {
		benchWrite(b, New, keys, vals)
	})
}

func benchWrite(b *testing.B, New func() kvdb.KeyValueStore, keys, vals [][]byte) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		db := New()
		b.StartTimer()

		batch := db.NewBatch()
		for i := 0; i < len(keys); i++ {
			batch.Put(keys[i], vals[i])
		}
		batch.Write()

		b.StopTimer()
		db.Close()
		b.StartTimer()
	}
}

func iterateKeys(it kvdb.Iterator) []string {
	keys := []string{}
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	sort.Strings(keys)
	it.Release()
	return keys
}

// randBytes generates a random blob of data.
func randBytes(len int) []byte {
	buf := make([]byte, len)
	if n, err := rand.Read(buf); n != len || err != nil {
		panic(err)
	}
	return buf
}

func makeDataset(size, ksize, vsize int, order bool) ([][]byte, [][]byte) {
	var keys [][]byte
	var vals [][]byte
	for i := 0; i < size; i += 1 {
		keys = append(keys, randBytes(ksize))
		vals = append(vals, randBytes(vsize))
	}
	if order {
		slices.SortFunc(keys, bytes.Compare)
	}
	return keys, vals
}
