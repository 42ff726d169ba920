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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
	"github.com/sunyihoo/authstore/kvdb/memorydb"
)

// populatePerpetual writes at least one row into every perpetual table.
func populatePerpetual(t *testing.T, db kvdb.KeyValueStore) {
	t.Helper()

	owner := types.NewAddressOwner(common.BytesToAddress([]byte{0xa1}))
	obj := testObject(1, 1, owner)
	cert := types.NewCertificate(types.Transaction{Data: types.TransactionData{Gas: obj.Ref()}}, 0)
	effects := &types.SignedEffects{Effects: types.Effects{TransactionDigest: cert.Digest()}}
	info := obj.Info()
	genesis := types.GenesisBatch()

	require.NoError(t, WriteObject(db, obj))
	require.NoError(t, WriteOwnerIndex(db, &info))
	require.NoError(t, WriteCertificate(db, cert))
	require.NoError(t, WriteParentSync(db, obj.Ref(), cert.Digest()))
	require.NoError(t, WriteEffects(db, effects))
	require.NoError(t, WriteExecutedSequence(db, 0, types.ExecutionDigests{Transaction: cert.Digest(), Effects: effects.Digest()}))
	require.NoError(t, WriteBatch(db, &types.SignedBatch{Batch: genesis}))
	WriteStoreVersion(db, StoreVersion)
}

// populateEpoch writes at least one row into every epoch table.
func populateEpoch(t *testing.T, db kvdb.KeyValueStore) {
	t.Helper()

	tx := &types.Transaction{Data: types.TransactionData{Gas: types.ObjectRef{ID: testID(1), Version: 1}}}
	cert := tx.Digest()

	require.NoError(t, WriteTransactionLock(db, tx))
	require.NoError(t, WritePendingExecution(db, 0, cert))
	require.NoError(t, WriteAssignedVersion(db, cert, testID(2), 1))
	require.NoError(t, WriteNextVersion(db, testID(2), 2))
	require.NoError(t, WriteConsensusProcessed(db, cert))
	require.NoError(t, WriteLastConsensusIndex(db, types.ExecutionIndicesWithHash{}))
	WriteStoreVersion(db, StoreVersion)
	WriteEpochNumber(db, 0)
}

func TestDumpEveryTable(t *testing.T) {
	for _, tc := range []struct {
		reg      *Registry
		populate func(*testing.T, kvdb.KeyValueStore)
	}{
		{PerpetualTables, populatePerpetual},
		{EpochTables, populateEpoch},
	} {
		db := memorydb.New()
		tc.populate(t, db)

		for _, name := range tc.reg.Names() {
			page, err := Dump(db, tc.reg, name, 100, 0)
			require.NoError(t, err, name)
			require.NotEmpty(t, page.Entries, name)
			for _, e := range page.Entries {
				assert.NotContains(t, e.Key, "undecodable", name)
				assert.NotContains(t, e.Value, "undecodable", name)
			}
		}
	}
}

func TestDumpPagination(t *testing.T) {
	db := memorydb.New()
	for seq := uint64(0); seq < 25; seq++ {
		require.NoError(t, WriteExecutedSequence(db, seq, types.ExecutionDigests{}))
	}
	keysOf := func(page *DumpPage) []string {
		var keys []string
		for _, e := range page.Entries {
			keys = append(keys, e.Key)
		}
		return keys
	}
	page, err := Dump(db, PerpetualTables, "executed_sequence", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, keysOf(page))

	page, err = Dump(db, PerpetualTables, "executed_sequence", 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"20", "21", "22", "23", "24"}, keysOf(page))

	page, err = Dump(db, PerpetualTables, "executed_sequence", 10, 3)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)

	page, err = Dump(db, PerpetualTables, "executed_sequence", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)

	page, err = Dump(db, PerpetualTables, "executed_sequence", 1<<40, 1<<40)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)

	// Numeric keys are big endian, so storage order is numeric order.
	page, err = Dump(db, PerpetualTables, "executed_sequence", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "10", "11"}, keysOf(page))
	assert.Len(t, page.Map(), 3)
}

func TestDumpUnknownTable(t *testing.T) {
	db := memorydb.New()
	_, err := Dump(db, PerpetualTables, "pending_execution", 10, 0)
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = Dump(db, EpochTables, "no_such_table", 10, 0)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestDumpUndecodableRow(t *testing.T) {
	db := memorydb.New()
	require.NoError(t, db.Put(append(common.CopyBytes(effectsPrefix), 0x01, 0x02), []byte{0xff, 0xff}))

	page, err := Dump(db, PerpetualTables, "effects", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.True(t, strings.HasPrefix(page.Entries[0].Key, "0x0102 (undecodable"))
	assert.True(t, strings.HasPrefix(page.Entries[0].Value, "0xffff (undecodable"))
}

func TestDumpReadsSnapshot(t *testing.T) {
	db := memorydb.New()
	require.NoError(t, WriteNextVersion(db, testID(1), 2))

	snap, err := db.NewSnapshot()
	require.NoError(t, err)
	defer snap.Release()
	require.NoError(t, WriteNextVersion(db, testID(2), 5))

	page, err := Dump(snap, EpochTables, "next_object_versions", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{testID(1).Hex(): "2"}, page.Map())
}

func TestRegistryCompleteness(t *testing.T) {
	prefixes := make(map[string]string)
	for _, reg := range []*Registry{PerpetualTables, EpochTables} {
		for _, spec := range reg.Tables() {
			assert.Equal(t, reg.Namespace(), spec.Store, spec.Name)
			assert.NotNil(t, spec.FormatKey, spec.Name)
			assert.NotNil(t, spec.FormatValue, spec.Name)
			assert.NotEmpty(t, spec.Description, spec.Name)

			if other, dup := prefixes[string(spec.Prefix)]; dup {
				t.Errorf("prefix %q shared by %s and %s", spec.Prefix, other, spec.Name)
			}
			prefixes[string(spec.Prefix)] = spec.Name

			for _, meta := range metadataKeys {
				assert.False(t, bytes.HasPrefix(meta, spec.Prefix), "metadata key %q inside table %s", meta, spec.Name)
			}
			got, err := reg.Lookup(spec.Name)
			require.NoError(t, err)
			assert.Same(t, spec, got)
		}
	}
	assert.Len(t, PerpetualTables.Names(), 7)
	assert.Len(t, EpochTables.Names(), 6)
	assert.Len(t, PerpetualTables.Describe(), 7)

	reg, err := RegistryFor(EpochNamespace)
	require.NoError(t, err)
	assert.Same(t, EpochTables, reg)
	_, err = RegistryFor("archive")
	assert.Error(t, err)
}

func TestInspectDatabase(t *testing.T) {
	db := memorydb.New()
	populatePerpetual(t, db)

	var out bytes.Buffer
	require.NoError(t, InspectDatabase(db, PerpetualTables, &out))
	for _, name := range PerpetualTables.Names() {
		assert.Contains(t, out.String(), name)
	}
	assert.Contains(t, out.String(), "Singleton metadata")
	assert.Contains(t, strings.ToUpper(out.String()), "TOTAL")
}

func TestTableSet(t *testing.T) {
	db := memorydb.New()
	populateEpoch(t, db)
	set := NewTableSet(db, EpochTables)

	assert.Equal(t, EpochNamespace, set.Namespace())
	assert.Equal(t, EpochTables.Names(), set.ListTables())

	for _, name := range set.ListTables() {
		table, err := set.OpenTable(name)
		require.NoError(t, err)
		it := table.NewIterator(nil, nil)
		assert.True(t, it.Next(), name)
		it.Release()

		page, err := set.Dump(name, 1, 0)
		require.NoError(t, err)
		assert.Len(t, page.Entries, 1, name)
	}
	_, err := set.OpenTable("objects")
	assert.ErrorIs(t, err, ErrUnknownTable)
}
