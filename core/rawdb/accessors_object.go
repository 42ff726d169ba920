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
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
)

// readRLP loads the value at key and decodes it into val. A missing key yields
// kvdb.ErrNotFound.
func readRLP(db kvdb.KeyValueReader, key []byte, val interface{}) error {
	data, err := db.Get(key)
	if err != nil {
		return err
	}
	if err := rlp.DecodeBytes(data, val); err != nil {
		return fmt.Errorf("invalid %T rlp at %x: %w", val, key, err)
	}
	return nil
}

// writeRLP encodes val and stores it at key.
func writeRLP(db kvdb.KeyValueWriter, key []byte, val interface{}) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return fmt.Errorf("failed to rlp encode %T: %w", val, err)
	}
	return db.Put(key, data)
}

// ReadObject retrieves one version of an object.
func ReadObject(db kvdb.KeyValueReader, key types.ObjectKey) (*types.Object, error) {
	obj := new(types.Object)
	if err := readRLP(db, objectKey(key), obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// HasObject reports whether the given object version is stored.
func HasObject(db kvdb.KeyValueReader, key types.ObjectKey) (bool, error) {
	return db.Has(objectKey(key))
}

// WriteObject stores an object version under its (id, version) key.
func WriteObject(db kvdb.KeyValueWriter, obj *types.Object) error {
	return writeRLP(db, objectKey(obj.Key()), obj)
}

// DeleteObject removes one version of an object.
func DeleteObject(db kvdb.KeyValueWriter, key types.ObjectKey) error {
	return db.Delete(objectKey(key))
}

// ReadObjectVersions lists the stored versions of an object in ascending order.
func ReadObjectVersions(db kvdb.Iteratee, id types.ObjectID) ([]types.Version, error) {
	it := db.NewIterator(concat(objectsPrefix, id.Bytes()), nil)
	defer it.Release()

	var versions []types.Version
	for it.Next() {
		key, ok := parseObjectKeySuffix(it.Key()[len(objectsPrefix):])
		if !ok {
			continue
		}
		versions = append(versions, key.Version)
	}
	return versions, it.Error()
}

// ReadLatestObject retrieves the highest stored version of an object. The
// lookup scans the versions of id in key order.
//
// ReadLatestObject 获取对象已存储的最高版本。
func ReadLatestObject(db kvdb.Iteratee, id types.ObjectID) (*types.Object, error) {
	it := db.NewIterator(concat(objectsPrefix, id.Bytes()), nil)
	defer it.Release()

	var last []byte
	for it.Next() {
		last = common.CopyBytes(it.Value())
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	if last == nil {
		return nil, kvdb.ErrNotFound
	}
	obj := new(types.Object)
	if err := rlp.DecodeBytes(last, obj); err != nil {
		return nil, fmt.Errorf("invalid object rlp for %s: %w", id.Hex(), err)
	}
	return obj, nil
}

// WriteOwnerIndex records info under its owner.
func WriteOwnerIndex(db kvdb.KeyValueWriter, info *types.ObjectInfo) error {
	return writeRLP(db, ownerIndexKey(info.Owner, info.Ref.ID), info)
}

// DeleteOwnerIndex drops the owner index row of id.
func DeleteOwnerIndex(db kvdb.KeyValueWriter, owner types.Owner, id types.ObjectID) error {
	return db.Delete(ownerIndexKey(owner, id))
}

// ReadOwnedObjects lists the owner index rows of owner ordered by object id.
func ReadOwnedObjects(db kvdb.Iteratee, owner types.Owner) ([]types.ObjectInfo, error) {
	prefix := concat(ownerIndexPrefix, ownerPrefix(owner))
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	var infos []types.ObjectInfo
	for it.Next() {
		var info types.ObjectInfo
		if err := rlp.DecodeBytes(it.Value(), &info); err != nil {
			return nil, fmt.Errorf("invalid owner index rlp at %x: %w", it.Key(), err)
		}
		infos = append(infos, info)
	}
	return infos, it.Error()
}

// ParentEntry is one parent-sync row: an object reference and the transaction
// that produced it.
type ParentEntry struct {
	Ref         types.ObjectRef
	Transaction common.Digest
}

// WriteParentSync links ref to the transaction that produced it.
func WriteParentSync(db kvdb.KeyValueWriter, ref types.ObjectRef, tx common.Digest) error {
	return writeRLP(db, parentSyncKey(ref), tx)
}

// ReadParentSync retrieves the transaction that produced ref.
func ReadParentSync(db kvdb.KeyValueReader, ref types.ObjectRef) (common.Digest, error) {
	var tx common.Digest
	err := readRLP(db, parentSyncKey(ref), &tx)
	return tx, err
}

// DeleteParentSync removes the parent-sync row of ref.
func DeleteParentSync(db kvdb.KeyValueWriter, ref types.ObjectRef) error {
	return db.Delete(parentSyncKey(ref))
}

// ReadParentEntries lists the parent-sync rows of an object in version order.
func ReadParentEntries(db kvdb.Iteratee, id types.ObjectID) ([]ParentEntry, error) {
	it := db.NewIterator(concat(parentSyncPrefix, id.Bytes()), nil)
	defer it.Release()

	var entries []ParentEntry
	for it.Next() {
		ref, ok := parseParentSyncSuffix(it.Key()[len(parentSyncPrefix):])
		if !ok {
			continue
		}
		var tx common.Digest
		if err := rlp.DecodeBytes(it.Value(), &tx); err != nil {
			return nil, fmt.Errorf("invalid parent sync rlp at %x: %w", it.Key(), err)
		}
		entries = append(entries, ParentEntry{Ref: ref, Transaction: tx})
	}
	return entries, it.Error()
}

// ReadLatestParentEntry retrieves the highest-version parent-sync row of id.
// The returned reference may carry a deleted or wrapped sentinel digest.
func ReadLatestParentEntry(db kvdb.Iteratee, id types.ObjectID) (*ParentEntry, error) {
	entries, err := ReadParentEntries(db, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, kvdb.ErrNotFound
	}
	return &entries[len(entries)-1], nil
}

// ReadNextParentEntry retrieves the first parent-sync row of id strictly after
// version, which names the transaction that consumed that version.
func ReadNextParentEntry(db kvdb.Iteratee, id types.ObjectID, version types.Version) (*ParentEntry, error) {
	start := encodeUint64(uint64(version) + 1)
	it := db.NewIterator(concat(parentSyncPrefix, id.Bytes()), start)
	defer it.Release()

	for it.Next() {
		ref, ok := parseParentSyncSuffix(it.Key()[len(parentSyncPrefix):])
		if !ok {
			continue
		}
		var tx common.Digest
		if err := rlp.DecodeBytes(it.Value(), &tx); err != nil {
			return nil, fmt.Errorf("invalid parent sync rlp at %x: %w", it.Key(), err)
		}
		return &ParentEntry{Ref: ref, Transaction: tx}, nil
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return nil, kvdb.ErrNotFound
}
