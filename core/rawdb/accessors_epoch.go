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
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
)

// WriteTransactionLock records the signed transaction holding the locks on its
// owned inputs for the current epoch.
func WriteTransactionLock(db kvdb.KeyValueWriter, tx *types.Transaction) error {
	return writeRLP(db, transactionKey(tx.Digest()), tx)
}

// ReadTransactionLock retrieves a signed transaction recorded in this epoch.
func ReadTransactionLock(db kvdb.KeyValueReader, digest common.Digest) (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := readRLP(db, transactionKey(digest), tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// PendingEntry is one row of the pending-execution queue.
type PendingEntry struct {
	Sequence uint64
	Digest   common.Digest
}

// WritePendingExecution enqueues a certificate digest at seq.
func WritePendingExecution(db kvdb.KeyValueWriter, seq uint64, digest common.Digest) error {
	return writeRLP(db, pendingExecutionKey(seq), digest)
}

// DeletePendingExecution removes the queue row at seq.
func DeletePendingExecution(db kvdb.KeyValueWriter, seq uint64) error {
	return db.Delete(pendingExecutionKey(seq))
}

// ReadPendingExecutions lists the pending-execution queue in sequence order.
// ReadPendingExecutions 按序号顺序列出待执行队列。
func ReadPendingExecutions(db kvdb.Iteratee) ([]PendingEntry, error) {
	it := db.NewIterator(pendingExecutionPrefix, nil)
	defer it.Release()

	var entries []PendingEntry
	for it.Next() {
		key := it.Key()[len(pendingExecutionPrefix):]
		if len(key) != sequenceKeyLength {
			continue
		}
		var digest common.Digest
		if err := rlp.DecodeBytes(it.Value(), &digest); err != nil {
			return nil, fmt.Errorf("invalid pending execution rlp at %x: %w", key, err)
		}
		entries = append(entries, PendingEntry{Sequence: binary.BigEndian.Uint64(key), Digest: digest})
	}
	return entries, it.Error()
}

// ReadNextPendingSequence returns one past the highest queue position in use.
func ReadNextPendingSequence(db kvdb.Iteratee) (uint64, error) {
	return nextSequence(db, pendingExecutionPrefix)
}

// WriteAssignedVersion records the version of a shared object a certificate
// will read.
func WriteAssignedVersion(db kvdb.KeyValueWriter, cert common.Digest, id types.ObjectID, version types.Version) error {
	return writeRLP(db, assignedVersionKey(cert, id), uint64(version))
}

// ReadAssignedVersion retrieves the version assigned to id for cert.
func ReadAssignedVersion(db kvdb.KeyValueReader, cert common.Digest, id types.ObjectID) (types.Version, error) {
	var version uint64
	if err := readRLP(db, assignedVersionKey(cert, id), &version); err != nil {
		return 0, err
	}
	return types.Version(version), nil
}

// ReadAssignedVersions lists every shared-object version assigned to cert.
func ReadAssignedVersions(db kvdb.Iteratee, cert common.Digest) (map[types.ObjectID]types.Version, error) {
	prefix := concat(assignedVersionsPrefix, cert.Bytes())
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	versions := make(map[types.ObjectID]types.Version)
	for it.Next() {
		key := it.Key()[len(assignedVersionsPrefix):]
		if len(key) != assignedKeyLength {
			continue
		}
		var version uint64
		if err := rlp.DecodeBytes(it.Value(), &version); err != nil {
			return nil, fmt.Errorf("invalid assigned version rlp at %x: %w", key, err)
		}
		versions[common.BytesToAddress(key[common.DigestLength:])] = types.Version(version)
	}
	return versions, it.Error()
}

// WriteNextVersion stores the version the next consensus certificate touching
// id will be assigned.
func WriteNextVersion(db kvdb.KeyValueWriter, id types.ObjectID, version types.Version) error {
	return writeRLP(db, nextVersionKey(id), uint64(version))
}

// ReadNextVersion retrieves the next version counter of a shared object.
func ReadNextVersion(db kvdb.KeyValueReader, id types.ObjectID) (types.Version, error) {
	var version uint64
	if err := readRLP(db, nextVersionKey(id), &version); err != nil {
		return 0, err
	}
	return types.Version(version), nil
}

// WriteConsensusProcessed marks a certificate as sequenced by consensus.
func WriteConsensusProcessed(db kvdb.KeyValueWriter, digest common.Digest) error {
	return writeRLP(db, consensusMessageKey(digest), true)
}

// IsConsensusProcessed reports whether a certificate has been sequenced.
func IsConsensusProcessed(db kvdb.KeyValueReader, digest common.Digest) (bool, error) {
	var processed bool
	err := readRLP(db, consensusMessageKey(digest), &processed)
	if kvdb.IsNotFound(err) {
		return false, nil
	}
	return processed, err
}

// WriteLastConsensusIndex stores the consensus resume point.
func WriteLastConsensusIndex(db kvdb.KeyValueWriter, index types.ExecutionIndicesWithHash) error {
	return writeRLP(db, lastConsensusIndexKey, &index)
}

// ReadLastConsensusIndex retrieves the consensus resume point.
func ReadLastConsensusIndex(db kvdb.KeyValueReader) (*types.ExecutionIndicesWithHash, error) {
	index := new(types.ExecutionIndicesWithHash)
	if err := readRLP(db, lastConsensusIndexKey, index); err != nil {
		return nil, err
	}
	return index, nil
}
