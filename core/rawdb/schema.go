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

// Package rawdb contains a collection of low level database accessors for the
// authority store tables.
// Package rawdb 包含权威存储表的底层数据库访问器集合。
package rawdb

import (
	"encoding/binary"

	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/types"
)

// The fields below define the low level database schema prefixing.
var (
	// storeVersionKey tracks the current schema version of a namespace.
	storeVersionKey = []byte("AuthorityStoreVersion")

	// epochNumberKey records which epoch an epoch namespace belongs to.
	epochNumberKey = []byte("EpochNumber")

	// uncleanShutdownKey tracks the list of local crashes.
	uncleanShutdownKey = []byte("UncleanShutdown")

	// Perpetual tables. Single lowercase letters keep data rows apart from the
	// metadata keys above, which all start with an uppercase letter.
	objectsPrefix          = []byte("o") // objectsPrefix + id + version (uint64 big endian) -> object
	ownerIndexPrefix       = []byte("w") // ownerIndexPrefix + owner kind + owner + id -> object info
	certificatesPrefix     = []byte("c") // certificatesPrefix + tx digest -> certificate
	parentSyncPrefix       = []byte("p") // parentSyncPrefix + id + version (uint64 big endian) + object digest -> tx digest
	effectsPrefix          = []byte("e") // effectsPrefix + tx digest -> signed effects
	executedSequencePrefix = []byte("s") // executedSequencePrefix + seq (uint64 big endian) -> execution digests
	batchesPrefix          = []byte("b") // batchesPrefix + seq (uint64 big endian) -> signed batch

	// Epoch tables.
	transactionsPrefix       = []byte("t") // transactionsPrefix + tx digest -> signed transaction
	pendingExecutionPrefix   = []byte("q") // pendingExecutionPrefix + seq (uint64 big endian) -> tx digest
	assignedVersionsPrefix   = []byte("a") // assignedVersionsPrefix + cert digest + id -> version
	nextVersionsPrefix       = []byte("n") // nextVersionsPrefix + id -> version
	consensusMessagePrefix   = []byte("m") // consensusMessagePrefix + tx digest -> bool
	lastConsensusIndexPrefix = []byte("l") // lastConsensusIndexPrefix + 0 (uint64 big endian) -> execution indices
)

// StoreVersion is the schema version written into every namespace.
const StoreVersion = 1

const (
	objectKeyLength     = common.AddressLength + 8
	parentSyncKeyLength = common.AddressLength + 8 + common.DigestLength
	ownerIndexKeyLength = 1 + 2*common.AddressLength
	assignedKeyLength   = common.DigestLength + common.AddressLength
	sequenceKeyLength   = 8
)

// encodeUint64 encodes a number as big endian uint64
func encodeUint64(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// objectKeySuffix = id + version (uint64 big endian)
func objectKeySuffix(key types.ObjectKey) []byte {
	return concat(key.ID.Bytes(), encodeUint64(uint64(key.Version)))
}

// objectKey = objectsPrefix + id + version (uint64 big endian)
func objectKey(key types.ObjectKey) []byte {
	return concat(objectsPrefix, objectKeySuffix(key))
}

// ownerIndexKey = ownerIndexPrefix + owner kind + owner + id
func ownerIndexKey(owner types.Owner, id types.ObjectID) []byte {
	return concat(ownerIndexPrefix, ownerPrefix(owner), id.Bytes())
}

func ownerPrefix(owner types.Owner) []byte {
	return concat([]byte{byte(owner.Kind)}, owner.Address.Bytes())
}

// certificateKey = certificatesPrefix + tx digest
func certificateKey(digest common.Digest) []byte {
	return concat(certificatesPrefix, digest.Bytes())
}

// parentSyncKey = parentSyncPrefix + id + version (uint64 big endian) + object digest
func parentSyncKey(ref types.ObjectRef) []byte {
	return concat(parentSyncPrefix, objectKeySuffix(ref.Key()), ref.Digest.Bytes())
}

// effectsKey = effectsPrefix + tx digest
func effectsKey(digest common.Digest) []byte {
	return concat(effectsPrefix, digest.Bytes())
}

// executedSequenceKey = executedSequencePrefix + seq (uint64 big endian)
func executedSequenceKey(seq uint64) []byte {
	return concat(executedSequencePrefix, encodeUint64(seq))
}

// batchKey = batchesPrefix + seq (uint64 big endian)
func batchKey(seq uint64) []byte {
	return concat(batchesPrefix, encodeUint64(seq))
}

// transactionKey = transactionsPrefix + tx digest
func transactionKey(digest common.Digest) []byte {
	return concat(transactionsPrefix, digest.Bytes())
}

// pendingExecutionKey = pendingExecutionPrefix + seq (uint64 big endian)
func pendingExecutionKey(seq uint64) []byte {
	return concat(pendingExecutionPrefix, encodeUint64(seq))
}

// assignedVersionKey = assignedVersionsPrefix + cert digest + id
func assignedVersionKey(cert common.Digest, id types.ObjectID) []byte {
	return concat(assignedVersionsPrefix, cert.Bytes(), id.Bytes())
}

// nextVersionKey = nextVersionsPrefix + id
func nextVersionKey(id types.ObjectID) []byte {
	return concat(nextVersionsPrefix, id.Bytes())
}

// consensusMessageKey = consensusMessagePrefix + tx digest
func consensusMessageKey(digest common.Digest) []byte {
	return concat(consensusMessagePrefix, digest.Bytes())
}

// lastConsensusIndexKey is the single row of the last consensus index table.
var lastConsensusIndexKey = concat(lastConsensusIndexPrefix, encodeUint64(0))

// parseObjectKeySuffix splits id + version (uint64 big endian).
func parseObjectKeySuffix(b []byte) (types.ObjectKey, bool) {
	if len(b) < objectKeyLength {
		return types.ObjectKey{}, false
	}
	return types.ObjectKey{
		ID:      common.BytesToAddress(b[:common.AddressLength]),
		Version: types.Version(binary.BigEndian.Uint64(b[common.AddressLength:objectKeyLength])),
	}, true
}

// parseParentSyncSuffix splits id + version + object digest.
func parseParentSyncSuffix(b []byte) (types.ObjectRef, bool) {
	if len(b) != parentSyncKeyLength {
		return types.ObjectRef{}, false
	}
	key, _ := parseObjectKeySuffix(b)
	return types.ObjectRef{ID: key.ID, Version: key.Version, Digest: common.BytesToDigest(b[objectKeyLength:])}, true
}
