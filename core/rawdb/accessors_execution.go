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

// ReadCertificate retrieves a certificate by transaction digest.
func ReadCertificate(db kvdb.KeyValueReader, digest common.Digest) (*types.Certificate, error) {
	cert := new(types.Certificate)
	if err := readRLP(db, certificateKey(digest), cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// HasCertificate reports whether the certificate is stored.
func HasCertificate(db kvdb.KeyValueReader, digest common.Digest) (bool, error) {
	return db.Has(certificateKey(digest))
}

// WriteCertificate stores a certificate under its transaction digest.
func WriteCertificate(db kvdb.KeyValueWriter, cert *types.Certificate) error {
	return writeRLP(db, certificateKey(cert.Digest()), cert)
}

// ReadEffects retrieves the signed effects of a transaction.
func ReadEffects(db kvdb.KeyValueReader, digest common.Digest) (*types.SignedEffects, error) {
	effects := new(types.SignedEffects)
	if err := readRLP(db, effectsKey(digest), effects); err != nil {
		return nil, err
	}
	return effects, nil
}

// HasEffects reports whether the transaction has been executed.
// HasEffects 报告交易是否已执行。
func HasEffects(db kvdb.KeyValueReader, digest common.Digest) (bool, error) {
	return db.Has(effectsKey(digest))
}

// WriteEffects stores signed effects under their transaction digest.
func WriteEffects(db kvdb.KeyValueWriter, effects *types.SignedEffects) error {
	return writeRLP(db, effectsKey(effects.Effects.TransactionDigest), effects)
}

// ReadExecutedSequence retrieves the executed-sequence row at seq.
func ReadExecutedSequence(db kvdb.KeyValueReader, seq uint64) (*types.ExecutionDigests, error) {
	digests := new(types.ExecutionDigests)
	if err := readRLP(db, executedSequenceKey(seq), digests); err != nil {
		return nil, err
	}
	return digests, nil
}

// WriteExecutedSequence stores the executed-sequence row at seq.
func WriteExecutedSequence(db kvdb.KeyValueWriter, seq uint64, digests types.ExecutionDigests) error {
	return writeRLP(db, executedSequenceKey(seq), &digests)
}

// ReadExecutedSequenceRange lists the executed-sequence rows in [from, to).
func ReadExecutedSequenceRange(db kvdb.Iteratee, from, to uint64) ([]types.SequencedDigests, error) {
	it := db.NewIterator(executedSequencePrefix, encodeUint64(from))
	defer it.Release()

	var items []types.SequencedDigests
	for it.Next() {
		key := it.Key()[len(executedSequencePrefix):]
		if len(key) != sequenceKeyLength {
			continue
		}
		seq := binary.BigEndian.Uint64(key)
		if seq >= to {
			break
		}
		var digests types.ExecutionDigests
		if err := rlp.DecodeBytes(it.Value(), &digests); err != nil {
			return nil, fmt.Errorf("invalid executed sequence rlp at %d: %w", seq, err)
		}
		items = append(items, types.SequencedDigests{Sequence: seq, Digests: digests})
	}
	return items, it.Error()
}

// ReadNextExecutedSequence returns the sequence number the next executed
// certificate will receive: one past the highest stored row, or zero.
func ReadNextExecutedSequence(db kvdb.Iteratee) (uint64, error) {
	return nextSequence(db, executedSequencePrefix)
}

// nextSequence scans a sequence-keyed table for its highest key.
func nextSequence(db kvdb.Iteratee, prefix []byte) (uint64, error) {
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	var (
		next  uint64
		found bool
	)
	for it.Next() {
		key := it.Key()[len(prefix):]
		if len(key) != sequenceKeyLength {
			continue
		}
		next, found = binary.BigEndian.Uint64(key)+1, true
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return next, nil
}

// WriteBatch stores a signed batch keyed by the sequence number it ends at.
func WriteBatch(db kvdb.KeyValueWriter, batch *types.SignedBatch) error {
	return writeRLP(db, batchKey(batch.Batch.NextSequence), batch)
}

// ReadBatch retrieves the batch ending at next.
func ReadBatch(db kvdb.KeyValueReader, next uint64) (*types.SignedBatch, error) {
	batch := new(types.SignedBatch)
	if err := readRLP(db, batchKey(next), batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// ReadBatches lists the stored batches whose end sequence is in [from, to).
func ReadBatches(db kvdb.Iteratee, from, to uint64) ([]*types.SignedBatch, error) {
	it := db.NewIterator(batchesPrefix, encodeUint64(from))
	defer it.Release()

	var batches []*types.SignedBatch
	for it.Next() {
		key := it.Key()[len(batchesPrefix):]
		if len(key) != sequenceKeyLength {
			continue
		}
		if binary.BigEndian.Uint64(key) >= to {
			break
		}
		batch := new(types.SignedBatch)
		if err := rlp.DecodeBytes(it.Value(), batch); err != nil {
			return nil, fmt.Errorf("invalid batch rlp at %x: %w", key, err)
		}
		batches = append(batches, batch)
	}
	return batches, it.Error()
}

// ReadLastBatch retrieves the batch with the highest end sequence.
func ReadLastBatch(db kvdb.Iteratee) (*types.SignedBatch, error) {
	it := db.NewIterator(batchesPrefix, nil)
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
	batch := new(types.SignedBatch)
	if err := rlp.DecodeBytes(last, batch); err != nil {
		return nil, fmt.Errorf("invalid batch rlp: %w", err)
	}
	return batch, nil
}
