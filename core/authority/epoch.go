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

package authority

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
)

// EpochStore holds the state scoped to one epoch: owned-object transaction
// locks, the pending-execution queue, shared-object version assignments, the
// consensus dedup markers and the consensus resume point.
//
// Once the epoch ends the store is sealed. A sealed store keeps serving reads
// for callers still holding it but rejects every write.
//
// EpochStore 保存一个纪元范围内的状态。
type EpochStore struct {
	epoch    uint64
	db       kvdb.KeyValueStore
	readonly bool
	sealed   atomic.Bool

	pendingMu   sync.Mutex // guards nextPending
	nextPending uint64

	log log.Logger
}

// NewEpochStore wraps the database of the given epoch. A fresh database is
// initialised with its epoch number and the genesis consensus index (0, 0);
// an existing one must belong to the same epoch.
func NewEpochStore(db kvdb.KeyValueStore, epoch uint64, readonly bool) (*EpochStore, error) {
	s := &EpochStore{
		epoch:    epoch,
		db:       db,
		readonly: readonly,
		log:      log.New("epoch", epoch),
	}
	stored := rawdb.ReadEpochNumber(db)
	switch {
	case stored == nil && readonly:
		return nil, fmt.Errorf("%w: epoch %d not initialised", ErrReadOnly, epoch)
	case stored == nil:
		batch := db.NewBatch()
		rawdb.WriteStoreVersion(batch, rawdb.StoreVersion)
		rawdb.WriteEpochNumber(batch, epoch)
		if err := rawdb.WriteLastConsensusIndex(batch, types.ExecutionIndicesWithHash{}); err != nil {
			return nil, storageError("stage consensus index", err)
		}
		if err := batch.Write(); err != nil {
			return nil, storageError("initialise epoch", err)
		}
		s.log.Info("Initialised epoch store")
	case *stored != epoch:
		return nil, fmt.Errorf("%w: found epoch %d, want %d", ErrEpochMismatch, *stored, epoch)
	}
	next, err := rawdb.ReadNextPendingSequence(db)
	if err != nil {
		return nil, storageError("read pending queue", err)
	}
	s.nextPending = next
	return s, nil
}

// OpenEpoch opens the database of an epoch below config.DataDir.
func OpenEpoch(config *Config, epoch uint64) (*EpochStore, error) {
	db, err := config.openDatabase(config.epochDir(epoch), fmt.Sprintf("authority/epoch/%d/", epoch))
	if err != nil {
		return nil, err
	}
	s, err := NewEpochStore(db, epoch, config.ReadOnly)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Epoch returns the epoch number of the store.
func (s *EpochStore) Epoch() uint64 { return s.epoch }

// Tables returns the read-only table set of the epoch namespace.
func (s *EpochStore) Tables() rawdb.TableSet {
	return rawdb.NewTableSet(s.db, rawdb.EpochTables)
}

// seal turns the store read-only after the epoch ended.
func (s *EpochStore) seal() {
	if s.sealed.CompareAndSwap(false, true) {
		s.log.Info("Sealed epoch store")
	}
}

// unseal reopens the store for writes after an aborted epoch switch.
func (s *EpochStore) unseal() {
	if s.sealed.CompareAndSwap(true, false) {
		s.log.Info("Reopened epoch store")
	}
}

// Close releases the database.
func (s *EpochStore) Close() error {
	s.seal()
	return s.db.Close()
}

func (s *EpochStore) writable() error {
	switch {
	case s.readonly:
		return ErrReadOnly
	case s.sealed.Load():
		return fmt.Errorf("%w: epoch %d", ErrEpochClosed, s.epoch)
	}
	return nil
}

// InsertTransactionLock records a signed transaction holding the locks of its
// owned inputs for this epoch.
func (s *EpochStore) InsertTransactionLock(tx *types.Transaction) error {
	if err := s.writable(); err != nil {
		return err
	}
	return storageError("write transaction", rawdb.WriteTransactionLock(s.db, tx))
}

// GetTransactionLock retrieves a transaction recorded in this epoch, or nil.
func (s *EpochStore) GetTransactionLock(digest common.Digest) (*types.Transaction, error) {
	tx, err := rawdb.ReadTransactionLock(s.db, digest)
	if kvdb.IsNotFound(err) {
		return nil, nil
	}
	return tx, storageError("read transaction", err)
}

// allocPending reserves n consecutive queue positions. Positions of a failed
// write are never reused, which leaves harmless holes in the queue.
func (s *EpochStore) allocPending(n int) uint64 {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	first := s.nextPending
	s.nextPending += uint64(n)
	return first
}

// stagePending queues digests into batch and returns their positions.
func (s *EpochStore) stagePending(batch kvdb.KeyValueWriter, digests ...common.Digest) ([]uint64, error) {
	first := s.allocPending(len(digests))
	seqs := make([]uint64, len(digests))
	for i, digest := range digests {
		seqs[i] = first + uint64(i)
		if err := rawdb.WritePendingExecution(batch, seqs[i], digest); err != nil {
			return nil, storageError("stage pending execution", err)
		}
	}
	return seqs, nil
}

// AddPendingCertificates appends certificate digests to the pending-execution
// queue atomically and returns their queue positions.
func (s *EpochStore) AddPendingCertificates(digests ...common.Digest) ([]uint64, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	batch := s.db.NewBatch()
	seqs, err := s.stagePending(batch, digests...)
	if err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, storageError("write pending execution", err)
	}
	pendingGauge.Inc(int64(len(digests)))
	return seqs, nil
}

// PendingCertificates lists the pending-execution queue in order.
func (s *EpochStore) PendingCertificates() ([]rawdb.PendingEntry, error) {
	entries, err := rawdb.ReadPendingExecutions(s.db)
	return entries, storageError("read pending execution", err)
}

// RemovePendingCertificates drops queue positions whose effects are durable.
// Removing an absent position is not an error.
func (s *EpochStore) RemovePendingCertificates(seqs ...uint64) error {
	if len(seqs) == 0 {
		return nil
	}
	if err := s.writable(); err != nil {
		return err
	}
	batch := s.db.NewBatch()
	for _, seq := range seqs {
		if err := rawdb.DeletePendingExecution(batch, seq); err != nil {
			return storageError("stage pending removal", err)
		}
	}
	if err := batch.Write(); err != nil {
		return storageError("remove pending execution", err)
	}
	pendingGauge.Dec(int64(len(seqs)))
	return nil
}

// GetAssignedVersion returns the version of a shared object assigned to a
// certificate, and whether one was assigned.
func (s *EpochStore) GetAssignedVersion(cert common.Digest, id types.ObjectID) (types.Version, bool, error) {
	v, err := rawdb.ReadAssignedVersion(s.db, cert, id)
	if kvdb.IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageError("read assigned version", err)
	}
	return v, true, nil
}

// GetAssignedVersions returns every shared-object version assigned to cert.
func (s *EpochStore) GetAssignedVersions(cert common.Digest) (map[types.ObjectID]types.Version, error) {
	versions, err := rawdb.ReadAssignedVersions(s.db, cert)
	return versions, storageError("read assigned versions", err)
}

// GetNextObjectVersion returns the version the next consensus certificate
// touching id will receive, and whether a counter exists yet.
func (s *EpochStore) GetNextObjectVersion(id types.ObjectID) (types.Version, bool, error) {
	v, err := rawdb.ReadNextVersion(s.db, id)
	if kvdb.IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageError("read next version", err)
	}
	return v, true, nil
}

// IsConsensusMessageProcessed reports whether consensus already sequenced the
// certificate in this epoch.
func (s *EpochStore) IsConsensusMessageProcessed(digest common.Digest) (bool, error) {
	ok, err := rawdb.IsConsensusProcessed(s.db, digest)
	return ok, storageError("read consensus marker", err)
}

// LastConsensusIndex returns the consensus resume point.
func (s *EpochStore) LastConsensusIndex() (types.ExecutionIndicesWithHash, error) {
	idx, err := rawdb.ReadLastConsensusIndex(s.db)
	if err != nil {
		return types.ExecutionIndicesWithHash{}, storageError("read consensus index", err)
	}
	return *idx, nil
}
