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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gofrs/flock"
	"github.com/sunyihoo/authstore/core/types"
)

// activeEpoch pairs the epoch store currently accepting writes with the
// consensus handler driving it.
type activeEpoch struct {
	store     *EpochStore
	consensus *ConsensusHandler
}

// Store is the authority state of one validator: the perpetual store plus the
// store of the active epoch. Switching epochs swaps the active epoch store
// atomically; the previous one is sealed and stays readable until removed.
//
// Store 是一个验证者的权威状态：永久存储加上当前纪元的存储。
type Store struct {
	config    Config
	perpetual *PerpetualStore
	active    atomic.Pointer[activeEpoch]

	mu       sync.Mutex // guards archived and epoch switches
	archived map[uint64]*EpochStore

	dirLock  *flock.Flock // prevents concurrent use of the data directory
	shutdown *shutdownTracker
	crashes  []time.Time
	log      log.Logger
}

// New opens the store in config.DataDir, resuming the newest epoch found on
// disk or starting epoch 0.
func New(config *Config) (*Store, error) {
	conf := *config
	if conf.ReadOnly {
		return nil, fmt.Errorf("%w: use OpenReadOnly", ErrReadOnly)
	}
	var dirLock *flock.Flock
	if !conf.inMemory() {
		if err := os.MkdirAll(conf.DataDir, 0700); err != nil {
			return nil, err
		}
		dirLock = flock.New(filepath.Join(conf.DataDir, "LOCK"))
		if locked, err := dirLock.TryLock(); err != nil {
			return nil, convertFileLockError(err)
		} else if !locked {
			return nil, ErrDatadirUsed
		}
	}
	release := func() {
		if dirLock != nil {
			dirLock.Unlock()
		}
	}
	perpetual, err := OpenPerpetual(&conf)
	if err != nil {
		release()
		return nil, err
	}
	epoch, err := latestEpoch(&conf)
	if err != nil {
		perpetual.Close()
		release()
		return nil, err
	}
	es, err := OpenEpoch(&conf, epoch)
	if err != nil {
		perpetual.Close()
		release()
		return nil, err
	}
	s, err := newStore(&conf, perpetual, es)
	if err != nil {
		es.Close()
		perpetual.Close()
		release()
		return nil, err
	}
	s.dirLock = dirLock
	s.shutdown = newShutdownTracker(perpetual.db)
	s.crashes = s.shutdown.markStartup()
	s.shutdown.start()
	s.log.Info("Opened authority store", "datadir", conf.DataDir, "engine", conf.DBEngine, "epoch", epoch, "crashes", len(s.crashes))
	return s, nil
}

func newStore(config *Config, perpetual *PerpetualStore, epoch *EpochStore) (*Store, error) {
	consensus, err := NewConsensusHandler(perpetual, epoch)
	if err != nil {
		return nil, err
	}
	s := &Store{
		config:    *config,
		perpetual: perpetual,
		archived:  make(map[uint64]*EpochStore),
		log:       log.New("store", "authority"),
	}
	s.active.Store(&activeEpoch{store: epoch, consensus: consensus})
	return s, nil
}

// latestEpoch returns the highest epoch with a directory below the data
// directory, or zero.
func latestEpoch(config *Config) (uint64, error) {
	if config.inMemory() {
		return 0, nil
	}
	epochs, err := listEpochs(config)
	if err != nil || len(epochs) == 0 {
		return 0, err
	}
	return epochs[len(epochs)-1], nil
}

// listEpochs returns the epochs with a directory below the data directory in
// ascending order.
func listEpochs(config *Config) ([]uint64, error) {
	matches, err := filepath.Glob(filepath.Join(config.DataDir, "epoch_*"))
	if err != nil {
		return nil, err
	}
	var epochs []uint64
	for _, m := range matches {
		n, err := strconv.ParseUint(strings.TrimPrefix(filepath.Base(m), "epoch_"), 10, 64)
		if err != nil {
			continue
		}
		epochs = append(epochs, n)
	}
	slices.Sort(epochs)
	return epochs, nil
}

// UncleanShutdowns returns the start times of previous runs that ended
// without closing the store.
func (s *Store) UncleanShutdowns() []time.Time { return s.crashes }

// Perpetual returns the perpetual store.
func (s *Store) Perpetual() *PerpetualStore { return s.perpetual }

// Epoch returns the store of the active epoch. Callers may keep using the
// returned handle after an epoch switch for reads.
func (s *Store) Epoch() *EpochStore { return s.active.Load().store }

// Consensus returns the consensus handler of the active epoch.
func (s *Store) Consensus() *ConsensusHandler { return s.active.Load().consensus }

// HandleTransaction validates a signed transaction and records it as holding
// the locks of its owned inputs for the active epoch.
func (s *Store) HandleTransaction(tx *types.Transaction) error {
	if err := tx.Data.Validate(); err != nil {
		return err
	}
	return s.Epoch().InsertTransactionLock(tx)
}

// HandleCertificate accepts a certificate outside of consensus, e.g. from a
// peer. An invalid certificate is rejected before anything is written. A
// certificate without shared inputs is queued for execution right away; one
// with shared inputs waits for consensus to assign their versions.
func (s *Store) HandleCertificate(cert *types.Certificate) error {
	if err := cert.Data().Validate(); err != nil {
		return err
	}
	digest := cert.Digest()
	if ok, err := s.perpetual.EffectsExist(digest); err != nil {
		return err
	} else if ok {
		s.log.Debug("Certificate already executed", "digest", digest)
		return nil
	}
	if err := s.perpetual.InsertCertificate(cert); err != nil {
		return err
	}
	if cert.Data().ContainsSharedObject() {
		return nil
	}
	_, err := s.Epoch().AddPendingCertificates(digest)
	return err
}

// ResolveInputs loads the input objects of a certificate from one snapshot of
// the perpetual store: owned and immutable inputs by exact reference, shared
// inputs at the version consensus assigned. It fails with ErrObjectNotFound or
// ErrVersionNotAssigned while an input is not available yet.
func (s *Store) ResolveInputs(cert *types.Certificate) ([]*types.Object, error) {
	args, err := cert.Data().InputObjects()
	if err != nil {
		return nil, err
	}
	snap, err := s.perpetual.db.NewSnapshot()
	if err != nil {
		return nil, storageError("snapshot", err)
	}
	defer snap.Release()

	var (
		digest = cert.Digest()
		epoch  = s.Epoch()
		inputs = make([]*types.Object, 0, len(args))
	)
	for _, arg := range args {
		key := arg.Ref.Key()
		if arg.Kind == types.SharedObject {
			version, ok, err := epoch.GetAssignedVersion(digest, arg.Ref.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s for %s", ErrVersionNotAssigned, arg.Ref.ID.Hex(), digest.TerminalString())
			}
			key.Version = version
		}
		obj, err := s.perpetual.readObject(snap, key)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		if arg.Kind == types.ImmOrOwnedObject && obj.Digest() != arg.Ref.Digest {
			return nil, fmt.Errorf("%w: %s has digest %s", ErrObjectNotFound, arg.Ref, obj.Digest().TerminalString())
		}
		inputs = append(inputs, obj)
	}
	return inputs, nil
}

// ExecuteCertificate runs a certificate through exec and commits the result.
// If effects already exist the stored effects are returned and exec is not
// invoked. The given queue positions are cleared once effects are durable.
func (s *Store) ExecuteCertificate(ctx context.Context, exec Executor, cert *types.Certificate, pending ...uint64) (*CommitResult, error) {
	digest := cert.Digest()
	stored, err := s.perpetual.GetEffects(digest)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		commitIdempotentMeter.Mark(1)
		return &CommitResult{Effects: stored}, s.clearPending(pending)
	}
	inputs, err := s.ResolveInputs(cert)
	if err != nil {
		return nil, err
	}
	out, err := exec.Execute(ctx, cert, inputs)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", digest.TerminalString(), err)
	}
	return s.CommitExecution(&ExecutionRecord{Certificate: cert, Effects: out.Effects, Objects: out.Objects}, pending...)
}

// CommitExecution records an execution result and then clears the given
// pending-execution positions. The commit is a no-op for a certificate that
// was executed before.
func (s *Store) CommitExecution(rec *ExecutionRecord, pending ...uint64) (*CommitResult, error) {
	res, err := s.perpetual.RecordExecution(rec)
	if err != nil {
		return nil, err
	}
	return res, s.clearPending(pending)
}

func (s *Store) clearPending(seqs []uint64) error {
	err := s.Epoch().RemovePendingCertificates(seqs...)
	if errors.Is(err, ErrEpochClosed) {
		// The epoch ended while executing; its queue is archived as is.
		s.log.Debug("Skipping pending removal in sealed epoch", "count", len(seqs))
		return nil
	}
	return err
}

// ReconfigureEpoch starts epoch next. The new epoch store replaces the active
// one atomically; the previous store is sealed and archived.
//
// Every certificate sequenced in the current epoch must be executed first:
// the new epoch starts its version counters from the stored objects, so a
// certificate left in the queue could neither resolve its shared inputs nor
// keep its assigned versions exclusive. Such a switch fails with
// ErrPendingExecution and leaves the current epoch active.
func (s *Store) ReconfigureEpoch(next uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.active.Load()
	if next <= cur.store.Epoch() {
		return fmt.Errorf("epoch %d does not follow %d", next, cur.store.Epoch())
	}
	// Seal before checking so consensus cannot queue more work meanwhile.
	cur.store.seal()
	pending, err := cur.store.PendingCertificates()
	if err == nil && len(pending) > 0 {
		err = fmt.Errorf("%w: %d certificates in epoch %d", ErrPendingExecution, len(pending), cur.store.Epoch())
	}
	if err != nil {
		cur.store.unseal()
		return err
	}
	es, err := OpenEpoch(&s.config, next)
	if err != nil {
		cur.store.unseal()
		return err
	}
	consensus, err := NewConsensusHandler(s.perpetual, es)
	if err != nil {
		es.Close()
		cur.store.unseal()
		return err
	}
	s.active.Store(&activeEpoch{store: es, consensus: consensus})
	s.archived[cur.store.Epoch()] = cur.store
	s.log.Info("Switched epoch", "from", cur.store.Epoch(), "to", next)
	return nil
}

// ArchivedEpochs lists the sealed epochs still held open, in ascending order.
func (s *Store) ArchivedEpochs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	epochs := make([]uint64, 0, len(s.archived))
	for n := range s.archived {
		epochs = append(epochs, n)
	}
	slices.Sort(epochs)
	return epochs
}

// ArchivedEpoch returns the sealed store of a previous epoch.
func (s *Store) ArchivedEpoch(epoch uint64) (*EpochStore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	es, ok := s.archived[epoch]
	return es, ok
}

// RemoveArchivedEpoch closes a sealed epoch and deletes its database.
func (s *Store) RemoveArchivedEpoch(epoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	es, ok := s.archived[epoch]
	if !ok {
		return fmt.Errorf("epoch %d is not archived", epoch)
	}
	delete(s.archived, epoch)
	if err := es.Close(); err != nil {
		return err
	}
	if s.config.inMemory() {
		return nil
	}
	s.log.Info("Removed archived epoch", "epoch", epoch)
	return os.RemoveAll(s.config.epochDir(epoch))
}

// Tables returns the read-only table sets of the perpetual store and of the
// active epoch.
func (s *Store) Tables() TableSets {
	return TableSets{s.perpetual.Tables(), s.Epoch().Tables()}
}

// Close closes every epoch store and the perpetual store and releases the
// data directory.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	errs = append(errs, s.Epoch().Close())
	for n, es := range s.archived {
		errs = append(errs, es.Close())
		delete(s.archived, n)
	}
	if s.shutdown != nil {
		s.shutdown.stop()
		s.shutdown = nil
	}
	errs = append(errs, s.perpetual.Close())
	if s.dirLock != nil {
		errs = append(errs, s.dirLock.Unlock())
	}
	return errors.Join(errs...)
}
