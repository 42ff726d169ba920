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
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
)

// PerpetualStore holds the state that survives epoch changes: object versions,
// certificates, effects, the owner and parent-sync indices, the executed
// sequence and batch checkpoints.
//
// Reads go straight to the engine. Commits of execution results are
// serialized so the executed sequence stays gapless.
//
// PerpetualStore 保存跨纪元持久的状态。
type PerpetualStore struct {
	db       kvdb.KeyValueStore
	objects  *fastcache.Cache // rlp encoded object versions, nil if disabled
	readonly bool

	commitMu sync.Mutex // serializes RecordExecution and guards nextSeq
	nextSeq  uint64

	log log.Logger
}

// ExecutionRecord is the outcome of executing a certificate, ready to commit.
// Objects holds every version listed as created, mutated or unwrapped in the
// effects. Index updates and the sequence number are derived on commit.
type ExecutionRecord struct {
	Certificate *types.Certificate
	Effects     *types.SignedEffects
	Objects     []*types.Object
}

// CommitResult reports the outcome of RecordExecution. Applied is false when
// the certificate had already been executed; Effects then holds the stored
// effects and Sequence is left zero.
type CommitResult struct {
	Applied  bool
	Sequence uint64
	Effects  *types.SignedEffects
}

// NewPerpetualStore wraps db. The schema version is written on first use and
// the next executed sequence number is recovered from the highest entry.
func NewPerpetualStore(db kvdb.KeyValueStore, config *Config) (*PerpetualStore, error) {
	s := &PerpetualStore{
		db:       db,
		readonly: config.ReadOnly,
		log:      log.New("store", rawdb.PerpetualNamespace),
	}
	if config.ObjectCacheSize > 0 {
		s.objects = fastcache.New(config.ObjectCacheSize * 1024 * 1024)
	}
	if version := rawdb.ReadStoreVersion(db); version == nil {
		if !s.readonly {
			rawdb.WriteStoreVersion(db, rawdb.StoreVersion)
		}
	} else if *version != rawdb.StoreVersion {
		return nil, fmt.Errorf("unsupported perpetual store version %d", *version)
	}
	next, err := rawdb.ReadNextExecutedSequence(db)
	if err != nil {
		return nil, storageError("read executed sequence", err)
	}
	s.nextSeq = next
	executedSequenceGauge.Update(int64(next))
	s.log.Debug("Opened perpetual store", "next", next)
	return s, nil
}

// OpenPerpetual opens the perpetual database below config.DataDir.
func OpenPerpetual(config *Config) (*PerpetualStore, error) {
	db, err := config.openDatabase(config.perpetualDir(), "authority/perpetual/")
	if err != nil {
		return nil, err
	}
	s, err := NewPerpetualStore(db, config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *PerpetualStore) Close() error {
	if s.objects != nil {
		s.objects.Reset()
	}
	return s.db.Close()
}

// Tables returns the read-only table set of the perpetual namespace.
func (s *PerpetualStore) Tables() rawdb.TableSet {
	return rawdb.NewTableSet(s.db, rawdb.PerpetualTables)
}

func objectCacheKey(key types.ObjectKey) []byte {
	var k [common.AddressLength + 8]byte
	copy(k[:], key.ID.Bytes())
	binary.BigEndian.PutUint64(k[common.AddressLength:], uint64(key.Version))
	return k[:]
}

// GetObject retrieves one object version. A missing version yields nil
// without error.
func (s *PerpetualStore) GetObject(key types.ObjectKey) (*types.Object, error) {
	return s.readObject(s.db, key)
}

func (s *PerpetualStore) readObject(db kvdb.KeyValueReader, key types.ObjectKey) (*types.Object, error) {
	if s.objects != nil {
		if enc, ok := s.objects.HasGet(nil, objectCacheKey(key)); ok {
			obj := new(types.Object)
			if err := rlp.DecodeBytes(enc, obj); err == nil {
				objectCacheHitMeter.Mark(1)
				return obj, nil
			}
		}
		objectCacheMissMeter.Mark(1)
	}
	obj, err := rawdb.ReadObject(db, key)
	if kvdb.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("read object", err)
	}
	s.cacheObject(obj)
	return obj, nil
}

func (s *PerpetualStore) cacheObject(obj *types.Object) {
	if s.objects == nil {
		return
	}
	if enc, err := rlp.EncodeToBytes(obj); err == nil {
		s.objects.Set(objectCacheKey(obj.Key()), enc)
	}
}

// GetLatestObject retrieves the highest stored version of an object.
func (s *PerpetualStore) GetLatestObject(id types.ObjectID) (*types.Object, error) {
	obj, err := rawdb.ReadLatestObject(s.db, id)
	if kvdb.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id.Hex())
	}
	if err != nil {
		return nil, storageError("read latest object", err)
	}
	return obj, nil
}

// GetLatestParentEntry returns the most recent parent-sync row of an object.
// Its reference carries a sentinel digest if the object is deleted or wrapped.
func (s *PerpetualStore) GetLatestParentEntry(id types.ObjectID) (*rawdb.ParentEntry, error) {
	entry, err := rawdb.ReadLatestParentEntry(s.db, id)
	if kvdb.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id.Hex())
	}
	if err != nil {
		return nil, storageError("read parent sync", err)
	}
	return entry, nil
}

// GetLatestObjectRef returns the current reference of an object as recorded
// by the parent-sync index. Use IsAlive to tell live objects from deleted or
// wrapped ones.
func (s *PerpetualStore) GetLatestObjectRef(id types.ObjectID) (types.ObjectRef, error) {
	entry, err := s.GetLatestParentEntry(id)
	if err != nil {
		return types.ObjectRef{}, err
	}
	return entry.Ref, nil
}

// GetOwnedObjects lists the objects currently owned by owner.
func (s *PerpetualStore) GetOwnedObjects(owner types.Owner) ([]types.ObjectInfo, error) {
	infos, err := rawdb.ReadOwnedObjects(s.db, owner)
	return infos, storageError("read owner index", err)
}

// GetCertificate retrieves a certificate, or nil if it is unknown.
func (s *PerpetualStore) GetCertificate(digest common.Digest) (*types.Certificate, error) {
	cert, err := rawdb.ReadCertificate(s.db, digest)
	if kvdb.IsNotFound(err) {
		return nil, nil
	}
	return cert, storageError("read certificate", err)
}

// GetEffects retrieves the effects of an executed certificate, or nil.
func (s *PerpetualStore) GetEffects(digest common.Digest) (*types.SignedEffects, error) {
	effects, err := rawdb.ReadEffects(s.db, digest)
	if kvdb.IsNotFound(err) {
		return nil, nil
	}
	return effects, storageError("read effects", err)
}

// EffectsExist reports whether the certificate has been executed.
func (s *PerpetualStore) EffectsExist(digest common.Digest) (bool, error) {
	ok, err := rawdb.HasEffects(s.db, digest)
	return ok, storageError("read effects", err)
}

// InsertCertificate stores a certificate. Certificates are write-once; storing
// the same one again rewrites identical bytes.
func (s *PerpetualStore) InsertCertificate(cert *types.Certificate) error {
	if s.readonly {
		return ErrReadOnly
	}
	return storageError("write certificate", rawdb.WriteCertificate(s.db, cert))
}

// InsertGenesisObjects stores the initial objects in one atomic batch, with
// their owner index and parent-sync rows.
func (s *PerpetualStore) InsertGenesisObjects(objects ...*types.Object) error {
	if s.readonly {
		return ErrReadOnly
	}
	batch := s.db.NewBatch()
	for _, obj := range objects {
		if err := s.stageObject(batch, obj, obj.PreviousTransaction); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return storageError("write genesis objects", err)
	}
	for _, obj := range objects {
		s.cacheObject(obj)
	}
	s.log.Info("Inserted genesis objects", "count", len(objects))
	return nil
}

// stageObject queues an object version with its parent-sync row and, for
// address or object owners, its owner index row.
func (s *PerpetualStore) stageObject(batch kvdb.KeyValueWriter, obj *types.Object, tx common.Digest) error {
	if err := rawdb.WriteObject(batch, obj); err != nil {
		return storageError("stage object", err)
	}
	if err := rawdb.WriteParentSync(batch, obj.Ref(), tx); err != nil {
		return storageError("stage parent sync", err)
	}
	if obj.Owner.IsIndexed() {
		info := obj.Info()
		if err := rawdb.WriteOwnerIndex(batch, &info); err != nil {
			return storageError("stage owner index", err)
		}
	}
	return nil
}

// NextSequenceNumber returns the sequence number the next committed
// certificate will receive.
func (s *PerpetualStore) NextSequenceNumber() uint64 {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.nextSeq
}

// RecordExecution commits an execution result in one atomic batch: the
// certificate, its effects, the written object versions, owner index and
// parent-sync updates and the next executed-sequence entry.
//
// If effects already exist for the certificate nothing is written and the
// stored effects are returned with Applied unset. The sequence counter only
// advances after the batch is durable, so a failed write leaves no trace.
//
// RecordExecution 以一个原子批次提交执行结果，并保证幂等。
func (s *PerpetualStore) RecordExecution(rec *ExecutionRecord) (*CommitResult, error) {
	if s.readonly {
		return nil, ErrReadOnly
	}
	digest := rec.Certificate.Digest()
	if rec.Effects.Effects.TransactionDigest != digest {
		return nil, fmt.Errorf("%w: effects for %s, certificate %s", ErrEffectsMismatch, rec.Effects.Effects.TransactionDigest.TerminalString(), digest.TerminalString())
	}
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	start := time.Now()
	if stored, err := s.GetEffects(digest); err != nil {
		return nil, err
	} else if stored != nil {
		commitIdempotentMeter.Mark(1)
		s.log.Debug("Certificate already executed", "digest", digest)
		return &CommitResult{Effects: stored}, nil
	}
	batch := s.db.NewBatch()
	if err := s.stageExecution(batch, rec); err != nil {
		return nil, err
	}
	seq := s.nextSeq
	entry := types.ExecutionDigests{Transaction: digest, Effects: rec.Effects.Digest()}
	if err := rawdb.WriteExecutedSequence(batch, seq, entry); err != nil {
		return nil, storageError("stage executed sequence", err)
	}
	if err := batch.Write(); err != nil {
		s.log.Error("Failed to commit execution", "digest", digest, "err", err)
		return nil, storageError("commit execution", err)
	}
	s.nextSeq++
	for _, obj := range rec.Objects {
		s.cacheObject(obj)
	}
	commitAppliedMeter.Mark(1)
	commitTimer.UpdateSince(start)
	executedSequenceGauge.Update(int64(s.nextSeq))
	s.log.Debug("Committed execution", "digest", digest, "seq", seq, "written", len(rec.Objects))
	return &CommitResult{Applied: true, Sequence: seq, Effects: rec.Effects}, nil
}

// stageExecution queues every row of rec except the sequence entry.
func (s *PerpetualStore) stageExecution(batch kvdb.Batch, rec *ExecutionRecord) error {
	var (
		digest  = rec.Certificate.Digest()
		effects = &rec.Effects.Effects
		written = make(map[types.ObjectRef]types.Owner)
	)
	for _, w := range effects.Written() {
		written[w.Ref] = w.Owner
	}
	if len(written) != len(rec.Objects) {
		return fmt.Errorf("%w: %d written refs, %d objects", ErrEffectsMismatch, len(written), len(rec.Objects))
	}
	for _, obj := range rec.Objects {
		owner, ok := written[obj.Ref()]
		if !ok {
			return fmt.Errorf("%w: unexpected object %s", ErrEffectsMismatch, obj.Ref())
		}
		if owner != obj.Owner {
			return fmt.Errorf("%w: owner of %s", ErrEffectsMismatch, obj.Ref())
		}
	}
	ok, err := rawdb.HasCertificate(s.db, digest)
	if err != nil {
		return storageError("read certificate", err)
	}
	if !ok {
		if err := rawdb.WriteCertificate(batch, rec.Certificate); err != nil {
			return storageError("stage certificate", err)
		}
	}
	if err := rawdb.WriteEffects(batch, rec.Effects); err != nil {
		return storageError("stage effects", err)
	}
	// Consumed inputs leave the owner index first; written versions re-enter
	// it below, so a mutated object keeps exactly one row.
	for _, key := range effects.ModifiedAtVersions {
		input, err := s.readObject(s.db, key)
		if err != nil {
			return err
		}
		if input != nil && input.Owner.IsIndexed() {
			if err := rawdb.DeleteOwnerIndex(batch, input.Owner, input.ID); err != nil {
				return storageError("stage owner index", err)
			}
		}
	}
	for _, obj := range rec.Objects {
		if err := s.stageObject(batch, obj, digest); err != nil {
			return err
		}
	}
	for _, ref := range effects.Removed() {
		if err := rawdb.WriteParentSync(batch, ref, digest); err != nil {
			return storageError("stage parent sync", err)
		}
	}
	return nil
}

// ExecutedSequenceRange lists the executed-sequence entries in [from, to).
func (s *PerpetualStore) ExecutedSequenceRange(from, to uint64) ([]types.SequencedDigests, error) {
	items, err := rawdb.ReadExecutedSequenceRange(s.db, from, to)
	return items, storageError("read executed sequence", err)
}

// LastBatch returns the most recent stored batch, or the genesis batch.
func (s *PerpetualStore) LastBatch() (*types.AuthorityBatch, error) {
	last, err := rawdb.ReadLastBatch(s.db)
	if kvdb.IsNotFound(err) {
		genesis := types.GenesisBatch()
		return &genesis, nil
	}
	if err != nil {
		return nil, storageError("read batches", err)
	}
	return &last.Batch, nil
}

// NextBatch builds the batch covering every sequence entry committed since the
// last stored batch. The batch is not stored.
func (s *PerpetualStore) NextBatch() (*types.AuthorityBatch, error) {
	prev, err := s.LastBatch()
	if err != nil {
		return nil, err
	}
	items, err := s.ExecutedSequenceRange(prev.NextSequence, s.NextSequenceNumber())
	if err != nil {
		return nil, err
	}
	next := types.NewAuthorityBatch(prev, items)
	return &next, nil
}

// InsertBatch stores a signed batch. It must extend the last stored batch and
// may not cover sequence numbers that have not been committed yet.
func (s *PerpetualStore) InsertBatch(batch *types.SignedBatch) error {
	if s.readonly {
		return ErrReadOnly
	}
	prev, err := s.LastBatch()
	if err != nil {
		return err
	}
	b := &batch.Batch
	switch {
	case b.InitialSequence != prev.NextSequence:
		return fmt.Errorf("batch starts at %d, expected %d", b.InitialSequence, prev.NextSequence)
	case b.PreviousDigest != prev.Digest():
		return fmt.Errorf("batch does not extend %s", prev.Digest().TerminalString())
	case b.NextSequence < b.InitialSequence || b.NextSequence > s.NextSequenceNumber():
		return fmt.Errorf("batch end %d outside [%d, %d]", b.NextSequence, b.InitialSequence, s.NextSequenceNumber())
	}
	return storageError("write batch", rawdb.WriteBatch(s.db, batch))
}

// Batches lists the stored batches ending in [from, to).
func (s *PerpetualStore) Batches(from, to uint64) ([]*types.SignedBatch, error) {
	batches, err := rawdb.ReadBatches(s.db, from, to)
	return batches, storageError("read batches", err)
}

// PruneObjectVersion physically removes one object version. It refuses while
// the version is the latest one of its object, and while the effects of the
// transaction that consumed it list it as an input.
func (s *PerpetualStore) PruneObjectVersion(key types.ObjectKey) error {
	if s.readonly {
		return ErrReadOnly
	}
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	versions, err := rawdb.ReadObjectVersions(s.db, key.ID)
	if err != nil {
		return storageError("read object versions", err)
	}
	var found bool
	for _, v := range versions {
		found = found || v == key.Version
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if versions[len(versions)-1] == key.Version {
		return fmt.Errorf("%w: %s is the latest version", ErrPruneUnsafe, key)
	}
	consumer, err := rawdb.ReadNextParentEntry(s.db, key.ID, key.Version)
	switch {
	case err == nil:
		effects, err := s.GetEffects(consumer.Transaction)
		if err != nil {
			return err
		}
		if effects != nil && effects.Effects.Inputs().Contains(key) {
			return fmt.Errorf("%w: %s is an input of %s", ErrPruneUnsafe, key, consumer.Transaction.TerminalString())
		}
	case !kvdb.IsNotFound(err):
		return storageError("read parent sync", err)
	}
	if err := rawdb.DeleteObject(s.db, key); err != nil {
		return storageError("prune object", err)
	}
	if s.objects != nil {
		s.objects.Del(objectCacheKey(key))
	}
	s.log.Debug("Pruned object version", "object", key)
	return nil
}
