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

	"github.com/ethereum/go-ethereum/log"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
)

// ConsensusResult reports what HandleConsensusCertificate did with a message.
type ConsensusResult struct {
	Index uint64

	// Duplicate is set for a redelivered index; nothing was written.
	Duplicate bool

	// AlreadyProcessed is set when the certificate was sequenced before at an
	// earlier index; only the consensus index advanced.
	AlreadyProcessed bool

	// Rejected holds the validation error of an invalid certificate. The index
	// advanced but no version was assigned and nothing else was stored.
	Rejected error

	// Assigned maps every shared input to the version handed out.
	Assigned map[types.ObjectID]types.Version

	// PendingSequence is the queue position of the certificate.
	PendingSequence uint64
}

// ConsensusHandler applies the consensus order to an epoch: it assigns the
// versions of shared objects to certificates in the order consensus delivered
// them, so every validator ends up with identical assignments.
//
// The handler is driven by a single consensus task and is not safe for
// concurrent use. Each message is committed in one atomic batch.
//
// ConsensusHandler 按共识顺序为证书分配共享对象版本。
type ConsensusHandler struct {
	perpetual *PerpetualStore
	epoch     *EpochStore
	last      types.ExecutionIndicesWithHash
	log       log.Logger
}

// NewConsensusHandler loads the resume point of the epoch.
func NewConsensusHandler(perpetual *PerpetualStore, epoch *EpochStore) (*ConsensusHandler, error) {
	last, err := epoch.LastConsensusIndex()
	if err != nil {
		return nil, err
	}
	h := &ConsensusHandler{
		perpetual: perpetual,
		epoch:     epoch,
		last:      last,
		log:       log.New("epoch", epoch.Epoch(), "task", "consensus"),
	}
	consensusIndexGauge.Update(int64(last.Index))
	h.log.Info("Resuming consensus feed", "next", h.ExpectedNextIndex(), "hash", fmt.Sprintf("%#016x", last.Hash))
	return h, nil
}

// ExpectedNextIndex returns the index the next new message must carry.
func (h *ConsensusHandler) ExpectedNextIndex() uint64 { return h.last.Index + 1 }

// LastIndex returns the last processed index and rolling hash.
func (h *ConsensusHandler) LastIndex() types.ExecutionIndicesWithHash { return h.last }

// HandleConsensusCertificate processes one message of the consensus feed.
//
// Messages at or below the last processed index are redeliveries and are
// discarded; a redelivery of the last index with a different message digest
// and any message beyond the expected index are fatal ConsensusIndexErrors.
// Otherwise the certificate is stored, queued for execution and its shared
// inputs are assigned versions. Assignments, counters, the dedup marker, the
// queue entry and the new resume point are committed together, so a crash
// leaves either all of them or none.
func (h *ConsensusHandler) HandleConsensusCertificate(ctx context.Context, out types.ConsensusOutput) (*ConsensusResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := h.epoch.writable(); err != nil {
		return nil, err
	}
	switch {
	case out.Index < h.last.Index || (out.Index == h.last.Index && out.Hash == h.last.Message):
		consensusDuplicateMeter.Mark(1)
		h.log.Debug("Discarding redelivered consensus message", "index", out.Index, "last", h.last.Index)
		return &ConsensusResult{Index: out.Index, Duplicate: true}, nil

	case out.Index == h.last.Index:
		return nil, &ConsensusIndexError{Expected: h.ExpectedNextIndex(), Got: out.Index, Conflict: true}

	case out.Index != h.ExpectedNextIndex():
		return nil, &ConsensusIndexError{Expected: h.ExpectedNextIndex(), Got: out.Index}
	}
	var (
		cert   = out.Certificate
		digest = cert.Digest()
		next   = h.last.Next(out.Index, out.Hash, digest)
		result = &ConsensusResult{Index: out.Index}
		batch  = h.epoch.db.NewBatch()
	)
	if err := cert.Data().Validate(); err != nil {
		consensusRejectedMeter.Mark(1)
		h.log.Warn("Rejected consensus certificate", "index", out.Index, "digest", digest, "err", err)
		result.Rejected = err
		if err := h.commit(batch, next); err != nil {
			return nil, err
		}
		return result, nil
	}
	processed, err := h.epoch.IsConsensusMessageProcessed(digest)
	if err != nil {
		return nil, err
	}
	if processed {
		h.log.Debug("Certificate already sequenced", "index", out.Index, "digest", digest)
		result.AlreadyProcessed = true
		if err := h.commit(batch, next); err != nil {
			return nil, err
		}
		return result, nil
	}
	assigned, err := h.assignVersions(batch, digest, cert.Data().SharedInputObjects())
	if err != nil {
		return nil, err
	}
	seqs, err := h.epoch.stagePending(batch, digest)
	if err != nil {
		return nil, err
	}
	if err := rawdb.WriteConsensusProcessed(batch, digest); err != nil {
		return nil, storageError("stage consensus marker", err)
	}
	// The certificate must be readable before its queue entry becomes visible.
	if err := h.perpetual.InsertCertificate(cert); err != nil {
		return nil, err
	}
	if err := h.commit(batch, next); err != nil {
		return nil, err
	}
	pendingGauge.Inc(1)
	consensusAssignedMeter.Mark(int64(len(assigned)))
	h.log.Debug("Sequenced consensus certificate", "index", out.Index, "digest", digest, "shared", len(assigned))

	result.Assigned = assigned
	result.PendingSequence = seqs[0]
	return result, nil
}

// assignVersions stages the version assignment of every shared input. An
// object without a counter starts from its latest stored version.
func (h *ConsensusHandler) assignVersions(batch kvdb.KeyValueWriter, cert common.Digest, ids []types.ObjectID) (map[types.ObjectID]types.Version, error) {
	assigned := make(map[types.ObjectID]types.Version, len(ids))
	for _, id := range ids {
		version, ok, err := h.epoch.GetNextObjectVersion(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			obj, err := h.perpetual.GetLatestObject(id)
			if errors.Is(err, ErrObjectNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrSharedObjectNotFound, id.Hex())
			}
			if err != nil {
				return nil, err
			}
			version = obj.Version
		}
		if err := rawdb.WriteAssignedVersion(batch, cert, id, version); err != nil {
			return nil, storageError("stage assigned version", err)
		}
		if err := rawdb.WriteNextVersion(batch, id, version.Increment()); err != nil {
			return nil, storageError("stage next version", err)
		}
		assigned[id] = version
	}
	return assigned, nil
}

// commit writes the staged batch together with the new resume point.
func (h *ConsensusHandler) commit(batch kvdb.Batch, next types.ExecutionIndicesWithHash) error {
	if err := rawdb.WriteLastConsensusIndex(batch, next); err != nil {
		return storageError("stage consensus index", err)
	}
	if err := batch.Write(); err != nil {
		h.log.Error("Failed to commit consensus message", "index", next.Index, "err", err)
		return storageError("commit consensus message", err)
	}
	h.last = next
	consensusIndexGauge.Update(int64(next.Index))
	return nil
}
