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

package types

import (
	"github.com/sunyihoo/authstore/common"
)

// SequencedDigests is an executed-sequence row together with its key.
type SequencedDigests struct {
	Sequence uint64
	Digests  ExecutionDigests
}

// AuthorityBatch describes the half-open range [InitialSequence, NextSequence)
// of the executed sequence and chains to the previous batch by digest.
//
// AuthorityBatch 描述执行序列的半开区间，并通过摘要链接到前一个批次。
type AuthorityBatch struct {
	InitialSequence    uint64
	NextSequence       uint64
	PreviousDigest     common.Digest
	TransactionsDigest common.Digest
}

// Digest returns the batch digest.
func (b *AuthorityBatch) Digest() common.Digest {
	return prefixedRlpHash(batchDigestPrefix, b)
}

// Size returns the number of sequence entries covered.
func (b *AuthorityBatch) Size() uint64 { return b.NextSequence - b.InitialSequence }

// GenesisBatch is the empty batch every chain of batches starts from.
func GenesisBatch() AuthorityBatch {
	return AuthorityBatch{TransactionsDigest: rlpHash([]SequencedDigests{})}
}

// NewAuthorityBatch creates the batch following prev over items. Items must be
// contiguous and start at prev.NextSequence; an empty items list yields an
// empty batch.
func NewAuthorityBatch(prev *AuthorityBatch, items []SequencedDigests) AuthorityBatch {
	next := prev.NextSequence
	if n := len(items); n > 0 {
		next = items[n-1].Sequence + 1
	}
	return AuthorityBatch{
		InitialSequence:    prev.NextSequence,
		NextSequence:       next,
		PreviousDigest:     prev.Digest(),
		TransactionsDigest: rlpHash(items),
	}
}

// SignedBatch is a batch signed by the authority that produced it.
type SignedBatch struct {
	Batch     AuthorityBatch
	Authority common.Address
	Signature []byte
}
