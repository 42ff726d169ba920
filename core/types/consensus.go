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
	"encoding/binary"
	"fmt"

	"github.com/sunyihoo/authstore/common"
)

// ConsensusOutput is one message of the consensus feed: a certificate at its
// position in the global order, plus the digest consensus assigned to the
// message.
type ConsensusOutput struct {
	Index       uint64
	Certificate *Certificate
	Hash        common.Digest
}

// ExecutionIndicesWithHash is the resume point of the consensus feed: the last
// processed index, a rolling hash over every processed message and the digest
// of the last message, which lets a re-delivery at the same index be checked.
//
// ExecutionIndicesWithHash 是共识输入的恢复点。
type ExecutionIndicesWithHash struct {
	Index   uint64
	Hash    uint64
	Message common.Digest
}

// Next folds the message at index into the rolling hash. The result depends
// only on the sequence of messages, so every validator computes the same
// value.
func (e ExecutionIndicesWithHash) Next(index uint64, message common.Digest, cert common.Digest) ExecutionIndicesWithHash {
	var prev, idx [8]byte
	binary.BigEndian.PutUint64(prev[:], e.Hash)
	binary.BigEndian.PutUint64(idx[:], index)

	h := keccak(prev[:], idx[:], message[:], cert[:])
	return ExecutionIndicesWithHash{
		Index:   index,
		Hash:    binary.BigEndian.Uint64(h[:8]),
		Message: message,
	}
}

func (e ExecutionIndicesWithHash) String() string {
	return fmt.Sprintf("index=%d hash=%#016x", e.Index, e.Hash)
}
