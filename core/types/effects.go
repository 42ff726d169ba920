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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sunyihoo/authstore/common"
)

// ExecutionStatus is the outcome of executing a certificate. A failed
// execution still produces effects (gas is charged).
type ExecutionStatus struct {
	Success bool
	Error   string
}

// OwnedObjectRef pairs an object reference with the owner it ended up with.
type OwnedObjectRef struct {
	Ref   ObjectRef
	Owner Owner
}

// Effects is the deterministic result of executing a certificate.
//
// Effects 是执行证书的确定性结果。
type Effects struct {
	Status            ExecutionStatus
	TransactionDigest common.Digest

	// ModifiedAtVersions lists every input object with the version it was
	// consumed at. Those versions must stay readable while the effects exist.
	ModifiedAtVersions []ObjectKey
	SharedObjects      []ObjectRef

	Created   []OwnedObjectRef
	Mutated   []OwnedObjectRef
	Unwrapped []OwnedObjectRef
	Deleted   []ObjectRef // version bumped, digest ObjectDigestDeleted
	Wrapped   []ObjectRef // version bumped, digest ObjectDigestWrapped

	GasObject    OwnedObjectRef
	Dependencies []common.Digest
}

// Digest returns the effects digest.
func (e *Effects) Digest() common.Digest {
	return prefixedRlpHash(effectsDigestPrefix, e)
}

// Inputs returns the set of consumed object versions.
func (e *Effects) Inputs() mapset.Set[ObjectKey] {
	return mapset.NewThreadUnsafeSet(e.ModifiedAtVersions...)
}

// Written returns the live references produced by the execution: created,
// mutated and unwrapped objects.
func (e *Effects) Written() []OwnedObjectRef {
	all := make([]OwnedObjectRef, 0, len(e.Created)+len(e.Mutated)+len(e.Unwrapped))
	all = append(all, e.Created...)
	all = append(all, e.Mutated...)
	all = append(all, e.Unwrapped...)
	return all
}

// Removed returns the sentinel references for deleted and wrapped objects.
func (e *Effects) Removed() []ObjectRef {
	all := make([]ObjectRef, 0, len(e.Deleted)+len(e.Wrapped))
	all = append(all, e.Deleted...)
	all = append(all, e.Wrapped...)
	return all
}

// SignedEffects are effects signed by the executing authority.
type SignedEffects struct {
	Effects   Effects
	Epoch     uint64
	Authority common.Address
	Signature []byte
}

// Digest returns the digest of the unsigned effects.
func (s *SignedEffects) Digest() common.Digest { return s.Effects.Digest() }

// ExecutionDigests is the value of an executed-sequence entry.
type ExecutionDigests struct {
	Transaction common.Digest
	Effects     common.Digest
}
