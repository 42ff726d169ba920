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

// Package types contains the data structures persisted by the authority store:
// objects, certificates, effects, sequence entries and consensus indices.
// Package types 包含权威存储持久化的数据结构。
package types

import (
	"bytes"
	"fmt"

	"github.com/sunyihoo/authstore/common"
)

// ObjectID identifies an object across all of its versions.
type ObjectID = common.Address

// Version is the sequence number of an object. Every mutation, wrap or
// deletion produces a strictly greater version.
type Version uint64

// StartVersion is the version objects carry when first created.
// StartVersion 是对象首次创建时的版本。
const StartVersion Version = 1

// Increment returns the successor version.
func (v Version) Increment() Version { return v + 1 }

var (
	// ObjectDigestDeleted marks a parent-sync entry for a deleted object.
	ObjectDigestDeleted = common.Digest(bytes.Repeat([]byte{99}, common.DigestLength))

	// ObjectDigestWrapped marks a parent-sync entry for an object embedded in
	// another object's storage.
	ObjectDigestWrapped = common.Digest(bytes.Repeat([]byte{88}, common.DigestLength))
)

// ObjectKey addresses one version of an object: the key of the objects table.
type ObjectKey struct {
	ID      ObjectID
	Version Version
}

func (k ObjectKey) String() string {
	return fmt.Sprintf("%s:%d", k.ID.Hex(), k.Version)
}

// ObjectRef is a full reference to an object version including its digest.
// ObjectRef 是包含摘要的对象版本完整引用。
type ObjectRef struct {
	ID      ObjectID
	Version Version
	Digest  common.Digest
}

// Key drops the digest from the reference.
func (r ObjectRef) Key() ObjectKey { return ObjectKey{r.ID, r.Version} }

// IsAlive reports whether the reference names live content rather than a
// deletion or wrap marker.
func (r ObjectRef) IsAlive() bool {
	return r.Digest != ObjectDigestDeleted && r.Digest != ObjectDigestWrapped
}

func (r ObjectRef) String() string {
	switch r.Digest {
	case ObjectDigestDeleted:
		return fmt.Sprintf("%s:%d(deleted)", r.ID.Hex(), r.Version)
	case ObjectDigestWrapped:
		return fmt.Sprintf("%s:%d(wrapped)", r.ID.Hex(), r.Version)
	}
	return fmt.Sprintf("%s:%d:%s", r.ID.Hex(), r.Version, r.Digest.Hex())
}

// DeletedRef is the parent-sync reference recorded when the object at key is
// deleted: the version is bumped and the digest replaced by the sentinel.
func DeletedRef(key ObjectKey) ObjectRef {
	return ObjectRef{ID: key.ID, Version: key.Version.Increment(), Digest: ObjectDigestDeleted}
}

// WrappedRef is the parent-sync reference recorded when the object at key is
// wrapped into another object.
func WrappedRef(key ObjectKey) ObjectRef {
	return ObjectRef{ID: key.ID, Version: key.Version.Increment(), Digest: ObjectDigestWrapped}
}

// OwnerKind enumerates who may use an object as a transaction input.
type OwnerKind uint8

const (
	AddressOwner OwnerKind = iota // owned by an account, locked per epoch
	ObjectOwner                   // child of another object
	SharedOwner                   // ordered through consensus
	Immutable                     // read-only, usable by anyone
)

func (k OwnerKind) String() string {
	switch k {
	case AddressOwner:
		return "address"
	case ObjectOwner:
		return "object"
	case SharedOwner:
		return "shared"
	case Immutable:
		return "immutable"
	}
	return fmt.Sprintf("owner(%d)", uint8(k))
}

// Owner describes the ownership of an object. Address is empty for shared and
// immutable objects.
type Owner struct {
	Kind    OwnerKind
	Address common.Address
}

// NewAddressOwner returns an account owner.
func NewAddressOwner(addr common.Address) Owner { return Owner{Kind: AddressOwner, Address: addr} }

// NewObjectOwner returns a parent-object owner.
func NewObjectOwner(parent ObjectID) Owner { return Owner{Kind: ObjectOwner, Address: parent} }

// Shared is the owner of consensus-ordered objects.
var Shared = Owner{Kind: SharedOwner}

// ImmutableOwner is the owner of frozen objects.
var ImmutableOwner = Owner{Kind: Immutable}

// IsIndexed reports whether objects with this owner belong in the owner index.
func (o Owner) IsIndexed() bool { return o.Kind == AddressOwner || o.Kind == ObjectOwner }

func (o Owner) String() string {
	if o.IsIndexed() {
		return fmt.Sprintf("%s(%s)", o.Kind, o.Address.Hex())
	}
	return o.Kind.String()
}

// Object is one immutable version of a ledger object.
// Object 是账本对象的一个不可变版本。
type Object struct {
	ID                  ObjectID
	Version             Version
	Owner               Owner
	Type                string        // fully qualified type tag
	Contents            []byte        // opaque serialized content
	PreviousTransaction common.Digest // transaction that produced this version
}

// Digest returns the content digest of the object version.
func (o *Object) Digest() common.Digest {
	return prefixedRlpHash(objectDigestPrefix, o)
}

// Key returns the objects-table key of this version.
func (o *Object) Key() ObjectKey { return ObjectKey{o.ID, o.Version} }

// Ref returns the full reference to this version.
func (o *Object) Ref() ObjectRef {
	return ObjectRef{ID: o.ID, Version: o.Version, Digest: o.Digest()}
}

// IsShared reports whether the object is ordered through consensus.
func (o *Object) IsShared() bool { return o.Owner.Kind == SharedOwner }

// Info returns the owner-index row for the object.
func (o *Object) Info() ObjectInfo {
	return ObjectInfo{Ref: o.Ref(), Type: o.Type, Owner: o.Owner}
}

// Copy returns a deep copy of the object.
func (o *Object) Copy() *Object {
	cpy := *o
	cpy.Contents = common.CopyBytes(o.Contents)
	return &cpy
}

// ObjectInfo is the value stored in the owner index.
type ObjectInfo struct {
	Ref   ObjectRef
	Type  string
	Owner Owner
}
