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
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sunyihoo/authstore/common"
)

var (
	// ErrDuplicateObjectRefInput is returned when one object id appears more than
	// once across a transaction's gas, direct and vector arguments.
	ErrDuplicateObjectRefInput = errors.New("duplicate object reference in transaction inputs")

	// ErrSharedObjectInVector is returned for a shared object nested in a vector
	// argument. Such transactions can be stored but never executed.
	ErrSharedObjectInVector = errors.New("shared object in vector argument")
)

// DuplicateObjectRefError carries the offending object id.
type DuplicateObjectRefError struct {
	ID ObjectID
}

func (e *DuplicateObjectRefError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicateObjectRefInput, e.ID.Hex())
}

// Unwrap lets errors.Is match ErrDuplicateObjectRefInput.
func (e *DuplicateObjectRefError) Unwrap() error { return ErrDuplicateObjectRefInput }

// ObjectArgKind distinguishes owned/immutable inputs, passed by exact
// reference, from shared inputs whose version is assigned by consensus.
type ObjectArgKind uint8

const (
	ImmOrOwnedObject ObjectArgKind = iota // 按精确引用传入
	SharedObject                          // 版本由共识分配
)

// ObjectArg is an object passed to a call. Shared arguments only carry the
// object id; Version and Digest of their Ref stay zero.
type ObjectArg struct {
	Kind ObjectArgKind
	Ref  ObjectRef
}

// NewOwnedArg returns an argument passing ref by exact reference.
func NewOwnedArg(ref ObjectRef) ObjectArg { return ObjectArg{Kind: ImmOrOwnedObject, Ref: ref} }

// NewSharedArg returns an argument for a consensus-ordered object.
func NewSharedArg(id ObjectID) ObjectArg { return ObjectArg{Kind: SharedObject, Ref: ObjectRef{ID: id}} }

// CallArgKind enumerates the call argument shapes.
type CallArgKind uint8

const (
	PureArg   CallArgKind = iota // raw bytes
	ObjectCallArg                // a single object
	ObjVecArg                    // a vector of objects
)

// CallArg is one argument of a call. Only the field matching Kind is used.
//
// CallArg 是调用的一个参数，仅使用与 Kind 对应的字段。
type CallArg struct {
	Kind   CallArgKind
	Pure   []byte
	Object ObjectArg
	ObjVec []ObjectArg
}

// Pure returns a raw-bytes argument.
func Pure(b []byte) CallArg { return CallArg{Kind: PureArg, Pure: common.CopyBytes(b)} }

// Obj returns a single object argument.
func Obj(arg ObjectArg) CallArg { return CallArg{Kind: ObjectCallArg, Object: arg} }

// ObjVec returns a vector-of-objects argument.
func ObjVec(args ...ObjectArg) CallArg { return CallArg{Kind: ObjVecArg, ObjVec: args} }

// TransactionData is the signed payload of a transaction: a single call plus
// the gas object paying for it.
type TransactionData struct {
	Sender    common.Address
	Module    string
	Function  string
	Arguments []CallArg
	Gas       ObjectRef
	GasBudget uint64
}

// InputObjects lists every object input of the transaction in a deterministic
// order: gas first, then arguments in order with vectors flattened. An object
// id occurring twice anywhere yields a *DuplicateObjectRefError.
func (d *TransactionData) InputObjects() ([]ObjectArg, error) {
	var (
		seen   = mapset.NewThreadUnsafeSet[ObjectID]()
		inputs = []ObjectArg{NewOwnedArg(d.Gas)}
	)
	seen.Add(d.Gas.ID)

	add := func(arg ObjectArg) error {
		if !seen.Add(arg.Ref.ID) {
			return &DuplicateObjectRefError{ID: arg.Ref.ID}
		}
		inputs = append(inputs, arg)
		return nil
	}
	for _, arg := range d.Arguments {
		switch arg.Kind {
		case ObjectCallArg:
			if err := add(arg.Object); err != nil {
				return nil, err
			}
		case ObjVecArg:
			for _, elem := range arg.ObjVec {
				if err := add(elem); err != nil {
					return nil, err
				}
			}
		}
	}
	return inputs, nil
}

// SharedInputObjects returns the ids of the shared inputs in argument order.
func (d *TransactionData) SharedInputObjects() []ObjectID {
	var ids []ObjectID
	for _, arg := range d.Arguments {
		switch arg.Kind {
		case ObjectCallArg:
			if arg.Object.Kind == SharedObject {
				ids = append(ids, arg.Object.Ref.ID)
			}
		case ObjVecArg:
			for _, elem := range arg.ObjVec {
				if elem.Kind == SharedObject {
					ids = append(ids, elem.Ref.ID)
				}
			}
		}
	}
	return ids
}

// ContainsSharedObject reports whether the transaction needs consensus ordering.
func (d *TransactionData) ContainsSharedObject() bool {
	return len(d.SharedInputObjects()) > 0
}

// Validate runs the checks a certificate must pass before any state is
// touched: input uniqueness and no shared objects inside vectors.
func (d *TransactionData) Validate() error {
	if _, err := d.InputObjects(); err != nil {
		return err
	}
	for _, arg := range d.Arguments {
		if arg.Kind != ObjVecArg {
			continue
		}
		for _, elem := range arg.ObjVec {
			if elem.Kind == SharedObject {
				return fmt.Errorf("%w: %s", ErrSharedObjectInVector, elem.Ref.ID.Hex())
			}
		}
	}
	return nil
}

// Digest is the transaction digest, shared by the certificate and its effects.
func (d *TransactionData) Digest() common.Digest {
	return prefixedRlpHash(transactionDigestPrefix, d)
}

// Transaction is transaction data signed by its sender.
// Transaction 是由发送者签名的交易数据。
type Transaction struct {
	Data      TransactionData
	Signature []byte
}

// Digest returns the digest of the signed payload.
func (tx *Transaction) Digest() common.Digest { return tx.Data.Digest() }

// AuthoritySignature is one validator's signature over a transaction digest.
type AuthoritySignature struct {
	Authority common.Address
	Signature []byte
}

// AuthSignInfo is the quorum of signatures that certifies a transaction.
type AuthSignInfo struct {
	Epoch      uint64
	Signatures []AuthoritySignature
}

// Certificate is a transaction together with a quorum of validator
// signatures. Signatures are carried, not verified, by the store.
type Certificate struct {
	Transaction Transaction
	Auth        AuthSignInfo
}

// NewCertificate certifies tx in the given epoch.
func NewCertificate(tx Transaction, epoch uint64, sigs ...AuthoritySignature) *Certificate {
	return &Certificate{Transaction: tx, Auth: AuthSignInfo{Epoch: epoch, Signatures: sigs}}
}

// Digest returns the transaction digest of the certificate.
func (c *Certificate) Digest() common.Digest { return c.Transaction.Digest() }

// Data returns the certified transaction payload.
func (c *Certificate) Data() *TransactionData { return &c.Transaction.Data }
