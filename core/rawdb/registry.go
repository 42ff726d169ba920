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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/types"
)

// ErrUnknownTable is returned when a table name is not in a registry.
var ErrUnknownTable = errors.New("unknown table")

// Namespace names one of the two physical databases of the authority store.
type Namespace string

const (
	PerpetualNamespace Namespace = "perpetual" // survives epoch changes
	EpochNamespace     Namespace = "epoch"     // recreated every epoch
)

// TableSpec describes one logical table: where its rows live and how a row is
// rendered for humans. FormatKey receives the key with the prefix stripped.
//
// TableSpec 描述一个逻辑表：其行存放位置及如何为人类呈现。
type TableSpec struct {
	Name        string
	Prefix      []byte
	Store       Namespace
	Description string

	FormatKey   func(key []byte) (string, error)
	FormatValue func(value []byte) (string, error)
}

// Registry is the ordered set of tables of one namespace.
type Registry struct {
	store  Namespace
	tables []*TableSpec
	byName map[string]*TableSpec
}

func newRegistry(store Namespace, specs ...*TableSpec) *Registry {
	r := &Registry{store: store, byName: make(map[string]*TableSpec, len(specs))}
	for _, spec := range specs {
		if _, dup := r.byName[spec.Name]; dup {
			panic(fmt.Sprintf("duplicate table %q", spec.Name))
		}
		spec.Store = store
		r.tables = append(r.tables, spec)
		r.byName[spec.Name] = spec
	}
	return r
}

// Namespace returns the namespace the registry describes.
func (r *Registry) Namespace() Namespace { return r.store }

// Names lists every table name in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tables))
	for i, spec := range r.tables {
		names[i] = spec.Name
	}
	return names
}

// Tables returns the table specs in registration order.
func (r *Registry) Tables() []*TableSpec {
	return append([]*TableSpec(nil), r.tables...)
}

// Lookup resolves a table by name.
func (r *Registry) Lookup(name string) (*TableSpec, error) {
	spec, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s store", ErrUnknownTable, name, r.store)
	}
	return spec, nil
}

// Describe returns one row per table: name, prefix and description.
func (r *Registry) Describe() [][]string {
	rows := make([][]string, 0, len(r.tables))
	for _, spec := range r.tables {
		rows = append(rows, []string{string(r.store), spec.Name, fmt.Sprintf("%q", spec.Prefix), spec.Description})
	}
	return rows
}

// Classify returns the table owning a raw namespace key, or nil.
func (r *Registry) Classify(key []byte) *TableSpec {
	for _, spec := range r.tables {
		if bytes.HasPrefix(key, spec.Prefix) {
			return spec
		}
	}
	return nil
}

var (
	// PerpetualTables lists the tables of the perpetual namespace.
	PerpetualTables = newRegistry(PerpetualNamespace,
		&TableSpec{
			Name: "objects", Prefix: objectsPrefix,
			Description: "object versions by (id, version)",
			FormatKey:   formatObjectKey,
			FormatValue: rlpValue[types.Object],
		},
		&TableSpec{
			Name: "owner_index", Prefix: ownerIndexPrefix,
			Description: "latest object info by (owner, id)",
			FormatKey:   formatOwnerIndexKey,
			FormatValue: rlpValue[types.ObjectInfo],
		},
		&TableSpec{
			Name: "certificates", Prefix: certificatesPrefix,
			Description: "certificates by transaction digest",
			FormatKey:   formatDigestKey,
			FormatValue: rlpValue[types.Certificate],
		},
		&TableSpec{
			Name: "parent_sync", Prefix: parentSyncPrefix,
			Description: "producing transaction by object reference",
			FormatKey:   formatParentSyncKey,
			FormatValue: rlpDigest,
		},
		&TableSpec{
			Name: "effects", Prefix: effectsPrefix,
			Description: "signed effects by transaction digest",
			FormatKey:   formatDigestKey,
			FormatValue: rlpValue[types.SignedEffects],
		},
		&TableSpec{
			Name: "executed_sequence", Prefix: executedSequencePrefix,
			Description: "execution order of committed certificates",
			FormatKey:   formatSequenceKey,
			FormatValue: rlpValue[types.ExecutionDigests],
		},
		&TableSpec{
			Name: "batches", Prefix: batchesPrefix,
			Description: "signed batches by end sequence",
			FormatKey:   formatSequenceKey,
			FormatValue: rlpValue[types.SignedBatch],
		},
	)

	// EpochTables lists the tables of an epoch namespace.
	EpochTables = newRegistry(EpochNamespace,
		&TableSpec{
			Name: "transactions", Prefix: transactionsPrefix,
			Description: "signed transactions holding owned-object locks",
			FormatKey:   formatDigestKey,
			FormatValue: rlpValue[types.Transaction],
		},
		&TableSpec{
			Name: "pending_execution", Prefix: pendingExecutionPrefix,
			Description: "certificates awaiting execution",
			FormatKey:   formatSequenceKey,
			FormatValue: rlpDigest,
		},
		&TableSpec{
			Name: "assigned_object_versions", Prefix: assignedVersionsPrefix,
			Description: "shared object versions by (certificate, id)",
			FormatKey:   formatAssignedKey,
			FormatValue: rlpUint64,
		},
		&TableSpec{
			Name: "next_object_versions", Prefix: nextVersionsPrefix,
			Description: "next shared object version by id",
			FormatKey:   formatAddressKey,
			FormatValue: rlpUint64,
		},
		&TableSpec{
			Name: "consensus_message_processed", Prefix: consensusMessagePrefix,
			Description: "certificates already sequenced by consensus",
			FormatKey:   formatDigestKey,
			FormatValue: rlpBool,
		},
		&TableSpec{
			Name: "last_consensus_index", Prefix: lastConsensusIndexPrefix,
			Description: "consensus resume point and rolling hash",
			FormatKey:   formatSequenceKey,
			FormatValue: rlpValue[types.ExecutionIndicesWithHash],
		},
	)
)

// RegistryFor returns the registry of a namespace.
func RegistryFor(store Namespace) (*Registry, error) {
	switch store {
	case PerpetualNamespace:
		return PerpetualTables, nil
	case EpochNamespace:
		return EpochTables, nil
	}
	return nil, fmt.Errorf("unknown store %q", store)
}

var spewConfig = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func rlpValue[T any](data []byte) (string, error) {
	val := new(T)
	if err := rlp.DecodeBytes(data, val); err != nil {
		return "", err
	}
	return spewConfig.Sprintf("%+v", *val), nil
}

func rlpDigest(data []byte) (string, error) {
	var d common.Digest
	if err := rlp.DecodeBytes(data, &d); err != nil {
		return "", err
	}
	return d.Hex(), nil
}

func rlpUint64(data []byte) (string, error) {
	var n uint64
	if err := rlp.DecodeBytes(data, &n); err != nil {
		return "", err
	}
	return strconv.FormatUint(n, 10), nil
}

func rlpBool(data []byte) (string, error) {
	var b bool
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return "", err
	}
	return strconv.FormatBool(b), nil
}

func keyLengthError(key []byte, want int) error {
	return fmt.Errorf("key length %d, want %d", len(key), want)
}

func formatObjectKey(key []byte) (string, error) {
	if len(key) != objectKeyLength {
		return "", keyLengthError(key, objectKeyLength)
	}
	k, _ := parseObjectKeySuffix(key)
	return k.String(), nil
}

func formatOwnerIndexKey(key []byte) (string, error) {
	if len(key) != ownerIndexKeyLength {
		return "", keyLengthError(key, ownerIndexKeyLength)
	}
	owner := types.Owner{Kind: types.OwnerKind(key[0]), Address: common.BytesToAddress(key[1 : 1+common.AddressLength])}
	return fmt.Sprintf("%s/%s", owner, common.BytesToAddress(key[1+common.AddressLength:]).Hex()), nil
}

func formatDigestKey(key []byte) (string, error) {
	if len(key) != common.DigestLength {
		return "", keyLengthError(key, common.DigestLength)
	}
	return common.BytesToDigest(key).Hex(), nil
}

func formatAddressKey(key []byte) (string, error) {
	if len(key) != common.AddressLength {
		return "", keyLengthError(key, common.AddressLength)
	}
	return common.BytesToAddress(key).Hex(), nil
}

func formatParentSyncKey(key []byte) (string, error) {
	ref, ok := parseParentSyncSuffix(key)
	if !ok {
		return "", keyLengthError(key, parentSyncKeyLength)
	}
	return ref.String(), nil
}

func formatSequenceKey(key []byte) (string, error) {
	if len(key) != sequenceKeyLength {
		return "", keyLengthError(key, sequenceKeyLength)
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(key), 10), nil
}

func formatAssignedKey(key []byte) (string, error) {
	if len(key) != assignedKeyLength {
		return "", keyLengthError(key, assignedKeyLength)
	}
	return fmt.Sprintf("%s/%s", common.BytesToDigest(key[:common.DigestLength]).Hex(), common.BytesToAddress(key[common.DigestLength:]).Hex()), nil
}
