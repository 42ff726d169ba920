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
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/common"
)

func id(b byte) ObjectID { return common.BytesToAddress([]byte{b}) }

func ref(b byte, v Version) ObjectRef {
	return ObjectRef{ID: id(b), Version: v, Digest: common.BytesToDigest([]byte{b, byte(v)})}
}

func TestInputObjects(t *testing.T) {
	tests := []struct {
		name   string
		args   []CallArg
		inputs int
	}{
		{"pure only", []CallArg{Pure([]byte{1})}, 1},
		{"direct and vector", []CallArg{Obj(NewOwnedArg(ref(2, 1))), ObjVec(NewOwnedArg(ref(3, 1)), NewOwnedArg(ref(4, 1)))}, 4},
		{"shared", []CallArg{Obj(NewSharedArg(id(5)))}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := TransactionData{Gas: ref(1, 1), Arguments: tt.args}
			inputs, err := data.InputObjects()
			require.NoError(t, err)
			assert.Len(t, inputs, tt.inputs)
			assert.Equal(t, id(1), inputs[0].Ref.ID, "gas comes first")
		})
	}
}

func TestDuplicateObjectRefInput(t *testing.T) {
	tests := []struct {
		name string
		args []CallArg
		dup  ObjectID
	}{
		{"direct and vector", []CallArg{Obj(NewOwnedArg(ref(7, 1))), ObjVec(NewOwnedArg(ref(8, 1)), NewOwnedArg(ref(7, 1)))}, id(7)},
		{"within vector", []CallArg{ObjVec(NewOwnedArg(ref(9, 1)), NewOwnedArg(ref(9, 2)))}, id(9)},
		{"gas reused", []CallArg{Obj(NewOwnedArg(ref(1, 1)))}, id(1)},
		{"shared twice", []CallArg{Obj(NewSharedArg(id(5))), ObjVec(NewSharedArg(id(5)))}, id(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := TransactionData{Gas: ref(1, 1), Arguments: tt.args}
			_, err := data.InputObjects()
			require.ErrorIs(t, err, ErrDuplicateObjectRefInput)

			var dupErr *DuplicateObjectRefError
			require.True(t, errors.As(err, &dupErr))
			assert.Equal(t, tt.dup, dupErr.ID)
			assert.ErrorIs(t, data.Validate(), ErrDuplicateObjectRefInput)
		})
	}
}

func TestSharedInputObjects(t *testing.T) {
	data := TransactionData{
		Gas: ref(1, 1),
		Arguments: []CallArg{
			Obj(NewSharedArg(id(4))),
			Pure(nil),
			Obj(NewOwnedArg(ref(2, 3))),
			Obj(NewSharedArg(id(3))),
		},
	}
	assert.Equal(t, []ObjectID{id(4), id(3)}, data.SharedInputObjects())
	assert.True(t, data.ContainsSharedObject())
	assert.NoError(t, data.Validate())

	data.Arguments = append(data.Arguments, ObjVec(NewSharedArg(id(9))))
	assert.ErrorIs(t, data.Validate(), ErrSharedObjectInVector)
}

func TestCertificateEncoding(t *testing.T) {
	cert := NewCertificate(Transaction{
		Data: TransactionData{
			Sender:    common.BytesToAddress([]byte{0xaa}),
			Module:    "coin",
			Function:  "transfer",
			Arguments: []CallArg{Obj(NewOwnedArg(ref(2, 1))), Pure([]byte{1, 2})},
			Gas:       ref(1, 1),
			GasBudget: 1000,
		},
		Signature: []byte{0x01},
	}, 3, AuthoritySignature{Authority: common.BytesToAddress([]byte{1}), Signature: []byte{2}})

	enc, err := rlp.EncodeToBytes(cert)
	require.NoError(t, err)

	var dec Certificate
	require.NoError(t, rlp.DecodeBytes(enc, &dec))
	assert.Equal(t, cert.Digest(), dec.Digest())
	assert.Equal(t, uint64(3), dec.Auth.Epoch)

	// The signature is not part of the digest.
	other := *cert
	other.Transaction.Signature = []byte{0x02}
	assert.Equal(t, cert.Digest(), other.Digest())
}

func TestObjectDigest(t *testing.T) {
	obj := &Object{ID: id(1), Version: StartVersion, Owner: NewAddressOwner(common.Address{1}), Type: "coin", Contents: []byte{1}}
	cpy := obj.Copy()
	assert.Equal(t, obj.Digest(), cpy.Digest())

	cpy.Contents[0] = 2
	assert.NotEqual(t, obj.Digest(), cpy.Digest())
	assert.Equal(t, byte(1), obj.Contents[0], "copy must not alias")

	r := obj.Ref()
	assert.True(t, r.IsAlive())
	assert.Equal(t, ObjectKey{id(1), 1}, r.Key())
	assert.Equal(t, obj.Owner, obj.Info().Owner)
}

func TestSentinelRefs(t *testing.T) {
	key := ObjectKey{id(3), 4}
	del, wrap := DeletedRef(key), WrappedRef(key)

	assert.Equal(t, Version(5), del.Version)
	assert.Equal(t, Version(5), wrap.Version)
	assert.False(t, del.IsAlive())
	assert.False(t, wrap.IsAlive())
	assert.Equal(t, byte(99), del.Digest[0])
	assert.Equal(t, byte(88), wrap.Digest[31])
	assert.Contains(t, del.String(), "deleted")
}

func TestOwner(t *testing.T) {
	assert.True(t, NewAddressOwner(common.Address{1}).IsIndexed())
	assert.True(t, NewObjectOwner(id(1)).IsIndexed())
	assert.False(t, Shared.IsIndexed())
	assert.False(t, ImmutableOwner.IsIndexed())
	assert.Equal(t, "shared", Shared.String())
}

func TestBatchChain(t *testing.T) {
	genesis := GenesisBatch()
	assert.Zero(t, genesis.Size())

	items := []SequencedDigests{
		{Sequence: 0, Digests: ExecutionDigests{Transaction: common.Digest{1}}},
		{Sequence: 1, Digests: ExecutionDigests{Transaction: common.Digest{2}}},
	}
	b1 := NewAuthorityBatch(&genesis, items)
	assert.Equal(t, uint64(0), b1.InitialSequence)
	assert.Equal(t, uint64(2), b1.NextSequence)
	assert.Equal(t, genesis.Digest(), b1.PreviousDigest)

	b2 := NewAuthorityBatch(&b1, nil)
	assert.Equal(t, uint64(2), b2.InitialSequence)
	assert.Zero(t, b2.Size())
	assert.NotEqual(t, b1.Digest(), b2.Digest())
}

func TestRollingHash(t *testing.T) {
	var (
		genesis = ExecutionIndicesWithHash{}
		m1, c1  = common.Digest{1}, common.Digest{0xc1}
		m2, c2  = common.Digest{2}, common.Digest{0xc2}
	)
	a := genesis.Next(1, m1, c1).Next(2, m2, c2)
	b := genesis.Next(1, m1, c1).Next(2, m2, c2)
	assert.Equal(t, a, b, "folding is deterministic")
	assert.Equal(t, uint64(2), a.Index)
	assert.Equal(t, m2, a.Message)

	swapped := genesis.Next(1, m2, c2).Next(2, m1, c1)
	assert.NotEqual(t, a.Hash, swapped.Hash, "order matters")
}

func TestEffectsSets(t *testing.T) {
	fx := Effects{
		ModifiedAtVersions: []ObjectKey{{id(1), 1}, {id(2), 4}},
		Created:            []OwnedObjectRef{{Ref: ref(3, 1)}},
		Mutated:            []OwnedObjectRef{{Ref: ref(1, 5)}},
		Deleted:            []ObjectRef{DeletedRef(ObjectKey{id(2), 4})},
	}
	assert.True(t, fx.Inputs().Contains(ObjectKey{id(2), 4}))
	assert.False(t, fx.Inputs().Contains(ObjectKey{id(2), 5}))
	assert.Len(t, fx.Written(), 2)
	assert.Len(t, fx.Removed(), 1)
}
