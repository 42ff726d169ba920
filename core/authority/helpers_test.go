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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/core/types"
)

var (
	alice = types.NewAddressOwner(common.BytesToAddress([]byte{0xa1}))
	bob   = types.NewAddressOwner(common.BytesToAddress([]byte{0xb0}))
)

func testID(b byte) types.ObjectID { return common.BytesToAddress([]byte{b}) }

func testObject(id byte, version types.Version, owner types.Owner) *types.Object {
	return &types.Object{
		ID:       testID(id),
		Version:  version,
		Owner:    owner,
		Type:     "0x2::coin::Coin",
		Contents: []byte{id, byte(version)},
	}
}

func memoryConfig() *Config {
	conf := DefaultConfig
	conf.DBEngine = rawdb.DBMemory
	return &conf
}

// newTestStore opens an in-memory store seeded with the given objects.
func newTestStore(t *testing.T, genesis ...*types.Object) *Store {
	t.Helper()

	s, err := New(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	if len(genesis) > 0 {
		require.NoError(t, s.Perpetual().InsertGenesisObjects(genesis...))
	}
	return s
}

// newCert builds a certificate paying with gas and calling with args.
func newCert(gas *types.Object, args ...types.CallArg) *types.Certificate {
	tx := types.Transaction{
		Data: types.TransactionData{
			Sender:    gas.Owner.Address,
			Module:    "counter",
			Function:  "increment",
			Arguments: args,
			Gas:       gas.Ref(),
			GasBudget: 1000,
		},
		Signature: []byte{0x01},
	}
	return types.NewCertificate(tx, 0, types.AuthoritySignature{Authority: common.BytesToAddress([]byte{0x77})})
}

func sharedArg(obj *types.Object) types.CallArg { return types.Obj(types.NewSharedArg(obj.ID)) }

func ownedArg(obj *types.Object) types.CallArg { return types.Obj(types.NewOwnedArg(obj.Ref())) }

// mutate returns the version of in written by transaction tx.
func mutate(in *types.Object, tx common.Digest) *types.Object {
	out := in.Copy()
	out.Version = in.Version.Increment()
	out.Contents = append(out.Contents, tx[:4]...)
	out.PreviousTransaction = tx
	return out
}

// testExecutor mutates every non-immutable input, bumping its version by one.
type testExecutor struct {
	calls atomic.Int64
}

func (e *testExecutor) Execute(ctx context.Context, cert *types.Certificate, inputs []*types.Object) (*ExecutionOutput, error) {
	e.calls.Add(1)

	digest := cert.Digest()
	effects := types.Effects{
		Status:            types.ExecutionStatus{Success: true},
		TransactionDigest: digest,
	}
	var objects []*types.Object
	for _, in := range inputs {
		if in.Owner.Kind == types.Immutable {
			continue
		}
		out := mutate(in, digest)
		effects.ModifiedAtVersions = append(effects.ModifiedAtVersions, in.Key())
		if in.IsShared() {
			effects.SharedObjects = append(effects.SharedObjects, in.Ref())
		}
		effects.Mutated = append(effects.Mutated, types.OwnedObjectRef{Ref: out.Ref(), Owner: out.Owner})
		objects = append(objects, out)
	}
	effects.GasObject = effects.Mutated[0]
	return &ExecutionOutput{
		Effects: &types.SignedEffects{Effects: effects, Epoch: cert.Auth.Epoch},
		Objects: objects,
	}, nil
}

// consensusFeed numbers certificates the way the consensus feed would.
func consensusFeed(first uint64, certs ...*types.Certificate) []types.ConsensusOutput {
	outs := make([]types.ConsensusOutput, len(certs))
	for i, cert := range certs {
		digest := cert.Digest()
		outs[i] = types.ConsensusOutput{
			Index:       first + uint64(i),
			Certificate: cert,
			Hash:        common.BytesToDigest(append([]byte{byte(i + 1)}, digest[:8]...)),
		}
	}
	return outs
}
