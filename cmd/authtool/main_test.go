// Copyright 2025 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/authority"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/core/types"
)

// newDataDir creates a store on disk holding two objects and one sequenced,
// not yet executed certificate.
func newDataDir(t *testing.T) string {
	t.Helper()

	conf := authority.DefaultConfig
	conf.DataDir = t.TempDir()
	conf.DatabaseCache = 16
	conf.DatabaseHandles = 32
	conf.ObjectCacheSize = 0

	s, err := authority.New(&conf)
	require.NoError(t, err)
	defer s.Close()

	gas, counter, cert := testObjects()
	require.NoError(t, s.Perpetual().InsertGenesisObjects(gas, counter))

	_, err = s.Consensus().HandleConsensusCertificate(context.Background(), types.ConsensusOutput{Index: 1, Certificate: cert, Hash: common.BytesToDigest([]byte{0x01})})
	require.NoError(t, err)
	return conf.DataDir
}

// testObjects returns the genesis objects of newDataDir and the certificate
// sequenced over them.
func testObjects() (gas, counter *types.Object, cert *types.Certificate) {
	owner := types.NewAddressOwner(common.BytesToAddress([]byte{0xa1}))
	gas = &types.Object{ID: common.BytesToAddress([]byte{1}), Version: 1, Owner: owner, Type: "0x2::coin::Coin", Contents: []byte{1}}
	counter = &types.Object{ID: common.BytesToAddress([]byte{0xc0}), Version: 1, Owner: types.Shared, Type: "0x2::counter::Counter"}

	tx := types.Transaction{Data: types.TransactionData{
		Sender:    owner.Address,
		Module:    "counter",
		Function:  "increment",
		Arguments: []types.CallArg{types.Obj(types.NewSharedArg(counter.ID))},
		Gas:       gas.Ref(),
	}}
	return gas, counter, types.NewCertificate(tx, 0)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"authtool", "--verbosity", "0"}, args...))
	return out.String(), err
}

func TestListTables(t *testing.T) {
	dir := newDataDir(t)
	out, err := run(t, "--datadir", dir, "db", "list-tables")
	require.NoError(t, err)
	for _, reg := range []*rawdb.Registry{rawdb.PerpetualTables, rawdb.EpochTables} {
		for _, name := range reg.Names() {
			assert.Contains(t, out, name)
		}
	}
}

func TestDumpTable(t *testing.T) {
	dir := newDataDir(t)

	out, err := run(t, "--datadir", dir, "db", "dump", "--table", "objects", "--page-size", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "# perpetual/objects page 0 (size 1, 1 rows)")

	out, err = run(t, "--datadir", dir, "db", "dump", "--table", "epoch/assigned_object_versions")
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows")

	_, err = run(t, "--datadir", dir, "db", "dump", "--table", "nonexistent")
	assert.ErrorIs(t, err, rawdb.ErrUnknownTable)

	_, err = run(t, "--datadir", dir, "db", "dump", "--table", "objects", "--epoch", "7")
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	dir := newDataDir(t)
	gas, counter, cert := testObjects()

	out, err := run(t, "--datadir", dir, "db", "get", "--object", counter.ID.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "object   = "+counter.Key().String())
	assert.Contains(t, out, "type     = 0x2::counter::Counter")

	out, err = run(t, "--datadir", dir, "db", "get", "--object", gas.ID.Hex()[2:], "--object.version", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "digest   = "+gas.Digest().Hex())
	assert.Contains(t, out, "contents = 0x01")

	_, err = run(t, "--datadir", dir, "db", "get", "--object", gas.ID.Hex(), "--object.version", "2")
	assert.ErrorContains(t, err, "not found")
	_, err = run(t, "--datadir", dir, "db", "get", "--object", "0x1234")
	assert.ErrorContains(t, err, "invalid --object")

	out, err = run(t, "--datadir", dir, "db", "get", "--tx", cert.Digest().Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "certificate = "+cert.Digest().Hex())
	assert.Contains(t, out, "call        = counter::increment")
	assert.Contains(t, out, "<not executed>")

	_, err = run(t, "--datadir", dir, "db", "get", "--tx", common.Digest{0xff}.Hex())
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "--datadir", dir, "db", "get", "--object", gas.ID.Hex(), "--tx", cert.Digest().Hex())
	assert.ErrorContains(t, err, "can't be used at the same time")
	_, err = run(t, "--datadir", dir, "db", "get")
	assert.ErrorContains(t, err, "is required")
}

func TestInspectAndMetadata(t *testing.T) {
	dir := newDataDir(t)

	out, err := run(t, "--datadir", dir, "db", "inspect", "--store", "epoch")
	require.NoError(t, err)
	assert.Contains(t, out, "pending_execution")
	assert.NotContains(t, out, "parent_sync")

	_, err = run(t, "--datadir", dir, "db", "inspect", "--store", "bogus")
	assert.Error(t, err)

	out, err = run(t, "--datadir", dir, "db", "metadata")
	require.NoError(t, err)
	assert.Contains(t, out, "lastConsensusIndex")

	out, err = run(t, "--datadir", dir, "db", "consensus-index")
	require.NoError(t, err)
	assert.Contains(t, out, "epoch=0 index=1")
	assert.Contains(t, out, "next=2")

	_, err = run(t, "--datadir", dir, "db", "stats")
	require.NoError(t, err)
}

func TestMemoryEngineRejected(t *testing.T) {
	_, err := run(t, "--datadir", t.TempDir(), "--db.engine", "memory", "db", "list-tables")
	assert.ErrorContains(t, err, "keeps no data")
}

func TestDumpConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Store]\nDBEngine = \"leveldb\"\nExecutionWorkers = 8\n"), 0644))

	out, err := run(t, "--config", file, "--datadir", dir, "--cache", "64", "dumpconfig")
	require.NoError(t, err)
	assert.Contains(t, out, `DBEngine = "leveldb"`)
	assert.Contains(t, out, "ExecutionWorkers = 8")
	assert.Contains(t, out, "DatabaseCache = 64")
	assert.Contains(t, out, fmt.Sprintf("DataDir = %q", dir))
	assert.NotContains(t, out, "ReadOnly")

	require.NoError(t, os.WriteFile(file, []byte("[Store]\nUnknown = 1\n"), 0644))
	_, err = run(t, "--config", file, "dumpconfig")
	assert.ErrorContains(t, err, "field 'Unknown' is not defined")
}
