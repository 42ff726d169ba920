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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEngines(t *testing.T) {
	for _, engine := range []string{DBPebble, DBLeveldb} {
		t.Run(engine, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "perpetual")
			db, err := Open(OpenOptions{Type: engine, Directory: dir, Cache: 16, Handles: 16})
			require.NoError(t, err)
			require.NoError(t, WriteNextVersion(db, testID(1), 3))
			require.NoError(t, db.Close())

			assert.Equal(t, engine, PreexistingDatabase(dir))

			// Reopening without a type picks the existing engine.
			db, err = Open(OpenOptions{Directory: dir, Cache: 16, Handles: 16, ReadOnly: true})
			require.NoError(t, err)
			v, err := ReadNextVersion(db, testID(1))
			require.NoError(t, err)
			assert.EqualValues(t, 3, v)
			require.NoError(t, db.Close())
		})
	}
}

func TestOpenEngineMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(OpenOptions{Type: DBLeveldb, Directory: dir})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(OpenOptions{Type: DBPebble, Directory: dir})
	assert.ErrorContains(t, err, "pre-existing leveldb")

	_, err = Open(OpenOptions{Type: "rocksdb", Directory: dir})
	assert.ErrorContains(t, err, "unknown db.engine")
}

func TestOpenReadOnlyMissing(t *testing.T) {
	_, err := Open(OpenOptions{Directory: filepath.Join(t.TempDir(), "missing"), ReadOnly: true})
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	db, err := Open(OpenOptions{Type: DBMemory})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "", PreexistingDatabase(t.TempDir()))
}
