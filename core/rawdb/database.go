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
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sunyihoo/authstore/kvdb"
	"github.com/sunyihoo/authstore/kvdb/leveldb"
	"github.com/sunyihoo/authstore/kvdb/memorydb"
	"github.com/sunyihoo/authstore/kvdb/pebble"
)

const (
	DBPebble  = "pebble"
	DBLeveldb = "leveldb"
	DBMemory  = "memory"
)

// OpenOptions contains the options to apply when opening a namespace database.
type OpenOptions struct {
	Type      string // "leveldb" | "pebble" | "memory"
	Directory string // the namespace directory
	Namespace string // the namespace for database relevant metrics
	Cache     int    // the capacity(in megabytes) of the data caching
	Handles   int    // number of files to be open simultaneously
	ReadOnly  bool
}

// Open opens a key-value database, e.g. leveldb or pebble.
//
//	                      type == null          type != null
//	                   +----------------------------------------
//	db is non-existent |  pebble default  |  specified type
//	db is existent     |  from db         |  specified type (if compatible)
func Open(o OpenOptions) (kvdb.KeyValueStore, error) {
	if o.Type == DBMemory {
		return memorydb.New(), nil
	}
	// Reject any unsupported database type
	if len(o.Type) != 0 && o.Type != DBLeveldb && o.Type != DBPebble {
		return nil, fmt.Errorf("unknown db.engine %v", o.Type)
	}
	// Retrieve any pre-existing database's type and use that or the requested one
	// as long as there's no conflict between the two types
	existingDb := PreexistingDatabase(o.Directory)
	if len(existingDb) != 0 && len(o.Type) != 0 && o.Type != existingDb {
		return nil, fmt.Errorf("db.engine choice was %v but found pre-existing %v database in specified data directory", o.Type, existingDb)
	}
	if o.ReadOnly && existingDb == "" {
		return nil, fmt.Errorf("no database found in %s", o.Directory)
	}
	if o.Type == DBLeveldb || existingDb == DBLeveldb {
		log.Debug("Using leveldb as the backing database", "dir", o.Directory)
		db, err := leveldb.New(o.Directory, o.Cache, o.Handles, o.Namespace, o.ReadOnly)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	// No pre-existing database, no user-requested one either. Default to Pebble.
	log.Debug("Using pebble as the backing database", "dir", o.Directory)
	db, err := pebble.New(o.Directory, o.Cache, o.Handles, o.Namespace, o.ReadOnly, false)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// PreexistingDatabase checks the given data directory whether a database is already
// instantiated at that location, and if so, returns the type of database (or the
// empty string).
func PreexistingDatabase(path string) string {
	if _, err := os.Stat(filepath.Join(path, "CURRENT")); err != nil {
		return "" // No pre-existing db
	}
	if matches, err := filepath.Glob(filepath.Join(path, "OPTIONS*")); len(matches) > 0 || err != nil {
		if err != nil {
			panic(err) // only possible if the pattern is malformed
		}
		return DBPebble
	}
	return DBLeveldb
}
