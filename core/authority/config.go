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
	"fmt"
	"path/filepath"

	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/kvdb"
)

// Config contains the settings of an authority store.
//
// Config 包含权威存储的配置。
type Config struct {
	// DataDir holds the perpetual database and one directory per epoch.
	DataDir string

	// DBEngine selects the key-value engine: "pebble", "leveldb" or "memory".
	// An empty value keeps the engine found on disk and defaults to pebble.
	DBEngine string

	DatabaseCache   int // megabytes shared by the namespace databases
	DatabaseHandles int // open file handles per namespace database

	// ObjectCacheSize is the size in megabytes of the object read cache. Zero
	// disables the cache.
	ObjectCacheSize int

	// ExecutionWorkers bounds the number of certificates executed in parallel.
	ExecutionWorkers int

	ReadOnly bool `toml:"-"`
}

// DefaultConfig contains the default settings.
var DefaultConfig = Config{
	DBEngine:         rawdb.DBPebble,
	DatabaseCache:    512,
	DatabaseHandles:  2048,
	ObjectCacheSize:  64,
	ExecutionWorkers: 4,
}

func (c *Config) perpetualDir() string {
	return filepath.Join(c.DataDir, "perpetual")
}

func (c *Config) epochDir(epoch uint64) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("epoch_%d", epoch))
}

func (c *Config) inMemory() bool {
	return c.DBEngine == rawdb.DBMemory
}

// openDatabase opens the namespace database in dir. The cache allowance is
// split evenly between the perpetual and the active epoch database.
func (c *Config) openDatabase(dir string, namespace string) (kvdb.KeyValueStore, error) {
	return rawdb.Open(rawdb.OpenOptions{
		Type:      c.DBEngine,
		Directory: dir,
		Namespace: namespace,
		Cache:     c.DatabaseCache / 2,
		Handles:   c.DatabaseHandles / 2,
		ReadOnly:  c.ReadOnly,
	})
}
