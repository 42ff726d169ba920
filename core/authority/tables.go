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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/kvdb"
)

// TableName qualifies a table with the namespace holding it.
type TableName struct {
	Store rawdb.Namespace
	Name  string
}

func (t TableName) String() string { return string(t.Store) + "/" + t.Name }

// TableSets combines the table sets of both namespaces. Table names are unique
// across namespaces, so a bare name resolves to a single table; the qualified
// form "store/name" is accepted as well.
type TableSets []rawdb.TableSet

// ListTables returns every table of every namespace.
func (ts TableSets) ListTables() []TableName {
	var names []TableName
	for _, set := range ts {
		for _, name := range set.ListTables() {
			names = append(names, TableName{Store: set.Namespace(), Name: name})
		}
	}
	return names
}

// Lookup resolves a bare or qualified table name to its table set.
func (ts TableSets) Lookup(name string) (rawdb.TableSet, string, error) {
	store, table, qualified := strings.Cut(name, "/")
	if !qualified {
		table, store = store, ""
	}
	for _, set := range ts {
		if store != "" && string(set.Namespace()) != store {
			continue
		}
		if _, err := set.OpenTable(table); err == nil {
			return set, table, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %q", rawdb.ErrUnknownTable, name)
}

// Dump renders one page of the named table.
func (ts TableSets) Dump(name string, pageSize, pageNumber uint64) (*rawdb.DumpPage, error) {
	set, table, err := ts.Lookup(name)
	if err != nil {
		return nil, err
	}
	return set.Dump(table, pageSize, pageNumber)
}

// ReadOnlyStore is a read-only handle over the databases of a data directory,
// used by operator tooling while the validator may be running elsewhere.
//
// ReadOnlyStore 是数据目录中数据库的只读句柄。
type ReadOnlyStore struct {
	perpetual *PerpetualStore
	epoch     *EpochStore // nil if no epoch was started yet
}

// OpenReadOnly opens the perpetual database and the database of one epoch
// read-only. A nil epoch selects the newest one on disk.
func OpenReadOnly(config *Config, epoch *uint64) (*ReadOnlyStore, error) {
	conf := *config
	conf.ReadOnly = true
	if conf.inMemory() {
		return nil, errors.New("memory engine keeps no data to open")
	}
	perpetual, err := OpenPerpetual(&conf)
	if err != nil {
		return nil, err
	}
	r := &ReadOnlyStore{perpetual: perpetual}

	epochs, err := listEpochs(&conf)
	if err != nil {
		perpetual.Close()
		return nil, err
	}
	var want *uint64
	switch {
	case epoch != nil:
		want = epoch
	case len(epochs) > 0:
		want = &epochs[len(epochs)-1]
	}
	if want != nil {
		es, err := OpenEpoch(&conf, *want)
		if err != nil {
			perpetual.Close()
			return nil, err
		}
		r.epoch = es
	}
	return r, nil
}

// Perpetual returns the perpetual store.
func (r *ReadOnlyStore) Perpetual() *PerpetualStore { return r.perpetual }

// Epoch returns the opened epoch store, or nil.
func (r *ReadOnlyStore) Epoch() *EpochStore { return r.epoch }

// Tables returns the table sets of the opened namespaces.
func (r *ReadOnlyStore) Tables() TableSets {
	sets := TableSets{r.perpetual.Tables()}
	if r.epoch != nil {
		sets = append(sets, r.epoch.Tables())
	}
	return sets
}

// ListTables returns the tables of the opened namespaces. Without an epoch
// database only the perpetual tables are listed.
func (r *ReadOnlyStore) ListTables() []TableName {
	return r.Tables().ListTables()
}

// Dump renders one page of the named table.
func (r *ReadOnlyStore) Dump(name string, pageSize, pageNumber uint64) (*rawdb.DumpPage, error) {
	return r.Tables().Dump(name, pageSize, pageNumber)
}

// Inspect writes the size report of one namespace to w.
func (r *ReadOnlyStore) Inspect(store rawdb.Namespace, w io.Writer) error {
	switch store {
	case rawdb.PerpetualNamespace:
		return rawdb.InspectDatabase(r.perpetual.db, rawdb.PerpetualTables, w)
	case rawdb.EpochNamespace:
		if r.epoch == nil {
			return errors.New("no epoch database")
		}
		return rawdb.InspectDatabase(r.epoch.db, rawdb.EpochTables, w)
	}
	return fmt.Errorf("unknown store %q", store)
}

// Metadata returns the diagnostic metadata rows of both namespaces, each
// prefixed with the namespace it was read from.
func (r *ReadOnlyStore) Metadata() [][]string {
	var rows [][]string
	add := func(ns rawdb.Namespace, db kvdb.KeyValueStore) {
		for _, row := range rawdb.ReadStoreMetadata(db) {
			rows = append(rows, append([]string{string(ns)}, row...))
		}
	}
	add(rawdb.PerpetualNamespace, r.perpetual.db)
	if r.epoch != nil {
		add(rawdb.EpochNamespace, r.epoch.db)
	}
	return rows
}

// Stat returns the engine statistics of one namespace.
func (r *ReadOnlyStore) Stat(store rawdb.Namespace) (string, error) {
	switch store {
	case rawdb.PerpetualNamespace:
		return r.perpetual.db.Stat()
	case rawdb.EpochNamespace:
		if r.epoch == nil {
			return "", errors.New("no epoch database")
		}
		return r.epoch.db.Stat()
	}
	return "", fmt.Errorf("unknown store %q", store)
}

// Close releases both databases.
func (r *ReadOnlyStore) Close() error {
	var errs []error
	if r.epoch != nil {
		errs = append(errs, r.epoch.Close())
	}
	errs = append(errs, r.perpetual.Close())
	return errors.Join(errs...)
}
