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
	"encoding/hex"
	"fmt"
	"math"

	"github.com/sunyihoo/authstore/kvdb"
)

// DumpEntry is one rendered row of a dump page.
type DumpEntry struct {
	Key   string
	Value string
}

// DumpPage is a page of rendered rows of one table in storage order.
//
// DumpPage 是一个表按存储顺序呈现的一页行。
type DumpPage struct {
	Table      string
	Store      Namespace
	PageSize   uint64
	PageNumber uint64
	Entries    []DumpEntry
}

// Map returns the page as a key to value map.
func (p *DumpPage) Map() map[string]string {
	m := make(map[string]string, len(p.Entries))
	for _, e := range p.Entries {
		m[e.Key] = e.Value
	}
	return m
}

// Dump renders page pageNumber of the named table, skipping
// pageSize*pageNumber rows in key order. A zero page size yields an empty
// page. Rows that fail to decode are rendered as hex with an error marker
// instead of failing the page.
func Dump(db kvdb.Reader, reg *Registry, name string, pageSize, pageNumber uint64) (*DumpPage, error) {
	spec, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	page := &DumpPage{Table: spec.Name, Store: reg.Namespace(), PageSize: pageSize, PageNumber: pageNumber}
	if pageSize == 0 {
		return page, nil
	}
	if pageNumber > math.MaxUint64/pageSize {
		return page, nil
	}
	skip := pageSize * pageNumber

	it := NewTableReader(db, spec.Prefix).NewIterator(nil, nil)
	defer it.Release()

	for it.Next() {
		if skip > 0 {
			skip--
			continue
		}
		page.Entries = append(page.Entries, DumpEntry{
			Key:   render(spec.FormatKey, it.Key()),
			Value: render(spec.FormatValue, it.Value()),
		})
		if uint64(len(page.Entries)) == pageSize {
			break
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return page, nil
}

func render(format func([]byte) (string, error), data []byte) string {
	s, err := format(data)
	if err != nil {
		return fmt.Sprintf("0x%s (undecodable: %v)", hex.EncodeToString(data), err)
	}
	return s
}

// TableSet is a read-only handle over the tables of one namespace. It is the
// single dump path shared by the stores and the operator tooling.
//
// TableSet 是一个命名空间中各表的只读句柄。
type TableSet interface {
	// Namespace names the physical database the tables live in.
	Namespace() Namespace

	// ListTables returns every table name in registration order.
	ListTables() []string

	// OpenTable returns a read-only view of a table with its prefix stripped.
	OpenTable(name string) (kvdb.Reader, error)

	// Dump renders one page of a table.
	Dump(name string, pageSize, pageNumber uint64) (*DumpPage, error)
}

type tableSet struct {
	db  kvdb.Reader
	reg *Registry
}

// NewTableSet returns the table set of reg backed by db.
func NewTableSet(db kvdb.Reader, reg *Registry) TableSet {
	return &tableSet{db: db, reg: reg}
}

func (s *tableSet) Namespace() Namespace { return s.reg.Namespace() }

func (s *tableSet) ListTables() []string { return s.reg.Names() }

func (s *tableSet) OpenTable(name string) (kvdb.Reader, error) {
	spec, err := s.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewTableReader(s.db, spec.Prefix), nil
}

func (s *tableSet) Dump(name string, pageSize, pageNumber uint64) (*DumpPage, error) {
	return Dump(s.db, s.reg, name, pageSize, pageNumber)
}
