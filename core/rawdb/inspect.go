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
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/kvdb"
)

type counter uint64

func (c counter) String() string {
	return fmt.Sprintf("%d", c)
}

// stat stores sizes and count for a parameter
type stat struct {
	size  common.StorageSize
	count counter
}

// Add size to the stat and increase the counter by 1
func (s *stat) Add(size common.StorageSize) {
	s.size += size
	s.count++
}

func (s *stat) Size() string {
	return s.size.String()
}

func (s *stat) Count() string {
	return s.count.String()
}

// metadataKeys are the singleton rows kept outside the table prefixes.
var metadataKeys = [][]byte{storeVersionKey, epochNumberKey, uncleanShutdownKey}

// InspectDatabase traverses an entire namespace and reports the size and
// item count of every table of the registry to w.
func InspectDatabase(db kvdb.Iteratee, reg *Registry, w io.Writer) error {
	it := db.NewIterator(nil, nil)
	defer it.Release()

	var (
		count  int64
		start  = time.Now()
		logged = time.Now()

		tables      = make(map[string]*stat)
		metadata    stat
		unaccounted stat

		// Totals
		total common.StorageSize
	)
	for _, spec := range reg.tables {
		tables[spec.Name] = new(stat)
	}
	for it.Next() {
		var (
			key  = it.Key()
			size = common.StorageSize(len(key) + len(it.Value()))
		)
		total += size

		if spec := reg.Classify(key); spec != nil {
			tables[spec.Name].Add(size)
		} else {
			var accounted bool
			for _, meta := range metadataKeys {
				if bytes.Equal(key, meta) {
					metadata.Add(size)
					accounted = true
					break
				}
			}
			if !accounted {
				unaccounted.Add(size)
			}
		}
		count++
		if count%1000 == 0 && time.Since(logged) > 8*time.Second {
			log.Info("Inspecting database", "count", count, "elapsed", common.PrettyDuration(time.Since(start)))
			logged = time.Now()
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	stats := make([][]string, 0, len(reg.tables)+1)
	for _, spec := range reg.tables {
		s := tables[spec.Name]
		stats = append(stats, []string{string(reg.store), spec.Name, s.Size(), s.Count()})
	}
	stats = append(stats, []string{string(reg.store), "Singleton metadata", metadata.Size(), metadata.Count()})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Store", "Table", "Size", "Items"})
	table.SetFooter([]string{"", "Total", total.String(), " "})
	table.AppendBulk(stats)
	table.Render()

	if unaccounted.size > 0 {
		log.Error("Database contains unaccounted data", "size", unaccounted.size, "count", unaccounted.count)
	}
	return nil
}
