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
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sunyihoo/authstore/kvdb"
)

// ReadStoreVersion retrieves the schema version of a namespace.
func ReadStoreVersion(db kvdb.KeyValueReader) *uint64 {
	var version uint64

	enc, _ := db.Get(storeVersionKey)
	if len(enc) == 0 {
		return nil
	}
	if err := rlp.DecodeBytes(enc, &version); err != nil {
		return nil
	}
	return &version
}

// WriteStoreVersion stores the schema version of a namespace.
func WriteStoreVersion(db kvdb.KeyValueWriter, version uint64) {
	enc, err := rlp.EncodeToBytes(version)
	if err != nil {
		log.Crit("Failed to encode store version", "err", err)
	}
	if err = db.Put(storeVersionKey, enc); err != nil {
		log.Crit("Failed to store the store version", "err", err)
	}
}

// ReadEpochNumber retrieves the epoch an epoch namespace was created for.
func ReadEpochNumber(db kvdb.KeyValueReader) *uint64 {
	var epoch uint64

	enc, _ := db.Get(epochNumberKey)
	if len(enc) == 0 {
		return nil
	}
	if err := rlp.DecodeBytes(enc, &epoch); err != nil {
		return nil
	}
	return &epoch
}

// WriteEpochNumber stores the epoch of an epoch namespace.
func WriteEpochNumber(db kvdb.KeyValueWriter, epoch uint64) {
	enc, err := rlp.EncodeToBytes(epoch)
	if err != nil {
		log.Crit("Failed to encode epoch number", "err", err)
	}
	if err = db.Put(epochNumberKey, enc); err != nil {
		log.Crit("Failed to store the epoch number", "err", err)
	}
}

// crashList is a list of unclean-shutdown-markers, for rlp-encoding to the
// database.
type crashList struct {
	Discarded uint64   // how many ucs have we deleted
	Recent    []uint64 // unix timestamps of 10 latest unclean shutdowns
}

const crashesToKeep = 10

// PushUncleanShutdownMarker appends a new unclean shutdown marker and returns
// the previous data
// - a list of timestamps
// - a count of how many old unclean-shutdowns have been discarded
// PushUncleanShutdownMarker 追加一个新的非正常关机标记并返回之前的数据。
func PushUncleanShutdownMarker(db kvdb.KeyValueStore) ([]uint64, uint64, error) {
	var uncleanShutdowns crashList
	// Read old data
	if data, err := db.Get(uncleanShutdownKey); err == nil {
		if err := rlp.DecodeBytes(data, &uncleanShutdowns); err != nil {
			return nil, 0, err
		}
	}
	var discarded = uncleanShutdowns.Discarded
	var previous = make([]uint64, len(uncleanShutdowns.Recent))
	copy(previous, uncleanShutdowns.Recent)
	// Add a new (but cap it)
	uncleanShutdowns.Recent = append(uncleanShutdowns.Recent, uint64(time.Now().Unix()))
	if count := len(uncleanShutdowns.Recent); count > crashesToKeep+1 {
		numDel := count - (crashesToKeep + 1)
		uncleanShutdowns.Recent = uncleanShutdowns.Recent[numDel:]
		uncleanShutdowns.Discarded += uint64(numDel)
	}
	// And save it again
	data, _ := rlp.EncodeToBytes(uncleanShutdowns)
	if err := db.Put(uncleanShutdownKey, data); err != nil {
		log.Warn("Failed to write unclean-shutdown marker", "err", err)
		return nil, 0, err
	}
	return previous, discarded, nil
}

// PopUncleanShutdownMarker removes the last unclean shutdown marker
func PopUncleanShutdownMarker(db kvdb.KeyValueStore) {
	var uncleanShutdowns crashList
	// Read old data
	if data, err := db.Get(uncleanShutdownKey); err != nil {
		log.Warn("Error reading unclean shutdown markers", "error", err)
	} else if err := rlp.DecodeBytes(data, &uncleanShutdowns); err != nil {
		log.Error("Error decoding unclean shutdown markers", "error", err) // Should mos def _not_ happen
	}
	if l := len(uncleanShutdowns.Recent); l > 0 {
		uncleanShutdowns.Recent = uncleanShutdowns.Recent[:l-1]
	}
	data, _ := rlp.EncodeToBytes(uncleanShutdowns)
	if err := db.Put(uncleanShutdownKey, data); err != nil {
		log.Warn("Failed to clear unclean-shutdown marker", "err", err)
	}
}

// UpdateUncleanShutdownMarker updates the last marker's timestamp to now.
func UpdateUncleanShutdownMarker(db kvdb.KeyValueStore) {
	var uncleanShutdowns crashList
	// Read old data
	if data, err := db.Get(uncleanShutdownKey); err != nil {
		log.Warn("Error reading unclean shutdown markers", "error", err)
	} else if err := rlp.DecodeBytes(data, &uncleanShutdowns); err != nil {
		log.Warn("Error decoding unclean shutdown markers", "error", err)
	}
	// This shouldn't happen because we push a marker on startup.
	if l := len(uncleanShutdowns.Recent); l > 0 {
		uncleanShutdowns.Recent[l-1] = uint64(time.Now().Unix())
	}
	data, _ := rlp.EncodeToBytes(uncleanShutdowns)
	if err := db.Put(uncleanShutdownKey, data); err != nil {
		log.Warn("Failed to write unclean-shutdown marker", "err", err)
	}
}

// ReadStoreMetadata returns a set of key/value pairs describing the state of a
// namespace. This can be used for diagnostic purposes when investigating the
// state of the validator.
func ReadStoreMetadata(db kvdb.KeyValueStore) [][]string {
	pp := func(val *uint64) string {
		if val == nil {
			return "<nil>"
		}
		return fmt.Sprintf("%d (%#x)", *val, *val)
	}
	data := [][]string{
		{"storeVersion", pp(ReadStoreVersion(db))},
	}
	if epoch := ReadEpochNumber(db); epoch != nil {
		data = append(data, []string{"epoch", pp(epoch)})
		if idx, err := ReadLastConsensusIndex(db); err == nil {
			data = append(data, []string{"lastConsensusIndex", idx.String()})
		}
		if next, err := ReadNextPendingSequence(db); err == nil {
			data = append(data, []string{"nextPendingSequence", pp(&next)})
		}
	} else {
		if next, err := ReadNextExecutedSequence(db); err == nil {
			data = append(data, []string{"nextExecutedSequence", pp(&next)})
		}
		if batch, err := ReadLastBatch(db); err == nil {
			data = append(data, []string{"lastBatch", fmt.Sprintf("[%d, %d)", batch.Batch.InitialSequence, batch.Batch.NextSequence)})
		}
		if enc, err := db.Get(uncleanShutdownKey); err == nil {
			var crashes crashList
			if rlp.DecodeBytes(enc, &crashes) == nil {
				data = append(data, []string{"uncleanShutdowns", fmt.Sprintf("%d recent, %d discarded", len(crashes.Recent), crashes.Discarded)})
			}
		}
	}
	return data
}
