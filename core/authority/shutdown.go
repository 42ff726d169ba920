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
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/kvdb"
)

// shutdownMarkerInterval is how often the marker of the running instance is
// refreshed.
const shutdownMarkerInterval = 5 * time.Minute

// shutdownTracker reports previous unclean shutdowns upon start. A marker is
// pushed into the perpetual namespace on startup and removed on a clean close,
// so every marker left behind is a crash the store recovered from.
//
// shutdownTracker 在启动时报告之前的非正常关机。
type shutdownTracker struct {
	db     kvdb.KeyValueStore
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newShutdownTracker(db kvdb.KeyValueStore) *shutdownTracker {
	return &shutdownTracker{db: db, stopCh: make(chan struct{})}
}

// markStartup pushes a new marker and returns the start times of the runs
// that ended without a clean shutdown.
func (t *shutdownTracker) markStartup() []time.Time {
	uncleanShutdowns, discards, err := rawdb.PushUncleanShutdownMarker(t.db)
	if err != nil {
		log.Error("Could not update unclean-shutdown-marker list", "error", err)
		return nil
	}
	if discards > 0 {
		log.Warn("Old unclean shutdowns found", "count", discards)
	}
	booted := make([]time.Time, len(uncleanShutdowns))
	for i, tstamp := range uncleanShutdowns {
		booted[i] = time.Unix(int64(tstamp), 0)
		log.Warn("Unclean shutdown detected", "booted", booted[i], "age", common.PrettyDuration(time.Since(booted[i])))
	}
	return booted
}

// start refreshes the current marker's timestamp periodically.
func (t *shutdownTracker) start() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(shutdownMarkerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rawdb.UpdateUncleanShutdownMarker(t.db)
			case <-t.stopCh:
				return
			}
		}
	}()
}

// stop ends the refresh loop and clears the current marker. It must run
// before the database is closed.
func (t *shutdownTracker) stop() {
	close(t.stopCh)
	t.wg.Wait()
	rawdb.PopUncleanShutdownMarker(t.db)
}
