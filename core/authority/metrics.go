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

import "github.com/ethereum/go-ethereum/metrics"

var (
	commitAppliedMeter    = metrics.NewRegisteredMeter("authority/commit/applied", nil)
	commitIdempotentMeter = metrics.NewRegisteredMeter("authority/commit/idempotent", nil)
	commitTimer           = metrics.NewRegisteredTimer("authority/commit/time", nil)
	executedSequenceGauge = metrics.NewRegisteredGauge("authority/sequence/next", nil)

	consensusAssignedMeter  = metrics.NewRegisteredMeter("authority/consensus/assigned", nil)
	consensusDuplicateMeter = metrics.NewRegisteredMeter("authority/consensus/duplicate", nil)
	consensusRejectedMeter  = metrics.NewRegisteredMeter("authority/consensus/rejected", nil)
	consensusIndexGauge     = metrics.NewRegisteredGauge("authority/consensus/index", nil)

	pendingGauge         = metrics.NewRegisteredGauge("authority/pending", nil)
	driverDeferredMeter  = metrics.NewRegisteredMeter("authority/driver/deferred", nil)
	objectCacheHitMeter  = metrics.NewRegisteredMeter("authority/objects/cache/hit", nil)
	objectCacheMissMeter = metrics.NewRegisteredMeter("authority/objects/cache/miss", nil)
)
