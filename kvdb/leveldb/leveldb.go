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

//go:build !js
// +build !js

// Package leveldb implements the key-value database layer based on LevelDB.
// Package leveldb 实现了基于 LevelDB 的键值数据库层。
package leveldb

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/kvdb"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// degradationWarnInterval specifies how often warning should be printed if the
	// leveldb database cannot keep up with requested writes.
	degradationWarnInterval = time.Minute

	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16

	// metricsGatheringInterval specifies the interval to retrieve leveldb database
	// compaction, io and pause stats to report to the user.
	metricsGatheringInterval = 3 * time.Second
)

// ErrTooManyKeys is returned if DeleteRange only managed a partial deletion.
var ErrTooManyKeys = errors.New("too many keys in deleted range")

// Database is a persistent key-value store. Apart from basic data storage
// functionality it also supports batch writes, snapshots and iterating over
// the keyspace in binary-alphabetical order.
//
// Database 是一个持久化的键值存储。除了基本的数据存储功能外，
// 它还支持批量写入、快照和按二进制字母顺序遍历键空间。
type Database struct {
	fn string      // filename for reporting
	db *leveldb.DB // LevelDB instance

	compTimeMeter    metrics.Meter // Meter for measuring the total time spent in database compaction
	compReadMeter    metrics.Meter // Meter for measuring the data read during compaction
	compWriteMeter   metrics.Meter // Meter for measuring the data written during compaction
	writeDelayNMeter metrics.Meter // Meter for measuring the write delay number due to database compaction
	writeDelayMeter  metrics.Meter // Meter for measuring the write delay duration due to database compaction
	diskSizeGauge    metrics.Gauge // Gauge for tracking the size of all the levels in the database
	diskReadMeter    metrics.Meter // Meter for measuring the effective amount of data read
	diskWriteMeter   metrics.Meter // Meter for measuring the effective amount of data written

	quitLock sync.Mutex      // Mutex protecting the quit channel access
	quitChan chan chan error // Quit channel to stop the metrics collection before closing the database

	log log.Logger // Contextual logger tracking the database path
}

// New returns a wrapped LevelDB object. The namespace is the prefix that the
// metrics reporting should use for surfacing internal stats.
//
// New 返回一个封装的 LevelDB 对象。namespace 是指标报告用于显示内部统计数据的前缀。
func New(file string, cache int, handles int, namespace string, readonly bool) (*Database, error) {
	return NewCustom(file, namespace, func(options *opt.Options) {
		// Ensure we have some minimal caching and file guarantees
		if cache < minCache {
			cache = minCache
		}
		if handles < minHandles {
			handles = minHandles
		}
		options.OpenFilesCacheCapacity = handles
		options.BlockCacheCapacity = cache / 2 * opt.MiB
		options.WriteBuffer = cache / 4 * opt.MiB // Two of these are used internally
		if readonly {
			options.ReadOnly = true
		}
	})
}

// NewCustom returns a wrapped LevelDB object. The namespace is the prefix that the
// metrics reporting should use for surfacing internal stats.
// The customize function allows the caller to modify the leveldb options.
//
// NewCustom 返回一个封装的 LevelDB 对象。namespace 是指标报告用于显示内部统计数据的前缀。
// customize 函数允许调用者修改 LevelDB 选项。
func NewCustom(file string, namespace string, customize func(options *opt.Options)) (*Database, error) {
	options := configureOptions(customize)
	logger := log.New("database", file)
	usedCache := options.GetBlockCacheCapacity() + options.GetWriteBuffer()*2
	logCtx := []interface{}{"cache", common.StorageSize(usedCache), "handles", options.GetOpenFilesCacheCapacity()}
	if options.ReadOnly {
		logCtx = append(logCtx, "readonly", "true")
	}
	logger.Info("Allocated cache and file handles", logCtx...)

	// Open the db and recover any potential corruptions
	db, err := leveldb.OpenFile(file, options)
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	ldb := wrap(file, db, logger)
	ldb.compTimeMeter = metrics.GetOrRegisterMeter(namespace+"compact/time", nil)
	ldb.compReadMeter = metrics.GetOrRegisterMeter(namespace+"compact/input", nil)
	ldb.compWriteMeter = metrics.GetOrRegisterMeter(namespace+"compact/output", nil)
	ldb.diskSizeGauge = metrics.GetOrRegisterGauge(namespace+"disk/size", nil)
	ldb.diskReadMeter = metrics.GetOrRegisterMeter(namespace+"disk/read", nil)
	ldb.diskWriteMeter = metrics.GetOrRegisterMeter(namespace+"disk/write", nil)
	ldb.writeDelayMeter = metrics.GetOrRegisterMeter(namespace+"compact/writedelay/duration", nil)
	ldb.writeDelayNMeter = metrics.GetOrRegisterMeter(namespace+"compact/writedelay/counter", nil)

	// Start up the metrics gathering and return
	ldb.quitChan = make(chan chan error)
	go ldb.meter(metricsGatheringInterval)
	return ldb, nil
}

// NewMemory opens a LevelDB instance over an in-memory storage. It exists for
// tests that want the exact leveldb semantics without touching the disk.
func NewMemory() (*Database, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return wrap("", db, log.New("database", "memory")), nil
}

func wrap(file string, db *leveldb.DB, logger log.Logger) *Database {
	return &Database{
		fn:  file,
		db:  db,
		log: logger,
	}
}

// configureOptions sets some default options, then runs the provided setter.
// configureOptions 设置一些默认选项，然后运行提供的设置函数。
func configureOptions(customizeFn func(*opt.Options)) *opt.Options {
	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
	}
	// Allow caller to make custom modifications to the options
	if customizeFn != nil {
		customizeFn(options)
	}
	return options
}

// Close stops the metrics collection, flushes any pending data to disk and closes
// all io accesses to the underlying key-value store.
//
// Close 停止指标收集，将任何待处理数据刷新到磁盘，并关闭对底层键值存储的所有 IO 访问。
func (db *Database) Close() error {
	db.quitLock.Lock()
	defer db.quitLock.Unlock()

	if db.quitChan != nil {
		errc := make(chan error)
		db.quitChan <- errc
		if err := <-errc; err != nil {
			db.log.Error("Metrics collection failed", "err", err)
		}
		db.quitChan = nil
	}
	return convertError(db.db.Close())
}

// convertError maps goleveldb sentinels onto the kvdb ones.
func convertError(err error) error {
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return kvdb.ErrNotFound
	case errors.Is(err, leveldb.ErrClosed), errors.Is(err, leveldb.ErrSnapshotReleased):
		return kvdb.ErrClosed
	}
	return err
}

// Has retrieves if a key is present in the key-value store.
// Has 检索键值存储中是否存在某个键。
func (db *Database) Has(key []byte) (bool, error) {
	ok, err := db.db.Has(key, nil)
	return ok, convertError(err)
}

// Get retrieves the given key if it's present in the key-value store.
// Get 如果键存在于键值存储中，则检索该键的值。
func (db *Database) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(key, nil)
	if err != nil {
		return nil, convertError(err)
	}
	return dat, nil
}

// Put inserts the given value into the key-value store.
// Put 将给定的值插入键值存储。
func (db *Database) Put(key []byte, value []byte) error {
	return convertError(db.db.Put(key, value, nil))
}

// Delete removes the key from the key-value store.
// Delete 从键值存储中移除某个键。
func (db *Database) Delete(key []byte) error {
	return convertError(db.db.Delete(key, nil))
}

// DeleteRange deletes all of the keys (and values) in the range [start,end)
// (inclusive on start, exclusive on end).
// Note that this is a fallback implementation as leveldb does not natively
// support range deletion. It can be slow and therefore the number of deleted
// keys is limited in order to avoid blocking for a very long time.
// ErrTooManyKeys is returned if the range has only been partially deleted.
// In this case the caller can repeat the call until it finally succeeds.
//
// DeleteRange 删除范围 [start,end) 内所有的键（和值）（包含 start，不包含 end）。
// 注意，这是一个回退实现，因为 LevelDB 原生不支持范围删除。
// 它可能很慢，因此限制了删除的键数量，以避免长时间阻塞。
// 如果范围仅部分删除，则返回 ErrTooManyKeys。
// 在这种情况下，调用者可以重复调用直到最终成功。
func (db *Database) DeleteRange(start, end []byte) error {
	batch := db.NewBatch()
	it := db.NewIterator(nil, start)
	defer it.Release()

	var count int
	for it.Next() && (end == nil || bytes.Compare(end, it.Key()) > 0) {
		count++
		if count > 10000 { // should not block for more than a second
			if err := batch.Write(); err != nil {
				return err
			}
			return ErrTooManyKeys
		}
		if err := batch.Delete(it.Key()); err != nil {
			return err
		}
	}
	return batch.Write()
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
// NewBatch 创建一个只写的键值存储，将更改缓冲到其宿主数据库，直到调用最终写入。
func (db *Database) NewBatch() kvdb.Batch {
	return &batch{
		db: db.db,
		b:  new(leveldb.Batch),
	}
}

// NewBatchWithSize creates a write-only database batch with pre-allocated buffer.
// NewBatchWithSize 创建一个带有预分配缓冲区的只写数据库批处理。
func (db *Database) NewBatchWithSize(size int) kvdb.Batch {
	return &batch{
		db: db.db,
		b:  leveldb.MakeBatch(size),
	}
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
// NewIterator 创建一个二进制字母顺序的迭代器，遍历数据库内容的子集，
// 该子集具有特定的键前缀，从特定的初始键开始（或之后，如果该键不存在）。
func (db *Database) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	return db.db.NewIterator(bytesPrefixRange(prefix, start), nil)
}

// NewSnapshot creates a database snapshot based on the current state.
func (db *Database) NewSnapshot() (kvdb.Snapshot, error) {
	snap, err := db.db.GetSnapshot()
	if err != nil {
		return nil, convertError(err)
	}
	return &snapshot{db: snap}, nil
}

// Stat returns the statistic data of the database.
// Stat 返回数据库的统计数据。
func (db *Database) Stat() (string, error) {
	var stats leveldb.DBStats
	if err := db.db.Stats(&stats); err != nil {
		return "", convertError(err)
	}
	var (
		message       string
		totalSize     int64
		totalTables   int
		totalDuration time.Duration
	)
	if len(stats.LevelSizes) > 0 {
		message += " Level |   Tables   |    Size(MB)   |    Time(sec)\n" +
			"-------+------------+---------------+---------------\n"
		for level, size := range stats.LevelSizes {
			duration := stats.LevelDurations[level]
			tables := stats.LevelTablesCounts[level]
			if tables == 0 && duration == 0 {
				continue
			}
			totalTables += tables
			totalSize += size
			totalDuration += duration
			message += fmt.Sprintf(" %3d   | %10d | %13.5f | %13.5f\n",
				level, tables, float64(size)/1048576.0, duration.Seconds())
		}
		message += fmt.Sprintf(" Total | %10d | %13.5f | %13.5f\n\n",
			totalTables, float64(totalSize)/1048576.0, totalDuration.Seconds())
	}
	message += fmt.Sprintf("Read(MB):%.5f Write(MB):%.5f\n", float64(stats.IORead)/1048576.0, float64(stats.IOWrite)/1048576.0)
	message += fmt.Sprintf("WriteDelayCount:%d WriteDelayDuration:%s Paused:%t\n", stats.WriteDelayCount, common.PrettyDuration(stats.WriteDelayDuration), stats.WritePaused)
	message += fmt.Sprintf("Snapshots:%d Iterators:%d\n", stats.AliveSnapshots, stats.AliveIterators)
	return message, nil
}

// Compact flattens the underlying data store for the given key range. In essence,
// deleted and overwritten versions are discarded, and the data is rearranged to
// reduce the cost of operations needed to access them.
//
// A nil start is treated as a key before all keys in the data store; a nil limit
// is treated as a key after all keys in the data store. If both is nil then it
// will compact entire data store.
//
// Compact 压缩指定键范围内的底层数据存储。本质上，删除和覆盖的版本会被丢弃，数据会被重新排列，以降低访问它们所需的操作成本。
// 如果 start 为 nil，则视为数据存储中所有键之前的一个键；如果 limit 为 nil，则视为数据存储中所有键之后的一个键。如果两者均为 nil，则压缩整个数据存储。
func (db *Database) Compact(start []byte, limit []byte) error {
	return convertError(db.db.CompactRange(util.Range{Start: start, Limit: limit}))
}

// Path returns the path to the database directory.
// Path 返回数据库目录的路径。
func (db *Database) Path() string {
	return db.fn
}

// meter periodically retrieves internal leveldb counters and reports them to
// the metrics subsystem.
//
// meter 定期检索 LevelDB 内部监控并将其报告给指标子系统。
func (db *Database) meter(refresh time.Duration) {
	var (
		errc chan error
		merr error

		stats           leveldb.DBStats
		compactions     [2][3]int64
		iostats         [2]int64
		delaystats      [2]int64
		lastWritePaused time.Time
	)
	timer := time.NewTimer(refresh)
	defer timer.Stop()

	for i := 1; errc == nil && merr == nil; i++ {
		// Stats method resets buffers inside therefore it's okay to just pass the struct.
		if err := db.db.Stats(&stats); err != nil {
			db.log.Error("Failed to read database stats", "err", err)
			merr = err
			continue
		}
		compactions[i%2] = [3]int64{}
		for _, t := range stats.LevelDurations {
			compactions[i%2][0] += t.Nanoseconds()
		}
		compactions[i%2][1] = stats.LevelRead.Sum()
		compactions[i%2][2] = stats.LevelWrite.Sum()

		db.diskSizeGauge.Update(stats.LevelSizes.Sum())
		db.compTimeMeter.Mark(compactions[i%2][0] - compactions[(i-1)%2][0])
		db.compReadMeter.Mark(compactions[i%2][1] - compactions[(i-1)%2][1])
		db.compWriteMeter.Mark(compactions[i%2][2] - compactions[(i-1)%2][2])

		var (
			delayN   = int64(stats.WriteDelayCount)
			duration = stats.WriteDelayDuration
			paused   = stats.WritePaused
		)
		db.writeDelayNMeter.Mark(delayN - delaystats[0])
		db.writeDelayMeter.Mark(duration.Nanoseconds() - delaystats[1])

		// If a warning that db is performing compaction has been displayed, any subsequent
		// warnings will be withheld for one minute not to overwhelm the user.
		if paused && delayN-delaystats[0] == 0 && duration.Nanoseconds()-delaystats[1] == 0 &&
			time.Now().After(lastWritePaused.Add(degradationWarnInterval)) {
			db.log.Warn("Database compacting, degraded performance")
			lastWritePaused = time.Now()
		}
		delaystats[0], delaystats[1] = delayN, duration.Nanoseconds()

		nRead, nWrite := int64(stats.IORead), int64(stats.IOWrite)
		db.diskReadMeter.Mark(nRead - iostats[0])
		db.diskWriteMeter.Mark(nWrite - iostats[1])
		iostats[0], iostats[1] = nRead, nWrite

		select {
		case errc = <-db.quitChan:
			// Quit requesting, stop hammering the database
		case <-timer.C:
			timer.Reset(refresh)
		}
	}
	if errc == nil {
		errc = <-db.quitChan
	}
	errc <- merr
}

// batch is a write-only leveldb batch that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
//
// batch 是一个只写的 LevelDB 批处理，在调用 Write 时将其更改提交到宿主数据库。
// 一个批处理不能并发使用。
type batch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

// Put inserts the given value into the batch for later committing.
// Put 将给定的值插入批处理中以供稍后提交。
func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the key removal into the batch for later committing.
// Delete 将键的移除操作插入批处理中以供稍后提交。
func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size += len(key)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
// ValueSize 检索排队等待写入的数据量。
func (b *batch) ValueSize() int {
	return b.size
}

// Write flushes any accumulated data to disk. A leveldb batch lands in a
// single journal record, so it is applied all-or-nothing.
func (b *batch) Write() error {
	return convertError(b.db.Write(b.b, nil))
}

// Reset resets the batch for reuse.
// Reset 重置批处理以供重用。
func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}

// Replay replays the batch contents.
// Replay 重放批处理内容。
func (b *batch) Replay(w kvdb.KeyValueWriter) error {
	r := &replayer{writer: w}
	if err := b.b.Replay(r); err != nil {
		return err
	}
	return r.failure
}

// replayer is a small wrapper to implement the correct replay methods.
// replayer 是一个小型包装器，用于实现正确的重放方法。
type replayer struct {
	writer  kvdb.KeyValueWriter
	failure error
}

// Put inserts the given value into the key-value data store.
// Put 将给定的值插入键值数据存储。
func (r *replayer) Put(key, value []byte) {
	// If the replay already failed, stop executing ops
	if r.failure != nil {
		return
	}
	r.failure = r.writer.Put(key, value)
}

// Delete removes the key from the key-value data store.
// Delete 从键值数据存储中移除某个键。
func (r *replayer) Delete(key []byte) {
	// If the replay already failed, stop executing ops
	if r.failure != nil {
		return
	}
	r.failure = r.writer.Delete(key)
}

// snapshot wraps a leveldb snapshot for implementing the Snapshot interface.
type snapshot struct {
	db *leveldb.Snapshot
}

// Has retrieves if a key is present in the snapshot.
func (snap *snapshot) Has(key []byte) (bool, error) {
	ok, err := snap.db.Has(key, nil)
	return ok, convertError(err)
}

// Get retrieves the given key if it's present in the snapshot.
func (snap *snapshot) Get(key []byte) ([]byte, error) {
	dat, err := snap.db.Get(key, nil)
	if err != nil {
		return nil, convertError(err)
	}
	return dat, nil
}

// NewIterator iterates the keys visible at the snapshot.
func (snap *snapshot) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	return snap.db.NewIterator(bytesPrefixRange(prefix, start), nil)
}

// Release releases associated resources.
func (snap *snapshot) Release() {
	snap.db.Release()
}

// bytesPrefixRange returns key range that satisfy
// - the given prefix, and
// - the given seek position
//
// bytesPrefixRange 返回满足以下条件的键范围：
// - 给定的前缀，以及
// - 给定的起始位置
func bytesPrefixRange(prefix, start []byte) *util.Range {
	r := util.BytesPrefix(prefix)
	r.Start = append(r.Start, start...)
	return r
}

var _ kvdb.KeyValueStore = (*Database)(nil)
