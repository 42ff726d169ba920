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
	"syscall"
)

var (
	ErrStorageIO              = errors.New("storage i/o failure")                     // 底层引擎失败
	ErrAlreadyExecuted        = errors.New("certificate already executed")            // 幂等短路
	ErrConsensusIndexMismatch = errors.New("consensus index mismatch")                // 共识输入丢失或乱序
	ErrObjectNotFound         = errors.New("object not found")                        // 对象不存在
	ErrSharedObjectNotFound   = errors.New("shared object not found")                 // 共享对象不存在
	ErrVersionNotAssigned     = errors.New("shared object version not assigned")      // 尚未分配版本
	ErrEffectsMismatch        = errors.New("effects do not match execution record")   // 效果与记录不一致
	ErrPruneUnsafe            = errors.New("object version still referenced")         // 修剪不安全
	ErrEpochClosed            = errors.New("epoch store closed")                      // 纪元已关闭
	ErrEpochMismatch          = errors.New("epoch database belongs to another epoch") // 纪元不匹配
	ErrPendingExecution       = errors.New("certificates pending execution")          // 队列未清空
	ErrReadOnly               = errors.New("store opened read-only")                  // 只读
	ErrDatadirUsed            = errors.New("datadir already used by another process") // 数据目录已被使用

	datadirInUseErrnos = map[uint]bool{11: true, 32: true, 35: true}
)

func convertFileLockError(err error) error {
	if errno, ok := err.(syscall.Errno); ok && datadirInUseErrnos[uint(errno)] {
		return ErrDatadirUsed
	}
	return err
}

// StorageError is returned when the key-value engine fails. The operation was
// not applied and may be retried as a whole.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageIO, e.Err)
}

// Is lets errors.Is match ErrStorageIO.
func (e *StorageError) Is(target error) bool { return target == ErrStorageIO }

// Unwrap returns the engine error.
func (e *StorageError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ConsensusIndexError is returned when the consensus feed skips ahead or
// redelivers a conflicting message. It is fatal to the consensus task.
//
// ConsensusIndexError 在共识输入跳跃或重复投递冲突消息时返回。
type ConsensusIndexError struct {
	Expected uint64
	Got      uint64
	Conflict bool // same index, different message
}

func (e *ConsensusIndexError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("%v: conflicting message at index %d", ErrConsensusIndexMismatch, e.Got)
	}
	return fmt.Sprintf("%v: expected %d, got %d", ErrConsensusIndexMismatch, e.Expected, e.Got)
}

// Unwrap lets errors.Is match ErrConsensusIndexMismatch.
func (e *ConsensusIndexError) Unwrap() error { return ErrConsensusIndexMismatch }
