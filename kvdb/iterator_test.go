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
package kvdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpperBound(t *testing.T) {
	tests := []struct {
		prefix []byte
		limit  []byte
	}{
		{[]byte{0x01, 0x02}, []byte{0x01, 0x03}},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0xff, 0xff}, nil},
		{[]byte{}, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.limit, UpperBound(tt.prefix), "prefix %x", tt.prefix)
	}
}

type recordingBatch struct {
	Batch
	puts, deletes int
}

func (b *recordingBatch) Put(key, value []byte) error { b.puts++; return nil }
func (b *recordingBatch) Delete(key []byte) error      { b.deletes++; return nil }

func TestHookedBatch(t *testing.T) {
	var (
		inner   = new(recordingBatch)
		hooked  []string
		deleted []string
	)
	b := HookedBatch{
		Batch:    inner,
		OnPut:    func(key, value []byte) { hooked = append(hooked, string(key)) },
		OnDelete: func(key []byte) { deleted = append(deleted, string(key)) },
	}
	b.Put([]byte("a"), nil)
	b.Put([]byte("b"), nil)
	b.Delete([]byte("c"))

	assert.Equal(t, []string{"a", "b"}, hooked)
	assert.Equal(t, []string{"c"}, deleted)
	assert.Equal(t, 2, inner.puts)
	assert.Equal(t, 1, inner.deletes)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(ErrClosed))
}
