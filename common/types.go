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

// Package common contains the fixed-size identifiers shared by every layer of
// the authority store.
// Package common 包含权威存储各层共享的定长标识符。
package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// DigestLength is the expected length of a content digest.
	DigestLength = 32
	// AddressLength is the expected length of an address and of an object id.
	AddressLength = 20
)

var errInvalidHex = errors.New("invalid hex string")

// Digest is a 32-byte content hash: transaction, effects, object and batch
// digests all share this representation.
// Digest 是 32 字节的内容哈希：交易、效果、对象和批次摘要都使用此表示。
type Digest [DigestLength]byte

// BytesToDigest sets b to digest. If b is larger than len(d), b will be
// cropped from the left.
func BytesToDigest(b []byte) Digest {
	var d Digest
	d.SetBytes(b)
	return d
}

// HexToDigest parses an optionally 0x-prefixed hex string.
func HexToDigest(s string) (Digest, error) {
	var d Digest
	b, err := fromHex(s, DigestLength)
	if err != nil {
		return d, err
	}
	copy(d[:], b)
	return d, nil
}

// SetBytes sets the digest to the value of b, cropping from the left.
func (d *Digest) SetBytes(b []byte) {
	if len(b) > len(d) {
		b = b[len(b)-DigestLength:]
	}
	copy(d[DigestLength-len(b):], b)
}

// Bytes gets the byte representation of the digest.
func (d Digest) Bytes() []byte { return d[:] }

// Hex converts the digest to a 0x-prefixed hex string.
func (d Digest) Hex() string { return "0x" + hex.EncodeToString(d[:]) }

// String implements fmt.Stringer.
func (d Digest) String() string { return d.Hex() }

// TerminalString implements log.TerminalStringer, formatting a shortened
// digest for console output during logging.
func (d Digest) TerminalString() string {
	return fmt.Sprintf("%x..%x", d[:3], d[29:])
}

// IsZero reports whether the digest is all zeroes.
func (d Digest) IsZero() bool { return d == Digest{} }

// Address identifies an account that can own objects.
// Address 标识可以拥有对象的账户。
type Address [AddressLength]byte

// BytesToAddress returns Address with value b, cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses an optionally 0x-prefixed hex string.
func HexToAddress(s string) (Address, error) {
	var a Address
	b, err := fromHex(s, AddressLength)
	if err != nil {
		return a, err
	}
	copy(a[:], b)
	return a, nil
}

// Bytes gets the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex converts the address to a 0x-prefixed hex string.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// TerminalString implements log.TerminalStringer.
func (a Address) TerminalString() string {
	return fmt.Sprintf("%x..%x", a[:3], a[17:])
}

func fromHex(s string, size int) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidHex, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: want %d bytes, have %d", errInvalidHex, size, len(b))
	}
	return b, nil
}
