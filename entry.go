// entry.go: the data model for stored entries
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"encoding/binary"
)

// MaxKeySize and MaxValueSize bound the data model (§3): keys are 1B-64KiB,
// values are 0B-16MiB. Config.MaxKeyBytes/MaxValueBytes default to these
// values; no write path checks a key or value against either the constants
// or those Config fields.
const (
	MaxKeySize   = 64 << 10
	MaxValueSize = 16 << 20
)

// Entry is an opaque byte-string value stored under an opaque byte-string
// key, with an optional absolute expiry and a reserved flags byte.
// ExpiresAt is zero when the entry never expires.
type Entry struct {
	Key       []byte
	Value     []byte
	ExpiresAt int64 // Unix seconds; 0 = no expiry
	Flags     uint8
}

// HasExpiry reports whether the entry carries a TTL.
func (e *Entry) HasExpiry() bool { return e.ExpiresAt != 0 }

// Expired reports whether the entry's expiry has passed as of now (Unix seconds).
func (e *Entry) Expired(now int64) bool {
	return e.ExpiresAt != 0 && now >= e.ExpiresAt
}

// EncodedSize returns the on-disk/in-memory binary size of the entry:
// varint(len(key)) + len(key) + varint(len(value)) + len(value) + 8 + 1.
func (e *Entry) EncodedSize() int {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(e.Key)))
	n += len(e.Key)
	m := binary.PutUvarint(buf[:], uint64(len(e.Value)))
	n += m + len(e.Value)
	return n + 8 + 1
}

// MemoryFootprint is the byte count a shard's memory monitor accounts for
// this entry: its encoded size plus an estimate of Go's own bookkeeping
// overhead for the two backing byte slices and the entry struct itself.
func (e *Entry) MemoryFootprint() int64 {
	const perEntryOverhead = 64 // map bucket + list element + struct headers
	return int64(e.EncodedSize()) + perEntryOverhead
}

// MarshalBinary encodes the entry as varint(len(key)) | key |
// varint(len(value)) | value | expires_at (int64 LE) | flags.
func (e *Entry) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, e.EncodedSize())
	var varintBuf [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(varintBuf[:], uint64(len(e.Key)))
	out = append(out, varintBuf[:n]...)
	out = append(out, e.Key...)

	n = binary.PutUvarint(varintBuf[:], uint64(len(e.Value)))
	out = append(out, varintBuf[:n]...)
	out = append(out, e.Value...)

	var expBuf [8]byte
	binary.LittleEndian.PutUint64(expBuf[:], uint64(e.ExpiresAt))
	out = append(out, expBuf[:]...)
	out = append(out, e.Flags)
	return out, nil
}

// UnmarshalEntry decodes an Entry from buf, returning the number of bytes consumed.
func UnmarshalEntry(buf []byte) (*Entry, int, error) {
	keyLen, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, 0, NewErrMalformedFrame("entry key length varint")
	}
	off := n
	if off+int(keyLen) > len(buf) {
		return nil, 0, NewErrMalformedFrame("entry key truncated")
	}
	key := make([]byte, keyLen)
	copy(key, buf[off:off+int(keyLen)])
	off += int(keyLen)

	valLen, n := binary.Uvarint(buf[off:])
	if n <= 0 {
		return nil, 0, NewErrMalformedFrame("entry value length varint")
	}
	off += n
	if off+int(valLen) > len(buf) {
		return nil, 0, NewErrMalformedFrame("entry value truncated")
	}
	value := make([]byte, valLen)
	copy(value, buf[off:off+int(valLen)])
	off += int(valLen)

	if off+9 > len(buf) {
		return nil, 0, NewErrMalformedFrame("entry trailer truncated")
	}
	expiresAt := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
	flags := buf[off+8]
	off += 9

	return &Entry{Key: key, Value: value, ExpiresAt: expiresAt, Flags: flags}, off, nil
}
