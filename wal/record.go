// record.go: the WAL's on-disk header and entry formats
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// Op identifies what a Record does to the keyspace on replay.
type Op uint8

const (
	OpPut Op = iota + 1
	OpDelete
	OpExpire
)

// MaxRecordBytes refuses any single record larger than this; entries above
// it are treated as corrupt rather than trusted, per §4.8 of the WAL
// reader's recovery contract.
const MaxRecordBytes = 10 << 20

// Record is one write-ahead log entry: a key mutation with enough
// information to replay it against a fresh shard map.
type Record struct {
	Seq       uint64
	Op        Op
	Key       []byte
	Value     []byte
	ExpiresAt int64
}

// marshalHeader encodes the fixed segment header: magic(4) | version(1) |
// entry_count(8) | created_at_ms(8), followed by a trailing crc32 over
// those 21 bytes. entryCount is rewritten in place as the segment
// accumulates entries (writer.go's rewriteHeaderLocked), so a reader never
// has to fully scan a cleanly-closed segment just to learn its length.
func marshalHeader(entryCount uint64, createdAtMs int64) []byte {
	buf := make([]byte, 21+4)
	binary.LittleEndian.PutUint32(buf[0:4], segmentMagic)
	buf[4] = segmentVersion
	binary.LittleEndian.PutUint64(buf[5:13], entryCount)
	binary.LittleEndian.PutUint64(buf[13:21], uint64(createdAtMs))
	crc := crc32.ChecksumIEEE(buf[:21])
	binary.LittleEndian.PutUint32(buf[21:25], crc)
	return buf
}

// unmarshalHeader validates and decodes a segment header previously
// written by marshalHeader.
func unmarshalHeader(buf []byte) (entryCount uint64, createdAtMs int64, err error) {
	if len(buf) != 25 {
		return 0, 0, ErrBadSegmentHeader
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != segmentMagic || buf[4] != segmentVersion {
		return 0, 0, ErrBadSegmentHeader
	}
	if crc32.ChecksumIEEE(buf[:21]) != binary.LittleEndian.Uint32(buf[21:25]) {
		return 0, 0, ErrBadSegmentHeader
	}
	entryCount = binary.LittleEndian.Uint64(buf[5:13])
	createdAtMs = int64(binary.LittleEndian.Uint64(buf[13:21]))
	return entryCount, createdAtMs, nil
}

// entryBodySize is the length of the entry's encoded body, excluding its
// own length prefix but including its trailing checksum.
func (r *Record) entryBodySize() int {
	return 8 + 1 + 4 + len(r.Key) + 4 + len(r.Value) + 8 + 4
}

// marshal encodes r into buf (reset by the caller beforehand, typically a
// pooled buffer from bufpool.go) as: seq(8) | op(1) | keyLen(4) | key |
// valLen(4) | value | expiresAt(8) | crc32(4), the crc32 covering every
// byte before it. The caller prefixes buf.Bytes() with its own length as
// a separate u32.
func (r *Record) marshal(buf *bytes.Buffer) {
	buf.Grow(r.entryBodySize())

	var u64 [8]byte
	var u32 [4]byte

	binary.LittleEndian.PutUint64(u64[:], r.Seq)
	buf.Write(u64[:])
	buf.WriteByte(byte(r.Op))
	binary.LittleEndian.PutUint32(u32[:], uint32(len(r.Key)))
	buf.Write(u32[:])
	buf.Write(r.Key)
	binary.LittleEndian.PutUint32(u32[:], uint32(len(r.Value)))
	buf.Write(u32[:])
	buf.Write(r.Value)
	binary.LittleEndian.PutUint64(u64[:], uint64(r.ExpiresAt))
	buf.Write(u64[:])

	crc := crc32.ChecksumIEEE(buf.Bytes())
	binary.LittleEndian.PutUint32(u32[:], crc)
	buf.Write(u32[:])
}

// unmarshalRecord decodes one entry body (already stripped of its length
// prefix by the caller) and validates its trailing checksum.
func unmarshalRecord(body []byte) (*Record, error) {
	if len(body) < 8+1+4+4+8+4 {
		return nil, ErrTruncatedRecord
	}

	crcOffset := len(body) - 4
	wantCRC := binary.LittleEndian.Uint32(body[crcOffset:])
	gotCRC := crc32.ChecksumIEEE(body[:crcOffset])
	if gotCRC != wantCRC {
		return nil, ErrCorruptRecord
	}

	off := 0
	seq := binary.LittleEndian.Uint64(body[off : off+8])
	off += 8
	op := Op(body[off])
	off++
	keyLen := binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	if off+int(keyLen) > crcOffset {
		return nil, ErrCorruptRecord
	}
	key := make([]byte, keyLen)
	copy(key, body[off:off+int(keyLen)])
	off += int(keyLen)

	valLen := binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	if off+int(valLen)+8+4 != len(body) {
		return nil, ErrCorruptRecord
	}
	value := make([]byte, valLen)
	copy(value, body[off:off+int(valLen)])
	off += int(valLen)

	expiresAt := int64(binary.LittleEndian.Uint64(body[off : off+8]))

	return &Record{Seq: seq, Op: op, Key: key, Value: value, ExpiresAt: expiresAt}, nil
}
