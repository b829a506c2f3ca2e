// errors.go: the wal package's error sentinels
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wal

import "errors"

var (
	// ErrCorruptRecord is returned by unmarshalRecord when a record's
	// checksum or internal lengths do not match its contents.
	ErrCorruptRecord = errors.New("wal: record checksum mismatch")
	// ErrTruncatedRecord is returned when a segment ends mid-record, the
	// expected shape of the last record written before an unclean shutdown.
	ErrTruncatedRecord = errors.New("wal: truncated record")
	// ErrOversizeRecord names a record whose declared body length exceeds
	// MaxRecordBytes. Replay does not return it: it counts such a record
	// toward CorruptedEntries and stops reading that segment, without
	// allocating the declared size.
	ErrOversizeRecord = errors.New("wal: record exceeds maximum size")
	// ErrBadSegmentHeader is returned when a segment file's magic or
	// version does not match what this package writes.
	ErrBadSegmentHeader = errors.New("wal: bad segment header")
	// ErrClosed is returned by Writer.Append after Close has been called.
	ErrClosed = errors.New("wal: writer is closed")
)
