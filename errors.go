// errors.go: error taxonomy for the keystone cache engine
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes, grouped by the taxonomy in the command-processing design:
// client protocol errors, not-found (not actually an error condition),
// resource exhaustion, durability, corruption, transport and fatal
// configuration failures.
const (
	ErrCodeClientProtocol    errors.ErrorCode = "KEYSTONE_CLIENT_PROTOCOL"
	ErrCodeNotFound          errors.ErrorCode = "KEYSTONE_NOT_FOUND"
	ErrCodeResourceExhausted errors.ErrorCode = "KEYSTONE_RESOURCE_EXHAUSTED"
	ErrCodeDurability        errors.ErrorCode = "KEYSTONE_DURABILITY"
	ErrCodeCorruption        errors.ErrorCode = "KEYSTONE_CORRUPTION"
	ErrCodeTransport         errors.ErrorCode = "KEYSTONE_TRANSPORT"
	ErrCodeFatal             errors.ErrorCode = "KEYSTONE_FATAL"
)

const (
	msgUnknownCommand    = "unknown command"
	msgMissingArgument   = "missing argument"
	msgOversizeFrame     = "frame exceeds maximum size"
	msgMalformedFrame    = "malformed frame"
	msgKeyTooLarge       = "key exceeds maximum size"
	msgValueTooLarge     = "value exceeds maximum size"
	msgMemoryLimit       = "memory limit exceeded"
	msgWALWriteFailed    = "write-ahead log write failed"
	msgWALClosed         = "write-ahead log writer is closed"
	msgSegmentCorrupt    = "wal segment corrupted"
	msgInvalidConfig     = "invalid configuration"
	msgWALDirUnavailable = "unable to create wal directory"
)

// NewErrUnknownCommand reports a ClientProtocol error for an unrecognized command.
func NewErrUnknownCommand(cmd string) error {
	return errors.NewWithField(ErrCodeClientProtocol, msgUnknownCommand, "command", cmd)
}

// NewErrMissingArgument reports a ClientProtocol error for a short command.
func NewErrMissingArgument(cmd string, arg string) error {
	return errors.NewWithContext(ErrCodeClientProtocol, msgMissingArgument, map[string]interface{}{
		"command":  cmd,
		"argument": arg,
	})
}

// NewErrOversizeFrame reports a ClientProtocol error for a frame over the configured limit.
func NewErrOversizeFrame(size, max int) error {
	return errors.NewWithContext(ErrCodeClientProtocol, msgOversizeFrame, map[string]interface{}{
		"size": size,
		"max":  max,
	})
}

// NewErrMalformedFrame reports a ClientProtocol error for a frame the framer cannot parse.
func NewErrMalformedFrame(reason string) error {
	return errors.NewWithField(ErrCodeClientProtocol, msgMalformedFrame, "reason", reason)
}

// NewErrKeyTooLarge reports a ClientProtocol error for an oversize key.
func NewErrKeyTooLarge(size, max int) error {
	return errors.NewWithContext(ErrCodeClientProtocol, msgKeyTooLarge, map[string]interface{}{
		"size": size,
		"max":  max,
	})
}

// NewErrValueTooLarge reports a ClientProtocol error for an oversize value.
func NewErrValueTooLarge(size, max int) error {
	return errors.NewWithContext(ErrCodeClientProtocol, msgValueTooLarge, map[string]interface{}{
		"size": size,
		"max":  max,
	})
}

// NewErrNotFound reports a NotFound condition for a key-addressed command.
// NotFound is not rendered as an ERROR frame; callers translate it to NULL.
func NewErrNotFound(key []byte) error {
	return errors.NewWithField(ErrCodeNotFound, "key not found", "key", string(key))
}

// NewErrMemoryLimitExceeded reports a ResourceExhausted error: eviction could
// not free enough space for the write to proceed. Retryable once pressure
// relieves (coordinator pass, TTL expiry).
func NewErrMemoryLimitExceeded(shardID int, needed, available int64) error {
	return errors.NewWithContext(ErrCodeResourceExhausted, msgMemoryLimit, map[string]interface{}{
		"shard_id":  shardID,
		"needed":    needed,
		"available": available,
	}).AsRetryable()
}

// NewErrWALWriteFailed wraps an underlying I/O error as a Durability error.
func NewErrWALWriteFailed(cause error, segment string) error {
	return errors.Wrap(cause, ErrCodeDurability, msgWALWriteFailed).
		WithContext("segment", segment).
		AsRetryable()
}

// NewErrWALClosed reports that the WAL writer has shut down and cannot accept more work.
func NewErrWALClosed() error {
	return errors.New(ErrCodeDurability, msgWALClosed)
}

// NewErrSegmentCorrupt reports a Corruption error for a WAL segment or entry
// that failed checksum validation.
func NewErrSegmentCorrupt(segment string, details string) error {
	return errors.NewWithContext(ErrCodeCorruption, msgSegmentCorrupt, map[string]interface{}{
		"segment": segment,
		"details": details,
	})
}

// NewErrInvalidConfig reports a Fatal configuration validation failure.
func NewErrInvalidConfig(field string, reason string) error {
	return errors.NewWithContext(ErrCodeFatal, msgInvalidConfig, map[string]interface{}{
		"field":  field,
		"reason": reason,
	})
}

// NewErrWALDirUnavailable reports a Fatal startup failure to create the WAL directory.
func NewErrWALDirUnavailable(dir string, cause error) error {
	return errors.Wrap(cause, ErrCodeFatal, msgWALDirUnavailable).WithContext("dir", dir)
}

// IsNotFound reports whether err is a NotFound condition.
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrCodeNotFound)
}

// IsResourceExhausted reports whether err is a ResourceExhausted condition.
func IsResourceExhausted(err error) bool {
	return errors.HasCode(err, ErrCodeResourceExhausted)
}

// IsRetryable reports whether err carries the retryable marker.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if goerrors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// ErrorCode extracts the structured error code from err, or "" if err does
// not carry one (e.g. a plain transport error from the net package).
func ErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}
