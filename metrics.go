// metrics.go: metrics sink abstraction for the keystone cache engine
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import "time"

// OpKind identifies the command kind a MetricsSink observation belongs to.
type OpKind string

const (
	OpPut    OpKind = "put"
	OpGet    OpKind = "get"
	OpDel    OpKind = "del"
	OpExpire OpKind = "expire"
	OpPing   OpKind = "ping"
	OpStats  OpKind = "stats"
)

// MetricsSink is the abstract counter/gauge surface the shard manager and
// background loops emit through. It is injected explicitly rather than kept
// as module-level state, so metrics rendering (Prometheus text, an HTML
// dashboard, anything else) lives entirely outside this module and can be
// swapped or stacked without touching the core.
type MetricsSink interface {
	// RecordOp records one command's outcome and latency on a shard.
	RecordOp(shardID int, op OpKind, hit bool, latency time.Duration)
	// RecordEviction records a forced eviction of n entries on a shard.
	RecordEviction(shardID int, n int)
	// SetMemory publishes a shard's current memory usage in bytes.
	SetMemory(shardID int, bytes int64)
	// SetItems publishes a shard's current item count.
	SetItems(shardID int, n int)
}

// NoOpMetricsSink discards every observation. It is the default when no
// MetricsSink is configured.
type NoOpMetricsSink struct{}

func (NoOpMetricsSink) RecordOp(shardID int, op OpKind, hit bool, latency time.Duration) {}
func (NoOpMetricsSink) RecordEviction(shardID int, n int)                                {}
func (NoOpMetricsSink) SetMemory(shardID int, bytes int64)                               {}
func (NoOpMetricsSink) SetItems(shardID int, n int)                                      {}
