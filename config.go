// config.go: configuration for the keystone cache engine
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"runtime"
	"time"
)

// SyncPolicy controls when a WAL write is acknowledged to a caller that
// asked for a reply. None relies on OS writeback, Async rewrites the
// segment header on every flush without fsyncing, Sync fsyncs before
// acknowledging.
type SyncPolicy string

const (
	SyncNone  SyncPolicy = "none"
	SyncAsync SyncPolicy = "async"
	SyncSync  SyncPolicy = "sync"
)

// Default values. DefaultConfig sets every field from these; Config.Validate
// applies them to most fields left at zero (WAL fields only when the WAL is
// enabled). A zero WindowRatio is rejected rather than defaulted, and a zero
// MinItemsThreshold is kept; only a negative one is replaced.
const (
	DefaultNumShards              = 0 // 0 means runtime.GOMAXPROCS(0)
	DefaultMaxMemoryPerShard      = 64 << 20
	DefaultWindowRatio            = 0.01
	DefaultSketchWidth            = 1024
	DefaultSketchDepth            = 4
	DefaultMemoryHighWatermark    = 0.9
	DefaultMemoryLowWatermark     = 0.7
	DefaultResetIntervalSecs      = 60
	DefaultMaxCapacity            = 100_000
	DefaultAdmissionMultiplier    = 1.0
	DefaultMinItemsThreshold      = 1
	DefaultBatchEvictionSize      = 16
	DefaultCoordinatorInterval    = 100 * time.Millisecond
	DefaultSlotsPerWheel          = 3600
	DefaultMaxFrameBytes          = 1 << 20
	DefaultMaxKeyBytes            = 64 << 10
	DefaultMaxValueBytes          = 16 << 20
	DefaultWALMaxSegmentBytes     = 64 << 20
	DefaultWALBufferBytes         = 64 << 10
	DefaultWALFlushIntervalMillis = 100
	DefaultConnMaxConnections     = 10_000
	DefaultConnTimeoutSeconds     = 30
)

// EvictionConfig configures the TinyLFU admission/eviction policy (C2-C5, C9).
type EvictionConfig struct {
	// WindowRatio is the fraction of MaxCapacity reserved for the windowed
	// admission stage (W-LRU). Must be in (0, 1].
	WindowRatio float64
	// SketchWidth and SketchDepth size the Count-Min Sketch frequency table.
	SketchWidth int
	SketchDepth int
	// MemoryHighWatermark and MemoryLowWatermark drive the memory-pressure
	// coordinator: MemoryHighWatermark must be greater than MemoryLowWatermark.
	MemoryHighWatermark float64
	MemoryLowWatermark  float64
	// ResetIntervalSecs is the minimum wall-clock interval, in seconds,
	// between Count-Min Sketch resets once the reset threshold is reached.
	ResetIntervalSecs int
	// MaxCapacity is the number of entries the TinyLFU cache holds per shard.
	MaxCapacity int
	// Enabled turns the background memory-pressure coordinator on. If
	// false, no coordinator runs; TinyLFU capacity eviction on Put and
	// Put's own memory-limit enforcement still apply.
	Enabled bool
	// AdmissionThresholdMultiplier scales the Main-LRU victim's estimate
	// before comparing it to the window candidate's estimate; 1 means ties
	// admit, values above 1 make admission strictly stricter.
	AdmissionThresholdMultiplier float64
	// MinItemsThreshold is the floor below which forced eviction will not push a shard.
	MinItemsThreshold int
	// BatchEvictionSize is validated and defaulted but not read by the
	// coordinator, which sizes each eviction pass from the shard's
	// BytesToFree; it does not bound how many entries a pass removes.
	BatchEvictionSize int
	// AdaptiveEviction is accepted but not read: no eviction pass scales
	// its size by a shard's pressure level.
	AdaptiveEviction bool
}

// WALConfig configures the write-ahead log (C10, C11).
type WALConfig struct {
	Enabled         bool
	Dir             string
	SyncPolicy      SyncPolicy
	SyncIntervalMs  int
	MaxSegmentBytes int64
	BufferBytes     int
	// StrictDurability, when true, returns a Durability error to the client
	// if the WAL write fails, instead of the default availability-over-
	// durability behavior (apply and reply OK, log and continue).
	StrictDurability bool
}

// ConnectionConfig configures the TCP listener and per-connection limits.
type ConnectionConfig struct {
	MaxConnections int
	TimeoutSeconds int
}

// Config is the full configuration structure the core consumes. Loading it
// from a file or flags, IP allowlists and rate limiting are the caller's
// responsibility; this struct only validates and normalizes.
type Config struct {
	BindAddr string
	Port     int

	NumShards         int
	MaxMemoryPerShard int64

	Eviction   EvictionConfig
	WAL        WALConfig
	Connection ConnectionConfig

	Logger       Logger
	TimeProvider TimeProvider
	Metrics      MetricsSink

	MaxFrameBytes int
	MaxKeyBytes   int
	MaxValueBytes int
}

// DefaultConfig returns a Config with every field set to its documented default.
func DefaultConfig() Config {
	return Config{
		BindAddr:          "127.0.0.1",
		Port:              6380,
		NumShards:         DefaultNumShards,
		MaxMemoryPerShard: DefaultMaxMemoryPerShard,
		Eviction: EvictionConfig{
			WindowRatio:                  DefaultWindowRatio,
			SketchWidth:                  DefaultSketchWidth,
			SketchDepth:                  DefaultSketchDepth,
			MemoryHighWatermark:          DefaultMemoryHighWatermark,
			MemoryLowWatermark:           DefaultMemoryLowWatermark,
			ResetIntervalSecs:            DefaultResetIntervalSecs,
			MaxCapacity:                  DefaultMaxCapacity,
			Enabled:                      true,
			AdmissionThresholdMultiplier: DefaultAdmissionMultiplier,
			MinItemsThreshold:            DefaultMinItemsThreshold,
			BatchEvictionSize:            DefaultBatchEvictionSize,
		},
		WAL: WALConfig{
			Enabled:         false,
			SyncPolicy:      SyncAsync,
			SyncIntervalMs:  DefaultWALFlushIntervalMillis,
			MaxSegmentBytes: DefaultWALMaxSegmentBytes,
			BufferBytes:     DefaultWALBufferBytes,
		},
		Connection: ConnectionConfig{
			MaxConnections: DefaultConnMaxConnections,
			TimeoutSeconds: DefaultConnTimeoutSeconds,
		},
		Logger:        NoOpLogger{},
		TimeProvider:  DefaultTimeProvider(),
		Metrics:       NoOpMetricsSink{},
		MaxFrameBytes: DefaultMaxFrameBytes,
		MaxKeyBytes:   DefaultMaxKeyBytes,
		MaxValueBytes: DefaultMaxValueBytes,
	}
}

// Validate normalizes most zero-valued fields to their defaults (see the
// Default constants for the exceptions) and rejects values that can never
// produce a working engine (Fatal errors, §7).
func (c *Config) Validate() error {
	if c.NumShards <= 0 {
		c.NumShards = runtime.GOMAXPROCS(0)
		if c.NumShards < 1 {
			c.NumShards = 1
		}
	}
	if c.MaxMemoryPerShard <= 0 {
		c.MaxMemoryPerShard = DefaultMaxMemoryPerShard
	}

	ev := &c.Eviction
	if ev.WindowRatio <= 0 || ev.WindowRatio > 1 {
		return NewErrInvalidConfig("eviction.window_ratio", "must be in (0, 1]")
	}
	if ev.SketchWidth <= 0 {
		ev.SketchWidth = DefaultSketchWidth
	}
	if ev.SketchDepth <= 0 {
		ev.SketchDepth = DefaultSketchDepth
	}
	if ev.MemoryHighWatermark <= 0 {
		ev.MemoryHighWatermark = DefaultMemoryHighWatermark
	}
	if ev.MemoryLowWatermark <= 0 {
		ev.MemoryLowWatermark = DefaultMemoryLowWatermark
	}
	if ev.MemoryHighWatermark <= ev.MemoryLowWatermark {
		return NewErrInvalidConfig("eviction.memory_high_watermark", "must be greater than memory_low_watermark")
	}
	if ev.ResetIntervalSecs <= 0 {
		ev.ResetIntervalSecs = DefaultResetIntervalSecs
	}
	if ev.MaxCapacity <= 0 {
		ev.MaxCapacity = DefaultMaxCapacity
	}
	if ev.AdmissionThresholdMultiplier <= 0 {
		ev.AdmissionThresholdMultiplier = DefaultAdmissionMultiplier
	}
	if ev.MinItemsThreshold < 0 {
		ev.MinItemsThreshold = DefaultMinItemsThreshold
	}
	if ev.BatchEvictionSize <= 0 {
		ev.BatchEvictionSize = DefaultBatchEvictionSize
	}

	wal := &c.WAL
	if wal.Enabled {
		if wal.Dir == "" {
			return NewErrInvalidConfig("wal.dir", "must be set when wal.enabled is true")
		}
		switch wal.SyncPolicy {
		case SyncNone, SyncAsync, SyncSync:
		case "":
			wal.SyncPolicy = SyncAsync
		default:
			return NewErrInvalidConfig("wal.sync_policy", "must be one of none, async, sync")
		}
		if wal.MaxSegmentBytes <= 0 {
			wal.MaxSegmentBytes = DefaultWALMaxSegmentBytes
		}
		if wal.BufferBytes <= 0 {
			wal.BufferBytes = DefaultWALBufferBytes
		}
		if wal.SyncIntervalMs <= 0 {
			wal.SyncIntervalMs = DefaultWALFlushIntervalMillis
		}
	}

	conn := &c.Connection
	if conn.MaxConnections <= 0 {
		conn.MaxConnections = DefaultConnMaxConnections
	}
	if conn.TimeoutSeconds <= 0 {
		conn.TimeoutSeconds = DefaultConnTimeoutSeconds
	}

	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if c.MaxKeyBytes <= 0 {
		c.MaxKeyBytes = DefaultMaxKeyBytes
	}
	if c.MaxValueBytes <= 0 {
		c.MaxValueBytes = DefaultMaxValueBytes
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = DefaultTimeProvider()
	}
	if c.Metrics == nil {
		c.Metrics = NoOpMetricsSink{}
	}

	return nil
}
