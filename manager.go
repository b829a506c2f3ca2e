// manager.go: shard routing, command dispatch, and stats aggregation (C12)
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"sync"
	"time"

	"github.com/agilira/keystone/wal"
)

// Manager owns every shard, routes commands to the shard a key hashes to,
// and runs the background coordinator and (when enabled) WAL writer.
// Routing uses a fixed, seed-free hash (hash.go) so a key always lands on
// the same shard across restarts, which WAL replay depends on (P5).
type Manager struct {
	shards   []*Shard
	cfg      Config
	coord    *Coordinator
	walw     *wal.Writer
	logger   Logger
	metrics  MetricsSink
	time     TimeProvider

	expireWG     sync.WaitGroup
	expireCancel context.CancelFunc
}

// NewManager validates cfg, constructs one shard per cfg.NumShards, wires
// the memory-pressure coordinator, and — if cfg.WAL.Enabled — opens (or
// replays) the write-ahead log.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		time:    cfg.TimeProvider,
	}

	m.shards = make([]*Shard, cfg.NumShards)
	evictors := make([]evictor, cfg.NumShards)
	for i := 0; i < cfg.NumShards; i++ {
		s := NewShard(ShardConfig{
			ID:             i,
			MaxMemoryBytes: cfg.MaxMemoryPerShard,
			LowWatermark:   cfg.Eviction.MemoryLowWatermark,
			HighWatermark:  cfg.Eviction.MemoryHighWatermark,
			TinyLFU: tinyLFUConfig{
				Capacity:            cfg.Eviction.MaxCapacity,
				WindowRatio:         cfg.Eviction.WindowRatio,
				SketchWidth:         cfg.Eviction.SketchWidth,
				SketchDepth:         cfg.Eviction.SketchDepth,
				ResetIntervalSecs:   cfg.Eviction.ResetIntervalSecs,
				AdmissionMultiplier: cfg.Eviction.AdmissionThresholdMultiplier,
				MinItemsThreshold:   cfg.Eviction.MinItemsThreshold,
			},
			SlotsPerWheel: DefaultSlotsPerWheel,
			Time:          cfg.TimeProvider,
			Metrics:       cfg.Metrics,
		})
		m.shards[i] = s
		evictors[i] = s
	}

	if cfg.Eviction.Enabled {
		m.coord = NewCoordinator(evictors, DefaultCoordinatorInterval, 256, cfg.Logger, cfg.Metrics)
	}

	if cfg.WAL.Enabled {
		w, err := wal.NewWriter(wal.WriterConfig{
			Dir:             cfg.WAL.Dir,
			SyncPolicy:      walSyncPolicy(cfg.WAL.SyncPolicy),
			FlushInterval:   time.Duration(cfg.WAL.SyncIntervalMs) * time.Millisecond,
			MaxSegmentBytes: cfg.WAL.MaxSegmentBytes,
			BufferBytes:     cfg.WAL.BufferBytes,
		})
		if err != nil {
			return nil, NewErrWALDirUnavailable(cfg.WAL.Dir, err)
		}
		m.walw = w

		if _, err := wal.Replay(cfg.WAL.Dir, m.applyReplayed); err != nil {
			w.Close()
			return nil, NewErrSegmentCorrupt(cfg.WAL.Dir, err.Error())
		}
	}

	return m, nil
}

func walSyncPolicy(p SyncPolicy) wal.SyncPolicy {
	switch p {
	case SyncSync:
		return wal.SyncSync
	case SyncAsync:
		return wal.SyncAsync
	default:
		return wal.SyncNone
	}
}

// applyReplayed re-applies one WAL record directly against the in-memory
// shards, bypassing the normal Process path so replay never re-logs what
// it is replaying (§4.9's "Logged" stage is skipped on this path).
func (m *Manager) applyReplayed(rec *wal.Record) error {
	shard := m.shardFor(rec.Key)
	switch rec.Op {
	case wal.OpPut:
		// A replay-time ResourceExhausted is tolerated, not propagated: I5
		// only guarantees the set of live keys modulo entries evicted by
		// memory pressure during replay, so a shard that cannot admit this
		// record simply ends up without it rather than aborting recovery.
		shard.Put(rec.Key, rec.Value, rec.ExpiresAt)
	case wal.OpDelete:
		shard.Delete(rec.Key)
	case wal.OpExpire:
		shard.Expire(rec.Key, rec.ExpiresAt)
	}
	return nil
}

// Start launches the background coordinator and TTL-expiry ticker. Safe to
// call once; ctx cancellation (or Stop) ends both loops.
func (m *Manager) Start(ctx context.Context) {
	if m.coord != nil {
		m.coord.Start(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.expireCancel = cancel
	m.expireWG.Add(1)
	go func() {
		defer m.expireWG.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := m.time.NowUnix()
				for _, s := range m.shards {
					n := s.ExpireTick(now)
					if n > 0 {
						m.metrics.RecordOp(s.ID(), OpExpire, false, 0)
					}
				}
			}
		}
	}()
}

// Stop halts the coordinator and expiry ticker and closes the WAL writer, if any.
func (m *Manager) Stop() {
	if m.coord != nil {
		m.coord.Stop()
	}
	if m.expireCancel != nil {
		m.expireCancel()
		m.expireWG.Wait()
	}
	if m.walw != nil {
		m.walw.Close()
	}
}

// shardFor returns the shard key is routed to: hash64(key) mod N (§4.8).
func (m *Manager) shardFor(key []byte) *Shard {
	idx := shardIndex(hashKey(key), len(m.shards))
	return m.shards[idx]
}

// Process dispatches cmd to the shard its key routes to, logging to the
// WAL first for mutating commands. PUT/GET/DEL/EXPIRE route by key; PING
// and STATS never touch a shard's TinyLFU cache (§4.9).
func (m *Manager) Process(ctx context.Context, cmd Command) Reply {
	start := m.time.NowNano()
	op := OpKindFor(cmd.Kind)

	switch cmd.Kind {
	case CmdPing:
		m.metrics.RecordOp(-1, op, true, 0)
		return Reply{OK: true}

	case CmdStats:
		stats := m.Stats()
		m.metrics.RecordOp(-1, op, true, 0)
		return Reply{OK: true, Stats: &stats}

	case CmdPut:
		shard := m.shardFor(cmd.Key)
		expiresAt := m.absoluteExpiry(cmd.TTLSeconds)
		if err := m.logIfEnabled(ctx, wal.OpPut, cmd.Key, cmd.Value, expiresAt); err != nil {
			if m.cfg.WAL.StrictDurability {
				return Reply{OK: false, Err: err}
			}
			m.logger.Warn("wal append failed, continuing per availability policy", "error", err)
		}
		_, _, putErr := shard.Put(cmd.Key, cmd.Value, expiresAt)
		m.recordLatency(shard.ID(), op, putErr == nil, start)
		if putErr != nil {
			return Reply{OK: false, Err: putErr}
		}
		return Reply{OK: true}

	case CmdGet:
		shard := m.shardFor(cmd.Key)
		entry, ok := shard.Get(cmd.Key, m.time.NowUnix())
		m.recordLatency(shard.ID(), op, ok, start)
		if !ok {
			return Reply{OK: true, Found: false, Err: NewErrNotFound(cmd.Key)}
		}
		return Reply{OK: true, Found: true, Value: entry.Value}

	case CmdDelete:
		shard := m.shardFor(cmd.Key)
		if err := m.logIfEnabled(ctx, wal.OpDelete, cmd.Key, nil, 0); err != nil {
			if m.cfg.WAL.StrictDurability {
				return Reply{OK: false, Err: err}
			}
			m.logger.Warn("wal append failed, continuing per availability policy", "error", err)
		}
		_, found := shard.Delete(cmd.Key)
		m.recordLatency(shard.ID(), op, found, start)
		return Reply{OK: true, Found: found}

	case CmdExpire:
		shard := m.shardFor(cmd.Key)
		expiresAt := m.absoluteExpiry(cmd.TTLSeconds)
		if err := m.logIfEnabled(ctx, wal.OpExpire, cmd.Key, nil, expiresAt); err != nil {
			if m.cfg.WAL.StrictDurability {
				return Reply{OK: false, Err: err}
			}
			m.logger.Warn("wal append failed, continuing per availability policy", "error", err)
		}
		found := shard.Expire(cmd.Key, expiresAt)
		m.recordLatency(shard.ID(), op, found, start)
		return Reply{OK: true, Found: found}

	default:
		return Reply{OK: false, Err: NewErrUnknownCommand("unrecognized command kind")}
	}
}

// absoluteExpiry converts a client-supplied relative TTL in seconds into an
// absolute Unix-second expiry, 0 meaning no expiry. WAL records and shard
// storage only ever deal in absolute expiries, so replay is unaffected by
// how long ago the original command was issued.
func (m *Manager) absoluteExpiry(ttlSeconds int64) int64 {
	if ttlSeconds <= 0 {
		return 0
	}
	return m.time.NowUnix() + ttlSeconds
}

func (m *Manager) logIfEnabled(ctx context.Context, op wal.Op, key, value []byte, expiresAt int64) error {
	if m.walw == nil {
		return nil
	}
	err := m.walw.Append(ctx, &wal.Record{Op: op, Key: key, Value: value, ExpiresAt: expiresAt})
	if err != nil {
		return NewErrWALWriteFailed(err, m.cfg.WAL.Dir)
	}
	return nil
}

func (m *Manager) recordLatency(shardID int, op OpKind, hit bool, startNano int64) {
	elapsed := time.Duration(m.time.NowNano() - startNano)
	m.metrics.RecordOp(shardID, op, hit, elapsed)
}

// EngineStats aggregates every shard's occupancy and counters for the STATS command.
type EngineStats struct {
	Shards             []ShardStats
	TotalItems         int
	TotalMemory        int64
	TotalHits          uint64
	TotalMisses        uint64
	TotalEvictions     uint64
	AdmissionsAccepted uint64
	AdmissionsRejected uint64
}

// HitRatio reports the fraction of Get calls across all shards that were
// hits, 0 when no Get has been issued yet.
func (e EngineStats) HitRatio() float64 {
	total := e.TotalHits + e.TotalMisses
	if total == 0 {
		return 0
	}
	return float64(e.TotalHits) / float64(total)
}

// Stats returns a point-in-time snapshot across all shards.
func (m *Manager) Stats() EngineStats {
	out := EngineStats{Shards: make([]ShardStats, len(m.shards))}
	for i, s := range m.shards {
		st := s.Stats()
		out.Shards[i] = st
		out.TotalItems += st.Items
		out.TotalMemory += st.MemoryUsed
		out.TotalHits += st.Hits
		out.TotalMisses += st.Misses
		out.TotalEvictions += st.Evictions
		out.AdmissionsAccepted += st.AdmissionsAccepted
		out.AdmissionsRejected += st.AdmissionsRejected
	}
	return out
}
