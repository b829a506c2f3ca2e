// shard.go: a single cache shard (C8)
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import "sync"

// Shard owns one slice of the keyspace: its own entry map, TinyLFU cache,
// TTL wheel, and memory monitor, all behind a single exclusive lock. §5
// deliberately uses one lock rather than a reader/writer pair because a Get
// mutates LRU recency and the sketch, so there is no read path that does
// not also write.
type Shard struct {
	id int

	mu      sync.Mutex
	cache   *tinyLFU
	wheel   *ttlWheel
	monitor *MemoryMonitor
	time    TimeProvider
	metrics MetricsSink

	items     int
	hits      uint64
	misses    uint64
	evictions uint64
}

// ShardConfig collects the per-shard construction parameters derived from
// a validated Config.
type ShardConfig struct {
	ID                int
	MaxMemoryBytes    int64
	LowWatermark      float64
	HighWatermark     float64
	TinyLFU           tinyLFUConfig
	SlotsPerWheel     int
	Time              TimeProvider
	Metrics           MetricsSink
}

// NewShard constructs shard id with its own cache, wheel, and monitor.
func NewShard(cfg ShardConfig) *Shard {
	tp := cfg.Time
	if tp == nil {
		tp = DefaultTimeProvider()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoOpMetricsSink{}
	}
	return &Shard{
		id:      cfg.ID,
		cache:   newTinyLFU(cfg.TinyLFU, tp),
		wheel:   newTTLWheel(cfg.SlotsPerWheel, tp.NowUnix()),
		monitor: NewMemoryMonitor(cfg.ID, cfg.MaxMemoryBytes, cfg.LowWatermark, cfg.HighWatermark),
		time:    tp,
		metrics: metrics,
	}
}

// ID returns the shard's index, 0 <= ID < NumShards.
func (s *Shard) ID() int { return s.id }

// Monitor exposes the shard's memory monitor to the coordinator.
func (s *Shard) Monitor() *MemoryMonitor { return s.monitor }

// Put inserts or overwrites key with value and an optional absolute Unix-
// second expiry (0 = no expiry), admitting it through the TinyLFU policy.
// It returns the entry that TinyLFU evicted to make room, if any. If the
// write would push the shard over its configured memory limit and forced
// eviction cannot free enough space, it returns a ResourceExhausted error
// and leaves the shard unchanged (§4.6: put → Ok | MemoryLimitExceeded).
func (s *Shard) Put(key []byte, value []byte, expiresAt int64) (evicted *Entry, didEvict bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{Key: key, Value: value, ExpiresAt: expiresAt}
	encoded, encErr := entry.MarshalBinary()
	if encErr != nil {
		return nil, false, encErr
	}
	footprint := entry.MemoryFootprint()

	k := string(key)
	existedBefore := false
	var existingFootprint int64
	if old, ok := s.cache.peek(k); ok {
		existedBefore = true
		if oldEntry, _, perr := UnmarshalEntry(old); perr == nil {
			existingFootprint = oldEntry.MemoryFootprint()
		}
	}

	if limit := s.monitor.Limit(); limit > 0 {
		projected := s.monitor.Used() - existingFootprint + footprint
		if projected > limit {
			if !s.freeSpaceLocked(projected - limit) {
				available := limit - (s.monitor.Used() - existingFootprint)
				return nil, false, NewErrMemoryLimitExceeded(s.id, footprint, available)
			}
		}
	}

	evKey, evVal, wasEvicted := s.cache.put(k, encoded)

	if !existedBefore {
		s.items++
	}
	s.monitor.Adjust(footprint - existingFootprint)

	if expiresAt != 0 {
		s.wheel.add(k, expiresAt)
	} else {
		s.wheel.remove(k)
	}

	if wasEvicted {
		victim, _, verr := UnmarshalEntry(evVal)
		if verr == nil {
			victim.Key = []byte(evKey)
			s.wheel.remove(evKey)
			s.items--
			s.monitor.Adjust(-victim.MemoryFootprint())
			s.evictions++
			s.metrics.RecordEviction(s.id, 1)
			return victim, true, nil
		}
	}
	return nil, false, nil
}

// freeSpaceLocked forcibly evicts entries, oldest-first, until at least
// needed bytes have been reclaimed or the minimum-occupancy floor is hit.
// Caller must hold s.mu. Reports whether enough space was freed.
func (s *Shard) freeSpaceLocked(needed int64) bool {
	var freed int64
	for freed < needed {
		victims := s.cache.evictItems(1)
		if len(victims) == 0 {
			return false
		}
		entry, _, err := UnmarshalEntry(victims[0].Value)
		if err != nil {
			continue
		}
		s.wheel.remove(victims[0].Key)
		s.items--
		fp := entry.MemoryFootprint()
		s.monitor.Adjust(-fp)
		s.evictions++
		s.metrics.RecordEviction(s.id, 1)
		freed += fp
	}
	return true
}

// Get retrieves the entry for key, transparently expiring it (lazy
// expiration fallback, §4.5) if its TTL has passed even though the wheel
// has not yet ticked past it.
func (s *Shard) Get(key []byte, nowSecs int64) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, ok := s.cache.get(string(key))
	if !ok {
		s.misses++
		return nil, false
	}
	entry, _, err := UnmarshalEntry(encoded)
	if err != nil {
		s.misses++
		return nil, false
	}
	entry.Key = key

	if entry.Expired(nowSecs) {
		s.removeLocked(string(key), entry)
		s.misses++
		return nil, false
	}
	s.hits++
	return entry, true
}

// Expire replaces key's absolute expiry in place (0 clears it), leaving its
// value and admission state untouched. It never inserts a new key: a miss
// reports found=false, per the EXPIRE command's "OK if present else NULL"
// contract (§4.9).
func (s *Shard) Expire(key []byte, expiresAt int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := string(key)
	encoded, ok := s.cache.peek(k)
	if !ok {
		return false
	}
	entry, _, err := UnmarshalEntry(encoded)
	if err != nil {
		return false
	}
	entry.ExpiresAt = expiresAt
	newEncoded, _ := entry.MarshalBinary()
	s.cache.put(k, newEncoded)

	if expiresAt != 0 {
		s.wheel.add(k, expiresAt)
	} else {
		s.wheel.remove(k)
	}
	return true
}

// Delete removes key, returning its last value if present.
func (s *Shard) Delete(key []byte) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, ok := s.cache.remove(string(key))
	if !ok {
		return nil, false
	}
	entry, _, err := UnmarshalEntry(encoded)
	if err != nil {
		return nil, false
	}
	entry.Key = key
	s.wheel.remove(string(key))
	s.items--
	s.monitor.Adjust(-entry.MemoryFootprint())
	return entry, true
}

// removeLocked drops entry from the cache and wheel; caller must hold s.mu.
func (s *Shard) removeLocked(key string, entry *Entry) {
	s.cache.remove(key)
	s.wheel.remove(key)
	s.items--
	s.monitor.Adjust(-entry.MemoryFootprint())
}

// ExpireTick advances the shard's TTL wheel by one second, removing every
// entry whose schedule is now due and confirming, per key, that its stored
// entry still carries that exact expiry (it may have been overwritten with
// a new TTL or none since it was scheduled).
func (s *Shard) ExpireTick(nowSecs int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := s.wheel.tick()
	expired := 0
	for _, key := range due {
		encoded, ok := s.cache.peek(key)
		if !ok {
			continue
		}
		entry, _, err := UnmarshalEntry(encoded)
		if err != nil || !entry.Expired(nowSecs) {
			continue
		}
		s.cache.remove(key)
		s.items--
		s.monitor.Adjust(-entry.MemoryFootprint())
		s.metrics.RecordEviction(s.id, 1)
		expired++
	}
	return expired
}

// Evict forcibly removes up to n entries under memory pressure, driven by
// the Coordinator (C9). It never pushes total occupancy below the shard's
// configured minimum item threshold.
func (s *Shard) Evict(n int) []EvictedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	victims := s.cache.evictItems(n)
	for _, v := range victims {
		entry, _, err := UnmarshalEntry(v.Value)
		if err != nil {
			continue
		}
		s.wheel.remove(v.Key)
		s.items--
		s.monitor.Adjust(-entry.MemoryFootprint())
		s.evictions++
	}
	return victims
}

// ShardStats summarizes one shard's occupancy and counters for the STATS
// command, matching §4.6's stats() contract field for field.
type ShardStats struct {
	ID                 int
	Items              int
	MemoryUsed         int64
	MemoryLimit        int64
	Hits               uint64
	Misses             uint64
	Evictions          uint64
	AdmissionsAccepted uint64
	AdmissionsRejected uint64
}

// Stats returns a point-in-time snapshot of the shard's occupancy and counters.
func (s *Shard) Stats() ShardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepted, rejected := s.cache.admissionStats()
	return ShardStats{
		ID:                 s.id,
		Items:              s.items,
		MemoryUsed:         s.monitor.Used(),
		MemoryLimit:        s.monitor.Limit(),
		Hits:               s.hits,
		Misses:             s.misses,
		Evictions:          s.evictions,
		AdmissionsAccepted: accepted,
		AdmissionsRejected: rejected,
	}
}
