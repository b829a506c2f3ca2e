// tinylfu.go: windowed TinyLFU admission/eviction policy (C5)
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"math"
	"time"
)

// tinyLFUConfig mirrors the validated fields of EvictionConfig that a
// tinyLFU cache needs, decoupled from the wire Config type so it can be
// constructed directly in tests.
type tinyLFUConfig struct {
	Capacity            int
	WindowRatio         float64
	SketchWidth         int
	SketchDepth         int
	ResetIntervalSecs   int
	AdmissionMultiplier float64
	MinItemsThreshold   int
}

// tinyLFU composes a Count-Min Sketch (C2) with a windowed admission LRU
// (C3) and a main LRU (C4) into the admission/eviction decision described
// in §4.3. All methods assume the caller holds the owning shard's lock.
type tinyLFU struct {
	window *orderedLRU
	main   *orderedLRU
	sketch *countMinSketch

	admissionMultiplier float64
	minItemsThreshold   int
	resetThreshold      uint64
	resetInterval       time.Duration
	lastReset           int64 // Unix nano, per TimeProvider

	admissionsAccepted uint64
	admissionsRejected uint64

	time TimeProvider
}

// newTinyLFU builds a tinyLFU cache. window_ratio must be in (0,1] and cap
// must be positive; both are validated by Config.Validate before reaching here.
func newTinyLFU(cfg tinyLFUConfig, tp TimeProvider) *tinyLFU {
	windowSize := int(math.Ceil(float64(cfg.Capacity) * cfg.WindowRatio))
	if windowSize < 1 {
		windowSize = 1
	}
	mainSize := cfg.Capacity - windowSize
	if mainSize < 1 {
		mainSize = 1
	}

	mult := cfg.AdmissionMultiplier
	if mult <= 0 {
		mult = 1
	}

	return &tinyLFU{
		window:              newOrderedLRU(windowSize),
		main:                newOrderedLRU(mainSize),
		sketch:              newCountMinSketch(cfg.SketchWidth, cfg.SketchDepth),
		admissionMultiplier: mult,
		minItemsThreshold:   cfg.MinItemsThreshold,
		resetThreshold:      uint64(10 * cfg.Capacity),
		resetInterval:       time.Duration(cfg.ResetIntervalSecs) * time.Second,
		time:                tp,
	}
}

// get probes the window stage then the main stage, promoting recency and
// incrementing the frequency sketch on a hit.
func (t *tinyLFU) get(key string) ([]byte, bool) {
	if v, ok := t.window.get(key); ok {
		t.sketch.increment([]byte(key))
		t.maybeResetSketch()
		return v, true
	}
	if v, ok := t.main.get(key); ok {
		t.sketch.increment([]byte(key))
		t.maybeResetSketch()
		return v, true
	}
	return nil, false
}

// contains reports presence without affecting recency or the sketch.
func (t *tinyLFU) contains(key string) bool {
	return t.window.contains(key) || t.main.contains(key)
}

// peek returns the raw stored value for key without affecting recency or
// the frequency sketch, used by expiry checks that must not count as an access.
func (t *tinyLFU) peek(key string) ([]byte, bool) {
	if v, ok := t.window.peek(key); ok {
		return v, true
	}
	return t.main.peek(key)
}

// put inserts or overwrites key. An already-resident key is overwritten in
// place in whichever stage holds it and never evicts (§4.3). A new key
// enters the window stage; if that overflows, its victim is offered
// admission into the main stage following the intended TinyLFU semantics:
// reject by discarding the candidate and leaving the main stage untouched
// (see Open Questions in spec.md — the corrected semantics, not the
// source's promote-then-undo path).
func (t *tinyLFU) put(key string, value []byte) (evictedKey string, evictedValue []byte, evicted bool) {
	if t.window.contains(key) {
		t.window.put(key, value)
		return "", nil, false
	}
	if t.main.contains(key) {
		t.main.put(key, value)
		return "", nil, false
	}

	candidateKey, candidateValue, windowEvicted := t.window.put(key, value)
	if !windowEvicted {
		return "", nil, false
	}

	if t.main.len() < t.main.capacity {
		t.main.put(candidateKey, candidateValue)
		t.admissionsAccepted++
		return "", nil, false
	}

	victimKey, victimValue, ok := t.main.peekOldest()
	if !ok {
		// main has zero capacity; nothing to compare against, admit directly.
		t.main.put(candidateKey, candidateValue)
		t.admissionsAccepted++
		return "", nil, false
	}

	candidateFreq := t.sketch.estimate([]byte(candidateKey))
	victimFreq := t.sketch.estimate([]byte(victimKey))
	threshold := uint32(math.Ceil(float64(victimFreq) * t.admissionMultiplier))

	if candidateFreq >= threshold {
		t.main.removeOldest()
		t.main.put(candidateKey, candidateValue)
		t.admissionsAccepted++
		return victimKey, victimValue, true
	}
	t.admissionsRejected++
	return candidateKey, candidateValue, true
}

// remove deletes key from whichever stage holds it.
func (t *tinyLFU) remove(key string) ([]byte, bool) {
	if v, ok := t.window.remove(key); ok {
		return v, true
	}
	return t.main.remove(key)
}

// EvictedItem is one entry removed by a forced eviction pass.
type EvictedItem struct {
	Key   string
	Value []byte
}

// evictItems forcibly removes up to n entries, draining the main stage
// oldest-first before the window stage, honoring minItemsThreshold as a
// floor below which forced eviction will not push total occupancy.
func (t *tinyLFU) evictItems(n int) []EvictedItem {
	var out []EvictedItem
	for len(out) < n {
		if t.window.len()+t.main.len() <= t.minItemsThreshold {
			break
		}
		if t.main.len() > 0 {
			k, v, ok := t.main.removeOldest()
			if !ok {
				break
			}
			out = append(out, EvictedItem{k, v})
			continue
		}
		if t.window.len() > 0 {
			k, v, ok := t.window.removeOldest()
			if !ok {
				break
			}
			out = append(out, EvictedItem{k, v})
			continue
		}
		break
	}
	return out
}

func (t *tinyLFU) len() int { return t.window.len() + t.main.len() }

// admissionStats reports how many window-overflow candidates were admitted
// into the main stage versus discarded, since the cache was constructed.
func (t *tinyLFU) admissionStats() (accepted, rejected uint64) {
	return t.admissionsAccepted, t.admissionsRejected
}

// maybeResetSketch ages the sketch once it has accumulated resetThreshold
// increments and at least resetInterval has elapsed since the last reset.
func (t *tinyLFU) maybeResetSketch() {
	if !t.sketch.shouldReset(t.resetThreshold) {
		return
	}
	now := t.time.NowNano()
	if t.lastReset != 0 && time.Duration(now-t.lastReset) < t.resetInterval {
		return
	}
	t.sketch.reset()
	t.lastReset = now
}
