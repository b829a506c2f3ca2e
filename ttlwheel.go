// ttlwheel.go: hashed timing wheel for TTL expiration (C7)
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"github.com/gammazero/deque"
)

// ttlEntry is one key's position in the wheel, carrying the expiry it was
// scheduled under so a tick can tell a stale scheduling apart from a live one.
type ttlEntry struct {
	key       string
	expiresAt int64
}

// ttlWheel is a hashed timing wheel of slotCount one-second slots. A key
// with a TTL beyond the wheel's horizon (slotCount seconds) is held in an
// overflow deque and re-inserted into the wheel once it comes into range,
// the standard technique for bounding wheel memory independent of the
// longest TTL in use. Every method assumes the caller holds the owning
// shard's lock (§5); the wheel carries no lock of its own.
type ttlWheel struct {
	slots       []map[string]struct{}
	slotCount   int
	currentTick int64 // absolute second tick of slots[currentTick % slotCount]

	index map[string]int // key -> absolute tick it is scheduled at (wheel or overflow)

	overflow *deque.Deque[ttlEntry]
}

// newTTLWheel creates a wheel with slotCount slots, each covering one second
// of horizon, with nowSecs as its current tick (slot nowSecs mod slotCount).
func newTTLWheel(slotCount int, nowSecs int64) *ttlWheel {
	if slotCount < 1 {
		slotCount = DefaultSlotsPerWheel
	}
	slots := make([]map[string]struct{}, slotCount)
	for i := range slots {
		slots[i] = make(map[string]struct{})
	}
	return &ttlWheel{
		slots:       slots,
		slotCount:   slotCount,
		currentTick: nowSecs,
		index:       make(map[string]int),
		overflow:    deque.New[ttlEntry](),
	}
}

// add schedules key to expire at expiresAt (Unix seconds), replacing any
// existing schedule for key. Keys within the wheel's horizon are placed
// directly in a slot; keys beyond it go to the overflow deque.
func (w *ttlWheel) add(key string, expiresAt int64) {
	w.remove(key)

	horizon := w.currentTick + int64(w.slotCount) - 1
	if expiresAt <= horizon {
		tick := expiresAt
		if tick < w.currentTick {
			tick = w.currentTick
		}
		slot := w.slotFor(tick)
		w.slots[slot][key] = struct{}{}
		w.index[key] = int(tick)
		return
	}

	w.overflow.PushBack(ttlEntry{key: key, expiresAt: expiresAt})
	w.index[key] = -1 // sentinel: lives in overflow, not a wheel slot
}

// remove cancels any pending expiry schedule for key. It is a no-op if key
// has no schedule. Overflow entries are left in the deque and filtered out
// lazily on tick, since the deque has no efficient random-removal primitive.
func (w *ttlWheel) remove(key string) {
	tick, ok := w.index[key]
	if !ok {
		return
	}
	delete(w.index, key)
	if tick < 0 {
		return // was in overflow; lazily dropped on tick
	}
	slot := w.slotFor(int64(tick))
	delete(w.slots[slot], key)
}

// tick advances the wheel by one second and returns every key whose
// schedule is due, draining the current slot and then, on every tick,
// re-homing any overflow entries that now fit within the horizon.
// The caller must reconfirm each returned key's actual stored expiry
// before deleting it: a key may have been overwritten with a new TTL (or
// none) since it was scheduled, in which case remove/add already
// retargeted it and it will not appear here again under the old schedule.
func (w *ttlWheel) tick() []string {
	slot := w.slotFor(w.currentTick)
	due := w.slots[slot]
	out := make([]string, 0, len(due))
	for key := range due {
		if tick, ok := w.index[key]; ok && int64(tick) == w.currentTick {
			out = append(out, key)
			delete(w.index, key)
		}
	}
	w.slots[slot] = make(map[string]struct{})

	w.currentTick++
	w.drainOverflow()
	return out
}

// drainOverflow re-homes overflow entries that now fall within the wheel's
// horizon, and discards entries whose schedule was superseded by a later
// add/remove (index no longer points at them).
func (w *ttlWheel) drainOverflow() {
	horizon := w.currentTick + int64(w.slotCount) - 1
	n := w.overflow.Len()
	for i := 0; i < n; i++ {
		e := w.overflow.PopFront()

		tick, ok := w.index[e.key]
		if !ok || tick != -1 {
			continue // superseded by a newer schedule, or already canceled
		}

		if e.expiresAt > horizon {
			w.overflow.PushBack(e)
			continue
		}

		target := e.expiresAt
		if target < w.currentTick {
			target = w.currentTick
		}
		slot := w.slotFor(target)
		w.slots[slot][e.key] = struct{}{}
		w.index[e.key] = int(target)
	}
}

func (w *ttlWheel) slotFor(tick int64) int {
	return int(((tick % int64(w.slotCount)) + int64(w.slotCount)) % int64(w.slotCount))
}

// len reports the total number of keys with a live expiry schedule.
func (w *ttlWheel) len() int { return len(w.index) }
