package keystone

import "testing"

func newTestTinyLFU(capacity int, windowRatio float64) *tinyLFU {
	return newTinyLFU(tinyLFUConfig{
		Capacity:            capacity,
		WindowRatio:         windowRatio,
		SketchWidth:         256,
		SketchDepth:         4,
		ResetIntervalSecs:   60,
		AdmissionMultiplier: 1.0,
		MinItemsThreshold:   0,
	}, DefaultTimeProvider())
}

func TestTinyLFUPutGetRoundTrip(t *testing.T) {
	c := newTestTinyLFU(10, 0.2)
	c.put("a", []byte("1"))
	v, ok := c.get("a")
	if !ok || string(v) != "1" {
		t.Fatalf("get(a) = %q, %v", v, ok)
	}
}

func TestTinyLFUOverwriteDoesNotEvict(t *testing.T) {
	c := newTestTinyLFU(4, 0.25)
	c.put("a", []byte("1"))
	_, _, evicted := c.put("a", []byte("2"))
	if evicted {
		t.Fatal("overwrite of resident key must not evict")
	}
	v, _ := c.get("a")
	if string(v) != "2" {
		t.Fatalf("get(a) = %q, want 2", v)
	}
}

func TestTinyLFUFrequencyPreference(t *testing.T) {
	// P7: after inserting N+1 distinct keys into a cache of capacity N where
	// one key is read far more often than the rest between inserts, it must
	// still be resident once the cache is full.
	c := newTestTinyLFU(4, 0.25) // window=1, main=3

	c.put("hot", []byte("v"))
	for i := 0; i < 50; i++ {
		c.get("hot")
	}

	keys := []string{"b", "c", "d", "e"}
	for _, k := range keys {
		c.put(k, []byte("v"))
		for i := 0; i < 50; i++ {
			c.get("hot")
		}
	}

	if _, ok := c.get("hot"); !ok {
		t.Fatal("frequently accessed key must survive eviction pressure")
	}
}

func TestTinyLFURemove(t *testing.T) {
	c := newTestTinyLFU(10, 0.2)
	c.put("a", []byte("1"))
	v, ok := c.remove("a")
	if !ok || string(v) != "1" {
		t.Fatalf("remove(a) = %q, %v", v, ok)
	}
	if c.contains("a") {
		t.Fatal("a must not be resident after remove")
	}
}

func TestTinyLFUEvictItemsRespectsMinItemsThreshold(t *testing.T) {
	c := newTinyLFU(tinyLFUConfig{
		Capacity: 10, WindowRatio: 0.2, SketchWidth: 64, SketchDepth: 4,
		ResetIntervalSecs: 60, AdmissionMultiplier: 1.0, MinItemsThreshold: 2,
	}, DefaultTimeProvider())
	for _, k := range []string{"a", "b", "c"} {
		c.put(k, []byte("v"))
	}

	evicted := c.evictItems(10)
	if c.len() < 2 {
		t.Fatalf("eviction pushed occupancy to %d, below minItemsThreshold 2", c.len())
	}
	if len(evicted) != 1 {
		t.Fatalf("expected exactly 1 eviction honoring the floor, got %d", len(evicted))
	}
}

func TestTinyLFUWindowMainSizing(t *testing.T) {
	// P10: W-LRU holds at most ceil(cap*window_ratio) keys; Main-LRU at most cap - |W-LRU|.
	c := newTestTinyLFU(100, 0.1)
	if c.window.capacity != 10 {
		t.Fatalf("window capacity = %d, want 10", c.window.capacity)
	}
	if c.main.capacity != 90 {
		t.Fatalf("main capacity = %d, want 90", c.main.capacity)
	}
}
