package keystone

import "testing"

func TestHashKeyStability(t *testing.T) {
	key := []byte("shard-routing-key")
	h1 := hashKey(key)
	h2 := hashKey(key)
	if h1 != h2 {
		t.Fatalf("hashKey not stable across calls: %d != %d", h1, h2)
	}
}

func TestShardIndexStableAcrossCalls(t *testing.T) {
	key := []byte("alpha")
	h := hashKey(key)
	for i := 0; i < 100; i++ {
		if got := shardIndex(h, 16); got != shardIndex(hashKey(key), 16) {
			t.Fatalf("shardIndex drifted: %d", got)
		}
	}
}

func TestShardIndexWithinRange(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc"), []byte(""), []byte("a long key with spaces")}
	for _, k := range keys {
		idx := shardIndex(hashKey(k), 8)
		if idx < 0 || idx >= 8 {
			t.Fatalf("shardIndex(%q) = %d, out of [0,8)", k, idx)
		}
	}
}

func TestShardIndexDistributesAcrossShards(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		seen[shardIndex(hashKey(key), 16)] = true
	}
	if len(seen) < 8 {
		t.Fatalf("expected reasonable shard spread, got only %d distinct shards", len(seen))
	}
}
