package wire

import (
	"encoding/json"
	"testing"

	"github.com/agilira/keystone"
)

func TestEncodeStatsJSONRoundTrip(t *testing.T) {
	stats := &keystone.EngineStats{
		TotalItems:         3,
		TotalMemory:        1024,
		TotalHits:          8,
		TotalMisses:        2,
		TotalEvictions:     1,
		AdmissionsAccepted: 4,
		AdmissionsRejected: 1,
		Shards: []keystone.ShardStats{
			{ID: 0, Items: 2, MemoryUsed: 512, MemoryLimit: 2048, Hits: 5, Misses: 1, Evictions: 1, AdmissionsAccepted: 3, AdmissionsRejected: 1},
			{ID: 1, Items: 1, MemoryUsed: 512, MemoryLimit: 2048, Hits: 3, Misses: 1, AdmissionsAccepted: 1},
		},
	}
	out := encodeStatsJSON(stats)

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["total_items"].(float64) != 3 {
		t.Fatalf("total_items = %v, want 3", decoded["total_items"])
	}
	if decoded["hits"].(float64) != 8 {
		t.Fatalf("hits = %v, want 8", decoded["hits"])
	}
	if decoded["hit_ratio"].(float64) != stats.HitRatio() {
		t.Fatalf("hit_ratio = %v, want %v", decoded["hit_ratio"], stats.HitRatio())
	}
	shards, ok := decoded["shards"].([]interface{})
	if !ok || len(shards) != 2 {
		t.Fatalf("shards = %v", decoded["shards"])
	}
	first := shards[0].(map[string]interface{})
	if first["admissions_accepted"].(float64) != 3 {
		t.Fatalf("shard admissions_accepted = %v, want 3", first["admissions_accepted"])
	}
}

func TestEncodeStatsJSONNilIsEmptyObject(t *testing.T) {
	out := encodeStatsJSON(nil)
	if string(out) != "{}" {
		t.Fatalf("encodeStatsJSON(nil) = %q, want {}", out)
	}
}
