// stats.go: STATS command JSON rendering
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wire

import (
	"encoding/json"

	"github.com/agilira/keystone"
)

// statsPayload is the wire-visible shape of a STATS response, deliberately
// decoupled from keystone.EngineStats so the internal struct can evolve
// without changing the protocol.
type statsPayload struct {
	TotalItems         int                 `json:"total_items"`
	TotalMemory        int64               `json:"total_memory"`
	Hits               uint64              `json:"hits"`
	Misses             uint64              `json:"misses"`
	Evictions          uint64              `json:"evictions"`
	AdmissionsAccepted uint64              `json:"admissions_accepted"`
	AdmissionsRejected uint64              `json:"admissions_rejected"`
	HitRatio           float64             `json:"hit_ratio"`
	Shards             []shardStatsPayload `json:"shards"`
}

type shardStatsPayload struct {
	ID                 int    `json:"id"`
	Items              int    `json:"items"`
	MemoryUsed         int64  `json:"memory_used"`
	MemoryLimit        int64  `json:"memory_limit"`
	Hits               uint64 `json:"hits"`
	Misses             uint64 `json:"misses"`
	Evictions          uint64 `json:"evictions"`
	AdmissionsAccepted uint64 `json:"admissions_accepted"`
	AdmissionsRejected uint64 `json:"admissions_rejected"`
}

// encodeStatsJSON renders stats as compact JSON. A nil stats (e.g. an
// error reply) renders as an empty object rather than the literal "null",
// so clients parsing the STATS line never need a null check.
func encodeStatsJSON(stats *keystone.EngineStats) []byte {
	if stats == nil {
		return []byte("{}")
	}
	payload := statsPayload{
		TotalItems:         stats.TotalItems,
		TotalMemory:        stats.TotalMemory,
		Hits:               stats.TotalHits,
		Misses:             stats.TotalMisses,
		Evictions:          stats.TotalEvictions,
		AdmissionsAccepted: stats.AdmissionsAccepted,
		AdmissionsRejected: stats.AdmissionsRejected,
		HitRatio:           stats.HitRatio(),
		Shards:             make([]shardStatsPayload, len(stats.Shards)),
	}
	for i, s := range stats.Shards {
		payload.Shards[i] = shardStatsPayload{
			ID:                 s.ID,
			Items:              s.Items,
			MemoryUsed:         s.MemoryUsed,
			MemoryLimit:        s.MemoryLimit,
			Hits:               s.Hits,
			Misses:             s.Misses,
			Evictions:          s.Evictions,
			AdmissionsAccepted: s.AdmissionsAccepted,
			AdmissionsRejected: s.AdmissionsRejected,
		}
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return []byte("{}")
	}
	return out
}
