// hash.go: deterministic key hashing for shard routing
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

// FNV-1a 64-bit constants (fixed, process-independent).
const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// hashKey returns a stable 64-bit hash of key.
//
// Shard routing (route(key) = hash64(key) mod N) must return the same
// shard for the same key bytes across process restarts with the same
// num_shards (P5): a WAL-replayed key has to land back on the shard it was
// written from, and an engine restarted with an unchanged shard count must
// not silently orphan data onto a different shard. That rules out any
// hasher seeded randomly per process (including the default behavior of
// github.com/dolthub/maphash and the stdlib hash/maphash, both of which
// this module otherwise prefers) — FNV-1a's offset and prime are fixed
// constants, so this is the one place keystone reaches for a standard-
// library-only hash instead of a pack dependency. See DESIGN.md.
func hashKey(key []byte) uint64 {
	h := fnvOffset64
	for _, b := range key {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	return h
}

// shardIndex maps a key's hash to one of numShards shards.
func shardIndex(keyHash uint64, numShards int) int {
	if numShards <= 1 {
		return 0
	}
	return int(keyHash % uint64(numShards))
}
