// doc.go: package overview for the keystone cache engine
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

// Package keystone implements an in-process, network-accessible key-value
// cache engine. Clients talk to it over TCP (see package wire); the engine
// stores opaque byte-string values under byte-string keys, expires them on a
// TTL, and admits/evicts entries under memory pressure using a windowed
// TinyLFU policy backed by a Count-Min Sketch frequency estimator. Writes can
// optionally be persisted to a write-ahead log (see package wal) so they
// survive restarts.
//
// # Architecture
//
// Keys are distributed across a fixed number of shards by a stable 64-bit
// hash (hash.go). Each Shard (shard.go) owns an exclusive-locked TinyLFU
// cache (tinylfu.go), a TTL wheel (ttlwheel.go) and a memory monitor
// (memory.go). The Manager (manager.go) routes commands to shards, fans out
// STATS aggregation, and owns the memory-pressure Coordinator and, when
// configured, the WAL writer.
//
// # Concurrency
//
// Each shard is guarded by a single exclusive lock; LRU maintenance on read
// requires mutation, so reader/writer lock separation is not used. Memory
// counters are atomic and may be transiently inconsistent with actual usage
// by at most one operation. Background loops (the coordinator, the TTL
// ticker, the WAL writer) never hold a shard lock across an I/O boundary.
package keystone
