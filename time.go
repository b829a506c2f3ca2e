// time.go: time source abstraction for the keystone cache engine
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"time"

	"github.com/agilira/go-timecache"
)

// TimeProvider supplies the current time to hot paths (memory monitor
// reads, TTL comparisons, entry timestamps) so tests can inject a
// deterministic clock without sleeping.
type TimeProvider interface {
	// NowUnix returns the current time as Unix seconds.
	NowUnix() int64
	// NowNano returns the current time as Unix nanoseconds.
	NowNano() int64
}

// cachedTimeProvider is the default TimeProvider, backed by go-timecache's
// periodically-refreshed clock so hot paths avoid the syscall cost of
// repeated time.Now() calls.
type cachedTimeProvider struct{}

func (cachedTimeProvider) NowNano() int64 {
	return timecache.CachedTimeNano()
}

func (cachedTimeProvider) NowUnix() int64 {
	return timecache.CachedTimeNano() / int64(time.Second)
}

// DefaultTimeProvider returns the cached-clock TimeProvider used when none is configured.
func DefaultTimeProvider() TimeProvider { return cachedTimeProvider{} }
