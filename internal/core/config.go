package core

import "time"

// WorkerConfig holds runtime configuration for a render session.
type WorkerConfig struct {
	FetchTimeoutMs    int    // shared timeout for one resource batch
	ThrowOnError      bool   // fail the whole batch on any resource failure
	EvalTimeoutMs     int    // milliseconds before sandbox evaluation is interrupted
	MemoryLimitMB     int    // per-runtime memory limit
	PoolSize          int    // number of pre-warmed sandbox runtimes
	MaxResponseBytes  int    // max resource body size
	ResourceCacheSize int    // LRU capacity; 0 disables the cache
	ResourceCachePath string // when set, resources are cached in SQLite here
	SSRFProtection    bool   // refuse fetches to private address ranges
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		FetchTimeoutMs:    5000,
		ThrowOnError:      true,
		EvalTimeoutMs:     2000,
		MemoryLimitMB:     64,
		PoolSize:          2,
		MaxResponseBytes:  10 * 1024 * 1024,
		ResourceCacheSize: 8,
		SSRFProtection:    true,
	}
}

// WithDefaults returns c with every zero numeric limit replaced by its
// DefaultConfig value. ResourceCacheSize is kept as is since zero disables
// the cache. Boolean switches cannot be told apart from unset ones, so a
// config that is entirely zero becomes DefaultConfig and any other is taken
// as given.
func (c WorkerConfig) WithDefaults() WorkerConfig {
	d := DefaultConfig()
	if c == (WorkerConfig{}) {
		return d
	}
	if c.FetchTimeoutMs <= 0 {
		c.FetchTimeoutMs = d.FetchTimeoutMs
	}
	if c.EvalTimeoutMs <= 0 {
		c.EvalTimeoutMs = d.EvalTimeoutMs
	}
	if c.MemoryLimitMB <= 0 {
		c.MemoryLimitMB = d.MemoryLimitMB
	}
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = d.MaxResponseBytes
	}
	return c
}

// FetchTimeout returns FetchTimeoutMs as a duration, defaulting to 5s.
func (c WorkerConfig) FetchTimeout() time.Duration {
	if c.FetchTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

// EvalTimeout returns EvalTimeoutMs as a duration, defaulting to 2s.
func (c WorkerConfig) EvalTimeout() time.Duration {
	if c.EvalTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.EvalTimeoutMs) * time.Millisecond
}
