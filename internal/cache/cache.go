package cache

import "github.com/cryguy/renderworker/internal/core"

// FromConfig selects the cache described by cfg: SQLite when a path is
// set, otherwise an LRU of ResourceCacheSize entries. It returns nil when
// caching is disabled.
func FromConfig(cfg core.WorkerConfig) (core.Cache, error) {
	if cfg.ResourceCachePath != "" {
		s, err := OpenSQLite(cfg.ResourceCachePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if cfg.ResourceCacheSize <= 0 {
		return nil, nil
	}
	l, err := NewLRU(cfg.ResourceCacheSize)
	if err != nil {
		return nil, err
	}
	return l, nil
}
