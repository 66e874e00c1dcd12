package renderworker

import "github.com/cryguy/renderworker/internal/core"

// Config holds runtime configuration for a render session.
type Config = core.WorkerConfig

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return core.DefaultConfig()
}
