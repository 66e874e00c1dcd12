package renderworker

import (
	"log/slog"

	"github.com/cryguy/renderworker/internal/core"
)

// SetLogger installs the logger used by the library. The default discards
// everything. Passing nil restores that default.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
