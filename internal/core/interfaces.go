package core

import (
	"context"
	"net/http"

	"github.com/cryguy/renderworker/internal/node"
)

// FetchFunc is the capability used to retrieve a single resource. The
// caller owns the response body. A non-2xx status is not an error at this
// level; status validation belongs to the resolver.
type FetchFunc func(ctx context.Context, locator string) (*http.Response, error)

// Cache maps locators to payloads. It is owned by the caller; resolvers only
// look up and insert. Implementations must be safe for concurrent use and
// decide eviction on their own.
type Cache interface {
	Get(locator string) ([]byte, bool)
	Set(locator string, data []byte)
}

// Purger is implemented by caches that can drop every entry.
type Purger interface {
	Purge()
}

// Renderer turns a node tree and options into an encoded image.
// Load is called exactly once per session before any Render call; Render
// must be safe to call concurrently afterwards.
type Renderer interface {
	Load(ctx context.Context) error
	Render(ctx context.Context, root *node.Node, opts RenderOptions, resources map[string][]byte) ([]byte, error)
}

// ArtifactStore publishes an encoded image and returns a URI for it.
type ArtifactStore interface {
	Put(ctx context.Context, key string, format Format, data []byte) (string, error)
}
