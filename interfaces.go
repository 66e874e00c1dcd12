package renderworker

import "github.com/cryguy/renderworker/internal/core"

// FetchFunc retrieves one resource. Non-2xx statuses are returned as
// responses, not errors.
type FetchFunc = core.FetchFunc

// Cache maps resource locators to payloads.
type Cache = core.Cache

// Renderer turns a node tree into an encoded image.
type Renderer = core.Renderer

// ArtifactStore publishes encoded images.
type ArtifactStore = core.ArtifactStore
