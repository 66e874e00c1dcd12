// Package renderworker renders untrusted TSX programs to images.
//
// A program exports a default function returning an element tree and an
// options record describing the output. A Session evaluates programs in a
// sandboxed JavaScript runtime, resolves the remote images they reference,
// renders the tree and publishes the encoded image. Sessions speak a small
// message protocol; Client pairs a Session with a Gate so that only the
// result of the most recent request is delivered.
package renderworker

import (
	"context"

	"github.com/cryguy/renderworker/internal/canvas"
	"github.com/cryguy/renderworker/internal/fetcher"
	"github.com/cryguy/renderworker/internal/session"
)

// Session is a running render worker.
type Session = session.Session

// Options configures a Session.
type Options = session.Options

// ResolveOptions is the fetch policy for Resolve.
type ResolveOptions = fetcher.Options

// Start creates a session and begins initialization immediately.
func Start(ctx context.Context, opts Options) *Session {
	return session.Start(ctx, opts)
}

// Resolve fetches locators concurrently under one shared timeout and
// returns one Resource per unique locator in first-occurrence order.
func Resolve(ctx context.Context, locators []string, opts ResolveOptions) ([]Resource, error) {
	return fetcher.Resolve(ctx, locators, opts)
}

// DefaultResolveOptions returns a 5 second timeout, the HTTP fetcher, fail
// on any error and no cache.
func DefaultResolveOptions() ResolveOptions {
	return fetcher.DefaultOptions()
}

// NewRenderer returns the built-in renderer. A nil fontData selects the
// bundled Go Regular font.
func NewRenderer(fontData []byte) Renderer {
	return canvas.New(fontData)
}
