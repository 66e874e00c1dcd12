package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cryguy/renderworker/internal/artifact"
	"github.com/cryguy/renderworker/internal/core"
	"github.com/cryguy/renderworker/internal/fetcher"
	"github.com/cryguy/renderworker/internal/node"
)

// render evaluates req on the session goroutine and hands the rest of the
// pipeline to a tail goroutine.
func (s *Session) render(req core.RenderRequest) {
	start := time.Now()
	log := core.Logger().With("session", s.id, "id", req.ID)

	exports, err := s.sandbox.Evaluate(s.ctx, req.Code)
	if err != nil {
		log.Info("render: evaluation failed", "error", err)
		s.emitResult(req.ID, errorResult(err))
		return
	}
	root, err := node.FromJSX(exports.Element)
	if err != nil {
		log.Info("render: invalid element tree", "error", err)
		s.emitResult(req.ID, errorResult(err))
		return
	}

	s.tails.Add(1)
	go func() {
		defer s.tails.Done()
		result := s.finish(s.ctx, req.ID, root, exports.Options, start)
		log.Info("render: done", "status", result.Status, "duration_ms", result.DurationMs)
		s.emitResult(req.ID, result)
	}()
}

// finish resolves resources not held in the persistent image store, renders and publishes the artifact. Panics
// become error results.
func (s *Session) finish(ctx context.Context, id int64, root *node.Node, opts core.RenderOptions, start time.Time) (result core.RenderResult) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(fmt.Errorf("render panic: %v", r))
		}
	}()

	persistent := s.images.snapshot()
	var locators []string
	for _, loc := range node.ExtractResourceURLs(root) {
		if _, ok := persistent[loc]; !ok {
			locators = append(locators, loc)
		}
	}
	resources, err := fetcher.Resolve(ctx, locators, s.fetchOpts)
	if err != nil {
		return errorResult(err)
	}
	available := core.ResourceMap(resources)
	for src, data := range persistent {
		available[src] = data
	}
	data, err := s.opts.Renderer.Render(ctx, root, opts, available)
	if err != nil {
		return errorResult(err)
	}
	elapsed := time.Since(start)

	uri, err := s.opts.Store.Put(ctx, artifact.Key(s.id, id, opts.Format), opts.Format, data)
	if err != nil {
		return errorResult(fmt.Errorf("publishing artifact: %w", err))
	}
	return core.RenderResult{
		Status:      core.StatusOK,
		ArtifactURI: uri,
		DurationMs:  float64(elapsed.Microseconds()) / 1000,
		Options:     &opts,
	}
}

func (s *Session) emitResult(id int64, result core.RenderResult) {
	result.ID = id
	s.emit(core.Message{Type: core.MessageRenderResult, ID: id, Result: &result})
}

func errorResult(err error) core.RenderResult {
	return core.RenderResult{Status: core.StatusError, Message: err.Error()}
}
