// Package session coordinates one render worker: it owns a sandbox, a
// renderer and a resource cache, and speaks the worker message protocol
// over a pair of channels.
//
// Requests are evaluated one at a time on the session goroutine. Resource
// resolution, rendering and artifact upload for each request then run on
// their own goroutine, so results for different requests can arrive in any
// order. Every result echoes the id of its request; discarding stale results
// is the consumer's job.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cryguy/renderworker/internal/artifact"
	"github.com/cryguy/renderworker/internal/cache"
	"github.com/cryguy/renderworker/internal/canvas"
	"github.com/cryguy/renderworker/internal/core"
	"github.com/cryguy/renderworker/internal/fetcher"
	"github.com/cryguy/renderworker/internal/sandbox"
)

// DefaultInboxSize is the inbox buffer used when Options.InboxSize is unset.
const DefaultInboxSize = 32

// Options configures a session. Zero fields select defaults.
type Options struct {
	// ID names the session in artifact keys and logs. Empty generates one.
	ID string
	// Config has its zero limits filled by WorkerConfig.WithDefaults.
	// Boolean switches are taken as given unless Config is entirely zero.
	Config core.WorkerConfig
	// Renderer defaults to the canvas renderer with the built-in font.
	Renderer core.Renderer
	// Store defaults to inline data URIs.
	Store core.ArtifactStore
	// Cache defaults to the cache described by Config. The session never
	// closes a cache it was given.
	Cache core.Cache
	// Fetch defaults to the HTTP fetcher built from Config.
	Fetch core.FetchFunc
	// PersistentImages seeds the persistent image store. Their locators
	// are served from the store and never fetched.
	PersistentImages map[string][]byte
	InboxSize        int
}

// Session is a running render worker.
type Session struct {
	id     string
	opts   Options
	inbox  chan core.Message
	outbox chan core.Message
	state  atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	tails  sync.WaitGroup

	sandbox   *sandbox.Sandbox
	cache     core.Cache
	ownsCache bool
	fetchOpts fetcher.Options
	images    *imageStore
}

// Start creates a session and begins initialization immediately. ready is
// sent on the outbox once the renderer and the sandbox are loaded. Messages
// sent before that wait in the inbox.
func Start(ctx context.Context, opts Options) *Session {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	opts.Config = opts.Config.WithDefaults()
	if opts.Renderer == nil {
		opts.Renderer = canvas.New(nil)
	}
	if opts.Store == nil {
		opts.Store = artifact.DataURIStore{}
	}
	if opts.Fetch == nil {
		opts.Fetch = fetcher.NewHTTPFetcher(opts.Config).Fetch
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:     opts.ID,
		opts:   opts,
		inbox:  make(chan core.Message, opts.InboxSize),
		outbox: make(chan core.Message, opts.InboxSize),
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
		images: newImageStore(opts.PersistentImages),
	}
	s.setState(core.StateInitializing)
	go s.run()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Inbox accepts protocol messages.
func (s *Session) Inbox() chan<- core.Message { return s.inbox }

// Outbox carries protocol messages. It is closed after the session
// terminates and in-flight requests have drained.
func (s *Session) Outbox() <-chan core.Message { return s.outbox }

// Done is closed when the session has fully stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() core.State { return core.State(s.state.Load()) }

// Send delivers msg to the inbox unless ctx ends or the session stops first.
func (s *Session) Send(ctx context.Context, msg core.Message) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.New("session terminated")
	}
}

// Terminate stops the session. Results still in flight are dropped.
func (s *Session) Terminate() {
	s.setState(core.StateTerminated)
	s.cancel()
}

func (s *Session) setState(st core.State) {
	for {
		cur := core.State(s.state.Load())
		if cur == core.StateTerminated || cur == st {
			return
		}
		if s.state.CompareAndSwap(int32(cur), int32(st)) {
			core.Logger().Debug("session: state", "session", s.id, "from", cur, "to", st)
			return
		}
	}
}

func (s *Session) run() {
	defer func() {
		s.setState(core.StateTerminated)
		s.cancel()
		s.tails.Wait()
		s.release()
		close(s.outbox)
		close(s.done)
	}()

	if err := s.init(); err != nil {
		core.Logger().Error("session: initialization failed", "session", s.id, "error", err)
		s.emit(core.Message{Type: core.MessageError, Message: err.Error()})
		return
	}
	s.setState(core.StateReady)
	s.emit(core.Message{Type: core.MessageReady})
	core.Logger().Info("session: ready", "session", s.id, "engine", sandbox.Engine)

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.inbox:
			if !ok {
				return
			}
			s.handle(msg)
		}
	}
}

func (s *Session) init() error {
	if err := s.opts.Renderer.Load(s.ctx); err != nil {
		return fmt.Errorf("loading renderer: %w", err)
	}
	sb, err := sandbox.New(s.opts.Config)
	if err != nil {
		return fmt.Errorf("starting sandbox: %w", err)
	}
	s.sandbox = sb

	s.cache = s.opts.Cache
	if s.cache == nil {
		c, err := cache.FromConfig(s.opts.Config)
		if err != nil {
			return fmt.Errorf("opening resource cache: %w", err)
		}
		s.cache = c
		s.ownsCache = true
	}
	s.fetchOpts = fetcher.OptionsFromConfig(s.opts.Config, s.opts.Fetch, s.cache)
	return nil
}

func (s *Session) release() {
	if s.sandbox != nil {
		s.sandbox.Close()
	}
	if c, ok := s.cache.(io.Closer); ok && s.ownsCache {
		if err := c.Close(); err != nil {
			core.Logger().Warn("session: closing cache", "session", s.id, "error", err)
		}
	}
	core.Logger().Info("session: terminated", "session", s.id)
}

// emit sends msg unless the session has been terminated.
func (s *Session) emit(msg core.Message) {
	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.outbox <- msg:
	case <-s.ctx.Done():
	}
}

func (s *Session) handle(msg core.Message) {
	switch msg.Type {
	case core.MessageRenderRequest:
		s.render(core.RenderRequest{ID: msg.ID, Code: msg.Code})
	case core.MessagePurgeCache:
		if p, ok := s.cache.(core.Purger); ok {
			p.Purge()
			core.Logger().Info("session: resource cache purged", "session", s.id)
		}
	case core.MessagePutImage:
		if msg.Src == "" {
			s.emit(core.Message{Type: core.MessageError, ID: msg.ID, Message: core.MessagePutImage + ": missing src"})
			return
		}
		s.images.put(msg.Src, msg.Data)
		core.Logger().Debug("session: persistent image stored", "session", s.id, "src", msg.Src, "bytes", len(msg.Data))
	case core.MessageClearImages:
		s.images.clear()
		core.Logger().Info("session: persistent images cleared", "session", s.id)
	default:
		core.Logger().Warn("session: unknown message type", "session", s.id, "type", msg.Type)
		s.emit(core.Message{Type: core.MessageError, ID: msg.ID, Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}
