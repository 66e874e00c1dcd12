// Package server exposes render sessions over HTTP.
//
//	GET  /healthz  liveness and shared session state
//	GET  /ws       one session per connection, protocol messages as JSON frames
//	POST /render   one-shot render through the shared session
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/cryguy/renderworker/internal/core"
	"github.com/cryguy/renderworker/internal/sandbox"
	"github.com/cryguy/renderworker/internal/session"
)

// MaxRequestBytes bounds the body of POST /render.
const MaxRequestBytes = 1 << 20

// Server routes HTTP traffic to render sessions.
type Server struct {
	opts   session.Options
	shared *session.Session
	ready  chan struct{}

	nextID  atomic.Int64
	mu      sync.Mutex
	waiters map[int64]chan core.RenderResult

	router chi.Router
}

// New starts the shared session used by POST /render. Every WebSocket
// connection gets its own session built from the same options.
func New(ctx context.Context, opts session.Options) *Server {
	s := &Server{
		opts:    opts,
		ready:   make(chan struct{}),
		waiters: make(map[int64]chan core.RenderResult),
	}
	shared := opts
	shared.ID = "shared"
	s.shared = session.Start(ctx, shared)
	go s.dispatch()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Post("/render", s.handleRender)
	s.router = r
	return s
}

// Handler returns the router wrapped for cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.router, &http2.Server{})
}

// Close terminates the shared session.
func (s *Server) Close() {
	s.shared.Terminate()
	<-s.shared.Done()
}

// dispatch routes results of the shared session to their waiting requests.
func (s *Server) dispatch() {
	var once sync.Once
	for msg := range s.shared.Outbox() {
		switch msg.Type {
		case core.MessageReady:
			once.Do(func() { close(s.ready) })
		case core.MessageRenderResult:
			s.mu.Lock()
			ch, ok := s.waiters[msg.ID]
			delete(s.waiters, msg.ID)
			s.mu.Unlock()
			if ok && msg.Result != nil {
				ch <- *msg.Result
			}
		case core.MessageError:
			core.Logger().Error("server: shared session error", "message", msg.Message)
		}
	}
}

type renderRequest struct {
	Code string `json:"code"`
}

type renderResponse struct {
	ID     int64              `json:"id"`
	Result *core.RenderResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, renderResponse{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeJSON(w, http.StatusBadRequest, renderResponse{Error: "code is required"})
		return
	}

	ctx := r.Context()
	select {
	case <-s.ready:
	case <-s.shared.Done():
		writeJSON(w, http.StatusServiceUnavailable, renderResponse{Error: "render session is not available"})
		return
	case <-ctx.Done():
		writeJSON(w, http.StatusServiceUnavailable, renderResponse{Error: ctx.Err().Error()})
		return
	}

	id := s.nextID.Add(1)
	ch := make(chan core.RenderResult, 1)
	s.mu.Lock()
	s.waiters[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiters, id)
		s.mu.Unlock()
	}()

	msg := core.Message{Type: core.MessageRenderRequest, ID: id, Code: req.Code}
	if err := s.shared.Send(ctx, msg); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, renderResponse{ID: id, Error: err.Error()})
		return
	}

	select {
	case res := <-ch:
		status := http.StatusOK
		if !res.OK() {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, renderResponse{ID: id, Result: &res})
	case <-s.shared.Done():
		writeJSON(w, http.StatusServiceUnavailable, renderResponse{ID: id, Error: "render session terminated"})
	case <-ctx.Done():
		status := http.StatusServiceUnavailable
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, renderResponse{ID: id, Error: ctx.Err().Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.shared.State().String(),
		"engine": sandbox.Engine,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		core.Logger().Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
