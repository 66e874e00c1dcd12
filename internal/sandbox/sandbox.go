// Package sandbox evaluates untrusted render programs.
//
// A program is TSX/TypeScript source whose default export returns an
// element tree and whose "options" export describes the output image.
// Evaluation runs in a fresh JavaScript runtime with no timers, network or
// filesystem; the only module names it can require are the JSX runtime and
// the node helpers.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/cryguy/renderworker/internal/core"
)

// Sandbox evaluates render programs. It is safe for concurrent use; each
// evaluation gets its own runtime.
type Sandbox struct {
	cfg    core.WorkerConfig
	pool   *pool
	schema *jsonschema.Schema
}

// New compiles the options schema and pre-warms cfg.PoolSize runtimes.
func New(cfg core.WorkerConfig) (*Sandbox, error) {
	sch, err := compileOptionsSchema()
	if err != nil {
		return nil, err
	}
	p, err := newPool(cfg.PoolSize, cfg.MemoryLimitMB)
	if err != nil {
		return nil, err
	}
	return &Sandbox{cfg: cfg, pool: p, schema: sch}, nil
}

// Close releases idle runtimes.
func (s *Sandbox) Close() {
	s.pool.dispose()
}

// Evaluate transforms code, runs it, validates its exports and invokes the
// default export. Every failure is returned as *Error.
func (s *Sandbox) Evaluate(ctx context.Context, code string) (*core.Exports, error) {
	script, err := Transform(code)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, runtimeError("evaluation cancelled: %v", err)
	}

	rt, err := s.pool.get()
	if err != nil {
		return nil, runtimeError("acquiring runtime: %v", err)
	}
	return s.run(ctx, rt, script)
}

func (s *Sandbox) run(ctx context.Context, rt core.JSRuntime, script string) (exports *core.Exports, err error) {
	timeout := s.cfg.EvalTimeout()
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var (
		timedOut atomic.Bool
		mu       sync.Mutex
		closed   bool
	)
	interrupt := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			rt.Interrupt()
		}
	}
	watchdog := time.AfterFunc(time.Until(deadline), func() {
		timedOut.Store(true)
		interrupt()
	})
	stop := context.AfterFunc(ctx, interrupt)

	defer func() {
		watchdog.Stop()
		stop()
		mu.Lock()
		closed = true
		mu.Unlock()
		if r := recover(); r != nil {
			exports = nil
			err = runtimeError("panic: %v", r)
		}
		if err != nil && timedOut.Load() {
			err = &Error{Kind: KindTimeout, Message: fmt.Sprintf("evaluation exceeded %v", timeout)}
		}
		rt.Close()
	}()

	if err := rt.Eval(fmt.Sprintf(loadJS, script)); err != nil {
		return nil, runtimeError("%v", err)
	}

	shape, err := rt.EvalString(inspectJS)
	if err != nil {
		return nil, runtimeError("inspecting exports: %v", err)
	}
	var info struct {
		Callable bool   `json:"callable"`
		Options  string `json:"options"`
	}
	if err := json.Unmarshal([]byte(shape), &info); err != nil {
		return nil, runtimeError("inspecting exports: %v", err)
	}
	if !info.Callable {
		return nil, &Error{Kind: KindSchema, Message: "default export must be a function"}
	}
	opts, err := validateOptions(s.schema, info.Options)
	if err != nil {
		return nil, err
	}

	if err := rt.Eval(invokeJS); err != nil {
		return nil, runtimeError("%v", err)
	}
	element, err := awaitResult(rt, deadline)
	if err != nil {
		return nil, err
	}
	return &core.Exports{Element: json.RawMessage(element), Options: opts}, nil
}

// awaitResult pumps microtasks until the default export's value settles or
// the deadline passes.
func awaitResult(rt core.JSRuntime, deadline time.Time) (string, error) {
	for {
		rt.RunMicrotasks()

		state, err := rt.EvalString("String(__rw.state)")
		if err != nil {
			return "", runtimeError("checking result state: %v", err)
		}
		switch state {
		case "fulfilled":
			result, err := rt.EvalString("String(__rw.result)")
			if err != nil {
				return "", runtimeError("reading result: %v", err)
			}
			return result, nil
		case "rejected":
			msg, _ := rt.EvalString("String(__rw.result)")
			return "", runtimeError("%s", msg)
		}

		if time.Now().After(deadline) {
			return "", &Error{Kind: KindTimeout, Message: "default export did not settle before the deadline"}
		}
		runtime.Gosched()
	}
}
