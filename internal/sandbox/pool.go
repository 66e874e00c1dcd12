package sandbox

import (
	"fmt"
	"sync"

	"github.com/cryguy/renderworker/internal/core"
)

// pool keeps a few bootstrapped runtimes ready. Runtimes are handed out
// once and never returned; every take schedules a replacement.
type pool struct {
	ready         chan core.JSRuntime
	memoryLimitMB int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// newPool creates a pool and fills it synchronously.
func newPool(size, memoryLimitMB int) (*pool, error) {
	if size < 1 {
		size = 1
	}
	p := &pool{
		ready:         make(chan core.JSRuntime, size),
		memoryLimitMB: memoryLimitMB,
	}
	for i := 0; i < size; i++ {
		rt, err := p.create()
		if err != nil {
			p.dispose()
			return nil, fmt.Errorf("creating pool runtime %d: %w", i, err)
		}
		p.ready <- rt
	}
	return p, nil
}

// create builds one runtime with the sandbox bootstrap installed.
func (p *pool) create() (core.JSRuntime, error) {
	rt, err := newRuntime(p.memoryLimitMB)
	if err != nil {
		return nil, err
	}
	if err := rt.RegisterFunc("__rw_console", logConsole); err != nil {
		rt.Close()
		return nil, fmt.Errorf("registering console bridge: %w", err)
	}
	if err := rt.Eval(bootstrapJS); err != nil {
		rt.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return rt, nil
}

// get takes a ready runtime, or builds one when the pool is drained.
func (p *pool) get() (core.JSRuntime, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("sandbox pool is closed")
	}
	p.wg.Add(1)
	p.mu.Unlock()
	go p.refill()

	select {
	case rt := <-p.ready:
		return rt, nil
	default:
		return p.create()
	}
}

func (p *pool) refill() {
	defer p.wg.Done()
	rt, err := p.create()
	if err != nil {
		core.Logger().Error("sandbox: refilling runtime pool", "error", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		rt.Close()
		return
	}
	select {
	case p.ready <- rt:
	default:
		rt.Close()
	}
}

// dispose closes every idle runtime and waits for pending refills.
func (p *pool) dispose() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	for {
		select {
		case rt := <-p.ready:
			rt.Close()
		default:
			return
		}
	}
}

func logConsole(level, message string) {
	log := core.Logger()
	switch level {
	case "error":
		log.Error(message, "source", "console")
	case "warn":
		log.Warn(message, "source", "console")
	case "debug":
		log.Debug(message, "source", "console")
	default:
		log.Info(message, "source", "console")
	}
}
