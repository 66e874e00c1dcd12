package core

// JSRuntime abstracts the JavaScript engine (QuickJS or V8) that evaluates
// render programs. A runtime is single-use: it is closed after one
// evaluation and never returned to a pool.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// RegisterFunc registers a Go function taking string arguments as a
	// global JavaScript function. A (T, error) return throws on error.
	RegisterFunc(name string, fn any) error

	// RunMicrotasks pumps the microtask queue (Promise callbacks).
	// V8: PerformMicrotaskCheckpoint, QuickJS: ExecutePendingJob loop.
	RunMicrotasks()

	// Interrupt aborts the script currently running. It is safe to call
	// from another goroutine.
	Interrupt()

	// Close releases the engine.
	Close()
}
