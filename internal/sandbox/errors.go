package sandbox

import "fmt"

// ErrorKind classifies a sandbox failure.
type ErrorKind string

const (
	KindTransform ErrorKind = "transform"
	KindRuntime   ErrorKind = "runtime"
	KindSchema    ErrorKind = "schema"
	KindTimeout   ErrorKind = "timeout"
)

// Error is returned by every sandbox stage. Message is safe to forward to
// the requester.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func runtimeError(format string, args ...any) *Error {
	return &Error{Kind: KindRuntime, Message: fmt.Sprintf(format, args...)}
}
