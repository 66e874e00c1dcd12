package renderworker

import "github.com/cryguy/renderworker/internal/core"

// Message is the envelope of every protocol message.
type Message = core.Message

// RenderRequest asks a session to evaluate and render a program.
type RenderRequest = core.RenderRequest

// RenderResult is the outcome of one render request.
type RenderResult = core.RenderResult

// RenderOptions are the validated output options of a render program.
type RenderOptions = core.RenderOptions

// Format is an output image encoding.
type Format = core.Format

// Resource is a resolved external resource.
type Resource = core.Resource

// State is the lifecycle stage of a session.
type State = core.State

const (
	MessageReady         = core.MessageReady
	MessageRenderRequest = core.MessageRenderRequest
	MessageRenderResult  = core.MessageRenderResult
	MessagePurgeCache    = core.MessagePurgeCache
	MessagePutImage      = core.MessagePutImage
	MessageClearImages   = core.MessageClearImages
	MessageError         = core.MessageError

	StatusOK    = core.StatusOK
	StatusError = core.StatusError

	FormatPNG  = core.FormatPNG
	FormatJPEG = core.FormatJPEG
	FormatWebP = core.FormatWebP

	StateUninitialized = core.StateUninitialized
	StateInitializing  = core.StateInitializing
	StateReady         = core.StateReady
	StateTerminated    = core.StateTerminated
)
