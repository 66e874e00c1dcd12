package core

import "encoding/json"

// Message types exchanged with a render session.
const (
	MessageReady         = "ready"
	MessageRenderRequest = "render-request"
	MessageRenderResult  = "render-result"
	MessagePurgeCache    = "purge-cache"
	MessagePutImage      = "put-persistent-image"
	MessageClearImages   = "clear-image-store"
	MessageError         = "error"
)

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is the envelope for every inbound and outbound protocol message.
// Only the fields relevant to Type are populated.
type Message struct {
	Type    string        `json:"type"`
	ID      int64         `json:"id,omitempty"`
	Code    string        `json:"code,omitempty"`
	Result  *RenderResult `json:"result,omitempty"`
	Message string        `json:"message,omitempty"`
	Src     string        `json:"src,omitempty"`
	Data    []byte        `json:"data,omitempty"`
}

// RenderRequest asks the session to evaluate and render Code. ID is a
// freshness token assigned by the caller.
type RenderRequest struct {
	ID   int64
	Code string
}

// RenderResult is the outcome of one RenderRequest. ID always echoes the
// request that produced it.
type RenderResult struct {
	ID          int64          `json:"-"`
	Status      string         `json:"status"`
	ArtifactURI string         `json:"artifactUri,omitempty"`
	DurationMs  float64        `json:"durationMs,omitempty"`
	Options     *RenderOptions `json:"options,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// OK reports whether the result carries an artifact.
func (r RenderResult) OK() bool { return r.Status == StatusOK }

// Format is an output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// MIMEType returns the media type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// MaxDevicePixels bounds the canvas area after device pixel scaling, and
// the decoded area of any single source image.
const MaxDevicePixels = 32 << 20

// RenderOptions are the validated output options exported by a render
// program. Quality is only meaningful for jpeg; webp output is lossless.
type RenderOptions struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Format           Format  `json:"format"`
	Quality          int     `json:"quality,omitempty"`
	DevicePixelRatio float64 `json:"devicePixelRatio,omitempty"`
	DrawDebugBorder  bool    `json:"drawDebugBorder,omitempty"`
}

// Scale returns the device pixel ratio, defaulting to 1.
func (o RenderOptions) Scale() float64 {
	if o.DevicePixelRatio <= 0 {
		return 1
	}
	return o.DevicePixelRatio
}

// DevicePixels returns the canvas area in device pixels.
func (o RenderOptions) DevicePixels() float64 {
	s := o.Scale()
	return float64(o.Width) * s * float64(o.Height) * s
}

// Resource is a resolved external resource: the locator it was requested
// by and its payload.
type Resource struct {
	Src  string `json:"src"`
	Data []byte `json:"data"`
}

// ResourceMap indexes resources by locator.
func ResourceMap(resources []Resource) map[string][]byte {
	m := make(map[string][]byte, len(resources))
	for _, r := range resources {
		m[r.Src] = r.Data
	}
	return m
}

// Exports is what a render program leaves in its export target after the
// default export has been invoked: the element tree as JSON and the raw
// options record.
type Exports struct {
	Element json.RawMessage
	Options RenderOptions
}
