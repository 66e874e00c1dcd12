// Package canvas is the default Renderer. It lays out a node tree with a
// small flexbox-like model and paints it with gogpu/gg.
package canvas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/HugoSmits86/nativewebp"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/cryguy/renderworker/internal/core"
	"github.com/cryguy/renderworker/internal/node"
)

// DefaultJPEGQuality is used when the options leave quality unset.
const DefaultJPEGQuality = 75

var (
	// ErrNotLoaded is returned by Render before Load succeeded.
	ErrNotLoaded = errors.New("renderer is not loaded")

	// ErrCanvasTooLarge is returned when the scaled canvas exceeds
	// core.MaxDevicePixels.
	ErrCanvasTooLarge = errors.New("canvas exceeds the device pixel limit")
)

// Renderer implements core.Renderer on a software gg context.
type Renderer struct {
	fontData []byte

	mu     sync.Mutex
	source *text.FontSource
}

var _ core.Renderer = (*Renderer)(nil)

// New returns a renderer using fontData as its only font. A nil fontData
// selects Go Regular.
func New(fontData []byte) *Renderer {
	if fontData == nil {
		fontData = goregular.TTF
	}
	return &Renderer{fontData: fontData}
}

// Load parses the font. Calling it again after a success is a no-op.
func (r *Renderer) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.source != nil {
		return nil
	}
	src, err := text.NewFontSource(r.fontData)
	if err != nil {
		return fmt.Errorf("loading font: %w", err)
	}
	r.source = src
	core.Logger().Debug("canvas: font loaded", "bytes", len(r.fontData))
	return nil
}

// Render lays out root at opts.Width x opts.Height CSS pixels, scaled by the
// device pixel ratio, and encodes the result in opts.Format. WebP output is
// lossless and ignores opts.Quality.
func (r *Renderer) Render(ctx context.Context, root *node.Node, opts core.RenderOptions, resources map[string][]byte) ([]byte, error) {
	r.mu.Lock()
	src := r.source
	r.mu.Unlock()
	if src == nil {
		return nil, ErrNotLoaded
	}
	if root == nil {
		return nil, errors.New("render: nil root node")
	}
	switch opts.Format {
	case core.FormatPNG, core.FormatJPEG, core.FormatWebP:
	default:
		return nil, fmt.Errorf("render: unknown format %q", opts.Format)
	}

	if opts.DevicePixels() > core.MaxDevicePixels {
		return nil, fmt.Errorf("render: %dx%d at ratio %g: %w", opts.Width, opts.Height, opts.Scale(), ErrCanvasTooLarge)
	}
	scale := opts.Scale()
	width := int(math.Round(float64(opts.Width) * scale))
	height := int(math.Round(float64(opts.Height) * scale))
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("render: invalid canvas size %dx%d", width, height)
	}

	l := &layouter{
		scale:  scale,
		faces:  newFaceSet(src, &r.mu),
		images: newImageSet(resources),
	}
	tree := l.layout(root, float64(width), float64(height), true, rootInherited(scale))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	if opts.Format == core.FormatJPEG {
		dc.ClearWithColor(gg.RGB(1, 1, 1))
	}
	p := &painter{dc: dc, faces: l.faces, images: l.images, debug: opts.DrawDebugBorder, scale: scale}
	if err := p.paint(tree, 0, 0, 1); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch opts.Format {
	case core.FormatJPEG:
		q := opts.Quality
		if q <= 0 {
			q = DefaultJPEGQuality
		}
		if err := dc.EncodeJPEG(&buf, q); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
	case core.FormatWebP:
		if err := nativewebp.Encode(&buf, dc.Image(), nil); err != nil {
			return nil, fmt.Errorf("encoding webp: %w", err)
		}
	default:
		if err := dc.EncodePNG(&buf); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// faceSet hands out faces per device-pixel size for one render.
type faceSet struct {
	src   *text.FontSource
	mu    *sync.Mutex
	faces map[float64]text.Face
}

func newFaceSet(src *text.FontSource, mu *sync.Mutex) *faceSet {
	return &faceSet{src: src, mu: mu, faces: make(map[float64]text.Face)}
}

func (f *faceSet) face(size float64) text.Face {
	size = math.Round(size*4) / 4
	if size < 1 {
		size = 1
	}
	if face, ok := f.faces[size]; ok {
		return face
	}
	f.mu.Lock()
	face := f.src.Face(size)
	f.mu.Unlock()
	f.faces[size] = face
	return face
}
