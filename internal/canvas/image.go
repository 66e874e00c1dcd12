package canvas

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"github.com/gogpu/gg"
	_ "golang.org/x/image/webp"

	"github.com/cryguy/renderworker/internal/core"
)

var errImageTooLarge = errors.New("image exceeds the pixel limit")

// decodedImage is a source image ready for gg.
type decodedImage struct {
	buf    *gg.ImageBuf
	width  int
	height int
}

// imageSet decodes each image source at most once per render. Sources are
// looked up in the resolved resources or decoded inline from data URIs.
type imageSet struct {
	resources map[string][]byte
	decoded   map[string]*decodedImage
}

func newImageSet(resources map[string][]byte) *imageSet {
	return &imageSet{resources: resources, decoded: make(map[string]*decodedImage)}
}

// get returns nil when src is missing or undecodable. Missing resources are
// expected when the batch tolerated fetch failures.
func (s *imageSet) get(src string) *decodedImage {
	if src == "" {
		return nil
	}
	if img, ok := s.decoded[src]; ok {
		return img
	}
	img, err := s.load(src)
	if err != nil {
		core.Logger().Debug("canvas: skipping image", "src", truncate(src, 64), "error", err)
	}
	s.decoded[src] = img
	return img
}

func (s *imageSet) load(src string) (*decodedImage, error) {
	var data []byte
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		d, err := decodeDataURI(src)
		if err != nil {
			return nil, err
		}
		data = d
	} else {
		d, ok := s.resources[src]
		if !ok {
			return nil, errors.New("resource not resolved")
		}
		data = d
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	b := img.Bounds()
	return &decodedImage{buf: gg.ImageBufFromImage(img), width: b.Dx(), height: b.Dy()}, nil
}

// checkPixels rejects images whose decoded area would exceed
// core.MaxDevicePixels.
func checkPixels(w, h int) error {
	if int64(w)*int64(h) > core.MaxDevicePixels {
		return fmt.Errorf("image of %dx%d pixels: %w", w, h, errImageTooLarge)
	}
	return nil
}

// decodeDataURI decodes "data:[<mime>][;base64],<payload>".
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URI")
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return []byte(s), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
