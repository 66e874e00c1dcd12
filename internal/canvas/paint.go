package canvas

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/cryguy/renderworker/internal/node"
)

type painter struct {
	dc     *gg.Context
	faces  *faceSet
	images *imageSet
	debug  bool
	scale  float64
}

// paint draws b at the parent's origin (ox, oy). alpha is the accumulated
// opacity of the ancestors.
func (p *painter) paint(b *box, ox, oy, alpha float64) error {
	st := b.style
	if st.Opacity != nil {
		alpha *= clamp01(*st.Opacity)
	}
	if alpha <= 0 {
		return nil
	}
	x, y := ox+b.x, oy+b.y

	if c, ok := parseColor(st.BackgroundColor); ok && c.A > 0 {
		p.setColor(c, alpha)
		p.rect(x, y, b.w, b.h, b.radius)
		if err := p.dc.Fill(); err != nil {
			return err
		}
	}
	if b.image != nil && b.node.Type != node.KindImage {
		p.drawImage(b.image, x, y, b.w, b.h, alpha)
	}

	inset := b.border
	cx := x + b.padding[3] + inset
	cy := y + b.padding[0] + inset
	cw := b.w - b.padding[1] - b.padding[3] - 2*inset
	switch b.node.Type {
	case node.KindText:
		p.drawText(b, cx, cy, cw, alpha)
	case node.KindImage:
		if b.image != nil {
			p.drawImage(b.image, cx, cy, cw, b.h-b.padding[0]-b.padding[2]-2*inset, alpha)
		}
	}

	for _, c := range b.children {
		if err := p.paint(c, x, y, alpha); err != nil {
			return err
		}
	}

	if b.border > 0 {
		c, ok := parseColor(st.BorderColor)
		if !ok {
			c, _ = parseColor(b.inh.color)
		}
		p.setColor(c, alpha)
		p.dc.SetLineWidth(b.border)
		half := b.border / 2
		p.rect(x+half, y+half, b.w-b.border, b.h-b.border, math.Max(b.radius-half, 0))
		if err := p.dc.Stroke(); err != nil {
			return err
		}
	}
	if p.debug {
		p.dc.SetRGBA(1, 0, 0, 1)
		p.dc.SetLineWidth(math.Max(p.scale, 1))
		p.dc.DrawRectangle(x, y, b.w, b.h)
		if err := p.dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}

func (p *painter) setColor(c gg.RGBA, alpha float64) {
	p.dc.SetRGBA(c.R, c.G, c.B, c.A*alpha)
}

func (p *painter) rect(x, y, w, h, r float64) {
	if r > 0 {
		p.dc.DrawRoundedRectangle(x, y, w, h, math.Min(r, math.Min(w, h)/2))
		return
	}
	p.dc.DrawRectangle(x, y, w, h)
}

func (p *painter) drawImage(img *decodedImage, x, y, w, h, alpha float64) {
	if w <= 0 || h <= 0 {
		return
	}
	p.dc.DrawImageEx(img.buf, gg.DrawImageOptions{
		X:         x,
		Y:         y,
		DstWidth:  w,
		DstHeight: h,
		Opacity:   alpha,
	})
}

func (p *painter) drawText(b *box, x, y, w, alpha float64) {
	c, ok := parseColor(b.inh.color)
	if !ok {
		c = gg.RGB(0, 0, 0)
	}
	p.setColor(c, alpha)
	face := p.faces.face(b.inh.fontSize)
	p.dc.SetFont(face)
	m := face.Metrics()
	baseline := (b.lineH-(m.Ascent+m.Descent))/2 + m.Ascent
	for i, line := range b.lines {
		if line == "" {
			continue
		}
		lx := x
		switch b.inh.textAlign {
		case "center":
			lx += (w - text.MeasureText(line, face)) / 2
		case "right", "end":
			lx += w - text.MeasureText(line, face)
		}
		p.dc.DrawString(line, lx, y+float64(i)*b.lineH+baseline)
	}
}
