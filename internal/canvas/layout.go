package canvas

import (
	"math"
	"strings"

	"github.com/gogpu/gg/text"

	"github.com/cryguy/renderworker/internal/node"
)

// defaultFontSize is the root font size in CSS pixels.
const defaultFontSize = 16

// inherited carries the properties children take from their parent.
// Sizes are in device pixels.
type inherited struct {
	color      string
	fontSize   float64
	lineHeight float64 // multiplier, 0 means font metrics
	textAlign  string
}

func rootInherited(scale float64) inherited {
	return inherited{color: "#000000", fontSize: defaultFontSize * scale}
}

// box is a laid out node. x and y are relative to the parent's border box;
// every size is in device pixels.
type box struct {
	node     *node.Node
	style    *node.Style
	inh      inherited
	x, y     float64
	w, h     float64
	margin   [4]float64 // top, right, bottom, left
	padding  [4]float64
	border   float64
	radius   float64
	lines    []string
	lineH    float64
	image    *decodedImage
	children []*box
}

type layouter struct {
	scale  float64
	faces  *faceSet
	images *imageSet
}

// length resolves l to device pixels. Pixel values are scaled; percentages
// and em are already relative to device-pixel references.
func (l *layouter) length(v node.Length, reference, fontSize, fallback float64) float64 {
	if v.Unit == node.UnitPx {
		return v.Value * l.scale
	}
	return v.Resolve(reference, fontSize, fallback)
}

func (l *layouter) sides(s node.Sides, reference, fontSize float64) [4]float64 {
	return [4]float64{
		l.length(s.Top, reference, fontSize, 0),
		l.length(s.Right, reference, fontSize, 0),
		l.length(s.Bottom, reference, fontSize, 0),
		l.length(s.Left, reference, fontSize, 0),
	}
}

func (l *layouter) inherit(st *node.Style, parent inherited) inherited {
	out := parent
	if st.Color != "" {
		out.color = st.Color
	}
	if !st.FontSize.IsAuto() {
		out.fontSize = l.length(st.FontSize, parent.fontSize, parent.fontSize, parent.fontSize)
	}
	if st.LineHeight != nil {
		out.lineHeight = *st.LineHeight
	}
	if st.TextAlign != "" {
		out.textAlign = st.TextAlign
	}
	return out
}

// layout sizes n within availW x availH. availH < 0 means the height is
// unconstrained. With stretch set, an auto width fills availW.
func (l *layouter) layout(n *node.Node, availW, availH float64, stretch bool, parent inherited) *box {
	st := n.StyleOrEmpty()
	inh := l.inherit(st, parent)
	b := &box{node: n, style: st, inh: inh}
	b.margin = l.sides(st.Margin, availW, inh.fontSize)
	b.padding = l.sides(st.Padding, availW, inh.fontSize)
	b.border = l.length(st.BorderWidth, availW, inh.fontSize, 0)
	b.radius = l.length(st.BorderRadius, availW, inh.fontSize, 0)

	outerW := math.Max(availW-b.margin[1]-b.margin[3], 0)
	width := -1.0
	if !st.Width.IsAuto() {
		width = l.length(st.Width, availW, inh.fontSize, 0)
	} else if n.Width != nil {
		width = *n.Width * l.scale
	}
	height := -1.0
	if !st.Height.IsAuto() && (st.Height.Unit != node.UnitPercent || availH >= 0) {
		height = l.length(st.Height, availH, inh.fontSize, 0)
	} else if n.Height != nil {
		height = *n.Height * l.scale
	}

	insetX := b.padding[1] + b.padding[3] + 2*b.border
	insetY := b.padding[0] + b.padding[2] + 2*b.border

	switch n.Type {
	case node.KindText:
		l.layoutText(b, n.Text, width, outerW, stretch, insetX)
		if width < 0 {
			width = b.w
		}
		if height < 0 {
			height = float64(len(b.lines))*b.lineH + insetY
		}

	case node.KindImage:
		b.image = l.images.get(n.Src)
		width, height = l.imageSize(b.image, width, height, outerW, stretch)

	default:
		if bg := st.BackgroundURL(); bg != "" {
			b.image = l.images.get(bg)
		}
		if width < 0 && stretch {
			width = outerW
		}
		contentAvailW := outerW - insetX
		if width >= 0 {
			contentAvailW = width - insetX
		}
		contentAvailH := -1.0
		if height >= 0 {
			contentAvailH = height - insetY
		}
		cw, ch := l.layoutChildren(b, math.Max(contentAvailW, 0), contentAvailH)
		if width < 0 {
			width = cw + insetX
		}
		if height < 0 {
			height = ch + insetY
		}
		l.align(b, width-insetX, height-insetY, cw, ch)
	}

	b.w = math.Max(width, 0)
	b.h = math.Max(height, 0)
	return b
}

func (l *layouter) layoutText(b *box, s string, width, outerW float64, stretch bool, insetX float64) {
	face := l.faces.face(b.inh.fontSize)
	b.lineH = l.lineHeight(face, b.inh)

	maxW := outerW - insetX
	if width >= 0 {
		maxW = width - insetX
	}
	for _, line := range text.WrapText(s, face, math.Max(maxW, 1), text.WrapWordChar) {
		b.lines = append(b.lines, strings.TrimRight(line.Text, " \t"))
	}

	if width >= 0 {
		b.w = width
		return
	}
	if stretch {
		b.w = outerW
		return
	}
	widest := 0.0
	for _, line := range b.lines {
		widest = math.Max(widest, text.MeasureText(line, face))
	}
	b.w = math.Min(math.Ceil(widest)+insetX, math.Max(outerW, 0))
}

func (l *layouter) lineHeight(face text.Face, inh inherited) float64 {
	if inh.lineHeight > 0 {
		return inh.lineHeight * inh.fontSize
	}
	m := face.Metrics()
	return m.Ascent + m.Descent + m.LineGap
}

// imageSize fills in missing dimensions from the intrinsic size, keeping
// the aspect ratio.
func (l *layouter) imageSize(img *decodedImage, width, height, outerW float64, stretch bool) (float64, float64) {
	iw, ih := 0.0, 0.0
	if img != nil {
		iw, ih = float64(img.width)*l.scale, float64(img.height)*l.scale
	}
	switch {
	case width >= 0 && height >= 0:
	case width >= 0:
		height = 0
		if iw > 0 {
			height = width * ih / iw
		}
	case height >= 0:
		width = 0
		if ih > 0 {
			width = height * iw / ih
		}
	default:
		width, height = iw, ih
		if stretch && width > outerW && width > 0 {
			height = height * outerW / width
			width = outerW
		}
	}
	return width, height
}

// layoutChildren places children along the main axis and returns the
// content size.
func (l *layouter) layoutChildren(b *box, availW, availH float64) (float64, float64) {
	st := b.style
	row := st.IsRow()
	gap := l.length(st.Gap, availW, b.inh.fontSize, 0)
	stretch := !row && (st.AlignItems == "" || st.AlignItems == "stretch")

	mainUsed, crossUsed := 0.0, 0.0
	for i, c := range b.node.Children {
		if c == nil {
			continue
		}
		var cb *box
		if row {
			cb = l.layout(c, math.Max(availW-mainUsed, 0), availH, false, b.inh)
		} else {
			cb = l.layout(c, availW, availH, stretch, b.inh)
		}
		if i > 0 && len(b.children) > 0 {
			mainUsed += gap
		}
		if row {
			cb.x = mainUsed + cb.margin[3]
			cb.y = cb.margin[0]
			mainUsed += cb.margin[3] + cb.w + cb.margin[1]
			crossUsed = math.Max(crossUsed, cb.margin[0]+cb.h+cb.margin[2])
		} else {
			cb.x = cb.margin[3]
			cb.y = mainUsed + cb.margin[0]
			mainUsed += cb.margin[0] + cb.h + cb.margin[2]
			crossUsed = math.Max(crossUsed, cb.margin[3]+cb.w+cb.margin[1])
		}
		b.children = append(b.children, cb)
	}
	if st.FlexDirection == "row-reverse" || st.FlexDirection == "column-reverse" {
		for _, cb := range b.children {
			if row {
				cb.x = mainUsed - cb.x - cb.w
			} else {
				cb.y = mainUsed - cb.y - cb.h
			}
		}
	}
	if row {
		return mainUsed, crossUsed
	}
	return crossUsed, mainUsed
}

// align applies justifyContent and alignItems, then offsets children into
// the content box.
func (l *layouter) align(b *box, contentW, contentH, usedW, usedH float64) {
	st := b.style
	row := st.IsRow()
	mainFree, crossSize := contentH-usedH, contentW
	if row {
		mainFree, crossSize = contentW-usedW, contentH
	}

	offset, between := 0.0, 0.0
	if mainFree > 0 {
		switch st.JustifyContent {
		case "center":
			offset = mainFree / 2
		case "flex-end", "end":
			offset = mainFree
		case "space-between":
			if len(b.children) > 1 {
				between = mainFree / float64(len(b.children)-1)
			}
		case "space-around":
			if len(b.children) > 0 {
				between = mainFree / float64(len(b.children))
				offset = between / 2
			}
		}
	}

	left := b.padding[3] + b.border
	top := b.padding[0] + b.border
	for i, cb := range b.children {
		shift := offset + float64(i)*between
		var cross float64
		if row {
			cross = crossFree(st.AlignItems, crossSize, cb.margin[0]+cb.h+cb.margin[2])
			cb.x += left + shift
			cb.y += top + cross
		} else {
			cross = crossFree(st.AlignItems, crossSize, cb.margin[3]+cb.w+cb.margin[1])
			cb.x += left + cross
			cb.y += top + shift
		}
	}
}

func crossFree(alignItems string, available, used float64) float64 {
	free := available - used
	if free <= 0 {
		return 0
	}
	switch alignItems {
	case "center":
		return free / 2
	case "flex-end", "end":
		return free
	default:
		return 0
	}
}
