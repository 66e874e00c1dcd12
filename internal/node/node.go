// Package node defines the renderable node tree produced by render programs
// and the translation from JSX element trees into it.
//
// Three node kinds exist, matching the renderer's model:
//
//   - container: a box with children
//   - text: a run of text
//   - image: an external or inline (data URI) image
//
// Inheritable properties (color, font size, line height, text alignment) are
// resolved by the renderer, not here.
package node

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a node variant.
type Kind string

const (
	KindContainer Kind = "container"
	KindText      Kind = "text"
	KindImage     Kind = "image"
)

// Node is one element of the render tree.
type Node struct {
	Type     Kind     `json:"type"`
	Style    *Style   `json:"style,omitempty"`
	Children []*Node  `json:"children,omitempty"`
	Text     string   `json:"text,omitempty"`
	Src      string   `json:"src,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
}

// Walk calls fn for n and every descendant in depth-first pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// StyleOrEmpty returns the node's style, never nil.
func (n *Node) StyleOrEmpty() *Style {
	if n.Style == nil {
		return &Style{}
	}
	return n.Style
}

// Unit is the unit of a Length.
type Unit int

const (
	UnitAuto Unit = iota
	UnitPx
	UnitPercent
	UnitEm
)

// Length is a CSS-like dimension. The zero value is "auto".
type Length struct {
	Value float64
	Unit  Unit
}

// Px returns a pixel length.
func Px(v float64) Length { return Length{Value: v, Unit: UnitPx} }

// IsAuto reports whether the length was left unspecified.
func (l Length) IsAuto() bool { return l.Unit == UnitAuto }

// Resolve converts the length to pixels against a reference size (for
// percentages) and a font size (for em). Auto resolves to fallback.
func (l Length) Resolve(reference, fontSize, fallback float64) float64 {
	switch l.Unit {
	case UnitPx:
		return l.Value
	case UnitPercent:
		return reference * l.Value / 100
	case UnitEm:
		return fontSize * l.Value
	default:
		return fallback
	}
}

// UnmarshalJSON accepts numbers (pixels) and strings such as "auto",
// "12px", "50%", "1.5em" or "12".
func (l *Length) UnmarshalJSON(b []byte) error {
	var num float64
	if err := json.Unmarshal(b, &num); err == nil {
		*l = Px(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("length must be a number or string, got %s", string(b))
	}
	parsed, err := ParseLength(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalJSON writes pixels as numbers and everything else as strings.
func (l Length) MarshalJSON() ([]byte, error) {
	switch l.Unit {
	case UnitPx:
		return json.Marshal(l.Value)
	case UnitPercent:
		return json.Marshal(strconv.FormatFloat(l.Value, 'f', -1, 64) + "%")
	case UnitEm:
		return json.Marshal(strconv.FormatFloat(l.Value, 'f', -1, 64) + "em")
	default:
		return json.Marshal("auto")
	}
}

// ParseLength parses a single CSS-like length.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "auto" {
		return Length{}, nil
	}
	unit := UnitPx
	num := s
	switch {
	case strings.HasSuffix(s, "%"):
		unit, num = UnitPercent, strings.TrimSuffix(s, "%")
	case strings.HasSuffix(s, "rem"):
		unit, num = UnitEm, strings.TrimSuffix(s, "rem")
	case strings.HasSuffix(s, "em"):
		unit, num = UnitEm, strings.TrimSuffix(s, "em")
	case strings.HasSuffix(s, "px"):
		num = strings.TrimSuffix(s, "px")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q", s)
	}
	return Length{Value: v, Unit: unit}, nil
}

// Sides holds per-edge lengths (padding, margin, border width).
type Sides struct {
	Top, Right, Bottom, Left Length
}

// UnmarshalJSON accepts a single number or a CSS shorthand string with one
// to four lengths.
func (s *Sides) UnmarshalJSON(b []byte) error {
	var num float64
	if err := json.Unmarshal(b, &num); err == nil {
		v := Px(num)
		*s = Sides{v, v, v, v}
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("sides must be a number or string, got %s", string(b))
	}
	parts := strings.Fields(str)
	vals := make([]Length, 0, len(parts))
	for _, p := range parts {
		l, err := ParseLength(p)
		if err != nil {
			return err
		}
		vals = append(vals, l)
	}
	switch len(vals) {
	case 1:
		*s = Sides{vals[0], vals[0], vals[0], vals[0]}
	case 2:
		*s = Sides{vals[0], vals[1], vals[0], vals[1]}
	case 3:
		*s = Sides{vals[0], vals[1], vals[2], vals[1]}
	case 4:
		*s = Sides{vals[0], vals[1], vals[2], vals[3]}
	default:
		return fmt.Errorf("invalid shorthand %q", str)
	}
	return nil
}

// MarshalJSON writes the four edges as a shorthand string.
func (s Sides) MarshalJSON() ([]byte, error) {
	parts := make([]string, 0, 4)
	for _, l := range []Length{s.Top, s.Right, s.Bottom, s.Left} {
		b, err := l.MarshalJSON()
		if err != nil {
			return nil, err
		}
		parts = append(parts, strings.Trim(string(b), `"`))
	}
	return json.Marshal(strings.Join(parts, " "))
}

// Style is the subset of CSS the renderer understands.
type Style struct {
	Display        string `json:"display,omitempty"`
	Width          Length `json:"width,omitzero"`
	Height         Length `json:"height,omitzero"`
	Padding        Sides  `json:"padding,omitzero"`
	Margin         Sides  `json:"margin,omitzero"`
	Gap            Length `json:"gap,omitzero"`
	FlexDirection  string `json:"flexDirection,omitempty"`
	JustifyContent string `json:"justifyContent,omitempty"`
	AlignItems     string `json:"alignItems,omitempty"`

	BackgroundColor string   `json:"backgroundColor,omitempty"`
	BackgroundImage string   `json:"backgroundImage,omitempty"`
	BorderRadius    Length   `json:"borderRadius,omitzero"`
	BorderWidth     Length   `json:"borderWidth,omitzero"`
	BorderColor     string   `json:"borderColor,omitempty"`
	Opacity         *float64 `json:"opacity,omitempty"`

	Color      string   `json:"color,omitempty"`
	FontSize   Length   `json:"fontSize,omitzero"`
	LineHeight *float64 `json:"lineHeight,omitempty"`
	TextAlign  string   `json:"textAlign,omitempty"`
}

// IsRow reports whether children flow horizontally.
func (s *Style) IsRow() bool {
	return s != nil && (s.FlexDirection == "row" || s.FlexDirection == "row-reverse")
}

// BackgroundURL returns the url(...) argument of BackgroundImage, if any.
func (s *Style) BackgroundURL() string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(s.BackgroundImage)
	if !strings.HasPrefix(v, "url(") || !strings.HasSuffix(v, ")") {
		return ""
	}
	v = strings.TrimSpace(v[4 : len(v)-1])
	return strings.Trim(v, `"'`)
}
