package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// headingSizes are the browser default font sizes for h1..h6 in pixels.
var headingSizes = map[string]float64{
	"h1": 32,
	"h2": 24,
	"h3": 18.72,
	"h4": 16,
	"h5": 13.28,
	"h6": 10.72,
}

var textTags = map[string]bool{
	"span": true, "p": true, "label": true, "strong": true, "em": true, "b": true, "i": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// element is the serialized form of a host element: {type, props}. Raw
// nodes built by the helper functions carry no props.
type element struct {
	Type  string          `json:"type"`
	Props json.RawMessage `json:"props"`
}

// rawNode is a node built by the container, text and image helpers. Its
// children may mix raw nodes, host elements and primitives.
type rawNode struct {
	Style    *Style          `json:"style"`
	Children json.RawMessage `json:"children"`
	Text     string          `json:"text"`
	Src      string          `json:"src"`
	Width    *float64        `json:"width"`
	Height   *float64        `json:"height"`
}

type elementProps struct {
	Style    *Style          `json:"style"`
	Children json.RawMessage `json:"children"`
	Src      string          `json:"src"`
	Width    *float64        `json:"width"`
	Height   *float64        `json:"height"`
}

// FromJSX translates a serialized JSX element tree into a node tree.
// The root may itself be a string or number, which yields a single text
// node. A null root is an error.
func FromJSX(raw json.RawMessage) (*Node, error) {
	nodes, err := fromValue(raw, 0)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("fromJsx: default export returned no element")
	case 1:
		return nodes[0], nil
	default:
		return &Node{Type: KindContainer, Children: nodes}, nil
	}
}

const maxDepth = 256

func fromValue(raw json.RawMessage, depth int) ([]*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("fromJsx: element tree deeper than %d", maxDepth)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case 'n', 't', 'f':
		// null, true and false render nothing.
		return nil, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("fromJsx: %w", err)
		}
		if s == "" {
			return nil, nil
		}
		return []*Node{{Type: KindText, Text: s}}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("fromJsx: %w", err)
		}
		var out []*Node
		for _, item := range items {
			nodes, err := fromValue(item, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	case '{':
		n, err := fromElement(raw, depth)
		if err != nil {
			return nil, err
		}
		return []*Node{n}, nil
	default:
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return nil, fmt.Errorf("fromJsx: unexpected value %s", string(raw))
		}
		return []*Node{{Type: KindText, Text: formatNumber(num)}}, nil
	}
}

func fromElement(raw json.RawMessage, depth int) (*Node, error) {
	var el element
	if err := json.Unmarshal(raw, &el); err != nil {
		return nil, fmt.Errorf("fromJsx: %w", err)
	}
	if el.Type == "" {
		return nil, fmt.Errorf("fromJsx: element without type")
	}
	if el.Props == nil {
		return fromRaw(raw, Kind(el.Type), depth)
	}

	var props elementProps
	if len(el.Props) > 0 && !bytes.Equal(bytes.TrimSpace(el.Props), []byte("null")) {
		if err := json.Unmarshal(el.Props, &props); err != nil {
			return nil, fmt.Errorf("fromJsx: <%s> props: %w", el.Type, err)
		}
	}

	tag := strings.ToLower(el.Type)
	if tag == "img" {
		if props.Src == "" {
			return nil, fmt.Errorf("fromJsx: <img> without src")
		}
		return &Node{
			Type:   KindImage,
			Src:    props.Src,
			Width:  props.Width,
			Height: props.Height,
			Style:  props.Style,
		}, nil
	}

	children, err := fromValue(props.Children, depth+1)
	if err != nil {
		return nil, err
	}

	style := props.Style
	if size, ok := headingSizes[tag]; ok {
		if style == nil {
			style = &Style{}
		}
		if style.FontSize.IsAuto() {
			style.FontSize = Px(size)
		}
	}

	if textTags[tag] {
		if s, ok := textOnly(children); ok {
			return &Node{Type: KindText, Text: s, Style: style}, nil
		}
	}
	return &Node{Type: KindContainer, Style: style, Children: children}, nil
}

func fromRaw(raw json.RawMessage, kind Kind, depth int) (*Node, error) {
	var r rawNode
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("fromJsx: %s node: %w", kind, err)
	}
	n := &Node{Type: kind, Style: r.Style}
	switch kind {
	case KindText:
		n.Text = r.Text
	case KindImage:
		if r.Src == "" {
			return nil, fmt.Errorf("fromJsx: image node without src")
		}
		n.Src, n.Width, n.Height = r.Src, r.Width, r.Height
	case KindContainer:
		children, err := fromValue(r.Children, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = children
	default:
		return nil, fmt.Errorf("fromJsx: unknown node type %q", kind)
	}
	return n, nil
}

// textOnly concatenates children when every child is an unstyled text node.
func textOnly(children []*Node) (string, bool) {
	if len(children) == 0 {
		return "", true
	}
	var b strings.Builder
	for _, c := range children {
		if c.Type != KindText || c.Style != nil {
			return "", false
		}
		b.WriteString(c.Text)
	}
	return b.String(), true
}

func formatNumber(n json.Number) string {
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}
