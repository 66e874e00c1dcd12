package node

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want Length
	}{
		{"", Length{}},
		{"auto", Length{}},
		{"12", Px(12)},
		{"12px", Px(12)},
		{"50%", Length{Value: 50, Unit: UnitPercent}},
		{"1.5em", Length{Value: 1.5, Unit: UnitEm}},
		{"2rem", Length{Value: 2, Unit: UnitEm}},
		{" 4PX ", Px(4)},
	}
	for _, tt := range tests {
		got, err := ParseLength(tt.in)
		if err != nil {
			t.Errorf("ParseLength(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLength(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLength("wide"); err == nil {
		t.Error("ParseLength(wide) should fail")
	}
}

func TestLengthResolve(t *testing.T) {
	tests := []struct {
		l    Length
		want float64
	}{
		{Px(10), 10},
		{Length{Value: 50, Unit: UnitPercent}, 100},
		{Length{Value: 2, Unit: UnitEm}, 32},
		{Length{}, 7},
	}
	for _, tt := range tests {
		if got := tt.l.Resolve(200, 16, 7); got != tt.want {
			t.Errorf("%+v.Resolve = %v, want %v", tt.l, got, tt.want)
		}
	}
}

func TestStyleJSON(t *testing.T) {
	var s Style
	err := json.Unmarshal([]byte(`{
		"width": 100,
		"height": "50%",
		"padding": "4 8",
		"margin": 2,
		"flexDirection": "row",
		"backgroundImage": "url('https://example.com/bg.png')",
		"opacity": 0.5
	}`), &s)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if s.Width != Px(100) {
		t.Errorf("width = %+v", s.Width)
	}
	if s.Height != (Length{Value: 50, Unit: UnitPercent}) {
		t.Errorf("height = %+v", s.Height)
	}
	if s.Padding != (Sides{Px(4), Px(8), Px(4), Px(8)}) {
		t.Errorf("padding = %+v", s.Padding)
	}
	if s.Margin != (Sides{Px(2), Px(2), Px(2), Px(2)}) {
		t.Errorf("margin = %+v", s.Margin)
	}
	if !s.IsRow() {
		t.Error("flexDirection row not detected")
	}
	if got := s.BackgroundURL(); got != "https://example.com/bg.png" {
		t.Errorf("background url = %q", got)
	}
	if s.Opacity == nil || *s.Opacity != 0.5 {
		t.Errorf("opacity = %v", s.Opacity)
	}

	out, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Style
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if !reflect.DeepEqual(s, back) {
		t.Errorf("round trip = %+v, want %+v", back, s)
	}
}

func TestSidesInvalid(t *testing.T) {
	for _, in := range []string{`"1 2 3 4 5"`, `true`} {
		var s Sides
		if err := json.Unmarshal([]byte(in), &s); err == nil {
			t.Errorf("unmarshal %s should fail", in)
		}
	}
}

func mustFromJSX(t *testing.T, raw string) *Node {
	t.Helper()
	root, err := FromJSX(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("FromJSX: %v", err)
	}
	return root
}

func TestFromJSX_HostElements(t *testing.T) {
	root := mustFromJSX(t, `{
		"type": "div",
		"props": {
			"style": {"width": 200, "height": 100, "backgroundColor": "#fff"},
			"children": [
				{"type": "h1", "props": {"children": "Title"}},
				{"type": "p", "props": {"children": ["Count: ", 3]}},
				null,
				false,
				{"type": "img", "props": {"src": "https://example.com/a.png", "width": 10, "height": 20}},
				"tail"
			]
		}
	}`)

	if root.Type != KindContainer || root.Style.Width != Px(200) {
		t.Fatalf("root = %s %+v", root.Type, root.Style.Width)
	}
	if len(root.Children) != 4 {
		t.Fatalf("children = %d, want 4", len(root.Children))
	}

	h1 := root.Children[0]
	if h1.Type != KindText || h1.Text != "Title" || h1.Style.FontSize != Px(32) {
		t.Errorf("h1 = %s %q %+v", h1.Type, h1.Text, h1.Style)
	}
	if p := root.Children[1]; p.Type != KindText || p.Text != "Count: 3" {
		t.Errorf("p = %s %q", p.Type, p.Text)
	}
	img := root.Children[2]
	if img.Type != KindImage || img.Src != "https://example.com/a.png" || img.Width == nil || *img.Width != 10 {
		t.Errorf("img = %+v", img)
	}
	if tail := root.Children[3]; tail.Type != KindText || tail.Text != "tail" {
		t.Errorf("tail = %s %q", tail.Type, tail.Text)
	}
}

func TestFromJSX_HeadingKeepsExplicitSize(t *testing.T) {
	root := mustFromJSX(t, `{"type":"h2","props":{"style":{"fontSize":40},"children":"x"}}`)
	if root.Style.FontSize != Px(40) {
		t.Errorf("font size = %+v, want 40px", root.Style.FontSize)
	}
}

func TestFromJSX_RawNodes(t *testing.T) {
	root := mustFromJSX(t, `{
		"type": "container",
		"style": {"padding": 4},
		"children": [
			{"type": "text", "text": "hello"},
			{"type": "image", "src": "https://example.com/i.png", "width": 8}
		]
	}`)
	if root.Type != KindContainer || root.Style.Padding != (Sides{Px(4), Px(4), Px(4), Px(4)}) {
		t.Fatalf("root = %s %+v", root.Type, root.Style)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	if c := root.Children[0]; c.Type != KindText || c.Text != "hello" {
		t.Errorf("child 0 = %s %q", c.Type, c.Text)
	}
	if c := root.Children[1]; c.Type != KindImage || c.Width == nil || *c.Width != 8 {
		t.Errorf("child 1 = %+v", c)
	}
}

func TestFromJSX_RawContainerWithElementChildren(t *testing.T) {
	root := mustFromJSX(t, `{
		"type": "container",
		"children": [
			{"type": "div", "props": {"style": {"color": "red"}, "children": "hi"}},
			{"type": "span", "props": {"children": ["a", "b"]}},
			{"type": "container", "children": [{"type": "p", "props": {"children": "deep"}}]},
			"loose"
		]
	}`)
	if len(root.Children) != 4 {
		t.Fatalf("children = %d, want 4", len(root.Children))
	}

	div := root.Children[0]
	if div.Type != KindContainer || div.Style == nil || div.Style.Color != "red" {
		t.Fatalf("div = %s %+v", div.Type, div.Style)
	}
	if len(div.Children) != 1 || div.Children[0].Text != "hi" {
		t.Errorf("div children = %+v, want the text hi", div.Children)
	}
	if span := root.Children[1]; span.Type != KindText || span.Text != "ab" {
		t.Errorf("span = %s %q", span.Type, span.Text)
	}
	inner := root.Children[2]
	if len(inner.Children) != 1 || inner.Children[0].Text != "deep" {
		t.Errorf("nested container children = %+v", inner.Children)
	}
	if loose := root.Children[3]; loose.Type != KindText || loose.Text != "loose" {
		t.Errorf("loose = %s %q", loose.Type, loose.Text)
	}
}

func TestFromJSX_SpanWithStyledChildStaysContainer(t *testing.T) {
	root := mustFromJSX(t, `{"type":"span","props":{"children":["a",{"type":"b","props":{"style":{"color":"red"},"children":"b"}}]}}`)
	if root.Type != KindContainer || len(root.Children) != 2 {
		t.Errorf("root = %s with %d children, want a container with 2", root.Type, len(root.Children))
	}
}

func TestFromJSX_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`null`, "no element"},
		{`{"type":"img","props":{}}`, "without src"},
		{`{"props":{}}`, "without type"},
		{`{"type":"div","props":{"style":{"width":true}}}`, "props"},
		{`{"type":"widget"}`, `unknown node type "widget"`},
		{`{"type":"image"}`, "image node without src"},
		{`{"type":"container","children":[{"type":"gadget"}]}`, `unknown node type "gadget"`},
	}
	for _, tt := range tests {
		_, err := FromJSX(json.RawMessage(tt.in))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("FromJSX(%s) error = %v, want it to contain %q", tt.in, err, tt.want)
		}
	}
}

func TestFromJSX_StringRoot(t *testing.T) {
	root := mustFromJSX(t, `"just text"`)
	if root.Type != KindText || root.Text != "just text" {
		t.Errorf("root = %s %q", root.Type, root.Text)
	}
}

func TestExtractResourceURLs(t *testing.T) {
	root := &Node{
		Type: KindContainer,
		Style: &Style{
			BackgroundImage: `url("https://example.com/bg.png")`,
		},
		Children: []*Node{
			{Type: KindImage, Src: "https://example.com/a.png"},
			{Type: KindImage, Src: "data:image/png;base64,AAAA"},
			{Type: KindContainer, Children: []*Node{
				{Type: KindImage, Src: "https://example.com/a.png"},
				{Type: KindImage, Src: "HTTP://example.com/b.png"},
			}},
			{Type: KindText, Text: "https://example.com/not-a-resource.png"},
		},
	}
	want := []string{
		"https://example.com/bg.png",
		"https://example.com/a.png",
		"HTTP://example.com/b.png",
	}
	if got := ExtractResourceURLs(root); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractResourceURLs = %v, want %v", got, want)
	}
	if got := ExtractResourceURLs(&Node{Type: KindText, Text: "x"}); len(got) != 0 {
		t.Errorf("text-only tree = %v, want none", got)
	}
}
