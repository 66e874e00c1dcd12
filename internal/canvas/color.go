package canvas

import (
	"strconv"
	"strings"

	"github.com/gogpu/gg"
)

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"pink":    "#ffc0cb",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"navy":    "#000080",
	"teal":    "#008080",
	"maroon":  "#800000",
	"olive":   "#808000",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
}

// parseColor understands hex (#rgb, #rgba, #rrggbb, #rrggbbaa), rgb(),
// rgba(), a few named colors and "transparent".
func parseColor(s string) (gg.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return gg.RGBA{}, false
	}
	if s == "transparent" {
		return gg.RGBA2(0, 0, 0, 0), true
	}
	if hex, ok := namedColors[s]; ok {
		return gg.Hex(hex), true
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		switch len(hex) {
		case 3, 4, 6, 8:
		default:
			return gg.RGBA{}, false
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return gg.RGBA{}, false
		}
		return gg.Hex(hex), true
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunc(s)
	}
	return gg.RGBA{}, false
}

func parseRGBFunc(s string) (gg.RGBA, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return gg.RGBA{}, false
	}
	body := s[open+1 : len(s)-1]
	body = strings.ReplaceAll(body, "/", " ")
	body = strings.ReplaceAll(body, ",", " ")
	parts := strings.Fields(body)
	if len(parts) != 3 && len(parts) != 4 {
		return gg.RGBA{}, false
	}
	var ch [3]float64
	for i := 0; i < 3; i++ {
		v, ok := channel(parts[i], 255)
		if !ok {
			return gg.RGBA{}, false
		}
		ch[i] = v
	}
	alpha := 1.0
	if len(parts) == 4 {
		v, ok := channel(parts[3], 1)
		if !ok {
			return gg.RGBA{}, false
		}
		alpha = v
	}
	return gg.RGBA2(ch[0], ch[1], ch[2], alpha), true
}

// channel parses a number or percentage and normalizes it to [0, 1].
func channel(s string, max float64) (float64, bool) {
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false
	}
	if pct {
		v /= 100
	} else {
		v /= max
	}
	return clamp01(v), true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
