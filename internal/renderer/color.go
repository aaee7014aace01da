package renderer

import (
	"image/color"
	"strings"
)

// ParseColor reads "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa". "" and
// "transparent" give a fully transparent color; anything else unreadable
// falls back to fallback.
func ParseColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "transparent") {
		return color.RGBA{}
	}
	hex := strings.TrimPrefix(s, "#")

	var r, g, b uint32
	a := uint32(255)
	ok := true
	switch len(hex) {
	case 3, 4:
		ok = parseHex(hex[0:1], &r) && parseHex(hex[1:2], &g) && parseHex(hex[2:3], &b)
		if ok && len(hex) == 4 {
			ok = parseHex(hex[3:4], &a)
			a *= 17
		}
		r, g, b = r*17, g*17, b*17
	case 6, 8:
		ok = parseHex(hex[0:2], &r) && parseHex(hex[2:4], &g) && parseHex(hex[4:6], &b)
		if ok && len(hex) == 8 {
			ok = parseHex(hex[6:8], &a)
		}
	default:
		ok = false
	}
	if !ok {
		return fallback
	}

	// image/color wants alpha-premultiplied components.
	return color.RGBA{
		R: uint8(r * a / 255),
		G: uint8(g * a / 255),
		B: uint8(b * a / 255),
		A: uint8(a),
	}
}

func parseHex(s string, val *uint32) bool {
	*val = 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		*val *= 16
		switch {
		case '0' <= c && c <= '9':
			*val += uint32(c - '0')
		case 'a' <= c && c <= 'f':
			*val += uint32(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			*val += uint32(c - 'A' + 10)
		default:
			return false
		}
	}
	return true
}
