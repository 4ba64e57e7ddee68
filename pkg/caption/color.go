package caption

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseHexColor accepts "#RRGGBB", "RRGGBB", "#RGB" or "RGB".
func parseHexColor(hex string) (r, g, b uint8, err error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid color %q: must be RRGGBB or RGB", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// alphaByte maps transparency in [0,1] (0 opaque) to the ASS alpha byte.
func alphaByte(transparency float64) uint8 {
	t := math.Max(0, math.Min(1, transparency))
	return uint8(math.Round(t * 255))
}

// HexToASS converts a hex color and transparency to the &HAABBGGRR form used
// in style lines.
func HexToASS(hex string, transparency float64) (string, error) {
	r, g, b, err := parseHexColor(hex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("&H%02X%02X%02X%02X", alphaByte(transparency), b, g, r), nil
}

// HexToASSNoAlpha returns &HBBGGRR& for override tags such as \1c.
func HexToASSNoAlpha(hex string) (string, error) {
	r, g, b, err := parseHexColor(hex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("&H%02X%02X%02X&", b, g, r), nil
}
