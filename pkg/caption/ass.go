package caption

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// Position is the vertical anchor of rendered captions.
type Position string

const (
	PositionTop    Position = "top"
	PositionCenter Position = "center"
	PositionBottom Position = "bottom"
)

// fraction returns the anchor's distance from the top as a share of height.
func (p Position) fraction() float64 {
	switch p {
	case PositionCenter:
		return 0.45
	case PositionBottom:
		return 0.75
	default:
		return 0.2
	}
}

// Style holds the renderer-level presentation of a subtitle track.
type Style struct {
	Width              int      `json:"width" toml:"width"`
	Height             int      `json:"height" toml:"height"`
	FontName           string   `json:"font_name" toml:"font_name"`
	FontSize           int      `json:"font_size" toml:"font_size"`
	FontColor          string   `json:"font_color" toml:"font_color"`
	Bold               bool     `json:"bold" toml:"bold"`
	Italic             bool     `json:"italic" toml:"italic"`
	StrokeColor        string   `json:"stroke_color" toml:"stroke_color"`
	StrokeSize         int      `json:"stroke_size" toml:"stroke_size"`
	ShadowColor        string   `json:"shadow_color" toml:"shadow_color"`
	ShadowTransparency float64  `json:"shadow_transparency" toml:"shadow_transparency"`
	ShadowBlur         int      `json:"shadow_blur" toml:"shadow_blur"`
	Position           Position `json:"subtitle_position" toml:"subtitle_position"`
	FadeMs             int      `json:"fade_ms" toml:"fade_ms"`
}

// DefaultStyle is a bold white 42pt Arial at the bottom with a soft shadow.
func DefaultStyle() Style {
	return Style{
		Width:              1920,
		Height:             1080,
		FontName:           "Arial",
		FontSize:           42,
		FontColor:          "#FFFFFF",
		Bold:               true,
		StrokeColor:        "#000000",
		StrokeSize:         2,
		ShadowColor:        "#000000",
		ShadowTransparency: 0.5,
		ShadowBlur:         2,
		Position:           PositionBottom,
		FadeMs:             120,
	}
}

// Validate checks dimensions, position and colors.
func (s Style) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", s.Width, s.Height)
	}
	switch s.Position {
	case PositionTop, PositionCenter, PositionBottom:
	default:
		return fmt.Errorf("invalid subtitle position %q (must be top, center or bottom)", s.Position)
	}
	for _, c := range []string{s.FontColor, s.StrokeColor, s.ShadowColor} {
		if _, _, _, err := parseHexColor(c); err != nil {
			return err
		}
	}
	return nil
}

// FormatASSTime renders seconds as H:MM:SS.cc.
func FormatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

// RenderASS writes an Advanced SubStation Alpha document for segments.
//
// Every dialogue is pinned with \pos at the horizontal center and the style's
// vertical anchor. When the style has a shadow (blur or transparency above
// zero) an extra dialogue is emitted first, offset by two pixels, carrying
// the shadow color and alpha as overrides.
func RenderASS(w io.Writer, segments []Segment, style Style) error {
	if err := style.Validate(); err != nil {
		return err
	}
	primary, _ := HexToASS(style.FontColor, 0)
	outline, _ := HexToASS(style.StrokeColor, 0)
	shadow, _ := HexToASSNoAlpha(style.ShadowColor)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\n\n", style.Width, style.Height)
	bw.WriteString("[V4+ Styles]\n")
	bw.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(bw, "Style: Default,%s,%d,%s,&H000000FF,%s,&H00000000,%d,%d,0,0,100,100,0,0,1,%d,0,8,20,20,20,1\n\n",
		style.FontName, style.FontSize, primary, outline, assFlag(style.Bold), assFlag(style.Italic), style.StrokeSize)
	bw.WriteString("[Events]\n")
	bw.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	x := style.Width / 2
	y := int(float64(style.Height) * style.Position.fraction())
	fade := ""
	if style.FadeMs > 0 {
		fade = fmt.Sprintf(`\fad(%d,%d)`, style.FadeMs, style.FadeMs)
	}
	withShadow := style.ShadowBlur > 0 || style.ShadowTransparency > 0

	for _, seg := range segments {
		start := FormatASSTime(seg.Start)
		end := FormatASSTime(seg.End)
		text := seg.Lines(`\N`)

		if withShadow {
			tags := fmt.Sprintf(`\pos(%d,%d)%s\1c%s\1a&H%02X&\bord0`, x+2, y+2, fade, shadow, alphaByte(style.ShadowTransparency))
			if style.ShadowBlur > 0 {
				tags += fmt.Sprintf(`\blur%d`, style.ShadowBlur)
			}
			fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Default,,0,0,0,,{%s}%s\n", start, end, tags, text)
		}
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Default,,0,0,0,,{\\pos(%d,%d)%s}%s\n", start, end, x, y, fade, text)
	}
	return bw.Flush()
}

func assFlag(on bool) int {
	if on {
		return -1
	}
	return 0
}
