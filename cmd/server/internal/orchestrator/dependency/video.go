package dependency

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultFPS is the frame rate of rendered videos.
const DefaultFPS = 25

// Video encoder settings shared by every render step.
var (
	videoCodecArgs = []string{"-c:v", "libx264", "-preset", "ultrafast", "-crf", "23", "-pix_fmt", "yuv420p"}
	audioCodecArgs = []string{"-c:a", "aac", "-b:a", "192k"}
	ffmpegPrelude  = []string{"-y", "-hide_banner", "-nostats", "-loglevel", "error"}
)

// EffectKind names an image animation.
type EffectKind string

const (
	EffectKenBurns EffectKind = "ken_burns"
	EffectPan      EffectKind = "pan"
	EffectNone     EffectKind = "none"
)

// Effect animates a still image background.
//
// Ken Burns directions: zoom-to-top, zoom-to-center, zoom-to-top-left
// (default). Pan directions: left-to-right (default), right-to-left,
// top-to-bottom, bottom-to-top; speeds slow, normal, fast.
type Effect struct {
	Kind        EffectKind `json:"effect"`
	ZoomFactor  float64    `json:"zoom_factor,omitempty"`
	Direction   string     `json:"direction,omitempty"`
	Speed       string     `json:"speed,omitempty"`
	ScaleFactor float64    `json:"scale_factor,omitempty"`
}

func (e *Effect) normalized() Effect {
	out := Effect{Kind: EffectKenBurns}
	if e != nil {
		out = *e
	}
	if out.Kind == "" {
		out.Kind = EffectKenBurns
	}
	if out.ZoomFactor == 0 {
		out.ZoomFactor = 0.001
	}
	if out.ScaleFactor == 0 {
		out.ScaleFactor = 1.3
	}
	if out.Speed == "" {
		out.Speed = "normal"
	}
	return out
}

// Validate rejects unknown effect kinds.
func (e *Effect) Validate() error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case "", EffectKenBurns, EffectPan, EffectNone:
	default:
		return fmt.Errorf("unknown effect %q (must be ken_burns, pan or none)", e.Kind)
	}
	if e.ScaleFactor != 0 && e.ScaleFactor < 1 {
		return fmt.Errorf("scale_factor must be at least 1, got %v", e.ScaleFactor)
	}
	return nil
}

var speedMultipliers = map[string]float64{"slow": 0.5, "normal": 1.0, "fast": 2.0}

func zoomExpr(factor float64, direction string) string {
	z := fmt.Sprintf("z='zoom+%s'", fmtFloat(factor))
	switch direction {
	case "zoom-to-top":
		return z + ":x=iw/2-(iw/zoom/2):y=0"
	case "zoom-to-center":
		return z + ":x=iw/2-(iw/zoom/2):y=ih/2-(ih/zoom/2)"
	default:
		return z + ":x=0:y=0"
	}
}

// imageChain returns the filter chain (without pads) that turns one still
// image into a width x height animated stream lasting duration seconds.
// zoomFrames is the zoompan frame count. The bool reports whether the chain
// already produces fps frames.
func imageChain(eff Effect, w, h, fps int, duration float64, zoomFrames int) (string, bool) {
	switch eff.Kind {
	case EffectKenBurns:
		return fmt.Sprintf("scale=%d:-2,setsar=1:1,crop=%d:%d,zoompan=%s:d=%d:s=%dx%d:fps=%d",
			w, w, h, zoomExpr(eff.ZoomFactor, eff.Direction), zoomFrames, w, h, fps), true

	case EffectPan:
		sw := int(float64(w) * eff.ScaleFactor)
		sh := int(float64(h) * eff.ScaleFactor)
		mult, ok := speedMultipliers[eff.Speed]
		if !ok {
			mult = 1.0
		}

		startX, endX := 0, sw-w
		startY, endY := (sh-h)/2, (sh-h)/2
		switch eff.Direction {
		case "right-to-left":
			startX, endX = sw-w, 0
		case "top-to-bottom":
			startX, endX = (sw-w)/2, (sw-w)/2
			startY, endY = 0, sh-h
		case "bottom-to-top":
			startX, endX = (sw-w)/2, (sw-w)/2
			startY, endY = sh-h, 0
		}

		d, m := fmtFloat(duration), fmtFloat(mult)
		xExpr := fmt.Sprintf("%d+(%d-%d)*t/%s*%s", startX, endX, startX, d, m)
		yExpr := fmt.Sprintf("%d+(%d-%d)*t/%s*%s", startY, endY, startY, d, m)
		return fmt.Sprintf("scale=%d:%d,setsar=1:1,crop=%d:%d:%s:%s", sw, sh, w, h, xExpr, yExpr), false

	default:
		return fmt.Sprintf("scale=%d:%d,setsar=1:1", w, h), false
	}
}

// Background is the visual layer of a video.
type Background struct {
	Type   string  `json:"type"` // image | video
	File   string  `json:"file"`
	Effect *Effect `json:"effect,omitempty"`
}

// CaptionsInput burns a subtitle file into the video.
type CaptionsInput struct {
	File       string `json:"file"`
	FontsDir   string `json:"fontsdir,omitempty"`
	ForceStyle string `json:"force_style,omitempty"`
}

// VideoSpec describes a single-background render.
type VideoSpec struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Background *Background    `json:"background"`
	AudioFile  string         `json:"audio_file,omitempty"`
	Captions   *CaptionsInput `json:"captions,omitempty"`
	Output     string         `json:"output_path,omitempty"`
}

// Validate enforces the render combinations: a background is required, at
// least one of audio or captions is required, and an image background needs
// audio to define its length.
func (s VideoSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", s.Width, s.Height)
	}
	if s.Background == nil || s.Background.File == "" {
		return fmt.Errorf("background must be set (image or video)")
	}
	if s.Background.Type != "image" && s.Background.Type != "video" {
		return fmt.Errorf("background type must be image or video, got %q", s.Background.Type)
	}
	hasCaptions := s.Captions != nil && s.Captions.File != ""
	if s.AudioFile == "" && !hasCaptions {
		return fmt.Errorf("at least one of audio_file or captions must be provided")
	}
	if s.Background.Type == "image" && s.AudioFile == "" {
		return fmt.Errorf("audio file must be provided if background is an image")
	}
	return s.Background.Effect.Validate()
}

// buildVideoArgs renders the ffmpeg arguments for spec. audioDuration is
// only used for image backgrounds.
func buildVideoArgs(spec VideoSpec, audioDuration float64) []string {
	args := append([]string{}, ffmpegPrelude...)
	var filters []string

	if spec.Background.Type == "image" {
		args = append(args,
			"-loop", "1",
			"-t", fmtFloat(audioDuration),
			"-r", strconv.Itoa(DefaultFPS),
			"-i", spec.Background.File,
		)
		frames := int(audioDuration * DefaultFPS)
		chain, _ := imageChain(spec.Background.Effect.normalized(), spec.Width, spec.Height, DefaultFPS, audioDuration, frames+1)
		filters = append(filters, "[0]"+chain+"[bg]")
	} else {
		args = append(args, "-i", spec.Background.File)
		filters = append(filters, fmt.Sprintf("[0]scale=%d:%d,setsar=1:1[bg]", spec.Width, spec.Height))
	}

	if spec.AudioFile != "" {
		args = append(args, "-i", spec.AudioFile)
	}

	label := "[bg]"
	if spec.Captions != nil && spec.Captions.File != "" {
		filters = append(filters, "[bg]"+subtitlesFilter(*spec.Captions)+"[v]")
		label = "[v]"
	}

	args = append(args, "-filter_complex", strings.Join(filters, ";"), "-map", label)
	if spec.AudioFile != "" {
		args = append(args, "-map", "1:a")
	}
	args = append(args, videoCodecArgs...)
	if spec.AudioFile != "" {
		args = append(args, audioCodecArgs...)
	}
	return append(args, "-shortest", spec.Output)
}

// subtitlesFilter builds subtitles='file'[:fontsdir='dir'][:force_style='...'].
// Commas in force_style are escaped so the filter graph does not split them.
func subtitlesFilter(c CaptionsInput) string {
	opts := []string{"'" + ffPath(c.File) + "'"}
	if c.FontsDir != "" {
		opts = append(opts, "fontsdir='"+ffPath(c.FontsDir)+"'")
	}
	if c.ForceStyle != "" {
		opts = append(opts, "force_style='"+strings.ReplaceAll(c.ForceStyle, ",", `\,`)+"'")
	}
	return "subtitles=" + strings.Join(opts, ":")
}

// BuildVideo renders spec with ffmpeg and returns the absolute output path.
func (c *DependencyClient) BuildVideo(ctx context.Context, spec VideoSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	out, err := c.pathManager.ResolveOutput(spec.Output, "videos", ".mp4")
	if err != nil {
		return "", err
	}
	spec.Output = out

	var audioDuration float64
	if spec.AudioFile != "" {
		if audioDuration, err = c.ProbeDuration(ctx, spec.AudioFile); err != nil {
			return "", fmt.Errorf("could not determine audio duration: %w", err)
		}
	}

	if _, err := c.run(ctx, CommandRequest{Command: "ffmpeg", Args: buildVideoArgs(spec, audioDuration)}, "build video"); err != nil {
		return "", err
	}
	return out, nil
}

// ffPath returns an absolute path with forward slashes.
func ffPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return filepath.ToSlash(abs)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
