package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/metrics"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
)

// SegmentRequest is the body of POST /caption/segment.
type SegmentRequest struct {
	Tokens    []caption.Token `json:"tokens" binding:"required"`
	Mode      string          `json:"mode"`
	MaxLength int             `json:"max_length"`
	Lines     int             `json:"lines"`
}

// SegmentResponse lists the produced segments.
type SegmentResponse struct {
	Mode     caption.Mode      `json:"mode"`
	Count    int               `json:"count"`
	Segments []caption.Segment `json:"segments"`
}

// StyleRequest carries the renderer fields shared by the ASS endpoints.
type StyleRequest struct {
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	FontName           string  `json:"font_name"`
	FontSize           int     `json:"font_size"`
	FontColor          string  `json:"font_color"`
	Bold               *bool   `json:"bold"`
	Italic             bool    `json:"italic"`
	StrokeColor        string  `json:"stroke_color"`
	StrokeSize         int     `json:"stroke_size"`
	ShadowColor        string  `json:"shadow_color"`
	ShadowTransparency float64 `json:"shadow_transparency"`
	ShadowBlur         int     `json:"shadow_blur"`
	SubtitlePosition   string  `json:"subtitle_position"`
	FadeMs             int     `json:"fade_ms"`
	OutputPath         string  `json:"output_path"`
}

func defaultStyleRequest() StyleRequest {
	s := caption.DefaultStyle()
	return StyleRequest{
		Width:              s.Width,
		Height:             s.Height,
		FontName:           s.FontName,
		FontSize:           s.FontSize,
		FontColor:          s.FontColor,
		StrokeColor:        s.StrokeColor,
		StrokeSize:         s.StrokeSize,
		ShadowColor:        s.ShadowColor,
		ShadowTransparency: 0.55,
		ShadowBlur:         3,
		SubtitlePosition:   string(s.Position),
		FadeMs:             s.FadeMs,
	}
}

// style converts the request to a caption.Style; transparency is clamped
// to [0, 1].
func (r StyleRequest) style() caption.Style {
	s := caption.DefaultStyle()
	s.Width, s.Height = r.Width, r.Height
	s.FontName, s.FontSize, s.FontColor = r.FontName, r.FontSize, r.FontColor
	if r.Bold != nil {
		s.Bold = *r.Bold
	}
	s.Italic = r.Italic
	s.StrokeColor, s.StrokeSize = r.StrokeColor, r.StrokeSize
	s.ShadowColor, s.ShadowBlur = r.ShadowColor, r.ShadowBlur
	s.ShadowTransparency = min(1, max(0, r.ShadowTransparency))
	s.Position = caption.Position(r.SubtitlePosition)
	s.FadeMs = r.FadeMs
	return s
}

// ConvertVTTRequest is the body of POST /caption/convert_vtt.
type ConvertVTTRequest struct {
	VTTText          string `json:"vtt_text" binding:"required"`
	LanguageHint     string `json:"language_hint"`
	MaxLengthPerLine int    `json:"max_length_per_line"`
	LinesPerSegment  int    `json:"lines_per_segment"`
	StyleRequest
}

// RenderSegmentsRequest is the body of POST /caption/render_segments.
type RenderSegmentsRequest struct {
	Segments []caption.Segment `json:"segments" binding:"required"`
	StyleRequest
}

// ASSResponse points at the written subtitle file.
type ASSResponse struct {
	ASSPath  string `json:"ass_path"`
	Language string `json:"language,omitempty"`
	Segments int    `json:"segments"`
}

// HandleSegmentCaptions 按词或按句对时间戳文本分段
// POST /caption/segment
func HandleSegmentCaptions(defaults caption.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SegmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		mode, err := caption.ParseMode(req.Mode)
		if err != nil {
			respondError(c, "caption", err)
			return
		}
		opts := defaults
		if req.MaxLength != 0 {
			opts.MaxLength = req.MaxLength
		}
		if req.Lines != 0 {
			opts.Lines = req.Lines
		}

		segments, err := caption.SegmentTokens(req.Tokens, mode, opts)
		if err != nil {
			respondError(c, "caption", err)
			return
		}
		if segments == nil {
			segments = []caption.Segment{}
		}
		metrics.RecordSegments(string(mode), len(segments))
		metrics.RecordJob("caption", true)
		c.JSON(http.StatusOK, SegmentResponse{Mode: mode, Count: len(segments), Segments: segments})
	}
}

// HandleConvertVTT 将 WebVTT 转换为 ASS 字幕文件
// POST /caption/convert_vtt
func HandleConvertVTT(paths *dependency.PathManager, defaults caption.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := ConvertVTTRequest{
			LanguageHint:     caption.HintAuto,
			MaxLengthPerLine: defaults.MaxLength,
			LinesPerSegment:  defaults.Lines,
			StyleRequest:     defaultStyleRequest(),
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		opts := caption.ConvertOptions{
			LanguageHint: req.LanguageHint,
			Options:      caption.Options{MaxLength: req.MaxLengthPerLine, Lines: req.LinesPerSegment},
			Style:        req.style(),
		}
		if err := opts.Style.Validate(); err != nil {
			badRequest(c, err.Error())
			return
		}

		var result *caption.ConversionResult
		path, err := writeOutput(paths, req.OutputPath, func(f *os.File) error {
			var convErr error
			result, convErr = caption.ConvertVTT(req.VTTText, opts, f)
			return convErr
		})
		if err != nil {
			respondError(c, "caption", err)
			return
		}
		metrics.RecordSegments(string(caption.ModeSentence), len(result.Segments))
		metrics.RecordJob("caption", true)
		c.JSON(http.StatusOK, ASSResponse{ASSPath: path, Language: result.Language, Segments: len(result.Segments)})
	}
}

// HandleRenderSegments 将已分段字幕渲染为 ASS 文件
// POST /caption/render_segments
func HandleRenderSegments(paths *dependency.PathManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := RenderSegmentsRequest{StyleRequest: defaultStyleRequest()}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		style := req.style()
		if err := style.Validate(); err != nil {
			badRequest(c, err.Error())
			return
		}
		for i, seg := range req.Segments {
			if seg.End < seg.Start {
				respondError(c, "caption", fmt.Errorf("%w: segment %d", caption.ErrInvalidToken, i))
				return
			}
		}

		path, err := writeOutput(paths, req.OutputPath, func(f *os.File) error {
			return caption.RenderASS(f, req.Segments, style)
		})
		if err != nil {
			respondError(c, "caption", err)
			return
		}
		metrics.RecordJob("caption", true)
		c.JSON(http.StatusOK, ASSResponse{ASSPath: path, Segments: len(req.Segments)})
	}
}

// writeOutput resolves an .ass target under captions/ and lets write fill
// it. A failed write leaves no file behind.
func writeOutput(paths *dependency.PathManager, requested string, write func(*os.File) error) (string, error) {
	path, err := paths.ResolveOutput(requested, "captions", ".ass")
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
