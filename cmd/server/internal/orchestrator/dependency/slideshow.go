package dependency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SlideshowSpec describes a multi-image render. Each image becomes its own
// segment; segments are concatenated and then muxed with audio and captions.
type SlideshowSpec struct {
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	FPS            int       `json:"fps,omitempty"`
	Images         []string  `json:"images"`
	AudioFile      string    `json:"audio_file,omitempty"`
	CaptionsFile   string    `json:"captions_file,omitempty"`
	Output         string    `json:"output_path,omitempty"`
	ImageDurations []float64 `json:"image_durations,omitempty"`
	Effect         *Effect   `json:"effect_config,omitempty"`
	Effects        []*Effect `json:"effect_configs,omitempty"`
	KeepTemps      bool      `json:"keep_temps,omitempty"`
	Concurrency    int       `json:"-"`
}

// Validate checks the static shape of the request.
func (s SlideshowSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", s.Width, s.Height)
	}
	if len(s.Images) == 0 {
		return errors.New("no images provided")
	}
	if s.AudioFile == "" && len(s.ImageDurations) == 0 {
		return errors.New("image_durations must be provided when no audio file is given")
	}
	if len(s.Effects) > 0 && len(s.Effects) != len(s.Images) {
		return fmt.Errorf("effect_configs length %d does not match number of images %d", len(s.Effects), len(s.Images))
	}
	if err := s.Effect.Validate(); err != nil {
		return err
	}
	for i, e := range s.Effects {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("effect_configs[%d]: %w", i, err)
		}
	}
	return nil
}

func (s SlideshowSpec) effectFor(i int) Effect {
	if len(s.Effects) > 0 && s.Effects[i] != nil {
		return s.Effects[i].normalized()
	}
	return s.Effect.normalized()
}

// ComputeDurations returns per-image durations. Explicit durations must
// match n and be positive. Otherwise total is split evenly and the last
// image absorbs rounding so the sum equals total.
func ComputeDurations(n int, total float64, explicit []float64) ([]float64, error) {
	if n <= 0 {
		return nil, errors.New("no images provided")
	}
	if len(explicit) > 0 {
		if len(explicit) != n {
			return nil, fmt.Errorf("image_durations length %d does not match number of images %d", len(explicit), n)
		}
		for i, d := range explicit {
			if d <= 0 {
				return nil, fmt.Errorf("image_durations[%d] must be positive, got %v", i, d)
			}
		}
		return append([]float64(nil), explicit...), nil
	}
	if total <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %v", total)
	}

	per := total / float64(n)
	out := make([]float64, n)
	var sum float64
	for i := 0; i < n-1; i++ {
		out[i] = per
		sum += per
	}
	out[n-1] = math.Max(0.01, total-sum)
	return out, nil
}

func segmentArgs(image, output string, eff Effect, w, h, fps int, duration float64) []string {
	frames := max(1, int(math.Round(duration*float64(fps))))
	chain, hasFPS := imageChain(eff, w, h, fps, duration, frames)
	if !hasFPS {
		chain += ",fps=" + strconv.Itoa(fps)
	}
	chain += fmt.Sprintf(",trim=duration=%.6f,setpts=PTS-STARTPTS", duration)

	args := append([]string{}, ffmpegPrelude...)
	args = append(args, "-loop", "1", "-i", image, "-filter_complex", "[0]"+chain+"[v]", "-map", "[v]")
	args = append(args, videoCodecArgs...)
	return append(args, "-an", output)
}

func concatArgs(listFile, output string, reencode bool) []string {
	args := append([]string{}, ffmpegPrelude...)
	args = append(args, "-f", "concat", "-safe", "0", "-i", listFile)
	if reencode {
		args = append(args, videoCodecArgs...)
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, output)
}

// muxArgs returns nil when neither audio nor captions are present; the
// concatenated video is then copied as-is.
func muxArgs(video, audio, captions, output string) []string {
	args := append([]string{}, ffmpegPrelude...)
	switch {
	case audio != "" && captions != "":
		args = append(args, "-i", video, "-i", audio,
			"-filter_complex", "[0:v]subtitles=filename='"+escapeFilterPath(ffPath(captions))+"'[v]",
			"-map", "[v]", "-map", "1:a")
		args = append(args, videoCodecArgs...)
		args = append(args, audioCodecArgs...)
		args = append(args, "-shortest")
	case audio != "":
		args = append(args, "-i", video, "-i", audio, "-map", "0:v", "-map", "1:a", "-c:v", "copy")
		args = append(args, audioCodecArgs...)
		args = append(args, "-shortest")
	case captions != "":
		args = append(args, "-i", video, "-vf", "subtitles=filename='"+escapeFilterPath(ffPath(captions))+"'")
		args = append(args, videoCodecArgs...)
	default:
		return nil
	}
	return append(args, output)
}

// escapeFilterPath escapes a path for use inside a quoted filter option.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	return r.Replace(p)
}

// concatList renders an ffmpeg concat demuxer list.
func concatList(files []string) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(ffPath(f), "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// BuildSlideshow renders spec and returns the absolute output path.
func (c *DependencyClient) BuildSlideshow(ctx context.Context, spec SlideshowSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	if spec.FPS <= 0 {
		spec.FPS = DefaultFPS
	}

	var total float64
	if spec.AudioFile != "" && len(spec.ImageDurations) == 0 {
		d, err := c.ProbeDuration(ctx, spec.AudioFile)
		if err != nil {
			return "", fmt.Errorf("could not determine audio duration: %w", err)
		}
		total = d
	}
	durations, err := ComputeDurations(len(spec.Images), total, spec.ImageDurations)
	if err != nil {
		return "", err
	}

	out, err := c.pathManager.ResolveOutput(spec.Output, "videos", ".mp4")
	if err != nil {
		return "", err
	}
	workDir, err := c.pathManager.TempDir("slideshow")
	if err != nil {
		return "", err
	}
	if !spec.KeepTemps {
		defer os.RemoveAll(workDir)
	}

	segments := make([]string, len(spec.Images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, spec.Concurrency))
	for i, img := range spec.Images {
		segments[i] = filepath.Join(workDir, fmt.Sprintf("seg_%03d.mp4", i))
		args := segmentArgs(img, segments[i], spec.effectFor(i), spec.Width, spec.Height, spec.FPS, durations[i])
		step := fmt.Sprintf("render segment %d", i)
		g.Go(func() error {
			_, err := c.run(gctx, CommandRequest{Command: "ffmpeg", Args: args}, step)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	listFile := filepath.Join(workDir, "concat_list.txt")
	if err := os.WriteFile(listFile, []byte(concatList(segments)), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	joined := filepath.Join(workDir, "joined.mp4")
	if _, err := c.run(ctx, CommandRequest{Command: "ffmpeg", Args: concatArgs(listFile, joined, false)}, "concat segments"); err != nil {
		if !errors.Is(err, ErrCommandFailed) {
			return "", err
		}
		c.logger.Warn("stream copy concat failed, re-encoding", "error", err)
		if _, err := c.run(ctx, CommandRequest{Command: "ffmpeg", Args: concatArgs(listFile, joined, true)}, "concat segments (re-encode)"); err != nil {
			return "", err
		}
	}

	args := muxArgs(joined, spec.AudioFile, spec.CaptionsFile, out)
	if args == nil {
		if err := copyFile(joined, out); err != nil {
			return "", err
		}
		return out, nil
	}
	if _, err := c.run(ctx, CommandRequest{Command: "ffmpeg", Args: args}, "mux audio and captions"); err != nil {
		return "", err
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	outFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}
