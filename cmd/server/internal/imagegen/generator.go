// Package imagegen drives the Jimeng image generation web UI through a
// real browser: type a prompt, submit, watch for new images and download
// them.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/pkg/logger"
)

const (
	DefaultTargetURL    = "https://jimeng.jianying.com/ai-tool/generate"
	defaultAttempts     = 5
	defaultPollInterval = 10 * time.Second
	lockFileName        = ".mediaflow.lock"
)

var (
	// ErrNotStarted is returned by page operations before Start.
	ErrNotStarted = errors.New("image generator is not started")
	// ErrProfileLocked means another process drives the browser profile.
	ErrProfileLocked = errors.New("browser profile is locked by another process")
)

// Page is one browser tab showing the generator.
type Page interface {
	// SetPrompt replaces the prompt text; "" clears it.
	SetPrompt(ctx context.Context, text string) error
	Submit(ctx context.Context) error
	// ImageSources lists the src of every generated image, newest first.
	ImageSources(ctx context.Context) ([]string, error)
	// Download saves the image at index into dir and returns the file path.
	Download(ctx context.Context, index int, dir string) (string, error)
	Close() error
}

// LaunchFunc opens the generator page.
type LaunchFunc func(ctx context.Context, cfg Config) (Page, error)

// Config configures the browser session.
type Config struct {
	TargetURL   string
	ProfileDir  string
	DownloadDir string
	Headless    bool
	// ControlURL attaches to a running browser instead of launching one.
	ControlURL string
	// SettleDelay is waited after the page loads.
	SettleDelay time.Duration
}

// Status is a snapshot of the generator.
type Status struct {
	Started     bool     `json:"started"`
	KnownImages int      `json:"known_images"`
	Downloaded  []string `json:"downloaded"`
}

// Generator serializes access to one generator page.
type Generator struct {
	cfg          Config
	launch       LaunchFunc
	lock         *flock.Flock
	logger       *slog.Logger
	pollInterval time.Duration
	attempts     int

	mu         sync.Mutex
	page       Page
	known      map[string]struct{}
	downloaded []string
}

// New creates a Generator that launches pages with go-rod.
func New(cfg Config) *Generator {
	return NewWithLauncher(cfg, launchRod)
}

// NewWithLauncher creates a Generator with a custom page launcher.
func NewWithLauncher(cfg Config, launch LaunchFunc) *Generator {
	if cfg.TargetURL == "" {
		cfg.TargetURL = DefaultTargetURL
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "./output/images"
	}
	g := &Generator{
		cfg:          cfg,
		launch:       launch,
		logger:       logger.OrDefault().With("component", "imagegen"),
		pollInterval: defaultPollInterval,
		attempts:     defaultAttempts,
		known:        make(map[string]struct{}),
	}
	if cfg.ProfileDir != "" {
		g.lock = flock.New(filepath.Join(cfg.ProfileDir, lockFileName))
	}
	return g
}

// Start locks the profile, opens the page and records the images already
// present so later refreshes only report new ones. Calling Start on a
// started generator is a no-op.
func (g *Generator) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.page != nil {
		return nil
	}

	if g.lock != nil {
		if err := os.MkdirAll(g.cfg.ProfileDir, 0o755); err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
		ok, err := g.lock.TryLock()
		if err != nil {
			return fmt.Errorf("lock profile: %w", err)
		}
		if !ok {
			return orchestrator.NewOrchError(orchestrator.ENV_NOT_READY, ErrProfileLocked.Error(), ErrProfileLocked)
		}
	}

	page, err := g.launch(ctx, g.cfg)
	if err != nil {
		g.unlock()
		return orchestrator.NewBrowserError(err)
	}
	g.page = page

	if _, err := g.refreshLocked(ctx); err != nil {
		g.logger.Warn("initial image snapshot failed", "error", err)
	}
	g.logger.Info("image generator started", "url", g.cfg.TargetURL, "known_images", len(g.known))
	return nil
}

func (g *Generator) unlock() {
	if g.lock == nil {
		return
	}
	if err := g.lock.Unlock(); err != nil {
		g.logger.Warn("failed to release profile lock", "error", err)
	}
}

func (g *Generator) requirePage() (Page, error) {
	if g.page == nil {
		return nil, orchestrator.NewOrchError(orchestrator.ENV_NOT_READY, ErrNotStarted.Error(), ErrNotStarted)
	}
	return g.page, nil
}

// ClearPrompt empties the prompt box.
func (g *Generator) ClearPrompt(ctx context.Context) error {
	return g.SetPrompt(ctx, "")
}

// SetPrompt replaces the prompt text.
func (g *Generator) SetPrompt(ctx context.Context, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	page, err := g.requirePage()
	if err != nil {
		return err
	}
	if err := page.SetPrompt(ctx, text); err != nil {
		return orchestrator.NewBrowserError(err)
	}
	return nil
}

// Submit clicks the generate button.
func (g *Generator) Submit(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	page, err := g.requirePage()
	if err != nil {
		return err
	}
	if err := page.Submit(ctx); err != nil {
		return orchestrator.NewBrowserError(err)
	}
	return nil
}

// RefreshImages returns the image sources not seen before and marks them
// as known.
func (g *Generator) RefreshImages(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshLocked(ctx)
}

func (g *Generator) refreshLocked(ctx context.Context) ([]string, error) {
	page, err := g.requirePage()
	if err != nil {
		return nil, err
	}
	srcs, err := page.ImageSources(ctx)
	if err != nil {
		return nil, orchestrator.NewBrowserError(err)
	}
	var fresh []string
	for _, src := range srcs {
		if src == "" {
			continue
		}
		if _, seen := g.known[src]; seen {
			continue
		}
		g.known[src] = struct{}{}
		fresh = append(fresh, src)
	}
	return fresh, nil
}

// Download saves the image at index into the download directory.
func (g *Generator) Download(ctx context.Context, index int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.downloadLocked(ctx, index)
}

func (g *Generator) downloadLocked(ctx context.Context, index int) (string, error) {
	if index < 0 {
		return "", orchestrator.NewInvalidInputError(fmt.Sprintf("invalid image index %d", index), nil)
	}
	page, err := g.requirePage()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.cfg.DownloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path, err := page.Download(ctx, index, g.cfg.DownloadDir)
	if err != nil {
		return "", orchestrator.NewBrowserError(fmt.Errorf("image %d: %w", index, err))
	}
	g.downloaded = append(g.downloaded, path)
	g.logger.Info("image downloaded", "index", index, "path", path)
	return path, nil
}

// DownloadNew polls for new images and downloads them once they appear.
// New images sit at the top of the page, so indices 0..n-1 are fetched.
// It gives up after a fixed number of attempts and returns nil then.
func (g *Generator) DownloadNew(ctx context.Context) ([]string, error) {
	for attempt := 1; attempt <= g.attempts; attempt++ {
		fresh, err := g.RefreshImages(ctx)
		if err != nil {
			return nil, err
		}
		if len(fresh) > 0 {
			return g.downloadFirst(ctx, len(fresh))
		}
		g.logger.Debug("no new images yet", "attempt", attempt)
		if attempt == g.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.pollInterval):
		}
	}
	return nil, nil
}

func (g *Generator) downloadFirst(ctx context.Context, n int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path, err := g.downloadLocked(ctx, i)
		if err != nil {
			// keep what was saved; the rest can be fetched with Download
			g.logger.Warn("download failed", "index", i, "error", err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Status reports whether the page is open and what has been seen.
func (g *Generator) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		Started:     g.page != nil,
		KnownImages: len(g.known),
		Downloaded:  append([]string{}, g.downloaded...),
	}
}

// Close closes the page and releases the profile lock.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.page == nil {
		return nil
	}
	err := g.page.Close()
	g.page = nil
	g.unlock()
	return err
}
