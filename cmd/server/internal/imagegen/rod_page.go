package imagegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	promptSelector   = `textarea.lv-textarea[placeholder^="请输入图片生成的提示词"]`
	submitSelector   = `button.lv-btn.lv-btn-primary.lv-btn-size-default.lv-btn-shape-circle.lv-btn-icon-only[type="button"]`
	imageSelector    = `img[class^="image-"]`
	downloadSelector = `span[class*="action-button-"]`

	elementTimeout  = 5 * time.Second
	loadTimeout     = 30 * time.Second
	downloadTimeout = 60 * time.Second
)

// rodPage drives the generator tab with go-rod.
type rodPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// launchRod connects to cfg.ControlURL or launches a browser on the
// profile, then reuses a tab already showing the target or opens one.
func launchRod(ctx context.Context, cfg Config) (Page, error) {
	p := &rodPage{}
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.ProfileDir != "" {
			l = l.UserDataDir(cfg.ProfileDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		p.launcher = l
		controlURL = u
	}

	p.browser = rod.New().ControlURL(controlURL)
	if err := p.browser.Connect(); err != nil {
		p.cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := p.openTarget(ctx, cfg.TargetURL)
	if err != nil {
		p.cleanup()
		return nil, err
	}
	p.page = page

	if cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			p.cleanup()
			return nil, ctx.Err()
		case <-time.After(cfg.SettleDelay):
		}
	}
	return p, nil
}

func (p *rodPage) openTarget(ctx context.Context, target string) (*rod.Page, error) {
	pages, err := p.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	for _, page := range pages {
		info, err := page.Info()
		if err != nil || !strings.Contains(info.URL, target) {
			continue
		}
		if _, err := page.Activate(); err != nil {
			return nil, fmt.Errorf("activate tab: %w", err)
		}
		tab := page.Context(ctx).Timeout(loadTimeout)
		if err := tab.Reload(); err != nil {
			return nil, fmt.Errorf("reload tab: %w", err)
		}
		if err := tab.WaitLoad(); err != nil {
			return nil, fmt.Errorf("wait for load: %w", err)
		}
		return page, nil
	}

	page, err := p.browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	if err := page.Context(ctx).Timeout(loadTimeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for load: %w", err)
	}
	return page, nil
}

func (p *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Timeout(elementTimeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return el, nil
}

func (p *rodPage) SetPrompt(ctx context.Context, text string) error {
	el, err := p.element(ctx, promptSelector)
	if err != nil {
		return err
	}
	// the UI is React-controlled; setting value needs an input event
	if _, err := el.Eval(`() => { this.value = ''; this.dispatchEvent(new Event('input', { bubbles: true })) }`); err != nil {
		return fmt.Errorf("clear prompt: %w", err)
	}
	if text == "" {
		return nil
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type prompt: %w", err)
	}
	return nil
}

func (p *rodPage) Submit(ctx context.Context) error {
	el, err := p.element(ctx, submitSelector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ImageSources(ctx context.Context) ([]string, error) {
	els, err := p.page.Context(ctx).Elements(imageSelector)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	srcs := make([]string, 0, len(els))
	for _, el := range els {
		src, err := el.Attribute("src")
		if err != nil {
			return nil, fmt.Errorf("read src: %w", err)
		}
		if src != nil {
			srcs = append(srcs, *src)
		}
	}
	return srcs, nil
}

// Download hovers the image to reveal its action bar and clicks the first
// action, which is the download button.
func (p *rodPage) Download(ctx context.Context, index int, dir string) (string, error) {
	els, err := p.page.Context(ctx).Elements(imageSelector)
	if err != nil {
		return "", fmt.Errorf("list images: %w", err)
	}
	if index >= len(els) {
		return "", fmt.Errorf("image index %d out of range (%d images)", index, len(els))
	}
	if err := els[index].Hover(); err != nil {
		return "", fmt.Errorf("hover image: %w", err)
	}
	button, err := p.element(ctx, downloadSelector)
	if err != nil {
		return "", err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	wait := p.browser.Context(ctx).Timeout(downloadTimeout).WaitDownload(absDir)
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click download: %w", err)
	}
	info := wait()
	if info == nil {
		return "", fmt.Errorf("download did not start")
	}

	name := filepath.Base(info.SuggestedFilename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = info.GUID + ".png"
	}
	dst := filepath.Join(absDir, name)
	if err := os.Rename(filepath.Join(absDir, info.GUID), dst); err != nil {
		return "", fmt.Errorf("move download: %w", err)
	}
	return dst, nil
}

func (p *rodPage) Close() error {
	var err error
	if p.page != nil {
		err = p.page.Close()
	}
	p.cleanup()
	return err
}

func (p *rodPage) cleanup() {
	if p.browser != nil && p.launcher != nil {
		_ = p.browser.Close()
	}
	if p.launcher != nil {
		p.launcher.Cleanup()
	}
}
