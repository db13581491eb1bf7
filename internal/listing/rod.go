package listing

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RodConfig configures headless Chrome sessions.
type RodConfig struct {
	// Bin is an explicit Chrome binary. Empty lets the launcher find or download one.
	Bin string
	// Headless runs Chrome without a window. Default: true.
	Headless bool
	// UserAgent overrides the browser user agent when set.
	UserAgent string
	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration
}

// RodBrowser launches a fresh stealth Chrome session for every page.
type RodBrowser struct {
	cfg RodConfig
}

// NewRodBrowser creates a Browser backed by go-rod.
func NewRodBrowser(cfg RodConfig) *RodBrowser {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	return &RodBrowser{cfg: cfg}
}

// Open launches Chrome, opens a stealth page and navigates to pageURL.
func (b *RodBrowser) Open(ctx context.Context, pageURL string) (Page, error) {
	l := launcher.New().
		Context(ctx).
		Headless(b.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if b.cfg.Bin != "" {
		l = l.Bin(b.cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "listing: launch browser")
	}
	s := &rodPage{launcher: l}

	s.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		_ = s.Close()
		return nil, eris.Wrap(err, "listing: connect browser")
	}

	s.page, err = stealth.Page(s.browser)
	if err != nil {
		_ = s.Close()
		return nil, eris.Wrap(err, "listing: create page")
	}

	if b.cfg.UserAgent != "" {
		if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
			zap.L().Warn("listing: set user agent", zap.Error(err))
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()

	if err := s.page.Context(navCtx).Navigate(pageURL); err != nil {
		_ = s.Close()
		return nil, eris.Wrapf(err, "listing: navigate %s", pageURL)
	}
	if err := s.page.Context(navCtx).WaitLoad(); err != nil {
		zap.L().Warn("listing: wait load", zap.String("url", pageURL), zap.Error(err))
	}
	return s, nil
}

// rodPage owns the whole session: page, browser connection and Chrome process.
type rodPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func (p *rodPage) Text(ctx context.Context, css string) (string, error) {
	has, el, err := p.page.Context(ctx).Has(css)
	if err != nil {
		return "", eris.Wrapf(err, "listing: query %s", css)
	}
	return elementText(has, el)
}

func (p *rodPage) TextX(ctx context.Context, xpath string) (string, error) {
	has, el, err := p.page.Context(ctx).HasX(xpath)
	if err != nil {
		return "", eris.Wrapf(err, "listing: query %s", xpath)
	}
	return elementText(has, el)
}

func elementText(has bool, el *rod.Element) (string, error) {
	if !has || el == nil {
		return "", ErrNoSuchElement
	}
	text, err := el.Text()
	if err != nil {
		return "", eris.Wrap(err, "listing: element text")
	}
	return strings.TrimSpace(text), nil
}

// Close tears down the page, the browser and the Chrome process.
func (p *rodPage) Close() error {
	var firstErr error
	if p.page != nil {
		if err := p.page.Close(); err != nil {
			firstErr = eris.Wrap(err, "listing: close page")
		}
	}
	if p.browser != nil {
		if err := p.browser.Close(); err != nil && firstErr == nil {
			firstErr = eris.Wrap(err, "listing: close browser")
		}
	}
	if p.launcher != nil {
		p.launcher.Kill()
		p.launcher.Cleanup()
	}
	return firstErr
}
