// Package browser owns the rod browser session and the per-platform tab
// lifecycle: find an existing tab for a platform, or open one in the
// background and give it a warm-up delay before anyone injects into it.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ewhitmore/postpilot/internal/models"
	"github.com/ewhitmore/postpilot/internal/util"
)

// Options configures the browser session.
type Options struct {
	// ControlURL attaches to an already-running browser's DevTools
	// endpoint instead of launching one.
	ControlURL string
	Headless   bool
	// Warmup is the blind delay after opening a fresh platform tab.
	// It is not a readiness signal; the page may still be loading.
	Warmup time.Duration
}

// Session wraps a rod browser and caches one page per platform. Cached
// pages are revalidated on every lookup because the user may close or
// navigate them at any time.
type Session struct {
	browser *rod.Browser
	warmup  time.Duration

	mu    sync.Mutex
	pages map[models.Platform]*rod.Page
}

// Launch starts (or attaches to) a browser. The initial connect is
// retried briefly because a freshly launched browser may not be
// accepting DevTools connections yet.
func Launch(opts Options) (*Session, error) {
	controlURL := opts.ControlURL
	if controlURL == "" {
		u, err := launcher.New().
			Leakless(false).
			Headless(opts.Headless).
			Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	err := util.RetryWithBackoff(context.Background(), 2, func(attempt int) error {
		return b.Connect()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to browser at %s: %w", controlURL, err)
	}

	return &Session{
		browser: b,
		warmup:  opts.Warmup,
		pages:   make(map[models.Platform]*rod.Page),
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	return s.browser.Close()
}

// PageFor returns a page showing the platform. Lookup order: the cached
// page if it still points at the platform, any open tab whose URL host
// matches, else a fresh background tab opened at homeURL followed by the
// warm-up delay.
func (s *Session) PageFor(ctx context.Context, platform models.Platform, homeURL string, hosts []string) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page, ok := s.pages[platform]; ok {
		if pageMatches(page, hosts) {
			return page.Context(ctx), nil
		}
		delete(s.pages, platform)
	}

	pages, err := s.browser.Pages()
	if err == nil {
		for _, page := range pages {
			if pageMatches(page, hosts) {
				s.pages[platform] = page
				return page.Context(ctx), nil
			}
		}
	} else {
		slog.Warn("Failed to list browser pages, opening a fresh tab", "platform", platform, "error", err)
	}

	slog.Info("Opening platform tab", "platform", platform, "url", homeURL)
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: homeURL, Background: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open tab for %s: %w", platform, err)
	}
	s.pages[platform] = page

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.warmup):
	}
	return page.Context(ctx), nil
}

// Forget drops the cached page for a platform, forcing the next lookup
// to rescan open tabs.
func (s *Session) Forget(platform models.Platform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, platform)
}

// LoggedOut parses the page's current DOM and reports whether any of the
// platform's logged-out markers are present. This fails "not logged in"
// fast instead of burning the whole selector timeout.
func (s *Session) LoggedOut(ctx context.Context, page *rod.Page, markers []string) (bool, error) {
	if len(markers) == 0 {
		return false, nil
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return false, fmt.Errorf("failed to snapshot page DOM: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("failed to parse page DOM: %w", err)
	}

	for _, marker := range markers {
		if doc.Find(marker).Length() > 0 {
			return true, nil
		}
	}
	return false, nil
}

func pageMatches(page *rod.Page, hosts []string) bool {
	info, err := page.Info()
	if err != nil {
		return false
	}
	parsed, err := url.Parse(info.URL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
