// Package poster achieves the effect of a human publishing a post
// through a platform's web UI: locate the composer, type the content,
// and click the platform's own submit (or native scheduling) control.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/ewhitmore/postpilot/internal/models"
)

// TabManager provides platform pages and preflight checks. Implemented
// by browser.Session.
type TabManager interface {
	PageFor(ctx context.Context, platform models.Platform, homeURL string, hosts []string) (*rod.Page, error)
	LoggedOut(ctx context.Context, page *rod.Page, markers []string) (bool, error)
	Forget(platform models.Platform)
}

// JitterPolicy is the humanizing delay inserted before the submit
// control is located and clicked. A zero policy disables the delay
// entirely, which is what tests inject.
type JitterPolicy struct {
	Min time.Duration
	Max time.Duration
}

func (j JitterPolicy) delay() time.Duration {
	if j.Max <= 0 {
		return 0
	}
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int63n(int64(j.Max-j.Min)))
}

// Engine publishes a single post via the adapter registered for its
// platform.
type Engine struct {
	tabs     TabManager
	adapters map[models.Platform]Adapter
	jitter   JitterPolicy
}

func NewEngine(tabs TabManager, jitter JitterPolicy, adapters ...Adapter) *Engine {
	m := make(map[models.Platform]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &Engine{tabs: tabs, adapters: m, jitter: jitter}
}

// Publish runs the full injection sequence for one post. A nil return
// means a submit/confirm control was found, enabled, and clicked; every
// other outcome is an error the caller treats as "not posted".
func (e *Engine) Publish(ctx context.Context, post models.Post) error {
	adapter, ok := e.adapters[post.Platform]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotAutomated, post.Platform)
	}

	homeURL, hosts := adapter.PageTarget()
	page, err := e.tabs.PageFor(ctx, post.Platform, homeURL, hosts)
	if err != nil {
		return fmt.Errorf("no usable tab for %s: %w", post.Platform, err)
	}

	loggedOut, err := e.tabs.LoggedOut(ctx, page, adapter.LoggedOutMarkers())
	if err != nil {
		// Preflight is advisory; a failed snapshot falls through to the
		// selector timeout like any other missing-element case.
		slog.Warn("Logged-out preflight failed, continuing", "platform", post.Platform, "error", err)
		e.tabs.Forget(post.Platform)
	} else if loggedOut {
		return fmt.Errorf("not logged in to %s", post.Platform)
	}

	composerSel, err := adapter.LocateComposer(ctx, page)
	if err != nil {
		return err
	}
	if err := adapter.InsertContent(ctx, page, composerSel, buildBody(post)); err != nil {
		return err
	}

	if d := e.jitter.delay(); d > 0 {
		slog.Debug("Humanizing delay before submit", "platform", post.Platform, "delay", d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}

	if post.ScheduledTime != nil && post.ScheduledTime.After(time.Now()) {
		return adapter.ConfirmSchedule(ctx, page, *post.ScheduledTime)
	}

	submitSel, err := adapter.LocateSubmit(ctx, page)
	if err != nil {
		return err
	}
	return adapter.ClickSubmit(ctx, page, submitSel)
}

// buildBody appends hashtags that are not already part of the content.
func buildBody(post models.Post) string {
	body := post.Content
	var extra []string
	for _, tag := range post.Hashtags {
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if !strings.Contains(body, tag) {
			extra = append(extra, tag)
		}
	}
	if len(extra) > 0 {
		body += "\n\n" + strings.Join(extra, " ")
	}
	return body
}
