package poster

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ewhitmore/postpilot/internal/models"
)

// Adapter drives one platform's composer through its web UI. All
// selector brittleness lives behind this interface: when a platform
// changes its markup, only its selector lists need to move.
type Adapter interface {
	Platform() models.Platform
	// PageTarget returns the URL to open when no tab exists and the
	// hosts an existing tab may be matched by.
	PageTarget() (homeURL string, hosts []string)
	LoggedOutMarkers() []string
	// LocateComposer polls for the content-input element and returns
	// the selector that matched.
	LocateComposer(ctx context.Context, page *rod.Page) (string, error)
	// InsertContent types the post body into the located composer.
	InsertContent(ctx context.Context, page *rod.Page, composerSel, text string) error
	// LocateSubmit polls for an enabled submit control.
	LocateSubmit(ctx context.Context, page *rod.Page) (string, error)
	ClickSubmit(ctx context.Context, page *rod.Page, submitSel string) error
	// ConfirmSchedule walks the platform's native scheduling dialog.
	// Best-effort: there is no fallback when the dialog has changed.
	ConfirmSchedule(ctx context.Context, page *rod.Page, at time.Time) error
}

const defaultPollInterval = 300 * time.Millisecond

// evalFunc runs a page-context script. Broken out so tests can drive
// the locate loops without a live browser.
type evalFunc func(ctx context.Context, page *rod.Page, js string, params ...interface{}) (*proto.RuntimeRemoteObject, error)

func pageEval(ctx context.Context, page *rod.Page, js string, params ...interface{}) (*proto.RuntimeRemoteObject, error) {
	return page.Context(ctx).Eval(js, params...)
}

// webAdapter is the selector-driven implementation shared by X and
// LinkedIn; the two differ only in their selector lists.
type webAdapter struct {
	platform models.Platform
	sel      PlatformSelectors
	timeout  time.Duration
	poll     time.Duration
	eval     evalFunc
}

// NewAdapter builds the adapter for a platform from its selector lists.
// timeout bounds every locate poll.
func NewAdapter(platform models.Platform, sel PlatformSelectors, timeout time.Duration) Adapter {
	return &webAdapter{
		platform: platform,
		sel:      sel,
		timeout:  timeout,
		poll:     defaultPollInterval,
		eval:     pageEval,
	}
}

func (a *webAdapter) Platform() models.Platform { return a.platform }

func (a *webAdapter) PageTarget() (string, []string) {
	return a.sel.HomeURL, a.sel.Hosts
}

func (a *webAdapter) LoggedOutMarkers() []string { return a.sel.LoggedOut }

func (a *webAdapter) LocateComposer(ctx context.Context, page *rod.Page) (string, error) {
	// One deadline covers both phases, so a missing trigger cannot
	// double the configured bound.
	deadline := time.Now().Add(a.timeout)

	// Some platforms hide the composer behind a trigger button
	// ("Start a post"); click it first when configured. The trigger is
	// optional, so it only gets a slice of the budget.
	if len(a.sel.OpenComposer) > 0 {
		triggerDeadline := time.Now().Add(a.timeout / 4)
		if triggerDeadline.After(deadline) {
			triggerDeadline = deadline
		}
		if sel, err := a.locateUntil(ctx, page, a.sel.OpenComposer, false, triggerDeadline); err == nil {
			if err := a.click(ctx, page, sel); err != nil {
				return "", fmt.Errorf("failed to open %s composer: %w", a.platform, err)
			}
		}
	}

	sel, err := a.locateUntil(ctx, page, a.sel.Composer, false, deadline)
	if err != nil {
		return "", fmt.Errorf("composer not found on %s: %w", a.platform, err)
	}
	return sel, nil
}

func (a *webAdapter) InsertContent(ctx context.Context, page *rod.Page, composerSel, text string) error {
	res, err := a.eval(ctx, page, jsInsert, composerSel, text)
	if err != nil {
		return fmt.Errorf("failed to insert content on %s: %w", a.platform, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("composer %q disappeared before content insertion on %s", composerSel, a.platform)
	}
	return nil
}

func (a *webAdapter) LocateSubmit(ctx context.Context, page *rod.Page) (string, error) {
	sel, err := a.locate(ctx, page, a.sel.Submit, true)
	if err != nil {
		return "", fmt.Errorf("no enabled submit control on %s: %w", a.platform, err)
	}
	return sel, nil
}

func (a *webAdapter) ClickSubmit(ctx context.Context, page *rod.Page, submitSel string) error {
	return a.click(ctx, page, submitSel)
}

func (a *webAdapter) ConfirmSchedule(ctx context.Context, page *rod.Page, at time.Time) error {
	sched := a.sel.Schedule
	if len(sched.Open) == 0 {
		return fmt.Errorf("no scheduling selectors configured for %s", a.platform)
	}

	openSel, err := a.locate(ctx, page, sched.Open, false)
	if err != nil {
		return fmt.Errorf("schedule control not found on %s: %w", a.platform, err)
	}
	if err := a.click(ctx, page, openSel); err != nil {
		return fmt.Errorf("failed to open schedule dialog on %s: %w", a.platform, err)
	}

	// Give the dialog one poll interval to render before filling it.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.poll):
	}

	local := at.Local()
	if err := a.fillFirst(ctx, page, sched.Date, local.Format("2006-01-02")); err != nil {
		return fmt.Errorf("failed to fill schedule date on %s: %w", a.platform, err)
	}
	if err := a.fillFirst(ctx, page, sched.Time, local.Format("15:04")); err != nil {
		return fmt.Errorf("failed to fill schedule time on %s: %w", a.platform, err)
	}

	confirmSel, err := a.locate(ctx, page, sched.Confirm, true)
	if err != nil {
		return fmt.Errorf("schedule confirm control not found on %s: %w", a.platform, err)
	}
	if err := a.click(ctx, page, confirmSel); err != nil {
		return fmt.Errorf("failed to confirm schedule on %s: %w", a.platform, err)
	}
	return nil
}

// locate polls the ordered selector list until one matches (and, when
// needEnabled is set, until the match is enabled) or the timeout runs out.
func (a *webAdapter) locate(ctx context.Context, page *rod.Page, selectors []string, needEnabled bool) (string, error) {
	return a.locateUntil(ctx, page, selectors, needEnabled, time.Now().Add(a.timeout))
}

func (a *webAdapter) locateUntil(ctx context.Context, page *rod.Page, selectors []string, needEnabled bool, deadline time.Time) (string, error) {
	if len(selectors) == 0 {
		return "", fmt.Errorf("no selectors configured")
	}

	lastState := "not found"
	for {
		res, err := a.eval(ctx, page, jsLocate, selectors)
		if err != nil {
			return "", fmt.Errorf("selector probe failed: %w", err)
		}
		if res.Value.Get("found").Bool() {
			if !needEnabled || res.Value.Get("enabled").Bool() {
				return res.Value.Get("selector").Str(), nil
			}
			lastState = fmt.Sprintf("%s is disabled", res.Value.Get("selector").Str())
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("gave up waiting for selector: %s", lastState)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.poll):
		}
	}
}

func (a *webAdapter) click(ctx context.Context, page *rod.Page, sel string) error {
	res, err := a.eval(ctx, page, jsClick, sel)
	if err != nil {
		return fmt.Errorf("click script failed: %w", err)
	}
	if !res.Value.Get("clicked").Bool() {
		return fmt.Errorf("could not click %q: %s", sel, res.Value.Get("reason").Str())
	}
	return nil
}

func (a *webAdapter) fillFirst(ctx context.Context, page *rod.Page, selectors []string, value string) error {
	sel, err := a.locate(ctx, page, selectors, false)
	if err != nil {
		return err
	}
	res, err := a.eval(ctx, page, jsFill, sel, value)
	if err != nil {
		return fmt.Errorf("fill script failed: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("input %q disappeared before fill", sel)
	}
	return nil
}
