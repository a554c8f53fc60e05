// Package orchestrator drives the periodic fetch-and-publish passes:
// poll the queue, walk the due posts one by one, and record the
// outcome of every attempt.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ewhitmore/postpilot/internal/config"
	"github.com/ewhitmore/postpilot/internal/models"
	"github.com/ewhitmore/postpilot/internal/storage"
)

// State is the orchestrator's coarse activity phase, exposed on the
// status endpoint.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
)

// persistTimeout bounds the marker writes that outlive a cancelled pass.
const persistTimeout = 5 * time.Second

// PassResult summarizes a single fetch-and-publish pass.
type PassResult struct {
	Fetched   int `json:"fetched"`
	Published int `json:"published"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// PostSummary is the per-post slice of the status snapshot.
type PostSummary struct {
	ID            string          `json:"id"`
	Platform      models.Platform `json:"platform"`
	ScheduledTime *time.Time      `json:"scheduled_time,omitempty"`
}

// Status is the snapshot served by the control API.
type Status struct {
	State            State         `json:"state"`
	CurrentPostID    string        `json:"current_post_id,omitempty"`
	LastFetched      []PostSummary `json:"last_fetched"`
	LastPassAt       *time.Time    `json:"last_pass_at,omitempty"`
	LastPass         PassResult    `json:"last_pass"`
	DailyCount       int           `json:"daily_count"`
	DailyLimit       int           `json:"daily_limit"`
	UnconfirmedCount int           `json:"unconfirmed_count"`
}

// Options carries the pass-level tuning knobs.
type Options struct {
	PollInterval   time.Duration
	InterPostDelay time.Duration
	PassTimeout    time.Duration
	ScheduleMode   config.ScheduleMode
	DailyPostLimit int
}

// Orchestrator owns the poll loop. Passes never overlap: the ticker,
// the control API, and any other trigger all funnel through a
// singleflight group, so a trigger during a running pass joins that
// pass instead of starting a second one.
type Orchestrator struct {
	queue     QueueClient
	publisher Publisher
	reporter  Reporter
	store     StateStore
	opts      Options
	limiter   *rate.Limiter
	group     singleflight.Group
	now       func() time.Time

	mu            sync.Mutex
	state         State
	currentPostID string
	lastFetched   []PostSummary
	lastPassAt    *time.Time
	lastPass      PassResult
}

func New(queue QueueClient, publisher Publisher, reporter Reporter, store StateStore, opts Options) *Orchestrator {
	limit := rate.Inf
	if opts.InterPostDelay > 0 {
		limit = rate.Every(opts.InterPostDelay)
	}
	return &Orchestrator{
		queue:     queue,
		publisher: publisher,
		reporter:  reporter,
		store:     store,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		now:       time.Now,
		state:     StateIdle,
	}
}

// Run executes one pass immediately, then one per poll interval until
// the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	if _, err := o.ProcessNow(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Initial pass failed", "error", err)
	}

	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Orchestrator stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			if _, err := o.ProcessNow(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Scheduled pass failed", "error", err)
			}
		}
	}
}

// ProcessNow runs a pass, or joins the pass already in progress.
func (o *Orchestrator) ProcessNow(ctx context.Context) (PassResult, error) {
	v, err, _ := o.group.Do("pass", func() (any, error) {
		passCtx := ctx
		if o.opts.PassTimeout > 0 {
			var cancel context.CancelFunc
			passCtx, cancel = context.WithTimeout(ctx, o.opts.PassTimeout)
			defer cancel()
		}
		return o.runPass(passCtx), nil
	})
	if err != nil {
		return PassResult{}, err
	}
	return v.(PassResult), nil
}

// Status returns the current snapshot for the control API. Counter
// reads hitting a closed store degrade to zero.
func (o *Orchestrator) Status(ctx context.Context) Status {
	o.mu.Lock()
	s := Status{
		State:         o.state,
		CurrentPostID: o.currentPostID,
		LastFetched:   append([]PostSummary(nil), o.lastFetched...),
		LastPassAt:    o.lastPassAt,
		LastPass:      o.lastPass,
		DailyLimit:    o.opts.DailyPostLimit,
	}
	o.mu.Unlock()

	if n, err := o.store.DailyCount(ctx, storage.DayKey(o.now())); err == nil {
		s.DailyCount = n
	}
	if n, err := o.store.UnconfirmedCount(ctx); err == nil {
		s.UnconfirmedCount = n
	}
	return s
}

func (o *Orchestrator) runPass(ctx context.Context) PassResult {
	o.setState(StateFetching, "")
	defer o.setState(StateIdle, "")

	posts := o.queue.FetchPending(ctx)
	summaries := make([]PostSummary, len(posts))
	for i, p := range posts {
		summaries[i] = PostSummary{ID: p.ID, Platform: p.Platform, ScheduledTime: p.ScheduledTime}
	}
	o.mu.Lock()
	o.lastFetched = summaries
	o.mu.Unlock()

	result := PassResult{Fetched: len(posts)}
	if len(posts) > 0 {
		slog.Info("Fetched pending posts", "count", len(posts))
	}

	for _, post := range posts {
		if ctx.Err() != nil {
			slog.Warn("Pass aborted", "reason", ctx.Err(), "remaining", result.Fetched-result.Published-result.Skipped-result.Failed)
			break
		}
		o.setState(StateProcessing, post.ID)

		switch o.processPost(ctx, post) {
		case outcomePublished:
			result.Published++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		case outcomeLimitReached:
			result.Skipped += result.Fetched - result.Published - result.Skipped - result.Failed
			o.finishPass(result)
			return result
		}
	}

	o.finishPass(result)
	return result
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeLimitReached
)

func (o *Orchestrator) processPost(ctx context.Context, post models.Post) outcome {
	if !post.Platform.Automated() {
		slog.Debug("Skipping post on unautomated platform", "id", post.ID, "platform", post.Platform)
		return outcomeSkipped
	}

	if !post.Due(o.now()) && o.opts.ScheduleMode == config.ScheduleLocal {
		slog.Debug("Post not yet due, leaving pending", "id", post.ID, "scheduled", post.ScheduledTime)
		return outcomeSkipped
	}

	done, err := o.store.IsPublishedOrInFlight(ctx, post.ID)
	if err != nil {
		slog.Error("State check failed, skipping post", "id", post.ID, "error", err)
		return outcomeFailed
	}
	if done {
		slog.Info("Post already published or being attempted, skipping", "id", post.ID)
		return outcomeSkipped
	}

	day := storage.DayKey(o.now())
	if o.opts.DailyPostLimit > 0 {
		count, err := o.store.DailyCount(ctx, day)
		if err != nil {
			slog.Error("Daily count read failed, skipping post", "id", post.ID, "error", err)
			return outcomeFailed
		}
		if count >= o.opts.DailyPostLimit {
			slog.Warn("Daily post limit reached, deferring remaining posts",
				"limit", o.opts.DailyPostLimit, "count", count)
			return outcomeLimitReached
		}
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return outcomeFailed
	}

	if err := o.store.MarkInFlight(ctx, post.ID); err != nil {
		// A duplicate marker means another attempt beat us to it.
		slog.Warn("Could not claim post for attempt, skipping", "id", post.ID, "error", err)
		return outcomeSkipped
	}

	// Marker writes after the attempt run on a context that survives pass
	// cancellation: a deadline firing mid-publish must neither wedge the
	// in-flight marker nor drop the publish marker.
	if err := o.publisher.Publish(ctx, post); err != nil {
		slog.Warn("Publish attempt failed, will retry on a later pass",
			"id", post.ID, "platform", post.Platform, "error", err)
		clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if clearErr := o.store.ClearInFlight(clearCtx, post.ID); clearErr != nil {
			slog.Error("Failed to release attempt marker", "id", post.ID, "error", clearErr)
		}
		return outcomeFailed
	}

	confirmed := o.reporter.ReportPublished(ctx, post)
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := o.store.MarkPublished(persistCtx, post.ID, string(post.Platform), confirmed); err != nil {
		slog.Error("Failed to persist publish marker", "id", post.ID, "error", err)
	}
	if _, err := o.store.IncrementDaily(persistCtx, day); err != nil {
		slog.Error("Failed to bump daily counter", "day", day, "error", err)
	}

	slog.Info("Post published", "id", post.ID, "platform", post.Platform, "confirmed", confirmed)
	return outcomePublished
}

func (o *Orchestrator) setState(s State, postID string) {
	o.mu.Lock()
	o.state = s
	o.currentPostID = postID
	o.mu.Unlock()
}

func (o *Orchestrator) finishPass(result PassResult) {
	now := o.now()
	o.mu.Lock()
	o.lastPassAt = &now
	o.lastPass = result
	o.mu.Unlock()
	slog.Info("Pass complete", "summary", fmt.Sprintf("%d fetched, %d published, %d skipped, %d failed",
		result.Fetched, result.Published, result.Skipped, result.Failed))
}
