package orchestrator

import (
	"context"

	"github.com/ewhitmore/postpilot/internal/models"
)

// QueueClient fetches the pending posts for the configured user.
// Implemented by queue.Client.
type QueueClient interface {
	FetchPending(ctx context.Context) []models.Post
}

// Publisher performs the browser-side publish for one post. A nil error
// means the platform's submit (or schedule confirm) control was clicked.
// Implemented by poster.Engine.
type Publisher interface {
	Publish(ctx context.Context, post models.Post) error
}

// Reporter confirms a publish server-side and notifies the user. The
// returned flag reports whether the backend acknowledged. Implemented
// by reporter.Reporter.
type Reporter interface {
	ReportPublished(ctx context.Context, post models.Post) bool
}

// StateStore persists publish and attempt markers plus the daily
// counter. Implemented by storage.Store.
type StateStore interface {
	IsPublishedOrInFlight(ctx context.Context, postID string) (bool, error)
	MarkInFlight(ctx context.Context, postID string) error
	ClearInFlight(ctx context.Context, postID string) error
	MarkPublished(ctx context.Context, postID, platform string, confirmed bool) error
	IncrementDaily(ctx context.Context, day string) (int, error)
	DailyCount(ctx context.Context, day string) (int, error)
	UnconfirmedCount(ctx context.Context) (int, error)
}
