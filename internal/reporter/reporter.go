// Package reporter closes the loop after a successful publish: it
// confirms the post server-side and raises a desktop notification.
package reporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ewhitmore/postpilot/internal/models"
	"github.com/ewhitmore/postpilot/internal/util"
)

const previewLimit = 120

// Confirmer marks a post published on the backend. Implemented by
// queue.Client.
type Confirmer interface {
	Confirm(ctx context.Context, postID string) error
}

// Notifier raises a local desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// Reporter reports published posts. Confirmation failures are swallowed
// after retries (best-effort contract) but returned as confirmed=false
// so the caller can record the server/local desync.
type Reporter struct {
	confirmer Confirmer
	notifier  Notifier
}

func New(confirmer Confirmer, notifier Notifier) *Reporter {
	return &Reporter{confirmer: confirmer, notifier: notifier}
}

// ReportPublished confirms the post and notifies the user. The returned
// flag reports whether the backend acknowledged the confirmation.
func (r *Reporter) ReportPublished(ctx context.Context, post models.Post) bool {
	confirmed := true
	if err := r.confirmer.Confirm(ctx, post.ID); err != nil {
		// The post is live but the server still believes it is pending;
		// the next poll may hand it out again.
		slog.Warn("Confirmation call failed, server may re-serve this post",
			"id", post.ID, "platform", post.Platform, "error", err)
		confirmed = false
	}

	title := fmt.Sprintf("PostPilot: published to %s", post.Platform.Label())
	body := util.Truncate(post.Content, previewLimit)
	if err := r.notifier.Notify(title, body); err != nil {
		slog.Warn("Desktop notification failed", "id", post.ID, "error", err)
	}

	return confirmed
}
