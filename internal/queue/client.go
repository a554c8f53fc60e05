// Package queue talks to the approval-queue backend: it fetches pending
// posts for the configured user and confirms published ones.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ewhitmore/postpilot/internal/models"
	"github.com/ewhitmore/postpilot/internal/util"
	"github.com/ewhitmore/postpilot/internal/validator"
)

const confirmMaxRetries = 2

// Client is the HTTP client for the extension endpoints of the backend.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	validate   *validator.Validator
}

func New(baseURL, userID string) *Client {
	return &Client{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		validate:   validator.New(),
	}
}

// FetchPending returns the posts currently queued for this user. Transport
// failures, non-2xx statuses and malformed bodies all degrade to an empty
// slice: callers must treat "no posts" and "fetch failed" identically, and
// the next poll is the only retry.
func (c *Client) FetchPending(ctx context.Context) []models.Post {
	url := fmt.Sprintf("%s/marketing/extension/pending/%s", c.baseURL, c.userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Warn("Failed to build pending request", "error", err)
		return nil
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Queue fetch failed, treating as empty", "error", err)
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		slog.Warn("Queue fetch returned non-success status, treating as empty", "status", res.StatusCode)
		return nil
	}

	var payload models.PendingResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		slog.Warn("Failed to decode pending response, treating as empty", "error", err)
		return nil
	}

	posts := make([]models.Post, 0, len(payload.Posts))
	for _, p := range payload.Posts {
		if err := c.validate.ValidateStruct(p); err != nil {
			slog.Warn("Skipping invalid queue item", "id", p.ID, "error", err)
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

// Confirm marks a post as published server-side. Transient failures
// (5xx, 429) are retried with backoff; 4xx responses are permanent. The
// acknowledgment body is read and discarded.
func (c *Client) Confirm(ctx context.Context, postID string) error {
	url := fmt.Sprintf("%s/marketing/extension/confirm/%s", c.baseURL, postID)

	return util.RetryWithBackoff(ctx, confirmMaxRetries, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return util.Permanent(err)
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("confirm request failed: %w", err)
		}
		defer res.Body.Close()
		_, _ = io.Copy(io.Discard, res.Body)

		switch {
		case res.StatusCode >= 200 && res.StatusCode < 300:
			return nil
		case res.StatusCode == http.StatusTooManyRequests:
			if wait := retryAfter(res); wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
			return fmt.Errorf("confirm rate limited: status %d", res.StatusCode)
		case res.StatusCode >= 500:
			return fmt.Errorf("confirm server error: status %d", res.StatusCode)
		default:
			return util.Permanent(fmt.Errorf("confirm rejected: status %d", res.StatusCode))
		}
	})
}

func retryAfter(res *http.Response) time.Duration {
	v := res.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
