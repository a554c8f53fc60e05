package models

import (
	"errors"
	"time"
)

// ErrNotAutomated is returned when a post targets a platform the agent
// cannot drive through a browser.
var ErrNotAutomated = errors.New("platform is not automated")

// ErrAlreadyPublished is returned when a post has a local published marker.
var ErrAlreadyPublished = errors.New("post already published")

// ErrInFlight is returned when an attempt for the post is already running.
var ErrInFlight = errors.New("post attempt already in flight")

// Platform identifies the social network a post targets.
type Platform string

const (
	PlatformX         Platform = "x"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformDiscord   Platform = "discord"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformYouTube   Platform = "youtube"
)

// Automated reports whether the agent can publish to the platform through
// its web UI. Everything else is handled server-side and skipped here.
func (p Platform) Automated() bool {
	return p == PlatformX || p == PlatformLinkedIn
}

// Label returns the display name used in notifications and logs.
func (p Platform) Label() string {
	switch p {
	case PlatformX:
		return "X"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformDiscord:
		return "Discord"
	case PlatformInstagram:
		return "Instagram"
	case PlatformFacebook:
		return "Facebook"
	case PlatformYouTube:
		return "YouTube"
	}
	return string(p)
}

// Post is a unit of approved content queued for publication.
type Post struct {
	ID            string     `json:"id" validate:"required"`
	UserID        string     `json:"user_id"`
	Content       string     `json:"content" validate:"required"`
	Platform      Platform   `json:"platform" validate:"required,platform"`
	Hashtags      []string   `json:"hashtags"`
	Status        string     `json:"status"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Due reports whether the post should be attempted now. A post with no
// scheduled time is always due; otherwise it is due once the scheduled
// time has elapsed.
func (p Post) Due(now time.Time) bool {
	if p.ScheduledTime == nil {
		return true
	}
	return !p.ScheduledTime.After(now)
}

// PendingResponse is the payload of the pending-posts endpoint.
type PendingResponse struct {
	Count int    `json:"count"`
	Posts []Post `json:"posts"`
}
