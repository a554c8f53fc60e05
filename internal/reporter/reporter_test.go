package reporter

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/ewhitmore/postpilot/internal/models"
)

type fakeConfirmer struct {
	err   error
	calls []string
}

func (f *fakeConfirmer) Confirm(_ context.Context, postID string) error {
	f.calls = append(f.calls, postID)
	return f.err
}

type fakeNotifier struct {
	err    error
	titles []string
	bodies []string
}

func (f *fakeNotifier) Notify(title, body string) error {
	f.titles = append(f.titles, title)
	f.bodies = append(f.bodies, body)
	return f.err
}

func TestReportPublished(t *testing.T) {
	confirmer := &fakeConfirmer{}
	notifier := &fakeNotifier{}
	r := New(confirmer, notifier)

	post := models.Post{ID: "p1", Content: "Launch day!", Platform: models.PlatformX}
	confirmed := r.ReportPublished(context.Background(), post)

	if !confirmed {
		t.Error("Expected confirmed=true when the backend acknowledges")
	}
	if len(confirmer.calls) != 1 || confirmer.calls[0] != "p1" {
		t.Errorf("Expected exactly one confirm call for p1, got %v", confirmer.calls)
	}
	if len(notifier.titles) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifier.titles))
	}
	if !strings.Contains(notifier.titles[0], "X") {
		t.Errorf("Notification title should name the platform, got %q", notifier.titles[0])
	}
	if !strings.Contains(notifier.bodies[0], "Launch day!") {
		t.Errorf("Notification body should contain the content preview, got %q", notifier.bodies[0])
	}
}

func TestReportPublished_ConfirmFailureStillNotifies(t *testing.T) {
	confirmer := &fakeConfirmer{err: errors.New("backend down")}
	notifier := &fakeNotifier{}
	r := New(confirmer, notifier)

	post := models.Post{ID: "p1", Content: "hello", Platform: models.PlatformLinkedIn}
	confirmed := r.ReportPublished(context.Background(), post)

	if confirmed {
		t.Error("Expected confirmed=false when the confirm call fails")
	}
	if len(notifier.titles) != 1 {
		t.Errorf("Notification should still fire on confirm failure, got %d", len(notifier.titles))
	}
}

func TestReportPublished_TruncatesPreview(t *testing.T) {
	confirmer := &fakeConfirmer{}
	notifier := &fakeNotifier{}
	r := New(confirmer, notifier)

	long := strings.Repeat("a", 500)
	post := models.Post{ID: "p1", Content: long, Platform: models.PlatformX}
	r.ReportPublished(context.Background(), post)

	if got := len([]rune(notifier.bodies[0])); got > previewLimit {
		t.Errorf("Preview length %d exceeds limit %d", got, previewLimit)
	}
}

func TestReportPublished_NotificationFailureIsSwallowed(t *testing.T) {
	confirmer := &fakeConfirmer{}
	notifier := &fakeNotifier{err: errors.New("no notification daemon")}
	r := New(confirmer, notifier)

	post := models.Post{ID: "p1", Content: "hi", Platform: models.PlatformX}
	if confirmed := r.ReportPublished(context.Background(), post); !confirmed {
		t.Error("Notification failure must not affect the confirmation result")
	}
}

func TestIconPath(t *testing.T) {
	path := IconPath()
	if path == "" {
		t.Fatal("IconPath() returned empty path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Icon file not written: %v", err)
	}
	if len(data) == 0 || string(data[1:4]) != "PNG" {
		t.Errorf("Icon file is not a PNG (%d bytes)", len(data))
	}
}

func TestDesktopNotifier_Disabled(t *testing.T) {
	n := NewDesktopNotifier(false, "")
	if err := n.Notify("title", "body"); err != nil {
		t.Errorf("Disabled notifier must be a no-op, got %v", err)
	}
}
