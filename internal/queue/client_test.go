package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetchPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.URL.Path != "/marketing/extension/pending/user-1" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"count": 2,
			"posts": [
				{"id": "p1", "content": "Launch day!", "platform": "x"},
				{"id": "p2", "content": "Hiring!", "platform": "linkedin", "scheduled_time": "2030-01-02T15:04:05Z"}
			]
		}`))
	}))
	defer server.Close()

	c := New(server.URL, "user-1")
	posts := c.FetchPending(context.Background())

	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "p1" || posts[0].Platform != "x" {
		t.Errorf("First post parsed incorrectly: %+v", posts[0])
	}
	if posts[1].ScheduledTime == nil {
		t.Error("Expected scheduled_time to be parsed for p2")
	}
}

func TestFetchPending_SkipsInvalidItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"count": 3,
			"posts": [
				{"id": "p1", "content": "ok", "platform": "x"},
				{"id": "", "content": "no id", "platform": "x"},
				{"id": "p3", "content": "bad platform", "platform": "myspace"}
			]
		}`))
	}))
	defer server.Close()

	c := New(server.URL, "user-1")
	posts := c.FetchPending(context.Background())

	if len(posts) != 1 {
		t.Fatalf("Expected 1 valid post, got %d", len(posts))
	}
	if posts[0].ID != "p1" {
		t.Errorf("Expected p1 to survive validation, got %s", posts[0].ID)
	}
}

func TestFetchPending_DegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"posts": nope`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := New(server.URL, "user-1")
			if posts := c.FetchPending(context.Background()); len(posts) != 0 {
				t.Errorf("Expected empty result, got %d posts", len(posts))
			}
		})
	}
}

func TestFetchPending_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := New(server.URL, "user-1")
	if posts := c.FetchPending(context.Background()); len(posts) != 0 {
		t.Errorf("Expected empty result on network failure, got %d posts", len(posts))
	}
}

func TestConfirm(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/marketing/extension/confirm/p1" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success": true, "message": "Post confirmed as published"}`))
	}))
	defer server.Close()

	c := New(server.URL, "user-1")
	if err := c.Confirm(context.Background(), "p1"); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 confirm call, got %d", calls)
	}
}

func TestConfirm_RetriesOn5xx(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	c := New(server.URL, "user-1")
	if err := c.Confirm(context.Background(), "p1"); err != nil {
		t.Fatalf("Confirm() should succeed after retry, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 attempts (1 failure + 1 success), got %d", calls)
	}
}

func TestConfirm_NoRetryOn4xx(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(server.URL, "user-1")
	if err := c.Confirm(context.Background(), "missing"); err == nil {
		t.Fatal("Confirm() should return error for 404 response")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 attempt (no retry for 404), got %d", calls)
	}
}
