package videogen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeJob(t *testing.T, w http.ResponseWriter, job Job) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(job); err != nil {
		t.Fatalf("encode job: %v", err)
	}
}

func newTestClient(baseURL string, opts ...Option) *Client {
	base := []Option{WithPollInterval(time.Millisecond)}
	return New(Config{
		APIKey:  "vg-key",
		BaseURL: baseURL,
		Model:   "sora-2",
	}, append(base, opts...)...)
}

func TestSubmitPostsJobRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer vg-key" {
			t.Fatalf("authorization = %q", auth)
		}
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "sora-2" || req.Prompt != "a foggy harbor at dawn" {
			t.Fatalf("unexpected request: %+v", req)
		}
		if req.Seconds != 30 || req.Resolution != "1080p" {
			t.Fatalf("unexpected output shape: %+v", req)
		}
		writeJob(t, w, Job{ID: "job-1", Status: StatusQueued})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	job, err := client.Submit(context.Background(), "a foggy harbor at dawn", 30, "1080p")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if job.ID != "job-1" || job.Status != StatusQueued {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestSubmitRequiresAPIKey(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:0"})
	if _, err := client.Submit(context.Background(), "prompt", 30, "1080p"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestSubmitRejectsMissingJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJob(t, w, Job{Status: StatusQueued})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Submit(context.Background(), "prompt", 30, "1080p"); err == nil {
		t.Fatal("expected error for response without job id")
	}
}

func TestAwaitPollsUntilCompleted(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/job-2" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		mu.Lock()
		polls++
		count := polls
		mu.Unlock()
		switch count {
		case 1:
			writeJob(t, w, Job{ID: "job-2", Status: StatusQueued, Progress: 0})
		case 2:
			writeJob(t, w, Job{ID: "job-2", Status: StatusInProgress, Progress: 55})
		default:
			writeJob(t, w, Job{ID: "job-2", Status: StatusCompleted, Progress: 100})
		}
	}))
	defer server.Close()

	var updates []string
	client := newTestClient(server.URL)
	job, err := client.Await(context.Background(), "job-2", func(percent float64, status string) {
		updates = append(updates, fmt.Sprintf("%s:%.0f", status, percent))
	})
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if job.Status != StatusCompleted || job.Progress != 100 {
		t.Fatalf("unexpected terminal job: %+v", job)
	}
	want := []string{"queued:0", "in_progress:55", "completed:100"}
	if len(updates) != len(want) {
		t.Fatalf("updates = %v, want %v", updates, want)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Fatalf("updates[%d] = %q, want %q", i, updates[i], want[i])
		}
	}
}

func TestAwaitReportsJobFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJob(t, w, Job{
			ID:     "job-3",
			Status: StatusFailed,
			Error:  &JobError{Code: "moderation_blocked", Message: "prompt rejected"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Await(context.Background(), "job-3", nil)
	if err == nil {
		t.Fatal("expected error for failed job")
	}
	if !strings.Contains(err.Error(), "prompt rejected") || !strings.Contains(err.Error(), "moderation_blocked") {
		t.Fatalf("failure detail missing from error: %v", err)
	}
}

func TestAwaitToleratesTransientPollErrors(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		count := polls
		mu.Unlock()
		if count == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		writeJob(t, w, Job{ID: "job-4", Status: StatusCompleted, Progress: 100})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	job, err := client.Await(context.Background(), "job-4", nil)
	if err != nil {
		t.Fatalf("Await() error: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestAwaitFailsAfterRepeatedPollErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Await(context.Background(), "job-5", nil)
	if err == nil {
		t.Fatal("expected error after repeated poll failures")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status code in error, got: %v", err)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJob(t, w, Job{ID: "job-6", Status: StatusInProgress, Progress: 10})
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithJobTimeout(5*time.Millisecond))
	_, err := client.Await(context.Background(), "job-6", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got: %v", err)
	}
}

func TestAwaitHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJob(t, w, Job{ID: "job-7", Status: StatusInProgress, Progress: 10})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	_, err := client.Await(ctx, "job-7", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Await() error = %v, want context.Canceled", err)
	}
}

func TestDownloadWritesArtifact(t *testing.T) {
	payload := []byte("fake mp4 bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/job-8/content" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifacts", "job-8.mp4")
	client := newTestClient(server.URL)
	if err := client.Download(context.Background(), "job-8", dest); err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("artifact content = %q", data)
	}
	if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestDownloadRejectsEmptyArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "empty.mp4")
	client := newTestClient(server.URL)
	err := client.Download(context.Background(), "job-9", dest)
	if err == nil {
		t.Fatal("expected error for empty artifact")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("empty artifact should not land at the final path")
	}
}

func TestDownloadSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such job", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing.mp4")
	client := newTestClient(server.URL)
	err := client.Download(context.Background(), "job-10", dest)
	if err == nil {
		t.Fatal("expected error for http failure")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status code in error, got: %v", err)
	}
}
