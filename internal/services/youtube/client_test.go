package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeVideoFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final.mp4")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write video file: %v", err)
	}
	return path
}

func TestUploadPerformsResumableHandshake(t *testing.T) {
	var uploaded []byte
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("uploadType"); got != "resumable" {
			t.Fatalf("uploadType = %q", got)
		}
		if got := r.URL.Query().Get("part"); got != "snippet,status" {
			t.Fatalf("part = %q", got)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer yt-token" {
			t.Fatalf("authorization = %q", auth)
		}
		var meta uploadMetadata
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			t.Fatalf("decode metadata: %v", err)
		}
		if meta.Snippet.Title != "Neon Drift" || meta.Snippet.CategoryID != "22" {
			t.Fatalf("unexpected snippet: %+v", meta.Snippet)
		}
		if len(meta.Snippet.Tags) != 2 || meta.Snippet.Tags[0] != "space" {
			t.Fatalf("unexpected tags: %v", meta.Snippet.Tags)
		}
		if meta.Status.PrivacyStatus != "private" || meta.Status.SelfDeclaredMadeForKids {
			t.Fatalf("unexpected status: %+v", meta.Status)
		}
		w.Header().Set("Location", server.URL+"/upload-session")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/upload-session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("method = %s, want PUT", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "video/mp4" {
			t.Fatalf("content type = %q", ct)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read upload body: %v", err)
		}
		uploaded = body
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Video{ID: "vid-123"}); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	path := writeVideoFile(t, 4096)
	client := New(Config{AccessToken: "yt-token", BaseURL: server.URL})

	video, err := client.Upload(context.Background(), UploadRequest{
		FilePath:    path,
		Title:       "Neon Drift",
		Description: "An astronaut drifts above a neon city.",
		Tags:        []string{"space", "city"},
		CategoryID:  "22",
		Privacy:     "private",
	}, nil)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if video.ID != "vid-123" {
		t.Fatalf("video id = %q", video.ID)
	}
	if len(uploaded) != 4096 {
		t.Fatalf("uploaded %d bytes, want 4096", len(uploaded))
	}
	if got := WatchURL(video.ID); got != "https://www.youtube.com/watch?v=vid-123" {
		t.Fatalf("watch url = %q", got)
	}
}

func TestUploadReportsTransferProgress(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/upload-session")
	})
	mux.HandleFunc("/upload-session", func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			t.Fatalf("drain body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Video{ID: "vid-200"}); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	path := writeVideoFile(t, 1<<16)
	client := New(Config{AccessToken: "yt-token", BaseURL: server.URL})

	var percents []float64
	if _, err := client.Upload(context.Background(), UploadRequest{FilePath: path, Title: "T"}, func(percent float64) {
		percents = append(percents, percent)
	}); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if len(percents) == 0 {
		t.Fatal("expected transfer progress callbacks")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}
	if final := percents[len(percents)-1]; final != 100 {
		t.Fatalf("final percent = %f, want 100", final)
	}
}

func TestUploadSurfacesQuotaError(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/upload-session")
	})
	mux.HandleFunc("/upload-session", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"errors":[{"reason":"quotaExceeded"}]}}`, http.StatusForbidden)
	})

	path := writeVideoFile(t, 1024)
	client := New(Config{AccessToken: "yt-token", BaseURL: server.URL})

	_, err := client.Upload(context.Background(), UploadRequest{FilePath: path, Title: "T"}, nil)
	if err == nil {
		t.Fatal("expected quota error")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "quotaExceeded") {
		t.Fatalf("expected quota detail, got: %v", err)
	}
}

func TestUploadRejectsMissingSessionLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := writeVideoFile(t, 1024)
	client := New(Config{AccessToken: "yt-token", BaseURL: server.URL})

	_, err := client.Upload(context.Background(), UploadRequest{FilePath: path, Title: "T"}, nil)
	if err == nil || !strings.Contains(err.Error(), "location") {
		t.Fatalf("expected missing location error, got: %v", err)
	}
}

func TestUploadRequiresCredentials(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:0"})
	_, err := client.Upload(context.Background(), UploadRequest{FilePath: "/tmp/x.mp4", Title: "T"}, nil)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("error = %v, want ErrNoCredentials", err)
	}
}

func TestTokenFileFallback(t *testing.T) {
	var sawAuth string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		w.Header().Set("Location", server.URL+"/upload-session")
	})
	mux.HandleFunc("/upload-session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Video{ID: "vid-300"}); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	})

	tokenPath := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(tokenPath, []byte(`{"access_token":"file-token"}`), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	path := writeVideoFile(t, 512)
	client := New(Config{TokenPath: tokenPath, BaseURL: server.URL})

	if _, err := client.Upload(context.Background(), UploadRequest{FilePath: path, Title: "T"}, nil); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if sawAuth != "Bearer file-token" {
		t.Fatalf("authorization = %q", sawAuth)
	}
}

func TestUploadMissingFile(t *testing.T) {
	client := New(Config{AccessToken: "yt-token", BaseURL: "http://localhost:0"})
	_, err := client.Upload(context.Background(), UploadRequest{FilePath: filepath.Join(t.TempDir(), "gone.mp4"), Title: "T"}, nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
