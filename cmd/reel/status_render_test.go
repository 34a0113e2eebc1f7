package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"reel/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Reel", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Reel:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Reel", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestSystemStatusLines(t *testing.T) {
	at := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	running := &ipc.StatusResponse{
		Running:   true,
		PID:       42,
		NextRunAt: &at,
		LastPublished: &ipc.HistoryRecord{
			Date:       "2026-02-13",
			Title:      "Harbor Lights",
			Identifier: "vid-123",
		},
	}
	lines := systemStatusLines(running, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %#v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] Running (pid 42)") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Next run") {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "2026-02-13 Harbor Lights (vid-123)") {
		t.Fatalf("unexpected third line: %q", lines[2])
	}

	stopped := &ipc.StatusResponse{}
	lines = systemStatusLines(stopped, false)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %#v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[WARN] Not running (run `reel start`)") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[INFO] No publishes recorded") {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
}

func TestSystemStatusLinesWithActiveRun(t *testing.T) {
	resp := &ipc.StatusResponse{
		Running: true,
		PID:     42,
		Progress: &ipc.StepProgress{
			Step:    "generate",
			Label:   "Generate",
			Percent: 45,
			Message: "rendering",
		},
	}
	lines := systemStatusLines(resp, false)
	var found bool
	for _, line := range lines {
		if strings.Contains(line, "Current step") && strings.Contains(line, "Generate 45% (rendering)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a current step line, got %#v", lines)
	}
}

func TestHistoryRows(t *testing.T) {
	rows := historyRows([]ipc.HistoryRecord{{
		Date:       "2026-02-20",
		Weekday:    "Friday",
		Title:      "Harbor Lights",
		Identifier: "vid-123",
		Published:  true,
	}})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	want := []string{"2026-02-20", "Friday", "Harbor Lights", "vid-123", "yes"}
	for i, cell := range want {
		if rows[0][i] != cell {
			t.Fatalf("row[%d] = %q, want %q", i, rows[0][i], cell)
		}
	}
}

func TestRunStepRows(t *testing.T) {
	started := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	run := &ipc.RunSummary{Steps: []ipc.StepSummary{
		{Ordinal: 1, Label: "Plan", Status: "succeeded", Output: "plan ready", StartedAt: &started, FinishedAt: &finished},
		{Ordinal: 2, Label: "Generate", Status: "failed", Error: "render timeout"},
	}}
	rows := runStepRows(run)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "1.5s" {
		t.Fatalf("expected duration 1.5s, got %q", rows[0][3])
	}
	if rows[0][4] != "plan ready" {
		t.Fatalf("expected output detail, got %q", rows[0][4])
	}
	if rows[1][3] != "-" {
		t.Fatalf("expected placeholder duration, got %q", rows[1][3])
	}
	if rows[1][4] != "render timeout" {
		t.Fatalf("expected error detail, got %q", rows[1][4])
	}
}
