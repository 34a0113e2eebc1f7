package ipc

import (
	"time"

	"reel/internal/ledger"
	"reel/internal/pipeline"
	"reel/internal/preflight"
	"reel/internal/schedule"
)

// StartRequest asks the daemon to begin scheduled processing.
type StartRequest struct{}

// StartResponse indicates whether processing was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest halts scheduled processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// ScheduleEntry is one weekly publishing slot.
type ScheduleEntry struct {
	Weekday string `json:"weekday"`
	At      string `json:"at"`
}

// CheckResult is one readiness check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// StepSummary describes one pipeline step within a run.
type StepSummary struct {
	Ordinal    int        `json:"ordinal"`
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	Status     string     `json:"status"`
	Output     string     `json:"output"`
	Error      string     `json:"error"`
	ErrorKind  string     `json:"error_kind"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// RunSummary describes a pipeline run and its steps.
type RunSummary struct {
	ID         string        `json:"id"`
	Trigger    string        `json:"trigger"`
	Status     string        `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at"`
	Steps      []StepSummary `json:"steps"`
	Error      string        `json:"error"`
	ErrorKind  string        `json:"error_kind"`
}

// HistoryRecord mirrors one upload ledger row.
type HistoryRecord struct {
	Date       string    `json:"date"`
	Published  bool      `json:"published"`
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	Weekday    string    `json:"weekday"`
	Timestamp  time.Time `json:"timestamp"`
}

// StepProgress is the latest step update of an active run.
type StepProgress struct {
	Step    string  `json:"step"`
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// StatusResponse represents combined daemon and pipeline status.
type StatusResponse struct {
	Running       bool            `json:"running"`
	PID           int             `json:"pid"`
	LockPath      string          `json:"lock_path"`
	LedgerPath    string          `json:"ledger_path"`
	LogPath       string          `json:"log_path"`
	Schedule      []ScheduleEntry `json:"schedule"`
	NextRunAt     *time.Time      `json:"next_run_at"`
	Progress      *StepProgress   `json:"progress"`
	LastRun       *RunSummary     `json:"last_run"`
	LastPublished *HistoryRecord  `json:"last_published"`
	Checks        []CheckResult   `json:"checks"`
}

// TriggerRunRequest starts a manual pipeline run.
type TriggerRunRequest struct {
	Wait bool `json:"wait"`
}

// TriggerRunResponse reports trigger outcome. Run carries the completed
// run for waiting triggers and stays nil for detached ones.
type TriggerRunResponse struct {
	Started bool        `json:"started"`
	Message string      `json:"message"`
	Run     *RunSummary `json:"run"`
}

// HistoryRequest fetches recent ledger records.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains ledger records, most recent first.
type HistoryResponse struct {
	Records []HistoryRecord `json:"records"`
}

// NextRunRequest fetches the next scheduled fire time.
type NextRunRequest struct{}

// NextRunResponse reports the next scheduled run. Scheduled is false when
// no weekday is configured.
type NextRunResponse struct {
	Scheduled bool       `json:"scheduled"`
	At        *time.Time `json:"at"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// RunSummaryFrom converts a pipeline run to its wire representation.
func RunSummaryFrom(run *pipeline.Run) *RunSummary {
	if run == nil {
		return nil
	}
	out := &RunSummary{
		ID:         run.ID,
		Trigger:    string(run.Trigger),
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Error:      run.Error,
		ErrorKind:  run.ErrorKind,
	}
	out.Steps = make([]StepSummary, 0, len(run.Steps))
	for _, step := range run.Steps {
		out.Steps = append(out.Steps, StepSummary{
			Ordinal:    step.Ordinal,
			Name:       string(step.Name),
			Label:      step.Name.Label(),
			Status:     string(step.Status),
			Output:     step.Output,
			Error:      step.ErrorDetail,
			ErrorKind:  step.ErrorKind,
			StartedAt:  step.StartedAt,
			FinishedAt: step.FinishedAt,
		})
	}
	return out
}

// StepProgressFrom converts an active run's latest update to its wire
// representation.
func StepProgressFrom(progress *pipeline.StepProgress) *StepProgress {
	if progress == nil {
		return nil
	}
	return &StepProgress{
		Step:    string(progress.Step),
		Label:   progress.Step.Label(),
		Percent: progress.Percent,
		Message: progress.Message,
	}
}

// HistoryRecordFrom converts a ledger record to its wire representation.
func HistoryRecordFrom(rec ledger.Record) HistoryRecord {
	return HistoryRecord{
		Date:       rec.Date,
		Published:  rec.Published,
		Identifier: rec.Identifier,
		Title:      rec.Title,
		Weekday:    rec.Weekday,
		Timestamp:  rec.Timestamp,
	}
}

// ScheduleEntryFrom converts a weekly slot to its wire representation.
func ScheduleEntryFrom(entry schedule.Entry) ScheduleEntry {
	return ScheduleEntry{
		Weekday: entry.Weekday.String(),
		At:      entry.At.String(),
	}
}

// CheckResultFrom converts a readiness check to its wire representation.
func CheckResultFrom(result preflight.Result) CheckResult {
	return CheckResult{
		Name:   result.Name,
		Passed: result.Passed,
		Detail: result.Detail,
	}
}
