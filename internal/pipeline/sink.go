package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"reel/internal/logging"
)

// ProgressSink receives run progress. Calls are fire-and-forget from the
// runner's perspective and arrive in execution order. Implementations
// must not block the calling goroutine.
type ProgressSink interface {
	OnStepUpdate(step StepName, percent float64, message string)
	OnRunCompleted(status RunStatus, summary string)
}

// NopSink discards all progress.
type NopSink struct{}

func (NopSink) OnStepUpdate(StepName, float64, string) {}

func (NopSink) OnRunCompleted(RunStatus, string) {}

// MultiSink forwards every notification to each child sink in order.
type MultiSink struct {
	sinks []ProgressSink
}

// NewMultiSink composes sinks, skipping nils.
func NewMultiSink(sinks ...ProgressSink) *MultiSink {
	kept := make([]ProgressSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &MultiSink{sinks: kept}
}

func (m *MultiSink) OnStepUpdate(step StepName, percent float64, message string) {
	for _, sink := range m.sinks {
		sink.OnStepUpdate(step, percent, message)
	}
}

func (m *MultiSink) OnRunCompleted(status RunStatus, summary string) {
	for _, sink := range m.sinks {
		sink.OnRunCompleted(status, summary)
	}
}

// LogSink writes progress into the structured log, sampling repetitive
// sub-progress so a chatty collaborator cannot flood the log file.
type LogSink struct {
	logger *slog.Logger

	mu      sync.Mutex
	sampler *logging.ProgressSampler
}

// NewLogSink builds a sink logging under the progress component.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(0),
	}
}

func (s *LogSink) OnStepUpdate(step StepName, percent float64, message string) {
	s.mu.Lock()
	emit := s.sampler.ShouldLog(percent, string(step), message)
	s.mu.Unlock()
	if !emit {
		return
	}
	s.logger.Info("step progress",
		logging.String(logging.FieldStep, string(step)),
		logging.Float64(logging.FieldProgressPercent, percent),
		logging.String(logging.FieldProgressMessage, message),
	)
}

func (s *LogSink) OnRunCompleted(status RunStatus, summary string) {
	s.mu.Lock()
	s.sampler.Reset()
	s.mu.Unlock()
	s.logger.Info("run completed",
		logging.String("status", string(status)),
		logging.String("summary", summary),
	)
}

// StepProgress is the most recent step update of an active run.
type StepProgress struct {
	Step      StepName
	Percent   float64
	Message   string
	UpdatedAt time.Time
}

// StatusSink keeps the latest step update so status queries can report
// what an active run is doing. Run completion clears it.
type StatusSink struct {
	mu      sync.Mutex
	current *StepProgress
	now     func() time.Time
}

// NewStatusSink builds an empty status sink.
func NewStatusSink() *StatusSink {
	return &StatusSink{now: time.Now}
}

func (s *StatusSink) OnStepUpdate(step StepName, percent float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &StepProgress{
		Step:      step,
		Percent:   percent,
		Message:   message,
		UpdatedAt: s.now(),
	}
}

func (s *StatusSink) OnRunCompleted(RunStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns a copy of the latest update, or nil between runs.
func (s *StatusSink) Current() *StepProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// EventKind discriminates events flowing out of a run.
type EventKind string

const (
	EventStepUpdate  EventKind = "step_update"
	EventRunComplete EventKind = "run_complete"
)

// Event is one progress notification as seen by an EventSink consumer.
type Event struct {
	Kind    EventKind
	Step    StepName
	Percent float64
	Message string
	Status  RunStatus
	Summary string
	At      time.Time
}

const defaultEventBuffer = 64

// EventSink bridges run progress across goroutines as message passing: a
// buffered channel the control surface drains while the run executes in
// the background. Delivery is in order; when the consumer falls behind,
// the oldest buffered event is dropped so terminal events still land.
type EventSink struct {
	mu     sync.Mutex
	events chan Event
	closed bool
	now    func() time.Time
}

// NewEventSink builds a sink buffering up to size events (default 64).
func NewEventSink(size int) *EventSink {
	if size <= 0 {
		size = defaultEventBuffer
	}
	return &EventSink{
		events: make(chan Event, size),
		now:    time.Now,
	}
}

// Events returns the channel the consumer ranges over. It is closed by
// Close.
func (s *EventSink) Events() <-chan Event {
	return s.events
}

func (s *EventSink) OnStepUpdate(step StepName, percent float64, message string) {
	s.push(Event{Kind: EventStepUpdate, Step: step, Percent: percent, Message: message})
}

func (s *EventSink) OnRunCompleted(status RunStatus, summary string) {
	s.push(Event{Kind: EventRunComplete, Status: status, Summary: summary})
}

// Close closes the event channel. Pushes after Close are discarded.
func (s *EventSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

func (s *EventSink) push(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	evt.At = s.now()
	for {
		select {
		case s.events <- evt:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}
