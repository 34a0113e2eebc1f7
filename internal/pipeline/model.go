package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// TriggerKind identifies what started a run.
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
)

// StepName identifies one of the fixed pipeline steps.
type StepName string

const (
	StepPlan     StepName = "plan"
	StepGenerate StepName = "generate"
	StepClean    StepName = "clean"
	StepPublish  StepName = "publish"
)

// stepOrder fixes the execution sequence.
var stepOrder = []StepName{StepPlan, StepGenerate, StepClean, StepPublish}

var stepLabels = map[StepName]string{
	StepPlan:     "Plan",
	StepGenerate: "Generate",
	StepClean:    "Clean",
	StepPublish:  "Publish",
}

// StepNames returns the pipeline steps in execution order.
func StepNames() []StepName {
	return append([]StepName(nil), stepOrder...)
}

// Label returns the human-readable step name used in progress messages
// and CLI tables.
func (n StepName) Label() string {
	if label, ok := stepLabels[n]; ok {
		return label
	}
	return string(n)
}

// StepStatus tracks a step's lifecycle within a single run. A step is
// created Pending, moves to Running exactly once, and ends in exactly one
// terminal state; it is never re-entered within a run.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// RunStatus tracks the overall run outcome.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Step captures one pipeline step's state within a run.
type Step struct {
	Ordinal     int
	Name        StepName
	Status      StepStatus
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Output      string
	ErrorKind   string
	ErrorDetail string
}

// Duration reports how long the step ran, zero until it has both
// timestamps.
func (s Step) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}

// Run is one execution of the pipeline. It lives in memory for the
// duration of the run; the only state that survives it is the ledger
// record written on success and the snapshot the daemon keeps for status
// reporting.
type Run struct {
	ID         string
	Trigger    TriggerKind
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Steps      []Step
	Error      string
	ErrorKind  string
}

// NewRun builds a run with the fixed step sequence in Pending state.
func NewRun(trigger TriggerKind, at time.Time) *Run {
	steps := make([]Step, 0, len(stepOrder))
	for i, name := range stepOrder {
		steps = append(steps, Step{Ordinal: i + 1, Name: name, Status: StepPending})
	}
	return &Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    RunRunning,
		StartedAt: at,
		Steps:     steps,
	}
}

// Step returns the run's step with the given name, or nil.
func (r *Run) Step(name StepName) *Step {
	if r == nil {
		return nil
	}
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Duration reports the run's elapsed time, using now for unfinished runs.
func (r *Run) Duration(now time.Time) time.Duration {
	if r == nil {
		return 0
	}
	end := now
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	cp := *r
	cp.FinishedAt = copyTime(r.FinishedAt)
	cp.Steps = make([]Step, len(r.Steps))
	for i, step := range r.Steps {
		step.StartedAt = copyTime(step.StartedAt)
		step.FinishedAt = copyTime(step.FinishedAt)
		cp.Steps[i] = step
	}
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
