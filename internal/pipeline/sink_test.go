package pipeline_test

import (
	"testing"
	"time"

	"reel/internal/pipeline"
)

func drainEvents(t *testing.T, sink *pipeline.EventSink, want int) []pipeline.Event {
	t.Helper()
	events := make([]pipeline.Event, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case evt, ok := <-sink.Events():
			if !ok {
				t.Fatalf("event channel closed after %d events, want %d", len(events), want)
			}
			events = append(events, evt)
		case <-timeout:
			t.Fatalf("timed out after %d events, want %d", len(events), want)
		}
	}
	return events
}

func TestEventSinkDeliversInOrder(t *testing.T) {
	sink := pipeline.NewEventSink(8)
	defer sink.Close()

	sink.OnStepUpdate(pipeline.StepPlan, 0, "Plan started")
	sink.OnStepUpdate(pipeline.StepPlan, 100, "Plan completed")
	sink.OnRunCompleted(pipeline.RunSucceeded, "done")

	events := drainEvents(t, sink, 3)
	if events[0].Kind != pipeline.EventStepUpdate || events[0].Step != pipeline.StepPlan || events[0].Percent != 0 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Percent != 100 {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if events[2].Kind != pipeline.EventRunComplete || events[2].Status != pipeline.RunSucceeded {
		t.Fatalf("unexpected final event: %+v", events[2])
	}
	for _, evt := range events {
		if evt.At.IsZero() {
			t.Fatal("expected event timestamps")
		}
	}
}

func TestEventSinkDropsOldestWhenFull(t *testing.T) {
	sink := pipeline.NewEventSink(2)
	defer sink.Close()

	sink.OnStepUpdate(pipeline.StepPlan, 10, "a")
	sink.OnStepUpdate(pipeline.StepPlan, 20, "b")
	sink.OnRunCompleted(pipeline.RunFailed, "terminal")

	events := drainEvents(t, sink, 2)
	if events[0].Message != "b" {
		t.Fatalf("expected oldest event dropped, got %+v", events[0])
	}
	if events[1].Kind != pipeline.EventRunComplete {
		t.Fatalf("expected terminal event preserved, got %+v", events[1])
	}
}

func TestEventSinkCloseStopsDelivery(t *testing.T) {
	sink := pipeline.NewEventSink(2)
	sink.Close()
	sink.Close()

	// Pushes after Close are discarded without panicking.
	sink.OnStepUpdate(pipeline.StepPlan, 10, "late")

	if _, ok := <-sink.Events(); ok {
		t.Fatal("expected closed event channel")
	}
}

func TestStatusSinkTracksLatestUpdate(t *testing.T) {
	sink := pipeline.NewStatusSink()
	if sink.Current() != nil {
		t.Fatal("expected no progress before any update")
	}

	sink.OnStepUpdate(pipeline.StepGenerate, 25, "rendering")
	sink.OnStepUpdate(pipeline.StepGenerate, 60, "rendering")

	progress := sink.Current()
	if progress == nil {
		t.Fatal("expected progress after updates")
	}
	if progress.Step != pipeline.StepGenerate || progress.Percent != 60 || progress.Message != "rendering" {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if progress.UpdatedAt.IsZero() {
		t.Fatal("expected progress timestamp")
	}

	sink.OnRunCompleted(pipeline.RunSucceeded, "done")
	if sink.Current() != nil {
		t.Fatal("expected progress cleared after completion")
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	multi := pipeline.NewMultiSink(first, nil, second)

	multi.OnStepUpdate(pipeline.StepGenerate, 50, "halfway")
	multi.OnRunCompleted(pipeline.RunSucceeded, "done")

	for _, sink := range []*recordingSink{first, second} {
		events := sink.snapshot()
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].step != pipeline.StepGenerate || events[0].percent != 50 {
			t.Fatalf("unexpected step event: %+v", events[0])
		}
		if events[1].status != pipeline.RunSucceeded {
			t.Fatalf("unexpected completion event: %+v", events[1])
		}
	}
}
