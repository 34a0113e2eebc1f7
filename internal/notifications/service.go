package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reel/internal/config"
)

const userAgent = "Reel/0.1.0"

// Event identifies a notification-worthy moment in the daemon lifecycle.
type Event string

const (
	// EventRunStarted fires when a pipeline run begins executing.
	EventRunStarted Event = "run_started"
	// EventRunCompleted fires when a run publishes successfully.
	EventRunCompleted Event = "run_completed"
	// EventRunFailed fires when a run terminates with a failed step.
	EventRunFailed Event = "run_failed"
	// EventRunSkipped fires when a scheduled run is suppressed by the
	// dedup check. Suppressed by default; the skip stays silent.
	EventRunSkipped Event = "run_skipped"
	// EventTest exercises the notification channel end to end.
	EventTest Event = "test"
)

// Payload carries event-specific fields consumed by the message formatter.
type Payload map[string]any

// Service publishes events to the configured push channel.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// suppressedEvents never reach the transport; publishing them is a no-op.
var suppressedEvents = map[Event]struct{}{
	EventRunSkipped: {},
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if _, ok := suppressedEvents[event]; ok {
		return nil
	}
	msg, err := formatEvent(event, payload)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func formatEvent(event Event, payload Payload) (message, error) {
	switch event {
	case EventRunStarted:
		trigger := stringField(payload, "trigger")
		if trigger == "" {
			trigger = "manual"
		}
		return message{
			title: "Reel - Run Started",
			body:  fmt.Sprintf("🎬 Pipeline run started (%s trigger)", trigger),
			tags:  []string{"reel", "run", "started"},
		}, nil
	case EventRunCompleted:
		title := stringField(payload, "title")
		if title == "" {
			title = "video"
		}
		body := fmt.Sprintf("✅ Published: %s", title)
		if url := stringField(payload, "url"); url != "" {
			body = fmt.Sprintf("%s\n%s", body, url)
		}
		return message{
			title:    "Reel - Published",
			body:     body,
			tags:     []string{"reel", "run", "completed"},
			priority: "high",
		}, nil
	case EventRunFailed:
		var builder strings.Builder
		builder.WriteString("❌ Run failed")
		if step := stringField(payload, "step"); step != "" {
			builder.WriteString(" at ")
			builder.WriteString(step)
		}
		builder.WriteString(": ")
		builder.WriteString(errorField(payload))
		return message{
			title:    "Reel - Run Failed",
			body:     builder.String(),
			tags:     []string{"reel", "error", "alert"},
			priority: "high",
		}, nil
	case EventTest:
		return message{
			title:    "Reel - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reel", "test"},
			priority: "low",
		}, nil
	default:
		return message{}, fmt.Errorf("unknown notification event %q", event)
	}
}

func stringField(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func errorField(payload Payload) string {
	if payload == nil {
		return "unknown"
	}
	switch v := payload["error"].(type) {
	case error:
		if v != nil {
			return strings.TrimSpace(v.Error())
		}
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return "unknown"
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
