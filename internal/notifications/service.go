package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loom/internal/config"
)

const userAgent = "Loom/0.1.0"

// Escalation describes a row handed off to a human supervisor.
type Escalation struct {
	RowID        int64
	WorkflowType string
	Status       string
	Error        string
	Suggestion   string
}

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyCycleStarted(ctx context.Context, rowCount int) error
	NotifyCycleCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyCycleSummary(ctx context.Context, status string, processed int, warnings []string) error
	NotifyEscalation(ctx context.Context, escalation Escalation) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
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
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		cycles:      cfg.Notifications.Cycles,
		escalations: cfg.Notifications.Escalations,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	cycles      bool
	escalations bool
	errors      bool
}

func (n *ntfyService) NotifyCycleStarted(ctx context.Context, rowCount int) error {
	if !n.cycles {
		return nil
	}
	data := payload{
		title:   "Loom - Cycle Started",
		message: fmt.Sprintf("Started pipeline cycle with %d actionable rows", rowCount),
		tags:    []string{"loom", "cycle", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCycleCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.cycles {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Loom - Cycle Complete"
		message = fmt.Sprintf("Cycle complete: %d rows processed in %s", processed, durationText)
	} else {
		title = "Loom - Cycle Complete (with errors)"
		message = fmt.Sprintf("Cycle complete: %d succeeded, %d failed in %s", processed-failed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"loom", "cycle", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCycleSummary(ctx context.Context, status string, processed int, warnings []string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Status: %s\n%d rows processed at %s\n", status, processed, time.Now().Format("2006-01-02 15:04"))
	for _, line := range warnings {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	data := payload{
		title:    "Loom - Cycle Summary",
		message:  strings.TrimRight(builder.String(), "\n"),
		tags:     []string{"loom", "cycle", "summary"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEscalation(ctx context.Context, escalation Escalation) error {
	if !n.escalations {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Row %d requires supervisor attention\n", escalation.RowID)
	if escalation.WorkflowType != "" {
		fmt.Fprintf(&builder, "Workflow: %s\n", escalation.WorkflowType)
	}
	if escalation.Status != "" {
		fmt.Fprintf(&builder, "Status: %s\n", escalation.Status)
	}
	if escalation.Error != "" {
		fmt.Fprintf(&builder, "Error: %s\n", escalation.Error)
	}
	if escalation.Suggestion != "" {
		fmt.Fprintf(&builder, "Suggestion: %s\n", escalation.Suggestion)
	}
	data := payload{
		title:    "Loom - Escalation",
		message:  strings.TrimRight(builder.String(), "\n"),
		tags:     []string{"loom", "escalation", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Loom - Error",
		message:  builder.String(),
		tags:     []string{"loom", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Loom - Test",
		message:  "Notification system test",
		tags:     []string{"loom", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func (noopService) NotifyCycleStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyCycleCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyCycleSummary(context.Context, string, int, []string) error     { return nil }
func (noopService) NotifyEscalation(context.Context, Escalation) error                  { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
