package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"loom/internal/notifications"
	"loom/internal/testsupport"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var messages []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		messages = append(messages, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		out := make([]captured, len(messages))
		copy(out, messages)
		return out
	}
}

func newNtfyService(t *testing.T, topic string) notifications.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = topic
	return notifications.NewService(cfg)
}

func TestNewServiceIsNoopWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := notifications.NewService(cfg)
	if err := service.NotifyCycleStarted(context.Background(), 3); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
}

func TestNotifyEscalationCarriesRowDetails(t *testing.T) {
	server, messages := newCaptureServer(t)
	service := newNtfyService(t, server.URL)

	err := service.NotifyEscalation(context.Background(), notifications.Escalation{
		RowID:        14,
		WorkflowType: "POD Shirt",
		Status:       "Upscale Image",
		Error:        "upscale backend down",
		Suggestion:   "Escalated after 3 failed attempts",
	})
	if err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	got := messages()
	if len(got) != 1 {
		t.Fatalf("expected one message, got %d", len(got))
	}
	msg := got[0]
	if msg.title != "Loom - Escalation" || msg.priority != "high" {
		t.Fatalf("unexpected headers: %+v", msg)
	}
	for _, want := range []string{"Row 14", "POD Shirt", "Upscale Image", "upscale backend down"} {
		if !strings.Contains(msg.body, want) {
			t.Fatalf("body missing %q: %s", want, msg.body)
		}
	}
}

func TestNotifyCycleCompletedMentionsFailures(t *testing.T) {
	server, messages := newCaptureServer(t)
	service := newNtfyService(t, server.URL)

	if err := service.NotifyCycleCompleted(context.Background(), 10, 2, 42*time.Second); err != nil {
		t.Fatalf("NotifyCycleCompleted: %v", err)
	}

	got := messages()
	if len(got) != 1 {
		t.Fatalf("expected one message, got %d", len(got))
	}
	if !strings.Contains(got[0].title, "with errors") {
		t.Fatalf("title must flag errors: %q", got[0].title)
	}
	if !strings.Contains(got[0].body, "2 failed") {
		t.Fatalf("body must count failures: %s", got[0].body)
	}
}

func TestCycleTogglesSuppressCycleTraffic(t *testing.T) {
	server, messages := newCaptureServer(t)
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Cycles = false
	service := notifications.NewService(cfg)

	if err := service.NotifyCycleStarted(context.Background(), 5); err != nil {
		t.Fatalf("NotifyCycleStarted: %v", err)
	}
	if err := service.NotifyCycleCompleted(context.Background(), 5, 0, time.Second); err != nil {
		t.Fatalf("NotifyCycleCompleted: %v", err)
	}
	if got := messages(); len(got) != 0 {
		t.Fatalf("cycle notifications must be suppressed, got %d", len(got))
	}

	// Escalations stay enabled independently of the cycles toggle.
	if err := service.NotifyEscalation(context.Background(), notifications.Escalation{RowID: 1}); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}
	if got := messages(); len(got) != 1 {
		t.Fatalf("expected escalation to pass, got %d messages", len(got))
	}
}

func TestNotifyErrorIncludesContextLabel(t *testing.T) {
	server, messages := newCaptureServer(t)
	service := newNtfyService(t, server.URL)

	if err := service.NotifyError(context.Background(), errors.New("sheet unavailable"), "fetching actionable rows"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	got := messages()
	if len(got) != 1 || !strings.Contains(got[0].body, "fetching actionable rows") {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestSendSurfacesServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	service := newNtfyService(t, server.URL)
	if err := service.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from rejected notification")
	}
}
