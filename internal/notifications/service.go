package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"manifestboard/internal/config"
)

const userAgent = "manifestboard/0.1.0"

// Service defines the notification surface used by the daemon and the CLI.
type Service interface {
	NotifyAnnouncement(ctx context.Context, text string) error
	NotifyMuteChanged(ctx context.Context, message string, muted bool) error
	NotifyWriteFailed(ctx context.Context, document string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		station:       strings.TrimSpace(cfg.Station.Name),
		announcements: cfg.Notifications.Announcements,
		muteChanges:   cfg.Notifications.MuteChanges,
		errors:        cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	station  string

	announcements bool
	muteChanges   bool
	errors        bool
}

func (n *ntfyService) NotifyAnnouncement(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if !n.announcements || text == "" {
		return nil
	}
	priority := "default"
	if strings.Contains(text, "Missed") || strings.Contains(text, "missed") {
		priority = "high"
	}
	return n.send(ctx, payload{
		title:    n.title("Manifest Alert"),
		message:  "📢 " + text,
		tags:     []string{"manifestboard", "announcement"},
		priority: priority,
	})
}

func (n *ntfyService) NotifyMuteChanged(ctx context.Context, message string, muted bool) error {
	if !n.muteChanges {
		return nil
	}
	message = strings.TrimSpace(message)
	icon := "🔔"
	tag := "unmuted"
	if muted {
		icon = "🔕"
		tag = "muted"
	}
	return n.send(ctx, payload{
		title:    n.title("Alerts " + strings.ToUpper(tag[:1]) + tag[1:]),
		message:  icon + " " + message,
		tags:     []string{"manifestboard", "mute", tag},
		priority: "low",
	})
}

func (n *ntfyService) NotifyWriteFailed(ctx context.Context, document string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Write failed")
	if document = strings.TrimSpace(document); document != "" {
		builder.WriteString(" for ")
		builder.WriteString(document)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    n.title("Error"),
		message:  builder.String(),
		tags:     []string{"manifestboard", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    n.title("Test"),
		message:  "🧪 Notification system test",
		tags:     []string{"manifestboard", "test"},
		priority: "low",
	})
}

func (n *ntfyService) title(event string) string {
	if n.station == "" {
		return "Manifest Board - " + event
	}
	return fmt.Sprintf("Manifest Board (%s) - %s", n.station, event)
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

func (noopService) NotifyAnnouncement(context.Context, string) error       { return nil }
func (noopService) NotifyMuteChanged(context.Context, string, bool) error  { return nil }
func (noopService) NotifyWriteFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
