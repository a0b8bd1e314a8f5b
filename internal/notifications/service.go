package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"starsound/internal/config"
)

const userAgent = "StarSound/0.1.0"

// Service defines the notification surface exposed to the build pipeline.
type Service interface {
	NotifyBuildStarted(ctx context.Context, modName string, fileCount int) error
	NotifyBuildCompleted(ctx context.Context, modName string, succeeded, failed int, duration time.Duration) error
	NotifyModInstalled(ctx context.Context, modName, dest string) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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
}

func (n *ntfyService) NotifyBuildStarted(ctx context.Context, modName string, fileCount int) error {
	modName = strings.TrimSpace(modName)
	data := payload{
		title:   "StarSound - Build Started",
		message: fmt.Sprintf("🎵 Building %s (%d files)", modName, fileCount),
		tags:    []string{"starsound", "build", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBuildCompleted(ctx context.Context, modName string, succeeded, failed int, duration time.Duration) error {
	modName = strings.TrimSpace(modName)
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
		title = "StarSound - Build Complete"
		message = fmt.Sprintf("✅ %s ready: %d files converted in %s", modName, succeeded, durationText)
	} else {
		title = "StarSound - Build Complete (with errors)"
		message = fmt.Sprintf("%s finished: %d succeeded, %d failed in %s", modName, succeeded, failed, durationText)
	}

	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"starsound", "build", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyModInstalled(ctx context.Context, modName, dest string) error {
	modName = strings.TrimSpace(modName)
	dest = strings.TrimSpace(dest)
	message := fmt.Sprintf("Installed to Starbound: %s", modName)
	if dest != "" {
		message = fmt.Sprintf("%s\nFolder: %s", message, dest)
	}
	data := payload{
		title:   "StarSound - Mod Installed",
		message: message,
		tags:    []string{"starsound", "install", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "StarSound - Error",
		message:  builder.String(),
		tags:     []string{"starsound", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "StarSound - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"starsound", "test"},
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

func (noopService) NotifyBuildStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyBuildCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyModInstalled(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
