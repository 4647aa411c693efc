package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
	"go.uber.org/zap"
)

const (
	colorRed   = 16711680
	colorGreen = 65280
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Notifier reports the outcome of training and classification runs.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Discord posts embeds to webhook URLs. An empty URL disables that kind of notification.
type Discord struct {
	ErrorURL   string
	SuccessURL string
	Client     *http.Client
}

// NewDiscord reads the webhook URLs from the environment.
func NewDiscord() *Discord {
	return &Discord{
		ErrorURL:   properties.DiscordErrorNotificationUrl(),
		SuccessURL: properties.DiscordSuccessNotificationUrl(),
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Discord) Success(message string) {
	d.send(d.SuccessURL, DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: message,
		Color:       colorGreen,
	})
}

func (d *Discord) Error(message string) {
	d.send(d.ErrorURL, DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("An error occurred: %s", message),
		Color:       colorRed,
	})
}

// send never fails the caller; delivery problems are only logged.
func (d *Discord) send(url string, embed DiscordEmbed) {
	if url == "" {
		return
	}
	if err := d.post(url, DiscordMessage{Embeds: []DiscordEmbed{embed}}); err != nil {
		log.Warn("discord notification failed", zap.String("title", embed.Title), zap.Error(err))
	}
}

func (d *Discord) post(url string, message DiscordMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}

var (
	_ Notifier = (*Discord)(nil)
	_ Notifier = Nop{}
)

// Nop discards every notification.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}
