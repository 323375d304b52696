// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package notifications delivers operator alerts from the watch command.
//
// Alerts go to a Slack Incoming Webhook as attachments whose colour follows
// the severity:
//   - danger/error: red
//   - warning/warn: yellow
//   - good/success: green
//
// A notifier built with an empty webhook URL is disabled and silently
// accepts every message. Delivery failures are returned as
// *errors.NotificationError; callers log them and carry on. After three
// consecutive failures the webhook is left alone for a minute.
//
// # Example Usage
//
//	notifier := notifications.NewSlackNotifier(cfg.Notifications.SlackWebhookURL)
//	_ = notifier.SendPowerTransition(ctx, "Living Room", "192.168.1.50", "On", "Off")
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/logger"
)

const footer = "ecpctl watch"

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	enabled    bool
}

// SlackMessage is a Slack webhook payload
type SlackMessage struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a Slack message attachment
type Attachment struct {
	Color  string `json:"color,omitempty"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Footer string `json:"footer,omitempty"`
	Ts     int64  `json:"ts,omitempty"`
}

// NewSlackNotifier creates a notifier; an empty URL disables it
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: newWebhookBreaker("slack"),
		enabled: webhookURL != "",
	}
}

// IsEnabled returns whether Slack notifications are enabled
func (s *SlackNotifier) IsEnabled() bool {
	return s.enabled
}

// SendMessage sends a plain text message
func (s *SlackNotifier) SendMessage(ctx context.Context, message string) error {
	if !s.enabled {
		logger.Debug().Msg("Slack notifications disabled, skipping message")
		return nil
	}
	return s.sendPayload(ctx, SlackMessage{Text: message})
}

// SendAlert sends a formatted alert
func (s *SlackNotifier) SendAlert(ctx context.Context, severity, title, message string) error {
	if !s.enabled {
		logger.Debug().Msg("Slack notifications disabled, skipping alert")
		return nil
	}

	payload := SlackMessage{
		Attachments: []Attachment{
			{
				Color:  severityToColor(severity),
				Title:  title,
				Text:   message,
				Footer: footer,
				Ts:     time.Now().Unix(),
			},
		},
	}
	return s.sendPayload(ctx, payload)
}

// SendPowerTransition reports a device changing power state. Devices coming
// on are "good"; anything else is a warning.
func (s *SlackNotifier) SendPowerTransition(ctx context.Context, deviceName, deviceIP, from, to string) error {
	severity := "warning"
	if to == "On" {
		severity = "good"
	}
	return s.SendAlert(ctx, severity,
		fmt.Sprintf("%s is now %s", deviceName, to),
		fmt.Sprintf("Device %s (%s) changed power state from %s to %s.", deviceName, deviceIP, from, to))
}

// SendDiscoveryFailure reports a failed SSDP scan
func (s *SlackNotifier) SendDiscoveryFailure(ctx context.Context, err error) error {
	return s.SendAlert(ctx, "danger", "Device Discovery Failure",
		fmt.Sprintf("SSDP discovery could not run: %v", err))
}

// sendPayload posts a payload to the webhook unless repeated failures have
// opened the breaker
func (s *SlackNotifier) sendPayload(ctx context.Context, payload SlackMessage) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.NewNotificationError("slack", err)
	}
	return err
}

func (s *SlackNotifier) post(ctx context.Context, payload SlackMessage) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.NewNotificationError("slack", fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.NewNotificationError("slack", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.NewNotificationError("slack", fmt.Errorf("failed to send request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.NewNotificationError("slack", fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}

	if len(payload.Attachments) > 0 {
		logger.Debug().Str("title", payload.Attachments[0].Title).Msg("Slack notification sent")
	} else {
		logger.Debug().Str("text", payload.Text).Msg("Slack notification sent")
	}
	return nil
}

// severityToColor maps severity levels to Slack colors
func severityToColor(severity string) string {
	switch severity {
	case "danger", "error":
		return "danger"
	case "warning", "warn":
		return "warning"
	case "good", "success":
		return "good"
	default:
		return "#808080"
	}
}
