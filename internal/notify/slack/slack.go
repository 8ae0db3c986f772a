// Package slack pushes newly critical alerts to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/wardsync/internal/alert"
)

const (
	maxAlertsPerMessage = 10
	httpTimeout         = 10 * time.Second
)

// Notifier sends new-critical-alert notifications to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyCritical
// is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// NotifyCritical posts the alerts that entered the critical tier during the
// last sync cycle. If no webhook URL is configured, it returns nil
// immediately.
func (n *Notifier) NotifyCritical(ctx context.Context, alerts []alert.Alert) error {
	if n.webhookURL == "" || len(alerts) == 0 {
		return nil
	}

	msg := buildMessage(alerts)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(alerts []alert.Alert) map[string]any {
	blocks := []map[string]any{
		headerBlock(len(alerts)),
		{"type": "divider"},
	}

	shown := alerts
	if len(shown) > maxAlertsPerMessage {
		shown = shown[:maxAlertsPerMessage]
	}
	for _, a := range shown {
		blocks = append(blocks, alertBlock(a))
	}
	if len(alerts) > maxAlertsPerMessage {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("_…and %d more._", len(alerts)-maxAlertsPerMessage),
			},
		})
	}

	return map[string]any{"blocks": blocks}
}

func headerBlock(count int) map[string]any {
	text := fmt.Sprintf("\U0001f534 %d new critical alert", count)
	if count != 1 {
		text += "s"
	}
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func alertBlock(a alert.Alert) map[string]any {
	patient := a.PatientName
	if patient == "" {
		patient = a.PatientID
	}

	location := a.Department
	if a.RoomNumber != "" {
		location += " / room " + a.RoomNumber
	}
	if a.BedNumber != "" {
		location += " / bed " + a.BedNumber
	}

	score := "n/a"
	if a.RiskScore != nil {
		score = fmt.Sprintf("%.2f", *a.RiskScore)
	}

	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Patient:* %s", patient)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Risk score:* %s", score)},
	}
	if location != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Location:* %s", location)})
	}
	if a.Message != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Alert:* %s", a.Message)})
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}
