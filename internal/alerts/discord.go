package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordSender sends alerts to Discord via webhook
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send sends the alert to Discord
func (s *DiscordSender) Send(ctx context.Context, payload *Payload) error {
	webhookPayload := map[string]interface{}{
		"embeds": []interface{}{s.buildEmbed(payload)},
	}

	body, err := json.Marshal(webhookPayload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (s *DiscordSender) buildEmbed(payload *Payload) map[string]interface{} {
	msg := payload.Message
	e := msg.Enrichment

	fields := []map[string]interface{}{
		{
			"name":   "Mint",
			"value":  fmt.Sprintf("`%s`", msg.Candidate.Mint),
			"inline": false,
		},
		{
			"name":   "Supply",
			"value":  formatSupply(e.Supply),
			"inline": true,
		},
		{
			"name":   "Top1",
			"value":  fmt.Sprintf("%.2f%%", e.TopHolderShare),
			"inline": true,
		},
		{
			"name":   "Top10",
			"value":  fmt.Sprintf("%.2f%%", e.Top10HolderShare),
			"inline": true,
		},
		{
			"name":   "Risk Score",
			"value":  fmt.Sprintf("**%.3f**", msg.Score),
			"inline": true,
		},
	}

	if e.HasMetadata() {
		fields = append(fields, map[string]interface{}{
			"name":   "Token",
			"value":  truncate(tokenLabel(e), 100),
			"inline": true,
		})
	}

	embed := map[string]interface{}{
		"title":       "New token detected",
		"url":         payload.TxURL,
		"description": payload.Text,
		"color":       0xFF0000,
		"fields":      fields,
	}
	if !msg.DetectedAt.IsZero() {
		embed["timestamp"] = msg.DetectedAt.UTC().Format(time.RFC3339)
	}
	return embed
}

// truncate truncates a string to maxLen
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
