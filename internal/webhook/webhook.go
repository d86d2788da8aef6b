package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/config"
)

// Priorities map to message colors on Discord.
const (
	PriorityInfo    = "info"
	PriorityWarning = "warning"
	PriorityError   = "error"
)

var discordColors = map[string]int{
	PriorityInfo:    0x3498db,
	PriorityWarning: 0xf39c12,
	PriorityError:   0xe74c3c,
}

// Field is one labeled detail attached to a notification. Fields keep
// their insertion order in the outgoing payloads.
type Field struct {
	Name  string
	Value string
}

// Notifier fans filing agent events out to the configured Slack, Discord
// and custom webhook endpoints. Delivery failures are logged and never
// surface to the caller.
type Notifier struct {
	cfg    *config.WebhookConfig
	client *http.Client
}

func NewNotifier(cfg *config.WebhookConfig) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends one event to every configured endpoint. Returns true when
// at least one delivery succeeded.
func (n *Notifier) Notify(ctx context.Context, eventType, title, message, priority string, fields []Field) bool {
	if n == nil || n.cfg == nil || !n.cfg.Enabled {
		return false
	}

	sent := false
	if n.cfg.SlackURL != "" {
		if err := n.post(ctx, n.cfg.SlackURL, slackPayload(title, message, fields)); err != nil {
			log.Warn().Err(err).Str("event", eventType).Msg("slack notification failed")
		} else {
			sent = true
		}
	}
	if n.cfg.DiscordURL != "" {
		if err := n.post(ctx, n.cfg.DiscordURL, discordPayload(title, message, priority, fields)); err != nil {
			log.Warn().Err(err).Str("event", eventType).Msg("discord notification failed")
		} else {
			sent = true
		}
	}
	if n.cfg.CustomURL != "" {
		if err := n.post(ctx, n.cfg.CustomURL, customPayload(eventType, title, message, priority, fields)); err != nil {
			log.Warn().Err(err).Str("event", eventType).Msg("custom webhook failed")
		} else {
			sent = true
		}
	}
	return sent
}

func (n *Notifier) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func slackPayload(title, message string, fields []Field) map[string]interface{} {
	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]string{"type": "plain_text", "text": title},
		},
		{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": message},
		},
	}
	if len(fields) > 0 {
		sectionFields := make([]map[string]string, 0, len(fields))
		for _, f := range fields {
			sectionFields = append(sectionFields, map[string]string{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s*: %s", f.Name, f.Value),
			})
		}
		blocks = append(blocks, map[string]interface{}{"type": "section", "fields": sectionFields})
	}
	return map[string]interface{}{"text": title, "blocks": blocks}
}

func discordPayload(title, message, priority string, fields []Field) map[string]interface{} {
	color, ok := discordColors[priority]
	if !ok {
		color = discordColors[PriorityInfo]
	}
	embedFields := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		embedFields = append(embedFields, map[string]interface{}{
			"name":   f.Name,
			"value":  f.Value,
			"inline": true,
		})
	}
	return map[string]interface{}{
		"embeds": []map[string]interface{}{{
			"title":       title,
			"description": message,
			"color":       color,
			"fields":      embedFields,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}},
	}
}

func customPayload(eventType, title, message, priority string, fields []Field) map[string]interface{} {
	data := make(map[string]string, len(fields))
	for _, f := range fields {
		data[f.Name] = f.Value
	}
	return map[string]interface{}{
		"event_type": eventType,
		"title":      title,
		"message":    message,
		"priority":   priority,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"data":       data,
	}
}

// NotifyNewFiling announces a freshly discovered filing candidate.
func (n *Notifier) NotifyNewFiling(ctx context.Context, ticker, companyName, filingType string, filingYear int, source string) {
	n.Notify(ctx, "new_filing", "New Filing Discovered",
		fmt.Sprintf("Found %s %d for %s (%s)", filingType, filingYear, ticker, companyName),
		PriorityInfo,
		[]Field{
			{Name: "Ticker", Value: ticker},
			{Name: "Company", Value: companyName},
			{Name: "Filing Type", Value: filingType},
			{Name: "Year", Value: fmt.Sprintf("%d", filingYear)},
			{Name: "Source", Value: source},
		})
}

// NotifyHighPriorityFiling announces a filing for a high-priority
// watchlist company.
func (n *Notifier) NotifyHighPriorityFiling(ctx context.Context, ticker, companyName, filingType string, filingYear int) {
	n.Notify(ctx, "high_priority_filing", "High-Priority Filing Discovered",
		fmt.Sprintf("New %s %d for high-priority company %s", filingType, filingYear, ticker),
		PriorityWarning,
		[]Field{
			{Name: "Ticker", Value: ticker},
			{Name: "Company", Value: companyName},
			{Name: "Filing Type", Value: filingType},
			{Name: "Year", Value: fmt.Sprintf("%d", filingYear)},
		})
}

// NotifyIngestionComplete announces a successfully ingested filing.
func (n *Notifier) NotifyIngestionComplete(ctx context.Context, candidateID, documentID, ticker, filingType string) {
	n.Notify(ctx, "ingestion_complete", "Filing Ingested Successfully",
		fmt.Sprintf("Successfully ingested %s for %s", filingType, ticker),
		PriorityInfo,
		[]Field{
			{Name: "Candidate ID", Value: candidateID},
			{Name: "Document ID", Value: documentID},
			{Name: "Ticker", Value: ticker},
			{Name: "Filing Type", Value: filingType},
		})
}

// NotifyIngestionFailed announces a failed filing ingestion.
func (n *Notifier) NotifyIngestionFailed(ctx context.Context, candidateID, ticker, filingType, errMsg string) {
	n.Notify(ctx, "ingestion_failed", "Filing Ingestion Failed",
		fmt.Sprintf("Failed to ingest %s for %s: %s", filingType, ticker, errMsg),
		PriorityError,
		[]Field{
			{Name: "Candidate ID", Value: candidateID},
			{Name: "Ticker", Value: ticker},
			{Name: "Filing Type", Value: filingType},
			{Name: "Error", Value: errMsg},
		})
}
