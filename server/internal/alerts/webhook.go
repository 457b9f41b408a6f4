package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/trialdash/trialdash/server/internal/config"
)

// payloadFuncs builds the request body for each webhook type.
var payloadFuncs = map[string]func(*Alert) any{
	"slack":     slackPayload,
	"teams":     teamsPayload,
	"pagerduty": pagerDutyPayload,
	"http":      func(a *Alert) any { return map[string]any{"alert": a} },
}

// deliver posts a to every configured target. Failures are logged only.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.targets() {
		url := wh.URL()
		if url == "" {
			continue
		}
		build, ok := payloadFuncs[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		body, err := json.Marshal(build(a))
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "rule", a.RuleName, "area", a.Area, "quarter", a.Quarter, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "key", a.Key(), "state", a.State)
	}
}

// targets returns a copy of the configured webhooks.
func (e *Engine) targets() []config.WebhookConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]config.WebhookConfig(nil), e.webhooks...)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// slackPayload is a text line plus an attachment listing the area, quarter
// and value that triggered the rule.
func slackPayload(a *Alert) any {
	return map[string]any{
		"text": fmt.Sprintf("*%s* %s", label(a), a.Message),
		"attachments": []map[string]any{{
			"color": "#" + color(a),
			"fields": []map[string]any{
				{"title": "Therapeutic area", "value": a.Area, "short": true},
				{"title": "Quarter", "value": a.Quarter, "short": true},
				{"title": "Value", "value": fmt.Sprintf("%.2f", a.Value), "short": true},
				{"title": "Rule", "value": a.RuleName, "short": true},
			},
		}},
	}
}

func teamsPayload(a *Alert) any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color(a),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("%s capacity alert: %s in %s", label(a), a.Area, a.Quarter),
		"text":       a.Message,
		"sections": []map[string]any{{
			"facts": []map[string]string{
				{"name": "Rule", "value": a.RuleName},
				{"name": "Value", "value": fmt.Sprintf("%.2f", a.Value)},
				{"name": "State", "value": a.State},
			},
		}},
	}
}

// pagerDutyPayload follows the Events API v2 shape. The alert key is the
// dedup key, so a resolve closes the incident its trigger opened.
func pagerDutyPayload(a *Alert) any {
	action := "trigger"
	if a.State == "resolved" {
		action = "resolve"
	}
	sev := a.Severity
	if sev != "critical" && sev != "warning" {
		sev = "info"
	}
	return map[string]any{
		"event_action": action,
		"dedup_key":    a.Key(),
		"payload": map[string]any{
			"summary":   a.Message,
			"source":    "trialdash",
			"severity":  sev,
			"component": a.Area,
			"group":     a.Quarter,
			"custom_details": map[string]any{
				"rule":  a.RuleName,
				"value": a.Value,
			},
		},
	}
}

func label(a *Alert) string {
	if a.State == "resolved" {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func color(a *Alert) string {
	if a.State == "resolved" {
		return "2EB886"
	}
	switch a.Severity {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
