package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trialdash/trialdash/pkg/types"
	"github.com/trialdash/trialdash/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Area       string     `json:"therapeutic_area"`
	Quarter    string     `json:"quarter"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Key identifies the rule, area and quarter the alert belongs to.
func (a *Alert) Key() string { return alertKey(a.RuleName, a.Area, a.Quarter) }

func alertKey(rule, area, quarter string) string {
	return rule + ":" + area + ":" + quarter
}

// Engine evaluates alert rules against bottleneck records and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "rule:area:quarter"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	client *http.Client
	now    func() time.Time
	send   func(*Alert) // asynchronous delivery; replaced in tests
}

// New creates an Engine from the alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.send = func(a *Alert) { go e.deliver(a) }
	return e
}

// SetConfig swaps in new rules and webhooks. Alerts for rules that no longer
// exist are dropped without a resolve notification.
func (e *Engine) SetConfig(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks

	keep := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		keep[r.Name] = true
	}
	for key, a := range e.active {
		if !keep[a.RuleName] {
			delete(e.active, key)
		}
	}
}

// Evaluate tests all configured rules against every record.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition no longer holds, or whose
// area/quarter disappeared from the dataset, are resolved.
func (e *Engine) Evaluate(records []types.BottleneckRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	firing := make(map[string]bool)
	var outbox []*Alert

	for _, rule := range e.rules {
		for _, rec := range records {
			key := alertKey(rule.Name, rec.Area, rec.Quarter)
			fires, value := evalCondition(rule.Condition, rec)
			if !fires {
				continue
			}
			firing[key] = true

			if _, already := e.active[key]; already {
				e.active[key].Value = value
				continue
			}
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
				continue
			}

			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:       uuid.NewString(),
				RuleName: rule.Name,
				Area:     rec.Area,
				Quarter:  rec.Quarter,
				Severity: sev,
				Value:    value,
				Message: fmt.Sprintf("[%s] %s fired for %s in %s: %s (value %.2f)",
					sev, rule.Name, rec.Area, rec.Quarter, rule.Condition, value),
				FiredAt: now,
				State:   "firing",
			}
			e.active[key] = a
			e.lastFire[key] = now
			cp := *a
			outbox = append(outbox, &cp)

			slog.Warn("alert fired",
				"rule", rule.Name,
				"area", rec.Area,
				"quarter", rec.Quarter,
				"value", value,
				"severity", sev,
			)
		}
	}

	for key, a := range e.active {
		if firing[key] {
			continue
		}
		resolved := now
		a.State = "resolved"
		a.ResolvedAt = &resolved
		delete(e.active, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		cp := *a
		outbox = append(outbox, &cp)

		slog.Info("alert resolved", "rule", a.RuleName, "area", a.Area, "quarter", a.Quarter)
	}

	for _, a := range outbox {
		e.send(a)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return latest(out[i]).After(latest(out[j]))
	})
	return out
}

// latest is the most recent state change of a.
func latest(a *Alert) time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}
