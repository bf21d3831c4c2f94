package alert

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"EnergyPulse/internal/domain/models"
)

// metricClose matches on the raw last close rather than an indicator series.
const metricClose = "close"

// Evaluator applies threshold rules to fresh market data. It keeps the
// per-rule last-trigger time across calls, so one Evaluator instance must be
// shared by everything that evaluates the same rule set.
type Evaluator struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// New creates an evaluator with empty cooldown state.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks every rule matching the series' instrument and returns the
// events that fired. A rule whose metric has no defined value is skipped, and
// a rule inside its cooldown window stays silent even if its condition holds.
func (e *Evaluator) Evaluate(series *models.PriceSeries, indicators *models.IndicatorSet,
	rules []models.AlertRule) []models.AlertEvent {

	now := e.now()
	var events []models.AlertEvent

	for _, rule := range rules {
		if rule.Instrument != "" && rule.Instrument != series.Instrument {
			continue
		}
		observed, ok := resolveMetric(rule.Metric, series, indicators)
		if !ok {
			continue
		}
		if !rule.Comparator.Holds(observed, rule.Threshold) {
			continue
		}
		if !e.tryTrigger(rule, now) {
			continue
		}
		events = append(events, models.AlertEvent{
			RuleID:      rule.Key(),
			Instrument:  series.Instrument,
			Metric:      rule.Metric,
			Observed:    observed,
			Threshold:   rule.Threshold,
			Severity:    rule.Severity,
			Message:     formatMessage(series.Instrument, rule, observed),
			TriggeredAt: now,
		})
	}
	return events
}

// Reset clears cooldown state for a rule, or all rules when key is empty.
func (e *Evaluator) Reset(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key == "" {
		e.last = make(map[string]time.Time)
		return
	}
	delete(e.last, key)
}

func (e *Evaluator) tryTrigger(rule models.AlertRule, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := rule.Key()
	if prev, ok := e.last[key]; ok && rule.Cooldown > 0 && now.Sub(prev) < rule.Cooldown {
		return false
	}
	e.last[key] = now
	return true
}

func resolveMetric(metric string, series *models.PriceSeries,
	indicators *models.IndicatorSet) (float64, bool) {

	if strings.EqualFold(metric, metricClose) {
		last, ok := series.Last()
		if !ok {
			return 0, false
		}
		return last.Close, true
	}
	if indicators == nil {
		return 0, false
	}
	return indicators.Last(metric)
}

func formatMessage(instrument string, rule models.AlertRule, observed float64) string {
	return fmt.Sprintf("%s %s %.2f %s %.2f",
		instrument, rule.Metric, observed, rule.Comparator, rule.Threshold)
}
