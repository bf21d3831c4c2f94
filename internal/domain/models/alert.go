package models

import (
	"fmt"
	"time"
)

// Comparator is the closed set of alert comparisons.
type Comparator string

const (
	CompAbove   Comparator = ">"
	CompBelow   Comparator = "<"
	CompAboveEq Comparator = ">="
	CompBelowEq Comparator = "<="
)

// ParseComparator maps a symbol to a Comparator.
func ParseComparator(s string) (Comparator, error) {
	switch Comparator(s) {
	case CompAbove, CompBelow, CompAboveEq, CompBelowEq:
		return Comparator(s), nil
	}
	return "", fmt.Errorf("unknown comparator %q: %w", s, ErrConfigInvalid)
}

// Holds reports whether observed <cmp> threshold.
func (c Comparator) Holds(observed, threshold float64) bool {
	switch c {
	case CompAbove:
		return observed > threshold
	case CompBelow:
		return observed < threshold
	case CompAboveEq:
		return observed >= threshold
	case CompBelowEq:
		return observed <= threshold
	}
	return false
}

// Severity classifies an alert for presentation ordering.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertRule is a configured threshold check. Rules are created from
// configuration and never mutated during evaluation.
type AlertRule struct {
	ID         string        `json:"id"`
	Instrument string        `json:"instrument"`
	Metric     string        `json:"metric"` // "close" or an indicator name like "RSI_14"
	Comparator Comparator    `json:"comparator"`
	Threshold  float64       `json:"threshold"`
	Cooldown   time.Duration `json:"cooldown"`
	Severity   Severity      `json:"severity"`
}

// Key identifies the rule for cooldown bookkeeping.
func (r AlertRule) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("%s:%s%s%g", r.Instrument, r.Metric, r.Comparator, r.Threshold)
}

// AlertEvent is emitted when a rule's comparator holds outside its cooldown.
// Transient: consumed by the presentation layer or a notification sink.
type AlertEvent struct {
	RuleID      string    `json:"rule_id"`
	Instrument  string    `json:"instrument"`
	Metric      string    `json:"metric"`
	Observed    float64   `json:"observed"`
	Threshold   float64   `json:"threshold"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	TriggeredAt time.Time `json:"triggered_at"`
}
