package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"EnergyPulse/internal/domain/models"
	"EnergyPulse/pkg/util"
)

// ParseIndicatorNames expands a comma-separated list like "SMA,EMA,RSI" into
// indicator requests sharing one window. An entry may carry its own window as
// a suffix ("SMA_20").
func ParseIndicatorNames(names string, window int) ([]models.IndicatorRequest, error) {
	var reqs []models.IndicatorRequest
	for _, part := range strings.Split(names, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, w, ok := parseMetricName(part)
		if !ok {
			return nil, fmt.Errorf("indicator %q: %w", part, models.ErrConfigInvalid)
		}
		if w == 0 {
			w = window
		}
		reqs = append(reqs, models.IndicatorRequest{Kind: kind, Window: w})
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no indicators named: %w", models.ErrConfigInvalid)
	}
	return reqs, nil
}

// parseMetricName splits "RSI_14" into (RSI, 14, true) and "SMA" into
// (SMA, 0, true). Non-indicator metrics such as "close" return false.
func parseMetricName(name string) (models.IndicatorKind, int, bool) {
	base := name
	window := 0
	if i := strings.LastIndex(name, "_"); i > 0 {
		if w, err := strconv.Atoi(name[i+1:]); err == nil {
			base = name[:i]
			window = w
		}
	}
	kind, err := models.ParseIndicatorKind(strings.ToUpper(base))
	if err != nil {
		return "", 0, false
	}
	return kind, window, true
}

// ParseInstrumentList splits a comma-separated instrument list, dropping
// empty entries.
func ParseInstrumentList(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no instruments named: %w", models.ErrConfigInvalid)
	}
	return out, nil
}

// ParseTimeArg accepts RFC3339 timestamps, unix seconds and plain dates;
// empty means zero.
func ParseTimeArg(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, ok := util.ParseTime(s); ok {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("bad time %q: %w", s, models.ErrRangeInvalid)
}
