package models

import "errors"

// Pipeline failure taxonomy. Every stage wraps one of these with %w so callers
// can branch with errors.Is while the message keeps provider/instrument context.
var (
	// ErrDataUnavailable covers provider outages, unknown symbols, and empty payloads.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrRangeInvalid covers start >= end and ranges beyond provider history.
	ErrRangeInvalid = errors.New("invalid time range")

	// ErrInsufficientData means the series is shorter than the minimum lookback.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrTrainingFailed means the model fit produced degenerate output.
	ErrTrainingFailed = errors.New("model training failed")

	// ErrConfigInvalid covers unusable configuration values.
	ErrConfigInvalid = errors.New("invalid configuration")
)
