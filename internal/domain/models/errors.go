package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownIndicator   = errors.New("unknown indicator")
	ErrSourceUnavailable  = errors.New("source unavailable")
	ErrEmptyResult        = errors.New("empty result")
	ErrInvalidPeriodToken = errors.New("invalid period token")
	ErrInvalidRange       = errors.New("invalid date range")

	// ErrDegenerateSeries marks a series whose window deviation is zero or
	// undefined. The normalizer reports it through NormalizedSeries.Degenerate
	// and never returns it.
	ErrDegenerateSeries = errors.New("degenerate series")
)

// Reasons reported for indicators missing from a dashboard.
const (
	ReasonSourceUnavailable = "SOURCE_UNAVAILABLE"
	ReasonUnknownIndicator  = "UNKNOWN_INDICATOR"
	ReasonEmptyResult       = "EMPTY_RESULT"
	ReasonNoDataInPeriod    = "NO_DATA_IN_PERIOD"
)

// IndicatorError ties a failure to the indicator that produced it.
type IndicatorError struct {
	Indicator string
	Source    Source
	Err       error
}

func (e *IndicatorError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Source, e.Indicator, e.Err)
}

func (e *IndicatorError) Unwrap() error { return e.Err }

// Reason classifies the wrapped error.
func (e *IndicatorError) Reason() string { return ReasonOf(e.Err) }

// ReasonOf maps an error onto a missing-indicator reason code.
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrUnknownIndicator):
		return ReasonUnknownIndicator
	case errors.Is(err, ErrEmptyResult):
		return ReasonEmptyResult
	default:
		return ReasonSourceUnavailable
	}
}
