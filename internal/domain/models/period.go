package models

import (
	"fmt"
	"strings"
)

// Period is a logical look-back window token.
type Period string

const (
	Period1M  Period = "1M"
	Period3M  Period = "3M"
	Period6M  Period = "6M"
	PeriodYTD Period = "YTD"
	Period1Y  Period = "1Y"
	Period3Y  Period = "3Y"
	Period10Y Period = "10Y"
	PeriodAll Period = "ALL"
)

// Periods lists the supported tokens from shortest to longest.
func Periods() []Period {
	return []Period{Period1M, Period3M, Period6M, PeriodYTD, Period1Y, Period3Y, Period10Y, PeriodAll}
}

// IsValidPeriod returns true if p is a supported token.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period1M, Period3M, Period6M, PeriodYTD, Period1Y, Period3Y, Period10Y, PeriodAll:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the token used when none is given.
func DefaultPeriod() Period { return PeriodAll }

// ParsePeriod converts a raw token (case-insensitive) into a Period.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultPeriod(), nil
	}
	p := Period(strings.ToUpper(s))
	if !IsValidPeriod(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodToken, s)
	}
	return p, nil
}
