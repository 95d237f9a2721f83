package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Indicator is one catalog entry: a display name bound to a provider code.
type Indicator struct {
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Source Source `json:"source"`
	Code   string `json:"code"`
}

// OutputDataset is the composed result handed to presentation code.
type OutputDataset struct {
	Period      Period             `json:"period"`
	Start       string             `json:"start,omitempty"`
	End         string             `json:"end,omitempty"`
	Dates       []string           `json:"dates"`
	Series      []OutputSeries     `json:"series"`
	Derived     []DerivedSeries    `json:"derived,omitempty"`
	Missing     []MissingIndicator `json:"missing,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// OutputSeries pairs the raw and z-score view of one indicator.
type OutputSeries struct {
	Symbol     string       `json:"symbol"`
	Label      string       `json:"label,omitempty"`
	Source     Source       `json:"source"`
	Raw        []null.Float `json:"raw"`
	ZScore     []null.Float `json:"zscore"`
	Observed   []bool       `json:"observed"`
	Mean       null.Float   `json:"mean"`
	StdDev     null.Float   `json:"stddev"`
	Degenerate bool         `json:"degenerate,omitempty"`
}

// DerivedSeries is computed from other series on the same date index.
type DerivedSeries struct {
	Name   string       `json:"name"`
	Inputs []string     `json:"inputs"`
	Values []null.Float `json:"values"`
}

// MissingIndicator explains why an indicator has no (or no usable) data.
type MissingIndicator struct {
	Symbol  string `json:"symbol"`
	Source  Source `json:"source"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// DashboardRequest is the query accepted by the dashboard endpoint.
type DashboardRequest struct {
	Period     string `query:"period" json:"period" default:"ALL" validate:"required,max=8"`
	Indicators string `query:"indicators" json:"indicators" validate:"max=2048"`
	Reference  string `query:"reference" json:"reference" validate:"omitempty,datetime=2006-01-02"`
	Refresh    bool   `query:"refresh" json:"refresh"`
}
