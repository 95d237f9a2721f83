package models

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
)

// Source identifies an upstream data provider family.
type Source string

const (
	SourceYahoo Source = "yahoo"
	SourceFRED  Source = "fred"
	SourceKRX   Source = "krx"
)

// SeriesRequest identifies one fetch. It is a value type and doubles as cache key.
type SeriesRequest struct {
	Source Source
	Code   string
	Start  time.Time
	End    time.Time
}

// Key renders the cache key for the request.
func (r SeriesRequest) Key() string {
	return fmt.Sprintf("series:%s:%s:%s:%s", r.Source, r.Code, r.Start.Format("20060102"), r.End.Format("20060102"))
}

// Point is one observation on a calendar date (UTC midnight).
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// RawSeries holds observed points ordered by strictly increasing date.
type RawSeries struct {
	Symbol string  `json:"symbol"`
	Source Source  `json:"source"`
	Points []Point `json:"points"`
}

// Len returns the number of observations.
func (s RawSeries) Len() int { return len(s.Points) }

// Rename returns a copy of s carrying a different symbol.
func (s RawSeries) Rename(symbol string) RawSeries {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	return RawSeries{Symbol: symbol, Source: s.Source, Points: pts}
}

// AlignedSeries is one column of an AlignedDataset. Values and Observed are
// index-aligned with the dataset's Index.
type AlignedSeries struct {
	Symbol   string
	Source   Source
	Values   []null.Float
	Observed []bool
}

// Present counts the non-absent values.
func (s AlignedSeries) Present() int {
	n := 0
	for _, v := range s.Values {
		if v.Valid {
			n++
		}
	}
	return n
}

// AlignedDataset is a set of series re-indexed on one shared date index.
type AlignedDataset struct {
	Index  []time.Time
	Series []AlignedSeries
}

// Len returns the length of the shared index.
func (d AlignedDataset) Len() int { return len(d.Index) }

// Lookup finds a series by symbol.
func (d AlignedDataset) Lookup(symbol string) (AlignedSeries, bool) {
	for _, s := range d.Series {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return AlignedSeries{}, false
}

// Symbols lists series symbols in dataset order.
func (d AlignedDataset) Symbols() []string {
	out := make([]string, 0, len(d.Series))
	for _, s := range d.Series {
		out = append(out, s.Symbol)
	}
	return out
}

// RawSeries converts the dataset back to raw series made of observed points only.
func (d AlignedDataset) RawSeries() []RawSeries {
	out := make([]RawSeries, 0, len(d.Series))
	for _, s := range d.Series {
		rs := RawSeries{Symbol: s.Symbol, Source: s.Source, Points: []Point{}}
		for i, v := range s.Values {
			if v.Valid && s.Observed[i] {
				rs.Points = append(rs.Points, Point{Date: d.Index[i], Value: v.Float64})
			}
		}
		out = append(out, rs)
	}
	return out
}

// NormalizedSeries holds z-scores of one series over the dataset's window.
// Degenerate series (fewer than two values or zero deviation) carry only
// absent values.
type NormalizedSeries struct {
	Symbol     string
	Source     Source
	Values     []null.Float
	Mean       null.Float
	StdDev     null.Float
	Count      int
	Degenerate bool
}

// NormalizedDataset mirrors an AlignedDataset with standardized values.
type NormalizedDataset struct {
	Index  []time.Time
	Series []NormalizedSeries
}

// Lookup finds a normalized series by symbol.
func (d NormalizedDataset) Lookup(symbol string) (NormalizedSeries, bool) {
	for _, s := range d.Series {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return NormalizedSeries{}, false
}
