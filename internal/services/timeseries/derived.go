package timeseries

import (
	"MacroPull/internal/domain/models"

	"github.com/guregu/null/v6"
)

const (
	LongYield        = "US_10Y_Yield"
	ShortYield       = "US_3M_Yield"
	YieldSpread      = "Yield_Spread_10Y_3M"
	CumulativeSuffix = "_Cumulative"
)

// Derive computes the 10Y-3M yield spread when both legs are present and a
// running total for each flow series. Cumulative totals only add observed
// values, so carried-forward days repeat the running sum.
func Derive(ds models.AlignedDataset, flows []string) []models.DerivedSeries {
	var out []models.DerivedSeries

	long, okL := ds.Lookup(LongYield)
	short, okS := ds.Lookup(ShortYield)
	if okL && okS {
		vals := make([]null.Float, len(ds.Index))
		for i := range vals {
			if long.Values[i].Valid && short.Values[i].Valid {
				vals[i] = null.FloatFrom(long.Values[i].Float64 - short.Values[i].Float64)
			}
		}
		out = append(out, models.DerivedSeries{
			Name:   YieldSpread,
			Inputs: []string{LongYield, ShortYield},
			Values: vals,
		})
	}

	for _, name := range flows {
		s, ok := ds.Lookup(name)
		if !ok {
			continue
		}
		vals := make([]null.Float, len(ds.Index))
		var (
			sum     float64
			started bool
		)
		for i, v := range s.Values {
			if s.Observed[i] && v.Valid {
				sum += v.Float64
				started = true
			}
			if started {
				vals[i] = null.FloatFrom(sum)
			}
		}
		out = append(out, models.DerivedSeries{
			Name:   name + CumulativeSuffix,
			Inputs: []string{name},
			Values: vals,
		})
	}
	return out
}
