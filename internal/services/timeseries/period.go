package timeseries

import (
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/pkg/util"

	"github.com/guregu/null/v6"
)

// PeriodStart returns the inclusive lower bound of p relative to ref. ALL
// yields the zero time.
func PeriodStart(p models.Period, ref time.Time) (time.Time, error) {
	ref = util.Day(ref)
	switch p {
	case models.Period1M:
		return util.AddMonths(ref, -1), nil
	case models.Period3M:
		return util.AddMonths(ref, -3), nil
	case models.Period6M:
		return util.AddMonths(ref, -6), nil
	case models.PeriodYTD:
		return util.StartOfYear(ref), nil
	case models.Period1Y:
		return util.AddYears(ref, -1), nil
	case models.Period3Y:
		return util.AddYears(ref, -3), nil
	case models.Period10Y:
		return util.AddYears(ref, -10), nil
	case models.PeriodAll:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidPeriodToken, p)
}

// SelectPeriod keeps the contiguous dates d with start <= d <= ref, where
// start is derived from p and clamped to the first index date. A zero ref
// means the last index date.
func SelectPeriod(ds models.AlignedDataset, p models.Period, ref time.Time) (models.AlignedDataset, error) {
	if !models.IsValidPeriod(p) {
		return models.AlignedDataset{}, fmt.Errorf("%w: %q", models.ErrInvalidPeriodToken, p)
	}
	if len(ds.Index) == 0 {
		return slice(ds, 0, 0), nil
	}
	if ref.IsZero() {
		ref = ds.Index[len(ds.Index)-1]
	}
	ref = util.Day(ref)

	start, err := PeriodStart(p, ref)
	if err != nil {
		return models.AlignedDataset{}, err
	}
	if first := ds.Index[0]; start.Before(first) {
		start = first
	}

	lo, hi := len(ds.Index), len(ds.Index)
	for i, d := range ds.Index {
		if !d.Before(start) {
			lo = i
			break
		}
	}
	for i := lo; i < len(ds.Index); i++ {
		if ds.Index[i].After(ref) {
			hi = i
			break
		}
	}
	return slice(ds, lo, hi), nil
}

func slice(ds models.AlignedDataset, lo, hi int) models.AlignedDataset {
	if hi < lo {
		hi = lo
	}
	out := models.AlignedDataset{
		Index:  append([]time.Time{}, ds.Index[lo:hi]...),
		Series: make([]models.AlignedSeries, len(ds.Series)),
	}
	for i, s := range ds.Series {
		out.Series[i] = models.AlignedSeries{
			Symbol:   s.Symbol,
			Source:   s.Source,
			Values:   append([]null.Float{}, s.Values[lo:hi]...),
			Observed: append([]bool{}, s.Observed[lo:hi]...),
		}
	}
	return out
}
