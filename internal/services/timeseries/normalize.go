package timeseries

import (
	"math"

	"MacroPull/internal/domain/models"

	"github.com/guregu/null/v6"
)

// Normalize converts each series to z-scores over the dataset's own range
// using the sample standard deviation. Series with fewer than two present
// values or zero deviation come back all-absent and flagged Degenerate.
func Normalize(ds models.AlignedDataset) models.NormalizedDataset {
	out := models.NormalizedDataset{
		Index:  append(ds.Index[:0:0], ds.Index...),
		Series: make([]models.NormalizedSeries, len(ds.Series)),
	}
	for i, s := range ds.Series {
		out.Series[i] = normalizeSeries(s, len(ds.Index))
	}
	return out
}

func normalizeSeries(s models.AlignedSeries, n int) models.NormalizedSeries {
	ns := models.NormalizedSeries{
		Symbol: s.Symbol,
		Source: s.Source,
		Values: make([]null.Float, n),
	}

	mean, sd, count := moments(s.Values)
	ns.Count = count
	if count < 2 || sd == 0 || math.IsNaN(sd) || math.IsInf(sd, 0) {
		ns.Degenerate = true
		if count > 0 {
			ns.Mean = null.FloatFrom(mean)
		}
		return ns
	}

	ns.Mean = null.FloatFrom(mean)
	ns.StdDev = null.FloatFrom(sd)
	for j, v := range s.Values {
		if v.Valid {
			ns.Values[j] = null.FloatFrom((v.Float64 - mean) / sd)
		}
	}
	return ns
}

// relTolerance is the deviation, relative to the mean's magnitude, below
// which a series counts as flat.
const relTolerance = 1e-12

// moments returns the mean and sample standard deviation of present values.
// A series whose present values are all equal reports a deviation of 0.
func moments(vals []null.Float) (mean, sd float64, count int) {
	var (
		sum   float64
		first float64
		flat  = true
	)
	for _, v := range vals {
		if !v.Valid {
			continue
		}
		if count == 0 {
			first = v.Float64
		} else if v.Float64 != first {
			flat = false
		}
		sum += v.Float64
		count++
	}
	if count == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(count)
	if flat {
		return first, 0, count
	}

	var ss float64
	for _, v := range vals {
		if v.Valid {
			d := v.Float64 - mean
			ss += d * d
		}
	}
	sd = math.Sqrt(ss / float64(count-1))
	if sd <= relTolerance*math.Max(1, math.Abs(mean)) {
		sd = 0
	}
	return mean, sd, count
}
