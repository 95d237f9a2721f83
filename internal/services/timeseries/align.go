package timeseries

import (
	"sort"
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/pkg/util"

	"github.com/guregu/null/v6"
)

// Align re-indexes series on the sorted union of their observation dates.
// Each series is absent before its first observation and carries its last
// observed value forward afterwards. Series order follows the input, and
// series with no observations are kept as all-absent columns.
func Align(series []models.RawSeries) models.AlignedDataset {
	seen := make(map[time.Time]struct{})
	observed := make([]map[time.Time]float64, len(series))
	for i, s := range series {
		m := make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			d := util.Day(p.Date)
			m[d] = p.Value
			seen[d] = struct{}{}
		}
		observed[i] = m
	}

	index := make([]time.Time, 0, len(seen))
	for d := range seen {
		index = append(index, d)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	out := models.AlignedDataset{
		Index:  index,
		Series: make([]models.AlignedSeries, len(series)),
	}
	for i, s := range series {
		col := models.AlignedSeries{
			Symbol:   s.Symbol,
			Source:   s.Source,
			Values:   make([]null.Float, len(index)),
			Observed: make([]bool, len(index)),
		}
		var last null.Float
		for j, d := range index {
			if v, ok := observed[i][d]; ok {
				last = null.FloatFrom(v)
				col.Observed[j] = true
			}
			col.Values[j] = last
		}
		out.Series[i] = col
	}
	return out
}
