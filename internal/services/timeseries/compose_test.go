package timeseries

import (
	"encoding/json"
	"testing"
	"time"

	"MacroPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeMergesByPosition(t *testing.T) {
	ds := Align([]models.RawSeries{
		raw("A", "2024-01-01", 1, "2024-01-02", 2, "2024-01-03", 3),
		raw("B", "2024-01-02", 4),
	})
	nd := Normalize(ds)
	gen := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	missing := []models.MissingIndicator{{Symbol: "Fed_Funds", Source: models.SourceFRED, Reason: models.ReasonSourceUnavailable}}

	out := Compose(ds, nd,
		WithPeriod(models.Period1M),
		WithLabels(map[string]string{"A": "Series A"}),
		WithMissing(missing),
		WithGeneratedAt(gen),
	)

	assert.Equal(t, models.Period1M, out.Period)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, out.Dates)
	assert.Equal(t, "2024-01-01", out.Start)
	assert.Equal(t, "2024-01-03", out.End)
	assert.Equal(t, gen, out.GeneratedAt)
	assert.Equal(t, missing, out.Missing)
	require.Len(t, out.Series, 2)

	a := out.Series[0]
	assert.Equal(t, "Series A", a.Label)
	assert.Len(t, a.Raw, 3)
	assert.Len(t, a.ZScore, 3)
	assert.Equal(t, ds.Series[0].Values, a.Raw)
	assert.Equal(t, nd.Series[0].Values, a.ZScore)
	assert.InDelta(t, 1, a.StdDev.Float64, 1e-12)

	b := out.Series[1]
	assert.True(t, b.Degenerate)
	assert.False(t, b.Raw[0].Valid)
}

func TestComposeRendersAbsentAsNull(t *testing.T) {
	ds := Align([]models.RawSeries{raw("A", "2024-01-02", 1), raw("B", "2024-01-01", 2)})
	out := Compose(ds, Normalize(ds))

	b, err := json.Marshal(out.Series[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"raw":[null,1]`)
	assert.Contains(t, string(b), `"zscore":[null,null]`)
}

func TestComposeEmpty(t *testing.T) {
	out := Compose(models.AlignedDataset{}, models.NormalizedDataset{})
	assert.Empty(t, out.Dates)
	assert.Empty(t, out.Series)
	assert.Equal(t, models.PeriodAll, out.Period)
}
