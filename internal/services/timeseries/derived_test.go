package timeseries

import (
	"testing"

	"MacroPull/internal/domain/models"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveYieldSpread(t *testing.T) {
	ds := Align([]models.RawSeries{
		raw(LongYield, "2024-01-01", 4.0, "2024-01-02", 4.25),
		raw(ShortYield, "2024-01-02", 5.5),
	})
	d := Derive(ds, nil)
	require.Len(t, d, 1)
	assert.Equal(t, YieldSpread, d[0].Name)
	assert.Equal(t, []null.Float{absent, f(-1.25)}, d[0].Values)
}

func TestDeriveCumulativeFlowSkipsCarriedValues(t *testing.T) {
	ds := Align([]models.RawSeries{
		raw("KOSPI", "2024-01-01", 1, "2024-01-02", 1, "2024-01-03", 1, "2024-01-04", 1),
		raw("KOSPI_Foreign_Net", "2024-01-02", 10, "2024-01-04", -4),
	})
	d := Derive(ds, []string{"KOSPI_Foreign_Net", "KOSDAQ_Foreign_Net"})
	require.Len(t, d, 1)
	assert.Equal(t, "KOSPI_Foreign_Net"+CumulativeSuffix, d[0].Name)
	assert.Equal(t, []null.Float{absent, f(10), f(10), f(6)}, d[0].Values)
}

func TestDeriveWithoutInputs(t *testing.T) {
	ds := Align([]models.RawSeries{raw("Gold", "2024-01-01", 1)})
	assert.Empty(t, Derive(ds, []string{"KOSPI_Foreign_Net"}))
}
