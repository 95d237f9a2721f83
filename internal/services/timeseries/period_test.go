package timeseries

import (
	"testing"
	"time"

	"MacroPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyDataset(from, to string) models.AlignedDataset {
	var pts []interface{}
	v := 1
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		pts = append(pts, d.Format("2006-01-02"), v)
		v++
	}
	return Align([]models.RawSeries{raw("A", pts...)})
}

func TestSelectPeriodAllIsIdentity(t *testing.T) {
	ds := dailyDataset("2023-01-01", "2024-03-31")
	got, err := SelectPeriod(ds, models.PeriodAll, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, ds, got)
}

func TestSelectPeriodOneMonthClampsMonthEnd(t *testing.T) {
	ds := dailyDataset("2023-01-01", "2024-03-31")
	got, err := SelectPeriod(ds, models.Period1M, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-29"), got.Index[0])
	assert.Equal(t, day("2024-03-31"), got.Index[len(got.Index)-1])
	for _, d := range got.Index {
		assert.False(t, d.Before(day("2024-02-29")))
	}
	assert.Len(t, got.Series[0].Values, len(got.Index))
}

func TestSelectPeriodWithReference(t *testing.T) {
	ds := dailyDataset("2023-01-01", "2024-03-31")

	ytd, err := SelectPeriod(ds, models.PeriodYTD, day("2024-02-10"))
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), ytd.Index[0])
	assert.Equal(t, day("2024-02-10"), ytd.Index[len(ytd.Index)-1])

	threeM, err := SelectPeriod(ds, models.Period3M, day("2023-05-31"))
	require.NoError(t, err)
	assert.Equal(t, day("2023-02-28"), threeM.Index[0])
}

func TestSelectPeriodClampsToFirstDate(t *testing.T) {
	ds := dailyDataset("2024-01-15", "2024-03-31")
	got, err := SelectPeriod(ds, models.Period10Y, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, ds.Index, got.Index)
}

func TestSelectPeriodReferenceBeforeData(t *testing.T) {
	ds := dailyDataset("2024-01-15", "2024-03-31")
	got, err := SelectPeriod(ds, models.Period1Y, day("2023-06-01"))
	require.NoError(t, err)
	assert.Empty(t, got.Index)
	assert.Empty(t, got.Series[0].Values)
}

func TestSelectPeriodRejectsUnknownToken(t *testing.T) {
	_, err := SelectPeriod(dailyDataset("2024-01-01", "2024-01-02"), models.Period("2W"), time.Time{})
	assert.ErrorIs(t, err, models.ErrInvalidPeriodToken)
}

func TestSelectPeriodCopies(t *testing.T) {
	ds := dailyDataset("2024-01-01", "2024-01-10")
	got, err := SelectPeriod(ds, models.PeriodAll, time.Time{})
	require.NoError(t, err)
	got.Series[0].Values[0] = f(-1)
	assert.Equal(t, f(1), ds.Series[0].Values[0])
}

func TestPeriodStart(t *testing.T) {
	ref := day("2024-03-31")
	cases := map[models.Period]time.Time{
		models.Period1M:  day("2024-02-29"),
		models.Period3M:  day("2023-12-31"),
		models.Period6M:  day("2023-09-30"),
		models.PeriodYTD: day("2024-01-01"),
		models.Period1Y:  day("2023-03-31"),
		models.Period3Y:  day("2021-03-31"),
		models.Period10Y: day("2014-03-31"),
		models.PeriodAll: {},
	}
	for p, want := range cases {
		got, err := PeriodStart(p, ref)
		require.NoError(t, err, p)
		assert.Equal(t, want, got, p)
	}
}
