package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	seriescache "MacroPull/internal/service/cache"
	"MacroPull/internal/services/timeseries"
	pcache "MacroPull/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeAdapter struct {
	src   models.Source
	data  map[string][]models.Point
	errs  map[string]error
	block bool
	calls atomic.Int32
}

func (f *fakeAdapter) Source() models.Source { return f.src }

func (f *fakeAdapter) Fetch(ctx context.Context, code string, start, end time.Time) (*models.RawSeries, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, fmt.Errorf("%s: %w", code, models.ErrSourceUnavailable)
	}
	if err, ok := f.errs[code]; ok {
		if errors.Is(err, models.ErrEmptyResult) {
			return &models.RawSeries{Symbol: code, Source: f.src, Points: []models.Point{}}, err
		}
		return nil, err
	}
	return &models.RawSeries{Symbol: code, Source: f.src, Points: f.data[code]}, nil
}

type capturePublisher struct {
	mu  sync.Mutex
	got []*models.OutputDataset
	err error
}

func (p *capturePublisher) Publish(_ context.Context, ds *models.OutputDataset) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ds)
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

func pts(vals ...interface{}) []models.Point {
	var out []models.Point
	for i := 0; i+1 < len(vals); i += 2 {
		out = append(out, models.Point{Date: day(vals[i].(string)), Value: vals[i+1].(float64)})
	}
	return out
}

type fixture struct {
	uc    *DashboardUseCase
	yahoo *fakeAdapter
	fred  *fakeAdapter
	krx   *fakeAdapter
}

func newFixture(t *testing.T, opts ...DashboardOption) *fixture {
	t.Helper()

	catalog := newCatalog([]models.Indicator{
		{Name: "Gold", Label: "Gold ($)", Source: models.SourceYahoo, Code: "GC=F"},
		{Name: timeseries.LongYield, Source: models.SourceYahoo, Code: "^TNX"},
		{Name: timeseries.ShortYield, Source: models.SourceYahoo, Code: "^IRX"},
		{Name: "Fed_Funds", Source: models.SourceFRED, Code: "DFF"},
		{Name: "KOSPI_Foreign_Net", Source: models.SourceKRX, Code: "STK/foreign"},
	})

	f := &fixture{
		yahoo: &fakeAdapter{src: models.SourceYahoo, data: map[string][]models.Point{
			"GC=F": pts("2024-03-01", 2000.0, "2024-03-04", 2010.0, "2024-03-05", 2030.0),
			"^TNX": pts("2024-03-01", 4.2, "2024-03-04", 4.3, "2024-03-05", 4.25),
			"^IRX": pts("2024-03-01", 5.2, "2024-03-05", 5.3),
		}},
		fred: &fakeAdapter{src: models.SourceFRED, errs: map[string]error{
			"DFF": fmt.Errorf("fred DFF: api key not configured: %w", models.ErrSourceUnavailable),
		}},
		krx: &fakeAdapter{src: models.SourceKRX, data: map[string][]models.Point{
			"STK/foreign": pts("2024-03-04", 120.5, "2024-03-05", -20.5),
		}},
	}

	store := pcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	cache := seriescache.NewSeriesCache(store, seriescache.WithFetchTimeout(200*time.Millisecond))

	base := []DashboardOption{
		WithHistoryStart(day("2024-01-01")),
		WithClock(func() time.Time { return day("2024-03-06") }),
	}
	f.uc = NewDashboardUseCase(catalog, cache, []drepo.SourceAdapter{f.yahoo, f.fred, f.krx}, append(base, opts...)...)
	return f
}

func (f *fixture) totalCalls() int32 {
	return f.yahoo.calls.Load() + f.fred.calls.Load() + f.krx.calls.Load()
}

func TestBuildReportsPartialFailure(t *testing.T) {
	f := newFixture(t)

	out, err := f.uc.Build(context.Background(), DashboardParams{})
	require.NoError(t, err)

	assert.Equal(t, models.PeriodAll, out.Period)
	assert.Equal(t, []string{"2024-03-01", "2024-03-04", "2024-03-05"}, out.Dates)

	var symbols []string
	for _, s := range out.Series {
		symbols = append(symbols, s.Symbol)
		assert.Len(t, s.Raw, len(out.Dates))
		assert.Len(t, s.ZScore, len(out.Dates))
	}
	assert.Equal(t, []string{"Gold", timeseries.LongYield, timeseries.ShortYield, "KOSPI_Foreign_Net"}, symbols)
	assert.Equal(t, "Gold ($)", out.Series[0].Label)

	require.Len(t, out.Missing, 1)
	assert.Equal(t, "Fed_Funds", out.Missing[0].Symbol)
	assert.Equal(t, models.ReasonSourceUnavailable, out.Missing[0].Reason)
	assert.Contains(t, out.Missing[0].Message, "api key not configured")

	require.Len(t, out.Derived, 2)
	assert.Equal(t, timeseries.YieldSpread, out.Derived[0].Name)
	assert.InDelta(t, -1.0, out.Derived[0].Values[0].Float64, 1e-9)
	assert.Equal(t, "KOSPI_Foreign_Net"+timeseries.CumulativeSuffix, out.Derived[1].Name)
	assert.False(t, out.Derived[1].Values[0].Valid)
	assert.InDelta(t, 100.0, out.Derived[1].Values[2].Float64, 1e-9)
}

func TestBuildRejectsInvalidPeriodWithoutFetching(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Build(context.Background(), DashboardParams{Period: "2W"})
	assert.ErrorIs(t, err, models.ErrInvalidPeriodToken)
	assert.Zero(t, f.totalCalls())
}

func TestBuildRejectsUnknownIndicatorWithoutFetching(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Build(context.Background(), DashboardParams{Indicators: []string{"Gold", "Bitcoin", "Silver"}})
	require.ErrorIs(t, err, models.ErrUnknownIndicator)

	var unknown *UnknownIndicatorsError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"Bitcoin", "Silver"}, unknown.Names)
	assert.Zero(t, f.totalCalls())
}

func TestBuildRejectsReferenceBeforeHistory(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Build(context.Background(), DashboardParams{Reference: day("2023-06-30")})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
	assert.Zero(t, f.totalCalls())
}

func TestBuildKeepsEmptyResultAsAbsentColumn(t *testing.T) {
	f := newFixture(t)
	f.yahoo.errs = map[string]error{"GC=F": fmt.Errorf("yahoo GC=F: %w", models.ErrEmptyResult)}

	out, err := f.uc.Build(context.Background(), DashboardParams{Indicators: []string{"Gold", timeseries.LongYield}})
	require.NoError(t, err)

	require.Len(t, out.Series, 2)
	gold := out.Series[0]
	assert.Equal(t, "Gold", gold.Symbol)
	for _, v := range gold.Raw {
		assert.False(t, v.Valid)
	}
	assert.True(t, gold.Degenerate)

	require.Len(t, out.Missing, 1)
	assert.Equal(t, models.ReasonEmptyResult, out.Missing[0].Reason)
}

func TestBuildReportsSeriesWithoutValuesInWindow(t *testing.T) {
	f := newFixture(t)
	f.yahoo.data["GC=F"] = pts("2024-02-20", 1990.0)
	f.yahoo.data["^TNX"] = pts("2024-01-02", 4.0, "2024-01-10", 4.1)

	out, err := f.uc.Build(context.Background(), DashboardParams{
		Indicators: []string{timeseries.LongYield, "Gold"},
		Period:     "1m",
		Reference:  day("2024-01-31"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.Period1M, out.Period)
	assert.Equal(t, "2024-01-02", out.Start)
	assert.Equal(t, "2024-01-10", out.End)
	require.Len(t, out.Missing, 1)
	assert.Equal(t, "Gold", out.Missing[0].Symbol)
	assert.Equal(t, models.ReasonNoDataInPeriod, out.Missing[0].Reason)
}

func TestBuildUsesCacheUnlessRefreshed(t *testing.T) {
	f := newFixture(t)
	params := DashboardParams{Indicators: []string{"Gold"}}

	_, err := f.uc.Build(context.Background(), params)
	require.NoError(t, err)
	_, err = f.uc.Build(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.yahoo.calls.Load())

	params.Refresh = true
	_, err = f.uc.Build(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.yahoo.calls.Load())

	require.NoError(t, f.uc.ClearCache(context.Background()))
	params.Refresh = false
	_, err = f.uc.Build(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.yahoo.calls.Load())
}

func TestBuildBoundsSlowSources(t *testing.T) {
	f := newFixture(t, WithFetchTimeout(30*time.Millisecond))
	f.krx.block = true

	out, err := f.uc.Build(context.Background(), DashboardParams{})
	require.NoError(t, err)

	reasons := map[string]string{}
	for _, m := range out.Missing {
		reasons[m.Symbol] = m.Reason
	}
	assert.Equal(t, models.ReasonSourceUnavailable, reasons["KOSPI_Foreign_Net"])
	assert.Len(t, out.Series, 3)
	assert.Len(t, out.Derived, 1)
}

func TestBuildPublishesSnapshotBestEffort(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	f := newFixture(t, WithPublisher(pub))

	out, err := f.uc.Build(context.Background(), DashboardParams{Period: "ALL"})
	require.NoError(t, err)

	require.Len(t, pub.got, 1)
	assert.Same(t, out, pub.got[0])
}

func TestCatalogAndPeriods(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.uc.Indicators(), 5)
	assert.Equal(t, models.Periods(), f.uc.Periods())
}
