package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/services/timeseries"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/metrics"
	"MacroPull/pkg/util"

	"golang.org/x/sync/errgroup"
)

const publishTimeout = 5 * time.Second

// DashboardUseCase assembles the dashboard dataset from every source.
type DashboardUseCase struct {
	catalog        *Catalog
	cache          drepo.SeriesCache
	adapters       map[models.Source]drepo.SourceAdapter
	publisher      drepo.SnapshotPublisher
	metrics        drepo.Metrics
	log            *applogger.Logger
	historyStart   time.Time
	fetchTimeout   time.Duration
	renderDeadline time.Duration
	concurrency    int
	now            func() time.Time
}

// DashboardOption configures DashboardUseCase.
type DashboardOption func(*DashboardUseCase)

func WithHistoryStart(t time.Time) DashboardOption {
	return func(uc *DashboardUseCase) { uc.historyStart = util.Day(t) }
}

func WithFetchTimeout(d time.Duration) DashboardOption {
	return func(uc *DashboardUseCase) { uc.fetchTimeout = d }
}

// WithRenderDeadline bounds a whole Build, fetches included.
func WithRenderDeadline(d time.Duration) DashboardOption {
	return func(uc *DashboardUseCase) { uc.renderDeadline = d }
}

func WithConcurrency(n int) DashboardOption {
	return func(uc *DashboardUseCase) { uc.concurrency = n }
}

func WithPublisher(p drepo.SnapshotPublisher) DashboardOption {
	return func(uc *DashboardUseCase) { uc.publisher = p }
}

func WithMetrics(m drepo.Metrics) DashboardOption {
	return func(uc *DashboardUseCase) { uc.metrics = m }
}

func WithLogger(l *applogger.Logger) DashboardOption {
	return func(uc *DashboardUseCase) { uc.log = l.With(applogger.String("component", "dashboard")) }
}

func WithClock(now func() time.Time) DashboardOption {
	return func(uc *DashboardUseCase) { uc.now = now }
}

func NewDashboardUseCase(catalog *Catalog, cache drepo.SeriesCache, adapters []drepo.SourceAdapter, opts ...DashboardOption) *DashboardUseCase {
	uc := &DashboardUseCase{
		catalog:        catalog,
		cache:          cache,
		adapters:       make(map[models.Source]drepo.SourceAdapter, len(adapters)),
		metrics:        metrics.Nop{},
		log:            applogger.Nop(),
		historyStart:   time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		fetchTimeout:   12 * time.Second,
		renderDeadline: 25 * time.Second,
		concurrency:    8,
		now:            time.Now,
	}
	for _, a := range adapters {
		uc.adapters[a.Source()] = a
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.concurrency < 1 {
		uc.concurrency = 1
	}
	return uc
}

type DashboardParams struct {
	// Indicators are catalog names; empty selects the whole catalog.
	Indicators []string
	Period     string
	// Reference is the period's end date; zero means the latest data date.
	Reference time.Time
	Refresh   bool
}

type fetchResult struct {
	series *models.RawSeries
	err    *models.IndicatorError
}

// Build fetches, aligns and normalizes the requested indicators. Invalid
// periods and unknown names fail before any fetch; per-indicator failures
// are reported in the result's Missing list.
func (uc *DashboardUseCase) Build(ctx context.Context, p DashboardParams) (*models.OutputDataset, error) {
	began := uc.now()

	period, err := models.ParsePeriod(p.Period)
	if err != nil {
		return nil, err
	}
	indicators, err := uc.catalog.Resolve(p.Indicators)
	if err != nil {
		return nil, err
	}

	end := util.Day(uc.now())
	if !p.Reference.IsZero() {
		end = util.Day(p.Reference)
	}
	if end.Before(uc.historyStart) {
		return nil, fmt.Errorf("reference %s before history start %s: %w",
			util.FormatDate(end), util.FormatDate(uc.historyStart), models.ErrInvalidRange)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.renderDeadline)
	defer cancel()

	if p.Refresh {
		uc.invalidate(ctx, indicators, end)
	}

	results := make([]fetchResult, len(indicators))
	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, ind := range indicators {
		g.Go(func() error {
			results[i] = uc.fetch(ctx, ind, end)
			return nil
		})
	}
	_ = g.Wait()

	var (
		raws    = make([]models.RawSeries, 0, len(indicators))
		missing []models.MissingIndicator
		flagged = make(map[string]struct{})
	)
	for i, ind := range indicators {
		r := results[i]
		if r.err != nil {
			missing = append(missing, models.MissingIndicator{
				Symbol:  ind.Name,
				Source:  ind.Source,
				Reason:  r.err.Reason(),
				Message: r.err.Error(),
			})
			flagged[ind.Name] = struct{}{}
			if !errors.Is(r.err, models.ErrEmptyResult) {
				continue
			}
		}
		if r.series == nil {
			raws = append(raws, models.RawSeries{Symbol: ind.Name, Source: ind.Source, Points: []models.Point{}})
			continue
		}
		raws = append(raws, r.series.Rename(ind.Name))
	}

	aligned := timeseries.Align(raws)
	selected, err := timeseries.SelectPeriod(aligned, period, p.Reference)
	if err != nil {
		return nil, err
	}

	for _, s := range selected.Series {
		if _, done := flagged[s.Symbol]; done || s.Present() > 0 {
			continue
		}
		missing = append(missing, models.MissingIndicator{
			Symbol: s.Symbol,
			Source: s.Source,
			Reason: models.ReasonNoDataInPeriod,
		})
	}
	for _, m := range missing {
		uc.metrics.RecordMissing(m.Reason)
	}

	out := timeseries.Compose(selected, timeseries.Normalize(selected),
		timeseries.WithPeriod(period),
		timeseries.WithLabels(uc.catalog.Labels()),
		timeseries.WithDerived(timeseries.Derive(selected, uc.catalog.Flows())),
		timeseries.WithMissing(missing),
		timeseries.WithGeneratedAt(uc.now().UTC()),
	)

	elapsed := uc.now().Sub(began)
	uc.metrics.RecordBuild(string(period), elapsed.Seconds())
	uc.log.Info("dashboard built",
		applogger.String("period", string(period)),
		applogger.Int("series", len(out.Series)),
		applogger.Int("dates", len(out.Dates)),
		applogger.Int("missing", len(missing)),
		applogger.Duration("elapsed", elapsed),
	)

	uc.publish(ctx, &out)
	return &out, nil
}

func (uc *DashboardUseCase) fetch(ctx context.Context, ind models.Indicator, end time.Time) fetchResult {
	adapter, ok := uc.adapters[ind.Source]
	if !ok {
		return fetchResult{err: &models.IndicatorError{
			Indicator: ind.Name,
			Source:    ind.Source,
			Err:       fmt.Errorf("no adapter registered: %w", models.ErrSourceUnavailable),
		}}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.fetchTimeout)
	defer cancel()

	req := uc.request(ind, end)
	series, err := uc.cache.GetOrFetch(ctx, req, func(fctx context.Context) (*models.RawSeries, error) {
		return adapter.Fetch(fctx, req.Code, req.Start, req.End)
	})
	if err != nil {
		uc.log.Warn("indicator fetch failed",
			applogger.String("indicator", ind.Name),
			applogger.String("source", string(ind.Source)),
			applogger.Error(err),
		)
		return fetchResult{series: series, err: &models.IndicatorError{Indicator: ind.Name, Source: ind.Source, Err: err}}
	}
	return fetchResult{series: series}
}

func (uc *DashboardUseCase) request(ind models.Indicator, end time.Time) models.SeriesRequest {
	return models.SeriesRequest{Source: ind.Source, Code: ind.Code, Start: uc.historyStart, End: end}
}

func (uc *DashboardUseCase) invalidate(ctx context.Context, indicators []models.Indicator, end time.Time) {
	for _, ind := range indicators {
		if err := uc.cache.Refresh(ctx, uc.request(ind, end)); err != nil {
			uc.log.Warn("cache refresh failed", applogger.String("indicator", ind.Name), applogger.Error(err))
		}
	}
}

func (uc *DashboardUseCase) publish(ctx context.Context, ds *models.OutputDataset) {
	if uc.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(ctx, ds); err != nil {
		uc.log.Warn("snapshot publish failed", applogger.Error(err))
	}
}

// Indicators lists the catalog.
func (uc *DashboardUseCase) Indicators() []models.Indicator { return uc.catalog.All() }

// Periods lists the supported period tokens.
func (uc *DashboardUseCase) Periods() []models.Period { return models.Periods() }

// ClearCache drops every cached series.
func (uc *DashboardUseCase) ClearCache(ctx context.Context) error {
	if err := uc.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	uc.log.Info("series cache cleared")
	return nil
}
