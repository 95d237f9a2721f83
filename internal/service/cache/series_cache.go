package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	pcache "MacroPull/pkg/cache"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

// keyPrefix starts every series entry key.
const keyPrefix = "series:"

// Option configures SeriesCache.
type Option func(*SeriesCache)

// SeriesCache memoizes adapter fetches by SeriesRequest key. Concurrent
// misses on one key share a single upstream call.
type SeriesCache struct {
	store        pcache.Service
	group        singleflight.Group
	ttl          time.Duration
	negativeTTL  time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *applogger.Logger
	metrics      drepo.Metrics
}

var _ drepo.SeriesCache = (*SeriesCache)(nil)

// NewSeriesCache wraps store. Defaults: 1h TTL, 1m negative TTL, 12s fetch timeout.
func NewSeriesCache(store pcache.Service, opts ...Option) *SeriesCache {
	c := &SeriesCache{
		store:        store,
		ttl:          time.Hour,
		negativeTTL:  time.Minute,
		fetchTimeout: 12 * time.Second,
		now:          time.Now,
		log:          applogger.Nop(),
		metrics:      metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithTTL(d time.Duration) Option { return func(c *SeriesCache) { c.ttl = d } }

func WithNegativeTTL(d time.Duration) Option { return func(c *SeriesCache) { c.negativeTTL = d } }

// WithFetchTimeout bounds each upstream call independently of caller contexts.
func WithFetchTimeout(d time.Duration) Option { return func(c *SeriesCache) { c.fetchTimeout = d } }

func WithClock(now func() time.Time) Option { return func(c *SeriesCache) { c.now = now } }

func WithLogger(l *applogger.Logger) Option {
	return func(c *SeriesCache) { c.log = l.With(applogger.String("component", "series_cache")) }
}

func WithMetrics(m drepo.Metrics) Option { return func(c *SeriesCache) { c.metrics = m } }

type entry struct {
	Series     *models.RawSeries `json:"series,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
	TTL        time.Duration     `json:"ttl"`
	ErrKind    string            `json:"err_kind,omitempty"`
	ErrMessage string            `json:"err_message,omitempty"`
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.FetchedAt) > e.TTL
}

func (e *entry) result() (*models.RawSeries, error) {
	var s *models.RawSeries
	if e.Series != nil {
		cp := e.Series.Rename(e.Series.Symbol)
		s = &cp
	}
	if e.ErrKind == "" {
		return s, nil
	}
	return s, fmt.Errorf("%s: %w", e.ErrMessage, sentinelFor(e.ErrKind))
}

func sentinelFor(kind string) error {
	switch kind {
	case models.ReasonEmptyResult:
		return models.ErrEmptyResult
	case models.ReasonUnknownIndicator:
		return models.ErrUnknownIndicator
	default:
		return models.ErrSourceUnavailable
	}
}

type outcome struct {
	series *models.RawSeries
	err    error
}

// GetOrFetch returns the cached result for req or runs fetch once per key.
// The caller may stop waiting when ctx ends; the fetch keeps running for
// other waiters until its own timeout.
func (c *SeriesCache) GetOrFetch(ctx context.Context, req models.SeriesRequest, fetch drepo.FetchFunc) (*models.RawSeries, error) {
	key := req.Key()
	if e, ok := c.load(ctx, key); ok {
		if e.ErrKind != "" && e.ErrKind != models.ReasonEmptyResult {
			c.metrics.RecordCache("negative_hit")
		} else {
			c.metrics.RecordCache("hit")
		}
		return e.result()
	}
	c.metrics.RecordCache("miss")

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Another flight may have filled the key between our load and Do.
		if e, ok := c.load(detached, key); ok {
			s, err := e.result()
			return outcome{series: s, err: err}, nil
		}

		fctx, cancel := context.WithTimeout(detached, c.fetchTimeout)
		defer cancel()

		start := time.Now()
		series, err := fetch(fctx)
		c.metrics.RecordFetch(string(req.Source), resultLabel(err), time.Since(start).Seconds())
		if err != nil {
			c.log.Debug("upstream fetch failed",
				applogger.String("key", key),
				applogger.Error(err),
			)
		}

		c.save(detached, key, req, series, err)
		return outcome{series: series, err: err}, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", key, ctx.Err())
	case r := <-ch:
		o := r.Val.(outcome)
		if o.series != nil {
			cp := o.series.Rename(o.series.Symbol)
			return &cp, o.err
		}
		return nil, o.err
	}
}

// Refresh drops the entry for req so the next lookup refetches.
func (c *SeriesCache) Refresh(ctx context.Context, req models.SeriesRequest) error {
	key := req.Key()
	c.group.Forget(key)
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}
	return nil
}

// Clear drops every cached series.
func (c *SeriesCache) Clear(ctx context.Context) error {
	if err := c.store.DeleteByPattern(ctx, pcache.BuildPattern(keyPrefix)); err != nil {
		return fmt.Errorf("clear series cache: %w", err)
	}
	c.log.Info("series cache cleared")
	return nil
}

func (c *SeriesCache) load(ctx context.Context, key string) (*entry, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pcache.ErrCacheMiss) {
			c.log.Warn("cache read failed", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("cache entry corrupt", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	if e.expired(c.now()) {
		return nil, false
	}
	return &e, true
}

func (c *SeriesCache) save(ctx context.Context, key string, req models.SeriesRequest, series *models.RawSeries, fetchErr error) {
	// Caller mistakes and our own cancellation are not properties of the upstream.
	if errors.Is(fetchErr, models.ErrInvalidRange) || errors.Is(fetchErr, context.Canceled) {
		return
	}

	e := entry{Series: series, FetchedAt: c.now(), TTL: c.ttl}
	if fetchErr != nil {
		e.ErrKind = models.ReasonOf(fetchErr)
		e.ErrMessage = fetchErr.Error()
		if e.ErrKind != models.ReasonEmptyResult {
			e.TTL = c.negativeTTL
			e.Series = nil
		}
	}

	raw, err := json.Marshal(e)
	if err != nil {
		c.log.Warn("cache encode failed", applogger.String("key", key), applogger.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, e.TTL); err != nil {
		c.log.Warn("cache write failed", applogger.String("key", key), applogger.Error(err))
		return
	}
	c.log.Debug("series cached",
		applogger.String("source", string(req.Source)),
		applogger.String("code", req.Code),
		applogger.Bool("negative", e.ErrKind != "" && e.ErrKind != models.ReasonEmptyResult),
	)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(models.ReasonOf(err))
}
