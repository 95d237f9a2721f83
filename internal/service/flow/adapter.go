package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"

	"github.com/shopspring/decimal"
)

// billion converts won to billions of won.
var billion = decimal.New(1, 9)

// Code renders the adapter code for a market and investor group.
func Code(market, investor string) string { return market + "/" + investor }

// Adapter exposes investor net-buy flows as series in billions of KRW. It is
// independent of the provider behind it.
type Adapter struct {
	provider drepo.FlowProvider
	codes    map[string]struct{}
	log      *applogger.Logger
	now      func() time.Time
}

// New creates a flow adapter accepting codes of the form "<market>/<investor>".
func New(p drepo.FlowProvider, codes []string, l *applogger.Logger) *Adapter {
	if l == nil {
		l = applogger.Nop()
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return &Adapter{
		provider: p,
		codes:    set,
		log:      l.With(applogger.String("source", string(models.SourceKRX)), applogger.String("provider", p.Name())),
		now:      time.Now,
	}
}

func (a *Adapter) Source() models.Source { return models.SourceKRX }

func (a *Adapter) Fetch(ctx context.Context, code string, start, end time.Time) (*models.RawSeries, error) {
	start, end = util.Day(start), util.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("flow %s: %w", code, models.ErrInvalidRange)
	}
	if _, ok := a.codes[code]; !ok {
		return nil, fmt.Errorf("flow %s: %w", code, models.ErrUnknownIndicator)
	}
	market, investor, ok := strings.Cut(code, "/")
	if !ok {
		return nil, fmt.Errorf("flow %s: %w", code, models.ErrUnknownIndicator)
	}
	if today := util.Day(a.now()); today.Before(end) {
		end = today
	}

	pts, err := a.provider.NetFlow(ctx, market, investor, start, end)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", code, err)
	}

	series := &models.RawSeries{Symbol: code, Source: models.SourceKRX, Points: make([]models.Point, 0, len(pts))}
	for _, p := range pts {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		v := decimal.NewFromFloat(p.Value).DivRound(billion, 6)
		series.Points = append(series.Points, models.Point{Date: p.Date, Value: v.InexactFloat64()})
	}

	a.log.Debug("series fetched", applogger.String("code", code), applogger.Int("points", series.Len()))
	if series.Len() == 0 {
		return series, fmt.Errorf("flow %s: %w", code, models.ErrEmptyResult)
	}
	return series, nil
}
