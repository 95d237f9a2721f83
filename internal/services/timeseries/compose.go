package timeseries

import (
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/pkg/util"

	"github.com/guregu/null/v6"
)

// ComposeOption decorates the composed dataset.
type ComposeOption func(*models.OutputDataset, *composeConfig)

type composeConfig struct {
	labels map[string]string
}

// WithPeriod records the period token on the output.
func WithPeriod(p models.Period) ComposeOption {
	return func(o *models.OutputDataset, _ *composeConfig) { o.Period = p }
}

// WithLabels attaches display labels by symbol.
func WithLabels(labels map[string]string) ComposeOption {
	return func(_ *models.OutputDataset, c *composeConfig) { c.labels = labels }
}

// WithDerived attaches derived series.
func WithDerived(d []models.DerivedSeries) ComposeOption {
	return func(o *models.OutputDataset, _ *composeConfig) { o.Derived = d }
}

// WithMissing attaches the indicators that could not be shown.
func WithMissing(m []models.MissingIndicator) ComposeOption {
	return func(o *models.OutputDataset, _ *composeConfig) { o.Missing = m }
}

// WithGeneratedAt stamps the build time.
func WithGeneratedAt(t time.Time) ComposeOption {
	return func(o *models.OutputDataset, _ *composeConfig) { o.GeneratedAt = t }
}

// Compose merges raw and normalized views position by position. Both inputs
// must share one index; a normalized series is matched by symbol.
func Compose(aligned models.AlignedDataset, normalized models.NormalizedDataset, opts ...ComposeOption) models.OutputDataset {
	out := models.OutputDataset{
		Period: models.DefaultPeriod(),
		Dates:  make([]string, len(aligned.Index)),
		Series: make([]models.OutputSeries, 0, len(aligned.Series)),
	}
	cfg := &composeConfig{}
	for _, opt := range opts {
		opt(&out, cfg)
	}

	for i, d := range aligned.Index {
		out.Dates[i] = util.FormatDate(d)
	}
	if n := len(out.Dates); n > 0 {
		out.Start, out.End = out.Dates[0], out.Dates[n-1]
	}

	for i, s := range aligned.Series {
		ns, ok := matchNormalized(normalized, i, s.Symbol)
		col := models.OutputSeries{
			Symbol:   s.Symbol,
			Label:    cfg.labels[s.Symbol],
			Source:   s.Source,
			Raw:      append([]null.Float{}, s.Values...),
			ZScore:   make([]null.Float, len(s.Values)),
			Observed: append([]bool{}, s.Observed...),
		}
		if ok && len(ns.Values) == len(s.Values) {
			copy(col.ZScore, ns.Values)
			col.Mean, col.StdDev, col.Degenerate = ns.Mean, ns.StdDev, ns.Degenerate
		} else {
			col.Degenerate = true
		}
		out.Series = append(out.Series, col)
	}
	return out
}

func matchNormalized(nd models.NormalizedDataset, i int, symbol string) (models.NormalizedSeries, bool) {
	if i < len(nd.Series) && nd.Series[i].Symbol == symbol {
		return nd.Series[i], true
	}
	return nd.Lookup(symbol)
}
