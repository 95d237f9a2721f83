package repository

import (
	"context"
	"time"

	"MacroPull/internal/domain/models"
)

// SourceAdapter fetches one provider's series and returns them in the uniform
// RawSeries shape. Callers never see provider wire formats.
type SourceAdapter interface {
	Source() models.Source
	Fetch(ctx context.Context, code string, start, end time.Time) (*models.RawSeries, error)
}

// FlowProvider supplies daily net-buy values for an investor group on a
// domestic market. Values are in won.
type FlowProvider interface {
	Name() string
	NetFlow(ctx context.Context, market, investor string, start, end time.Time) ([]models.Point, error)
}

// FetchFunc performs the actual upstream call for a cache miss.
type FetchFunc func(ctx context.Context) (*models.RawSeries, error)

type SeriesCache interface {
	GetOrFetch(ctx context.Context, req models.SeriesRequest, fetch FetchFunc) (*models.RawSeries, error)
	Refresh(ctx context.Context, req models.SeriesRequest) error
	Clear(ctx context.Context) error
}

type SnapshotPublisher interface {
	Publish(ctx context.Context, ds *models.OutputDataset) error
	Close() error
}

type Metrics interface {
	RecordFetch(source, result string, seconds float64)
	RecordCache(result string)
	RecordBuild(period string, seconds float64)
	RecordMissing(reason string)
	RecordPublish(result string)
}
