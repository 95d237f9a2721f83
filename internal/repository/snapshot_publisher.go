package repository

import (
	"context"
	"fmt"
	"strconv"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/domain/repository"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/metrics"
)

// Producer is the part of pkg/kafka.Producer the publisher uses.
type Producer interface {
	Topic() string
	Publish(ctx context.Context, key []byte, value interface{}, headers map[string]string) error
	Close() error
}

// KafkaSnapshotPublisher writes composed dashboards to a Kafka topic keyed
// by period token.
type KafkaSnapshotPublisher struct {
	producer Producer
	metrics  repository.Metrics
	log      *applogger.Logger
}

// NewKafkaSnapshotPublisher creates Kafka publisher.
func NewKafkaSnapshotPublisher(producer Producer, m repository.Metrics, l *applogger.Logger) repository.SnapshotPublisher {
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaSnapshotPublisher{
		producer: producer,
		metrics:  m,
		log:      l.With(applogger.String("component", "snapshot_publisher"), applogger.String("topic", producer.Topic())),
	}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, ds *models.OutputDataset) error {
	if ds == nil {
		return nil
	}
	headers := map[string]string{
		"content-type": "application/json",
		"period":       string(ds.Period),
		"generated-at": ds.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"series":       strconv.Itoa(len(ds.Series)),
	}
	if err := p.producer.Publish(ctx, []byte(ds.Period), ds, headers); err != nil {
		p.metrics.RecordPublish("error")
		return fmt.Errorf("publish snapshot: %w", err)
	}
	p.metrics.RecordPublish("ok")
	p.log.Debug("snapshot published", applogger.String("period", string(ds.Period)))
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	return p.producer.Close()
}

// NopSnapshotPublisher discards snapshots; used when Kafka is disabled.
type NopSnapshotPublisher struct{}

func (NopSnapshotPublisher) Publish(context.Context, *models.OutputDataset) error { return nil }

func (NopSnapshotPublisher) Close() error { return nil }
