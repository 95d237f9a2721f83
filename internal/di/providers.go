package di

import (
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/domain/repository"
	"MacroPull/internal/handler/api"
	internalrepo "MacroPull/internal/repository"
	icache "MacroPull/internal/service/cache"
	"MacroPull/internal/service/flow"
	"MacroPull/internal/service/fred"
	"MacroPull/internal/service/krx"
	"MacroPull/internal/service/ratelimit"
	"MacroPull/internal/service/yahoo"
	"MacroPull/internal/usecase"
	pcache "MacroPull/pkg/cache"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"
	pkgkafka "MacroPull/pkg/kafka"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/metrics"
	"MacroPull/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCacheStore creates the backing store selected by cache.backend.
func ProvideCacheStore(cfg *config.Config) (pcache.Service, error) {
	memOpts := []pcache.MemoryOption{pcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)}

	switch cfg.Cache.Backend {
	case "memory":
		return pcache.NewMemoryCache(memOpts...), nil
	case "redis", "layered":
		rc, err := pcache.NewRedisCache(
			pcache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
			pcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pcache.WithRedisDB(cfg.Cache.Redis.DB),
			pcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "redis" {
			return rc, nil
		}
		return pcache.NewLayeredCache(rc, pcache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize)), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

// ProvideSeriesCache wraps the store with per-key fetch deduplication.
func ProvideSeriesCache(cfg *config.Config, store pcache.Service, l *applogger.Logger, m repository.Metrics) repository.SeriesCache {
	return icache.NewSeriesCache(store,
		icache.WithTTL(cfg.Cache.TTL),
		icache.WithNegativeTTL(cfg.Cache.NegativeTTL),
		icache.WithFetchTimeout(cfg.Pipeline.FetchTimeout),
		icache.WithLogger(l),
		icache.WithMetrics(m),
	)
}

// ProvideHTTPClient creates the shared upstream client with bounded retry.
func ProvideHTTPClient(cfg *config.Config, l *applogger.Logger) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Pipeline.FetchTimeout),
		xhttp.WithUserAgent(cfg.Sources.Yahoo.UserAgent),
		xhttp.WithRetry(xhttp.RetryConfig{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}),
		xhttp.WithRetryNotify(func(err error, wait time.Duration) {
			l.Debug("upstream retry", applogger.Error(err), applogger.Duration("wait", wait))
		}),
	)
}

// ProvideCatalog builds the indicator catalog from config.
func ProvideCatalog(cfg *config.Config) *usecase.Catalog {
	return usecase.NewCatalog(cfg)
}

// ProvideFlowProvider selects the provider behind the flow adapter.
func ProvideFlowProvider(cfg *config.Config, hc *xhttp.Client, l *applogger.Logger) repository.FlowProvider {
	return krx.New(hc, cfg.Sources.KRX.BaseURL, l)
}

// ProvideSourceAdapters creates one adapter per source.
func ProvideSourceAdapters(
	cfg *config.Config,
	hc *xhttp.Client,
	fp repository.FlowProvider,
	catalog *usecase.Catalog,
	l *applogger.Logger,
) []repository.SourceAdapter {
	return []repository.SourceAdapter{
		yahoo.New(hc, cfg.Sources.Yahoo.BaseURL, catalog.Codes(models.SourceYahoo), l),
		fred.New(hc, cfg.Sources.FRED.BaseURL, cfg.Sources.FRED.APIKey, catalog.Codes(models.SourceFRED), l),
		flow.New(fp, catalog.Codes(models.SourceKRX), l),
	}
}

// ProvideSnapshotPublisher creates the Kafka publisher, or a no-op when Kafka is disabled.
func ProvideSnapshotPublisher(
	cfg *config.Config,
	reg *prometheus.Registry,
	m repository.Metrics,
	l *applogger.Logger,
) (repository.SnapshotPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopSnapshotPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, m, l), nil
}

// ProvideDashboardUseCase creates the dashboard use case.
func ProvideDashboardUseCase(
	cfg *config.Config,
	catalog *usecase.Catalog,
	cache repository.SeriesCache,
	adapters []repository.SourceAdapter,
	pub repository.SnapshotPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.DashboardUseCase {
	return usecase.NewDashboardUseCase(catalog, cache, adapters,
		usecase.WithHistoryStart(cfg.HistoryStart()),
		usecase.WithFetchTimeout(cfg.Pipeline.FetchTimeout),
		usecase.WithRenderDeadline(cfg.Pipeline.RenderDeadline),
		usecase.WithConcurrency(cfg.Pipeline.Concurrency),
		usecase.WithPublisher(pub),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	)
}

// ProvideRateLimiter creates the per-IP limiter for the dashboard route.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
}

// ProvideHTTPHandler creates the dashboard API handler.
func ProvideHTTPHandler(l *applogger.Logger, uc *usecase.DashboardUseCase, limiter *ratelimit.Limiter) xhttp.Handler {
	return api.NewDashboardEchoHandler(l, uc, limiter.Middleware())
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	store pcache.Service,
	pub repository.SnapshotPublisher,
) *server.App {
	return server.New(cfg, l, srv, store, pub)
}
