//go:build wireinject
// +build wireinject

package di

import (
	"MacroPull/pkg/config"
	"MacroPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCacheStore,
		ProvideHTTPClient,
		ProvideSnapshotPublisher,

		// Sources and cache
		ProvideCatalog,
		ProvideFlowProvider,
		ProvideSourceAdapters,
		ProvideSeriesCache,

		// Use cases
		ProvideDashboardUseCase,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
