//go:build wireinject
// +build wireinject

package di

import (
	"Copilot/pkg/config"
	"Copilot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideUserRepository,
		ProvideMailer,
		ProvideTokenIssuer,
		ProvideClickHouseBars,

		// Data sources
		ProvideHistoricalProvider,
		ProvideSqueeze,
		ProvideEarningsSource,
		ProvideSymbolDirectory,

		// Use cases
		ProvideChartData,
		ProvideAutocomplete,
		ProvideAuth,

		// HTTP
		ProvideGraphQLHandler,
		ProvideAuthHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
