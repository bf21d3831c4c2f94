//go:build wireinject
// +build wireinject

package di

import (
	"EnergyPulse/pkg/config"
	"EnergyPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Data plane
		ProvideMarketDataProvider,
		ProvideIndicatorEngine,
		ProvideForecastEngine,
		ProvideAlertEvaluator,
		ProvideSummaryAnalyzer,

		// History pipeline (nil when not configured)
		ProvideClickHouseClient,
		ProvideAlertStore,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideKafkaAlertsHandler,
		ProvideAlertQueue,

		// Presentation
		ProvideHub,
		ProvidePipeline,
		ProvideRefresher,
		ProvideMarketHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
