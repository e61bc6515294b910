//go:build wireinject
// +build wireinject

package di

import (
	"GoldenScan/pkg/config"
	"GoldenScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideStateStore,
		ProvideMarketSource,
		ProvideNotifier,
		ProvideEventSink,
		ProvideStream,

		// Services and use cases
		ProvideLevelCalculator,
		ProvideLedger,
		ProvideDispatcher,
		ProvideEventRouter,
		ProvideScanner,
		ProvidePreferenceStore,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
