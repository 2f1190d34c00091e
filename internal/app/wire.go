//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/money-god/mgl-governance/internal/adapters"
	"github.com/money-god/mgl-governance/internal/config"
	"github.com/money-god/mgl-governance/internal/logging"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/spf13/viper"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewTimelockQueue,
		wire.Bind(new(usecase.TimelockBackend), new(*usecase.TimelockQueue)),
		wire.Bind(new(usecase.VetoBackend), new(*usecase.TimelockQueue)),
		usecase.NewGovernor,
		usecase.NewVetoAuthority,

		// App
		NewApp,
	)
	return nil, nil
}
