//go:build wireinject
// +build wireinject

package di

import (
	"handsoff/internal"
	"handsoff/internal/controllers"
	"handsoff/internal/database"
	"handsoff/internal/dispatch"
	"handsoff/internal/providers"
	"handsoff/internal/services"
	"handsoff/internal/storage"
	"handsoff/internal/structures"

	wire "github.com/google/wire"
	"github.com/jonboulle/clockwork"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		clockwork.NewRealClock,
		dispatch.NewQueue,
		database.NewGormDatabase,
		wire.Bind(new(services.Database), new(*database.GormDatabase)),

		services.NewAlertCoordinator,
		services.NewSyncManager,
		services.NewRecordAlertObserver,
		storage.NewZstdCompressor,
		storage.NewFileManager,
		storage.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}
