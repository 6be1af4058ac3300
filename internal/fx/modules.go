package fx

import (
	"context"
	"database/sql"
	"tfm-tracker/internal/api"
	"tfm-tracker/internal/archive"
	"tfm-tracker/internal/config"
	"tfm-tracker/internal/constants"
	"tfm-tracker/internal/database"
	"tfm-tracker/internal/logger"
	"tfm-tracker/internal/metrics"
	"tfm-tracker/internal/reconcile"
	"tfm-tracker/internal/server"
	"tfm-tracker/internal/service"
	"tfm-tracker/internal/store"
	"tfm-tracker/internal/tracker"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideBackups(db *sql.DB, logger zerolog.Logger) store.Backups {
	return store.NewSQLiteBackups(db, constants.MaxBackups, logger)
}

// ProvideLocalCache opens the client's own sqlite file, separate from the server's.
func ProvideLocalCache(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (*store.LocalCache, error) {
	db, err := database.Open(cfg.CachePath, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return store.NewLocalCache(store.NewSQLiteKV(db, logger)), nil
}

func ProvideSession(cfg *config.Config) *tracker.Session {
	return tracker.New(tracker.WithLocation(cfg.Location))
}

var common = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
)

var ServerModule = fx.Options(
	common,
	fx.Provide(database.New),
	// storage
	fx.Provide(fx.Annotate(store.NewSQLiteKV, fx.As(new(store.KV)))),
	fx.Provide(ProvideBackups),
	fx.Provide(store.NewDocumentStore),
	// infra
	fx.Provide(metrics.New),
	fx.Provide(fx.Annotate(archive.New, fx.As(new(service.Archiver)))),
	// svc
	fx.Provide(service.NewDocumentService),
	fx.Provide(service.NewStatsService),
	// server
	fx.Provide(server.NewServer),
)

var ClientModule = fx.Options(
	common,
	fx.Provide(ProvideLocalCache),
	fx.Provide(ProvideSession),
	fx.Provide(api.NewClient),
	fx.Provide(fx.Annotate(
		reconcile.New,
		fx.From(new(*api.Client), new(*store.LocalCache)),
	)),
)
