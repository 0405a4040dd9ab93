package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"permissiondesk/internal/config"
	"permissiondesk/internal/db"
	"permissiondesk/internal/db/mongostore"
	"permissiondesk/internal/logger"
	"permissiondesk/internal/permission"
)

const serviceName = "permissiondesk"

// app holds what every command needs: configuration, a logger and an open
// store behind the permission service.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store permission.Store
}

func loadApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(serviceName, cfg.LogLevel, cfg.LogPretty)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: store}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (permission.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return mongostore.Connect(ctx, cfg, log)
	case config.DriverPostgres:
		conn, err := db.Connect(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return db.NewStore(conn, cfg.Location()), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// service builds a permission service over the app's store. opts may set
// Publisher and Observer; location, limits and logger come from config.
func (a *app) service(opts permission.Options) *permission.Service {
	opts.Location = a.cfg.Location()
	opts.RecentLimit = a.cfg.RecentLimit
	opts.Logger = a.log
	return permission.NewService(a.store, opts)
}

func (a *app) close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("close store")
	}
}
