package app

import (
	"fmt"

	"transfer-dashboard/internal/common/logging"
	"transfer-dashboard/internal/storage/postgres"
	"transfer-dashboard/internal/storage/sqlite"
)

func (app *App) initializeStorage() error {
	switch app.Config.DatabaseType {
	case "postgres", "postgresql":
		app.Logger.Info("Database: PostgreSQL",
			logging.Field{Key: "host", Value: app.Config.PostgresHost},
			logging.Field{Key: "port", Value: app.Config.PostgresPort},
			logging.Field{Key: "database", Value: app.Config.PostgresDB},
		)
		cfg := &postgres.Config{
			Host:     app.Config.PostgresHost,
			Port:     app.Config.PostgresPort,
			Database: app.Config.PostgresDB,
			Username: app.Config.PostgresUser,
			Password: app.Config.PostgresPassword,
			SSLMode:  app.Config.PostgresSSLMode,
		}
		store, err := postgres.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		app.Storage = store

	default:
		dbPath := app.Config.DatabasePath
		if dbPath == "" {
			dbPath = "./transfer_dashboard.db"
		}
		app.Logger.Info("Database: SQLite", logging.Field{Key: "path", Value: dbPath})
		store, err := sqlite.New(&sqlite.Config{DatabasePath: dbPath})
		if err != nil {
			return fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		app.Storage = store
	}

	return nil
}
