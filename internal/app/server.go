package app

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"transfer-dashboard/internal/common/logging"
	"transfer-dashboard/internal/handlers"
	"transfer-dashboard/internal/server"
)

// RunServer starts the HTTP server with all handlers configured
func (app *App) RunServer() (*server.Server, http.Handler) {
	h := handlers.New(
		app.Storage,
		app.Pipeline,
		app.Limiter,
		app.Quota,
		app.PlayerCache,
		app.Config,
	)

	router := mux.NewRouter()
	SetupRoutes(router, h)

	srv := server.New(router, app.Config.Port, app.Config.TLSCertFile, app.Config.TLSKeyFile)

	return srv, router
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context) error {
	if err := app.PlayerCache.Persist(); err != nil {
		app.Logger.Warn("Error flushing player cache during shutdown",
			logging.Field{Key: "error", Value: err.Error()})
	}
	return nil
}
