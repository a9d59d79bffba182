package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/up-bridge/internal/coordinator"
	"github.com/carson-networks/up-bridge/internal/handlers/v1/ingress"
	"github.com/carson-networks/up-bridge/internal/handlers/v1/snapshot"
	"github.com/carson-networks/up-bridge/internal/handlers/v1/status"
	"github.com/carson-networks/up-bridge/internal/logging"
)

type Rest struct {
	Logger      *logrus.Logger
	Port        string
	Coordinator *coordinator.Coordinator
	CallbackID  string
	Secret      string

	server *http.Server
}

func (r *Rest) Serve() error {
	mux := http.NewServeMux()

	humaAPI := humago.New(mux, huma.DefaultConfig("up-bridge", "1.0.0"))
	humaAPI.UseMiddleware(logging.HumaMiddleware(r.Logger))

	snapshot.NewGetSnapshotHandler(r.Coordinator).Register(humaAPI)
	snapshot.NewGetSummaryHandler(r.Coordinator).Register(humaAPI)
	snapshot.NewListAccountsHandler(r.Coordinator).Register(humaAPI)
	snapshot.NewListTransactionsHandler(r.Coordinator).Register(humaAPI)
	ingress.NewHandler(r.Coordinator, r.CallbackID, r.Secret).Register(humaAPI)

	statusHandler := status.NewHandler(r.Coordinator)
	mux.HandleFunc("/status", logging.LoggingWrapper("Status", r.Logger, statusHandler.Handler))

	r.server = &http.Server{
		Addr:              ":" + r.Port,
		Handler:           mux,
		ReadTimeout:       time.Duration(30) * time.Second,
		WriteTimeout:      time.Duration(30) * time.Second,
		IdleTimeout:       time.Duration(10) * time.Second,
		ReadHeaderTimeout: time.Duration(10) * time.Second,
	}

	r.Logger.Info("HttpServer.Serve.listening")
	err := r.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
		return err
	}
	r.Logger.Info("HttpServer.Serve.shutting down")
	return nil
}

func (r *Rest) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
