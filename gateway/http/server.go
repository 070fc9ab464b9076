package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitanogama/ocpp-manager/connection"
	"github.com/gitanogama/ocpp-manager/engine"
	"github.com/gitanogama/ocpp-manager/store"
)

// Config assembles the server's collaborators.
type Config struct {
	Addr        string
	Engine      *engine.Engine
	Connections *connection.Registry
	Store       *store.Store
	Logger      *slog.Logger
	Gatherer    prometheus.Gatherer
}

// Server serves the websocket endpoint and the operator REST API on one
// listener.
type Server struct {
	addr        string
	engine      *engine.Engine
	connections *connection.Registry
	store       *store.Store
	logger      *slog.Logger
	gatherer    prometheus.Gatherer
}

// NewServer builds the server. Gatherer may be nil to disable /metrics
// scraping content (an empty registry is served instead).
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}
	return &Server{
		addr:        cfg.Addr,
		engine:      cfg.Engine,
		connections: cfg.Connections,
		store:       cfg.Store,
		logger:      logger,
		gatherer:    gatherer,
	}
}

// Handler builds the route table. Exposed so tests can drive the API
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ocpp/1.6/{shortcode}", s.handleWebSocket)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api/chargers", s.handleListChargers)
	mux.HandleFunc("POST /api/chargers", s.handleCreateCharger)
	mux.HandleFunc("GET /api/chargers/{shortcode}", s.handleGetCharger)
	mux.HandleFunc("PUT /api/chargers/{shortcode}", s.handleUpdateCharger)
	mux.HandleFunc("DELETE /api/chargers/{shortcode}", s.handleDeleteCharger)
	mux.HandleFunc("GET /api/chargers/{shortcode}/connectors", s.handleListConnectors)
	mux.HandleFunc("GET /api/chargers/{shortcode}/transactions", s.handleListChargerTransactions)
	mux.HandleFunc("POST /api/chargers/{shortcode}/reset", s.handleReset)
	mux.HandleFunc("POST /api/chargers/{shortcode}/unlock", s.handleUnlock)
	mux.HandleFunc("GET /api/chargers/{shortcode}/configuration", s.handleGetConfiguration)
	mux.HandleFunc("POST /api/chargers/{shortcode}/configuration", s.handleChangeConfiguration)
	mux.HandleFunc("GET /api/chargers/{shortcode}/authorizations", s.handleListAuthorizations)
	mux.HandleFunc("POST /api/chargers/{shortcode}/authorizations", s.handleCreateAuthorization)
	mux.HandleFunc("DELETE /api/authorizations/{id}", s.handleDeleteAuthorization)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/stop", s.handleRemoteStop)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	return mux
}

// Run serves until ctx is canceled, then drains with a short grace
// period.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
