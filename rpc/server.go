// Package rpc serves a read-only HTTP query API over the ledger.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"debtvault/core/types"
	"debtvault/crypto"
)

// AccountReader is the ledger surface the query API reads from.
type AccountReader interface {
	AccountInfo(addr crypto.Address) (*types.AccountInfo, error)
	Clock() (types.Clock, error)
}

// Config tunes the query server.
type Config struct {
	ListenAddress string
	RateLimit     RateLimit
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	// Gatherer backs /metrics. Nil means the default prometheus registry.
	Gatherer prometheus.Gatherer
}

// Programs are the owners entity routes accept. A zero id disables the
// program's routes.
type Programs struct {
	Vault  crypto.Address
	Faucet crypto.Address
}

// Server answers queries about program entities and raw accounts.
type Server struct {
	cfg      Config
	reader   AccountReader
	programs Programs
	logger   *slog.Logger
	limiter  *RateLimiter
}

func NewServer(reader AccountReader, programs Programs, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		reader:   reader,
		programs: programs,
		logger:   logger,
		limiter:  NewRateLimiter(cfg.RateLimit),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(observe(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware)
		v1.Get("/accounts/{address}", s.handleAccount)
		v1.Get("/debt-types/{address}", s.handleDebtType)
		v1.Get("/vault-types/{address}", s.handleVaultType)
		v1.Get("/vaults/{address}", s.handleVault)
		v1.Get("/faucets/{address}", s.handleFaucet)
		v1.Get("/tokens/{address}/balance", s.handleTokenBalance)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	return otelhttp.NewHandler(r, "debtvault.query")
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("query api listening", slog.String("address", s.cfg.ListenAddress))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
