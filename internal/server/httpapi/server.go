// Package httpapi exposes the vault access protocol over HTTP. Handlers are
// a thin mapping between the wire format and the service layer; all policy
// lives in services.VaultService.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keywarden/keywarden/internal/logging"
	"github.com/keywarden/keywarden/internal/server/config"
	"github.com/keywarden/keywarden/internal/server/models"
	"github.com/keywarden/keywarden/internal/server/services"
)

// VaultService is the subset of the service layer used by the HTTP handlers.
type VaultService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	GetCryptoParams(ctx context.Context, email string) (*services.CryptoParams, error)
	Authenticate(ctx context.Context, email, authKey string) (*models.User, error)
	GetVault(ctx context.Context, email, authKey string) (*models.User, error)
}

type HTTPServer struct {
	address          string
	vault            VaultService
	logger           logging.Logger
	paramsRateLimit  int
	paramsRateWindow time.Duration
}

func NewHTTPServer(a string, l logging.Logger, vs VaultService, cfg *config.Config) (*HTTPServer, error) {
	return &HTTPServer{
		address:          a,
		logger:           l.With("module", "http_server"),
		vault:            vs,
		paramsRateLimit:  cfg.ParamsRateLimit,
		paramsRateWindow: cfg.ParamsRateWindow,
	}, nil
}

// Router assembles the route table with CORS, request logging, metrics, and
// per-IP rate limiting on the unauthenticated KDF-parameter endpoints (they
// leak account existence, so enumeration gets throttled).
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	// Clients are browser extensions and web apps on arbitrary origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(s.withRequestLogging)
	r.Use(withMetrics)

	r.Post("/register", s.handleRegister)
	r.Post("/auth", s.handleAuth)
	r.Get("/get_vault", s.handleGetVault)

	r.Group(func(gr chi.Router) {
		if s.paramsRateLimit > 0 {
			gr.Use(httprate.Limit(
				s.paramsRateLimit,
				s.paramsRateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, "too many requests", codeRateLimited)
				}),
			))
		}
		gr.Get("/get_crypto_params", s.handleGetCryptoParams)
		gr.Get("/get_salt", s.handleGetSalt)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
