package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/TambongStercy/SBC-MS-sub012/internal/activation"
	"github.com/TambongStercy/SBC-MS-sub012/internal/auth"
	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/idempotency"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/metrics"
	"github.com/TambongStercy/SBC-MS-sub012/internal/paymentintent"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ratelimit"
	"github.com/TambongStercy/SBC-MS-sub012/internal/reconcile"
	"github.com/TambongStercy/SBC-MS-sub012/internal/withdrawal"
)

// Dependencies are the component managers the C9 HTTP surface dispatches to.
type Dependencies struct {
	PaymentIntents  *paymentintent.Manager
	Withdrawals     *withdrawal.Orchestrator
	Activation      *activation.Ledger
	Gateways        *gateway.Registry
	Ledger          *ledger.Store
	Balances        *balance.Projection
	Reconcile       *reconcile.Worker
	AuthVerifier    *auth.Verifier
	ServiceVerifier *auth.ServiceVerifier
}

// Server wires handlers, middleware, and dependencies.
type Server struct {
	handlers
	httpServer *http.Server
}

type handlers struct {
	cfg              *config.Config
	deps             Dependencies
	idempotencyStore idempotency.Store
	metrics          *metrics.Metrics
	logger           zerolog.Logger
}

// New builds the HTTP server with a configured router.
func New(cfg *config.Config, deps Dependencies, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		handlers: handlers{
			cfg:              cfg,
			deps:             deps,
			idempotencyStore: idempotencyStore,
			metrics:          metricsCollector,
			logger:           appLogger,
		},
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
			Handler:      router,
		},
	}

	ConfigureRouter(router, cfg, deps, idempotencyStore, metricsCollector, appLogger)

	return s
}

// ConfigureRouter attaches the Payment & Commission Engine's C9 routes to an
// existing router.
func ConfigureRouter(router chi.Router, cfg *config.Config, deps Dependencies, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) {
	if router == nil {
		return
	}

	handler := handlers{
		cfg:              cfg,
		deps:             deps,
		idempotencyStore: idempotencyStore,
		metrics:          metricsCollector,
		logger:           appLogger,
	}

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Location"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	router.Use(securityHeadersMiddleware)
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	rateLimitCfg := ratelimit.Config{
		GlobalEnabled:  cfg.RateLimit.GlobalEnabled,
		GlobalLimit:    cfg.RateLimit.GlobalLimit,
		GlobalWindow:   cfg.RateLimit.GlobalWindow.Duration,
		PerUserEnabled: cfg.RateLimit.PerUserEnabled,
		PerUserLimit:   cfg.RateLimit.PerUserLimit,
		PerUserWindow:  cfg.RateLimit.PerUserWindow.Duration,
		PerIPEnabled:   cfg.RateLimit.PerIPEnabled,
		PerIPLimit:     cfg.RateLimit.PerIPLimit,
		PerIPWindow:    cfg.RateLimit.PerIPWindow.Duration,
		Metrics:        metricsCollector,
	}
	router.Use(ratelimit.GlobalLimiter(rateLimitCfg))
	router.Use(ratelimit.UserLimiter(rateLimitCfg))
	router.Use(ratelimit.IPLimiter(rateLimitCfg))

	prefix := cfg.Server.RoutePrefix
	idempotencyMW := idempotency.Middleware(idempotencyStore, idempotency.DefaultTTL)

	requestTimeout := cfg.Server.RequestTimeout.Duration
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	paymentTimeout := cfg.Server.PaymentTimeout.Duration
	if paymentTimeout <= 0 {
		paymentTimeout = 60 * time.Second
	}

	// Lightweight endpoints: health check and metrics (§6).
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get(prefix+"/health", handler.health)
		r.With(adminMetricsAuth(cfg.Server.AdminMetricsAPIKey)).Handle(prefix+"/metrics", promhttp.Handler())
	})

	// Payment-processing routes: intent creation, webhooks, status polling (§6).
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(paymentTimeout))
		r.With(requireUser(deps.AuthVerifier), idempotencyMW).Post(prefix+"/api/payments/intent", handler.createPaymentIntent)
		r.Post(prefix+"/api/payments/webhooks/{gateway}", handler.ingestWebhook)
		r.With(requireUser(deps.AuthVerifier)).Get(prefix+"/api/payments/status/{sessionId}", handler.paymentStatus)
	})

	// General API routes: transactions, withdrawals, activation balance, admin, internal (§6).
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.With(requireUser(deps.AuthVerifier)).Get(prefix+"/api/transactions/history", handler.transactionHistory)
		r.With(requireUser(deps.AuthVerifier)).Get(prefix+"/api/transactions/{id}", handler.transactionByID)

		r.With(requireUser(deps.AuthVerifier), idempotencyMW).Post(prefix+"/api/transactions/withdrawal/initiate", handler.initiateWithdrawal)
		r.With(requireUser(deps.AuthVerifier)).Get(prefix+"/api/transactions/withdrawal/estimate", handler.estimateWithdrawal)
		r.With(requireUser(deps.AuthVerifier)).Post(prefix+"/api/transactions/withdrawal/verify", handler.verifyWithdrawal)
		r.With(requireUser(deps.AuthVerifier)).Delete(prefix+"/api/transactions/withdrawal/{id}/cancel", handler.cancelWithdrawal)

		r.With(requireUser(deps.AuthVerifier), idempotencyMW).Post(prefix+"/api/activation-balance/transfer", handler.activationTransfer)
		r.With(requireUser(deps.AuthVerifier), idempotencyMW).Post(prefix+"/api/activation-balance/transfer-to-user", handler.activationTransferToUser)
		r.With(requireUser(deps.AuthVerifier), idempotencyMW).Post(prefix+"/api/activation-balance/sponsor", handler.activationSponsor)

		r.With(requireAdmin(deps.AuthVerifier)).Post(prefix+"/api/admin/withdrawals/{id}/approve", handler.adminApproveWithdrawal)
		r.With(requireAdmin(deps.AuthVerifier)).Post(prefix+"/api/admin/withdrawals/{id}/reject", handler.adminRejectWithdrawal)
		r.With(requireAdmin(deps.AuthVerifier)).Get(prefix+"/api/admin/withdrawals/pending", handler.adminPendingWithdrawals)
		r.With(requireAdmin(deps.AuthVerifier)).Get(prefix+"/api/admin/withdrawals/validated", handler.adminValidatedWithdrawals)
		r.With(requireAdmin(deps.AuthVerifier)).Get(prefix+"/api/admin/gateway-balances", handler.adminGatewayBalances)
		r.With(requireAdmin(deps.AuthVerifier)).Get(prefix+"/api/admin/transactions/processing-stats", handler.adminProcessingStats)
		r.With(requireAdmin(deps.AuthVerifier)).Post(prefix+"/api/admin/transactions/check-all", handler.adminCheckAllProcessing)

		r.With(requireService(deps.ServiceVerifier), idempotencyMW).Post(prefix+"/api/internal/deposit", handler.internalDeposit)
		r.With(requireService(deps.ServiceVerifier), idempotencyMW).Post(prefix+"/api/internal/withdrawal", handler.internalWithdrawal)
		r.With(requireService(deps.ServiceVerifier), idempotencyMW).Post(prefix+"/api/internal/conversion", handler.internalConversion)
		r.With(requireService(deps.ServiceVerifier)).Get(prefix+"/api/internal/user/{id}/has-pending-transactions", handler.internalHasPendingTransactions)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, draining in-flight requests (§6).
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
