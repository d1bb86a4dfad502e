// Package sbc wires the Payment & Commission Engine's components (C1-C9)
// into a single embeddable App, the way pkg/cedros wired the paywall.
package sbc

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TambongStercy/SBC-MS-sub012/internal/activation"
	"github.com/TambongStercy/SBC-MS-sub012/internal/auth"
	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/circuitbreaker"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators/notifyqueue"
	"github.com/TambongStercy/SBC-MS-sub012/internal/commission"
	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway/cinetpay"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway/feexpay"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway/nowpayments"
	"github.com/TambongStercy/SBC-MS-sub012/internal/httpserver"
	"github.com/TambongStercy/SBC-MS-sub012/internal/httputil"
	"github.com/TambongStercy/SBC-MS-sub012/internal/idempotency"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/lifecycle"
	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/metrics"
	"github.com/TambongStercy/SBC-MS-sub012/internal/money"
	"github.com/TambongStercy/SBC-MS-sub012/internal/paymentintent"
	"github.com/TambongStercy/SBC-MS-sub012/internal/reconcile"
	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
	"github.com/TambongStercy/SBC-MS-sub012/internal/withdrawal"
)

// App wires the Payment & Commission Engine components for reuse or
// standalone serving.
type App struct {
	Config *config.Config

	Store          storage.Store
	Ledger         *ledger.Store
	Balances       *balance.Projection
	Gateways       *gateway.Registry
	Users          collaborators.UserClient
	Notify         collaborators.NotificationClient
	Commission     *commission.Engine
	PaymentIntents *paymentintent.Manager
	Withdrawals    *withdrawal.Orchestrator
	Activation     *activation.Ledger
	Reconcile      *reconcile.Worker

	AuthVerifier    *auth.Verifier
	ServiceVerifier *auth.ServiceVerifier

	IdempotencyStore *idempotency.MemoryStore

	router           chi.Router
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
}

// Option configures App construction.
type Option func(*options)

type options struct {
	store  storage.Store
	users  collaborators.UserClient
	notify collaborators.NotificationClient
	router chi.Router
}

// WithStore sets a custom storage backend, bypassing config.Storage (useful for tests).
func WithStore(store storage.Store) Option {
	return func(o *options) { o.store = store }
}

// WithUserClient overrides the User-service collaborator client.
func WithUserClient(c collaborators.UserClient) Option {
	return func(o *options) { o.users = c }
}

// WithNotificationClient overrides the Notification-service collaborator client.
func WithNotificationClient(c collaborators.NotificationClient) Option {
	return func(o *options) { o.notify = c }
}

// WithRouter allows callers to provide an existing chi.Router to register routes onto.
func WithRouter(router chi.Router) Option {
	return func(o *options) { o.router = router }
}

// NewApp assembles the Payment & Commission Engine's components for embedding.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("sbc: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "payment-commission-engine",
		Version:     cfg.Logging.Version,
		Environment: cfg.Logging.Environment,
	})

	app.metricsCollector = metrics.New(prometheus.DefaultRegisterer)

	if optState.store != nil {
		app.Store = optState.store
	} else {
		store, err := storage.NewStore(cfg.Storage)
		if err != nil {
			return nil, err
		}
		app.resourceManager.RegisterFunc("storage", func() error {
			return store.Close(context.Background())
		})
		app.Store = storage.WithMetrics(store, cfg.Storage.Backend, app.metricsCollector)
	}

	app.Ledger = ledger.NewStore(app.Store)
	app.Balances = balance.NewProjection(app.Store)

	breakers := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker)
	app.Gateways = gateway.NewRegistry(breakers)

	gatewayClient := httputil.NewClient(cfg.Gateways.Timeout.Duration)
	app.Gateways.Register(cinetpay.New(cinetpay.Config{
		BaseURL:          cfg.Gateways.CinetPay.BaseURL,
		APIKey:           cfg.Gateways.CinetPay.APIKey,
		SiteID:           cfg.Gateways.CinetPay.SiteID,
		TransferLogin:    cfg.Gateways.CinetPay.TransferLogin,
		TransferPassword: cfg.Gateways.CinetPay.TransferPassword,
	}, gatewayClient))
	app.Gateways.Register(feexpay.New(feexpay.Config{
		BaseURL: cfg.Gateways.FeexPay.BaseURL,
		ShopID:  cfg.Gateways.FeexPay.ShopID,
		APIKey:  cfg.Gateways.FeexPay.APIKey,
	}, gatewayClient, cfg.Withdrawal.FeexPayWithdrawalsEnabled))
	app.Gateways.Register(nowpayments.New(nowpayments.Config{
		BaseURL:            cfg.Gateways.NOWPayments.BaseURL,
		APIKey:             cfg.Gateways.NOWPayments.APIKey,
		IPNSecret:          cfg.Gateways.NOWPayments.IPNSecret,
		FiatToUSD:          cfg.Gateways.FiatToUSDRates,
		StablecoinsFromUSD: map[string]bool{"USDT": true, "USDC": true},
	}, gatewayClient))

	collabClient := httputil.NewClient(cfg.Collaborators.Timeout.Duration)
	if optState.users != nil {
		app.Users = optState.users
	} else {
		app.Users = collaborators.NewHTTPUserClient(cfg.Collaborators.UserServiceURL, cfg.ServiceAuth.Secret, collabClient)
	}
	if optState.notify != nil {
		app.Notify = optState.notify
	} else {
		inner := collaborators.NewHTTPNotificationClient(cfg.Collaborators.NotificationServiceURL, cfg.ServiceAuth.Secret, collabClient)

		var dlq notifyqueue.DLQStore
		if cfg.Notify.DLQEnabled {
			store, err := notifyqueue.NewFileDLQStore(cfg.Notify.DLQPath)
			if err != nil {
				return nil, err
			}
			dlq = store
		}
		retryCfg := notifyqueue.RetryConfig{
			MaxAttempts:     cfg.Notify.Retry.MaxAttempts,
			InitialInterval: cfg.Notify.Retry.InitialInterval.Duration,
			MaxInterval:     cfg.Notify.Retry.MaxInterval.Duration,
			Multiplier:      cfg.Notify.Retry.Multiplier,
		}
		notifier := notifyqueue.New(inner, retryCfg, dlq, appLogger)
		app.Notify = notifier
		app.resourceManager.RegisterFunc("notify-queue", func() error {
			notifier.Wait()
			return nil
		})
	}

	app.Commission = commission.NewEngine(app.Ledger, app.Balances, app.Users, app.Notify, commission.PlansFromConfig(cfg.Commission, toMinor))
	app.PaymentIntents = paymentintent.NewManager(app.Store, app.Ledger, app.Balances, app.Gateways, app.Commission)
	app.Withdrawals = withdrawal.NewOrchestrator(app.Ledger, app.Balances, app.Gateways, app.Users, app.Notify, cfg.Withdrawal)
	app.Activation = activation.NewLedger(app.Ledger, app.Balances, app.Users, app.Notify, app.Commission, activation.PricesFromConfig(cfg.Activation, toMinor))

	app.Reconcile = reconcile.NewWorker(app.Ledger, app.Gateways, app.Withdrawals, cfg.Reconcile)
	app.Reconcile.Start(logger.WithContext(context.Background(), appLogger))
	app.resourceManager.RegisterFunc("reconcile-worker", func() error {
		app.Reconcile.Stop()
		return nil
	})

	app.AuthVerifier = auth.NewVerifier(cfg.JWT.Secret)
	app.ServiceVerifier = auth.NewServiceVerifier(cfg.ServiceAuth.Secret, cfg.ServiceAuth.AllowedServices)

	app.IdempotencyStore = idempotency.NewMemoryStore()
	app.resourceManager.RegisterFunc("idempotency-store", func() error {
		app.IdempotencyStore.Stop()
		return nil
	})

	if optState.router != nil {
		app.router = optState.router
	} else {
		app.router = chi.NewRouter()
	}

	httpserver.ConfigureRouter(app.router, cfg, httpserver.Dependencies{
		PaymentIntents:  app.PaymentIntents,
		Withdrawals:     app.Withdrawals,
		Activation:      app.Activation,
		Gateways:        app.Gateways,
		Ledger:          app.Ledger,
		Balances:        app.Balances,
		Reconcile:       app.Reconcile,
		AuthVerifier:    app.AuthVerifier,
		ServiceVerifier: app.ServiceVerifier,
	}, app.IdempotencyStore, app.metricsCollector, appLogger)

	return app, nil
}

// Router returns the chi router with SBC routes registered.
func (a *App) Router() chi.Router {
	return a.router
}

// Handler exposes the router as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases resources owned by the app (storage, pending notifications, reconcile worker, ...).
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// RegisterRoutes attaches SBC endpoints to the provided router using an existing App.
func RegisterRoutes(router chi.Router, app *App) {
	if router == nil || app == nil {
		return
	}
	appLogger := logger.New(logger.Config{
		Level:       app.Config.Logging.Level,
		Format:      app.Config.Logging.Format,
		Service:     "payment-commission-engine",
		Version:     app.Config.Logging.Version,
		Environment: app.Config.Logging.Environment,
	})

	collector := app.metricsCollector
	if collector == nil {
		collector = metrics.New(prometheus.DefaultRegisterer)
	}

	httpserver.ConfigureRouter(router, app.Config, httpserver.Dependencies{
		PaymentIntents:  app.PaymentIntents,
		Withdrawals:     app.Withdrawals,
		Activation:      app.Activation,
		Gateways:        app.Gateways,
		Ledger:          app.Ledger,
		Balances:        app.Balances,
		Reconcile:       app.Reconcile,
		AuthVerifier:    app.AuthVerifier,
		ServiceVerifier: app.ServiceVerifier,
	}, app.IdempotencyStore, collector, appLogger)
}

// NewHandler is a convenience that constructs an App and returns its handler.
func NewHandler(cfg *config.Config, opts ...Option) (http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Handler(), shutdown, nil
}

// Config is an exported alias of the internal configuration struct for embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding the engine.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}

// toMinor converts a configured major-unit amount (e.g. 2.50) to the
// currency's minor units, the bridge PlansFromConfig/PricesFromConfig need
// between config's human-readable floats and money.Money's atomic ints.
func toMinor(major float64, currency string) int64 {
	asset, err := money.GetAsset(currency)
	if err != nil {
		asset = money.Asset{Code: currency, Decimals: 0}
	}
	m, err := money.FromMajor(asset, strconv.FormatFloat(major, 'f', -1, 64))
	if err != nil {
		return 0
	}
	return m.Atomic
}
