package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		c.Server.RequestTimeout = Duration{Duration: 30 * time.Second}
	}
	if c.Server.PaymentTimeout.Duration <= 0 {
		c.Server.PaymentTimeout = Duration{Duration: 60 * time.Second}
	}
	if c.Server.ShutdownGracePeriod.Duration <= 0 {
		c.Server.ShutdownGracePeriod = Duration{Duration: 10 * time.Second}
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.Backend == "mongodb" && c.Storage.MongoDBDatabase == "" {
		c.Storage.MongoDBDatabase = "sbc_payment_engine"
	}

	if c.Gateways.Timeout.Duration <= 0 {
		c.Gateways.Timeout = Duration{Duration: 10 * time.Second}
	}
	if c.Gateways.FiatToUSDRates == nil {
		c.Gateways.FiatToUSDRates = map[string]float64{
			"XAF": 0.0016, "XOF": 0.0016, "GNF": 0.00012, "CDF": 0.0004, "KES": 0.0067,
		}
	}

	if c.Collaborators.Timeout.Duration <= 0 {
		c.Collaborators.Timeout = Duration{Duration: 5 * time.Second}
	}

	if c.Notify.Timeout.Duration <= 0 {
		c.Notify.Timeout = Duration{Duration: 5 * time.Second}
	}
	if c.Notify.DLQPath == "" {
		c.Notify.DLQPath = "./data/notify-dlq.json"
	}

	if c.Reconcile.Interval.Duration <= 0 {
		c.Reconcile.Interval = Duration{Duration: 5 * time.Minute}
	}
	if c.Reconcile.BatchSize <= 0 {
		c.Reconcile.BatchSize = 100
	}
	if c.Reconcile.MinCallSpacing.Duration <= 0 {
		c.Reconcile.MinCallSpacing = Duration{Duration: 1 * time.Second}
	}

	if c.Withdrawal.OTPTTL.Duration <= 0 {
		c.Withdrawal.OTPTTL = Duration{Duration: 10 * time.Minute}
	}
	if c.Withdrawal.MaxWithdrawalsPerDay <= 0 {
		c.Withdrawal.MaxWithdrawalsPerDay = 3
	}

	return c.validate()
}

// validate checks that required configuration fields are set correctly.
func (c *Config) validate() error {
	var errs []string

	switch c.Storage.Backend {
	case "memory", "file", "postgres", "mongodb":
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is not one of memory|file|postgres|mongodb", c.Storage.Backend))
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresURL == "" {
		errs = append(errs, "storage.postgres_url is required when storage.backend=postgres")
	}
	if c.Storage.Backend == "mongodb" && c.Storage.MongoDBURL == "" {
		errs = append(errs, "storage.mongodb_url is required when storage.backend=mongodb")
	}

	if c.JWT.Secret == "" {
		errs = append(errs, "jwt.secret is required")
	}
	if c.ServiceAuth.Secret == "" {
		errs = append(errs, "service_auth.secret is required")
	}

	if len(c.Commission.Plans) == 0 {
		errs = append(errs, "commission.plans must define at least one payment-type schedule")
	}
	for name, plan := range c.Commission.Plans {
		if plan.Currency == "" {
			errs = append(errs, fmt.Sprintf("commission.plans[%s].currency is required", name))
		}
	}

	if c.Withdrawal.DailyLimitXAF <= 0 {
		errs = append(errs, "withdrawal.daily_limit_xaf must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ApplyPostgresPoolSettings applies connection pool settings to a database connection.
func ApplyPostgresPoolSettings(db *sql.DB, pool PostgresPoolConfig) {
	maxOpen := pool.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	maxLifetime := pool.ConnMaxLifetime.Duration
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}
