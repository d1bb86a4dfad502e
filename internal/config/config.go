package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:             ":8080",
			ReadTimeout:         Duration{Duration: 15 * time.Second},
			WriteTimeout:        Duration{Duration: 15 * time.Second},
			IdleTimeout:         Duration{Duration: 60 * time.Second},
			RequestTimeout:      Duration{Duration: 30 * time.Second},
			PaymentTimeout:      Duration{Duration: 60 * time.Second},
			ShutdownGracePeriod: Duration{Duration: 10 * time.Second},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Environment: "production",
			Service:     "sbc-payment-engine",
		},
		Storage: StorageConfig{
			Backend:         "memory",
			CleanupInterval: Duration{Duration: 5 * time.Minute},
			PostgresPool: PostgresPoolConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: Duration{Duration: 5 * time.Minute},
			},
		},
		Gateways: GatewaysConfig{
			Timeout: Duration{Duration: 10 * time.Second},
			FiatToUSDRates: map[string]float64{
				"XAF": 0.0016,
				"XOF": 0.0016,
				"GNF": 0.00012,
				"CDF": 0.0004,
				"KES": 0.0067,
			},
		},
		Withdrawal: WithdrawalConfig{
			DailyLimitXAF:         500000,
			MaxWithdrawalsPerDay:  3,
			MobileMoneyMinimumXAF: 500,
			MobileMoneyMultipleOf: 5,
			CryptoMinimumUSD:      2,
			FeePercent:            1,
			OTPTTL:                Duration{Duration: 10 * time.Minute},
		},
		Collaborators: CollaboratorsConfig{
			Timeout: Duration{Duration: 5 * time.Second},
		},
		Notify: NotifyConfig{
			Timeout: Duration{Duration: 5 * time.Second},
			Retry: RetryConfig{
				Enabled:         true,
				MaxAttempts:     5,
				InitialInterval: Duration{Duration: 1 * time.Second},
				MaxInterval:     Duration{Duration: 5 * time.Minute},
				Multiplier:      2.0,
			},
			DLQPath: "./data/notify-dlq.json",
		},
		Reconcile: ReconcileConfig{
			Interval:       Duration{Duration: 5 * time.Minute},
			BatchSize:      100,
			MinCallSpacing: Duration{Duration: 1 * time.Second},
		},
		RateLimit: RateLimitConfig{
			GlobalEnabled:  true,
			GlobalLimit:    2000,
			GlobalWindow:   Duration{Duration: 1 * time.Minute},
			PerUserEnabled: true,
			PerUserLimit:   60,
			PerUserWindow:  Duration{Duration: 1 * time.Minute},
			PerIPEnabled:   true,
			PerIPLimit:     120,
			PerIPWindow:    Duration{Duration: 1 * time.Minute},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:     true,
			CinetPay:    defaultBreaker(),
			FeexPay:     defaultBreaker(),
			NOWPayments: defaultBreaker(),
			UserCollaborator:         defaultBreaker(),
			NotificationCollaborator: defaultBreaker(),
		},
	}
}

func defaultBreaker() BreakerServiceConfig {
	return BreakerServiceConfig{
		MaxRequests:         3,
		Interval:            Duration{Duration: 60 * time.Second},
		Timeout:             Duration{Duration: 30 * time.Second},
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}
