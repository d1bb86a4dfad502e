package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	JWT            JWTConfig            `yaml:"jwt"`
	ServiceAuth    ServiceAuthConfig    `yaml:"service_auth"`
	Storage        StorageConfig        `yaml:"storage"`
	Gateways       GatewaysConfig       `yaml:"gateways"`
	Commission     CommissionConfig     `yaml:"commission"`
	Activation     ActivationConfig     `yaml:"activation"`
	Withdrawal     WithdrawalConfig     `yaml:"withdrawal"`
	Collaborators  CollaboratorsConfig  `yaml:"collaborators"`
	Notify         NotifyConfig         `yaml:"notify"`
	Reconcile      ReconcileConfig      `yaml:"reconcile"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout         Duration `yaml:"read_timeout"`
	WriteTimeout        Duration `yaml:"write_timeout"`
	IdleTimeout         Duration `yaml:"idle_timeout"`
	RequestTimeout      Duration `yaml:"request_timeout"`       // §5 "overall deadline of 30s" for general API handlers
	PaymentTimeout       Duration `yaml:"payment_timeout"`       // longer deadline for webhook/payment-processing routes
	CORSAllowedOrigins  []string `yaml:"cors_allowed_origins"`
	RoutePrefix         string   `yaml:"route_prefix"`
	ShutdownGracePeriod Duration `yaml:"shutdown_grace_period"` // §6 "drain in-flight for <=10s"
	AdminMetricsAPIKey  string   `yaml:"admin_metrics_api_key"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Environment string `yaml:"environment"`
	Service     string `yaml:"service"`
	Version     string `yaml:"version"`
}

// JWTConfig holds the shared HMAC secret used to validate user/admin bearer tokens (§6).
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServiceAuthConfig authenticates the internal service-to-service surface (§6).
type ServiceAuthConfig struct {
	Secret         string   `yaml:"secret"`
	AllowedServices []string `yaml:"allowed_services"`
}

// StorageConfig selects and configures the C1/C2 backend.
type StorageConfig struct {
	Backend         string             `yaml:"backend"` // "memory", "postgres", "mongodb", or "file"
	PostgresURL     string             `yaml:"postgres_url"`
	MongoDBURL      string             `yaml:"mongodb_url"`
	MongoDBDatabase string             `yaml:"mongodb_database"`
	FilePath        string             `yaml:"file_path"`
	PostgresPool    PostgresPoolConfig `yaml:"postgres_pool"`
	CleanupInterval Duration           `yaml:"cleanup_interval"`
}

// PostgresPoolConfig holds PostgreSQL connection pool settings.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

// GatewaysConfig holds per-provider credentials and base URLs for C3.
type GatewaysConfig struct {
	Timeout    Duration         `yaml:"timeout"` // §5 default 10s for payment providers
	CinetPay   CinetPayConfig   `yaml:"cinetpay"`
	FeexPay    FeexPayConfig    `yaml:"feexpay"`
	NOWPayments NOWPaymentsConfig `yaml:"nowpayments"`
	// FiatToUSDRates converts unsupported-fiat crypto price quotes to USD (§4.3, §9).
	FiatToUSDRates map[string]float64 `yaml:"fiat_to_usd_rates"`
}

type CinetPayConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	SiteID         string `yaml:"site_id"`
	TransferLogin  string `yaml:"transfer_login"`
	TransferPassword string `yaml:"transfer_password"`
}

type FeexPayConfig struct {
	BaseURL string `yaml:"base_url"`
	ShopID  string `yaml:"shop_id"`
	APIKey  string `yaml:"api_key"`
}

type NOWPaymentsConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	IPNSecret string `yaml:"ipn_secret"`
}

// CommissionConfig holds the per-SKU three-level commission schedule (§3 CommissionPlan).
type CommissionConfig struct {
	Plans map[string]PlanConfig `yaml:"plans"`
}

// PlanConfig is one commission schedule: amounts in Currency, fixed regardless of payment currency (§4.5).
type PlanConfig struct {
	Currency string  `yaml:"currency"`
	Level1   float64 `yaml:"level1"`
	Level2   float64 `yaml:"level2"`
	Level3   float64 `yaml:"level3"`
}

// ActivationConfig holds C8's pricing table, independent of the subscription commission plans.
type ActivationConfig struct {
	Prices map[string]ActivationPriceConfig `yaml:"prices"`
}

type ActivationPriceConfig struct {
	USD          float64    `yaml:"usd"`
	XAF          float64    `yaml:"xaf"`
	CommissionXAF PlanConfig `yaml:"commission_xaf"`
	CommissionUSD PlanConfig `yaml:"commission_usd"`
}

// WithdrawalConfig holds C6's limits, fees and feature flags.
type WithdrawalConfig struct {
	DailyLimitXAF           float64  `yaml:"daily_limit_xaf"`
	MaxWithdrawalsPerDay    int      `yaml:"max_withdrawals_per_day"`
	MobileMoneyMinimumXAF   float64  `yaml:"mobile_money_minimum_xaf"`
	MobileMoneyMultipleOf   float64  `yaml:"mobile_money_multiple_of"`
	CryptoMinimumUSD        float64  `yaml:"crypto_minimum_usd"`
	FeePercent              float64  `yaml:"fee_percent"`
	FeeFixedXAF             float64  `yaml:"fee_fixed_xaf"`
	OTPTTL                  Duration `yaml:"otp_ttl"`
	FeexPayWithdrawalsEnabled bool   `yaml:"feexpay_withdrawals_enabled"`
}

// CollaboratorsConfig holds the outbound User/Notification service contracts (§6).
type CollaboratorsConfig struct {
	UserServiceURL         string   `yaml:"user_service_url"`
	NotificationServiceURL string   `yaml:"notification_service_url"`
	Timeout                Duration `yaml:"timeout"` // §5 default 5s for sibling services
}

// NotifyConfig configures the outbound notification delivery queue (retry + DLQ),
// modeled on the teacher's webhook callback delivery pattern.
type NotifyConfig struct {
	Timeout    Duration    `yaml:"timeout"`
	Retry      RetryConfig `yaml:"retry"`
	DLQEnabled bool        `yaml:"dlq_enabled"`
	DLQPath    string      `yaml:"dlq_path"`
}

type RetryConfig struct {
	Enabled         bool     `yaml:"enabled"`
	MaxAttempts     int      `yaml:"max_attempts"`
	InitialInterval Duration `yaml:"initial_interval"`
	MaxInterval     Duration `yaml:"max_interval"`
	Multiplier      float64  `yaml:"multiplier"`
}

// ReconcileConfig holds C7's cadence and batch bounds.
type ReconcileConfig struct {
	Interval           Duration `yaml:"interval"`            // default 5m
	BatchSize          int      `yaml:"batch_size"`          // default 100
	MinCallSpacing     Duration `yaml:"min_call_spacing"`    // default 1s
	StalenessThreshold Duration `yaml:"staleness_threshold"` // default 0 (immediately eligible)
}

// RateLimitConfig holds multi-tier HTTP rate limiting settings.
type RateLimitConfig struct {
	GlobalEnabled  bool     `yaml:"global_enabled"`
	GlobalLimit    int      `yaml:"global_limit"`
	GlobalWindow   Duration `yaml:"global_window"`
	PerUserEnabled bool     `yaml:"per_user_enabled"`
	PerUserLimit   int      `yaml:"per_user_limit"`
	PerUserWindow  Duration `yaml:"per_user_window"`
	PerIPEnabled   bool     `yaml:"per_ip_enabled"`
	PerIPLimit     int      `yaml:"per_ip_limit"`
	PerIPWindow    Duration `yaml:"per_ip_window"`
}

// CircuitBreakerConfig holds per-collaborator circuit breaker configuration.
type CircuitBreakerConfig struct {
	Enabled             bool                 `yaml:"enabled"`
	CinetPay            BreakerServiceConfig `yaml:"cinetpay"`
	FeexPay             BreakerServiceConfig `yaml:"feexpay"`
	NOWPayments         BreakerServiceConfig `yaml:"nowpayments"`
	UserCollaborator    BreakerServiceConfig `yaml:"user_collaborator"`
	NotificationCollaborator BreakerServiceConfig `yaml:"notification_collaborator"`
}

// BreakerServiceConfig configures a circuit breaker for a specific external service.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`
	Interval            Duration `yaml:"interval"`
	Timeout             Duration `yaml:"timeout"`
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"`
	FailureRatio        float64  `yaml:"failure_ratio"`
	MinRequests         uint32   `yaml:"min_requests"`
}
