package config

import (
	"fmt"
	"os"
	"strings"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration. Names
// follow the §6 table where one is specified there; storage and provider
// settings use their own unprefixed names (PORT_ADDRESS, POSTGRES_URL,
// MONGODB_*, CINETPAY_*, FEEXPAY_*, NOWPAYMENTS_*), and the remaining
// engine-specific settings use an SBC_ prefix.
func (c *Config) applyEnvOverrides() {
	setIfEnv(&c.Server.Address, "PORT_ADDRESS")
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
	setIfEnv(&c.Server.RoutePrefix, "SBC_ROUTE_PREFIX")
	setIfEnv(&c.Server.AdminMetricsAPIKey, "SBC_ADMIN_METRICS_API_KEY")

	setIfEnv(&c.Logging.Level, "SBC_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "SBC_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "NODE_ENV")
	setIfEnv(&c.Logging.Environment, "MODE")

	setIfEnv(&c.JWT.Secret, "JWT_SECRET")
	setIfEnv(&c.ServiceAuth.Secret, "SERVICE_SECRET")

	setIfEnv(&c.Storage.Backend, "SBC_STORAGE_BACKEND")
	setIfEnv(&c.Storage.PostgresURL, "DB_URI")
	setIfEnv(&c.Storage.PostgresURL, "POSTGRES_URL")
	setIfEnv(&c.Storage.MongoDBURL, "MONGODB_URL")
	setIfEnv(&c.Storage.MongoDBDatabase, "MONGODB_DATABASE")
	setIfEnv(&c.Storage.FilePath, "SBC_STORAGE_FILE_PATH")

	setIfEnv(&c.Gateways.CinetPay.BaseURL, "CINETPAY_BASE_URL")
	setIfEnv(&c.Gateways.CinetPay.APIKey, "CINETPAY_API_KEY")
	setIfEnv(&c.Gateways.CinetPay.SiteID, "CINETPAY_SITE_ID")
	setIfEnv(&c.Gateways.CinetPay.TransferLogin, "CINETPAY_TRANSFER_LOGIN")
	setIfEnv(&c.Gateways.CinetPay.TransferPassword, "CINETPAY_TRANSFER_PASSWORD")

	setIfEnv(&c.Gateways.FeexPay.BaseURL, "FEEXPAY_BASE_URL")
	setIfEnv(&c.Gateways.FeexPay.ShopID, "FEEXPAY_SHOP_ID")
	setIfEnv(&c.Gateways.FeexPay.APIKey, "FEEXPAY_API_KEY")

	setIfEnv(&c.Gateways.NOWPayments.BaseURL, "NOWPAYMENTS_BASE_URL")
	setIfEnv(&c.Gateways.NOWPayments.APIKey, "NOWPAYMENTS_API_KEY")
	setIfEnv(&c.Gateways.NOWPayments.IPNSecret, "IPN_SECRET")

	setIfEnv(&c.Collaborators.UserServiceURL, "USER_SERVICE_URL")
	setIfEnv(&c.Collaborators.NotificationServiceURL, "NOTIFICATION_SERVICE_URL")

	setFloatIfEnv(&c.Withdrawal.DailyLimitXAF, "DAILY_WITHDRAWAL_LIMIT")
	setIntIfEnv(&c.Withdrawal.MaxWithdrawalsPerDay, "MAX_WITHDRAWALS_PER_DAY")
	setBoolIfEnv(&c.Withdrawal.FeexPayWithdrawalsEnabled, "FEEXPAY_WITHDRAWALS_ENABLED")
}

func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			*target = n
		}
	}
}

func setFloatIfEnv(target *float64, key string) {
	if v := os.Getenv(key); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			*target = f
		}
	}
}
