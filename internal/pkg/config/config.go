// Package config loads service settings from the environment and an
// optional dotenv file. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	BaseURL  string
	LogLevel string

	Gateway GatewayConfig
	Pricing PricingConfig
	Mail    MailConfig

	OrderTokenSecret string
	RedisAddr        string
	ReceiptDedupTTL  time.Duration
	JournalPath      string
	ManualPayMethods []string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	Telemetry TelemetryConfig
}

type GatewayConfig struct {
	StoreID       string
	StorePassword string
	Sandbox       bool
	Timeout       time.Duration
}

type PricingConfig struct {
	Currency       string
	CurrencySymbol string
	FeeRate        decimal.Decimal
	MinCharge      int64
}

type MailConfig struct {
	Host       string
	Port       int
	Secure     bool
	User       string
	Pass       string
	From       string
	OwnerEmail string
	Timeout    time.Duration
}

type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
	Environment string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5173")
	v.SetDefault("BASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SSL_STORE_ID", "")
	v.SetDefault("SSL_STORE_PASSWD", "")
	v.SetDefault("SSL_SANDBOX", false)
	v.SetDefault("GATEWAY_TIMEOUT", "15s")

	v.SetDefault("CURRENCY", "BDT")
	v.SetDefault("CURRENCY_SYMBOL", "৳")
	v.SetDefault("FEE_RATE", "0.02")
	v.SetDefault("MIN_CHARGE_AMOUNT", 10)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_SECURE", false)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("OWNER_EMAIL", "")
	v.SetDefault("MAIL_TIMEOUT", "10s")

	v.SetDefault("ORDER_TOKEN_SECRET", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("RECEIPT_DEDUP_TTL", "72h")
	v.SetDefault("JOURNAL_PATH", "")
	v.SetDefault("MANUAL_PAY_METHODS", "bkash,nagad,rocket")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "subfusion-checkout")
	v.SetDefault("OTEL_RESOURCE_ATTRIBUTES_ENV", "local")
}

// Load reads envFile when it exists, then the process environment.
// An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: stat %s: %w", envFile, err)
		}
	}

	feeRate, err := decimal.NewFromString(strings.TrimSpace(v.GetString("FEE_RATE")))
	if err != nil {
		return nil, fmt.Errorf("config: FEE_RATE %q: %w", v.GetString("FEE_RATE"), err)
	}

	cfg := &Config{
		Port:     strings.TrimSpace(v.GetString("PORT")),
		BaseURL:  strings.TrimRight(strings.TrimSpace(v.GetString("BASE_URL")), "/"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Gateway: GatewayConfig{
			StoreID:       v.GetString("SSL_STORE_ID"),
			StorePassword: v.GetString("SSL_STORE_PASSWD"),
			Sandbox:       v.GetBool("SSL_SANDBOX"),
			Timeout:       v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Pricing: PricingConfig{
			Currency:       v.GetString("CURRENCY"),
			CurrencySymbol: v.GetString("CURRENCY_SYMBOL"),
			FeeRate:        feeRate,
			MinCharge:      v.GetInt64("MIN_CHARGE_AMOUNT"),
		},
		Mail: MailConfig{
			Host:       v.GetString("SMTP_HOST"),
			Port:       v.GetInt("SMTP_PORT"),
			Secure:     v.GetBool("SMTP_SECURE"),
			User:       v.GetString("SMTP_USER"),
			Pass:       v.GetString("SMTP_PASS"),
			From:       v.GetString("MAIL_FROM"),
			OwnerEmail: v.GetString("OWNER_EMAIL"),
			Timeout:    v.GetDuration("MAIL_TIMEOUT"),
		},
		OrderTokenSecret:   v.GetString("ORDER_TOKEN_SECRET"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		ReceiptDedupTTL:    v.GetDuration("RECEIPT_DEDUP_TTL"),
		JournalPath:        v.GetString("JOURNAL_PATH"),
		ManualPayMethods:   splitList(v.GetString("MANUAL_PAY_METHODS")),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitRPS:       v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),
		Telemetry: TelemetryConfig{
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Environment: v.GetString("OTEL_RESOURCE_ATTRIBUTES_ENV"),
		},
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.Mail.From == "" && cfg.Mail.User != "" {
		cfg.Mail.From = fmt.Sprintf("%q <%s>", "SubFusion", cfg.Mail.User)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is empty"))
	}
	if c.Pricing.FeeRate.IsNegative() {
		errs = append(errs, fmt.Errorf("FEE_RATE %s is negative", c.Pricing.FeeRate))
	}
	if c.Pricing.MinCharge < 0 {
		errs = append(errs, fmt.Errorf("MIN_CHARGE_AMOUNT %d is negative", c.Pricing.MinCharge))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if c.Mail.Timeout <= 0 {
		errs = append(errs, errors.New("MAIL_TIMEOUT must be positive"))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// GatewayLive reports whether store credentials are present. Without them
// checkout runs in demo mode.
func (c *Config) GatewayLive() bool {
	return c.Gateway.StoreID != "" && c.Gateway.StorePassword != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
