package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "configs/config.yaml"

type Config struct {
	Server struct {
		HTTPAddr    string `yaml:"http_addr"`
		GRPCAddr    string `yaml:"grpc_addr"`
		ServiceName string `yaml:"service_name"`
		Environment string `yaml:"environment"`
		LogLevel    string `yaml:"log_level"`

		// TrustedProxies are IPs or CIDRs whose X-Forwarded-For is honored.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
	DB struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"db"`
	Provider struct {
		BaseURL                string        `yaml:"base_url"`
		TokenTimeout           time.Duration `yaml:"token_timeout"`
		SubmitTimeout          time.Duration `yaml:"submit_timeout"`
		CallbackURL            string        `yaml:"callback_url"`
		CallbackToken          string        `yaml:"callback_token"`
		TransactionType        string        `yaml:"transaction_type"`
		AccountReferencePrefix string        `yaml:"account_reference_prefix"`
		BreakerMaxFailures     int           `yaml:"breaker_max_failures"`
		BreakerResetTimeout    time.Duration `yaml:"breaker_reset_timeout"`
	} `yaml:"provider"`
	Vault struct {
		Secret string `yaml:"secret"`
	} `yaml:"vault"`
	Payments struct {
		PerSellerCredentials bool          `yaml:"per_seller_credentials"`
		PlatformTenantID     string        `yaml:"platform_tenant_id"`
		SweepInterval        time.Duration `yaml:"sweep_interval"`
		SweepAfter           time.Duration `yaml:"sweep_after"`
		SweepBatchSize       int           `yaml:"sweep_batch_size"`
	} `yaml:"payments"`
	Redis struct {
		Addr            string        `yaml:"addr"`
		Password        string        `yaml:"password"`
		DB              int           `yaml:"db"`
		RateLimit       int           `yaml:"rate_limit"`
		RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Tracing struct {
		Enabled        bool   `yaml:"enabled"`
		JaegerEndpoint string `yaml:"jaeger_endpoint"`
	} `yaml:"tracing"`
}

// Load reads the YAML file (CONFIG_PATH or configs/config.yaml), a .env file
// when present, then environment overrides. A missing default file is not an
// error; an explicitly named one is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = defaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when neither file nor env set a value.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.HTTPAddr = ":8083"
	cfg.Server.GRPCAddr = ":9093"
	cfg.Server.ServiceName = "payment-service"
	cfg.Server.Environment = "development"
	cfg.Server.LogLevel = "info"

	cfg.DB.Host = "localhost"
	cfg.DB.Port = "5432"
	cfg.DB.User = "postgres"
	cfg.DB.Password = "postgres"
	cfg.DB.Name = "paymentdb"
	cfg.DB.SSLMode = "disable"

	cfg.Provider.BaseURL = "https://sandbox.safaricom.co.ke"
	cfg.Provider.TokenTimeout = 15 * time.Second
	cfg.Provider.SubmitTimeout = 15 * time.Second
	cfg.Provider.TransactionType = "CustomerPayBillOnline"
	cfg.Provider.AccountReferencePrefix = "Order"
	cfg.Provider.BreakerMaxFailures = 5
	cfg.Provider.BreakerResetTimeout = 30 * time.Second

	cfg.Payments.PlatformTenantID = "platform"
	cfg.Payments.SweepAfter = 10 * time.Minute
	cfg.Payments.SweepBatchSize = 50

	cfg.Redis.RateLimit = 10
	cfg.Redis.RateLimitWindow = time.Minute

	cfg.Kafka.Topic = "payment-resolved"
	cfg.Kafka.GroupID = "paymentctl"
	return cfg
}

func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return errors.New("server.http_addr is required")
	}
	if c.Vault.Secret == "" {
		return errors.New("vault.secret is required")
	}
	if len(c.Vault.Secret) < 16 {
		return errors.New("vault.secret must be at least 16 characters")
	}
	if c.Provider.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if c.Provider.CallbackURL == "" {
		return errors.New("provider.callback_url is required")
	}
	if c.Provider.TokenTimeout <= 0 || c.Provider.SubmitTimeout <= 0 {
		return errors.New("provider timeouts must be positive")
	}
	if c.Payments.PlatformTenantID == "" {
		return errors.New("payments.platform_tenant_id is required")
	}
	return nil
}

// IsDevelopment reports whether the console log writer should be used.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		cfg.Server.GRPCAddr = v
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Server.ServiceName = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = splitCommaList(v)
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.DB.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.DB.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.DB.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DB.Name = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.DB.SSLMode = v
	}
	if v := os.Getenv("MPESA_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("MPESA_TOKEN_TIMEOUT"); v != "" {
		cfg.Provider.TokenTimeout = durationOr(cfg.Provider.TokenTimeout, v)
	}
	if v := os.Getenv("MPESA_SUBMIT_TIMEOUT"); v != "" {
		cfg.Provider.SubmitTimeout = durationOr(cfg.Provider.SubmitTimeout, v)
	}
	if v := os.Getenv("MPESA_CALLBACK_URL"); v != "" {
		cfg.Provider.CallbackURL = v
	}
	if v := os.Getenv("MPESA_CALLBACK_TOKEN"); v != "" {
		cfg.Provider.CallbackToken = v
	}
	if v := os.Getenv("VAULT_SECRET"); v != "" {
		cfg.Vault.Secret = v
	}
	if v := os.Getenv("PAYMENTS_PER_SELLER"); v != "" {
		cfg.Payments.PerSellerCredentials = boolOr(cfg.Payments.PerSellerCredentials, v)
	}
	if v := os.Getenv("PAYMENTS_PLATFORM_TENANT"); v != "" {
		cfg.Payments.PlatformTenantID = v
	}
	if v := os.Getenv("PAYMENTS_SWEEP_INTERVAL"); v != "" {
		cfg.Payments.SweepInterval = durationOr(cfg.Payments.SweepInterval, v)
	}
	if v := os.Getenv("PAYMENTS_SWEEP_AFTER"); v != "" {
		cfg.Payments.SweepAfter = durationOr(cfg.Payments.SweepAfter, v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		cfg.Redis.DB = atoiOr(cfg.Redis.DB, v)
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		cfg.Redis.RateLimit = atoiOr(cfg.Redis.RateLimit, v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitCommaList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = boolOr(cfg.Tracing.Enabled, v)
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Tracing.JaegerEndpoint = v
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func boolOr(fallback bool, v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func durationOr(fallback time.Duration, v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
