package payment

import (
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/marketplace-payments/internal/config"
	"github.com/tair/marketplace-payments/internal/payment/client"
	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/handler"
	"github.com/tair/marketplace-payments/internal/payment/metrics"
	"github.com/tair/marketplace-payments/internal/payment/repository"
	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/internal/payment/vault"
	"github.com/tair/marketplace-payments/internal/payment/worker"
	"github.com/tair/marketplace-payments/pkg/auth"
)

// Service is everything the payment binaries run.
type Service struct {
	Handler     *handler.PaymentHandler
	Sweeper     *worker.Sweeper
	Credentials *command.CredentialHandler
}

// NewService bundles the assembled components
func NewService(h *handler.PaymentHandler, sweeper *worker.Sweeper, credentials *command.CredentialHandler) *Service {
	return &Service{Handler: h, Sweeper: sweeper, Credentials: credentials}
}

// ProvideIntentRepository provides the traced intent repository
func ProvideIntentRepository(db *gorm.DB) domain.IntentRepository {
	return repository.NewTracingIntentRepository(repository.NewGormIntentRepository(db))
}

// ProvideOrderRepository provides the order repository
func ProvideOrderRepository(db *gorm.DB) domain.OrderRepository {
	return repository.NewGormOrderRepository(db)
}

// ProvideCredentialRepository provides the traced credential repository
func ProvideCredentialRepository(db *gorm.DB) domain.CredentialRepository {
	return repository.NewTracingCredentialRepository(repository.NewGormCredentialRepository(db))
}

// ProvideCallbackLogRepository provides the callback audit repository
func ProvideCallbackLogRepository(db *gorm.DB) domain.CallbackLogRepository {
	return repository.NewGormCallbackLogRepository(db)
}

func ProvideCipher(cfg *config.Config) (*vault.Cipher, error) {
	return vault.NewCipher(cfg.Vault.Secret)
}

func ProvideMetrics(reg prometheus.Registerer) *metrics.Metrics {
	return metrics.New(reg)
}

// ProvideGateway provides the provider client. Tokens are cached in Redis
// when a client is configured.
func ProvideGateway(cfg *config.Config, rdb *redis.Client, m *metrics.Metrics) *client.MpesaClient {
	opts := []client.Option{
		client.WithMetrics(m),
		client.WithBreakers(client.NewCircuitBreakerManager(cfg.Provider.BreakerMaxFailures, cfg.Provider.BreakerResetTimeout)),
	}
	if rdb != nil {
		opts = append(opts, client.WithTokenCache(client.NewRedisTokenCache(rdb)))
	}
	return client.NewMpesaClient(client.Config{
		BaseURL:                cfg.Provider.BaseURL,
		TokenTimeout:           cfg.Provider.TokenTimeout,
		SubmitTimeout:          cfg.Provider.SubmitTimeout,
		CallbackURL:            CallbackURL(cfg.Provider.CallbackURL, cfg.Provider.CallbackToken),
		TransactionType:        cfg.Provider.TransactionType,
		AccountReferencePrefix: cfg.Provider.AccountReferencePrefix,
	}, opts...)
}

// CallbackURL adds the callback token as the token query parameter.
func CallbackURL(base, token string) string {
	if token == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func ProvideTenantPolicy(cfg *config.Config) command.TenantPolicy {
	return command.TenantPolicy{
		PerSeller:        cfg.Payments.PerSellerCredentials,
		PlatformTenantID: cfg.Payments.PlatformTenantID,
	}
}

func ProvideSigner(cfg *config.Config) *auth.Signer {
	return auth.NewSigner(cfg.Auth.JWTSecret, 0)
}

func ProvideTrustedProxies(cfg *config.Config) (handler.TrustedProxies, error) {
	return handler.ParseTrustedProxies(cfg.Server.TrustedProxies)
}

func ProvideMiddlewareConfig(signer *auth.Signer, m *metrics.Metrics, proxies handler.TrustedProxies) handler.MiddlewareConfig {
	return handler.DefaultMiddlewareConfig(signer, m, proxies)
}

// ProvideRateLimiter provides the initiation rate limiter. Without Redis it
// lets every request through.
func ProvideRateLimiter(cfg *config.Config, rdb *redis.Client, proxies handler.TrustedProxies) *handler.RateLimiter {
	return handler.NewRateLimiter(rdb, cfg.Redis.RateLimit, cfg.Redis.RateLimitWindow, proxies)
}

func ProvideCallbackToken(cfg *config.Config) handler.CallbackToken {
	return handler.CallbackToken(cfg.Provider.CallbackToken)
}

func ProvideSweeper(cfg *config.Config, h *command.SweepPendingHandler) *worker.Sweeper {
	return worker.NewSweeper(h, cfg.Payments.SweepInterval, cfg.Payments.SweepAfter, cfg.Payments.SweepBatchSize)
}
