//go:build wireinject
// +build wireinject

package payment

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/marketplace-payments/internal/config"
	"github.com/tair/marketplace-payments/internal/payment/client"
	"github.com/tair/marketplace-payments/internal/payment/handler"
	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/internal/payment/usecase/query"
	"github.com/tair/marketplace-payments/internal/payment/vault"
)

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideIntentRepository,
	ProvideOrderRepository,
	ProvideCredentialRepository,
	ProvideCallbackLogRepository,
)

var InfrastructureSet = wire.NewSet(
	ProvideCipher,
	vault.New,
	wire.Bind(new(command.CredentialResolver), new(*vault.Vault)),
	wire.Bind(new(command.CredentialCodec), new(*vault.Vault)),
	wire.Bind(new(query.CredentialOpener), new(*vault.Vault)),
	ProvideMetrics,
	ProvideGateway,
	wire.Bind(new(command.Gateway), new(*client.MpesaClient)),
	ProvideTenantPolicy,
	ProvideSweeper,
)

var CommandHandlerSet = wire.NewSet(
	command.NewInitiatePaymentHandler,
	command.NewReconcileCallbackHandler,
	command.NewSweepPendingHandler,
	command.NewCredentialHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetStatusHandler,
	query.NewListOrderIntentsHandler,
	query.NewCredentialQueryHandler,
	query.NewListCallbackLogsHandler,
)

var HTTPSet = wire.NewSet(
	ProvideSigner,
	ProvideTrustedProxies,
	ProvideMiddlewareConfig,
	ProvideRateLimiter,
	ProvideCallbackToken,
	handler.NewPaymentHandler,
)

var AllHandlersSet = wire.NewSet(
	RepositorySet,
	InfrastructureSet,
	CommandHandlerSet,
	QueryHandlerSet,
	HTTPSet,
)

// InitializeService wires the payment service. rdb and publisher may be nil.
func InitializeService(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	publisher command.EventPublisher,
	reg prometheus.Registerer,
) (*Service, error) {
	wire.Build(
		AllHandlersSet,
		NewService,
	)
	return nil, nil
}
