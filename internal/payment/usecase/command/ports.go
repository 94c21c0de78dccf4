package command

import (
	"context"

	"github.com/tair/marketplace-payments/internal/payment/client"
	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/kafka"
)

// Gateway is the provider surface used by the payment commands.
type Gateway interface {
	GetAccessToken(ctx context.Context, creds domain.CredentialSet) (client.Token, error)
	SubmitPushPayment(ctx context.Context, creds domain.CredentialSet, token client.Token, req client.PushRequest) (*client.PushAck, error)
	QueryPushPayment(ctx context.Context, creds domain.CredentialSet, token client.Token, checkoutRequestID string) (*client.PushStatus, error)
}

// CredentialResolver returns the active credential set of a tenant.
type CredentialResolver interface {
	ResolveCredentials(ctx context.Context, tenantID string) (domain.CredentialSet, error)
}

// CredentialCodec encrypts and decrypts stored credential rows.
type CredentialCodec interface {
	Open(cred *domain.TenantCredential) (domain.CredentialSet, error)
	Seal(set domain.CredentialSet, cred *domain.TenantCredential) error
}

// EventPublisher announces resolved intents.
type EventPublisher interface {
	PublishPaymentResolved(ctx context.Context, event kafka.PaymentResolvedEvent) error
}

// TenantPolicy decides whose credentials pay for an order.
type TenantPolicy struct {
	PerSeller        bool
	PlatformTenantID string
}

// TenantFor returns the seller when per-seller credentials are enabled and
// the order has one, the platform tenant otherwise.
func (p TenantPolicy) TenantFor(order *domain.Order) string {
	if p.PerSeller && order.SellerID != "" {
		return order.SellerID
	}
	if p.PlatformTenantID == "" {
		return domain.PlatformTenantID
	}
	return p.PlatformTenantID
}
