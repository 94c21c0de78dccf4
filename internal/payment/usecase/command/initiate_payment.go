package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tair/marketplace-payments/internal/payment/client"
	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/metrics"
	"github.com/tair/marketplace-payments/pkg/logger"
)

// InitiatePaymentCommand represents the command to start a push payment
type InitiatePaymentCommand struct {
	OrderID     string
	PhoneNumber string
	Amount      decimal.Decimal
	BuyerID     string
	SellerID    string
	Items       []domain.OrderItem
}

// InitiatePaymentHandler handles initiate payment command
type InitiatePaymentHandler struct {
	orders  domain.OrderRepository
	intents domain.IntentRepository
	vault   CredentialResolver
	gateway Gateway
	policy  TenantPolicy
	metrics *metrics.Metrics
}

// NewInitiatePaymentHandler creates a new initiate payment handler
func NewInitiatePaymentHandler(
	orders domain.OrderRepository,
	intents domain.IntentRepository,
	vault CredentialResolver,
	gateway Gateway,
	policy TenantPolicy,
	m *metrics.Metrics,
) *InitiatePaymentHandler {
	return &InitiatePaymentHandler{
		orders:  orders,
		intents: intents,
		vault:   vault,
		gateway: gateway,
		policy:  policy,
		metrics: m,
	}
}

// Handle executes the initiate payment command. Nothing is persisted unless
// the provider acknowledged the push; the order claim is released otherwise.
func (h *InitiatePaymentHandler) Handle(ctx context.Context, cmd InitiatePaymentCommand) (intent *domain.PaymentIntent, err error) {
	defer func() {
		if err != nil {
			h.metrics.Initiation(string(domain.KindOf(err)))
			return
		}
		h.metrics.Initiation("accepted")
	}()

	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	if cmd.OrderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", domain.ErrInvalidRequest)
	}
	if _, err := client.NormalizePhoneNumber(cmd.PhoneNumber); err != nil {
		return nil, err
	}
	if _, err := client.NormalizeAmount(cmd.Amount); err != nil {
		return nil, err
	}

	order, isNew, err := h.loadOrder(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, domain.ErrOrderAlreadyPaid
	}
	if order.AwaitingPayment() {
		return nil, domain.ErrPaymentInProgress
	}

	// The claim serializes concurrent attempts on one order before the
	// provider is contacted.
	if err := h.orders.ClaimForPayment(ctx, order, isNew); err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		if releaseErr := h.orders.ReleaseClaim(context.WithoutCancel(ctx), order, isNew); releaseErr != nil {
			logger.Error(ctx).
				Err(releaseErr).
				Str("order_id", order.ID).
				Msg("Failed to release order payment claim")
		}
	}()

	tenantID := h.policy.TenantFor(order)
	creds, err := h.vault.ResolveCredentials(ctx, tenantID)
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Str("order_id", order.ID).
			Str("tenant_id", tenantID).
			Msg("Payment credentials unavailable")
		return nil, err
	}

	token, err := h.gateway.GetAccessToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	ack, err := h.gateway.SubmitPushPayment(ctx, creds, token, client.PushRequest{
		Amount:           cmd.Amount,
		PhoneNumber:      cmd.PhoneNumber,
		AccountReference: order.ID,
		Description:      "Order " + order.ID,
	})
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("order_id", order.ID).
			Str("tenant_id", tenantID).
			Str("kind", string(domain.KindOf(err))).
			Msg("Push payment not started")
		return nil, err
	}

	intent = &domain.PaymentIntent{
		ID:                uuid.New().String(),
		OrderID:           order.ID,
		TenantID:          tenantID,
		CredentialID:      creds.CredentialID,
		MerchantRequestID: ack.MerchantRequestID,
		CheckoutRequestID: ack.CheckoutRequestID,
		Amount:            ack.Amount,
		PhoneNumber:       ack.PhoneNumber,
		Status:            domain.IntentPending,
	}

	if err := h.intents.CreateWithOrder(ctx, intent, order, isNew); err != nil {
		// The provider already holds this transaction; its callback will be unmatched.
		logger.Error(ctx).
			Err(err).
			Str("order_id", order.ID).
			Str("merchant_request_id", ack.MerchantRequestID).
			Str("checkout_request_id", ack.CheckoutRequestID).
			Msg("Acknowledged push payment could not be persisted")
		return nil, fmt.Errorf("failed to persist payment intent: %w", err)
	}

	logger.Info(ctx).
		Str("intent_id", intent.ID).
		Str("order_id", order.ID).
		Str("tenant_id", tenantID).
		Str("checkout_request_id", intent.CheckoutRequestID).
		Str("phone", logger.MaskPhone(intent.PhoneNumber)).
		Int64("amount", intent.Amount).
		Msg("Payment intent created")

	return intent, nil
}

func (h *InitiatePaymentHandler) loadOrder(ctx context.Context, cmd InitiatePaymentCommand) (*domain.Order, bool, error) {
	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err == nil {
		return order, false, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, false, fmt.Errorf("failed to load order: %w", err)
	}

	order = &domain.Order{
		ID:       cmd.OrderID,
		BuyerID:  cmd.BuyerID,
		SellerID: cmd.SellerID,
		Items:    cmd.Items,
	}
	if len(order.Items) > 0 {
		order.ComputeTotals()
	} else {
		order.Subtotal = cmd.Amount
		order.TotalAmount = cmd.Amount
	}
	return order, true, nil
}
