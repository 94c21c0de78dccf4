package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/tair/marketplace-payments/internal/payment/client"
	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/metrics"
	"github.com/tair/marketplace-payments/kafka"
	"github.com/tair/marketplace-payments/pkg/logger"
)

// Sources of a resolution.
const (
	SourceCallback = "callback"
	SourceSweep    = "sweep"
)

// ReconcileCallbackCommand carries one raw provider callback.
type ReconcileCallbackCommand struct {
	Payload    []byte
	RemoteAddr string
}

// ReconcileResult reports how a callback was handled.
type ReconcileResult struct {
	Outcome      domain.CallbackOutcome
	Intent       *domain.PaymentIntent
	OrderUpdated bool
}

// ReconcileCallbackHandler applies provider results to intents and orders.
type ReconcileCallbackHandler struct {
	intents   domain.IntentRepository
	orders    domain.OrderRepository
	logs      domain.CallbackLogRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewReconcileCallbackHandler creates a new reconcile callback handler.
// publisher may be nil.
func NewReconcileCallbackHandler(
	intents domain.IntentRepository,
	orders domain.OrderRepository,
	logs domain.CallbackLogRepository,
	publisher EventPublisher,
	m *metrics.Metrics,
) *ReconcileCallbackHandler {
	return &ReconcileCallbackHandler{
		intents:   intents,
		orders:    orders,
		logs:      logs,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// Handle executes the reconcile callback command. A matched callback returns
// a nil error whether or not it changed anything.
func (h *ReconcileCallbackHandler) Handle(ctx context.Context, cmd ReconcileCallbackCommand) (*ReconcileResult, error) {
	result, err := client.ParseCallback(cmd.Payload)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("remote_addr", cmd.RemoteAddr).
			RawJSON("payload", auditPayload(cmd.Payload)).
			Msg("Malformed payment callback")
		h.audit(ctx, cmd, nil, nil, domain.CallbackMalformed)
		return &ReconcileResult{Outcome: domain.CallbackMalformed}, err
	}

	intent, err := h.findIntent(ctx, result)
	if errors.Is(err, domain.ErrIntentNotFound) {
		logger.Warn(ctx).
			Str("merchant_request_id", result.MerchantRequestID).
			Str("checkout_request_id", result.CheckoutRequestID).
			Int("result_code", result.ResultCode).
			RawJSON("payload", auditPayload(cmd.Payload)).
			Msg("Payment callback matches no order")
		h.audit(ctx, cmd, result, nil, domain.CallbackUnmatched)
		return &ReconcileResult{Outcome: domain.CallbackUnmatched}, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := h.orders.FindByID(ctx, intent.OrderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Warn(ctx).
				Str("intent_id", intent.ID).
				Str("order_id", intent.OrderID).
				RawJSON("payload", auditPayload(cmd.Payload)).
				Msg("Payment callback intent has no order")
			h.audit(ctx, cmd, result, intent, domain.CallbackUnmatched)
			return &ReconcileResult{Outcome: domain.CallbackUnmatched, Intent: intent}, err
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if intent.Status.IsTerminal() {
		logger.Info(ctx).
			Str("intent_id", intent.ID).
			Str("status", string(intent.Status)).
			Msg("Duplicate payment callback ignored")
		h.audit(ctx, cmd, result, intent, domain.CallbackDuplicate)
		return &ReconcileResult{Outcome: domain.CallbackDuplicate, Intent: intent}, nil
	}

	out, err := h.Apply(ctx, intent, *result, SourceCallback)
	if err != nil {
		return nil, err
	}

	outcome := domain.CallbackMatched
	if !out.Applied {
		outcome = domain.CallbackDuplicate
	}
	h.audit(ctx, cmd, result, intent, outcome)
	return &ReconcileResult{Outcome: outcome, Intent: intent, OrderUpdated: out.OrderUpdated}, nil
}

// Unauthorized records a callback rejected for a wrong or missing token.
func (h *ReconcileCallbackHandler) Unauthorized(ctx context.Context, cmd ReconcileCallbackCommand) error {
	logger.Warn(ctx).
		Str("remote_addr", cmd.RemoteAddr).
		RawJSON("payload", auditPayload(cmd.Payload)).
		Msg("Payment callback rejected: bad token")
	h.audit(ctx, cmd, nil, nil, domain.CallbackUnauthorized)
	return domain.ErrCallbackToken
}

// Apply moves a pending intent to the state result asks for and announces it.
// Losing the race to another resolution is not an error.
func (h *ReconcileCallbackHandler) Apply(ctx context.Context, intent *domain.PaymentIntent, result domain.CallbackResult, source string) (domain.ResolveOutcome, error) {
	res := result.Resolution(h.now())
	out, err := h.intents.Resolve(ctx, intent, res)
	if err != nil {
		return out, fmt.Errorf("failed to resolve payment intent: %w", err)
	}
	if !out.Applied {
		logger.Info(ctx).
			Str("intent_id", intent.ID).
			Str("source", source).
			Msg("Payment intent already resolved")
		return out, nil
	}

	level := zerolog.InfoLevel
	if !out.OrderUpdated {
		level = zerolog.WarnLevel
	}
	logger.WithContext(ctx).WithLevel(level).
		Str("intent_id", intent.ID).
		Str("order_id", intent.OrderID).
		Str("status", string(res.Status)).
		Int("result_code", res.ResultCode).
		Bool("order_updated", out.OrderUpdated).
		Str("source", source).
		Msg("Payment intent resolved")

	h.publish(ctx, intent, res, out, source)
	return out, nil
}

func (h *ReconcileCallbackHandler) findIntent(ctx context.Context, result *domain.CallbackResult) (*domain.PaymentIntent, error) {
	for _, id := range []string{result.CheckoutRequestID, result.MerchantRequestID} {
		if id == "" {
			continue
		}
		intent, err := h.intents.FindByCorrelationID(ctx, id)
		if err == nil {
			return intent, nil
		}
		if !errors.Is(err, domain.ErrIntentNotFound) {
			return nil, fmt.Errorf("failed to find payment intent: %w", err)
		}
	}
	return nil, domain.ErrIntentNotFound
}

func (h *ReconcileCallbackHandler) publish(ctx context.Context, intent *domain.PaymentIntent, res domain.Resolution, out domain.ResolveOutcome, source string) {
	if h.publisher == nil {
		return
	}
	event := kafka.PaymentResolvedEvent{
		IntentID:          intent.ID,
		OrderID:           intent.OrderID,
		TenantID:          intent.TenantID,
		MerchantRequestID: intent.MerchantRequestID,
		CheckoutRequestID: intent.CheckoutRequestID,
		Status:            string(res.Status),
		OrderUpdated:      out.OrderUpdated,
		Amount:            intent.Amount,
		ResultCode:        res.ResultCode,
		ResultDesc:        res.ResultDesc,
		ReceiptNumber:     res.ReceiptNumber,
		Source:            source,
	}
	if out.OrderUpdated {
		event.OrderStatus = string(res.OrderStatus())
	}
	if err := h.publisher.PublishPaymentResolved(ctx, event); err != nil {
		logger.Error(ctx).Err(err).Str("intent_id", intent.ID).Msg("Failed to publish payment resolved event")
	}
}

func (h *ReconcileCallbackHandler) audit(ctx context.Context, cmd ReconcileCallbackCommand, result *domain.CallbackResult, intent *domain.PaymentIntent, outcome domain.CallbackOutcome) {
	h.metrics.Callback(string(outcome))
	if h.logs == nil {
		return
	}

	entry := &domain.CallbackLog{
		Outcome:    outcome,
		Source:     SourceCallback,
		RemoteAddr: cmd.RemoteAddr,
		Payload:    datatypes.JSON(auditPayload(cmd.Payload)),
	}
	if result != nil {
		code := result.ResultCode
		entry.ResultCode = &code
		entry.MerchantRequestID = result.MerchantRequestID
		entry.CheckoutRequestID = result.CheckoutRequestID
	}
	if intent != nil {
		entry.IntentID = intent.ID
	}
	if err := h.logs.Create(ctx, entry); err != nil {
		logger.Error(ctx).Err(err).Str("outcome", string(outcome)).Msg("Failed to store callback log")
	}
}

// auditPayload keeps valid JSON as is and stores anything else as a JSON string.
func auditPayload(raw []byte) []byte {
	if len(raw) > 0 && json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
