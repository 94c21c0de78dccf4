package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/marketplace-payments/internal/payment/client"
	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/internal/payment/metrics"
	"github.com/tair/marketplace-payments/pkg/logger"
)

// SweepPendingCommand represents one pass over stale pending intents
type SweepPendingCommand struct {
	OlderThan time.Duration
	Limit     int
}

// SweepResult counts what a sweep did.
type SweepResult struct {
	Checked      int `json:"checked"`
	Resolved     int `json:"resolved"`
	StillPending int `json:"still_pending"`
	Errors       int `json:"errors"`
}

// SweepPendingHandler asks the provider about intents whose callback never
// arrived and resolves them with the callback transition table.
type SweepPendingHandler struct {
	intents    domain.IntentRepository
	vault      CredentialResolver
	gateway    Gateway
	reconciler *ReconcileCallbackHandler
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewSweepPendingHandler creates a new sweep pending handler
func NewSweepPendingHandler(
	intents domain.IntentRepository,
	vault CredentialResolver,
	gateway Gateway,
	reconciler *ReconcileCallbackHandler,
	m *metrics.Metrics,
) *SweepPendingHandler {
	return &SweepPendingHandler{
		intents:    intents,
		vault:      vault,
		gateway:    gateway,
		reconciler: reconciler,
		metrics:    m,
		now:        time.Now,
	}
}

type tenantSession struct {
	creds domain.CredentialSet
	token client.Token
	err   error
}

// Handle executes the sweep pending command. Per-intent failures are counted
// and logged; only a failed lookup aborts the pass.
func (h *SweepPendingHandler) Handle(ctx context.Context, cmd SweepPendingCommand) (*SweepResult, error) {
	if cmd.OlderThan <= 0 {
		return nil, fmt.Errorf("%w: sweep age must be positive", domain.ErrInvalidRequest)
	}
	if cmd.Limit <= 0 {
		cmd.Limit = 50
	}

	stale, err := h.intents.FindStalePending(ctx, h.now().Add(-cmd.OlderThan), cmd.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending intents: %w", err)
	}

	result := &SweepResult{}
	sessions := make(map[string]*tenantSession)

	for i := range stale {
		if ctx.Err() != nil {
			break
		}
		intent := &stale[i]
		result.Checked++

		outcome, err := h.sweepOne(ctx, intent, sessions)
		if err != nil {
			result.Errors++
			h.metrics.Sweep("error")
			logger.Warn(ctx).
				Err(err).
				Str("intent_id", intent.ID).
				Str("tenant_id", intent.TenantID).
				Str("checkout_request_id", intent.CheckoutRequestID).
				Msg("Pending intent could not be checked")
			continue
		}
		h.metrics.Sweep(outcome)
		switch outcome {
		case "resolved":
			result.Resolved++
		case "pending":
			result.StillPending++
		}
	}

	logger.Info(ctx).
		Int("checked", result.Checked).
		Int("resolved", result.Resolved).
		Int("still_pending", result.StillPending).
		Int("errors", result.Errors).
		Msg("Pending intent sweep finished")

	return result, nil
}

func (h *SweepPendingHandler) sweepOne(ctx context.Context, intent *domain.PaymentIntent, sessions map[string]*tenantSession) (string, error) {
	session, ok := sessions[intent.TenantID]
	if !ok {
		session = &tenantSession{}
		session.creds, session.err = h.vault.ResolveCredentials(ctx, intent.TenantID)
		if session.err == nil {
			session.token, session.err = h.gateway.GetAccessToken(ctx, session.creds)
		}
		sessions[intent.TenantID] = session
	}
	if session.err != nil {
		return "", session.err
	}

	status, err := h.gateway.QueryPushPayment(ctx, session.creds, session.token, intent.CheckoutRequestID)
	if err != nil {
		return "", err
	}
	if status.Pending {
		return "pending", nil
	}

	out, err := h.reconciler.Apply(ctx, intent, domain.CallbackResult{
		ResultCode:        status.ResultCode,
		ResultDesc:        status.ResultDesc,
		MerchantRequestID: intent.MerchantRequestID,
		CheckoutRequestID: intent.CheckoutRequestID,
	}, SourceSweep)
	if err != nil {
		return "", err
	}
	if !out.Applied {
		return "already_resolved", nil
	}
	return "resolved", nil
}
