package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

// GetStatusQuery represents the query to get an intent's state by either
// correlation identifier
type GetStatusQuery struct {
	CorrelationID string
}

// StatusView is what a polling client sees.
type StatusView struct {
	State             domain.IntentStatus `json:"state"`
	IntentID          string              `json:"intentId"`
	OrderID           string              `json:"orderId"`
	MerchantRequestID string              `json:"requestId"`
	CheckoutRequestID string              `json:"checkoutId"`
	Amount            int64               `json:"amount"`
	Receipt           string              `json:"receipt,omitempty"`
	FailureReason     string              `json:"failureReason,omitempty"`
	ResultCode        *int                `json:"resultCode,omitempty"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// NewStatusView renders an intent for polling clients.
func NewStatusView(intent *domain.PaymentIntent) *StatusView {
	return &StatusView{
		State:             intent.Status,
		IntentID:          intent.ID,
		OrderID:           intent.OrderID,
		MerchantRequestID: intent.MerchantRequestID,
		CheckoutRequestID: intent.CheckoutRequestID,
		Amount:            intent.Amount,
		Receipt:           intent.ReceiptNumber,
		FailureReason:     intent.FailureReason,
		ResultCode:        intent.ResultCode,
		UpdatedAt:         intent.UpdatedAt,
	}
}

// GetStatusHandler handles get status query
type GetStatusHandler struct {
	intents domain.IntentRepository
}

// NewGetStatusHandler creates a new get status handler
func NewGetStatusHandler(intents domain.IntentRepository) *GetStatusHandler {
	return &GetStatusHandler{intents: intents}
}

// Handle executes the get status query. It always reads storage.
func (h *GetStatusHandler) Handle(ctx context.Context, query GetStatusQuery) (*StatusView, error) {
	id := strings.TrimSpace(query.CorrelationID)
	if id == "" {
		return nil, fmt.Errorf("%w: correlation id is required", domain.ErrInvalidRequest)
	}

	intent, err := h.intents.FindByCorrelationID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewStatusView(intent), nil
}
