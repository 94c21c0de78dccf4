package query

import (
	"context"
	"fmt"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

// ListOrderIntentsQuery represents the query to list an order's payment attempts
type ListOrderIntentsQuery struct {
	OrderID string
}

// OrderPaymentsView is an order's current payment state and attempt history.
type OrderPaymentsView struct {
	OrderID       string               `json:"orderId"`
	OrderStatus   domain.OrderStatus   `json:"orderStatus"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Intents       []StatusView         `json:"intents"`
}

// ListOrderIntentsHandler handles list order intents query
type ListOrderIntentsHandler struct {
	orders  domain.OrderRepository
	intents domain.IntentRepository
}

// NewListOrderIntentsHandler creates a new list order intents handler
func NewListOrderIntentsHandler(orders domain.OrderRepository, intents domain.IntentRepository) *ListOrderIntentsHandler {
	return &ListOrderIntentsHandler{orders: orders, intents: intents}
}

// Handle executes the list order intents query
func (h *ListOrderIntentsHandler) Handle(ctx context.Context, query ListOrderIntentsQuery) (*OrderPaymentsView, error) {
	if query.OrderID == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidRequest)
	}

	order, err := h.orders.FindByID(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}

	intents, err := h.intents.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment intents: %w", err)
	}

	view := &OrderPaymentsView{
		OrderID:       order.ID,
		OrderStatus:   order.Status,
		PaymentStatus: order.PaymentInfo.Status,
		Intents:       make([]StatusView, 0, len(intents)),
	}
	for i := range intents {
		view.Intents = append(view.Intents, *NewStatusView(&intents[i]))
	}
	return view, nil
}
