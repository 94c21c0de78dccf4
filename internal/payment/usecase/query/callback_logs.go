package query

import (
	"context"
	"fmt"

	"github.com/tair/marketplace-payments/internal/payment/domain"
	"github.com/tair/marketplace-payments/pkg/auth"
)

// ListCallbackLogsQuery represents the query to read the callback audit trail
type ListCallbackLogsQuery struct {
	Claims        *auth.Claims
	CorrelationID string
}

// ListCallbackLogsHandler handles list callback logs query
type ListCallbackLogsHandler struct {
	logs domain.CallbackLogRepository
}

// NewListCallbackLogsHandler creates a new list callback logs handler
func NewListCallbackLogsHandler(logs domain.CallbackLogRepository) *ListCallbackLogsHandler {
	return &ListCallbackLogsHandler{logs: logs}
}

// Handle executes the list callback logs query. Operators only.
func (h *ListCallbackLogsHandler) Handle(ctx context.Context, query ListCallbackLogsQuery) ([]domain.CallbackLog, error) {
	if query.Claims == nil || !query.Claims.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if query.CorrelationID == "" {
		return nil, fmt.Errorf("%w: correlation id is required", domain.ErrInvalidRequest)
	}

	logs, err := h.logs.FindByCorrelationID(ctx, query.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list callback logs: %w", err)
	}
	return logs, nil
}
