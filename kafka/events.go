package kafka

import "time"

// PaymentResolvedEvent is emitted once per intent when it leaves pending.
type PaymentResolvedEvent struct {
	EventID           string    `json:"event_id"`
	EventType         string    `json:"event_type"`
	IntentID          string    `json:"intent_id"`
	OrderID           string    `json:"order_id"`
	TenantID          string    `json:"tenant_id"`
	MerchantRequestID string    `json:"merchant_request_id"`
	CheckoutRequestID string    `json:"checkout_request_id"`
	Status            string    `json:"status"`
	OrderStatus       string    `json:"order_status,omitempty"`
	OrderUpdated      bool      `json:"order_updated"`
	Amount            int64     `json:"amount"`
	ResultCode        int       `json:"result_code"`
	ResultDesc        string    `json:"result_desc,omitempty"`
	ReceiptNumber     string    `json:"receipt_number,omitempty"`
	Source            string    `json:"source"`
	Timestamp         time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypePaymentResolved = "payment.resolved"
)

// DefaultTopic carries payment.resolved events unless configured otherwise.
const DefaultTopic = "payment-resolved"
