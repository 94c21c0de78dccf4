package domain

import (
	"context"
	"time"
)

// IntentStatus is the lifecycle state of one push-payment attempt.
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentSucceeded IntentStatus = "succeeded"
	IntentFailed    IntentStatus = "failed"
	IntentCancelled IntentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is accepted.
func (s IntentStatus) IsTerminal() bool {
	return s == IntentSucceeded || s == IntentFailed || s == IntentCancelled
}

// PaymentIntent is a single push-payment attempt. Rows are never deleted.
type PaymentIntent struct {
	ID                string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID           string       `json:"order_id" gorm:"not null;index"`
	TenantID          string       `json:"tenant_id" gorm:"not null;index"`
	CredentialID      string       `json:"credential_id" gorm:"type:varchar(36)"`
	MerchantRequestID string       `json:"merchant_request_id" gorm:"not null;uniqueIndex"`
	CheckoutRequestID string       `json:"checkout_request_id" gorm:"not null;uniqueIndex"`
	Amount            int64        `json:"amount" gorm:"not null"`
	PhoneNumber       string       `json:"phone_number" gorm:"not null"`
	Status            IntentStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	ResultCode        *int         `json:"result_code,omitempty"`
	ResultDesc        string       `json:"result_desc,omitempty"`
	FailureReason     string       `json:"failure_reason,omitempty"`
	ReceiptNumber     string       `json:"receipt_number,omitempty"`
	PayerPhone        string       `json:"payer_phone,omitempty"`
	SettledAt         *time.Time   `json:"settled_at,omitempty"`
	ResolvedAt        *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// TableName specifies the table name
func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// Resolution is the terminal outcome applied to a pending intent and its order.
type Resolution struct {
	Status        IntentStatus
	ResultCode    int
	ResultDesc    string
	ReceiptNumber string
	PayerPhone    string
	SettledAt     *time.Time
	ResolvedAt    time.Time
}

// OrderStatus is the order status that accompanies this resolution.
func (r Resolution) OrderStatus() OrderStatus {
	switch r.Status {
	case IntentSucceeded:
		return OrderProcessing
	case IntentCancelled:
		return OrderCancelled
	default:
		return OrderPaymentFailed
	}
}

// PaymentStatus is the embedded order payment status for this resolution.
func (r Resolution) PaymentStatus() PaymentStatus {
	switch r.Status {
	case IntentSucceeded:
		return PaymentSucceeded
	case IntentCancelled:
		return PaymentCancelled
	default:
		return PaymentFailed
	}
}

// FailureReason is empty for successful payments.
func (r Resolution) FailureReason() string {
	if r.Status == IntentSucceeded {
		return ""
	}
	return r.ResultDesc
}

// ResolveOutcome reports what a Resolve call changed.
type ResolveOutcome struct {
	// Applied is false when the intent had already left pending.
	Applied bool
	// OrderUpdated is false when a newer attempt superseded this intent on the order.
	OrderUpdated bool
}

// IntentRepository defines the contract for payment intent data access
type IntentRepository interface {
	FindByID(ctx context.Context, id string) (*PaymentIntent, error)
	// FindByCorrelationID matches id against both provider identifiers.
	FindByCorrelationID(ctx context.Context, id string) (*PaymentIntent, error)
	FindByOrderID(ctx context.Context, orderID string) ([]PaymentIntent, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]PaymentIntent, error)
	// CreateWithOrder persists a new pending intent and links the order to it
	// in one transaction. Line items are inserted when isNew is set.
	CreateWithOrder(ctx context.Context, intent *PaymentIntent, order *Order, isNew bool) error
	// Resolve moves a pending intent to a terminal state with a single
	// conditional update and mirrors it onto the order it still owns.
	Resolve(ctx context.Context, intent *PaymentIntent, res Resolution) (ResolveOutcome, error)
}
