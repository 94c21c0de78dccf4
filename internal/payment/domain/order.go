package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending       OrderStatus = "Pending"
	OrderProcessing    OrderStatus = "Processing"
	OrderShipped       OrderStatus = "Shipped"
	OrderDelivered     OrderStatus = "Delivered"
	OrderCancelled     OrderStatus = "Cancelled"
	OrderPaymentFailed OrderStatus = "Payment Failed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentSucceeded PaymentStatus = "Succeeded"
	PaymentFailed    PaymentStatus = "Failed"
	PaymentCancelled PaymentStatus = "Cancelled"

	// PaymentInitiating marks an order claimed by an initiation the provider
	// has not acknowledged yet.
	PaymentInitiating PaymentStatus = "Initiating"
)

// ClaimTimeout bounds how long an unacknowledged claim blocks new attempts.
const ClaimTimeout = 2 * time.Minute

// PaymentTypeMpesa is the only payment type this service initiates.
const PaymentTypeMpesa = "mpesa"

// PaymentInfo is embedded in the orders table with a payment_ prefix.
type PaymentInfo struct {
	Type              string        `json:"type" gorm:"type:varchar(32)"`
	Status            PaymentStatus `json:"status" gorm:"type:varchar(16)"`
	IntentID          string        `json:"intent_id,omitempty" gorm:"type:varchar(36)"`
	MerchantRequestID string        `json:"merchant_request_id,omitempty" gorm:"index"`
	CheckoutRequestID string        `json:"checkout_request_id,omitempty" gorm:"index"`
	ReceiptNumber     string        `json:"receipt_number,omitempty"`
}

// Order is a purchase record.
type Order struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	BuyerID     string          `json:"buyer_id" gorm:"index"`
	SellerID    string          `json:"seller_id" gorm:"index"`
	Items       []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2)"`
	ShippingFee decimal.Decimal `json:"shipping_fee" gorm:"type:decimal(12,2)"`
	Discount    decimal.Decimal `json:"discount" gorm:"type:decimal(12,2)"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2)"`
	Status      OrderStatus     `json:"status" gorm:"type:varchar(32);not null;index"`
	PaymentInfo PaymentInfo     `json:"payment_info" gorm:"embedded;embeddedPrefix:payment_"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   string          `json:"order_id" gorm:"not null;index;type:varchar(64)"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// ComputeTotals recalculates subtotal and total from the line items.
func (o *Order) ComputeTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.Subtotal = subtotal
	o.TotalAmount = subtotal.Add(o.ShippingFee).Sub(o.Discount)
}

// IsPaid reports whether a payment on this order already succeeded.
func (o *Order) IsPaid() bool {
	return o.PaymentInfo.Status == PaymentSucceeded
}

// AwaitingPayment reports whether the order's current attempt is unresolved.
func (o *Order) AwaitingPayment() bool {
	if o.PaymentInfo.Status == PaymentInitiating {
		return time.Since(o.UpdatedAt) < ClaimTimeout
	}
	return o.PaymentInfo.IntentID != "" && o.PaymentInfo.Status == PaymentPending
}

// LinkIntent points the order at a freshly acknowledged attempt.
func (o *Order) LinkIntent(intent *PaymentIntent) {
	o.Status = OrderPending
	o.PaymentInfo = PaymentInfo{
		Type:              PaymentTypeMpesa,
		Status:            PaymentPending,
		IntentID:          intent.ID,
		MerchantRequestID: intent.MerchantRequestID,
		CheckoutRequestID: intent.CheckoutRequestID,
	}
}

// OrderRepository defines the contract for order data access
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	// ClaimForPayment atomically marks the order as initiating. It fails with
	// ErrPaymentInProgress or ErrOrderAlreadyPaid when another attempt owns
	// the order. A new order is inserted by the claim.
	ClaimForPayment(ctx context.Context, order *Order, isNew bool) error
	// ReleaseClaim undoes a claim whose attempt was never persisted.
	ReleaseClaim(ctx context.Context, order *Order, isNew bool) error
}
