package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Provider result codes with a dedicated bucket. Every other code is a failure.
const (
	ResultCodeSuccess   = 0
	ResultCodeCancelled = 1032
)

// TransitionFor maps a provider result code to the target intent status.
func TransitionFor(resultCode int) IntentStatus {
	switch resultCode {
	case ResultCodeSuccess:
		return IntentSucceeded
	case ResultCodeCancelled:
		return IntentCancelled
	default:
		return IntentFailed
	}
}

// MetadataItem is one name/value pair of a successful callback. Values are
// kept as their raw textual form.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value string `json:"Value,omitempty"`
}

// CallbackResult is the normalized form of either callback envelope.
type CallbackResult struct {
	ResultCode        int
	ResultDesc        string
	MerchantRequestID string
	CheckoutRequestID string
	MetadataItems     []MetadataItem
}

// Metadata positions. The provider omits Balance on most responses, which
// shifts the trailing items left by one.
const (
	metaReceiptIndex     = 1
	metaDateIndexFull    = 3
	metaPhoneIndexFull   = 4
	metaDateIndexShort   = 2
	metaPhoneIndexShort  = 3
	metaFullLayoutLength = 5
)

func (c CallbackResult) item(i int) string {
	if i < 0 || i >= len(c.MetadataItems) {
		return ""
	}
	return c.MetadataItems[i].Value
}

// ReceiptNumber returns the provider receipt reference.
func (c CallbackResult) ReceiptNumber() string {
	return c.item(metaReceiptIndex)
}

// TransactionDate returns the raw settlement timestamp (yyyyMMddHHmmss).
func (c CallbackResult) TransactionDate() string {
	if len(c.MetadataItems) >= metaFullLayoutLength {
		return c.item(metaDateIndexFull)
	}
	return c.item(metaDateIndexShort)
}

// PayerPhone returns the phone number the provider confirmed.
func (c CallbackResult) PayerPhone() string {
	if len(c.MetadataItems) >= metaFullLayoutLength {
		return c.item(metaPhoneIndexFull)
	}
	return c.item(metaPhoneIndexShort)
}

// Resolution converts the callback into the transition it requests.
func (c CallbackResult) Resolution(now time.Time) Resolution {
	res := Resolution{
		Status:     TransitionFor(c.ResultCode),
		ResultCode: c.ResultCode,
		ResultDesc: c.ResultDesc,
		ResolvedAt: now,
	}
	if res.Status == IntentSucceeded {
		res.ReceiptNumber = c.ReceiptNumber()
		res.PayerPhone = c.PayerPhone()
		if settled, ok := ParseProviderTime(c.TransactionDate()); ok {
			res.SettledAt = &settled
		}
	}
	return res
}

// ProviderLocation is the provider's wall clock (East Africa Time).
var ProviderLocation = time.FixedZone("EAT", 3*60*60)

// ProviderTimeLayout is the provider's compact timestamp format.
const ProviderTimeLayout = "20060102150405"

func ParseProviderTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(ProviderTimeLayout, v, ProviderLocation)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

type CallbackOutcome string

const (
	CallbackMatched      CallbackOutcome = "matched"
	CallbackDuplicate    CallbackOutcome = "duplicate"
	CallbackUnmatched    CallbackOutcome = "unmatched"
	CallbackMalformed    CallbackOutcome = "malformed"
	CallbackUnauthorized CallbackOutcome = "unauthorized"
)

// CallbackLog is the audit record of every inbound callback.
type CallbackLog struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	MerchantRequestID string          `json:"merchant_request_id" gorm:"index"`
	CheckoutRequestID string          `json:"checkout_request_id" gorm:"index"`
	IntentID          string          `json:"intent_id,omitempty" gorm:"type:varchar(36)"`
	ResultCode        *int            `json:"result_code,omitempty"`
	Outcome           CallbackOutcome `json:"outcome" gorm:"type:varchar(16);not null;index"`
	Source            string          `json:"source" gorm:"type:varchar(16)"`
	RemoteAddr        string          `json:"remote_addr"`
	Payload           datatypes.JSON  `json:"payload"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (CallbackLog) TableName() string {
	return "payment_callback_logs"
}

type CallbackLogRepository interface {
	Create(ctx context.Context, entry *CallbackLog) error
	FindByCorrelationID(ctx context.Context, id string) ([]CallbackLog, error)
}
