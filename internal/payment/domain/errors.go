package domain

import (
	"errors"
	"fmt"
)

// Kind classifies payment errors so callers branch without string matching.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindConfiguration       Kind = "configuration"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindProviderRejected    Kind = "provider_rejected"
	KindMalformedCallback   Kind = "malformed_callback"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindUnauthorized        Kind = "unauthorized"
	KindInternal            Kind = "internal"
)

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Kind() Kind    { return e.kind }

func newError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidPhoneNumber  = newError(KindInvalidInput, "invalid phone number")
	ErrInvalidAmount       = newError(KindInvalidInput, "invalid amount")
	ErrInvalidRequest      = newError(KindInvalidInput, "invalid request")
	ErrOrderNotFound       = newError(KindNotFound, "order not found")
	ErrIntentNotFound      = newError(KindNotFound, "payment intent not found")
	ErrCredentialNotFound  = newError(KindNotFound, "payment credentials not found")
	ErrCredentialsNotFound = newError(KindConfiguration, "no payment credentials for tenant")
	ErrCredentialsInactive = newError(KindConfiguration, "payment credentials are inactive")
	ErrProviderUnavailable = newError(KindProviderUnavailable, "payment provider unavailable")
	ErrMalformedCallback   = newError(KindMalformedCallback, "malformed callback")
	ErrPaymentInProgress   = newError(KindConflict, "a payment for this order is still pending")
	ErrOrderAlreadyPaid    = newError(KindConflict, "order is already paid")
	ErrCredentialExists    = newError(KindConflict, "tenant already has active credentials")
	ErrForbidden           = newError(KindUnauthorized, "not allowed to manage this tenant")
	ErrCallbackToken       = newError(KindUnauthorized, "invalid callback token")
)

// ProviderRejectedError carries the provider's own description of a refusal.
type ProviderRejectedError struct {
	Code   string
	Reason string
}

func (e *ProviderRejectedError) Error() string {
	if e.Code == "" {
		return "payment provider rejected request: " + e.Reason
	}
	return fmt.Sprintf("payment provider rejected request (%s): %s", e.Code, e.Reason)
}

func (e *ProviderRejectedError) Kind() Kind { return KindProviderRejected }

// Unavailable wraps a transport failure as ErrProviderUnavailable.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, op, cause)
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// UserMessage renders err as text safe to show to the paying customer.
func UserMessage(err error) string {
	var rejected *ProviderRejectedError
	switch {
	case errors.Is(err, ErrInvalidPhoneNumber):
		return "Invalid phone number. Enter phone as 2547XXXXXXXX"
	case errors.Is(err, ErrInvalidAmount):
		return "Amount must be greater than zero"
	case errors.As(err, &rejected):
		return rejected.Reason
	}

	switch KindOf(err) {
	case KindConfiguration:
		return "Payments are not configured for this seller. Please contact support"
	case KindProviderUnavailable, KindInternal:
		return "Payment could not be started. Please try again or contact support"
	default:
		return err.Error()
	}
}
