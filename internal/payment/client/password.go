package client

import (
	"encoding/base64"
	"time"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

// Timestamp renders t the way the provider expects it in request envelopes.
func Timestamp(t time.Time) string {
	return t.In(domain.ProviderLocation).Format(domain.ProviderTimeLayout)
}

// Password derives the per-request password from short code, pass-key and
// timestamp. It is recomputed on every call and never stored.
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}
