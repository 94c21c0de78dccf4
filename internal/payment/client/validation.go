package client

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tair/marketplace-payments/internal/payment/domain"
)

var (
	// Safaricom subscriber numbers: 2547XXXXXXXX or 2541XXXXXXXX.
	canonicalPhone = regexp.MustCompile(`^254(7|1)\d{8}$`)
	localPhone     = regexp.MustCompile(`^0?((7|1)\d{8})$`)
	phoneNoise     = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizePhoneNumber converts 07XXXXXXXX, 7XXXXXXXX, +2547XXXXXXXX and
// 2547XXXXXXXX to the canonical 2547XXXXXXXX form.
func NormalizePhoneNumber(raw string) (string, error) {
	phone := strings.TrimPrefix(phoneNoise.Replace(strings.TrimSpace(raw)), "+")

	if canonicalPhone.MatchString(phone) {
		return phone, nil
	}
	if m := localPhone.FindStringSubmatch(phone); m != nil {
		return "254" + m[1], nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidPhoneNumber, raw)
}

// NormalizeAmount rounds a positive amount up to whole units, never below 1.
func NormalizeAmount(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount.String())
	}
	whole := amount.Ceil()
	if whole.LessThan(decimal.NewFromInt(1)) {
		return 1, nil
	}
	if !whole.IsInteger() || whole.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return 0, fmt.Errorf("%w: %s exceeds limit", domain.ErrInvalidAmount, amount.String())
	}
	return whole.IntPart(), nil
}

// maxAmount is the provider's per-transaction ceiling.
const maxAmount = 250000
