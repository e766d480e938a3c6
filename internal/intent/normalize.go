// internal/intent/normalize.go
package intent

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
)

// NormalizePhone converts a Nigerian phone number to canonical international
// form (234XXXXXXXXXX, 13 digits). Three shapes are accepted: 11 digits with
// a leading 0, 13 digits already starting with 234, or a bare 10-digit
// subscriber number. Everything else is rejected.
func NormalizePhone(text string) (string, *ValidationError) {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()

	switch {
	case len(phone) == 13 && strings.HasPrefix(phone, "234"):
		return phone, nil
	case len(phone) == 11 && strings.HasPrefix(phone, "0"):
		return "234" + phone[1:], nil
	case len(phone) == 10:
		return "234" + phone, nil
	}

	return "", &ValidationError{
		Code:    errors.ErrCodeInvalidPhoneFormat,
		Message: fmt.Sprintf("invalid phone number: %s", text),
	}
}

// NormalizeAmount parses a naira amount, tolerating currency symbols,
// thousands separators and the word "naira", then enforces the supplied
// bounds.
func NormalizeAmount(text string, bounds config.AmountBounds) (int64, *ValidationError) {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.ReplaceAll(cleaned, "₦", "")
	cleaned = strings.ReplaceAll(cleaned, "naira", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	amount, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, &ValidationError{
			Code:    errors.ErrCodeNotNumeric,
			Message: fmt.Sprintf("not a valid amount: %s", text),
		}
	}

	if amount < bounds.Min {
		return 0, &ValidationError{
			Code:    errors.ErrCodeAmountTooLow,
			Message: fmt.Sprintf("amount too low, minimum is ₦%d", bounds.Min),
		}
	}
	if amount > bounds.Max {
		return 0, &ValidationError{
			Code:    errors.ErrCodeAmountTooHigh,
			Message: fmt.Sprintf("amount too high, maximum is ₦%d", bounds.Max),
		}
	}

	return amount, nil
}

// NormalizeDataSize converts a quantity plus unit into MB-equivalent.
// Units are case-insensitive mb/gb, with meg/gig tolerated. Whole
// quantities convert exactly; fractional quantities floor to the
// configured granularity so the user is never vended more than requested.
func NormalizeDataSize(value float64, unit string, granularityMB int) (int, error) {
	if value < 0 {
		return 0, fmt.Errorf("negative data size: %v", value)
	}

	var mb float64
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "gb", "gig", "gigs":
		mb = value * 1024
	case "mb", "meg", "megs":
		mb = value
	default:
		return 0, fmt.Errorf("unsupported data unit: %s", unit)
	}

	if value == math.Trunc(value) {
		return int(mb), nil
	}

	floored := int(mb)
	if granularityMB > 0 {
		floored = (floored / granularityMB) * granularityMB
	}
	return floored, nil
}

// FormatDataSize renders an MB count back to the display form users typed
// ("2.0GB", "500MB").
func FormatDataSize(mb int) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.1fGB", float64(mb)/1024)
	}
	return fmt.Sprintf("%dMB", mb)
}

// NormalizeNetwork checks a candidate against the configured network
// vocabulary. Membership is exact and case-insensitive; misspellings fail
// rather than fuzzy-matching to the nearest name.
func NormalizeNetwork(text string, networks []string) (string, *ValidationError) {
	candidate := strings.ToLower(strings.TrimSpace(text))
	for _, n := range networks {
		if candidate == strings.ToLower(n) {
			return candidate, nil
		}
	}
	return "", &ValidationError{
		Code:    errors.ErrCodeUnknownProvider,
		Message: fmt.Sprintf("unknown network: %s", text),
	}
}

// NormalizeCableProvider checks a candidate against the configured cable TV
// provider vocabulary, same rules as NormalizeNetwork.
func NormalizeCableProvider(text string, providers []string) (string, *ValidationError) {
	candidate := strings.ToLower(strings.TrimSpace(text))
	for _, p := range providers {
		if candidate == strings.ToLower(p) {
			return candidate, nil
		}
	}
	return "", &ValidationError{
		Code:    errors.ErrCodeUnknownProvider,
		Message: fmt.Sprintf("unknown provider: %s", text),
	}
}
