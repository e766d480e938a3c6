// internal/intent/normalize_test.go
package intent

import (
	"testing"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		errCode  errors.ErrorCode
	}{
		{
			name:     "local format with leading zero",
			input:    "08012345678",
			expected: "2348012345678",
		},
		{
			name:     "already canonical",
			input:    "2348012345678",
			expected: "2348012345678",
		},
		{
			name:     "bare ten digit subscriber number",
			input:    "8012345678",
			expected: "2348012345678",
		},
		{
			name:     "plus prefix and separators stripped",
			input:    "+234 801 234 5678",
			expected: "2348012345678",
		},
		{
			name:    "too short",
			input:   "080123",
			errCode: errors.ErrCodeInvalidPhoneFormat,
		},
		{
			name:    "twelve digits is neither shape",
			input:   "080123456789",
			errCode: errors.ErrCodeInvalidPhoneFormat,
		},
		{
			name:    "empty input",
			input:   "",
			errCode: errors.ErrCodeInvalidPhoneFormat,
		},
		{
			name:    "no digits at all",
			input:   "call me maybe",
			errCode: errors.ErrCodeInvalidPhoneFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, verr := NormalizePhone(tt.input)
			if tt.errCode != "" {
				require.NotNil(t, verr)
				assert.Equal(t, tt.errCode, verr.Code)
				return
			}
			require.Nil(t, verr)
			assert.Equal(t, tt.expected, phone)
			assert.Len(t, phone, 13)
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	first, verr := NormalizePhone("08012345678")
	require.Nil(t, verr)

	second, verr := NormalizePhone(first)
	require.Nil(t, verr)
	assert.Equal(t, first, second)
}

func TestNormalizeAmount(t *testing.T) {
	bounds := config.AmountBounds{Min: 50, Max: 50000}

	tests := []struct {
		name     string
		input    string
		expected int64
		errCode  errors.ErrorCode
	}{
		{name: "plain integer within bounds", input: "1000", expected: 1000},
		{name: "minimum boundary", input: "50", expected: 50},
		{name: "maximum boundary", input: "50000", expected: 50000},
		{name: "thousands separator stripped", input: "1,000", expected: 1000},
		{name: "currency symbol stripped", input: "₦500", expected: 500},
		{name: "naira word stripped", input: "200 naira", expected: 200},
		{name: "below minimum", input: "30", errCode: errors.ErrCodeAmountTooLow},
		{name: "above maximum", input: "60000", errCode: errors.ErrCodeAmountTooHigh},
		{name: "not a number", input: "abc", errCode: errors.ErrCodeNotNumeric},
		{name: "empty string", input: "", errCode: errors.ErrCodeNotNumeric},
		{name: "decimal rejected", input: "10.5", errCode: errors.ErrCodeNotNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, verr := NormalizeAmount(tt.input, bounds)
			if tt.errCode != "" {
				require.NotNil(t, verr)
				assert.Equal(t, tt.errCode, verr.Code)
				return
			}
			require.Nil(t, verr)
			assert.Equal(t, tt.expected, amount)
		})
	}
}

func TestNormalizeDataSize(t *testing.T) {
	tests := []struct {
		name        string
		value       float64
		unit        string
		granularity int
		expected    int
	}{
		{name: "one gb", value: 1, unit: "gb", granularity: 100, expected: 1024},
		{name: "two gb", value: 2, unit: "gb", granularity: 100, expected: 2048},
		{name: "mb passthrough", value: 500, unit: "mb", granularity: 100, expected: 500},
		{name: "uppercase unit", value: 1, unit: "GB", granularity: 100, expected: 1024},
		{name: "gig variant", value: 1, unit: "gig", granularity: 100, expected: 1024},
		{name: "meg variant", value: 250, unit: "meg", granularity: 100, expected: 250},
		{name: "fractional gb floors to granularity", value: 1.5, unit: "gb", granularity: 100, expected: 1500},
		{name: "fractional gb never rounds up", value: 2.75, unit: "gb", granularity: 100, expected: 2800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb, err := NormalizeDataSize(tt.value, tt.unit, tt.granularity)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mb)
		})
	}
}

func TestNormalizeDataSize_UnitEquivalence(t *testing.T) {
	fromGB, err := NormalizeDataSize(1, "gb", 100)
	require.NoError(t, err)

	fromMB, err := NormalizeDataSize(1024, "mb", 100)
	require.NoError(t, err)

	assert.Equal(t, fromGB, fromMB)
}

func TestNormalizeDataSize_UnsupportedUnit(t *testing.T) {
	_, err := NormalizeDataSize(1, "tb", 100)
	assert.Error(t, err)
}

func TestFormatDataSize(t *testing.T) {
	tests := []struct {
		mb       int
		expected string
	}{
		{mb: 2048, expected: "2.0GB"},
		{mb: 1024, expected: "1.0GB"},
		{mb: 1536, expected: "1.5GB"},
		{mb: 500, expected: "500MB"},
		{mb: 100, expected: "100MB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDataSize(tt.mb))
	}
}

func TestNormalizeNetwork(t *testing.T) {
	networks := []string{"mtn", "glo", "airtel", "9mobile"}

	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "exact match", input: "mtn", expected: "mtn"},
		{name: "case insensitive", input: "MTN", expected: "mtn"},
		{name: "whitespace trimmed", input: " glo ", expected: "glo"},
		{name: "nine mobile", input: "9mobile", expected: "9mobile"},
		{name: "misspelling fails loudly", input: "mtnn", wantErr: true},
		{name: "unknown network", input: "vodafone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network, verr := NormalizeNetwork(tt.input, networks)
			if tt.wantErr {
				require.NotNil(t, verr)
				assert.Equal(t, errors.ErrCodeUnknownProvider, verr.Code)
				return
			}
			require.Nil(t, verr)
			assert.Equal(t, tt.expected, network)
		})
	}
}

func TestNormalizeCableProvider(t *testing.T) {
	providers := []string{"dstv", "gotv", "startimes"}

	provider, verr := NormalizeCableProvider("DSTV", providers)
	require.Nil(t, verr)
	assert.Equal(t, "dstv", provider)

	_, verr = NormalizeCableProvider("netflix", providers)
	require.NotNil(t, verr)
	assert.Equal(t, errors.ErrCodeUnknownProvider, verr.Code)
}
