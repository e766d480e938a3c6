// Package errors provides standardized error handling for the bot service.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// User-input validation codes. These travel as data on a parsed command,
// never as Go errors crossing the classifier boundary.
const (
	ErrCodeAmountTooLow       ErrorCode = "AMOUNT_TOO_LOW"
	ErrCodeAmountTooHigh      ErrorCode = "AMOUNT_TOO_HIGH"
	ErrCodeNotNumeric         ErrorCode = "NOT_NUMERIC"
	ErrCodeInvalidPhoneFormat ErrorCode = "INVALID_PHONE_FORMAT"
	ErrCodeUnknownProvider    ErrorCode = "UNKNOWN_PROVIDER"
	ErrCodeMissingParameter   ErrorCode = "MISSING_REQUIRED_PARAMETER"
)

// Infrastructure / business error codes.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeUserNotFound             ErrorCode = "USER_NOT_FOUND"
	ErrCodeTransactionNotFound      ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeInsufficientBalance      ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeDuplicateReference       ErrorCode = "DUPLICATE_REFERENCE"

	ErrCodeVendingFailed       ErrorCode = "VENDING_FAILED"
	ErrCodeVendingTimeout      ErrorCode = "VENDING_TIMEOUT"
	ErrCodePaymentFailed       ErrorCode = "PAYMENT_FAILED"
	ErrCodePaymentVerifyFailed ErrorCode = "PAYMENT_VERIFY_FAILED"

	ErrCodeWhatsAppSendFailed ErrorCode = "WHATSAPP_SEND_FAILED"
	ErrCodeWebhookRejected    ErrorCode = "WEBHOOK_REJECTED"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateValidationFailed ErrorCode = "TEMPLATE_VALIDATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuditIndexFailed       ErrorCode = "AUDIT_INDEX_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUserNotFoundError creates a non-retryable lookup error.
func NewUserNotFoundError(phone string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserNotFound,
		Message:   "User not found",
		Details:   fmt.Sprintf("phone: %s", phone),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransactionNotFoundError creates a non-retryable lookup error.
func NewTransactionNotFoundError(reference string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransactionNotFound,
		Message:   "Transaction not found",
		Details:   fmt.Sprintf("reference: %s", reference),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInsufficientBalanceError creates a non-retryable wallet error.
func NewInsufficientBalanceError(available, required int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeInsufficientBalance,
		Message:   "Insufficient wallet balance",
		Details:   fmt.Sprintf("available: %d, required: %d", available, required),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewVendingFailedError creates a retryable vending provider error.
func NewVendingFailedError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVendingFailed,
		Message:   fmt.Sprintf("Vending provider error on %s", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewVendingTimeoutError creates a retryable vending timeout error.
func NewVendingTimeoutError(service string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVendingTimeout,
		Message:   fmt.Sprintf("Vending provider timeout on %s", service),
		Details:   "call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPaymentFailedError creates a retryable payment gateway error.
func NewPaymentFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePaymentFailed,
		Message:   "Payment gateway error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPaymentVerifyFailedError creates a non-retryable verification error.
func NewPaymentVerifyFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePaymentVerifyFailed,
		Message:   "Payment verification failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWhatsAppSendFailedError creates a retryable message delivery error.
func NewWhatsAppSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWhatsAppSendFailed,
		Message:   "WhatsApp message delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookRejectedError creates a non-retryable webhook verification error.
func NewWebhookRejectedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookRejected,
		Message:   "Webhook rejected",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates a non-retryable rate limit error.
func NewRateLimitedError(phone string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many messages",
		Details:   fmt.Sprintf("phone: %s", phone),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Reply template not found in registry",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateValidationFailedError creates a non-retryable template validation error.
func NewTemplateValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateValidationFailed,
		Message:   "Data validation failed for reply template",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for downstream effects.
// User-input validation codes never retry: the user is asked to correct.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeVendingFailed,
		ErrCodePaymentFailed,
		ErrCodeWhatsAppSendFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeVendingTimeout,
		ErrCodeAuditIndexFailed:
		return 2

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsValidationCode reports whether the code belongs to the user-input
// validation family (data on a parsed command, not a fault).
func IsValidationCode(code ErrorCode) bool {
	switch code {
	case ErrCodeAmountTooLow, ErrCodeAmountTooHigh, ErrCodeNotNumeric,
		ErrCodeInvalidPhoneFormat, ErrCodeUnknownProvider, ErrCodeMissingParameter:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case IsValidationCode(code):
		return "VALIDATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "VENDING"):
		return "VENDING"
	case strings.Contains(codeStr, "PAYMENT"):
		return "PAYMENT"
	case strings.Contains(codeStr, "WHATSAPP") || strings.Contains(codeStr, "WEBHOOK"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
