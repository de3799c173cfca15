// Package errors provides standardized error handling for the notification
// delivery pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeEmailNotConfigured ErrorCode = "EMAIL_NOT_CONFIGURED"
	ErrCodeEmailSendFailed    ErrorCode = "EMAIL_SEND_FAILED"

	ErrCodePushNotConfigured ErrorCode = "PUSH_NOT_CONFIGURED"
	ErrCodePushSendFailed    ErrorCode = "PUSH_SEND_FAILED"
	ErrCodePushEndpointGone  ErrorCode = "PUSH_ENDPOINT_GONE"

	ErrCodeRecipientNotFound ErrorCode = "RECIPIENT_NOT_FOUND"

	ErrCodeQueueFetchFailed  ErrorCode = "QUEUE_FETCH_FAILED"
	ErrCodeQueueUpdateFailed ErrorCode = "QUEUE_UPDATE_FAILED"

	ErrCodePreferencesFetchFailed ErrorCode = "PREFERENCES_FETCH_FAILED"
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

// NewEmailNotConfiguredError reports dispatch against an absent email provider.
// Distinguished from a provider-side failure in logs, but retried identically.
func NewEmailNotConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailNotConfigured,
		Message:   "email service not configured",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError creates a retryable provider send error.
func NewEmailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "email provider send failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushNotConfiguredError reports dispatch against an absent push provider.
func NewPushNotConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodePushNotConfigured,
		Message:   "push service not configured",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushSendFailedError creates a transient per-subscription push error. Push
// sends are not retried; the next scheduled notification is the implicit retry.
func NewPushSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePushSendFailed,
		Message:   "push provider send failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushEndpointGoneError reports a permanently invalid push endpoint. The
// subscription row must be deleted, never retried.
func NewPushEndpointGoneError(endpoint string, statusCode int) *StandardError {
	return &StandardError{
		Code:      ErrCodePushEndpointGone,
		Message:   "push endpoint is gone",
		Details:   fmt.Sprintf("endpoint: %s, statusCode: %d", endpoint, statusCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientNotFoundError reports an enqueue for an unknown user. Fails fast
// with no persisted job.
func NewRecipientNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientNotFound,
		Message:   "recipient could not be resolved",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueueFetchFailedError creates a retryable batch fetch error.
func NewQueueFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueFetchFailed,
		Message:   "failed to fetch pending jobs",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueueUpdateFailedError creates a retryable job update error.
func NewQueueUpdateFailedError(jobID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueUpdateFailed,
		Message:   "failed to record job outcome",
		Details:   fmt.Sprintf("jobId: %s, error: %s", jobID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreferencesFetchFailedError creates a retryable preference read error.
func NewPreferencesFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferencesFetchFailed,
		Message:   "failed to read notification preferences",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
