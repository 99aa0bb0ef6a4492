// Package errors provides standardized error handling for the notification
// workflows: scheduling steps propagate errors so the bus substrate can
// retry them, dispatcher rows convert errors into terminal row status.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	ErrCodeEventParseFailed      ErrorCode = "EVENT_PARSE_FAILED"
	ErrCodeEventValidationFailed ErrorCode = "EVENT_VALIDATION_FAILED"

	ErrCodeScheduleFailed       ErrorCode = "SCHEDULE_FAILED"
	ErrCodeCancellationFailed   ErrorCode = "CANCELLATION_FAILED"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeRecipientNotFound      ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrCodePayloadCorrupt         ErrorCode = "PAYLOAD_CORRUPT"
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

// NewEventParseError marks an undecodable bus event. Not retryable: the
// same bytes will fail again, so the consumer rejects without requeue.
func NewEventParseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventParseFailed,
		Message:   "Failed to parse event payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventValidationError marks an event that decoded but violated its
// schema. Also poison, also not retryable.
func NewEventValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventValidationFailed,
		Message:   "Event payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScheduleError marks a failed scheduling step. Retryable: the
// cancel-then-reinsert pattern makes the whole step safe to re-run.
func NewScheduleError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScheduleFailed,
		Message:   "Failed to schedule notifications",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCancellationError marks a failed cancellation sweep. Retryable.
func NewCancellationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCancellationFailed,
		Message:   "Failed to cancel pending notifications",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryError marks a database failure outside the per-row dispatcher
// loop, e.g. the due-rows query itself.
func NewQueryError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendError marks a gateway delivery failure. Per-row it becomes a
// terminal failed status, never a batch abort.
func NewSendError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Delivery gateway rejected the notification",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// IsRetryable reports whether err carries a retryable StandardError.
// Unknown errors default to retryable so the substrate gets a chance.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return true
}

// CodeOf extracts the error code, or empty for foreign errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}
