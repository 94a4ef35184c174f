// Package errors defines the application error taxonomy shared by the
// session guard, the economy engine and the sync client.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries a machine-readable code alongside the message shown to
// the person using the client. Retryable marks transport-level failures;
// domain rejections are final.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	// OwnerID identifies the holder of the competing session on a
	// session conflict. Empty for every other code.
	OwnerID string
	cause   error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError reports malformed local input. It is raised before any
// network call is attempted.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewDuplicateUserError reports a signup attempt with an already registered
// phone number.
func NewDuplicateUserError(phone string) *AppError {
	return &AppError{
		Code:        CodeDuplicateUser,
		Message:     fmt.Sprintf("phone %s is already registered", phone),
		UserMessage: "An account with this phone number already exists.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewSessionConflictError reports that another session is already active
// for the identity. OwnerID identifies the user whose session holds the
// conflict so the UI can offer to terminate it.
func NewSessionConflictError(ownerID string) *AppError {
	return &AppError{
		Code:        CodeSessionConflict,
		Message:     fmt.Sprintf("session already active for user %s", ownerID),
		UserMessage: "Session already active on another device.",
		Severity:    SeverityMedium,
		Retryable:   false,
		OwnerID:     ownerID,
		cause:       nil,
	}
}

// NewLoginFailedError reports that the retry after a confirmed session
// termination did not succeed. The user is left logged out.
func NewLoginFailedError(cause error) *AppError {
	return &AppError{
		Code:        CodeLoginFailed,
		Message:     "login retry after session termination failed",
		UserMessage: "Login failed. Please try again.",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewNotAuthenticatedError reports a mutating action attempted without an
// active user.
func NewNotAuthenticatedError(action string) *AppError {
	return &AppError{
		Code:        CodeNotAuthenticated,
		Message:     fmt.Sprintf("%s requires an authenticated user", action),
		UserMessage: "Please login first.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewInsufficientFundsError reports a points debit that would go negative.
// A negative balance means the caller does not know the balance, as when
// the authority rejects the debit without reporting it.
func NewInsufficientFundsError(balance, cost int64) *AppError {
	message := fmt.Sprintf("insufficient points: have %d, need %d", balance, cost)
	if balance < 0 {
		message = fmt.Sprintf("insufficient points: need %d", cost)
	}

	return &AppError{
		Code:        CodeInsufficientFunds,
		Message:     message,
		UserMessage: "Not enough points for this action.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewLimitExceededError reports that the daily tap cap has been reached.
// It is distinct from energy exhaustion, which is a validation error.
func NewLimitExceededError(limit int64) *AppError {
	return &AppError{
		Code:        CodeLimitExceeded,
		Message:     fmt.Sprintf("daily tap limit of %d reached", limit),
		UserMessage: "Daily click limit reached for tap to earn.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewAlreadyVotedError reports a duplicate vote for the poll, whether
// caught by the local advisory cache or by the authority.
func NewAlreadyVotedError(pollID string) *AppError {
	return &AppError{
		Code:        CodeAlreadyVoted,
		Message:     fmt.Sprintf("duplicate vote for poll %s", pollID),
		UserMessage: "You have already voted in this poll.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewNetworkError wraps a transport failure talking to the authority.
// Marked retryable for classification; the client performs no automatic
// retry outside the login conflict flow.
func NewNetworkError(operation string, cause error) *AppError {
	return &AppError{
		Code:        CodeNetwork,
		Message:     fmt.Sprintf("authority unreachable during %s", operation),
		UserMessage: "Service temporarily unavailable. Please try again.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewStorageError wraps a failure of the local durable store.
func NewStorageError(operation string, cause error) *AppError {
	return &AppError{
		Code:        CodeStorage,
		Message:     fmt.Sprintf("local store failure during %s", operation),
		UserMessage: "Something went wrong. Please try again.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}
