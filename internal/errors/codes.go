package errors

import "errors"

const (
	CodeValidation        = "E100"
	CodeDuplicateUser     = "E110"
	CodeSessionConflict   = "E120"
	CodeLoginFailed       = "E121"
	CodeNotAuthenticated  = "E130"
	CodeInsufficientFunds = "E200"
	CodeLimitExceeded     = "E210"
	CodeAlreadyVoted      = "E220"
	CodeNetwork           = "E300"
	CodeStorage           = "E310"
)

// As unwraps err into an *AppError when possible.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}

	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsSessionConflict reports whether err is a session conflict.
func IsSessionConflict(err error) bool {
	return HasCode(err, CodeSessionConflict)
}

// IsAlreadyVoted reports whether err is a duplicate vote rejection.
func IsAlreadyVoted(err error) bool {
	return HasCode(err, CodeAlreadyVoted)
}

// ConflictOwner extracts the competing session owner from a session
// conflict error.
func ConflictOwner(err error) (string, bool) {
	appErr, ok := As(err)
	if !ok || appErr.Code != CodeSessionConflict {
		return "", false
	}

	return appErr.OwnerID, true
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Retryable
}
