package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeBadPath      = "bad_path"
	ErrCodeUnknownSub   = "unknown_sub"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeSlowConsumer = "slow_consumer"
)

var (
	ErrBadPath    = errors.New("bad path")
	ErrUnknownSub = errors.New("unknown subscription")
	ErrHubStopped = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
