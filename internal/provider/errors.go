package provider

import (
	"errors"
	"fmt"
)

// ContractError means the remote API broke its response schema: a non-list
// where a list was expected, a missing results container, and so on. It is
// never retried and never swallowed, so operators can tell "provider is slow"
// apart from "provider changed its API".
type ContractError struct {
	Source string
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s API contract error: %s", e.Source, e.Detail)
}

// NewContractError builds a ContractError for the given source.
func NewContractError(source, format string, args ...interface{}) *ContractError {
	return &ContractError{Source: source, Detail: fmt.Sprintf(format, args...)}
}

// IsContractError reports whether err is (or wraps) a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// RetryableError marks a transient failure (timeout, rate limit, 5xx) whose
// retry budget has been exhausted for this cycle.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is (or wraps) a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
