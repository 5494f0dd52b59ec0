// Package llmerrors provides structured error classification for LLM and data-API interactions.
package llmerrors

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors seen around a completion call.
type ErrorType int8

const (
	// ErrorTypeTransport represents an unreachable backend: network failures, timeouts, 5xx.
	ErrorTypeTransport ErrorType = iota
	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit
	// ErrorTypeEmptyResponse represents a successful call that produced no content.
	ErrorTypeEmptyResponse
	// ErrorTypeSchemaValidation represents structured output that failed to parse or validate.
	ErrorTypeSchemaValidation
	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (too long, violates policy).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown represents default for unclassified errors.
	ErrorTypeUnknown
	// ErrorTypeExternalData represents a failed call to the external data API.
	// It is recovered inside responders and never crosses the turn boundary.
	ErrorTypeExternalData
	// ErrorTypeExhausted represents a call that failed on every attempt of its retry budget.
	ErrorTypeExhausted
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransport:
		return "transport"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeSchemaValidation:
		return "schema_validation"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeExternalData:
		return "external_data"
	case ErrorTypeExhausted:
		return "llm_call_exhausted"
	default:
		return "invalid"
	}
}

// Error represents a classified error with retry metadata.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	BodyStub   string    // First portion of the offending output (guards PII)
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
	Attempts   int       // Attempts consumed, set on ErrorTypeExhausted
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return fmt.Sprintf("LLM error (%s): %s: %v", e.Type.String(), e.Message, e.Err)
		}
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether another attempt could succeed.
// Exhaustion is terminal; everything else is worth another full attempt.
func (e *Error) IsRetryable() bool {
	return e.Type != ErrorTypeExhausted
}

// Is checks if an error is of a specific type.
// For wrapped chains the outermost classified error wins.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithStatus creates a new classified error with HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewErrorWithCause creates a new classified error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// NewSchemaError reports structured output that could not be parsed or validated.
// output is stubbed so that full model replies never land in logs.
func NewSchemaError(cause error, output string) *Error {
	return &Error{
		Type:     ErrorTypeSchemaValidation,
		Err:      cause,
		Message:  "structured output rejected",
		BodyStub: SanitizePrompt(output, 200),
	}
}

// NewExhaustedError wraps the last failure after the retry budget is spent.
func NewExhaustedError(cause error, attempts int) *Error {
	return &Error{
		Type:     ErrorTypeExhausted,
		Err:      cause,
		Attempts: attempts,
		Message:  fmt.Sprintf("LLM call failed after %d attempts", attempts),
	}
}

// IsExhausted checks if the error is a terminal retry exhaustion.
func IsExhausted(err error) bool {
	return Is(err, ErrorTypeExhausted)
}

// LastCause returns the error that ended an exhausted call, or err itself.
func LastCause(err error) error {
	var llmErr *Error
	if errors.As(err, &llmErr) && llmErr.Type == ErrorTypeExhausted && llmErr.Err != nil {
		return llmErr.Err
	}
	return err
}

// TypeForStatus maps an HTTP status code to an error type. ok is false for non-error codes.
func TypeForStatus(status int) (ErrorType, bool) {
	switch {
	case status >= 200 && status < 300:
		return ErrorTypeUnknown, false
	case status == 401 || status == 403:
		return ErrorTypeAuth, true
	case status == 429:
		return ErrorTypeRateLimit, true
	case status == 408 || status >= 500:
		return ErrorTypeTransport, true
	case status >= 400:
		return ErrorTypeBadPrompt, true
	default:
		return ErrorTypeUnknown, true
	}
}

// Classify maps an arbitrary provider SDK error to a classified error.
// Already-classified errors are returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTransport, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(ErrorTypeTransport, err, "request canceled")
	}

	errStr := err.Error()
	if status := ExtractStatusCode(errStr); status != 0 {
		if t, isErr := TypeForStatus(status); isErr {
			e := NewErrorWithCause(t, err, fmt.Sprintf("provider returned HTTP %d", status))
			e.StatusCode = status
			return e
		}
	}

	lower := strings.ToLower(errStr)
	switch {
	case containsAny(lower, "timeout", "connection", "network", "temporary", "eof", "reset", "no such host"):
		return NewErrorWithCause(ErrorTypeTransport, err, "network or connection error")
	case containsAny(lower, "rate", "quota", "resource exhausted"):
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	case containsAny(lower, "unauthorized", "api key", "permission denied", "authentication"):
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication error")
	case containsAny(lower, "invalid", "malformed", "too large", "too long"):
		return NewErrorWithCause(ErrorTypeBadPrompt, err, "prompt or request error")
	default:
		return NewErrorWithCause(ErrorTypeUnknown, err, "unclassified error")
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ExtractStatusCode attempts to extract an HTTP status code from an SDK error string.
func ExtractStatusCode(errStr string) int {
	lower := strings.ToLower(errStr)
	for _, pattern := range []string{"status code: ", "status: ", "http ", "code "} {
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		if start+3 > len(errStr) {
			continue
		}
		code := 0
		for _, r := range errStr[start : start+3] {
			if r < '0' || r > '9' {
				code = 0
				break
			}
			code = code*10 + int(r-'0')
		}
		if code >= 100 && code <= 599 {
			return code
		}
	}
	return 0
}

// SanitizePrompt creates a safe representation of a prompt for logging.
// For large prompts, it returns first/last portions plus a hash of the full content.
func SanitizePrompt(prompt string, maxChars int) string {
	if len(prompt) <= maxChars {
		return prompt
	}

	halfMax := maxChars / 2
	if halfMax < 100 {
		halfMax = 100
	}
	if 2*halfMax >= len(prompt) {
		return prompt
	}

	first := prompt[:halfMax]
	last := prompt[len(prompt)-halfMax:]

	hash := sha256.Sum256([]byte(prompt))
	hashStr := fmt.Sprintf("%x", hash)[:16]

	return fmt.Sprintf("%s...[%d chars, hash:%s]...%s",
		first, len(prompt), hashStr, last)
}
