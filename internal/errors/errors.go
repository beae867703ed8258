package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kind classifies an AppError for the dialogue engine.
type Kind string

const (
	KindInput               Kind = "input"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindSessionCorruption   Kind = "session_corruption"
	KindInternal            Kind = "internal"
)

type AppError struct {
	Code        string
	Kind        Kind
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
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

// NewInputError reports text that could not be parsed into the expected slot.
func NewInputError(msg, userMessage string) *AppError {
	if userMessage == "" {
		userMessage = fmt.Sprintf("Invalid input. %s", msg)
	}

	return &AppError{
		Code:        "E100",
		Kind:        KindInput,
		Message:     msg,
		UserMessage: userMessage,
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Kind:        KindInternal,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewUpstreamUnavailableError wraps a failed price or recipient lookup.
func NewUpstreamUnavailableError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Kind:        KindUpstreamUnavailable,
		Message:     fmt.Sprintf("Upstream unavailable: %s", apiName),
		UserMessage: "The service is temporarily unavailable. Please try again.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewSessionCorruptionError flags a state/slot combination the engine cannot continue from.
func NewSessionCorruptionError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Kind:        KindSessionCorruption,
		Message:     msg,
		UserMessage: "Something went wrong with this conversation, so it was reset. Please start again.",
		Severity:    SeverityHigh,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Kind:        KindRateLimited,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Please try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// KindOf returns the Kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}

	return KindInternal
}

// UserMessageOf returns the user-facing text carried by err, or fallback.
func UserMessageOf(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil && appErr.UserMessage != "" {
		return appErr.UserMessage
	}

	return fallback
}
