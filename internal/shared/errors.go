package shared

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrUnauthorized        = fmt.Errorf("unauthorized")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrGuestIssue          = fmt.Errorf("guest token issuance failed")
	ErrVerificationExpired = fmt.Errorf("verification expired, request a new code")

	// Transport and API errors
	ErrNetwork            = fmt.Errorf("network error")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrStorage            = fmt.Errorf("storage unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// StatusError is a non-2xx HTTP response from the backend.
type StatusError struct {
	StatusCode int
	Message    string // backend-provided message, may be empty
	Details    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// Unwrap lets callers match a 401 with [errors.Is] against [ErrUnauthorized].
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return ErrAPIRequest
}

// EnvelopeError is a logical failure: HTTP succeeded but the envelope code was not 200.
type EnvelopeError struct {
	Code    int
	Message string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with code %d", e.Code)
	}
	return e.Message
}

func (e *EnvelopeError) Unwrap() error { return ErrAPIRequest }

// APIError is the uniform shape handed to UI-facing state.
type APIError struct {
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`

	cause error
}

func (e *APIError) Error() string { return e.Message }

// Unwrap returns the error that was normalized, so sentinels still match with [errors.Is].
func (e *APIError) Unwrap() error { return e.cause }

// HandleError normalizes any service-layer error into an [APIError].
func HandleError(err error) *APIError {
	if err == nil {
		return nil
	}

	var existing *APIError
	if errors.As(err, &existing) {
		return existing
	}

	apiErr := normalize(err)
	apiErr.cause = err
	return apiErr
}

func normalize(err error) *APIError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fromStatus(statusErr)
	}

	if isNetworkError(err) {
		return &APIError{
			Message: "network connection failed, check your network settings",
			Details: "make sure the device is online and the connection is stable",
		}
	}

	if errors.Is(err, ErrVerificationExpired) {
		return &APIError{Message: ErrVerificationExpired.Error(), Details: "restart the password reset flow"}
	}

	var envErr *EnvelopeError
	if errors.As(err, &envErr) {
		return &APIError{Message: envErr.Error()}
	}

	return &APIError{
		Message: err.Error(),
		Details: "an unknown error occurred, please retry later",
	}
}

func fromStatus(e *StatusError) *APIError {
	switch {
	case e.StatusCode >= 500:
		msg := "the server encountered an error"
		if e.StatusCode == http.StatusServiceUnavailable {
			msg = "the server is temporarily unavailable, it may be under maintenance"
		}
		details := e.Message
		if details == "" {
			details = "please retry later"
		}
		return &APIError{StatusCode: e.StatusCode, Message: msg, Details: details}
	case e.StatusCode == http.StatusUnauthorized:
		return &APIError{StatusCode: e.StatusCode, Message: "session expired or unauthorized", Details: "please log in again"}
	default:
		msg := e.Message
		if msg == "" {
			msg = "the request could not be completed"
		}
		return &APIError{StatusCode: e.StatusCode, Message: msg, Details: e.Details}
	}
}

func isNetworkError(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
