// Package anthropic implements runtime.LLMProvider against the Anthropic
// Messages API.
package anthropic

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FailoverReason categorizes why a request to Anthropic failed, so callers
// can decide whether to retry without inspecting provider-specific strings.
type FailoverReason string

const (
	FailoverBilling          FailoverReason = "billing"
	FailoverRateLimit        FailoverReason = "rate_limit"
	FailoverAuth             FailoverReason = "auth"
	FailoverTimeout          FailoverReason = "timeout"
	FailoverServerError      FailoverReason = "server_error"
	FailoverInvalidRequest   FailoverReason = "invalid_request"
	FailoverModelUnavailable FailoverReason = "model_unavailable"
	FailoverUnknown          FailoverReason = "unknown"
)

// IsRetryable reports whether a retry of the same request may succeed.
func (r FailoverReason) IsRetryable() bool {
	switch r {
	case FailoverRateLimit, FailoverTimeout, FailoverServerError:
		return true
	default:
		return false
	}
}

// ProviderError is a structured error from the Anthropic API, carrying
// enough context for the runtime's retry loop and logging.
type ProviderError struct {
	Reason    FailoverReason
	Model     string
	Status    int
	Code      string
	Message   string
	RequestID string
	Cause     error
}

func (e *ProviderError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Reason))
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *ProviderError) Unwrap() error { return e.Cause }

func newProviderError(model string, cause error) *ProviderError {
	err := &ProviderError{Model: model, Cause: cause, Reason: FailoverUnknown}
	if cause != nil {
		err.Message = cause.Error()
		err.Reason = classifyError(cause)
	}
	return err
}

func (e *ProviderError) withStatus(status int) *ProviderError {
	e.Status = status
	e.Reason = classifyStatusCode(status)
	return e
}

func (e *ProviderError) withCode(code string) *ProviderError {
	e.Code = code
	if reason := classifyErrorCode(code); reason != FailoverUnknown {
		e.Reason = reason
	}
	return e
}

func (e *ProviderError) withRequestID(id string) *ProviderError {
	e.RequestID = id
	return e
}

func (e *ProviderError) withMessage(msg string) *ProviderError {
	e.Message = msg
	return e
}

func classifyError(err error) FailoverReason {
	if err == nil {
		return FailoverUnknown
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"):
		return FailoverTimeout
	case strings.Contains(s, "rate_limit"), strings.Contains(s, "rate limit"), strings.Contains(s, "429"), strings.Contains(s, "too many requests"):
		return FailoverRateLimit
	case strings.Contains(s, "unauthorized"), strings.Contains(s, "invalid api key"), strings.Contains(s, "401"), strings.Contains(s, "403"):
		return FailoverAuth
	case strings.Contains(s, "billing"), strings.Contains(s, "quota"), strings.Contains(s, "402"):
		return FailoverBilling
	case strings.Contains(s, "model not found"), strings.Contains(s, "does not exist"):
		return FailoverModelUnavailable
	case strings.Contains(s, "internal server"), strings.Contains(s, "500"), strings.Contains(s, "502"), strings.Contains(s, "503"), strings.Contains(s, "504"):
		return FailoverServerError
	default:
		return FailoverUnknown
	}
}

func classifyStatusCode(status int) FailoverReason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailoverAuth
	case status == http.StatusPaymentRequired:
		return FailoverBilling
	case status == http.StatusTooManyRequests:
		return FailoverRateLimit
	case status == http.StatusBadRequest:
		return FailoverInvalidRequest
	case status == http.StatusNotFound:
		return FailoverModelUnavailable
	case status >= 500:
		return FailoverServerError
	default:
		return FailoverUnknown
	}
}

func classifyErrorCode(code string) FailoverReason {
	switch strings.ToLower(code) {
	case "rate_limit_error", "rate_limit_exceeded":
		return FailoverRateLimit
	case "authentication_error", "invalid_api_key":
		return FailoverAuth
	case "billing_error", "insufficient_quota":
		return FailoverBilling
	case "model_not_found", "model_not_available":
		return FailoverModelUnavailable
	case "server_error", "internal_error":
		return FailoverServerError
	case "invalid_request_error":
		return FailoverInvalidRequest
	default:
		return FailoverUnknown
	}
}

func getProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
