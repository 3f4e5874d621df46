package restpipe

import (
	"encoding/json"
	"fmt"
)

// PipelineError is the base error type for all pipeline errors.
type PipelineError struct {
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Structural failures raised before or during transport.

type InvalidRequestError struct{ PipelineError }
type InvalidEndpointError struct{ PipelineError }
type EmptyResponseError struct{ PipelineError }

// Configuration failures raised by the auto-parameter injector. All of
// these surface before any network I/O and are never retried.

type NoAPIKeyError struct{ PipelineError }
type NoAPIKeyQueryKeyError struct{ PipelineError }
type NoVersionError struct{ PipelineError }
type NoBetaVersionError struct{ PipelineError }
type NoBetaHeaderError struct{ PipelineError }

// Transport-stage failures.

type NetworkError struct{ PipelineError }
type NoConnectivityError struct{ PipelineError }
type RequestTimeoutError struct{ PipelineError }
type AbortError struct{ PipelineError }
type StreamError struct{ PipelineError }

// ProviderError represents an error reported by a provider backend,
// either via HTTP status or via an error envelope in a 2xx body.
type ProviderError struct {
	PipelineError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter *float64
	Raw        map[string]interface{}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type BadRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }

// errorFromStatus maps an HTTP status code to the appropriate error type.
func errorFromStatus(statusCode int, message, provider, errorCode string, raw map[string]interface{}, retryAfter *float64) error {
	pe := ProviderError{
		PipelineError: PipelineError{Message: message},
		Provider:      provider,
		StatusCode:    statusCode,
		ErrorCode:     errorCode,
		Raw:           raw,
		RetryAfter:    retryAfter,
	}

	switch statusCode {
	case 400, 409, 422:
		pe.Retryable = false
		return &BadRequestError{ProviderError: pe}
	case 401:
		pe.Retryable = false
		return &AuthenticationError{ProviderError: pe}
	case 403:
		pe.Retryable = false
		return &AccessDeniedError{ProviderError: pe}
	case 404:
		pe.Retryable = false
		return &NotFoundError{ProviderError: pe}
	case 408:
		return &RequestTimeoutError{PipelineError: PipelineError{Message: message}}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		// Unknown statuses default to retryable.
		pe.Retryable = true
		return &pe
	}
}

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *ProviderError:
		return e.Retryable
	case *AuthenticationError, *AccessDeniedError, *NotFoundError, *BadRequestError:
		return false
	case *InvalidRequestError, *InvalidEndpointError:
		return false
	case *NoAPIKeyError, *NoAPIKeyQueryKeyError, *NoVersionError, *NoBetaVersionError, *NoBetaHeaderError:
		return false
	case *AbortError:
		return false
	case *RateLimitError, *ServerError:
		return true
	case *NetworkError, *NoConnectivityError, *StreamError:
		return true
	case *RequestTimeoutError:
		return true
	default:
		return false
	}
}

// errorEnvelope matches the error body shapes the known providers emit.
// OpenAI: {"error": {"message": "...", "type": "...", "code": "..."}}
// Anthropic: {"type": "error", "error": {"type": "...", "message": "..."}}
// Gemini: {"error": {"message": "...", "status": "...", "code": 400}}
type errorEnvelope struct {
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"`
	Status  string      `json:"status"`
}

// extractErrorEnvelope parses a provider error body. Returns the message,
// an error code, the raw decoded body, and whether an envelope was found.
func extractErrorEnvelope(body []byte) (message, code string, raw map[string]interface{}, ok bool) {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return "", "", nil, false
	}
	message = env.Error.Message
	code = env.Error.Type
	if code == "" {
		code = env.Error.Status
	}
	if code == "" {
		if s, isStr := env.Error.Code.(string); isStr {
			code = s
		}
	}
	json.Unmarshal(body, &raw)
	return message, code, raw, message != "" || code != ""
}
