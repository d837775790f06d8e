// Package apierr provides structured API error types and HTTP status mapping
// compatible with the OpenAI error format.
package apierr

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// ErrorType constants.
const (
	TypeProviderError     = "provider_error"
	TypeRateLimitError    = "rate_limit_error"
	TypeInvalidRequest    = "invalid_request_error"
	TypeAuthenticationErr = "authentication_error"
	TypeServerError       = "server_error"
	TypeNotFoundError     = "not_found_error"
	TypeShapeError        = "shape_error"
	TypePermissionError   = "permission_error"
)

// Code constants.
const (
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeInvalidAPIKey     = "invalid_api_key"
	CodeInternalError     = "internal_error"
	CodeProviderError     = "provider_error"
	CodeRequestTimeout    = "request_timeout"
	CodeNotImplemented    = "not_implemented"
	CodeInvalidRequest    = "invalid_request"

	// Data-model lookup failures (§4.C, §7) — each maps to HTTP 422 except
	// AgentNotFound/SkillNotFound which map to 404 per §7's ClientError list.
	CodeAgentNotFound               = "agent_not_found"
	CodeSkillNotFound               = "skill_not_found"
	CodeConfigurationNotFound       = "configuration_not_found"
	CodeConfigurationVersionNotFound = "configuration_version_not_found"
	CodeModelNotFound               = "model_not_found"
	CodeAPIKeyMissing               = "api_key_missing"
	CodeDecryptionFailed             = "decryption_failed"
	CodeHookDenied                   = "hook_denied"
	CodeUnknownEndpoint               = "unknown_endpoint"
	CodeShapeError                    = "shape_error"
	CodeUnauthenticated               = "unauthenticated"
)

// APIError is the structured error returned to clients.
type (
	APIError struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
		Param   string `json:"param,omitempty"`
	}
	envelope struct {
		Error    APIError `json:"error"`
		Provider string   `json:"provider,omitempty"`
	}
)

// Write writes the error as JSON to the fasthttp response with the given HTTP status.
func Write(ctx *fasthttp.RequestCtx, status int, message, errType, code string) {
	WriteProvider(ctx, status, "", message, errType, code)
}

// WriteProvider writes the error as JSON, additionally tagging it with the
// upstream provider per §6's error envelope `{"error": {...}, "provider": "..."}`.
func WriteProvider(ctx *fasthttp.RequestCtx, status int, provider, message, errType, code string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(envelope{
		Error: APIError{
			Message: message,
			Type:    errType,
			Code:    code,
		},
		Provider: provider,
	})
	ctx.SetBody(body)
}

// WriteNotFound writes a 404 for a missing Agent/Skill/classifier route.
func WriteNotFound(ctx *fasthttp.RequestCtx, message, code string) {
	Write(ctx, fasthttp.StatusNotFound, message, TypeNotFoundError, code)
}

// WriteUnprocessable writes a 422 for a configuration/version/model/key
// resolution failure (§4.C, §7).
func WriteUnprocessable(ctx *fasthttp.RequestCtx, message, code string) {
	Write(ctx, fasthttp.StatusUnprocessableEntity, message, TypeInvalidRequest, code)
}

// WriteDecryptionFailed writes the 500 a provider API key decryption
// failure produces per §4.C.
func WriteDecryptionFailed(ctx *fasthttp.RequestCtx, message string) {
	Write(ctx, fasthttp.StatusInternalServerError, message, TypeServerError, CodeDecryptionFailed)
}

// WriteUnauthorized writes the 401 a failed §4.B stage 1 authentication
// check produces.
func WriteUnauthorized(ctx *fasthttp.RequestCtx, message string) {
	Write(ctx, fasthttp.StatusUnauthorized, message, TypeAuthenticationErr, CodeUnauthenticated)
}

// WriteHookDenied writes the 403 an input hook's deny_request=true produces.
func WriteHookDenied(ctx *fasthttp.RequestCtx, message string) {
	Write(ctx, fasthttp.StatusForbidden, message, TypePermissionError, CodeHookDenied)
}

// WriteShapeError writes the 502 a §7 ShapeError (upstream 200 with an
// unexpected body shape) produces, tagged with the offending provider.
func WriteShapeError(ctx *fasthttp.RequestCtx, provider, message string) {
	WriteProvider(ctx, fasthttp.StatusBadGateway, provider, message, TypeShapeError, CodeShapeError)
}

// WriteProviderError maps a provider HTTP status to the appropriate gateway status.
//
//	Provider 429  → 429 + Retry-After: 60
//	Provider 5xx  → 502
//	Default       → 502
//
// Timeouts are not mapped here; WriteTimeout writes the 504.
func WriteProviderError(ctx *fasthttp.RequestCtx, providerStatus int, msg string) {
	switch {
	case providerStatus == fasthttp.StatusTooManyRequests:
		ctx.Response.Header.Set("Retry-After", "60")
		Write(ctx, fasthttp.StatusTooManyRequests, msg, TypeRateLimitError, CodeRateLimitExceeded)
	case providerStatus >= 500 && providerStatus < 600:
		Write(ctx, fasthttp.StatusBadGateway, msg, TypeProviderError, CodeProviderError)
	default:
		Write(ctx, fasthttp.StatusBadGateway, msg, TypeProviderError, CodeProviderError)
	}
}

// WriteTimeout writes a 504 timeout error.
func WriteTimeout(ctx *fasthttp.RequestCtx) {
	Write(ctx, fasthttp.StatusGatewayTimeout, "provider request timed out", TypeProviderError, CodeRequestTimeout)
}

// WriteRateLimit writes a 429 rate limit error.
func WriteRateLimit(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Retry-After", "60")
	Write(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded", TypeRateLimitError, CodeRateLimitExceeded)
}
