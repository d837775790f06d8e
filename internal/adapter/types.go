// Package adapter implements §4.E's declarative provider adapter engine:
// every OpenAI-wire-compatible provider (one with no official Go SDK in the
// native-SDK tier) is described once as an AIProviderConfig — base URL,
// headers, per-function endpoints, and a canonical-field→provider-field
// ParameterConfig table — instead of a bespoke Go file per provider.
//
// The native-SDK tier (internal/providers/{openai,anthropic,gemini,...})
// is not reimplemented here: a vendor SDK already is a typed parameter
// descriptor, so duplicating it behind a second dynamic table would be
// driftable for no behavioral gain (DESIGN.md Open Question b).
package adapter

import (
	"context"

	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/functions"
)

// ParameterConfig describes how one canonical request field maps onto one
// provider-specific field.
type ParameterConfig struct {
	Param     string
	Required  bool
	Default   any
	Min       *float64
	Max       *float64
	Transform func(requestBody map[string]any) (any, error)
}

// ParamOrFanOut holds either a single ParameterConfig or an array of them,
// for canonical fields that expand into several provider fields (e.g.
// size="1024x768" → width/height).
type ParamOrFanOut struct {
	Single []ParameterConfig
}

// One wraps a single ParameterConfig.
func One(p ParameterConfig) ParamOrFanOut { return ParamOrFanOut{Single: []ParameterConfig{p}} }

// FanOut wraps several ParameterConfig entries driven by the same canonical field.
func FanOut(ps ...ParameterConfig) ParamOrFanOut { return ParamOrFanOut{Single: ps} }

// AIProviderFunctionConfig maps canonical field name → ParamOrFanOut, for
// one FunctionName.
type AIProviderFunctionConfig map[string]ParamOrFanOut

// ResponseTransformKind names one of §4.E's four response-shape strategies.
type ResponseTransformKind int

const (
	// FullResponse re-shapes one complete upstream JSON body into the
	// canonical response body.
	FullResponse ResponseTransformKind = iota
	// StreamChunk re-shapes one upstream SSE chunk into one or more
	// canonical SSE chunks.
	StreamChunk
	// JSONToStream re-emits a non-streaming upstream JSON body as a
	// synthetic SSE stream (used when a function is always-streaming
	// canonically but the provider answers with one JSON document).
	JSONToStream
	// WholeBodyToChunks word-wraps a complete upstream text body into a
	// sequence of canonical chunks (internal/adapter/stream.go).
	WholeBodyToChunks
)

// ResponseTransform pairs a strategy with the function that performs it.
// Fn has one signature for every Kind; its input is interpreted by Kind:
//   - FullResponse/JSONToStream/WholeBodyToChunks: the complete upstream body
//   - StreamChunk: one upstream SSE chunk
// and it returns the canonical output as one or more byte slices.
type ResponseTransform struct {
	Kind ResponseTransformKind
	Fn   func(upstream []byte) ([][]byte, error)
}

// AIProviderConfig is the full declarative description of one
// OpenAI-wire-compatible provider, per §4.E.
type AIProviderConfig struct {
	Name string

	// GetBaseURL returns the provider base URL. May inspect
	// target.CustomHost (Cloudflare Workers AI extracts an account id
	// from it; see cloudflareWorkersAI in openaiwire.go).
	GetBaseURL func(ctx context.Context, target domain.RequestTargetResolved) string

	// Headers returns the HTTP headers for one request, typically
	// Authorization: Bearer <key> plus content-type.
	Headers func(apiKey string) map[string]string

	// GetEndpoint returns the path suffix for fn, or "" if unsupported.
	GetEndpoint func(fn functions.Name) string

	// TransformToFormData marks functions that must be sent multipart
	// (audio transcription/translation, image edit/variation).
	TransformToFormData map[functions.Name]bool

	// IsAPIKeyRequired lets a provider (e.g. a local/self-hosted one)
	// opt out of §4.C's "API key must exist" invariant. Defaults to true
	// when nil.
	IsAPIKeyRequired func() bool

	Functions         map[functions.Name]AIProviderFunctionConfig
	ResponseTransforms map[functions.Name]ResponseTransform

	// Capabilities optionally remaps/drops/range-maps a parameter per
	// model (e.g. max_tokens→max_completion_tokens for certain models).
	Capabilities *ModelCapabilities
}

// RequiresAPIKey reports whether this provider needs an API key present
// after resolution (§4.C).
func (c *AIProviderConfig) RequiresAPIKey() bool {
	if c.IsAPIKeyRequired == nil {
		return true
	}
	return c.IsAPIKeyRequired()
}
