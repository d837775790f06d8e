// Package domain holds the canonical entity types shared by the storage,
// resolver, hook, and proxy layers: Agent/Skill/SkillConfiguration/Model/
// AIProviderAPIKey/RequestConfig/Hook/Log and friends.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Agent owns zero or more Skills. Agent.Name is unique per owner.
type Agent struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Skill is a named capability owned by an Agent. Skill.Name is unique per Agent.
type Skill struct {
	ID               uuid.UUID         `json:"id"`
	AgentID          uuid.UUID         `json:"agent_id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	MaxConfigurations int              `json:"max_configurations"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CurrentVersionKey is the reserved versionKey denoting the live version of
// a SkillConfiguration.
const CurrentVersionKey = "current"

// SkillConfigVersion is a named snapshot of a skill's prompt/parameters.
type SkillConfigVersion struct {
	Params SkillConfigParams `json:"params"`
}

// SkillConfigParams holds the per-version model invocation parameters.
// SystemPrompt may contain {{variable}} placeholders rendered at dispatch
// time by internal/template.
type SkillConfigParams struct {
	ModelID          uuid.UUID      `json:"model_id"`
	SystemPrompt     string         `json:"system_prompt,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Seed             *int           `json:"seed,omitempty"`
	AdditionalParams map[string]any `json:"additional_params,omitempty"`
}

// SkillConfiguration is a named, versioned bundle of SkillConfigVersions.
type SkillConfiguration struct {
	ID        uuid.UUID                     `json:"id"`
	SkillID   uuid.UUID                     `json:"skill_id"`
	Name      string                        `json:"name"`
	Data      map[string]SkillConfigVersion `json:"data"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// Current returns the "current" version, or false if unset.
func (c *SkillConfiguration) Current() (SkillConfigVersion, bool) {
	v, ok := c.Data[CurrentVersionKey]
	return v, ok
}

// ModelType enumerates the two kinds of model a Model record can describe.
type ModelType string

const (
	ModelTypeText  ModelType = "text"
	ModelTypeEmbed ModelType = "embed"
)

// Model maps a stored model name to the provider API key used to call it.
type Model struct {
	ID                  uuid.UUID `json:"id"`
	AIProviderAPIKeyID  uuid.UUID `json:"ai_provider_api_key_id"`
	ModelName           string    `json:"model_name"`
	ModelType           ModelType `json:"model_type"`
	EmbeddingDimensions *int      `json:"embedding_dimensions,omitempty"`
}

// AIProviderAPIKey is a stored, encrypted-at-rest provider credential.
// APIKey holds ciphertext; decrypt with internal/cryptoutil before use.
type AIProviderAPIKey struct {
	ID           uuid.UUID      `json:"id"`
	AIProvider   string         `json:"ai_provider"`
	APIKey       string         `json:"api_key"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// RequestTargetPreProcessed is one client-supplied target, before resolution.
// Exactly one of ConfigurationName or Provider must be set.
type RequestTargetPreProcessed struct {
	ConfigurationName     string            `json:"configuration_name,omitempty"`
	ConfigurationVersion  string            `json:"configuration_version,omitempty"`
	Provider              string            `json:"provider,omitempty"`
	Model                 string            `json:"model,omitempty"`
	APIKey                string            `json:"api_key,omitempty"`
	SystemPromptVariables map[string]string `json:"system_prompt_variables,omitempty"`
	CustomHost            string            `json:"custom_host,omitempty"`
	AzureAIFoundryURL     string            `json:"azure_ai_foundry_url,omitempty"`
}

// Validate enforces the "exactly one of configuration_name or provider" rule.
func (t RequestTargetPreProcessed) Validate() error {
	hasConfig := t.ConfigurationName != ""
	hasProvider := t.Provider != ""
	if hasConfig == hasProvider {
		return errTargetShape
	}
	if hasProvider && t.Model == "" {
		return errTargetModelRequired
	}
	return nil
}

// ResolvedConfiguration is the fully resolved model invocation config for one target.
type ResolvedConfiguration struct {
	AIProvider       string
	Model            string
	SystemPrompt     string
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string
	Seed             *int
	AdditionalParams map[string]any
}

// RequestTargetResolved is a target after §4.C resolution has run.
type RequestTargetResolved struct {
	Configuration ResolvedConfiguration
	APIKey        string
	CustomHost    string
	Weight        float64
	CacheMode     CacheMode
	Retry         RetryPolicy
}

// RetryPolicy bounds per-attempt retry behaviour for one dispatch.
type RetryPolicy struct {
	MaxAttempts int
}

// CacheMode mirrors Hook.CacheMode, reused at the target level for the
// request-cache decision in §4.F.
type CacheMode string

const (
	CacheModeDisabled CacheMode = "disabled"
	CacheModeSimple   CacheMode = "simple"
	CacheModeSemantic CacheMode = "semantic"
)

// HookType distinguishes pre- and post-dispatch hooks.
type HookType string

const (
	HookTypeInput  HookType = "input"
	HookTypeOutput HookType = "output"
)

// HookProvider is the execution mechanism for a Hook.
type HookProvider string

const (
	HookProviderHTTP HookProvider = "http"
	HookProviderLLM  HookProvider = "llm"
)

// Hook is a pluggable pre/post dispatch step.
type Hook struct {
	ID        uuid.UUID      `json:"id"`
	Type      HookType       `json:"type"`
	Provider  HookProvider   `json:"hook_provider"`
	Config    map[string]any `json:"config,omitempty"`
	Await     bool           `json:"await"`
	CacheMode CacheMode      `json:"cache_mode"`
}

// HookResult is the structured outcome of running one Hook.
type HookResult struct {
	DenyRequest          bool            `json:"deny_request"`
	RequestBodyOverride  []byte          `json:"request_body_override,omitempty"`
	ResponseBodyOverride []byte          `json:"response_body_override,omitempty"`
	Skipped              bool            `json:"skipped"`
}

// HookLog records the outcome of one executed hook, in input order.
type HookLog struct {
	HookID    uuid.UUID  `json:"hook_id"`
	Type      HookType   `json:"type"`
	Result    HookResult `json:"result"`
	Error     string     `json:"error,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
}

// Duration returns EndTime - StartTime, matching the invariant
// hook_logs[i].duration = end_time - start_time.
func (h HookLog) Duration() time.Duration {
	return h.EndTime.Sub(h.StartTime)
}

// RequestConfig is the parsed, pre-resolution per-request configuration
// header (x-idk-config / ra-config).
type RequestConfig struct {
	AgentName        string                       `json:"agent_name"`
	SkillName        string                       `json:"skill_name"`
	Targets          []RequestTargetPreProcessed  `json:"targets"`
	Hooks            []Hook                       `json:"hooks,omitempty"`
	TraceID          string                       `json:"trace_id,omitempty"`
	ForceRefresh     bool                         `json:"force_refresh,omitempty"`
	ForceHookRefresh bool                         `json:"force_hook_refresh,omitempty"`
}

// CacheStatus is the outcome of a cache lookup/write, per §4.F.
type CacheStatus string

const (
	CacheStatusHit      CacheStatus = "HIT"
	CacheStatusMiss     CacheStatus = "MISS"
	CacheStatusRefresh  CacheStatus = "REFRESH"
	CacheStatusDisabled CacheStatus = "DISABLED"
)

// LogStatusCancelled is a non-HTTP-status terminal state a Log can carry.
const LogStatusCancelled = -1

// AIProviderRequestLog is the sub-record describing the outbound call made
// to the upstream provider for one Log entry.
type AIProviderRequestLog struct {
	Provider    string `json:"ai_provider"`
	Model       string `json:"model"`
	Status      int    `json:"status"`
	RequestBody string `json:"request_body,omitempty"`
	ResponseBody string `json:"response_body,omitempty"`
}

// Log is one completed dispatch record.
type Log struct {
	ID                 uuid.UUID              `json:"id"`
	AgentID            uuid.UUID              `json:"agent_id"`
	SkillID            uuid.UUID              `json:"skill_id"`
	Method             string                 `json:"method"`
	Endpoint           string                 `json:"endpoint"`
	FunctionName       string                 `json:"function_name"`
	Status             int                    `json:"status"`
	StartTime          time.Time              `json:"start_time"`
	EndTime            time.Time              `json:"end_time"`
	BaseConfig         map[string]any         `json:"base_config,omitempty"`
	AIProvider         string                 `json:"ai_provider"`
	Model              string                 `json:"model"`
	AIProviderRequestLog AIProviderRequestLog `json:"ai_provider_request_log"`
	HookLogs           []HookLog              `json:"hook_logs,omitempty"`
	Metadata           map[string]any         `json:"metadata,omitempty"`
	Embedding          []float32              `json:"embedding,omitempty"`
	CacheStatus        CacheStatus            `json:"cache_status"`
	TraceID            string                 `json:"trace_id,omitempty"`
	ParentSpanID       string                 `json:"parent_span_id,omitempty"`
	SpanID             string                 `json:"span_id,omitempty"`
	SpanName           string                 `json:"span_name,omitempty"`
	AppID              string                 `json:"app_id,omitempty"`
	ExternalUserID     string                 `json:"external_user_id,omitempty"`
	UserMetadata       map[string]any         `json:"user_metadata,omitempty"`
}

// Duration returns EndTime - StartTime.
func (l Log) Duration() time.Duration {
	return l.EndTime.Sub(l.StartTime)
}

// CacheRecord is one stored fingerprint→response mapping.
type CacheRecord struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Tool is a captured tool/function spec, deduplicated per agent by its
// content hash (§4.B stage 10).
type Tool struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Hash      string    `json:"hash"`
	Spec      string    `json:"spec"`
	CreatedAt time.Time `json:"created_at"`
}

// EvaluationRun, LogOutput, and Feedback round out the storage CRUD surface
// named in §6. Their internal shape is a Non-goal (evaluation quality
// metrics are out of scope); these are opaque JSON-backed records.
type (
	EvaluationRun struct {
		ID        uuid.UUID      `json:"id"`
		AgentID   uuid.UUID      `json:"agent_id"`
		Data      map[string]any `json:"data,omitempty"`
		CreatedAt time.Time      `json:"created_at"`
	}
	LogOutput struct {
		ID        uuid.UUID      `json:"id"`
		LogID     uuid.UUID      `json:"log_id"`
		Data      map[string]any `json:"data,omitempty"`
		CreatedAt time.Time      `json:"created_at"`
	}
	Feedback struct {
		ID        uuid.UUID      `json:"id"`
		LogID     uuid.UUID      `json:"log_id"`
		Data      map[string]any `json:"data,omitempty"`
		CreatedAt time.Time      `json:"created_at"`
	}
)
