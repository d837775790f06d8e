// Package canonical holds the OpenAI-compatible request/response schemas the
// gateway exposes as its public contract (§4.D), plus the SSE streaming
// frame envelope. Validation is hand-written rather than schema-library
// driven — no JSON-schema validator appears anywhere in the example pack;
// the teacher validates inline (see DESIGN.md §4.D).
package canonical

import (
	"encoding/json"
	"fmt"
)

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall mirrors OpenAI's tool_calls[i] shape. Index is only meaningful
// on a streaming delta's tool_calls entries, where it identifies which
// tool call a chunk's argument fragment belongs to.
type ToolCall struct {
	Index    int          `json:"index,omitempty"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolCallFunc `json:"function"`
}

// ToolCallFunc is the function payload of a ToolCall.
type ToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a callable function the model may invoke.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the body of a Tool declaration.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatCompletionRequest is the canonical POST /v1/chat/completions body.
type ChatCompletionRequest struct {
	Model            string         `json:"model"`
	Messages         []ChatMessage  `json:"messages"`
	Stream           bool           `json:"stream,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Seed             *int           `json:"seed,omitempty"`
	Tools            []Tool         `json:"tools,omitempty"`
	ToolChoice       any            `json:"tool_choice,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Validate checks the fields the gateway must enforce before any provider
// call is attempted (§4.A: "on failure the pipeline fails with
// InvalidRequest before any provider call").
func (r ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("canonical: chat completion requires 'model'")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("canonical: chat completion requires at least one message")
	}
	for i, m := range r.Messages {
		if m.Role == "" {
			return fmt.Errorf("canonical: messages[%d].role is required", i)
		}
	}
	return nil
}

// ChatCompletionUsage mirrors OpenAI's usage object.
type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChoice is one element of ChatCompletionResponse.Choices.
type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionResponse is the canonical non-streaming chat completion body.
type ChatCompletionResponse struct {
	ID      string                  `json:"id"`
	Object  string                  `json:"object"`
	Created int64                   `json:"created"`
	Model   string                  `json:"model"`
	Choices []ChatCompletionChoice  `json:"choices"`
	Usage   ChatCompletionUsage     `json:"usage"`
}

// Validate checks shape invariants a response transform must satisfy
// (§8: "applying responseTransform... yields a value that passes F's
// response schema").
func (r ChatCompletionResponse) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("canonical: chat completion response missing 'model'")
	}
	if len(r.Choices) == 0 {
		return fmt.Errorf("canonical: chat completion response has no choices")
	}
	return nil
}

// ChatCompletionChunkDelta is the incremental content of one streaming chunk.
type ChatCompletionChunkDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChatCompletionChunkChoice is one element of ChatCompletionChunk.Choices.
type ChatCompletionChunkChoice struct {
	Index        int                       `json:"index"`
	Delta        ChatCompletionChunkDelta  `json:"delta"`
	FinishReason *string                   `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE data frame for a streaming chat completion.
type ChatCompletionChunk struct {
	ID      string                       `json:"id"`
	Object  string                       `json:"object"`
	Created int64                        `json:"created"`
	Model   string                       `json:"model"`
	Choices []ChatCompletionChunkChoice  `json:"choices"`
}

// MarshalChunk serializes a ChatCompletionChunk to its JSON wire form.
func MarshalChunk(c ChatCompletionChunk) ([]byte, error) {
	return json.Marshal(c)
}
