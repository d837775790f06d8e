package canonical

import "fmt"

// ModelResponseRequest is the canonical POST /v1/responses body (the
// Responses API surface).
type ModelResponseRequest struct {
	Model    string         `json:"model"`
	Input    any            `json:"input"`
	Stream   bool           `json:"stream,omitempty"`
	Tools    []Tool         `json:"tools,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (r ModelResponseRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("canonical: model response requires 'model'")
	}
	if r.Input == nil {
		return fmt.Errorf("canonical: model response requires 'input'")
	}
	return nil
}

// ModelResponseOutputItem is one element of ModelResponse.Output.
type ModelResponseOutputItem struct {
	Type    string     `json:"type"`
	Role    string     `json:"role,omitempty"`
	Content []any      `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ModelResponse is the canonical non-streaming Responses API body.
type ModelResponse struct {
	ID        string                    `json:"id"`
	Object    string                    `json:"object"`
	CreatedAt int64                     `json:"created_at"`
	Model     string                    `json:"model"`
	Status    string                    `json:"status"`
	Output    []ModelResponseOutputItem `json:"output"`
	Usage     ChatCompletionUsage       `json:"usage"`
}

func (r ModelResponse) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("canonical: model response missing 'id'")
	}
	return nil
}
