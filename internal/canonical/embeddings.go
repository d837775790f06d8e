package canonical

import (
	"encoding/json"
	"fmt"
)

// EmbeddingRequest is the canonical POST /v1/embeddings body. Input accepts
// either a bare string or an array of strings on the wire (normalized via
// UnmarshalJSON), mirroring the teacher's parseEmbeddingInput.
type EmbeddingRequest struct {
	Model          string   `json:"-"`
	Input          []string `json:"-"`
	EncodingFormat string   `json:"-"`
}

type embeddingRequestWire struct {
	Model          string          `json:"model"`
	Input          json.RawMessage `json:"input"`
	EncodingFormat string          `json:"encoding_format,omitempty"`
}

// UnmarshalJSON normalizes the polymorphic "input" field to []string.
func (r *EmbeddingRequest) UnmarshalJSON(data []byte) error {
	var wire embeddingRequestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Model = wire.Model
	r.EncodingFormat = wire.EncodingFormat

	if len(wire.Input) == 0 {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(wire.Input, &arr); err == nil {
		r.Input = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(wire.Input, &s); err == nil {
		r.Input = []string{s}
		return nil
	}
	return fmt.Errorf("canonical: 'input' must be a string or array of strings")
}

// MarshalJSON re-emits Input in its array wire form.
func (r EmbeddingRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(embeddingRequestWire{
		Model:          r.Model,
		Input:          mustMarshal(r.Input),
		EncodingFormat: r.EncodingFormat,
	})
}

func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func (r EmbeddingRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("canonical: embeddings request requires 'model'")
	}
	if len(r.Input) == 0 {
		return fmt.Errorf("canonical: embeddings request requires non-empty 'input'")
	}
	return nil
}

// EmbeddingDatum is a single embedding vector entry.
type EmbeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingUsage mirrors OpenAI's embeddings usage object.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EmbeddingResponse is the canonical embeddings response envelope.
type EmbeddingResponse struct {
	Object string           `json:"object"`
	Data   []EmbeddingDatum `json:"data"`
	Model  string           `json:"model"`
	Usage  EmbeddingUsage   `json:"usage"`
}

func (r EmbeddingResponse) Validate() error {
	if len(r.Data) == 0 {
		return fmt.Errorf("canonical: embeddings response has no data")
	}
	return nil
}
