package canonical

import "fmt"

// BatchCreateRequest is the canonical POST /v1/batches body.
type BatchCreateRequest struct {
	InputFileID      string         `json:"input_file_id"`
	Endpoint         string         `json:"endpoint"`
	CompletionWindow string         `json:"completion_window"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func (r BatchCreateRequest) Validate() error {
	if r.InputFileID == "" {
		return fmt.Errorf("canonical: batch create requires 'input_file_id'")
	}
	if r.Endpoint == "" {
		return fmt.Errorf("canonical: batch create requires 'endpoint'")
	}
	return nil
}

// BatchObject is the canonical batch resource shape.
type BatchObject struct {
	ID               string `json:"id"`
	Object           string `json:"object"`
	Endpoint         string `json:"endpoint"`
	Status           string `json:"status"`
	InputFileID      string `json:"input_file_id"`
	OutputFileID     string `json:"output_file_id,omitempty"`
	CreatedAt        int64  `json:"created_at"`
}

func (b BatchObject) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("canonical: batch object missing 'id'")
	}
	return nil
}

// BatchListResponse is the canonical GET /v1/batches response.
type BatchListResponse struct {
	Object string        `json:"object"`
	Data   []BatchObject `json:"data"`
}

func (r BatchListResponse) Validate() error { return nil }
