package canonical

import "fmt"

// FineTuningJobCreateRequest is the canonical POST /v1/fine_tuning/jobs body.
type FineTuningJobCreateRequest struct {
	Model          string         `json:"model"`
	TrainingFile   string         `json:"training_file"`
	ValidationFile string         `json:"validation_file,omitempty"`
	Hyperparams    map[string]any `json:"hyperparameters,omitempty"`
}

func (r FineTuningJobCreateRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("canonical: fine-tuning job requires 'model'")
	}
	if r.TrainingFile == "" {
		return fmt.Errorf("canonical: fine-tuning job requires 'training_file'")
	}
	return nil
}

// FineTuningJob is the canonical fine-tuning job resource shape.
type FineTuningJob struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	Model          string `json:"model"`
	Status         string `json:"status"`
	TrainingFile   string `json:"training_file"`
	FineTunedModel string `json:"fine_tuned_model,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

func (j FineTuningJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("canonical: fine-tuning job missing 'id'")
	}
	return nil
}

// FineTuningJobListResponse is the canonical list response.
type FineTuningJobListResponse struct {
	Object string           `json:"object"`
	Data   []FineTuningJob  `json:"data"`
}

func (r FineTuningJobListResponse) Validate() error { return nil }

// FineTuningEvent is one element of a fine-tuning job's event stream.
type FineTuningEvent struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// FineTuningEventListResponse is the canonical events list response.
type FineTuningEventListResponse struct {
	Object string            `json:"object"`
	Data   []FineTuningEvent `json:"data"`
}

func (r FineTuningEventListResponse) Validate() error { return nil }
