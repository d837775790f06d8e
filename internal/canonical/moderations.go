package canonical

import "fmt"

// ModerationRequest is the canonical POST /v1/moderations body.
type ModerationRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

func (r ModerationRequest) Validate() error {
	if len(r.Input) == 0 {
		return fmt.Errorf("canonical: moderation requires non-empty 'input'")
	}
	return nil
}

// ModerationCategories mirrors OpenAI's fixed-schema category map.
type ModerationCategories struct {
	Hate            bool `json:"hate"`
	HateThreatening bool `json:"hate/threatening"`
	SelfHarm        bool `json:"self-harm"`
	Sexual          bool `json:"sexual"`
	SexualMinors    bool `json:"sexual/minors"`
	Violence        bool `json:"violence"`
	ViolenceGraphic bool `json:"violence/graphic"`
}

// ModerationResult is one element of ModerationResponse.Results.
type ModerationResult struct {
	Flagged        bool                 `json:"flagged"`
	Categories     ModerationCategories `json:"categories"`
	CategoryScores map[string]float64   `json:"category_scores"`
}

// ModerationResponse is the canonical moderation response envelope.
type ModerationResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Results []ModerationResult `json:"results"`
}

func (r ModerationResponse) Validate() error {
	if len(r.Results) == 0 {
		return fmt.Errorf("canonical: moderation response has no results")
	}
	return nil
}
