package canonical

import "fmt"

// ImageGenerationRequest is the canonical POST /v1/images/generations body.
type ImageGenerationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (r ImageGenerationRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("canonical: image generation requires 'prompt'")
	}
	return nil
}

// ImageEditRequest is the canonical POST /v1/images/edits body. The image
// and mask fields are carried as multipart parts at the transport layer;
// this struct models the JSON-visible fields only.
type ImageEditRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n,omitempty"`
	Size   string `json:"size,omitempty"`
}

func (r ImageEditRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("canonical: image edit requires 'prompt'")
	}
	return nil
}

// ImageVariationRequest is the canonical POST /v1/images/variations body.
type ImageVariationRequest struct {
	Model string `json:"model,omitempty"`
	N     int    `json:"n,omitempty"`
	Size  string `json:"size,omitempty"`
}

func (r ImageVariationRequest) Validate() error { return nil }

// ImageDatum is one generated/edited image in an ImageResponse.
type ImageDatum struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageResponse is the canonical response for all three image endpoints.
type ImageResponse struct {
	Created int64        `json:"created"`
	Data    []ImageDatum `json:"data"`
}

func (r ImageResponse) Validate() error {
	if len(r.Data) == 0 {
		return fmt.Errorf("canonical: image response has no data")
	}
	return nil
}
