package canonical

import "fmt"

// SpeechRequest is the canonical POST /v1/audio/speech body.
type SpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

func (r SpeechRequest) Validate() error {
	if r.Input == "" {
		return fmt.Errorf("canonical: speech request requires 'input'")
	}
	if r.Voice == "" {
		return fmt.Errorf("canonical: speech request requires 'voice'")
	}
	return nil
}

// TranscriptionRequest is the canonical POST /v1/audio/transcriptions body.
// The file bytes themselves travel as a multipart part; this struct models
// the JSON-visible fields the adapter engine maps.
type TranscriptionRequest struct {
	Model          string `json:"model"`
	Language       string `json:"language,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (r TranscriptionRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("canonical: transcription requires 'model'")
	}
	return nil
}

// TranslationRequest is the canonical POST /v1/audio/translations body.
type TranslationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (r TranslationRequest) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("canonical: translation requires 'model'")
	}
	return nil
}

// TranscriptionResponse is the canonical transcription/translation response.
type TranscriptionResponse struct {
	Text string `json:"text"`
}

func (r TranscriptionResponse) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("canonical: transcription response has empty text")
	}
	return nil
}
