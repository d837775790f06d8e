// Package declarative adapts internal/adapter's declarative provider
// configs into the providers.Provider interface so the OpenAI-wire-
// compatible tier (§4.E) is reachable from the same dispatch path as the
// native-SDK providers. Where openaicompat wraps the openai-go SDK
// directly, this package walks AIProviderConfig's ParameterConfig tables
// through adapter.Transform before making the HTTP call — the tier exists
// precisely for providers whose wire format diverges from OpenAI's in ways
// the fixed SDK params can't express (renamed fields, clamped ranges,
// fan-out).
package declarative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nulpointcorp/llm-gateway/internal/adapter"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/functions"
	"github.com/nulpointcorp/llm-gateway/internal/providers"
)

// Provider wraps one adapter.AIProviderConfig as a providers.Provider.
type Provider struct {
	cfg        *adapter.AIProviderConfig
	apiKey     string
	customHost string
	client     *http.Client
}

// Option configures a declarative Provider.
type Option func(*Provider)

// WithCustomHost sets the per-provider host parameter GetBaseURL needs
// beyond the API key — e.g. the Cloudflare account ID in
// "https://api.cloudflare.com/client/v4/accounts/<id>/ai/v1".
func WithCustomHost(host string) Option {
	return func(p *Provider) { p.customHost = host }
}

// New builds a declarative Provider for cfg, authenticating with apiKey.
// The HTTP client retries transient upstream failures via
// adapter.NewRetryTransport (§4.E).
func New(cfg *adapter.AIProviderConfig, apiKey string, opts ...Option) *Provider {
	p := &Provider{
		cfg:    cfg,
		apiKey: apiKey,
		client: &http.Client{Transport: adapter.NewRetryTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) HealthCheck(ctx context.Context) error {
	target := domain.RequestTargetResolved{APIKey: p.apiKey, CustomHost: p.customHost}
	endpoint, err := adapter.Endpoint(p.cfg, functions.ChatComplete)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.GetBaseURL(ctx, target)+"/models", nil)
	if err != nil {
		return err
	}
	p.setHeaders(req, target)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: health check: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s: health check: upstream status %d (endpoint %s)", p.cfg.Name, resp.StatusCode, endpoint)
	}
	return nil
}

func (p *Provider) Request(ctx context.Context, req *providers.ProxyRequest) (*providers.ProxyResponse, error) {
	fn := functions.ChatComplete
	if req.Stream {
		fn = functions.StreamChatComplete
	}

	body, err := p.buildChatBody(req)
	if err != nil {
		return nil, err
	}

	raw, err := p.do(ctx, fn, req.APIKey, body)
	if err != nil {
		return nil, err
	}

	if req.Stream {
		return p.streamFromWholeBody(raw, req.Model), nil
	}

	var resp struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.cfg.Name, err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return &providers.ProxyResponse{
		ID:      resp.ID,
		Model:   model,
		Content: content,
		Usage: providers.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *Provider) Embed(ctx context.Context, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	if _, ok := p.cfg.Functions[functions.Embed]; !ok {
		return nil, fmt.Errorf("%s: provider does not support embeddings", p.cfg.Name)
	}

	body := map[string]any{"model": req.Model, "input": req.Input}
	raw, err := p.do(ctx, functions.Embed, req.APIKey, body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Model string `json:"model"`
		Data  []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Usage struct {
			PromptTokens int `json:"prompt_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode embeddings response: %w", p.cfg.Name, err)
	}

	data := make([]providers.EmbeddingData, len(resp.Data))
	for i, d := range resp.Data {
		data[i] = providers.EmbeddingData{Index: d.Index, Embedding: d.Embedding}
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return &providers.EmbeddingResponse{
		Model: model,
		Data:  data,
		Usage: providers.Usage{InputTokens: resp.Usage.PromptTokens},
	}, nil
}

func (p *Provider) buildChatBody(req *providers.ProxyRequest) (map[string]any, error) {
	msgs := make([]map[string]any, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = map[string]any{"role": m.Role, "content": m.Content}
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": msgs,
		"stream":   req.Stream,
	}
	if req.Temperature != 0 {
		body["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	return body, nil
}

// do resolves fn's function config, transforms body through it, applies
// model capability remapping, and issues the HTTP request.
func (p *Provider) do(ctx context.Context, fn functions.Name, overrideKey string, body map[string]any) ([]byte, error) {
	fc, ok := p.cfg.Functions[fn]
	if !ok {
		return nil, fmt.Errorf("%s: function %q not supported", p.cfg.Name, fn)
	}

	providerBody, err := adapter.Transform(fc, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.cfg.Name, err)
	}
	if p.cfg.Capabilities != nil {
		if model, _ := body["model"].(string); model != "" {
			p.cfg.Capabilities.Apply(model, providerBody)
		}
	}

	key := overrideKey
	if key == "" {
		key = p.apiKey
	}
	target := domain.RequestTargetResolved{APIKey: key, CustomHost: p.customHost}

	endpoint, err := adapter.Endpoint(p.cfg, fn)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(providerBody)
	if err != nil {
		return nil, err
	}

	url := p.cfg.GetBaseURL(ctx, target) + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.setHeaders(httpReq, target)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", p.cfg.Name, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &providerError{name: p.cfg.Name, status: resp.StatusCode, body: string(raw)}
	}
	return raw, nil
}

func (p *Provider) setHeaders(req *http.Request, target domain.RequestTargetResolved) {
	for k, v := range p.cfg.Headers(target.APIKey) {
		req.Header.Set(k, v)
	}
}

// streamFromWholeBody wraps a non-streaming upstream body (the common case
// for providers this package dispatches to) as a single-chunk
// providers.ProxyResponse stream: the whole message content in one chunk
// with finish_reason "stop". adapter.WholeBodyToChunks's word wrap at
// WordWrapWidth is not applied.
func (p *Provider) streamFromWholeBody(raw []byte, model string) *providers.ProxyResponse {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	content := ""
	if err := json.Unmarshal(raw, &resp); err == nil && len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	ch := make(chan providers.StreamChunk, 1)
	ch <- providers.StreamChunk{Content: content, FinishReason: "stop"}
	close(ch)

	return &providers.ProxyResponse{Model: model, Stream: ch}
}

// providerError mirrors openaicompat.ProviderError's HTTPStatus contract so
// handleProviderError in gateway.go maps it to the correct response code.
type providerError struct {
	name   string
	status int
	body   string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.name, e.status, e.body)
}

func (e *providerError) HTTPStatus() int { return e.status }
