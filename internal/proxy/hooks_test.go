package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/hooks"
	"github.com/nulpointcorp/llm-gateway/internal/providers"
	"github.com/nulpointcorp/llm-gateway/internal/resolver"
)

// --- DispatchHook -------------------------------------------------------

// contentProvider returns a fixed Content string, ignoring the request —
// used to simulate an "llm"-provider hook's model response.
func contentProvider(name, content string) *funcProvider {
	return &funcProvider{
		name: name,
		requestFn: func(_ context.Context, req *providers.ProxyRequest) (*providers.ProxyResponse, error) {
			return &providers.ProxyResponse{Model: req.Model, Content: content}, nil
		},
	}
}

func TestDispatchHook_NoResolverConfiguredReturnsError(t *testing.T) {
	gw := NewGateway(context.Background(), nil, nil)
	_, err := gw.DispatchHook(context.Background(), domain.Hook{ID: uuid.New()}, []byte(`{}`), nil)
	if err == nil {
		t.Fatal("expected error when no resolver is configured")
	}
}

func TestDispatchHook_ResolvesDirectTargetAndParsesResult(t *testing.T) {
	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"openai": contentProvider("openai", `{"deny_request":true}`),
	}, nil)
	gw.SetResolver(resolver.New(nil, nil))

	hook := domain.Hook{
		ID:       uuid.New(),
		Type:     domain.HookTypeInput,
		Provider: domain.HookProviderLLM,
		Config: map[string]any{
			"provider": "openai",
			"model":    "gpt-4",
			"api_key":  "test-key",
		},
	}

	result, err := gw.DispatchHook(context.Background(), hook, []byte(`{"model":"gpt-4"}`), nil)
	if err != nil {
		t.Fatalf("DispatchHook: %v", err)
	}
	if !result.DenyRequest {
		t.Error("expected DenyRequest=true to survive the round trip")
	}
}

func TestDispatchHook_UnknownProviderErrors(t *testing.T) {
	gw := NewGateway(context.Background(), map[string]providers.Provider{}, nil)
	gw.SetResolver(resolver.New(nil, nil))

	hook := domain.Hook{
		ID:       uuid.New(),
		Provider: domain.HookProviderLLM,
		Config: map[string]any{
			"provider": "nonexistent",
			"model":    "gpt-4",
			"api_key":  "test-key",
		},
	}

	if _, err := gw.DispatchHook(context.Background(), hook, []byte(`{}`), nil); err == nil {
		t.Fatal("expected error for an unconfigured provider")
	}
}

// --- dispatchChat hook integration ---------------------------------------

// stubHookHTTPClient implements hooks.HTTPClient, returning a fixed body.
type stubHookHTTPClient struct {
	body []byte
	err  error
}

func (c *stubHookHTTPClient) Do(_ context.Context, _ string, _ []byte) ([]byte, error) {
	return c.body, c.err
}

func TestDispatchChat_InputHookDeniesRequest(t *testing.T) {
	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"openai": okProvider("openai"),
	}, nil)
	gw.SetHookExecutor(hooks.New(
		&stubHookHTTPClient{body: []byte(`{"deny_request":true}`)},
		nil, nil, time.Hour,
	))

	client, cleanup := serveGateway(t, gw)
	defer cleanup()

	body, _ := json.Marshal(map[string]any{
		"model": "gpt-4",
		"messages": []map[string]string{
			{"role": "user", "content": "hi"},
		},
		"hooks": []domain.Hook{
			{
				ID:       uuid.New(),
				Type:     domain.HookTypeInput,
				Provider: domain.HookProviderHTTP,
				Config:   map[string]any{"url": "http://hook.invalid/check"},
			},
		},
	})

	resp := doPost(t, client, "/v1/chat/completions", body)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestDispatchChat_OutputHookOverridesResponseBody(t *testing.T) {
	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"openai": okProvider("openai"),
	}, nil)
	override := []byte(`{"id":"overridden","object":"chat.completion","choices":[]}`)
	gw.SetHookExecutor(hooks.New(
		&stubHookHTTPClient{body: mustMarshalHookResult(t, domain.HookResult{ResponseBodyOverride: override})},
		nil, nil, time.Hour,
	))

	client, cleanup := serveGateway(t, gw)
	defer cleanup()

	body, _ := json.Marshal(map[string]any{
		"model": "gpt-4",
		"messages": []map[string]string{
			{"role": "user", "content": "hi"},
		},
		"hooks": []domain.Hook{
			{
				ID:       uuid.New(),
				Type:     domain.HookTypeOutput,
				Provider: domain.HookProviderHTTP,
				Config:   map[string]any{"url": "http://hook.invalid/transform"},
			},
		},
	})

	resp := doPost(t, client, "/v1/chat/completions", body)
	got := readBody(t, resp)
	if string(got) != string(override) {
		t.Errorf("body = %s, want %s", got, override)
	}
}

func mustMarshalHookResult(t *testing.T, r domain.HookResult) []byte {
	t.Helper()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
