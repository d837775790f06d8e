package adapter_test

import (
	"context"
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/adapter"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/functions"
)

func TestRegistered_CoversFullRoster(t *testing.T) {
	reg := adapter.Registered()
	want := []string{
		"xai", "deepseek", "groq", "together", "perplexity", "cerebras",
		"moonshot", "minimax", "qwen", "nebius", "novita", "bytedance",
		"zai", "canopywave", "inference", "nanogpt",
		"anyscale", "ai21", "siliconflow", "cloudflare-workers-ai",
	}
	for _, name := range want {
		if _, ok := reg[name]; !ok {
			t.Errorf("Registered() missing provider %q", name)
		}
	}
}

func TestRegistered_ChatEndpointAndHeaders(t *testing.T) {
	cfg := adapter.Registered()["groq"]
	ep, err := adapter.Endpoint(cfg, functions.ChatComplete)
	if err != nil {
		t.Fatalf("Endpoint: %v", err)
	}
	if ep != "/chat/completions" {
		t.Errorf("endpoint = %q, want /chat/completions", ep)
	}
	headers := cfg.Headers("sk-test")
	if headers["Authorization"] != "Bearer sk-test" {
		t.Errorf("Authorization header = %q", headers["Authorization"])
	}
}

func TestRegistered_UnsupportedFunctionErrors(t *testing.T) {
	cfg := adapter.Registered()["groq"]
	_, err := adapter.Endpoint(cfg, functions.CreateBatch)
	if err == nil {
		t.Fatal("expected error for unsupported function")
	}
}

func TestCloudflareWorkersAI_ExtractsAccountIDFromCustomHost(t *testing.T) {
	cfg := adapter.Registered()["cloudflare-workers-ai"]
	target := domain.RequestTargetResolved{CustomHost: "acct-123"}
	url := cfg.GetBaseURL(context.Background(), target)
	want := "https://api.cloudflare.com/client/v4/accounts/acct-123/ai/v1"
	if url != want {
		t.Errorf("base url = %q, want %q", url, want)
	}
}
