package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/providers"
	"github.com/nulpointcorp/llm-gateway/internal/resolver"
	"github.com/nulpointcorp/llm-gateway/internal/storage/memory"
)

// --- agent/skill binding --------------------------------------------------

func TestDispatchChat_BoundRequestUsesResolvedTarget(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	agent := &domain.Agent{Name: "support-bot"}
	if err := store.CreateAgent(ctx, agent); err != nil {
		t.Fatal(err)
	}
	skill := &domain.Skill{AgentID: agent.ID, Name: "triage"}
	if err := store.CreateSkill(ctx, skill); err != nil {
		t.Fatal(err)
	}

	var sawModel string
	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"anthropic": &funcProvider{
			name: "anthropic",
			requestFn: func(_ context.Context, req *providers.ProxyRequest) (*providers.ProxyResponse, error) {
				sawModel = req.Model
				return &providers.ProxyResponse{
					ID:      "resp-1",
					Model:   req.Model,
					Content: "bound response",
					Usage:   providers.Usage{InputTokens: 3, OutputTokens: 2},
				}, nil
			},
		},
	}, nil)
	gw.SetStore(store)
	gw.SetResolver(resolver.New(store, nil))

	client, cleanup := serveGateway(t, gw)
	defer cleanup()

	cfg := domain.RequestConfig{
		AgentName: "support-bot",
		SkillName: "triage",
		Targets: []domain.RequestTargetPreProcessed{
			{Provider: "anthropic", Model: "claude-3-opus", APIKey: "resolved-key"},
		},
	}
	cfgHeader, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]any{
		"model": "gpt-4",
		"messages": []map[string]string{
			{"role": "user", "content": "hi"},
		},
	})

	req, err := http.NewRequest("POST", "http://test/v1/chat/completions", readerFromBytes(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idk-Config", string(cfgHeader))

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if sawModel != "claude-3-opus" {
		t.Errorf("provider saw model %q, want the resolved target's model", sawModel)
	}

	logs := store.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 persisted log entry, got %d", len(logs))
	}
	if logs[0].AgentID != agent.ID || logs[0].SkillID != skill.ID {
		t.Error("log entry not attributed to the bound agent/skill")
	}
	if logs[0].AIProvider != "anthropic" {
		t.Errorf("log ai_provider = %q, want anthropic", logs[0].AIProvider)
	}
}

func TestDispatchChat_UnboundRequestSkipsStoreEntirely(t *testing.T) {
	store := memory.New()
	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"openai": okProvider("openai"),
	}, nil)
	gw.SetStore(store)
	gw.SetResolver(resolver.New(store, nil))

	client, cleanup := serveGateway(t, gw)
	defer cleanup()

	resp := doPost(t, client, "/v1/chat/completions",
		mustJSON(t, map[string]any{
			"model":    "gpt-4",
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		}))
	readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(store.Logs()) != 0 {
		t.Error("a header-less request must not write a Log entry")
	}
}

func TestDispatchChat_UnknownAgentReturns404(t *testing.T) {
	store := memory.New()
	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"openai": okProvider("openai"),
	}, nil)
	gw.SetStore(store)
	gw.SetResolver(resolver.New(store, nil))

	client, cleanup := serveGateway(t, gw)
	defer cleanup()

	cfg := domain.RequestConfig{AgentName: "ghost"}
	cfgHeader, _ := json.Marshal(cfg)

	req, _ := http.NewRequest("POST", "http://test/v1/chat/completions",
		readerFromBytes(mustJSON(t, map[string]any{
			"model":    "gpt-4",
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idk-Config", string(cfgHeader))

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDispatchChat_UnresolvableTargetMapsResolverError(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	agent := &domain.Agent{Name: "support-bot"}
	_ = store.CreateAgent(ctx, agent)
	skill := &domain.Skill{AgentID: agent.ID, Name: "triage"}
	_ = store.CreateSkill(ctx, skill)

	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"openai": okProvider("openai"),
	}, nil)
	gw.SetStore(store)
	gw.SetResolver(resolver.New(store, nil))

	client, cleanup := serveGateway(t, gw)
	defer cleanup()

	cfg := domain.RequestConfig{
		AgentName: "support-bot",
		SkillName: "triage",
		Targets: []domain.RequestTargetPreProcessed{
			{ConfigurationName: "prod"}, // never created -> ErrConfigurationNotFound
		},
	}
	cfgHeader, _ := json.Marshal(cfg)

	req, _ := http.NewRequest("POST", "http://test/v1/chat/completions",
		readerFromBytes(mustJSON(t, map[string]any{
			"model":    "gpt-4",
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idk-Config", string(cfgHeader))

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

// --- cache key fingerprinting ---------------------------------------------

func TestBuildCacheKey_UsesFingerprintPrefix(t *testing.T) {
	req := &providers.ProxyRequest{Model: "gpt-4", Messages: []providers.Message{{Role: "user", Content: "hi"}}}
	key := buildCacheKey(req)
	if len(key) < len("cache:") || key[:len("cache:")] != "cache:" {
		t.Fatalf("key %q does not carry the cache: prefix", key)
	}
	// Same input must hash deterministically.
	if buildCacheKey(req) != key {
		t.Error("buildCacheKey is not deterministic for identical input")
	}
}

// --- tool capture ----------------------------------------------------------

func TestDispatchChat_BoundRequestCapturesTools(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	agent := &domain.Agent{Name: "support-bot"}
	_ = store.CreateAgent(ctx, agent)
	skill := &domain.Skill{AgentID: agent.ID, Name: "triage"}
	_ = store.CreateSkill(ctx, skill)

	gw := NewGateway(context.Background(), map[string]providers.Provider{
		"openai": okProvider("openai"),
	}, nil)
	gw.SetStore(store)
	gw.SetResolver(resolver.New(store, nil))

	client, cleanup := serveGateway(t, gw)
	defer cleanup()

	cfg := domain.RequestConfig{
		AgentName: "support-bot",
		SkillName: "triage",
		Targets: []domain.RequestTargetPreProcessed{
			{Provider: "openai", Model: "gpt-4", APIKey: "resolved-key"},
		},
	}
	cfgHeader, _ := json.Marshal(cfg)

	body := mustJSON(t, map[string]any{
		"model":    "gpt-4",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
		"tools": []map[string]any{
			{
				"type": "function",
				"function": map[string]any{
					"name": "get_weather",
				},
			},
		},
	})

	req, _ := http.NewRequest("POST", "http://test/v1/chat/completions", readerFromBytes(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idk-Config", string(cfgHeader))

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Tool capture runs off the request goroutine, so the record it writes
	// is not looked up here. Instead CaptureTool is called synchronously
	// twice with one fixed hash to check that a repeat stays idempotent
	// (exercises the dedup path deterministically instead of sleeping on the
	// async write above).
	rec := &domain.Tool{AgentID: agent.ID, Hash: "dup", Spec: "{}"}
	if err := store.CaptureTool(ctx, rec); err != nil {
		t.Fatalf("CaptureTool: %v", err)
	}
	if err := store.CaptureTool(ctx, rec); err != nil {
		t.Fatalf("CaptureTool (idempotent replay): %v", err)
	}
}

// --- helpers ----------------------------------------------------------------

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestParseRequestConfig_MissingHeaderIsNotAnError(t *testing.T) {
	var ctx fasthttp.RequestCtx
	cfg, err := parseRequestConfig(&ctx)
	if err != nil {
		t.Fatalf("parseRequestConfig: %v", err)
	}
	if cfg.AgentName != "" {
		t.Error("expected a zero-value RequestConfig when no header is present")
	}
}

func TestParseRequestConfig_FallsBackToRaConfig(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Ra-Config", `{"agent_name":"a","skill_name":"s"}`)
	cfg, err := parseRequestConfig(&ctx)
	if err != nil {
		t.Fatalf("parseRequestConfig: %v", err)
	}
	if cfg.AgentName != "a" || cfg.SkillName != "s" {
		t.Errorf("cfg = %+v, want agent_name=a skill_name=s", cfg)
	}
}

func TestCaptureTools_DeduplicatesByHash(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	agentID := uuid.New()

	rec := &domain.Tool{AgentID: agentID, Hash: "same-hash", Spec: `{"type":"function"}`}
	if err := store.CaptureTool(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := store.CaptureTool(ctx, &domain.Tool{AgentID: agentID, Hash: "same-hash", Spec: `{"type":"function"}`}); err != nil {
		t.Fatal(err)
	}
}
