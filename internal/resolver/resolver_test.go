package resolver_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nulpointcorp/llm-gateway/internal/cryptoutil"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/resolver"
	"github.com/nulpointcorp/llm-gateway/internal/storage/memory"
)

func newBox(t *testing.T) *cryptoutil.Box {
	t.Helper()
	box, err := cryptoutil.NewBox(make([]byte, cryptoutil.KeySize))
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return box
}

func alwaysRequired(string) bool { return true }

func TestResolve_NamedConfiguration(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	box := newBox(t)

	ciphertext, err := box.Encrypt("sk-live-secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	apiKey := &domain.AIProviderAPIKey{AIProvider: "openai", APIKey: ciphertext}
	if err := store.CreateAPIKey(ctx, apiKey); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	model := &domain.Model{AIProviderAPIKeyID: apiKey.ID, ModelName: "gpt-4o", ModelType: domain.ModelTypeText}
	if err := store.CreateModel(ctx, model); err != nil {
		t.Fatalf("CreateModel: %v", err)
	}

	skillID := uuid.New()
	temp := 0.7
	cfg := &domain.SkillConfiguration{
		SkillID: skillID,
		Name:    "default",
		Data: map[string]domain.SkillConfigVersion{
			domain.CurrentVersionKey: {
				Params: domain.SkillConfigParams{
					ModelID:      model.ID,
					SystemPrompt: "You are {{persona}}.",
					Temperature:  &temp,
				},
			},
		},
	}
	if err := store.CreateSkillConfiguration(ctx, cfg); err != nil {
		t.Fatalf("CreateSkillConfiguration: %v", err)
	}

	r := resolver.New(store, box)
	target := domain.RequestTargetPreProcessed{
		ConfigurationName:     "default",
		SystemPromptVariables: map[string]string{"persona": "a helpful assistant"},
	}

	resolved, err := r.Resolve(ctx, skillID, target, alwaysRequired)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Configuration.AIProvider != "openai" {
		t.Errorf("provider = %q, want openai", resolved.Configuration.AIProvider)
	}
	if resolved.Configuration.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", resolved.Configuration.Model)
	}
	if resolved.Configuration.SystemPrompt != "You are a helpful assistant." {
		t.Errorf("system prompt = %q", resolved.Configuration.SystemPrompt)
	}
	if resolved.APIKey != "sk-live-secret" {
		t.Errorf("api key = %q, want decrypted sk-live-secret", resolved.APIKey)
	}
}

func TestResolve_ProviderTarget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := resolver.New(store, nil)

	target := domain.RequestTargetPreProcessed{Provider: "anthropic", Model: "claude-3-opus", APIKey: "sk-explicit"}
	resolved, err := r.Resolve(ctx, uuid.New(), target, alwaysRequired)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Configuration.AIProvider != "anthropic" || resolved.Configuration.Model != "claude-3-opus" {
		t.Errorf("unexpected resolved configuration: %+v", resolved.Configuration)
	}
	if resolved.APIKey != "sk-explicit" {
		t.Errorf("api key = %q, want sk-explicit", resolved.APIKey)
	}
}

func TestResolve_ExplicitAPIKeyOverridesStored(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	box := newBox(t)

	ciphertext, _ := box.Encrypt("sk-stored")
	apiKey := &domain.AIProviderAPIKey{AIProvider: "openai", APIKey: ciphertext}
	_ = store.CreateAPIKey(ctx, apiKey)
	model := &domain.Model{AIProviderAPIKeyID: apiKey.ID, ModelName: "gpt-4o"}
	_ = store.CreateModel(ctx, model)
	skillID := uuid.New()
	cfg := &domain.SkillConfiguration{
		SkillID: skillID, Name: "default",
		Data: map[string]domain.SkillConfigVersion{
			domain.CurrentVersionKey: {Params: domain.SkillConfigParams{ModelID: model.ID}},
		},
	}
	_ = store.CreateSkillConfiguration(ctx, cfg)

	r := resolver.New(store, box)
	target := domain.RequestTargetPreProcessed{ConfigurationName: "default", APIKey: "sk-override"}
	resolved, err := r.Resolve(ctx, skillID, target, alwaysRequired)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.APIKey != "sk-override" {
		t.Errorf("api key = %q, want sk-override to take precedence", resolved.APIKey)
	}
}

func TestResolve_MissingConfiguration(t *testing.T) {
	ctx := context.Background()
	r := resolver.New(memory.New(), newBox(t))
	target := domain.RequestTargetPreProcessed{ConfigurationName: "missing"}
	_, err := r.Resolve(ctx, uuid.New(), target, alwaysRequired)
	if err != resolver.ErrConfigurationNotFound {
		t.Errorf("err = %v, want ErrConfigurationNotFound", err)
	}
}

func TestResolve_MissingVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	skillID := uuid.New()
	cfg := &domain.SkillConfiguration{
		SkillID: skillID, Name: "default",
		Data: map[string]domain.SkillConfigVersion{"v1": {}},
	}
	_ = store.CreateSkillConfiguration(ctx, cfg)

	r := resolver.New(store, newBox(t))
	target := domain.RequestTargetPreProcessed{ConfigurationName: "default", ConfigurationVersion: "v2"}
	_, err := r.Resolve(ctx, skillID, target, alwaysRequired)
	if err != resolver.ErrVersionNotFound {
		t.Errorf("err = %v, want ErrVersionNotFound", err)
	}
}

func TestResolve_DecryptionFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	wrongBox, _ := cryptoutil.NewBox(make([]byte, cryptoutil.KeySize))
	rightBox, _ := cryptoutil.NewBox(append(make([]byte, cryptoutil.KeySize-1), 1))

	ciphertext, _ := rightBox.Encrypt("sk-stored")
	apiKey := &domain.AIProviderAPIKey{AIProvider: "openai", APIKey: ciphertext}
	_ = store.CreateAPIKey(ctx, apiKey)
	model := &domain.Model{AIProviderAPIKeyID: apiKey.ID, ModelName: "gpt-4o"}
	_ = store.CreateModel(ctx, model)
	skillID := uuid.New()
	cfg := &domain.SkillConfiguration{
		SkillID: skillID, Name: "default",
		Data: map[string]domain.SkillConfigVersion{
			domain.CurrentVersionKey: {Params: domain.SkillConfigParams{ModelID: model.ID}},
		},
	}
	_ = store.CreateSkillConfiguration(ctx, cfg)

	r := resolver.New(store, wrongBox)
	target := domain.RequestTargetPreProcessed{ConfigurationName: "default"}
	_, err := r.Resolve(ctx, skillID, target, alwaysRequired)
	if err == nil {
		t.Fatal("expected decryption error")
	}
}

func TestResolve_APIKeyRequiredFalseAllowsMissing(t *testing.T) {
	ctx := context.Background()
	r := resolver.New(memory.New(), nil)
	target := domain.RequestTargetPreProcessed{Provider: "localmodel", Model: "llama"}
	_, err := r.Resolve(ctx, uuid.New(), target, func(string) bool { return false })
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}

func TestResolveTargets_UsesFirstOnly(t *testing.T) {
	ctx := context.Background()
	r := resolver.New(memory.New(), nil)
	targets := []domain.RequestTargetPreProcessed{
		{Provider: "openai", Model: "gpt-4o", APIKey: "sk-1"},
		{Provider: "anthropic", Model: "claude-3-opus", APIKey: "sk-2"},
	}
	resolved, err := r.ResolveTargets(ctx, uuid.New(), targets, alwaysRequired)
	if err != nil {
		t.Fatalf("ResolveTargets: %v", err)
	}
	if resolved.Configuration.AIProvider != "openai" {
		t.Errorf("provider = %q, want openai (first target)", resolved.Configuration.AIProvider)
	}
}
