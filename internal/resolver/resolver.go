// Package resolver implements §4.C: turning a client's
// RequestTargetPreProcessed into a RequestTargetResolved by walking the
// Agent's skill configurations, decrypting provider API keys, and
// rendering system prompt templates. Side-effect-free except for storage
// reads, matching the teacher's stateless-dispatch style — the resolver
// never writes, retries, or calls a provider.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nulpointcorp/llm-gateway/internal/cryptoutil"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/storage"
	"github.com/nulpointcorp/llm-gateway/internal/template"
)

// Typed failures, mapped onto §7's status codes by the caller (pipeline
// stage 3): Err* below are all 422 except ErrDecryptionFailed, which is 500.
var (
	ErrConfigurationNotFound = errors.New("resolver: configuration not found")
	ErrVersionNotFound       = errors.New("resolver: configuration version not found")
	ErrModelNotFound         = errors.New("resolver: model not found")
	ErrAPIKeyMissing         = errors.New("resolver: api key missing")
	ErrDecryptionFailed      = errors.New("resolver: api key decryption failed")
)

// Resolver resolves RequestTargetPreProcessed values against a storage
// backend and a provider API key encryption box.
type Resolver struct {
	store storage.UserDataStorageConnector
	box   *cryptoutil.Box
}

// New builds a Resolver. box may be nil if no stored configuration ever
// carries an encrypted key (e.g. every target in a deployment uses
// provider+api_key directly) — Resolve returns ErrDecryptionFailed if a
// decrypt is attempted with a nil box.
func New(store storage.UserDataStorageConnector, box *cryptoutil.Box) *Resolver {
	return &Resolver{store: store, box: box}
}

// Resolve implements §4.C for a single target belonging to skillID (already
// bound by pipeline stage 4). isAPIKeyRequired lets a provider adapter opt
// out of the "API key must exist after resolution" invariant.
func (r *Resolver) Resolve(ctx context.Context, skillID uuid.UUID, t domain.RequestTargetPreProcessed, isAPIKeyRequired func(provider string) bool) (domain.RequestTargetResolved, error) {
	if err := t.Validate(); err != nil {
		return domain.RequestTargetResolved{}, err
	}

	var resolved domain.RequestTargetResolved

	if t.ConfigurationName != "" {
		cfg, err := r.store.GetSkillConfiguration(ctx, skillID, t.ConfigurationName)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.RequestTargetResolved{}, ErrConfigurationNotFound
			}
			return domain.RequestTargetResolved{}, err
		}

		versionKey := t.ConfigurationVersion
		if versionKey == "" {
			versionKey = domain.CurrentVersionKey
		}
		version, ok := cfg.Data[versionKey]
		if !ok {
			return domain.RequestTargetResolved{}, ErrVersionNotFound
		}

		model, err := r.store.GetModel(ctx, version.Params.ModelID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.RequestTargetResolved{}, ErrModelNotFound
			}
			return domain.RequestTargetResolved{}, err
		}

		apiKey, err := r.resolveAPIKey(ctx, model.AIProviderAPIKeyID)
		if err != nil {
			return domain.RequestTargetResolved{}, err
		}

		resolved.Configuration = domain.ResolvedConfiguration{
			AIProvider:       apiKeyProvider(apiKey),
			Model:            model.ModelName,
			SystemPrompt:     template.Render(version.Params.SystemPrompt, t.SystemPromptVariables),
			Temperature:      version.Params.Temperature,
			MaxTokens:        version.Params.MaxTokens,
			TopP:             version.Params.TopP,
			FrequencyPenalty: version.Params.FrequencyPenalty,
			PresencePenalty:  version.Params.PresencePenalty,
			Stop:             version.Params.Stop,
			Seed:             version.Params.Seed,
			AdditionalParams: version.Params.AdditionalParams,
		}
		if apiKey != nil {
			resolved.APIKey = apiKey.APIKey
		}
	} else {
		// provider set; t.Validate() already enforced t.Model != "".
		resolved.Configuration = domain.ResolvedConfiguration{
			AIProvider: t.Provider,
			Model:      t.Model,
		}
	}

	if t.APIKey != "" {
		resolved.APIKey = t.APIKey
	}

	required := true
	if isAPIKeyRequired != nil {
		required = isAPIKeyRequired(resolved.Configuration.AIProvider)
	}
	if required && resolved.APIKey == "" {
		return domain.RequestTargetResolved{}, ErrAPIKeyMissing
	}

	resolved.CustomHost = t.CustomHost
	return resolved, nil
}

func (r *Resolver) resolveAPIKey(ctx context.Context, id uuid.UUID) (*domain.AIProviderAPIKey, error) {
	key, err := r.store.GetAPIKey(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAPIKeyMissing
		}
		return nil, err
	}
	if r.box == nil {
		return nil, fmt.Errorf("%w: no encryption key configured", ErrDecryptionFailed)
	}
	plain, err := r.box.Decrypt(key.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	out := *key
	out.APIKey = plain
	return &out, nil
}

func apiKeyProvider(k *domain.AIProviderAPIKey) string {
	if k == nil {
		return ""
	}
	return k.AIProvider
}

// ResolveTargets resolves the first of a RequestConfig's targets.
// TODO: spec.md's weighted multi-target fan-out (secondary targets used for
// failover/shadow traffic) is not implemented; targets[1:] are dropped here.
func (r *Resolver) ResolveTargets(ctx context.Context, skillID uuid.UUID, targets []domain.RequestTargetPreProcessed, isAPIKeyRequired func(string) bool) (domain.RequestTargetResolved, error) {
	if len(targets) == 0 {
		return domain.RequestTargetResolved{}, errors.New("resolver: no targets")
	}
	return r.Resolve(ctx, skillID, targets[0], isAPIKeyRequired)
}
