// Package hooks implements §4.G: running an ordered list of input/output
// hooks against a dispatch, each either an HTTP callout or a recursive LLM
// dispatch, in parallel, with results ordered back to input order
// regardless of completion order. Hook failures never fail the parent
// request (§7): a failing hook is recorded as skipped=false,
// deny_request=false with a hookProviderError metadatum.
package hooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nulpointcorp/llm-gateway/internal/cache"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
)

// Dispatcher performs one recursive gateway dispatch for an "llm"-provider
// hook. Implemented by *proxy.Gateway (DispatchHook); kept as a narrow interface
// here so internal/hooks has no import-cycle onto internal/proxy.
type Dispatcher interface {
	DispatchHook(ctx context.Context, hook domain.Hook, requestBody, responseBody []byte) (domain.HookResult, error)
}

// HTTPClient is the subset of *http.Client an http-provider hook needs.
// internal/hooks/http.go implements this over net/http directly; it is an
// interface here only so tests can substitute a fake transport cheaply.
type HTTPClient interface {
	Do(ctx context.Context, url string, payload []byte) ([]byte, error)
}

// Cache is the hook-result cache, keyed by cache.HookFingerprint. Backed by
// internal/cache.Cache in production.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Executor runs hooks per §4.G.
type Executor struct {
	HTTP       HTTPClient
	LLM        Dispatcher
	Cache      Cache
	DefaultTTL time.Duration
}

// New builds an Executor. defaultTTL is used for hook-cache writes when a
// hook does not specify its own (§4.F default_ttl_seconds=604800).
func New(httpClient HTTPClient, llm Dispatcher, c Cache, defaultTTL time.Duration) *Executor {
	if defaultTTL <= 0 {
		defaultTTL = cache.DefaultTTLSeconds * time.Second
	}
	return &Executor{HTTP: httpClient, LLM: llm, Cache: c, DefaultTTL: defaultTTL}
}

// Run executes every hook of hookType in input order, in parallel, honoring
// the hook-result cache. Run does not read Hook.Await: it waits for every
// hook, and any input hook's deny_request denies the request.
// functionName/requestBody/responseBody feed the
// hook cache fingerprint and the payload sent to http/llm hook providers.
// responseBody is nil for input hooks. Returns the ordered results
// (matching input order) and whether any input hook denied the request.
func (e *Executor) Run(ctx context.Context, hookType domain.HookType, functionName string, hooks []domain.Hook, requestBody, responseBody []byte, forceRefresh bool) ([]domain.HookLog, bool) {
	filtered := make([]domain.Hook, 0, len(hooks))
	for _, h := range hooks {
		if h.Type == hookType {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		return nil, false
	}

	logs := make([]domain.HookLog, len(filtered))
	g, gctx := errgroup.WithContext(ctx)

	for i, h := range filtered {
		i, h := i, h
		g.Go(func() error {
			logs[i] = e.runOne(gctx, h, functionName, requestBody, responseBody, forceRefresh)
			return nil
		})
	}
	_ = g.Wait() // runOne never returns an error; hook failures are captured in the log itself

	denied := false
	if hookType == domain.HookTypeInput {
		for _, l := range logs {
			if l.Result.DenyRequest {
				denied = true
				break
			}
		}
	}
	return logs, denied
}

func (e *Executor) runOne(ctx context.Context, h domain.Hook, functionName string, requestBody, responseBody []byte, forceRefresh bool) domain.HookLog {
	start := time.Now().UTC()
	log := domain.HookLog{HookID: h.ID, Type: h.Type, StartTime: start}

	if !forceRefresh && e.Cache != nil {
		key := cache.HookFingerprint(functionName, h, requestBody, responseBody)
		if raw, ok := e.Cache.Get(ctx, key); ok {
			var cached domain.HookResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				log.Result = cached
				log.EndTime = time.Now().UTC()
				return log
			}
		}
	}

	result, err := e.invoke(ctx, h, requestBody, responseBody)
	log.EndTime = time.Now().UTC()

	if err != nil {
		log.Error = "hookProviderError: " + err.Error()
		log.Result = domain.HookResult{Skipped: false, DenyRequest: false}
		return log
	}

	log.Result = result

	if e.Cache != nil && h.CacheMode != domain.CacheModeDisabled {
		key := cache.HookFingerprint(functionName, h, requestBody, responseBody)
		if raw, merr := json.Marshal(result); merr == nil {
			_ = e.Cache.Set(ctx, key, raw, e.DefaultTTL)
		}
	}

	return log
}

func (e *Executor) invoke(ctx context.Context, h domain.Hook, requestBody, responseBody []byte) (domain.HookResult, error) {
	switch h.Provider {
	case domain.HookProviderHTTP:
		return e.invokeHTTP(ctx, h, requestBody, responseBody)
	case domain.HookProviderLLM:
		if e.LLM == nil {
			return domain.HookResult{}, errNoLLMDispatcher
		}
		return e.LLM.DispatchHook(ctx, h, requestBody, responseBody)
	default:
		return domain.HookResult{}, errUnknownProvider
	}
}

func (e *Executor) invokeHTTP(ctx context.Context, h domain.Hook, requestBody, responseBody []byte) (domain.HookResult, error) {
	if e.HTTP == nil {
		return domain.HookResult{}, errNoHTTPClient
	}
	url, _ := h.Config["url"].(string)
	if url == "" {
		return domain.HookResult{}, errHookMissingURL
	}

	payload, err := json.Marshal(hookRequestEnvelope{
		HookID:       h.ID,
		RequestBody:  json.RawMessage(orNull(requestBody)),
		ResponseBody: json.RawMessage(orNull(responseBody)),
	})
	if err != nil {
		return domain.HookResult{}, err
	}

	raw, err := e.HTTP.Do(ctx, url, payload)
	if err != nil {
		return domain.HookResult{}, err
	}

	var result domain.HookResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.HookResult{}, err
	}
	return result, nil
}

type hookRequestEnvelope struct {
	HookID       uuid.UUID       `json:"hook_id"`
	RequestBody  json.RawMessage `json:"request_body"`
	ResponseBody json.RawMessage `json:"response_body,omitempty"`
}

func orNull(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}
