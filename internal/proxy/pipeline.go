package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nulpointcorp/llm-gateway/internal/canonical"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/functions"
	"github.com/nulpointcorp/llm-gateway/internal/providers"
	"github.com/nulpointcorp/llm-gateway/internal/resolver"
	"github.com/nulpointcorp/llm-gateway/pkg/apierr"
	"github.com/valyala/fasthttp"
)

// Pipeline is the staged dispatcher behind POST /v1/chat/completions and
// POST /v1/completions. It classifies the request, optionally binds it to a
// stored Agent/Skill via the x-idk-config/ra-config header, resolves the
// dispatch target, runs hooks, talks to the provider (with failover and
// caching unchanged from the header-less path), and persists a Log entry
// for bound dispatches.
//
// A request with no configuration header skips binding, resolution, and log
// persistence entirely and behaves exactly as the flat model-name routing
// always has — this keeps direct/unbound callers (and every test written
// against them) unaffected by the staged path added for bound callers.
type Pipeline struct {
	g *Gateway
}

func newPipeline(g *Gateway) *Pipeline {
	return &Pipeline{g: g}
}

// chatRequestBody is the canonical chat completion body plus the
// client-declared §4.G hook bolt-on. Embedding canonical.ChatCompletionRequest
// keeps Validate() and every canonical field available without copying them.
type chatRequestBody struct {
	canonical.ChatCompletionRequest
	Hooks []domain.Hook `json:"hooks,omitempty"`
}

// dispatch is the core handler for /v1/chat/completions and /v1/completions.
func (p *Pipeline) dispatch(ctx *fasthttp.RequestCtx) {
	g := p.g
	start := time.Now()
	path := string(ctx.Path())
	route := "chat_completions"
	if path == "/v1/completions" {
		route = "completions"
	}
	reqBytes := len(ctx.PostBody())
	servedProvider := "unknown"
	cacheLabel := "bypass" // hit|miss|bypass
	inputTokens, outputTokens := 0, 0
	cached := false
	streaming := false
	respBytes := -1

	if g.metrics != nil {
		g.metrics.IncInFlight()
	}
	defer func() {
		if g.metrics == nil {
			return
		}
		if streaming {
			return // finalised by the stream writer
		}
		g.metrics.DecInFlight()
		status := ctx.Response.StatusCode()
		dur := time.Since(start)
		if respBytes < 0 {
			respBytes = len(ctx.Response.Body())
		}
		g.metrics.ObserveHTTP(route, status, dur, reqBytes, respBytes)
		g.metrics.RecordRequest(servedProvider, status, dur.Milliseconds())
		g.metrics.ObserveGatewayRequest(servedProvider, route, cacheLabel, dur)
		g.metrics.AddTokens(servedProvider, route, inputTokens, outputTokens, cached)
	}()

	reqID, _ := ctx.UserValue("request_id").(string)
	clientKey, clientKeyID := g.extractClientAPIKey(ctx)

	// 1. Parse request body.
	var body chatRequestBody
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil {
		apierr.Write(ctx, fasthttp.StatusBadRequest,
			fmt.Sprintf("invalid JSON: %s", err.Error()),
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}
	if err := body.Validate(); err != nil {
		apierr.Write(ctx, fasthttp.StatusBadRequest, err.Error(),
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}

	// 2. Classify the canonical function this route/method/stream shape maps to.
	fn := functions.Classify("POST", path, body.Stream)

	// 3. Parse the optional per-request configuration header.
	cfg, err := parseRequestConfig(ctx)
	if err != nil {
		apierr.Write(ctx, fasthttp.StatusBadRequest,
			fmt.Sprintf("invalid request configuration header: %s", err.Error()),
			apierr.TypeInvalidRequest, apierr.CodeInvalidRequest)
		return
	}

	var (
		agentID, skillID uuid.UUID
		bound            bool
		resolvedTarget   domain.RequestTargetResolved
	)

	// 4. Agent/skill binding + target resolution (§4.C). Header-less requests
	// skip this stage entirely and keep today's flat model→provider routing.
	if cfg.AgentName != "" && g.store != nil && g.resolver != nil {
		agent, err := g.store.GetAgentByName(ctx, "", cfg.AgentName)
		if err != nil {
			apierr.WriteNotFound(ctx, "agent not found: "+cfg.AgentName, apierr.CodeAgentNotFound)
			return
		}
		skill, err := g.store.GetSkillByName(ctx, agent.ID, cfg.SkillName)
		if err != nil {
			apierr.WriteNotFound(ctx, "skill not found: "+cfg.SkillName, apierr.CodeSkillNotFound)
			return
		}
		agentID, skillID = agent.ID, skill.ID

		targets := cfg.Targets
		if len(targets) == 0 {
			targets = []domain.RequestTargetPreProcessed{{Provider: resolveProvider(body.Model), Model: body.Model}}
		}
		resolvedTarget, err = g.resolver.ResolveTargets(ctx, skill.ID, targets, nil)
		if err != nil {
			writeResolveError(ctx, err)
			return
		}
		bound = true
	}

	// 5. Input hooks (§4.G). Agent/skill-scoped hooks (cfg.Hooks) take
	// precedence over the client-declared bolt-on (body.Hooks) when both
	// are present; a bound dispatch is expected to carry its hooks via the
	// configuration header, not the request body.
	activeHooks := body.Hooks
	if len(cfg.Hooks) > 0 {
		activeHooks = cfg.Hooks
	}
	if len(activeHooks) > 0 && g.hookExecutor != nil {
		logs, denied := g.hookExecutor.Run(ctx, domain.HookTypeInput, string(fn), activeHooks, ctx.PostBody(), nil, cfg.ForceHookRefresh)
		if denied {
			apierr.WriteHookDenied(ctx, "request denied by input hook")
			return
		}
		for _, l := range logs {
			if len(l.Result.RequestBodyOverride) > 0 {
				if err := json.Unmarshal(l.Result.RequestBodyOverride, &body); err != nil {
					apierr.Write(ctx, fasthttp.StatusBadGateway,
						"input hook returned an unparseable request body override",
						apierr.TypeShapeError, apierr.CodeShapeError)
					return
				}
			}
		}
	}

	// 6. Route to provider. A bound target's resolved configuration wins
	// over the flat model-name heuristic.
	model := body.Model
	providerName := resolveProvider(model)
	if bound {
		providerName = resolvedTarget.Configuration.AIProvider
	}
	servedProvider = providerName

	g.log.InfoContext(ctx, "request",
		slog.String("request_id", reqID),
		slog.String("model", model),
		slog.String("provider", providerName),
		slog.String("function", string(fn)),
		slog.Bool("stream", body.Stream),
		slog.Bool("bound", bound),
	)

	if len(g.providers) == 0 {
		apierr.Write(ctx, fasthttp.StatusBadGateway,
			"no providers configured",
			apierr.TypeProviderError, apierr.CodeProviderError)
		return
	}

	// 7. Rate limit check (RPM).
	if g.rpmLimiter != nil {
		allowed, err := g.rpmLimiter.Allow(ctx)
		if err == nil && !allowed {
			if g.metrics != nil {
				g.metrics.RecordRateLimit("blocked")
			}
			g.log.WarnContext(ctx, "rate_limit_exceeded",
				slog.String("request_id", reqID),
				slog.String("provider", providerName),
			)
			apierr.WriteRateLimit(ctx)
			return
		}
		if g.metrics != nil {
			if err != nil {
				g.metrics.RecordRateLimit("error")
			} else {
				g.metrics.RecordRateLimit("allowed")
			}
		}
	}

	// 8. Build the normalized ProxyRequest. A bound target's resolved model,
	// system prompt, and parameters override the client-supplied ones.
	msgs := make([]providers.Message, 0, len(body.Messages)+1)
	apiKey, apiKeyID := clientKey, clientKeyID
	temperature := derefFloat(body.Temperature)
	maxTokens := derefInt(body.MaxTokens)

	if bound {
		if resolvedTarget.Configuration.Model != "" {
			model = resolvedTarget.Configuration.Model
		}
		if resolvedTarget.Configuration.SystemPrompt != "" {
			msgs = append(msgs, providers.Message{Role: "system", Content: resolvedTarget.Configuration.SystemPrompt})
		}
		if resolvedTarget.Configuration.Temperature != nil {
			temperature = *resolvedTarget.Configuration.Temperature
		}
		if resolvedTarget.Configuration.MaxTokens != nil {
			maxTokens = *resolvedTarget.Configuration.MaxTokens
		}
		if resolvedTarget.APIKey != "" {
			apiKey, apiKeyID = resolvedTarget.APIKey, ""
		}
	}
	for _, m := range body.Messages {
		msgs = append(msgs, providers.Message{Role: m.Role, Content: contentToString(m.Content)})
	}

	proxyReq := &providers.ProxyRequest{
		Model:       model,
		Messages:    msgs,
		Stream:      body.Stream,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		RequestID:   reqID,
		APIKey:      apiKey,
		APIKeyID:    apiKeyID,
	}

	// 9. Tool capture (§4.B stage 10) — best-effort, never blocks dispatch.
	if bound && len(body.Tools) > 0 && functions.IsChatShaped(fn) {
		p.captureTools(agentID, body.Tools)
	}

	// 10. Cache lookup — non-streaming only; skip excluded models.
	cacheEligible := !body.Stream && g.cache != nil && (g.cacheExclusions == nil || !g.cacheExclusions.Matches(model))
	if g.metrics != nil && !cacheEligible {
		g.metrics.CacheGetBypass()
	}
	if cacheEligible {
		cacheKey := buildCacheKey(proxyReq)
		if cachedBody, ok := g.cache.Get(ctx, cacheKey); ok {
			cacheLabel = "hit"
			cached = true
			respBytes = len(cachedBody)
			if g.metrics != nil {
				g.metrics.CacheGetHit()
			}
			g.log.DebugContext(ctx, "cache_hit",
				slog.String("request_id", reqID),
				slog.String("model", model),
			)
			ctx.Response.Header.Set("X-Cache", xCacheHIT)
			ctx.SetContentType("application/json")
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBody(cachedBody)

			var cu struct {
				Model string `json:"model"`
				Usage struct {
					PromptTokens     int `json:"prompt_tokens"`
					CompletionTokens int `json:"completion_tokens"`
				} `json:"usage"`
			}
			if err := json.Unmarshal(cachedBody, &cu); err == nil {
				inputTokens = cu.Usage.PromptTokens
				outputTokens = cu.Usage.CompletionTokens
			}

			g.logRequest(reqID, providerName, model,
				inputTokens, outputTokens, time.Since(start), fasthttp.StatusOK, true)
			p.appendLog(agentID, skillID, fn, route, model, providerName, start,
				fasthttp.StatusOK, domain.CacheStatusHit, nil, cfg.TraceID)
			return
		}
		cacheLabel = "miss"
		if g.metrics != nil {
			g.metrics.CacheGetMiss()
		}
	}

	// 11. Call provider with automatic failover.
	provCtx, cancel := context.WithTimeout(ctx, g.providerTimeout)
	defer cancel()

	resp, usedProvider, err := g.requestWithFailover(provCtx, proxyReq, providerName, route)
	if err != nil {
		g.log.ErrorContext(ctx, "provider_error",
			slog.String("request_id", reqID),
			slog.String("primary_provider", providerName),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		handleProviderError(ctx, err)
		g.logRequest(reqID, providerName, model,
			0, 0, time.Since(start), fasthttp.StatusBadGateway, false)
		p.appendLog(agentID, skillID, fn, route, model, providerName, start,
			fasthttp.StatusBadGateway, domain.CacheStatusMiss, err, cfg.TraceID)
		return
	}
	servedProvider = usedProvider

	// 12a. Streaming — SSE pass-through. Responses are never cached for streams.
	if body.Stream && resp.Stream != nil {
		streaming = true
		capturedStart := start
		capturedReqBytes := reqBytes
		capturedRoute := route
		capturedProvider := usedProvider
		writeSSE(ctx, resp, func(outTok int) {
			g.logRequest(reqID, usedProvider, resp.Model,
				0, outTok, time.Since(capturedStart), fasthttp.StatusOK, false)
			p.appendLog(agentID, skillID, fn, route, resp.Model, usedProvider, capturedStart,
				fasthttp.StatusOK, domain.CacheStatusDisabled, nil, cfg.TraceID)
			if g.metrics != nil {
				dur := time.Since(capturedStart)
				g.metrics.ObserveHTTP(capturedRoute, fasthttp.StatusOK, dur, capturedReqBytes, -1)
				g.metrics.RecordRequest(capturedProvider, fasthttp.StatusOK, dur.Milliseconds())
				g.metrics.ObserveGatewayRequest(capturedProvider, capturedRoute, "bypass", dur)
				g.metrics.AddTokens(capturedProvider, capturedRoute, 0, outTok, false)
				g.metrics.DecInFlight()
			}
		})
		return
	}

	// 12b. Non-streaming — build an OpenAI-compatible response envelope.
	out := outboundResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []outboundChoice{
			{
				Index:        0,
				Message:      outboundMessage{Role: "assistant", Content: resp.Content},
				FinishReason: "stop",
			},
		},
		Usage: outboundUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	respBody, err := json.Marshal(out)
	if err != nil {
		apierr.Write(ctx, fasthttp.StatusInternalServerError,
			"failed to serialize response", apierr.TypeServerError, apierr.CodeInternalError)
		return
	}

	// 13. Output hooks (§4.G). A ResponseBodyOverride from the last hook in
	// input order wins; output hooks never deny.
	if len(activeHooks) > 0 && g.hookExecutor != nil {
		logs, _ := g.hookExecutor.Run(ctx, domain.HookTypeOutput, string(fn), activeHooks, ctx.PostBody(), respBody, cfg.ForceHookRefresh)
		for _, l := range logs {
			if len(l.Result.ResponseBodyOverride) > 0 {
				respBody = l.Result.ResponseBodyOverride
			}
		}
	}

	// 14. Populate cache for future identical requests.
	if cacheEligible {
		cacheKey := buildCacheKey(proxyReq)
		if err := g.cache.Set(ctx, cacheKey, respBody, g.cacheTTL); err != nil {
			if g.metrics != nil {
				g.metrics.CacheSetError()
			}
		} else if g.metrics != nil {
			g.metrics.CacheSetOK()
		}
	}

	// 15. Emit request log entries asynchronously — the legacy logger.RequestLog
	// sink always runs; the §6 storage.Log sink only runs for bound dispatches.
	g.logRequest(reqID, usedProvider, resp.Model,
		resp.Usage.InputTokens, resp.Usage.OutputTokens,
		time.Since(start), fasthttp.StatusOK, false)
	p.appendLog(agentID, skillID, fn, route, resp.Model, usedProvider, start,
		fasthttp.StatusOK, cacheStatusFor(cacheEligible), nil, cfg.TraceID)

	inputTokens = resp.Usage.InputTokens
	outputTokens = resp.Usage.OutputTokens
	if cacheEligible {
		cacheLabel = "miss"
	} else {
		cacheLabel = "bypass"
	}

	g.log.DebugContext(ctx, "response_ok",
		slog.String("request_id", reqID),
		slog.String("used_provider", usedProvider),
		slog.String("model", resp.Model),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.Duration("elapsed", time.Since(start)),
	)

	ctx.Response.Header.Set("X-Cache", xCacheMISS)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.SetBody(respBody)
	respBytes = len(respBody)
}

// parseRequestConfig reads the x-idk-config header (ra-config as a fallback
// name) into a domain.RequestConfig. A missing header is not an error — it
// just means the request stays unbound.
func parseRequestConfig(ctx *fasthttp.RequestCtx) (domain.RequestConfig, error) {
	var cfg domain.RequestConfig
	raw := ctx.Request.Header.Peek("X-Idk-Config")
	if len(raw) == 0 {
		raw = ctx.Request.Header.Peek("Ra-Config")
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// writeResolveError maps a resolver.Resolve/ResolveTargets failure onto the
// §7 status code the apierr package already defines for it.
func writeResolveError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, resolver.ErrConfigurationNotFound):
		apierr.WriteUnprocessable(ctx, err.Error(), apierr.CodeConfigurationNotFound)
	case errors.Is(err, resolver.ErrVersionNotFound):
		apierr.WriteUnprocessable(ctx, err.Error(), apierr.CodeConfigurationVersionNotFound)
	case errors.Is(err, resolver.ErrModelNotFound):
		apierr.WriteUnprocessable(ctx, err.Error(), apierr.CodeModelNotFound)
	case errors.Is(err, resolver.ErrAPIKeyMissing):
		apierr.WriteUnprocessable(ctx, err.Error(), apierr.CodeAPIKeyMissing)
	case errors.Is(err, resolver.ErrDecryptionFailed):
		apierr.WriteDecryptionFailed(ctx, err.Error())
	default:
		apierr.WriteUnprocessable(ctx, err.Error(), apierr.CodeShapeError)
	}
}

// captureTools persists each declared tool spec once per agent, keyed by its
// content hash (§4.B stage 10). Storage writes run off the request's
// goroutine so a slow or failing store never delays the response.
func (p *Pipeline) captureTools(agentID uuid.UUID, tools []canonical.Tool) {
	g := p.g
	for _, t := range tools {
		spec, err := json.Marshal(t)
		if err != nil {
			continue
		}
		sum := sha256.Sum256(spec)
		rec := &domain.Tool{
			ID:        uuid.New(),
			AgentID:   agentID,
			Hash:      hex.EncodeToString(sum[:]),
			Spec:      string(spec),
			CreatedAt: time.Now(),
		}
		go func(rec *domain.Tool) {
			if err := g.store.CaptureTool(g.baseCtx, rec); err != nil {
				g.log.Warn("tool_capture_failed", slog.String("error", err.Error()))
			}
		}(rec)
	}
}

// appendLog persists a domain.Log entry for a bound (agent/skill-scoped)
// dispatch. Header-less requests have no agent/skill to attribute the log
// to and are skipped — they keep relying solely on the legacy
// logger.RequestLog sink set up by Gateway.logRequest.
func (p *Pipeline) appendLog(
	agentID, skillID uuid.UUID,
	fn functions.Name,
	endpoint, model, provider string,
	start time.Time,
	status int,
	cacheStatus domain.CacheStatus,
	dispatchErr error,
	traceID string,
) {
	g := p.g
	if g.store == nil || (agentID == uuid.Nil && skillID == uuid.Nil) {
		return
	}

	entry := &domain.Log{
		ID:           uuid.New(),
		AgentID:      agentID,
		SkillID:      skillID,
		Method:       "POST",
		Endpoint:     endpoint,
		FunctionName: string(fn),
		Status:       status,
		StartTime:    start,
		EndTime:      time.Now(),
		AIProvider:   provider,
		Model:        model,
		CacheStatus:  cacheStatus,
		TraceID:      traceID,
	}
	if dispatchErr != nil {
		entry.Metadata = map[string]any{"error": dispatchErr.Error()}
	}

	go func() {
		if err := g.store.AppendLog(g.baseCtx, entry); err != nil {
			g.log.Warn("append_log_failed", slog.String("error", err.Error()))
		}
	}()
}

func cacheStatusFor(eligible bool) domain.CacheStatus {
	if eligible {
		return domain.CacheStatusMiss
	}
	return domain.CacheStatusDisabled
}

// contentToString normalizes a ChatMessage.Content value (string, or an
// OpenAI multi-part content array/object) into the flat string
// providers.Message carries. Non-string content round-trips through JSON
// rather than being dropped, so providers still see something of the
// original payload.
func contentToString(c any) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
