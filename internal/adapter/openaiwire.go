package adapter

import (
	"context"
	"fmt"

	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/functions"
)

// openAIWireFunctionConfig is the shared transform table for every provider
// whose chat/completions/embeddings wire format is OpenAI's verbatim — most
// of the declarative-tier roster by count. Provider-specific configs start
// from this and override only what differs (endpoint set, headers,
// capabilities).
func openAIWireFunctionConfig() map[functions.Name]AIProviderFunctionConfig {
	chat := AIProviderFunctionConfig{
		"model":             One(ParameterConfig{Param: "model", Required: true}),
		"messages":          One(ParameterConfig{Param: "messages", Required: true}),
		"temperature":       One(ParameterConfig{Param: "temperature", Min: f(0), Max: f(2)}),
		"max_tokens":        One(ParameterConfig{Param: "max_tokens"}),
		"top_p":             One(ParameterConfig{Param: "top_p", Min: f(0), Max: f(1)}),
		"frequency_penalty": One(ParameterConfig{Param: "frequency_penalty", Min: f(-2), Max: f(2)}),
		"presence_penalty":  One(ParameterConfig{Param: "presence_penalty", Min: f(-2), Max: f(2)}),
		"stop":              One(ParameterConfig{Param: "stop"}),
		"seed":              One(ParameterConfig{Param: "seed"}),
		"stream":            One(ParameterConfig{Param: "stream"}),
		"tools":             One(ParameterConfig{Param: "tools"}),
		"tool_choice":       One(ParameterConfig{Param: "tool_choice"}),
	}
	embeddings := AIProviderFunctionConfig{
		"model": One(ParameterConfig{Param: "model", Required: true}),
		"input": One(ParameterConfig{Param: "input", Required: true}),
	}
	return map[functions.Name]AIProviderFunctionConfig{
		functions.ChatComplete:       chat,
		functions.StreamChatComplete: chat,
		functions.Embed:              embeddings,
	}
}

func f(v float64) *float64 { return &v }

func openAIWireEndpoints() func(functions.Name) string {
	return func(fn functions.Name) string {
		switch fn {
		case functions.ChatComplete, functions.StreamChatComplete:
			return "/chat/completions"
		case functions.Complete, functions.StreamComplete:
			return "/completions"
		case functions.Embed:
			return "/embeddings"
		case functions.Moderate:
			return "/moderations"
		default:
			return ""
		}
	}
}

func bearerHeaders(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}
}

func staticBaseURL(url string) func(context.Context, domain.RequestTargetResolved) string {
	return func(context.Context, domain.RequestTargetResolved) string { return url }
}

// newOpenAIWireConfig builds an AIProviderConfig for a provider whose API is
// OpenAI-wire-compatible at a fixed base URL, reusing the shared transform
// table and endpoint set above.
func newOpenAIWireConfig(name, baseURL string) *AIProviderConfig {
	return &AIProviderConfig{
		Name:        name,
		GetBaseURL:  staticBaseURL(baseURL),
		Headers:     bearerHeaders,
		GetEndpoint: openAIWireEndpoints(),
		Functions:   openAIWireFunctionConfig(),
	}
}

// Registry is the name→AIProviderConfig lookup table the dispatch stage
// queries. Built once at startup from Registered().
type Registry map[string]*AIProviderConfig

// Registered returns every declarative-tier AIProviderConfig named in
// SPEC_FULL.md §4.E: the teacher's existing openaicompat roster plus the
// spec's additionally named providers (Anyscale, AI21, SiliconFlow,
// Cloudflare Workers AI).
func Registered() Registry {
	r := Registry{}
	add := func(c *AIProviderConfig) { r[c.Name] = c }

	add(newOpenAIWireConfig("xai", "https://api.x.ai/v1"))
	add(newOpenAIWireConfig("deepseek", "https://api.deepseek.com/v1"))
	add(newOpenAIWireConfig("groq", "https://api.groq.com/openai/v1"))
	add(newOpenAIWireConfig("together", "https://api.together.xyz/v1"))
	add(newOpenAIWireConfig("perplexity", "https://api.perplexity.ai"))
	add(newOpenAIWireConfig("cerebras", "https://api.cerebras.ai/v1"))
	add(newOpenAIWireConfig("moonshot", "https://api.moonshot.cn/v1"))
	add(newOpenAIWireConfig("minimax", "https://api.minimax.chat/v1"))
	add(newOpenAIWireConfig("qwen", "https://dashscope.aliyuncs.com/compatible-mode/v1"))
	add(newOpenAIWireConfig("nebius", "https://api.studio.nebius.ai/v1"))
	add(newOpenAIWireConfig("novita", "https://api.novita.ai/v3/openai"))
	add(newOpenAIWireConfig("bytedance", "https://ark.cn-beijing.volces.com/api/v3"))
	add(newOpenAIWireConfig("zai", "https://open.bigmodel.cn/api/paas/v4"))
	add(newOpenAIWireConfig("canopywave", "https://api.canopywave.ai/v1"))
	add(newOpenAIWireConfig("inference", "https://api.inference.net/v1"))
	add(newOpenAIWireConfig("nanogpt", "https://nano-gpt.com/api/v1"))

	add(newOpenAIWireConfig("anyscale", "https://api.endpoints.anyscale.com/v1"))
	add(newOpenAIWireConfig("ai21", "https://api.ai21.com/studio/v1"))
	add(newOpenAIWireConfig("siliconflow", "https://api.siliconflow.cn/v1"))
	add(cloudflareWorkersAI())

	return r
}

// cloudflareWorkersAI is the one provider in the roster whose base URL is
// not fixed: its endpoint embeds a Cloudflare account id, extracted from
// target.CustomHost (§4.E: "api.getBaseURL(...) may inspect
// target.custom_host (e.g., Workers AI extracts account id from it)").
func cloudflareWorkersAI() *AIProviderConfig {
	cfg := newOpenAIWireConfig("cloudflare-workers-ai", "")
	cfg.GetBaseURL = func(_ context.Context, target domain.RequestTargetResolved) string {
		accountID := target.CustomHost
		return fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/ai/v1", accountID)
	}
	return cfg
}
