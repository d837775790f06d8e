package adapter_test

import (
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/adapter"
)

func f64(v float64) *float64 { return &v }

func TestTransform_CopyAndRequired(t *testing.T) {
	fc := adapter.AIProviderFunctionConfig{
		"model": adapter.One(adapter.ParameterConfig{Param: "model", Required: true}),
	}
	_, err := adapter.Transform(fc, map[string]any{})
	if err == nil {
		t.Fatal("expected *ErrInvalidRequest for missing required field")
	}

	out, err := adapter.Transform(fc, map[string]any{"model": "gpt-4o"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out["model"] != "gpt-4o" {
		t.Errorf("model = %v, want gpt-4o", out["model"])
	}
}

func TestTransform_DefaultFillsAbsentField(t *testing.T) {
	fc := adapter.AIProviderFunctionConfig{
		"temperature": adapter.One(adapter.ParameterConfig{Param: "temperature", Default: 0.7}),
	}
	out, err := adapter.Transform(fc, map[string]any{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want default 0.7", out["temperature"])
	}
}

func TestTransform_ClampsMinMax(t *testing.T) {
	fc := adapter.AIProviderFunctionConfig{
		"temperature": adapter.One(adapter.ParameterConfig{Param: "temperature", Min: f64(0), Max: f64(1)}),
	}
	out, err := adapter.Transform(fc, map[string]any{"temperature": 1.8})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out["temperature"] != 1.0 {
		t.Errorf("temperature = %v, want clamped to 1.0", out["temperature"])
	}
}

func TestTransform_CustomFunction(t *testing.T) {
	fc := adapter.AIProviderFunctionConfig{
		"model": adapter.One(adapter.ParameterConfig{
			Param: "model_name",
			Transform: func(body map[string]any) (any, error) {
				return "prefixed-" + body["model"].(string), nil
			},
		}),
	}
	out, err := adapter.Transform(fc, map[string]any{"model": "gpt-4o"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out["model_name"] != "prefixed-gpt-4o" {
		t.Errorf("model_name = %v, want prefixed-gpt-4o", out["model_name"])
	}
}

func TestTransform_FanOut(t *testing.T) {
	fc := adapter.AIProviderFunctionConfig{
		"size": adapter.FanOut(
			adapter.ParameterConfig{
				Param: "width",
				Transform: func(map[string]any) (any, error) { return 1024, nil },
			},
			adapter.ParameterConfig{
				Param: "height",
				Transform: func(map[string]any) (any, error) { return 768, nil },
			},
		),
	}
	out, err := adapter.Transform(fc, map[string]any{"size": "1024x768"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out["width"] != 1024 || out["height"] != 768 {
		t.Errorf("fan-out result = %+v", out)
	}
}

func TestModelCapabilities_RenameAndDrop(t *testing.T) {
	caps := &adapter.ModelCapabilities{
		Unsupported: map[string][]string{"o1": {"temperature"}},
		Renamed:     map[string]map[string]string{"o1": {"max_tokens": "max_completion_tokens"}},
	}
	body := map[string]any{"temperature": 0.5, "max_tokens": 100}
	dropped := caps.Apply("o1", body)

	if _, ok := body["temperature"]; ok {
		t.Error("temperature should have been dropped for o1")
	}
	if body["max_completion_tokens"] != 100 {
		t.Errorf("max_completion_tokens = %v, want renamed value 100", body["max_completion_tokens"])
	}
	if len(dropped) != 1 || dropped[0] != "temperature" {
		t.Errorf("dropped = %v", dropped)
	}
}
