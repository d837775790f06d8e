package adapter

import (
	"fmt"

	"github.com/nulpointcorp/llm-gateway/internal/functions"
)

// ErrInvalidRequest is returned when a required provider field is absent
// from the canonical request body after transform (§4.E, "InvalidRequest").
type ErrInvalidRequest struct{ Field string }

func (e *ErrInvalidRequest) Error() string {
	return fmt.Sprintf("adapter: required field %q missing after transform", e.Field)
}

// Transform runs §4.E's transform algorithm: for every canonical field
// named in fc, look up its ParameterConfig(s), apply transform-or-copy,
// clamp min/max, and assign into the returned provider body. Defaults are
// filled for configured fields absent from requestBody; fields marked
// Required that remain absent fail with *ErrInvalidRequest.
func Transform(fc AIProviderFunctionConfig, requestBody map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fc))

	for field, fanout := range fc {
		val, present := requestBody[field]

		for _, pc := range fanout.Single {
			v := val
			var err error
			if present {
				if pc.Transform != nil {
					v, err = pc.Transform(requestBody)
					if err != nil {
						return nil, fmt.Errorf("adapter: transform %q: %w", field, err)
					}
				}
			} else if pc.Default != nil {
				v = pc.Default
				present = true
			}

			if !present {
				if pc.Required {
					return nil, &ErrInvalidRequest{Field: field}
				}
				continue
			}

			v = clamp(v, pc.Min, pc.Max)
			out[pc.Param] = v
		}
	}

	return out, nil
}

func clamp(v any, min, max *float64) any {
	f, ok := toFloat(v)
	if !ok {
		return v
	}
	if min != nil && f < *min {
		f = *min
	}
	if max != nil && f > *max {
		f = *max
	}
	// Preserve int-ness when the input was an int, so the provider body
	// doesn't grow a spurious ".0"; a fractional bound is truncated.
	if _, wasInt := v.(int); wasInt {
		return int(f)
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// Endpoint resolves the path suffix for fn, erroring if the provider
// declares it unsupported (§4.E: "returns empty string for unsupported
// functions").
func Endpoint(cfg *AIProviderConfig, fn functions.Name) (string, error) {
	if cfg.GetEndpoint == nil {
		return "", fmt.Errorf("adapter: %s: no endpoint table configured", cfg.Name)
	}
	ep := cfg.GetEndpoint(fn)
	if ep == "" {
		return "", fmt.Errorf("adapter: %s: function %s not supported", cfg.Name, fn)
	}
	return ep, nil
}
