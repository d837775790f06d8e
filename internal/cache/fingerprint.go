package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// DefaultTTLSeconds is the §4.F default max_age for a cache record.
const DefaultTTLSeconds = 604800

// Status is the outcome of a cache lookup/write per §4.F.
type Status string

const (
	StatusHit      Status = "HIT"
	StatusMiss     Status = "MISS"
	StatusRefresh  Status = "REFRESH"
	StatusDisabled Status = "DISABLED"
)

// Fingerprint computes the §4.F request-cache key:
// SHA-256(functionName + "-" + JSON(requestBody)), with requestBody
// serialized through a deterministic (stable key order) JSON encoding.
func Fingerprint(functionName string, requestBody any) string {
	return sha256Hex(functionName + "-" + stableJSON(requestBody))
}

// HookFingerprint computes the §4.F hook-cache key:
// SHA-256(functionName + "-" + JSON(hook) + "-" + JSON(requestBody) + "-" + JSON(responseBody?)).
// responseBody may be nil for input hooks, which have no response yet.
func HookFingerprint(functionName string, hook, requestBody, responseBody any) string {
	parts := functionName + "-" + stableJSON(hook) + "-" + stableJSON(requestBody) + "-" + stableJSON(responseBody)
	return sha256Hex(parts)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// stableJSON marshals v through a map with sorted keys at every level, so
// that two structurally-identical values always produce byte-identical
// JSON regardless of map iteration order or field order.
func stableJSON(v any) string {
	if v == nil {
		return "null"
	}
	// Round-trip through interface{} so map[string]any keys sort deterministically;
	// encoding/json already sorts map[string]T keys when marshaling, but we
	// normalize structs into maps first so field order never leaks through.
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return string(raw)
	}
	out, _ := json.Marshal(sortedValue(generic))
	return string(out)
}

// sortedValue recursively rebuilds maps as sorted-key ordered structures.
// encoding/json already sorts map[string]any keys on Marshal, so this
// mainly exists to make the determinism explicit and handle nested slices.
func sortedValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = sortedValue(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortedValue(e)
		}
		return out
	default:
		return t
	}
}
