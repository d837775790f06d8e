package adapter

// ModelCapabilities holds per-model parameter overrides: a provider field
// can be dropped, renamed, or range-remapped for specific models (§4.E,
// e.g. max_tokens→max_completion_tokens, or temperature 0..1 → 0..2).
type ModelCapabilities struct {
	// Unsupported lists, per model, provider fields to silently drop.
	Unsupported map[string][]string
	// Renamed lists, per model, a provider-field renaming.
	Renamed map[string]map[string]string
	// RangeMap lists, per model, a linear rescale for one provider field:
	// newValue = (value - fromMin) / (fromMax - fromMin) * (toMax - toMin) + toMin.
	RangeMap map[string]map[string]Range
}

// Range is one axis of a RangeMap remap.
type Range struct {
	FromMin, FromMax float64
	ToMin, ToMax     float64
}

// Apply mutates providerBody in place according to the model's capability
// overrides. Returns the list of dropped field names, for a caller that
// wants to log "parameter unsupported for model" warnings.
func (c *ModelCapabilities) Apply(model string, providerBody map[string]any) (dropped []string) {
	if c == nil {
		return nil
	}
	for _, field := range c.Unsupported[model] {
		if _, ok := providerBody[field]; ok {
			delete(providerBody, field)
			dropped = append(dropped, field)
		}
	}
	for from, to := range c.Renamed[model] {
		if v, ok := providerBody[from]; ok {
			delete(providerBody, from)
			providerBody[to] = v
		}
	}
	for field, r := range c.RangeMap[model] {
		v, ok := providerBody[field]
		f, okFloat := toFloat(v)
		if !ok || !okFloat {
			continue
		}
		span := r.FromMax - r.FromMin
		if span == 0 {
			continue
		}
		scaled := (f-r.FromMin)/span*(r.ToMax-r.ToMin) + r.ToMin
		providerBody[field] = scaled
	}
	return dropped
}
