// Package template renders {{variable}} placeholders in system prompts
// against per-request system_prompt_variables.
//
// A regex-based substitution is used rather than text/template: the
// text/template scanner accepts arbitrary pipeline/function expressions
// inside its {{ }} delimiters, which is more execution power than a flat
// string→string substitution needs and would let a stored prompt reach
// into the renderer's FuncMap. See DESIGN.md FULL-TEMPLATE.
package template

import "regexp"

// placeholder matches {{name}}, trimming surrounding whitespace around name.
var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Render substitutes every {{name}} in prompt with vars[name]. Missing
// variables are left as the literal {{name}} text (Open Question (c),
// resolved as leave-as-literal — a half-rendered prompt is visibly wrong to
// a human reviewer, where a hard failure would turn a cosmetic typo in one
// stored prompt into a 422 for every request against that configuration).
func Render(prompt string, vars map[string]string) string {
	if prompt == "" || len(vars) == 0 {
		return prompt
	}
	return placeholder.ReplaceAllStringFunc(prompt, func(match string) string {
		sub := placeholder.FindStringSubmatch(match)
		if len(sub) != 2 {
			return match
		}
		if v, ok := vars[sub[1]]; ok {
			return v
		}
		return match
	})
}

// Variables returns the distinct {{name}} placeholders referenced by prompt,
// in first-occurrence order. Useful for validating a configuration's
// declared system_prompt_variables against what the prompt actually uses.
func Variables(prompt string) []string {
	matches := placeholder.FindAllStringSubmatch(prompt, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) != 2 || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}
