// Package template expands {{name}} placeholders in replacement text.
package template

import (
	"context"
	"strings"

	"expandd/internal/logging"
	"expandd/internal/rules"
	"expandd/internal/vars"
)

// Renderer substitutes variable values into replacement templates.
//
// Placeholders are non-nested and resolved values are inserted literally,
// never re-scanned, so a variable whose output contains "{{" cannot start
// an expansion loop.
type Renderer struct {
	resolver *vars.Resolver
}

// NewRenderer creates a renderer backed by the given variable resolver.
func NewRenderer(resolver *vars.Resolver) *Renderer {
	return &Renderer{resolver: resolver}
}

// Result carries the rendered text and how many variables failed to
// resolve. Failures substitute empty strings; they never abort a render.
type Result struct {
	Text     string
	Failures int
}

// Render expands rule.Replace. Variables are resolved lazily on first
// reference and memoized for the rest of the render: a shell variable
// referenced twice runs its command once and substitutes identically both
// times. Names resolve against the rule's local definitions first, then
// the set's globals; unknown names substitute an empty string.
func (r *Renderer) Render(ctx context.Context, rule *rules.Rule, set *rules.Set) Result {
	var (
		out      strings.Builder
		resolved map[string]string
		failures int
	)

	tmpl := rule.Replace
	for {
		start := strings.Index(tmpl, "{{")
		if start < 0 {
			out.WriteString(tmpl)
			break
		}
		end := strings.Index(tmpl[start+2:], "}}")
		if end < 0 {
			out.WriteString(tmpl)
			break
		}

		name := tmpl[start+2 : start+2+end]
		out.WriteString(tmpl[:start])
		tmpl = tmpl[start+2+end+2:]

		if resolved == nil {
			resolved = make(map[string]string)
		}
		value, seen := resolved[name]
		if !seen {
			var failed bool
			value, failed = r.resolveName(ctx, name, rule, set)
			if failed {
				failures++
			}
			resolved[name] = value
		}
		out.WriteString(value)
	}

	return Result{Text: out.String(), Failures: failures}
}

// resolveName resolves one placeholder name, returning its value and
// whether resolution failed.
func (r *Renderer) resolveName(ctx context.Context, name string, rule *rules.Rule, set *rules.Set) (string, bool) {
	def, ok := rule.LocalVar(name)
	if !ok {
		def, ok = set.Global(name)
	}
	if !ok {
		logging.Debug("template references undefined variable", "name", name)
		return "", false
	}

	value, err := r.resolver.Resolve(ctx, def)
	if err != nil {
		logging.Warn("variable resolution failed, substituting empty string",
			"name", name, "kind", def.Kind.String(), "error", err)
		return "", true
	}
	return value, false
}
