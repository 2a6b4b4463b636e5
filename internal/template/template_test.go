package template

import (
	"context"
	"errors"
	"testing"
	"time"

	"expandd/internal/rules"
	"expandd/internal/vars"
)

type countingProviders struct {
	now      time.Time
	cmdOut   string
	cmdErr   error
	cmdCalls int
	clip     string
}

func (c *countingProviders) Now() time.Time { return c.now }

func (c *countingProviders) RunCommand(ctx context.Context, cmd string) (string, error) {
	c.cmdCalls++
	return c.cmdOut, c.cmdErr
}

func (c *countingProviders) ReadClipboard(ctx context.Context) (string, error) {
	return c.clip, nil
}

func newRenderer(p vars.Providers) *Renderer {
	return NewRenderer(vars.NewResolver(p, time.Second))
}

func TestRenderPlainText(t *testing.T) {
	r := newRenderer(&countingProviders{})
	rule := &rules.Rule{Replace: "Best regards,\nJohn"}
	set := rules.NewSet(nil, nil)

	res := r.Render(context.Background(), rule, set)
	if res.Text != "Best regards,\nJohn" {
		t.Errorf("unexpected render: %q", res.Text)
	}
	if res.Failures != 0 {
		t.Errorf("unexpected failures: %d", res.Failures)
	}
}

func TestRenderDateVariable(t *testing.T) {
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r := newRenderer(&countingProviders{now: clock})
	rule := &rules.Rule{
		Replace: "{{date}}",
		Vars: []rules.VariableDef{
			{Name: "date", Kind: rules.VarDate, Format: "%Y"},
		},
	}
	set := rules.NewSet(nil, nil)

	res := r.Render(context.Background(), rule, set)
	if res.Text != "2024" {
		t.Errorf("expected 2024, got %q", res.Text)
	}
}

func TestRenderMemoizesWithinOneRender(t *testing.T) {
	p := &countingProviders{cmdOut: "abc123"}
	r := newRenderer(p)
	rule := &rules.Rule{
		Replace: "id={{token}} again={{token}}",
		Vars: []rules.VariableDef{
			{Name: "token", Kind: rules.VarShell, Cmd: "uuidgen"},
		},
	}
	set := rules.NewSet(nil, nil)

	res := r.Render(context.Background(), rule, set)
	if res.Text != "id=abc123 again=abc123" {
		t.Errorf("substitutions must be identical: %q", res.Text)
	}
	if p.cmdCalls != 1 {
		t.Errorf("command must run exactly once per render, ran %d times", p.cmdCalls)
	}
}

func TestRenderNoCachingAcrossRenders(t *testing.T) {
	p := &countingProviders{cmdOut: "x"}
	r := newRenderer(p)
	rule := &rules.Rule{
		Replace: "{{v}}",
		Vars:    []rules.VariableDef{{Name: "v", Kind: rules.VarShell, Cmd: "date +%s%N"}},
	}
	set := rules.NewSet(nil, nil)

	r.Render(context.Background(), rule, set)
	r.Render(context.Background(), rule, set)
	if p.cmdCalls != 2 {
		t.Errorf("shell variables are time-varying, expected 2 runs, got %d", p.cmdCalls)
	}
}

func TestRenderUndefinedVariableIsEmpty(t *testing.T) {
	r := newRenderer(&countingProviders{})
	rule := &rules.Rule{Replace: "a{{nope}}b"}
	set := rules.NewSet(nil, nil)

	res := r.Render(context.Background(), rule, set)
	if res.Text != "ab" {
		t.Errorf("undefined name must render empty: %q", res.Text)
	}
	if res.Failures != 0 {
		t.Errorf("undefined name is not a resolution failure: %d", res.Failures)
	}
}

func TestRenderFailedVariableSubstitutesEmpty(t *testing.T) {
	p := &countingProviders{cmdErr: errors.New("exit status 2")}
	r := newRenderer(p)
	rule := &rules.Rule{
		Replace: "out=[{{bad}}]",
		Vars:    []rules.VariableDef{{Name: "bad", Kind: rules.VarShell, Cmd: "false"}},
	}
	set := rules.NewSet(nil, nil)

	res := r.Render(context.Background(), rule, set)
	if res.Text != "out=[]" {
		t.Errorf("failed variable must render empty: %q", res.Text)
	}
	if res.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", res.Failures)
	}
}

func TestRenderGlobalFallbackAndShadowing(t *testing.T) {
	r := newRenderer(&countingProviders{})
	set := rules.NewSet(nil, []rules.VariableDef{
		{Name: "sig", Kind: rules.VarEcho, Format: "global sig"},
		{Name: "city", Kind: rules.VarEcho, Format: "Berlin"},
	})
	rule := &rules.Rule{
		Replace: "{{sig}} in {{city}}",
		Vars: []rules.VariableDef{
			{Name: "sig", Kind: rules.VarEcho, Format: "local sig"},
		},
	}

	res := r.Render(context.Background(), rule, set)
	if res.Text != "local sig in Berlin" {
		t.Errorf("local vars shadow globals: %q", res.Text)
	}
}

func TestRenderValueNotRescanned(t *testing.T) {
	r := newRenderer(&countingProviders{})
	set := rules.NewSet(nil, nil)
	rule := &rules.Rule{
		Replace: "{{outer}}",
		Vars: []rules.VariableDef{
			{Name: "outer", Kind: rules.VarEcho, Format: "{{inner}}"},
			{Name: "inner", Kind: rules.VarEcho, Format: "boom"},
		},
	}

	res := r.Render(context.Background(), rule, set)
	if res.Text != "{{inner}}" {
		t.Errorf("resolved values must be inserted literally: %q", res.Text)
	}
}

func TestRenderUnterminatedPlaceholder(t *testing.T) {
	r := newRenderer(&countingProviders{})
	set := rules.NewSet(nil, nil)
	rule := &rules.Rule{Replace: "text {{open"}

	res := r.Render(context.Background(), rule, set)
	if res.Text != "text {{open" {
		t.Errorf("unterminated placeholder passes through: %q", res.Text)
	}
}
