// Package vars resolves template variables to text.
//
// Resolution is the only place the expansion engine touches the outside
// world beyond the character stream. All side effects go through the
// Providers capability interface so tests can substitute deterministic
// fakes for time, shell execution, and clipboard access.
package vars

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"

	"expandd/internal/rules"
)

// Providers is the capability interface consumed by the resolver.
// Implementations may be slow or failing; RunCommand and ReadClipboard
// must honor context cancellation.
type Providers interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// RunCommand executes a shell command and returns its stdout.
	RunCommand(ctx context.Context, cmd string) (string, error)

	// ReadClipboard returns the current clipboard text.
	ReadClipboard(ctx context.Context) (string, error)
}

// Resolution error taxonomy. All are per-variable and non-fatal: the
// renderer substitutes an empty string and the expansion proceeds.
var (
	// ErrInvalidFormat indicates an unparseable date format pattern.
	ErrInvalidFormat = errors.New("invalid format pattern")

	// ErrCommandFailed indicates a shell command that exited non-zero
	// or exceeded the resolution timeout.
	ErrCommandFailed = errors.New("command failed")

	// ErrClipboardUnavailable indicates the clipboard could not be read.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
)

// DefaultTimeout bounds a single shell or clipboard resolution so a
// hanging external command cannot stall the keystroke stream.
const DefaultTimeout = 5 * time.Second

// DefaultDateFormat is used when a date variable has no format parameter.
const DefaultDateFormat = "%Y-%m-%d"

// Resolver resolves variable definitions to strings.
type Resolver struct {
	providers Providers
	timeout   time.Duration
}

// NewResolver creates a resolver backed by the given providers.
// A non-positive timeout falls back to DefaultTimeout.
func NewResolver(p Providers, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{providers: p, timeout: timeout}
}

// Resolve produces the text value of one variable definition.
// Echo never fails; date fails only on an invalid pattern; shell and
// clipboard failures carry ErrCommandFailed / ErrClipboardUnavailable.
func (r *Resolver) Resolve(ctx context.Context, def rules.VariableDef) (string, error) {
	switch def.Kind {
	case rules.VarEcho:
		return def.Format, nil

	case rules.VarDate:
		pattern := def.Format
		if pattern == "" {
			pattern = DefaultDateFormat
		}
		out, err := strftime.Format(pattern, r.providers.Now())
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidFormat, pattern, err)
		}
		return out, nil

	case rules.VarShell:
		if def.Cmd == "" {
			return "", nil
		}
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		out, err := r.providers.RunCommand(cctx, def.Cmd)
		if err != nil {
			if errors.Is(cctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: timeout after %s", ErrCommandFailed, r.timeout)
			}
			return "", fmt.Errorf("%w: %v", ErrCommandFailed, err)
		}
		return out, nil

	case rules.VarClipboard:
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		out, err := r.providers.ReadClipboard(cctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
		}
		return out, nil

	default:
		// Loader filters unknown kinds; an unknown kind here is a bug.
		return "", fmt.Errorf("unhandled variable kind %v", def.Kind)
	}
}
