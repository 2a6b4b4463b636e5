// Package engine drives trigger matching and expansion.
//
// The engine is a pure translation from "one more input event happened"
// to "optionally, an edit instruction". All matching state lives here;
// the caller owns the input stream and the output sink.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"expandd/internal/input"
	"expandd/internal/logging"
	"expandd/internal/match"
	"expandd/internal/rules"
	"expandd/internal/template"
)

// Edit instructs the output sink to erase DeleteCount characters and
// insert Insert in their place. DeleteCount is measured in runes, the
// same unit the input source resolves and the sink deletes by.
type Edit struct {
	DeleteCount int
	Insert      string
}

// Recorder persists fired expansions. Implementations must not block
// the keystroke path for long; recording happens after the edit is
// computed.
type Recorder interface {
	RecordExpansion(trigger string, insertLen, failures int, took time.Duration)
}

// Notifier surfaces variable resolution failures to the user out of
// band. Failures never reach the keystroke stream.
type Notifier interface {
	ResolutionFailed(trigger string, failures int)
}

// state bundles one rule set with its matcher so an in-flight event
// always sees a consistent pair. Hot reload swaps the whole bundle with
// a single atomic pointer replace.
type state struct {
	set     *rules.Set
	matcher *match.Matcher
}

// Engine feeds input events to the matcher and renders expansions.
type Engine struct {
	current  atomic.Pointer[state]
	renderer *template.Renderer
	recorder Recorder
	notifier Notifier

	paused     atomic.Bool
	events     atomic.Uint64
	expansions atomic.Uint64
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithRecorder attaches an expansion recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithNotifier attaches a failure notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an engine over the given rule set.
func New(set *rules.Set, renderer *template.Renderer, opts ...Option) *Engine {
	e := &Engine{renderer: renderer}
	e.current.Store(&state{set: set, matcher: match.New(set)})
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnEvent consumes one input event and returns an edit instruction when
// a trigger just completed, nil otherwise. Events must arrive from a
// single goroutine in typing order.
func (e *Engine) OnEvent(ctx context.Context, ev input.Event) *Edit {
	e.events.Add(1)
	st := e.current.Load()

	switch ev.Kind {
	case input.KindReset:
		st.matcher.Reset()
		return nil
	case input.KindBackspace:
		st.matcher.Backspace()
		return nil
	}

	m := st.matcher.Observe(ev.Rune)
	if m == nil {
		return nil
	}
	if e.paused.Load() {
		// Paused: keep observing so the buffer tracks the screen, but
		// never fire.
		return nil
	}

	// The match is consumed now; reset unconditionally, whatever
	// rendering does.
	defer st.matcher.Reset()

	start := time.Now()
	res := e.renderer.Render(ctx, m.Rule, st.set)
	took := time.Since(start)

	e.expansions.Add(1)
	logging.Debug("expansion fired",
		"trigger", m.Trigger,
		"insert_len", len(res.Text),
		"failures", res.Failures,
		"took", took)

	if e.recorder != nil {
		e.recorder.RecordExpansion(m.Trigger, len(res.Text), res.Failures, took)
	}
	if e.notifier != nil && res.Failures > 0 {
		e.notifier.ResolutionFailed(m.Trigger, res.Failures)
	}

	return &Edit{
		DeleteCount: len([]rune(m.Trigger)),
		Insert:      res.Text,
	}
}

// SetRules atomically swaps in a new rule set. The match buffer starts
// empty under the new set; a half-typed trigger from before the reload
// is deliberately forgotten.
func (e *Engine) SetRules(set *rules.Set) {
	e.current.Store(&state{set: set, matcher: match.New(set)})
	logging.Info("rule set swapped", "triggers", set.Len())
}

// Rules returns the rule set in effect.
func (e *Engine) Rules() *rules.Set {
	return e.current.Load().set
}

// Pause stops the engine from firing; events are still consumed.
func (e *Engine) Pause() {
	e.paused.Store(true)
}

// Resume re-enables firing.
func (e *Engine) Resume() {
	e.paused.Store(false)
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

// Stats returns cumulative event and expansion counters.
func (e *Engine) Stats() (events, expansions uint64) {
	return e.events.Load(), e.expansions.Load()
}
