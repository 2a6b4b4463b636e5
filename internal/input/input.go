// Package input turns raw keyboard device events into the resolved
// character stream the expansion engine consumes.
//
// The engine never sees keycodes: this package owns device discovery,
// press/release tracking, shift state, and the keycode-to-rune mapping.
// What comes out is a flat stream of Events - a printable rune, a
// backspace, or a reset signal for keys that break continuity of the
// typed sequence.
package input

import (
	"context"
	"errors"
	"sync"
)

// Kind discriminates input events.
type Kind int

const (
	// KindChar is a printable character to append to the match buffer.
	KindChar Kind = iota
	// KindBackspace removes the most recent character.
	KindBackspace
	// KindReset invalidates continuity of the typed sequence
	// (Enter, Tab, Esc, cursor movement).
	KindReset
)

// Event is one resolved input event.
type Event struct {
	Kind Kind
	Rune rune
}

// Char builds a character event.
func Char(r rune) Event { return Event{Kind: KindChar, Rune: r} }

// Backspace builds a backspace event.
func Backspace() Event { return Event{Kind: KindBackspace} }

// Reset builds a reset event.
func Reset() Event { return Event{Kind: KindReset} }

// Source produces the resolved event stream.
type Source interface {
	// Start begins reading events. The stream ends when ctx is
	// canceled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops reading and closes the event channel.
	Stop() error

	// Events returns the resolved event stream.
	Events() <-chan Event

	// Suppress discards device input for the given number of
	// milliseconds. The output sink's injected keystrokes would
	// otherwise feed back into the match buffer.
	Suppress(ms int)
}

// ErrNoKeyboard is returned when no readable keyboard device is found.
var ErrNoKeyboard = errors.New("no readable keyboard device found")

// ErrAlreadyRunning is returned when Start is called twice.
var ErrAlreadyRunning = errors.New("input source already running")

// Simulated is a Source for tests that is fed programmatically instead of
// hooking a real keyboard.
type Simulated struct {
	mu      sync.Mutex
	running bool
	events  chan Event
	cancel  context.CancelFunc
}

// NewSimulated creates a simulated input source.
func NewSimulated() *Simulated {
	return &Simulated{events: make(chan Event, 64)}
}

// Start begins the simulated source.
func (s *Simulated) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	_, s.cancel = context.WithCancel(ctx)
	s.running = true
	return nil
}

// Stop stops the simulated source and closes the stream.
func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	s.running = false
	close(s.events)
	return nil
}

// Events returns the event stream.
func (s *Simulated) Events() <-chan Event {
	return s.events
}

// Suppress is a no-op for the simulated source.
func (s *Simulated) Suppress(ms int) {}

// Type feeds a string of printable characters.
func (s *Simulated) Type(text string) {
	for _, r := range text {
		s.events <- Char(r)
	}
}

// Press feeds one raw event.
func (s *Simulated) Press(ev Event) {
	s.events <- ev
}
