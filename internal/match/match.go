// Package match detects trigger completion in a live keystroke stream.
//
// The matcher keeps a rolling buffer of the most recently observed runes,
// bounded to the longest trigger in the rule set. There is no lookahead and
// no backtracking: at every keystroke the buffer's suffix is checked
// against the rule set and the longest matching trigger fires immediately.
// A shorter trigger that is a suffix of a longer one therefore wins only
// when the longer one has not just been completed; the matcher never waits
// for input that may not come.
package match

import (
	"expandd/internal/rules"
)

// Match reports a completed trigger.
type Match struct {
	// Rule is the winning rule.
	Rule *rules.Rule

	// Trigger is the exact typed sequence that completed, used by the
	// engine to compute how many characters to erase.
	Trigger string
}

// Matcher holds the rolling keystroke buffer for one rule set.
// It is not safe for concurrent use; the engine feeds it from a single
// goroutine.
type Matcher struct {
	set *rules.Set
	buf []rune
	max int
}

// New creates a matcher for the given rule set.
func New(set *rules.Set) *Matcher {
	max := set.MaxTriggerLen()
	return &Matcher{
		set: set,
		buf: make([]rune, 0, max),
		max: max,
	}
}

// Observe appends one typed rune and reports a completed trigger, if any.
// When several triggers are suffixes of the buffer simultaneously the
// longest fires (greedy-longest-immediate); ties cannot occur because
// duplicate triggers are resolved at rule-set construction.
//
// Observe has no side effects beyond buffer mutation. The caller resets
// the matcher once a match is consumed.
func (m *Matcher) Observe(r rune) *Match {
	if m.max == 0 {
		return nil
	}

	if len(m.buf) == m.max {
		copy(m.buf, m.buf[1:])
		m.buf = m.buf[:m.max-1]
	}
	m.buf = append(m.buf, r)

	trigger, rule, ok := m.set.LongestSuffix(m.buf)
	if !ok {
		return nil
	}
	return &Match{Rule: rule, Trigger: trigger}
}

// Backspace drops the most recent buffered rune, keeping the buffer
// consistent with what is on screen after the user corrects a typo.
func (m *Matcher) Backspace() {
	if len(m.buf) > 0 {
		m.buf = m.buf[:len(m.buf)-1]
	}
}

// Reset clears the buffer. Called by the engine after every fired match
// and by the input source on out-of-band signals that break continuity of
// the typed sequence (cursor movement, focus change, control keys).
func (m *Matcher) Reset() {
	m.buf = m.buf[:0]
}

// Pending returns the number of buffered runes.
func (m *Matcher) Pending() int {
	return len(m.buf)
}
