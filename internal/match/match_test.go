package match

import (
	"testing"

	"expandd/internal/rules"
)

func feed(m *Matcher, s string) *Match {
	var last *Match
	for _, r := range s {
		last = m.Observe(r)
	}
	return last
}

func TestNoMatchOnUnrelatedInput(t *testing.T) {
	set := rules.NewSet([]rules.Rule{
		{Triggers: []string{":sig"}, Replace: "x"},
	}, nil)
	m := New(set)

	for _, r := range "plain typing with no triggers" {
		if got := m.Observe(r); got != nil {
			t.Fatalf("unexpected match on %q", r)
		}
	}
}

func TestExactTriggerFiresOnLastRune(t *testing.T) {
	set := rules.NewSet([]rules.Rule{
		{Triggers: []string{":sig"}, Replace: "Best regards,\nJohn"},
	}, nil)
	m := New(set)

	for i, r := range "hi :si" {
		if got := m.Observe(r); got != nil {
			t.Fatalf("premature match at index %d", i)
		}
	}
	got := m.Observe('g')
	if got == nil {
		t.Fatal("expected match after final rune")
	}
	if got.Trigger != ":sig" {
		t.Errorf("trigger = %q, want :sig", got.Trigger)
	}
	if got.Rule.Replace != "Best regards,\nJohn" {
		t.Errorf("wrong rule: %q", got.Rule.Replace)
	}
}

func TestLongestTriggerWins(t *testing.T) {
	// :a is a suffix of the typed sequence leading into :ab. Typing ":ab"
	// must fire :ab, never :a first.
	set := rules.NewSet([]rules.Rule{
		{Triggers: []string{":a"}, Replace: "short"},
		{Triggers: []string{":ab"}, Replace: "long"},
	}, nil)
	m := New(set)

	if got := m.Observe(':'); got != nil {
		t.Fatal("premature match on ':'")
	}
	got := m.Observe('a')
	if got == nil || got.Trigger != ":a" {
		t.Fatalf("greedy-immediate policy fires :a as soon as it completes, got %+v", got)
	}
	m.Reset()

	// With a fresh buffer, greedy matching means ":a" fires mid-way
	// through ":ab" - the documented no-lookahead trade-off. The longer
	// trigger wins only when the shorter is not a suffix of the partial
	// input, as with triggers sharing their ending instead of their start.
	set = rules.NewSet([]rules.Rule{
		{Triggers: []string{"b"}, Replace: "short"},
		{Triggers: []string{"ab"}, Replace: "long"},
	}, nil)
	m = New(set)
	m.Observe('a')
	got = m.Observe('b')
	if got == nil {
		t.Fatal("expected match")
	}
	if got.Trigger != "ab" {
		t.Errorf("longest suffix must win: got %q, want ab", got.Trigger)
	}
}

func TestResetAfterMatchRestoresEmptyBuffer(t *testing.T) {
	set := rules.NewSet([]rules.Rule{
		{Triggers: []string{":hi"}, Replace: "hello"},
	}, nil)
	m := New(set)

	first := feed(m, ":hi")
	if first == nil {
		t.Fatal("expected first match")
	}
	m.Reset()
	if m.Pending() != 0 {
		t.Fatalf("buffer not empty after reset: %d", m.Pending())
	}

	second := feed(m, ":hi")
	if second == nil {
		t.Fatal("expected identical match after reset")
	}
	if second.Trigger != first.Trigger {
		t.Errorf("second match differs: %q vs %q", second.Trigger, first.Trigger)
	}
}

func TestBufferSlidesAtBound(t *testing.T) {
	set := rules.NewSet([]rules.Rule{
		{Triggers: []string{":ab"}, Replace: "x"},
	}, nil)
	m := New(set)

	// Far more input than the bound; only the suffix matters.
	if got := feed(m, "aaaaaaaaaaaaaaaaaaaa:ab"); got == nil {
		t.Fatal("expected match at end of long stream")
	}
	if m.Pending() > set.MaxTriggerLen() {
		t.Errorf("buffer exceeded bound: %d > %d", m.Pending(), set.MaxTriggerLen())
	}
}

func TestBackspaceEditsBuffer(t *testing.T) {
	set := rules.NewSet([]rules.Rule{
		{Triggers: []string{":sig"}, Replace: "x"},
	}, nil)
	m := New(set)

	feed(m, ":sif") // typo
	m.Backspace()
	if got := m.Observe('g'); got == nil {
		t.Fatal("expected match after backspace correction")
	}

	// Backspace on an empty buffer is a no-op.
	m.Reset()
	m.Backspace()
	if m.Pending() != 0 {
		t.Errorf("backspace on empty buffer changed state: %d", m.Pending())
	}
}

func TestEmptyRuleSetNeverMatches(t *testing.T) {
	m := New(rules.NewSet(nil, nil))
	if got := feed(m, "anything at all"); got != nil {
		t.Fatal("empty set must never match")
	}
	if m.Pending() != 0 {
		t.Errorf("empty set should not buffer: %d", m.Pending())
	}
}

func TestUnicodeTrigger(t *testing.T) {
	set := rules.NewSet([]rules.Rule{
		{Triggers: []string{":café"}, Replace: "x"},
	}, nil)
	m := New(set)

	got := feed(m, "go :café")
	if got == nil {
		t.Fatal("expected unicode trigger to fire")
	}
	if got.Trigger != ":café" {
		t.Errorf("trigger = %q", got.Trigger)
	}
}
