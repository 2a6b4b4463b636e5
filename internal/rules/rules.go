// Package rules holds the immutable in-memory rule set that the expansion
// engine matches typed text against.
//
// A Set is built once from the loader's output and never mutated. Hot reload
// builds a fresh Set and swaps it in atomically at the engine; an in-flight
// match always sees one consistent Set.
package rules

import (
	"fmt"
	"sort"

	"expandd/internal/logging"
)

// VarKind identifies how a variable produces its value.
type VarKind int

const (
	// VarEcho returns its format parameter verbatim.
	VarEcho VarKind = iota
	// VarDate formats the current time with a strftime pattern.
	VarDate
	// VarShell runs a shell command and captures stdout.
	VarShell
	// VarClipboard reads the current clipboard text.
	VarClipboard
)

// String returns the espanso type name for the kind.
func (k VarKind) String() string {
	switch k {
	case VarEcho:
		return "echo"
	case VarDate:
		return "date"
	case VarShell:
		return "shell"
	case VarClipboard:
		return "clipboard"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// ParseVarKind maps an espanso variable type name to a VarKind.
func ParseVarKind(s string) (VarKind, error) {
	switch s {
	case "echo":
		return VarEcho, nil
	case "date":
		return VarDate, nil
	case "shell":
		return VarShell, nil
	case "clipboard":
		return VarClipboard, nil
	default:
		return 0, fmt.Errorf("unknown variable type: %q", s)
	}
}

// VariableDef is a named, typed computation producing text for a template.
// Format is used by date (strftime pattern) and echo (literal value);
// Cmd is used by shell; clipboard takes no parameters.
type VariableDef struct {
	Name   string
	Kind   VarKind
	Format string
	Cmd    string
}

// Rule maps one or more trigger strings to a replacement template.
// Vars are the rule-local variable definitions, in declaration order.
type Rule struct {
	Triggers []string
	Replace  string
	Vars     []VariableDef
}

// LocalVar returns the rule-local variable definition with the given name.
func (r *Rule) LocalVar(name string) (VariableDef, bool) {
	for _, v := range r.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return VariableDef{}, false
}

// Set is the complete, immutable collection of rules and global variables
// for one daemon session.
type Set struct {
	rules   []*Rule
	byOrder []string // triggers in load order, for listing
	globals map[string]VariableDef
	suffix  *trieNode
	maxLen  int // longest trigger, in runes
}

// trieNode is one node of the reverse trie indexing triggers by suffix.
// Triggers are inserted last-rune-first so that a lookup walks the keystroke
// buffer backwards; cost per keystroke is bounded by the length of the
// longest trigger, not the number of rules.
type trieNode struct {
	children map[rune]*trieNode
	rule     *Rule  // non-nil if a full trigger ends at this node
	trigger  string // the trigger that ends here
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// NewSet builds a Set from loader output. The loader has already filtered
// malformed and unsupported entries; NewSet only resolves trigger conflicts.
// A trigger appearing in more than one rule is a configuration conflict:
// the first-loaded rule wins and the duplicate is logged and dropped.
func NewSet(in []Rule, globals []VariableDef) *Set {
	s := &Set{
		globals: make(map[string]VariableDef),
		suffix:  newTrieNode(),
	}

	for _, g := range globals {
		if _, dup := s.globals[g.Name]; dup {
			logging.Warn("duplicate global variable, keeping first", "name", g.Name)
			continue
		}
		s.globals[g.Name] = g
	}

	seen := make(map[string]bool)
	for i := range in {
		rule := in[i]
		kept := make([]string, 0, len(rule.Triggers))
		for _, trig := range rule.Triggers {
			if trig == "" {
				continue
			}
			if seen[trig] {
				logging.Warn("duplicate trigger, keeping first-loaded rule", "trigger", trig)
				continue
			}
			seen[trig] = true
			kept = append(kept, trig)
		}
		if len(kept) == 0 {
			continue
		}
		r := &Rule{Triggers: kept, Replace: rule.Replace, Vars: rule.Vars}
		s.rules = append(s.rules, r)
		for _, trig := range kept {
			s.insert(trig, r)
			s.byOrder = append(s.byOrder, trig)
		}
	}

	return s
}

// insert adds one trigger to the reverse trie.
func (s *Set) insert(trigger string, r *Rule) {
	runes := []rune(trigger)
	if len(runes) > s.maxLen {
		s.maxLen = len(runes)
	}

	node := s.suffix
	for i := len(runes) - 1; i >= 0; i-- {
		child, ok := node.children[runes[i]]
		if !ok {
			child = newTrieNode()
			node.children[runes[i]] = child
		}
		node = child
	}
	node.rule = r
	node.trigger = trigger
}

// LongestSuffix returns the longest trigger that is an exact suffix of buf,
// together with its rule. Because duplicates are resolved at construction,
// at most one rule exists per trigger; ties between equal-length candidates
// cannot occur.
func (s *Set) LongestSuffix(buf []rune) (string, *Rule, bool) {
	node := s.suffix
	var (
		trigger string
		rule    *Rule
		found   bool
	)
	for i := len(buf) - 1; i >= 0; i-- {
		child, ok := node.children[buf[i]]
		if !ok {
			break
		}
		node = child
		if node.rule != nil {
			// Deeper nodes are longer triggers; keep the deepest hit.
			trigger = node.trigger
			rule = node.rule
			found = true
		}
	}
	return trigger, rule, found
}

// Lookup returns the rule owning the exact trigger string.
func (s *Set) Lookup(trigger string) (*Rule, bool) {
	_, r, ok := s.LongestSuffix([]rune(trigger))
	if !ok || len(r.Triggers) == 0 {
		return nil, false
	}
	for _, t := range r.Triggers {
		if t == trigger {
			return r, true
		}
	}
	return nil, false
}

// Global returns the global variable definition with the given name.
func (s *Set) Global(name string) (VariableDef, bool) {
	g, ok := s.globals[name]
	return g, ok
}

// MaxTriggerLen returns the length in runes of the longest trigger.
// The matcher sizes its keystroke buffer to this bound.
func (s *Set) MaxTriggerLen() int {
	return s.maxLen
}

// Len returns the number of distinct triggers in the set.
func (s *Set) Len() int {
	return len(s.byOrder)
}

// Triggers returns all triggers in load order.
func (s *Set) Triggers() []string {
	out := make([]string, len(s.byOrder))
	copy(out, s.byOrder)
	return out
}

// SortedTriggers returns all triggers in lexical order, for display.
func (s *Set) SortedTriggers() []string {
	out := s.Triggers()
	sort.Strings(out)
	return out
}
