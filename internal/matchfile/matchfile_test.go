package matchfile

import (
	"os"
	"path/filepath"
	"testing"

	"expandd/internal/rules"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func load(t *testing.T, dir string) *rules.Set {
	t.Helper()
	l, err := New([]string{dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	set, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return set
}

func TestLoadBasicMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yml", `
matches:
  - trigger: ":sig"
    replace: "Best regards,\nJohn"
`)

	set := load(t, dir)
	if set.Len() != 1 {
		t.Fatalf("expected 1 trigger, got %d", set.Len())
	}
	r, ok := set.Lookup(":sig")
	if !ok {
		t.Fatal("trigger missing")
	}
	if r.Replace != "Best regards,\nJohn" {
		t.Errorf("replace = %q", r.Replace)
	}
}

func TestLoadPluralTriggersAndVars(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dates.yaml", `
matches:
  - triggers: [":date", ":today"]
    replace: "{{today}}"
    vars:
      - name: today
        type: date
        params:
          format: "%Y-%m-%d"
      - name: host
        type: shell
        params:
          cmd: "hostname"
      - name: clip
        type: clipboard
      - name: tag
        type: echo
        params:
          echo: "v1"
`)

	set := load(t, dir)
	if set.Len() != 2 {
		t.Fatalf("expected 2 triggers, got %d", set.Len())
	}
	r, _ := set.Lookup(":today")
	if len(r.Vars) != 4 {
		t.Fatalf("expected 4 vars, got %d", len(r.Vars))
	}
	if r.Vars[0].Kind != rules.VarDate || r.Vars[0].Format != "%Y-%m-%d" {
		t.Errorf("date var wrong: %+v", r.Vars[0])
	}
	if r.Vars[1].Kind != rules.VarShell || r.Vars[1].Cmd != "hostname" {
		t.Errorf("shell var wrong: %+v", r.Vars[1])
	}
	if r.Vars[3].Format != "v1" {
		t.Errorf("echo param not honored: %+v", r.Vars[3])
	}
}

func TestLoadRecursiveDiscovery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", "matches:\n  - trigger: \":a\"\n    replace: \"A\"\n")
	writeFile(t, dir, filepath.Join("nested", "deep", "b.yml"),
		"matches:\n  - trigger: \":b\"\n    replace: \"B\"\n")
	writeFile(t, dir, "notes.txt", "not yaml")

	set := load(t, dir)
	if set.Len() != 2 {
		t.Errorf("expected 2 triggers from recursive walk, got %d", set.Len())
	}
}

func TestLoadSkipsUnsupportedFeatures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.yml", `
matches:
  - trigger: ":ok"
    replace: "fine"
  - regex: "greet\\d"
    replace: "hi"
  - trigger: ":word"
    replace: "w"
    word: true
  - trigger: ":form"
    form: "Hello [[name]]"
  - trigger: ":md"
    markdown: "# Title"
  - trigger: ":novars"
    replace: "{{x}}"
    vars:
      - name: x
        type: form
`)

	set := load(t, dir)
	if set.Len() != 2 {
		t.Fatalf("expected only supported matches, got %d triggers", set.Len())
	}
	if _, ok := set.Lookup(":ok"); !ok {
		t.Error(":ok missing")
	}
	// Unsupported variable type is dropped; the match itself survives.
	r, ok := set.Lookup(":novars")
	if !ok {
		t.Fatal(":novars missing")
	}
	if len(r.Vars) != 0 {
		t.Errorf("unsupported var should be dropped, got %+v", r.Vars)
	}
}

func TestLoadSkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yml", "matches: [ {trigger: ::: \n")
	writeFile(t, dir, "good.yml", "matches:\n  - trigger: \":x\"\n    replace: \"X\"\n")

	set := load(t, dir)
	if set.Len() != 1 {
		t.Errorf("malformed file should be skipped, got %d triggers", set.Len())
	}
}

func TestLoadSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	// matches must be an array of objects.
	writeFile(t, dir, "bad.yml", "matches: \"oops\"\n")

	l, err := New([]string{dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	set, err := l.Load()
	if err != nil {
		t.Fatalf("non-strict load must not fail: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("invalid file should contribute nothing, got %d", set.Len())
	}

	l.Strict = true
	if _, err := l.Load(); err == nil {
		t.Error("strict load should fail on schema violation")
	}
}

func TestLoadGlobalVars(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "globals.yml", `
global_vars:
  - name: city
    type: echo
    params:
      echo: "Berlin"
matches:
  - trigger: ":where"
    replace: "{{city}}"
`)

	set := load(t, dir)
	g, ok := set.Global("city")
	if !ok {
		t.Fatal("global var missing")
	}
	if g.Format != "Berlin" {
		t.Errorf("global value = %q", g.Format)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	l, err := New([]string{"/nonexistent/expandd/match"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	set, err := l.Load()
	if err != nil {
		t.Fatalf("missing dir must not fail: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("expected empty set, got %d", set.Len())
	}
}

func TestDuplicateAcrossFilesFirstWins(t *testing.T) {
	dir := t.TempDir()
	// WalkDir visits lexically: a.yml before b.yml.
	writeFile(t, dir, "a.yml", "matches:\n  - trigger: \":dup\"\n    replace: \"from-a\"\n")
	writeFile(t, dir, "b.yml", "matches:\n  - trigger: \":dup\"\n    replace: \"from-b\"\n")

	set := load(t, dir)
	r, ok := set.Lookup(":dup")
	if !ok {
		t.Fatal("trigger missing")
	}
	if r.Replace != "from-a" {
		t.Errorf("first-loaded rule must win, got %q", r.Replace)
	}
}
