package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitForEvent(t *testing.T, w *Watcher, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case err := <-w.Errors():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(timeout):
		t.Fatal("timed out waiting for reload event")
	}
	return Event{}
}

func TestReloadOnWrite(t *testing.T) {
	dir := t.TempDir()

	w, err := New([]string{dir}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "base.yml"), "matches: []\n")

	ev := waitForEvent(t, w, 5*time.Second)
	if len(ev.Paths) != 1 {
		t.Fatalf("expected 1 changed path, got %v", ev.Paths)
	}
	if filepath.Base(ev.Paths[0]) != "base.yml" {
		t.Errorf("unexpected path %q", ev.Paths[0])
	}
}

func TestBurstOfWritesDebouncedToOneEvent(t *testing.T) {
	dir := t.TempDir()

	w, err := New([]string{dir}, 150)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "base.yml"), "matches: []\n")
		writeFile(t, filepath.Join(dir, "extra.yml"), "matches: []\n")
		time.Sleep(10 * time.Millisecond)
	}

	ev := waitForEvent(t, w, 5*time.Second)
	if len(ev.Paths) != 2 {
		t.Errorf("expected 2 distinct paths, got %v", ev.Paths)
	}

	// No second event should follow the single burst.
	select {
	case ev := <-w.Events():
		t.Errorf("unexpected second event: %v", ev.Paths)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestIgnoresNonMatchFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := New([]string{dir}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "notes.txt"), "not a match file\n")
	writeFile(t, filepath.Join(dir, "base.yml.bak"), "backup\n")

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event for non-match files: %v", ev.Paths)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchesNewSubdirectory(t *testing.T) {
	dir := t.TempDir()

	w, err := New([]string{dir}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "packages")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the event loop a moment to add the new watch.
	time.Sleep(200 * time.Millisecond)

	writeFile(t, filepath.Join(sub, "pkg.yml"), "matches: []\n")

	ev := waitForEvent(t, w, 5*time.Second)
	if len(ev.Paths) != 1 || filepath.Base(ev.Paths[0]) != "pkg.yml" {
		t.Errorf("unexpected event paths %v", ev.Paths)
	}
}

func TestMissingDirSkipped(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")

	w, err := New([]string{missing, dir}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start should skip missing dirs: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "base.yml"), "matches: []\n")
	waitForEvent(t, w, 5*time.Second)
}

func TestRemoveTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.yml")
	writeFile(t, path, "matches: []\n")

	w, err := New([]string{dir}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	waitForEvent(t, w, 5*time.Second)
}
