package vars

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// System implements Providers against the real host: wall clock,
// `sh -c` command execution, and the platform clipboard reader.
type System struct {
	// Shell is the shell binary used for command variables.
	Shell string
}

// NewSystem creates the production provider set.
func NewSystem() *System {
	return &System{Shell: "sh"}
}

// Now returns the current wall-clock time.
func (s *System) Now() time.Time {
	return time.Now()
}

// RunCommand executes cmd through the shell and returns trimmed stdout.
// A non-zero exit or a canceled context is an error.
func (s *System) RunCommand(ctx context.Context, cmd string) (string, error) {
	out, err := exec.CommandContext(ctx, s.Shell, "-c", cmd).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("exit status %d", exitErr.ExitCode())
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ReadClipboard reads clipboard text through the first working platform
// reader command.
func (s *System) ReadClipboard(ctx context.Context) (string, error) {
	var lastErr error
	for _, argv := range clipboardReaders() {
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
		if err == nil {
			return string(out), nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no clipboard reader available")
	}
	return "", lastErr
}
