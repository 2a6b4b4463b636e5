package output

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// WtypeSink injects edits through wtype, the Wayland virtual keyboard
// tool. Each edit becomes one invocation: N BackSpace key presses
// followed by the replacement text.
type WtypeSink struct {
	// DelayMs pauses before injecting so the focused application has
	// processed the trigger's final keystroke.
	DelayMs int
}

// NewWtypeSink creates the wtype-backed sink.
func NewWtypeSink(delayMs int) *WtypeSink {
	return &WtypeSink{DelayMs: delayMs}
}

// Apply performs the edit through wtype.
func (s *WtypeSink) Apply(ctx context.Context, deleteCount int, text string) error {
	if s.DelayMs > 0 {
		select {
		case <-time.After(time.Duration(s.DelayMs) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	args := buildArgs(deleteCount, text)
	cmd := buildCommand(ctx, args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wtype: %w", err)
	}
	return nil
}

// buildArgs assembles the wtype argument list for one edit.
func buildArgs(deleteCount int, text string) []string {
	args := make([]string, 0, deleteCount*2+2)
	for i := 0; i < deleteCount; i++ {
		args = append(args, "-k", "BackSpace")
	}
	args = append(args, "--", text)
	return args
}

// buildCommand wraps wtype for the current privilege situation. When the
// daemon runs under sudo (needed for /dev/input access), wtype must run
// as the desktop user with that user's Wayland session environment.
func buildCommand(ctx context.Context, args []string) *exec.Cmd {
	sudoUser := os.Getenv("SUDO_USER")
	if sudoUser == "" {
		return exec.CommandContext(ctx, "wtype", args...)
	}

	sudoArgs := []string{"-u", sudoUser, "env"}
	for _, kv := range sessionEnv() {
		sudoArgs = append(sudoArgs, kv)
	}
	sudoArgs = append(sudoArgs, "wtype")
	sudoArgs = append(sudoArgs, args...)
	return exec.CommandContext(ctx, "sudo", sudoArgs...)
}

// sessionEnv reconstructs the desktop user's Wayland environment for the
// re-exec through sudo.
func sessionEnv() []string {
	var env []string

	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		env = append(env, "XDG_RUNTIME_DIR="+xdg)
	} else if uid := os.Getenv("SUDO_UID"); uid != "" {
		env = append(env, "XDG_RUNTIME_DIR=/run/user/"+uid)
	}

	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-1"
	}
	env = append(env, "WAYLAND_DISPLAY="+display)

	if user := os.Getenv("SUDO_USER"); user != "" {
		env = append(env, "USER="+user)
	}

	return env
}
