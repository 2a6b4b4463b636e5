// Package output injects edit instructions into the focused application.
//
// The engine computes (delete N, insert T); a Sink performs it through
// the host's text-injection mechanism. Deletion is counted in the same
// unit the input source resolves characters in, so multi-byte text stays
// consistent end to end.
package output

import (
	"context"

	"expandd/internal/logging"
)

// Sink applies one edit instruction.
type Sink interface {
	// Apply erases deleteCount characters before the cursor, then
	// types text.
	Apply(ctx context.Context, deleteCount int, text string) error
}

// LogSink is a dry-run sink that only logs what it would inject.
type LogSink struct{}

// NewLogSink creates the dry-run sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Apply logs the edit without touching the host.
func (s *LogSink) Apply(ctx context.Context, deleteCount int, text string) error {
	logging.Info("dry-run edit", "delete", deleteCount, "insert", text)
	return nil
}
