//go:build !linux && !darwin

package vars

// clipboardReaders returns no readers; clipboard variables resolve to
// ErrClipboardUnavailable on unsupported platforms.
func clipboardReaders() [][]string {
	return nil
}
