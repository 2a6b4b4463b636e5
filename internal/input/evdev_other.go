//go:build !linux

package input

import "context"

// Evdev is only implemented on Linux; other platforms get a stub that
// reports unavailability.
type Evdev struct {
	Devices []string
}

// NewEvdev creates the stub source.
func NewEvdev(devices []string) *Evdev {
	return &Evdev{Devices: devices}
}

// Available reports that keyboard reading is unsupported here.
func (e *Evdev) Available() (bool, string) {
	return false, "keyboard capture is only supported on Linux"
}

// Start always fails on non-Linux platforms.
func (e *Evdev) Start(ctx context.Context) error {
	return ErrNoKeyboard
}

// Stop is a no-op.
func (e *Evdev) Stop() error { return nil }

// Events returns a nil channel.
func (e *Evdev) Events() <-chan Event { return nil }

// Suppress is a no-op.
func (e *Evdev) Suppress(ms int) {}

// Keyboards returns no devices.
func (e *Evdev) Keyboards() []string { return nil }
