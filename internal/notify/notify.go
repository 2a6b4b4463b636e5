// Package notify delivers desktop notifications for variable resolution
// failures over the org.freedesktop.Notifications D-Bus interface.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"expandd/internal/logging"
)

const (
	busName       = "org.freedesktop.Notifications"
	objectPath    = "/org/freedesktop/Notifications"
	notifyMethod  = "org.freedesktop.Notifications.Notify"
	appName       = "expandd"
	defaultExpiry = 5000 // milliseconds
)

// Notifier sends desktop notifications. A nil connection means the session
// bus was unavailable; sends then degrade to log lines.
type Notifier struct {
	mu   sync.Mutex
	conn *dbus.Conn

	// Rate limiting: at most one notification per trigger per window.
	lastSent map[string]time.Time
	window   time.Duration
}

// New connects to the session bus. It never fails: without a bus the
// notifier logs instead of popping notifications.
func New() *Notifier {
	n := &Notifier{
		lastSent: make(map[string]time.Time),
		window:   30 * time.Second,
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		logging.Warn("session bus unavailable, notifications disabled", "error", err)
		return n
	}
	n.conn = conn

	return n
}

// Close releases the bus connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}

// ResolutionFailed reports that rendering trigger hit the given number of
// variable failures. Repeated failures for the same trigger are rate
// limited to one notification per window.
func (n *Notifier) ResolutionFailed(trigger string, failures int) {
	n.mu.Lock()
	if last, ok := n.lastSent[trigger]; ok && time.Since(last) < n.window {
		n.mu.Unlock()
		return
	}
	n.lastSent[trigger] = time.Now()
	conn := n.conn
	n.mu.Unlock()

	summary := "Expansion incomplete"
	body := fmt.Sprintf("%d variable(s) failed while expanding %q; empty values were substituted.", failures, trigger)

	if conn == nil {
		logging.Warn(summary, "trigger", trigger, "failures", failures)
		return
	}

	obj := conn.Object(busName, dbus.ObjectPath(objectPath))
	call := obj.Call(notifyMethod, 0,
		appName,            // app_name
		uint32(0),          // replaces_id
		"dialog-warning",   // app_icon
		summary,            // summary
		body,               // body
		[]string{},         // actions
		map[string]dbus.Variant{}, // hints
		int32(defaultExpiry),      // expire_timeout
	)
	if call.Err != nil {
		logging.Warn("failed to send notification", "trigger", trigger, "error", call.Err)
	}
}
