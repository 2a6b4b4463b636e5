//go:build linux

package input

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"expandd/internal/logging"
)

// Linux input_event constants.
const (
	evKey      = 1
	keyRelease = 0
	keyPress   = 1

	// struct input_event on 64-bit: 16-byte timeval, u16 type,
	// u16 code, s32 value.
	eventSize   = 24
	typeOffset  = 16
	codeOffset  = 18
	valueOffset = 20
)

// keyboard is one discovered input device.
type keyboard struct {
	path string
	name string
}

// Evdev reads keyboard events from /dev/input on Linux.
type Evdev struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	events  chan Event

	// Explicit device paths from config; empty means autodetect.
	Devices []string

	fds    []int
	opened []string

	suppressUntil atomic.Int64 // unix nanos

	shiftLeft  bool
	shiftRight bool
}

// NewEvdev creates the Linux keyboard source. devices optionally pins the
// device paths to read; when empty the source autodetects keyboards.
func NewEvdev(devices []string) *Evdev {
	return &Evdev{
		Devices: devices,
		events:  make(chan Event, 256),
	}
}

// Available reports whether keyboard reading is possible with current
// permissions.
func (e *Evdev) Available() (bool, string) {
	kbds, err := findKeyboards()
	if err != nil {
		return false, fmt.Sprintf("cannot enumerate input devices: %v", err)
	}
	if len(kbds) == 0 {
		return false, "no keyboard devices found"
	}
	for _, k := range kbds {
		f, err := os.OpenFile(k.path, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, fmt.Sprintf("found keyboard device: %s (%s)", k.path, k.name)
		}
	}
	return false, "cannot read keyboard devices (need 'input' group membership or root)"
}

// findKeyboards enumerates keyboard devices via /proc/bus/input/devices,
// falling back to /dev/input/by-id name patterns.
func findKeyboards() ([]keyboard, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		kbds       []keyboard
		name       string
		handler    string
		isKeyboard bool
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "N: Name=") {
			name = strings.Trim(strings.TrimPrefix(line, "N: Name="), "\"")
		}

		if strings.HasPrefix(line, "H: Handlers=") {
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					handler = "/dev/input/" + part
				}
			}
		}

		if strings.HasPrefix(line, "B: KEY=") {
			// A real keyboard advertises a wide KEY bitmap.
			if len(line) > 10 {
				isKeyboard = true
			}
		}

		if line == "" {
			if isKeyboard && handler != "" {
				kbds = append(kbds, keyboard{path: handler, name: name})
			}
			name, handler, isKeyboard = "", "", false
		}
	}

	matches, _ := filepath.Glob("/dev/input/by-id/*-kbd")
	for _, m := range matches {
		kbds = append(kbds, keyboard{path: m, name: filepath.Base(m)})
	}

	return kbds, nil
}

// selectKeyboards picks which devices to read. A virtual keyboard
// (keyd, kmonad) subsumes the physical ones it remaps, so when one is
// present it is used alone to avoid seeing every key twice.
func selectKeyboards(kbds []keyboard) []keyboard {
	var physical []keyboard
	for _, k := range kbds {
		if strings.Contains(strings.ToLower(k.name), "virtual") {
			logging.Info("using virtual keyboard only", "device", k.path, "name", k.name)
			return []keyboard{k}
		}
		physical = append(physical, k)
	}
	return physical
}

// Start opens the keyboard devices and begins the read loop.
func (e *Evdev) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}

	paths := e.Devices
	if len(paths) == 0 {
		kbds, err := findKeyboards()
		if err != nil {
			return fmt.Errorf("enumerate keyboards: %w", err)
		}
		for _, k := range selectKeyboards(kbds) {
			paths = append(paths, k.path)
		}
	}

	seen := make(map[string]bool)
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			logging.Warn("cannot open keyboard device", "device", path, "error", err)
			continue
		}
		logging.Info("reading keyboard device", "device", path)
		e.fds = append(e.fds, fd)
		e.opened = append(e.opened, path)
	}
	if len(e.fds) == 0 {
		return ErrNoKeyboard
	}

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	e.running = true

	go e.readLoop(ctx)
	return nil
}

// Stop stops the read loop and closes the event stream.
func (e *Evdev) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.cancel()
	<-e.done
	for _, fd := range e.fds {
		unix.Close(fd)
	}
	e.fds = nil
	e.running = false
	close(e.events)
	return nil
}

// Keyboards returns the device paths currently being read.
func (e *Evdev) Keyboards() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

// Events returns the resolved event stream.
func (e *Evdev) Events() <-chan Event {
	return e.events
}

// Suppress discards device input for the given window. The output sink
// calls this around an injection so the synthesized backspaces and text
// do not feed back into the match buffer.
func (e *Evdev) Suppress(ms int) {
	e.suppressUntil.Store(time.Now().Add(time.Duration(ms) * time.Millisecond).UnixNano())
}

func (e *Evdev) suppressed() bool {
	return time.Now().UnixNano() < e.suppressUntil.Load()
}

// readLoop polls all keyboard fds and decodes key events.
func (e *Evdev) readLoop(ctx context.Context) {
	defer close(e.done)

	buf := make([]byte, eventSize*64)
	pollFds := make([]unix.PollFd, len(e.fds))
	for i, fd := range e.fds {
		pollFds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		for i := range pollFds {
			pollFds[i].Revents = 0
		}
		n, err := unix.Poll(pollFds, 500)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			logging.Error("poll failed on input devices", "error", err)
			return
		}
		if n == 0 {
			continue
		}

		for i, pfd := range pollFds {
			if pfd.Revents&unix.POLLIN == 0 {
				continue
			}
			nr, err := unix.Read(e.fds[i], buf)
			if err != nil || nr < eventSize {
				continue
			}
			for off := 0; off+eventSize <= nr; off += eventSize {
				e.decode(buf[off : off+eventSize])
			}
		}
	}
}

// decode handles one raw input_event.
func (e *Evdev) decode(raw []byte) {
	evType := binary.LittleEndian.Uint16(raw[typeOffset : typeOffset+2])
	if evType != evKey {
		return
	}
	code := binary.LittleEndian.Uint16(raw[codeOffset : codeOffset+2])
	value := int32(binary.LittleEndian.Uint32(raw[valueOffset : valueOffset+4]))

	// Shift state follows press and release even while suppressed.
	if code == keyLeftShift || code == keyRightShift {
		if code == keyLeftShift {
			e.shiftLeft = value != keyRelease
		} else {
			e.shiftRight = value != keyRelease
		}
		return
	}

	if value != keyPress {
		return
	}
	if e.suppressed() {
		return
	}

	ev, ok := mapKey(code, e.shiftLeft || e.shiftRight)
	if !ok {
		return
	}

	select {
	case e.events <- ev:
	default:
		// Stream consumer stalled; dropping is better than blocking
		// the device read.
		logging.Warn("input event dropped, consumer too slow")
	}
}
