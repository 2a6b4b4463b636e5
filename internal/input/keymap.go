package input

// Linux input event keycodes (input-event-codes.h). Only the keys the
// mapper cares about are named here.
const (
	keyEsc        = 1
	keyBackspace  = 14
	keyTab        = 15
	keyEnter      = 28
	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyHome       = 102
	keyUp         = 103
	keyPageUp     = 104
	keyLeft       = 105
	keyRight      = 106
	keyEnd        = 107
	keyDown       = 108
	keyPageDown   = 109
	keyInsert     = 110
	keyDelete     = 111
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

// pair holds the unshifted and shifted rune for one key.
type pair struct {
	base    rune
	shifted rune
}

// usKeymap maps keycodes to runes for a US layout, the layout the
// upstream config format assumes. Layout-aware resolution would belong
// here, not in the engine.
var usKeymap = map[uint16]pair{
	// Letter row codes: q..p
	16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'},
	20: {'t', 'T'}, 21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'},
	24: {'o', 'O'}, 25: {'p', 'P'},
	// a..l
	30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'},
	34: {'g', 'G'}, 35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'},
	38: {'l', 'L'},
	// z..m
	44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'},
	48: {'b', 'B'}, 49: {'n', 'N'}, 50: {'m', 'M'},
	// Number row
	2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'},
	6: {'5', '%'}, 7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'},
	10: {'9', '('}, 11: {'0', ')'},
	// Punctuation
	12: {'-', '_'}, 13: {'=', '+'},
	26: {'[', '{'}, 27: {']', '}'},
	39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'},
	43: {'\\', '|'},
	51: {',', '<'}, 52: {'.', '>'}, 53: {'/', '?'},
	keySpace: {' ', ' '},
}

// resetKeys are keys that invalidate continuity of the typed sequence:
// the cursor is no longer right after the buffered characters.
var resetKeys = map[uint16]bool{
	keyEsc:      true,
	keyTab:      true,
	keyEnter:    true,
	keyHome:     true,
	keyUp:       true,
	keyPageUp:   true,
	keyLeft:     true,
	keyRight:    true,
	keyEnd:      true,
	keyDown:     true,
	keyPageDown: true,
	keyInsert:   true,
	keyDelete:   true,
}

// modifierKeys are tracked or ignored without touching the buffer.
var modifierKeys = map[uint16]bool{
	keyLeftCtrl:   true,
	keyRightCtrl:  true,
	keyLeftAlt:    true,
	keyRightAlt:   true,
	keyLeftMeta:   true,
	keyRightMeta:  true,
	keyCapsLock:   true,
}

// mapKey translates one key press into an Event. ok is false for keys
// that produce nothing (modifiers, unmapped keys).
func mapKey(code uint16, shift bool) (Event, bool) {
	switch {
	case code == keyBackspace:
		return Backspace(), true
	case resetKeys[code]:
		return Reset(), true
	case modifierKeys[code]:
		return Event{}, false
	}

	p, ok := usKeymap[code]
	if !ok {
		return Event{}, false
	}
	if shift {
		return Char(p.shifted), true
	}
	return Char(p.base), true
}
