//go:build linux

package vars

// clipboardReaders returns candidate clipboard reader commands, tried in
// order. wl-paste covers Wayland sessions, xclip and xsel cover X11.
func clipboardReaders() [][]string {
	return [][]string{
		{"wl-paste", "-n"},
		{"xclip", "-selection", "clipboard", "-o"},
		{"xsel", "--clipboard", "--output"},
	}
}
