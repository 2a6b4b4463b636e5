//go:build darwin

package vars

// clipboardReaders returns candidate clipboard reader commands.
func clipboardReaders() [][]string {
	return [][]string{
		{"pbpaste"},
	}
}
