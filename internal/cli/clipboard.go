package cli

import "github.com/atotto/clipboard"

// Clipboard receives copied secrets.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the operating system clipboard.
type SystemClipboard struct{}

// WriteAll implements Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
