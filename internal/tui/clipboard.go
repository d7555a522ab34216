package tui

import (
	"github.com/atotto/clipboard"
	"github.com/zarlcorp/zpeople/internal/erase"
)

type atottoClipboard struct{}

func (atottoClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (atottoClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// systemClipboard returns the OS clipboard, or nil when no clipboard tool
// is installed.
func systemClipboard() erase.Clipboard {
	if clipboard.Unsupported {
		return nil
	}
	return atottoClipboard{}
}
