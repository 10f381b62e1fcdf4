// Package term implements the interactive terminal session bridge: a
// reconnecting WebSocket transport, session negotiation with keep-alives, a
// terminal emulator adapter, and a tab multiplexer managing independent
// sessions against one workspace.
package term

import (
	"fmt"
	"sync"

	"github.com/muesli/termenv"
)

// Emulator renders remote output as an interactive character grid and
// captures keystrokes. Implementations report zero dimensions until they
// have a usable viewport; the adapter defers connecting until then.
type Emulator interface {
	// Write appends remote output bytes to the screen in arrival order.
	Write(p []byte) (int, error)
	// Size reports the current grid dimensions. ok is false while the
	// emulator has no nonzero viewport.
	Size() (cols, rows int, ok bool)
	// OnInput registers a keystroke listener and returns its unsubscribe.
	OnInput(fn func(data []byte)) (unsubscribe func())
	// OnResize registers a dimension-change listener and returns its
	// unsubscribe.
	OnResize(fn func(cols, rows int)) (unsubscribe func())
	// Close releases the emulator and its listeners.
	Close() error
}

// The render profile is process-wide, lazily initialized, and never torn
// down. It only informs how inline error lines are styled.
var (
	profileOnce sync.Once
	profile     termenv.Profile
)

func renderProfile() termenv.Profile {
	profileOnce.Do(func() {
		profile = termenv.ColorProfile()
	})
	return profile
}

// errorLine renders a failure message as a red line suitable for writing
// directly into the terminal output stream.
func errorLine(message string) []byte {
	styled := termenv.String(fmt.Sprintf("[gitguide] %s", message)).
		Foreground(renderProfile().Color("1")).
		String()
	return []byte("\r\n" + styled + "\r\n")
}
