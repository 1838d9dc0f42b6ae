// Package powerbutton adapts a single debounced GPIO line from
// internal/gpioinput into press/release events for
// internal/displaystate.Machine.
package powerbutton

import (
	"time"

	"github.com/displaypowerd/displaypowerd/internal/gpioinput"
)

// Button watches one GPIO line and reports press/release transitions.
type Button struct {
	line *gpioinput.Line
}

// Open requests the given line spec (e.g. "GPIO17" or "GPIO17:activelow")
// on the named gpiocdev chip as the power button input.
func Open(chipPath, lineSpec string, debounceDelay time.Duration) (*Button, error) {
	line, err := gpioinput.Open(chipPath, lineSpec, debounceDelay)
	if err != nil {
		return nil, err
	}
	return &Button{line: line}, nil
}

// Start begins watching the line for state changes.
func (b *Button) Start() {
	b.line.Start()
}

// Close releases the underlying GPIO resources.
func (b *Button) Close() error {
	return b.line.Close()
}

// Pressed reports whether the button currently reads as pressed.
func (b *Button) Pressed() (bool, error) {
	return b.line.Read()
}

// Run delivers press/release callbacks until ctx-like stop is requested by
// closing the button. onPress and onRelease are invoked synchronously on
// the caller's goroutine, in line with the core machine's requirement that
// Handle* calls be serialized (see internal/alarmtimer).
func (b *Button) Run(onPress, onRelease func()) {
	for pressed := range b.line.Changes() {
		if pressed {
			onPress()
		} else {
			onRelease()
		}
	}
}
