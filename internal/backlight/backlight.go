// Package backlight drives a three-level backlight (off, dim, normal)
// over two periph.io GPIO output lines, the way the teacher's gpio
// package drove relay switches: one line enables the backlight at all,
// the other selects between its dim and normal level.
package backlight

import (
	"fmt"

	"github.com/displaypowerd/displaypowerd/internal/periphpin"
)

// Backlight implements displaystate.BrightnessControl over two GPIO
// lines: enable (backlight powered at all) and full (dim vs. normal
// level once enabled).
type Backlight struct {
	enable *periphpin.Pin
	full   *periphpin.Pin
}

// Open resolves the enable and full-brightness pin specs and drives both
// to their off level.
func Open(enableSpec, fullSpec string) (*Backlight, error) {
	enable, err := periphpin.Open(enableSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to open backlight enable pin: %w", err)
	}
	full, err := periphpin.Open(fullSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to open backlight full pin: %w", err)
	}

	b := &Backlight{enable: enable, full: full}
	if err := b.enable.Init(); err != nil {
		return nil, err
	}
	if err := b.full.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// SetOffBrightness turns the backlight off entirely.
func (b *Backlight) SetOffBrightness() {
	b.full.Set(false)
	b.enable.Set(false)
}

// SetDimBrightness enables the backlight at its dim level.
func (b *Backlight) SetDimBrightness() {
	b.full.Set(false)
	b.enable.Set(true)
}

// SetNormalBrightness enables the backlight at its full level.
func (b *Backlight) SetNormalBrightness() {
	b.enable.Set(true)
	b.full.Set(true)
}
