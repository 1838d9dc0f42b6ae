// Package displaypower drives the display's power rail over a single
// periph.io GPIO output line, implementing displaystate.DisplayPowerControl.
package displaypower

import (
	"fmt"

	"github.com/displaypowerd/displaypowerd/internal/periphpin"
)

// Control implements displaystate.DisplayPowerControl over a GPIO pin.
type Control struct {
	pin *periphpin.Pin
}

// Open resolves the pin spec (e.g. "GPIO22" or "GPIO22:activelow") and
// drives it to its off level.
func Open(pinSpec string) (*Control, error) {
	pin, err := periphpin.Open(pinSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to open display power pin: %w", err)
	}
	c := &Control{pin: pin}
	if err := c.pin.Init(); err != nil {
		return nil, err
	}
	return c, nil
}

// TurnOn drives the display power line active.
func (c *Control) TurnOn() {
	c.pin.Set(true)
}

// TurnOff drives the display power line inactive.
func (c *Control) TurnOff() {
	c.pin.Set(false)
}

// Get reports whether the display power line currently reads active.
func (c *Control) Get() bool {
	return c.pin.Get()
}
