// Package periphpin wraps a single periph.io GPIO output line with an
// active-high/active-low polarity, the way internal/gpio's GPIOSwitch
// did for relay switches. displaypower and backlight both drive panel
// hardware through discrete GPIO lines, so they share this helper
// instead of each re-deriving on/off level math from polarity.
package periphpin

import (
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type Polarity int

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// ParsePinSpec parses a "name" or "name:activelow" pin specification.
func ParsePinSpec(spec string) (name string, polarity Polarity) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) == 1 {
		return parts[0], ActiveHigh
	}
	if strings.EqualFold(parts[1], "activelow") {
		return parts[0], ActiveLow
	}
	return parts[0], ActiveHigh
}

var (
	hostInitOnce sync.Once
	hostInitErr  error
)

func initHost() error {
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	return hostInitErr
}

// Pin is a single periph.io GPIO line driven as a logical on/off output.
type Pin struct {
	pin      gpio.PinIO
	polarity Polarity
}

// Open resolves a pin specification (e.g. "GPIO17" or "GPIO27:activelow")
// to a usable output line, initializing the periph host registry on first use.
func Open(spec string) (*Pin, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("failed to init periph host: %w", err)
	}

	name, polarity := ParsePinSpec(spec)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("failed to find pin %s", name)
	}

	return &Pin{pin: p, polarity: polarity}, nil
}

// Init drives the pin to its logical-off level and configures it as an output.
func (p *Pin) Init() error {
	if err := p.pin.Out(p.offLevel()); err != nil {
		return fmt.Errorf("failed to set pin %s to output mode: %w", p.pin.Name(), err)
	}
	return nil
}

// Set drives the pin to its logical-on or logical-off level.
func (p *Pin) Set(on bool) error {
	level := p.offLevel()
	if on {
		level = p.onLevel()
	}
	if err := p.pin.Out(level); err != nil {
		return fmt.Errorf("failed to drive pin %s: %w", p.pin.Name(), err)
	}
	return nil
}

// Get reads the pin's current logical state.
func (p *Pin) Get() bool {
	return p.pin.Read() == p.onLevel()
}

func (p *Pin) String() string {
	return p.pin.Name()
}

func (p *Pin) onLevel() gpio.Level {
	if p.polarity == ActiveHigh {
		return gpio.High
	}
	return gpio.Low
}

func (p *Pin) offLevel() gpio.Level {
	if p.polarity == ActiveHigh {
		return gpio.Low
	}
	return gpio.High
}
