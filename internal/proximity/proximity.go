// Package proximity adapts a single debounced GPIO line from
// internal/gpioinput into a displaystate.ProximitySensor.
package proximity

import (
	"sync"
	"time"

	"github.com/displaypowerd/displaypowerd/internal/displaystate"
	"github.com/displaypowerd/displaypowerd/internal/gpioinput"
)

// Sensor implements displaystate.ProximitySensor over a GPIO proximity
// line. A true reading means an object is near the sensor.
type Sensor struct {
	line *gpioinput.Line

	mu      sync.Mutex
	enabled bool
	state   displaystate.ProximityState
}

// Open requests the given line spec as the proximity sensor input.
func Open(chipPath, lineSpec string, debounceDelay time.Duration) (*Sensor, error) {
	line, err := gpioinput.Open(chipPath, lineSpec, debounceDelay)
	if err != nil {
		return nil, err
	}
	s := &Sensor{line: line, state: displaystate.ProximityFar}
	if near, err := line.Read(); err == nil && near {
		s.state = displaystate.ProximityNear
	}
	return s, nil
}

// Start begins watching the line for state changes.
func (s *Sensor) Start() {
	s.line.Start()
}

// Close releases the underlying GPIO resources.
func (s *Sensor) Close() error {
	return s.line.Close()
}

// State reports the sensor's last observed reading.
func (s *Sensor) State() displaystate.ProximityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnableEvents and DisableEvents satisfy displaystate.ProximitySensor.
// The sensor keeps polling regardless; these instead gate whether Run
// forwards transitions to the caller, matching the machine's expectation
// that it alone decides when proximity transitions are acted on (calls
// enable proximity events for the duration of an active call).
func (s *Sensor) EnableEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

func (s *Sensor) DisableEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

func (s *Sensor) eventsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Run delivers onFar/onNear callbacks while events are enabled. The
// sensor's State() always reflects the latest reading regardless of
// whether events are enabled.
func (s *Sensor) Run(onFar, onNear func()) {
	for near := range s.line.Changes() {
		s.mu.Lock()
		if near {
			s.state = displaystate.ProximityNear
		} else {
			s.state = displaystate.ProximityFar
		}
		s.mu.Unlock()

		if !s.eventsEnabled() {
			continue
		}
		if near {
			onNear()
		} else {
			onFar()
		}
	}
}
