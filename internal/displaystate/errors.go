package displaystate

import "errors"

// Construction errors.
var (
	ErrTimerRequired                 = errors.New("timer is required")
	ErrBrightnessControlRequired     = errors.New("brightness control is required")
	ErrDisplayPowerControlRequired   = errors.New("display power control is required")
	ErrDisplayPowerEventSinkRequired = errors.New("display power event sink is required")
	ErrPowerButtonEventSinkRequired  = errors.New("power button event sink is required")
	ErrProximitySensorRequired       = errors.New("proximity sensor is required")
	ErrInvalidDuration               = errors.New("configured durations must be greater than 0")
)
