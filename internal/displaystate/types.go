package displaystate

import "time"

// DisplayPowerMode is the display's current power state.
type DisplayPowerMode int

const (
	DisplayPowerOff DisplayPowerMode = iota
	DisplayPowerOn

	// displayPowerModeUnknown is a pseudo-value used only for the
	// captured-at-press snapshot when no press is outstanding. It is
	// never a legal value of Machine.mode itself.
	displayPowerModeUnknown
)

func (m DisplayPowerMode) String() string {
	switch m {
	case DisplayPowerOff:
		return "off"
	case DisplayPowerOn:
		return "on"
	default:
		return "unknown"
	}
}

// DisplayPowerChangeReason tags every display on/off notification.
type DisplayPowerChangeReason int

const (
	ReasonUnknown DisplayPowerChangeReason = iota
	ReasonPowerButton
	ReasonActivity
	ReasonProximity
	ReasonNotification
	ReasonCall
	ReasonCallDone
)

func (r DisplayPowerChangeReason) String() string {
	switch r {
	case ReasonPowerButton:
		return "power_button"
	case ReasonActivity:
		return "activity"
	case ReasonProximity:
		return "proximity"
	case ReasonNotification:
		return "notification"
	case ReasonCall:
		return "call"
	case ReasonCallDone:
		return "call_done"
	default:
		return "unknown"
	}
}

// ProximityState is the sensor's current reading.
type ProximityState int

const (
	ProximityFar ProximityState = iota
	ProximityNear
)

func (p ProximityState) String() string {
	if p == ProximityNear {
		return "near"
	}
	return "far"
}

// AlarmID is an opaque handle returned by Timer.ScheduleIn. InvalidAlarmID
// denotes "no alarm scheduled"; a real Timer implementation must never
// hand out InvalidAlarmID for a live alarm.
type AlarmID uint64

const InvalidAlarmID AlarmID = 0

// InactivityAllowanceSource is one of the independent veto sources that may
// forbid the inactivity-driven display-off. The overall allowance is the
// logical AND of every source.
type InactivityAllowanceSource int

const (
	AllowanceClient InactivityAllowanceSource = iota
	AllowanceNotification

	numAllowanceSources
)

func (s InactivityAllowanceSource) String() string {
	switch s {
	case AllowanceClient:
		return "client"
	case AllowanceNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// InactivityTimeout represents the client-supplied value for
// Machine.HandleSetInactivityTimeout: either a finite duration or the
// "infinite" sum-type value design note 9 recommends, which is equivalent
// to disabling inactivity-driven off under the client allowance.
type InactivityTimeout struct {
	Duration time.Duration
	Infinite bool
}

// FiniteInactivityTimeout builds a finite InactivityTimeout.
func FiniteInactivityTimeout(d time.Duration) InactivityTimeout {
	return InactivityTimeout{Duration: d}
}

// InfiniteInactivityTimeout builds the infinite InactivityTimeout.
func InfiniteInactivityTimeout() InactivityTimeout {
	return InactivityTimeout{Infinite: true}
}

// Config holds the durations fixed at construction time (§3, §6).
type Config struct {
	PowerButtonLongPressTimeout time.Duration
	NormalDisplayDimDuration    time.Duration
	NormalDisplayOffTimeout     time.Duration
	ReducedDisplayOffTimeout    time.Duration
}
