package displaystate

import "time"

// Collaborators bundles the external interfaces the machine drives (§6).
type Collaborators struct {
	Timer        Timer
	Brightness   BrightnessControl
	DisplayPower DisplayPowerControl
	DisplaySink  DisplayPowerEventSink
	ButtonSink   PowerButtonEventSink
	Proximity    ProximitySensor
}

// Machine is the display power state machine (§3). It is not safe for
// concurrent use: the enclosing daemon must serialize events onto a
// single goroutine before calling any Handle* method (§5).
type Machine struct {
	cfg Config
	co  Collaborators

	mode        DisplayPowerMode
	modeAtPress DisplayPowerMode // displayPowerModeUnknown when no press outstanding

	longPressAlarm    AlarmID
	longPressDetected bool

	dimAlarm    AlarmID
	offAlarm    AlarmID
	offDeadline time.Time // zero value means "unset"

	allowances [numAllowanceSources]bool
}

// New constructs a Machine with all allowances initially granted and the
// display initially off (§3 invariant: display_power_mode starts off).
func New(cfg Config, co Collaborators) (*Machine, error) {
	if co.Timer == nil {
		return nil, ErrTimerRequired
	}
	if co.Brightness == nil {
		return nil, ErrBrightnessControlRequired
	}
	if co.DisplayPower == nil {
		return nil, ErrDisplayPowerControlRequired
	}
	if co.DisplaySink == nil {
		return nil, ErrDisplayPowerEventSinkRequired
	}
	if co.ButtonSink == nil {
		return nil, ErrPowerButtonEventSinkRequired
	}
	if co.Proximity == nil {
		return nil, ErrProximitySensorRequired
	}
	if cfg.PowerButtonLongPressTimeout <= 0 || cfg.NormalDisplayDimDuration <= 0 ||
		cfg.NormalDisplayOffTimeout <= 0 || cfg.ReducedDisplayOffTimeout <= 0 {
		return nil, ErrInvalidDuration
	}

	m := &Machine{
		cfg:         cfg,
		co:          co,
		mode:        DisplayPowerOff,
		modeAtPress: displayPowerModeUnknown,
	}
	for i := range m.allowances {
		m.allowances[i] = true
	}
	return m, nil
}

// Mode returns the display's current power state.
func (m *Machine) Mode() DisplayPowerMode {
	return m.mode
}

// InactivityOffDeadline returns the deadline currently armed for the
// inactivity off-alarm, and whether one is armed at all.
func (m *Machine) InactivityOffDeadline() (time.Time, bool) {
	return m.offDeadline, m.offAlarm != InvalidAlarmID
}

// Allowed reports whether every inactivity allowance source currently
// permits the inactivity-driven display-off.
func (m *Machine) Allowed() bool {
	for _, ok := range m.allowances {
		if !ok {
			return false
		}
	}
	return true
}

// Allowance returns the current value of a single allowance source.
func (m *Machine) Allowance(source InactivityAllowanceSource) bool {
	return m.allowances[source]
}

// --- §4.1.1 alarm expiry -----------------------------------------------

// HandleAlarm dispatches an expired alarm by id. An id matching none of
// the three tracked alarms is the safe race-window outcome of a
// cancel-vs-fire race in the timer and is silently ignored (§7).
func (m *Machine) HandleAlarm(id AlarmID) {
	switch {
	case id != InvalidAlarmID && id == m.longPressAlarm:
		m.co.ButtonSink.NotifyLongPress()
		m.longPressDetected = true
		m.longPressAlarm = InvalidAlarmID
	case id != InvalidAlarmID && id == m.dimAlarm:
		m.dimAlarm = InvalidAlarmID
		if m.Allowed() {
			m.co.Brightness.SetDimBrightness()
		}
	case id != InvalidAlarmID && id == m.offAlarm:
		m.offAlarm = InvalidAlarmID
		if m.Allowed() {
			m.turnOff(ReasonActivity)
		}
	}
}

// --- §4.1.2 / §4.1.3 power button ---------------------------------------

func (m *Machine) HandlePowerButtonPress() {
	m.modeAtPress = m.mode
	if m.mode == DisplayPowerOff {
		m.turnOnWithNormalTimeout(ReasonPowerButton)
	}
	m.longPressAlarm = m.co.Timer.ScheduleIn(m.cfg.PowerButtonLongPressTimeout)
}

func (m *Machine) HandlePowerButtonRelease() {
	if m.longPressDetected {
		m.longPressDetected = false
	} else if m.modeAtPress == DisplayPowerOn {
		m.turnOff(ReasonPowerButton)
	}
	m.modeAtPress = displayPowerModeUnknown
	m.co.Timer.Cancel(m.longPressAlarm)
	m.longPressAlarm = InvalidAlarmID
}

// --- §4.1.4 user activity ------------------------------------------------

func (m *Machine) HandleUserActivityChangingPowerState() {
	if m.mode == DisplayPowerOn {
		m.co.Brightness.SetNormalBrightness()
		m.scheduleNormal()
	} else if m.co.Proximity.State() == ProximityFar {
		m.turnOnWithNormalTimeout(ReasonActivity)
	}
}

func (m *Machine) HandleUserActivityExtendingPowerState() {
	if m.mode == DisplayPowerOn {
		m.co.Brightness.SetNormalBrightness()
		m.scheduleNormal()
	}
}

// --- §4.1.5 notifications -------------------------------------------------

func (m *Machine) HandleNotification() {
	m.allowances[AllowanceNotification] = false
	if m.mode == DisplayPowerOn {
		m.co.Brightness.SetNormalBrightness()
	} else if m.co.Proximity.State() == ProximityFar {
		m.turnOnWithoutTimeout(ReasonNotification)
	}
}

func (m *Machine) HandleNoNotification() {
	if m.mode == DisplayPowerOn {
		m.scheduleReduced()
	}
	m.allowances[AllowanceNotification] = true
	if m.Allowed() && m.mode == DisplayPowerOn && m.offAlarm == InvalidAlarmID {
		m.turnOff(ReasonActivity)
	}
}

// --- §4.1.6 active call ---------------------------------------------------

func (m *Machine) HandleActiveCall() {
	if m.mode == DisplayPowerOn {
		m.co.Brightness.SetNormalBrightness()
		m.scheduleNormal()
	} else if m.co.Proximity.State() == ProximityFar {
		m.turnOnWithNormalTimeout(ReasonCall)
	}
	m.co.Proximity.EnableEvents()
}

func (m *Machine) HandleNoActiveCall() {
	if m.mode == DisplayPowerOn {
		m.co.Brightness.SetNormalBrightness()
		m.scheduleReduced()
	} else if m.co.Proximity.State() == ProximityFar {
		m.turnOnWithoutTimeout(ReasonCallDone)
		m.scheduleReduced()
	}
	m.co.Proximity.DisableEvents()
}

// --- §4.1.7 proximity -----------------------------------------------------

func (m *Machine) HandleProximityFar() {
	if m.mode == DisplayPowerOff {
		m.turnOnWithNormalTimeout(ReasonProximity)
	}
}

func (m *Machine) HandleProximityNear() {
	if m.mode == DisplayPowerOn {
		m.turnOff(ReasonProximity)
	}
}

// --- §4.1.8 external turn-on request ---------------------------------------

func (m *Machine) HandleTurnOnDisplay() {
	if m.mode == DisplayPowerOff {
		m.turnOnWithNormalTimeout(ReasonUnknown)
	}
}

// --- §4.1.10 client-initiated timeout controls -----------------------------

func (m *Machine) HandleDisableInactivityTimeout() {
	m.allowances[AllowanceClient] = false
}

func (m *Machine) HandleEnableInactivityTimeout() {
	m.allowances[AllowanceClient] = true
	if m.Allowed() && m.mode == DisplayPowerOn && m.offAlarm == InvalidAlarmID {
		m.turnOff(ReasonActivity)
	}
}

// HandleSetInactivityTimeout replaces the configured normal off timeout.
// An infinite timeout is equivalent to disabling inactivity-driven off
// under the client allowance (§4.1.10, design note 9).
func (m *Machine) HandleSetInactivityTimeout(timeout InactivityTimeout) {
	if timeout.Infinite {
		m.allowances[AllowanceClient] = false
		return
	}
	m.cfg.NormalDisplayOffTimeout = timeout.Duration
}

// --- §4.1.9 inactivity scheduling algorithm --------------------------------

func (m *Machine) cancelInactivityAlarms() {
	if m.dimAlarm != InvalidAlarmID {
		m.co.Timer.Cancel(m.dimAlarm)
		m.dimAlarm = InvalidAlarmID
	}
	if m.offAlarm != InvalidAlarmID {
		m.co.Timer.Cancel(m.offAlarm)
		m.offAlarm = InvalidAlarmID
	}
	m.offDeadline = time.Time{}
}

func (m *Machine) scheduleNormal() {
	m.cancelInactivityAlarms()

	now := m.co.Timer.Now()
	m.offDeadline = now.Add(m.cfg.NormalDisplayOffTimeout)

	if m.cfg.NormalDisplayOffTimeout > m.cfg.NormalDisplayDimDuration {
		m.dimAlarm = m.co.Timer.ScheduleIn(m.cfg.NormalDisplayOffTimeout - m.cfg.NormalDisplayDimDuration)
	}
	m.offAlarm = m.co.Timer.ScheduleIn(m.cfg.NormalDisplayOffTimeout)
}

func (m *Machine) scheduleReduced() {
	candidate := m.co.Timer.Now().Add(m.cfg.ReducedDisplayOffTimeout)
	if candidate.After(m.offDeadline) {
		m.cancelInactivityAlarms()
		m.offAlarm = m.co.Timer.ScheduleIn(m.cfg.ReducedDisplayOffTimeout)
		m.offDeadline = candidate
	}
}

// --- §4.1.11 display-transition primitives ---------------------------------

func (m *Machine) turnOff(reason DisplayPowerChangeReason) {
	m.co.Brightness.SetOffBrightness()
	m.co.DisplayPower.TurnOff()
	m.mode = DisplayPowerOff
	m.cancelInactivityAlarms()
	m.co.DisplaySink.NotifyDisplayPowerOff(reason)
}

func (m *Machine) turnOnWithNormalTimeout(reason DisplayPowerChangeReason) {
	m.co.DisplayPower.TurnOn()
	m.mode = DisplayPowerOn
	m.co.Brightness.SetNormalBrightness()
	m.scheduleNormal()
	m.co.DisplaySink.NotifyDisplayPowerOn(reason)
}

func (m *Machine) turnOnWithoutTimeout(reason DisplayPowerChangeReason) {
	m.co.DisplayPower.TurnOn()
	m.co.Brightness.SetNormalBrightness()
	m.mode = DisplayPowerOn
	m.co.DisplaySink.NotifyDisplayPowerOn(reason)
}
