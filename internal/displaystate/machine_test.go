package displaystate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingCollaborators(t *testing.T) {
	cfg := defaultConfig()
	full := Collaborators{
		Timer:        newFakeTimer(),
		Brightness:   &fakeBrightness{},
		DisplayPower: &fakeDisplayPower{},
		DisplaySink:  &fakeDisplaySink{},
		ButtonSink:   &fakeButtonSink{},
		Proximity:    &fakeProximity{},
	}

	cases := []struct {
		name    string
		mutate  func(*Collaborators)
		wantErr error
	}{
		{"timer", func(c *Collaborators) { c.Timer = nil }, ErrTimerRequired},
		{"brightness", func(c *Collaborators) { c.Brightness = nil }, ErrBrightnessControlRequired},
		{"display power", func(c *Collaborators) { c.DisplayPower = nil }, ErrDisplayPowerControlRequired},
		{"display sink", func(c *Collaborators) { c.DisplaySink = nil }, ErrDisplayPowerEventSinkRequired},
		{"button sink", func(c *Collaborators) { c.ButtonSink = nil }, ErrPowerButtonEventSinkRequired},
		{"proximity", func(c *Collaborators) { c.Proximity = nil }, ErrProximitySensorRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			co := full
			tc.mutate(&co)
			_, err := New(cfg, co)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewRejectsNonPositiveDurations(t *testing.T) {
	co := Collaborators{
		Timer:        newFakeTimer(),
		Brightness:   &fakeBrightness{},
		DisplayPower: &fakeDisplayPower{},
		DisplaySink:  &fakeDisplaySink{},
		ButtonSink:   &fakeButtonSink{},
		Proximity:    &fakeProximity{},
	}
	bad := defaultConfig()
	bad.NormalDisplayOffTimeout = 0
	_, err := New(bad, co)
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestInitialState(t *testing.T) {
	h := newHarness(defaultConfig())
	require.Equal(t, DisplayPowerOff, h.m.Mode())
	require.True(t, h.m.Allowed())
	require.True(t, h.m.Allowance(AllowanceClient))
	require.True(t, h.m.Allowance(AllowanceNotification))
}

func TestPowerButtonTapTurnsDisplayOn(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandlePowerButtonPress()
	require.Equal(t, DisplayPowerOn, h.m.Mode())
	require.True(t, h.power.on)
	require.Equal(t, []DisplayPowerChangeReason{ReasonPowerButton}, h.sink.onReasons)

	h.m.HandlePowerButtonRelease()
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "tap while off turns on and stays on")
}

func TestPowerButtonTapTurnsDisplayOff(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleTurnOnDisplay()
	require.Equal(t, DisplayPowerOn, h.m.Mode())

	h.m.HandlePowerButtonPress()
	h.m.HandlePowerButtonRelease()
	require.Equal(t, DisplayPowerOff, h.m.Mode())
	require.Equal(t, []DisplayPowerChangeReason{ReasonPowerButton}, h.sink.offReasons)
}

func TestPowerButtonLongPressDoesNotToggleOnRelease(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleTurnOnDisplay()

	h.m.HandlePowerButtonPress()
	h.timer.Advance(h.m, defaultConfig().PowerButtonLongPressTimeout)
	require.Equal(t, 1, h.button.longPresses)

	h.m.HandlePowerButtonRelease()
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "long press release must not also turn off")
}

func TestPowerButtonReleaseCancelsOutstandingLongPressAlarm(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandlePowerButtonPress()
	require.Equal(t, 3, h.timer.pendingCount(), "long press alarm plus the dim and off alarms should be armed")
	h.m.HandlePowerButtonRelease()
	h.timer.Advance(h.m, time.Hour)
	require.Equal(t, 0, h.button.longPresses, "released before timeout must not fire long press")
}

func TestUserActivityChangingPowerStateWakesFromOff(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleUserActivityChangingPowerState()
	require.Equal(t, DisplayPowerOn, h.m.Mode())
	require.Equal(t, []DisplayPowerChangeReason{ReasonActivity}, h.sink.onReasons)
}

func TestUserActivityDoesNotWakeWhenProximityNear(t *testing.T) {
	h := newHarness(defaultConfig())
	h.proximity.state = ProximityNear
	h.m.HandleUserActivityChangingPowerState()
	require.Equal(t, DisplayPowerOff, h.m.Mode())
}

func TestUserActivityExtendingPowerStateNeverWakesDisplay(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleUserActivityExtendingPowerState()
	require.Equal(t, DisplayPowerOff, h.m.Mode(), "extending activity must not turn the display on")
}

func TestActivityResetsDimAndOffAlarms(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()

	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout-cfg.NormalDisplayDimDuration-time.Second)
	h.m.HandleUserActivityChangingPowerState()
	require.Equal(t, "normal", h.brightness.last())

	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout-time.Second)
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "activity must have rearmed a fresh normal cycle")
}

func TestInactivityDimsThenTurnsOff(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()

	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout-cfg.NormalDisplayDimDuration)
	require.Equal(t, "dim", h.brightness.last())
	require.Equal(t, DisplayPowerOn, h.m.Mode())

	h.timer.Advance(h.m, cfg.NormalDisplayDimDuration)
	require.Equal(t, DisplayPowerOff, h.m.Mode())
	require.Equal(t, []DisplayPowerChangeReason{ReasonActivity}, h.sink.offReasons)
}

func TestNoDimAlarmWhenDimDurationNotLessThanOffTimeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.NormalDisplayDimDuration = cfg.NormalDisplayOffTimeout
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()
	require.Equal(t, 1, h.timer.pendingCount(), "only the off alarm should be armed")
}

func TestDisableInactivityTimeoutSuppressesOff(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()
	h.m.HandleDisableInactivityTimeout()

	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout+time.Second)
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "client veto must suppress the inactivity off")
}

func TestEnableInactivityTimeoutImmediatelyTurnsOffIfDeadlinePassed(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()
	h.m.HandleDisableInactivityTimeout()
	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout+time.Second)
	require.Equal(t, DisplayPowerOn, h.m.Mode())

	h.m.HandleEnableInactivityTimeout()
	require.Equal(t, DisplayPowerOff, h.m.Mode(), "re-enabling after the deadline already passed must turn off immediately")
}

func TestSetInactivityTimeoutInfiniteActsAsClientDisable(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()
	h.m.HandleSetInactivityTimeout(InfiniteInactivityTimeout())

	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout+time.Hour)
	require.Equal(t, DisplayPowerOn, h.m.Mode())
	require.False(t, h.m.Allowance(AllowanceClient))
}

func TestSetInactivityTimeoutFiniteDoesNotReenableClientAllowance(t *testing.T) {
	// Resolved open question: a finite HandleSetInactivityTimeout value
	// must not implicitly flip a previously-disabled client allowance
	// back on; only HandleEnableInactivityTimeout does that.
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()
	h.m.HandleDisableInactivityTimeout()

	h.m.HandleSetInactivityTimeout(FiniteInactivityTimeout(time.Second))
	require.False(t, h.m.Allowance(AllowanceClient))

	h.timer.Advance(h.m, time.Hour)
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "client allowance must remain disabled")
}

func TestNotificationWakesDisplayWithoutTimeout(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleNotification()
	require.Equal(t, DisplayPowerOn, h.m.Mode())
	require.Equal(t, []DisplayPowerChangeReason{ReasonNotification}, h.sink.onReasons)

	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout*10)
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "turn-on-without-timeout must not arm any off alarm")
}

func TestNotificationSuppressesInactivityOffWhileActive(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()
	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout-time.Second)

	h.m.HandleNotification()
	require.False(t, h.m.Allowance(AllowanceNotification))

	h.timer.Advance(h.m, time.Second*2)
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "notification veto must suppress the otherwise-due off")
}

func TestNoNotificationArmsReducedCycleAndMayTurnOffImmediately(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleNotification()
	require.Equal(t, DisplayPowerOn, h.m.Mode())

	h.m.HandleNoNotification()
	require.True(t, h.m.Allowance(AllowanceNotification))
	deadline, armed := h.m.InactivityOffDeadline()
	require.True(t, armed)
	require.Equal(t, h.timer.Now().Add(cfg.ReducedDisplayOffTimeout), deadline)

	h.timer.Advance(h.m, cfg.ReducedDisplayOffTimeout)
	require.Equal(t, DisplayPowerOff, h.m.Mode())
}

func TestReducedScheduleNeverShortensExistingDeadline(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()
	normalDeadline, _ := h.m.InactivityOffDeadline()

	h.timer.Advance(h.m, time.Second)
	h.m.HandleNoActiveCall() // arms a reduced cycle; must not shorten the normal deadline
	deadline, _ := h.m.InactivityOffDeadline()
	require.Equal(t, normalDeadline, deadline, "reduced scheduling must only extend, never shorten")
}

func TestReducedScheduleExtendsWhenFurtherOut(t *testing.T) {
	cfg := defaultConfig()
	cfg.ReducedDisplayOffTimeout = cfg.NormalDisplayOffTimeout * 2
	h := newHarness(cfg)
	h.m.HandleTurnOnDisplay()

	h.m.HandleNoActiveCall()
	deadline, _ := h.m.InactivityOffDeadline()
	require.Equal(t, h.timer.Now().Add(cfg.ReducedDisplayOffTimeout), deadline)
}

func TestActiveCallKeepsDisplayOnAndEnablesProximityEvents(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleTurnOnDisplay()
	h.m.HandleActiveCall()
	require.True(t, h.proximity.eventsEnabled)
	require.Equal(t, DisplayPowerOn, h.m.Mode())
}

func TestProximityNearTurnsDisplayOffDuringCall(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleTurnOnDisplay()
	h.m.HandleActiveCall()

	h.proximity.state = ProximityNear
	h.m.HandleProximityNear()
	require.Equal(t, DisplayPowerOff, h.m.Mode())
	require.Equal(t, []DisplayPowerChangeReason{ReasonProximity}, h.sink.offReasons)
}

func TestProximityFarDuringCallWakesDisplayWithoutTimeoutOnNoActiveCall(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleActiveCall() // display off, proximity far -> turns on with normal timeout
	require.Equal(t, DisplayPowerOn, h.m.Mode())

	h.proximity.state = ProximityNear
	h.m.HandleProximityNear()
	require.Equal(t, DisplayPowerOff, h.m.Mode())

	h.proximity.state = ProximityFar
	h.m.HandleNoActiveCall()
	require.Equal(t, DisplayPowerOn, h.m.Mode())
	require.False(t, h.proximity.eventsEnabled)
}

func TestProximityFarWhenOffOutsideCallWakesWithNormalTimeout(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)
	h.m.HandleProximityFar()
	require.Equal(t, DisplayPowerOn, h.m.Mode())

	h.timer.Advance(h.m, cfg.NormalDisplayOffTimeout+time.Second)
	require.Equal(t, DisplayPowerOff, h.m.Mode())
}

func TestHandleAlarmIgnoresUnknownID(t *testing.T) {
	h := newHarness(defaultConfig())
	require.NotPanics(t, func() {
		h.m.HandleAlarm(AlarmID(999))
	})
	require.Equal(t, DisplayPowerOff, h.m.Mode())
}

// TestScenarioClientVetoInterleavesNotification reproduces the
// notification-then-client-disable-then-notification-clears sequence: the
// reduced off-alarm fires while the client veto holds, so the display must
// stay on until the client allowance is itself re-enabled.
func TestScenarioClientVetoInterleavesNotification(t *testing.T) {
	cfg := defaultConfig()
	h := newHarness(cfg)

	h.m.HandleNotification()
	require.Equal(t, DisplayPowerOn, h.m.Mode())

	h.m.HandleDisableInactivityTimeout()
	h.m.HandleNoNotification()
	h.timer.Advance(h.m, cfg.ReducedDisplayOffTimeout)
	require.Equal(t, DisplayPowerOn, h.m.Mode(), "client veto must hold the display on even after the notification clears")

	h.m.HandleEnableInactivityTimeout()
	require.Equal(t, DisplayPowerOff, h.m.Mode(), "re-enabling the client allowance with no other veto must turn off immediately")
}

func TestTurnOnWithNormalTimeoutCallOrder(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleTurnOnDisplay()
	require.True(t, h.power.on)
	require.Equal(t, "normal", h.brightness.last())
	require.Equal(t, DisplayPowerOn, h.m.Mode())
	_, armed := h.m.InactivityOffDeadline()
	require.True(t, armed)
}

func TestTurnOffCallOrder(t *testing.T) {
	h := newHarness(defaultConfig())
	h.m.HandleTurnOnDisplay()
	h.m.HandleProximityNear()
	require.Equal(t, "off", h.brightness.last())
	require.False(t, h.power.on)
	_, armed := h.m.InactivityOffDeadline()
	require.False(t, armed)
}
