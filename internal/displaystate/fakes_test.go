package displaystate

import "time"

// fakeTimer is a deterministic virtual clock. Time only advances when the
// test calls Advance; ScheduleIn records pending alarms and Advance fires
// any whose deadline has passed, in deadline order.
type fakeTimer struct {
	now     time.Time
	nextID  AlarmID
	pending map[AlarmID]time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{
		now:     time.Unix(0, 0),
		pending: make(map[AlarmID]time.Time),
	}
}

func (t *fakeTimer) Now() time.Time {
	return t.now
}

func (t *fakeTimer) ScheduleIn(d time.Duration) AlarmID {
	t.nextID++
	t.pending[t.nextID] = t.now.Add(d)
	return t.nextID
}

func (t *fakeTimer) Cancel(id AlarmID) {
	delete(t.pending, id)
}

// Advance moves the virtual clock forward by d and fires, in deadline
// order, every alarm whose deadline is now due. Handlers invoked by a
// fire may themselves schedule or cancel alarms; those are respected.
func (t *fakeTimer) Advance(m *Machine, d time.Duration) {
	target := t.now.Add(d)
	for {
		var (
			fireID AlarmID
			fireAt time.Time
			found  bool
		)
		for id, at := range t.pending {
			if !at.After(target) && (!found || at.Before(fireAt) || (at.Equal(fireAt) && id < fireID)) {
				fireID, fireAt, found = id, at, true
			}
		}
		if !found {
			break
		}
		delete(t.pending, fireID)
		t.now = fireAt
		m.HandleAlarm(fireID)
	}
	t.now = target
}

func (t *fakeTimer) hasPending(id AlarmID) bool {
	_, ok := t.pending[id]
	return ok
}

func (t *fakeTimer) pendingCount() int {
	return len(t.pending)
}

// fakeBrightness records the sequence of brightness calls.
type fakeBrightness struct {
	calls []string
}

func (b *fakeBrightness) SetOffBrightness()    { b.calls = append(b.calls, "off") }
func (b *fakeBrightness) SetDimBrightness()    { b.calls = append(b.calls, "dim") }
func (b *fakeBrightness) SetNormalBrightness() { b.calls = append(b.calls, "normal") }

func (b *fakeBrightness) last() string {
	if len(b.calls) == 0 {
		return ""
	}
	return b.calls[len(b.calls)-1]
}

// fakeDisplayPower records on/off calls.
type fakeDisplayPower struct {
	on   bool
	onN  int
	offN int
}

func (d *fakeDisplayPower) TurnOn() {
	d.on = true
	d.onN++
}

func (d *fakeDisplayPower) TurnOff() {
	d.on = false
	d.offN++
}

// fakeDisplaySink records notified reasons.
type fakeDisplaySink struct {
	onReasons  []DisplayPowerChangeReason
	offReasons []DisplayPowerChangeReason
}

func (s *fakeDisplaySink) NotifyDisplayPowerOn(reason DisplayPowerChangeReason) {
	s.onReasons = append(s.onReasons, reason)
}

func (s *fakeDisplaySink) NotifyDisplayPowerOff(reason DisplayPowerChangeReason) {
	s.offReasons = append(s.offReasons, reason)
}

// fakeButtonSink counts long-press notifications.
type fakeButtonSink struct {
	longPresses int
}

func (b *fakeButtonSink) NotifyLongPress() {
	b.longPresses++
}

// fakeProximity is a settable proximity sensor with event enable tracking.
type fakeProximity struct {
	state         ProximityState
	eventsEnabled bool
}

func (p *fakeProximity) State() ProximityState { return p.state }
func (p *fakeProximity) EnableEvents()         { p.eventsEnabled = true }
func (p *fakeProximity) DisableEvents()        { p.eventsEnabled = false }

type harness struct {
	m          *Machine
	timer      *fakeTimer
	brightness *fakeBrightness
	power      *fakeDisplayPower
	sink       *fakeDisplaySink
	button     *fakeButtonSink
	proximity  *fakeProximity
}

func defaultConfig() Config {
	return Config{
		PowerButtonLongPressTimeout: 500 * time.Millisecond,
		NormalDisplayDimDuration:    10 * time.Second,
		NormalDisplayOffTimeout:     30 * time.Second,
		ReducedDisplayOffTimeout:    5 * time.Second,
	}
}

func newHarness(cfg Config) *harness {
	h := &harness{
		timer:      newFakeTimer(),
		brightness: &fakeBrightness{},
		power:      &fakeDisplayPower{},
		sink:       &fakeDisplaySink{},
		button:     &fakeButtonSink{},
		proximity:  &fakeProximity{state: ProximityFar},
	}
	m, err := New(cfg, Collaborators{
		Timer:        h.timer,
		Brightness:   h.brightness,
		DisplayPower: h.power,
		DisplaySink:  h.sink,
		ButtonSink:   h.button,
		Proximity:    h.proximity,
	})
	if err != nil {
		panic(err)
	}
	h.m = m
	return h
}
