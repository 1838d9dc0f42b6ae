package displayapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/displaypowerd/displaypowerd/internal/displaystate"
)

// syncDispatcher runs submitted work inline, since these tests don't need
// a real background dispatch loop.
type syncDispatcher struct{}

func (syncDispatcher) Submit(fn func()) { fn() }

func newTestServer(t *testing.T) (*Server, *displaystate.Machine) {
	t.Helper()
	m, err := displaystate.New(displaystate.Config{
		PowerButtonLongPressTimeout: time.Second,
		NormalDisplayDimDuration:    time.Second,
		NormalDisplayOffTimeout:     2 * time.Second,
		ReducedDisplayOffTimeout:    time.Second,
	}, displaystate.Collaborators{
		Timer:        noopTimer{},
		Brightness:   noopBrightness{},
		DisplayPower: noopDisplayPower{},
		DisplaySink:  noopSink{},
		ButtonSink:   noopSink{},
		Proximity:    noopProximity{},
	})
	require.NoError(t, err)
	return NewServer(m, syncDispatcher{}), m
}

func TestTurnOnDisplayHandler(t *testing.T) {
	s, m := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/display/on", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, displaystate.DisplayPowerOn, m.Mode())
}

func TestStatusHandlerReportsMode(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "off", data["mode"])
}

func TestSetInactivityTimeoutRejectsEmptyBody(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPut, "/inactivity-timeout", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetInactivityTimeoutAcceptsInfinite(t *testing.T) {
	s, m := newTestServer(t)
	req := httptest.NewRequest(http.MethodPut, "/inactivity-timeout", bytes.NewReader([]byte(`{"infinite":true}`)))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, m.Allowance(displaystate.AllowanceClient))
}

func TestDisableThenEnableInactivityTimeout(t *testing.T) {
	s, m := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/inactivity-timeout/disable", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, m.Allowance(displaystate.AllowanceClient))

	req = httptest.NewRequest(http.MethodPost, "/inactivity-timeout/enable", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, m.Allowance(displaystate.AllowanceClient))
}

func TestNotificationHandlerTurnsDisplayOnAndDisablesAllowance(t *testing.T) {
	s, m := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/notification", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, displaystate.DisplayPowerOn, m.Mode())
	require.False(t, m.Allowance(displaystate.AllowanceNotification))
}

func TestNoNotificationHandlerRestoresAllowance(t *testing.T) {
	s, m := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/notification", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/no-notification", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, m.Allowance(displaystate.AllowanceNotification))
}

func TestActiveCallHandlerTurnsDisplayOn(t *testing.T) {
	s, m := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/active-call", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, displaystate.DisplayPowerOn, m.Mode())
}

func TestNoActiveCallHandlerSucceeds(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/active-call", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/no-active-call", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

type noopTimer struct{}

func (noopTimer) Now() time.Time                                { return time.Unix(0, 0) }
func (noopTimer) ScheduleIn(time.Duration) displaystate.AlarmID { return 1 }
func (noopTimer) Cancel(displaystate.AlarmID)                   {}

type noopBrightness struct{}

func (noopBrightness) SetOffBrightness()    {}
func (noopBrightness) SetDimBrightness()    {}
func (noopBrightness) SetNormalBrightness() {}

type noopDisplayPower struct{}

func (noopDisplayPower) TurnOn()  {}
func (noopDisplayPower) TurnOff() {}

type noopSink struct{}

func (noopSink) NotifyDisplayPowerOn(displaystate.DisplayPowerChangeReason)  {}
func (noopSink) NotifyDisplayPowerOff(displaystate.DisplayPowerChangeReason) {}
func (noopSink) NotifyLongPress()                                           {}

type noopProximity struct{}

func (noopProximity) State() displaystate.ProximityState { return displaystate.ProximityFar }
func (noopProximity) EnableEvents()                      {}
func (noopProximity) DisableEvents()                     {}
