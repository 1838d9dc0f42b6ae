// Package displaystate implements the display power state machine: the
// event-driven core that decides when a phone's display turns on or off,
// when it dims or brightens, and how inactivity timeouts are scheduled,
// composed, and suppressed under calls, notifications, proximity, and
// client policy.
//
// The machine is purely reactive. It owns no goroutines and performs no
// I/O directly; it drives the collaborator interfaces in collaborators.go
// and expects its Handle* methods to be invoked one at a time, in the
// order events are delivered by the enclosing daemon (see internal/alarmtimer
// for how alarm expiries are serialized onto that single call sequence).
package displaystate
