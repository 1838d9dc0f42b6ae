// Package eventsink publishes displaystate notifications to MQTT,
// implementing displaystate.DisplayPowerEventSink and
// displaystate.PowerButtonEventSink the way the teacher's mqtt.Client
// published button events, generalized to the display-power-change and
// long-press reasons this daemon reports.
package eventsink

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/displaypowerd/displaypowerd/internal/displaystate"
	"github.com/displaypowerd/displaypowerd/internal/mqtt"
)

// Sink publishes display power and power button events to MQTT topics
// rooted at TopicPrefix (default "event/display").
type Sink struct {
	client      *mqtt.Client
	topicPrefix string
}

// New wraps an already-constructed mqtt.Client. topicPrefix defaults to
// "event/display" when empty.
func New(client *mqtt.Client, topicPrefix string) *Sink {
	if topicPrefix == "" {
		topicPrefix = "event/display"
	}
	return &Sink{client: client, topicPrefix: topicPrefix}
}

type powerEvent struct {
	Mode      string `json:"mode"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

func (s *Sink) publishPower(mode displaystate.DisplayPowerMode, reason displaystate.DisplayPowerChangeReason) {
	if s.client == nil {
		return
	}

	event := powerEvent{
		Mode:      mode.String(),
		Reason:    reason.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("eventsink: failed to marshal power event: %v", err)
		return
	}

	topic := fmt.Sprintf("%s/power/%s", s.topicPrefix, mode)
	if err := s.client.Publish(topic, 0, true, payload); err != nil {
		log.Printf("eventsink: failed to publish power event: %v", err)
	}
}

// NotifyDisplayPowerOn publishes a retained "on" event with reason.
func (s *Sink) NotifyDisplayPowerOn(reason displaystate.DisplayPowerChangeReason) {
	s.publishPower(displaystate.DisplayPowerOn, reason)
}

// NotifyDisplayPowerOff publishes a retained "off" event with reason.
func (s *Sink) NotifyDisplayPowerOff(reason displaystate.DisplayPowerChangeReason) {
	s.publishPower(displaystate.DisplayPowerOff, reason)
}

// NotifyLongPress publishes a power button long-press event.
func (s *Sink) NotifyLongPress() {
	if s.client == nil {
		return
	}

	topic := fmt.Sprintf("%s/power-button/long-press", s.topicPrefix)
	payload := []byte(time.Now().Format(time.RFC3339))
	if err := s.client.Publish(topic, 0, false, payload); err != nil {
		log.Printf("eventsink: failed to publish long-press event: %v", err)
	}
}

var (
	_ displaystate.DisplayPowerEventSink = (*Sink)(nil)
	_ displaystate.PowerButtonEventSink  = (*Sink)(nil)
)
