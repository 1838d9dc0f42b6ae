// Package statuspanel drives a physical OLED status panel (via
// github.com/larsks/display1306/v2) that shows the live state of a
// displaypowerd daemon: display power mode, the two allowance sources,
// and whether an inactivity off-alarm is currently armed. It polls the
// daemon's displayapi HTTP surface and, when configured, subscribes to
// its MQTT event topics to reactivate the panel on activity.
package statuspanel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/larsks/display1306/v2/display"
	"github.com/larsks/display1306/v2/display/fakedriver"

	"github.com/displaypowerd/displaypowerd/internal/cli"
	"github.com/displaypowerd/displaypowerd/internal/mqtt"
)

// Handler implements the CLI handler for displaypowerd-statuspanel.
type Handler struct {
	display       *display.Display
	httpClient    *http.Client
	mqttClient    *mqtt.Client
	panelActive   bool
	lastActivity  time.Time
	activityMutex sync.RWMutex
}

// NewHandler creates a new Handler instance. d may be nil; in that case
// Start builds one from cfg.DryRun.
func NewHandler(d *display.Display) *Handler {
	return &Handler{
		display:      d,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		panelActive:  true,
		lastActivity: time.Now(),
	}
}

// Start implements the cli.CommandHandler interface.
func (h *Handler) Start(config cli.Configurable) error {
	cfg := config.(*Config)

	if h.display == nil {
		var d *display.Display
		var err error

		if cfg.DryRun {
			fakeDriver := fakedriver.NewFakeSSD1306()
			d, err = display.NewDisplay().WithDriver(fakeDriver).Build()
			if err != nil {
				return fmt.Errorf("failed to initialize fake display: %w", err)
			}
		} else {
			d, err = display.NewDisplay().Build()
			if err != nil {
				return fmt.Errorf("failed to initialize display: %w", err)
			}
		}
		h.display = d
	}

	if err := h.display.Init(); err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}

	if cfg.MqttServer != "" {
		mqttConfig := mqtt.Config{
			ServerURL: cfg.MqttServer,
			ClientID:  "displaypowerd-statuspanel",
			OnConnect: func(client *mqtt.Client) {
				if err := client.Subscribe("event/display/#", 0, h.handleDisplayEvent); err != nil {
					log.Printf("failed to subscribe to display events: %v", err)
				} else {
					log.Printf("subscribed to display events on MQTT")
				}
			},
		}

		client, err := mqtt.NewClient(mqttConfig)
		if err != nil {
			log.Printf("failed to initialize MQTT client: %v", err)
		} else {
			h.mqttClient = client
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cleanup := func() {
		log.Println("shutting down gracefully...")
		if h.mqttClient != nil {
			h.mqttClient.Disconnect(250)
		}
		h.display.ClearScreen() //nolint:errcheck
		h.display.Close()       //nolint:errcheck
	}

	go func() {
		<-sigChan
		log.Println("received shutdown signal")
		cancel()
	}()

	defer cleanup()

	title := "** DISPLAYPOWERD **"
	titleLen := len(title)
	count := 0

	status := statusResponse{Mode: "???"}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	lastUpdate := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			curTitle := title[count:titleLen] + title[0:count]
			count = (count + 1) % titleLen

			if lastUpdate.Add(cfg.UpdateInterval).Before(time.Now()) {
				if s, err := h.fetchStatus(cfg.ServerURL); err != nil {
					log.Printf("failed to fetch displaypowerd status: %v", err)
				} else {
					status = s
				}
				lastUpdate = time.Now()
			}

			shouldBeActive := h.shouldPanelBeActive(cfg.DisplayTimeout, cfg.MqttServer)
			h.setPanelActive(shouldBeActive)

			if shouldBeActive {
				lines := []string{
					curTitle,
					fmt.Sprintf("MODE: %s", status.Mode),
					fmt.Sprintf("CLI:%s NOTIF:%s", boolMark(status.ClientAllowed), boolMark(status.NotificationAllowed)),
					fmt.Sprintf("ALARM: %s", boolMark(status.DimOrOffAlarmArmed)),
				}

				if err := h.display.PrintLines(0, lines); err != nil {
					log.Printf("failed to print lines to display: %v", err)
				}
				if err := h.display.Update(); err != nil {
					log.Printf("failed to update display: %v", err)
				}
			}
		}
	}
}

func boolMark(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// statusResponse mirrors displayapi's GET /status response data payload.
type statusResponse struct {
	Mode                string `json:"mode"`
	ClientAllowed       bool   `json:"client_allowed"`
	NotificationAllowed bool   `json:"notification_allowed"`
	DimOrOffAlarmArmed  bool   `json:"dim_or_off_alarm_armed"`
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// fetchStatus contacts the displayapi server and returns the current
// display-power status.
func (h *Handler) fetchStatus(serverURL string) (statusResponse, error) {
	url := fmt.Sprintf("%s/status", serverURL)

	resp, err := h.httpClient.Get(url)
	if err != nil {
		return statusResponse{}, fmt.Errorf("failed to contact displaypowerd API: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return statusResponse{}, fmt.Errorf("displaypowerd API returned status %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return statusResponse{}, fmt.Errorf("failed to decode API response: %w", err)
	}
	if envelope.Status != "ok" {
		return statusResponse{}, fmt.Errorf("API returned error status: %s", envelope.Message)
	}

	var status statusResponse
	if err := json.Unmarshal(envelope.Data, &status); err != nil {
		return statusResponse{}, fmt.Errorf("failed to unmarshal status data: %w", err)
	}

	return status, nil
}

// handleDisplayEvent processes incoming MQTT display-power / long-press
// events to reset the panel's own activity timer.
func (h *Handler) handleDisplayEvent(topic string, payload []byte) {
	log.Printf("received display event on topic %s: %s", topic, string(payload))

	h.activityMutex.Lock()
	h.lastActivity = time.Now()
	if !h.panelActive {
		h.panelActive = true
		log.Printf("status panel reactivated by display event")
	}
	h.activityMutex.Unlock()
}

// shouldPanelBeActive returns true if the status panel itself should be
// lit, based on displayTimeout since the last observed display event.
func (h *Handler) shouldPanelBeActive(displayTimeout time.Duration, mqttServerConfig string) bool {
	if displayTimeout <= 0 {
		return true
	}

	h.activityMutex.RLock()
	defer h.activityMutex.RUnlock()

	// Only allow blanking if MQTT is configured and connected, since
	// that's the only way the panel can be woken back up.
	if mqttServerConfig == "" || h.mqttClient == nil || !h.mqttClient.IsConnected() {
		return true
	}

	return time.Since(h.lastActivity) < displayTimeout
}

// setPanelActive sets the panel active/inactive state, clearing the
// physical display when transitioning to inactive.
func (h *Handler) setPanelActive(active bool) {
	h.activityMutex.Lock()
	defer h.activityMutex.Unlock()

	if h.panelActive != active {
		h.panelActive = active
		if !active {
			log.Printf("status panel blanked due to inactivity")
			h.display.ClearScreen() //nolint:errcheck
		} else {
			log.Printf("status panel activated")
		}
	}
}
