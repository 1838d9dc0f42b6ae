// Package daemon wires internal/displaystate's core state machine to its
// real collaborators (GPIO power button and proximity sensor, periph.io
// display-power and backlight outputs, MQTT event sink, alarmtimer clock)
// and serves internal/displayapi over HTTP, the way the teacher's
// internal/api.Server wires switch collections into a chi router and
// drives them from main.
package daemon

import (
	"fmt"
	"log"

	"github.com/displaypowerd/displaypowerd/internal/alarmtimer"
	"github.com/displaypowerd/displaypowerd/internal/backlight"
	"github.com/displaypowerd/displaypowerd/internal/cli"
	"github.com/displaypowerd/displaypowerd/internal/displayapi"
	"github.com/displaypowerd/displaypowerd/internal/displaypower"
	"github.com/displaypowerd/displaypowerd/internal/displaystate"
	"github.com/displaypowerd/displaypowerd/internal/eventsink"
	"github.com/displaypowerd/displaypowerd/internal/httpserver"
	"github.com/displaypowerd/displaypowerd/internal/mqtt"
	"github.com/displaypowerd/displaypowerd/internal/powerbutton"
	"github.com/displaypowerd/displaypowerd/internal/proximity"
)

// Server owns a running displaystate.Machine, its hardware collaborators,
// and the HTTP control plane in front of it.
type Server struct {
	cfg *Config

	timer      *alarmtimer.Timer
	dispatcher *alarmtimer.Dispatcher
	machine    *displaystate.Machine

	button    *powerbutton.Button
	proxim    *proximity.Sensor
	backlight *backlight.Backlight
	power     *displaypower.Control
	mqttConn  *mqtt.Client

	apiServer *displayapi.Server
}

// NewServer constructs a Server from cfg, opening the GPIO/periph.io
// collaborators and the optional MQTT connection. It does not start the
// event loop or HTTP listener; call Run for that.
func NewServer(cfg *Config) (*Server, error) {
	power, err := displaypower.Open(cfg.DisplayPowerPin)
	if err != nil {
		return nil, fmt.Errorf("failed to open display power control: %w", err)
	}

	bl, err := backlight.Open(cfg.BacklightEnablePin, cfg.BacklightFullPin)
	if err != nil {
		return nil, fmt.Errorf("failed to open backlight control: %w", err)
	}

	button, err := powerbutton.Open(cfg.GPIOChip, cfg.PowerButtonLine, cfg.InputDebounce)
	if err != nil {
		return nil, fmt.Errorf("failed to open power button input: %w", err)
	}

	proxim, err := proximity.Open(cfg.GPIOChip, cfg.ProximityLine, cfg.InputDebounce)
	if err != nil {
		return nil, fmt.Errorf("failed to open proximity sensor input: %w", err)
	}

	var mqttConn *mqtt.Client
	if cfg.MqttServer != "" {
		mqttConn, err = mqtt.NewClient(mqtt.Config{
			ServerURL: cfg.MqttServer,
			ClientID:  "displaypowerd",
		})
		if err != nil {
			log.Printf("failed to initialize MQTT client: %v", err)
		}
	}
	sink := eventsink.New(mqttConn, "")

	timer := alarmtimer.New()
	machine, err := displaystate.New(displaystate.Config{
		PowerButtonLongPressTimeout: cfg.PowerButtonLongPressTimeout,
		NormalDisplayDimDuration:    cfg.NormalDisplayDimDuration,
		NormalDisplayOffTimeout:     cfg.NormalDisplayOffTimeout,
		ReducedDisplayOffTimeout:    cfg.ReducedDisplayOffTimeout,
	}, displaystate.Collaborators{
		Timer:        timer,
		Brightness:   bl,
		DisplayPower: power,
		DisplaySink:  sink,
		ButtonSink:   sink,
		Proximity:    proxim,
	})
	if err != nil {
		timer.Close()
		return nil, fmt.Errorf("failed to construct display state machine: %w", err)
	}

	dispatcher := alarmtimer.NewDispatcher(timer)

	s := &Server{
		cfg:        cfg,
		timer:      timer,
		dispatcher: dispatcher,
		machine:    machine,
		button:     button,
		proxim:     proxim,
		backlight:  bl,
		power:      power,
		mqttConn:   mqttConn,
	}
	s.apiServer = displayapi.NewServer(machine, dispatcher)

	return s, nil
}

// Run drives the dispatch loop, the GPIO input watchers, and the HTTP
// control plane until an interrupt or terminate signal arrives, then
// shuts everything down.
func (s *Server) Run() error {
	go s.dispatcher.Run(s.machine.HandleAlarm)

	s.button.Start()
	s.proxim.Start()

	go s.button.Run(
		func() { s.dispatcher.Submit(s.machine.HandlePowerButtonPress) },
		func() { s.dispatcher.Submit(s.machine.HandlePowerButtonRelease) },
	)
	go s.proxim.Run(
		func() { s.dispatcher.Submit(s.machine.HandleProximityFar) },
		func() { s.dispatcher.Submit(s.machine.HandleProximityNear) },
	)

	// StartFromConfig blocks until SIGINT/SIGTERM, then gracefully shuts
	// the HTTP listener down before returning.
	if err := httpserver.StartFromConfig(s.cfg, s.apiServer.Router()); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}

	return s.Close()
}

// Close releases every collaborator's underlying resources.
func (s *Server) Close() error {
	s.dispatcher.Close()
	s.timer.Close()

	if s.mqttConn != nil {
		s.mqttConn.Disconnect(250)
	}

	var errs []error
	if err := s.button.Close(); err != nil {
		errs = append(errs, fmt.Errorf("power button: %w", err))
	}
	if err := s.proxim.Close(); err != nil {
		errs = append(errs, fmt.Errorf("proximity sensor: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing collaborators: %v", errs)
	}
	return nil
}

// Handler adapts Server to internal/cli.CommandHandler: it builds a
// Server from the loaded Config and runs it to completion.
type Handler struct{}

// Start implements internal/cli.CommandHandler.
func (Handler) Start(config cli.Configurable) error {
	cfg, ok := config.(*Config)
	if !ok {
		return fmt.Errorf("daemon: unexpected config type %T", config)
	}

	server, err := NewServer(cfg)
	if err != nil {
		return err
	}

	return server.Run()
}
