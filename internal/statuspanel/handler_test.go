package statuspanel

import (
	"testing"
	"time"

	"github.com/larsks/display1306/v2/display"
	"github.com/larsks/display1306/v2/display/fakedriver"
)

func TestNewHandler(t *testing.T) {
	d, err := display.NewDisplay().WithDriver(fakedriver.NewFakeSSD1306()).Build()
	if err != nil {
		t.Fatalf("failed to build fake display: %v", err)
	}

	handler := NewHandler(d)
	if handler == nil {
		t.Fatal("NewHandler returned nil")
	}
	if handler.display == nil {
		t.Fatal("handler display is nil")
	}
}

func TestHandlerWithFakeDisplay(t *testing.T) {
	d, err := display.NewDisplay().WithDriver(fakedriver.NewFakeSSD1306()).Build()
	if err != nil {
		t.Fatalf("failed to build display: %v", err)
	}

	handler := NewHandler(d)
	if handler == nil {
		t.Fatal("NewHandler returned nil")
	}

	if err := handler.display.Init(); err != nil {
		t.Fatalf("failed to initialize display: %v", err)
	}
	defer handler.display.Close()

	if err := handler.display.ClearScreen(); err != nil {
		t.Fatalf("failed to clear display: %v", err)
	}

	lines := []string{"Test", "Line 1", "Line 2"}
	if err := handler.display.PrintLines(0, lines); err != nil {
		t.Fatalf("failed to print lines: %v", err)
	}

	if err := handler.display.Update(); err != nil {
		t.Fatalf("failed to update display: %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg == nil {
		t.Fatal("NewConfig returned nil")
	}
	if cfg.UpdateInterval != 5*time.Second {
		t.Errorf("expected update interval 5s, got %v", cfg.UpdateInterval)
	}
	if cfg.ServerURL == "" {
		t.Error("expected non-empty server URL")
	}
}

func TestShouldPanelBeActiveNoTimeout(t *testing.T) {
	h := &Handler{panelActive: true, lastActivity: time.Now()}
	if !h.shouldPanelBeActive(0, "") {
		t.Error("expected panel active when displayTimeout is disabled")
	}
}

func TestShouldPanelBeActiveNoMqtt(t *testing.T) {
	h := &Handler{panelActive: true, lastActivity: time.Now().Add(-time.Hour)}
	if !h.shouldPanelBeActive(time.Minute, "") {
		t.Error("expected panel always active without an MQTT connection to wake it")
	}
}

func TestBoolMark(t *testing.T) {
	if boolMark(true) != "Y" {
		t.Error("expected Y for true")
	}
	if boolMark(false) != "N" {
		t.Error("expected N for false")
	}
}
