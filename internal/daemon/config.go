package daemon

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/displaypowerd/displaypowerd/internal/config"
)

// Config holds the configuration for the displaypowerd daemon, following
// the same mapstructure-tagged shape as the teacher's internal/api.Config.
type Config struct {
	ListenAddress string `mapstructure:"listen-address"`
	ListenPort    int    `mapstructure:"listen-port"`
	ConfigFile    string `mapstructure:"config-file"`
	MqttServer    string `mapstructure:"mqtt-server"`

	GPIOChip           string        `mapstructure:"gpio-chip"`
	PowerButtonLine    string        `mapstructure:"power-button-line"`
	ProximityLine      string        `mapstructure:"proximity-line"`
	DisplayPowerPin    string        `mapstructure:"display-power-pin"`
	BacklightEnablePin string        `mapstructure:"backlight-enable-pin"`
	BacklightFullPin   string        `mapstructure:"backlight-full-pin"`
	InputDebounce      time.Duration `mapstructure:"input-debounce"`

	PowerButtonLongPressTimeout time.Duration `mapstructure:"long-press-timeout"`
	NormalDisplayDimDuration    time.Duration `mapstructure:"normal-dim-duration"`
	NormalDisplayOffTimeout     time.Duration `mapstructure:"normal-off-timeout"`
	ReducedDisplayOffTimeout    time.Duration `mapstructure:"reduced-off-timeout"`
}

// NewConfig creates a new Config instance with default values.
func NewConfig() *Config {
	return &Config{
		ListenAddress: "",
		ListenPort:    8080,

		GPIOChip:           "gpiochip0",
		PowerButtonLine:    "GPIO17",
		ProximityLine:      "GPIO27",
		DisplayPowerPin:    "GPIO22",
		BacklightEnablePin: "GPIO23",
		BacklightFullPin:   "GPIO24",
		InputDebounce:      20 * time.Millisecond,

		PowerButtonLongPressTimeout: 2 * time.Second,
		NormalDisplayDimDuration:    10 * time.Second,
		NormalDisplayOffTimeout:     60 * time.Second,
		ReducedDisplayOffTimeout:    3 * time.Second,
	}
}

// AddFlags adds pflag flags for the configuration.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", "Config file to use")
	fs.StringVar(&c.ListenAddress, "listen-address", c.ListenAddress, "Listen address for http server")
	fs.IntVar(&c.ListenPort, "listen-port", c.ListenPort, "Listen port for http server")
	fs.StringVar(&c.MqttServer, "mqtt-server", c.MqttServer, "MQTT broker URL for display-power and long-press events (mqtt://host:port)")

	fs.StringVar(&c.GPIOChip, "gpio-chip", c.GPIOChip, "gpiocdev chip path for the power button and proximity sensor")
	fs.StringVar(&c.PowerButtonLine, "power-button-line", c.PowerButtonLine, "GPIO line spec for the power button (e.g. GPIO17 or GPIO17:activelow)")
	fs.StringVar(&c.ProximityLine, "proximity-line", c.ProximityLine, "GPIO line spec for the proximity sensor")
	fs.StringVar(&c.DisplayPowerPin, "display-power-pin", c.DisplayPowerPin, "periph.io pin spec for display power")
	fs.StringVar(&c.BacklightEnablePin, "backlight-enable-pin", c.BacklightEnablePin, "periph.io pin spec for backlight enable")
	fs.StringVar(&c.BacklightFullPin, "backlight-full-pin", c.BacklightFullPin, "periph.io pin spec for backlight full-brightness select")
	fs.DurationVar(&c.InputDebounce, "input-debounce", c.InputDebounce, "debounce delay applied to the power button and proximity lines")

	fs.DurationVar(&c.PowerButtonLongPressTimeout, "long-press-timeout", c.PowerButtonLongPressTimeout, "power button long-press detection timeout")
	fs.DurationVar(&c.NormalDisplayDimDuration, "normal-dim-duration", c.NormalDisplayDimDuration, "how long before the normal off-timeout the display dims")
	fs.DurationVar(&c.NormalDisplayOffTimeout, "normal-off-timeout", c.NormalDisplayOffTimeout, "normal inactivity off timeout")
	fs.DurationVar(&c.ReducedDisplayOffTimeout, "reduced-off-timeout", c.ReducedDisplayOffTimeout, "reduced inactivity off timeout (notification/call end)")
}

// LoadConfig loads the configuration from a file and binds it to the Config struct.
func (c *Config) LoadConfig() error {
	return c.LoadConfigWithFlagSet(pflag.CommandLine)
}

// LoadConfigWithFlagSet loads the configuration using a custom flag set (for testing).
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	loader := config.NewConfigLoader()
	loader.SetConfigFile(c.ConfigFile)

	loader.SetDefaults(map[string]any{
		"listen-address":        "",
		"listen-port":           8080,
		"mqtt-server":           "",
		"gpio-chip":             "gpiochip0",
		"power-button-line":     "GPIO17",
		"proximity-line":        "GPIO27",
		"display-power-pin":     "GPIO22",
		"backlight-enable-pin":  "GPIO23",
		"backlight-full-pin":    "GPIO24",
		"input-debounce":        20 * time.Millisecond,
		"long-press-timeout":    2 * time.Second,
		"normal-dim-duration":   10 * time.Second,
		"normal-off-timeout":    60 * time.Second,
		"reduced-off-timeout":   3 * time.Second,
	})

	return loader.LoadConfigWithFlagSet(c, fs)
}

// GetListenAddress satisfies internal/httpserver.Config.
func (c *Config) GetListenAddress() string { return c.ListenAddress }

// GetListenPort satisfies internal/httpserver.Config.
func (c *Config) GetListenPort() int { return c.ListenPort }
