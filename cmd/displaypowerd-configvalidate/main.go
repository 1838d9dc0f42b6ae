package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/displaypowerd/displaypowerd/internal/daemon"
	"github.com/displaypowerd/displaypowerd/internal/displayctl"
	"github.com/displaypowerd/displaypowerd/internal/statuspanel"
	"github.com/displaypowerd/displaypowerd/internal/version"
)

func main() {
	var (
		versionFlag = pflag.Bool("version", false, "Show version and exit")
		configType  = pflag.String("type", "", "Configuration type: daemon, displayctl, or statuspanel")
		configFile  = pflag.String("config", "", "Configuration file to validate")
		helpFlag    = pflag.BoolP("help", "h", false, "Show help")
	)

	pflag.Parse()

	if *versionFlag {
		version.ShowVersion()
		os.Exit(0)
	}

	if *helpFlag {
		usage()
		os.Exit(0)
	}

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --config flag is required\n\n")
		usage()
		os.Exit(1)
	}

	if *configType == "" {
		fmt.Fprintf(os.Stderr, "Error: --type flag is required\n\n")
		usage()
		os.Exit(1)
	}

	if _, err := os.Stat(*configFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Configuration file %s does not exist\n", *configFile)
		os.Exit(1)
	}

	var err error
	switch *configType {
	case "daemon":
		err = validateDaemonConfig(*configFile)
	case "displayctl":
		err = validateDisplayctlConfig(*configFile)
	case "statuspanel":
		err = validateStatuspanelConfig(*configFile)
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown configuration type '%s'. Must be 'daemon', 'displayctl', or 'statuspanel'\n", *configType)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration file %s is valid for %s\n", *configFile, *configType)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s --type TYPE --config FILE\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "A tool for validating displaypowerd configuration files.\n\n")

	fmt.Fprintf(os.Stderr, "Options:\n")
	pflag.PrintDefaults()

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s --type daemon --config displaypowerd.toml\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --type displayctl --config displayctl.toml\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --type statuspanel --config statuspanel.toml\n", os.Args[0])
}

// withCleanFlagSet runs fn against a fresh pflag.FlagSet, restoring the
// process-global one afterward, so repeated validations don't collide on
// flag redefinition (mirrors the teacher's own configvalidate tool).
func withCleanFlagSet(name string, fn func(fs *pflag.FlagSet)) {
	original := pflag.CommandLine
	defer func() { pflag.CommandLine = original }()

	pflag.CommandLine = pflag.NewFlagSet(name, pflag.ContinueOnError)
	fn(pflag.CommandLine)
}

func validateDaemonConfig(configFile string) error {
	var loadErr error
	withCleanFlagSet("daemon-validation", func(fs *pflag.FlagSet) {
		cfg := daemon.NewConfig()
		cfg.ConfigFile = configFile
		cfg.AddFlags(fs)

		if err := fs.Parse([]string{}); err != nil {
			loadErr = fmt.Errorf("failed to parse flags: %w", err)
			return
		}

		if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
			loadErr = fmt.Errorf("failed to load daemon configuration: %w", err)
			return
		}

		loadErr = validateDaemonValues(cfg)
	})
	return loadErr
}

func validateDaemonValues(cfg *daemon.Config) error {
	if cfg.ListenPort <= 0 || cfg.ListenPort > 65535 {
		return fmt.Errorf("listen port must be between 1 and 65535, got %d", cfg.ListenPort)
	}
	if cfg.GPIOChip == "" {
		return fmt.Errorf("gpio-chip is required")
	}
	if cfg.PowerButtonLine == "" {
		return fmt.Errorf("power-button-line is required")
	}
	if cfg.ProximityLine == "" {
		return fmt.Errorf("proximity-line is required")
	}
	if cfg.DisplayPowerPin == "" {
		return fmt.Errorf("display-power-pin is required")
	}
	if cfg.BacklightEnablePin == "" || cfg.BacklightFullPin == "" {
		return fmt.Errorf("backlight-enable-pin and backlight-full-pin are both required")
	}
	if cfg.PowerButtonLongPressTimeout <= 0 {
		return fmt.Errorf("long-press-timeout must be positive, got %s", cfg.PowerButtonLongPressTimeout)
	}
	if cfg.NormalDisplayDimDuration <= 0 {
		return fmt.Errorf("normal-dim-duration must be positive, got %s", cfg.NormalDisplayDimDuration)
	}
	if cfg.NormalDisplayOffTimeout <= 0 {
		return fmt.Errorf("normal-off-timeout must be positive, got %s", cfg.NormalDisplayOffTimeout)
	}
	if cfg.ReducedDisplayOffTimeout <= 0 {
		return fmt.Errorf("reduced-off-timeout must be positive, got %s", cfg.ReducedDisplayOffTimeout)
	}
	return nil
}

func validateDisplayctlConfig(configFile string) error {
	var loadErr error
	withCleanFlagSet("displayctl-validation", func(fs *pflag.FlagSet) {
		cfg := displayctl.NewConfig()
		cfg.ConfigFile = configFile
		cfg.AddFlags(fs)

		if err := fs.Parse([]string{}); err != nil {
			loadErr = fmt.Errorf("failed to parse flags: %w", err)
			return
		}

		if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
			loadErr = fmt.Errorf("failed to load displayctl configuration: %w", err)
			return
		}

		if cfg.ServerURL == "" {
			loadErr = fmt.Errorf("server-url is required")
		}
	})
	return loadErr
}

func validateStatuspanelConfig(configFile string) error {
	var loadErr error
	withCleanFlagSet("statuspanel-validation", func(fs *pflag.FlagSet) {
		cfg := statuspanel.NewConfig()
		cfg.ConfigFile = configFile
		cfg.AddFlags(fs)

		if err := fs.Parse([]string{}); err != nil {
			loadErr = fmt.Errorf("failed to parse flags: %w", err)
			return
		}

		if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
			loadErr = fmt.Errorf("failed to load statuspanel configuration: %w", err)
			return
		}

		if cfg.ServerURL == "" {
			loadErr = fmt.Errorf("server-url is required")
		}
		if cfg.UpdateInterval <= 0 {
			loadErr = fmt.Errorf("update-interval must be positive, got %s", cfg.UpdateInterval)
		}
	})
	return loadErr
}
