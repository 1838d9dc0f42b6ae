package displayctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/displaypowerd/displaypowerd/internal/version"
	"github.com/spf13/pflag"
)

// APIResponse mirrors internal/displayapi.APIResponse, the envelope every
// displaypowerd control route returns.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// StatusResponse mirrors internal/displayapi's GET /status payload.
type StatusResponse struct {
	Mode                string `json:"mode"`
	ClientAllowed       bool   `json:"client_allowed"`
	NotificationAllowed bool   `json:"notification_allowed"`
	DimOrOffAlarmArmed  bool   `json:"dim_or_off_alarm_armed"`
}

// HTTPClient is the subset of *http.Client used, so tests can substitute
// a fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CommandArgs represents parsed displayctl command-line arguments. It
// carries its subcommand and flags directly rather than going through
// internal/cli.CommandArgs, which has no field for subcommand arguments.
type CommandArgs struct {
	Command        string
	TimeoutSeconds uint
	Infinite       bool
	Config         *Config
}

// ParseArgs parses os.Args-style arguments using pflag.CommandLine.
func ParseArgs(args []string) (*CommandArgs, error) {
	return ParseArgsWithFlagSet(args, pflag.CommandLine)
}

// ParseArgsWithFlagSet parses arguments with a custom flag set (for testing).
func ParseArgsWithFlagSet(args []string, fs *pflag.FlagSet) (*CommandArgs, error) {
	versionFlag := fs.Bool("version", false, "Show version and exit")
	helpFlag := fs.BoolP("help", "h", false, "Show help")

	cfg := NewConfig()
	cfg.AddFlags(fs)

	timeoutSeconds := fs.Uint("timeout", 0, "Inactivity timeout in seconds (for set-timeout)")
	infinite := fs.Bool("infinite", false, "Set an infinite inactivity timeout (for set-timeout)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *versionFlag {
		return &CommandArgs{Command: "version", Config: cfg}, nil
	}
	if *helpFlag {
		return &CommandArgs{Command: "help", Config: cfg}, nil
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return &CommandArgs{Command: "help", Config: cfg}, nil
	}

	if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &CommandArgs{
		Command:        remaining[0],
		TimeoutSeconds: *timeoutSeconds,
		Infinite:       *infinite,
		Config:         cfg,
	}, nil
}

// CLI executes displayctl commands against a displaypowerd API server.
type CLI struct {
	httpClient HTTPClient
	stdout     io.Writer
	stderr     io.Writer
}

// NewCLI creates a new CLI instance.
func NewCLI(httpClient HTTPClient, stdout, stderr io.Writer) *CLI {
	return &CLI{httpClient: httpClient, stdout: stdout, stderr: stderr}
}

// Execute runs the command named in cmdArgs.
func (c *CLI) Execute(cmdArgs *CommandArgs) error {
	switch cmdArgs.Command {
	case "version":
		version.ShowVersion()
		return nil
	case "help":
		c.showHelp()
		return nil
	case "on":
		return c.cmdOn(cmdArgs.Config)
	case "enable-timeout":
		return c.cmdEnableTimeout(cmdArgs.Config)
	case "disable-timeout":
		return c.cmdDisableTimeout(cmdArgs.Config)
	case "set-timeout":
		return c.cmdSetTimeout(cmdArgs.Config, cmdArgs.TimeoutSeconds, cmdArgs.Infinite)
	case "notification":
		return c.cmdNotification(cmdArgs.Config)
	case "no-notification":
		return c.cmdNoNotification(cmdArgs.Config)
	case "active-call":
		return c.cmdActiveCall(cmdArgs.Config)
	case "no-active-call":
		return c.cmdNoActiveCall(cmdArgs.Config)
	case "status":
		return c.cmdStatus(cmdArgs.Config)
	default:
		return fmt.Errorf("unknown command: %s", cmdArgs.Command)
	}
}

func (c *CLI) showHelp() {
	fmt.Fprintf(c.stdout, `displayctl - Command line tool for controlling displaypowerd

Usage: displayctl [flags] <command>

Commands:
  on                Turn the display on
  enable-timeout    Re-enable the client inactivity timeout allowance
  disable-timeout   Disable the client inactivity timeout allowance
  set-timeout       Set the inactivity timeout (use --timeout or --infinite)
  notification      Report a pending notification (suspends the inactivity timeout)
  no-notification   Report the pending notification cleared (reduced inactivity timeout)
  active-call       Report a voice call is active (normal inactivity timeout)
  no-active-call    Report the voice call ended (reduced inactivity timeout)
  status            Show the current display power status
  help              Show this help
  version           Show version information

Flags:
  --config string       Config file to use (default "%s")
  --infinite             Set an infinite inactivity timeout (for set-timeout)
  --timeout uint         Inactivity timeout in seconds (for set-timeout)
  --server-url string    API server URL (default "%s")
  -h, --help             Show help
  --version              Show version and exit
`, getDefaultConfigFile(), defaultServerURL)
}

func (c *CLI) cmdOn(cfg *Config) error {
	if _, err := c.makeAPIRequest(cfg, "POST", "/display/on", nil); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Display turned on")
	return nil
}

func (c *CLI) cmdEnableTimeout(cfg *Config) error {
	if _, err := c.makeAPIRequest(cfg, "POST", "/inactivity-timeout/enable", nil); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Inactivity timeout enabled")
	return nil
}

func (c *CLI) cmdDisableTimeout(cfg *Config) error {
	if _, err := c.makeAPIRequest(cfg, "POST", "/inactivity-timeout/disable", nil); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Inactivity timeout disabled")
	return nil
}

func (c *CLI) cmdSetTimeout(cfg *Config, timeoutSeconds uint, infinite bool) error {
	var body struct {
		TimeoutSeconds *uint `json:"timeout_seconds,omitempty"`
		Infinite       bool  `json:"infinite,omitempty"`
	}
	switch {
	case infinite:
		body.Infinite = true
	case timeoutSeconds > 0:
		body.TimeoutSeconds = &timeoutSeconds
	default:
		return fmt.Errorf("set-timeout requires --timeout N or --infinite")
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := c.makeAPIRequest(cfg, "PUT", "/inactivity-timeout", reqBody); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Inactivity timeout updated")
	return nil
}

func (c *CLI) cmdNotification(cfg *Config) error {
	if _, err := c.makeAPIRequest(cfg, "POST", "/notification", nil); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Notification reported")
	return nil
}

func (c *CLI) cmdNoNotification(cfg *Config) error {
	if _, err := c.makeAPIRequest(cfg, "POST", "/no-notification", nil); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Notification cleared")
	return nil
}

func (c *CLI) cmdActiveCall(cfg *Config) error {
	if _, err := c.makeAPIRequest(cfg, "POST", "/active-call", nil); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Active call reported")
	return nil
}

func (c *CLI) cmdNoActiveCall(cfg *Config) error {
	if _, err := c.makeAPIRequest(cfg, "POST", "/no-active-call", nil); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Active call ended")
	return nil
}

func (c *CLI) cmdStatus(cfg *Config) error {
	resp, err := c.makeAPIRequest(cfg, "GET", "/status", nil)
	if err != nil {
		return err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(resp, &apiResp); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	if apiResp.Status != "ok" {
		return fmt.Errorf("API error: %s", apiResp.Message)
	}

	dataBytes, err := json.Marshal(apiResp.Data)
	if err != nil {
		return fmt.Errorf("error marshaling data: %w", err)
	}

	var status StatusResponse
	if err := json.Unmarshal(dataBytes, &status); err != nil {
		return fmt.Errorf("error parsing status data: %w", err)
	}

	fmt.Fprintf(c.stdout, "Mode: %s\n", status.Mode)
	fmt.Fprintf(c.stdout, "Client allowance: %t\n", status.ClientAllowed)
	fmt.Fprintf(c.stdout, "Notification allowance: %t\n", status.NotificationAllowed)
	fmt.Fprintf(c.stdout, "Dim/off alarm armed: %t\n", status.DimOrOffAlarmArmed)
	return nil
}

func (c *CLI) makeAPIRequest(cfg *Config, method, path string, body []byte) ([]byte, error) {
	url := cfg.ServerURL + path

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, strings.NewReader(string(body)))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiResp APIResponse
		if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Message != "" {
			return nil, fmt.Errorf("API error: %s", apiResp.Message)
		}
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	return respBody, nil
}
