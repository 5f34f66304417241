package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Debug      bool             `yaml:"debug"` // Enable debug logging
	API        APIConfig        `yaml:"api"`
	Roster     Roster           `yaml:"roster"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Journal    JournalConfig    `yaml:"journal"`
	Web        WebConfig        `yaml:"web"`
	Notify     NotifyConfig     `yaml:"notify"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// APIConfig represents the game API connection
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Token    string        `yaml:"token"`     // Direct token (takes precedence over token_env)
	TokenEnv string        `yaml:"token_env"` // Environment variable name containing the token
	Timeout  time.Duration `yaml:"timeout"`
}

// Roster maps a persona name to the characters that play it
type Roster map[string][]string

// SupervisorConfig bounds how runners are restarted after failures
type SupervisorConfig struct {
	MaxRestarts    int           `yaml:"max_restarts"` // 0 means unlimited
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	FailFast       bool          `yaml:"fail_fast"` // Stop every runner when one fails for good
}

// JournalConfig represents action journal housekeeping
type JournalConfig struct {
	Retention time.Duration `yaml:"retention"` // Actions older than this are pruned at startup, 0 keeps everything
}

// WebConfig represents the status web server
type WebConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	AdminToken    string `yaml:"admin_token"`
	AdminTokenEnv string `yaml:"admin_token_env"`
}

// NotifyConfig represents digest email configuration
type NotifyConfig struct {
	Enabled        bool     `yaml:"enabled"`
	SendGridAPIKey string   `yaml:"sendgrid_api_key"`     // Direct API key
	SendGridKeyEnv string   `yaml:"sendgrid_api_key_env"` // Environment variable name
	FromEmail      string   `yaml:"from_email"`
	FromName       string   `yaml:"from_name"`
	To             []string `yaml:"to"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

// TelemetryConfig represents OpenTelemetry tracing configuration
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"` // OTLP/HTTP endpoint, empty disables tracing
	ServiceName string `yaml:"service_name"`
}

// envOverlay holds the settings that may come from the environment.
// Set variables win over the config file.
type envOverlay struct {
	DataDir      string   `env:"ARTIFACTS_DATA_DIR"`
	BaseURL      string   `env:"ARTIFACTS_BASE_URL"`
	OTLPEndpoint string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Fighters     []string `env:"FIGHTER_LIST" envSeparator:","`
	Fishers      []string `env:"FISHING_LIST" envSeparator:","`
	Alchemists   []string `env:"ALCHEMY_LIST" envSeparator:","`
	Woodcutters  []string `env:"WOODCUTTING_LIST" envSeparator:","`
	Miners       []string `env:"MINING_LIST" envSeparator:","`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "~/.local/share/artifacts",
		API: APIConfig{
			BaseURL:  "https://api.artifactsmmo.com",
			TokenEnv: "ARTIFACTS_MMO_TOKEN",
			Timeout:  30 * time.Second,
		},
		Roster: Roster{},
		Supervisor: SupervisorConfig{
			MaxRestarts:    0,
			InitialBackoff: 5 * time.Second,
			MaxBackoff:     5 * time.Minute,
		},
		Journal: JournalConfig{
			Retention: 30 * 24 * time.Hour,
		},
		Web: WebConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          8080,
			AdminTokenEnv: "ARTIFACTS_ADMIN_TOKEN",
		},
		Notify: NotifyConfig{
			Enabled:        false,
			SendGridKeyEnv: "SENDGRID_API_KEY",
			FromEmail:      "artifacts@example.com",
			FromName:       "Artifacts Digest",
			SubjectPrefix:  "[Artifacts]",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "artifacts",
		},
	}
}

// Load loads configuration from the specified path, falling back to defaults,
// and applies the environment overlay
func Load(configPath string) (*Config, error) {
	// If no path specified, use default location
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, ".config", "artifacts", "config.yaml")
	}

	// Expand ~ in path
	configPath = expandPath(configPath)

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults and environment only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Expand ~ in data_dir if present
	cfg.DataDir = expandPath(cfg.DataDir)

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var overlay envOverlay
	if err := env.Parse(&overlay); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if overlay.DataDir != "" {
		c.DataDir = overlay.DataDir
	}
	if overlay.BaseURL != "" {
		c.API.BaseURL = overlay.BaseURL
	}
	if overlay.OTLPEndpoint != "" {
		c.Telemetry.Endpoint = overlay.OTLPEndpoint
	}

	if c.Roster == nil {
		c.Roster = Roster{}
	}
	lists := map[string][]string{
		"fighter":     overlay.Fighters,
		"fishing":     overlay.Fishers,
		"alchemy":     overlay.Alchemists,
		"woodcutting": overlay.Woodcutters,
		"mining":      overlay.Miners,
	}
	for persona, names := range lists {
		if names = compact(names); len(names) > 0 {
			c.Roster[persona] = names
		}
	}
	return nil
}

// compact trims each name and drops the blanks left by stray separators,
// e.g. "Ann, ,Bob,".
func compact(names []string) []string {
	for i, n := range names {
		names[i] = strings.TrimSpace(n)
	}
	return slices.DeleteFunc(names, func(n string) bool { return n == "" })
}

// expandPath expands ~ to home directory in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if len(path) == 1 {
			return homeDir
		}
		return filepath.Join(homeDir, path[1:])
	}

	return path
}

// EnsureDataDir creates the data directory if it doesn't exist
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// GetToken returns the API token, checking direct token first then env var
func (c *Config) GetToken() string {
	if c.API.Token != "" {
		return c.API.Token
	}
	if c.API.TokenEnv != "" {
		return os.Getenv(c.API.TokenEnv)
	}
	return ""
}

// GetAdminToken returns the web admin token, checking direct token first then env var
func (c *Config) GetAdminToken() string {
	if c.Web.AdminToken != "" {
		return c.Web.AdminToken
	}
	if c.Web.AdminTokenEnv != "" {
		return os.Getenv(c.Web.AdminTokenEnv)
	}
	return ""
}

// GetSendGridAPIKey returns the SendGrid API key, checking direct key first then env var
func (c *Config) GetSendGridAPIKey() string {
	if c.Notify.SendGridAPIKey != "" {
		return c.Notify.SendGridAPIKey
	}
	if c.Notify.SendGridKeyEnv != "" {
		return os.Getenv(c.Notify.SendGridKeyEnv)
	}
	return ""
}

// WebAddr returns the listen address of the status server
func (c *Config) WebAddr() string {
	return net.JoinHostPort(c.Web.Host, strconv.Itoa(c.Web.Port))
}

// Characters returns the number of characters on the roster
func (c *Config) Characters() int {
	n := 0
	for _, names := range c.Roster {
		n += len(names)
	}
	return n
}

// Validate reports settings the daemon cannot run without
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is not set"))
	}
	if c.GetToken() == "" {
		errs = append(errs, fmt.Errorf("no API token: set api.token or %s", c.API.TokenEnv))
	}
	if c.Characters() == 0 {
		errs = append(errs, errors.New("roster is empty"))
	}
	if c.Supervisor.MaxRestarts < 0 {
		errs = append(errs, errors.New("supervisor.max_restarts must not be negative"))
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		errs = append(errs, fmt.Errorf("web.port %d is out of range", c.Web.Port))
	}
	if c.Notify.Enabled && len(c.Notify.To) == 0 {
		errs = append(errs, errors.New("notify.to is empty"))
	}
	return errors.Join(errs...)
}
