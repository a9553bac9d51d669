// ABOUTME: Configuration loading and parsing for dushu-server
// ABOUTME: Supports YAML files with environment variable expansion and .env loading

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete dushu-server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Vision    VisionConfig    `yaml:"vision"`
	Dict      DictConfig      `yaml:"dict"`
	Store     StoreConfig     `yaml:"store"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Auth modes. A deployment runs exactly one.
const (
	ModePassword = "password"
	ModeGoogle   = "google"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Mode           string       `yaml:"mode"`
	SessionSecret  string       `yaml:"session_secret"`
	Password       string       `yaml:"password"`
	PasswordBcrypt string       `yaml:"password_bcrypt"`
	Google         GoogleConfig `yaml:"google"`

	SessionTTL    time.Duration `yaml:"-"`
	SessionTTLRaw string        `yaml:"session_ttl"`
}

// GoogleConfig holds the OAuth provider credentials and allow-list
type GoogleConfig struct {
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	RedirectURL   string   `yaml:"redirect_url"`
	AllowedEmails []string `yaml:"allowed_emails"`
}

// VisionConfig holds Google Cloud Vision configuration
type VisionConfig struct {
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// DictConfig holds dictionary file configuration
type DictConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig holds database configuration
type StoreConfig struct {
	DBPath string `yaml:"db_path"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// Load reads the configuration. A .env file in the working directory is
// loaded into the environment first, ${VAR_NAME} patterns in the YAML are
// expanded, and defaults are applied. A missing config file is not an
// error: the defaults plus environment variables form a full config.
func Load(path string) (*Config, error) {
	// Missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults + environment only
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset fields from the environment and built-in
// defaults, mirroring how the app is configured without a config file.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":5000"
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.HTTPAddr = ":" + port
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = ModePassword
	}
	if c.Auth.SessionSecret == "" {
		c.Auth.SessionSecret = os.Getenv("SECRET_KEY")
	}
	if c.Auth.Password == "" {
		c.Auth.Password = os.Getenv("APP_PASSWORD")
	}
	if c.Auth.SessionTTLRaw == "" {
		c.Auth.SessionTTLRaw = "720h" // 30 days
	}
	if c.Auth.Google.ClientID == "" {
		c.Auth.Google.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.Auth.Google.ClientSecret == "" {
		c.Auth.Google.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}

	if c.Vision.APIKey == "" {
		c.Vision.APIKey = os.Getenv("GOOGLE_VISION_API_KEY")
	}
	if c.Vision.TimeoutRaw == "" {
		c.Vision.TimeoutRaw = "30s"
	}

	if c.Dict.Path == "" {
		c.Dict.Path = filepath.Join(DataDir(), "cedict_ts.u8")
	}

	if c.Store.DBPath == "" {
		c.Store.DBPath = filepath.Join(DataDir(), "dushu.db")
	}

	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "dushu"
	}
	if c.Tailscale.AuthKey == "" {
		c.Tailscale.AuthKey = os.Getenv("TS_AUTHKEY")
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func (c *Config) parseDurations() error {
	var err error

	c.Auth.SessionTTL, err = time.ParseDuration(c.Auth.SessionTTLRaw)
	if err != nil {
		return fmt.Errorf("parsing session_ttl %q: %w", c.Auth.SessionTTLRaw, err)
	}

	c.Vision.Timeout, err = time.ParseDuration(c.Vision.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing vision timeout %q: %w", c.Vision.TimeoutRaw, err)
	}

	return nil
}

// Validate checks that all required configuration fields are present and
// valid. Validation failure is fatal before serving any traffic.
func (c *Config) Validate() error {
	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision.api_key is required (set GOOGLE_VISION_API_KEY)")
	}

	switch c.Auth.Mode {
	case ModePassword:
		if c.Auth.Password == "" && c.Auth.PasswordBcrypt == "" {
			return fmt.Errorf("auth.password or auth.password_bcrypt is required in password mode (set APP_PASSWORD)")
		}
	case ModeGoogle:
		if c.Auth.Google.ClientID == "" || c.Auth.Google.ClientSecret == "" {
			return fmt.Errorf("auth.google.client_id and client_secret are required in google mode")
		}
		if c.Auth.SessionSecret == "" {
			return fmt.Errorf("auth.session_secret is required in google mode (sessions must survive restarts)")
		}
	default:
		return fmt.Errorf("auth.mode must be %q or %q, got %q", ModePassword, ModeGoogle, c.Auth.Mode)
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	return nil
}

// DataDir returns the dushu data directory.
// Priority: XDG_DATA_HOME/dushu > ~/.local/share/dushu
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "dushu")
}
