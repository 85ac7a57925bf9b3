// Package config loads eventdesk settings from defaults, an optional YAML
// file, and EVENTDESK_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmcleod/eventdesk/internal/util"
)

const envPrefix = "EVENTDESK_"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bbolt"
	DriverPostgres = "postgres"
)

// Config is the complete eventdesk configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Log     LogConfig     `yaml:"log"`
	Shell   ShellConfig   `yaml:"shell"`
	Backend BackendConfig `yaml:"backend"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ShellConfig configures the terminal client.
type ShellConfig struct {
	// BackendURL is the base URL of the REST backend, including /api/v1.
	BackendURL string `yaml:"backend_url"`
	// SessionDriver stores the local session; memory forgets it on exit.
	SessionDriver string `yaml:"session_driver"`
	// StartPath is the location restored when no history is persisted.
	StartPath  string `yaml:"start_path"`
	Accessible bool   `yaml:"accessible"`
	AssumeYes  bool   `yaml:"assume_yes"`
	MaxHops    int    `yaml:"max_redirects"`
}

// BackendConfig configures the development backend.
type BackendConfig struct {
	Listen     string `yaml:"listen"`
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	KDFProfile string `yaml:"kdf_profile"`

	AdminName     string `yaml:"admin_name"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// Default returns the built-in configuration.
func Default() Config {
	dir := ".eventdesk"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".eventdesk")
	}
	return Config{
		DataDir: dir,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Shell: ShellConfig{
			BackendURL:    "http://127.0.0.1:8080/api/v1",
			SessionDriver: DriverBolt,
			StartPath:     "/",
			MaxHops:       8,
		},
		Backend: BackendConfig{
			Listen:     ":8080",
			Driver:     DriverBolt,
			KDFProfile: util.KDFProfileInteractive,
			AdminName:  "Administrator",
		},
	}
}

// Load reads path (when non-empty) over the defaults and then applies
// environment overrides read through getenv. A nil getenv uses os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"DATA_DIR":       &c.DataDir,
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FORMAT":     &c.Log.Format,
		"BACKEND_URL":    &c.Shell.BackendURL,
		"SESSION_DRIVER": &c.Shell.SessionDriver,
		"START_PATH":     &c.Shell.StartPath,
		"LISTEN":         &c.Backend.Listen,
		"STORAGE_DRIVER": &c.Backend.Driver,
		"STORAGE_DSN":    &c.Backend.DSN,
		"KDF_PROFILE":    &c.Backend.KDFProfile,
		"ADMIN_NAME":     &c.Backend.AdminName,
		"ADMIN_EMAIL":    &c.Backend.AdminEmail,
		"ADMIN_PASSWORD": &c.Backend.AdminPassword,
	}
	for name, dst := range str {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	flags := map[string]*bool{
		"ACCESSIBLE": &c.Shell.Accessible,
		"ASSUME_YES": &c.Shell.AssumeYes,
	}
	for name, dst := range flags {
		v := getenv(envPrefix + name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = b
	}
	if v := getenv(envPrefix + "MAX_REDIRECTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_REDIRECTS: %w", envPrefix, err)
		}
		c.Shell.MaxHops = n
	}
	return nil
}

// Validate checks the configuration for values no component can use.
func (c Config) Validate() error {
	var errs []error
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}
	switch c.Shell.SessionDriver {
	case DriverMemory, DriverBolt:
	default:
		errs = append(errs, fmt.Errorf("session driver must be %s or %s, got %q", DriverMemory, DriverBolt, c.Shell.SessionDriver))
	}
	if u, err := url.Parse(c.Shell.BackendURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend url must be an absolute http(s) URL, got %q", c.Shell.BackendURL))
	}
	if !strings.HasPrefix(c.Shell.StartPath, "/") {
		errs = append(errs, fmt.Errorf("start path must begin with /, got %q", c.Shell.StartPath))
	}
	if c.Shell.MaxHops < 1 {
		errs = append(errs, errors.New("max redirects must be at least 1"))
	}
	switch c.Backend.Driver {
	case DriverMemory, DriverBolt:
	case DriverPostgres:
		if c.Backend.DSN == "" {
			errs = append(errs, errors.New("postgres storage requires a dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage driver must be %s, %s or %s, got %q", DriverMemory, DriverBolt, DriverPostgres, c.Backend.Driver))
	}
	if _, err := util.Argon2idProfile(c.Backend.KDFProfile); err != nil {
		errs = append(errs, err)
	}
	if (c.Backend.DriverNeedsDir() || c.Shell.SessionDriver == DriverBolt) && c.DataDir == "" {
		errs = append(errs, errors.New("data dir is required for bbolt storage"))
	}
	return errors.Join(errs...)
}

// DriverNeedsDir reports whether the backend storage lives in DataDir.
func (b BackendConfig) DriverNeedsDir() bool {
	return b.Driver == DriverBolt
}

// SessionDBPath is the bbolt file holding the shell's local state.
func (c Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// BackendDBPath is the bbolt file holding backend data.
func (c Config) BackendDBPath() string {
	return filepath.Join(c.DataDir, "backend.db")
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// NewLogger builds the slog logger described by c.Log writing to w.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Log.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
}
