package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds all application configuration.
type Config struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	DataDir           string        `json:"data_dir"`
	DBPath            string        `json:"-"`
	ImportDir         string        `json:"import_dir"`
	Timezone          string        `json:"timezone"`
	PomodoroMinutes   int           `json:"pomodoro_minutes"`
	MinSessionSeconds int           `json:"min_session_seconds"`
	Notify            bool          `json:"notify"`
	CompletionHook    string        `json:"completion_hook,omitempty"`
	WriteTimeout      time.Duration `json:"-"`
	Debug             bool          `json:"debug"`
}

// fileConfig mirrors config.json. Pointer fields distinguish an
// absent key from a zero value.
type fileConfig struct {
	Host              *string `json:"host"`
	Port              *int    `json:"port"`
	ImportDir         *string `json:"import_dir"`
	Timezone          *string `json:"timezone"`
	PomodoroMinutes   *int    `json:"pomodoro_minutes"`
	MinSessionSeconds *int    `json:"min_session_seconds"`
	Notify            *bool   `json:"notify"`
	CompletionHook    *string `json:"completion_hook"`
	WriteTimeout      *string `json:"write_timeout"`
	Debug             *bool   `json:"debug"`
}

// Environment variables read by Load.
const (
	EnvDataDir   = "TODO_DATA_DIR"
	EnvImportDir = "TODO_IMPORT_DIR"
	EnvTimezone  = "TODO_TIMEZONE"
)

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		Host:              "127.0.0.1",
		Port:              8080,
		DataDir:           filepath.Join(home, ".todo"),
		PomodoroMinutes:   25,
		MinSessionSeconds: 60,
		Notify:            true,
		WriteTimeout:      30 * time.Second,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env <
// flags. The provided FlagSet must already be parsed by the caller
// and may be nil. Only flags that were explicitly set override the
// lower layers. The data directory is resolved first because it
// locates the config file.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if fs != nil {
		if f := fs.Lookup("data-dir"); f != nil && f.Changed {
			cfg.DataDir = f.Value.String()
		}
	}

	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	if err := applyFlags(&cfg, fs); err != nil {
		return cfg, err
	}

	cfg.DBPath = filepath.Join(cfg.DataDir, "todo.db")
	if cfg.ImportDir == "" {
		cfg.ImportDir = filepath.Join(cfg.DataDir, "imports")
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PomodoroMinutes <= 0 {
		return fmt.Errorf("pomodoro_minutes must be positive, got %d", c.PomodoroMinutes)
	}
	if c.MinSessionSeconds < 0 {
		return fmt.Errorf("min_session_seconds must not be negative, got %d", c.MinSessionSeconds)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// Location returns the configured time zone, or the local zone
// when none is set or it cannot be loaded.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Pomodoro returns the pomodoro length.
func (c *Config) Pomodoro() time.Duration {
	return time.Duration(c.PomodoroMinutes) * time.Minute
}

// MinSession returns the shortest session worth recording.
func (c *Config) MinSession() time.Duration {
	return time.Duration(c.MinSessionSeconds) * time.Second
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file fileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != nil {
		c.Host = *file.Host
	}
	if file.Port != nil {
		c.Port = *file.Port
	}
	if file.ImportDir != nil {
		c.ImportDir = *file.ImportDir
	}
	if file.Timezone != nil {
		c.Timezone = *file.Timezone
	}
	if file.PomodoroMinutes != nil {
		c.PomodoroMinutes = *file.PomodoroMinutes
	}
	if file.MinSessionSeconds != nil {
		c.MinSessionSeconds = *file.MinSessionSeconds
	}
	if file.Notify != nil {
		c.Notify = *file.Notify
	}
	if file.CompletionHook != nil {
		c.CompletionHook = *file.CompletionHook
	}
	if file.WriteTimeout != nil {
		d, err := time.ParseDuration(*file.WriteTimeout)
		if err != nil {
			return fmt.Errorf("parsing write_timeout: %w", err)
		}
		c.WriteTimeout = d
	}
	if file.Debug != nil {
		c.Debug = *file.Debug
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvImportDir); v != "" {
		c.ImportDir = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
}

// RegisterGlobalFlags registers flags shared by every command.
func RegisterGlobalFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", "", "Directory holding the database and config.json")
	fs.String("timezone", "", "IANA time zone for statistics (default local)")
	fs.Bool("debug", false, "Enable debug logging")
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must parse fs before passing it to Load.
func RegisterServeFlags(fs *pflag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.String("import-dir", "", "Directory watched for session files")
}

// RegisterTimerFlags registers timer-command flags on fs.
func RegisterTimerFlags(fs *pflag.FlagSet) {
	fs.Int("pomodoro-minutes", 25, "Length of one pomodoro")
	fs.Bool("no-notify", false, "Disable desktop alerts")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "host":
			cfg.Host = v
		case "port":
			cfg.Port, err = strconv.Atoi(v)
		case "data-dir":
			cfg.DataDir = v
		case "import-dir":
			cfg.ImportDir = v
		case "timezone":
			cfg.Timezone = v
		case "debug":
			cfg.Debug = v == "true"
		case "pomodoro-minutes":
			cfg.PomodoroMinutes, err = strconv.Atoi(v)
		case "no-notify":
			if v == "true" {
				cfg.Notify = false
			}
		}
		if err != nil {
			err = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return err
}

// settableKeys lists the config.json keys Set accepts, with a
// parser that validates the raw value.
var settableKeys = map[string]func(string) (any, error){
	"host":                func(s string) (any, error) { return s, nil },
	"port":                parseInt,
	"import_dir":          func(s string) (any, error) { return s, nil },
	"timezone":            parseTimezone,
	"pomodoro_minutes":    parseInt,
	"min_session_seconds": parseInt,
	"notify":              parseBool,
	"completion_hook":     func(s string) (any, error) { return s, nil },
	"write_timeout":       parseDuration,
	"debug":               parseBool,
}

func parseInt(s string) (any, error)  { return strconv.Atoi(s) }
func parseBool(s string) (any, error) { return strconv.ParseBool(s) }

func parseDuration(s string) (any, error) {
	if _, err := time.ParseDuration(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parseTimezone(s string) (any, error) {
	if _, err := time.LoadLocation(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Keys returns the config.json keys accepted by Set.
func Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	return keys
}

// Set persists one key to config.json, preserving other keys.
func (c *Config) Set(key, raw string) error {
	parse, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	value, err := parse(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf(
				"existing config is invalid, cannot update: %w",
				err,
			)
		}
	}

	existing[key] = value
	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return c.loadFile()
}
