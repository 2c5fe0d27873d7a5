package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the nosqlited server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// StorageConfig holds SQLite storage settings.
type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	JournalMode   string `yaml:"journal_mode"` // applied to file-backed units only
}

// BusyTimeout returns the busy timeout as a duration.
func (s StorageConfig) BusyTimeout() time.Duration {
	return time.Duration(s.BusyTimeoutMS) * time.Millisecond
}

// ServerConfig holds request execution settings.
type ServerConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
}

var journalModes = map[string]struct{}{
	"DELETE": {}, "TRUNCATE": {}, "PERSIST": {}, "MEMORY": {}, "WAL": {}, "OFF": {},
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 32 << 20
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.BusyTimeoutMS <= 0 {
		c.Storage.BusyTimeoutMS = 5000
	}
	if c.Storage.JournalMode == "" {
		c.Storage.JournalMode = "WAL"
	}
	c.Storage.JournalMode = strings.ToUpper(c.Storage.JournalMode)
	if c.Server.MaxConcurrency <= 0 {
		c.Server.MaxConcurrency = 64
	}
	// ${VAR:-} entries expand to nothing when the variable is unset.
	keys := c.Auth.APIKeys[:0]
	for _, k := range c.Auth.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.Auth.APIKeys = keys
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if _, ok := journalModes[strings.ToUpper(c.Storage.JournalMode)]; !ok {
		return fmt.Errorf("storage.journal_mode %q is not a sqlite journal mode", c.Storage.JournalMode)
	}
	if c.Server.MaxConcurrency < 0 {
		return fmt.Errorf("server.max_concurrency must not be negative, got %d", c.Server.MaxConcurrency)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ConfigDirEnv names an extra directory searched first for <env>.yaml.
const ConfigDirEnv = "NOSQLITE_CONFIG_DIR"

// findConfigPath returns the first existing <env>.yaml among
// $NOSQLITE_CONFIG_DIR, ./config, /etc/nosqlite and the source tree's
// config directory. It falls back to ./config/<env>.yaml so the read error
// names a sensible path.
func findConfigPath(env string) string {
	filename := env + ".yaml"

	var dirs []string
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, "config", "/etc/nosqlite")
	if _, src, _, ok := runtime.Caller(0); ok {
		dirs = append(dirs, filepath.Join(filepath.Dir(filepath.Dir(filepath.Dir(src))), "config"))
	}

	for _, dir := range dirs {
		if path := filepath.Join(dir, filename); fileExists(path) {
			return path
		}
	}
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
