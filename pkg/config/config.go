package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Config is the application configuration loaded from TOML. Missing fields
// get defaults on load, so a partial file is always usable.
type Config struct {
	// ListenAddr is the HTTP API bind address in serve mode.
	ListenAddr string `toml:"listen_addr"`

	// StorageDir holds the local document index database.
	StorageDir string `toml:"storage_dir"`

	// TenantsPath is the tenant configuration document, watched for
	// changes in serve mode.
	TenantsPath string `toml:"tenants_path"`

	Provider ProviderConfig `toml:"provider"`
	Cache    CacheConfig    `toml:"cache"`
	Tracing  TracingConfig  `toml:"tracing"`
}

// ProviderConfig configures the external paid search provider.
type ProviderConfig struct {
	Endpoint string   `toml:"endpoint"`
	AppID    string   `toml:"app_id"`
	Timeout  Duration `toml:"timeout"`
}

// CacheConfig selects and sizes the provider response cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend    string   `toml:"backend"`
	TTL        Duration `toml:"ttl"`
	MaxEntries int      `toml:"max_entries"`
	RedisAddr  string   `toml:"redis_addr"`
	RedisDB    int      `toml:"redis_db"`
}

// TracingConfig configures the OpenTelemetry exporter for provider spans.
type TracingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

// Duration wraps time.Duration for TOML text (un)marshaling.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetDefaultConfig returns a configuration with every default applied.
func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	return &Config{
		ListenAddr:  ":8787",
		StorageDir:  storageDir,
		TenantsPath: filepath.Join(filepath.Dir(storageDir), "tenants.toml"),
		Provider: ProviderConfig{
			Endpoint: "https://api.bing.net/json.aspx",
			Timeout:  Duration{10 * time.Second},
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        Duration{6 * time.Hour},
			MaxEntries: 4096,
			RedisAddr:  "localhost:6379",
		},
		Tracing: TracingConfig{
			Endpoint: "localhost:4317",
		},
	}, nil
}

// LoadConfig reads configPath, falling back to the full default configuration
// when the file does not exist.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	defaults, err := GetDefaultConfig()
	if err != nil {
		return nil, err
	}
	if config.ListenAddr == "" {
		config.ListenAddr = defaults.ListenAddr
	}
	if config.StorageDir == "" {
		config.StorageDir = defaults.StorageDir
	}
	if config.TenantsPath == "" {
		config.TenantsPath = defaults.TenantsPath
	}
	if config.Provider.Endpoint == "" {
		config.Provider.Endpoint = defaults.Provider.Endpoint
	}
	if config.Provider.Timeout.Duration == 0 {
		config.Provider.Timeout = defaults.Provider.Timeout
	}
	if config.Cache.Backend == "" {
		config.Cache.Backend = defaults.Cache.Backend
	}
	if config.Cache.TTL.Duration == 0 {
		config.Cache.TTL = defaults.Cache.TTL
	}
	if config.Cache.MaxEntries == 0 {
		config.Cache.MaxEntries = defaults.Cache.MaxEntries
	}
	if config.Cache.RedisAddr == "" {
		config.Cache.RedisAddr = defaults.Cache.RedisAddr
	}
	if config.Tracing.Endpoint == "" {
		config.Tracing.Endpoint = defaults.Tracing.Endpoint
	}

	return &config, nil
}

// SaveConfig writes the configuration to configPath, creating parent
// directories as needed.
func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// WriteSampleConfig writes the embedded sample configuration to configPath.
// It refuses to overwrite an existing file.
func WriteSampleConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetDefaultConfigPath returns the per-user config file location.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config directory: %w", err)
	}
	return filepath.Join(configDir, "fedsearch", "config.toml"), nil
}

// GetDefaultStorageDir returns the per-user data directory for the local
// document index.
func GetDefaultStorageDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "fedsearch"), nil
}
