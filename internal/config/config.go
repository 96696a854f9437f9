package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/wesm/listenview/internal/metrics"
	"github.com/wesm/listenview/internal/store"
)

const configFileName = "config.json"

// dotEnvPath is the optional env file read before the
// environment. Variables already set in the process win.
var dotEnvPath = ".env"

// Config holds all application configuration.
type Config struct {
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	DataDir          string        `json:"data_dir"`
	WriteTimeout     time.Duration `json:"-"`
	MaxUploadBytes   int64         `json:"max_upload_bytes"`
	StoreBackend     string        `json:"store_backend"`
	StoreMaxDatasets int           `json:"store_max_datasets"`
	StoreTTL         time.Duration `json:"-"`
	RedisURL         string        `json:"redis_url,omitempty"`
	AnalysisTimezone string        `json:"analysis_timezone"`
	InboxDir         string        `json:"inbox_dir,omitempty"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		Host:             "127.0.0.1",
		Port:             8000,
		DataDir:          filepath.Join(home, ".listenview"),
		WriteTimeout:     30 * time.Second,
		MaxUploadBytes:   512 << 20,
		StoreBackend:     store.BackendMemory,
		StoreMaxDatasets: 64,
		StoreTTL:         24 * time.Hour,
		AnalysisTimezone: metrics.DefaultTimezone,
	}, nil
}

// Load builds a Config by layering: defaults < config file <
// .env < env < flags. The provided FlagSet must already be
// parsed by the caller. Only flags that were explicitly set
// override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, the config file,
// .env and the environment, without parsing CLI flags. Use
// this for subcommands that manage their own flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if err := loadDotEnv(dotEnvPath); err != nil {
		return cfg, fmt.Errorf("loading %s: %w", dotEnvPath, err)
	}
	// The data dir locates the config file, so it is resolved
	// from the environment first.
	if v := os.Getenv("LISTENVIEW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, configFileName)
}

// loadDotEnv reads path into the process environment. A
// missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		Host             string `json:"host"`
		Port             int    `json:"port"`
		MaxUploadBytes   int64  `json:"max_upload_bytes"`
		StoreBackend     string `json:"store_backend"`
		StoreMaxDatasets *int   `json:"store_max_datasets"`
		StoreTTL         string `json:"store_ttl"`
		RedisURL         string `json:"redis_url"`
		AnalysisTimezone string `json:"analysis_timezone"`
		InboxDir         string `json:"inbox_dir"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.MaxUploadBytes > 0 {
		c.MaxUploadBytes = file.MaxUploadBytes
	}
	if file.StoreBackend != "" {
		c.StoreBackend = file.StoreBackend
	}
	if file.StoreMaxDatasets != nil {
		c.StoreMaxDatasets = *file.StoreMaxDatasets
	}
	if file.StoreTTL != "" {
		d, err := time.ParseDuration(file.StoreTTL)
		if err != nil {
			return fmt.Errorf("parsing store_ttl: %w", err)
		}
		c.StoreTTL = d
	}
	if file.RedisURL != "" {
		c.RedisURL = file.RedisURL
	}
	if file.AnalysisTimezone != "" {
		c.AnalysisTimezone = file.AnalysisTimezone
	}
	if file.InboxDir != "" {
		c.InboxDir = file.InboxDir
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv("LISTENVIEW_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LISTENVIEW_STORE"); v != "" {
		c.StoreBackend = v
	}
	if v := os.Getenv("LISTENVIEW_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("LISTENVIEW_TIMEZONE"); v != "" {
		c.AnalysisTimezone = v
	}
	if v := os.Getenv("LISTENVIEW_INBOX_DIR"); v != "" {
		c.InboxDir = v
	}
	if v := os.Getenv("LISTENVIEW_STORE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing LISTENVIEW_STORE_TTL: %w", err)
		}
		c.StoreTTL = d
	}
	if v := os.Getenv("LISTENVIEW_STORE_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing LISTENVIEW_STORE_MAX: %w", err)
		}
		c.StoreMaxDatasets = n
	}
	return nil
}

// Validate reports settings that cannot be served.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case store.BackendMemory, store.BackendSQLite:
	case store.BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("store backend redis requires a redis url")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.StoreMaxDatasets < 0 {
		return fmt.Errorf(
			"store max datasets must be >= 0, got %d",
			c.StoreMaxDatasets,
		)
	}
	if c.StoreTTL < 0 {
		return fmt.Errorf("store ttl must be >= 0, got %s", c.StoreTTL)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location loads the analysis timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.AnalysisTimezone)
	if err != nil {
		return nil, fmt.Errorf(
			"loading timezone %q: %w", c.AnalysisTimezone, err,
		)
	}
	return loc, nil
}

// StoreOptions returns the dataset store settings.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:     c.StoreBackend,
		MaxDatasets: c.StoreMaxDatasets,
		TTL:         c.StoreTTL,
		RedisURL:    c.RedisURL,
	}
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8000, "Port to listen on")
	fs.String(
		"store", store.BackendMemory,
		"Dataset store backend: memory, sqlite or redis",
	)
	fs.String("redis-url", "", "Redis URL for the redis store")
	fs.String(
		"tz", metrics.DefaultTimezone,
		"Timezone for hour-of-day and weekday metrics",
	)
	fs.String("inbox", "", "Directory to watch for export files")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "store":
			cfg.StoreBackend = f.Value.String()
		case "redis-url":
			cfg.RedisURL = f.Value.String()
		case "tz":
			cfg.AnalysisTimezone = f.Value.String()
		case "inbox":
			cfg.InboxDir = f.Value.String()
		}
	})
}
