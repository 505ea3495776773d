package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the veto service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Inputs  InputsConfig  `yaml:"inputs"`
	Store   StoreConfig   `yaml:"store"`
	Compute ComputeConfig `yaml:"compute"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// InputsConfig describes where flag data and the category definer come from.
type InputsConfig struct {
	DefinerPath  string       `yaml:"definerPath"`
	SegmentGlobs []string     `yaml:"segmentGlobs"`
	Watch        bool         `yaml:"watch"`
	Remote       RemoteConfig `yaml:"remote"`
}

// RemoteConfig configures the optional upstream segment database.
type RemoteConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	Instruments []string      `yaml:"instruments"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StoreConfig controls the run archive.
type StoreConfig struct {
	Path       string        `yaml:"path"`
	InMemory   bool          `yaml:"inMemory"`
	SyncWrites bool          `yaml:"syncWrites"`
	GCInterval time.Duration `yaml:"gcInterval"`
}

// ComputeConfig controls the veto computation defaults.
type ComputeConfig struct {
	Workers    int   `yaml:"workers"`
	Categories []int `yaml:"categories"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VETO_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Inputs: InputsConfig{
			DefinerPath: "configs/definer/default.yaml",
			Remote:      RemoteConfig{Timeout: 15 * time.Second},
		},
		Store: StoreConfig{
			Path:       "data/veto-engine",
			GCInterval: 5 * time.Minute,
		},
		Compute: ComputeConfig{
			Workers:    4,
			Categories: []int{1, 2, 3, 4},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VETO_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("VETO_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("VETO_ENGINE_DEFINER_PATH"); v != "" {
		cfg.Inputs.DefinerPath = v
	}
	if v := os.Getenv("VETO_ENGINE_SEGMENT_GLOBS"); v != "" {
		cfg.Inputs.SegmentGlobs = splitList(v)
	}
	if v := os.Getenv("VETO_ENGINE_WATCH"); v != "" {
		cfg.Inputs.Watch = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("VETO_ENGINE_SEGMENTS_URL"); v != "" {
		cfg.Inputs.Remote.BaseURL = v
	}
	if v := os.Getenv("VETO_ENGINE_REMOTE_INSTRUMENTS"); v != "" {
		cfg.Inputs.Remote.Instruments = splitList(v)
	}
	if v := os.Getenv("VETO_ENGINE_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Inputs.Remote.Timeout = d
		}
	}
	if v := os.Getenv("VETO_ENGINE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("VETO_ENGINE_STORE_IN_MEMORY"); v != "" {
		cfg.Store.InMemory = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("VETO_ENGINE_STORE_SYNC_WRITES"); v != "" {
		cfg.Store.SyncWrites = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("VETO_ENGINE_STORE_GC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.GCInterval = d
		}
	}
	if v := os.Getenv("VETO_ENGINE_COMPUTE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Compute.Workers = n
		}
	}
	if v := os.Getenv("VETO_ENGINE_COMPUTE_CATEGORIES"); v != "" {
		if cats := parseIntList(v); len(cats) > 0 {
			cfg.Compute.Categories = cats
		}
	}
	if v := os.Getenv("VETO_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VETO_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntList(v string) []int {
	var out []int
	for _, p := range splitList(v) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}
