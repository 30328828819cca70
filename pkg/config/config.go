// Package config loads phaseflow settings from a TOML or YAML file with
// environment overrides.
//
// Lookup order for the file: the explicit path passed to [Load], then
// $XDG_CONFIG_HOME/phaseflow/config.toml (or config.yaml). A missing default
// file is not an error; every field has a usable default.
//
// Example config.toml:
//
//	[layout]
//	vertical = 300
//	origin_x = 50
//	origin_y = 50
//
//	[service]
//	url = "http://127.0.0.1:5000/api/summary"
//	timeout = "60s"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	namespace = "prod"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/layout"
	"github.com/matzehuels/phaseflow/pkg/summary"
)

// Environment overrides.
const (
	EnvServiceURL = "PHASEFLOW_SERVICE_URL"
	EnvRedisURL   = "PHASEFLOW_REDIS_URL"
	EnvMongoURI   = "PHASEFLOW_MONGO_URI"
)

// Backend names.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

var (
	cacheBackends   = []string{BackendNone, BackendFile, BackendRedis}
	sessionBackends = []string{BackendMemory, BackendFile, BackendRedis, BackendMongo}
)

// Config is the full phaseflow configuration.
type Config struct {
	Layout   Layout   `toml:"layout" yaml:"layout"`
	Service  Service  `toml:"service" yaml:"service"`
	Server   Server   `toml:"server" yaml:"server"`
	Cache    Cache    `toml:"cache" yaml:"cache"`
	Sessions Sessions `toml:"sessions" yaml:"sessions"`
	State    State    `toml:"state" yaml:"state"`
}

// Layout sets grid spacing and the origin offset of every node.
type Layout struct {
	Vertical   float64 `toml:"vertical" yaml:"vertical"`
	Horizontal float64 `toml:"horizontal" yaml:"horizontal"`
	SubPhase   float64 `toml:"sub_phase" yaml:"sub_phase"`
	OriginX    float64 `toml:"origin_x" yaml:"origin_x"`
	OriginY    float64 `toml:"origin_y" yaml:"origin_y"`
}

// Service points at the summarization service.
type Service struct {
	URL     string        `toml:"url" yaml:"url"`
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`
	Retries int           `toml:"retries" yaml:"retries"`
}

// Server configures the HTTP API started by "phaseflow serve".
type Server struct {
	Addr         string        `toml:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	MaxBodyBytes int64         `toml:"max_body_bytes" yaml:"max_body_bytes"`
}

// Cache selects where layouts, artifacts and summaries are cached.
type Cache struct {
	Backend   string `toml:"backend" yaml:"backend"`
	Dir       string `toml:"dir" yaml:"dir"`
	RedisURL  string `toml:"redis_url" yaml:"redis_url"`
	// Namespace prefixes every cache key so several deployments can share
	// one Redis database.
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// Sessions selects the backend for persistent viewing sessions.
type Sessions struct {
	Backend         string        `toml:"backend" yaml:"backend"`
	TTL             time.Duration `toml:"ttl" yaml:"ttl"`
	Dir             string        `toml:"dir" yaml:"dir"`
	RedisURL        string        `toml:"redis_url" yaml:"redis_url"`
	MongoURI        string        `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string        `toml:"mongo_database" yaml:"mongo_database"`
	MongoCollection string        `toml:"mongo_collection" yaml:"mongo_collection"`
}

// State configures the expand state of the interactive viewer.
type State struct {
	// Policy is "reset" or "preserve".
	Policy string `toml:"policy" yaml:"policy"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Layout: Layout{
			Vertical:   layout.DefaultVertical,
			Horizontal: layout.DefaultHorizontal,
			SubPhase:   layout.DefaultSubPhase,
		},
		Service: Service{
			URL:     summary.DefaultURL,
			Timeout: summary.DefaultTimeout,
			Retries: 3,
		},
		Server: Server{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 90 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Cache:    Cache{Backend: BackendFile},
		Sessions: Sessions{Backend: BackendMemory, TTL: 24 * time.Hour},
		State:    State{Policy: "reset"},
	}
}

// DefaultPath returns the config.toml location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "phaseflow", "config.toml"), nil
}

// Load reads path (or the default location when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := findDefault()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
			return cfg, err
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func findDefault() (string, error) {
	p, err := DefaultPath()
	if err != nil {
		return "", nil
	}
	for _, candidate := range []string{p, strings.TrimSuffix(p, ".toml") + ".yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.ErrCodeFileNotFound, err, "config file not found: %s", path)
		}
		return fmt.Errorf("read config: %w", err)
	}
	return Decode(data, filepath.Ext(path), cfg)
}

// Decode parses data as TOML or YAML depending on ext (".toml", ".yaml", ".yml")
// over the values already in cfg.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml", "":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "parse toml config")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "parse yaml config")
		}
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "unsupported config format %q", ext)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvServiceURL); v != "" {
		c.Service.URL = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
		c.Sessions.RedisURL = v
	}
	if v := getenv(EnvMongoURI); v != "" {
		c.Sessions.MongoURI = v
	}
}

// Validate checks backend names and the settings each backend requires.
func (c Config) Validate() error {
	if !slices.Contains(cacheBackends, c.Cache.Backend) {
		return errs.New(errs.ErrCodeInvalidInput, "cache.backend: %q (must be one of: %s)", c.Cache.Backend, strings.Join(cacheBackends, ", "))
	}
	if !slices.Contains(sessionBackends, c.Sessions.Backend) {
		return errs.New(errs.ErrCodeInvalidInput, "sessions.backend: %q (must be one of: %s)", c.Sessions.Backend, strings.Join(sessionBackends, ", "))
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errs.New(errs.ErrCodeInvalidInput, "cache.redis_url is required for the redis backend")
	}
	if c.Sessions.Backend == BackendRedis && c.Sessions.RedisURL == "" {
		return errs.New(errs.ErrCodeInvalidInput, "sessions.redis_url is required for the redis backend")
	}
	if c.Sessions.Backend == BackendMongo && c.Sessions.MongoURI == "" {
		return errs.New(errs.ErrCodeInvalidInput, "sessions.mongo_uri is required for the mongo backend")
	}
	if c.State.Policy != "reset" && c.State.Policy != "preserve" {
		return errs.New(errs.ErrCodeInvalidInput, "state.policy: %q (must be reset or preserve)", c.State.Policy)
	}
	if err := errs.ValidateURL(c.Service.URL); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "service.url")
	}
	return nil
}

// LayoutOptions converts the layout section.
func (c Config) LayoutOptions() layout.Options {
	o := layout.DefaultOptions()
	layout.WithSpacing(c.Layout.Vertical, c.Layout.Horizontal, c.Layout.SubPhase)(&o)
	layout.WithOrigin(c.Layout.OriginX, c.Layout.OriginY)(&o)
	return o
}
