// Package config loads peerguard's runtime configuration.
//
// Configuration comes from three layers, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. an optional file in the project directory (.peerguard.toml,
//     .peerguard.yaml or .peerguard.yml) or the file named by --config
//  3. environment variables (PEERGUARD_REGISTRY, PEERGUARD_REDIS_ADDR,
//     PEERGUARD_MONGO_URI)
//
// String values in the file may reference the environment as ${VAR}, which
// keeps credentials in connection URIs out of the repository.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/integrations/npm"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Environment variables that override the file.
const (
	EnvRegistry  = "PEERGUARD_REGISTRY"
	EnvRedisAddr = "PEERGUARD_REDIS_ADDR"
	EnvMongoURI  = "PEERGUARD_MONGO_URI"
)

// DefaultReportDir is relative to the project directory.
const DefaultReportDir = "reports"

// FileNames are searched in order in the project directory.
var FileNames = []string{".peerguard.toml", ".peerguard.yaml", ".peerguard.yml"}

// Config is the complete runtime configuration.
type Config struct {
	Policy   conflict.Policy `toml:"policy" yaml:"policy"`
	Registry Registry        `toml:"registry" yaml:"registry"`
	Storage  Storage         `toml:"storage" yaml:"storage"`
}

// Registry configures peer-dependency lookups.
type Registry struct {
	URL      string        `toml:"url" yaml:"url"`
	Timeout  time.Duration `toml:"timeout" yaml:"timeout"`
	Workers  int           `toml:"workers" yaml:"workers"`
	Cache    string        `toml:"cache" yaml:"cache"`
	CacheTTL time.Duration `toml:"cache_ttl" yaml:"cache_ttl"`
}

// Storage configures where snapshots and reports live.
type Storage struct {
	ReportDir       string `toml:"report_dir" yaml:"report_dir"`
	Snapshots       string `toml:"snapshots" yaml:"snapshots"`
	Reports         string `toml:"reports" yaml:"reports"`
	RedisAddr       string `toml:"redis_addr" yaml:"redis_addr"`
	MongoURI        string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database" yaml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection" yaml:"mongo_collection"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Policy: conflict.DefaultPolicy(),
		Registry: Registry{
			URL:      npm.DefaultRegistry,
			Timeout:  5 * time.Second,
			Workers:  8,
			Cache:    BackendFile,
			CacheTTL: 24 * time.Hour,
		},
		Storage: Storage{
			ReportDir: DefaultReportDir,
			Snapshots: BackendFile,
			Reports:   BackendFile,
		},
	}
}

// Find returns the first config file present in projectDir.
func Find(projectDir string) (string, bool) {
	for _, name := range FileNames {
		p := filepath.Join(projectDir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Load reads path on top of the defaults. The format follows the extension;
// unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q", filepath.Ext(path))
	}

	cfg.expand()
	return cfg, nil
}

// Resolve builds the effective configuration for projectDir. An explicit
// path must exist; otherwise the project directory is searched and the
// defaults are used when nothing is found. The returned path is empty when
// no file was read.
func Resolve(projectDir, explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		path, _ = Find(projectDir)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, "", err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// ApplyEnv overrides settings from the environment. Setting
// PEERGUARD_REDIS_ADDR alone does not switch any backend to Redis;
// PEERGUARD_MONGO_URI does select the Mongo report store.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRegistry); ok && v != "" {
		c.Registry.URL = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Storage.RedisAddr = v
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Storage.MongoURI = v
		c.Storage.Reports = BackendMongo
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) expand() {
	c.Registry.URL = expandEnv(c.Registry.URL)
	c.Storage.ReportDir = expandEnv(c.Storage.ReportDir)
	c.Storage.RedisAddr = expandEnv(c.Storage.RedisAddr)
	c.Storage.MongoURI = expandEnv(c.Storage.MongoURI)
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}

	u, err := url.Parse(c.Registry.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "registry.url must be an http(s) URL, got %q", c.Registry.URL)
	}
	if c.Registry.Timeout <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "registry.timeout must be positive")
	}
	if c.Registry.Workers < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "registry.workers must be at least 1")
	}
	if c.Registry.CacheTTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "registry.cache_ttl must not be negative")
	}

	if err := oneOf("registry.cache", c.Registry.Cache, BackendFile, BackendMemory, BackendRedis, BackendNone); err != nil {
		return err
	}
	if err := oneOf("storage.snapshots", c.Storage.Snapshots, BackendFile, BackendRedis); err != nil {
		return err
	}
	if err := oneOf("storage.reports", c.Storage.Reports, BackendFile, BackendMongo); err != nil {
		return err
	}

	if c.UsesRedis() && c.Storage.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "storage.redis_addr is required for the redis backend (or set %s)", EnvRedisAddr)
	}
	if c.Storage.Reports == BackendMongo && c.Storage.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "storage.mongo_uri is required for the mongo report store (or set %s)", EnvMongoURI)
	}
	if c.Storage.ReportDir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "storage.report_dir must not be empty")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

// UsesRedis reports whether any backend needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Registry.Cache == BackendRedis || c.Storage.Snapshots == BackendRedis
}

// ReportDir resolves the report directory against projectDir.
func (c *Config) ReportDir(projectDir string) string {
	if filepath.IsAbs(c.Storage.ReportDir) {
		return c.Storage.ReportDir
	}
	return filepath.Join(projectDir, c.Storage.ReportDir)
}

// String renders the effective configuration as TOML, the format `peerguard
// config` prints.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
