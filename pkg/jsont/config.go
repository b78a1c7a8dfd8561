package jsont

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the engine
type Config struct {
	// CacheMaxSize is the maximum number of compiled templates to cache. 0 disables caching.
	CacheMaxSize int
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// SafeExecution records execution errors and keeps rendering instead of failing
	SafeExecution bool
	// EnableInclude allows {.include} instructions to run
	EnableInclude bool
	// SoftLimit logs a warning after this many executed instructions. 0 disables it.
	SoftLimit int
	// HardLimit aborts rendering after this many executed instructions. 0 disables it.
	HardLimit int
	// LimitResolution is how often, in instructions, the limits are checked
	LimitResolution int
	// MaxPartialDepth bounds nested partial and macro application
	MaxPartialDepth int
	// ExprMaxTokens bounds the tokens of one .eval expression. 0 means unlimited.
	ExprMaxTokens int
	// ExprMaxStringLen bounds strings built by .eval expressions. 0 means unlimited.
	ExprMaxStringLen int
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:    100,
		CacheTTL:        0,
		LogLevel:        "info",
		LimitResolution: DefaultLimitResolution,
		MaxPartialDepth: DefaultMaxPartialDepth,
	}
}

// ConfigFromEnvironment creates a configuration from JSONT_* environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	applyEnvironment(config)
	return config
}

func applyEnvironment(config *Config) {
	envInt("JSONT_CACHE_MAX_SIZE", &config.CacheMaxSize)

	if val := os.Getenv("JSONT_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	if val := os.Getenv("JSONT_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if val := os.Getenv("JSONT_SAFE_EXECUTION"); val != "" {
		config.SafeExecution = parseBool(val)
	}

	if val := os.Getenv("JSONT_ENABLE_INCLUDE"); val != "" {
		config.EnableInclude = parseBool(val)
	}

	envInt("JSONT_SOFT_LIMIT", &config.SoftLimit)
	envInt("JSONT_HARD_LIMIT", &config.HardLimit)
	envInt("JSONT_LIMIT_RESOLUTION", &config.LimitResolution)
	envInt("JSONT_MAX_PARTIAL_DEPTH", &config.MaxPartialDepth)
	envInt("JSONT_EXPR_MAX_TOKENS", &config.ExprMaxTokens)
	envInt("JSONT_EXPR_MAX_STRING_LEN", &config.ExprMaxStringLen)
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// fileConfig is the on-disk shape shared by the YAML, TOML and HCL loaders.
// Absent keys keep the value already in the struct.
type fileConfig struct {
	CacheMaxSize     int    `yaml:"cache_max_size" toml:"cache_max_size" hcl:"cache_max_size,optional"`
	CacheTTL         string `yaml:"cache_ttl" toml:"cache_ttl" hcl:"cache_ttl,optional"`
	LogLevel         string `yaml:"log_level" toml:"log_level" hcl:"log_level,optional"`
	SafeExecution    bool   `yaml:"safe_execution" toml:"safe_execution" hcl:"safe_execution,optional"`
	EnableInclude    bool   `yaml:"enable_include" toml:"enable_include" hcl:"enable_include,optional"`
	SoftLimit        int    `yaml:"soft_limit" toml:"soft_limit" hcl:"soft_limit,optional"`
	HardLimit        int    `yaml:"hard_limit" toml:"hard_limit" hcl:"hard_limit,optional"`
	LimitResolution  int    `yaml:"limit_resolution" toml:"limit_resolution" hcl:"limit_resolution,optional"`
	MaxPartialDepth  int    `yaml:"max_partial_depth" toml:"max_partial_depth" hcl:"max_partial_depth,optional"`
	ExprMaxTokens    int    `yaml:"expr_max_tokens" toml:"expr_max_tokens" hcl:"expr_max_tokens,optional"`
	ExprMaxStringLen int    `yaml:"expr_max_string_len" toml:"expr_max_string_len" hcl:"expr_max_string_len,optional"`
}

func newFileConfig(c *Config) *fileConfig {
	fc := &fileConfig{
		CacheMaxSize:     c.CacheMaxSize,
		LogLevel:         c.LogLevel,
		SafeExecution:    c.SafeExecution,
		EnableInclude:    c.EnableInclude,
		SoftLimit:        c.SoftLimit,
		HardLimit:        c.HardLimit,
		LimitResolution:  c.LimitResolution,
		MaxPartialDepth:  c.MaxPartialDepth,
		ExprMaxTokens:    c.ExprMaxTokens,
		ExprMaxStringLen: c.ExprMaxStringLen,
	}
	if c.CacheTTL != 0 {
		fc.CacheTTL = c.CacheTTL.String()
	}
	return fc
}

func (fc *fileConfig) apply(c *Config) error {
	if fc.CacheTTL != "" {
		ttl, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache_ttl %q: %w", fc.CacheTTL, err)
		}
		c.CacheTTL = ttl
	}
	c.CacheMaxSize = fc.CacheMaxSize
	c.LogLevel = fc.LogLevel
	c.SafeExecution = fc.SafeExecution
	c.EnableInclude = fc.EnableInclude
	c.SoftLimit = fc.SoftLimit
	c.HardLimit = fc.HardLimit
	c.LimitResolution = fc.LimitResolution
	c.MaxPartialDepth = fc.MaxPartialDepth
	c.ExprMaxTokens = fc.ExprMaxTokens
	c.ExprMaxStringLen = fc.ExprMaxStringLen
	return nil
}

// LoadConfigFile reads a .yaml/.yml, .toml or .hcl file over the defaults.
func LoadConfigFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := mergeConfigFile(config, path); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig layers defaults, an optional config file and the environment,
// later sources winning.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if err := mergeConfigFile(config, path); err != nil {
			return nil, err
		}
	}
	applyEnvironment(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func mergeConfigFile(config *Config, path string) error {
	fc := newFileConfig(config)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, fc); err != nil {
			return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, fc); err != nil {
			return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	case ".hcl":
		file, diags := hclparse.NewParser().ParseHCLFile(path)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse HCL config %s: %w", path, diags)
		}
		if diags := gohcl.DecodeBody(file.Body, nil, fc); diags.HasErrors() {
			return fmt.Errorf("failed to decode HCL config %s: %w", path, diags)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
	return fc.apply(config)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.SoftLimit < 0 || c.HardLimit < 0 {
		return errors.New("code limits cannot be negative")
	}

	if c.LimitResolution <= 0 {
		return errors.New("limit resolution must be positive")
	}

	if c.MaxPartialDepth <= 0 {
		return errors.New("max partial depth must be positive")
	}

	if c.ExprMaxTokens < 0 || c.ExprMaxStringLen < 0 {
		return errors.New("expression limits cannot be negative")
	}

	return nil
}

// GetGlobalConfig returns a copy of the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Outside the lock: the logger reads the config back.
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
