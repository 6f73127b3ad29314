// Package config holds the runtime configuration, loaded with viper from a
// YAML file, environment variables and flags.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hannajonsd/sqli-reachability/scope"
)

// Config is the root configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j" yaml:"neo4j"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console color of each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// AnalysisConfig configures sink and endpoint recognition and the traversal.
type AnalysisConfig struct {
	SinkMethods []string                `mapstructure:"sink_methods" yaml:"sink_methods"`
	Endpoints   []scope.EndpointMatcher `mapstructure:"endpoints" yaml:"endpoints"`
	MaxVisits   int                     `mapstructure:"max_visits" yaml:"max_visits"`
}

// DiscoveryConfig configures source file discovery.
type DiscoveryConfig struct {
	SkipDirs         []string `mapstructure:"skip_dirs" yaml:"skip_dirs"`
	RespectGitignore bool     `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
	ParseConcurrency int      `mapstructure:"parse_concurrency" yaml:"parse_concurrency"`
}

// OutputConfig configures where results are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Neo4jConfig configures the optional graph export.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Clean    bool   `mapstructure:"clean" yaml:"clean"`
}

// Enabled reports whether an export target is configured.
func (n Neo4jConfig) Enabled() bool {
	return n.URI != ""
}

// NewDefaultConfig returns the configuration built from defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	cfg.applyFallbacks()
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sqli-reachability")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Analysis --
	v.SetDefault("analysis.sink_methods", []string{"execute"})
	v.SetDefault("analysis.max_visits", 10000)

	// -- Discovery --
	v.SetDefault("discovery.skip_dirs", []string{"node_modules", "__pycache__", "vendor", "build", "dist", "venv", "env", "site-packages"})
	v.SetDefault("discovery.respect_gitignore", true)
	v.SetDefault("discovery.parse_concurrency", 4)

	// -- Output --
	v.SetDefault("output.dir", "")

	// -- Neo4j --
	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.clean", false)
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("neo4j.password", "SQLI_REACH_NEO4J_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyFallbacks fills values viper cannot default, such as lists of structs.
func (c *Config) applyFallbacks() {
	if len(c.Analysis.Endpoints) == 0 {
		c.Analysis.Endpoints = scope.DefaultEndpointMatchers()
	}
	if len(c.Analysis.SinkMethods) == 0 {
		c.Analysis.SinkMethods = []string{"execute"}
	}
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Analysis.MaxVisits < 0 {
		return fmt.Errorf("analysis.max_visits must not be negative")
	}
	if c.Discovery.ParseConcurrency <= 0 {
		return fmt.Errorf("discovery.parse_concurrency must be a positive integer")
	}
	for i, m := range c.Analysis.Endpoints {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("analysis.endpoints[%d]: %w", i, err)
		}
	}
	for _, s := range c.Analysis.SinkMethods {
		if s == "" {
			return fmt.Errorf("analysis.sink_methods must not contain empty names")
		}
	}
	if c.Neo4j.Enabled() && c.Neo4j.User == "" {
		return fmt.Errorf("neo4j.user is required when neo4j.uri is set")
	}
	return nil
}
