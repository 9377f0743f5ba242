// Package config loads netdiag settings from defaults, an optional YAML file and
// NETDIAG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/logging"
)

const (
	envPrefix              = "NETDIAG"
	defaultConfigName      = "netdiag"
	defaultGracePeriod     = 2 * time.Second
	defaultTeardownTimeout = 10 * time.Second
)

// Config represents the complete netdiag configuration.
type Config struct {
	Runner  RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	Tools   ToolsConfig    `mapstructure:"tools" yaml:"tools"`
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// RunnerConfig controls how diagnostic processes are started and torn down.
type RunnerConfig struct {
	// GracePeriod is how long a cancelled process gets after SIGTERM before SIGKILL.
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
	// TeardownTimeout bounds how long a session waits for a cancelled invocation to finish.
	TeardownTimeout time.Duration `mapstructure:"teardown_timeout" yaml:"teardown_timeout"`
	// Encoding is the console code page of the tool output (cp866, utf-8, windows-1251, ...).
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	// Cgroups places each process in its own cgroup v2 leaf (linux, root only).
	Cgroups bool `mapstructure:"cgroups" yaml:"cgroups"`
}

// ToolsConfig maps each tool to the executable that implements it.
type ToolsConfig struct {
	Ping     string `mapstructure:"ping" yaml:"ping"`
	Tracert  string `mapstructure:"tracert" yaml:"tracert"`
	Ipconfig string `mapstructure:"ipconfig" yaml:"ipconfig"`
	Route    string `mapstructure:"route" yaml:"route"`
	Arp      string `mapstructure:"arp" yaml:"arp"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Executable returns the configured executable for tool.
func (t ToolsConfig) Executable(tool lib.Tool) (string, error) {
	var exe string
	switch tool {
	case lib.ToolPing:
		exe = t.Ping
	case lib.ToolTracert:
		exe = t.Tracert
	case lib.ToolIpconfig:
		exe = t.Ipconfig
	case lib.ToolRoute:
		exe = t.Route
	case lib.ToolArp:
		exe = t.Arp
	default:
		return "", fmt.Errorf("%w: %s", lib.ErrUnknownTool, tool)
	}
	if strings.TrimSpace(exe) == "" {
		return "", fmt.Errorf("no executable configured for %s: %w", tool, lib.ErrEmptyExecutable)
	}
	return exe, nil
}

// DefaultEncoding is the console code page of the host: the OEM Cyrillic page
// on windows, UTF-8 elsewhere.
func DefaultEncoding() string {
	if runtime.GOOS == "windows" {
		return "cp866"
	}
	return "utf-8"
}

// DefaultTools returns the platform executable names.
func DefaultTools() ToolsConfig {
	tracert := "traceroute"
	if runtime.GOOS == "windows" {
		tracert = "tracert"
	}
	return ToolsConfig{
		Ping:     "ping",
		Tracert:  tracert,
		Ipconfig: "ipconfig",
		Route:    "route",
		Arp:      "arp",
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Runner: RunnerConfig{
			GracePeriod:     defaultGracePeriod,
			TeardownTimeout: defaultTeardownTimeout,
			Encoding:        DefaultEncoding(),
		},
		Tools:   DefaultTools(),
		Logging: logging.DefaultConfig(),
	}
}

// SetDefaults registers every default on v so env variables can override keys
// that are absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("runner.grace_period", d.Runner.GracePeriod)
	v.SetDefault("runner.teardown_timeout", d.Runner.TeardownTimeout)
	v.SetDefault("runner.encoding", d.Runner.Encoding)
	v.SetDefault("runner.cgroups", d.Runner.Cgroups)

	v.SetDefault("tools.ping", d.Tools.Ping)
	v.SetDefault("tools.tracert", d.Tools.Tracert)
	v.SetDefault("tools.ipconfig", d.Tools.Ipconfig)
	v.SetDefault("tools.route", d.Tools.Route)
	v.SetDefault("tools.arp", d.Tools.Arp)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
}

// Load reads configuration into v. An explicit path must exist; without one,
// ./netdiag.yaml is used when present.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the runner cannot work with.
func (c *Config) Validate() error {
	if c.Runner.GracePeriod <= 0 {
		return fmt.Errorf("runner.grace_period must be positive")
	}
	if c.Runner.TeardownTimeout < c.Runner.GracePeriod {
		return fmt.Errorf("runner.teardown_timeout must not be shorter than runner.grace_period")
	}
	if strings.TrimSpace(c.Runner.Encoding) == "" {
		return fmt.Errorf("runner.encoding is required")
	}
	for _, tool := range lib.Tools() {
		if _, err := c.Tools.Executable(tool); err != nil {
			return err
		}
	}
	return c.Logging.Validate()
}
