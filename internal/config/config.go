// Package config loads hdrgen configuration from an optional YAML file,
// an optional dotenv file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file consulted when none is given.
const DefaultPath = ".hdrgen.yaml"

// ErrInvalid is wrapped by every configuration failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all hdrgen configuration.
type Config struct {
	Probe   ProbeConfig   `yaml:"probe"`
	Version VersionConfig `yaml:"version"`
	Logging LoggingConfig `yaml:"logging"`
}

// ProbeConfig configures the capability prober.
type ProbeConfig struct {
	Mode string `yaml:"mode" validate:"oneof=auto static active"`

	// Compiler is the compiler driver. Extra words are passed as leading
	// arguments, so "ccache g++" works.
	Compiler string   `yaml:"compiler" validate:"required"`
	Flags    []string `yaml:"flags"`

	// Order is the probe preference order.
	Order []string `yaml:"order" validate:"min=1,unique,dive,oneof=std tr1 boost"`

	// Timeout bounds each compiler invocation (Go duration syntax).
	Timeout string `yaml:"timeout" validate:"required"`

	// ToolchainVersion is the declared IDE toolchain version used by the
	// static table.
	ToolchainVersion string            `yaml:"toolchain_version"`
	StaticTiers      map[string]string `yaml:"static_tiers" validate:"dive,oneof=std tr1 boost none"`
	StaticDefault    string            `yaml:"static_default" validate:"oneof=std tr1 boost none"`
}

// VersionConfig configures version resolution.
type VersionConfig struct {
	// CommitCommand prints the current revision. It is split on
	// whitespace and run without a shell.
	CommitCommand string `yaml:"commit_command" validate:"required"`
	Timeout       string `yaml:"timeout" validate:"required"`

	DefaultVersionID string `yaml:"default_version_id"`
	DefaultCommitID  string `yaml:"default_commit_id"`
	// CommitFallback is written when the revision lookup fails.
	CommitFallback string `yaml:"commit_fallback"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Probe: ProbeConfig{
			Mode:          "auto",
			Compiler:      "g++",
			Order:         []string{"std", "tr1"},
			Timeout:       "30s",
			StaticTiers:   map[string]string{"2008": "tr1"},
			StaticDefault: "std",
		},
		Version: VersionConfig{
			CommitCommand:    "git log --pretty=format:%H -1",
			Timeout:          "10s",
			DefaultVersionID: "package-version",
			DefaultCommitID:  "-",
			CommitFallback:   "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalid, path, err)
		}
	case os.IsNotExist(err):
		// Defaults.
	default:
		return nil, fmt.Errorf("%w: failed to read config: %w", ErrInvalid, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// already set are not overridden.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: failed to load env file %s: %w", ErrInvalid, path, err)
	}
	return nil
}

// envOverrides lists the environment inputs. The empty envconfig prefix
// makes every tag an exact variable name.
type envOverrides struct {
	Compiler         string   `envconfig:"CXX"`
	ToolchainVersion string   `envconfig:"GYP_MSVS_VERSION"`
	ProbeMode        string   `envconfig:"HDRGEN_PROBE_MODE"`
	ProbeOrder       []string `envconfig:"HDRGEN_PROBE_ORDER"`
	ProbeTimeout     string   `envconfig:"HDRGEN_PROBE_TIMEOUT"`
	CommitCommand    string   `envconfig:"HDRGEN_COMMIT_COMMAND"`
	VersionTimeout   string   `envconfig:"HDRGEN_VERSION_TIMEOUT"`
	LogLevel         string   `envconfig:"HDRGEN_LOG_LEVEL"`
}

// applyEnvOverrides applies non-empty environment inputs over c.
func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("%w: failed to process environment: %w", ErrInvalid, err)
	}

	setIfNotEmpty(&c.Probe.Compiler, env.Compiler)
	setIfNotEmpty(&c.Probe.ToolchainVersion, env.ToolchainVersion)
	setIfNotEmpty(&c.Probe.Mode, env.ProbeMode)
	setIfNotEmpty(&c.Probe.Timeout, env.ProbeTimeout)
	setIfNotEmpty(&c.Version.CommitCommand, env.CommitCommand)
	setIfNotEmpty(&c.Version.Timeout, env.VersionTimeout)
	setIfNotEmpty(&c.Logging.Level, env.LogLevel)

	if order := trimAll(env.ProbeOrder); len(order) > 0 {
		c.Probe.Order = order
	}
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for name, value := range map[string]string{
		"probe.timeout":   c.Probe.Timeout,
		"version.timeout": c.Version.Timeout,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, name, value)
		}
	}
	if len(strings.Fields(c.Probe.Compiler)) == 0 {
		return fmt.Errorf("%w: probe.compiler is blank", ErrInvalid)
	}
	if len(strings.Fields(c.Version.CommitCommand)) == 0 {
		return fmt.Errorf("%w: version.commit_command is blank", ErrInvalid)
	}
	return nil
}

// GetProbeTimeout returns the per-probe timeout.
func (c *Config) GetProbeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Probe.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetVersionTimeout returns the revision lookup timeout.
func (c *Config) GetVersionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Version.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// CompilerCommand splits the compiler setting into the binary and the
// arguments that precede the configured flags.
func (p ProbeConfig) CompilerCommand() (string, []string) {
	fields := strings.Fields(p.Compiler)
	if len(fields) == 0 {
		return "", append([]string(nil), p.Flags...)
	}
	args := append(append([]string(nil), fields[1:]...), p.Flags...)
	return fields[0], args
}
