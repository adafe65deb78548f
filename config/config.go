// Package config loads approot settings from defaults, an optional YAML file,
// APPROOT_* environment variables and command-line flags, in rising priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dependents/node-app-root/limits"
	"github.com/dependents/node-app-root/telemetry"
)

// Policy names accepted in configuration.
const (
	PolicyZeroIncoming     = "zero-incoming"
	PolicyCumulativeDegree = "cumulative-degree"
)

// FileName is looked up in the scanned directory when no file is given.
const FileName = ".approot.yaml"

// EnvPrefix prefixes every environment override, e.g. APPROOT_LOG_LEVEL.
const EnvPrefix = "APPROOT"

// Config holds one run's settings.
type Config struct {
	Directory                  string          `mapstructure:"directory"`
	IgnoreDirectories          []string        `mapstructure:"ignore_directories"`
	IgnoreFiles                []string        `mapstructure:"ignore_files"`
	IncludeNoDependencyModules bool            `mapstructure:"include_no_dependency_modules"`
	Policy                     string          `mapstructure:"policy"`
	Extensions                 []string        `mapstructure:"extensions"`
	DefaultIgnores             bool            `mapstructure:"default_ignores"`
	Gitignore                  bool            `mapstructure:"gitignore"`
	Workers                    int             `mapstructure:"workers"`
	FileTimeout                time.Duration   `mapstructure:"file_timeout"`
	Log                        LogConfig       `mapstructure:"log"`
	Telemetry                  TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Policy:      PolicyZeroIncoming,
		Extensions:  []string{".js"},
		FileTimeout: limits.DefaultFileTimeout,
		Log:         LogConfig{Level: "info", Format: "text"},
		Telemetry:   TelemetryConfig{ServiceName: "approot", SampleRate: 1.0},
	}
}

// Validate reports every invalid setting at once. An empty Directory is not
// checked here; callers decide whether a directory is required.
func (c Config) Validate() error {
	var errs []error

	switch c.Policy {
	case "", PolicyZeroIncoming, PolicyCumulativeDegree:
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q (want %s or %s)", c.Policy, PolicyZeroIncoming, PolicyCumulativeDegree))
	}
	for _, ext := range c.Extensions {
		e := strings.TrimSpace(ext)
		if e == "" || e == "." || strings.ContainsAny(e, `/\`) {
			errs = append(errs, fmt.Errorf("invalid extension %q", ext))
		}
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.FileTimeout < 0 {
		errs = append(errs, fmt.Errorf("file_timeout must not be negative, got %s", c.FileTimeout))
	}
	if _, err := telemetry.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate %.2f is outside [0, 1]", c.Telemetry.SampleRate))
	}

	return errors.Join(errs...)
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"ignore-dir":      "ignore_directories",
	"ignore-file":     "ignore_files",
	"include-no-deps": "include_no_dependency_modules",
	"policy":          "policy",
	"ext":             "extensions",
	"default-ignores": "default_ignores",
	"gitignore":       "gitignore",
	"workers":         "workers",
	"file-timeout":    "file_timeout",
	"log-format":      "log.format",
	"otlp-endpoint":   "telemetry.otlp_endpoint",
}

// Loader layers the configuration sources on a private viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader with defaults and environment overrides set up.
func NewLoader() *Loader {
	v := viper.New()
	d := Defaults()
	v.SetDefault("directory", d.Directory)
	v.SetDefault("ignore_directories", []string{})
	v.SetDefault("ignore_files", []string{})
	v.SetDefault("include_no_dependency_modules", d.IncludeNoDependencyModules)
	v.SetDefault("policy", d.Policy)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("default_ignores", d.DefaultIgnores)
	v.SetDefault("gitignore", d.Gitignore)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("file_timeout", d.FileTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlags lets the known flags present in flags override other sources
// when they are set on the command line.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Set overrides a key, e.g. the directory taken from a positional argument.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load reads file, or FileName inside dir when file is empty and it exists,
// then decodes and validates the result.
func (l *Loader) Load(file, dir string) (Config, error) {
	if file == "" && dir != "" {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			file = candidate
		}
	}
	if file != "" {
		l.v.SetConfigFile(file)
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the file Load read, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (Config, error) {
	return NewLoader().Load(path, "")
}
