package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, PolicyZeroIncoming, d.Policy)
	assert.Equal(t, []string{".js"}, d.Extensions)
	assert.False(t, d.IncludeNoDependencyModules)
	assert.Equal(t, 10*time.Second, d.FileTimeout)
	assert.NoError(t, d.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero config is fine", func(c *Config) { *c = Config{} }, ""},
		{"cumulative policy", func(c *Config) { c.Policy = PolicyCumulativeDegree }, ""},
		{"unknown policy", func(c *Config) { c.Policy = "max-depth" }, "unknown policy"},
		{"empty extension", func(c *Config) { c.Extensions = []string{" "} }, "invalid extension"},
		{"extension with slash", func(c *Config) { c.Extensions = []string{"a/js"} }, "invalid extension"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"negative timeout", func(c *Config) { c.FileTimeout = -time.Second }, "file_timeout"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"bad sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := Defaults()
	cfg.Policy = "nope"
	cfg.Workers = -2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy")
	assert.Contains(t, err.Error(), "workers")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, PolicyZeroIncoming, cfg.Policy)
	assert.Equal(t, []string{".js"}, cfg.Extensions)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.FileTimeout)
}

func TestLoadFileFromDirectory(t *testing.T) {
	dir := t.TempDir()
	yaml := `policy: cumulative-degree
ignore_directories:
  - bower_components
  - vendor
include_no_dependency_modules: true
file_timeout: 2s
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yaml), 0o644))

	l := NewLoader()
	cfg, err := l.Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, PolicyCumulativeDegree, cfg.Policy)
	assert.Equal(t, []string{"bower_components", "vendor"}, cfg.IgnoreDirectories)
	assert.True(t, cfg.IncludeNoDependencyModules)
	assert.Equal(t, 2*time.Second, cfg.FileTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, filepath.Join(dir, FileName), l.ConfigFile())
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\nextensions: [.js, .jsx]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{".js", ".jsx"}, cfg.Extensions)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoadInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: widest\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy")
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("APPROOT_POLICY", PolicyCumulativeDegree)
	t.Setenv("APPROOT_LOG_LEVEL", "warn")
	t.Setenv("APPROOT_GITIGNORE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, PolicyCumulativeDegree, cfg.Policy)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Gitignore)
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("policy: cumulative-degree\nworkers: 2\n"), 0o644))
	t.Setenv("APPROOT_WORKERS", "4")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("policy", PolicyZeroIncoming, "")
	flags.Int("workers", 0, "")
	flags.StringSlice("ignore-dir", nil, "")
	require.NoError(t, flags.Parse([]string{"--policy", PolicyZeroIncoming, "--ignore-dir", "a", "--ignore-dir", "b"}))

	l := NewLoader()
	require.NoError(t, l.BindFlags(flags))
	l.Set("directory", dir)
	cfg, err := l.Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, PolicyZeroIncoming, cfg.Policy, "flag beats file")
	assert.Equal(t, 4, cfg.Workers, "env beats file when the flag is unset")
	assert.Equal(t, []string{"a", "b"}, cfg.IgnoreDirectories)
	assert.Equal(t, dir, cfg.Directory)
}
