package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	c := NewConfig()

	assert.Equal(t, 120.0, c.IntervalSec)
	assert.Equal(t, "scg", c.Backend)
	assert.Equal(t, SourceFile, c.AnchorSource)
	assert.Equal(t, "282a2e", c.TTYPalette[0])
	assert.Equal(t, "c5c8c6", c.TTYPalette[15])
	assert.NoError(t, c.Validate())
}

func TestLoadFromFlags(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.LoadFromFlags([]string{"-o", "-b", "tty", "--interval", "2.5", "--log-level", "debug"}))

	assert.True(t, c.Once)
	assert.Equal(t, "tty", c.Backend)
	assert.Equal(t, 3*time.Second, c.Interval())
	assert.Equal(t, "debug", c.LogLevel)
	assert.NoError(t, c.Validate())
}

func TestLoadFromFlags_Help(t *testing.T) {
	c := NewConfig()
	err := c.LoadFromFlags([]string{"--help"})
	assert.True(t, errors.Is(err, pflag.ErrHelp))
}

func TestLoadFromFlags_Unknown(t *testing.T) {
	c := NewConfig()
	assert.Error(t, c.LoadFromFlags([]string{"--bogus"}))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JEEVES_GAMMA_BACKEND", "xgamma")
	t.Setenv("JEEVES_GAMMA_INTERVAL", "30")
	t.Setenv("JEEVES_REDIS_PORT", "6380")
	t.Setenv("JEEVES_MQTT_PORT", "not-a-number")

	c := NewConfig()
	c.LoadFromEnv()

	assert.Equal(t, "xgamma", c.Backend)
	assert.Equal(t, 30.0, c.IntervalSec)
	assert.Equal(t, 6380, c.RedisPort)
	assert.Equal(t, 1883, c.MQTTPort)
}

func TestLoad_Hierarchy(t *testing.T) {
	dir := t.TempDir()
	yml := `
main:
  interval: 60
  backend: xgamma
anchors:
  file: /etc/gamma
tty:
  color1: "ff0000"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644))
	t.Setenv("JEEVES_GAMMA_INTERVAL", "45")

	c := NewConfig()
	require.NoError(t, c.Load([]string{"--config", dir, "--backend", "tty"}))

	// file < env < flags
	assert.Equal(t, 45.0, c.IntervalSec)
	assert.Equal(t, "tty", c.Backend)
	assert.Equal(t, "/etc/gamma", c.AnchorFilePath())
	assert.Equal(t, "ff0000", c.TTYPalette[1])
	assert.Equal(t, "282a2e", c.TTYPalette[0])
	assert.NoError(t, c.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Load([]string{"--config", t.TempDir()}))
	assert.Equal(t, 120.0, c.IntervalSec)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("main: [oops"), 0o644))

	assert.Error(t, NewConfig().LoadFromFile(path))
}

func TestWriteFile_RoundTrip(t *testing.T) {
	c := NewConfig()
	c.Backend = "xgamma"
	c.TTYPalette[3] = "123456"

	var buf bytes.Buffer
	require.NoError(t, c.WriteFile(&buf))
	assert.Contains(t, buf.String(), "backend: xgamma")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded := NewConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "xgamma", loaded.Backend)
	assert.Equal(t, "123456", loaded.TTYPalette[3])
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"once and simulate": func(c *Config) { c.Once, c.Simulate = true, true },
		"unknown backend":   func(c *Config) { c.Backend = "redshift" },
		"zero interval":     func(c *Config) { c.IntervalSec = 0 },
		"negative interval": func(c *Config) { c.IntervalSec = -5 },
		"no steps":          func(c *Config) { c.SimulationSteps = 0 },
		"bad palette":       func(c *Config) { c.TTYPalette[4] = "xyz" },
		"bad source":        func(c *Config) { c.AnchorSource = "s3" },
		"redis no profile":  func(c *Config) { c.AnchorSource, c.AnchorProfile = SourceRedis, "" },
		"bad log level":     func(c *Config) { c.LogLevel = "trace" },
		"bad health port":   func(c *Config) { c.HealthPort = 70000 },
		"bad mqtt port":     func(c *Config) { c.MQTTBroker, c.MQTTPort = "broker", 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPaths(t *testing.T) {
	c := NewConfig()
	c.ConfigDir = "/home/me/.config/jeeves-gamma"
	c.InstallPrefix = "/opt"

	assert.Equal(t, "/home/me/.config/jeeves-gamma/config.yaml", c.ConfigFilePath())
	assert.Equal(t, "/home/me/.config/jeeves-gamma/gamma", c.AnchorFilePath())
	assert.Equal(t, "/opt/lib/jeeves-gamma", c.HelperDir())
	assert.Equal(t, "tcp://broker:1883", (&Config{MQTTBroker: "broker", MQTTPort: 1883}).MQTTAddress())
}
