package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/saaga0h/jeeves-gamma/internal/backend"
)

// Version is reported by --version
const Version = "1.6"

// Anchor source kinds
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
)

// Config holds the configuration for the gamma agent. It is built once at
// startup and passed explicitly; nothing mutates it after Validate.
type Config struct {
	// Run mode
	Once        bool
	Simulate    bool
	IntervalSec float64
	Backend     string

	// Simulation
	SimulationSteps   int
	SimulationPauseMs int

	// Anchor table
	ConfigDir     string
	AnchorSource  string
	AnchorFile    string
	FallbackFile  string
	AnchorProfile string

	// Backend helpers
	InstallPrefix string
	TTYPalette    [16]string

	// MQTT configuration, publishing is disabled when MQTTBroker is empty
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string
	Location     string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// Solar anchor generation
	Latitude     float64
	Longitude    float64
	DayKelvin    float64
	NightKelvin  float64
	TwilightMins int

	// One-shot actions
	ShowVersion      bool
	PrintConfig      bool
	PrintSolarConfig bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	c := &Config{
		IntervalSec:       120,
		Backend:           string(backend.KindSCG),
		SimulationSteps:   100,
		SimulationPauseMs: 20,
		ConfigDir:         DefaultConfigDir(),
		AnchorSource:      SourceFile,
		AnchorProfile:     "default",
		InstallPrefix:     "/usr",
		MQTTPort:          1883,
		RedisHost:         "localhost",
		RedisPort:         6379,
		PostgresHost:      "localhost",
		PostgresPort:      5432,
		PostgresUser:      "jeeves",
		PostgresDB:        "jeeves",
		PostgresSSLMode:   "disable",
		ServiceName:       "gamma-agent",
		LogLevel:          "info",
		// Helsinki coordinates
		Latitude:     60.1695,
		Longitude:    24.9354,
		DayKelvin:    6500,
		NightKelvin:  3400,
		TwilightMins: 60,
	}
	for i, rgb := range backend.DefaultPalette {
		c.TTYPalette[i] = fmt.Sprintf("%06x", rgb)
	}
	if host, err := os.Hostname(); err == nil {
		c.Location = host
	} else {
		c.Location = "display"
	}
	return c
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/jeeves-gamma, or
// $HOME/.config/jeeves-gamma
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "jeeves-gamma"
	}
	return filepath.Join(dir, "jeeves-gamma")
}

// Load applies the configuration hierarchy: defaults -> config file ->
// env -> flags. Flags are parsed twice so that --config can pick the
// file while still overriding it.
func (c *Config) Load(args []string) error {
	c.LoadFromEnv()
	if err := c.LoadFromFlags(args); err != nil {
		return err
	}

	if err := c.LoadFromFile(c.ConfigFilePath()); err != nil {
		return err
	}

	c.LoadFromEnv()
	return c.LoadFromFlags(args)
}

// LoadFromEnv loads configuration from environment variables with
// JEEVES_GAMMA_ prefix
func (c *Config) LoadFromEnv() {
	envString("JEEVES_GAMMA_CONFIG_DIR", &c.ConfigDir)
	envString("JEEVES_GAMMA_BACKEND", &c.Backend)
	envFloat("JEEVES_GAMMA_INTERVAL", &c.IntervalSec)
	envString("JEEVES_GAMMA_ANCHOR_SOURCE", &c.AnchorSource)
	envString("JEEVES_GAMMA_ANCHOR_FILE", &c.AnchorFile)
	envString("JEEVES_GAMMA_FALLBACK_FILE", &c.FallbackFile)
	envString("JEEVES_GAMMA_ANCHOR_PROFILE", &c.AnchorProfile)
	envString("JEEVES_GAMMA_INSTALL_PREFIX", &c.InstallPrefix)

	// MQTT configuration
	envString("JEEVES_MQTT_BROKER", &c.MQTTBroker)
	envInt("JEEVES_MQTT_PORT", &c.MQTTPort)
	envString("JEEVES_MQTT_USER", &c.MQTTUser)
	envString("JEEVES_MQTT_PASSWORD", &c.MQTTPassword)
	envString("JEEVES_MQTT_CLIENT_ID", &c.MQTTClientID)
	envString("JEEVES_GAMMA_LOCATION", &c.Location)

	// Redis configuration
	envString("JEEVES_REDIS_HOST", &c.RedisHost)
	envInt("JEEVES_REDIS_PORT", &c.RedisPort)
	envString("JEEVES_REDIS_PASSWORD", &c.RedisPassword)
	envInt("JEEVES_REDIS_DB", &c.RedisDB)

	// Postgres configuration
	envString("JEEVES_POSTGRES_HOST", &c.PostgresHost)
	envInt("JEEVES_POSTGRES_PORT", &c.PostgresPort)
	envString("JEEVES_POSTGRES_USER", &c.PostgresUser)
	envString("JEEVES_POSTGRES_PASSWORD", &c.PostgresPassword)
	envString("JEEVES_POSTGRES_DB", &c.PostgresDB)
	envString("JEEVES_POSTGRES_SSLMODE", &c.PostgresSSLMode)

	// Service configuration
	envString("JEEVES_SERVICE_NAME", &c.ServiceName)
	envInt("JEEVES_HEALTH_PORT", &c.HealthPort)
	envString("JEEVES_LOG_LEVEL", &c.LogLevel)

	envFloat("JEEVES_LATITUDE", &c.Latitude)
	envFloat("JEEVES_LONGITUDE", &c.Longitude)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values.
// pflag.ErrHelp is returned when -h/--help was given.
func (c *Config) LoadFromFlags(args []string) error {
	fs := pflag.NewFlagSet(c.ServiceName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Run mode
	fs.BoolVarP(&c.ShowVersion, "version", "v", c.ShowVersion, "Print version and exit")
	fs.BoolVarP(&c.PrintConfig, "printconfig", "p", c.PrintConfig, "Print the effective configuration file and exit")
	fs.BoolVar(&c.PrintSolarConfig, "print-solar-config", c.PrintSolarConfig, "Print an anchor table derived from today's sun times and exit")
	fs.BoolVarP(&c.Once, "once", "o", c.Once, "Apply configuration for current time and exit")
	fs.BoolVarP(&c.Simulate, "simulation", "s", c.Simulate, "Simulate one day and exit")
	fs.Float64VarP(&c.IntervalSec, "interval", "i", c.IntervalSec, "Interval between updates in seconds")
	fs.StringVarP(&c.ConfigDir, "config", "c", c.ConfigDir, "Configuration directory")
	fs.StringVarP(&c.Backend, "backend", "b", c.Backend, "Backend (xgamma, scg, tty)")
	fs.IntVar(&c.SimulationSteps, "simulation-steps", c.SimulationSteps, "Number of steps in a simulated day")
	fs.IntVar(&c.SimulationPauseMs, "simulation-pause-ms", c.SimulationPauseMs, "Pause between simulated steps (ms)")

	// Anchor table
	fs.StringVar(&c.AnchorSource, "anchor-source", c.AnchorSource, "Anchor source (file, redis, postgres)")
	fs.StringVar(&c.AnchorFile, "anchor-file", c.AnchorFile, "Anchor file (default: <config>/gamma)")
	fs.StringVar(&c.FallbackFile, "fallback-file", c.FallbackFile, "Fallback anchor file (default: built-in table)")
	fs.StringVar(&c.AnchorProfile, "anchor-profile", c.AnchorProfile, "Anchor profile (redis key suffix, postgres gamma_anchors.profile)")
	fs.StringVar(&c.InstallPrefix, "install-prefix", c.InstallPrefix, "Prefix of the scg and tty.sh helpers")

	// MQTT flags
	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname (empty disables publishing)")
	fs.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	fs.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")
	fs.StringVar(&c.Location, "location", c.Location, "Location name used in published topics")

	// Redis flags
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	fs.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	fs.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	fs.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres user")
	fs.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	fs.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database")
	fs.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "Postgres SSL mode")

	// Service flags
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	fs.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port (0 disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Solar flags
	fs.Float64Var(&c.Latitude, "latitude", c.Latitude, "Geographic latitude for --print-solar-config")
	fs.Float64Var(&c.Longitude, "longitude", c.Longitude, "Geographic longitude for --print-solar-config")
	fs.Float64Var(&c.DayKelvin, "day-temperature", c.DayKelvin, "Daytime colour temperature for --print-solar-config")
	fs.Float64Var(&c.NightKelvin, "night-temperature", c.NightKelvin, "Night colour temperature for --print-solar-config")
	fs.IntVar(&c.TwilightMins, "twilight-minutes", c.TwilightMins, "Transition length around sunrise and sunset")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.PrintDefaults()
			return err
		}
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	return nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.Once && c.Simulate {
		return fmt.Errorf("--once and --simulation are mutually exclusive")
	}
	if _, err := backend.ParseKind(c.Backend); err != nil {
		return err
	}
	if c.IntervalSec <= 0 || math.IsNaN(c.IntervalSec) || math.IsInf(c.IntervalSec, 0) {
		return fmt.Errorf("interval must be a positive number of seconds, got %v", c.IntervalSec)
	}
	if c.SimulationSteps <= 0 {
		return fmt.Errorf("simulation steps must be positive, got %d", c.SimulationSteps)
	}
	if c.SimulationPauseMs < 0 {
		return fmt.Errorf("simulation pause must not be negative, got %d", c.SimulationPauseMs)
	}
	if _, err := c.Palette(); err != nil {
		return err
	}

	switch c.AnchorSource {
	case SourceFile:
	case SourceRedis:
		if c.AnchorProfile == "" {
			return fmt.Errorf("anchor profile is required for the redis anchor source")
		}
		if c.RedisPort <= 0 || c.RedisPort > 65535 {
			return fmt.Errorf("Redis port must be between 1 and 65535")
		}
	case SourcePostgres:
		if c.AnchorProfile == "" {
			return fmt.Errorf("anchor profile is required for the postgres anchor source")
		}
		if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
			return fmt.Errorf("Postgres port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("invalid anchor source: %s (must be file, redis, or postgres)", c.AnchorSource)
	}

	if c.MQTTBroker != "" && (c.MQTTPort <= 0 || c.MQTTPort > 65535) {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 0 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Interval returns the continuous mode period, rounded up to whole seconds
func (c *Config) Interval() time.Duration {
	return time.Duration(math.Ceil(c.IntervalSec)) * time.Second
}

// SimulationPause returns the pause between simulated steps
func (c *Config) SimulationPause() time.Duration {
	return time.Duration(c.SimulationPauseMs) * time.Millisecond
}

// Palette parses TTYPalette
func (c *Config) Palette() ([16]uint32, error) {
	var out [16]uint32
	for i, s := range c.TTYPalette {
		v, err := backend.ParsePaletteColor(s)
		if err != nil {
			return out, fmt.Errorf("tty color%d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ConfigFilePath returns <config>/config.yaml
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.ConfigDir, "config.yaml")
}

// AnchorFilePath returns the anchor file, defaulting to <config>/gamma
func (c *Config) AnchorFilePath() string {
	if c.AnchorFile != "" {
		return c.AnchorFile
	}
	return filepath.Join(c.ConfigDir, "gamma")
}

// HelperDir returns the directory holding the scg and tty.sh helpers
func (c *Config) HelperDir() string {
	return filepath.Join(c.InstallPrefix, "lib", "jeeves-gamma")
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}
