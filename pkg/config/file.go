package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk layout of config.yaml
type fileConfig struct {
	Main struct {
		Interval float64 `yaml:"interval"`
		Backend  string  `yaml:"backend"`
	} `yaml:"main"`
	Anchors struct {
		Source   string `yaml:"source,omitempty"`
		File     string `yaml:"file,omitempty"`
		Fallback string `yaml:"fallback,omitempty"`
		Profile  string `yaml:"profile,omitempty"`
	} `yaml:"anchors"`
	MQTT struct {
		Broker   string `yaml:"broker,omitempty"`
		Port     int    `yaml:"port,omitempty"`
		Location string `yaml:"location,omitempty"`
	} `yaml:"mqtt"`
	TTY map[string]string `yaml:"tty"`
}

// LoadFromFile overrides values with those present in a YAML config file.
// A missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Main.Interval != 0 {
		c.IntervalSec = fc.Main.Interval
	}
	setString(&c.Backend, fc.Main.Backend)
	setString(&c.AnchorSource, fc.Anchors.Source)
	setString(&c.AnchorFile, fc.Anchors.File)
	setString(&c.FallbackFile, fc.Anchors.Fallback)
	setString(&c.AnchorProfile, fc.Anchors.Profile)
	setString(&c.MQTTBroker, fc.MQTT.Broker)
	setString(&c.Location, fc.MQTT.Location)
	if fc.MQTT.Port != 0 {
		c.MQTTPort = fc.MQTT.Port
	}

	for i := range c.TTYPalette {
		setString(&c.TTYPalette[i], fc.TTY[fmt.Sprintf("color%d", i)])
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// WriteFile renders the effective configuration in config.yaml layout
func (c *Config) WriteFile(w io.Writer) error {
	var fc fileConfig
	fc.Main.Interval = c.IntervalSec
	fc.Main.Backend = c.Backend
	fc.Anchors.Source = c.AnchorSource
	fc.Anchors.File = c.AnchorFile
	fc.Anchors.Fallback = c.FallbackFile
	fc.Anchors.Profile = c.AnchorProfile
	fc.MQTT.Broker = c.MQTTBroker
	fc.MQTT.Port = c.MQTTPort
	fc.MQTT.Location = c.Location
	fc.TTY = make(map[string]string, len(c.TTYPalette))
	for i, color := range c.TTYPalette {
		fc.TTY[fmt.Sprintf("color%d", i)] = color
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&fc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
