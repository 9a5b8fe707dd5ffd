package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"coopdoor/alert"
	"coopdoor/automation"
	"coopdoor/buttons"
	"coopdoor/console"
	"coopdoor/door"
	"coopdoor/eventpipe"
	"coopdoor/hatch"
	"coopdoor/indicator"
	"coopdoor/keypad"
	"coopdoor/light"
	"coopdoor/logging"
	"coopdoor/mqtt"
	"coopdoor/rotary"
	"coopdoor/store"
	"coopdoor/sun"
	"coopdoor/telemetry"
	"coopdoor/tracker"
	"coopdoor/udp"
)

// Environment variables that override values from the config file.
const (
	envMQTTHost    = "COOPDOOR_MQTT_HOST"
	envStorePath   = "COOPDOOR_STORE_PATH"
	envInfluxToken = "COOPDOOR_INFLUX_TOKEN"
)

// Config is the main configuration structure for coopdoor.
type Config struct {
	// General settings
	ClientID string `yaml:"client_id"`

	Logging logging.Config     `yaml:"logging"`
	Store   store.MediumConfig `yaml:"store"`

	// Hardware
	Door      door.Config      `yaml:"door"`
	Rotary    rotary.Config    `yaml:"rotary"`
	Light     light.Config     `yaml:"light"`
	Indicator indicator.Config `yaml:"indicator"`
	Buttons   buttons.Config   `yaml:"buttons"`

	// Door behaviour
	Tracker    tracker.Config    `yaml:"tracker"`
	Sun        sun.Config        `yaml:"sun"`
	Automation automation.Config `yaml:"automation"`
	Hatch      hatch.Config      `yaml:"hatch"`

	// Transports
	MQTT      mqtt.Config      `yaml:"mqtt"`
	UDP       udp.Config       `yaml:"udp"`
	Console   console.Config   `yaml:"console"`
	EventPipe eventpipe.Config `yaml:"eventpipe"`
	Keypad    keypad.Config    `yaml:"keypad"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Alert     alert.Config     `yaml:"alert"`
}

func defaultConfig() Config {
	return Config{
		Logging: logging.Config{Level: "info", Format: "text", Output: "stderr"},
		Store:   store.MediumConfig{Type: "file", Path: "/var/lib/coopdoor/settings.bin"},
		Door:    door.Config{Type: "none"},
		Rotary:  rotary.Config{Type: "none"},
		Light:   light.Config{Type: "none"},
		Sun:     sun.Config{Timezone: "UTC"},
	}
}

// loadConfig reads the YAML file at path over the defaults and applies
// environment overrides.
func loadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return decodeConfig(f, os.LookupEnv)
}

func decodeConfig(r io.Reader, lookup func(string) (string, bool)) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyEnv(lookup)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(envMQTTHost); ok {
		c.MQTT.Host = v
	}
	if v, ok := lookup(envStorePath); ok {
		c.Store.Path = v
	}
	if v, ok := lookup(envInfluxToken); ok {
		c.Telemetry.Token = v
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.ClientID == "" {
		errs = append(errs, errors.New("client_id missing"))
	}
	switch c.Store.Type {
	case "file", "sqlite", "":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path missing"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("store.type %q unknown", c.Store.Type))
	}
	if c.Door.Type != "" && c.Door.Type != "none" && (c.Door.Pin1 == nil || c.Door.Pin2 == nil) {
		errs = append(errs, fmt.Errorf("door.type %q requires pin1 and pin2", c.Door.Type))
	}
	if c.Rotary.Type == "gpio" && c.Rotary.Chip == "" {
		errs = append(errs, errors.New("rotary.chip missing"))
	}
	if c.Light.Type == "iio" && c.Light.Path == "" {
		errs = append(errs, errors.New("light.path missing"))
	}
	if c.Sun.Latitude < -90 || c.Sun.Latitude > 90 {
		errs = append(errs, fmt.Errorf("sun.latitude %v out of range", c.Sun.Latitude))
	}
	if c.Sun.Longitude < -180 || c.Sun.Longitude > 180 {
		errs = append(errs, fmt.Errorf("sun.longitude %v out of range", c.Sun.Longitude))
	}
	if c.Alert.Domain != "" && (c.Alert.Sender == "" || len(c.Alert.Recipients) == 0) {
		errs = append(errs, errors.New("alert requires sender and recipients"))
	}
	if c.Telemetry.Enabled && (c.Telemetry.URL == "" || c.Telemetry.Bucket == "") {
		errs = append(errs, errors.New("telemetry requires url and bucket"))
	}

	return errors.Join(errs...)
}
