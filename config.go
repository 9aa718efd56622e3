package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"gregoryjjb/fireside/gpio"
)

const (
	DefaultRoom           = "family_room"
	DefaultHost           = "0.0.0.0"
	DefaultPort           = "8090"
	DefaultCommandTimeout = 10 * time.Second
	DefaultHomeKitPin     = "12345678"
)

var ErrNoConfigFile = errors.New("no configuration file in use")

type Flags struct {
	ConfigPath string
	Room       string
}

type Config struct {
	Room    RoomConfig    `toml:"room" yaml:"room" json:"room"`
	Pins    PinConfig     `toml:"pins" yaml:"pins" json:"pins"`
	Safety  SafetyConfig  `toml:"safety" yaml:"safety" json:"safety"`
	GPIO    GPIOConfig    `toml:"gpio" yaml:"gpio" json:"-"`
	Server  ServerConfig  `toml:"server" yaml:"server" json:"-"`
	HomeKit HomeKitConfig `toml:"homekit" yaml:"homekit" json:"-"`
	MQTT    MQTTConfig    `toml:"mqtt" yaml:"mqtt" json:"-"`
	Log     LogConfig     `toml:"log" yaml:"log" json:"-"`

	// Path is the file this config was read from, empty for built-in defaults.
	Path string `toml:"-" yaml:"-" json:"-"`
}

type RoomConfig struct {
	Name     string  `toml:"name" yaml:"name" json:"name"`
	DeviceIP *string `toml:"device_ip" yaml:"device_ip" json:"device_ip"`
}

type PinConfig struct {
	Fireplace       uint32  `toml:"fireplace" yaml:"fireplace" json:"fireplace"`
	FireplaceFan    uint32  `toml:"fireplace_fan" yaml:"fireplace_fan" json:"fireplace_fan"`
	Lights          *uint32 `toml:"lights" yaml:"lights" json:"lights"`
	SecondaryDevice *uint32 `toml:"secondary_device" yaml:"secondary_device" json:"secondary_device"`
	ActiveLow       bool    `toml:"active_low" yaml:"active_low" json:"active_low"`
}

type SafetyConfig struct {
	MaxPulseDurationMs  uint32 `toml:"max_pulse_duration_ms" yaml:"max_pulse_duration_ms" json:"max_pulse_duration_ms"`
	RequireConfirmation bool   `toml:"require_confirmation" yaml:"require_confirmation" json:"require_confirmation"`
}

type GPIOConfig struct {
	Backend string `toml:"backend" yaml:"backend"`
	Chip    string `toml:"chip" yaml:"chip"`

	// Unset means DefaultCommandTimeout, "0s" means no timeout.
	CommandTimeout *Duration `toml:"command_timeout" yaml:"command_timeout"`
}

func (g GPIOConfig) Timeout() time.Duration {
	if g.CommandTimeout == nil {
		return DefaultCommandTimeout
	}
	return g.CommandTimeout.Duration()
}

type ServerConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port string `toml:"port" yaml:"port"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type HomeKitConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled"`
	Pin         string `toml:"pin" yaml:"pin"`
	StoragePath string `toml:"storage_path" yaml:"storage_path"`
	Port        string `toml:"port" yaml:"port"`
}

type MQTTConfig struct {
	// Broker like tcp://192.168.1.200:1883. Empty disables MQTT.
	Broker      string `toml:"broker" yaml:"broker"`
	ClientID    string `toml:"client_id" yaml:"client_id"`
	TopicPrefix string `toml:"topic_prefix" yaml:"topic_prefix"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

// Duration reads "250ms", "10s" and friends from either file format.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func uint32Ptr(v uint32) *uint32 { return &v }

// DefaultConfig is what runs when no config file can be found.
func DefaultConfig(room string) *Config {
	deviceIP := "127.0.0.1"
	c := &Config{
		Room: RoomConfig{
			Name:     room,
			DeviceIP: &deviceIP,
		},
		Pins: PinConfig{
			Fireplace:       17,
			FireplaceFan:    27,
			Lights:          uint32Ptr(22),
			SecondaryDevice: uint32Ptr(23),
		},
		Safety: SafetyConfig{
			MaxPulseDurationMs:  5000,
			RequireConfirmation: false,
		},
	}
	c.applyDefaults(room)
	return c
}

func (c *Config) applyDefaults(room string) {
	if c.Room.Name == "" {
		c.Room.Name = room
	}
	if c.Room.Name == "" {
		c.Room.Name = DefaultRoom
	}
	if c.GPIO.Backend == "" {
		c.GPIO.Backend = gpio.BackendWiringPi
	}
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = gpio.DefaultChip
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.HomeKit.Pin == "" {
		c.HomeKit.Pin = DefaultHomeKitPin
	}
	if c.HomeKit.StoragePath == "" {
		c.HomeKit.StoragePath = "homekit_data"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "fireside"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "fireside-" + c.Room.Name
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

var homeKitPinRegex = regexp.MustCompile(`^\d{8}$`)

func (c *Config) Validate() error {
	known := false
	for _, b := range gpio.Backends {
		if b == c.GPIO.Backend {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("gpio.backend %q is not one of %v", c.GPIO.Backend, gpio.Backends)
	}
	if err := c.Pins.validate(); err != nil {
		return err
	}
	if c.HomeKit.Enabled && !homeKitPinRegex.MatchString(c.HomeKit.Pin) {
		return fmt.Errorf("homekit.pin must be 8 digits, got %q", c.HomeKit.Pin)
	}
	return nil
}

// validate rejects two devices sharing a pin, which would leave PinName
// and the HomeKit switches pointing at the wrong device.
func (p PinConfig) validate() error {
	type assigned struct {
		key string
		pin uint32
	}
	devices := []assigned{
		{"pins.fireplace", p.Fireplace},
		{"pins.fireplace_fan", p.FireplaceFan},
	}
	if p.Lights != nil {
		devices = append(devices, assigned{"pins.lights", *p.Lights})
	}
	if p.SecondaryDevice != nil {
		devices = append(devices, assigned{"pins.secondary_device", *p.SecondaryDevice})
	}

	seen := make(map[uint32]string, len(devices))
	for _, d := range devices {
		if other, ok := seen[d.pin]; ok {
			return fmt.Errorf("%s and %s are both %d", other, d.key, d.pin)
		}
		seen[d.pin] = d.key
	}
	return nil
}

// PinName reports which appliance is wired to pin, checking the fireplace,
// its fan, the lights, then the secondary device.
func (p PinConfig) PinName(pin uint32) (string, bool) {
	switch {
	case pin == p.Fireplace:
		return "fireplace", true
	case pin == p.FireplaceFan:
		return "fireplace_fan", true
	case p.Lights != nil && pin == *p.Lights:
		return "lights", true
	case p.SecondaryDevice != nil && pin == *p.SecondaryDevice:
		return "secondary_device", true
	}
	return "", false
}

// DevicePin maps a device name from a control request to its pin.
func (p PinConfig) DevicePin(device string) (uint32, bool) {
	switch strings.ToLower(device) {
	case "fireplace":
		return p.Fireplace, true
	case "fan", "fireplace_fan":
		return p.FireplaceFan, true
	case "lights":
		if p.Lights != nil {
			return *p.Lights, true
		}
	case "secondary", "secondary_device":
		if p.SecondaryDevice != nil {
			return *p.SecondaryDevice, true
		}
	}
	return 0, false
}

func GetEnvOr(getenv func(string) string, key string, fallback string) string {
	value := getenv(key)
	if value == "" {
		value = fallback
	}
	return value
}

// NewConfig loads the config named by flags, or the first candidate file
// that exists, or falls back to DefaultConfig. HOST and PORT from the
// environment override the file.
func NewConfig(fs FiresideFS, flags Flags, getenv func(string) string) (*Config, error) {
	room := flags.Room
	if room == "" {
		room = DefaultRoom
	}

	path := flags.ConfigPath
	if path == "" {
		path, _ = findConfigFile(fs, room)
	}

	var c *Config
	if path == "" {
		clog().Warn().Str("room", room).Msg("No config file found, using built-in defaults")
		c = DefaultConfig(room)
	} else {
		loaded, err := readConfigFile(fs, path)
		if err != nil {
			return nil, err
		}
		loaded.applyDefaults(room)
		if abs, err := fs.Abs(path); err == nil {
			path = abs
		}
		loaded.Path = path
		c = loaded
	}

	c.Server.Host = GetEnvOr(getenv, "HOST", c.Server.Host)
	c.Server.Port = GetEnvOr(getenv, "PORT", c.Server.Port)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func readConfigFile(fs FiresideFS, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	return &c, nil
}

// ConfigStore holds the live config. Reload swaps in the room, pins and
// safety sections from disk; everything else is fixed at startup.
type ConfigStore struct {
	mu     sync.RWMutex
	config *Config
	fs     FiresideFS
	flags  Flags
	getenv func(string) string
}

func NewConfigStore(fs FiresideFS, flags Flags, getenv func(string) string) (*ConfigStore, error) {
	c, err := NewConfig(fs, flags, getenv)
	if err != nil {
		return nil, err
	}
	return &ConfigStore{
		config: c,
		fs:     fs,
		flags:  flags,
		getenv: getenv,
	}, nil
}

// Get returns the current config. Callers must not modify it.
func (s *ConfigStore) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Reload rereads the config file. On any error the current config stays.
func (s *ConfigStore) Reload() (*Config, error) {
	current := s.Get()
	if current.Path == "" {
		return nil, ErrNoConfigFile
	}

	flags := s.flags
	flags.ConfigPath = current.Path
	fresh, err := NewConfig(s.fs, flags, s.getenv)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Room = fresh.Room
	next.Pins = fresh.Pins
	next.Safety = fresh.Safety

	s.mu.Lock()
	s.config = &next
	s.mu.Unlock()

	clog().Info().Str("path", current.Path).Msg("Configuration reloaded")
	return &next, nil
}

// The following let the store stand in for mqtt.Appliances.

func (s *ConfigStore) Room() string {
	return s.Get().Room.Name
}

func (s *ConfigStore) PinName(pin uint32) (string, bool) {
	return s.Get().Pins.PinName(pin)
}

func (s *ConfigStore) ActiveLow() bool {
	return s.Get().Pins.ActiveLow
}
