// Package config loads the daemon's INI configuration file
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Default values
const (
	DefaultPort            = 1883
	DefaultSleepInterval   = 60 * time.Second
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultDHTPin          = 4
	DefaultI2CAddress      = 0x76
)

// Sensor type names accepted in a sensor section's "type" key. Values outside
// this set are carried through and rejected per sensor at reader construction,
// never fatally for the whole process.
const (
	TypeDS18B20 = "ds18b20"
	TypeDHT22   = "dht22"
	TypeBME280  = "bme280"
)

// sensorSectionPrefix marks the INI sections that describe sensors.
const sensorSectionPrefix = "sensor_"

// MQTT holds broker connection settings from the [MQTT] section.
type MQTT struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string // optional, derived from hostname when empty
}

// Main holds daemon-wide settings from the [MAIN] section.
type Main struct {
	SleepInterval time.Duration
	StateFile     string // optional bbolt path for discovery bookkeeping
}

// HTTP holds the optional status server settings from the [HTTP] section.
type HTTP struct {
	Addr string // empty disables the status server
}

// Device holds the raw optional [DEVICE] section. Defaults are applied when
// the device descriptor is built, not here.
type Device struct {
	Identifiers  string // comma-separated
	Name         string
	Model        string
	Manufacturer string
	SWVersion    string
}

// Sensor describes one [sensor_*] section.
type Sensor struct {
	Section         string // INI section name, used in log messages
	Type            string
	DeviceName      string
	Topic           string // state topic override
	UniqueID        string // unique id base override
	DiscoveryPrefix string
	DeviceClass     string // single-value device class override
	UnitOverrides   map[string]string

	// ds18b20
	SensorFile string
	SensorID   string

	// dht22
	Pin int

	// bme280
	I2CAddress uint16
	I2CBus     string
}

// Config is the fully parsed configuration file.
type Config struct {
	MQTT    MQTT
	Main    Main
	HTTP    HTTP
	Device  *Device // nil when the section is absent
	Sensors []Sensor
}

// Load parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := &Config{
		MQTT: MQTT{Port: DefaultPort},
		Main: Main{SleepInterval: DefaultSleepInterval},
	}

	m := f.Section("MQTT")
	cfg.MQTT.Host = m.Key("host").String()
	cfg.MQTT.Port = m.Key("port").MustInt(DefaultPort)
	cfg.MQTT.Username = m.Key("username").String()
	cfg.MQTT.Password = m.Key("password").String()
	cfg.MQTT.ClientID = m.Key("client_id").String()

	main := f.Section("MAIN")
	cfg.Main.SleepInterval = time.Duration(main.Key("sleep_interval").MustInt(60)) * time.Second
	cfg.Main.StateFile = main.Key("state_file").String()

	cfg.HTTP.Addr = f.Section("HTTP").Key("addr").String()

	if sec, err := f.GetSection("DEVICE"); err == nil {
		cfg.Device = &Device{
			Identifiers:  sec.Key("identifiers").String(),
			Name:         sec.Key("name").String(),
			Model:        sec.Key("model").String(),
			Manufacturer: sec.Key("manufacturer").String(),
			SWVersion:    sec.Key("sw_version").String(),
		}
	}

	for _, sec := range f.Sections() {
		if !strings.HasPrefix(sec.Name(), sensorSectionPrefix) {
			continue
		}
		s, err := parseSensor(sec)
		if err != nil {
			return nil, err
		}
		cfg.Sensors = append(cfg.Sensors, s)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func parseSensor(sec *ini.Section) (Sensor, error) {
	s := Sensor{
		Section:         sec.Name(),
		Type:            sec.Key("type").MustString(TypeDS18B20),
		DeviceName:      sec.Key("device_name").String(),
		Topic:           sec.Key("topic").String(),
		UniqueID:        sec.Key("unique_id").String(),
		DiscoveryPrefix: sec.Key("discovery_prefix").MustString(DefaultDiscoveryPrefix),
		DeviceClass:     sec.Key("device_class").String(),
		UnitOverrides:   map[string]string{},

		SensorFile: sec.Key("sensor_file").String(),
		SensorID:   sec.Key("sensor_id").String(),
		Pin:        sec.Key("pin").MustInt(DefaultDHTPin),
		I2CBus:     sec.Key("i2c_bus").String(),
	}

	// Older config files used a bare unit_of_measurement for
	// single-quantity sensors, keep it as an alias for temperature.
	for _, q := range []string{"temperature", "humidity", "pressure"} {
		if u := sec.Key(q + "_unit").String(); u != "" {
			s.UnitOverrides[q] = u
		}
	}
	if u := sec.Key("unit_of_measurement").String(); u != "" {
		if _, ok := s.UnitOverrides["temperature"]; !ok {
			s.UnitOverrides["temperature"] = u
		}
	}

	s.I2CAddress = DefaultI2CAddress
	if raw := sec.Key("i2c_address").String(); raw != "" {
		// Base 0 so both 0x76 and 118 parse.
		addr, err := strconv.ParseUint(raw, 0, 16)
		if err != nil {
			return s, fmt.Errorf("section %s: bad i2c_address %q: %w", sec.Name(), raw, err)
		}
		s.I2CAddress = uint16(addr)
	}

	return s, nil
}

func (c *Config) validate() error {
	if c.MQTT.Host == "" {
		return fmt.Errorf("[MQTT] host is required")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("[MQTT] port %d is out of range", c.MQTT.Port)
	}
	if c.Main.SleepInterval <= 0 {
		return fmt.Errorf("[MAIN] sleep_interval must be positive")
	}
	return nil
}
