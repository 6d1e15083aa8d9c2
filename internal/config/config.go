// Package config loads the daemon configuration from YAML. Every field has
// a default matching the reference hardware, so an empty file (or no file at
// all) yields a working configuration for the bench rig.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SPI holds the bit-banged SPI pin assignment for the RTD converter.
type SPI struct {
	CS   int `yaml:"cs"`
	CLK  int `yaml:"clk"`
	MOSI int `yaml:"mosi"`
	MISO int `yaml:"miso"`
}

// Hardware holds GPIO line offsets and the mains frequency.
type Hardware struct {
	Chip         string `yaml:"chip"`
	RelayPin     int    `yaml:"relay_pin"`
	ZeroCrossPin int    `yaml:"zero_cross_pin"`
	GatePin      int    `yaml:"gate_pin"`
	MainsHz      int    `yaml:"mains_hz"`
	SPI          SPI    `yaml:"spi"`
}

// Heater holds the thermal loop settings.
type Heater struct {
	MaxTemp   float64 `yaml:"max_temp"`
	Tolerance float64 `yaml:"tolerance"`
	PollMs    int     `yaml:"poll_ms"`
	RRef      float64 `yaml:"r_ref"`
	RNominal  float64 `yaml:"r_nominal"`
}

// Stirrer holds the phase-angle controller settings.
type Stirrer struct {
	MaxRPM      float64 `yaml:"max_rpm"`
	MinPercent  float64 `yaml:"min_percent"`
	MaxPercent  float64 `yaml:"max_percent"`
	GatePulseUs int     `yaml:"gate_pulse_us"`
}

// MQTT holds the broker connection settings.
type MQTT struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	HeartbeatMs int    `yaml:"heartbeat_ms"`
}

// HTTP holds the web server settings.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Notes holds the run-notes store settings.
type Notes struct {
	Dir string `yaml:"dir"`
}

// Config is the full daemon configuration.
type Config struct {
	Hardware Hardware `yaml:"hardware"`
	Heater   Heater   `yaml:"heater"`
	Stirrer  Stirrer  `yaml:"stirrer"`
	MQTT     MQTT     `yaml:"mqtt"`
	HTTP     HTTP     `yaml:"http"`
	Notes    Notes    `yaml:"notes"`
}

// Default returns the configuration for the reference board.
func Default() Config {
	return Config{
		Hardware: Hardware{
			Chip:         "gpiochip0",
			RelayPin:     5,
			ZeroCrossPin: 4,
			GatePin:      6,
			MainsHz:      50,
			SPI:          SPI{CS: 17, CLK: 18, MOSI: 23, MISO: 19},
		},
		Heater: Heater{
			MaxTemp:   70,
			Tolerance: 0.5,
			PollMs:    500,
			RRef:      424,
			RNominal:  100,
		},
		Stirrer: Stirrer{
			MaxRPM:      3000,
			MinPercent:  5,
			MaxPercent:  95,
			GatePulseUs: 120,
		},
		MQTT: MQTT{
			Broker:      "tcp://localhost:1883",
			ClientID:    "hotplate-controller",
			HeartbeatMs: 60000,
		},
		HTTP: HTTP{
			Addr: ":8080",
		},
		Notes: Notes{
			Dir: "/var/lib/hotplate/notes",
		},
	}
}

// Load reads path and layers it over the defaults, validating the result.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints the YAML schema cannot express.
func (c Config) Validate() error {
	if c.Hardware.MainsHz != 50 && c.Hardware.MainsHz != 60 {
		return fmt.Errorf("hardware.mains_hz must be 50 or 60, got %d", c.Hardware.MainsHz)
	}
	if c.Heater.MaxTemp <= 0 {
		return fmt.Errorf("heater.max_temp must be positive, got %v", c.Heater.MaxTemp)
	}
	if c.Heater.Tolerance <= 0 {
		return fmt.Errorf("heater.tolerance must be positive, got %v", c.Heater.Tolerance)
	}
	if c.Heater.PollMs <= 0 {
		return fmt.Errorf("heater.poll_ms must be positive, got %d", c.Heater.PollMs)
	}
	if c.Stirrer.MaxRPM <= 0 {
		return fmt.Errorf("stirrer.max_rpm must be positive, got %v", c.Stirrer.MaxRPM)
	}
	if c.Stirrer.MinPercent <= 0 || c.Stirrer.MaxPercent >= 100 || c.Stirrer.MinPercent >= c.Stirrer.MaxPercent {
		return fmt.Errorf("stirrer percent limits must satisfy 0 < min < max < 100, got %v..%v",
			c.Stirrer.MinPercent, c.Stirrer.MaxPercent)
	}
	if c.Stirrer.GatePulseUs <= 0 {
		return fmt.Errorf("stirrer.gate_pulse_us must be positive, got %d", c.Stirrer.GatePulseUs)
	}
	return nil
}
