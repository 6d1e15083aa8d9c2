//go:build !linux

package sensor

import "errors"

// MAX31865Pins names the GPIO offsets of the bit-banged SPI bus.
type MAX31865Pins struct {
	CS   int
	CLK  int
	MOSI int
	MISO int
}

// MAX31865 is not available on non-Linux platforms.
type MAX31865 struct{}

// NewMAX31865 returns an error on non-Linux platforms.
func NewMAX31865(chip string, pins MAX31865Pins, rRef, rNominal float64) (*MAX31865, error) {
	return nil, errors.New("sensor: not supported on this platform (requires Linux)")
}

// ReadTemperature is not implemented on non-Linux platforms.
func (m *MAX31865) ReadTemperature() (float64, error) {
	return 0, errors.New("sensor: not supported")
}

// Close is not implemented on non-Linux platforms.
func (m *MAX31865) Close() error { return nil }
