// Package sensor provides the temperature source polled by the thermal
// control loop. The real implementation reads a PT100 probe through a
// MAX31865 RTD-to-digital converter over bit-banged SPI; the fake returns
// scripted readings.
package sensor

// Source produces temperature readings.
type Source interface {
	// ReadTemperature returns the probe temperature in degrees Celsius.
	// A non-nil error means the reading is unusable (wiring fault, open
	// circuit, conversion failure) and must not enter the control law.
	ReadTemperature() (float64, error)

	// Close releases sensor resources.
	Close() error
}
