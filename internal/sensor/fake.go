package sensor

import "errors"

// FakeSource is a test double that returns scripted temperature readings.
type FakeSource struct {
	// Readings contains scripted temperatures to return. Each call to
	// ReadTemperature consumes the next one; when exhausted, the last
	// reading repeats.
	Readings []float64

	// index tracks current position in Readings.
	index int

	// ReadError, if set, will be returned by ReadTemperature.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given readings.
func NewFakeSource(readings ...float64) *FakeSource {
	return &FakeSource{Readings: readings}
}

// ReadTemperature returns the next scripted reading.
func (f *FakeSource) ReadTemperature() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Readings) == 0 {
		return 0, errors.New("no readings configured")
	}
	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first reading.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Closed = false
	f.ReadError = nil
}
