//go:build !linux

package hw

import "errors"

// DefaultChip is unused on non-Linux platforms.
const DefaultChip = "gpiochip0"

// RealOutputPin is not available on non-Linux platforms.
type RealOutputPin struct{}

// NewRealOutputPin returns an error on non-Linux platforms.
func NewRealOutputPin(chip string, offset int) (*RealOutputPin, error) {
	return nil, errors.New("hw: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (p *RealOutputPin) Set(high bool) {}

// Err is not implemented on non-Linux platforms.
func (p *RealOutputPin) Err() error { return errors.New("hw: not supported") }

// Close is not implemented on non-Linux platforms.
func (p *RealOutputPin) Close() error { return nil }

// RealZeroCross is not available on non-Linux platforms.
type RealZeroCross struct{}

// NewRealZeroCross returns a stub on non-Linux platforms.
func NewRealZeroCross(chip string, offset int) *RealZeroCross {
	return &RealZeroCross{}
}

// Attach is not implemented on non-Linux platforms.
func (z *RealZeroCross) Attach(fn EdgeFunc) error {
	return errors.New("hw: not supported on this platform (requires Linux)")
}

// Detach is not implemented on non-Linux platforms.
func (z *RealZeroCross) Detach() error { return nil }
