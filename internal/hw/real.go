//go:build linux

package hw

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// DefaultChip is the GPIO character device on Raspberry Pi class boards.
const DefaultChip = "gpiochip0"

// RealOutputPin drives a GPIO line through the Linux character device.
type RealOutputPin struct {
	line *gpiocdev.Line

	// lastErr holds the most recent write error, if any. Writes happen in
	// timer callbacks where we can neither block nor log.
	lastErr atomic.Value
}

// NewRealOutputPin requests the line as an output, initially low.
func NewRealOutputPin(chip string, offset int) (*RealOutputPin, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}
	return &RealOutputPin{line: line}, nil
}

// Set drives the line. Errors are recorded, not returned — see Err.
func (p *RealOutputPin) Set(high bool) {
	v := 0
	if high {
		v = 1
	}
	if err := p.line.SetValue(v); err != nil {
		p.lastErr.Store(fmt.Errorf("set output: %w", err))
	}
}

// Err returns the last write error observed, if any.
func (p *RealOutputPin) Err() error {
	if err, ok := p.lastErr.Load().(error); ok {
		return err
	}
	return nil
}

// Close drives the line low before releasing it so the actuator is left
// de-energized.
func (p *RealOutputPin) Close() error {
	p.line.SetValue(0)
	if err := p.line.Close(); err != nil {
		return fmt.Errorf("close output pin: %w", err)
	}
	return nil
}

// RealZeroCross watches a pulled-up input line for rising edges and forwards
// the kernel event timestamp to the handler.
type RealZeroCross struct {
	chip   string
	offset int

	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewRealZeroCross prepares a zero-cross source. The line is not requested
// until Attach.
func NewRealZeroCross(chip string, offset int) *RealZeroCross {
	return &RealZeroCross{chip: chip, offset: offset}
}

// Attach requests the line with edge detection and registers the handler.
// The event timestamp is the kernel's monotonic timestamp for the edge, not
// the time the handler runs, so debounce math is unaffected by scheduling.
func (z *RealZeroCross) Attach(fn EdgeFunc) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.line != nil {
		return fmt.Errorf("zero-cross pin %d: already attached", z.offset)
	}
	line, err := gpiocdev.RequestLine(z.chip, z.offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			fn(evt.Timestamp.Microseconds())
		}))
	if err != nil {
		return fmt.Errorf("request zero-cross pin %d: %w", z.offset, err)
	}
	z.line = line
	return nil
}

// Detach releases the line, stopping event delivery.
func (z *RealZeroCross) Detach() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.line == nil {
		return nil
	}
	err := z.line.Close()
	z.line = nil
	if err != nil {
		return fmt.Errorf("close zero-cross pin %d: %w", z.offset, err)
	}
	return nil
}
