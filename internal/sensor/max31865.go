//go:build linux

package sensor

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// MAX31865 register map (read addresses; writes set the top bit).
const (
	regConfig = 0x00
	regRTDMSB = 0x01
	regRTDLSB = 0x02
	regFault  = 0x07

	writeBit = 0x80
)

// Config register bits.
const (
	cfgBias       = 0x80
	cfgAutoConv   = 0x40
	cfg3Wire      = 0x10
	cfgFaultClear = 0x02
	cfg50HzFilter = 0x01
)

// MAX31865Pins names the GPIO offsets of the bit-banged SPI bus.
type MAX31865Pins struct {
	CS   int
	CLK  int
	MOSI int
	MISO int
}

// MAX31865 reads a PT100 probe through a MAX31865 front end. SPI is
// bit-banged over GPIO character device lines; at syscall pace the clock
// stays far below the chip's 5 MHz limit, so no inter-edge delay is needed.
type MAX31865 struct {
	cs   *gpiocdev.Line
	clk  *gpiocdev.Line
	mosi *gpiocdev.Line
	miso *gpiocdev.Line

	rRef     float64
	rNominal float64

	// ioErr collects line errors during a transaction so the bit loop
	// stays branch-free.
	ioErr error
}

// NewMAX31865 requests the SPI lines and configures the converter for
// 3-wire PT100 operation with continuous conversion and 50 Hz filtering.
func NewMAX31865(chip string, pins MAX31865Pins, rRef, rNominal float64) (*MAX31865, error) {
	m := &MAX31865{rRef: rRef, rNominal: rNominal}

	var err error
	if m.cs, err = gpiocdev.RequestLine(chip, pins.CS, gpiocdev.AsOutput(1)); err != nil {
		return nil, fmt.Errorf("request CS pin %d: %w", pins.CS, err)
	}
	if m.clk, err = gpiocdev.RequestLine(chip, pins.CLK, gpiocdev.AsOutput(0)); err != nil {
		m.Close()
		return nil, fmt.Errorf("request CLK pin %d: %w", pins.CLK, err)
	}
	if m.mosi, err = gpiocdev.RequestLine(chip, pins.MOSI, gpiocdev.AsOutput(0)); err != nil {
		m.Close()
		return nil, fmt.Errorf("request MOSI pin %d: %w", pins.MOSI, err)
	}
	if m.miso, err = gpiocdev.RequestLine(chip, pins.MISO, gpiocdev.AsInput); err != nil {
		m.Close()
		return nil, fmt.Errorf("request MISO pin %d: %w", pins.MISO, err)
	}

	m.writeRegister(regConfig, cfgBias|cfgAutoConv|cfg3Wire|cfg50HzFilter)
	if m.ioErr != nil {
		m.Close()
		return nil, fmt.Errorf("configure max31865: %w", m.ioErr)
	}
	return m, nil
}

// ReadTemperature returns the probe temperature in Celsius. The fault
// register is checked first and cleared on the way out, matching the
// converter's latched-fault semantics.
func (m *MAX31865) ReadTemperature() (float64, error) {
	m.ioErr = nil

	if fault := m.readRegister(regFault); fault != 0 {
		m.clearFault()
		return 0, fmt.Errorf("max31865 fault 0x%02x", fault)
	}

	msb := m.readRegister(regRTDMSB)
	lsb := m.readRegister(regRTDLSB)
	if m.ioErr != nil {
		return 0, fmt.Errorf("max31865 spi: %w", m.ioErr)
	}

	raw := uint16(msb)<<8 | uint16(lsb)
	if raw&0x1 != 0 { // LSB bit 0 flags a latched fault
		m.clearFault()
		return 0, fmt.Errorf("max31865 rtd fault flagged")
	}

	resistance := float64(raw>>1) / 32768.0 * m.rRef
	return rtdToTemperature(resistance, m.rNominal), nil
}

// Close drives CS high and releases all lines.
func (m *MAX31865) Close() error {
	var firstErr error
	if m.cs != nil {
		m.cs.SetValue(1)
		if err := m.cs.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.cs = nil
	}
	for _, l := range []**gpiocdev.Line{&m.clk, &m.mosi, &m.miso} {
		if *l == nil {
			continue
		}
		if err := (*l).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		*l = nil
	}
	if firstErr != nil {
		return fmt.Errorf("close max31865: %w", firstErr)
	}
	return nil
}

func (m *MAX31865) clearFault() {
	m.writeRegister(regConfig, cfgBias|cfgAutoConv|cfg3Wire|cfg50HzFilter|cfgFaultClear)
}

func (m *MAX31865) writeRegister(reg, value byte) {
	m.set(m.cs, 0)
	m.transfer(reg | writeBit)
	m.transfer(value)
	m.set(m.cs, 1)
}

func (m *MAX31865) readRegister(reg byte) byte {
	m.set(m.cs, 0)
	m.transfer(reg &^ writeBit)
	v := m.transfer(0)
	m.set(m.cs, 1)
	return v
}

// transfer clocks one byte out on MOSI while sampling MISO, MSB first
// (SPI mode 1: sample on the rising edge).
func (m *MAX31865) transfer(out byte) byte {
	var in byte
	for i := 7; i >= 0; i-- {
		bit := 0
		if out&(1<<uint(i)) != 0 {
			bit = 1
		}
		m.set(m.mosi, bit)
		m.set(m.clk, 1)
		v, err := m.miso.Value()
		if err != nil && m.ioErr == nil {
			m.ioErr = err
		}
		if v != 0 {
			in |= 1 << uint(i)
		}
		m.set(m.clk, 0)
	}
	return in
}

func (m *MAX31865) set(line *gpiocdev.Line, v int) {
	if err := line.SetValue(v); err != nil && m.ioErr == nil {
		m.ioErr = err
	}
}
