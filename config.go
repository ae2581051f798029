package serial

import (
	"fmt"
	"strings"
	"time"
)

// Parity selects the parity bit mode of the line.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

var parityNames = map[Parity]string{
	ParityNone:  "none",
	ParityOdd:   "odd",
	ParityEven:  "even",
	ParityMark:  "mark",
	ParitySpace: "space",
}

func (p Parity) String() string {
	if s, ok := parityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Parity(%d)", int(p))
}

// ParseParity parses a case-insensitive parity name such as "none" or "even".
func ParseParity(s string) (Parity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for p, name := range parityNames {
		if name == v {
			return p, nil
		}
	}
	return ParityNone, fmt.Errorf("invalid parity %q", s)
}

// FlowControl selects the handshake used on the line.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlHardware
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlHardware:
		return "hardware"
	}
	return fmt.Sprintf("FlowControl(%d)", int(f))
}

// ParseFlowControl parses "none" or "hardware" (also accepted: "rtscts").
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FlowControlNone, nil
	case "hardware", "rtscts":
		return FlowControlHardware, nil
	}
	return FlowControlNone, fmt.Errorf("invalid flow control %q", s)
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device      string
	BaudRate    int
	DataBits    int // 5..8
	StopBits    int // 1 or 2
	Parity      Parity
	FlowControl FlowControl
	BufferSize  int // size of a single read
	ReadTimeout time.Duration
}

// DefaultConfig returns 9600 8N1 with hardware flow control and a 255 byte
// read buffer.
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		DataBits:    8,
		StopBits:    1,
		Parity:      ParityNone,
		FlowControl: FlowControlHardware,
		BufferSize:  255,
	}
}

// withDefaults fills zero-valued numeric fields from DefaultConfig.
// Parity and FlowControl zero values are meaningful and kept.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaudRate == 0 {
		c.BaudRate = d.BaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = d.DataBits
	}
	if c.StopBits == 0 {
		c.StopBits = d.StopBits
	}
	if c.BufferSize == 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

// WithDefaults returns a copy of c with zero-valued numeric fields set from DefaultConfig.
func (c Config) WithDefaults() Config {
	return c.withDefaults()
}

// Validate checks the line settings. It does not touch the device.
func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("invalid data bits %d (must be 5..8)", c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("invalid stop bits %d (must be 1 or 2)", c.StopBits)
	}
	if _, ok := parityNames[c.Parity]; !ok {
		return fmt.Errorf("invalid parity %d", int(c.Parity))
	}
	if c.FlowControl != FlowControlNone && c.FlowControl != FlowControlHardware {
		return fmt.Errorf("invalid flow control %d", int(c.FlowControl))
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("invalid buffer size %d", c.BufferSize)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout %s", c.ReadTimeout)
	}
	return nil
}

// String formats the line settings as e.g. "/dev/ttyUSB0 115200 8N1 hardware".
func (c Config) String() string {
	p := strings.ToUpper(c.Parity.String()[:1])
	return fmt.Sprintf("%s %d %d%s%d %s", c.Device, c.BaudRate, c.DataBits, p, c.StopBits, c.FlowControl)
}
