// Package bugst opens session streams with go.bug.st/serial, which works on
// Linux, macOS and Windows. It has no RTS/CTS handshake, so configurations
// asking for hardware flow control are rejected.
package bugst

import (
	"context"
	"errors"
	"fmt"

	serial "github.com/luhtfiimanal/go-serial-session"
	"github.com/luhtfiimanal/go-serial-session/session"
	gobug "go.bug.st/serial"
)

// ErrFlowControlUnsupported is returned for serial.FlowControlHardware.
var ErrFlowControlUnsupported = errors.New("hardware flow control is not supported by this transport")

// allow tests to override external dependencies
var openPort = func(name string, mode *gobug.Mode) (gobug.Port, error) { return gobug.Open(name, mode) }

// Opener returns a session.Opener backed by go.bug.st/serial.
func Opener() session.Opener {
	return session.OpenerFunc(func(ctx context.Context, cfg serial.Config) (session.Stream, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mode, err := Mode(cfg)
		if err != nil {
			return nil, err
		}
		p, err := openPort(cfg.Device, mode)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
		}
		if cfg.ReadTimeout > 0 {
			if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
				p.Close()
				return nil, fmt.Errorf("set read timeout: %w", err)
			}
		}
		return p, nil
	})
}

// Mode converts the line settings of cfg into a go.bug.st/serial Mode.
func Mode(cfg serial.Config) (*gobug.Mode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FlowControl == serial.FlowControlHardware {
		return nil, ErrFlowControlUnsupported
	}
	mode := &gobug.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: gobug.OneStopBit,
	}
	if cfg.StopBits == 2 {
		mode.StopBits = gobug.TwoStopBits
	}
	switch cfg.Parity {
	case serial.ParityNone:
		mode.Parity = gobug.NoParity
	case serial.ParityOdd:
		mode.Parity = gobug.OddParity
	case serial.ParityEven:
		mode.Parity = gobug.EvenParity
	case serial.ParityMark:
		mode.Parity = gobug.MarkParity
	case serial.ParitySpace:
		mode.Parity = gobug.SpaceParity
	}
	return mode, nil
}
