// Package host binds the serial session to a block-based host: each
// user-invocable block is an opcode whose arguments arrive as a loosely
// typed map, as the Scratch VM delivers them.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	serial "github.com/luhtfiimanal/go-serial-session"
	"github.com/luhtfiimanal/go-serial-session/internal/logging"
	"github.com/luhtfiimanal/go-serial-session/session"
	"github.com/mitchellh/mapstructure"
)

// Opcodes handled by Extension.
const (
	OpConnect    = "connectSerial"
	OpDisconnect = "disconnectSerial"
	OpWrite      = "writeSerial"
)

var (
	// ErrUnknownOpcode is returned by Run for opcodes that are not in Blocks.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrInvalidArgs is returned by Run when block arguments cannot be decoded.
	ErrInvalidArgs = errors.New("invalid block arguments")
)

// Settings is owned by the host integration and passed in explicitly.
type Settings struct {
	// Line is the configuration used by connectSerial unless overridden by its arguments.
	Line serial.Config
	// Newline is appended to every writeSerial payload. Empty means none.
	Newline string
}

// DefaultSettings uses serial.DefaultConfig and no newline.
func DefaultSettings() Settings {
	return Settings{Line: serial.DefaultConfig()}
}

// Block describes one opcode and the argument names it accepts.
type Block struct {
	Opcode string   `json:"opcode"`
	Args   []string `json:"args,omitempty"`
}

// Controller is the part of session.Session the extension drives.
type Controller interface {
	Connect(ctx context.Context, cfg serial.Config) error
	Disconnect(ctx context.Context) error
	WriteString(s string) (int, error)
	State() session.State
	Port() string
}

// Extension is a thin adapter from opcodes to a Controller.
type Extension struct {
	ctrl     Controller
	settings Settings
	log      *slog.Logger
}

// New creates an Extension. A nil logger disables logging.
func New(ctrl Controller, settings Settings, log *slog.Logger) *Extension {
	if log == nil {
		log = logging.NewNop()
	}
	return &Extension{ctrl: ctrl, settings: settings, log: log}
}

// Blocks lists the opcodes the extension handles.
func (e *Extension) Blocks() []Block {
	return []Block{
		{Opcode: OpConnect, Args: []string{"BAUDRATE", "FLOW"}},
		{Opcode: OpDisconnect},
		{Opcode: OpWrite, Args: []string{"TEXT"}},
	}
}

// Status is a snapshot of the underlying session.
type Status struct {
	State string `json:"state"`
	Port  string `json:"port,omitempty"`
}

// Status reports the session state and connected port.
func (e *Extension) Status() Status {
	return Status{State: e.ctrl.State().String(), Port: e.ctrl.Port()}
}

type connectArgs struct {
	BaudRate int    `mapstructure:"BAUDRATE"`
	Flow     string `mapstructure:"FLOW"`
}

type writeArgs struct {
	Text string `mapstructure:"TEXT"`
}

// Run executes opcode with args. Session failures have already been
// reported by the session when Run returns them.
func (e *Extension) Run(ctx context.Context, opcode string, args map[string]any) error {
	e.log.Debug("block invoked", "opcode", opcode)
	switch opcode {
	case OpConnect:
		var a connectArgs
		if err := decodeArgs(args, &a); err != nil {
			return err
		}
		cfg := e.settings.Line
		if a.BaudRate != 0 {
			cfg.BaudRate = a.BaudRate
		}
		if a.Flow != "" {
			flow, err := serial.ParseFlowControl(a.Flow)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
			}
			cfg.FlowControl = flow
		}
		return e.ctrl.Connect(ctx, cfg)
	case OpDisconnect:
		return e.ctrl.Disconnect(ctx)
	case OpWrite:
		var a writeArgs
		if err := decodeArgs(args, &a); err != nil {
			return err
		}
		_, err := e.ctrl.WriteString(a.Text + e.settings.Newline)
		return err
	}
	return fmt.Errorf("%w %q", ErrUnknownOpcode, opcode)
}

func decodeArgs(args map[string]any, out any) error {
	if len(args) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	return nil
}
