package session

import (
	"context"
	"io"
	"log/slog"

	serial "github.com/luhtfiimanal/go-serial-session"
)

// Stream is an open duplex byte stream. Read must return io.EOF at end of
// stream and should return once Close is called from another goroutine.
type Stream interface {
	io.ReadWriteCloser
}

// Picker selects the device a session connects to.
type Picker interface {
	Pick(ctx context.Context) (string, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (string, error)

func (f PickerFunc) Pick(ctx context.Context) (string, error) { return f(ctx) }

// Opener opens the picked device with the given line settings.
// cfg.Device holds the picked device name.
type Opener interface {
	Open(ctx context.Context, cfg serial.Config) (Stream, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, cfg serial.Config) (Stream, error)

func (f OpenerFunc) Open(ctx context.Context, cfg serial.Config) (Stream, error) { return f(ctx, cfg) }

// TermiosOpener opens devices with the Linux termios transport.
func TermiosOpener() Opener {
	return OpenerFunc(func(ctx context.Context, cfg serial.Config) (Stream, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := serial.Open(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// Reporter receives every failure of a session exactly once.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }

// LogReporter reports failures as error-level log records.
func LogReporter(log *slog.Logger) Reporter {
	return ReporterFunc(func(err error) {
		log.Error("serial session failure", "kind", string(KindOf(err)), "error", err)
	})
}

// Observer is notified of session activity. Methods are called
// synchronously, some with the session lock held, and must not call back
// into the Session.
type Observer interface {
	StateChanged(from, to State)
	ChunkReceived(n int)
	BytesWritten(n int)
	Failed(kind Kind)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State) {}
func (nopObserver) ChunkReceived(int)         {}
func (nopObserver) BytesWritten(int)          {}
func (nopObserver) Failed(Kind)               {}
