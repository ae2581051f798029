// Package session manages a single serial connection: it asks a Picker for a
// device, opens it through an Opener, runs a background read loop that
// delivers decoded chunks to a Handler, and serializes writes.
//
// A Session holds at most one open Stream. Connect is valid only while Idle,
// Write only while Open. Disconnect is always safe to call.
//
// Cancellation is cooperative. Disconnect raises a stop signal that the
// read loop checks after every read, before the chunk is delivered. By
// default Disconnect also closes the stream, which wakes a pending read on
// transports that support it (the termios and go.bug.st transports both do).
// With WithDeferredClose the stream is only closed by the loop itself, so a
// disconnect waits for the next chunk or for end of stream; if the peer goes
// silent and the transport never signals end of stream, that wait is unbounded.
// Set serial.Config.ReadTimeout to bound it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	serial "github.com/luhtfiimanal/go-serial-session"
	"github.com/luhtfiimanal/go-serial-session/internal/logging"
)

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Session owns one logical serial connection. It is safe for concurrent use.
type Session struct {
	picker        Picker
	opener        Opener
	handler       Handler
	reporter      Reporter
	observer      Observer
	log           *slog.Logger
	deferredClose bool

	mu    sync.Mutex
	state State
	conn  *conn
	stop  context.CancelFunc
	done  chan struct{}

	writeMu sync.Mutex
}

type conn struct {
	stream    Stream
	port      string
	closeOnce sync.Once
}

// close closes the stream on the first call only; closed reports whether this call did it.
func (c *conn) close() (closed bool, err error) {
	c.closeOnce.Do(func() {
		closed = true
		err = c.stream.Close()
	})
	return closed, err
}

// New creates an idle Session.
func New(picker Picker, opener Opener, opts ...Option) *Session {
	s := &Session{
		picker:   picker,
		opener:   opener,
		handler:  func(Chunk) {},
		observer: nopObserver{},
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = LogReporter(s.log)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Port returns the name of the connected device, or "" when not open.
func (s *Session) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.port
}

// Done returns a channel that is closed when the current connection (or
// connection attempt) has ended and the session is Idle again.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return closedChan
	}
	return s.done
}

// Connect picks a device, opens it with cfg and starts the read loop.
// Zero-valued numeric fields of cfg take their serial.DefaultConfig values;
// cfg.Device is ignored in favour of the picked device.
// ctx bounds only the picking and opening, not the connection's lifetime.
func (s *Session) Connect(ctx context.Context, cfg serial.Config) error {
	s.mu.Lock()
	if s.state != Idle {
		cause := errClosing
		switch s.state {
		case Connecting:
			cause = errAlreadyConnecting
		case Open:
			cause = errAlreadyOpen
		}
		port := ""
		if s.conn != nil {
			port = s.conn.port
		}
		s.mu.Unlock()
		return s.fail(&Error{Kind: Busy, Op: "connect", Port: port, Err: cause})
	}
	stopCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.stop = stop
	s.done = done
	s.setStateLocked(Connecting)
	s.mu.Unlock()

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		s.finish(done)
		return s.fail(&Error{Kind: OpenFailed, Op: "connect", Err: err})
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	unwatch := context.AfterFunc(stopCtx, cancel)
	defer unwatch()

	name, err := s.picker.Pick(opCtx)
	if err == nil && name == "" {
		err = errors.New("no device selected")
	}
	if err != nil {
		canceled := stopCtx.Err() != nil
		s.finish(done)
		return s.abort(canceled, &Error{Kind: DeviceSelectionFailed, Op: "connect", Err: err})
	}

	cfg.Device = name
	stream, err := s.opener.Open(opCtx, cfg)
	if err != nil {
		canceled := stopCtx.Err() != nil
		s.finish(done)
		return s.abort(canceled, &Error{Kind: OpenFailed, Op: "connect", Port: name, Err: err})
	}

	c := &conn{stream: stream, port: name}
	s.mu.Lock()
	if stopCtx.Err() != nil {
		s.mu.Unlock()
		s.closeConn(c, "connect")
		s.finish(done)
		return s.abort(true, &Error{Kind: OpenFailed, Op: "connect", Port: name})
	}
	s.conn = c
	s.setStateLocked(Open)
	s.mu.Unlock()

	s.log.Info("serial port connected", "port", name, "config", cfg.String())
	go s.readLoop(stopCtx, c, cfg.BufferSize, done)
	return nil
}

// abort turns a failed connect into Canceled when Disconnect caused it;
// cancellations are returned but not reported.
func (s *Session) abort(canceled bool, err *Error) error {
	if canceled {
		s.log.Info("serial connect canceled", "port", err.Port)
		return &Error{Kind: Canceled, Op: "connect", Port: err.Port, Err: context.Canceled}
	}
	return s.fail(err)
}

func (s *Session) readLoop(stop context.Context, c *conn, size int, done chan struct{}) {
	defer s.finish(done)
	defer s.closeConn(c, "read")

	buf := make([]byte, size)
	var seq uint64
	for {
		n, err := c.stream.Read(buf)
		if stop.Err() != nil {
			s.log.Debug("read loop stopped", "port", c.port)
			return
		}
		if n > 0 {
			seq++
			raw := make([]byte, n)
			copy(raw, buf[:n])
			s.observer.ChunkReceived(n)
			s.handler(Chunk{
				Port: c.port,
				Seq:  seq,
				Raw:  raw,
				Text: decodeText(raw),
				At:   time.Now(),
			})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Info("serial stream ended", "port", c.port)
				return
			}
			s.fail(&Error{Kind: ReadFailed, Op: "read", Port: c.port, Err: err})
			return
		}
	}
}

// Disconnect stops the read loop and closes the connection, then waits until
// the session is Idle or ctx is done. It is a no-op while Idle, and calling it
// again while a disconnect is in progress only waits.
//
// Disconnect must not be called from a Handler: the loop cannot finish while
// its Handler is blocked waiting for it. Handlers call Stop instead.
func (s *Session) Disconnect(ctx context.Context) error {
	done := s.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop raises the stop signal and, unless WithDeferredClose is set, closes
// the connection. It does not wait; the returned channel is closed once the
// session is Idle. Stop is safe to call from a Handler.
func (s *Session) Stop() <-chan struct{} {
	s.mu.Lock()
	var c *conn
	switch s.state {
	case Idle:
		s.mu.Unlock()
		return closedChan
	case Connecting, Open:
		s.setStateLocked(Closing)
		s.stop()
		c = s.conn
	}
	done := s.done
	s.mu.Unlock()

	if c != nil {
		s.log.Info("serial port disconnecting", "port", c.port)
		if !s.deferredClose {
			s.closeConn(c, "disconnect")
		}
	}
	return done
}

// Write writes the whole of p to the connection. It fails with NotOpen,
// without any I/O, unless the session is Open.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	c := s.conn
	state := s.state
	s.mu.Unlock()
	if state != Open || c == nil {
		return 0, s.fail(&Error{Kind: NotOpen, Op: "write", Err: fmt.Errorf("session is %s", state)})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := writeFull(c.stream, p)
	if n > 0 {
		s.observer.BytesWritten(n)
	}
	if err != nil {
		return n, s.fail(&Error{Kind: WriteFailed, Op: "write", Port: c.port, Err: err})
	}
	return n, nil
}

// WriteString writes the UTF-8 encoding of str.
func (s *Session) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

func writeFull(w io.Writer, p []byte) (int, error) {
	var total int
	for total < len(p) {
		n, err := w.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

func (s *Session) closeConn(c *conn, op string) {
	closed, err := c.close()
	if !closed {
		return
	}
	if err != nil {
		s.fail(&Error{Kind: CloseFailed, Op: op, Port: c.port, Err: err})
		return
	}
	s.log.Info("serial port closed", "port", c.port)
}

// finish returns the session to Idle and releases the attempt's done channel.
func (s *Session) finish(done chan struct{}) {
	s.mu.Lock()
	if s.state == Open {
		s.setStateLocked(Closing)
	}
	s.conn = nil
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.setStateLocked(Idle)
	s.mu.Unlock()
	close(done)
}

func (s *Session) setStateLocked(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.log.Debug("serial session state", "from", from.String(), "to", to.String())
	s.observer.StateChanged(from, to)
}

func (s *Session) fail(err *Error) error {
	s.observer.Failed(err.Kind)
	if s.reporter != nil {
		s.reporter.Report(err)
	}
	return err
}
