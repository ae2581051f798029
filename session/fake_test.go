package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	serial "github.com/luhtfiimanal/go-serial-session"
)

var errFakeClosed = errors.New("fake stream closed")

// fakeStream is an in-memory Stream. Chunks pushed with feed are returned by
// Read one at a time; eof makes Read return io.EOF; Close wakes a pending Read.
type fakeStream struct {
	chunks chan []byte
	errs   chan error
	closed chan struct{}

	closeOnce sync.Once
	closes    atomic.Int32
	closeErr  error

	mu      sync.Mutex
	written bytes.Buffer
	writes  int
	writeErr error

	onClose func()
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		chunks: make(chan []byte, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (f *fakeStream) feed(b []byte) { f.chunks <- b }

func (f *fakeStream) eof() { close(f.chunks) }

func (f *fakeStream) fail(err error) { f.errs <- err }

func (f *fakeStream) Read(p []byte) (int, error) {
	select {
	case b, ok := <-f.chunks:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, b), nil
	case err := <-f.errs:
		return 0, err
	case <-f.closed:
		return 0, errFakeClosed
	}
}

func (f *fakeStream) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes++
	return f.written.Write(p)
}

func (f *fakeStream) Close() error {
	f.closes.Add(1)
	f.closeOnce.Do(func() {
		close(f.closed)
		if f.onClose != nil {
			f.onClose()
		}
	})
	return f.closeErr
}

func (f *fakeStream) writtenBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.written.Bytes()...)
}

func (f *fakeStream) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// fakeOpener hands out streams from next (or fresh ones) and records configs.
type fakeOpener struct {
	mu      sync.Mutex
	next    []*fakeStream
	opened  []*fakeStream
	configs []serial.Config
	err     error
	block   bool // wait for ctx cancellation before returning

	live    atomic.Int32
	maxLive atomic.Int32
}

func (o *fakeOpener) Open(ctx context.Context, cfg serial.Config) (Stream, error) {
	o.mu.Lock()
	o.configs = append(o.configs, cfg)
	err, block := o.err, o.block
	var st *fakeStream
	if len(o.next) > 0 {
		st, o.next = o.next[0], o.next[1:]
	} else {
		st = newFakeStream()
	}
	o.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	n := o.live.Add(1)
	for {
		m := o.maxLive.Load()
		if n <= m || o.maxLive.CompareAndSwap(m, n) {
			break
		}
	}
	st.onClose = func() { o.live.Add(-1) }

	o.mu.Lock()
	o.opened = append(o.opened, st)
	o.mu.Unlock()
	return st, nil
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

func (o *fakeOpener) last() *fakeStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened[len(o.opened)-1]
}

// recorder collects reported errors.
type recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *recorder) Report(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) reports() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// chunkSink collects delivered chunks.
type chunkSink struct {
	ch chan Chunk
}

func newChunkSink() *chunkSink { return &chunkSink{ch: make(chan Chunk, 64)} }

func (c *chunkSink) handle(ch Chunk) { c.ch <- ch }
