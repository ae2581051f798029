// Package relay publishes received serial chunks to a Redis channel so that
// other processes can follow a device without opening the port.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luhtfiimanal/go-serial-session/internal/logging"
	"github.com/luhtfiimanal/go-serial-session/session"
	backend "github.com/redis/go-redis/v9"
)

// Message is the JSON payload published for every chunk.
type Message struct {
	Port string    `json:"port"`
	Seq  uint64    `json:"seq"`
	Text string    `json:"text"`
	Raw  []byte    `json:"raw"`
	At   time.Time `json:"at"`
}

// Relay publishes chunks to one Redis channel. Handle only enqueues; a
// background goroutine publishes, so an unreachable server never stalls the
// read loop. Chunks arriving while the queue is full are dropped.
type Relay struct {
	client    *backend.Client
	channel   string
	timeout   time.Duration
	queueSize int
	log       *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan Message
	dropped atomic.Uint64
	wg      sync.WaitGroup
	base    context.Context
	abort   context.CancelFunc
}

type Option func(*Relay)

// WithTimeout bounds each publish. Defaults to one second.
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) {
		r.timeout = d
	}
}

// WithQueueSize sets how many chunks may wait for publishing. Defaults to 256.
func WithQueueSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithLogger sets the logger used for publish failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a Relay on an existing client.
func New(client *backend.Client, channel string, opts ...Option) *Relay {
	r := &Relay{
		client:    client,
		channel:   channel,
		timeout:   time.Second,
		queueSize: 256,
		log:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.queue = make(chan Message, r.queueSize)
	r.base, r.abort = context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.run()
	return r
}

// Dial creates a Relay with its own client.
func Dial(address, password string, db int, channel string, opts ...Option) *Relay {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return New(rdb, channel, opts...)
}

// Channel returns the channel chunks are published to.
func (r *Relay) Channel() string {
	return r.channel
}

// Handle queues c for publishing. It never blocks.
func (r *Relay) Handle(c session.Chunk) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- Message{Port: c.Port, Seq: c.Seq, Text: c.Text, Raw: c.Raw, At: c.At}:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.log.Warn("relay queue full, dropping chunks", "channel", r.channel, "dropped", n)
		}
	}
}

// Dropped returns the number of chunks discarded because the queue was full.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Relay) run() {
	defer r.wg.Done()
	for m := range r.queue {
		if r.base.Err() != nil {
			r.dropped.Add(1)
			continue
		}
		r.publish(m)
	}
}

func (r *Relay) publish(m Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		r.log.Error("relay encode failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.Warn("relay publish failed", "channel", r.channel, "error", err)
	}
}

// Close publishes what is still queued, giving up after one publish timeout,
// then closes the Redis client. Handle calls after Close are ignored.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(r.timeout):
		r.abort()
		<-drained
	}
	r.abort()
	return r.client.Close()
}
