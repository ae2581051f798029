// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"github.com/luhtfiimanal/go-serial-session/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements session.Observer.
type Collector struct {
	bytesRead    prometheus.Counter
	bytesWritten prometheus.Counter
	chunks       prometheus.Counter
	errors       *prometheus.CounterVec
	state        *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
}

var states = []session.State{session.Idle, session.Connecting, session.Open, session.Closing}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "serial_bytes_read_total",
			Help: "Total number of bytes read from the serial port",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "serial_bytes_written_total",
			Help: "Total number of bytes written to the serial port",
		}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "serial_chunks_received_total",
			Help: "Total number of chunks delivered by the read loop",
		}),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serial_errors_total",
				Help: "Session failures by kind",
			},
			[]string{"kind"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "serial_session_state",
				Help: "1 for the current session state, 0 otherwise",
			},
			[]string{"state"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serial_session_transitions_total",
				Help: "Session state transitions by target state",
			},
			[]string{"to"},
		),
	}
	for _, s := range states {
		c.state.WithLabelValues(s.String()).Set(0)
	}
	c.state.WithLabelValues(session.Idle.String()).Set(1)
	reg.MustRegister(c.bytesRead, c.bytesWritten, c.chunks, c.errors, c.state, c.transitions)
	return c
}

func (c *Collector) StateChanged(from, to session.State) {
	c.state.WithLabelValues(from.String()).Set(0)
	c.state.WithLabelValues(to.String()).Set(1)
	c.transitions.WithLabelValues(to.String()).Inc()
}

func (c *Collector) ChunkReceived(n int) {
	c.chunks.Inc()
	c.bytesRead.Add(float64(n))
}

func (c *Collector) BytesWritten(n int) {
	c.bytesWritten.Add(float64(n))
}

func (c *Collector) Failed(kind session.Kind) {
	c.errors.WithLabelValues(string(kind)).Inc()
}
