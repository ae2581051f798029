// Package httpapi exposes the block host over HTTP so that a remote
// front end can drive the serial session.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/luhtfiimanal/go-serial-session/host"
	"github.com/luhtfiimanal/go-serial-session/internal/logging"
	"github.com/luhtfiimanal/go-serial-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extension is the block host driven by the API.
type Extension interface {
	Run(ctx context.Context, opcode string, args map[string]any) error
	Blocks() []host.Block
	Status() host.Status
}

type server struct {
	ext Extension
	log *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// NewHandler routes:
//
//	GET  /blocks           list of opcodes
//	POST /blocks/{opcode}  run an opcode with a JSON object of arguments
//	GET  /state            session state
//	GET  /metrics          Prometheus metrics from gatherer, if not nil
func NewHandler(ext Extension, gatherer prometheus.Gatherer, log *slog.Logger) http.Handler {
	if log == nil {
		log = logging.NewNop()
	}
	s := &server{ext: ext, log: log}

	r := chi.NewRouter()
	r.Get("/blocks", s.listBlocks)
	r.Post("/blocks/{opcode}", s.runBlock)
	r.Get("/state", s.state)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *server) listBlocks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ext.Blocks())
}

func (s *server) state(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ext.Status())
}

func (s *server) runBlock(w http.ResponseWriter, r *http.Request) {
	opcode := chi.URLParam(r, "opcode")

	var args map[string]any
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		s.log.Warn("block request rejected", "opcode", opcode, "error", err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.ext.Run(r.Context(), opcode, args); err != nil {
		status := statusFor(err)
		s.log.Warn("block failed", "opcode", opcode, "status", status, "error", err)
		resp := errorResponse{Error: err.Error()}
		if k := session.KindOf(err); k != session.Unknown {
			resp.Kind = string(k)
		}
		s.writeJSON(w, status, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, s.ext.Status())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, host.ErrUnknownOpcode):
		return http.StatusNotFound
	case errors.Is(err, host.ErrInvalidArgs):
		return http.StatusBadRequest
	}
	switch session.KindOf(err) {
	case session.Busy, session.NotOpen, session.Canceled:
		return http.StatusConflict
	case session.DeviceSelectionFailed:
		return http.StatusNotFound
	case session.OpenFailed:
		return http.StatusBadGateway
	case session.ReadFailed, session.WriteFailed, session.CloseFailed:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encode failed", "error", err)
	}
}
