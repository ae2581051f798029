package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luhtfiimanal/go-serial-session/host"
	"github.com/luhtfiimanal/go-serial-session/internal/metrics"
	"github.com/luhtfiimanal/go-serial-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtension struct {
	opcode string
	args   map[string]any
	err    error
}

func (f *fakeExtension) Run(_ context.Context, opcode string, args map[string]any) error {
	f.opcode, f.args = opcode, args
	return f.err
}

func (f *fakeExtension) Blocks() []host.Block {
	return []host.Block{{Opcode: host.OpWrite, Args: []string{"TEXT"}}}
}

func (f *fakeExtension) Status() host.Status {
	return host.Status{State: "open", Port: "/dev/ttyUSB0"}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunBlock(t *testing.T) {
	ext := &fakeExtension{}
	h := NewHandler(ext, nil, nil)

	rec := do(t, h, http.MethodPost, "/blocks/writeSerial", `{"TEXT":"Hello, World!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, host.OpWrite, ext.opcode)
	assert.Equal(t, "Hello, World!", ext.args["TEXT"])

	var st host.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "open", st.State)
}

func TestRunBlock_EmptyBody(t *testing.T) {
	ext := &fakeExtension{}
	h := NewHandler(ext, nil, nil)

	rec := do(t, h, http.MethodPost, "/blocks/disconnectSerial", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, ext.args)
}

func TestRunBlock_BadBody(t *testing.T) {
	h := NewHandler(&fakeExtension{}, nil, nil)
	rec := do(t, h, http.MethodPost, "/blocks/writeSerial", `{"TEXT":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunBlock_ErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{fmt.Errorf("%w %q", host.ErrUnknownOpcode, "x"), http.StatusNotFound, ""},
		{fmt.Errorf("%w: bad", host.ErrInvalidArgs), http.StatusBadRequest, ""},
		{&session.Error{Kind: session.NotOpen, Op: "write"}, http.StatusConflict, "port_not_open"},
		{&session.Error{Kind: session.Busy, Op: "connect"}, http.StatusConflict, "busy"},
		{&session.Error{Kind: session.DeviceSelectionFailed, Op: "connect"}, http.StatusNotFound, "device_selection_failed"},
		{&session.Error{Kind: session.OpenFailed, Op: "connect"}, http.StatusBadGateway, "open_failed"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, ""},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			h := NewHandler(&fakeExtension{err: tc.err}, nil, nil)
			rec := do(t, h, http.MethodPost, "/blocks/connectSerial", `{}`)
			require.Equal(t, tc.code, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestBlocksAndState(t *testing.T) {
	h := NewHandler(&fakeExtension{}, nil, nil)

	rec := do(t, h, http.MethodGet, "/blocks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), host.OpWrite)

	rec = do(t, h, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"open","port":"/dev/ttyUSB0"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)
	c.BytesWritten(13)

	h := NewHandler(&fakeExtension{}, reg, nil)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "serial_bytes_written_total 13")

	rec = do(t, NewHandler(&fakeExtension{}, nil, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
