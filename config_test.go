package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 9600, cfg.BaudRate)
	assert.Equal(t, 8, cfg.DataBits)
	assert.Equal(t, 1, cfg.StopBits)
	assert.Equal(t, ParityNone, cfg.Parity)
	assert.Equal(t, FlowControlHardware, cfg.FlowControl)
	assert.Equal(t, 255, cfg.BufferSize)
	assert.NoError(t, cfg.Validate())
}

func TestParseParity(t *testing.T) {
	for in, want := range map[string]Parity{
		"none": ParityNone, "ODD": ParityOdd, " even ": ParityEven, "Mark": ParityMark, "space": ParitySpace,
	} {
		got, err := ParseParity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want, mustParity(t, got.String()))
	}

	_, err := ParseParity("sometimes")
	assert.Error(t, err)
}

func mustParity(t *testing.T, s string) Parity {
	t.Helper()
	p, err := ParseParity(s)
	require.NoError(t, err)
	return p
}

func TestParseFlowControl(t *testing.T) {
	f, err := ParseFlowControl("hardware")
	require.NoError(t, err)
	assert.Equal(t, FlowControlHardware, f)

	f, err = ParseFlowControl("RTSCTS")
	require.NoError(t, err)
	assert.Equal(t, FlowControlHardware, f)

	f, err = ParseFlowControl("")
	require.NoError(t, err)
	assert.Equal(t, FlowControlNone, f)

	_, err = ParseFlowControl("xonxoff")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"baud", func(c *Config) { c.BaudRate = -1 }, "baud rate"},
		{"data bits", func(c *Config) { c.DataBits = 4 }, "data bits"},
		{"stop bits", func(c *Config) { c.StopBits = 3 }, "stop bits"},
		{"parity", func(c *Config) { c.Parity = Parity(42) }, "parity"},
		{"flow", func(c *Config) { c.FlowControl = FlowControl(7) }, "flow control"},
		{"buffer", func(c *Config) { c.BufferSize = -5 }, "buffer size"},
		{"timeout", func(c *Config) { c.ReadTimeout = -time.Second }, "read timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfig_WithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{BaudRate: 115200, Parity: ParityOdd}.WithDefaults()
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, 8, cfg.DataBits)
	assert.Equal(t, 1, cfg.StopBits)
	assert.Equal(t, ParityOdd, cfg.Parity)
	assert.Equal(t, FlowControlNone, cfg.FlowControl)
	assert.Equal(t, 255, cfg.BufferSize)
}

func TestConfig_String(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "/dev/ttyUSB0"
	cfg.BaudRate = 115200
	assert.Equal(t, "/dev/ttyUSB0 115200 8N1 hardware", cfg.String())
}
