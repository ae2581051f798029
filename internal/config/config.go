// Package config loads serialmon profiles from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	serial "github.com/luhtfiimanal/go-serial-session"
	"gopkg.in/yaml.v3"
)

// Profile is the on-disk configuration of the serialmon command.
type Profile struct {
	Port        string        `yaml:"port"`
	USB         USBMatch      `yaml:"usb"`
	BaudRate    int           `yaml:"baud_rate"`
	DataBits    int           `yaml:"data_bits"`
	StopBits    int           `yaml:"stop_bits"`
	Parity      string        `yaml:"parity"`
	FlowControl string        `yaml:"flow_control"`
	BufferSize  int           `yaml:"buffer_size"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	Transport   string        `yaml:"transport"` // "termios" or "bugst"
	LineMode    bool          `yaml:"line_mode"`
	Delimiter   string        `yaml:"delimiter"`

	Log   Log   `yaml:"log"`
	Redis Redis `yaml:"redis"`
	HTTP  HTTP  `yaml:"http"`
}

// USBMatch selects a device by USB identity when Port is empty.
type USBMatch struct {
	VID          string `yaml:"vid"`
	PID          string `yaml:"pid"`
	SerialNumber string `yaml:"serial_number"`
	Product      string `yaml:"product"`
}

// Empty reports whether no USB field is set.
func (u USBMatch) Empty() bool {
	return u == USBMatch{}
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Redis configures the chunk relay. An empty Addr disables it.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the profile used when no file is given.
func Default() Profile {
	d := serial.DefaultConfig()
	return Profile{
		BaudRate:    d.BaudRate,
		DataBits:    d.DataBits,
		StopBits:    d.StopBits,
		Parity:      d.Parity.String(),
		FlowControl: d.FlowControl.String(),
		BufferSize:  d.BufferSize,
		Transport:   "termios",
		Delimiter:   "\r\n",
		Log:         Log{Level: "info", Format: "text"},
		Redis:       Redis{Channel: "serial:rx"},
		HTTP:        HTTP{Addr: ":8080"},
	}
}

// Load reads a YAML profile on top of Default. An empty path returns Default.
func Load(path string) (Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the fields that are not covered by serial.Config.Validate.
func (p Profile) Validate() error {
	switch p.Transport {
	case "", "termios", "bugst":
	default:
		return fmt.Errorf("unknown transport %q", p.Transport)
	}
	if p.LineMode && p.Delimiter == "" {
		return errors.New("line_mode requires a delimiter")
	}
	_, err := p.Serial()
	return err
}

// Serial converts the line settings to a serial.Config. Device is left
// empty; the session picker decides it.
func (p Profile) Serial() (serial.Config, error) {
	parity, err := serial.ParseParity(p.Parity)
	if err != nil {
		return serial.Config{}, err
	}
	flow, err := serial.ParseFlowControl(p.FlowControl)
	if err != nil {
		return serial.Config{}, err
	}
	cfg := serial.Config{
		BaudRate:    p.BaudRate,
		DataBits:    p.DataBits,
		StopBits:    p.StopBits,
		Parity:      parity,
		FlowControl: flow,
		BufferSize:  p.BufferSize,
		ReadTimeout: p.ReadTimeout,
	}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return serial.Config{}, err
	}
	return cfg, nil
}
