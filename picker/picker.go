// Package picker provides device pickers for session.Session: a fixed
// device name, USB identity matching through the OS enumerator, and
// device-node globbing.
package picker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luhtfiimanal/go-serial-session/session"
	"go.bug.st/serial/enumerator"
)

// ErrNoDevice is returned when no device matches.
var ErrNoDevice = errors.New("no serial device found")

// allow tests to override external dependencies
var (
	listPorts = enumerator.GetDetailedPortsList
	globPaths = filepath.Glob
	statPath  = os.Stat
)

// Fixed always picks the named device.
type Fixed string

// Pick implements session.Picker.
func (f Fixed) Pick(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f == "" {
		return "", ErrNoDevice
	}
	return string(f), nil
}

// Enumerator picks the first port reported by the OS whose details match
// every non-empty field. VID and PID are compared as case-insensitive hex,
// Product as a case-insensitive substring.
type Enumerator struct {
	VID          string
	PID          string
	SerialNumber string
	Product      string
	USBOnly      bool
}

// Pick implements session.Picker.
func (e Enumerator) Pick(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("enumerate ports: %w", err)
	}
	for _, p := range ports {
		if e.matches(p) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w matching %s", ErrNoDevice, e)
}

func (e Enumerator) matches(p *enumerator.PortDetails) bool {
	if p == nil || p.Name == "" {
		return false
	}
	if (e.USBOnly || e.VID != "" || e.PID != "" || e.SerialNumber != "") && !p.IsUSB {
		return false
	}
	if e.VID != "" && !strings.EqualFold(e.VID, p.VID) {
		return false
	}
	if e.PID != "" && !strings.EqualFold(e.PID, p.PID) {
		return false
	}
	if e.SerialNumber != "" && e.SerialNumber != p.SerialNumber {
		return false
	}
	if e.Product != "" && !strings.Contains(strings.ToLower(p.Product), strings.ToLower(e.Product)) {
		return false
	}
	return true
}

func (e Enumerator) String() string {
	var parts []string
	if e.VID != "" || e.PID != "" {
		parts = append(parts, fmt.Sprintf("usb=%s:%s", e.VID, e.PID))
	}
	if e.SerialNumber != "" {
		parts = append(parts, "serial="+e.SerialNumber)
	}
	if e.Product != "" {
		parts = append(parts, fmt.Sprintf("product=%q", e.Product))
	}
	if len(parts) == 0 {
		if e.USBOnly {
			return "any usb port"
		}
		return "any port"
	}
	return strings.Join(parts, " ")
}

// DefaultPatterns are the Linux device nodes that usually belong to serial ports.
var DefaultPatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyXRUSB*",
	"/dev/ttyAMA*",
	"/dev/ttyS*",
	"/dev/rfcomm*",
	"/dev/ttyAP*",
}

// Glob picks the first device node matching Patterns, in pattern order.
// Unless SkipSysfsCheck is set, only nodes with a /sys/class/tty/<name>/device
// entry count, which filters out the unused legacy ttyS ports.
type Glob struct {
	Patterns       []string
	SkipSysfsCheck bool
}

// Pick implements session.Picker.
func (g Glob) Pick(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	patterns := g.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, pattern := range patterns {
		matches, err := globPaths(pattern)
		if err != nil {
			return "", fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, device := range matches {
			if g.SkipSysfsCheck {
				return device, nil
			}
			sysPath := filepath.Join("/sys/class/tty", filepath.Base(device), "device")
			if _, err := statPath(sysPath); err == nil {
				return device, nil
			}
		}
	}
	return "", ErrNoDevice
}

// Chain tries each picker in order and returns the first device picked.
type Chain []session.Picker

// Pick implements session.Picker.
func (c Chain) Pick(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c {
		name, err := p.Pick(ctx)
		if err == nil && name != "" {
			return name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return "", ErrNoDevice
	}
	return "", errors.Join(errs...)
}
