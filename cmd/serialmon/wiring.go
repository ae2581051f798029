package main

import (
	"log/slog"

	"github.com/luhtfiimanal/go-serial-session/internal/config"
	"github.com/luhtfiimanal/go-serial-session/internal/relay"
	"github.com/luhtfiimanal/go-serial-session/picker"
	"github.com/luhtfiimanal/go-serial-session/session"
	"github.com/luhtfiimanal/go-serial-session/transport/bugst"
)

// newPicker prefers an explicit port, then a USB match, then the first
// USB serial device, then the first device node that exists.
func newPicker(p config.Profile) session.Picker {
	if p.Port != "" {
		return picker.Fixed(p.Port)
	}
	if !p.USB.Empty() {
		return picker.Enumerator{
			VID:          p.USB.VID,
			PID:          p.USB.PID,
			SerialNumber: p.USB.SerialNumber,
			Product:      p.USB.Product,
			USBOnly:      true,
		}
	}
	return picker.Chain{
		picker.Enumerator{USBOnly: true},
		picker.Glob{Patterns: picker.DefaultPatterns},
	}
}

func newOpener(p config.Profile) session.Opener {
	if p.Transport == "bugst" {
		return bugst.Opener()
	}
	return session.TermiosOpener()
}

// newRelay returns nil when no Redis address is configured.
func newRelay(p config.Profile, log *slog.Logger) *relay.Relay {
	if p.Redis.Addr == "" {
		return nil
	}
	return relay.Dial(p.Redis.Addr, p.Redis.Password, p.Redis.DB, p.Redis.Channel, relay.WithLogger(log))
}
