package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/luhtfiimanal/go-serial-session/internal/config"
	"github.com/luhtfiimanal/go-serial-session/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "serialmon",
	Short: "serialmon talks to a serial device through a managed session",
	Long: `serialmon opens one serial connection at a time, prints what the device
sends and writes what you type. It can also expose the session over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	f := rootCmd.PersistentFlags()
	f.StringP("config", "c", "", "YAML profile")
	f.StringP("port", "p", "", "Serial device, e.g. /dev/ttyUSB0 (default: auto-detect)")
	f.IntP("baud", "b", 0, "Baud rate")
	f.String("parity", "", "Parity: none, odd, even, mark or space")
	f.String("flow", "", "Flow control: none or hardware")
	f.Duration("read-timeout", 0, "Read timeout (0 waits forever)")
	f.String("transport", "", "Transport: termios or bugst")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	f.String("log-format", "", "Log format: text or json")
	f.String("redis", "", "Redis address to publish received chunks to")
}

// loadProfile reads the profile named by --config and applies the flags
// that were set explicitly.
func loadProfile(cmd *cobra.Command) (config.Profile, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	p, err := config.Load(path)
	if err != nil {
		return p, err
	}

	if flags.Changed("port") {
		p.Port, _ = flags.GetString("port")
	}
	if flags.Changed("baud") {
		p.BaudRate, _ = flags.GetInt("baud")
	}
	if flags.Changed("parity") {
		p.Parity, _ = flags.GetString("parity")
	}
	if flags.Changed("flow") {
		p.FlowControl, _ = flags.GetString("flow")
	}
	if flags.Changed("read-timeout") {
		p.ReadTimeout, _ = flags.GetDuration("read-timeout")
	}
	if flags.Changed("transport") {
		p.Transport, _ = flags.GetString("transport")
	}
	if flags.Changed("log-level") {
		p.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		p.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("redis") {
		p.Redis.Addr, _ = flags.GetString("redis")
	}
	return p, p.Validate()
}

func newLogger(p config.Profile) (*slog.Logger, error) {
	level, err := logging.ParseLevel(p.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level, p.Log.Format), nil
}
