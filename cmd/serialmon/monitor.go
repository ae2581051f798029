package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	serial "github.com/luhtfiimanal/go-serial-session"
	"github.com/luhtfiimanal/go-serial-session/session"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print what the device sends and write stdin lines to it",
	Long: `Connects to the serial device, prints every received chunk (or every
complete line with --lines) and sends each line read from stdin followed by --newline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(p)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("lines") {
			p.LineMode, _ = cmd.Flags().GetBool("lines")
		}
		newline, _ := cmd.Flags().GetString("newline")
		noColor, _ := cmd.Flags().GetBool("no-color")

		out := newPrinter(os.Stdout, noColor)
		handlers := []session.Handler{out.chunkHandler(p.LineMode, p.Delimiter)}
		if r := newRelay(p, log); r != nil {
			defer r.Close()
			handlers = append(handlers, r.Handle)
			log.Info("relaying chunks", "redis", p.Redis.Addr, "channel", r.Channel())
		}

		s := session.New(newPicker(p), newOpener(p),
			session.WithLogger(log),
			session.WithHandler(session.Tee(handlers...)),
			session.WithReporter(session.ReporterFunc(func(err error) {
				out.failure(err)
				log.Debug("serial session failure", "kind", string(session.KindOf(err)), "error", err)
			})),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := p.Serial()
		if err != nil {
			return err
		}
		if err := s.Connect(ctx, cfg); err != nil {
			return err
		}
		out.status("connected to %s (%s)", s.Port(), cfg.String())

		go forwardInput(os.Stdin, s, newline)

		select {
		case <-ctx.Done():
		case <-s.Done():
		}

		dctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Disconnect(dctx); err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
		out.status("disconnected")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolP("lines", "l", false, "Print complete lines instead of raw chunks")
	monitorCmd.Flags().String("newline", "\r\n", "Appended to every line sent from stdin")
	monitorCmd.Flags().Bool("no-color", false, "Disable coloured status output")
}

// forwardInput writes every stdin line to the session until stdin ends.
// Write failures are already reported by the session.
func forwardInput(r io.Reader, s *session.Session, newline string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if _, err := s.WriteString(sc.Text() + newline); err != nil && session.KindOf(err) == session.NotOpen {
			return
		}
	}
}

type printer struct {
	w       io.Writer
	profile termenv.Profile
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := termenv.ColorProfile()
	if noColor {
		p = termenv.Ascii
	}
	return &printer{w: w, profile: p}
}

func (p *printer) paint(s, color string) string {
	if p.profile == termenv.Ascii {
		return s
	}
	return termenv.String(s).Foreground(p.profile.Color(color)).String()
}

func (p *printer) status(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint("-- "+fmt.Sprintf(format, args...), "#818cf8"))
}

func (p *printer) failure(err error) {
	fmt.Fprintln(p.w, p.paint("!! "+err.Error(), "#fb7185"))
}

// chunkHandler prints chunks as they arrive, or complete lines in line mode.
func (p *printer) chunkHandler(lineMode bool, delimiter string) session.Handler {
	if !lineMode {
		return func(c session.Chunk) { fmt.Fprint(p.w, c.Text) }
	}
	// Lines are joined from raw bytes so that a rune split across reads survives.
	splitter := &serial.LineSplitter{Delimiter: delimiter}
	return func(c session.Chunk) {
		splitter.Feed(c.Raw, func(line string) {
			fmt.Fprintln(p.w, strings.ToValidUTF8(line, "\uFFFD"))
		})
	}
}
