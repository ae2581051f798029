package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luhtfiimanal/go-serial-session/host"
	"github.com/luhtfiimanal/go-serial-session/internal/httpapi"
	"github.com/luhtfiimanal/go-serial-session/internal/metrics"
	"github.com/luhtfiimanal/go-serial-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the serial session over HTTP",
	Long: `Starts an HTTP server that runs the connectSerial, disconnectSerial and
writeSerial blocks on POST /blocks/{opcode} and serves Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			p.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		newline, _ := cmd.Flags().GetString("newline")
		log, err := newLogger(p)
		if err != nil {
			return err
		}
		cfg, err := p.Serial()
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		opts := []session.Option{
			session.WithLogger(log),
			session.WithObserver(metrics.New(reg)),
		}
		if r := newRelay(p, log); r != nil {
			defer r.Close()
			opts = append(opts, session.WithHandler(r.Handle))
		}
		s := session.New(newPicker(p), newOpener(p), opts...)
		ext := host.New(s, host.Settings{Line: cfg, Newline: newline}, log)

		srv := &http.Server{
			Addr:              p.HTTP.Addr,
			Handler:           httpapi.NewHandler(ext, reg, log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			log.Info("starting http server", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case sig := <-shutdown:
			log.Info("shutting down", "signal", sig.String())
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("graceful shutdown did not complete", "error", err)
			srv.Close()
		}
		if err := s.Disconnect(ctx); err != nil {
			log.Warn("serial disconnect did not complete", "error", err)
		}
		log.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from profile, :8080)")
	serveCmd.Flags().String("newline", "", "Appended to every writeSerial payload")
}
