package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/gatehouse/config"
	"github.com/jmcleod/gatehouse/internal/logging"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gatehouse server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}

		logger := logging.Setup("gatehouse", Version, cfg.LogFormat, cfg.Level(), nil)
		slog.SetDefault(logger)

		users, closeUsers, err := openUsers(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeUsers()

		handler, err := buildHandler(cfg, users, logger)
		if err != nil {
			return err
		}

		var tlsConfig *tls.Config
		if cfg.TLSCertFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			TLSConfig:         tlsConfig,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if tlsConfig != nil {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(cmd.OutOrStdout())
		logger.Info("server started",
			slog.String("addr", cfg.Addr),
			slog.String("store", cfg.Store),
			slog.String("hasher", cfg.Hasher),
			slog.Bool("tls", tlsConfig != nil),
		)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("shutting down", slog.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	f := serverCmd.Flags()
	f.String("addr", ":3000", "Address to listen on")
	f.String("store", config.StoreMemory, "User store: memory, bbolt or postgres")
	f.String("data-dir", "data", "Directory for the bbolt database")
	f.String("database-dsn", "", "Postgres connection string")
	f.String("hasher", "bcrypt", "Password hasher: bcrypt or argon2id")
	f.Int("bcrypt-cost", 10, "bcrypt work factor")
	f.String("public-dir", "", "Serve pages from this directory instead of the embedded ones")
	f.String("log-format", "json", "Log format: json or text")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("tls-cert-file", "", "Path to TLS certificate file")
	f.String("tls-key-file", "", "Path to TLS key file")
}
