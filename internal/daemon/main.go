package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/jsherman999/skillswap/internal/api"
	"github.com/jsherman999/skillswap/internal/auth"
	"github.com/jsherman999/skillswap/internal/config"
	"github.com/jsherman999/skillswap/internal/db"
	"github.com/jsherman999/skillswap/internal/exporter"
	"github.com/jsherman999/skillswap/internal/logging"
	"github.com/jsherman999/skillswap/internal/realtime"
	"github.com/jsherman999/skillswap/internal/store"
	"github.com/jsherman999/skillswap/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{Use: "skillswapd", Short: "SkillSwap API server with realtime chat and notifications", SilenceUsage: true}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (yaml)")

	root.AddCommand(migrateCmd(&cfgPath))
	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(exportCmd(&cfgPath))
	return root
}

// setup loads config, builds the logger and opens the database.
func setup(ctx context.Context, cfgPath string) (*config.Config, zerolog.Logger, *db.DB, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := logging.New(cfg.Log, os.Stderr)
	dbConn, err := db.Open(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, dbConn, nil
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			_, log, dbConn, err := setup(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer dbConn.Close()
			return db.ApplyMigrations(ctx, dbConn, log)
		},
	}
}

func exportCmd(cfgPath *string) *cobra.Command {
	var format, outPath, user string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one user's profile, messages and notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("bad --user: %w", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			_, _, dbConn, err := setup(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer dbConn.Close()
			st := store.New(dbConn)

			var b []byte
			switch format {
			case "json":
				b, _, err = exporter.ExportUserJSON(ctx, st, userID, limit, time.Now())
			case "csv":
				b, _, err = exporter.ExportUserCSV(ctx, st, userID, limit)
			default:
				return fmt.Errorf("unknown format %q (use json|csv)", format)
			}
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(outPath, b, 0o600)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id to export")
	cmd.Flags().StringVar(&format, "format", "json", "export format: json|csv")
	cmd.Flags().StringVar(&outPath, "out", "-", "output path (or - for stdout)")
	cmd.Flags().IntVar(&limit, "limit", 10000, "max messages and notifications")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, log, dbConn, err := setup(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer dbConn.Close()
			if err := db.ApplyMigrations(ctx, dbConn, log); err != nil {
				return err
			}

			clock := clockwork.NewRealClock()
			tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clock)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			hub := realtime.New(
				realtime.WithLogger(log.With().Str("component", "realtime").Logger()),
				realtime.WithMetrics(realtime.NewMetrics(reg)),
				realtime.WithClock(clock),
				realtime.WithBuffer(cfg.Realtime.Buffer),
				realtime.WithWriteTimeout(cfg.Realtime.WriteTimeout),
				realtime.WithHeartbeat(cfg.Realtime.Heartbeat),
			)
			st := store.New(dbConn)
			h := api.New(api.Deps{Config: cfg, Log: log, Store: st, Hub: hub, Tokens: tokens, Metrics: reg})

			// Streams watch their request context; cancelling the base context
			// lets Shutdown finish instead of waiting on open streams.
			baseCtx, baseCancel := context.WithCancel(context.Background())
			defer baseCancel()
			srv := &http.Server{
				Addr:              cfg.API.Listen,
				Handler:           h.Router(),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return baseCtx },
			}

			if cfg.Retention.Enabled {
				rw := worker.NewRetentionWorker(st, log.With().Str("component", "retention").Logger(), clock,
					cfg.Retention.Interval, cfg.Retention.ReadNotificationAge)
				go rw.Run(baseCtx)
			}

			errc := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.API.Listen).Msg("skillswapd listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()

			stop := make(chan os.Signal, 2)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-stop:
			case err := <-errc:
				return fmt.Errorf("listen: %w", err)
			}
			log.Info().Msg("shutting down")
			baseCancel()

			shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}
