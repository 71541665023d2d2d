package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tropicaldog17/replyqueue/internal/config"
	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/scheduler"
	"github.com/tropicaldog17/replyqueue/migrations"
)

const shutdownTimeout = 15 * time.Second

var (
	verbose    bool
	configPath string

	log *zap.Logger
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "replyqueue",
	Short: "Comment auto-replies with a human approval checkpoint",
	Long: `replyqueue scans recent page posts, proposes replies from a curated answer bank,
batches them for one human approve/reject decision and drips approved replies out slowly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		log, err = logger.New(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg, err = config.Load(configPath)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP server with the scan and outbox schedules",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), "scan", cfg.Schedule.ScanTimeout, (*app).scanJob)
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one outbox dispatcher tick now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), "outbox-tick", cfg.Schedule.TickTimeout, (*app).tickJob)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (or set REPLYQUEUE_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(tickCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return migrations.Run(cmd.Context(), database, log)
}

func runOnce(ctx context.Context, name string, timeout time.Duration, job func(*app, context.Context) error) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.New(cfg.Schedule.Timezone, log)
	if err != nil {
		return err
	}
	return sched.RunNow(ctx, name, timeout, func(ctx context.Context) error {
		return job(a, ctx)
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := migrations.Run(ctx, a.database, log); err != nil {
		return err
	}

	sched, err := scheduler.New(cfg.Schedule.Timezone, log)
	if err != nil {
		return err
	}
	for i, spec := range cfg.Schedule.ScanSchedules {
		if err := sched.AddJob(fmt.Sprintf("scan-%d", i+1), spec, cfg.Schedule.ScanTimeout, a.scanJob); err != nil {
			return err
		}
	}
	if err := sched.AddJob("outbox-tick", cfg.Schedule.OutboxTick, cfg.Schedule.TickTimeout, a.tickJob); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
