// ABOUTME: serve command: walks the configured snapshot every time SIGUSR1 arrives
// ABOUTME: Optionally exposes Prometheus metrics while waiting for signals

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prateek/heaptrav/internal/controller"
	"github.com/prateek/heaptrav/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve [SNAPSHOT]",
	Short: "Walk a snapshot file on every SIGUSR1",
	Long: `serve waits for SIGUSR1 and walks the snapshot file each time one
arrives, reloading the file first. Each walk's log is written to
<output>/walk-<session>.log. SIGINT or SIGTERM stops the loop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot := cfg.Serve.Snapshot
		if len(args) == 1 {
			snapshot = args[0]
		}
		if snapshot == "" {
			return errors.New("no snapshot given: pass one or set serve.snapshot")
		}
		if err := os.MkdirAll(cfg.Serve.Output, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, &controller.FileWorld{Path: snapshot}, cfg.Serve.Output)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, world controller.World, outDir string) error {
	ctl := controller.New(world, cfg.Walk, dirOutput(outDir),
		controller.WithLogger(logger),
		controller.WithMetrics(metrics.New()),
	)

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return ctl.Run(ctx)
	})
	eg.Go(func() error {
		logger.Info("waiting for SIGUSR1", zap.Int("pid", os.Getpid()))
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-usr1:
				report, err := ctl.Trigger(ctx)
				if errors.Is(err, controller.ErrStopped) || errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					logger.Error("walk failed", zap.Error(err))
					continue
				}
				logReport(report)
			}
		}
	})

	if addr := cfg.Metrics.Addr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		eg.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// dirOutput writes each walk to its own file under dir.
func dirOutput(dir string) controller.OutputFunc {
	return func(session string) (io.WriteCloser, error) {
		return os.Create(filepath.Join(dir, "walk-"+session+".log"))
	}
}
