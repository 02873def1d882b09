// ABOUTME: walk command: loads a heap snapshot and writes one walk log
// ABOUTME: The log goes to a file or, by default, to standard output

package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prateek/heaptrav/heapdump"
	"github.com/prateek/heaptrav/internal/controller"
	"github.com/prateek/heaptrav/internal/metrics"
)

var walkOutput string

var walkCmd = &cobra.Command{
	Use:   "walk SNAPSHOT",
	Short: "Walk a snapshot from its roots and write the visit log",
	Example: `  heaptrav walk heap.json -o walk.log
  heaptrav walk heap.yaml | heaptrav conv - -o doc.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := heapdump.OpenFile(args[0])
		if err != nil {
			return err
		}

		ctl := controller.New(
			controller.NewStaticWorld(snap),
			cfg.Walk,
			fileOutput(walkOutput, cmd.OutOrStdout()),
			controller.WithLogger(logger),
			controller.WithMetrics(metrics.New()),
		)
		report, err := ctl.Walk(cmd.Context())
		if err != nil {
			return err
		}
		logReport(report)
		return nil
	},
}

func init() {
	walkCmd.Flags().StringVarP(&walkOutput, "output", "o", "", "write the walk log to this file instead of stdout")
	rootCmd.AddCommand(walkCmd)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// fileOutput opens path for every walk, or hands out stdout when path is
// empty.
func fileOutput(path string, stdout io.Writer) controller.OutputFunc {
	return func(string) (io.WriteCloser, error) {
		if path == "" {
			return nopCloser{stdout}, nil
		}
		return os.Create(path)
	}
}

func logReport(r *controller.Report) {
	if r.Refused {
		logger.Warn("walk refused",
			zap.String("session", r.Session),
			zap.Int("capabilities", r.Capabilities))
		return
	}
	logger.Info("walk complete",
		zap.String("session", r.Session),
		zap.Int("roots", r.Roots),
		zap.Int("visits", r.Visits),
		zap.Int("accepted", r.Stats.Accepted),
		zap.Int("max_stack", r.Stats.MaxStackSize),
		zap.Duration("duration", r.Duration))
}
