package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"supplyguard/internal/bootstrap"
	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
	"supplyguard/internal/infrastructure/intake"
	"supplyguard/internal/usecase/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Route classified events to playbooks and issues",
}

type processOutput struct {
	Outcomes []pipeline.Outcome `json:"outcomes"`
	Failures []processFailure   `json:"failures,omitempty"`
	Actions  []string           `json:"actions"`
}

type processFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

var pipelineProcessCmd = &cobra.Command{
	Use:   "process FILE...",
	Short: "Process classified event JSON files",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		ctx := cmd.Context()

		out := processOutput{Outcomes: []pipeline.Outcome{}, Actions: []string{}}
		for _, path := range args {
			source := filepath.Base(path)
			raw, err := os.ReadFile(path)
			if err != nil {
				out.Failures = append(out.Failures, processFailure{Source: source, Error: err.Error()})
				continue
			}
			event, err := intake.DecodeEvent(raw, source)
			if err != nil {
				out.Failures = append(out.Failures, processFailure{Source: source, Error: err.Error()})
				continue
			}

			outcome, err := app.Pipeline.Process(ctx, event)
			if err != nil {
				logging.Warn(ctx, "event failed", slog.String("source", source), slog.Any("err", errs.Loggable(err)))
				out.Failures = append(out.Failures, processFailure{Source: source, Error: err.Error()})
				continue
			}
			out.Outcomes = append(out.Outcomes, outcome)
		}

		for _, entry := range app.Pipeline.ActionLog().Entries() {
			out.Actions = append(out.Actions, entry.Text())
		}
		if err := printJSON(cmd, out); err != nil {
			return err
		}
		if len(out.Failures) > 0 {
			return fmt.Errorf("%d of %d events failed", len(out.Failures), len(args))
		}
		return nil
	}),
}

type envelopeSource interface {
	Run(ctx context.Context, out chan<- pipeline.Envelope) error
}

var pipelineListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Watch a drop directory and/or a NATS subject and process events until interrupted",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx := cmd.Context()

		dir, _ := cmd.Flags().GetString("dir")
		natsURL, _ := cmd.Flags().GetString("nats")
		workers, _ := cmd.Flags().GetInt("workers")
		if dir == "" {
			dir = app.Config.Intake.WatchDir
		}
		if natsURL == "" {
			natsURL = app.Config.Intake.NATSURL
		}
		if workers <= 0 {
			workers = app.Config.Pipeline.Workers
		}

		var sources []envelopeSource
		if strings.TrimSpace(dir) != "" {
			sources = append(sources, intake.NewDirSource(dir))
		}
		if strings.TrimSpace(natsURL) != "" {
			sources = append(sources, intake.NewNATSSource(natsURL, app.Config.Intake.NATSSubject, app.Config.Intake.NATSQueue))
		}
		if len(sources) == 0 {
			return errors.New("no intake configured: set --dir or --nats")
		}

		stats, err := runListen(ctx, app.Pipeline, sources, workers)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "processed %d events, %d failed\n", stats.Processed, stats.Failed)
		return errs.Wrap(err, "write listen output")
	}),
}

// runListen feeds every source into one worker pool. A failing source stops the others.
func runListen(ctx context.Context, p *pipeline.Pipeline, sources []envelopeSource, workers int) (pipeline.RunStats, error) {
	envelopes := make(chan pipeline.Envelope, workers*2)

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		g.Go(func() error {
			return source.Run(gctx, envelopes)
		})
	}

	runnerDone := make(chan struct{})
	var (
		stats     pipeline.RunStats
		runnerErr error
	)
	go func() {
		defer close(runnerDone)
		// The runner drains until the channel closes so in-flight events finish.
		stats, runnerErr = pipeline.NewRunner(p, workers).Run(context.WithoutCancel(ctx), envelopes)
	}()

	sourceErr := g.Wait()
	close(envelopes)
	<-runnerDone

	// Cancellation is shutdown, not a source failure.
	if sourceErr != nil && !errors.Is(sourceErr, context.Canceled) {
		return stats, errs.Wrap(sourceErr, "intake source")
	}
	return stats, runnerErr
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineProcessCmd, pipelineListenCmd)

	pipelineListenCmd.Flags().String("dir", "", "Drop directory of event JSON files (default intake.watch_dir)")
	pipelineListenCmd.Flags().String("nats", "", "NATS server URL (default intake.nats_url)")
	pipelineListenCmd.Flags().Int("workers", 0, "Worker count (default pipeline.workers)")
}
