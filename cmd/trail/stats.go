package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	coreerrors "github.com/davidahmann/trail/core/errors"
	"github.com/davidahmann/trail/core/event"
	"github.com/davidahmann/trail/core/eventlog"
	"github.com/davidahmann/trail/core/session"
	"github.com/davidahmann/trail/core/summary"
)

func newStatsCommand(app *cli) *cobra.Command {
	var jsonOutput bool
	var skipMalformed bool
	var resetOn []string
	command := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the latest session in the event log",
		Long: "Summarize the latest session. The run is itself recorded as the reserved \"stats\" step,\n" +
			"which the summary leaves out.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			options := []eventlog.LoadOption{}
			if cmd.Flags().Changed("reset-on") {
				categories, err := parseCategories(resetOn)
				if err != nil {
					return err
				}
				options = append(options, eventlog.ResetOn(categories...))
			}
			if skipMalformed {
				options = append(options, eventlog.SkipMalformed(app.logger))
			}

			// keep stdout pure JSON
			console := app.env.stdout
			if jsonOutput {
				console = app.env.stderr
			}
			ctx := cmd.Context()
			logger := app.newSession(console)
			if err := logger.Init(ctx); err != nil {
				return err
			}
			defer closeSession(ctx, logger, &err)

			if _, err := logger.Record(event.CategoryScriptBegin, summary.StatsStep); err != nil {
				return err
			}
			if err := app.writeStats(ctx, cmd.OutOrStdout(), logger, options, jsonOutput); err != nil {
				if _, recordErr := logger.Error(summary.StatsStep, err.Error()); recordErr != nil {
					app.logger.Warn("record stats error failed", "error", recordErr)
				}
				return err
			}
			_, err = logger.EndScript(summary.StatsStep)
			return err
		},
	}
	command.Flags().BoolVar(&jsonOutput, "json", false, "emit the summary as JSON")
	command.Flags().BoolVar(&skipMalformed, "skip-malformed", false, "warn about malformed log lines instead of failing")
	command.Flags().StringSliceVar(&resetOn, "reset-on", []string{event.CategorySetupBegin.Name()}, "categories that start a new session")
	return command
}

func (app *cli) writeStats(ctx context.Context, output io.Writer, logger *session.Logger, options []eventlog.LoadOption, jsonOutput bool) error {
	result, err := logger.Summary(ctx, options...)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(output, result.Report(app.env.now(), version))
	}
	if _, err := fmt.Fprint(output, result.Text()); err != nil {
		return coreerrors.IOError("write summary", err)
	}
	return nil
}

func parseCategories(values []string) ([]event.Category, error) {
	categories := make([]event.Category, 0, len(values))
	for _, value := range values {
		category, err := event.Parse(value)
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "category_invalid", "", false)
		}
		categories = append(categories, category)
	}
	return categories, nil
}
