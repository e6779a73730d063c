package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	coreerrors "github.com/davidahmann/trail/core/errors"
	"github.com/davidahmann/trail/core/event"
	"github.com/davidahmann/trail/core/prompt"
	"github.com/davidahmann/trail/core/session"
	"github.com/davidahmann/trail/core/summary"
)

const closeTimeout = 10 * time.Second

type interruptRecorder interface {
	RecordInterrupt(step string, signal os.Signal) (event.Event, error)
}

func newRecordCommand(app *cli) *cobra.Command {
	var wait bool
	command := &cobra.Command{
		Use:   "record <category> [message...]",
		Short: "Record one event in the project's event log",
		Long: "Record one event. The category is a name such as scriptBegin or a short form such as SB.\n" +
			"The first message word is the step the event belongs to; the rest is only shown on the console.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := event.Parse(args[0])
			if err != nil {
				return coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "category_invalid", "use a category name such as scriptBegin or a short form such as SB", false)
			}
			return app.record(cmd.Context(), category, args[1:], wait)
		},
	}
	command.Flags().BoolVar(&wait, "wait", false, "wait for the return key after recording")
	return command
}

// newSession builds a session logger whose event lines go to console.
func (app *cli) newSession(console io.Writer) *session.Logger {
	return session.New(session.Options{
		Paths:     app.paths(),
		Stdout:    console,
		Stderr:    app.env.stderr,
		Prompter:  prompt.New(app.env.stdin, app.env.stdout),
		LookupEnv: app.env.lookupEnv,
		Now:       app.env.now,
		Logger:    app.logger,
	})
}

func (app *cli) record(ctx context.Context, category event.Category, parts []string, wait bool) (err error) {
	logger := app.newSession(app.env.stdout)
	if err := logger.Init(ctx); err != nil {
		return err
	}
	defer closeSession(ctx, logger, &err)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	return app.runInterruptible(ctx, logger, stepOf(parts), signals, func(ctx context.Context) error {
		if _, err := logger.Record(category, parts...); err != nil {
			return err
		}
		if wait {
			return logger.Wait(ctx)
		}
		return nil
	})
}

// runInterruptible runs action until it returns or a signal arrives. On a
// signal the step gets an error event, action's context is cancelled and the
// result is an interruptedError.
func (app *cli) runInterruptible(ctx context.Context, recorder interruptRecorder, step string, signals <-chan os.Signal, action func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- action(ctx)
	}()

	select {
	case err := <-result:
		return err
	case received := <-signals:
		if _, err := recorder.RecordInterrupt(step, received); err != nil {
			app.logger.Warn("record interrupt failed", "step", step, "error", err)
		}
		cancel()
		<-result
		return interruptedError{signal: session.SignalName(received)}
	}
}

// closeSession drains logger and reports its error unless *err is already set.
func closeSession(ctx context.Context, logger *session.Logger, err *error) {
	closeContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if closeErr := logger.Close(closeContext); *err == nil {
		*err = closeErr
	}
}

func stepOf(parts []string) string {
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return parts[0]
	}
	return summary.SetupStep
}
