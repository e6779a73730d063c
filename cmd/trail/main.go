package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidahmann/trail/core/config"
	coreerrors "github.com/davidahmann/trail/core/errors"
)

var version = "0.0.0-dev"

const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 2
	exitIOFailure    = 3
	exitInterrupted  = 130

	logLevelEnv     = "TRAIL_LOG_LEVEL"
	defaultLogLevel = "warn"
)

type environment struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	now       func() time.Time
}

func osEnvironment() environment {
	return environment{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
		now:       time.Now,
	}
}

// cli carries the state shared by every subcommand once the persistent flags
// are parsed.
type cli struct {
	env      environment
	rootFlag string
	logLevel string
	root     string
	logger   *slog.Logger
}

func main() {
	os.Exit(run(os.Args[1:], osEnvironment()))
}

func run(arguments []string, env environment) int {
	if env.lookupEnv == nil {
		env.lookupEnv = func(string) (string, bool) { return "", false }
	}
	if env.now == nil {
		env.now = time.Now
	}
	app := &cli{env: env, logger: slog.New(slog.DiscardHandler)}
	command := newRootCommand(app)
	command.SetArgs(arguments)
	command.SetIn(env.stdin)
	command.SetOut(env.stdout)
	command.SetErr(env.stderr)
	if err := command.ExecuteContext(context.Background()); err != nil {
		exitCode := exitCodeForError(err, exitInvalidInput)
		writeError(env.stderr, err, exitCode)
		return exitCode
	}
	return exitOK
}

func newRootCommand(app *cli) *cobra.Command {
	command := &cobra.Command{
		Use:           "trail",
		Short:         "Record tutorial step events and summarize the latest session",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup()
		},
	}
	command.PersistentFlags().StringVar(&app.rootFlag, "root", "", "project root (default $"+config.RootEnv+" or the working directory)")
	command.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "diagnostic log level: debug|info|warn|error (default $"+logLevelEnv+" or "+defaultLogLevel+")")

	command.AddCommand(
		newRecordCommand(app),
		newStatsCommand(app),
		newVersionCommand(app),
		newConfigCommand(app),
		newDoctorCommand(app),
	)
	return command
}

func (app *cli) setup() error {
	level := strings.TrimSpace(app.logLevel)
	if level == "" {
		if value, ok := app.env.lookupEnv(logLevelEnv); ok {
			level = strings.TrimSpace(value)
		}
	}
	if level == "" {
		level = defaultLogLevel
	}
	logger, err := newLogger(app.env.stderr, level)
	if err != nil {
		return err
	}
	app.logger = logger

	root, err := config.ResolveRoot(app.rootFlag, app.env.lookupEnv)
	if err != nil {
		return coreerrors.IOError("resolve project root", err)
	}
	app.root = root
	return nil
}

func (app *cli) paths() config.Paths {
	return config.PathsFor(app.root)
}

func newLogger(output io.Writer, level string) (*slog.Logger, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return nil, coreerrors.Wrap(
			fmt.Errorf("parse log level %q: %w", level, err),
			coreerrors.CategoryInvalidInput,
			"log_level_invalid",
			"expected one of debug|info|warn|error",
			false,
		)
	}
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: parsed})), nil
}
