package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/davidahmann/trail/core/display"
	coreerrors "github.com/davidahmann/trail/core/errors"
	"github.com/davidahmann/trail/core/event"
	"github.com/davidahmann/trail/core/prompt"
)

func (l *Logger) Log(parts ...string) (event.Event, error) {
	return l.Record(event.CategoryLog, parts...)
}

func (l *Logger) Reminder(parts ...string) (event.Event, error) {
	return l.Record(event.CategoryReminder, parts...)
}

func (l *Logger) BeginSetup(parts ...string) (event.Event, error) {
	return l.Record(event.CategorySetupBegin, parts...)
}

func (l *Logger) EndSetup(parts ...string) (event.Event, error) {
	return l.Record(event.CategorySetupEnd, parts...)
}

// BeginScript records a scriptBegin and, unless disabled in config, opens the
// caller's source line in the editor. The editor runs in the background.
func (l *Logger) BeginScript(ctx context.Context, parts ...string) (event.Event, error) {
	recorded, err := l.Record(event.CategoryScriptBegin, parts...)
	if err != nil {
		return recorded, err
	}
	if l.Settings().AutoOpenEnabled {
		if location := callerLocation(1); location != "" {
			l.openInBackground(ctx, location)
		}
	}
	return recorded, nil
}

func (l *Logger) EndScript(parts ...string) (event.Event, error) {
	return l.Record(event.CategoryScriptEnd, parts...)
}

func (l *Logger) Summarize(parts ...string) (event.Event, error) {
	return l.Record(event.CategorySummary, parts...)
}

// Error records and displays an error event. It never fails because of the
// reported problem itself, only because of an earlier disk failure.
func (l *Logger) Error(parts ...string) (event.Event, error) {
	return l.Record(event.CategoryError, parts...)
}

// Section prints a blank line, records a section marker and waits for the
// user to confirm.
func (l *Logger) Section(ctx context.Context, parts ...string) (event.Event, error) {
	return l.section(ctx, true, callerLocation(1), parts...)
}

func (l *Logger) SectionWithoutWait(ctx context.Context, parts ...string) (event.Event, error) {
	return l.section(ctx, false, callerLocation(1), parts...)
}

func (l *Logger) section(ctx context.Context, wait bool, location string, parts ...string) (event.Event, error) {
	category := event.CategorySectionWithoutWait
	if wait {
		category = event.CategorySection
	}
	_, _ = fmt.Fprintln(l.options.Stdout)
	recorded, err := l.Record(category, parts...)
	if err != nil {
		return recorded, err
	}
	if location != "" {
		_, _ = fmt.Fprintln(l.options.Stdout, "↪️", location)
	}
	if wait {
		if err := l.Wait(ctx); err != nil {
			return recorded, err
		}
	}
	return recorded, nil
}

// InfoBox waits for confirmation, then shows a highlighted block.
func (l *Logger) InfoBox(ctx context.Context, title string, lines ...string) (event.Event, error) {
	if err := l.Wait(ctx); err != nil {
		return event.Event{}, err
	}
	return l.Record(event.CategoryInfoBox, append([]string{title}, lines...)...)
}

func (l *Logger) InfoBoxWithoutWait(title string, lines ...string) (event.Event, error) {
	return l.Record(event.CategoryInfoBoxWithoutWait, append([]string{title}, lines...)...)
}

// Wait brackets a confirmation prompt with waitBegin and waitEnd, then erases
// the prompt line on interactive terminals.
func (l *Logger) Wait(ctx context.Context) error {
	if _, err := l.Record(event.CategoryWaitBegin); err != nil {
		return err
	}
	if _, err := l.options.Prompter.Ask(ctx, prompt.WaitQuestion); err != nil {
		return err
	}
	if l.clearsLines() {
		_, _ = fmt.Fprint(l.options.Stdout, l.Formatter().ClearPreviousLine())
	}
	_, err := l.Record(event.CategoryWaitEnd)
	return err
}

func (l *Logger) clearsLines() bool {
	formatter := l.Formatter()
	if formatter == nil || !formatter.ANSI() {
		return false
	}
	return display.IsTerminal(l.options.Stdout)
}

// Process logs the command line, then runs it with the session's stdout and
// stderr attached.
func (l *Logger) Process(ctx context.Context, name string, args ...string) error {
	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))
	formatter := l.Formatter()
	shown := commandLine
	if formatter != nil {
		shown = formatter.Bold(commandLine)
	}
	if _, err := l.record(event.CategoryLog, commandLine, []string{"$", shown, "\n..."}); err != nil {
		return err
	}
	// #nosec G204 -- tutorial steps run their own fixed toolchain commands.
	command := exec.CommandContext(ctx, name, args...)
	command.Stdout = l.options.Stdout
	command.Stderr = l.options.Stderr
	if err := command.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return coreerrors.Wrap(fmt.Errorf("run %s: %w", name, err), coreerrors.CategoryDependencyMissing, "process_not_found", "install "+name+" and retry", false)
		}
		return coreerrors.Wrap(fmt.Errorf("run %s: %w", commandLine, err), coreerrors.CategoryInternalFailure, "process_failed", "", false)
	}
	return nil
}

// RecordInterrupt records the error event for a step cut short by a signal.
// Callers do not wait for it to reach disk.
func (l *Logger) RecordInterrupt(step string, signal os.Signal) (event.Event, error) {
	return l.Error(step, SignalName(signal))
}

func SignalName(signal os.Signal) string {
	switch signal {
	case os.Interrupt:
		return "sigint"
	case syscall.SIGTERM:
		return "sigterm"
	case nil:
		return "signal"
	default:
		return strings.ToLower(signal.String())
	}
}

func (l *Logger) openInBackground(ctx context.Context, location string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.background.Add(1)
	l.mu.Unlock()
	go func() {
		defer l.background.Done()
		if err := l.options.Opener.Open(context.WithoutCancel(ctx), location); err != nil {
			l.logger.Warn("auto open failed", "location", location, "error", err)
		}
	}()
}
