// Package session records the events of one tutorial step run.
//
// Record appends to memory and returns; a single flusher goroutine writes new
// events to the event log on every record and forwards them to the telemetry
// sink when the debounce gate allows or the category forces it. Close drains
// the flusher and waits for in-flight sends.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidahmann/trail/core/config"
	"github.com/davidahmann/trail/core/debounce"
	"github.com/davidahmann/trail/core/display"
	coreerrors "github.com/davidahmann/trail/core/errors"
	"github.com/davidahmann/trail/core/event"
	"github.com/davidahmann/trail/core/eventlog"
	"github.com/davidahmann/trail/core/prompt"
	"github.com/davidahmann/trail/core/summary"
	"github.com/davidahmann/trail/core/telemetry"
	"github.com/davidahmann/trail/core/version"
)

const (
	DefaultDebounceInterval = 2 * time.Second
	defaultSendTimeout      = 10 * time.Second
)

var ErrClosed = errors.New("session logger is closed")

type StampResolver interface {
	Resolve() (string, error)
}

type Options struct {
	Paths    config.Paths
	Stdout   io.Writer
	Stderr   io.Writer
	Prompter prompt.Prompter
	// Sink overrides the HTTP sink built from metricsUrl. Telemetry opt-out
	// still applies.
	Sink             telemetry.Sink
	Resolver         StampResolver
	Opener           Opener
	LookupEnv        func(string) (string, bool)
	Now              func() time.Time
	DebounceInterval time.Duration
	SendTimeout      time.Duration
	RunID            string
	Logger           *slog.Logger
}

type flushRequest struct {
	force bool
	ack   chan error
}

type Logger struct {
	options   Options
	logger    *slog.Logger
	store     *eventlog.Store
	formatter *display.Formatter

	mu           sync.Mutex
	initialized  bool
	closed       bool
	stamp        string
	document     config.Document
	settings     config.Settings
	gate         *debounce.Gate
	sink         telemetry.Sink
	events       []event.Event
	lastStamp    int64
	pendingForce bool
	diskErr      error

	// owned by the flusher goroutine
	diskCursor   int
	remoteCursor int

	notify     chan struct{}
	requests   chan flushRequest
	stop       chan struct{}
	done       chan struct{}
	background sync.WaitGroup
}

func New(options Options) *Logger {
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if options.Prompter == nil {
		options.Prompter = prompt.New(os.Stdin, options.Stdout)
	}
	if options.Resolver == nil {
		options.Resolver = version.NewResolver(options.Paths.Manifest, options.Paths.GitDir)
	}
	if options.Opener == nil {
		options.Opener = EditorOpener{}
	}
	if options.LookupEnv == nil {
		options.LookupEnv = os.LookupEnv
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.DebounceInterval <= 0 {
		options.DebounceInterval = DefaultDebounceInterval
	}
	if options.SendTimeout <= 0 {
		options.SendTimeout = defaultSendTimeout
	}
	if options.RunID == "" {
		options.RunID = uuid.NewString()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		options:  options,
		logger:   logger.With("run_id", options.RunID),
		store:    eventlog.New(options.Paths.Log),
		notify:   make(chan struct{}, 1),
		requests: make(chan flushRequest),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Init resolves the version stamp, loads config.json and ensures an anonId.
// Calls after the first successful one do nothing.
func (l *Logger) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initialized {
		return nil
	}
	if l.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stamp, err := l.options.Resolver.Resolve()
	if err != nil {
		return fmt.Errorf("resolve version stamp: %w", err)
	}
	document, err := config.Load(l.options.Paths.Config, true)
	if err != nil {
		return err
	}
	document, _, err = config.EnsureAnonID(l.options.Paths.Config, document, config.DefaultAnonIDLength)
	if err != nil {
		return err
	}
	settings := document.Settings(l.options.LookupEnv)

	l.stamp = stamp
	l.document = document
	l.settings = settings
	l.formatter = display.New(!settings.ANSIDisabled)
	l.gate = debounce.New(l.options.DebounceInterval, debounce.WithClock(l.options.Now))
	l.sink = l.buildSink(settings)
	l.initialized = true

	go l.flushLoop()
	l.logger.Debug("session initialized", "version_stamp", stamp, "anon_id", settings.AnonID, "telemetry", l.sink != nil)
	return nil
}

func (l *Logger) buildSink(settings config.Settings) telemetry.Sink {
	switch {
	case settings.MetricsOptOut:
		return nil
	case l.options.Sink != nil:
		return l.options.Sink
	case !settings.TelemetryEnabled:
		return nil
	}
	sink, err := telemetry.NewHTTPSink(settings.MetricsURL, telemetry.WithRunID(l.options.RunID))
	if err != nil {
		l.logger.Warn("telemetry disabled", "error", err)
		return nil
	}
	l.logger.Debug("telemetry enabled", "endpoint", sink.Endpoint())
	return sink
}

// Record appends one event and schedules a flush without waiting for it.
// The first part is the event message; all parts are shown on the console.
// A disk failure from an earlier flush is returned here and from every later
// call.
func (l *Logger) Record(category event.Category, parts ...string) (event.Event, error) {
	message := ""
	if len(parts) > 0 {
		message = parts[0]
	}
	return l.record(category, message, parts)
}

// record persists message and prints shown, which may style or decorate it.
func (l *Logger) record(category event.Category, message string, shown []string) (event.Event, error) {
	if !category.Valid() {
		return event.Event{}, coreerrors.Wrap(fmt.Errorf("invalid category %s", category), coreerrors.CategoryInvalidInput, "category_invalid", "", false)
	}

	l.mu.Lock()
	switch {
	case !l.initialized:
		l.mu.Unlock()
		return event.Event{}, coreerrors.Wrap(fmt.Errorf("session logger used before Init"), coreerrors.CategoryInternalFailure, "session_not_initialized", "", false)
	case l.closed:
		l.mu.Unlock()
		return event.Event{}, ErrClosed
	case l.diskErr != nil:
		err := l.diskErr
		l.mu.Unlock()
		return event.Event{}, err
	}
	if !category.IsWait() && message == "" {
		l.logger.Warn("no message provided to record", "category", category.Name())
	}
	timestamp := l.options.Now().UnixMilli()
	if timestamp < l.lastStamp {
		timestamp = l.lastStamp
	}
	l.lastStamp = timestamp
	recorded := event.Event{
		Timestamp:    timestamp,
		Category:     category,
		VersionStamp: l.stamp,
		AnonID:       l.settings.AnonID,
		Message:      message,
	}
	l.events = append(l.events, recorded)
	if category.ForcesFlush() {
		l.pendingForce = true
	}
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}

	if line := l.formatter.Event(category, shown...); line != "" {
		_, _ = fmt.Fprintln(l.options.Stdout, line)
	}
	return recorded, nil
}

// Flush waits until every event recorded so far is on disk. With force the
// telemetry debounce is bypassed.
func (l *Logger) Flush(ctx context.Context, force bool) error {
	if !l.isInitialized() {
		return nil
	}
	ack := make(chan error, 1)
	select {
	case l.requests <- flushRequest{force: force, ack: ack}:
	case <-l.done:
		return l.diskError()
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake, flushes everything (telemetry included) and waits for
// background work, bounded by ctx. It returns the first disk error.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.initialized || l.closed {
		l.closed = true
		err := l.diskErr
		l.mu.Unlock()
		return err
	}
	l.closed = true
	l.mu.Unlock()

	close(l.stop)
	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	waited := make(chan struct{})
	go func() {
		l.background.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}
	return l.diskError()
}

func (l *Logger) flushLoop() {
	defer close(l.done)
	for {
		select {
		case <-l.notify:
			l.flushPending(false)
		case request := <-l.requests:
			request.ack <- l.flushPending(request.force)
		case <-l.stop:
			l.flushPending(true)
			return
		}
	}
}

func (l *Logger) flushPending(force bool) error {
	l.mu.Lock()
	force = force || l.pendingForce
	l.pendingForce = false
	total := len(l.events)
	var diskBatch []event.Event
	if l.diskErr == nil && l.diskCursor < total {
		diskBatch = append([]event.Event(nil), l.events[l.diskCursor:total]...)
	}
	var remoteBatch []event.Event
	sink := l.sink
	if sink != nil && l.remoteCursor < total {
		remoteBatch = append([]event.Event(nil), l.events[l.remoteCursor:total]...)
	}
	l.mu.Unlock()

	if len(remoteBatch) > 0 {
		if force || l.gate.Attempt() {
			l.remoteCursor = total
			l.send(sink, remoteBatch)
		} else {
			l.logger.Debug("telemetry debounced", "pending", len(remoteBatch))
		}
	}

	if len(diskBatch) > 0 {
		if err := l.store.Append(diskBatch); err != nil {
			l.logger.Error("event log write failed", "path", l.store.Path(), "error", err)
			l.mu.Lock()
			if l.diskErr == nil {
				l.diskErr = err
			}
			l.mu.Unlock()
		} else {
			l.diskCursor = total
		}
	}
	return l.diskError()
}

func (l *Logger) send(sink telemetry.Sink, batch []event.Event) {
	l.background.Add(1)
	go func() {
		defer l.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.options.SendTimeout)
		defer cancel()
		if err := sink.Send(ctx, batch); err != nil {
			l.logger.Warn("telemetry send failed", "events", len(batch), "error", err)
		}
	}()
}

func (l *Logger) isInitialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialized
}

func (l *Logger) diskError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.diskErr
}

// Events returns a copy of the events recorded by this process.
func (l *Logger) Events() []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event.Event(nil), l.events...)
}

func (l *Logger) VersionStamp() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stamp
}

func (l *Logger) AnonID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings.AnonID
}

func (l *Logger) Settings() config.Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// Formatter is nil before Init.
func (l *Logger) Formatter() *display.Formatter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.formatter
}

// Summary flushes pending events and summarizes the latest run in the log.
func (l *Logger) Summary(ctx context.Context, opts ...eventlog.LoadOption) (summary.Summary, error) {
	if err := l.Flush(ctx, false); err != nil {
		return summary.Summary{}, err
	}
	events, err := l.store.LoadAll(opts...)
	if err != nil {
		return summary.Summary{}, err
	}
	return summary.Summarize(events), nil
}
