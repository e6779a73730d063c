// Package eventlog persists session events as line-delimited JSON.
//
// The file is append-only. LoadAll replays it and discards everything read
// before the latest run-start line, so callers only see the current run while
// older runs stay on disk.
package eventlog

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	coreerrors "github.com/davidahmann/trail/core/errors"
	"github.com/davidahmann/trail/core/event"
	"github.com/davidahmann/trail/core/fsx"
	"github.com/davidahmann/trail/core/schema/validate"
)

const maxEventLineBytes = 1024 * 1024

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: strings.TrimSpace(path)}
}

func (store *Store) Path() string {
	return store.path
}

// Append writes events in order, one line each, after any existing lines.
func (store *Store) Append(events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	lines := make([][]byte, 0, len(events))
	for _, recorded := range events {
		encoded, err := recorded.MarshalLine()
		if err != nil {
			return coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "event_encode", "", false)
		}
		lines = append(lines, encoded)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if err := fsx.AppendLines(store.path, lines, 0o600); err != nil {
		return coreerrors.IOError("append event log", err)
	}
	return nil
}

type loadOptions struct {
	resetOn  map[event.Category]struct{}
	tolerant bool
	logger   *slog.Logger
}

type LoadOption func(*loadOptions)

// ResetOn replaces the set of categories that start a new run. The default
// is setupBegin alone.
func ResetOn(categories ...event.Category) LoadOption {
	return func(options *loadOptions) {
		options.resetOn = make(map[event.Category]struct{}, len(categories))
		for _, category := range categories {
			options.resetOn[category] = struct{}{}
		}
	}
}

// SkipMalformed makes malformed lines a logged warning instead of a load
// failure.
func SkipMalformed(logger *slog.Logger) LoadOption {
	return func(options *loadOptions) {
		options.tolerant = true
		if logger != nil {
			options.logger = logger
		}
	}
}

// LoadAll returns the events of the latest run in file order. A missing log
// file means nothing has been recorded yet.
func (store *Store) LoadAll(opts ...LoadOption) ([]event.Event, error) {
	options := loadOptions{
		resetOn: map[event.Category]struct{}{event.CategorySetupBegin: {}},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&options)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	// #nosec G304 -- log path is derived from the explicit project root.
	file, err := os.Open(store.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []event.Event{}, nil
		}
		return nil, coreerrors.IOError("open event log", err)
	}
	defer func() {
		_ = file.Close()
	}()

	events := make([]event.Event, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		parsed, err := parseLine(raw)
		if err != nil {
			if options.tolerant {
				options.logger.Warn("skipping malformed event log line", "path", store.path, "line", line, "error", err)
				continue
			}
			return nil, coreerrors.ParseError(fmt.Sprintf("event log line %d", line), err)
		}
		if _, reset := options.resetOn[parsed.Category]; reset {
			events = events[:0]
		}
		events = append(events, parsed)
	}
	if err := scanner.Err(); err != nil {
		return nil, coreerrors.IOError("scan event log", err)
	}
	return events, nil
}

func parseLine(raw []byte) (event.Event, error) {
	if err := validate.ValidateEventLine(raw); err != nil {
		return event.Event{}, err
	}
	return event.ParseLine(raw)
}
