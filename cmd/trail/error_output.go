package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	coreerrors "github.com/davidahmann/trail/core/errors"
)

type interruptedError struct {
	signal string
}

func (e interruptedError) Error() string {
	return "interrupted by " + e.signal
}

func exitCodeForError(err error, fallbackExit int) int {
	if err == nil {
		return exitOK
	}
	var interrupted interruptedError
	if stderrors.As(err, &interrupted) {
		return exitInterrupted
	}
	switch coreerrors.CategoryOf(err) {
	case coreerrors.CategoryInvalidInput:
		return exitInvalidInput
	case coreerrors.CategoryIOFailure, coreerrors.CategoryParseFailure:
		return exitIOFailure
	case coreerrors.CategoryDependencyMissing, coreerrors.CategoryNetworkTransient, coreerrors.CategoryNetworkPermanent, coreerrors.CategoryInternalFailure:
		return exitFailure
	}
	return fallbackExit
}

func writeError(output io.Writer, err error, exitCode int) {
	if output == nil || err == nil {
		return
	}
	_, _ = fmt.Fprintf(output, "trail: %s\n", err.Error())
	hint := strings.TrimSpace(coreerrors.HintOf(err))
	if hint == "" {
		hint = defaultHint(exitCode)
	}
	if hint != "" {
		_, _ = fmt.Fprintf(output, "hint: %s\n", hint)
	}
}

func defaultHint(exitCode int) string {
	switch exitCode {
	case exitInvalidInput:
		return "run `trail --help` for usage"
	case exitIOFailure:
		return "run `trail doctor` to check the project files"
	default:
		return ""
	}
}

func writeJSON(output io.Writer, value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("encode output: %w", err), coreerrors.CategoryInternalFailure, "encode_failed", "", false)
	}
	if _, err := fmt.Fprintln(output, string(encoded)); err != nil {
		return coreerrors.IOError("write output", err)
	}
	return nil
}
