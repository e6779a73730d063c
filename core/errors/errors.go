// Package errors classifies failures so callers can decide whether a problem
// is fatal to the step, surfaced as a warning, or swallowed.
package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryInvalidInput      Category = "invalid_input"
	CategoryDependencyMissing Category = "dependency_missing"
	CategoryIOFailure         Category = "io_failure"
	CategoryParseFailure      Category = "parse_failure"
	CategoryNetworkTransient  Category = "network_transient"
	CategoryNetworkPermanent  Category = "network_permanent"
	CategoryInternalFailure   Category = "internal_failure"
)

type classifiedError struct {
	category  Category
	code      string
	hint      string
	retryable bool
	cause     error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func (e *classifiedError) Category() Category {
	return e.category
}

func (e *classifiedError) Code() string {
	return e.code
}

func (e *classifiedError) Hint() string {
	return e.hint
}

func (e *classifiedError) Retryable() bool {
	return e.retryable
}

func Wrap(cause error, category Category, code, hint string, retryable bool) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category:  category,
		code:      code,
		hint:      hint,
		retryable: retryable,
		cause:     cause,
	}
}

// IOError marks a file that could not be read or written. These are fatal to
// the calling step and never retried.
func IOError(operation string, cause error) error {
	if cause == nil {
		return nil
	}
	return Wrap(fmt.Errorf("%s: %w", operation, cause), CategoryIOFailure, "io_failure", "check the file exists and is readable/writable", false)
}

// ParseError marks malformed JSON in the config document, manifest or event log.
func ParseError(subject string, cause error) error {
	if cause == nil {
		return nil
	}
	return Wrap(fmt.Errorf("parse %s: %w", subject, cause), CategoryParseFailure, "parse_failure", "fix or remove the malformed content", false)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

func RetryableOf(err error) bool {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.retryable
	}
	return false
}
