package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate external id")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// UpstreamError is a non-2xx answer from an external API.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Body)
}

type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// UnparsableAnalysisError means the de-fenced model reply was not valid JSON.
type UnparsableAnalysisError struct {
	Text string
	Err  error
}

func (e *UnparsableAnalysisError) Error() string {
	return fmt.Sprintf("unparsable analysis: %v", e.Err)
}

func (e *UnparsableAnalysisError) Unwrap() error { return e.Err }

type NumericParseError struct {
	Field string
	Value string
	Err   error
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *NumericParseError) Unwrap() error { return e.Err }

type CurationFailedError struct {
	Place string
	Err   error
}

func (e *CurationFailedError) Error() string {
	return fmt.Sprintf("curation of %q failed: %v", e.Place, e.Err)
}

func (e *CurationFailedError) Unwrap() error { return e.Err }
