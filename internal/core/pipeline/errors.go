// Package pipeline holds the error taxonomy shared by the dispatcher and the
// orchestrator: the ErrorKind classes, their error types, and Classify.
package pipeline

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorKind classifies a stage failure so the orchestrator and the
// dispatcher's fallback policy share one source of truth.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindInputExhaustion    ErrorKind = "input_exhaustion"
	KindTransientRemote    ErrorKind = "transient_remote"
	KindQuotaRemote        ErrorKind = "quota_remote"
	KindMalformedResponse  ErrorKind = "malformed_response"
	KindResourceExhaustion ErrorKind = "resource_exhaustion"
	KindCancelled          ErrorKind = "cancelled"
	KindFatalSubprocess    ErrorKind = "fatal_subprocess"
)

// ErrCancelled is the sentinel any suspension point returns once the job's
// cancellation flag is observed, replacing exception-style unwinding with
// an explicit value the orchestrator checks for.
var ErrCancelled = errors.New("pipeline: cancelled")

// ValidationError wraps a KindValidation failure: bad job id, bad extension,
// oversized file, bad language code. These never enter the pipeline proper.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// QuotaError marks a provider response as a quota/429 condition, which
// advances the dispatcher's fallback chain immediately with no backoff.
type QuotaError struct {
	Provider string
	Message  string
}

func (e *QuotaError) Error() string {
	return "quota exceeded (" + e.Provider + "): " + e.Message
}

// ResourceExhaustedError marks a GPU OOM or equivalent local-resource failure.
type ResourceExhaustedError struct {
	Message string
}

func (e *ResourceExhaustedError) Error() string { return e.Message }

// FatalSubprocessError wraps a non-zero exit or missing-binary failure from
// an external subprocess (ffmpeg, a local TTS/STT binary).
type FatalSubprocessError struct {
	Command    string
	StderrHead string // truncated to 500 chars by the caller
	Err        error
}

func (e *FatalSubprocessError) Error() string {
	return "subprocess " + e.Command + " failed: " + e.Err.Error()
}

func (e *FatalSubprocessError) Unwrap() error { return e.Err }

// Classify maps an error returned by a stage to its ErrorKind, driving both
// the Dispatcher's retry/fallback policy and the orchestrator's
// terminal-transition logic.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}

	var quotaErr *QuotaError
	if errors.As(err, &quotaErr) {
		return KindQuotaRemote
	}

	var resourceErr *ResourceExhaustedError
	if errors.As(err, &resourceErr) {
		return KindResourceExhaustion
	}

	var subprocessErr *FatalSubprocessError
	if errors.As(err, &subprocessErr) {
		return KindFatalSubprocess
	}

	var jsonErr *malformedResponseError
	if errors.As(err, &jsonErr) {
		return KindMalformedResponse
	}

	var exhaustionErr *inputExhaustionError
	if errors.As(err, &exhaustionErr) {
		return KindInputExhaustion
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransientRemote
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransientRemote
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return KindQuotaRemote
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection reset"), strings.Contains(msg, "eof"):
		return KindTransientRemote
	case strings.HasPrefix(msg, "5"), strings.Contains(msg, "50"), strings.Contains(msg, "502"), strings.Contains(msg, "503"):
		return KindTransientRemote
	}

	return KindTransientRemote
}

// malformedResponseError marks an unparseable JSON response from a
// translator or evaluator, after the repair ladder in the jsonrepair package
// has already been exhausted.
type malformedResponseError struct {
	Err error
}

func (e *malformedResponseError) Error() string { return "malformed response: " + e.Err.Error() }
func (e *malformedResponseError) Unwrap() error { return e.Err }

// NewMalformedResponseError wraps a JSON (or other structured-response)
// parse failure that survived the repair ladder.
func NewMalformedResponseError(err error) error {
	return &malformedResponseError{Err: err}
}

// inputExhaustionError marks an empty or unusable stage output: an empty
// transcript from STT, or empty translated text.
type inputExhaustionError struct {
	Message string
}

func (e *inputExhaustionError) Error() string { return e.Message }

// NewInputExhaustionError builds a KindInputExhaustion error.
func NewInputExhaustionError(message string) error {
	return &inputExhaustionError{Message: message}
}
