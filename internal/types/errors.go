package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrMaxRetries      = errors.New("max retries exceeded")
	ErrEmptyResponse   = errors.New("empty response body")
	ErrInvalidURL      = errors.New("invalid URL")
	ErrNoFetcher       = errors.New("no fetcher available for request")
	ErrPayloadTooLarge = errors.New("payload exceeds size ceiling")
	ErrUnknownSource   = errors.New("unknown source")
	ErrWrongItemShape  = errors.New("item shape does not match adapter")
	ErrNoArticles      = errors.New("no articles harvested")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while turning a raw item into an Article.
type ParseError struct {
	Source string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse error in %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("parse error in %s (field=%s): %v", e.Source, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SourceError marks a whole source as failed for the current run.
type SourceError struct {
	Source string
	Stage  string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed at %s: %v", e.Source, e.Stage, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while handing articles to a backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors raised by a record middleware.
type PipelineError struct {
	Stage     string
	ArticleID string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q (article %s): %v", e.Stage, e.ArticleID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// RunError is returned after every source was attempted and at least one failed.
type RunError struct {
	Sources []string
	Errs    []error
}

func (e *RunError) Error() string {
	return "failed to harvest the following sources: " + strings.Join(e.Sources, ", ")
}

func (e *RunError) Unwrap() []error { return e.Errs }
