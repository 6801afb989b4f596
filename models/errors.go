package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout           = "SCRAPE_TIMEOUT"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash      = "BROWSER_CRASH"
	ErrCodeSearchUnavailable = "SEARCH_UNAVAILABLE"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeStorage           = "STORAGE_FAILURE"
	ErrCodeInternal          = "INTERNAL_ERROR"

	// Relevance scoring error codes.
	ErrCodeClassifierFailure     = "CLASSIFIER_FAILURE"
	ErrCodeClassifierAuthFailure = "CLASSIFIER_AUTH_FAILURE"
	ErrCodeClassifierRateLimited = "CLASSIFIER_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// AsScrapeError returns err as a *ScrapeError, wrapping unknown errors
// as ErrCodeInternal.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}

// SkipReason explains why a tender was dropped instead of recorded.
type SkipReason string

const (
	SkipPageLoadTimeout  SkipReason = "page_load_timeout"
	SkipNavigationFailed SkipReason = "navigation_failed"
	SkipNoIdentifier     SkipReason = "no_identifier"
	SkipNoAgency         SkipReason = "no_agency"
	SkipNoAwardStatus    SkipReason = "no_award_status"
)

// SkipError is returned when a single tender cannot be recorded. It never
// aborts the crawl; callers log it and move on to the next link.
type SkipError struct {
	Reason SkipReason
	Title  string
	Err    error
}

func (e *SkipError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("skip %q: %s: %v", e.Title, e.Reason, e.Err)
	}
	return fmt.Sprintf("skip %q: %s", e.Title, e.Reason)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// NewSkipError creates a new SkipError.
func NewSkipError(reason SkipReason, title string, err error) *SkipError {
	return &SkipError{Reason: reason, Title: title, Err: err}
}
