// Package upstream classifies errors from external providers (embedding and
// LLM APIs, the vector store, page fetches) as retryable or permanent.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"botcraft/internal/domain"
)

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return RetryableStatus(e.Code)
}

// RetryableStatus is true for 408, 429 and 5xx.
func RetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// a status code stands alone; ":443" in a dial error is a port
var statusPattern = regexp.MustCompile(`(?:^|[\s(])([45]\d\d)\b`)

// Classify wraps err with domain.ErrUpstreamUnavailable or
// domain.ErrUpstreamRejected. SDK errors that carry no typed status are
// classified from the first HTTP status code in their message; errors with
// no recognisable status are treated as unavailable. Caller cancellation is
// returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrUpstreamUnavailable) || errors.Is(err, domain.ErrUpstreamRejected) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if domain.IsTimeout(err) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return byStatus(statusErr.Code, err)
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return byStatus(code, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}

func byStatus(code int, err error) error {
	if RetryableStatus(code) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamRejected, err)
}
