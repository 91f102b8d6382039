// Package provider classifies failures from embedding and generation
// providers into the domain's retryable and fatal error kinds.
package provider

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// maxBodyInError bounds how much of a response body is kept in an error.
const maxBodyInError = 512

// FromStatus classifies a non-success HTTP response.
//
// 429 is retryable unless the body reports exhausted quota. 408 and 5xx are
// retryable. Every other status is fatal.
func FromStatus(name string, status int, body []byte) *domain.ProviderError {
	msg := string(bytes.TrimSpace(body))
	if len(msg) > maxBodyInError {
		msg = msg[:maxBodyInError] + "..."
	}

	switch {
	case status == http.StatusTooManyRequests:
		if isQuotaMessage(msg) {
			return &domain.ProviderError{Provider: name, StatusCode: status, Err: wrap(domain.ErrQuotaExhausted, msg)}
		}
		return &domain.ProviderError{Provider: name, StatusCode: status, Retryable: true, Err: wrap(domain.ErrRateLimited, msg)}
	case status == http.StatusRequestTimeout || status >= 500:
		return &domain.ProviderError{Provider: name, StatusCode: status, Retryable: true, Err: errors.New(orStatus(msg, status))}
	default:
		return &domain.ProviderError{Provider: name, StatusCode: status, Err: errors.New(orStatus(msg, status))}
	}
}

// FromTransport classifies a failure to reach the provider. Network errors
// and timeouts are retryable; caller cancellation is not.
func FromTransport(name string, err error) *domain.ProviderError {
	return &domain.ProviderError{
		Provider:  name,
		Retryable: !errors.Is(err, context.Canceled),
		Err:       err,
	}
}

// Generation converts a provider failure into a *domain.GenerationError,
// keeping its retryability.
func Generation(name string, err error) error {
	if err == nil {
		return nil
	}
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &domain.GenerationError{
		Provider:  name,
		Retryable: domain.IsRetryable(err) && !errors.Is(err, context.Canceled),
		Err:       err,
	}
}

func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "insufficient_quota") ||
		strings.Contains(lower, "quota exceeded") ||
		strings.Contains(lower, "exceeded your current quota") ||
		strings.Contains(lower, "billing")
}

func wrap(sentinel error, msg string) error {
	if msg == "" {
		return sentinel
	}
	return &detailError{sentinel: sentinel, detail: msg}
}

func orStatus(msg string, status int) string {
	if msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// detailError attaches a provider message to a sentinel.
type detailError struct {
	sentinel error
	detail   string
}

func (e *detailError) Error() string { return e.sentinel.Error() + ": " + e.detail }

func (e *detailError) Unwrap() error { return e.sentinel }
