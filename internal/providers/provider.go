package providers

import (
	"context"
	"errors"
	"fmt"
)

// Answer is the provider's reply to one question
type Answer struct {
	Text       string
	TokensUsed int
}

// Client talks to an upstream LLM provider. Implementations take the
// provider secret per call so one client serves every configured key.
type Client interface {
	Ask(ctx context.Context, secret, question string) (*Answer, error)
}

// ErrNoProviderAvailable is returned when no active provider key exists
var ErrNoProviderAvailable = errors.New("no provider key available")

// UpstreamError wraps any provider-side failure: transport errors, non-2xx
// statuses and malformed response bodies. Callers never see a fabricated
// answer; they see this error and the user is not charged.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream provider error: %s", e.Message)
}

// IsUpstream reports whether err is an upstream provider error
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}
