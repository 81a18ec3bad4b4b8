package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Clock abstracts sleeping so the retry machinery is testable with a fake
// clock and no real delays.
type Clock interface {
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RealClock returns a Clock backed by time.NewTimer.
func RealClock() Clock { return realClock{} }

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry; it doubles after each
	// subsequent failure. Default: 500ms.
	BaseBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 30s.
	MaxBackoff time.Duration

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns a sensible retry configuration for API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return cfg
}

// Decision is the next move the retry state machine prescribes.
type Decision int

const (
	// DecisionRetry: sleep State.Delay, then try again.
	DecisionRetry Decision = iota
	// DecisionStop: the error is not retryable; fail immediately.
	DecisionStop
	// DecisionExhausted: the attempt budget is spent; fail with the last error.
	DecisionExhausted
)

// State is the explicit retry state machine for a single operation, scoped to
// one record fetch and discarded after success or exhaustion. It is
// independent of any HTTP call site so it can be driven directly in tests.
type State struct {
	cfg RetryConfig

	// Attempts is the number of attempts made so far.
	Attempts int
	// Delay is the backoff to sleep before the next attempt. Non-decreasing
	// across retries and never above cfg.MaxBackoff.
	Delay time.Duration
	// TotalDelay accumulates all backoff slept for this operation.
	TotalDelay time.Duration
	// LastErr is the most recent attempt's error.
	LastErr error
}

// NewState creates a retry state machine with defaults applied.
func NewState(cfg RetryConfig) *State {
	cfg = applyDefaults(cfg)
	return &State{cfg: cfg, Delay: cfg.BaseBackoff}
}

// Next records the outcome of an attempt and returns the prescribed decision.
// On DecisionRetry the caller sleeps State.Delay; Next then doubles the delay
// (capped at MaxBackoff) for the following failure.
func (s *State) Next(err error) Decision {
	s.Attempts++
	s.LastErr = err

	shouldRetry := s.cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}
	if !shouldRetry(err) {
		return DecisionStop
	}
	if s.Attempts >= s.cfg.MaxAttempts {
		return DecisionExhausted
	}

	// The caller sleeps the current delay; prepare the next one.
	s.TotalDelay += s.Delay
	defer s.advance()
	return DecisionRetry
}

func (s *State) advance() {
	next := s.Delay * 2
	if next > s.cfg.MaxBackoff {
		next = s.cfg.MaxBackoff
	}
	s.Delay = next
}

// DoVal executes fn with retry according to cfg, driving a State machine and
// sleeping on clock between attempts. It retries only errors deemed transient
// (via ShouldRetry or the default IsTransient check). Context cancellation
// stops retries immediately. Returns the successful value and the attempt
// count, or the last error after stopping.
func DoVal[T any](ctx context.Context, cfg RetryConfig, clock Clock, fn func(ctx context.Context) (T, error)) (T, int, error) {
	if clock == nil {
		clock = RealClock()
	}
	st := NewState(cfg)

	var zero T
	for {
		val, err := fn(ctx)
		if err == nil {
			return val, st.Attempts + 1, nil
		}

		if ctx.Err() != nil {
			st.Attempts++
			return zero, st.Attempts, err
		}

		delay := st.Delay
		switch st.Next(err) {
		case DecisionStop, DecisionExhausted:
			return zero, st.Attempts, st.LastErr
		case DecisionRetry:
			if cfg.OnRetry != nil {
				cfg.OnRetry(st.Attempts, err)
			}
			clock.Sleep(ctx, delay)
		}
	}
}

// Do executes fn with retry logic; see DoVal.
func Do(ctx context.Context, cfg RetryConfig, clock Clock, fn func(ctx context.Context) error) (int, error) {
	_, attempts, err := DoVal(ctx, cfg, clock, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return attempts, err
}

// FromRetryConfig converts millisecond config values to a RetryConfig.
func FromRetryConfig(maxAttempts, baseBackoffMs, maxBackoffMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if baseBackoffMs > 0 {
		cfg.BaseBackoff = time.Duration(baseBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	return cfg
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
