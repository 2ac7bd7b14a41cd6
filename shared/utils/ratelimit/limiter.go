package ratelimit

import (
	"context"
	"time"
)

// FailurePolicy decides what happens when the Counter cannot be reached.
type FailurePolicy int

const (
	// FailOpen lets the request through uncounted.
	FailOpen FailurePolicy = iota
	// FailClosed rejects the request.
	FailClosed
)

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

// Config - Rate limiter configuration
type Config struct {
	Max     int
	Window  time.Duration
	Message string
	// Timeout bounds each round trip to the Counter.
	Timeout time.Duration
	Policy  FailurePolicy
}

// DefaultConfig returns 10 requests per 60 seconds, failing open after 200ms.
func DefaultConfig() Config {
	return Config{
		Max:     10,
		Window:  60 * time.Second,
		Message: "Too many requests, please try again later.",
		Timeout: 200 * time.Millisecond,
		Policy:  FailOpen,
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	// Err is set when the Counter failed and Policy produced the decision.
	Err error
}

// Degraded reports whether the decision came from the failure policy.
func (d Decision) Degraded() bool {
	return d.Err != nil
}

// Limiter admits or rejects requests per key.
type Limiter struct {
	counter Counter
	config  Config
	now     func() time.Time
}

// NewLimiter fills zero config fields from DefaultConfig.
func NewLimiter(counter Counter, config Config) *Limiter {
	def := DefaultConfig()
	if config.Max <= 0 {
		config.Max = def.Max
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.Message == "" {
		config.Message = def.Message
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &Limiter{counter: counter, config: config, now: time.Now}
}

// Config returns the effective configuration
func (l *Limiter) Config() Config {
	return l.config
}

// Allow checks the counter for clientKey and, when under the limit, counts
// this request.
func (l *Limiter) Allow(ctx context.Context, clientKey string) Decision {
	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	key := KeyPrefix + clientKey
	now := l.now()
	resetAt := now.Add(l.config.Window)

	count, ttl, err := l.counter.Get(ctx, key)
	if err != nil {
		return l.degraded(err, resetAt)
	}

	if count >= int64(l.config.Max) {
		// the open window ends when the counter expires, not a full window from now
		if ttl > 0 {
			resetAt = now.Add(ttl)
		}
		return Decision{
			Allowed:    false,
			Limit:      l.config.Max,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: l.config.Window,
		}
	}

	count, err = l.counter.Increment(ctx, key, l.config.Window)
	if err != nil {
		return l.degraded(err, resetAt)
	}

	remaining := l.config.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   true,
		Limit:     l.config.Max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

func (l *Limiter) degraded(err error, resetAt time.Time) Decision {
	d := Decision{
		Allowed: l.config.Policy == FailOpen,
		Limit:   l.config.Max,
		ResetAt: resetAt,
		Err:     err,
	}
	if !d.Allowed {
		d.RetryAfter = l.config.Window
	}
	return d
}
