package provider

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ClientStats holds cumulative attempt counters for observability.
type ClientStats struct {
	Attempts  int64
	Successes int64
	Retries   int64
	Giveups   int64
}

// Client enforces a shared minimum inter-request delay and retries transient
// provider failures. All provider calls in a run go through one Client so
// the rate budget is respected across search, details and menu fetches.
type Client struct {
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	exponential bool

	attempts  atomic.Int64
	successes atomic.Int64
	retries   atomic.Int64
	giveups   atomic.Int64
}

// NewClient creates a rate-limited client. The limiter burst is 1 so the
// inter-request delay applies to every attempt, including the first call of
// each batch element, not just between retries.
func NewClient(requestInterval, retryDelay time.Duration, maxRetries int, exponential bool) *Client {
	if requestInterval <= 0 {
		requestInterval = 150 * time.Millisecond
	}
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 3
	}

	return &Client{
		limiter:     rate.NewLimiter(rate.Every(requestInterval), 1),
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		exponential: exponential,
	}
}

// Do executes fn under the rate limit. Transient failures are retried up to
// maxRetries with the configured backoff; quota, not-found and malformed
// failures propagate immediately.
func (c *Client) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		c.attempts.Add(1)
		err := fn(ctx)
		if err == nil {
			c.successes.Add(1)
			slog.Debug("Provider call succeeded", "op", op, "attempt", attempt)
			return nil
		}

		if IsQuotaExceeded(err) {
			c.giveups.Add(1)
			slog.Error("Provider quota exceeded, not retrying", "op", op, "attempt", attempt, "error", err)
			return err
		}

		if !IsTransient(err) || attempt > c.maxRetries {
			c.giveups.Add(1)
			slog.Error("Provider call failed", "op", op, "attempt", attempt, "error", err)
			return err
		}

		c.retries.Add(1)
		delay := c.backoffDelay(attempt)
		slog.Warn("Provider call retry scheduled", "op", op, "attempt", attempt, "max_retries", c.maxRetries, "delay", delay.String(), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	if !c.exponential {
		return c.retryDelay
	}

	delay := c.retryDelay << uint(attempt-1)
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

func (c *Client) Stats() ClientStats {
	return ClientStats{
		Attempts:  c.attempts.Load(),
		Successes: c.successes.Load(),
		Retries:   c.retries.Load(),
		Giveups:   c.giveups.Load(),
	}
}
