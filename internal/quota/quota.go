// Package quota enforces the per-user daily prompt limit.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/models"
)

// DayLayout is the key format of a usage day. Days follow the local clock, so the
// limit resets at local midnight.
const DayLayout = "2006-01-02"

var (
	// ErrLimitReached is returned by Record when the user has no prompts left today.
	ErrLimitReached = errors.New("daily prompt limit reached")
	// ErrNoUser is returned for a blank user id.
	ErrNoUser = errors.New("user id is required")
)

// LimitMessage is shown when a user has used all prompts for the day.
func LimitMessage(limit int) string {
	return fmt.Sprintf("You've used your %d prompts for today.\n\nCome back tomorrow for more, your daily limit resets at midnight.", limit)
}

// Store persists per-user, per-day prompt counts.
type Store interface {
	// Count returns the number of prompts user made on day. Unknown users count 0.
	Count(ctx context.Context, user, day string) (int, error)
	// Increment adds one prompt and returns the new count.
	Increment(ctx context.Context, user, day string) (int, error)
	// Decrement removes one prompt, never going below zero, and returns the new count.
	Decrement(ctx context.Context, user, day string) (int, error)
	Close() error
}

// Limiter applies a daily limit on top of a Store.
type Limiter struct {
	store  Store
	limit  int
	now    func() time.Time
	logger *zap.Logger

	// serializes check-then-increment within this process
	mu sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(lim *Limiter) { lim.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(lim *Limiter) { lim.now = now }
}

// NewLimiter creates a limiter allowing limit prompts per user per day.
func NewLimiter(store Store, limit int, opts ...Option) *Limiter {
	l := &Limiter{store: store, limit: limit, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the daily limit.
func (l *Limiter) Limit() int { return l.limit }

// Today returns the current usage day key.
func (l *Limiter) Today() string { return l.now().Format(DayLayout) }

// Usage returns today's usage for user.
func (l *Limiter) Usage(ctx context.Context, user string) (models.Usage, error) {
	user = normalizeUser(user)
	if user == "" {
		return models.Usage{}, ErrNoUser
	}
	n, err := l.store.Count(ctx, user, l.Today())
	if err != nil {
		return models.Usage{}, fmt.Errorf("failed to read usage: %w", err)
	}
	return models.NewUsage(user, n, l.limit), nil
}

// Increment records one prompt for user regardless of the limit and returns the new usage.
func (l *Limiter) Increment(ctx context.Context, user string) (models.Usage, error) {
	user = normalizeUser(user)
	if user == "" {
		return models.Usage{}, ErrNoUser
	}
	n, err := l.store.Increment(ctx, user, l.Today())
	if err != nil {
		return models.Usage{}, fmt.Errorf("failed to record usage: %w", err)
	}
	l.logger.Debug("prompt recorded", zap.String("user", user), zap.Int("used", n), zap.Int("limit", l.limit))
	return models.NewUsage(user, n, l.limit), nil
}

// CheckAndRecord reports whether user may prompt now and, if so, records the prompt.
func (l *Limiter) CheckAndRecord(ctx context.Context, user string) (bool, error) {
	_, err := l.Record(ctx, user)
	if errors.Is(err, ErrLimitReached) {
		return false, nil
	}
	return err == nil, err
}

// Record increments usage when the user is under the limit. It returns ErrLimitReached
// with the unchanged usage otherwise.
func (l *Limiter) Record(ctx context.Context, user string) (models.Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, err := l.Usage(ctx, user)
	if err != nil {
		return models.Usage{}, err
	}
	if !u.Allowed {
		return u, ErrLimitReached
	}
	return l.Increment(ctx, user)
}

// Release gives back a prompt taken by Record when nothing was asked, for
// example because no index has been built yet.
func (l *Limiter) Release(ctx context.Context, user string) (models.Usage, error) {
	user = normalizeUser(user)
	if user == "" {
		return models.Usage{}, ErrNoUser
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.store.Decrement(ctx, user, l.Today())
	if err != nil {
		return models.Usage{}, fmt.Errorf("failed to release usage: %w", err)
	}
	l.logger.Debug("prompt released", zap.String("user", user), zap.Int("used", n))
	return models.NewUsage(user, n, l.limit), nil
}

// Close closes the underlying store.
func (l *Limiter) Close() error { return l.store.Close() }

// normalizeUser trims and lowercases an email-style id so the same person maps to one counter.
func normalizeUser(user string) string {
	return strings.ToLower(strings.TrimSpace(user))
}
