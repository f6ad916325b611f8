package ratelimit

import (
	"context"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/logging"
)

// Config describes one limiter.
type Config struct {
	// Name separates the counters of different limiters.
	Name   string
	Window time.Duration
	Max    int
	// SkipSuccessful counts only requests the caller reports as failed.
	SkipSuccessful bool
	// Message is sent to clients that hit the limit.
	Message string
}

// Decision is the outcome of one check.
type Decision struct {
	Limit     int
	Remaining int
	Reset     time.Duration
}

type Limiter struct {
	store  Store
	cfg    Config
	logger logging.Logger
}

func New(store Store, cfg Config, logger logging.Logger) *Limiter {
	return &Limiter{
		store:  store,
		cfg:    cfg,
		logger: logger.With("module", "ratelimit", "limiter", cfg.Name),
	}
}

func (l *Limiter) Config() Config {
	return l.cfg
}

// Allow admits a request from client. Limiters that count every request
// increment here; SkipSuccessful limiters only read the counter and rely
// on Failed. A failing store admits the request.
func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	var (
		count int64
		ttl   time.Duration
		err   error
	)
	if l.cfg.SkipSuccessful {
		count, ttl, err = l.store.Get(ctx, l.key(client))
		// the request being admitted is not counted yet
		count++
	} else {
		count, ttl, err = l.store.Incr(ctx, l.key(client), l.cfg.Window)
	}
	if err != nil {
		l.logger.Warn(ctx, "rate limit store error, request admitted", "error", err)
		return Decision{Limit: l.cfg.Max, Remaining: l.cfg.Max}, nil
	}

	d := Decision{
		Limit:     l.cfg.Max,
		Remaining: max(l.cfg.Max-int(count), 0),
		Reset:     ttl,
	}
	if count > int64(l.cfg.Max) {
		return d, common.ErrRateLimited
	}
	return d, nil
}

// Failed charges a failed request to client. It is a no-op for limiters
// that already count every request.
func (l *Limiter) Failed(ctx context.Context, client string) {
	if !l.cfg.SkipSuccessful {
		return
	}
	if _, _, err := l.store.Incr(ctx, l.key(client), l.cfg.Window); err != nil {
		l.logger.Warn(ctx, "rate limit store error, failure not counted", "error", err)
	}
}

func (l *Limiter) key(client string) string {
	return "ratelimit:" + l.cfg.Name + ":" + client
}
