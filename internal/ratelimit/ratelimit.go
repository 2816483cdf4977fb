// Package ratelimit enforces a per-user budget on extraction requests.
package ratelimit

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrLimitExceeded is returned when the user has spent their request budget
// for the current window.
var ErrLimitExceeded = errors.New("rate limit exceeded, try again later")

// PerUser keeps one token bucket per user id. The bucket refills evenly over
// the window and holds at most the full window's budget, so a quiet user can
// burst up to the limit.
type PerUser struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New builds a limiter allowing `requests` per `window` for each user.
func New(requests int, window time.Duration) *PerUser {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &PerUser{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
	}
}

// Allow consumes one token for the user, returning ErrLimitExceeded when the
// bucket is empty.
func (p *PerUser) Allow(userID string) error {
	p.mu.Lock()
	limiter, ok := p.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(p.limit, p.burst)
		p.limiters[userID] = limiter
	}
	p.mu.Unlock()

	if !limiter.Allow() {
		return ErrLimitExceeded
	}
	return nil
}
