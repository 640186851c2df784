package middleware

import (
	"sync"
	"time"

	"github.com/guild-helper-bot-go/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Allow(userID string) bool
}

// UserRateLimiter implements per-user rate limiting across all commands
type UserRateLimiter struct {
	enabled  bool
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rpm      int
	burst    int
	maxUsers int
	logger   *logrus.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.RateLimitConfig, logger *logrus.Logger) *UserRateLimiter {
	if !cfg.Enabled {
		return &UserRateLimiter{enabled: false}
	}

	return &UserRateLimiter{
		enabled:  true,
		limiters: make(map[string]*rate.Limiter),
		rpm:      cfg.RequestsPerMinute,
		burst:    cfg.Burst,
		maxUsers: 10000,
		logger:   logger,
	}
}

// Allow checks if a user is allowed to make a request
func (r *UserRateLimiter) Allow(userID string) bool {
	if !r.enabled {
		return true
	}

	allowed := r.getLimiter(userID).Allow()
	if !allowed {
		r.logger.WithField("user_id", userID).Warn("Rate limit exceeded")
	}

	return allowed
}

// getLimiter gets or creates a rate limiter for a user
func (r *UserRateLimiter) getLimiter(userID string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[userID]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[userID]; exists {
		return limiter
	}

	if len(r.limiters) >= r.maxUsers {
		r.logger.Warn("Rate limiter map size exceeded threshold, clearing")
		r.limiters = make(map[string]*rate.Limiter)
	}

	limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(max(r.rpm, 1))), r.burst)
	r.limiters[userID] = limiter

	return limiter
}
