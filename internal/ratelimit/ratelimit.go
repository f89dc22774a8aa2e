package ratelimit

import (
	"sync"
	"time"
)

// Config interface for rate limiting configuration
type Config interface {
	GetDisableRateLimit() bool
}

// Result contains the outcome of a rate limit check
type Result struct {
	ShouldBlock   bool
	RemainingTime time.Duration
	Reason        string
}

// triggerCooldown is how long an owner waits between manual extraction runs.
// Scheduled runs are not subject to it.
const triggerCooldown = 5 * time.Minute

// TriggerLimiter rate limits manual extraction triggers per owner.
type TriggerLimiter struct {
	config Config
	now    func() time.Time

	mu           sync.Mutex
	lastTriggers map[string]time.Time
}

// NewTriggerLimiter creates a per-owner manual trigger limiter.
func NewTriggerLimiter(config Config) *TriggerLimiter {
	return &TriggerLimiter{
		config:       config,
		now:          time.Now,
		lastTriggers: make(map[string]time.Time),
	}
}

// Check reports whether a manual trigger for the owner should be blocked.
// A permitted check records the trigger time.
func (l *TriggerLimiter) Check(ownerID string, isForced bool) Result {
	if l.config.GetDisableRateLimit() {
		return Result{Reason: "rate_limiting_disabled"}
	}

	if isForced {
		return Result{Reason: "forced_trigger"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.lastTriggers[ownerID]
	if !ok {
		l.lastTriggers[ownerID] = l.now()
		return Result{Reason: "no_previous_trigger"}
	}

	elapsed := l.now().Sub(last)
	if elapsed < triggerCooldown {
		return Result{
			ShouldBlock:   true,
			RemainingTime: triggerCooldown - elapsed,
			Reason:        "cooldown_active",
		}
	}

	l.lastTriggers[ownerID] = l.now()
	return Result{Reason: "cooldown_passed"}
}

// CooldownDuration returns the manual trigger cooldown.
func CooldownDuration() time.Duration {
	return triggerCooldown
}
