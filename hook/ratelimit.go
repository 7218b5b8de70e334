package hook

import (
	"sync"
	"time"
)

const (
	// _defaultExpiryWindowMultiplier defines how many window periods to wait before cleaning up inactive limiters.
	_defaultExpiryWindowMultiplier = 3
	// _defaultCleanupInterval scales the cleanup period relative to the window duration.
	_defaultCleanupInterval = 2
)

// RateLimitHook throttles CONNECT attempts per remote address within a
// fixed window that starts at an address's first attempt and restarts at
// its first attempt after the window has elapsed. It is a connection-admission policy, not a PUBLISH
// flow-control credit window: the driver calls Allow directly during the
// handshake, before a CONNACK is ever sent, and maps ErrRateLimitExceeded
// to DISCONNECT reason ServerBusy (0x89). It registers with a Manager like
// any other Hook but Provides no events of its own — admission happens
// outside the fan-out, ahead of authentication.
type RateLimitHook struct {
	*Base
	mu           sync.RWMutex
	limiters     map[string]*rateLimiter
	maxRate      int
	window       time.Duration
	cleanupTimer *time.Timer
}

type rateLimiter struct {
	count       int
	windowStart time.Time
	lastAccess  time.Time
}

// NewRateLimitHook creates a new CONNECT rate limiting hook.
// maxRate: maximum number of CONNECT attempts allowed per address per window.
// window: the length of each fixed window (e.g. one minute).
func NewRateLimitHook(maxRate int, window time.Duration) *RateLimitHook {
	h := &RateLimitHook{
		Base:     &Base{id: "rate-limit"},
		limiters: make(map[string]*rateLimiter),
		maxRate:  maxRate,
		window:   window,
	}
	h.startCleanup()
	return h
}

// ID returns the hook identifier.
func (h *RateLimitHook) ID() string {
	return h.id
}

// Stop stops the cleanup timer.
func (h *RateLimitHook) Stop() error {
	if h.cleanupTimer != nil {
		h.cleanupTimer.Stop()
	}
	return nil
}

// Allow records a CONNECT attempt from addr and reports ErrRateLimitExceeded
// if it would exceed maxRate within the current window.
func (h *RateLimitHook) Allow(addr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	limiter, exists := h.limiters[addr]

	if !exists || now.Sub(limiter.windowStart) > h.window {
		h.limiters[addr] = &rateLimiter{
			count:       1,
			windowStart: now,
			lastAccess:  now,
		}
		if h.maxRate < 1 {
			return ErrRateLimitExceeded
		}
		return nil
	}

	limiter.lastAccess = now
	limiter.count++

	if limiter.count > h.maxRate {
		return ErrRateLimitExceeded
	}

	return nil
}

// SetMaxRate updates the maximum rate limit.
func (h *RateLimitHook) SetMaxRate(maxRate int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxRate = maxRate
}

// SetWindow updates the time window.
func (h *RateLimitHook) SetWindow(window time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.window = window
}

// GetMaxRate returns the current maximum rate.
func (h *RateLimitHook) GetMaxRate() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.maxRate
}

// GetWindow returns the current time window.
func (h *RateLimitHook) GetWindow() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.window
}

// GetAddrCount returns the current attempt count for a specific address.
func (h *RateLimitHook) GetAddrCount(addr string) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	limiter, exists := h.limiters[addr]
	if !exists {
		return 0, false
	}
	return limiter.count, true
}

// ResetAddr resets the rate limit for a specific address.
func (h *RateLimitHook) ResetAddr(addr string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.limiters, addr)
}

// ResetAll resets all rate limiters.
func (h *RateLimitHook) ResetAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limiters = make(map[string]*rateLimiter)
}

// ActiveAddrs returns the number of addresses currently being tracked.
func (h *RateLimitHook) ActiveAddrs() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.limiters)
}

// startCleanup starts a background goroutine to clean up old limiters.
func (h *RateLimitHook) startCleanup() {
	cleanupInterval := h.window * _defaultCleanupInterval
	if cleanupInterval < time.Minute {
		cleanupInterval = time.Minute
	}

	h.cleanupTimer = time.AfterFunc(cleanupInterval, func() {
		h.cleanup()
		h.startCleanup()
	})
}

// cleanup removes limiters that haven't been accessed recently.
func (h *RateLimitHook) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	expiry := h.window * _defaultExpiryWindowMultiplier

	for addr, limiter := range h.limiters {
		if now.Sub(limiter.lastAccess) > expiry {
			delete(h.limiters, addr)
		}
	}
}
