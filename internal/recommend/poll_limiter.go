package recommend

import (
	"sync"
	"time"
)

const pollLimitWindow = 1 * time.Second

// pollLimiter throttles status polling per run so clients cannot
// hammer the store while waiting for completion.
type pollLimiter struct {
	mu        sync.Mutex
	lastHit   map[string]time.Time
	lastPrune time.Time
	now       func() time.Time
	window    time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit: make(map[string]time.Time),
		now:     now,
		window:  window,
	}
}

func (l *pollLimiter) Allow(runID string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)
	if last, ok := l.lastHit[runID]; ok {
		if now.Sub(last) < l.window {
			return false
		}
	}
	l.lastHit[runID] = now
	return true
}

// pruneLocked drops entries whose window has already elapsed so the map
// does not retain every run ID ever polled. At most one sweep per window.
func (l *pollLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	for runID, last := range l.lastHit {
		if now.Sub(last) >= l.window {
			delete(l.lastHit, runID)
		}
	}
	l.lastPrune = now
}

func (l *pollLimiter) RetryAfterSeconds() int {
	if l == nil {
		return int(pollLimitWindow.Seconds())
	}
	return int(l.window.Seconds())
}
