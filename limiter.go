package postbook

import (
	"sync"
	"time"
)

// ExportLimiter rate-limits PDF exports per IP address.
type ExportLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewExportLimiter creates an ExportLimiter that allows max exports per window.
func NewExportLimiter(max int, window time.Duration) *ExportLimiter {
	l := &ExportLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *ExportLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for ip, hits := range l.attempts {
			kept := prune(hits, cutoff)
			if len(kept) == 0 {
				delete(l.attempts, ip)
			} else {
				l.attempts[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

// Stop ends the background cleanup.
func (l *ExportLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow checks the limit for ip and, when under it, records the export.
func (l *ExportLimiter) Allow(ip string) bool {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.attempts[ip], cutoff)
	if len(kept) >= l.max {
		l.attempts[ip] = kept
		return false
	}
	l.attempts[ip] = append(kept, time.Now())
	return true
}

// Remaining reports how many exports ip has left in the current window.
func (l *ExportLimiter) Remaining(ip string) int {
	cutoff := time.Now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	live := 0
	for _, t := range l.attempts[ip] {
		if t.After(cutoff) {
			live++
		}
	}
	return max(l.max-live, 0)
}

// prune drops hits at or before cutoff, reusing the backing array. Callers
// must store the result in place of hits.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
