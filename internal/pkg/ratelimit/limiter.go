package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Result is the outcome of a single CheckAndConsume call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter implements a fixed-window counter over an injected Store. The
// window resets entirely at its boundary; the classic up-to-2x burst
// across that boundary is an accepted trade-off for O(1) checks.
type Limiter struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// New creates a limiter over the given store.
func New(store Store) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
	}
}

// CheckAndConsume admits or rejects one request for key. The mutex makes
// read-increment-write atomic, so two concurrent requests cannot both
// observe count < max and slip past the limit. Once the counter hits
// maxRequests it stops incrementing.
func (l *Limiter) CheckAndConsume(key string, maxRequests int, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, err := l.store.Get(key)
	if err != nil {
		return Result{}, err
	}

	if w == nil || now.After(w.ResetAt) {
		// First request in a fresh window.
		w = &Window{Count: 1, ResetAt: now.Add(window)}
		if err := l.store.Set(key, w, window+time.Minute); err != nil {
			return Result{}, err
		}
		return Result{Allowed: true, Limit: maxRequests, Remaining: maxRequests - 1, ResetAt: w.ResetAt}, nil
	}

	if w.Count >= maxRequests {
		return Result{Allowed: false, Limit: maxRequests, Remaining: 0, ResetAt: w.ResetAt}, nil
	}

	w.Count++
	if err := l.store.Set(key, w, time.Until(w.ResetAt)+time.Minute); err != nil {
		return Result{}, err
	}
	return Result{Allowed: true, Limit: maxRequests, Remaining: maxRequests - w.Count, ResetAt: w.ResetAt}, nil
}

// DeriveKey fingerprints a caller for one endpoint. The User-Agent is
// reduced to a short hash so trivial UA variations do not fragment the
// limit, while still separating obviously different clients behind one IP.
func DeriveKey(endpoint, ip, userAgent string) string {
	if ip == "" {
		ip = "unknown"
	}
	sum := sha256.Sum256([]byte(userAgent))
	return endpoint + ":" + ip + ":" + hex.EncodeToString(sum[:])[:8]
}
