package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// limits configures a failureRateLimiter.
type limits struct {
	maxFailures int
	baseLockout time.Duration
	maxLockout  time.Duration
	expiry      time.Duration
}

var (
	// licenseLimits guard a single stored license against password guessing.
	licenseLimits = limits{
		maxFailures: 5,
		baseLockout: 1 * time.Minute,
		maxLockout:  15 * time.Minute,
		expiry:      1 * time.Hour,
	}
	// ipLimits guard against one client probing many licenses.
	ipLimits = limits{
		maxFailures: 20,
		baseLockout: 1 * time.Minute,
		maxLockout:  30 * time.Minute,
		expiry:      1 * time.Hour,
	}
)

// failureRateLimiter tracks failed validations per key and enforces
// exponential backoff once limits.maxFailures is reached.
type failureRateLimiter struct {
	limits   limits
	mu       sync.Mutex
	attempts map[string]*attemptRecord
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

func newFailureRateLimiter(l limits) *failureRateLimiter {
	return &failureRateLimiter{
		limits:   l,
		attempts: make(map[string]*attemptRecord),
	}
}

// check returns true if key is currently locked out, along with how long the
// caller should wait.
func (rl *failureRateLimiter) check(key string) (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[key]
	if !ok {
		return false, 0
	}
	if time.Since(rec.lastFailure) > rl.limits.expiry {
		delete(rl.attempts, key)
		return false, 0
	}
	if time.Now().Before(rec.lockedUntil) {
		return true, time.Until(rec.lockedUntil)
	}
	return false, 0
}

func (rl *failureRateLimiter) recordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[key]
	if !ok {
		rec = &attemptRecord{}
		rl.attempts[key] = rec
	}
	rec.failures++
	rec.lastFailure = time.Now()

	if rec.failures >= rl.limits.maxFailures {
		// baseLockout * 2^(failures - maxFailures), capped
		lockout := rl.limits.baseLockout
		for i := 0; i < rec.failures-rl.limits.maxFailures; i++ {
			lockout *= 2
			if lockout > rl.limits.maxLockout {
				lockout = rl.limits.maxLockout
				break
			}
		}
		rec.lockedUntil = time.Now().Add(lockout)
	}
}

func (rl *failureRateLimiter) recordSuccess(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, key)
}

// sweep removes expired records.
func (rl *failureRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, rec := range rl.attempts {
		if now.Sub(rec.lastFailure) > rl.limits.expiry {
			delete(rl.attempts, key)
		}
	}
}

// writeRateLimited sends a 429 Too Many Requests response.
func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	writeError(w, http.StatusTooManyRequests, "too many failed validations; try again later")
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP returns the host part of the request's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
