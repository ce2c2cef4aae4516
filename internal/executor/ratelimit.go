package executor

import "time"

// RateLimiter caps executions per calendar hour (UTC). The counter lives in
// memory only: a restart resets the budget, which under-limits but never
// over-limits.
type RateLimiter struct {
	cap    int
	bucket string
	count  int
	now    func() time.Time
}

// NewRateLimiter returns a limiter allowing cap actions per hour bucket.
func NewRateLimiter(cap int) *RateLimiter {
	return &RateLimiter{cap: cap, now: time.Now}
}

// Allow consumes one unit of budget if any remains in the current hour.
func (r *RateLimiter) Allow() bool {
	bucket := r.now().UTC().Format("2006-01-02T15")
	if bucket != r.bucket {
		r.bucket = bucket
		r.count = 0
	}
	if r.count >= r.cap {
		return false
	}
	r.count++
	return true
}

// Remaining reports how much budget is left in the current hour.
func (r *RateLimiter) Remaining() int {
	bucket := r.now().UTC().Format("2006-01-02T15")
	if bucket != r.bucket {
		return r.cap
	}
	if left := r.cap - r.count; left > 0 {
		return left
	}
	return 0
}
