package http

import (
	"math"
	"sync"
	"time"
)

const (
	bucketCleanupThreshold = 1 * time.Hour
	cleanupInterval        = 30 * time.Minute
)

type clientBucket struct {
	tokens  float64
	updated time.Time
}

// RateLimiter is a per-client token bucket. A bucket holds at most capacity
// tokens and refills continuously at capacity tokens per refill window.
type RateLimiter struct {
	mu          sync.Mutex
	capacity    int
	refillDur   time.Duration
	clients     map[string]*clientBucket
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func NewRateLimiter(capacity int, refillDur time.Duration) *RateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	rl := &RateLimiter{
		capacity:    capacity,
		refillDur:   refillDur,
		clients:     make(map[string]*clientBucket),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (r *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for client, bucket := range r.clients {
		if now.Sub(bucket.updated) > bucketCleanupThreshold {
			delete(r.clients, client)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCleanup) })
}

func (r *RateLimiter) Allow(client string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, exists := r.clients[client]

	if !exists {
		r.clients[client] = &clientBucket{
			tokens:  float64(r.capacity) - 1,
			updated: now,
		}
		return true
	}

	r.refill(bucket, now)
	if bucket.tokens < 1 {
		return false
	}

	bucket.tokens--
	return true
}

// RetryAfter reports how long client must wait for its next token.
func (r *RateLimiter) RetryAfter(client string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, exists := r.clients[client]
	if !exists {
		return 0
	}
	r.refill(bucket, r.now())
	if bucket.tokens >= 1 {
		return 0
	}
	return time.Duration(math.Ceil((1 - bucket.tokens) * float64(r.tokenInterval())))
}

func (r *RateLimiter) refill(bucket *clientBucket, now time.Time) {
	elapsed := now.Sub(bucket.updated)
	if elapsed <= 0 {
		return
	}
	bucket.tokens = math.Min(float64(r.capacity), bucket.tokens+float64(elapsed)/float64(r.tokenInterval()))
	bucket.updated = now
}

// tokenInterval is the time it takes to earn one token.
func (r *RateLimiter) tokenInterval() time.Duration {
	return r.refillDur / time.Duration(r.capacity)
}
