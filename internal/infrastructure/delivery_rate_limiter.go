package infrastructure

import (
	"sync"
	"time"
)

// DeliveryRateLimiter implements token bucket rate limiting per target chat,
// so one busy source cannot trip platform flood limits on a target.
type DeliveryRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[int64]*tokenBucket
	rate        float64 // messages per second
	maxTokens   float64 // burst capacity
	cleanupTick time.Duration
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewDeliveryRateLimiter creates a limiter with specified rate and burst
// rate: deliveries per second allowed per chat
// burst: maximum burst capacity
func NewDeliveryRateLimiter(rate float64, burst int) *DeliveryRateLimiter {
	rl := &DeliveryRateLimiter{
		buckets:     make(map[int64]*tokenBucket),
		rate:        rate,
		maxTokens:   float64(burst),
		cleanupTick: 5 * time.Minute,
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow checks if a delivery to chatID may go out now (consumes 1 token if so)
func (rl *DeliveryRateLimiter) Allow(chatID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[chatID]
	now := time.Now()

	if !exists {
		// Create new bucket with full tokens
		rl.buckets[chatID] = &tokenBucket{
			tokens:     rl.maxTokens - 1, // Consume 1 token
			lastUpdate: now,
		}
		return true
	}

	// Refill tokens based on time elapsed
	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens -= 1
		return true
	}

	return false
}

// waitTime returns how long until the next delivery to chatID is allowed
func (rl *DeliveryRateLimiter) waitTime(chatID int64) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	bucket, exists := rl.buckets[chatID]
	if !exists {
		return 0
	}

	now := time.Now()
	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	currentTokens := bucket.tokens + elapsed*rl.rate

	if currentTokens >= 1 {
		return 0
	}

	needed := 1 - currentTokens
	waitSeconds := needed / rl.rate
	return time.Duration(waitSeconds * float64(time.Second))
}

// Wait blocks until a delivery to chatID is allowed, then consumes a token.
func (rl *DeliveryRateLimiter) Wait(chatID int64) {
	for !rl.Allow(chatID) {
		d := rl.waitTime(chatID)
		if d <= 0 {
			d = 10 * time.Millisecond
		}
		time.Sleep(d)
	}
}

// cleanup removes stale buckets periodically
func (rl *DeliveryRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for chatID, bucket := range rl.buckets {
			// Remove buckets not used in last 10 minutes
			if now.Sub(bucket.lastUpdate) > 10*time.Minute {
				delete(rl.buckets, chatID)
			}
		}
		rl.mu.Unlock()
	}
}

// GetStats returns rate limiter statistics
func (rl *DeliveryRateLimiter) GetStats() map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return map[string]interface{}{
		"active_chats": len(rl.buckets),
		"rate":         rl.rate,
		"burst":        rl.maxTokens,
	}
}
