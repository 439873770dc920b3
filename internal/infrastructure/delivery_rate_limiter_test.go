package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeliveryRateLimiter_Burst(t *testing.T) {
	rl := NewDeliveryRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow(200), "delivery %d should fit in burst", i)
	}
	require.False(t, rl.Allow(200))

	// A different chat has its own bucket.
	require.True(t, rl.Allow(300))
}

func TestDeliveryRateLimiter_Refill(t *testing.T) {
	rl := NewDeliveryRateLimiter(100, 1)

	require.True(t, rl.Allow(200))
	require.False(t, rl.Allow(200))

	time.Sleep(20 * time.Millisecond)
	require.True(t, rl.Allow(200))
}

func TestDeliveryRateLimiter_Wait(t *testing.T) {
	rl := NewDeliveryRateLimiter(50, 1)

	rl.Wait(200)
	start := time.Now()
	rl.Wait(200) // must block until a token refills
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
