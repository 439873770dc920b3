package infrastructure

import (
	"sync"
	"time"
)

// UserForwardStats tracks live forwarding counters for one user
type UserForwardStats struct {
	UserID        int64     `json:"user_id"`
	Forwarded     int64     `json:"forwarded"`
	Dropped       int64     `json:"dropped"`
	LastForwardAt time.Time `json:"last_forward_at"`
	mu            sync.Mutex
}

// ForwardStats manages per-user forwarding counters globally. Counters reset
// with the process; durable history lives in the stats repository.
type ForwardStats struct {
	users map[int64]*UserForwardStats
	mu    sync.RWMutex
}

func NewForwardStats() *ForwardStats {
	return &ForwardStats{
		users: make(map[int64]*UserForwardStats),
	}
}

func (fs *ForwardStats) getOrCreate(userID int64) *UserForwardStats {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	s, exists := fs.users[userID]
	if !exists {
		s = &UserForwardStats{UserID: userID}
		fs.users[userID] = s
	}
	return s
}

// RecordForwarded adds n successful deliveries for a user
func (fs *ForwardStats) RecordForwarded(userID int64, n int) {
	s := fs.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Forwarded += int64(n)
	s.LastForwardAt = time.Now()
}

// RecordDropped adds n dropped deliveries (filter rejections or send failures)
func (fs *ForwardStats) RecordDropped(userID int64, n int) {
	s := fs.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Dropped += int64(n)
}

// Snapshot returns a copy of a user's live counters
func (fs *ForwardStats) Snapshot(userID int64) UserForwardStats {
	s := fs.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return UserForwardStats{
		UserID:        s.UserID,
		Forwarded:     s.Forwarded,
		Dropped:       s.Dropped,
		LastForwardAt: s.LastForwardAt,
	}
}

// Forget drops a user's counters (called on logout)
func (fs *ForwardStats) Forget(userID int64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.users, userID)
}
