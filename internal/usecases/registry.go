package usecases

import (
	"errors"
	"fmt"
	"sync"

	"autoforward/internal/entities"
	"autoforward/internal/interfaces"
)

var (
	// ErrConfigNotFound is returned for operations on a user with no configuration.
	ErrConfigNotFound = errors.New("user configuration not found")
	// ErrPersistence wraps store failures; the in-memory state is untouched when it is returned.
	ErrPersistence = errors.New("persistence failure")
)

// Registry is the in-memory, multi-tenant cache of user configurations. It is
// loaded from the store at startup and every mutation persists synchronously
// before the cached state is swapped, so the cache never runs ahead of disk.
//
// Values in the map are immutable snapshots: mutations clone, persist, then
// swap the pointer. Readers therefore always see a consistent configuration
// without holding any lock beyond the map access itself.
type Registry struct {
	store interfaces.ConfigStore

	mu    sync.RWMutex
	users map[int64]*entities.UserConfig

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex // serializes mutations per user
}

func NewRegistry(store interfaces.ConfigStore) *Registry {
	return &Registry{
		store: store,
		users: make(map[int64]*entities.UserConfig),
		locks: make(map[int64]*sync.Mutex),
	}
}

// Load reads every persisted user's configuration in one pass. Called once at
// startup, before the dispatcher sees any traffic.
func (r *Registry) Load() error {
	configs, err := r.store.LoadAll()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	r.mu.Lock()
	r.users = configs
	r.mu.Unlock()
	return nil
}

// Get returns the user's configuration snapshot. Callers must not mutate it.
func (r *Registry) Get(userID int64) (*entities.UserConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.users[userID]
	return cfg, ok
}

// All returns a snapshot slice of every user's configuration.
func (r *Registry) All() []*entities.UserConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.UserConfig, 0, len(r.users))
	for _, cfg := range r.users {
		out = append(out, cfg)
	}
	return out
}

// CandidatesFor returns the users eligible to forward a message originating
// in chatID: forwarding enabled, both lists non-empty, chat in source list.
func (r *Registry) CandidatesFor(chatID int64) []*entities.UserConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entities.UserConfig
	for _, cfg := range r.users {
		if cfg.Active() && cfg.HasSource(chatID) {
			out = append(out, cfg)
		}
	}
	return out
}

func (r *Registry) userLock(userID int64) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	lock, ok := r.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}
	return lock
}

// mutate clones the user's config, applies the edit, persists it, and only
// then swaps the cached pointer. A store failure leaves the cache as it was,
// which is the rollback contract.
func (r *Registry) mutate(userID int64, apply func(*entities.UserConfig), persist func() error) error {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	cur, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return ErrConfigNotFound
	}

	next := cur.Clone()
	apply(next)

	if persist != nil {
		if err := persist(); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	r.mu.Lock()
	r.users[userID] = next
	r.mu.Unlock()
	return nil
}

// EnsureUser creates a configuration for a user on first login. Idempotent;
// an existing user just gets their display fields refreshed.
func (r *Registry) EnsureUser(userID int64, firstName, username string) error {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := r.store.CreateUser(userID, firstName, username); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	r.mu.Lock()
	if _, ok := r.users[userID]; !ok {
		r.users[userID] = &entities.UserConfig{
			UserID:   userID,
			Settings: entities.DefaultSettings(),
		}
	}
	r.mu.Unlock()
	return nil
}

func upsertChannel(list []entities.ChatRef, ref entities.ChatRef) []entities.ChatRef {
	for i := range list {
		if list[i].ChatID == ref.ChatID {
			list[i].Name = ref.Name
			return list
		}
	}
	return append(list, ref)
}

func removeChannel(list []entities.ChatRef, chatID int64) []entities.ChatRef {
	out := list[:0]
	for _, c := range list {
		if c.ChatID != chatID {
			out = append(out, c)
		}
	}
	return out
}

// UpsertSource adds a source chat, or refreshes its cached name if already present.
func (r *Registry) UpsertSource(userID int64, ref entities.ChatRef) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Sources = upsertChannel(c.Sources, ref) },
		func() error { return r.store.AddSource(userID, ref) })
}

func (r *Registry) RemoveSource(userID, chatID int64) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Sources = removeChannel(c.Sources, chatID) },
		func() error { return r.store.RemoveSource(userID, chatID) })
}

// UpsertTarget adds a target chat, or refreshes its cached name if already present.
func (r *Registry) UpsertTarget(userID int64, ref entities.ChatRef) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Targets = upsertChannel(c.Targets, ref) },
		func() error { return r.store.AddTarget(userID, ref) })
}

func (r *Registry) RemoveTarget(userID, chatID int64) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Targets = removeChannel(c.Targets, chatID) },
		func() error { return r.store.RemoveTarget(userID, chatID) })
}

func (r *Registry) UpdateSettings(userID int64, s entities.Settings) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Settings = s },
		func() error { return r.store.SaveSettings(userID, s) })
}

// SetEnabled toggles forwarding for the session. The flag lives in memory
// only: forwarding always starts switched off after a restart, and the
// dispatcher additionally requires non-empty channel lists either way.
func (r *Registry) SetEnabled(userID int64, enabled bool) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Enabled = enabled },
		nil)
}

func appendKeyword(list []string, keyword string) []string {
	for _, k := range list {
		if k == keyword {
			return list
		}
	}
	return append(list, keyword)
}

func removeKeyword(list []string, keyword string) []string {
	out := list[:0]
	for _, k := range list {
		if k != keyword {
			out = append(out, k)
		}
	}
	return out
}

func (r *Registry) AddBlacklist(userID int64, keyword string) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Blacklist = appendKeyword(c.Blacklist, keyword) },
		func() error { return r.store.AddBlacklist(userID, keyword) })
}

func (r *Registry) RemoveBlacklist(userID int64, keyword string) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Blacklist = removeKeyword(c.Blacklist, keyword) },
		func() error { return r.store.RemoveBlacklist(userID, keyword) })
}

func (r *Registry) AddWhitelist(userID int64, keyword string) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Whitelist = appendKeyword(c.Whitelist, keyword) },
		func() error { return r.store.AddWhitelist(userID, keyword) })
}

func (r *Registry) RemoveWhitelist(userID int64, keyword string) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.Whitelist = removeKeyword(c.Whitelist, keyword) },
		func() error { return r.store.RemoveWhitelist(userID, keyword) })
}

func upsertReplacement(list []entities.Replacement, rep entities.Replacement) []entities.Replacement {
	for i := range list {
		if list[i].Original == rep.Original {
			list[i].Replacement = rep.Replacement
			return list
		}
	}
	return append(list, rep)
}

func removeReplacement(list []entities.Replacement, original string) []entities.Replacement {
	out := list[:0]
	for _, rep := range list {
		if rep.Original != original {
			out = append(out, rep)
		}
	}
	return out
}

func (r *Registry) AddUsernameReplacement(userID int64, rep entities.Replacement) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.UserReplacements = upsertReplacement(c.UserReplacements, rep) },
		func() error { return r.store.AddUsernameReplacement(userID, rep) })
}

func (r *Registry) RemoveUsernameReplacement(userID int64, original string) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.UserReplacements = removeReplacement(c.UserReplacements, original) },
		func() error { return r.store.RemoveUsernameReplacement(userID, original) })
}

func (r *Registry) AddLinkReplacement(userID int64, rep entities.Replacement) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.LinkReplacements = upsertReplacement(c.LinkReplacements, rep) },
		func() error { return r.store.AddLinkReplacement(userID, rep) })
}

func (r *Registry) RemoveLinkReplacement(userID int64, original string) error {
	return r.mutate(userID,
		func(c *entities.UserConfig) { c.LinkReplacements = removeReplacement(c.LinkReplacements, original) },
		func() error { return r.store.RemoveLinkReplacement(userID, original) })
}

// DeleteUser removes all in-memory and persisted state for a user (logout).
// Idempotent: deleting an absent user is not an error.
func (r *Registry) DeleteUser(userID int64) error {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := r.store.DeleteUser(userID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()

	r.lockMu.Lock()
	delete(r.locks, userID)
	r.lockMu.Unlock()
	return nil
}
