package usecases

import (
	"errors"
	"testing"

	"autoforward/internal/entities"

	"github.com/stretchr/testify/require"
)

// mockStore is an in-memory ConfigStore. Set failAll to make every write
// return an error, for exercising rollback behavior.
type mockStore struct {
	configs map[int64]*entities.UserConfig
	failAll bool
	deletes int
}

func newMockStore() *mockStore {
	return &mockStore{configs: make(map[int64]*entities.UserConfig)}
}

var errStore = errors.New("store down")

func (m *mockStore) write() error {
	if m.failAll {
		return errStore
	}
	return nil
}

func (m *mockStore) LoadAll() (map[int64]*entities.UserConfig, error) {
	if m.failAll {
		return nil, errStore
	}
	out := make(map[int64]*entities.UserConfig, len(m.configs))
	for id, cfg := range m.configs {
		out[id] = cfg.Clone()
	}
	return out, nil
}

func (m *mockStore) CreateUser(userID int64, firstName, username string) error { return m.write() }
func (m *mockStore) AddSource(userID int64, ref entities.ChatRef) error        { return m.write() }
func (m *mockStore) RemoveSource(userID, chatID int64) error                   { return m.write() }
func (m *mockStore) AddTarget(userID int64, ref entities.ChatRef) error        { return m.write() }
func (m *mockStore) RemoveTarget(userID, chatID int64) error                   { return m.write() }
func (m *mockStore) SaveSettings(userID int64, s entities.Settings) error      { return m.write() }
func (m *mockStore) AddBlacklist(userID int64, keyword string) error           { return m.write() }
func (m *mockStore) RemoveBlacklist(userID int64, keyword string) error        { return m.write() }
func (m *mockStore) AddWhitelist(userID int64, keyword string) error           { return m.write() }
func (m *mockStore) RemoveWhitelist(userID int64, keyword string) error        { return m.write() }
func (m *mockStore) AddUsernameReplacement(userID int64, rep entities.Replacement) error {
	return m.write()
}
func (m *mockStore) RemoveUsernameReplacement(userID int64, original string) error { return m.write() }
func (m *mockStore) AddLinkReplacement(userID int64, rep entities.Replacement) error {
	return m.write()
}
func (m *mockStore) RemoveLinkReplacement(userID int64, original string) error { return m.write() }

func (m *mockStore) DeleteUser(userID int64) error {
	if err := m.write(); err != nil {
		return err
	}
	m.deletes++
	delete(m.configs, userID)
	return nil
}

func loadedRegistry(t *testing.T, store *mockStore) *Registry {
	t.Helper()
	r := NewRegistry(store)
	require.NoError(t, r.Load())
	return r
}

func TestRegistry_LoadDefaults(t *testing.T) {
	store := newMockStore()
	store.configs[1] = &entities.UserConfig{UserID: 1, Settings: entities.DefaultSettings()}
	r := loadedRegistry(t, store)

	cfg, ok := r.Get(1)
	require.True(t, ok)
	require.True(t, cfg.Settings.ForwardMedia)
	require.True(t, cfg.Settings.URLPreviews)
	require.False(t, cfg.Settings.HideHeader)
	require.False(t, cfg.Settings.RemoveUsernames)
	require.False(t, cfg.Settings.RemoveLinks)
}

func TestRegistry_EnsureUserIdempotent(t *testing.T) {
	r := loadedRegistry(t, newMockStore())

	require.NoError(t, r.EnsureUser(42, "Ada", "ada"))
	require.NoError(t, r.EnsureUser(42, "Ada", "ada"))

	cfg, ok := r.Get(42)
	require.True(t, ok)
	require.Equal(t, int64(42), cfg.UserID)
}

func TestRegistry_SourceUpsertDedupes(t *testing.T) {
	r := loadedRegistry(t, newMockStore())
	require.NoError(t, r.EnsureUser(1, "", ""))

	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 100, Name: "News"}))
	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 100, Name: "News v2"}))
	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 200, Name: "Other"}))

	cfg, _ := r.Get(1)
	require.Len(t, cfg.Sources, 2)
	require.Equal(t, "News v2", cfg.Sources[0].Name)

	require.NoError(t, r.RemoveSource(1, 100))
	cfg, _ = r.Get(1)
	require.Len(t, cfg.Sources, 1)
	require.Equal(t, int64(200), cfg.Sources[0].ChatID)
}

func TestRegistry_MutationUnknownUser(t *testing.T) {
	r := loadedRegistry(t, newMockStore())
	err := r.UpsertSource(5, entities.ChatRef{ChatID: 1})
	require.ErrorIs(t, err, ErrConfigNotFound)
}

func TestRegistry_PersistenceFailureRollsBack(t *testing.T) {
	store := newMockStore()
	r := loadedRegistry(t, store)
	require.NoError(t, r.EnsureUser(1, "", ""))
	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 100}))

	store.failAll = true
	err := r.UpsertSource(1, entities.ChatRef{ChatID: 200})
	require.ErrorIs(t, err, ErrPersistence)

	// In-memory state must be exactly what it was before the failed edit.
	cfg, _ := r.Get(1)
	require.Len(t, cfg.Sources, 1)
	require.Equal(t, int64(100), cfg.Sources[0].ChatID)

	err = r.UpdateSettings(1, entities.Settings{HideHeader: true})
	require.ErrorIs(t, err, ErrPersistence)
	cfg, _ = r.Get(1)
	require.False(t, cfg.Settings.HideHeader)
}

func TestRegistry_SetEnabledNeedsNoChannels(t *testing.T) {
	r := loadedRegistry(t, newMockStore())
	require.NoError(t, r.EnsureUser(1, "", ""))

	// The flag is stored even with empty lists...
	require.NoError(t, r.SetEnabled(1, true))
	cfg, _ := r.Get(1)
	require.True(t, cfg.Enabled)

	// ...but the user is not active until both lists are non-empty.
	require.False(t, cfg.Active())
	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 100}))
	cfg, _ = r.Get(1)
	require.False(t, cfg.Active())
	require.NoError(t, r.UpsertTarget(1, entities.ChatRef{ChatID: 200}))
	cfg, _ = r.Get(1)
	require.True(t, cfg.Active())
}

func TestRegistry_DeleteUserIdempotent(t *testing.T) {
	store := newMockStore()
	r := loadedRegistry(t, store)
	require.NoError(t, r.EnsureUser(1, "", ""))
	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 100}))

	require.NoError(t, r.DeleteUser(1))
	_, ok := r.Get(1)
	require.False(t, ok)

	// Second delete is a no-op, not an error.
	require.NoError(t, r.DeleteUser(1))
	_, ok = r.Get(1)
	require.False(t, ok)
	require.Equal(t, 2, store.deletes)
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := loadedRegistry(t, newMockStore())
	require.NoError(t, r.EnsureUser(1, "", ""))
	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 100}))

	before, _ := r.Get(1)
	require.NoError(t, r.UpsertSource(1, entities.ChatRef{ChatID: 200}))

	// The snapshot taken before the edit is unchanged.
	require.Len(t, before.Sources, 1)
	after, _ := r.Get(1)
	require.Len(t, after.Sources, 2)
}

func TestRegistry_CandidatesFor(t *testing.T) {
	r := loadedRegistry(t, newMockStore())

	setup := func(id int64, source, target int64, enabled bool) {
		require.NoError(t, r.EnsureUser(id, "", ""))
		if source != 0 {
			require.NoError(t, r.UpsertSource(id, entities.ChatRef{ChatID: source}))
		}
		if target != 0 {
			require.NoError(t, r.UpsertTarget(id, entities.ChatRef{ChatID: target}))
		}
		require.NoError(t, r.SetEnabled(id, enabled))
	}

	setup(1, 100, 200, true)  // candidate
	setup(2, 100, 201, false) // disabled
	setup(3, 101, 202, true)  // different source
	setup(4, 100, 0, true)    // no targets

	candidates := r.CandidatesFor(100)
	require.Len(t, candidates, 1)
	require.Equal(t, int64(1), candidates[0].UserID)
}
