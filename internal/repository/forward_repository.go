package repository

import (
	"context"
	"fmt"

	"autoforward/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ForwardRepository persists per-user forwarding configuration: channel
// lists, settings flags, keyword lists and replacement tables.
type ForwardRepository struct {
	db *pgxpool.Pool
}

func NewForwardRepository(db *pgxpool.Pool) *ForwardRepository {
	return &ForwardRepository{db: db}
}

// LoadAll reads every user's configuration in one pass. Users without a
// settings row get the defaults (forward media and previews on, strips off).
func (r *ForwardRepository) LoadAll() (map[int64]*entities.UserConfig, error) {
	ctx := context.Background()
	configs := make(map[int64]*entities.UserConfig)

	rows, err := r.db.Query(ctx, "SELECT user_id FROM users")
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		configs[id] = &entities.UserConfig{UserID: id, Settings: entities.DefaultSettings()}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadChannels(ctx, "source_channels", configs, true); err != nil {
		return nil, err
	}
	if err := r.loadChannels(ctx, "target_channels", configs, false); err != nil {
		return nil, err
	}
	if err := r.loadSettings(ctx, configs); err != nil {
		return nil, err
	}
	if err := r.loadKeywords(ctx, "blacklist", configs, true); err != nil {
		return nil, err
	}
	if err := r.loadKeywords(ctx, "whitelist", configs, false); err != nil {
		return nil, err
	}
	if err := r.loadReplacements(ctx, "username_replacements", configs, true); err != nil {
		return nil, err
	}
	if err := r.loadReplacements(ctx, "link_replacements", configs, false); err != nil {
		return nil, err
	}

	return configs, nil
}

func (r *ForwardRepository) loadChannels(ctx context.Context, table string, configs map[int64]*entities.UserConfig, source bool) error {
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		"SELECT user_id, channel_id, channel_name FROM %s ORDER BY added_at", table))
	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var ref entities.ChatRef
		if err := rows.Scan(&userID, &ref.ChatID, &ref.Name); err != nil {
			return err
		}
		cfg, ok := configs[userID]
		if !ok {
			continue // orphan row, user deleted mid-scan
		}
		if source {
			cfg.Sources = append(cfg.Sources, ref)
		} else {
			cfg.Targets = append(cfg.Targets, ref)
		}
	}
	return rows.Err()
}

func (r *ForwardRepository) loadSettings(ctx context.Context, configs map[int64]*entities.UserConfig) error {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, hide_header, forward_media, url_previews, remove_usernames, remove_links
		FROM user_settings`)
	if err != nil {
		return fmt.Errorf("load user_settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var s entities.Settings
		if err := rows.Scan(&userID, &s.HideHeader, &s.ForwardMedia, &s.URLPreviews, &s.RemoveUsernames, &s.RemoveLinks); err != nil {
			return err
		}
		if cfg, ok := configs[userID]; ok {
			cfg.Settings = s
		}
	}
	return rows.Err()
}

func (r *ForwardRepository) loadKeywords(ctx context.Context, table string, configs map[int64]*entities.UserConfig, black bool) error {
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT user_id, keyword FROM %s", table))
	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var keyword string
		if err := rows.Scan(&userID, &keyword); err != nil {
			return err
		}
		cfg, ok := configs[userID]
		if !ok {
			continue
		}
		if black {
			cfg.Blacklist = append(cfg.Blacklist, keyword)
		} else {
			cfg.Whitelist = append(cfg.Whitelist, keyword)
		}
	}
	return rows.Err()
}

func (r *ForwardRepository) loadReplacements(ctx context.Context, table string, configs map[int64]*entities.UserConfig, usernames bool) error {
	// id order preserves registration order, which replacement
	// application depends on.
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		"SELECT user_id, original, replacement FROM %s ORDER BY id", table))
	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var rep entities.Replacement
		if err := rows.Scan(&userID, &rep.Original, &rep.Replacement); err != nil {
			return err
		}
		cfg, ok := configs[userID]
		if !ok {
			continue
		}
		if usernames {
			cfg.UserReplacements = append(cfg.UserReplacements, rep)
		} else {
			cfg.LinkReplacements = append(cfg.LinkReplacements, rep)
		}
	}
	return rows.Err()
}

// CreateUser registers a user on first login. Idempotent.
func (r *ForwardRepository) CreateUser(userID int64, firstName, username string) error {
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO users (user_id, first_name, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET first_name = EXCLUDED.first_name, username = EXCLUDED.username
	`, userID, firstName, username)
	return err
}

func (r *ForwardRepository) addChannel(table string, userID int64, ref entities.ChatRef) error {
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (user_id, channel_id, channel_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET channel_name = EXCLUDED.channel_name
	`, table), userID, ref.ChatID, ref.Name)
	return err
}

func (r *ForwardRepository) removeChannel(table string, userID, chatID int64) error {
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(
		"DELETE FROM %s WHERE user_id = $1 AND channel_id = $2", table), userID, chatID)
	return err
}

func (r *ForwardRepository) AddSource(userID int64, ref entities.ChatRef) error {
	return r.addChannel("source_channels", userID, ref)
}

func (r *ForwardRepository) RemoveSource(userID, chatID int64) error {
	return r.removeChannel("source_channels", userID, chatID)
}

func (r *ForwardRepository) AddTarget(userID int64, ref entities.ChatRef) error {
	return r.addChannel("target_channels", userID, ref)
}

func (r *ForwardRepository) RemoveTarget(userID, chatID int64) error {
	return r.removeChannel("target_channels", userID, chatID)
}

func (r *ForwardRepository) SaveSettings(userID int64, s entities.Settings) error {
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO user_settings (user_id, hide_header, forward_media, url_previews, remove_usernames, remove_links)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			hide_header = EXCLUDED.hide_header,
			forward_media = EXCLUDED.forward_media,
			url_previews = EXCLUDED.url_previews,
			remove_usernames = EXCLUDED.remove_usernames,
			remove_links = EXCLUDED.remove_links
	`, userID, s.HideHeader, s.ForwardMedia, s.URLPreviews, s.RemoveUsernames, s.RemoveLinks)
	return err
}

func (r *ForwardRepository) addKeyword(table string, userID int64, keyword string) error {
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (user_id, keyword) VALUES ($1, $2)
		ON CONFLICT (user_id, keyword) DO NOTHING
	`, table), userID, keyword)
	return err
}

func (r *ForwardRepository) removeKeyword(table string, userID int64, keyword string) error {
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(
		"DELETE FROM %s WHERE user_id = $1 AND keyword = $2", table), userID, keyword)
	return err
}

func (r *ForwardRepository) AddBlacklist(userID int64, keyword string) error {
	return r.addKeyword("blacklist", userID, keyword)
}

func (r *ForwardRepository) RemoveBlacklist(userID int64, keyword string) error {
	return r.removeKeyword("blacklist", userID, keyword)
}

func (r *ForwardRepository) AddWhitelist(userID int64, keyword string) error {
	return r.addKeyword("whitelist", userID, keyword)
}

func (r *ForwardRepository) RemoveWhitelist(userID int64, keyword string) error {
	return r.removeKeyword("whitelist", userID, keyword)
}

func (r *ForwardRepository) addReplacement(table string, userID int64, rep entities.Replacement) error {
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(`
		INSERT INTO %s (user_id, original, replacement) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, original) DO UPDATE SET replacement = EXCLUDED.replacement
	`, table), userID, rep.Original, rep.Replacement)
	return err
}

func (r *ForwardRepository) removeReplacement(table string, userID int64, original string) error {
	_, err := r.db.Exec(context.Background(), fmt.Sprintf(
		"DELETE FROM %s WHERE user_id = $1 AND original = $2", table), userID, original)
	return err
}

func (r *ForwardRepository) AddUsernameReplacement(userID int64, rep entities.Replacement) error {
	return r.addReplacement("username_replacements", userID, rep)
}

func (r *ForwardRepository) RemoveUsernameReplacement(userID int64, original string) error {
	return r.removeReplacement("username_replacements", userID, original)
}

func (r *ForwardRepository) AddLinkReplacement(userID int64, rep entities.Replacement) error {
	return r.addReplacement("link_replacements", userID, rep)
}

func (r *ForwardRepository) RemoveLinkReplacement(userID int64, original string) error {
	return r.removeReplacement("link_replacements", userID, original)
}

// DeleteUser removes every row keyed by userID, in one transaction so a
// logout never leaves partial state behind. Idempotent.
func (r *ForwardRepository) DeleteUser(userID int64) error {
	ctx := context.Background()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"source_channels", "target_channels", "user_settings",
		"blacklist", "whitelist", "username_replacements",
		"link_replacements", "forward_stats", "users",
	}
	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", table), userID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return tx.Commit(ctx)
}
