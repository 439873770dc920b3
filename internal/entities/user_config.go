package entities

// ChatRef points at a chat on the platform. The chat itself lives on
// Telegram; we only cache its id and last known title.
type ChatRef struct {
	ChatID int64  `json:"chat_id"`
	Name   string `json:"name"`
}

// Settings are the per-user forwarding flags.
type Settings struct {
	HideHeader      bool `json:"hide_header"`      // Suppress "forwarded from" attribution
	ForwardMedia    bool `json:"forward_media"`    // Relay media messages at all
	URLPreviews     bool `json:"url_previews"`     // Link previews on outgoing text
	RemoveUsernames bool `json:"remove_usernames"` // Strip @mentions from text
	RemoveLinks     bool `json:"remove_links"`     // Strip http/https URLs from text
}

// DefaultSettings are applied when a user has no persisted settings row.
func DefaultSettings() Settings {
	return Settings{
		ForwardMedia: true,
		URLPreviews:  true,
	}
}

// Replacement is one ordered rewrite rule. Rules within a table apply
// sequentially: later rules see the output of earlier ones.
type Replacement struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// UserConfig is the full forwarding configuration of one user.
type UserConfig struct {
	UserID           int64         `json:"user_id"`
	Sources          []ChatRef     `json:"sources"`
	Targets          []ChatRef     `json:"targets"`
	Settings         Settings      `json:"settings"`
	Enabled          bool          `json:"enabled"`
	Blacklist        []string      `json:"blacklist"`
	Whitelist        []string      `json:"whitelist"`
	UserReplacements []Replacement `json:"username_replacements"`
	LinkReplacements []Replacement `json:"link_replacements"`
}

// HasSource reports whether chatID is in the user's source list.
func (c *UserConfig) HasSource(chatID int64) bool {
	for _, ref := range c.Sources {
		if ref.ChatID == chatID {
			return true
		}
	}
	return false
}

// Active reports whether the dispatcher should forward for this user.
// The enabled flag alone is not enough: both channel lists must be non-empty.
func (c *UserConfig) Active() bool {
	return c.Enabled && len(c.Sources) > 0 && len(c.Targets) > 0
}

// Clone returns a deep copy. The registry hands out immutable snapshots and
// mutates clones, so shared slices must not leak between them.
func (c *UserConfig) Clone() *UserConfig {
	cp := *c
	cp.Sources = append([]ChatRef(nil), c.Sources...)
	cp.Targets = append([]ChatRef(nil), c.Targets...)
	cp.Blacklist = append([]string(nil), c.Blacklist...)
	cp.Whitelist = append([]string(nil), c.Whitelist...)
	cp.UserReplacements = append([]Replacement(nil), c.UserReplacements...)
	cp.LinkReplacements = append([]Replacement(nil), c.LinkReplacements...)
	return &cp
}
