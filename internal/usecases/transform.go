package usecases

import (
	"regexp"
	"strings"

	"autoforward/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`@\w+`)
	// Whole-token match so a URL is removed entirely or not at all. Covers
	// scheme, authority, path, query and percent-encoding.
	linkPattern = regexp.MustCompile(`https?://[^\s]+`)
)

// Rewrite applies the user's transform chain to text, in fixed order:
// username strip, link strip, username replacements, link replacements.
// Replacement tables are independent of each other; within a table rules
// apply sequentially in registration order. Pure function over the snapshot.
func Rewrite(cfg *entities.UserConfig, text string) string {
	if cfg.Settings.RemoveUsernames {
		text = usernamePattern.ReplaceAllString(text, "")
	}
	if cfg.Settings.RemoveLinks {
		text = linkPattern.ReplaceAllString(text, "")
	}
	for _, rep := range cfg.UserReplacements {
		text = strings.ReplaceAll(text, rep.Original, rep.Replacement)
	}
	for _, rep := range cfg.LinkReplacements {
		text = strings.ReplaceAll(text, rep.Original, rep.Replacement)
	}
	return text
}

// Transform is the user-id form of Rewrite, reading one configuration
// snapshot from the registry.
func (r *Registry) Transform(userID int64, text string) (string, error) {
	cfg, ok := r.Get(userID)
	if !ok {
		return "", ErrConfigNotFound
	}
	return Rewrite(cfg, text), nil
}
