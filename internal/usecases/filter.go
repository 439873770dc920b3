package usecases

import (
	"strings"

	"autoforward/internal/entities"
)

// Passes decides whether text is eligible for forwarding under the user's
// keyword lists. Blacklist wins over whitelist; matching is case-insensitive
// substring. Empty text matches no keyword, so it passes unless a non-empty
// whitelist demands a hit.
func Passes(cfg *entities.UserConfig, text string) bool {
	lower := strings.ToLower(text)

	if text != "" {
		for _, kw := range cfg.Blacklist {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return false
			}
		}
	}

	if len(cfg.Whitelist) == 0 {
		return true
	}
	if text == "" {
		return false
	}
	for _, kw := range cfg.Whitelist {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// PassesFor is the user-id form of Passes.
func (r *Registry) PassesFor(userID int64, text string) (bool, error) {
	cfg, ok := r.Get(userID)
	if !ok {
		return false, ErrConfigNotFound
	}
	return Passes(cfg, text), nil
}
