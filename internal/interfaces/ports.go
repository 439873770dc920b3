package interfaces

import "autoforward/internal/entities"

// Connector is the messaging-platform boundary the dispatcher talks to.
type Connector interface {
	SendText(chatID int64, text string, showPreview bool) error
	SendMedia(chatID int64, media *entities.MediaRef, caption string, showPreview bool) error
	ForwardNative(fromChatID int64, messageID int, toChatID int64) error
}

// ConfigStore is the persistence boundary of the registry. Every method maps
// to exactly one durable write (or one read pass for LoadAll).
type ConfigStore interface {
	LoadAll() (map[int64]*entities.UserConfig, error)
	CreateUser(userID int64, firstName, username string) error
	AddSource(userID int64, ref entities.ChatRef) error
	RemoveSource(userID, chatID int64) error
	AddTarget(userID int64, ref entities.ChatRef) error
	RemoveTarget(userID, chatID int64) error
	SaveSettings(userID int64, s entities.Settings) error
	AddBlacklist(userID int64, keyword string) error
	RemoveBlacklist(userID int64, keyword string) error
	AddWhitelist(userID int64, keyword string) error
	RemoveWhitelist(userID int64, keyword string) error
	AddUsernameReplacement(userID int64, rep entities.Replacement) error
	RemoveUsernameReplacement(userID int64, original string) error
	AddLinkReplacement(userID int64, rep entities.Replacement) error
	RemoveLinkReplacement(userID int64, original string) error
	DeleteUser(userID int64) error
}

// StatsStore persists daily per-user forward counters.
type StatsStore interface {
	IncrementForwarded(userID int64, n int) error
	IncrementDropped(userID int64, n int) error
}

// Pacer throttles outbound deliveries per target chat.
type Pacer interface {
	Wait(chatID int64)
}
