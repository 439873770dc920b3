package entities

// MediaKind identifies how a media handle must be re-sent.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAudio     MediaKind = "audio"
	MediaVoice     MediaKind = "voice"
	MediaAnimation MediaKind = "animation"
	MediaSticker   MediaKind = "sticker"
)

// MediaRef is an opaque handle to platform-hosted media, enough to re-send
// it without downloading.
type MediaRef struct {
	Kind   MediaKind
	FileID string
}

// MessageEvent is one inbound message as seen by the dispatcher.
type MessageEvent struct {
	ChatID    int64 // originating chat
	MessageID int
	Text      string // body, empty for pure media
	Caption   string // media caption, if any
	Media     *MediaRef
}

// Payload returns the textual payload: the body, or the caption when the
// message carries media without a body.
func (e *MessageEvent) Payload() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Caption
}
