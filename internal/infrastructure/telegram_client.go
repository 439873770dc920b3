package infrastructure

import (
	"fmt"

	"autoforward/internal/entities"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient wraps the Bot API and implements the three outbound
// primitives the dispatcher needs: plain text, media re-send, native forward.
type TelegramClient struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramClient(token string) *TelegramClient {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		fmt.Printf("Warning: Telegram Bot Token issue: %v. Telegram features disabled.\n", err)
		return &TelegramClient{Bot: nil}
	}
	return &TelegramClient{Bot: bot}
}

func (t *TelegramClient) SendText(chatID int64, text string, showPreview bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = !showPreview
	_, err := t.Bot.Send(msg)
	return err
}

// SendMedia re-sends platform-hosted media by file id with a caption. Sent
// as a new message, so no "forwarded from" header appears.
func (t *TelegramClient) SendMedia(chatID int64, media *entities.MediaRef, caption string, showPreview bool) error {
	file := tgbotapi.FileID(media.FileID)

	var msg tgbotapi.Chattable
	switch media.Kind {
	case entities.MediaPhoto:
		m := tgbotapi.NewPhoto(chatID, file)
		m.Caption = caption
		msg = m
	case entities.MediaVideo:
		m := tgbotapi.NewVideo(chatID, file)
		m.Caption = caption
		msg = m
	case entities.MediaAudio:
		m := tgbotapi.NewAudio(chatID, file)
		m.Caption = caption
		msg = m
	case entities.MediaVoice:
		m := tgbotapi.NewVoice(chatID, file)
		m.Caption = caption
		msg = m
	case entities.MediaAnimation:
		m := tgbotapi.NewAnimation(chatID, file)
		m.Caption = caption
		msg = m
	case entities.MediaSticker:
		// Stickers have no caption; send the sticker, then the text.
		if _, err := t.Bot.Send(tgbotapi.NewSticker(chatID, file)); err != nil {
			return err
		}
		if caption == "" {
			return nil
		}
		return t.SendText(chatID, caption, showPreview)
	default:
		m := tgbotapi.NewDocument(chatID, file)
		m.Caption = caption
		msg = m
	}

	_, err := t.Bot.Send(msg)
	return err
}

func (t *TelegramClient) ForwardNative(fromChatID int64, messageID int, toChatID int64) error {
	_, err := t.Bot.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	return err
}

// EventFromMessage maps an inbound update's message into the dispatcher's
// event shape. Returns nil for updates carrying nothing forwardable.
func EventFromMessage(m *tgbotapi.Message) *entities.MessageEvent {
	if m == nil {
		return nil
	}

	evt := &entities.MessageEvent{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
		Caption:   m.Caption,
		Media:     mediaFromMessage(m),
	}
	if evt.Text == "" && evt.Caption == "" && evt.Media == nil {
		return nil
	}
	return evt
}

func mediaFromMessage(m *tgbotapi.Message) *entities.MediaRef {
	switch {
	case len(m.Photo) > 0:
		// Last photo size is the largest
		return &entities.MediaRef{Kind: entities.MediaPhoto, FileID: m.Photo[len(m.Photo)-1].FileID}
	case m.Video != nil:
		return &entities.MediaRef{Kind: entities.MediaVideo, FileID: m.Video.FileID}
	case m.Document != nil:
		return &entities.MediaRef{Kind: entities.MediaDocument, FileID: m.Document.FileID}
	case m.Audio != nil:
		return &entities.MediaRef{Kind: entities.MediaAudio, FileID: m.Audio.FileID}
	case m.Voice != nil:
		return &entities.MediaRef{Kind: entities.MediaVoice, FileID: m.Voice.FileID}
	case m.Animation != nil:
		return &entities.MediaRef{Kind: entities.MediaAnimation, FileID: m.Animation.FileID}
	case m.Sticker != nil:
		return &entities.MediaRef{Kind: entities.MediaSticker, FileID: m.Sticker.FileID}
	}
	return nil
}
