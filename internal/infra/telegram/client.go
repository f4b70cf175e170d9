// internal/infra/telegram/client.go
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	domainTelegram "homework_portal/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Transport interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

var _ domainTelegram.Transport = (*TelebotAdapter)(nil)

// SendPhotos sends one photo with sendPhoto, or an album with sendMediaGroup
// carrying the caption on its first item.
func (tba *TelebotAdapter) SendPhotos(ctx context.Context, chatID int64, photos []domainTelegram.Upload, caption string) ([]domainTelegram.PhotoMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(photos) == 0 {
		return nil, fmt.Errorf("no photos to send")
	}
	chat := &telebot.Chat{ID: chatID}

	if len(photos) == 1 {
		msg, err := tba.bot.Send(chat, &telebot.Photo{File: telebot.FromReader(photos[0].Reader), Caption: caption})
		if err != nil {
			return nil, fmt.Errorf("sendPhoto failed: %w", err)
		}
		return []domainTelegram.PhotoMessage{toPhotoMessage(msg)}, nil
	}

	album := make(telebot.Album, 0, len(photos))
	for i, p := range photos {
		item := &telebot.Photo{File: telebot.FromReader(p.Reader)}
		if i == 0 {
			item.Caption = caption
		}
		album = append(album, item)
	}
	msgs, err := tba.bot.SendAlbum(chat, album)
	if err != nil {
		return nil, fmt.Errorf("sendMediaGroup failed: %w", err)
	}
	result := make([]domainTelegram.PhotoMessage, 0, len(msgs))
	for i := range msgs {
		result = append(result, toPhotoMessage(&msgs[i]))
	}
	return result, nil
}

func toPhotoMessage(msg *telebot.Message) domainTelegram.PhotoMessage {
	if msg == nil {
		return domainTelegram.PhotoMessage{}
	}
	pm := domainTelegram.PhotoMessage{MessageID: msg.ID}
	if msg.Photo != nil {
		// telebot keeps the largest size of the photo array
		pm.FileID = msg.Photo.FileID
		pm.UniqueID = msg.Photo.UniqueID
	}
	return pm
}

// SendDocument uploads body as a document and returns the new message id.
func (tba *TelebotAdapter) SendDocument(ctx context.Context, chatID int64, fileName, caption string, body []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	doc := &telebot.Document{
		File:     telebot.FromReader(bytes.NewReader(body)),
		FileName: fileName,
		Caption:  caption,
		MIME:     "application/json",
	}
	msg, err := tba.bot.Send(&telebot.Chat{ID: chatID}, doc)
	if err != nil {
		return 0, fmt.Errorf("sendDocument failed: %w", err)
	}
	if msg == nil || msg.ID == 0 {
		return 0, fmt.Errorf("sendDocument returned no message id")
	}
	return msg.ID, nil
}

// Pin pins a message without notifying chat members.
func (tba *TelebotAdapter) Pin(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	if err := tba.bot.Pin(stored, telebot.Silent); err != nil {
		return fmt.Errorf("pinChatMessage failed: %w", err)
	}
	return nil
}

// PinnedDocument reads the chat's pinned message through getChat.
func (tba *TelebotAdapter) PinnedDocument(ctx context.Context, chatID int64) (*domainTelegram.PinnedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chat, err := tba.bot.ChatByID(chatID)
	if err != nil {
		return nil, fmt.Errorf("getChat failed: %w", err)
	}
	pinned := chat.PinnedMessage
	if pinned == nil || pinned.Document == nil || pinned.Document.FileID == "" {
		return nil, nil
	}
	return &domainTelegram.PinnedDocument{MessageID: pinned.ID, FileID: pinned.Document.FileID}, nil
}

// Download resolves fileID with getFile and streams the content.
func (tba *TelebotAdapter) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := tba.bot.File(&telebot.File{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("download of file %s failed: %w", fileID, err)
	}
	return rc, nil
}

// SendMessage sends a plain text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := tba.bot.Send(&telebot.Chat{ID: chatID}, text)
	return err
}
