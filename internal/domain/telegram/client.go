package telegram

import (
	"context"
	"io"
)

// Upload is one file handed to the transport.
type Upload struct {
	Name   string
	Reader io.Reader
}

// PhotoMessage describes a delivered photo. FileID is empty when the API
// response carried no photo sizes.
type PhotoMessage struct {
	MessageID int
	FileID    string
	UniqueID  string
}

// PinnedDocument is the document attached to a chat's pinned message.
type PinnedDocument struct {
	MessageID int
	FileID    string
}

// Transport is everything the application needs from the messaging API.
// This keeps the storage and media code independent of the bot library.
type Transport interface {
	SendPhotos(ctx context.Context, chatID int64, photos []Upload, caption string) ([]PhotoMessage, error)
	SendDocument(ctx context.Context, chatID int64, fileName, caption string, body []byte) (int, error)
	Pin(ctx context.Context, chatID int64, messageID int) error
	// PinnedDocument returns nil when the chat has no pinned document.
	PinnedDocument(ctx context.Context, chatID int64) (*PinnedDocument, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}
