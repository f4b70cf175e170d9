package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"homework_portal/internal/domain/homework"
	domainTelegram "homework_portal/internal/domain/telegram"
)

const (
	dataFileCaption = "HOMEWORK_DATA"
	dataFilePattern = "homework-data-%d.json"
)

// ChatStore keeps the data file as the pinned document of a storage chat.
// Each save posts a new document and pins it; older pins stay in the chat.
//
// The revision check and the pin are two separate API calls, so two writers
// racing inside that window can still both succeed.
type ChatStore struct {
	transport domainTelegram.Transport
	chatID    int64
	now       func() time.Time
}

func NewChatStore(transport domainTelegram.Transport, chatID int64) *ChatStore {
	return &ChatStore{transport: transport, chatID: chatID, now: time.Now}
}

func (s *ChatStore) Load(ctx context.Context) (*homework.Snapshot, error) {
	pinned, err := s.transport.PinnedDocument(ctx, s.chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to read pinned data file: %w", err)
	}
	if pinned == nil {
		return loadOrBootstrap(ctx, s, nil, "", s.now())
	}

	body, err := s.transport.Download(ctx, pinned.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download data file: %w", err)
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return loadOrBootstrap(ctx, s, raw, strconv.Itoa(pinned.MessageID), s.now())
}

func (s *ChatStore) Save(ctx context.Context, data *homework.DataFile, expectedRevision string) (string, error) {
	current, err := s.currentRevision(ctx)
	if err != nil {
		return "", err
	}
	if current != expectedRevision {
		return "", fmt.Errorf("%w: pinned %q, expected %q", homework.ErrRevisionConflict, current, expectedRevision)
	}

	now := s.now()
	encoded, err := prepare(data, now)
	if err != nil {
		return "", err
	}
	messageID, err := s.transport.SendDocument(ctx, s.chatID, fmt.Sprintf(dataFilePattern, now.UnixMilli()), dataFileCaption, encoded)
	if err != nil {
		return "", fmt.Errorf("failed to upload data file: %w", err)
	}
	if err := s.transport.Pin(ctx, s.chatID, messageID); err != nil {
		return "", fmt.Errorf("failed to pin data file: %w", err)
	}
	return strconv.Itoa(messageID), nil
}

func (s *ChatStore) currentRevision(ctx context.Context) (string, error) {
	pinned, err := s.transport.PinnedDocument(ctx, s.chatID)
	if err != nil {
		return "", fmt.Errorf("failed to read pinned data file: %w", err)
	}
	if pinned == nil {
		return "", nil
	}
	return strconv.Itoa(pinned.MessageID), nil
}
