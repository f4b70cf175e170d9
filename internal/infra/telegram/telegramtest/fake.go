// Package telegramtest provides an in-memory messaging transport for tests.
package telegramtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	domainTelegram "homework_portal/internal/domain/telegram"
)

// SentText is a text message recorded by the fake.
type SentText struct {
	ChatID int64
	Text   string
}

// Transport keeps every chat in memory. Fail* fields inject errors.
type Transport struct {
	mu               sync.Mutex
	nextID           int
	files            map[string][]byte
	docs             map[int]string // message id -> file id
	pinned           map[int64]int
	Captions         []string // photo sends only
	DocumentCaptions []string
	Texts            []SentText
	Pins             int

	FailSend     error
	FailPin      error
	DropFileIDs  bool // photo messages come back without file ids
	ShortReplies bool // one photo message fewer than requested
}

var _ domainTelegram.Transport = (*Transport)(nil)

// New returns an empty fake.
func New() *Transport {
	return &Transport{
		files:  map[string][]byte{},
		docs:   map[int]string{},
		pinned: map[int64]int{},
	}
}

func (t *Transport) newFile(content []byte) (int, string) {
	t.nextID++
	fileID := fmt.Sprintf("file-%d", t.nextID)
	t.files[fileID] = content
	return t.nextID, fileID
}

func (t *Transport) SendPhotos(_ context.Context, _ int64, photos []domainTelegram.Upload, caption string) ([]domainTelegram.PhotoMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailSend != nil {
		return nil, t.FailSend
	}
	t.Captions = append(t.Captions, caption)
	out := make([]domainTelegram.PhotoMessage, 0, len(photos))
	for _, p := range photos {
		content, err := io.ReadAll(p.Reader)
		if err != nil {
			return nil, err
		}
		msgID, fileID := t.newFile(content)
		pm := domainTelegram.PhotoMessage{MessageID: msgID, FileID: fileID, UniqueID: "u" + fileID}
		if t.DropFileIDs {
			pm.FileID = ""
		}
		out = append(out, pm)
	}
	if t.ShortReplies && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (t *Transport) SendDocument(_ context.Context, _ int64, _, caption string, body []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailSend != nil {
		return 0, t.FailSend
	}
	t.DocumentCaptions = append(t.DocumentCaptions, caption)
	msgID, fileID := t.newFile(append([]byte(nil), body...))
	t.docs[msgID] = fileID
	return msgID, nil
}

func (t *Transport) Pin(_ context.Context, chatID int64, messageID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailPin != nil {
		return t.FailPin
	}
	t.pinned[chatID] = messageID
	t.Pins++
	return nil
}

func (t *Transport) PinnedDocument(_ context.Context, chatID int64) (*domainTelegram.PinnedDocument, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgID, ok := t.pinned[chatID]
	if !ok {
		return nil, nil
	}
	fileID, ok := t.docs[msgID]
	if !ok {
		return nil, nil
	}
	return &domainTelegram.PinnedDocument{MessageID: msgID, FileID: fileID}, nil
}

func (t *Transport) Download(_ context.Context, fileID string) (io.ReadCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	content, ok := t.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (t *Transport) SendMessage(_ context.Context, chatID int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailSend != nil {
		return t.FailSend
	}
	t.Texts = append(t.Texts, SentText{ChatID: chatID, Text: text})
	return nil
}

// PinRaw stores content as a document and pins it, bypassing any encoding.
func (t *Transport) PinRaw(chatID int64, content []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgID, fileID := t.newFile(content)
	t.docs[msgID] = fileID
	t.pinned[chatID] = msgID
	return msgID
}

// PinnedContent returns the raw bytes of the pinned document.
func (t *Transport) PinnedContent(chatID int64) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgID, ok := t.pinned[chatID]
	if !ok {
		return nil
	}
	return t.files[t.docs[msgID]]
}

// DocumentCount is the number of documents ever sent.
func (t *Transport) DocumentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.docs)
}
