package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"homework_portal/internal/domain/homework"
	domainTelegram "homework_portal/internal/domain/telegram"
)

var (
	testLoc = time.FixedZone("UTC+8", 8*3600)
	testNow = time.Date(2024, 3, 1, 10, 30, 0, 0, testLoc)
)

func testClock() time.Time { return testNow }

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	return logrus.NewEntry(l)
}

// memoryStore keeps a JSON copy of the document so callers cannot share
// pointers with the stored state.
type memoryStore struct {
	mu       sync.Mutex
	raw      []byte
	revision int
	saves    int
	loadErr  error
}

func newMemoryStore(t *testing.T, data *homework.DataFile) *memoryStore {
	t.Helper()
	s := &memoryStore{}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		s.raw = raw
		s.revision = 1
	}
	return s
}

func (s *memoryStore) Load(context.Context) (*homework.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.raw == nil {
		return &homework.Snapshot{Data: homework.NewDataFile(testNow), Revision: ""}, nil
	}
	var data homework.DataFile
	if err := json.Unmarshal(s.raw, &data); err != nil {
		return nil, err
	}
	data.EnsureContainers()
	return &homework.Snapshot{Data: &data, Revision: strconv.Itoa(s.revision)}, nil
}

func (s *memoryStore) Save(_ context.Context, data *homework.DataFile, expected string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := ""
	if s.raw != nil {
		current = strconv.Itoa(s.revision)
	}
	if current != expected {
		return "", homework.ErrRevisionConflict
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	s.raw = raw
	s.revision++
	s.saves++
	return strconv.Itoa(s.revision), nil
}

func (s *memoryStore) data(t *testing.T) *homework.DataFile {
	t.Helper()
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	return snap.Data
}

// seedData returns a document with Alice registered and an open maths assignment.
func seedData(t *testing.T) (*homework.DataFile, string) {
	t.Helper()
	data := homework.NewDataFile(testNow)
	token, _, err := data.AddStudent("Alice", testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	_, err = data.CreateAssignment(homework.AssignmentInput{Subject: "数学", Title: "练习一", DueDate: "2024-03-05"}, testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	return data, token
}

func photos(n int) []domainTelegram.Upload {
	out := make([]domainTelegram.Upload, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domainTelegram.Upload{Name: "p.jpg", Reader: bytes.NewReader([]byte{0xff, 0xd8, byte(i)})})
	}
	return out
}
