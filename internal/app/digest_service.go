package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"homework_portal/internal/domain/homework"
	domainTelegram "homework_portal/internal/domain/telegram"
)

// SubjectProgress is today's completion of one open assignment.
type SubjectProgress struct {
	Subject string
	Title   string
	DueDate string
	Done    int
	Total   int
	Pending []string
}

// DigestService reports today's progress to the homework chat.
type DigestService struct {
	store     homework.Store
	transport domainTelegram.Transport
	chatID    int64
	loc       *time.Location
	now       func() time.Time
	logger    *logrus.Entry
}

func NewDigestService(store homework.Store, transport domainTelegram.Transport, chatID int64, loc *time.Location, logger *logrus.Entry) *DigestService {
	return &DigestService{store: store, transport: transport, chatID: chatID, loc: loc, now: time.Now, logger: logger}
}

// Progress lists every open assignment with the students who have not
// completed its subject today.
func (s *DigestService) Progress(ctx context.Context) (string, []SubjectProgress, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return "", nil, err
	}
	data := snap.Data
	now := s.now()
	total := len(data.Roster())

	open := data.OpenAssignments(now, s.loc)
	sort.SliceStable(open, func(i, j int) bool { return open[i].Subject < open[j].Subject })

	progress := make([]SubjectProgress, 0, len(open))
	for _, a := range open {
		pending := data.PendingStudents(a.Subject, now, s.loc)
		progress = append(progress, SubjectProgress{
			Subject: a.Subject,
			Title:   a.Title,
			DueDate: a.DueDate,
			Done:    total - len(pending),
			Total:   total,
			Pending: pending,
		})
	}
	return homework.FormatDate(now, s.loc), progress, nil
}

// Digest renders Progress as a chat message.
func (s *DigestService) Digest(ctx context.Context) (string, error) {
	today, progress, err := s.Progress(ctx)
	if err != nil {
		return "", err
	}
	return FormatDigest(today, progress), nil
}

// SendDigest posts the digest to the homework chat.
func (s *DigestService) SendDigest(ctx context.Context) error {
	text, err := s.Digest(ctx)
	if err != nil {
		return fmt.Errorf("failed to build digest: %w", err)
	}
	if err := s.transport.SendMessage(ctx, s.chatID, text); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	s.logger.Info("Daily digest sent")
	return nil
}

// FormatDigest renders the progress lines for one day.
func FormatDigest(today string, progress []SubjectProgress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "作业进度 %s", today)
	if len(progress) == 0 {
		b.WriteString("\n今日暂无进行中的作业")
		return b.String()
	}
	for _, p := range progress {
		fmt.Fprintf(&b, "\n\n#%s %s", safeTag(p.Subject), p.Title)
		if p.DueDate != "" {
			fmt.Fprintf(&b, " (截止 %s)", p.DueDate)
		}
		fmt.Fprintf(&b, "\n已完成 %d/%d", p.Done, p.Total)
		if len(p.Pending) > 0 {
			fmt.Fprintf(&b, "\n未完成: %s", strings.Join(p.Pending, "、"))
		}
	}
	return b.String()
}
