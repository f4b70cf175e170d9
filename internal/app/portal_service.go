package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"homework_portal/internal/domain/homework"
	domainTelegram "homework_portal/internal/domain/telegram"
	"homework_portal/internal/infra/metrics"
)

// PortalService serves the student side of the portal.
type PortalService struct {
	store          homework.Store
	transport      domainTelegram.Transport
	homeworkChatID int64
	subjects       []string
	loc            *time.Location
	now            func() time.Time
	logger         *logrus.Entry
}

func NewPortalService(
	store homework.Store,
	transport domainTelegram.Transport,
	homeworkChatID int64,
	subjects []string,
	loc *time.Location,
	logger *logrus.Entry,
) *PortalService {
	return &PortalService{
		store:          store,
		transport:      transport,
		homeworkChatID: homeworkChatID,
		subjects:       subjects,
		loc:            loc,
		now:            time.Now,
		logger:         logger,
	}
}

// RegisterResult tells the caller which token to keep.
type RegisterResult struct {
	Token   string
	Name    string
	Rebound bool
	// AlreadyBound is set when the presented token is still valid; nothing changed.
	AlreadyBound bool
}

// SubmissionView is a submission as its owner sees it.
type SubmissionView struct {
	ID           string              `json:"id"`
	Subject      string              `json:"subject"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	PhotoFileIDs []string            `json:"photo_file_ids"`
	Editable     bool                `json:"editable"`
	EditDeadline time.Time           `json:"edit_deadline"`
	Note         string              `json:"note"`
	EditCount    int                 `json:"edit_count"`
	Review       homework.ReviewInfo `json:"review"`
}

// MeView is everything the student pages need in one read.
type MeView struct {
	Registered  bool                   `json:"registered"`
	Student     *StudentView           `json:"student,omitempty"`
	Today       string                 `json:"today"`
	Subjects    []string               `json:"subjects"`
	Submissions []SubmissionView       `json:"submissions"`
	Assignments []*homework.Assignment `json:"assignments"`
	Reminders   []homework.Reminder    `json:"reminders"`
	Status      *homework.Buckets      `json:"status,omitempty"`
}

type StudentView struct {
	Name string `json:"name"`
}

// SubmitInput carries a new submission.
type SubmitInput struct {
	Subject string
	Note    string
	Photos  []domainTelegram.Upload
}

// Register binds name to a token. A request that still carries a valid token
// is left untouched.
func (s *PortalService) Register(ctx context.Context, currentToken, name string) (*RegisterResult, error) {
	if currentToken != "" {
		snap, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if student := snap.Data.Students[currentToken]; student != nil {
			return &RegisterResult{Token: currentToken, Name: student.Name, AlreadyBound: true}, nil
		}
	}

	result := &RegisterResult{}
	err := mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		token, rebound, err := data.RegisterStudent(name, s.now())
		if err != nil {
			return false, err
		}
		result.Token = token
		result.Name = data.Students[token].Name
		result.Rebound = rebound
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"student": result.Name, "rebound": result.Rebound}).Info("Student registered")
	return result, nil
}

// Me builds the student view. An unknown token yields an unregistered view.
func (s *PortalService) Me(ctx context.Context, token string) (*MeView, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	data := snap.Data
	now := s.now()
	today := homework.FormatDate(now, s.loc)

	view := &MeView{
		Today:       today,
		Subjects:    subjectsOf(s.subjects, data),
		Submissions: []SubmissionView{},
		Assignments: data.ActiveAssignments(),
		Reminders:   homework.RenderReminders(homework.NormalizeReminders(data.Reminders), today),
	}

	student := data.Students[token]
	if token == "" || student == nil {
		return view, nil
	}

	view.Registered = true
	view.Student = &StudentView{Name: student.Name}
	for _, sub := range data.SubmissionsFor(token) {
		view.Submissions = append(view.Submissions, toSubmissionView(sub, now))
	}
	buckets := data.StatusBuckets(token, now, s.loc)
	view.Status = &buckets
	return view, nil
}

// Submit uploads the photos to the homework chat and records the submission.
func (s *PortalService) Submit(ctx context.Context, token string, in SubmitInput) (*homework.Submission, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	data := snap.Data
	now := s.now()
	subject := strings.TrimSpace(in.Subject)

	student, err := data.CheckSubmit(token, subject, now, s.loc)
	if err != nil {
		if errors.Is(err, homework.ErrStudentNotFound) {
			return nil, ErrUnregistered
		}
		return nil, err
	}
	if err := homework.ValidatePhotoCount(len(in.Photos)); err != nil {
		return nil, err
	}

	caption := SubmitCaption(student.Name, subject, now, s.loc)
	refs, err := s.upload(ctx, in.Photos, caption)
	if err != nil {
		return nil, err
	}

	sub, err := data.Submit(token, subject, in.Note, refs, now, s.loc)
	if err != nil {
		return nil, err
	}
	data.TouchStudent(token, now)
	if _, err := s.store.Save(ctx, data, snap.Revision); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"student":       student.Name,
		"subject":       subject,
		"submission_id": sub.ID,
		"photos":        len(refs),
	}).Info("Submission recorded")
	return sub, nil
}

// Edit replaces all photos of an editable submission.
func (s *PortalService) Edit(ctx context.Context, token, submissionID string, photos []domainTelegram.Upload) (*homework.Submission, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return nil, invalid("缺少提交记录")
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	data := snap.Data
	now := s.now()

	sub, err := data.CheckEdit(token, submissionID, now)
	if err != nil {
		if errors.Is(err, homework.ErrStudentNotFound) {
			return nil, ErrUnregistered
		}
		return nil, err
	}
	if err := homework.ValidatePhotoCount(len(photos)); err != nil {
		return nil, err
	}

	caption := EditCaption(sub.StudentName, sub.Subject, sub.CreatedAt, now, s.loc)
	refs, err := s.upload(ctx, photos, caption)
	if err != nil {
		return nil, err
	}

	sub, err = data.ReplacePhotos(token, submissionID, refs, now)
	if err != nil {
		return nil, err
	}
	data.TouchStudent(token, now)
	if _, err := s.store.Save(ctx, data, snap.Revision); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"student":       sub.StudentName,
		"submission_id": sub.ID,
		"edit_count":    sub.EditCount,
	}).Info("Submission photos replaced")
	return sub, nil
}

// Media streams one photo of a submission owned by token.
func (s *PortalService) Media(ctx context.Context, token, submissionID, fileID string) (io.ReadCloser, error) {
	if strings.TrimSpace(submissionID) == "" || strings.TrimSpace(fileID) == "" {
		return nil, invalid("参数缺失")
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Data.Students[token] == nil {
		return nil, ErrUnregistered
	}
	sub := snap.Data.Submissions[submissionID]
	if sub == nil || sub.StudentToken != token {
		return nil, homework.ErrNotOwner
	}
	return download(ctx, s.transport, sub, fileID)
}

func (s *PortalService) upload(ctx context.Context, photos []domainTelegram.Upload, caption string) ([]homework.PhotoRef, error) {
	messages, err := s.transport.SendPhotos(ctx, s.homeworkChatID, photos, caption)
	if err != nil {
		return nil, fmt.Errorf("failed to send homework photos: %w", err)
	}
	if len(messages) != len(photos) {
		return nil, fmt.Errorf("%w: sent %d photos, got %d messages", ErrUpstreamMalformed, len(photos), len(messages))
	}
	refs := make([]homework.PhotoRef, 0, len(messages))
	for _, m := range messages {
		if m.FileID == "" {
			return nil, fmt.Errorf("%w: message %d carries no photo", ErrUpstreamMalformed, m.MessageID)
		}
		refs = append(refs, homework.PhotoRef{FileID: m.FileID, UniqueID: m.UniqueID, MessageID: m.MessageID})
	}
	metrics.UploadedPhotos().Add(float64(len(refs)))
	return refs, nil
}

func download(ctx context.Context, transport domainTelegram.Transport, sub *homework.Submission, fileID string) (io.ReadCloser, error) {
	if !sub.OwnsFile(fileID) {
		return nil, ErrFileNotAllowed
	}
	body, err := transport.Download(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	return body, nil
}

func toSubmissionView(sub *homework.Submission, now time.Time) SubmissionView {
	return SubmissionView{
		ID:           sub.ID,
		Subject:      sub.Subject,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
		PhotoFileIDs: sub.PhotoFileIDs,
		Editable:     sub.Editable(now),
		EditDeadline: sub.EditDeadline(),
		Note:         sub.Note,
		EditCount:    sub.EditCount,
		Review:       sub.ReviewOrPending(),
	}
}
