package app

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"homework_portal/internal/domain/homework"
	domainTelegram "homework_portal/internal/domain/telegram"
)

// AdminService holds the teacher-side operations of the admin panel.
type AdminService struct {
	store     homework.Store
	transport domainTelegram.Transport
	subjects  []string
	loc       *time.Location
	now       func() time.Time
	logger    *logrus.Entry
}

func NewAdminService(store homework.Store, transport domainTelegram.Transport, subjects []string, loc *time.Location, logger *logrus.Entry) *AdminService {
	return &AdminService{
		store:     store,
		transport: transport,
		subjects:  subjects,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// AdminSubmissionView is a submission row on the review board.
type AdminSubmissionView struct {
	ID           string              `json:"id"`
	StudentName  string              `json:"student_name"`
	Subject      string              `json:"subject"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Note         string              `json:"note"`
	PhotoFileIDs []string            `json:"photo_file_ids"`
	EditCount    int                 `json:"edit_count"`
	Review       homework.ReviewInfo `json:"review"`
}

// Overview is the admin dashboard payload.
type Overview struct {
	Subjects    []string               `json:"subjects"`
	Assignments []*homework.Assignment `json:"assignments"`
	Submissions []AdminSubmissionView  `json:"submissions"`
}

// StudentList is the roster with one day's manual completions.
type StudentList struct {
	Date        string                  `json:"date"`
	Subjects    []string                `json:"subjects"`
	Students    []homework.StudentEntry `json:"students"`
	Completions map[string][]string     `json:"completions"`
}

// ReviewRequest is a review as submitted by the panel. Status is free text
// and validated here.
type ReviewRequest struct {
	Status   string
	Score    *float64
	Comment  string
	Reviewer string
}

// CompletionInput toggles one manual completion.
type CompletionInput struct {
	Date        string
	StudentName string
	Subject     string
	Completed   bool
}

func (s *AdminService) Overview(ctx context.Context) (*Overview, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	data := snap.Data
	out := &Overview{
		Subjects:    subjectsOf(s.subjects, data),
		Assignments: data.Assignments,
		Submissions: []AdminSubmissionView{},
	}
	for _, sub := range data.AllSubmissions() {
		out.Submissions = append(out.Submissions, AdminSubmissionView{
			ID:           sub.ID,
			StudentName:  sub.StudentName,
			Subject:      sub.Subject,
			CreatedAt:    sub.CreatedAt,
			UpdatedAt:    sub.UpdatedAt,
			Note:         sub.Note,
			PhotoFileIDs: sub.PhotoFileIDs,
			EditCount:    sub.EditCount,
			Review:       sub.ReviewOrPending(),
		})
	}
	return out, nil
}

func (s *AdminService) CreateAssignment(ctx context.Context, in homework.AssignmentInput) (*homework.Assignment, error) {
	var created *homework.Assignment
	err := mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		a, err := data.CreateAssignment(in, s.now())
		if err != nil {
			return false, err
		}
		created = a
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"assignment_id": created.ID, "subject": created.Subject}).Info("Assignment created")
	return created, nil
}

func (s *AdminService) PatchAssignment(ctx context.Context, id string, patch homework.AssignmentPatch) (*homework.Assignment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("缺少作业编号")
	}
	var updated *homework.Assignment
	err := mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		a, err := data.PatchAssignment(id, patch, s.now())
		if err != nil {
			return false, err
		}
		updated = a
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *AdminService) DeleteAssignment(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("缺少作业编号")
	}
	err := mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		return true, data.DeleteAssignment(id)
	})
	if err != nil {
		return err
	}
	s.logger.WithField("assignment_id", id).Info("Assignment deleted")
	return nil
}

// Review updates a single submission. An empty status means reviewed.
func (s *AdminService) Review(ctx context.Context, submissionID string, req ReviewRequest) (*homework.Submission, error) {
	if strings.TrimSpace(submissionID) == "" {
		return nil, invalid("缺少提交记录")
	}
	if strings.TrimSpace(req.Status) == "" {
		req.Status = string(homework.ReviewReviewed)
	}
	in, err := toReviewInput(req)
	if err != nil {
		return nil, err
	}
	var reviewed *homework.Submission
	err = mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		sub, err := data.Review(submissionID, in, s.now())
		if err != nil {
			return false, err
		}
		reviewed = sub
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"submission_id": reviewed.ID, "status": reviewed.ReviewStatus()}).Info("Submission reviewed")
	return reviewed, nil
}

// BatchReview applies one review to many submissions. Nothing is written
// when no id resolves.
func (s *AdminService) BatchReview(ctx context.Context, ids []string, req ReviewRequest) (*homework.BatchResult, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return nil, invalid("缺少提交记录")
	}
	if strings.TrimSpace(req.Status) == "" {
		return nil, invalid("缺少批改状态")
	}
	in, err := toReviewInput(req)
	if err != nil {
		return nil, err
	}

	var result homework.BatchResult
	err = mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		result = data.BatchReview(cleaned, in, s.now())
		return result.Updated > 0, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"updated": result.Updated, "skipped": len(result.Skipped)}).Info("Batch review applied")
	return &result, nil
}

func (s *AdminService) SetCompletion(ctx context.Context, in CompletionInput) error {
	return mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		err := data.SetManualCompletion(in.Date, in.StudentName, in.Subject, in.Completed, s.subjects)
		return err == nil, err
	})
}

// ListStudents returns the roster and the manual completions of date
// (today when empty).
func (s *AdminService) ListStudents(ctx context.Context, date string) (*StudentList, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = homework.FormatDate(s.now(), s.loc)
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	completions := snap.Data.ManualCompletions[date]
	if completions == nil {
		completions = map[string][]string{}
	}
	return &StudentList{
		Date:        date,
		Subjects:    subjectsOf(s.subjects, snap.Data),
		Students:    snap.Data.Roster(),
		Completions: completions,
	}, nil
}

func (s *AdminService) AddStudent(ctx context.Context, name string) (token, normalized string, err error) {
	err = mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		token, normalized, err = data.AddStudent(name, s.now())
		return err == nil, err
	})
	if err != nil {
		return "", "", err
	}
	s.logger.WithField("student", normalized).Info("Student added")
	return token, normalized, nil
}

func (s *AdminService) RenameStudent(ctx context.Context, token, name string) error {
	if strings.TrimSpace(token) == "" {
		return invalid("缺少学生")
	}
	return mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		err := data.RenameStudent(strings.TrimSpace(token), name)
		return err == nil, err
	})
}

func (s *AdminService) DeleteStudent(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return invalid("缺少学生")
	}
	var name string
	err := mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		var err error
		name, err = data.DeleteStudent(strings.TrimSpace(token))
		return err == nil, err
	})
	if err != nil {
		return err
	}
	s.logger.WithField("student", name).Info("Student deleted")
	return nil
}

// RecoverStudent issues a fresh token for name, e.g. after a lost cookie.
func (s *AdminService) RecoverStudent(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("缺少姓名")
	}
	var token string
	err := mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		var err error
		token, err = data.RebindStudent(name, s.now())
		return err == nil, err
	})
	if err != nil {
		return "", err
	}
	s.logger.WithField("student", name).Info("Student token recovered")
	return token, nil
}

func (s *AdminService) UpdateReminders(ctx context.Context, reminders []homework.Reminder) ([]homework.Reminder, error) {
	normalized := homework.NormalizeReminders(reminders)
	err := mutate(ctx, s.store, func(data *homework.DataFile) (bool, error) {
		data.Reminders = normalized
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// Media streams a photo of any submission.
func (s *AdminService) Media(ctx context.Context, submissionID, fileID string) (io.ReadCloser, error) {
	if strings.TrimSpace(submissionID) == "" || strings.TrimSpace(fileID) == "" {
		return nil, invalid("参数缺失")
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	sub := snap.Data.Submissions[submissionID]
	if sub == nil {
		return nil, homework.ErrSubmissionNotFound
	}
	return download(ctx, s.transport, sub, fileID)
}

func toReviewInput(req ReviewRequest) (homework.ReviewInput, error) {
	status, err := homework.ParseReviewStatus(req.Status)
	if err != nil {
		return homework.ReviewInput{}, err
	}
	return homework.ReviewInput{
		Status:   status,
		Score:    req.Score,
		Comment:  strings.TrimSpace(req.Comment),
		Reviewer: strings.TrimSpace(req.Reviewer),
	}, nil
}
