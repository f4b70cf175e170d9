package homework

import (
	"sort"
	"strings"
	"time"
)

const (
	// MaxPhotos is the upper bound of images in one submission or edit.
	MaxPhotos = 10
	// EditWindow is how long after creation a student may replace photos.
	EditWindow = 72 * time.Hour
)

// PhotoRef points at one photo stored by the messaging transport.
type PhotoRef struct {
	FileID    string
	UniqueID  string
	MessageID int
}

// ValidatePhotoCount checks the number of uploaded images.
func ValidatePhotoCount(n int) error {
	if n == 0 {
		return invalid("请上传图片")
	}
	if n > MaxPhotos {
		return invalid("最多上传 10 张图片")
	}
	return nil
}

// EditDeadline is the end of the regular edit window.
func (s *Submission) EditDeadline() time.Time {
	return s.CreatedAt.Add(EditWindow)
}

// Editable reports whether photos may be replaced at now. Returned submissions
// stay editable regardless of age.
func (s *Submission) Editable(now time.Time) bool {
	if s.ReviewStatus() == ReviewReturned {
		return true
	}
	return !now.After(s.EditDeadline())
}

// ReviewStatus returns the review status, pending when there is no review.
func (s *Submission) ReviewStatus() ReviewStatus {
	if s.Review == nil || s.Review.Status == "" {
		return ReviewPending
	}
	return s.Review.Status
}

// ReviewOrPending returns the review or an implicit pending one.
func (s *Submission) ReviewOrPending() ReviewInfo {
	if s.Review == nil {
		return ReviewInfo{Status: ReviewPending}
	}
	return *s.Review
}

// CheckSubmit validates that token may submit for subject right now.
func (d *DataFile) CheckSubmit(token, subject string, now time.Time, loc *time.Location) (*Student, error) {
	student := d.Students[token]
	if student == nil {
		return nil, ErrStudentNotFound
	}
	if strings.TrimSpace(subject) == "" || !d.HasOpenAssignment(subject, now, loc) {
		return nil, invalid("科目无效")
	}
	return student, nil
}

// Submit records a new submission. subject must have an open assignment.
func (d *DataFile) Submit(token, subject, note string, photos []PhotoRef, now time.Time, loc *time.Location) (*Submission, error) {
	subject = strings.TrimSpace(subject)
	student, err := d.CheckSubmit(token, subject, now, loc)
	if err != nil {
		return nil, err
	}
	if err := ValidatePhotoCount(len(photos)); err != nil {
		return nil, err
	}

	stamp := now.UTC()
	fileIDs, uniqueIDs, messageIDs := splitRefs(photos)
	sub := &Submission{
		ID:             newID(),
		StudentToken:   token,
		StudentName:    student.Name,
		Subject:        subject,
		CreatedAt:      stamp,
		UpdatedAt:      stamp,
		PhotoFileIDs:   fileIDs,
		PhotoUniqueIDs: uniqueIDs,
		TGMessageIDs:   messageIDs,
		Note:           strings.TrimSpace(note),
		EditCount:      0,
		History:        []SubmissionHistory{},
	}
	d.Submissions[sub.ID] = sub
	d.StudentSubmissions[token] = append(d.StudentSubmissions[token], sub.ID)
	return sub, nil
}

// CheckEdit returns the submission if token owns it and it is still editable.
func (d *DataFile) CheckEdit(token, id string, now time.Time) (*Submission, error) {
	if d.Students[token] == nil {
		return nil, ErrStudentNotFound
	}
	sub := d.Submissions[id]
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	if sub.StudentToken != token {
		return nil, ErrNotOwner
	}
	if !sub.Editable(now) {
		return nil, ErrEditWindowClosed
	}
	return sub, nil
}

// ReplacePhotos swaps all photos of a submission, keeping the old ones in history.
func (d *DataFile) ReplacePhotos(token, id string, photos []PhotoRef, now time.Time) (*Submission, error) {
	sub, err := d.CheckEdit(token, id, now)
	if err != nil {
		return nil, err
	}
	if err := ValidatePhotoCount(len(photos)); err != nil {
		return nil, err
	}

	sub.History = append(sub.History, SubmissionHistory{
		UpdatedAt:      sub.UpdatedAt,
		PhotoFileIDs:   sub.PhotoFileIDs,
		PhotoUniqueIDs: sub.PhotoUniqueIDs,
		TGMessageIDs:   sub.TGMessageIDs,
	})
	sub.PhotoFileIDs, sub.PhotoUniqueIDs, sub.TGMessageIDs = splitRefs(photos)
	sub.UpdatedAt = now.UTC()
	sub.EditCount++
	return sub, nil
}

// SubmissionsFor lists the submissions of token, newest first.
func (d *DataFile) SubmissionsFor(token string) []*Submission {
	ids := d.StudentSubmissions[token]
	subs := make([]*Submission, 0, len(ids))
	for _, id := range ids {
		if sub := d.Submissions[id]; sub != nil {
			subs = append(subs, sub)
		}
	}
	sortNewestFirst(subs)
	return subs
}

// AllSubmissions lists every submission, newest first.
func (d *DataFile) AllSubmissions() []*Submission {
	subs := make([]*Submission, 0, len(d.Submissions))
	for _, sub := range d.Submissions {
		if sub != nil {
			subs = append(subs, sub)
		}
	}
	sortNewestFirst(subs)
	return subs
}

// OwnsFile reports whether fileID is one of the submission's current photos.
func (s *Submission) OwnsFile(fileID string) bool {
	for _, id := range s.PhotoFileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}

func sortNewestFirst(subs []*Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

func splitRefs(photos []PhotoRef) ([]string, []string, []int) {
	fileIDs := make([]string, 0, len(photos))
	uniqueIDs := make([]string, 0, len(photos))
	messageIDs := make([]int, 0, len(photos))
	for _, p := range photos {
		fileIDs = append(fileIDs, p.FileID)
		if p.UniqueID != "" {
			uniqueIDs = append(uniqueIDs, p.UniqueID)
		}
		messageIDs = append(messageIDs, p.MessageID)
	}
	if len(uniqueIDs) == 0 {
		uniqueIDs = nil
	}
	return fileIDs, uniqueIDs, messageIDs
}
