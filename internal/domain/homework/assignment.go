package homework

import (
	"strings"
	"time"
)

// AssignmentInput is the payload for creating an assignment.
type AssignmentInput struct {
	Subject     string
	Title       string
	Description string
	DueDate     string
}

// AssignmentPatch updates only the fields that are non-nil.
type AssignmentPatch struct {
	Subject     *string
	Title       *string
	Description *string
	DueDate     *string
	Active      *bool
}

// IsExpired reports whether the due date's end of day lies before the start of
// today in loc. A missing or unparseable due date never expires.
func IsExpired(dueDate string, now time.Time, loc *time.Location) bool {
	dueDate = strings.TrimSpace(dueDate)
	if dueDate == "" {
		return false
	}
	due, err := ParseDate(dueDate, loc)
	if err != nil {
		return false
	}
	return endOfDay(due, loc).Before(startOfDay(now, loc))
}

// IsOpen reports whether students may still submit for a.
func (a *Assignment) IsOpen(now time.Time, loc *time.Location) bool {
	return a != nil && a.Active && !IsExpired(a.DueDate, now, loc)
}

// Expired is the negation of IsOpen: closed by the admin or past the due date.
func (a *Assignment) Expired(now time.Time, loc *time.Location) bool {
	return !a.IsOpen(now, loc)
}

// OpenAssignments returns the assignments currently accepting submissions.
func (d *DataFile) OpenAssignments(now time.Time, loc *time.Location) []*Assignment {
	open := make([]*Assignment, 0, len(d.Assignments))
	for _, a := range d.Assignments {
		if a.IsOpen(now, loc) {
			open = append(open, a)
		}
	}
	return open
}

// ActiveAssignments returns assignments not closed by the admin, expired or not.
func (d *DataFile) ActiveAssignments() []*Assignment {
	active := make([]*Assignment, 0, len(d.Assignments))
	for _, a := range d.Assignments {
		if a != nil && a.Active {
			active = append(active, a)
		}
	}
	return active
}

// HasOpenAssignment reports whether subject has at least one open assignment.
func (d *DataFile) HasOpenAssignment(subject string, now time.Time, loc *time.Location) bool {
	for _, a := range d.Assignments {
		if a.Subject == subject && a.IsOpen(now, loc) {
			return true
		}
	}
	return false
}

// CreateAssignment appends a new active assignment.
func (d *DataFile) CreateAssignment(in AssignmentInput, now time.Time) (*Assignment, error) {
	subject := strings.TrimSpace(in.Subject)
	title := strings.TrimSpace(in.Title)
	if subject == "" || title == "" {
		return nil, invalid("请填写科目与标题")
	}
	due, err := normalizeDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}
	stamp := now.UTC()
	a := &Assignment{
		ID:          newID(),
		Subject:     subject,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     due,
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
		Active:      true,
	}
	d.Assignments = append(d.Assignments, a)
	return a, nil
}

// normalizeDueDate accepts an empty due date or a calendar YYYY-MM-DD day.
func normalizeDueDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return "", invalid("日期格式无效")
	}
	return value, nil
}

// FindAssignment returns the assignment with id.
func (d *DataFile) FindAssignment(id string) (*Assignment, int, error) {
	for i, a := range d.Assignments {
		if a != nil && a.ID == id {
			return a, i, nil
		}
	}
	return nil, -1, ErrAssignmentNotFound
}

// PatchAssignment applies a partial update.
func (d *DataFile) PatchAssignment(id string, patch AssignmentPatch, now time.Time) (*Assignment, error) {
	a, _, err := d.FindAssignment(id)
	if err != nil {
		return nil, err
	}

	// validate everything before touching the assignment
	var subject, title, due string
	if patch.Subject != nil {
		if subject = strings.TrimSpace(*patch.Subject); subject == "" {
			return nil, invalid("科目不能为空")
		}
	}
	if patch.Title != nil {
		if title = strings.TrimSpace(*patch.Title); title == "" {
			return nil, invalid("标题不能为空")
		}
	}
	if patch.DueDate != nil {
		if due, err = normalizeDueDate(*patch.DueDate); err != nil {
			return nil, err
		}
	}

	if patch.Subject != nil {
		a.Subject = subject
	}
	if patch.Title != nil {
		a.Title = title
	}
	if patch.Description != nil {
		a.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DueDate != nil {
		a.DueDate = due
	}
	if patch.Active != nil {
		a.Active = *patch.Active
	}
	a.UpdatedAt = now.UTC()
	return a, nil
}

// DeleteAssignment removes an assignment. Existing submissions are kept.
func (d *DataFile) DeleteAssignment(id string) error {
	_, idx, err := d.FindAssignment(id)
	if err != nil {
		return err
	}
	d.Assignments = append(d.Assignments[:idx], d.Assignments[idx+1:]...)
	return nil
}
