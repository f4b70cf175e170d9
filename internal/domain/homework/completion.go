package homework

import (
	"strings"
	"time"
)

// Buckets splits a student's assignments by today's progress.
type Buckets struct {
	Completed          []*Assignment `json:"completed"`
	Pending            []*Assignment `json:"pending"`
	ExpiredUnsubmitted []*Assignment `json:"expired_unsubmitted"`
}

// SetManualCompletion marks or unmarks subject as done for name on date.
// Empty per-student and per-date containers are pruned.
func (d *DataFile) SetManualCompletion(date, name, subject string, completed bool, subjects []string) error {
	date = strings.TrimSpace(date)
	name = strings.TrimSpace(name)
	subject = strings.TrimSpace(subject)
	if date == "" || name == "" || subject == "" {
		return invalid("参数不完整")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return invalid("日期格式无效")
	}
	if _, ok := d.NameIndex[name]; !ok {
		return ErrStudentNotFound
	}
	if len(subjects) > 0 && !contains(subjects, subject) {
		return invalid("科目不存在")
	}

	byStudent := d.ManualCompletions[date]
	if byStudent == nil {
		byStudent = map[string][]string{}
	}
	set := make([]string, 0, len(byStudent[name])+1)
	for _, s := range byStudent[name] {
		if s != subject {
			set = append(set, s)
		}
	}
	if completed {
		set = append(set, subject)
	}

	if len(set) > 0 {
		byStudent[name] = uniqueSorted(set)
	} else {
		delete(byStudent, name)
	}
	if len(byStudent) > 0 {
		d.ManualCompletions[date] = byStudent
	} else {
		delete(d.ManualCompletions, date)
	}
	return nil
}

// CompletedSubjects returns the subjects token finished on date: submissions
// created that day plus manual marks.
func (d *DataFile) CompletedSubjects(token, date string, loc *time.Location) map[string]bool {
	done := map[string]bool{}
	student := d.Students[token]
	if student == nil {
		return done
	}
	for _, sub := range d.SubmissionsFor(token) {
		if FormatDate(sub.CreatedAt, loc) == date {
			done[sub.Subject] = true
		}
	}
	for _, subject := range d.ManualCompletions[date][student.Name] {
		done[subject] = true
	}
	return done
}

// StatusBuckets derives today's completed / pending / expired-never-submitted lists.
func (d *DataFile) StatusBuckets(token string, now time.Time, loc *time.Location) Buckets {
	today := FormatDate(now, loc)
	done := d.CompletedSubjects(token, today, loc)

	submitted := map[string]bool{}
	for _, sub := range d.SubmissionsFor(token) {
		submitted[sub.Subject] = true
	}

	buckets := Buckets{
		Completed:          []*Assignment{},
		Pending:            []*Assignment{},
		ExpiredUnsubmitted: []*Assignment{},
	}
	for _, a := range d.Assignments {
		if a == nil {
			continue
		}
		switch {
		case a.IsOpen(now, loc) && done[a.Subject]:
			buckets.Completed = append(buckets.Completed, a)
		case a.IsOpen(now, loc):
			buckets.Pending = append(buckets.Pending, a)
		case !submitted[a.Subject]:
			buckets.ExpiredUnsubmitted = append(buckets.ExpiredUnsubmitted, a)
		}
	}
	return buckets
}

// PendingStudents lists roster names that have not completed subject today.
func (d *DataFile) PendingStudents(subject string, now time.Time, loc *time.Location) []string {
	today := FormatDate(now, loc)
	var names []string
	for _, entry := range d.Roster() {
		if !d.CompletedSubjects(entry.Token, today, loc)[subject] {
			names = append(names, entry.Name)
		}
	}
	return names
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
