package homework

import "time"

// CurrentVersion is the schema version written by this program.
const CurrentVersion = 3

// Student is a registered name bound to an opaque token.
type Student struct {
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// Assignment is an admin-owned task for one subject.
type Assignment struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"` // YYYY-MM-DD in the configured zone
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Active      bool      `json:"active"`
}

// SubmissionHistory keeps the photo references replaced by an edit.
type SubmissionHistory struct {
	UpdatedAt      time.Time `json:"updated_at"`
	PhotoFileIDs   []string  `json:"photo_file_ids"`
	PhotoUniqueIDs []string  `json:"photo_unique_ids,omitempty"`
	TGMessageIDs   []int     `json:"tg_message_ids"`
}

// Submission is one upload of homework photos.
//
// StudentName is a display copy of the owner's name. Renaming a student must
// rewrite it on every submission of that student (see RenameStudent).
type Submission struct {
	ID             string              `json:"id"`
	StudentToken   string              `json:"student_token"`
	StudentName    string              `json:"student_name"`
	Subject        string              `json:"subject"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	PhotoFileIDs   []string            `json:"photo_file_ids"`
	PhotoUniqueIDs []string            `json:"photo_unique_ids,omitempty"`
	TGMessageIDs   []int               `json:"tg_message_ids"`
	Note           string              `json:"note,omitempty"`
	Review         *ReviewInfo         `json:"review,omitempty"`
	EditCount      int                 `json:"edit_count"`
	History        []SubmissionHistory `json:"history"`
}

// ManualCompletions maps date -> student name -> subjects marked done by an admin.
type ManualCompletions map[string]map[string][]string

// Reminder is a display card shown to students.
type Reminder struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Meta  string `json:"meta"`
}

// DataFile is the whole persisted state. Every write replaces it entirely.
type DataFile struct {
	Version            int                    `json:"version"`
	UpdatedAt          time.Time              `json:"updated_at"`
	Students           map[string]*Student    `json:"students"`
	NameIndex          map[string]string      `json:"name_index"`
	Submissions        map[string]*Submission `json:"submissions"`
	StudentSubmissions map[string][]string    `json:"student_submissions"`
	ManualCompletions  ManualCompletions      `json:"manual_completions"`
	Assignments        []*Assignment          `json:"assignments"`
	Reminders          []Reminder             `json:"reminders"`
}

// NewDataFile returns an empty aggregate at the current schema version.
func NewDataFile(now time.Time) *DataFile {
	return &DataFile{
		Version:            CurrentVersion,
		UpdatedAt:          now.UTC(),
		Students:           map[string]*Student{},
		NameIndex:          map[string]string{},
		Submissions:        map[string]*Submission{},
		StudentSubmissions: map[string][]string{},
		ManualCompletions:  ManualCompletions{},
		Assignments:        []*Assignment{},
		Reminders:          DefaultReminders(),
	}
}

// EnsureContainers replaces nil containers and drops null entries so callers
// can mutate freely and the encoded document stays well formed.
func (d *DataFile) EnsureContainers() {
	if d.Students == nil {
		d.Students = map[string]*Student{}
	}
	if d.NameIndex == nil {
		d.NameIndex = map[string]string{}
	}
	if d.Submissions == nil {
		d.Submissions = map[string]*Submission{}
	}
	if d.StudentSubmissions == nil {
		d.StudentSubmissions = map[string][]string{}
	}
	if d.ManualCompletions == nil {
		d.ManualCompletions = ManualCompletions{}
	}
	if d.Assignments == nil {
		d.Assignments = []*Assignment{}
	}
	if d.Reminders == nil {
		d.Reminders = DefaultReminders()
	}
	for token, s := range d.Students {
		if s == nil {
			delete(d.Students, token)
		}
	}
	for token, ids := range d.StudentSubmissions {
		if ids == nil {
			d.StudentSubmissions[token] = []string{}
		}
	}
	for date, byStudent := range d.ManualCompletions {
		for name, subjects := range byStudent {
			if len(subjects) == 0 {
				delete(byStudent, name)
			}
		}
		if len(byStudent) == 0 {
			delete(d.ManualCompletions, date)
		}
	}
	assignments := d.Assignments[:0]
	for _, a := range d.Assignments {
		if a != nil {
			assignments = append(assignments, a)
		}
	}
	d.Assignments = assignments
	for id, s := range d.Submissions {
		if s == nil {
			delete(d.Submissions, id)
			continue
		}
		if s.PhotoFileIDs == nil {
			s.PhotoFileIDs = []string{}
		}
		if s.TGMessageIDs == nil {
			s.TGMessageIDs = []int{}
		}
		if s.History == nil {
			s.History = []SubmissionHistory{}
		}
		for i := range s.History {
			if s.History[i].PhotoFileIDs == nil {
				s.History[i].PhotoFileIDs = []string{}
			}
			if s.History[i].TGMessageIDs == nil {
				s.History[i].TGMessageIDs = []int{}
			}
		}
	}
}
