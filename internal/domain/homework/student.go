package homework

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxNameLength = 24
	// ReservedName is kept for the group leader account and is hidden from the roster.
	ReservedName = "组长"
)

var newID = uuid.NewString

// StudentEntry is a roster row.
type StudentEntry struct {
	Token      string     `json:"token"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid("姓名不能为空且长度需小于 24")
	}
	return name, nil
}

func normalizeAdminName(raw string) (string, error) {
	name, err := normalizeName(raw)
	if err != nil {
		return "", err
	}
	if name == ReservedName {
		return "", invalid("该姓名不可用")
	}
	return name, nil
}

// RegisterStudent binds name to a fresh token. A name that is already taken is
// re-bound: the existing student moves to the new token with its submissions.
func (d *DataFile) RegisterStudent(raw string, now time.Time) (token string, rebound bool, err error) {
	name, err := normalizeName(raw)
	if err != nil {
		return "", false, err
	}
	if _, taken := d.NameIndex[name]; taken {
		token, err = d.RebindStudent(name, now)
		return token, true, err
	}
	return d.insertStudent(name, now), false, nil
}

// AddStudent creates a student from the admin panel. Name collisions are rejected.
func (d *DataFile) AddStudent(raw string, now time.Time) (string, string, error) {
	name, err := normalizeAdminName(raw)
	if err != nil {
		return "", "", err
	}
	if _, taken := d.NameIndex[name]; taken {
		return "", "", invalid("姓名已存在")
	}
	return d.insertStudent(name, now), name, nil
}

func (d *DataFile) insertStudent(name string, now time.Time) string {
	token := newID()
	d.Students[token] = &Student{Name: name, CreatedAt: now.UTC()}
	d.NameIndex[name] = token
	d.StudentSubmissions[token] = []string{}
	return token
}

// RebindStudent issues a new token for an existing name and moves everything
// owned by the old token over to it.
func (d *DataFile) RebindStudent(name string, now time.Time) (string, error) {
	oldToken, ok := d.NameIndex[name]
	if !ok {
		return "", ErrStudentNotFound
	}
	student := d.Students[oldToken]
	if student == nil {
		// dangling index entry
		delete(d.NameIndex, name)
		return d.insertStudent(name, now), nil
	}

	newToken := newID()
	d.Students[newToken] = student
	delete(d.Students, oldToken)
	d.NameIndex[name] = newToken

	ids := d.StudentSubmissions[oldToken]
	if ids == nil {
		ids = []string{}
	}
	d.StudentSubmissions[newToken] = ids
	delete(d.StudentSubmissions, oldToken)
	for _, id := range ids {
		if sub := d.Submissions[id]; sub != nil {
			sub.StudentToken = newToken
		}
	}
	return newToken, nil
}

// RenameStudent changes a student's name and cascades it into the name index,
// the submissions' display name and the manual completion keys.
func (d *DataFile) RenameStudent(token, raw string) error {
	name, err := normalizeAdminName(raw)
	if err != nil {
		return err
	}
	student := d.Students[token]
	if student == nil {
		return ErrStudentNotFound
	}
	if existing, taken := d.NameIndex[name]; taken && existing != token {
		return invalid("姓名已存在")
	}

	oldName := student.Name
	if oldName == name {
		return nil
	}
	delete(d.NameIndex, oldName)
	d.NameIndex[name] = token
	student.Name = name

	for _, sub := range d.Submissions {
		if sub != nil && sub.StudentToken == token {
			sub.StudentName = name
		}
	}

	for date, byStudent := range d.ManualCompletions {
		subjects, ok := byStudent[oldName]
		if !ok {
			continue
		}
		merged := append(append([]string{}, byStudent[name]...), subjects...)
		delete(byStudent, oldName)
		if set := uniqueSorted(merged); len(set) > 0 {
			byStudent[name] = set
		}
		if len(byStudent) == 0 {
			delete(d.ManualCompletions, date)
		}
	}
	return nil
}

// DeleteStudent removes a student, its submissions and its manual completion
// marks on every date.
func (d *DataFile) DeleteStudent(token string) (string, error) {
	student := d.Students[token]
	if student == nil {
		return "", ErrStudentNotFound
	}
	name := student.Name
	delete(d.Students, token)
	if d.NameIndex[name] == token {
		delete(d.NameIndex, name)
	}

	owned := map[string]struct{}{}
	for _, id := range d.StudentSubmissions[token] {
		owned[id] = struct{}{}
	}
	delete(d.StudentSubmissions, token)

	for id, sub := range d.Submissions {
		if sub == nil {
			continue
		}
		if _, ok := owned[id]; ok || sub.StudentToken == token {
			delete(d.Submissions, id)
		}
	}

	for date, byStudent := range d.ManualCompletions {
		if _, ok := byStudent[name]; !ok {
			continue
		}
		delete(byStudent, name)
		if len(byStudent) == 0 {
			delete(d.ManualCompletions, date)
		}
	}
	return name, nil
}

// TouchStudent records the last time the student was seen.
func (d *DataFile) TouchStudent(token string, now time.Time) {
	if student := d.Students[token]; student != nil {
		seen := now.UTC()
		student.LastSeenAt = &seen
	}
}

// Roster lists students ordered by name, without the reserved account.
func (d *DataFile) Roster() []StudentEntry {
	entries := make([]StudentEntry, 0, len(d.Students))
	for token, s := range d.Students {
		if s == nil || s.Name == ReservedName {
			continue
		}
		entries = append(entries, StudentEntry{
			Token:      token,
			Name:       s.Name,
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
