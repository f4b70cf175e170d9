package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"homework_portal/internal/domain/homework"
)

// Schema history:
//
//	v1  one photo per submission (photo_file_id, photo_unique_id, tg_message_id)
//	v2  photo lists
//	v3  manual completions and reminders as first-class fields
//
// Writers never bumped the version tag when they added fields, so every
// version may already carry assignments, manual completions and reminders.
// Each shape keeps whatever it finds; missing parts get defaults at the end
// of the chain. Every step is a pure function from one shape to the next and
// Migrate runs the chain from the stored version up to homework.CurrentVersion.

type legacyHistory struct {
	UpdatedAt      time.Time `json:"updated_at"`
	PhotoFileID    string    `json:"photo_file_id,omitempty"`
	PhotoUniqueID  string    `json:"photo_unique_id,omitempty"`
	TGMessageID    int       `json:"tg_message_id,omitempty"`
	PhotoFileIDs   []string  `json:"photo_file_ids,omitempty"`
	PhotoUniqueIDs []string  `json:"photo_unique_ids,omitempty"`
	TGMessageIDs   []int     `json:"tg_message_ids,omitempty"`
}

type legacySubmission struct {
	ID             string               `json:"id"`
	StudentToken   string               `json:"student_token"`
	StudentName    string               `json:"student_name"`
	Subject        string               `json:"subject"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	PhotoFileID    string               `json:"photo_file_id,omitempty"`
	PhotoUniqueID  string               `json:"photo_unique_id,omitempty"`
	TGMessageID    int                  `json:"tg_message_id,omitempty"`
	PhotoFileIDs   []string             `json:"photo_file_ids,omitempty"`
	PhotoUniqueIDs []string             `json:"photo_unique_ids,omitempty"`
	TGMessageIDs   []int                `json:"tg_message_ids,omitempty"`
	Note           string               `json:"note,omitempty"`
	Review         *homework.ReviewInfo `json:"review,omitempty"`
	EditCount      int                  `json:"edit_count"`
	History        []legacyHistory      `json:"history"`
}

type documentV1 struct {
	UpdatedAt          time.Time                    `json:"updated_at"`
	Students           map[string]*homework.Student `json:"students"`
	NameIndex          map[string]string            `json:"name_index"`
	Submissions        map[string]*legacySubmission `json:"submissions"`
	StudentSubmissions map[string][]string          `json:"student_submissions"`
	Assignments        []*homework.Assignment       `json:"assignments,omitempty"`
	ManualCompletions  homework.ManualCompletions   `json:"manual_completions,omitempty"`
	Reminders          []homework.Reminder          `json:"reminders,omitempty"`
}

// documentV2 still reads submissions legacy-tolerant: singular photo fields
// left over from v1 are folded into the lists.
type documentV2 struct {
	UpdatedAt          time.Time                    `json:"updated_at"`
	Students           map[string]*homework.Student `json:"students"`
	NameIndex          map[string]string            `json:"name_index"`
	Submissions        map[string]*legacySubmission `json:"submissions"`
	StudentSubmissions map[string][]string          `json:"student_submissions"`
	Assignments        []*homework.Assignment       `json:"assignments"`
	ManualCompletions  homework.ManualCompletions   `json:"manual_completions,omitempty"`
	Reminders          []homework.Reminder          `json:"reminders,omitempty"`
}

// documentV3 is read with legacy-tolerant submissions: earlier builds tagged
// documents as v3 while still writing single photo fields.
type documentV3 struct {
	UpdatedAt          time.Time                    `json:"updated_at"`
	Students           map[string]*homework.Student `json:"students"`
	NameIndex          map[string]string            `json:"name_index"`
	Submissions        map[string]*legacySubmission `json:"submissions"`
	StudentSubmissions map[string][]string          `json:"student_submissions"`
	ManualCompletions  homework.ManualCompletions   `json:"manual_completions"`
	Assignments        []*homework.Assignment       `json:"assignments"`
	Reminders          []homework.Reminder          `json:"reminders"`
}

// Migrate parses a stored document of any known version and upgrades it to
// the current one. Unparseable input or an unknown version is ErrInvalidDataFile.
func Migrate(raw []byte) (*homework.DataFile, error) {
	version, err := readVersion(raw)
	if err != nil {
		return nil, err
	}

	var data *homework.DataFile
	switch version {
	case 1:
		var doc documentV1
		if err := decodeStrict(raw, &doc); err != nil {
			return nil, err
		}
		data = fromV3(upgradeV2(upgradeV1(doc)))
	case 2:
		var doc documentV2
		if err := decodeStrict(raw, &doc); err != nil {
			return nil, err
		}
		data = fromV3(upgradeV2(doc))
	case 3:
		var doc documentV3
		if err := decodeStrict(raw, &doc); err != nil {
			return nil, err
		}
		data = fromV3(doc)
	default:
		return nil, fmt.Errorf("%w: unsupported version %d", homework.ErrInvalidDataFile, version)
	}

	data.EnsureContainers()
	encoded, err := Encode(data)
	if err != nil {
		return nil, err
	}
	if err := validateEncoded(encoded); err != nil {
		return nil, fmt.Errorf("%w: %v", homework.ErrInvalidDataFile, err)
	}
	return data, nil
}

// Encode renders the document as indented JSON.
func Encode(data *homework.DataFile) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode data file: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func readVersion(raw []byte) (int, error) {
	var header struct {
		Version interface{} `json:"version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return 0, fmt.Errorf("%w: %v", homework.ErrInvalidDataFile, err)
	}
	switch v := header.Version.(type) {
	case float64:
		if v >= 1 && v == float64(int(v)) {
			return int(v), nil
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: missing or malformed version", homework.ErrInvalidDataFile)
}

func decodeStrict(raw []byte, into interface{}) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", homework.ErrInvalidDataFile, err)
	}
	return nil
}

// upgradeV1 moves single photo refs into lists.
func upgradeV1(doc documentV1) documentV2 {
	subs := make(map[string]*legacySubmission, len(doc.Submissions))
	for id, sub := range doc.Submissions {
		if sub == nil {
			continue
		}
		subs[id] = toPhotoLists(sub)
	}
	return documentV2{
		UpdatedAt:          doc.UpdatedAt,
		Students:           doc.Students,
		NameIndex:          doc.NameIndex,
		Submissions:        subs,
		StudentSubmissions: doc.StudentSubmissions,
		Assignments:        doc.Assignments,
		ManualCompletions:  doc.ManualCompletions,
		Reminders:          doc.Reminders,
	}
}

// upgradeV2 adds the manual completion and reminder containers when absent.
func upgradeV2(doc documentV2) documentV3 {
	completions := doc.ManualCompletions
	if completions == nil {
		completions = homework.ManualCompletions{}
	}
	return documentV3{
		UpdatedAt:          doc.UpdatedAt,
		Students:           doc.Students,
		NameIndex:          doc.NameIndex,
		Submissions:        doc.Submissions,
		StudentSubmissions: doc.StudentSubmissions,
		ManualCompletions:  completions,
		Assignments:        doc.Assignments,
		Reminders:          homework.NormalizeReminders(doc.Reminders),
	}
}

func fromV3(doc documentV3) *homework.DataFile {
	subs := make(map[string]*homework.Submission, len(doc.Submissions))
	for id, s := range doc.Submissions {
		if s == nil {
			continue
		}
		subs[id] = normalizeSubmission(s)
	}
	return &homework.DataFile{
		Version:            homework.CurrentVersion,
		UpdatedAt:          doc.UpdatedAt,
		Students:           doc.Students,
		NameIndex:          doc.NameIndex,
		Submissions:        subs,
		StudentSubmissions: doc.StudentSubmissions,
		ManualCompletions:  doc.ManualCompletions,
		Assignments:        doc.Assignments,
		Reminders:          homework.NormalizeReminders(doc.Reminders),
	}
}

func toPhotoLists(s *legacySubmission) *legacySubmission {
	out := *s
	out.PhotoFileIDs, out.PhotoUniqueIDs, out.TGMessageIDs = photoLists(s.PhotoFileIDs, s.PhotoUniqueIDs, s.TGMessageIDs, s.PhotoFileID, s.PhotoUniqueID, s.TGMessageID)
	out.PhotoFileID, out.PhotoUniqueID, out.TGMessageID = "", "", 0
	out.History = make([]legacyHistory, 0, len(s.History))
	for _, h := range s.History {
		h.PhotoFileIDs, h.PhotoUniqueIDs, h.TGMessageIDs = photoLists(h.PhotoFileIDs, h.PhotoUniqueIDs, h.TGMessageIDs, h.PhotoFileID, h.PhotoUniqueID, h.TGMessageID)
		h.PhotoFileID, h.PhotoUniqueID, h.TGMessageID = "", "", 0
		out.History = append(out.History, h)
	}
	return &out
}

// normalizeSubmission turns single photo fields into lists. Lists already
// present win over the single fields.
func normalizeSubmission(s *legacySubmission) *homework.Submission {
	fileIDs, uniqueIDs, messageIDs := photoLists(s.PhotoFileIDs, s.PhotoUniqueIDs, s.TGMessageIDs, s.PhotoFileID, s.PhotoUniqueID, s.TGMessageID)
	history := make([]homework.SubmissionHistory, 0, len(s.History))
	for _, h := range s.History {
		hf, hu, hm := photoLists(h.PhotoFileIDs, h.PhotoUniqueIDs, h.TGMessageIDs, h.PhotoFileID, h.PhotoUniqueID, h.TGMessageID)
		history = append(history, homework.SubmissionHistory{
			UpdatedAt:      h.UpdatedAt,
			PhotoFileIDs:   hf,
			PhotoUniqueIDs: hu,
			TGMessageIDs:   hm,
		})
	}
	return &homework.Submission{
		ID:             s.ID,
		StudentToken:   s.StudentToken,
		StudentName:    s.StudentName,
		Subject:        s.Subject,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		PhotoFileIDs:   fileIDs,
		PhotoUniqueIDs: uniqueIDs,
		TGMessageIDs:   messageIDs,
		Note:           s.Note,
		Review:         s.Review,
		EditCount:      s.EditCount,
		History:        history,
	}
}

func photoLists(fileIDs, uniqueIDs []string, messageIDs []int, fileID, uniqueID string, messageID int) ([]string, []string, []int) {
	if len(fileIDs) == 0 && fileID != "" {
		fileIDs = []string{fileID}
	}
	if len(uniqueIDs) == 0 && uniqueID != "" {
		uniqueIDs = []string{uniqueID}
	}
	if len(messageIDs) == 0 && messageID != 0 {
		messageIDs = []int{messageID}
	}
	if fileIDs == nil {
		fileIDs = []string{}
	}
	if messageIDs == nil {
		messageIDs = []int{}
	}
	if len(uniqueIDs) == 0 {
		uniqueIDs = nil
	}
	return fileIDs, uniqueIDs, messageIDs
}
