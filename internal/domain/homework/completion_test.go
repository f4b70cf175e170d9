package homework

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualCompletionTogglePrunes(t *testing.T) {
	data := newTestData(t)
	_, _, err := data.AddStudent("Alice", time.Now())
	require.NoError(t, err)
	_, _, err = data.AddStudent("Bob", time.Now())
	require.NoError(t, err)

	require.NoError(t, data.SetManualCompletion("2024-03-01", "Alice", "Math", true, nil))
	require.NoError(t, data.SetManualCompletion("2024-03-01", "Bob", "Math", true, nil))
	require.Equal(t, []string{"Math"}, data.ManualCompletions["2024-03-01"]["Alice"])

	require.NoError(t, data.SetManualCompletion("2024-03-01", "Alice", "Math", false, nil))
	_, ok := data.ManualCompletions["2024-03-01"]["Alice"]
	require.False(t, ok)

	require.NoError(t, data.SetManualCompletion("2024-03-01", "Bob", "Math", false, nil))
	_, ok = data.ManualCompletions["2024-03-01"]
	require.False(t, ok)
}

func TestManualCompletionValidation(t *testing.T) {
	data := newTestData(t)
	_, _, err := data.AddStudent("Alice", time.Now())
	require.NoError(t, err)

	err = data.SetManualCompletion("", "Alice", "Math", true, nil)
	_, ok := IsValidation(err)
	require.True(t, ok)

	err = data.SetManualCompletion("2024-13-45", "Alice", "Math", true, nil)
	_, ok = IsValidation(err)
	require.True(t, ok)

	require.ErrorIs(t, data.SetManualCompletion("2024-03-01", "Zed", "Math", true, nil), ErrStudentNotFound)

	err = data.SetManualCompletion("2024-03-01", "Alice", "Art", true, []string{"Math", "English"})
	msg, ok := IsValidation(err)
	require.True(t, ok)
	require.Equal(t, "科目不存在", msg)
}

func TestStatusBuckets(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, testLoc)
	data := newTestData(t)
	token, _, err := data.AddStudent("Alice", now)
	require.NoError(t, err)

	math, err := data.CreateAssignment(AssignmentInput{Subject: "Math", Title: "Ch1"}, now)
	require.NoError(t, err)
	english, err := data.CreateAssignment(AssignmentInput{Subject: "English", Title: "Essay"}, now)
	require.NoError(t, err)
	physics, err := data.CreateAssignment(AssignmentInput{Subject: "Physics", Title: "Lab"}, now)
	require.NoError(t, err)
	history, err := data.CreateAssignment(AssignmentInput{Subject: "History", Title: "Old", DueDate: "2024-03-01"}, now)
	require.NoError(t, err)
	chem, err := data.CreateAssignment(AssignmentInput{Subject: "Chemistry", Title: "Old", DueDate: "2024-03-01"}, now)
	require.NoError(t, err)

	_, err = data.Submit(token, "Math", "", []PhotoRef{{FileID: "m"}}, now, testLoc)
	require.NoError(t, err)
	require.NoError(t, data.SetManualCompletion("2024-03-05", "Alice", "English", true, nil))

	// a chemistry submission from before the due date
	data.Submissions["old"] = &Submission{ID: "old", StudentToken: token, Subject: "Chemistry", CreatedAt: now.AddDate(0, 0, -6)}
	data.StudentSubmissions[token] = append(data.StudentSubmissions[token], "old")

	buckets := data.StatusBuckets(token, now, testLoc)
	require.ElementsMatch(t, []*Assignment{math, english}, buckets.Completed)
	require.Equal(t, []*Assignment{physics}, buckets.Pending)
	require.Equal(t, []*Assignment{history}, buckets.ExpiredUnsubmitted)
	require.NotContains(t, buckets.ExpiredUnsubmitted, chem)
}

func TestPendingStudents(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, testLoc)
	data := newTestData(t)
	_, err := data.CreateAssignment(AssignmentInput{Subject: "Math", Title: "Ch1"}, now)
	require.NoError(t, err)
	alice, _, err := data.AddStudent("Alice", now)
	require.NoError(t, err)
	_, _, err = data.AddStudent("Bob", now)
	require.NoError(t, err)

	_, err = data.Submit(alice, "Math", "", []PhotoRef{{FileID: "m"}}, now, testLoc)
	require.NoError(t, err)
	require.Equal(t, []string{"Bob"}, data.PendingStudents("Math", now, testLoc))
}

func TestRenderReminders(t *testing.T) {
	list := NormalizeReminders([]Reminder{{Title: " Due ", Body: "by {today}", Meta: ""}})
	rendered := RenderReminders(list, "2024-03-05")
	require.Equal(t, []Reminder{{Title: "Due", Body: "by 2024-03-05"}}, rendered)
	require.Equal(t, DefaultReminders(), NormalizeReminders(nil))
}
