package homework

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsExpiredIsInclusiveOfDueDay(t *testing.T) {
	onDueDay := time.Date(2024, 1, 1, 23, 30, 0, 0, testLoc)
	nextDay := time.Date(2024, 1, 2, 0, 0, 1, 0, testLoc)

	require.False(t, IsExpired("2024-01-01", onDueDay, testLoc))
	require.True(t, IsExpired("2024-01-02", nextDay.AddDate(0, 0, 1), testLoc))
	require.True(t, IsExpired("2024-01-01", nextDay, testLoc))
}

func TestIsExpiredUsesConfiguredZone(t *testing.T) {
	// 2024-01-01 20:00 UTC is already 2024-01-02 in UTC+8
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	require.True(t, IsExpired("2024-01-01", now, testLoc))
	require.False(t, IsExpired("2024-01-01", now, time.UTC))
}

func TestIsExpiredWithoutDueDate(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, testLoc)
	require.False(t, IsExpired("", now, testLoc))
	require.False(t, IsExpired("not-a-date", now, testLoc))
}

func TestAssignmentOpenPredicate(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, testLoc)
	require.True(t, (&Assignment{Active: true}).IsOpen(now, testLoc))
	require.False(t, (&Assignment{Active: false}).IsOpen(now, testLoc))
	require.False(t, (&Assignment{Active: true, DueDate: "2024-01-01"}).IsOpen(now, testLoc))
	require.True(t, (&Assignment{Active: true, DueDate: "2024-01-02"}).IsOpen(now, testLoc))
}

func TestCreateAssignmentValidates(t *testing.T) {
	data := newTestData(t)
	_, err := data.CreateAssignment(AssignmentInput{Subject: " ", Title: "x"}, time.Now())
	msg, ok := IsValidation(err)
	require.True(t, ok)
	require.Equal(t, "请填写科目与标题", msg)

	a, err := data.CreateAssignment(AssignmentInput{Subject: " Math ", Title: " Ch1 ", DueDate: " 2024-01-01 "}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "Math", a.Subject)
	require.Equal(t, "Ch1", a.Title)
	require.Equal(t, "2024-01-01", a.DueDate)
	require.True(t, a.Active)
	require.NotEmpty(t, a.ID)

	for _, due := range []string{"2024-13-01", "next friday", "2024/01/01"} {
		_, err = data.CreateAssignment(AssignmentInput{Subject: "Math", Title: "Ch2", DueDate: due}, time.Now())
		msg, ok = IsValidation(err)
		require.True(t, ok, due)
		require.Equal(t, "日期格式无效", msg)
	}
	require.Len(t, data.Assignments, 1)
}

func TestPatchAssignmentOnlyTouchesPresentFields(t *testing.T) {
	data := newTestData(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := data.CreateAssignment(AssignmentInput{Subject: "Math", Title: "Ch1", Description: "read"}, created)
	require.NoError(t, err)

	inactive := false
	title := "Ch2"
	later := created.Add(time.Hour)
	patched, err := data.PatchAssignment(a.ID, AssignmentPatch{Title: &title, Active: &inactive}, later)
	require.NoError(t, err)
	require.Equal(t, "Math", patched.Subject)
	require.Equal(t, "Ch2", patched.Title)
	require.Equal(t, "read", patched.Description)
	require.False(t, patched.Active)
	require.Equal(t, later, patched.UpdatedAt)

	empty := " "
	_, err = data.PatchAssignment(a.ID, AssignmentPatch{Subject: &empty, Title: &title}, later)
	_, ok := IsValidation(err)
	require.True(t, ok)

	bad := "2024-02-30"
	_, err = data.PatchAssignment(a.ID, AssignmentPatch{Title: &empty, DueDate: &bad}, later)
	_, ok = IsValidation(err)
	require.True(t, ok)
	_, err = data.PatchAssignment(a.ID, AssignmentPatch{DueDate: &bad}, later.Add(time.Hour))
	msg, ok := IsValidation(err)
	require.True(t, ok)
	require.Equal(t, "日期格式无效", msg)
	require.Empty(t, patched.DueDate)
	require.Equal(t, later, patched.UpdatedAt)

	due := " 2024-03-05 "
	patched, err = data.PatchAssignment(a.ID, AssignmentPatch{DueDate: &due}, later)
	require.NoError(t, err)
	require.Equal(t, "2024-03-05", patched.DueDate)

	_, err = data.PatchAssignment("missing", AssignmentPatch{}, later)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestDeleteAssignmentKeepsSubmissions(t *testing.T) {
	data := newTestData(t)
	now := time.Now()
	a, err := data.CreateAssignment(AssignmentInput{Subject: "Math", Title: "Ch1"}, now)
	require.NoError(t, err)
	token, _, err := data.AddStudent("Alice", now)
	require.NoError(t, err)
	sub, err := data.Submit(token, "Math", "", []PhotoRef{{FileID: "f"}}, now, testLoc)
	require.NoError(t, err)

	require.NoError(t, data.DeleteAssignment(a.ID))
	require.Empty(t, data.Assignments)
	require.NotNil(t, data.Submissions[sub.ID])
	require.ErrorIs(t, data.DeleteAssignment(a.ID), ErrAssignmentNotFound)
}
