package app

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"homework_portal/internal/domain/homework"
	"homework_portal/internal/infra/telegram/telegramtest"
)

func newTestAdmin(t *testing.T, data *homework.DataFile, subjects []string) (*AdminService, *memoryStore, *telegramtest.Transport) {
	t.Helper()
	store := newMemoryStore(t, data)
	transport := telegramtest.New()
	svc := NewAdminService(store, transport, subjects, testLoc, discardLogger())
	svc.now = testClock
	return svc, store, transport
}

// seedSubmission stores one submission for token and returns its id.
func seedSubmission(t *testing.T, data *homework.DataFile, token string) *homework.Submission {
	t.Helper()
	sub, err := data.Submit(token, "数学", "", []homework.PhotoRef{{FileID: "f-1", MessageID: 1}}, testNow, testLoc)
	require.NoError(t, err)
	return sub
}

func TestAdminAssignmentLifecycle(t *testing.T) {
	svc, store, _ := newTestAdmin(t, homework.NewDataFile(testNow), nil)
	ctx := context.Background()

	_, err := svc.CreateAssignment(ctx, homework.AssignmentInput{Subject: "数学"})
	msg, _ := homework.IsValidation(err)
	require.Equal(t, "请填写科目与标题", msg)

	a, err := svc.CreateAssignment(ctx, homework.AssignmentInput{Subject: "数学", Title: "练习"})
	require.NoError(t, err)

	inactive := false
	patched, err := svc.PatchAssignment(ctx, a.ID, homework.AssignmentPatch{Active: &inactive})
	require.NoError(t, err)
	require.False(t, patched.Active)

	_, err = svc.PatchAssignment(ctx, "", homework.AssignmentPatch{})
	msg, _ = homework.IsValidation(err)
	require.Equal(t, "缺少作业编号", msg)

	_, err = svc.PatchAssignment(ctx, "missing", homework.AssignmentPatch{})
	require.ErrorIs(t, err, homework.ErrAssignmentNotFound)

	require.NoError(t, svc.DeleteAssignment(ctx, a.ID))
	require.Empty(t, store.data(t).Assignments)
}

func TestAdminReview(t *testing.T) {
	data, token := seedData(t)
	sub := seedSubmission(t, data, token)
	svc, store, _ := newTestAdmin(t, data, nil)
	ctx := context.Background()

	score := 92.5
	reviewed, err := svc.Review(ctx, sub.ID, ReviewRequest{Score: &score, Comment: " 很好 "})
	require.NoError(t, err)
	require.Equal(t, homework.ReviewReviewed, reviewed.ReviewStatus())

	stored := store.data(t).Submissions[sub.ID]
	require.Equal(t, "很好", stored.Review.Comment)
	require.Equal(t, 92.5, *stored.Review.Score)

	_, err = svc.Review(ctx, sub.ID, ReviewRequest{Status: "pending"})
	require.NoError(t, err)
	require.Nil(t, store.data(t).Submissions[sub.ID].Review)

	_, err = svc.Review(ctx, sub.ID, ReviewRequest{Status: "lost"})
	msg, _ := homework.IsValidation(err)
	require.Equal(t, "批改状态无效", msg)

	_, err = svc.Review(ctx, "nope", ReviewRequest{})
	require.ErrorIs(t, err, homework.ErrSubmissionNotFound)
}

func TestAdminBatchReview(t *testing.T) {
	data, token := seedData(t)
	sub := seedSubmission(t, data, token)
	svc, store, _ := newTestAdmin(t, data, nil)
	ctx := context.Background()

	result, err := svc.BatchReview(ctx, []string{"ghost"}, ReviewRequest{Status: "returned"})
	require.NoError(t, err)
	require.Zero(t, result.Updated)
	require.Equal(t, []string{"ghost"}, result.Skipped)
	require.Zero(t, store.saves, "nothing resolved, nothing written")

	result, err = svc.BatchReview(ctx, []string{sub.ID, " ", "ghost"}, ReviewRequest{Status: "returned"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, 1, store.saves)
	require.Equal(t, homework.ReviewReturned, store.data(t).Submissions[sub.ID].ReviewStatus())

	_, err = svc.BatchReview(ctx, nil, ReviewRequest{Status: "reviewed"})
	msg, _ := homework.IsValidation(err)
	require.Equal(t, "缺少提交记录", msg)

	_, err = svc.BatchReview(ctx, []string{sub.ID}, ReviewRequest{})
	msg, _ = homework.IsValidation(err)
	require.Equal(t, "缺少批改状态", msg)
}

func TestAdminCompletions(t *testing.T) {
	data, _ := seedData(t)
	svc, store, _ := newTestAdmin(t, data, []string{"数学", "语文"})
	ctx := context.Background()

	require.NoError(t, svc.SetCompletion(ctx, CompletionInput{Date: "2024-03-01", StudentName: "Alice", Subject: "语文", Completed: true}))
	list, err := svc.ListStudents(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "2024-03-01", list.Date)
	require.Equal(t, []string{"语文"}, list.Completions["Alice"])
	require.Equal(t, []string{"数学", "语文"}, list.Subjects)

	err = svc.SetCompletion(ctx, CompletionInput{Date: "2024-03-01", StudentName: "Nobody", Subject: "语文", Completed: true})
	require.ErrorIs(t, err, homework.ErrStudentNotFound)

	err = svc.SetCompletion(ctx, CompletionInput{Date: "2024-03-01", StudentName: "Alice", Subject: "体育", Completed: true})
	msg, _ := homework.IsValidation(err)
	require.Equal(t, "科目不存在", msg)

	require.NoError(t, svc.SetCompletion(ctx, CompletionInput{Date: "2024-03-01", StudentName: "Alice", Subject: "语文", Completed: false}))
	require.Empty(t, store.data(t).ManualCompletions)
}

func TestAdminStudentManagement(t *testing.T) {
	data, token := seedData(t)
	seedSubmission(t, data, token)
	svc, store, _ := newTestAdmin(t, data, nil)
	ctx := context.Background()

	_, _, err := svc.AddStudent(ctx, homework.ReservedName)
	msg, _ := homework.IsValidation(err)
	require.Equal(t, "该姓名不可用", msg)

	bobToken, name, err := svc.AddStudent(ctx, " Bob ")
	require.NoError(t, err)
	require.Equal(t, "Bob", name)

	require.NoError(t, svc.RenameStudent(ctx, token, "Alicia"))
	stored := store.data(t)
	require.Equal(t, token, stored.NameIndex["Alicia"])
	for _, sub := range stored.SubmissionsFor(token) {
		require.Equal(t, "Alicia", sub.StudentName)
	}

	recovered, err := svc.RecoverStudent(ctx, "Alicia")
	require.NoError(t, err)
	require.NotEqual(t, token, recovered)
	require.Len(t, store.data(t).SubmissionsFor(recovered), 1)

	_, err = svc.RecoverStudent(ctx, "Ghost")
	require.ErrorIs(t, err, homework.ErrStudentNotFound)

	require.NoError(t, svc.DeleteStudent(ctx, bobToken))
	require.ErrorIs(t, svc.DeleteStudent(ctx, bobToken), homework.ErrStudentNotFound)

	msg, _ = homework.IsValidation(svc.RenameStudent(ctx, "", "X"))
	require.Equal(t, "缺少学生", msg)
}

func TestAdminReminders(t *testing.T) {
	svc, store, _ := newTestAdmin(t, homework.NewDataFile(testNow), nil)

	saved, err := svc.UpdateReminders(context.Background(), []homework.Reminder{{Title: " 注意 ", Body: "带草稿纸", Meta: ""}})
	require.NoError(t, err)
	require.Equal(t, "注意", saved[0].Title)
	require.Equal(t, saved, store.data(t).Reminders)

	saved, err = svc.UpdateReminders(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, homework.DefaultReminders(), saved)
}

func TestAdminMediaAndOverview(t *testing.T) {
	data, token := seedData(t)
	svc, _, transport := newTestAdmin(t, data, nil)
	ctx := context.Background()

	msgs, err := transport.SendPhotos(ctx, homeworkChat, photos(1), "")
	require.NoError(t, err)
	sub, err := data.Submit(token, "数学", "", []homework.PhotoRef{{FileID: msgs[0].FileID, MessageID: msgs[0].MessageID}}, testNow, testLoc)
	require.NoError(t, err)
	svc.store = newMemoryStore(t, data)

	body, err := svc.Media(ctx, sub.ID, msgs[0].FileID)
	require.NoError(t, err)
	_, err = io.ReadAll(body)
	require.NoError(t, err)

	_, err = svc.Media(ctx, sub.ID, "other")
	require.ErrorIs(t, err, ErrFileNotAllowed)

	_, err = svc.Media(ctx, "missing", msgs[0].FileID)
	require.ErrorIs(t, err, homework.ErrSubmissionNotFound)

	overview, err := svc.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Submissions, 1)
	require.Equal(t, homework.ReviewPending, overview.Submissions[0].Review.Status)
	require.Equal(t, "Alice", overview.Submissions[0].StudentName)
}
