package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homework_portal/internal/domain/homework"
	"homework_portal/internal/infra/telegram/telegramtest"
)

const homeworkChat int64 = -1001

func newTestPortal(t *testing.T, data *homework.DataFile) (*PortalService, *memoryStore, *telegramtest.Transport) {
	t.Helper()
	store := newMemoryStore(t, data)
	transport := telegramtest.New()
	svc := NewPortalService(store, transport, homeworkChat, nil, testLoc, discardLogger())
	svc.now = testClock
	return svc, store, transport
}

func TestRegisterCreatesAndRebinds(t *testing.T) {
	svc, store, _ := newTestPortal(t, nil)
	ctx := context.Background()

	first, err := svc.Register(ctx, "", "  Bob ")
	require.NoError(t, err)
	require.False(t, first.Rebound)
	require.Equal(t, "Bob", first.Name)

	second, err := svc.Register(ctx, "", "Bob")
	require.NoError(t, err)
	require.True(t, second.Rebound)
	require.NotEqual(t, first.Token, second.Token)

	data := store.data(t)
	require.Equal(t, second.Token, data.NameIndex["Bob"])
	require.Nil(t, data.Students[first.Token])
}

func TestRegisterWithValidTokenIsNoop(t *testing.T) {
	data, token := seedData(t)
	svc, store, _ := newTestPortal(t, data)

	res, err := svc.Register(context.Background(), token, "Someone Else")
	require.NoError(t, err)
	require.True(t, res.AlreadyBound)
	require.Equal(t, token, res.Token)
	require.Zero(t, store.saves)
}

func TestRegisterRejectsLongName(t *testing.T) {
	svc, _, _ := newTestPortal(t, nil)
	_, err := svc.Register(context.Background(), "", "一二三四五六七八九十一二三四五六七八九十一二三四五")
	msg, ok := homework.IsValidation(err)
	require.True(t, ok)
	require.Equal(t, "姓名不能为空且长度需小于 24", msg)
}

func TestSubmitUploadsAndRecords(t *testing.T) {
	data, token := seedData(t)
	svc, store, transport := newTestPortal(t, data)

	sub, err := svc.Submit(context.Background(), token, SubmitInput{Subject: "数学", Note: "第二题不会", Photos: photos(3)})
	require.NoError(t, err)
	require.Len(t, sub.PhotoFileIDs, 3)
	require.Equal(t, []string{"#Alice #数学 #2024-03-01\n时间: 2024-03-01 10:30"}, transport.Captions)

	stored := store.data(t)
	require.Equal(t, []string{sub.ID}, stored.StudentSubmissions[token])
	require.Equal(t, "第二题不会", stored.Submissions[sub.ID].Note)
	require.NotNil(t, stored.Students[token].LastSeenAt)
}

func TestSubmitRejections(t *testing.T) {
	data, token := seedData(t)
	svc, store, transport := newTestPortal(t, data)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "nobody", SubmitInput{Subject: "数学", Photos: photos(1)})
	require.ErrorIs(t, err, ErrUnregistered)

	_, err = svc.Submit(ctx, token, SubmitInput{Subject: "语文", Photos: photos(1)})
	msg, _ := homework.IsValidation(err)
	require.Equal(t, "科目无效", msg)

	_, err = svc.Submit(ctx, token, SubmitInput{Subject: "数学", Photos: photos(11)})
	msg, _ = homework.IsValidation(err)
	require.Equal(t, "最多上传 10 张图片", msg)

	_, err = svc.Submit(ctx, token, SubmitInput{Subject: "数学"})
	msg, _ = homework.IsValidation(err)
	require.Equal(t, "请上传图片", msg)

	require.Empty(t, transport.Captions, "nothing may be uploaded for a rejected submission")
	require.Zero(t, store.saves)
}

func TestSubmitMalformedUpstream(t *testing.T) {
	data, token := seedData(t)
	svc, store, transport := newTestPortal(t, data)

	transport.DropFileIDs = true
	_, err := svc.Submit(context.Background(), token, SubmitInput{Subject: "数学", Photos: photos(2)})
	require.ErrorIs(t, err, ErrUpstreamMalformed)

	transport.DropFileIDs = false
	transport.ShortReplies = true
	_, err = svc.Submit(context.Background(), token, SubmitInput{Subject: "数学", Photos: photos(2)})
	require.ErrorIs(t, err, ErrUpstreamMalformed)
	require.Zero(t, store.saves)
}

func TestSubmitTransportFailure(t *testing.T) {
	data, token := seedData(t)
	svc, _, transport := newTestPortal(t, data)
	transport.FailSend = errors.New("flood wait")

	_, err := svc.Submit(context.Background(), token, SubmitInput{Subject: "数学", Photos: photos(1)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "flood wait")
}

func TestEditReplacesPhotos(t *testing.T) {
	data, token := seedData(t)
	svc, store, transport := newTestPortal(t, data)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, token, SubmitInput{Subject: "数学", Photos: photos(1)})
	require.NoError(t, err)
	original := sub.PhotoFileIDs

	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	edited, err := svc.Edit(ctx, token, sub.ID, photos(2))
	require.NoError(t, err)
	require.Equal(t, 1, edited.EditCount)
	require.Len(t, edited.PhotoFileIDs, 2)
	require.Contains(t, transport.Captions[1], "#2024-03-01_11:30 #Alice #已修改")

	stored := store.data(t).Submissions[sub.ID]
	require.Len(t, stored.History, 1)
	require.Equal(t, original, stored.History[0].PhotoFileIDs)
}

func TestEditWindowAndOwnership(t *testing.T) {
	data, token := seedData(t)
	otherToken, _, err := data.AddStudent("Bob", testNow)
	require.NoError(t, err)
	svc, _, _ := newTestPortal(t, data)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, token, SubmitInput{Subject: "数学", Photos: photos(1)})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, otherToken, sub.ID, photos(1))
	require.ErrorIs(t, err, homework.ErrNotOwner)

	_, err = svc.Edit(ctx, token, "", photos(1))
	msg, _ := homework.IsValidation(err)
	require.Equal(t, "缺少提交记录", msg)

	svc.now = func() time.Time { return testNow.Add(homework.EditWindow + time.Minute) }
	_, err = svc.Edit(ctx, token, sub.ID, photos(1))
	require.ErrorIs(t, err, homework.ErrEditWindowClosed)
}

func TestMeViews(t *testing.T) {
	data, token := seedData(t)
	svc, _, _ := newTestPortal(t, data)
	ctx := context.Background()

	anon, err := svc.Me(ctx, "")
	require.NoError(t, err)
	require.False(t, anon.Registered)
	require.Len(t, anon.Assignments, 1)
	require.Equal(t, "2024-03-01", anon.Reminders[0].Meta)
	require.Equal(t, []string{"数学"}, anon.Subjects)

	_, err = svc.Submit(ctx, token, SubmitInput{Subject: "数学", Photos: photos(1)})
	require.NoError(t, err)

	me, err := svc.Me(ctx, token)
	require.NoError(t, err)
	require.True(t, me.Registered)
	require.Equal(t, "Alice", me.Student.Name)
	require.Len(t, me.Submissions, 1)
	require.True(t, me.Submissions[0].Editable)
	require.Equal(t, homework.ReviewPending, me.Submissions[0].Review.Status)
	require.Len(t, me.Status.Completed, 1)
	require.Empty(t, me.Status.Pending)
}

func TestMediaOnlyServesOwnFiles(t *testing.T) {
	data, token := seedData(t)
	otherToken, _, err := data.AddStudent("Bob", testNow)
	require.NoError(t, err)
	svc, _, _ := newTestPortal(t, data)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, token, SubmitInput{Subject: "数学", Photos: photos(1)})
	require.NoError(t, err)

	body, err := svc.Media(ctx, token, sub.ID, sub.PhotoFileIDs[0])
	require.NoError(t, err)
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8, 0}, content)

	_, err = svc.Media(ctx, otherToken, sub.ID, sub.PhotoFileIDs[0])
	require.ErrorIs(t, err, homework.ErrNotOwner)

	_, err = svc.Media(ctx, token, sub.ID, "file-elsewhere")
	require.ErrorIs(t, err, ErrFileNotAllowed)

	_, err = svc.Media(ctx, "", sub.ID, sub.PhotoFileIDs[0])
	require.ErrorIs(t, err, ErrUnregistered)
}
