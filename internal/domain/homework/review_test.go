package homework

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReviewThenPendingClearsEverything(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, testLoc)
	data, _, sub := seedSubmission(t, t0)
	score := 95.0

	_, err := data.Review(sub.ID, ReviewInput{Status: ReviewReviewed, Score: &score, Comment: " good ", Reviewer: "Ms Li"}, t0)
	require.NoError(t, err)
	require.Equal(t, ReviewReviewed, sub.Review.Status)
	require.Equal(t, 95.0, *sub.Review.Score)
	require.Equal(t, "good", sub.Review.Comment)
	require.Equal(t, "Ms Li", sub.Review.Reviewer)
	require.NotNil(t, sub.Review.ReviewedAt)

	_, err = data.Review(sub.ID, ReviewInput{Status: ReviewPending}, t0)
	require.NoError(t, err)
	require.Nil(t, sub.Review)
	require.Equal(t, ReviewInfo{Status: ReviewPending}, sub.ReviewOrPending())
}

func TestReviewIgnoresNonFiniteScore(t *testing.T) {
	t0 := time.Now()
	data, _, sub := seedSubmission(t, t0)
	nan := math.NaN()

	_, err := data.Review(sub.ID, ReviewInput{Status: ReviewReturned, Score: &nan, Comment: "  "}, t0)
	require.NoError(t, err)
	require.Equal(t, ReviewReturned, sub.Review.Status)
	require.Nil(t, sub.Review.Score)
	require.Empty(t, sub.Review.Comment)
}

func TestReviewUnknownSubmission(t *testing.T) {
	data := newTestData(t)
	_, err := data.Review("nope", ReviewInput{Status: ReviewReviewed}, time.Now())
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestBatchReviewSkipsUnknownIDs(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, testLoc)
	data, token, a := seedSubmission(t, now)
	c, err := data.Submit(token, "Math", "", []PhotoRef{{FileID: "c"}}, now, testLoc)
	require.NoError(t, err)

	result := data.BatchReview([]string{a.ID, "B", c.ID}, ReviewInput{Status: ReviewReturned, Comment: "redo"}, now)
	require.Equal(t, 2, result.Updated)
	require.Equal(t, []string{"B"}, result.Skipped)
	require.Equal(t, ReviewReturned, a.Review.Status)
	require.Equal(t, ReviewReturned, c.Review.Status)
}

func TestParseReviewStatus(t *testing.T) {
	for _, s := range []string{"pending", "reviewed", "returned"} {
		got, err := ParseReviewStatus(s)
		require.NoError(t, err)
		require.Equal(t, ReviewStatus(s), got)
	}
	_, err := ParseReviewStatus("graded")
	_, ok := IsValidation(err)
	require.True(t, ok)
}
