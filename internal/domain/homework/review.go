package homework

import (
	"math"
	"strings"
	"time"
)

// ReviewStatus is the lifecycle state of a submission review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewReviewed ReviewStatus = "reviewed"
	ReviewReturned ReviewStatus = "returned"
)

// ReviewInfo is the teacher's verdict on a submission.
type ReviewInfo struct {
	Status     ReviewStatus `json:"status"`
	Score      *float64     `json:"score,omitempty"`
	Comment    string       `json:"comment,omitempty"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
	Reviewer   string       `json:"reviewer,omitempty"`
}

// ReviewInput is a requested review transition.
type ReviewInput struct {
	Status   ReviewStatus
	Score    *float64
	Comment  string
	Reviewer string
}

// BatchResult reports a batch review.
type BatchResult struct {
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped"`
}

// ParseReviewStatus validates a status string.
func ParseReviewStatus(raw string) (ReviewStatus, error) {
	switch s := ReviewStatus(strings.TrimSpace(raw)); s {
	case ReviewPending, ReviewReviewed, ReviewReturned:
		return s, nil
	default:
		return "", invalid("批改状态无效")
	}
}

// ApplyReview moves sub to the requested status. Any status may follow any
// other; pending drops the whole review.
func ApplyReview(sub *Submission, in ReviewInput, now time.Time) {
	if in.Status == ReviewPending {
		sub.Review = nil
		return
	}
	status := in.Status
	if status != ReviewReturned {
		status = ReviewReviewed
	}
	var score *float64
	if in.Score != nil && !math.IsNaN(*in.Score) && !math.IsInf(*in.Score, 0) {
		v := *in.Score
		score = &v
	}
	reviewedAt := now.UTC()
	sub.Review = &ReviewInfo{
		Status:     status,
		Score:      score,
		Comment:    strings.TrimSpace(in.Comment),
		ReviewedAt: &reviewedAt,
		Reviewer:   strings.TrimSpace(in.Reviewer),
	}
}

// Review applies in to a single submission.
func (d *DataFile) Review(id string, in ReviewInput, now time.Time) (*Submission, error) {
	sub := d.Submissions[strings.TrimSpace(id)]
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	ApplyReview(sub, in, now)
	return sub, nil
}

// BatchReview applies in to every id that resolves. Unknown ids are reported
// in Skipped instead of failing the batch.
func (d *DataFile) BatchReview(ids []string, in ReviewInput, now time.Time) BatchResult {
	result := BatchResult{Skipped: []string{}}
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		sub := d.Submissions[id]
		if sub == nil {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		ApplyReview(sub, in, now)
		result.Updated++
	}
	return result
}
