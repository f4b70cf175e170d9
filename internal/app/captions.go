package app

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"homework_portal/internal/domain/homework"
)

var whitespace = regexp.MustCompile(`\s+`)

func safeTag(value string) string {
	return strings.ReplaceAll(whitespace.ReplaceAllString(value, "_"), "#", "")
}

// SubmitCaption labels a new submission in the homework chat.
func SubmitCaption(name, subject string, when time.Time, loc *time.Location) string {
	tags := fmt.Sprintf("#%s #%s #%s", safeTag(name), safeTag(subject), homework.FormatDate(when, loc))
	return tags + "\n时间: " + homework.FormatDateTime(when, loc)
}

// EditCaption labels replacement photos of an existing submission.
func EditCaption(name, subject string, createdAt, updatedAt time.Time, loc *time.Location) string {
	timeTag := strings.Replace(homework.FormatDateTime(updatedAt, loc), " ", "_", 1)
	tags := fmt.Sprintf("#%s #%s #已修改", timeTag, safeTag(name))
	return fmt.Sprintf("%s\n科目: %s\n原提交: %s\n修改: %s",
		tags, subject, homework.FormatDateTime(createdAt, loc), homework.FormatDateTime(updatedAt, loc))
}
