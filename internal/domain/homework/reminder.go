package homework

import "strings"

// DefaultReminders are shown until an admin saves a custom list.
func DefaultReminders() []Reminder {
	return []Reminder{
		{Title: "上传时间", Body: "建议在当天 22:00 前完成提交。", Meta: "{today}"},
		{Title: "修改窗口", Body: "提交后 3 天内可上传新版图片。", Meta: "支持自动标记更新"},
		{Title: "图片质量", Body: "保持清晰，避免过度裁剪或反光。", Meta: "推荐横向拍摄"},
	}
}

// NormalizeReminders trims every field and falls back to the defaults for an empty list.
func NormalizeReminders(raw []Reminder) []Reminder {
	if len(raw) == 0 {
		return DefaultReminders()
	}
	cleaned := make([]Reminder, 0, len(raw))
	for _, r := range raw {
		cleaned = append(cleaned, Reminder{
			Title: strings.TrimSpace(r.Title),
			Body:  strings.TrimSpace(r.Body),
			Meta:  strings.TrimSpace(r.Meta),
		})
	}
	return cleaned
}

// RenderReminders substitutes {today} in every field.
func RenderReminders(list []Reminder, today string) []Reminder {
	rendered := make([]Reminder, 0, len(list))
	for _, r := range list {
		rendered = append(rendered, Reminder{
			Title: strings.ReplaceAll(r.Title, "{today}", today),
			Body:  strings.ReplaceAll(r.Body, "{today}", today),
			Meta:  strings.ReplaceAll(r.Meta, "{today}", today),
		})
	}
	return rendered
}
