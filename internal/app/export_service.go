package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"homework_portal/internal/domain/homework"
)

const (
	notSubmitted = "未提交"
	reportSheet  = "作业统计"
)

var csvHeader = []string{"姓名", "科目", "提交时间", "最近更新", "留言", "批改状态", "分数", "批改意见", "图片数量"}

// ExportService renders read-only projections of the document.
type ExportService struct {
	store    homework.Store
	subjects []string
	loc      *time.Location
	now      func() time.Time
	logger   *logrus.Entry
}

func NewExportService(store homework.Store, subjects []string, loc *time.Location, logger *logrus.Entry) *ExportService {
	return &ExportService{store: store, subjects: subjects, loc: loc, now: time.Now, logger: logger}
}

// Export is a rendered file.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

// SubmissionsCSV lists the submissions created on date (today when empty).
func (s *ExportService) SubmissionsCSV(ctx context.Context, date string) (*Export, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = homework.FormatDate(s.now(), s.loc)
	}
	if _, err := homework.ParseDate(date, s.loc); err != nil {
		return nil, invalid("日期格式无效")
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := 0
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	subs := snap.Data.AllSubmissions()
	// oldest first reads naturally in a spreadsheet
	for i := len(subs) - 1; i >= 0; i-- {
		sub := subs[i]
		if homework.FormatDate(sub.CreatedAt, s.loc) != date {
			continue
		}
		review := sub.ReviewOrPending()
		score := ""
		if review.Score != nil {
			score = strconv.FormatFloat(*review.Score, 'f', -1, 64)
		}
		record := []string{
			sub.StudentName,
			sub.Subject,
			homework.FormatDateTime(sub.CreatedAt, s.loc),
			homework.FormatDateTime(sub.UpdatedAt, s.loc),
			sub.Note,
			reviewLabel(review.Status),
			score,
			review.Comment,
			strconv.Itoa(len(sub.PhotoFileIDs)),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
		rows++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"date": date, "rows": rows}).Info("CSV export rendered")
	return &Export{
		FileName:    fmt.Sprintf("homework-%s.csv", date),
		ContentType: "text/csv; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

// ReportCell is the latest submission of one student for one subject.
type ReportCell struct {
	Submitted bool
	Value     string
}

// ReportRow is one student's line in the report.
type ReportRow struct {
	Student string
	Cells   []ReportCell
}

// Report is the student x subject grid for a date range.
type Report struct {
	Start    string
	End      string
	Subjects []string
	Rows     []ReportRow
}

// BuildReport crosses every roster student with every subject. Each cell
// holds the newest submission created inside [start, end].
func (s *ExportService) BuildReport(ctx context.Context, start, end string) (*Report, error) {
	from, last, err := s.parseRange(start, end)
	if err != nil {
		return nil, err
	}
	until := last.AddDate(0, 0, 1)
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	data := snap.Data
	subjects := subjectsOf(s.subjects, data)

	report := &Report{
		Start:    homework.FormatDate(from, s.loc),
		End:      homework.FormatDate(last, s.loc),
		Subjects: subjects,
		Rows:     []ReportRow{},
	}
	for _, entry := range data.Roster() {
		latest := map[string]time.Time{}
		for _, sub := range data.SubmissionsFor(entry.Token) {
			if sub.CreatedAt.Before(from) || !sub.CreatedAt.Before(until) {
				continue
			}
			if cur, ok := latest[sub.Subject]; !ok || sub.CreatedAt.After(cur) {
				latest[sub.Subject] = sub.CreatedAt
			}
		}
		row := ReportRow{Student: entry.Name, Cells: make([]ReportCell, 0, len(subjects))}
		for _, subject := range subjects {
			if at, ok := latest[subject]; ok {
				row.Cells = append(row.Cells, ReportCell{Submitted: true, Value: homework.FormatDateTime(at, s.loc)})
			} else {
				row.Cells = append(row.Cells, ReportCell{Value: notSubmitted})
			}
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// ReportWorkbook renders BuildReport as an XLSX workbook.
func (s *ExportService) ReportWorkbook(ctx context.Context, start, end string) (*Export, error) {
	report, err := s.BuildReport(ctx, start, end)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("failed to name report sheet: %w", err)
	}

	header := append([]interface{}{"姓名"}, toInterfaces(report.Subjects)...)
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for i, row := range report.Rows {
		values := []interface{}{row.Student}
		for _, cell := range row.Cells {
			values = append(values, cell.Value)
		}
		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(reportSheet, anchor, &values); err != nil {
			return nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(report.Subjects) + 1)
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(reportSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(reportSheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"start": report.Start, "end": report.End, "students": len(report.Rows)}).Info("Report export rendered")
	return &Export{
		FileName:    fmt.Sprintf("homework-report-%s_%s.xlsx", report.Start, report.End),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Body:        buf.Bytes(),
	}, nil
}

// parseRange returns the start of the first and of the last day, both inclusive.
func (s *ExportService) parseRange(start, end string) (time.Time, time.Time, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" {
		start = end
	}
	if end == "" {
		end = start
	}
	if start == "" {
		return time.Time{}, time.Time{}, invalid("请选择日期范围")
	}
	from, err := homework.ParseDate(start, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("日期格式无效")
	}
	last, err := homework.ParseDate(end, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("日期格式无效")
	}
	if last.Before(from) {
		return time.Time{}, time.Time{}, invalid("结束日期早于开始日期")
	}
	return from, last, nil
}

func reviewLabel(status homework.ReviewStatus) string {
	switch status {
	case homework.ReviewReviewed:
		return "已批改"
	case homework.ReviewReturned:
		return "已退回"
	default:
		return "待批改"
	}
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
