// Package report exports an enrollment's progress and study statistics as
// an XLSX workbook.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/stats"
)

// Sheet names in workbook order.
const (
	SheetSummary  = "Summary"
	SheetProgress = "Progress"
	SheetHeatmap  = "Heatmap"
	SheetWeekly   = "Weekly"
)

// ContentType is the MIME type of the exported workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Store is the persistence the exporter reads.
type Store interface {
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error)
	ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error)
}

// DashboardSource computes dashboard figures. *stats.Service implements it.
type DashboardSource interface {
	Dashboard(ctx context.Context, enrollmentID string) (stats.Dashboard, error)
}

// Exporter builds workbooks for enrollments.
type Exporter struct {
	store Store
	stats DashboardSource
}

// NewExporter creates an exporter.
func NewExporter(s Store, d DashboardSource) *Exporter {
	return &Exporter{store: s, stats: d}
}

// Data is everything a workbook shows.
type Data struct {
	Course    domain.Course
	Nodes     []domain.Node
	Progress  []domain.NodeProgress
	Dashboard stats.Dashboard
}

// Export writes the workbook of one enrollment to w.
func (e *Exporter) Export(ctx context.Context, enrollmentID string, w io.Writer) error {
	enrollment, err := e.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	course, err := e.store.GetCourse(ctx, enrollment.CourseID)
	if err != nil {
		return err
	}
	var nodes []domain.Node
	rm, err := e.store.GetRoadmap(ctx, enrollment.CourseID)
	switch {
	case err == nil:
		nodes = rm.Nodes
	case !errors.Is(err, apperr.ErrNotFound):
		return fmt.Errorf("get roadmap: %w", err)
	}
	rows, err := e.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return err
	}
	dash, err := e.stats.Dashboard(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}

	return Write(w, Data{Course: course, Nodes: nodes, Progress: rows, Dashboard: dash})
}

// Write renders d as a workbook.
func Write(w io.Writer, d Data) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetProgress, SheetHeatmap, SheetWeekly} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	for _, write := range []func(*excelize.File, int, Data) error{
		writeSummary,
		writeProgress,
		writeHeatmap,
		writeWeekly,
	} {
		if err := write(f, header, d); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, header int, d Data) error {
	ps := d.Dashboard.ProgressStats
	ns := d.Dashboard.NodeStats
	rows := [][]any{
		{"Course", d.Course.Title},
		{"Category", d.Course.Category},
		{"Completion %", ps.CompletionPercentage},
		{"Total study hours", ps.TotalStudyHours},
		{"Average daily minutes", ps.AverageDailyMinutes},
		{"Streak (days)", ps.Streak},
		{"Last active", ps.LastActiveDate},
		{"Mastered nodes", ns.Mastered},
		{"In progress nodes", ns.InProgress},
		{"Not started nodes", ns.NotStarted},
		{"Needs review nodes", ns.NeedsReview},
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), header); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}

func writeProgress(f *excelize.File, header int, d Data) error {
	byNode := make(map[string]domain.NodeProgress, len(d.Progress))
	for _, p := range d.Progress {
		byNode[p.NodeID] = p
	}

	rows := [][]any{{"Node", "Title", "Status", "Mastery", "Study minutes", "Estimated hours", "Last assessed"}}
	for _, n := range d.Nodes {
		p, ok := byNode[n.ID]
		status := domain.StatusNotStarted
		if ok {
			status = p.Status
		}
		last := ""
		if p.LastAssessed != nil {
			last = domain.DateKey(*p.LastAssessed)
		}
		rows = append(rows, []any{n.ID, n.Title, string(status), p.MasteryScore, p.StudyTimeMinutes, n.EstimatedHours, last})
	}
	if err := writeRows(f, SheetProgress, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetProgress, "A1", "G1", header); err != nil {
		return fmt.Errorf("style progress: %w", err)
	}
	return f.SetColWidth(SheetProgress, "B", "B", 32)
}

func writeHeatmap(f *excelize.File, header int, d Data) error {
	rows := make([][]any, 0, len(d.Dashboard.Heatmap)+1)
	rows = append(rows, []any{"Date", "Minutes"})
	for _, h := range d.Dashboard.Heatmap {
		rows = append(rows, []any{h.Date, h.Value})
	}
	if err := writeRows(f, SheetHeatmap, rows); err != nil {
		return err
	}
	return f.SetCellStyle(SheetHeatmap, "A1", "B1", header)
}

func writeWeekly(f *excelize.File, header int, d Data) error {
	rows := make([][]any, 0, len(d.Dashboard.WeeklyTrend)+1)
	rows = append(rows, []any{"Week of", "Minutes"})
	for _, wk := range d.Dashboard.WeeklyTrend {
		rows = append(rows, []any{wk.Week, wk.Minutes})
	}
	if err := writeRows(f, SheetWeekly, rows); err != nil {
		return err
	}
	return f.SetCellStyle(SheetWeekly, "A1", "B1", header)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
