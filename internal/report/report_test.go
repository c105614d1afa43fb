package report_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/progress"
	"github.com/p-n-ai/lightup/internal/report"
	"github.com/p-n-ai/lightup/internal/stats"
	"github.com/p-n-ai/lightup/internal/store"
)

func TestExport(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return today }

	s := store.NewMemoryStore()
	course, err := s.CreateCourse(ctx, domain.Course{Title: "Go Fundamentals", Category: "Programming"})
	if err != nil {
		t.Fatal(err)
	}
	nodes := []domain.Node{
		{ID: "syntax", Title: "Syntax", EstimatedHours: 2},
		{ID: "types", Title: "Types", EstimatedHours: 3, Prerequisites: []string{"syntax"}},
	}
	if _, err := s.SaveRoadmap(ctx, domain.Roadmap{CourseID: course.ID, Nodes: nodes}); err != nil {
		t.Fatal(err)
	}
	e, err := s.CreateEnrollment(ctx, domain.Enrollment{LearnerID: "learner-1", CourseID: course.ID, Status: domain.EnrollmentActive})
	if err != nil {
		t.Fatal(err)
	}
	if err := progress.NewEngine(s).Initialize(ctx, e.ID, nodes); err != nil {
		t.Fatal(err)
	}

	statsSvc := stats.NewService(s, stats.WithClock(clock))
	if _, err := statsSvc.RecordStudyLog(ctx, stats.LogEntry{
		EnrollmentID: e.ID,
		ActivityType: domain.ActivityStudy,
		NodeIDs:      []string{"syntax"},
		Minutes:      45,
	}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := report.NewExporter(s, statsSvc).Export(ctx, e.ID, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	wantSheets := []string{report.SheetSummary, report.SheetProgress, report.SheetHeatmap, report.SheetWeekly}
	if got := f.GetSheetList(); !slices.Equal(got, wantSheets) {
		t.Errorf("sheets = %v, want %v", got, wantSheets)
	}

	progressRows, err := f.GetRows(report.SheetProgress)
	if err != nil {
		t.Fatal(err)
	}
	if len(progressRows) != 3 {
		t.Fatalf("progress rows = %d, want header + 2", len(progressRows))
	}
	if got := progressRows[1]; got[0] != "syntax" || got[2] != "next" || got[4] != "45" {
		t.Errorf("syntax row = %v", got)
	}
	if got := progressRows[2]; got[0] != "types" || got[2] != "not_started" {
		t.Errorf("types row = %v", got)
	}

	heatmap, err := f.GetRows(report.SheetHeatmap)
	if err != nil {
		t.Fatal(err)
	}
	if len(heatmap) != stats.HeatmapDays+2 {
		t.Errorf("heatmap rows = %d, want %d", len(heatmap), stats.HeatmapDays+2)
	}
	if last := heatmap[len(heatmap)-1]; last[0] != "2026-03-10" || last[1] != "45" {
		t.Errorf("last heatmap row = %v", last)
	}

	weekly, err := f.GetRows(report.SheetWeekly)
	if err != nil {
		t.Fatal(err)
	}
	if last := weekly[len(weekly)-1]; last[0] != "2026-03-08" || last[1] != "45" {
		t.Errorf("current week row = %v", last)
	}

	course0, err := f.GetCellValue(report.SheetSummary, "B1")
	if err != nil || course0 != "Go Fundamentals" {
		t.Errorf("summary course = %q, %v", course0, err)
	}
}

func TestExport_UnknownEnrollment(t *testing.T) {
	s := store.NewMemoryStore()
	exp := report.NewExporter(s, stats.NewService(s))

	var buf bytes.Buffer
	err := exp.Export(context.Background(), "missing", &buf)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Export() error = %v, want not found", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written on error")
	}
}
