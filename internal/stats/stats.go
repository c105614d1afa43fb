// Package stats derives dashboard figures from an enrollment's study logs
// and node progress. The aggregate functions are pure and never mutate
// their inputs; all dates are compared as UTC calendar days.
package stats

import (
	"math"
	"time"

	"github.com/p-n-ai/lightup/internal/domain"
)

// HeatmapDays is how far back the heatmap reaches. The range is inclusive,
// so a heatmap always has HeatmapDays+1 entries.
const HeatmapDays = 365

// Config bounds the windows the aggregates look at.
type Config struct {
	// LogWindow is how many of the most recent logs a dashboard reads.
	LogWindow int
	// AverageDays is the trailing window of AverageDailyMinutes.
	AverageDays int
	// TrendWeeks is the number of weeks WeeklyTrend emits.
	TrendWeeks int
}

// DefaultConfig returns a 365-log window, a 30-day average and a 12-week
// trend.
func DefaultConfig() Config {
	return Config{LogWindow: 365, AverageDays: 30, TrendWeeks: 12}
}

// HeatmapEntry is the minutes studied on one day.
type HeatmapEntry struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// ProgressStats summarises overall progress.
type ProgressStats struct {
	CompletionPercentage int     `json:"completionPercentage"`
	TotalStudyHours      float64 `json:"totalStudyHours"`
	AverageDailyMinutes  int     `json:"averageDailyMinutes"`
	Streak               int     `json:"streak"`
	LastActiveDate       string  `json:"lastActiveDate"`
}

// NodeStats tallies nodes by status.
type NodeStats struct {
	Mastered    int `json:"mastered"`
	InProgress  int `json:"inProgress"`
	NotStarted  int `json:"notStarted"`
	NeedsReview int `json:"needsReview"`
}

// WeekTotal is the minutes studied in the week starting on Week (a Sunday).
type WeekTotal struct {
	Week    string `json:"week"`
	Minutes int    `json:"minutes"`
}

// Heatmap returns one entry per day in [today-365d, today], zero-filled.
// Logs outside the range are ignored.
func Heatmap(logs []domain.StudyLog, today time.Time) []HeatmapEntry {
	end := domain.Day(today)
	start := end.AddDate(0, 0, -HeatmapDays)

	byDay := minutesByDay(logs)
	out := make([]HeatmapEntry, 0, HeatmapDays+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := domain.DateKey(d)
		out = append(out, HeatmapEntry{Date: key, Value: byDay[key]})
	}
	return out
}

// CompletionPercentage weights completed nodes by their estimated hours.
// It is 0 when the roadmap has no estimated hours at all.
func CompletionPercentage(nodes []domain.Node, rows []domain.NodeProgress) int {
	hours := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		hours[n.ID] = n.EstimatedHours
	}

	var total, done float64
	for _, p := range rows {
		h := hours[p.NodeID]
		total += h
		if p.Status == domain.StatusCompleted {
			done += h
		}
	}
	if total <= 0 {
		return 0
	}
	return int(math.Round(done / total * 100))
}

// AverageDailyMinutes divides the minutes of the trailing days (today
// included) by days, not by the number of active days.
func AverageDailyMinutes(logs []domain.StudyLog, today time.Time, days int) int {
	if days <= 0 {
		return 0
	}
	end := domain.Day(today)
	start := end.AddDate(0, 0, -(days - 1))

	var sum int
	for _, l := range logs {
		d := domain.Day(l.Date)
		if !d.Before(start) && !d.After(end) {
			sum += l.MinutesStudied
		}
	}
	return int(math.Round(float64(sum) / float64(days)))
}

// Streak counts consecutive days with at least one log, ending today, or
// yesterday when nothing was logged today.
func Streak(logs []domain.StudyLog, today time.Time) int {
	active := make(map[time.Time]bool, len(logs))
	for _, l := range logs {
		active[domain.Day(l.Date)] = true
	}

	day := domain.Day(today)
	if !active[day] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for active[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// CountNodes tallies rows by status.
func CountNodes(rows []domain.NodeProgress) NodeStats {
	var s NodeStats
	for _, p := range rows {
		switch p.Status {
		case domain.StatusCompleted:
			s.Mastered++
		case domain.StatusNext:
			s.InProgress++
		case domain.StatusNotStarted:
			s.NotStarted++
		case domain.StatusNeedsReview:
			s.NeedsReview++
		}
	}
	return s
}

// WeekStart returns the Sunday that starts t's week.
func WeekStart(t time.Time) time.Time {
	d := domain.Day(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeeklyTrend returns the trailing weeks ending with the current one,
// oldest first and zero-filled.
func WeeklyTrend(logs []domain.StudyLog, today time.Time, weeks int) []WeekTotal {
	if weeks <= 0 {
		return nil
	}
	current := WeekStart(today)
	first := current.AddDate(0, 0, -7*(weeks-1))

	byWeek := make(map[time.Time]int)
	for _, l := range logs {
		byWeek[WeekStart(l.Date)] += l.MinutesStudied
	}

	out := make([]WeekTotal, 0, weeks)
	for w := first; !w.After(current); w = w.AddDate(0, 0, 7) {
		out = append(out, WeekTotal{Week: domain.DateKey(w), Minutes: byWeek[w]})
	}
	return out
}

// TotalStudyHours sums the minutes of logs, in hours rounded to two
// decimals.
func TotalStudyHours(logs []domain.StudyLog) float64 {
	var minutes int
	for _, l := range logs {
		minutes += l.MinutesStudied
	}
	return math.Round(float64(minutes)/60*100) / 100
}

// LastActiveDate is the latest log day, or "" without logs.
func LastActiveDate(logs []domain.StudyLog) string {
	var latest time.Time
	for _, l := range logs {
		if d := domain.Day(l.Date); d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return ""
	}
	return domain.DateKey(latest)
}

func minutesByDay(logs []domain.StudyLog) map[string]int {
	out := make(map[string]int, len(logs))
	for _, l := range logs {
		out[domain.DateKey(domain.Day(l.Date))] += l.MinutesStudied
	}
	return out
}
