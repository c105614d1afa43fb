package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/store"
)

const (
	// DefaultLogLimit is the page size of StudyLogs.
	DefaultLogLimit = 50
	// MaxLogLimit caps the page size of StudyLogs.
	MaxLogLimit = 100
	maxNotesLen = 500
)

// Store is the persistence the service needs.
type Store interface {
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error)
	ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error)
	GetNodeProgress(ctx context.Context, enrollmentID, nodeID string) (domain.NodeProgress, error)
	SaveNodeProgress(ctx context.Context, p domain.NodeProgress) error
	AppendStudyLog(ctx context.Context, l domain.StudyLog) (domain.StudyLog, error)
	ListStudyLogs(ctx context.Context, enrollmentID string, q store.LogQuery) ([]domain.StudyLog, error)
}

// Service records study sessions and builds dashboards.
type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConfig replaces the aggregate windows. Non-positive fields keep
// their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.LogWindow > 0 {
			s.cfg.LogWindow = cfg.LogWindow
		}
		if cfg.AverageDays > 0 {
			s.cfg.AverageDays = cfg.AverageDays
		}
		if cfg.TrendWeeks > 0 {
			s.cfg.TrendWeeks = cfg.TrendWeeks
		}
	}
}

// WithClock overrides the time source that defines "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a statistics service.
func NewService(s Store, opts ...Option) *Service {
	svc := &Service{store: s, cfg: DefaultConfig(), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// LogEntry is a study session to record.
type LogEntry struct {
	EnrollmentID string
	// Date defaults to today.
	Date         time.Time
	ActivityType domain.ActivityType
	NodeIDs      []string
	Minutes      int
	Notes        string
}

// Dashboard is the full set of figures for one enrollment.
type Dashboard struct {
	Heatmap       []HeatmapEntry `json:"heatmapData"`
	ProgressStats ProgressStats  `json:"progressStats"`
	NodeStats     NodeStats      `json:"nodeStats"`
	WeeklyTrend   []WeekTotal    `json:"weeklyTrend"`
}

// RecordStudyLog appends a log and adds floor(minutes/len(nodes)) of study
// time to every touched node of the enrollment. Node ids outside the
// roadmap are kept in the log but credit nothing.
func (s *Service) RecordStudyLog(ctx context.Context, e LogEntry) (domain.StudyLog, error) {
	if e.Minutes <= 0 {
		return domain.StudyLog{}, apperr.Invalid("minutes studied must be positive, got %d", e.Minutes)
	}
	if _, err := domain.ParseActivityType(string(e.ActivityType)); err != nil {
		return domain.StudyLog{}, apperr.Invalid("%v", err)
	}
	if len(e.Notes) > maxNotesLen {
		return domain.StudyLog{}, apperr.Invalid("notes exceed %d characters", maxNotesLen)
	}
	if _, err := s.store.GetEnrollment(ctx, e.EnrollmentID); err != nil {
		return domain.StudyLog{}, err
	}
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	nodeIDs := compact(e.NodeIDs)

	log, err := s.store.AppendStudyLog(ctx, domain.StudyLog{
		EnrollmentID:   e.EnrollmentID,
		Date:           domain.Day(e.Date),
		ActivityType:   e.ActivityType,
		NodeIDs:        nodeIDs,
		MinutesStudied: e.Minutes,
		Notes:          e.Notes,
	})
	if err != nil {
		return domain.StudyLog{}, fmt.Errorf("append study log: %w", err)
	}

	if len(nodeIDs) > 0 {
		perNode := e.Minutes / len(nodeIDs)
		if err := s.addStudyTime(ctx, e.EnrollmentID, nodeIDs, perNode); err != nil {
			return log, err
		}
	}

	slog.Info("study log recorded",
		"enrollment_id", e.EnrollmentID,
		"date", domain.DateKey(log.Date),
		"minutes", e.Minutes,
		"nodes", len(nodeIDs),
	)
	return log, nil
}

func (s *Service) addStudyTime(ctx context.Context, enrollmentID string, nodeIDs []string, minutes int) error {
	if minutes == 0 {
		return nil
	}
	for _, id := range nodeIDs {
		p, err := s.store.GetNodeProgress(ctx, enrollmentID, id)
		if errors.Is(err, apperr.ErrNotFound) {
			slog.Debug("study log references unknown node", "enrollment_id", enrollmentID, "node_id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("get node progress: %w", err)
		}
		p.StudyTimeMinutes += minutes
		if err := s.store.SaveNodeProgress(ctx, p); err != nil {
			return fmt.Errorf("save node progress: %w", err)
		}
	}
	return nil
}

// StudyLogs returns logs between from and to (zero means unbounded), most
// recent first. limit defaults to DefaultLogLimit and is capped at
// MaxLogLimit.
func (s *Service) StudyLogs(ctx context.Context, enrollmentID string, from, to time.Time, limit int) ([]domain.StudyLog, error) {
	switch {
	case limit <= 0:
		limit = DefaultLogLimit
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}
	if !from.IsZero() && !to.IsZero() && domain.Day(from).After(domain.Day(to)) {
		return nil, apperr.Invalid("from %s is after to %s", domain.DateKey(from), domain.DateKey(to))
	}
	return s.store.ListStudyLogs(ctx, enrollmentID, store.LogQuery{From: from, To: to, Limit: limit})
}

// Dashboard computes every aggregate over the most recent LogWindow logs
// and the full progress set.
func (s *Service) Dashboard(ctx context.Context, enrollmentID string) (Dashboard, error) {
	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Dashboard{}, err
	}
	logs, err := s.store.ListStudyLogs(ctx, enrollmentID, store.LogQuery{Limit: s.cfg.LogWindow})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list study logs: %w", err)
	}
	rows, err := s.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list node progress: %w", err)
	}

	var nodes []domain.Node
	rm, err := s.store.GetRoadmap(ctx, enrollment.CourseID)
	switch {
	case err == nil:
		nodes = rm.Nodes
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return Dashboard{}, fmt.Errorf("get roadmap: %w", err)
	}

	today := s.now()
	return Dashboard{
		Heatmap: Heatmap(logs, today),
		ProgressStats: ProgressStats{
			CompletionPercentage: CompletionPercentage(nodes, rows),
			TotalStudyHours:      TotalStudyHours(logs),
			AverageDailyMinutes:  AverageDailyMinutes(logs, today, s.cfg.AverageDays),
			Streak:               Streak(logs, today),
			LastActiveDate:       LastActiveDate(logs),
		},
		NodeStats:   CountNodes(rows),
		WeeklyTrend: WeeklyTrend(logs, today, s.cfg.TrendWeeks),
	}, nil
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
