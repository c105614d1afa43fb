// Package studyplan generates day-by-day study schedules for an enrollment
// and records the learner's progress against them.
package studyplan

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/lightup/internal/ai"
	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/platform/cache"
	"github.com/p-n-ai/lightup/internal/progress"
	"github.com/p-n-ai/lightup/internal/stats"
)

// Accepted plan parameters.
const (
	MinTargetDays = 1
	MaxTargetDays = 365
	MinDailyHours = 0.5
	MaxDailyHours = 12
)

const (
	dayCompletionNote = "Study plan progress - Day completion"
	defaultCacheTTL   = 24 * time.Hour
)

// Store is the persistence the service needs.
type Store interface {
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error)
	ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error)
	CreateStudyPlan(ctx context.Context, p domain.StudyPlan) (domain.StudyPlan, error)
	GetStudyPlan(ctx context.Context, id string) (domain.StudyPlan, error)
	SetStudyPlanDay(ctx context.Context, id, dayKey string, progress domain.DayProgress) error
}

// Generator drafts a schedule. *ai.Generator implements it.
type Generator interface {
	GenerateStudyPlan(ctx context.Context, req ai.StudyPlanRequest) (ai.PlanDraft, error)
}

// StudyLogger records study sessions. *stats.Service implements it.
type StudyLogger interface {
	RecordStudyLog(ctx context.Context, e stats.LogEntry) (domain.StudyLog, error)
}

// Cache stores generated drafts. *cache.Cache implements it.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Service generates study plans and tracks their progress.
type Service struct {
	store     Store
	engine    *progress.Engine
	generator Generator
	logs      StudyLogger
	cache     Cache
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache reuses drafts for identical requests for ttl. A non-positive
// ttl falls back to 24h.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for day completion stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a study-plan service.
func NewService(store Store, engine *progress.Engine, gen Generator, logs StudyLogger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		engine:    engine,
		generator: gen,
		logs:      logs,
		ttl:       defaultCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate drafts and stores a plan for the enrollment's remaining nodes.
func (s *Service) Generate(ctx context.Context, enrollmentID string, targetDays int, dailyHours float64, prefs domain.PlanPreferences) (domain.StudyPlan, error) {
	if err := validateParams(targetDays, dailyHours, prefs); err != nil {
		return domain.StudyPlan{}, err
	}

	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return domain.StudyPlan{}, err
	}
	course, err := s.store.GetCourse(ctx, enrollment.CourseID)
	if err != nil {
		return domain.StudyPlan{}, err
	}
	rm, err := s.store.GetRoadmap(ctx, enrollment.CourseID)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && len(rm.Nodes) == 0) {
		return domain.StudyPlan{}, apperr.Invalid("course %s has no roadmap to plan", enrollment.CourseID)
	}
	if err != nil {
		return domain.StudyPlan{}, fmt.Errorf("get roadmap: %w", err)
	}
	rows, err := s.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return domain.StudyPlan{}, err
	}

	req := ai.StudyPlanRequest{
		CourseTitle: course.Title,
		Nodes:       rm.Nodes,
		Progress:    rows,
		TargetDays:  targetDays,
		DailyHours:  dailyHours,
		Preferences: prefs,
	}
	draft, err := s.draft(ctx, req)
	if err != nil {
		return domain.StudyPlan{}, err
	}

	plan, err := s.store.CreateStudyPlan(ctx, domain.StudyPlan{
		EnrollmentID: enrollmentID,
		TargetDays:   targetDays,
		DailyHours:   dailyHours,
		Schedule:     draft.Schedule,
		Summary:      draft.Summary,
		Preferences:  prefs,
	})
	if err != nil {
		return domain.StudyPlan{}, fmt.Errorf("create study plan: %w", err)
	}

	slog.Info("study plan generated",
		"study_plan_id", plan.ID,
		"enrollment_id", enrollmentID,
		"target_days", targetDays,
		"daily_hours", dailyHours,
		"total_days", plan.Summary.TotalDays,
	)
	return plan, nil
}

// draft returns a cached draft for req or generates and caches a new one.
// Cache failures are logged and never fail generation.
func (s *Service) draft(ctx context.Context, req ai.StudyPlanRequest) (ai.PlanDraft, error) {
	var key string
	if s.cache != nil {
		key = Fingerprint(req)
		var cached ai.PlanDraft
		err := s.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			slog.Debug("study plan cache hit", "key", key)
			return cached, nil
		case !errors.Is(err, cache.ErrMiss):
			slog.Warn("study plan cache read failed", "key", key, "error", err)
		}
	}

	draft, err := s.generator.GenerateStudyPlan(ctx, req)
	if err != nil {
		return ai.PlanDraft{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, draft, s.ttl); err != nil {
			slog.Warn("study plan cache write failed", "key", key, "error", err)
		}
	}
	return draft, nil
}

// Fingerprint identifies a generation request: same roadmap, same progress
// statuses, same parameters.
func Fingerprint(req ai.StudyPlanRequest) string {
	type nodeKey struct {
		ID     string        `json:"i"`
		Hours  float64       `json:"h"`
		Prereq []string      `json:"p,omitempty"`
		Status domain.Status `json:"s,omitempty"`
		Score  int           `json:"m,omitempty"`
	}
	status := make(map[string]domain.NodeProgress, len(req.Progress))
	for _, p := range req.Progress {
		status[p.NodeID] = p
	}
	nodes := make([]nodeKey, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		p := status[n.ID]
		nodes = append(nodes, nodeKey{ID: n.ID, Hours: n.EstimatedHours, Prereq: n.Prerequisites, Status: p.Status, Score: p.MasteryScore})
	}

	raw, _ := json.Marshal(struct {
		Course string                 `json:"c"`
		Nodes  []nodeKey              `json:"n"`
		Days   int                    `json:"d"`
		Hours  float64                `json:"h"`
		Prefs  domain.PlanPreferences `json:"p"`
	}{req.CourseTitle, nodes, req.TargetDays, req.DailyHours, req.Preferences})

	sum := blake2b.Sum256(raw)
	return "studyplan:" + hex.EncodeToString(sum[:16])
}

// Get returns a stored plan with its progress.
func (s *Service) Get(ctx context.Context, id string) (domain.StudyPlan, error) {
	return s.store.GetStudyPlan(ctx, id)
}

// RecordDay stores what the learner did on plan day `day`, credits the
// minutes to the touched nodes through a study log and moves touched
// not_started nodes to next.
func (s *Service) RecordDay(ctx context.Context, planID string, day int, completedNodes []string, minutes int) (domain.StudyPlan, error) {
	if day < 1 {
		return domain.StudyPlan{}, apperr.Invalid("day must be at least 1, got %d", day)
	}
	if minutes < 0 {
		return domain.StudyPlan{}, apperr.Invalid("study minutes must not be negative, got %d", minutes)
	}

	plan, err := s.store.GetStudyPlan(ctx, planID)
	if err != nil {
		return domain.StudyPlan{}, err
	}
	if n := len(plan.Schedule); n > 0 && day > n {
		return domain.StudyPlan{}, apperr.Invalid("day %d is outside the plan's %d days", day, n)
	}

	nodes := make([]string, 0, len(completedNodes))
	for _, id := range completedNodes {
		if id != "" && !slices.Contains(nodes, id) {
			nodes = append(nodes, id)
		}
	}

	err = s.store.SetStudyPlanDay(ctx, planID, fmt.Sprintf("day_%d", day), domain.DayProgress{
		CompletedNodes:     nodes,
		ActualStudyMinutes: minutes,
		CompletedAt:        s.now(),
	})
	if err != nil {
		return domain.StudyPlan{}, fmt.Errorf("set study plan day: %w", err)
	}

	if err := s.startNodes(ctx, plan.EnrollmentID, nodes); err != nil {
		return domain.StudyPlan{}, err
	}

	if minutes > 0 {
		_, err := s.logs.RecordStudyLog(ctx, stats.LogEntry{
			EnrollmentID: plan.EnrollmentID,
			ActivityType: domain.ActivityStudy,
			NodeIDs:      nodes,
			Minutes:      minutes,
			Notes:        dayCompletionNote,
		})
		if err != nil {
			return domain.StudyPlan{}, fmt.Errorf("record study log: %w", err)
		}
	}

	slog.Info("study plan progress updated",
		"study_plan_id", planID,
		"day", day,
		"completed_nodes", len(nodes),
		"actual_study_minutes", minutes,
	)
	return s.store.GetStudyPlan(ctx, planID)
}

func (s *Service) startNodes(ctx context.Context, enrollmentID string, nodeIDs []string) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	rows, err := s.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return err
	}
	for _, p := range rows {
		if p.Status != domain.StatusNotStarted || !slices.Contains(nodeIDs, p.NodeID) {
			continue
		}
		if _, err := s.engine.UpdateNode(ctx, enrollmentID, progress.Update{NodeID: p.NodeID, Status: domain.StatusNext}); err != nil {
			return fmt.Errorf("start node %s: %w", p.NodeID, err)
		}
	}
	return nil
}

// Estimate projects the remaining effort of an enrollment at dailyHours.
func (s *Service) Estimate(ctx context.Context, enrollmentID string, dailyHours float64) (Estimation, error) {
	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Estimation{}, err
	}
	var nodes []domain.Node
	rm, err := s.store.GetRoadmap(ctx, enrollment.CourseID)
	switch {
	case err == nil:
		nodes = rm.Nodes
	case !errors.Is(err, apperr.ErrNotFound):
		return Estimation{}, fmt.Errorf("get roadmap: %w", err)
	}
	rows, err := s.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return Estimation{}, err
	}
	return Estimate(nodes, rows, dailyHours)
}

func validateParams(targetDays int, dailyHours float64, prefs domain.PlanPreferences) error {
	if targetDays < MinTargetDays || targetDays > MaxTargetDays {
		return apperr.Invalid("target days must be between %d and %d, got %d", MinTargetDays, MaxTargetDays, targetDays)
	}
	if dailyHours < MinDailyHours || dailyHours > MaxDailyHours {
		return apperr.Invalid("daily hours must be between %g and %g, got %g", MinDailyHours, float64(MaxDailyHours), dailyHours)
	}
	if prefs.StartDate != "" {
		if _, err := time.Parse(time.DateOnly, prefs.StartDate); err != nil {
			return apperr.Invalid("start date %q is not YYYY-MM-DD", prefs.StartDate)
		}
	}
	return nil
}
