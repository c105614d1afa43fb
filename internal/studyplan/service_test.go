package studyplan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/lightup/internal/ai"
	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/platform/cache"
	"github.com/p-n-ai/lightup/internal/progress"
	"github.com/p-n-ai/lightup/internal/stats"
	"github.com/p-n-ai/lightup/internal/store"
	"github.com/p-n-ai/lightup/internal/studyplan"
)

const planReply = `{"daily_schedule": [
  {"day": 1, "date": "2026-03-10", "total_study_minutes": 90, "daily_goal": "Variables",
   "activities": [{"node_id": "vars", "activity_type": "learn", "estimated_minutes": 90, "description": "Basics"}]},
  {"day": 2, "date": "2026-03-11", "total_study_minutes": 120, "daily_goal": "Loops",
   "activities": [{"node_id": "loops", "activity_type": "learn", "estimated_minutes": 120, "description": "for and while"}]}
], "summary": {"total_days": 2, "total_hours": 3.5, "estimated_completion_date": "2026-03-11"}}`

var today = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

// memCache is an in-process stand-in for the Redis cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string]any
	ttls    map[string]time.Duration
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return errors.New("connection refused")
	}
	v, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	*out.(*ai.PlanDraft) = v.(ai.PlanDraft)
	return nil
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
	c.ttls[key] = ttl
	return nil
}

type fixture struct {
	svc        *studyplan.Service
	store      *store.MemoryStore
	mock       *ai.MockProvider
	enrollment string
}

func setup(t *testing.T, c studyplan.Cache, replies ...string) fixture {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	course, err := s.CreateCourse(ctx, domain.Course{Title: "Python", Category: "Programming"})
	if err != nil {
		t.Fatal(err)
	}
	nodes := []domain.Node{
		{ID: "vars", Title: "Variables", EstimatedHours: 2},
		{ID: "loops", Title: "Loops", EstimatedHours: 3, Prerequisites: []string{"vars"}},
	}
	if _, err := s.SaveRoadmap(ctx, domain.Roadmap{CourseID: course.ID, Title: "Python", Nodes: nodes}); err != nil {
		t.Fatal(err)
	}
	e, err := s.CreateEnrollment(ctx, domain.Enrollment{LearnerID: "learner-1", CourseID: course.ID, Status: domain.EnrollmentActive})
	if err != nil {
		t.Fatal(err)
	}

	engine := progress.NewEngine(s)
	if err := engine.Initialize(ctx, e.ID, nodes); err != nil {
		t.Fatal(err)
	}

	clock := func() time.Time { return today }
	mock := ai.NewMockProvider(replies...)
	var opts []studyplan.Option
	opts = append(opts, studyplan.WithClock(clock))
	if c != nil {
		opts = append(opts, studyplan.WithCache(c, time.Hour))
	}
	svc := studyplan.NewService(s, engine, ai.NewGenerator(mock), stats.NewService(s, stats.WithClock(clock)), opts...)
	return fixture{svc: svc, store: s, mock: mock, enrollment: e.ID}
}

func TestGenerate(t *testing.T) {
	f := setup(t, nil, planReply)
	ctx := context.Background()

	prefs := domain.PlanPreferences{StartDate: "2026-03-10", Weekends: true}
	plan, err := f.svc.Generate(ctx, f.enrollment, 14, 2, prefs)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if plan.ID == "" || plan.EnrollmentID != f.enrollment {
		t.Errorf("plan identity = %q/%q", plan.ID, plan.EnrollmentID)
	}
	if len(plan.Schedule) != 2 || plan.Schedule[0].StudyHours != 1.5 || plan.Schedule[1].Nodes[0].NodeID != "loops" {
		t.Errorf("Schedule = %+v", plan.Schedule)
	}
	want := domain.PlanSummary{TotalDays: 2, TotalHours: 3.5, AverageHoursPerDay: 1.75, EstimatedCompletion: "2026-03-11"}
	if plan.Summary != want {
		t.Errorf("Summary = %+v, want %+v", plan.Summary, want)
	}
	if plan.Preferences != prefs {
		t.Errorf("Preferences = %+v, want %+v", plan.Preferences, prefs)
	}

	got, err := f.svc.Get(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TargetDays != 14 || got.DailyHours != 2 || len(got.Progress) != 0 {
		t.Errorf("Get() = %+v", got)
	}
	if req := f.mock.LastRequest(); req == nil || req.Task != ai.TaskStudyPlan {
		t.Error("study plan generation should be requested")
	}
}

func TestGenerate_Cache(t *testing.T) {
	c := newMemCache()
	f := setup(t, c, planReply)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, f.enrollment, 14, 2, domain.PlanPreferences{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := f.svc.Generate(ctx, f.enrollment, 14, 2, domain.PlanPreferences{})
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if n := len(f.mock.Requests()); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
	if first.ID == second.ID {
		t.Error("each call should store its own plan")
	}
	if second.Summary != first.Summary {
		t.Errorf("cached summary = %+v, want %+v", second.Summary, first.Summary)
	}
	for key, ttl := range c.ttls {
		if ttl != time.Hour {
			t.Errorf("ttl of %s = %v, want 1h", key, ttl)
		}
	}

	if _, err := f.svc.Generate(ctx, f.enrollment, 7, 2, domain.PlanPreferences{}); err != nil {
		t.Fatalf("Generate() with new target error = %v", err)
	}
	if n := len(f.mock.Requests()); n != 2 {
		t.Errorf("provider called %d times, want 2 after parameters changed", n)
	}
}

func TestGenerate_CacheFailureFallsThrough(t *testing.T) {
	c := newMemCache()
	c.failGet = true
	f := setup(t, c, planReply)

	if _, err := f.svc.Generate(context.Background(), f.enrollment, 14, 2, domain.PlanPreferences{}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if n := len(f.mock.Requests()); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		enrollment string
		days       int
		hours      float64
		prefs      domain.PlanPreferences
		providerOK bool
		want       error
	}{
		{name: "zero days", days: 0, hours: 2, want: apperr.ErrInvalidRequest},
		{name: "too many days", days: 366, hours: 2, want: apperr.ErrInvalidRequest},
		{name: "too few hours", days: 7, hours: 0.25, want: apperr.ErrInvalidRequest},
		{name: "too many hours", days: 7, hours: 13, want: apperr.ErrInvalidRequest},
		{name: "bad start date", days: 7, hours: 2, prefs: domain.PlanPreferences{StartDate: "10/03/2026"}, want: apperr.ErrInvalidRequest},
		{name: "unknown enrollment", enrollment: "missing", days: 7, hours: 2, want: apperr.ErrNotFound},
		{name: "provider failure", days: 7, hours: 2, want: apperr.ErrExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, nil)
			f.mock.Err = errors.New("upstream unavailable")
			id := f.enrollment
			if tt.enrollment != "" {
				id = tt.enrollment
			}
			_, err := f.svc.Generate(context.Background(), id, tt.days, tt.hours, tt.prefs)
			if !errors.Is(err, tt.want) {
				t.Errorf("Generate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecordDay(t *testing.T) {
	f := setup(t, nil, planReply)
	ctx := context.Background()

	plan, err := f.svc.Generate(ctx, f.enrollment, 14, 2, domain.PlanPreferences{})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.svc.RecordDay(ctx, plan.ID, 2, []string{"vars", "loops", "loops", "ghost"}, 90)
	if err != nil {
		t.Fatalf("RecordDay() error = %v", err)
	}

	day, ok := updated.Progress["day_2"]
	if !ok {
		t.Fatalf("Progress = %+v, want day_2", updated.Progress)
	}
	if day.ActualStudyMinutes != 90 || len(day.CompletedNodes) != 3 || !day.CompletedAt.Equal(today) {
		t.Errorf("day_2 = %+v", day)
	}

	// 90 minutes over three distinct ids; the unknown one credits nothing.
	wantRows := map[string]domain.NodeProgress{
		"vars":  {Status: domain.StatusNext, StudyTimeMinutes: 30},
		"loops": {Status: domain.StatusNext, StudyTimeMinutes: 30},
	}
	rows, err := f.store.ListNodeProgress(ctx, f.enrollment)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range rows {
		want := wantRows[p.NodeID]
		if p.Status != want.Status || p.StudyTimeMinutes != want.StudyTimeMinutes {
			t.Errorf("node %s = %s/%d, want %s/%d", p.NodeID, p.Status, p.StudyTimeMinutes, want.Status, want.StudyTimeMinutes)
		}
	}

	logs, err := f.store.ListStudyLogs(ctx, f.enrollment, store.LogQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %+v, want one", logs)
	}
	l := logs[0]
	if l.ActivityType != domain.ActivityStudy || l.MinutesStudied != 90 || l.Notes != "Study plan progress - Day completion" {
		t.Errorf("log = %+v", l)
	}
	if domain.DateKey(l.Date) != "2026-03-10" {
		t.Errorf("log date = %s, want 2026-03-10", domain.DateKey(l.Date))
	}
}

func TestRecordDay_ZeroMinutes(t *testing.T) {
	f := setup(t, nil, planReply)
	ctx := context.Background()

	plan, err := f.svc.Generate(ctx, f.enrollment, 14, 2, domain.PlanPreferences{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RecordDay(ctx, plan.ID, 1, []string{"loops"}, 0); err != nil {
		t.Fatalf("RecordDay() error = %v", err)
	}

	logs, _ := f.store.ListStudyLogs(ctx, f.enrollment, store.LogQuery{})
	if len(logs) != 0 {
		t.Errorf("logs = %+v, want none", logs)
	}
	p, _ := f.store.GetNodeProgress(ctx, f.enrollment, "loops")
	if p.Status != domain.StatusNext {
		t.Errorf("loops status = %s, want next", p.Status)
	}
}

func TestRecordDay_Errors(t *testing.T) {
	f := setup(t, nil, planReply)
	ctx := context.Background()

	plan, err := f.svc.Generate(ctx, f.enrollment, 14, 2, domain.PlanPreferences{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		planID  string
		day     int
		minutes int
		want    error
	}{
		{"day zero", plan.ID, 0, 30, apperr.ErrInvalidRequest},
		{"day past schedule", plan.ID, 3, 30, apperr.ErrInvalidRequest},
		{"negative minutes", plan.ID, 1, -5, apperr.ErrInvalidRequest},
		{"unknown plan", "missing", 1, 30, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.RecordDay(ctx, tt.planID, tt.day, nil, tt.minutes); !errors.Is(err, tt.want) {
				t.Errorf("RecordDay() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestServiceEstimate(t *testing.T) {
	f := setup(t, nil)

	est, err := f.svc.Estimate(context.Background(), f.enrollment, 1)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	// vars is next (2*0.7) and loops not started (3): 4.4h * 0.8.
	if est.TotalRemainingHours != 3.52 || est.RemainingNodes != 2 {
		t.Errorf("Estimate() = %+v", est)
	}
}

func TestFingerprint(t *testing.T) {
	base := ai.StudyPlanRequest{
		CourseTitle: "Python",
		Nodes:       []domain.Node{{ID: "a", EstimatedHours: 1}},
		Progress:    []domain.NodeProgress{{NodeID: "a", Status: domain.StatusNext}},
		TargetDays:  7,
		DailyHours:  1,
	}
	changed := base
	changed.Progress = []domain.NodeProgress{{NodeID: "a", Status: domain.StatusCompleted}}

	if studyplan.Fingerprint(base) != studyplan.Fingerprint(base) {
		t.Error("Fingerprint() should be stable")
	}
	if studyplan.Fingerprint(base) == studyplan.Fingerprint(changed) {
		t.Error("Fingerprint() should change with progress")
	}
}
