package assessment_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/lightup/internal/ai"
	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/assessment"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/progress"
	"github.com/p-n-ai/lightup/internal/store"
)

const quizReply = `{"questions": [
  {"id": "q1", "node_id": "basics", "question": "What is a variable?", "question_type": "short_answer", "points": 10},
  {"id": "q2", "node_id": "basics", "question": "Is Go typed?", "question_type": "true_false", "points": 10}
], "estimated_minutes": 15}`

// basics -> loops -> funcs
func courseNodes() []domain.Node {
	return []domain.Node{
		{ID: "basics", Title: "Basics", Description: "Variables and types", EstimatedHours: 2},
		{ID: "loops", Title: "Loops", EstimatedHours: 2, Prerequisites: []string{"basics"}},
		{ID: "funcs", Title: "Functions", EstimatedHours: 3, Prerequisites: []string{"loops"}},
	}
}

type fixture struct {
	svc          *assessment.Service
	store        *store.MemoryStore
	engine       *progress.Engine
	provider     *ai.MockProvider
	enrollmentID string
}

func setup(t *testing.T, replies ...string) fixture {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	c, err := s.CreateCourse(ctx, domain.Course{Title: "Go"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRoadmap(ctx, domain.Roadmap{CourseID: c.ID, Nodes: courseNodes()}); err != nil {
		t.Fatal(err)
	}
	e, err := s.CreateEnrollment(ctx, domain.Enrollment{LearnerID: "u1", CourseID: c.ID})
	if err != nil {
		t.Fatal(err)
	}

	engine := progress.NewEngine(s, progress.WithClock(func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}))
	if err := engine.Initialize(ctx, e.ID, courseNodes()); err != nil {
		t.Fatal(err)
	}

	mock := ai.NewMockProvider(replies...)
	svc := assessment.NewService(s, engine, ai.NewGenerator(mock))
	return fixture{svc: svc, store: s, engine: engine, provider: mock, enrollmentID: e.ID}
}

func progressByNode(t *testing.T, f fixture) map[string]domain.NodeProgress {
	t.Helper()
	rows, err := f.engine.Progress(context.Background(), f.enrollmentID)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]domain.NodeProgress, len(rows))
	for _, p := range rows {
		out[p.NodeID] = p
	}
	return out
}

func TestGenerate_SelectsNodesWhenNoneGiven(t *testing.T) {
	f := setup(t, quizReply)

	gen, err := f.svc.Generate(context.Background(), f.enrollmentID, nil, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !slices.Equal(gen.Session.NodeIDs, []string{"basics"}) {
		t.Errorf("NodeIDs = %v, want [basics]", gen.Session.NodeIDs)
	}
	if gen.Session.Completed || gen.Session.ID == "" {
		t.Errorf("session = %+v, want persisted and open", gen.Session)
	}
	if len(gen.Session.Questions) != 2 || gen.EstimatedMinutes != 15 {
		t.Errorf("questions = %d, minutes = %d", len(gen.Session.Questions), gen.EstimatedMinutes)
	}

	stored, err := f.svc.Get(context.Background(), gen.Session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.EnrollmentID != f.enrollmentID {
		t.Errorf("EnrollmentID = %q", stored.EnrollmentID)
	}

	prompt := f.provider.LastRequest().Messages[1].Content
	if !strings.Contains(prompt, "Variables and types") || !strings.Contains(prompt, "difficulty: medium") {
		t.Errorf("prompt missing node description or difficulty:\n%s", prompt)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		enrollment string
		nodeIDs    []string
		difficulty domain.Difficulty
		want       error
	}{
		{"unknown enrollment", "missing", nil, "", apperr.ErrNotFound},
		{"unknown node", "", []string{"basics", "ghost"}, "", apperr.ErrNotFound},
		{"bad difficulty", "", nil, "extreme", apperr.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, quizReply)
			id := tt.enrollment
			if id == "" {
				id = f.enrollmentID
			}
			_, err := f.svc.Generate(context.Background(), id, tt.nodeIDs, tt.difficulty)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Generate() error = %v, want %v", err, tt.want)
			}
			if f.provider.LastRequest() != nil {
				t.Error("AI should not be called when the request is rejected")
			}
		})
	}
}

func TestGenerate_NoEligibleNodes(t *testing.T) {
	f := setup(t, quizReply)
	ctx := context.Background()

	p, _ := f.store.GetNodeProgress(ctx, f.enrollmentID, "basics")
	p.Status = domain.StatusNeedsReview
	p.MasteryScore = 80
	if err := f.store.SaveNodeProgress(ctx, p); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Generate(ctx, f.enrollmentID, nil, domain.DifficultyEasy)
	if !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("Generate() error = %v, want invalid request", err)
	}
}

func TestGenerate_ExternalFailure(t *testing.T) {
	f := setup(t)
	f.provider.Err = errors.New("provider down")

	_, err := f.svc.Generate(context.Background(), f.enrollmentID, []string{"basics"}, domain.DifficultyHard)
	if apperr.KindOf(err) != apperr.KindExternalService {
		t.Fatalf("Generate() error = %v, want external service", err)
	}
}

func TestSubmit_AppliesScoresAndUnlocks(t *testing.T) {
	f := setup(t, quizReply, `{"percentage": 95, "node_scores": [
  {"node_id": "basics", "score": 95, "feedback": "solid", "recommended_action": "master"},
  {"node_id": "funcs", "score": 100, "recommended_action": "master"}
], "overall_feedback": "well done"}`)
	ctx := context.Background()

	gen, err := f.svc.Generate(ctx, f.enrollmentID, []string{"basics"}, "")
	if err != nil {
		t.Fatal(err)
	}

	answers := []domain.Answer{
		{QuestionID: "q1", Values: []string{"a named value"}},
		{QuestionID: "q2", Values: []string{"true"}},
	}
	sub, err := f.svc.Submit(ctx, gen.Session.ID, answers)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.Score != 95 || sub.OverallFeedback != "well done" {
		t.Errorf("evaluation = %+v", sub.Evaluation)
	}
	if len(sub.NodeScores) != 1 || sub.NodeScores[0].NodeID != "basics" {
		t.Errorf("NodeScores = %+v, want only the session node", sub.NodeScores)
	}
	if !slices.Equal(sub.Unlocked, []string{"loops"}) {
		t.Errorf("Unlocked = %v, want [loops]", sub.Unlocked)
	}

	got := progressByNode(t, f)
	if got["basics"].Status != domain.StatusCompleted || got["basics"].MasteryScore != 95 || got["basics"].LastAssessed == nil {
		t.Errorf("basics = %+v", got["basics"])
	}
	if got["funcs"].Status != domain.StatusNotStarted {
		t.Errorf("funcs = %q, score outside the session must be ignored", got["funcs"].Status)
	}

	session, _ := f.svc.Get(ctx, gen.Session.ID)
	if !session.Completed || session.Score == nil || *session.Score != 95 || len(session.Answers) != 2 {
		t.Errorf("stored session = %+v", session)
	}
}

func TestSubmit_Regresses(t *testing.T) {
	f := setup(t, quizReply, `{"percentage": 40, "node_scores": [
  {"node_id": "basics", "score": 40, "recommended_action": "continue"}
]}`)
	ctx := context.Background()

	if _, err := f.engine.UpdateNode(ctx, f.enrollmentID, progress.Update{NodeID: "basics", Status: domain.StatusCompleted}); err != nil {
		t.Fatal(err)
	}
	gen, err := f.svc.Generate(ctx, f.enrollmentID, []string{"basics"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Submit(ctx, gen.Session.ID, nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := progressByNode(t, f)["basics"]; got.Status != domain.StatusNeedsReview {
		t.Errorf("basics = %q, want needs_review", got.Status)
	}
}

func TestSubmit_Twice(t *testing.T) {
	f := setup(t, quizReply,
		`{"percentage": 75, "node_scores": [{"node_id": "basics", "score": 75}]}`,
		`{"percentage": 10, "node_scores": [{"node_id": "basics", "score": 10, "recommended_action": "review"}]}`,
	)
	ctx := context.Background()

	gen, err := f.svc.Generate(ctx, f.enrollmentID, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Submit(ctx, gen.Session.ID, nil); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	before := progressByNode(t, f)
	calls := len(f.provider.Requests())

	_, err = f.svc.Submit(ctx, gen.Session.ID, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second Submit() error = %v, want conflict", err)
	}
	if !strings.Contains(err.Error(), "already completed") {
		t.Errorf("error = %q, want already completed", err)
	}
	if len(f.provider.Requests()) != calls {
		t.Error("resubmission must not call the evaluator")
	}
	b, a := before["basics"], progressByNode(t, f)["basics"]
	if a.Status != b.Status || a.MasteryScore != b.MasteryScore || !a.LastAssessed.Equal(*b.LastAssessed) {
		t.Errorf("progress changed on resubmission: %+v -> %+v", b, a)
	}
}

func TestSubmit_Errors(t *testing.T) {
	f := setup(t, quizReply, "not json")
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, "missing", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Submit(missing) error = %v, want not found", err)
	}

	gen, err := f.svc.Generate(ctx, f.enrollmentID, nil, "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Submit(ctx, gen.Session.ID, []domain.Answer{{QuestionID: "q9", Values: []string{"x"}}})
	if !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Errorf("Submit(unknown question) error = %v, want invalid request", err)
	}

	_, err = f.svc.Submit(ctx, gen.Session.ID, nil)
	if apperr.KindOf(err) != apperr.KindExternalService {
		t.Errorf("Submit() error = %v, want external service", err)
	}

	session, _ := f.svc.Get(ctx, gen.Session.ID)
	if session.Completed {
		t.Error("failed evaluation must leave the session open")
	}
}

// failingSaveStore rejects progress writes while failing is set.
type failingSaveStore struct {
	*store.MemoryStore
	failing bool
}

func (s *failingSaveStore) SaveNodeProgress(ctx context.Context, p domain.NodeProgress) error {
	if s.failing {
		return errors.New("db down")
	}
	return s.MemoryStore.SaveNodeProgress(ctx, p)
}

func TestSubmit_ApplyFailureReopensSession(t *testing.T) {
	f := setup(t, quizReply, `{"percentage": 95, "node_scores": [
  {"node_id": "basics", "score": 95, "recommended_action": "master"}
]}`)
	ctx := context.Background()

	flaky := &failingSaveStore{MemoryStore: f.store}
	engine := progress.NewEngine(flaky)
	svc := assessment.NewService(flaky, engine, ai.NewGenerator(f.provider))

	gen, err := svc.Generate(ctx, f.enrollmentID, []string{"basics"}, "")
	if err != nil {
		t.Fatal(err)
	}

	flaky.failing = true
	if _, err := svc.Submit(ctx, gen.Session.ID, nil); err == nil {
		t.Fatal("Submit() error = nil, want save failure")
	}
	session, err := svc.Get(ctx, gen.Session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Completed || session.Score != nil {
		t.Errorf("session after failed apply = %+v, want open", session)
	}
	if got := progressByNode(t, f)["basics"]; got.Status != domain.StatusNext {
		t.Errorf("basics = %q, want next", got.Status)
	}

	flaky.failing = false
	sub, err := svc.Submit(ctx, gen.Session.ID, nil)
	if err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if !slices.Equal(sub.Unlocked, []string{"loops"}) {
		t.Errorf("Unlocked = %v, want [loops]", sub.Unlocked)
	}
	session, _ = svc.Get(ctx, gen.Session.ID)
	if !session.Completed || session.Score == nil || *session.Score != 95 {
		t.Errorf("session after retry = %+v", session)
	}
}

func TestSubmit_MissingRoadmapChangesNothing(t *testing.T) {
	f := setup(t, `{"percentage": 90, "node_scores": []}`)
	ctx := context.Background()

	c, err := f.store.CreateCourse(ctx, domain.Course{Title: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	e, err := f.store.CreateEnrollment(ctx, domain.Enrollment{LearnerID: "u2", CourseID: c.ID})
	if err != nil {
		t.Fatal(err)
	}
	a, err := f.store.CreateAssessment(ctx, domain.AssessmentSession{
		EnrollmentID: e.ID,
		NodeIDs:      []string{"basics"},
		Questions:    []domain.Question{{ID: "q1", NodeID: "basics", Question: "?", Type: domain.QuestionShortAnswer, Points: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Submit(ctx, a.ID, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Submit() error = %v, want not found", err)
	}
	if n := len(f.provider.Requests()); n != 0 {
		t.Errorf("evaluator called %d times, want 0", n)
	}
	session, _ := f.svc.Get(ctx, a.ID)
	if session.Completed {
		t.Error("session must stay open")
	}
}

func TestSubmit_RemasteredNodeUnlocksResetDependent(t *testing.T) {
	f := setup(t, quizReply, `{"percentage": 95, "node_scores": [
  {"node_id": "basics", "score": 95, "recommended_action": "master"}
]}`)
	ctx := context.Background()

	if _, err := f.engine.UpdateNode(ctx, f.enrollmentID, progress.Update{NodeID: "basics", Status: domain.StatusCompleted}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.UpdateNode(ctx, f.enrollmentID, progress.Update{NodeID: "loops", Status: domain.StatusNotStarted}); err != nil {
		t.Fatal(err)
	}

	gen, err := f.svc.Generate(ctx, f.enrollmentID, []string{"basics"}, "")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := f.svc.Submit(ctx, gen.Session.ID, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !slices.Equal(sub.Unlocked, []string{"loops"}) {
		t.Errorf("Unlocked = %v, want [loops]", sub.Unlocked)
	}
	if got := progressByNode(t, f)["loops"]; got.Status != domain.StatusNext {
		t.Errorf("loops = %q, want next", got.Status)
	}
}
