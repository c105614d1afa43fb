package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/p-n-ai/lightup/internal/ai"
	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/progress"
)

// Store is the persistence the service needs.
type Store interface {
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error)
	ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error)
	CreateAssessment(ctx context.Context, a domain.AssessmentSession) (domain.AssessmentSession, error)
	GetAssessment(ctx context.Context, id string) (domain.AssessmentSession, error)
	CompleteAssessment(ctx context.Context, id string, answers []domain.Answer, score int) error
	ReopenAssessment(ctx context.Context, id string) error
}

// Generator writes and grades quizzes. *ai.Generator implements it.
type Generator interface {
	GenerateAssessment(ctx context.Context, req ai.AssessmentRequest) (ai.AssessmentDraft, error)
	EvaluateAssessment(ctx context.Context, session domain.AssessmentSession, answers []domain.Answer) (domain.Evaluation, error)
}

// Service runs the generate/submit lifecycle of assessment sessions.
type Service struct {
	store     Store
	engine    *progress.Engine
	generator Generator
	limit     int
}

// Option configures a Service.
type Option func(*Service)

// WithLimit sets how many nodes are picked when the caller names none.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewService creates an assessment service.
func NewService(store Store, engine *progress.Engine, gen Generator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		engine:    engine,
		generator: gen,
		limit:     DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generated is a freshly persisted session.
type Generated struct {
	Session          domain.AssessmentSession
	EstimatedMinutes int
}

// Submission is the graded outcome of a session.
type Submission struct {
	domain.Evaluation
	Updated  []domain.NodeProgress
	Unlocked []string
}

// Generate creates a session over nodeIDs, or over SelectNodes' pick when
// nodeIDs is empty.
func (s *Service) Generate(ctx context.Context, enrollmentID string, nodeIDs []string, difficulty domain.Difficulty) (Generated, error) {
	if _, err := domain.ParseDifficulty(string(difficulty)); err != nil {
		return Generated{}, apperr.Invalid("%v", err)
	}
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}

	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Generated{}, err
	}
	rm, err := s.store.GetRoadmap(ctx, enrollment.CourseID)
	if err != nil {
		return Generated{}, err
	}
	rows, err := s.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return Generated{}, err
	}

	if len(nodeIDs) == 0 {
		nodeIDs, err = SelectNodes(rows, s.limit)
		if err != nil {
			return Generated{}, err
		}
	}
	nodeIDs = dedupe(nodeIDs)

	byID := make(map[string]domain.Node, len(rm.Nodes))
	for _, n := range rm.Nodes {
		byID[n.ID] = n
	}
	nodes := make([]domain.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		n, ok := byID[id]
		if !ok {
			return Generated{}, apperr.NotFound("node %s", id)
		}
		nodes = append(nodes, n)
	}

	draft, err := s.generator.GenerateAssessment(ctx, ai.AssessmentRequest{
		Nodes:      nodes,
		Progress:   rows,
		Difficulty: difficulty,
	})
	if err != nil {
		slog.Error("assessment generation failed",
			"enrollment_id", enrollmentID,
			"nodes", len(nodeIDs),
			"error", err,
		)
		return Generated{}, err
	}

	session, err := s.store.CreateAssessment(ctx, domain.AssessmentSession{
		EnrollmentID: enrollmentID,
		NodeIDs:      nodeIDs,
		Questions:    draft.Questions,
	})
	if err != nil {
		return Generated{}, fmt.Errorf("create assessment: %w", err)
	}

	slog.Info("assessment generated",
		"assessment_id", session.ID,
		"enrollment_id", enrollmentID,
		"nodes", len(nodeIDs),
		"questions", len(session.Questions),
	)
	return Generated{Session: session, EstimatedMinutes: draft.EstimatedMinutes}, nil
}

// Submit grades answers and applies the node scores to progress. A session
// can be submitted once; later submissions fail with a conflict and change
// nothing. If the scores cannot be applied the session is reopened so the
// submission can be retried.
func (s *Service) Submit(ctx context.Context, assessmentID string, answers []domain.Answer) (Submission, error) {
	session, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return Submission{}, err
	}
	if session.Completed {
		return Submission{}, apperr.Conflict("assessment %s already completed", assessmentID)
	}
	if err := checkAnswers(session, answers); err != nil {
		return Submission{}, err
	}
	enrollment, err := s.store.GetEnrollment(ctx, session.EnrollmentID)
	if err != nil {
		return Submission{}, err
	}
	if _, err := s.store.GetRoadmap(ctx, enrollment.CourseID); err != nil {
		return Submission{}, err
	}

	eval, err := s.generator.EvaluateAssessment(ctx, session, answers)
	if err != nil {
		slog.Error("assessment evaluation failed",
			"assessment_id", assessmentID,
			"error", err,
		)
		return Submission{}, err
	}
	eval.Score = min(max(eval.Score, 0), 100)
	eval.NodeScores = sessionScores(session, eval.NodeScores)

	if err := s.store.CompleteAssessment(ctx, assessmentID, answers, eval.Score); err != nil {
		return Submission{}, err
	}

	res, err := s.engine.ApplyScores(ctx, session.EnrollmentID, eval.NodeScores)
	if err != nil {
		if rerr := s.store.ReopenAssessment(ctx, assessmentID); rerr != nil {
			slog.Error("failed to reopen assessment after apply error",
				"assessment_id", assessmentID,
				"error", rerr,
			)
		}
		return Submission{}, fmt.Errorf("apply assessment scores: %w", err)
	}

	slog.Info("assessment submitted",
		"assessment_id", assessmentID,
		"enrollment_id", session.EnrollmentID,
		"score", eval.Score,
		"node_scores", len(eval.NodeScores),
		"unlocked", len(res.Unlocked),
	)
	return Submission{Evaluation: eval, Updated: res.Updated, Unlocked: res.Unlocked}, nil
}

// Get returns a session.
func (s *Service) Get(ctx context.Context, assessmentID string) (domain.AssessmentSession, error) {
	return s.store.GetAssessment(ctx, assessmentID)
}

func checkAnswers(session domain.AssessmentSession, answers []domain.Answer) error {
	known := make(map[string]bool, len(session.Questions))
	for _, q := range session.Questions {
		known[q.ID] = true
	}
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if !known[a.QuestionID] {
			return apperr.Invalid("answer references unknown question %q", a.QuestionID)
		}
		if seen[a.QuestionID] {
			return apperr.Invalid("question %q answered twice", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	return nil
}

// sessionScores keeps the first score per node under test.
func sessionScores(session domain.AssessmentSession, scores []domain.NodeScore) []domain.NodeScore {
	out := make([]domain.NodeScore, 0, len(scores))
	seen := make(map[string]bool, len(scores))
	for _, ns := range scores {
		if !slices.Contains(session.NodeIDs, ns.NodeID) || seen[ns.NodeID] {
			slog.Warn("dropping node score outside the session",
				"assessment_id", session.ID,
				"node_id", ns.NodeID,
			)
			continue
		}
		seen[ns.NodeID] = true
		ns.Score = min(max(ns.Score, 0), 100)
		out = append(out, ns)
	}
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
