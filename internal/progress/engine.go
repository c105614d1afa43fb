// Package progress implements the node status state machine of an
// enrollment: initialization, manual updates, assessment results and the
// completion-triggered unlock of dependent nodes.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/roadmap"
)

// Mastery thresholds used when mapping an assessment score to a status.
const (
	MasteredScore = 90
	PassingScore  = 70
)

// Store is the persistence the engine needs.
type Store interface {
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error)
	InsertNodeProgress(ctx context.Context, enrollmentID string, rows []domain.NodeProgress) error
	GetNodeProgress(ctx context.Context, enrollmentID, nodeID string) (domain.NodeProgress, error)
	ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error)
	SaveNodeProgress(ctx context.Context, p domain.NodeProgress) error
}

// Engine applies status transitions to an enrollment's NodeProgress set.
type Engine struct {
	store  Store
	events EventLogger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventLogger records every transition to l.
func WithEventLogger(l EventLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.events = l
		}
	}
}

// WithClock overrides the time source used for LastAssessed.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over s.
func NewEngine(s Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		events: NopEventLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Update is a manual progress change for one node.
type Update struct {
	NodeID string
	Status domain.Status
	// MasteryScore, when set, replaces the score and stamps LastAssessed.
	MasteryScore *int
	// StudyTimeMinutes, when set, is added to the accumulated study time.
	StudyTimeMinutes *int
}

// Result reports the outcome of a status-changing call.
type Result struct {
	Updated  []domain.NodeProgress
	Unlocked []string
}

// Initialize creates one not_started row per roadmap node and marks every
// entry node next. It must run once per enrollment.
func (e *Engine) Initialize(ctx context.Context, enrollmentID string, nodes []domain.Node) error {
	if _, err := e.store.GetEnrollment(ctx, enrollmentID); err != nil {
		return err
	}

	g := roadmap.NewGraph(nodes)
	roots := make(map[string]bool)
	for _, id := range g.Roots() {
		roots[id] = true
	}

	rows := make([]domain.NodeProgress, 0, len(nodes))
	for _, n := range g.Nodes() {
		status := domain.StatusNotStarted
		if roots[n.ID] {
			status = domain.StatusNext
		}
		rows = append(rows, domain.NodeProgress{
			EnrollmentID: enrollmentID,
			NodeID:       n.ID,
			Status:       status,
		})
	}

	if err := e.store.InsertNodeProgress(ctx, enrollmentID, rows); err != nil {
		return fmt.Errorf("initialize progress: %w", err)
	}

	slog.Info("enrollment progress initialized",
		"enrollment_id", enrollmentID,
		"nodes", len(rows),
		"entry_nodes", len(roots),
	)
	return nil
}

// Progress returns every NodeProgress of the enrollment in roadmap order.
func (e *Engine) Progress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error) {
	return e.store.ListNodeProgress(ctx, enrollmentID)
}

// UpdateNode applies a manual update. When the new status is completed the
// direct dependents are unlocked once; longer chains need further
// completions to propagate.
func (e *Engine) UpdateNode(ctx context.Context, enrollmentID string, u Update) (Result, error) {
	if _, err := domain.ParseStatus(string(u.Status)); err != nil {
		return Result{}, apperr.Invalid("%v", err)
	}
	if u.MasteryScore != nil && (*u.MasteryScore < 0 || *u.MasteryScore > 100) {
		return Result{}, apperr.Invalid("mastery score must be between 0 and 100, got %d", *u.MasteryScore)
	}
	if u.StudyTimeMinutes != nil && *u.StudyTimeMinutes < 0 {
		return Result{}, apperr.Invalid("study time must not be negative, got %d", *u.StudyTimeMinutes)
	}

	enrollment, err := e.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Result{}, err
	}
	current, err := e.store.GetNodeProgress(ctx, enrollmentID, u.NodeID)
	if err != nil {
		return Result{}, err
	}

	var g *roadmap.Graph
	if u.Status == domain.StatusCompleted {
		if g, err = e.graph(ctx, enrollment.CourseID); err != nil {
			return Result{}, err
		}
	}

	prev := current.Status
	next := current
	next.Status = u.Status
	if u.MasteryScore != nil {
		now := e.now()
		next.MasteryScore = *u.MasteryScore
		next.LastAssessed = &now
	}
	if u.StudyTimeMinutes != nil {
		next.StudyTimeMinutes += *u.StudyTimeMinutes
	}

	if err := e.store.SaveNodeProgress(ctx, next); err != nil {
		return Result{}, fmt.Errorf("save node progress: %w", err)
	}
	e.logTransition(ctx, enrollmentID, u.NodeID, prev, next.Status, "manual")

	res := Result{Updated: []domain.NodeProgress{next}}
	if next.Status == domain.StatusCompleted {
		unlocked, err := e.unlockDependents(ctx, enrollmentID, g, []string{u.NodeID})
		if err != nil {
			return res, err
		}
		res.Unlocked = unlocked
	}
	return res, nil
}

// ApplyScores writes assessment results: each scored node gets the score,
// a LastAssessed stamp and the status from StatusFor. Every node scored as
// completed unlocks its direct dependents. Scores for nodes outside the
// roadmap are skipped.
func (e *Engine) ApplyScores(ctx context.Context, enrollmentID string, scores []domain.NodeScore) (Result, error) {
	enrollment, err := e.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Result{}, err
	}
	g, err := e.graph(ctx, enrollment.CourseID)
	if err != nil {
		return Result{}, err
	}
	rows, err := e.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return Result{}, err
	}

	byNode := make(map[string]domain.NodeProgress, len(rows))
	for _, p := range rows {
		byNode[p.NodeID] = p
	}

	now := e.now()
	var res Result
	var completed []string
	for _, s := range scores {
		current, ok := byNode[s.NodeID]
		if !ok {
			slog.Warn("assessment scored unknown node, skipping",
				"enrollment_id", enrollmentID,
				"node_id", s.NodeID,
			)
			continue
		}

		score := min(max(s.Score, 0), 100)
		next := current
		next.MasteryScore = score
		next.LastAssessed = &now
		next.Status = StatusFor(score, s.RecommendedAction)

		if err := e.store.SaveNodeProgress(ctx, next); err != nil {
			return res, fmt.Errorf("save node progress: %w", err)
		}
		byNode[s.NodeID] = next
		res.Updated = append(res.Updated, next)
		e.logTransition(ctx, enrollmentID, s.NodeID, current.Status, next.Status, "assessment")

		if next.Status == domain.StatusCompleted {
			completed = append(completed, s.NodeID)
		}
	}

	e.logEvent(ctx, Event{
		EnrollmentID: enrollmentID,
		EventType:    EventAssessmentApplied,
		Data: map[string]any{
			"scored_nodes": len(res.Updated),
			"completed":    completed,
		},
	})

	if len(completed) > 0 {
		unlocked, err := e.unlockDependents(ctx, enrollmentID, g, completed)
		if err != nil {
			return res, err
		}
		res.Unlocked = unlocked
	}
	return res, nil
}

// StatusFor maps an assessment score and recommended action to a node
// status. It can regress a completed node to needs_review.
func StatusFor(score int, action domain.Action) domain.Status {
	switch {
	case action == domain.ActionMaster || score >= MasteredScore:
		return domain.StatusCompleted
	case action == domain.ActionReview || score < PassingScore:
		return domain.StatusNeedsReview
	default:
		return domain.StatusNext
	}
}

// unlockDependents moves each direct dependent of the given completed nodes
// from not_started to next once all of its prerequisites are completed. It
// reads fresh progress so re-running it is a no-op.
func (e *Engine) unlockDependents(ctx context.Context, enrollmentID string, g *roadmap.Graph, completedIDs []string) ([]string, error) {
	rows, err := e.store.ListNodeProgress(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("load progress for unlock: %w", err)
	}

	done := make(map[string]bool, len(rows))
	byNode := make(map[string]domain.NodeProgress, len(rows))
	for _, p := range rows {
		byNode[p.NodeID] = p
		if p.Status == domain.StatusCompleted {
			done[p.NodeID] = true
		}
	}

	var unlocked []string
	for _, id := range completedIDs {
		for _, dep := range g.Dependents(id) {
			p, ok := byNode[dep]
			if !ok || p.Status != domain.StatusNotStarted {
				continue
			}
			if !g.Satisfied(dep, done) {
				continue
			}

			p.Status = domain.StatusNext
			if err := e.store.SaveNodeProgress(ctx, p); err != nil {
				return unlocked, fmt.Errorf("unlock node %q: %w", dep, err)
			}
			byNode[dep] = p
			unlocked = append(unlocked, dep)

			slog.Info("node unlocked",
				"enrollment_id", enrollmentID,
				"node_id", dep,
				"completed_prerequisite", id,
			)
			e.logEvent(ctx, Event{
				EnrollmentID: enrollmentID,
				NodeID:       dep,
				EventType:    EventNodeUnlocked,
				Data:         map[string]any{"trigger": id},
			})
		}
	}
	return unlocked, nil
}

func (e *Engine) graph(ctx context.Context, courseID string) (*roadmap.Graph, error) {
	rm, err := e.store.GetRoadmap(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return roadmap.NewGraph(rm.Nodes), nil
}

func (e *Engine) logTransition(ctx context.Context, enrollmentID, nodeID string, from, to domain.Status, source string) {
	if from == to {
		return
	}
	e.logEvent(ctx, Event{
		EnrollmentID: enrollmentID,
		NodeID:       nodeID,
		EventType:    EventStatusChanged,
		Data: map[string]any{
			"from":   string(from),
			"to":     string(to),
			"source": source,
		},
	})
}

func (e *Engine) logEvent(ctx context.Context, ev Event) {
	if err := e.events.LogEvent(ctx, ev); err != nil {
		slog.Warn("failed to log progress event",
			"type", ev.EventType,
			"enrollment_id", ev.EnrollmentID,
			"error", err,
		)
	}
}
