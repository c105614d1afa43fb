package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
)

const (
	defaultQuestionCount    = 6
	defaultEstimatedMinutes = 20
	generatorMaxTokens      = 4096
)

// Generator produces structured learning content from a Provider. Every
// error it returns wraps apperr.ErrExternalService.
type Generator struct {
	provider Provider
}

// NewGenerator creates a generator on top of p.
func NewGenerator(p Provider) *Generator {
	return &Generator{provider: p}
}

// RoadmapRequest describes the course a roadmap is generated for.
type RoadmapRequest struct {
	CourseTitle       string
	CourseDescription string
	CustomInput       string
	Difficulty        string
	TargetHours       int
}

// GeneratedRoadmap is an unvalidated roadmap proposal.
type GeneratedRoadmap struct {
	Title string
	Nodes []domain.Node
}

// AssessmentRequest selects the nodes and difficulty of a quiz.
type AssessmentRequest struct {
	Nodes         []domain.Node
	Progress      []domain.NodeProgress
	Difficulty    domain.Difficulty
	QuestionCount int
}

// AssessmentDraft is a generated quiz.
type AssessmentDraft struct {
	Questions        []domain.Question
	EstimatedMinutes int
}

// StudyPlanRequest is the input to study-plan generation.
type StudyPlanRequest struct {
	CourseTitle string
	Nodes       []domain.Node
	Progress    []domain.NodeProgress
	TargetDays  int
	DailyHours  float64
	Preferences domain.PlanPreferences
}

// PlanDraft is a generated schedule.
type PlanDraft struct {
	Schedule []domain.StudyDay
	Summary  domain.PlanSummary
}

// GenerateRoadmap asks the model for a roadmap.
func (g *Generator) GenerateRoadmap(ctx context.Context, req RoadmapRequest) (GeneratedRoadmap, error) {
	if req.Difficulty == "" {
		req.Difficulty = "beginner"
	}

	var reply struct {
		Title string `json:"title"`
		Nodes []struct {
			ID             string   `json:"id"`
			Title          string   `json:"title"`
			Description    string   `json:"description"`
			Prerequisites  []string `json:"prerequisites"`
			EstimatedHours float64  `json:"estimated_hours"`
			Position       struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"position"`
		} `json:"nodes"`
	}
	if err := g.complete(ctx, TaskRoadmap, roadmapSchema, roadmapPrompt(req), &reply); err != nil {
		return GeneratedRoadmap{}, apperr.External("generate roadmap", err)
	}

	out := GeneratedRoadmap{Title: reply.Title}
	for _, n := range reply.Nodes {
		out.Nodes = append(out.Nodes, domain.Node{
			ID:             n.ID,
			Title:          n.Title,
			Description:    n.Description,
			Prerequisites:  n.Prerequisites,
			EstimatedHours: n.EstimatedHours,
			Position:       domain.Position{X: n.Position.X, Y: n.Position.Y},
		})
	}
	return out, nil
}

// GenerateAssessment asks the model for questions on req.Nodes. Questions
// about other nodes are dropped.
func (g *Generator) GenerateAssessment(ctx context.Context, req AssessmentRequest) (AssessmentDraft, error) {
	if req.QuestionCount <= 0 {
		req.QuestionCount = defaultQuestionCount
	}
	if req.Difficulty == "" {
		req.Difficulty = domain.DifficultyMedium
	}

	var reply struct {
		Questions []struct {
			ID           string   `json:"id"`
			NodeID       string   `json:"node_id"`
			Question     string   `json:"question"`
			QuestionType string   `json:"question_type"`
			Options      []string `json:"options"`
			Points       int      `json:"points"`
		} `json:"questions"`
		EstimatedMinutes int `json:"estimated_minutes"`
	}
	if err := g.complete(ctx, TaskAssessment, assessmentSchema, assessmentPrompt(req), &reply); err != nil {
		return AssessmentDraft{}, apperr.External("generate assessment", err)
	}

	requested := make(map[string]bool, len(req.Nodes))
	for _, n := range req.Nodes {
		requested[n.ID] = true
	}

	draft := AssessmentDraft{EstimatedMinutes: reply.EstimatedMinutes}
	if draft.EstimatedMinutes <= 0 {
		draft.EstimatedMinutes = defaultEstimatedMinutes
	}
	seen := make(map[string]bool, len(reply.Questions))
	for i, q := range reply.Questions {
		if !requested[q.NodeID] {
			slog.Warn("generated question references unrequested node, dropping",
				"node_id", q.NodeID,
			)
			continue
		}
		id := q.ID
		if id == "" || seen[id] {
			id = "q" + strconv.Itoa(i+1)
		}
		seen[id] = true

		points := q.Points
		if points <= 0 {
			points = 10
		}
		draft.Questions = append(draft.Questions, domain.Question{
			ID:       id,
			NodeID:   q.NodeID,
			Question: q.Question,
			Type:     domain.QuestionType(q.QuestionType),
			Options:  q.Options,
			Points:   points,
		})
	}

	if len(draft.Questions) == 0 {
		err := &InvalidResponseError{Schema: assessmentSchema.Name, Err: fmt.Errorf("no questions reference the requested nodes")}
		return AssessmentDraft{}, apperr.External("generate assessment", err)
	}
	return draft, nil
}

// EvaluateAssessment grades answers against the session's questions.
func (g *Generator) EvaluateAssessment(ctx context.Context, session domain.AssessmentSession, answers []domain.Answer) (domain.Evaluation, error) {
	var reply struct {
		Percentage float64 `json:"percentage"`
		NodeScores []struct {
			NodeID            string  `json:"node_id"`
			Score             float64 `json:"score"`
			Feedback          string  `json:"feedback"`
			RecommendedAction string  `json:"recommended_action"`
		} `json:"node_scores"`
		OverallFeedback string `json:"overall_feedback"`
	}
	if err := g.complete(ctx, TaskEvaluation, evaluationSchema, evaluationPrompt(session, answers), &reply); err != nil {
		return domain.Evaluation{}, apperr.External("evaluate assessment", err)
	}

	eval := domain.Evaluation{
		Score:           int(math.Round(reply.Percentage)),
		OverallFeedback: reply.OverallFeedback,
	}
	for _, ns := range reply.NodeScores {
		action := domain.Action(ns.RecommendedAction)
		if action == "" {
			action = domain.ActionContinue
		}
		eval.NodeScores = append(eval.NodeScores, domain.NodeScore{
			NodeID:            ns.NodeID,
			Score:             int(math.Round(ns.Score)),
			Feedback:          ns.Feedback,
			RecommendedAction: action,
		})
	}
	return eval, nil
}

// GenerateStudyPlan asks the model for a day-by-day schedule.
func (g *Generator) GenerateStudyPlan(ctx context.Context, req StudyPlanRequest) (PlanDraft, error) {
	var reply struct {
		DailySchedule []struct {
			Day               int     `json:"day"`
			Date              string  `json:"date"`
			TotalStudyMinutes float64 `json:"total_study_minutes"`
			DailyGoal         string  `json:"daily_goal"`
			Activities        []struct {
				NodeID           string  `json:"node_id"`
				ActivityType     string  `json:"activity_type"`
				EstimatedMinutes float64 `json:"estimated_minutes"`
				Description      string  `json:"description"`
			} `json:"activities"`
		} `json:"daily_schedule"`
		Summary struct {
			TotalDays               int     `json:"total_days"`
			TotalHours              float64 `json:"total_hours"`
			EstimatedCompletionDate string  `json:"estimated_completion_date"`
		} `json:"summary"`
	}
	if err := g.complete(ctx, TaskStudyPlan, studyPlanSchema, studyPlanPrompt(req), &reply); err != nil {
		return PlanDraft{}, apperr.External("generate study plan", err)
	}

	var draft PlanDraft
	var totalMinutes float64
	for _, d := range reply.DailySchedule {
		day := domain.StudyDay{
			Day:        d.Day,
			Date:       d.Date,
			StudyHours: math.Round(d.TotalStudyMinutes/60*100) / 100,
			DailyGoal:  d.DailyGoal,
		}
		var dayMinutes float64
		for _, a := range d.Activities {
			day.Nodes = append(day.Nodes, domain.PlanActivity{
				NodeID:           a.NodeID,
				ActivityType:     a.ActivityType,
				EstimatedMinutes: int(math.Round(a.EstimatedMinutes)),
				Description:      a.Description,
			})
			dayMinutes += a.EstimatedMinutes
		}
		if day.StudyHours == 0 {
			day.StudyHours = math.Round(dayMinutes/60*100) / 100
		}
		totalMinutes += day.StudyHours * 60
		draft.Schedule = append(draft.Schedule, day)
	}

	draft.Summary = domain.PlanSummary{
		TotalDays:           reply.Summary.TotalDays,
		TotalHours:          reply.Summary.TotalHours,
		EstimatedCompletion: reply.Summary.EstimatedCompletionDate,
	}
	if draft.Summary.TotalDays == 0 {
		draft.Summary.TotalDays = len(draft.Schedule)
	}
	if draft.Summary.TotalHours == 0 {
		draft.Summary.TotalHours = math.Round(totalMinutes/60*100) / 100
	}
	if draft.Summary.TotalDays > 0 {
		draft.Summary.AverageHoursPerDay = math.Round(draft.Summary.TotalHours/float64(draft.Summary.TotalDays)*100) / 100
	}
	if draft.Summary.EstimatedCompletion == "" && len(draft.Schedule) > 0 {
		draft.Summary.EstimatedCompletion = draft.Schedule[len(draft.Schedule)-1].Date
	}
	return draft, nil
}

// complete sends prompt as a JSON-mode request, validates the reply against
// schema and decodes it into out.
func (g *Generator) complete(ctx context.Context, task TaskType, schema Schema, prompt string, out any) error {
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   generatorMaxTokens,
		Temperature: 0.3,
		Task:        task,
		JSON:        true,
	})
	if err != nil {
		return err
	}

	raw := extractJSON(resp.Content)
	if err := schema.Validate(raw); err != nil {
		slog.Warn("AI reply failed validation",
			"task", task.String(),
			"model", resp.Model,
			"error", err,
		)
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &InvalidResponseError{Schema: schema.Name, Content: raw, Err: err}
	}
	return nil
}
