package ai

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/lightup/internal/domain"
)

const systemPrompt = "You are an expert curriculum designer and learning assistant. " +
	"Reply with a single JSON object and nothing else."

func roadmapPrompt(req RoadmapRequest) string {
	var b strings.Builder
	b.WriteString("Create a learning roadmap for the course below.\n\n")
	fmt.Fprintf(&b, "COURSE\nTitle: %s\nDescription: %s\nDifficulty: %s\n", req.CourseTitle, req.CourseDescription, req.Difficulty)
	if req.CustomInput != "" {
		fmt.Fprintf(&b, "Custom requirements: %s\n", req.CustomInput)
	}
	if req.TargetHours > 0 {
		fmt.Fprintf(&b, "Target learning hours: %d\n", req.TargetHours)
	}
	b.WriteString(`
REQUIREMENTS
- 8 to 15 knowledge nodes covering the essential topics
- prerequisites reference other node ids and never form a cycle
- at least one node has no prerequisites
- estimated_hours is a realistic positive number

RESPONSE FORMAT
{"title": "...", "nodes": [{"id": "kebab-case-id", "title": "...", "description": "...",
  "prerequisites": ["other-id"], "estimated_hours": 4.0, "position": {"x": 100, "y": 100}}]}
`)
	return b.String()
}

func assessmentPrompt(req AssessmentRequest) string {
	status := make(map[string]domain.NodeProgress, len(req.Progress))
	for _, p := range req.Progress {
		status[p.NodeID] = p
	}

	var b strings.Builder
	b.WriteString("Generate assessment questions for the knowledge nodes below.\n\nKNOWLEDGE NODES\n")
	for _, n := range req.Nodes {
		fmt.Fprintf(&b, "Node ID: %s\nTitle: %s\nDescription: %s\nEstimated Hours: %g\n", n.ID, n.Title, n.Description, n.EstimatedHours)
		if p, ok := status[n.ID]; ok {
			fmt.Fprintf(&b, "Learner Status: %s (Score: %d/100, Study Time: %d minutes)\n", p.Status, p.MasteryScore, p.StudyTimeMinutes)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, `REQUIREMENTS
- exactly %d questions, each referencing one of the node ids above
- difficulty: %s
- mix the types multiple_choice, short_answer and true_false
- options only for multiple_choice

RESPONSE FORMAT
{"questions": [{"id": "q1", "node_id": "...", "question": "...", "question_type": "multiple_choice",
  "options": ["...", "..."], "points": 10}], "estimated_minutes": 20}
`, req.QuestionCount, req.Difficulty)
	return b.String()
}

func evaluationPrompt(session domain.AssessmentSession, answers []domain.Answer) string {
	byQuestion := make(map[string]domain.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	var b strings.Builder
	b.WriteString("Evaluate the learner's answers and score their mastery of each knowledge node.\n\nQUESTIONS AND ANSWERS\n")
	for _, q := range session.Questions {
		answer := "Not answered"
		if a, ok := byQuestion[q.ID]; ok && len(a.Values) > 0 {
			answer = strings.Join(a.Values, ", ")
		}
		fmt.Fprintf(&b, "Question ID: %s\nNode ID: %s\nQuestion: %s\nType: %s\n", q.ID, q.NodeID, q.Question, q.Type)
		if len(q.Options) > 0 {
			fmt.Fprintf(&b, "Options: %s\n", strings.Join(q.Options, " | "))
		}
		fmt.Fprintf(&b, "Learner Answer: %s\nPoints: %d\n\n", answer, q.Points)
	}
	fmt.Fprintf(&b, `REQUIREMENTS
- score every node in [%s] from 0 to 100
- recommended_action is "master" when the node is mastered, "review" when it needs review, otherwise "continue"
- percentage is the overall score from 0 to 100

RESPONSE FORMAT
{"percentage": 85, "node_scores": [{"node_id": "...", "score": 85, "feedback": "...",
  "recommended_action": "continue"}], "overall_feedback": "..."}
`, strings.Join(session.NodeIDs, ", "))
	return b.String()
}

func studyPlanPrompt(req StudyPlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a day-by-day study plan for the course %q.\n\nKNOWLEDGE ROADMAP\n", req.CourseTitle)
	for _, n := range req.Nodes {
		prereqs := "None"
		if len(n.Prerequisites) > 0 {
			prereqs = strings.Join(n.Prerequisites, ", ")
		}
		fmt.Fprintf(&b, "- %s: %s (%gh) - Prerequisites: %s\n", n.ID, n.Title, n.EstimatedHours, prereqs)
	}
	b.WriteString("\nCURRENT PROGRESS\n")
	for _, p := range req.Progress {
		fmt.Fprintf(&b, "- %s: %s (Score: %d/100)\n", p.NodeID, p.Status, p.MasteryScore)
	}

	startDate := req.Preferences.StartDate
	if startDate == "" {
		startDate = "Not specified"
	}
	fmt.Fprintf(&b, `
TIME CONSTRAINTS
- Target days: %d
- Daily hours: %g
- Start date: %s
- Study on weekends: %t
- Intensive mode: %t

REQUIREMENTS
- follow the prerequisite order, skip completed nodes, prioritise needs_review nodes
- never exceed the daily hours

RESPONSE FORMAT
{"daily_schedule": [{"day": 1, "date": "2026-01-01", "total_study_minutes": 120,
  "activities": [{"node_id": "...", "activity_type": "learn", "estimated_minutes": 60, "description": "..."}],
  "daily_goal": "..."}],
 "summary": {"total_days": %d, "total_hours": %g, "estimated_completion_date": "2026-01-30"}}
`, req.TargetDays, req.DailyHours, startDate, req.Preferences.Weekends, req.Preferences.IntensiveMode,
		req.TargetDays, float64(req.TargetDays)*req.DailyHours)
	return b.String()
}
