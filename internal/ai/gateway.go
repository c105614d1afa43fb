// Package ai talks to LLM providers and turns their JSON replies into
// roadmaps, assessments, evaluations and study plans.
package ai

import "context"

// TaskType identifies what a completion is for. It is carried for logging.
type TaskType int

const (
	TaskRoadmap TaskType = iota
	TaskAssessment
	TaskEvaluation
	TaskStudyPlan
)

func (t TaskType) String() string {
	switch t {
	case TaskRoadmap:
		return "roadmap"
	case TaskAssessment:
		return "assessment"
	case TaskEvaluation:
		return "evaluation"
	case TaskStudyPlan:
		return "study_plan"
	default:
		return "unknown"
	}
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to an AI completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
	// JSON asks the provider to constrain output to a JSON object where the
	// API supports it.
	JSON bool `json:"json,omitempty"`
}

// CompletionResponse is the output from an AI completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider is the interface all AI providers must implement.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
}
