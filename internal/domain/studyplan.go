package domain

import "time"

// PlanPreferences tune study-plan generation.
type PlanPreferences struct {
	StartDate     string `json:"startDate,omitempty"`
	Weekends      bool   `json:"weekends,omitempty"`
	IntensiveMode bool   `json:"intensiveMode,omitempty"`
}

// PlanActivity is one node's slot on a study day.
type PlanActivity struct {
	NodeID           string `json:"nodeId"`
	ActivityType     string `json:"activityType"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
	Description      string `json:"description"`
}

// StudyDay is one day of a study plan.
type StudyDay struct {
	Day        int            `json:"day"`
	Date       string         `json:"date"`
	StudyHours float64        `json:"studyHours"`
	Nodes      []PlanActivity `json:"nodes"`
	DailyGoal  string         `json:"dailyGoal"`
}

// PlanSummary totals a study plan.
type PlanSummary struct {
	TotalDays           int     `json:"totalDays"`
	TotalHours          float64 `json:"totalHours"`
	AverageHoursPerDay  float64 `json:"averageHoursPerDay"`
	EstimatedCompletion string  `json:"estimatedCompletion"`
}

// DayProgress records what the learner actually did on a plan day.
type DayProgress struct {
	CompletedNodes     []string  `json:"completedNodes"`
	ActualStudyMinutes int       `json:"actualStudyMinutes"`
	CompletedAt        time.Time `json:"completedAt"`
}

// StudyPlan is a generated schedule plus the learner's progress against it.
// Progress is keyed by "day_N".
type StudyPlan struct {
	ID           string                 `json:"id"`
	EnrollmentID string                 `json:"enrollmentId"`
	TargetDays   int                    `json:"targetDays"`
	DailyHours   float64                `json:"dailyHours"`
	Schedule     []StudyDay             `json:"schedule"`
	Summary      PlanSummary            `json:"summary"`
	Preferences  PlanPreferences        `json:"preferences"`
	Progress     map[string]DayProgress `json:"progress"`
	CreatedAt    time.Time              `json:"createdAt"`
}
