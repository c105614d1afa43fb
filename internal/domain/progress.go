package domain

import (
	"fmt"
	"time"
)

// Status is a node's position in the unlock state machine.
type Status string

const (
	StatusNotStarted  Status = "not_started"
	StatusNext        Status = "next"
	StatusCompleted   Status = "completed"
	StatusNeedsReview Status = "needs_review"
)

// ParseStatus validates a status received from a caller.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNotStarted, StatusNext, StatusCompleted, StatusNeedsReview:
		return st, nil
	default:
		return "", fmt.Errorf("unknown node status %q", s)
	}
}

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentPaused    EnrollmentStatus = "paused"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// ParseEnrollmentStatus validates an enrollment status.
func ParseEnrollmentStatus(s string) (EnrollmentStatus, error) {
	switch st := EnrollmentStatus(s); st {
	case EnrollmentActive, EnrollmentPaused, EnrollmentCompleted, EnrollmentDropped:
		return st, nil
	default:
		return "", fmt.Errorf("unknown enrollment status %q", s)
	}
}

// Enrollment binds a learner to a course and owns all progress state.
type Enrollment struct {
	ID        string           `json:"id"`
	LearnerID string           `json:"learnerId"`
	CourseID  string           `json:"courseId"`
	Status    EnrollmentStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NodeProgress is the state of one node for one enrollment.
type NodeProgress struct {
	EnrollmentID     string     `json:"enrollmentId"`
	NodeID           string     `json:"nodeId"`
	Status           Status     `json:"status"`
	MasteryScore     int        `json:"masteryScore"`
	StudyTimeMinutes int        `json:"studyTimeMinutes"`
	LastAssessed     *time.Time `json:"lastAssessed,omitempty"`
}

// ProgressSummary counts nodes by the statuses a course overview shows.
type ProgressSummary struct {
	TotalNodes       int `json:"totalNodes"`
	CompletedNodes   int `json:"completedNodes"`
	NextNodes        int `json:"nextNodes"`
	NeedsReviewNodes int `json:"needsReviewNodes"`
}

// Summarize builds a ProgressSummary from a progress set.
func Summarize(progress []NodeProgress) ProgressSummary {
	s := ProgressSummary{TotalNodes: len(progress)}
	for _, p := range progress {
		switch p.Status {
		case StatusCompleted:
			s.CompletedNodes++
		case StatusNext:
			s.NextNodes++
		case StatusNeedsReview:
			s.NeedsReviewNodes++
		}
	}
	return s
}

// ActivityType classifies a study session.
type ActivityType string

const (
	ActivityStudy      ActivityType = "study"
	ActivityAssessment ActivityType = "assessment"
	ActivityReview     ActivityType = "review"
)

// ParseActivityType validates an activity type.
func ParseActivityType(s string) (ActivityType, error) {
	switch a := ActivityType(s); a {
	case ActivityStudy, ActivityAssessment, ActivityReview:
		return a, nil
	default:
		return "", fmt.Errorf("unknown activity type %q", s)
	}
}

// StudyLog is one recorded study session. Logs are append-only.
type StudyLog struct {
	ID             string       `json:"id"`
	EnrollmentID   string       `json:"enrollmentId"`
	Date           time.Time    `json:"date"`
	ActivityType   ActivityType `json:"activityType"`
	NodeIDs        []string     `json:"nodeIds"`
	MinutesStudied int          `json:"minutesStudied"`
	Notes          string       `json:"notes,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Day truncates t to its calendar day in UTC. Study logs and every
// statistic are computed on this granularity.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a day as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
