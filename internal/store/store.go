// Package store persists courses, roadmaps, enrollments and all progress
// state owned by an enrollment. MemoryStore backs tests and local runs;
// PostgresStore backs production.
package store

import (
	"context"
	"time"

	"github.com/p-n-ai/lightup/internal/domain"
)

// Every method returns an error wrapping apperr.ErrNotFound when the
// addressed record is absent and apperr.ErrConflict on uniqueness or
// one-way-transition violations.

// CourseStore persists the course catalogue and each course's roadmap.
type CourseStore interface {
	CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error)
	// UpsertCourse creates or replaces the course with c.ID.
	UpsertCourse(ctx context.Context, c domain.Course) error
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	ListCourses(ctx context.Context, presetOnly bool) ([]domain.Course, error)
	// SaveRoadmap replaces the roadmap of rm.CourseID.
	SaveRoadmap(ctx context.Context, rm domain.Roadmap) (domain.Roadmap, error)
	GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error)
}

// EnrollmentStore persists enrollments.
type EnrollmentStore interface {
	// CreateEnrollment fails with a conflict if the learner is already
	// enrolled in the course.
	CreateEnrollment(ctx context.Context, e domain.Enrollment) (domain.Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	FindEnrollment(ctx context.Context, learnerID, courseID string) (domain.Enrollment, error)
	SetEnrollmentStatus(ctx context.Context, id string, status domain.EnrollmentStatus) error
	// DeleteEnrollment removes the enrollment and everything it owns.
	DeleteEnrollment(ctx context.Context, id string) error
}

// ProgressStore persists one NodeProgress per (enrollment, node).
type ProgressStore interface {
	InsertNodeProgress(ctx context.Context, enrollmentID string, rows []domain.NodeProgress) error
	GetNodeProgress(ctx context.Context, enrollmentID, nodeID string) (domain.NodeProgress, error)
	ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error)
	// SaveNodeProgress overwrites an existing row; it never creates one.
	SaveNodeProgress(ctx context.Context, p domain.NodeProgress) error
}

// LogQuery bounds a study-log read. Zero values mean unbounded.
type LogQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// StudyLogStore persists the append-only study log.
type StudyLogStore interface {
	AppendStudyLog(ctx context.Context, l domain.StudyLog) (domain.StudyLog, error)
	// ListStudyLogs returns logs ordered by date, newest first.
	ListStudyLogs(ctx context.Context, enrollmentID string, q LogQuery) ([]domain.StudyLog, error)
}

// AssessmentStore persists assessment sessions.
type AssessmentStore interface {
	CreateAssessment(ctx context.Context, s domain.AssessmentSession) (domain.AssessmentSession, error)
	GetAssessment(ctx context.Context, id string) (domain.AssessmentSession, error)
	// CompleteAssessment records answers and score and flips Completed. It
	// fails with a conflict if the session is already completed.
	CompleteAssessment(ctx context.Context, id string, answers []domain.Answer, score int) error
	// ReopenAssessment clears answers and score and marks the session
	// incomplete again.
	ReopenAssessment(ctx context.Context, id string) error
}

// StudyPlanStore persists study plans.
type StudyPlanStore interface {
	CreateStudyPlan(ctx context.Context, p domain.StudyPlan) (domain.StudyPlan, error)
	GetStudyPlan(ctx context.Context, id string) (domain.StudyPlan, error)
	SetStudyPlanDay(ctx context.Context, id, dayKey string, progress domain.DayProgress) error
}

// Store is the full persistence interface.
type Store interface {
	CourseStore
	EnrollmentStore
	ProgressStore
	StudyLogStore
	AssessmentStore
	StudyPlanStore
}
