// Package course manages the course catalogue, AI-generated custom courses
// and learner enrollments.
package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/p-n-ai/lightup/internal/ai"
	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/progress"
	"github.com/p-n-ai/lightup/internal/roadmap"
)

const (
	maxCustomInputLen = 1000
	customCategory    = "Custom"
)

// Store is the persistence the service needs.
type Store interface {
	CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error)
	UpsertCourse(ctx context.Context, c domain.Course) error
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	ListCourses(ctx context.Context, presetOnly bool) ([]domain.Course, error)
	SaveRoadmap(ctx context.Context, rm domain.Roadmap) (domain.Roadmap, error)
	GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error)
	CreateEnrollment(ctx context.Context, e domain.Enrollment) (domain.Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error)
	FindEnrollment(ctx context.Context, learnerID, courseID string) (domain.Enrollment, error)
	SetEnrollmentStatus(ctx context.Context, id string, status domain.EnrollmentStatus) error
	DeleteEnrollment(ctx context.Context, id string) error
	ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error)
}

// RoadmapGenerator drafts a roadmap for a custom course. *ai.Generator
// implements it.
type RoadmapGenerator interface {
	GenerateRoadmap(ctx context.Context, req ai.RoadmapRequest) (ai.GeneratedRoadmap, error)
}

// Service is the course catalogue and enrollment service.
type Service struct {
	store     Store
	engine    *progress.Engine
	generator RoadmapGenerator
}

// NewService creates a course service. gen may be nil, in which case
// custom courses are created without a roadmap.
func NewService(store Store, engine *progress.Engine, gen RoadmapGenerator) *Service {
	return &Service{store: store, engine: engine, generator: gen}
}

// CustomCourse is the outcome of GenerateCustomCourse. The course exists
// even when RoadmapGenerated is false.
type CustomCourse struct {
	Course           domain.Course `json:"course"`
	RoadmapGenerated bool          `json:"roadmapGenerated"`
}

// EnrollmentView is an enrollment with its course and status counts.
type EnrollmentView struct {
	domain.Enrollment
	Course          domain.Course          `json:"course"`
	ProgressSummary domain.ProgressSummary `json:"progressSummary"`
}

// Presets lists preset courses ordered by title.
func (s *Service) Presets(ctx context.Context) ([]domain.Course, error) {
	return s.store.ListCourses(ctx, true)
}

// Course returns one course.
func (s *Service) Course(ctx context.Context, id string) (domain.Course, error) {
	return s.store.GetCourse(ctx, id)
}

// Roadmap returns the roadmap of a course.
func (s *Service) Roadmap(ctx context.Context, courseID string) (domain.Roadmap, error) {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return domain.Roadmap{}, err
	}
	return s.store.GetRoadmap(ctx, courseID)
}

// GenerateCustomCourse creates a course from free-form input and asks the
// generator for its roadmap. A failed or invalid roadmap is logged and the
// course is kept without one.
func (s *Service) GenerateCustomCourse(ctx context.Context, input string) (CustomCourse, error) {
	title := TitleFromInput(input)
	if title == "" {
		return CustomCourse{}, apperr.Invalid("custom input is empty")
	}
	if utf8.RuneCountInString(input) > maxCustomInputLen {
		return CustomCourse{}, apperr.Invalid("custom input exceeds %d characters", maxCustomInputLen)
	}

	c, err := s.store.CreateCourse(ctx, domain.Course{
		Title:       title,
		Description: input,
		Category:    customCategory,
	})
	if err != nil {
		return CustomCourse{}, fmt.Errorf("create course: %w", err)
	}

	if err := s.generateRoadmap(ctx, c, input); err != nil {
		slog.Warn("roadmap generation failed, course created without roadmap",
			"course_id", c.ID,
			"error", err,
		)
		return CustomCourse{Course: c}, nil
	}
	return CustomCourse{Course: c, RoadmapGenerated: true}, nil
}

func (s *Service) generateRoadmap(ctx context.Context, c domain.Course, input string) error {
	if s.generator == nil {
		return errors.New("no roadmap generator configured")
	}
	draft, err := s.generator.GenerateRoadmap(ctx, ai.RoadmapRequest{
		CourseTitle:       c.Title,
		CourseDescription: c.Description,
		CustomInput:       input,
	})
	if err != nil {
		return err
	}
	if err := roadmap.Validate(draft.Nodes); err != nil {
		return apperr.External("generate roadmap", err)
	}

	title := draft.Title
	if title == "" {
		title = c.Title
	}
	rm, err := s.store.SaveRoadmap(ctx, domain.Roadmap{CourseID: c.ID, Title: title, Nodes: draft.Nodes})
	if err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}

	slog.Info("custom course roadmap generated",
		"course_id", c.ID,
		"roadmap_id", rm.ID,
		"nodes", len(rm.Nodes),
	)
	return nil
}

// Enroll binds a learner to a course and initializes node progress.
func (s *Service) Enroll(ctx context.Context, learnerID, courseID string) (domain.Enrollment, error) {
	if learnerID == "" {
		return domain.Enrollment{}, apperr.Invalid("learner id is required")
	}
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return domain.Enrollment{}, err
	}
	_, err := s.store.FindEnrollment(ctx, learnerID, courseID)
	switch {
	case err == nil:
		return domain.Enrollment{}, apperr.Conflict("learner %s is already enrolled in course %s", learnerID, courseID)
	case !errors.Is(err, apperr.ErrNotFound):
		return domain.Enrollment{}, fmt.Errorf("find enrollment: %w", err)
	}

	var nodes []domain.Node
	rm, err := s.store.GetRoadmap(ctx, courseID)
	switch {
	case err == nil:
		nodes = rm.Nodes
	case !errors.Is(err, apperr.ErrNotFound):
		return domain.Enrollment{}, fmt.Errorf("get roadmap: %w", err)
	}

	e, err := s.store.CreateEnrollment(ctx, domain.Enrollment{
		LearnerID: learnerID,
		CourseID:  courseID,
		Status:    domain.EnrollmentActive,
	})
	if err != nil {
		return domain.Enrollment{}, err
	}

	if len(nodes) == 0 {
		slog.Info("enrolled in course without roadmap", "enrollment_id", e.ID, "course_id", courseID)
		return e, nil
	}
	if err := s.engine.Initialize(ctx, e.ID, nodes); err != nil {
		if derr := s.store.DeleteEnrollment(ctx, e.ID); derr != nil {
			slog.Error("failed to remove enrollment after initialize error",
				"enrollment_id", e.ID,
				"error", derr,
			)
		}
		return domain.Enrollment{}, err
	}
	return e, nil
}

// Enrollment returns an enrollment with its progress summary.
func (s *Service) Enrollment(ctx context.Context, id string) (EnrollmentView, error) {
	e, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return EnrollmentView{}, err
	}
	c, err := s.store.GetCourse(ctx, e.CourseID)
	if err != nil {
		return EnrollmentView{}, err
	}
	rows, err := s.store.ListNodeProgress(ctx, id)
	if err != nil {
		return EnrollmentView{}, err
	}
	return EnrollmentView{Enrollment: e, Course: c, ProgressSummary: domain.Summarize(rows)}, nil
}

// SetEnrollmentStatus changes the lifecycle state of an enrollment.
func (s *Service) SetEnrollmentStatus(ctx context.Context, id, status string) error {
	st, err := domain.ParseEnrollmentStatus(status)
	if err != nil {
		return apperr.Invalid("%v", err)
	}
	return s.store.SetEnrollmentStatus(ctx, id, st)
}

// Progress returns the node progress of an enrollment in roadmap order.
func (s *Service) Progress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error) {
	if _, err := s.store.GetEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	return s.engine.Progress(ctx, enrollmentID)
}

// Unenroll deletes an enrollment with its progress, logs, assessments and
// study plans.
func (s *Service) Unenroll(ctx context.Context, id string) error {
	if err := s.store.DeleteEnrollment(ctx, id); err != nil {
		return err
	}
	slog.Info("enrollment deleted", "enrollment_id", id)
	return nil
}
