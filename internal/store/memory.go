package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu          sync.RWMutex
	courses     map[string]domain.Course
	roadmaps    map[string]domain.Roadmap // by course ID
	enrollments map[string]domain.Enrollment
	progress    map[string][]domain.NodeProgress // by enrollment ID, roadmap order
	logs        map[string][]domain.StudyLog     // by enrollment ID
	assessments map[string]domain.AssessmentSession
	plans       map[string]domain.StudyPlan
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses:     make(map[string]domain.Course),
		roadmaps:    make(map[string]domain.Roadmap),
		enrollments: make(map[string]domain.Enrollment),
		progress:    make(map[string][]domain.NodeProgress),
		logs:        make(map[string][]domain.StudyLog),
		assessments: make(map[string]domain.AssessmentSession),
		plans:       make(map[string]domain.StudyPlan),
	}
}

func (s *MemoryStore) CreateCourse(_ context.Context, c domain.Course) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.courses[c.ID]; ok {
		return domain.Course{}, apperr.Conflict("course %q already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.courses[c.ID] = c
	return c, nil
}

func (s *MemoryStore) UpsertCourse(_ context.Context, c domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.courses[c.ID]; ok && c.CreatedAt.IsZero() {
		c.CreatedAt = prev.CreatedAt
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.courses[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCourse(_ context.Context, id string) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return domain.Course{}, apperr.NotFound("course %q", id)
	}
	return c, nil
}

func (s *MemoryStore) ListCourses(_ context.Context, presetOnly bool) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		if presetOnly && !c.IsPreset {
			continue
		}
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool {
		return courses[i].Title < courses[j].Title
	})
	return courses, nil
}

func (s *MemoryStore) SaveRoadmap(_ context.Context, rm domain.Roadmap) (domain.Roadmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[rm.CourseID]; !ok {
		return domain.Roadmap{}, apperr.NotFound("course %q", rm.CourseID)
	}
	if rm.ID == "" {
		rm.ID = uuid.NewString()
	}
	rm.Nodes = cloneNodes(rm.Nodes)
	s.roadmaps[rm.CourseID] = rm
	return rm, nil
}

func (s *MemoryStore) GetRoadmap(_ context.Context, courseID string) (domain.Roadmap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rm, ok := s.roadmaps[courseID]
	if !ok {
		return domain.Roadmap{}, apperr.NotFound("roadmap for course %q", courseID)
	}
	rm.Nodes = cloneNodes(rm.Nodes)
	return rm, nil
}

func (s *MemoryStore) CreateEnrollment(_ context.Context, e domain.Enrollment) (domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.enrollments {
		if existing.LearnerID == e.LearnerID && existing.CourseID == e.CourseID {
			return domain.Enrollment{}, apperr.Conflict("learner %q is already enrolled in course %q", e.LearnerID, e.CourseID)
		}
	}

	e.ID = uuid.NewString()
	if e.Status == "" {
		e.Status = domain.EnrollmentActive
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.enrollments[e.ID] = e
	return e, nil
}

func (s *MemoryStore) GetEnrollment(_ context.Context, id string) (domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enrollments[id]
	if !ok {
		return domain.Enrollment{}, apperr.NotFound("enrollment %q", id)
	}
	return e, nil
}

func (s *MemoryStore) FindEnrollment(_ context.Context, learnerID, courseID string) (domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.enrollments {
		if e.LearnerID == learnerID && e.CourseID == courseID {
			return e, nil
		}
	}
	return domain.Enrollment{}, apperr.NotFound("enrollment of learner %q in course %q", learnerID, courseID)
}

func (s *MemoryStore) SetEnrollmentStatus(_ context.Context, id string, status domain.EnrollmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.enrollments[id]
	if !ok {
		return apperr.NotFound("enrollment %q", id)
	}
	e.Status = status
	s.enrollments[id] = e
	return nil
}

func (s *MemoryStore) DeleteEnrollment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enrollments[id]; !ok {
		return apperr.NotFound("enrollment %q", id)
	}
	delete(s.enrollments, id)
	delete(s.progress, id)
	delete(s.logs, id)
	maps.DeleteFunc(s.assessments, func(_ string, a domain.AssessmentSession) bool {
		return a.EnrollmentID == id
	})
	maps.DeleteFunc(s.plans, func(_ string, p domain.StudyPlan) bool {
		return p.EnrollmentID == id
	})
	return nil
}

func (s *MemoryStore) InsertNodeProgress(_ context.Context, enrollmentID string, rows []domain.NodeProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enrollments[enrollmentID]; !ok {
		return apperr.NotFound("enrollment %q", enrollmentID)
	}

	existing := s.progress[enrollmentID]
	seen := make(map[string]bool, len(existing)+len(rows))
	for _, p := range existing {
		seen[p.NodeID] = true
	}
	for _, r := range rows {
		if seen[r.NodeID] {
			return apperr.Conflict("progress for node %q in enrollment %q already exists", r.NodeID, enrollmentID)
		}
		seen[r.NodeID] = true
	}

	for _, r := range rows {
		r.EnrollmentID = enrollmentID
		existing = append(existing, cloneProgress(r))
	}
	s.progress[enrollmentID] = existing
	return nil
}

func (s *MemoryStore) GetNodeProgress(_ context.Context, enrollmentID, nodeID string) (domain.NodeProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.progress[enrollmentID] {
		if p.NodeID == nodeID {
			return cloneProgress(p), nil
		}
	}
	return domain.NodeProgress{}, apperr.NotFound("progress for node %q in enrollment %q", nodeID, enrollmentID)
}

func (s *MemoryStore) ListNodeProgress(_ context.Context, enrollmentID string) ([]domain.NodeProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.enrollments[enrollmentID]; !ok {
		return nil, apperr.NotFound("enrollment %q", enrollmentID)
	}
	rows := s.progress[enrollmentID]
	out := make([]domain.NodeProgress, len(rows))
	for i, p := range rows {
		out[i] = cloneProgress(p)
	}
	return out, nil
}

func (s *MemoryStore) SaveNodeProgress(_ context.Context, p domain.NodeProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.progress[p.EnrollmentID]
	for i := range rows {
		if rows[i].NodeID == p.NodeID {
			rows[i] = cloneProgress(p)
			return nil
		}
	}
	return apperr.NotFound("progress for node %q in enrollment %q", p.NodeID, p.EnrollmentID)
}

func (s *MemoryStore) AppendStudyLog(_ context.Context, l domain.StudyLog) (domain.StudyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enrollments[l.EnrollmentID]; !ok {
		return domain.StudyLog{}, apperr.NotFound("enrollment %q", l.EnrollmentID)
	}
	l.ID = uuid.NewString()
	l.Date = domain.Day(l.Date)
	l.NodeIDs = slices.Clone(l.NodeIDs)
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	s.logs[l.EnrollmentID] = append(s.logs[l.EnrollmentID], l)
	return l, nil
}

func (s *MemoryStore) ListStudyLogs(_ context.Context, enrollmentID string, q LogQuery) ([]domain.StudyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.enrollments[enrollmentID]; !ok {
		return nil, apperr.NotFound("enrollment %q", enrollmentID)
	}

	var out []domain.StudyLog
	for _, l := range s.logs[enrollmentID] {
		if !q.From.IsZero() && l.Date.Before(domain.Day(q.From)) {
			continue
		}
		if !q.To.IsZero() && l.Date.After(domain.Day(q.To)) {
			continue
		}
		l.NodeIDs = slices.Clone(l.NodeIDs)
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateAssessment(_ context.Context, a domain.AssessmentSession) (domain.AssessmentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enrollments[a.EnrollmentID]; !ok {
		return domain.AssessmentSession{}, apperr.NotFound("enrollment %q", a.EnrollmentID)
	}
	a.ID = uuid.NewString()
	a.Completed = false
	a.Answers = nil
	a.Score = nil
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.assessments[a.ID] = a
	return a, nil
}

func (s *MemoryStore) GetAssessment(_ context.Context, id string) (domain.AssessmentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[id]
	if !ok {
		return domain.AssessmentSession{}, apperr.NotFound("assessment %q", id)
	}
	a.NodeIDs = slices.Clone(a.NodeIDs)
	a.Questions = slices.Clone(a.Questions)
	for i := range a.Questions {
		a.Questions[i].Options = slices.Clone(a.Questions[i].Options)
	}
	a.Answers = cloneAnswers(a.Answers)
	if a.Score != nil {
		score := *a.Score
		a.Score = &score
	}
	return a, nil
}

func cloneAnswers(answers []domain.Answer) []domain.Answer {
	if answers == nil {
		return nil
	}
	out := make([]domain.Answer, len(answers))
	for i, a := range answers {
		a.Values = slices.Clone(a.Values)
		out[i] = a
	}
	return out
}

func (s *MemoryStore) CompleteAssessment(_ context.Context, id string, answers []domain.Answer, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assessments[id]
	if !ok {
		return apperr.NotFound("assessment %q", id)
	}
	if a.Completed {
		return apperr.Conflict("assessment %q already completed", id)
	}
	a.Answers = cloneAnswers(answers)
	a.Score = &score
	a.Completed = true
	s.assessments[id] = a
	return nil
}

func (s *MemoryStore) ReopenAssessment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assessments[id]
	if !ok {
		return apperr.NotFound("assessment %q", id)
	}
	a.Answers = nil
	a.Score = nil
	a.Completed = false
	s.assessments[id] = a
	return nil
}

func (s *MemoryStore) CreateStudyPlan(_ context.Context, p domain.StudyPlan) (domain.StudyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enrollments[p.EnrollmentID]; !ok {
		return domain.StudyPlan{}, apperr.NotFound("enrollment %q", p.EnrollmentID)
	}
	p.ID = uuid.NewString()
	p.Progress = map[string]domain.DayProgress{}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.plans[p.ID] = p
	return p, nil
}

func (s *MemoryStore) GetStudyPlan(_ context.Context, id string) (domain.StudyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return domain.StudyPlan{}, apperr.NotFound("study plan %q", id)
	}
	p.Progress = maps.Clone(p.Progress)
	return p, nil
}

func (s *MemoryStore) SetStudyPlanDay(_ context.Context, id, dayKey string, progress domain.DayProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return apperr.NotFound("study plan %q", id)
	}
	updated := maps.Clone(p.Progress)
	if updated == nil {
		updated = map[string]domain.DayProgress{}
	}
	updated[dayKey] = progress
	p.Progress = updated
	s.plans[id] = p
	return nil
}

func cloneProgress(p domain.NodeProgress) domain.NodeProgress {
	if p.LastAssessed != nil {
		t := *p.LastAssessed
		p.LastAssessed = &t
	}
	return p
}

func cloneNodes(nodes []domain.Node) []domain.Node {
	out := make([]domain.Node, len(nodes))
	for i, n := range nodes {
		n.Prerequisites = slices.Clone(n.Prerequisites)
		out[i] = n
	}
	return out
}
