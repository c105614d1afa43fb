package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
)

const dbTimeout = 5 * time.Second

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore is a PostgreSQL-backed Store. The schema is created by
// database.DB.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO courses (id, title, description, category, is_preset)
		 VALUES (COALESCE($1, gen_random_uuid()::text), $2, $3, $4, $5)
		 RETURNING id, created_at`,
		nullIfEmpty(c.ID), c.Title, c.Description, c.Category, c.IsPreset,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return domain.Course{}, mapError(err, "create course")
	}
	return c, nil
}

func (s *PostgresStore) UpsertCourse(ctx context.Context, c domain.Course) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO courses (id, title, description, category, is_preset)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     category = EXCLUDED.category,
		     is_preset = EXCLUDED.is_preset`,
		c.ID, c.Title, c.Description, c.Category, c.IsPreset,
	)
	if err != nil {
		return mapError(err, "upsert course")
	}
	return nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c domain.Course
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, category, is_preset, created_at
		 FROM courses WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.IsPreset, &c.CreatedAt)
	if err != nil {
		return domain.Course{}, mapError(err, fmt.Sprintf("course %q", id))
	}
	return c, nil
}

func (s *PostgresStore) ListCourses(ctx context.Context, presetOnly bool) ([]domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, category, is_preset, created_at
		 FROM courses
		 WHERE NOT $1 OR is_preset
		 ORDER BY title`,
		presetOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.IsPreset, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}

func (s *PostgresStore) SaveRoadmap(ctx context.Context, rm domain.Roadmap) (domain.Roadmap, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Roadmap{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx,
		`INSERT INTO roadmaps (course_id, title)
		 VALUES ($1, $2)
		 ON CONFLICT (course_id) DO UPDATE SET title = EXCLUDED.title
		 RETURNING id`,
		rm.CourseID, rm.Title,
	).Scan(&rm.ID)
	if err != nil {
		return domain.Roadmap{}, mapError(err, fmt.Sprintf("save roadmap for course %q", rm.CourseID))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM knowledge_nodes WHERE course_id = $1`, rm.CourseID); err != nil {
		return domain.Roadmap{}, fmt.Errorf("clear nodes: %w", err)
	}

	batch := &pgx.Batch{}
	for i, n := range rm.Nodes {
		prereqs := n.Prerequisites
		if prereqs == nil {
			prereqs = []string{}
		}
		batch.Queue(
			`INSERT INTO knowledge_nodes
			   (course_id, id, position, title, description, estimated_hours, prerequisites, pos_x, pos_y)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rm.CourseID, n.ID, i, n.Title, n.Description, n.EstimatedHours, prereqs, n.Position.X, n.Position.Y,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Roadmap{}, mapError(err, "insert nodes")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Roadmap{}, fmt.Errorf("commit roadmap: %w", err)
	}
	return rm, nil
}

func (s *PostgresStore) GetRoadmap(ctx context.Context, courseID string) (domain.Roadmap, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rm := domain.Roadmap{CourseID: courseID}
	err := s.pool.QueryRow(ctx,
		`SELECT id, title FROM roadmaps WHERE course_id = $1`,
		courseID,
	).Scan(&rm.ID, &rm.Title)
	if err != nil {
		return domain.Roadmap{}, mapError(err, fmt.Sprintf("roadmap for course %q", courseID))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, estimated_hours, prerequisites, pos_x, pos_y
		 FROM knowledge_nodes
		 WHERE course_id = $1
		 ORDER BY position`,
		courseID,
	)
	if err != nil {
		return domain.Roadmap{}, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n domain.Node
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.EstimatedHours, &n.Prerequisites, &n.Position.X, &n.Position.Y); err != nil {
			return domain.Roadmap{}, fmt.Errorf("scan node: %w", err)
		}
		rm.Nodes = append(rm.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return domain.Roadmap{}, fmt.Errorf("iterate nodes: %w", err)
	}
	return rm, nil
}

func (s *PostgresStore) CreateEnrollment(ctx context.Context, e domain.Enrollment) (domain.Enrollment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if e.Status == "" {
		e.Status = domain.EnrollmentActive
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO enrollments (learner_id, course_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		e.LearnerID, e.CourseID, string(e.Status),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return domain.Enrollment{}, mapError(err, fmt.Sprintf("enroll learner %q in course %q", e.LearnerID, e.CourseID))
	}
	return e, nil
}

func (s *PostgresStore) GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error) {
	return s.queryEnrollment(ctx, fmt.Sprintf("enrollment %q", id),
		`SELECT id, learner_id, course_id, status, created_at FROM enrollments WHERE id = $1`,
		id,
	)
}

func (s *PostgresStore) FindEnrollment(ctx context.Context, learnerID, courseID string) (domain.Enrollment, error) {
	return s.queryEnrollment(ctx, fmt.Sprintf("enrollment of learner %q in course %q", learnerID, courseID),
		`SELECT id, learner_id, course_id, status, created_at
		 FROM enrollments WHERE learner_id = $1 AND course_id = $2`,
		learnerID, courseID,
	)
}

func (s *PostgresStore) queryEnrollment(ctx context.Context, what, query string, args ...any) (domain.Enrollment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var e domain.Enrollment
	var status string
	err := s.pool.QueryRow(ctx, query, args...).Scan(&e.ID, &e.LearnerID, &e.CourseID, &status, &e.CreatedAt)
	if err != nil {
		return domain.Enrollment{}, mapError(err, what)
	}
	e.Status = domain.EnrollmentStatus(status)
	return e, nil
}

func (s *PostgresStore) SetEnrollmentStatus(ctx context.Context, id string, status domain.EnrollmentStatus) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE enrollments SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("set enrollment status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("enrollment %q", id)
	}
	return nil
}

func (s *PostgresStore) DeleteEnrollment(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("enrollment %q", id)
	}
	return nil
}

func (s *PostgresStore) InsertNodeProgress(ctx context.Context, enrollmentID string, rows []domain.NodeProgress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var offset int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM node_progress WHERE enrollment_id = $1`,
		enrollmentID,
	).Scan(&offset); err != nil {
		return fmt.Errorf("count progress: %w", err)
	}

	batch := &pgx.Batch{}
	for i, r := range rows {
		batch.Queue(
			`INSERT INTO node_progress
			   (enrollment_id, node_id, position, status, mastery_score, study_time_minutes, last_assessed)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			enrollmentID, r.NodeID, offset+i, string(r.Status), r.MasteryScore, r.StudyTimeMinutes, r.LastAssessed,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err, fmt.Sprintf("insert progress for enrollment %q", enrollmentID))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNodeProgress(ctx context.Context, enrollmentID, nodeID string) (domain.NodeProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProgress(s.pool.QueryRow(ctx,
		`SELECT enrollment_id, node_id, status, mastery_score, study_time_minutes, last_assessed
		 FROM node_progress WHERE enrollment_id = $1 AND node_id = $2`,
		enrollmentID, nodeID,
	))
	if err != nil {
		return domain.NodeProgress{}, mapError(err, fmt.Sprintf("progress for node %q in enrollment %q", nodeID, enrollmentID))
	}
	return p, nil
}

func (s *PostgresStore) ListNodeProgress(ctx context.Context, enrollmentID string) ([]domain.NodeProgress, error) {
	if _, err := s.GetEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT enrollment_id, node_id, status, mastery_score, study_time_minutes, last_assessed
		 FROM node_progress WHERE enrollment_id = $1
		 ORDER BY position`,
		enrollmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []domain.NodeProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveNodeProgress(ctx context.Context, p domain.NodeProgress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE node_progress
		 SET status = $3, mastery_score = $4, study_time_minutes = $5, last_assessed = $6
		 WHERE enrollment_id = $1 AND node_id = $2`,
		p.EnrollmentID, p.NodeID, string(p.Status), p.MasteryScore, p.StudyTimeMinutes, p.LastAssessed,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("progress for node %q in enrollment %q", p.NodeID, p.EnrollmentID)
	}
	return nil
}

func (s *PostgresStore) AppendStudyLog(ctx context.Context, l domain.StudyLog) (domain.StudyLog, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	l.Date = domain.Day(l.Date)
	nodeIDs := l.NodeIDs
	if nodeIDs == nil {
		nodeIDs = []string{}
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO study_logs (enrollment_id, date, activity_type, node_ids, minutes_studied, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		l.EnrollmentID, l.Date, string(l.ActivityType), nodeIDs, l.MinutesStudied, l.Notes,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return domain.StudyLog{}, mapError(err, fmt.Sprintf("append study log to enrollment %q", l.EnrollmentID))
	}
	return l, nil
}

func (s *PostgresStore) ListStudyLogs(ctx context.Context, enrollmentID string, q LogQuery) ([]domain.StudyLog, error) {
	if _, err := s.GetEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var from, to, limit any
	if !q.From.IsZero() {
		from = domain.Day(q.From)
	}
	if !q.To.IsZero() {
		to = domain.Day(q.To)
	}
	if q.Limit > 0 {
		limit = q.Limit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, enrollment_id, date, activity_type, node_ids, minutes_studied, notes, created_at
		 FROM study_logs
		 WHERE enrollment_id = $1
		   AND ($2::date IS NULL OR date >= $2::date)
		   AND ($3::date IS NULL OR date <= $3::date)
		 ORDER BY date DESC, created_at DESC
		 LIMIT $4`,
		enrollmentID, from, to, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query study logs: %w", err)
	}
	defer rows.Close()

	var out []domain.StudyLog
	for rows.Next() {
		var l domain.StudyLog
		var activity string
		if err := rows.Scan(&l.ID, &l.EnrollmentID, &l.Date, &activity, &l.NodeIDs, &l.MinutesStudied, &l.Notes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan study log: %w", err)
		}
		l.ActivityType = domain.ActivityType(activity)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study logs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateAssessment(ctx context.Context, a domain.AssessmentSession) (domain.AssessmentSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	questions, err := json.Marshal(a.Questions)
	if err != nil {
		return domain.AssessmentSession{}, fmt.Errorf("marshal questions: %w", err)
	}

	a.Answers = nil
	a.Score = nil
	a.Completed = false
	err = s.pool.QueryRow(ctx,
		`INSERT INTO assessment_sessions (enrollment_id, node_ids, questions)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		a.EnrollmentID, a.NodeIDs, questions,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return domain.AssessmentSession{}, mapError(err, fmt.Sprintf("create assessment for enrollment %q", a.EnrollmentID))
	}
	return a, nil
}

func (s *PostgresStore) GetAssessment(ctx context.Context, id string) (domain.AssessmentSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a domain.AssessmentSession
	var questions, answers []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, enrollment_id, node_ids, questions, answers, score, completed, created_at
		 FROM assessment_sessions WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.EnrollmentID, &a.NodeIDs, &questions, &answers, &a.Score, &a.Completed, &a.CreatedAt)
	if err != nil {
		return domain.AssessmentSession{}, mapError(err, fmt.Sprintf("assessment %q", id))
	}

	if err := json.Unmarshal(questions, &a.Questions); err != nil {
		return domain.AssessmentSession{}, fmt.Errorf("decode questions: %w", err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return domain.AssessmentSession{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	return a, nil
}

func (s *PostgresStore) CompleteAssessment(ctx context.Context, id string, answers []domain.Answer, score int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET answers = $2, score = $3, completed = TRUE
		 WHERE id = $1 AND NOT completed`,
		id, data, score,
	)
	if err != nil {
		return fmt.Errorf("complete assessment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a missing session from one that was already completed.
		if _, err := s.GetAssessment(ctx, id); err != nil {
			return err
		}
		return apperr.Conflict("assessment %q already completed", id)
	}
	return nil
}

func (s *PostgresStore) ReopenAssessment(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET answers = NULL, score = NULL, completed = FALSE
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reopen assessment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("assessment %q", id)
	}
	return nil
}

func (s *PostgresStore) CreateStudyPlan(ctx context.Context, p domain.StudyPlan) (domain.StudyPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	schedule, err := json.Marshal(p.Schedule)
	if err != nil {
		return domain.StudyPlan{}, fmt.Errorf("marshal schedule: %w", err)
	}
	summary, err := json.Marshal(p.Summary)
	if err != nil {
		return domain.StudyPlan{}, fmt.Errorf("marshal summary: %w", err)
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return domain.StudyPlan{}, fmt.Errorf("marshal preferences: %w", err)
	}

	p.Progress = map[string]domain.DayProgress{}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO study_plans (enrollment_id, target_days, daily_hours, schedule, summary, preferences)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		p.EnrollmentID, p.TargetDays, p.DailyHours, schedule, summary, prefs,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return domain.StudyPlan{}, mapError(err, fmt.Sprintf("create study plan for enrollment %q", p.EnrollmentID))
	}
	return p, nil
}

func (s *PostgresStore) GetStudyPlan(ctx context.Context, id string) (domain.StudyPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var p domain.StudyPlan
	var schedule, summary, prefs, progress []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, enrollment_id, target_days, daily_hours, schedule, summary, preferences, progress, created_at
		 FROM study_plans WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.EnrollmentID, &p.TargetDays, &p.DailyHours, &schedule, &summary, &prefs, &progress, &p.CreatedAt)
	if err != nil {
		return domain.StudyPlan{}, mapError(err, fmt.Sprintf("study plan %q", id))
	}

	for _, f := range []struct {
		name string
		data []byte
		dst  any
	}{
		{"schedule", schedule, &p.Schedule},
		{"summary", summary, &p.Summary},
		{"preferences", prefs, &p.Preferences},
		{"progress", progress, &p.Progress},
	} {
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return domain.StudyPlan{}, fmt.Errorf("decode %s: %w", f.name, err)
		}
	}
	return p, nil
}

func (s *PostgresStore) SetStudyPlanDay(ctx context.Context, id, dayKey string, progress domain.DayProgress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal day progress: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE study_plans
		 SET progress = jsonb_set(COALESCE(progress, '{}'::jsonb), ARRAY[$2::text], $3::jsonb, true)
		 WHERE id = $1`,
		id, dayKey, data,
	)
	if err != nil {
		return fmt.Errorf("set study plan day: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("study plan %q", id)
	}
	return nil
}

func scanProgress(row pgx.Row) (domain.NodeProgress, error) {
	var p domain.NodeProgress
	var status string
	if err := row.Scan(&p.EnrollmentID, &p.NodeID, &status, &p.MasteryScore, &p.StudyTimeMinutes, &p.LastAssessed); err != nil {
		return domain.NodeProgress{}, err
	}
	p.Status = domain.Status(status)
	return p, nil
}

// mapError translates driver errors into apperr kinds.
func mapError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("%s", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict("%s: already exists", what)
		case pgForeignKeyViolation:
			return apperr.NotFound("%s: referenced record", what)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
