package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
    id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    is_preset   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS roadmaps (
    id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    course_id  TEXT NOT NULL UNIQUE REFERENCES courses(id) ON DELETE CASCADE,
    title      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS knowledge_nodes (
    course_id       TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    id              TEXT NOT NULL,
    position        INT NOT NULL,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    estimated_hours DOUBLE PRECISION NOT NULL,
    prerequisites   TEXT[] NOT NULL DEFAULT '{}',
    pos_x           DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y           DOUBLE PRECISION NOT NULL DEFAULT 0,
    PRIMARY KEY (course_id, id)
);

CREATE TABLE IF NOT EXISTS enrollments (
    id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    learner_id TEXT NOT NULL,
    course_id  TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    status     TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (learner_id, course_id)
);

CREATE TABLE IF NOT EXISTS node_progress (
    enrollment_id      TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    node_id            TEXT NOT NULL,
    position           INT NOT NULL,
    status             TEXT NOT NULL,
    mastery_score      INT NOT NULL DEFAULT 0,
    study_time_minutes INT NOT NULL DEFAULT 0,
    last_assessed      TIMESTAMPTZ,
    PRIMARY KEY (enrollment_id, node_id)
);

CREATE TABLE IF NOT EXISTS study_logs (
    id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    enrollment_id   TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    date            DATE NOT NULL,
    activity_type   TEXT NOT NULL,
    node_ids        TEXT[] NOT NULL DEFAULT '{}',
    minutes_studied INT NOT NULL,
    notes           TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_study_logs_enrollment_date ON study_logs (enrollment_id, date DESC);

CREATE TABLE IF NOT EXISTS assessment_sessions (
    id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    node_ids      TEXT[] NOT NULL,
    questions     JSONB NOT NULL DEFAULT '[]',
    answers       JSONB,
    score         INT,
    completed     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS study_plans (
    id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    target_days   INT NOT NULL,
    daily_hours   DOUBLE PRECISION NOT NULL,
    schedule      JSONB NOT NULL DEFAULT '[]',
    summary       JSONB NOT NULL DEFAULT '{}',
    preferences   JSONB NOT NULL DEFAULT '{}',
    progress      JSONB NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS progress_events (
    id            BIGSERIAL PRIMARY KEY,
    enrollment_id TEXT NOT NULL,
    event_type    TEXT NOT NULL,
    data          JSONB NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_progress_events_enrollment ON progress_events (enrollment_id, created_at);
`

// Migrate creates any missing tables. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
