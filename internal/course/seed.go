package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/roadmap"
)

// SeedPresets upserts every preset course from l and stores its roadmap
// unless the course already has one. Stored roadmaps are never replaced,
// so running it on every start is safe.
func (s *Service) SeedPresets(ctx context.Context, l *roadmap.Loader) (int, error) {
	created := 0
	for _, p := range l.All() {
		if err := s.store.UpsertCourse(ctx, p.Course()); err != nil {
			return created, fmt.Errorf("upsert preset course %s: %w", p.ID, err)
		}

		_, err := s.store.GetRoadmap(ctx, p.ID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, apperr.ErrNotFound):
			return created, fmt.Errorf("get preset roadmap %s: %w", p.ID, err)
		}

		if _, err := s.store.SaveRoadmap(ctx, p.RoadmapData()); err != nil {
			return created, fmt.Errorf("save preset roadmap %s: %w", p.ID, err)
		}
		created++
	}
	slog.Info("preset courses seeded", "courses", len(l.All()), "new_roadmaps", created)
	return created, nil
}
