package assessment_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/assessment"
	"github.com/p-n-ai/lightup/internal/domain"
)

func at(day int) *time.Time {
	t := time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC)
	return &t
}

func TestSelectNodes(t *testing.T) {
	tests := []struct {
		name  string
		rows  []domain.NodeProgress
		limit int
		want  []string
	}{
		{
			name: "next before completed",
			rows: []domain.NodeProgress{
				{NodeID: "done", Status: domain.StatusCompleted, MasteryScore: 10},
				{NodeID: "open", Status: domain.StatusNext, MasteryScore: 80},
			},
			want: []string{"open", "done"},
		},
		{
			name: "oldest assessment first",
			rows: []domain.NodeProgress{
				{NodeID: "recent", Status: domain.StatusCompleted, MasteryScore: 10, LastAssessed: at(9)},
				{NodeID: "old", Status: domain.StatusCompleted, MasteryScore: 95, LastAssessed: at(2)},
			},
			want: []string{"old", "recent"},
		},
		{
			name: "never assessed compares by mastery",
			rows: []domain.NodeProgress{
				{NodeID: "assessed", Status: domain.StatusNext, MasteryScore: 60, LastAssessed: at(1)},
				{NodeID: "fresh", Status: domain.StatusNext, MasteryScore: 0},
			},
			want: []string{"fresh", "assessed"},
		},
		{
			name: "needs review only below passing score",
			rows: []domain.NodeProgress{
				{NodeID: "weak", Status: domain.StatusNeedsReview, MasteryScore: 40},
				{NodeID: "borderline", Status: domain.StatusNeedsReview, MasteryScore: 70},
				{NodeID: "locked", Status: domain.StatusNotStarted},
			},
			want: []string{"weak"},
		},
		{
			name: "at most limit",
			rows: []domain.NodeProgress{
				{NodeID: "n1", Status: domain.StatusNext, MasteryScore: 1},
				{NodeID: "n2", Status: domain.StatusNext, MasteryScore: 2},
				{NodeID: "n3", Status: domain.StatusNext, MasteryScore: 3},
				{NodeID: "n4", Status: domain.StatusNext, MasteryScore: 4},
				{NodeID: "n5", Status: domain.StatusNext, MasteryScore: 5},
				{NodeID: "n6", Status: domain.StatusNext, MasteryScore: 6},
			},
			want: []string{"n1", "n2", "n3", "n4", "n5"},
		},
		{
			name: "custom limit",
			rows: []domain.NodeProgress{
				{NodeID: "n1", Status: domain.StatusNext, MasteryScore: 1},
				{NodeID: "n2", Status: domain.StatusNext, MasteryScore: 2},
			},
			limit: 1,
			want:  []string{"n1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assessment.SelectNodes(tt.rows, tt.limit)
			if err != nil {
				t.Fatalf("SelectNodes() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("SelectNodes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectNodes_NoneEligible(t *testing.T) {
	rows := []domain.NodeProgress{
		{NodeID: "a", Status: domain.StatusNotStarted},
		{NodeID: "b", Status: domain.StatusNeedsReview, MasteryScore: 85},
	}
	ids, err := assessment.SelectNodes(rows, 0)
	if !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("SelectNodes() error = %v, want invalid request", err)
	}
	if ids != nil {
		t.Errorf("SelectNodes() = %v, want nil", ids)
	}

	if _, err := assessment.SelectNodes(nil, 5); !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Errorf("SelectNodes(nil) error = %v, want invalid request", err)
	}
}
