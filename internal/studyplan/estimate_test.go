package studyplan_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/studyplan"
)

func TestEstimate(t *testing.T) {
	nodes := []domain.Node{
		{ID: "a", EstimatedHours: 10},
		{ID: "b", EstimatedHours: 10},
		{ID: "c", EstimatedHours: 10},
		{ID: "d", EstimatedHours: 10},
		{ID: "e", EstimatedHours: 5},
	}

	tests := []struct {
		name       string
		rows       []domain.NodeProgress
		dailyHours float64
		want       studyplan.Estimation
	}{
		{
			name: "nothing started",
			rows: nil,
			// 45h * 0.8 = 36h over 1.6h effective days.
			dailyHours: 2,
			want: studyplan.Estimation{
				TotalRemainingHours: 36,
				NewLearningHours:    36,
				EstimatedDays:       23,
				RemainingNodes:      5,
			},
		},
		{
			name: "mixed statuses",
			rows: []domain.NodeProgress{
				{NodeID: "a", Status: domain.StatusCompleted},
				{NodeID: "b", Status: domain.StatusNext},
				{NodeID: "c", Status: domain.StatusNeedsReview},
				{NodeID: "d", Status: domain.StatusNotStarted},
			},
			// learning 7+10+5 = 22, review 3, total (25)*0.8 = 20.
			dailyHours: 1,
			want: studyplan.Estimation{
				TotalRemainingHours: 20,
				NewLearningHours:    17.6,
				ReviewHours:         3,
				EstimatedDays:       26,
				CompletedNodes:      1,
				RemainingNodes:      4,
			},
		},
		{
			name: "everything completed",
			rows: []domain.NodeProgress{
				{NodeID: "a", Status: domain.StatusCompleted},
				{NodeID: "b", Status: domain.StatusCompleted},
				{NodeID: "c", Status: domain.StatusCompleted},
				{NodeID: "d", Status: domain.StatusCompleted},
				{NodeID: "e", Status: domain.StatusCompleted},
			},
			dailyHours: 3,
			want:       studyplan.Estimation{EstimatedDays: 1, CompletedNodes: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := studyplan.Estimate(nodes, tt.rows, tt.dailyHours)
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Estimate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEstimate_InvalidHours(t *testing.T) {
	if _, err := studyplan.Estimate(nil, nil, 0); !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Errorf("Estimate() error = %v, want invalid request", err)
	}
}
