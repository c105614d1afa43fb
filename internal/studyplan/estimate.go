package studyplan

import (
	"math"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
)

// Fractions of a node's estimated hours still owed by status.
const (
	nextRemaining   = 0.7
	reviewRemaining = 0.3
	efficiency      = 0.8
)

// Estimation is the remaining effort of an enrollment.
type Estimation struct {
	TotalRemainingHours float64 `json:"totalRemainingHours"`
	NewLearningHours    float64 `json:"newLearningHours"`
	ReviewHours         float64 `json:"reviewHours"`
	EstimatedDays       int     `json:"estimatedDays"`
	CompletedNodes      int     `json:"completedNodes"`
	RemainingNodes      int     `json:"remainingNodes"`
}

// Estimate projects how many days of dailyHours study the remaining nodes
// need. Nodes without a progress row count as not started.
func Estimate(nodes []domain.Node, rows []domain.NodeProgress, dailyHours float64) (Estimation, error) {
	if dailyHours <= 0 {
		return Estimation{}, apperr.Invalid("daily hours must be positive, got %g", dailyHours)
	}

	status := make(map[string]domain.Status, len(rows))
	for _, p := range rows {
		status[p.NodeID] = p.Status
	}

	var learning, review float64
	var est Estimation
	for _, n := range nodes {
		switch status[n.ID] {
		case domain.StatusNext:
			learning += n.EstimatedHours * nextRemaining
		case domain.StatusNeedsReview:
			review += n.EstimatedHours * reviewRemaining
		case domain.StatusCompleted:
			est.CompletedNodes++
		default:
			learning += n.EstimatedHours
		}
	}

	total := (learning + review) * efficiency
	est.TotalRemainingHours = round2(total)
	est.NewLearningHours = round2(learning * efficiency)
	est.ReviewHours = round2(review)
	est.EstimatedDays = int(total/(dailyHours*efficiency)) + 1
	est.RemainingNodes = len(nodes) - est.CompletedNodes
	return est, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
