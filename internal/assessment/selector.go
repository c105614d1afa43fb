// Package assessment selects the nodes a quiz covers, persists generated
// sessions and applies evaluated results to an enrollment's progress.
package assessment

import (
	"cmp"
	"slices"

	"github.com/p-n-ai/lightup/internal/apperr"
	"github.com/p-n-ai/lightup/internal/domain"
	"github.com/p-n-ai/lightup/internal/progress"
)

// DefaultLimit is the number of nodes picked when the caller names none.
const DefaultLimit = 5

// Eligible reports whether a node can be put in front of the learner again.
func Eligible(p domain.NodeProgress) bool {
	switch p.Status {
	case domain.StatusNext, domain.StatusCompleted:
		return true
	case domain.StatusNeedsReview:
		return p.MasteryScore < progress.PassingScore
	default:
		return false
	}
}

// SelectNodes picks up to limit node ids for a quiz. Unlocked nodes come
// first. Within the same group nodes assessed longest ago come first; when
// either side was never assessed the lower mastery score wins.
func SelectNodes(rows []domain.NodeProgress, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := make([]domain.NodeProgress, 0, len(rows))
	for _, p := range rows {
		if Eligible(p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, apperr.Invalid("no nodes available for assessment")
	}

	slices.SortStableFunc(candidates, compareCandidates)

	ids := make([]string, 0, min(limit, len(candidates)))
	for _, p := range candidates[:min(limit, len(candidates))] {
		ids = append(ids, p.NodeID)
	}
	return ids, nil
}

func compareCandidates(a, b domain.NodeProgress) int {
	aNext, bNext := a.Status == domain.StatusNext, b.Status == domain.StatusNext
	switch {
	case aNext && !bNext:
		return -1
	case bNext && !aNext:
		return 1
	}
	if a.LastAssessed != nil && b.LastAssessed != nil {
		return a.LastAssessed.Compare(*b.LastAssessed)
	}
	return cmp.Compare(a.MasteryScore, b.MasteryScore)
}
