package tasks

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/shared"
)

// ReconcileResult is the outcome of reconciling a recommendation list against
// the catalog. Both slices are always non-nil.
type ReconcileResult struct {
	Tracks    []models.Track
	Unmatched []string
}

// Reconciler turns an ordered list of recommendation candidates into a
// deduplicated list of catalog tracks.
type Reconciler struct {
	resolver *Resolver
	logger   *log.Logger
}

// NewReconciler creates a reconciler over the given resolver.
func NewReconciler(resolver *Resolver, logger *log.Logger) *Reconciler {
	return &Reconciler{resolver: resolver, logger: logger}
}

// Reconcile resolves candidates in order until limit tracks are collected.
//
// Duplicates keep their first occurrence. Candidates that fail to resolve are
// recorded in Unmatched and never abort the run. When avoidExplicit is set,
// explicit tracks are silently skipped; they are neither matched nor
// unmatched.
func (r *Reconciler) Reconcile(candidates []models.Candidate, limit int, avoidExplicit bool) (*ReconcileResult, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be non-negative", shared.ErrInvalidInput)
	}

	result := &ReconcileResult{
		Tracks:    []models.Track{},
		Unmatched: []string{},
	}
	seen := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		if len(result.Tracks) >= limit {
			break
		}

		key := candidateKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true

		track, err := r.resolver.Resolve(c)
		if err != nil {
			r.logger.Debug("candidate unmatched", "candidate", c.Label(), "error", err)
			result.Unmatched = append(result.Unmatched, c.Label())
			continue
		}

		if avoidExplicit && track.Explicit {
			continue
		}

		result.Tracks = append(result.Tracks, *track)
	}

	return result, nil
}

// candidateKey dedupes candidates. Title candidates collapse on normalized
// title so spelling variants of one song count once; id candidates collapse
// on the id itself.
func candidateKey(c models.Candidate) string {
	if c.Kind == models.CandidateByID {
		return fmt.Sprintf("id:%d", c.TrackID)
	}
	return shared.Normalize(c.Title)
}
