package tasks

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/repositories"
	"github.com/desertthunder/trx/internal/shared"
)

// Resolver maps recommendation candidates onto catalog tracks.
//
// Title candidates are resolved through a fixed sequence of lookup stages,
// from exact match to normalized title without artist scope. The first stage
// that finds a row wins; a miss at one stage falls through to the next, while
// any other database error aborts the whole resolution.
type Resolver struct {
	tracks *repositories.TrackRepository
	logger *log.Logger
}

// NewResolver creates a resolver over the catalog track repository.
func NewResolver(tracks *repositories.TrackRepository, logger *log.Logger) *Resolver {
	return &Resolver{tracks: tracks, logger: logger}
}

// Resolve maps a candidate to a catalog track.
//
// An id candidate is authoritative: the track either exists under that id or
// the candidate fails with [shared.ErrTrackNotFound]. A title candidate that
// exhausts every lookup stage fails with [shared.ErrNotFound].
func (r *Resolver) Resolve(c models.Candidate) (*models.Track, error) {
	if c.Kind == models.CandidateByID {
		track, err := r.tracks.Get(c.TrackID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", c.Label(), err)
		}
		return track, nil
	}

	if c.Title == "" {
		return nil, fmt.Errorf("%w: candidate title is empty", shared.ErrInvalidInput)
	}

	type stage struct {
		name   string
		lookup func() (*models.Track, error)
	}

	normTitle := shared.Normalize(c.Title)
	stages := []stage{
		{"exact", func() (*models.Track, error) { return r.tracks.FindByTitle(c.Title, c.Artist) }},
		{"normalized", func() (*models.Track, error) { return r.tracks.FindByNormalizedTitle(normTitle, c.Artist) }},
	}

	// artist-scoped retries only make sense when the candidate names an
	// artist; without one the normalized stage is already title-only
	if c.Artist != "" {
		stages = append(stages,
			stage{"normalized artist", func() (*models.Track, error) {
				return r.tracks.FindByNormalizedTitleAndArtist(normTitle, shared.Normalize(c.Artist))
			}},
			stage{"title only", func() (*models.Track, error) { return r.tracks.FindByNormalizedTitle(normTitle, "") }},
		)
	}

	for _, stage := range stages {
		track, err := stage.lookup()
		if errors.Is(err, shared.ErrTrackNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", c.Label(), err)
		}

		r.logger.Debug("resolved candidate", "candidate", c.Label(), "stage", stage.name, "track_id", track.ID)
		return track, nil
	}

	return nil, fmt.Errorf("%s: %w", c.Label(), shared.ErrNotFound)
}
