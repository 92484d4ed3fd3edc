package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/repositories"
	"github.com/desertthunder/trx/internal/services"
	"github.com/desertthunder/trx/internal/shared"
	"golang.org/x/time/rate"
)

// SyncOpts tunes the engine's batching and platform limits.
type SyncOpts struct {
	BatchSize        int
	MaxRetries       int
	TitleLimit       int
	DescriptionLimit int
	CoverGraceDelay  time.Duration
}

// DefaultSyncOpts returns Spotify-shaped defaults.
func DefaultSyncOpts() SyncOpts {
	return SyncOpts{
		BatchSize:        100,
		MaxRetries:       3,
		TitleLimit:       100,
		DescriptionLimit: 300,
		CoverGraceDelay:  3 * time.Second,
	}
}

// PushResult summarizes a PushTracks run.
type PushResult struct {
	Added    int
	Unmapped []int64
	Batches  int
}

// SyncEngine mirrors local playlist state onto the external platform.
//
// Local database state is the source of truth. Engine operations never roll
// back local mutations when the remote side fails; the remote is re-synced
// on a later run instead.
type SyncEngine struct {
	platform    services.Platform
	playlists   *repositories.PlaylistRepository
	platformIDs *repositories.PlatformIDRepository
	cache       *SnapshotCache
	limiter     *rate.Limiter
	covers      *CoverPipeline
	logger      *log.Logger
	opts        SyncOpts
}

// NewSyncEngine wires the engine. limiter paces batch submissions and may be
// nil to disable pacing; covers may be nil when no blob store is configured.
func NewSyncEngine(
	platform services.Platform,
	playlists *repositories.PlaylistRepository,
	platformIDs *repositories.PlatformIDRepository,
	cache *SnapshotCache,
	limiter *rate.Limiter,
	covers *CoverPipeline,
	logger *log.Logger,
	opts SyncOpts,
) *SyncEngine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.TitleLimit <= 0 {
		opts.TitleLimit = 100
	}
	if opts.DescriptionLimit <= 0 {
		opts.DescriptionLimit = 300
	}
	return &SyncEngine{
		platform:    platform,
		playlists:   playlists,
		platformIDs: platformIDs,
		cache:       cache,
		limiter:     limiter,
		covers:      covers,
		logger:      logger,
		opts:        opts,
	}
}

// CreateRemote ensures the playlist exists on the platform and returns its
// external id. Idempotent: a playlist that already carries an external id is
// returned as-is without a platform call.
func (e *SyncEngine) CreateRemote(ctx context.Context, playlistID int64) (string, error) {
	playlist, err := e.playlists.Get(playlistID)
	if err != nil {
		return "", err
	}
	if playlist.ExternalID != "" {
		return playlist.ExternalID, nil
	}

	title := shared.SanitizeForPlatform(playlist.Title, e.opts.TitleLimit)
	description := shared.SanitizeForPlatform(playlist.Description, e.opts.DescriptionLimit)

	ref, err := e.platform.CreatePlaylist(ctx, playlist.OwnerID, title, description, playlist.Public)
	if err != nil {
		return "", fmt.Errorf("failed to create remote playlist: %w", err)
	}

	if err := e.playlists.SetExternalRef(playlistID, ref.ExternalID, ref.ExternalURL); err != nil {
		return "", fmt.Errorf("failed to record external ref: %w", err)
	}

	e.logger.Info("created remote playlist", "playlist_id", playlistID, "external_id", ref.ExternalID)
	return ref.ExternalID, nil
}

// PushTracks appends the playlist's local tracks to its remote counterpart in
// order, creating the remote playlist first when needed.
//
// Tracks without a platform mapping are reported in Unmapped and skipped; the
// remaining tracks keep their relative order. A failure mid-run returns a
// [shared.PartialSyncError] counting the tracks already delivered.
func (e *SyncEngine) PushTracks(ctx context.Context, playlistID int64, progress chan<- ProgressUpdate) (*PushResult, error) {
	externalID, err := e.CreateRemote(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	trackIDs, err := e.playlists.TrackIDs(playlistID)
	if err != nil {
		return nil, err
	}

	mapped, err := e.platformIDs.MapTracks(trackIDs, e.platform.Name())
	if err != nil {
		return nil, err
	}

	result := &PushResult{Unmapped: []int64{}}
	uris := make([]string, 0, len(trackIDs))
	for _, id := range trackIDs {
		externalTrackID, ok := mapped[id]
		if !ok {
			result.Unmapped = append(result.Unmapped, id)
			continue
		}
		uris = append(uris, services.TrackURI(externalTrackID))
	}

	batches := chunk(uris, e.opts.BatchSize)
	for i, batch := range batches {
		if i > 0 && e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		if err := e.platform.AddTracks(ctx, externalID, batch); err != nil {
			e.cache.Invalidate(externalID)
			return result, &shared.PartialSyncError{
				Succeeded: result.Added,
				Failed:    len(uris) - result.Added,
				Err:       err,
			}
		}

		result.Added += len(batch)
		result.Batches++
		sendProgress(progress, NewProgressUpdate(PhasePush, result.Added, len(uris), "pushing tracks"))
	}

	e.cache.Invalidate(externalID)
	e.logger.Info("pushed tracks", "playlist_id", playlistID, "added", result.Added, "unmapped", len(result.Unmapped))
	return result, nil
}

// Reorder rewrites the remote playlist so its order matches the local one.
//
// The remote is cleared and repopulated batch by batch, then re-read and
// compared against the desired order; a mismatch fails with
// [shared.ErrVerificationFailed]. The fresh snapshot is cached on success.
// Tracks without a platform mapping cannot exist remotely; they are left out
// of the rewrite and their count is logged.
func (e *SyncEngine) Reorder(ctx context.Context, playlistID int64, progress chan<- ProgressUpdate) error {
	playlist, err := e.playlists.Get(playlistID)
	if err != nil {
		return err
	}
	if playlist.ExternalID == "" {
		return fmt.Errorf("%w: playlist has no external counterpart", shared.ErrInvalidInput)
	}
	externalID := playlist.ExternalID

	trackIDs, err := e.playlists.TrackIDs(playlistID)
	if err != nil {
		return err
	}

	mapped, err := e.platformIDs.MapTracks(trackIDs, e.platform.Name())
	if err != nil {
		return err
	}

	desired := make([]string, 0, len(trackIDs))
	unmapped := 0
	for _, id := range trackIDs {
		externalTrackID, ok := mapped[id]
		if !ok {
			unmapped++
			continue
		}
		desired = append(desired, services.TrackURI(externalTrackID))
	}
	if unmapped > 0 {
		e.logger.Warn("tracks without a platform mapping left out of reorder", "playlist_id", playlistID, "unmapped", unmapped)
	}

	snapshot, err := e.fetchSnapshot(ctx, externalID)
	if err != nil {
		return err
	}

	current := make([]string, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		current = append(current, item.URI)
	}

	for i, batch := range chunk(current, e.opts.BatchSize) {
		if i > 0 && e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := e.platform.RemoveTracks(ctx, externalID, batch); err != nil {
			e.cache.Invalidate(externalID)
			return fmt.Errorf("failed to clear remote playlist: %w", err)
		}
	}

	added := 0
	for i, batch := range chunk(desired, e.opts.BatchSize) {
		if i > 0 && e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := e.platform.AddTracks(ctx, externalID, batch); err != nil {
			e.cache.Invalidate(externalID)
			return &shared.PartialSyncError{Succeeded: added, Failed: len(desired) - added, Err: err}
		}
		added += len(batch)
		sendProgress(progress, NewProgressUpdate(PhaseReorder, added, len(desired), "reordering tracks"))
	}

	verify, err := e.platform.GetPlaylist(ctx, externalID, true)
	if err != nil {
		e.cache.Invalidate(externalID)
		return fmt.Errorf("failed to verify reorder: %w", err)
	}

	if len(verify.Items) != len(desired) {
		e.cache.Invalidate(externalID)
		return fmt.Errorf("%w: remote has %d tracks, want %d", shared.ErrVerificationFailed, len(verify.Items), len(desired))
	}
	for i, item := range verify.Items {
		if item.URI != desired[i] {
			e.cache.Invalidate(externalID)
			return fmt.Errorf("%w: position %d holds %s, want %s", shared.ErrVerificationFailed, i, item.URI, desired[i])
		}
	}

	e.cache.Put(externalID, verify)
	e.logger.Info("reordered remote playlist", "playlist_id", playlistID, "tracks", len(desired))
	return nil
}

// RemoveTrack removes a track locally, then best-effort on the platform.
//
// The local delete commits first and is never undone: a remote failure or a
// missing platform mapping leaves the remote row behind to be reconciled by
// a later Reorder.
func (e *SyncEngine) RemoveTrack(ctx context.Context, playlistID, trackID int64) error {
	if err := e.playlists.RemoveTrack(playlistID, trackID); err != nil {
		return err
	}

	playlist, err := e.playlists.Get(playlistID)
	if err != nil {
		return err
	}
	if playlist.ExternalID == "" {
		return nil
	}

	mapping, err := e.platformIDs.Get(models.EntityTrack, trackID, e.platform.Name())
	if errors.Is(err, shared.ErrNotFound) {
		e.logger.Debug("track has no platform mapping, skipping remote removal", "track_id", trackID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.platform.RemoveTracks(ctx, playlist.ExternalID, []string{services.TrackURI(mapping.ExternalID)}); err != nil {
		e.logger.Warn("remote removal failed, local state kept", "playlist_id", playlistID, "track_id", trackID, "error", err)
	}

	e.cache.Invalidate(playlist.ExternalID)
	return nil
}

// SyncCover pushes the playlist's cover to the platform and persists the
// winning image through the cover pipeline.
//
// When the direct upload fails, the engine waits a grace delay and adopts the
// platform's own mosaic image instead, so the stored pointer always reflects
// what the platform actually shows.
func (e *SyncEngine) SyncCover(ctx context.Context, playlistID int64, sourceURL string) (*CoverResult, error) {
	if e.covers == nil {
		return nil, fmt.Errorf("%w: no blob store configured", shared.ErrInvalidConfig)
	}

	playlist, err := e.playlists.Get(playlistID)
	if err != nil {
		return nil, err
	}
	if playlist.ExternalID == "" {
		return nil, fmt.Errorf("%w: playlist has no external counterpart", shared.ErrInvalidInput)
	}

	winner := sourceURL
	payload, err := e.covers.EncodeJPEG(ctx, sourceURL)
	if err == nil {
		err = e.platform.UploadCover(ctx, playlist.ExternalID, payload)
	}
	if err != nil {
		e.logger.Warn("cover upload failed, adopting platform image", "playlist_id", playlistID, "error", err)

		if err := sleepCtx(ctx, e.opts.CoverGraceDelay); err != nil {
			return nil, err
		}

		snapshot, err := e.platform.GetPlaylist(ctx, playlist.ExternalID, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read platform cover: %w", err)
		}
		if len(snapshot.Images) == 0 {
			return nil, fmt.Errorf("%w: platform playlist has no cover image", shared.ErrNotFound)
		}
		winner = snapshot.Images[0].URL
	}

	return e.covers.Save(ctx, winner, playlistID)
}

// fetchSnapshot returns the external playlist, serving from cache when fresh.
// Under platform rate limiting a stale cached snapshot is served instead of
// failing.
func (e *SyncEngine) fetchSnapshot(ctx context.Context, externalID string) (*services.PlatformPlaylist, error) {
	if snapshot := e.cache.Get(externalID); snapshot != nil {
		return snapshot, nil
	}

	snapshot, err := e.platform.GetPlaylist(ctx, externalID, true)
	if err != nil {
		if errors.Is(err, shared.ErrRateLimited) {
			if stale := e.cache.GetStale(externalID); stale != nil {
				e.logger.Warn("rate limited, serving stale snapshot", "external_id", externalID)
				return stale, nil
			}
		}
		return nil, err
	}

	e.cache.Put(externalID, snapshot)
	return snapshot, nil
}

// chunk splits items into consecutive slices of at most size elements.
func chunk(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}

	batches := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// sleepCtx sleeps for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
