package main

import (
	"context"

	"github.com/desertthunder/trx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncPush creates the remote playlist if needed and pushes local tracks.
func (r *Runner) SyncPush(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	playlistID := int64(cmd.Int("playlist-id"))

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info("progress", "phase", update.Phase, "current", update.Current, "total", update.Total)
		}
	}()

	result, err := env.engine.PushTracks(ctx, playlistID, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("pushed %d tracks in %d batches\n", result.Added, result.Batches)
	if len(result.Unmapped) > 0 {
		r.writePlain("%d tracks have no platform mapping and were skipped\n", len(result.Unmapped))
	}
	return nil
}

// SyncReorder rewrites the remote playlist to match local order.
func (r *Runner) SyncReorder(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	playlistID := int64(cmd.Int("playlist-id"))
	if err := env.engine.Reorder(ctx, playlistID, nil); err != nil {
		return err
	}

	return r.writePlain("remote playlist now matches local order\n")
}

// SyncRemove removes a track locally, then best-effort remotely.
func (r *Runner) SyncRemove(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	playlistID := int64(cmd.Int("playlist-id"))
	trackID := int64(cmd.Int("track-id"))

	if err := env.engine.RemoveTrack(ctx, playlistID, trackID); err != nil {
		return err
	}

	return r.writePlain("removed track %d from playlist %d\n", trackID, playlistID)
}

// SyncCover uploads a cover image and persists the winning copy.
func (r *Runner) SyncCover(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	playlistID := int64(cmd.Int("playlist-id"))

	result, err := env.engine.SyncCover(ctx, playlistID, cmd.String("source"))
	if err != nil {
		return err
	}

	return r.writePlain("cover persisted at %s\n", result.FinalURL)
}
