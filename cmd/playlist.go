package main

import (
	"context"

	"github.com/desertthunder/trx/internal/models"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates a local playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	owner := cmd.String("owner")
	if owner == "" {
		owner = r.config.Credentials.Spotify.UserID
	}

	playlist := &models.Playlist{
		OwnerID:     owner,
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Public:      cmd.Bool("public"),
	}
	if err := env.playlists.Create(playlist); err != nil {
		return err
	}

	r.logger.Info("playlist created", "id", playlist.ID, "title", playlist.Title)
	return r.writePlain("created playlist %d: %s\n", playlist.ID, playlist.Title)
}

// PlaylistAdd appends a track to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	playlistID := int64(cmd.Int("playlist-id"))
	trackID := int64(cmd.Int("track-id"))

	position, err := env.playlists.AddTrack(playlistID, trackID)
	if err != nil {
		return err
	}

	return r.writePlain("added track %d to playlist %d at position %d\n", trackID, playlistID, position)
}

// PlaylistShow prints a playlist and its tracks in order.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	playlistID := int64(cmd.Int("playlist-id"))

	playlist, err := env.playlists.Get(playlistID)
	if err != nil {
		return err
	}

	trackIDs, err := env.playlists.TrackIDs(playlistID)
	if err != nil {
		return err
	}

	tracks := make([]*models.Track, 0, len(trackIDs))
	for _, id := range trackIDs {
		track, err := env.tracks.Get(id)
		if err != nil {
			return err
		}
		tracks = append(tracks, track)
	}

	return r.writeJSON(map[string]any{
		"playlist": playlist,
		"tracks":   tracks,
	}, cmd.Bool("pretty"))
}
