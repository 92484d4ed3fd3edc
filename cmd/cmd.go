// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
		},
	}
}

// resolveCommand maps recommendation candidates onto catalog tracks.
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve track candidates against the local catalog",
		Commands: []*cli.Command{
			{
				Name:  "track",
				Usage: "Resolve a single title/artist or catalog id",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Candidate track title",
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Candidate artist name",
					},
					&cli.IntFlag{
						Name:  "id",
						Usage: "Catalog track id (takes precedence over title)",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ResolveTrack,
			},
			{
				Name:  "search",
				Usage: "List catalog tracks matching a normalized title fragment",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "term"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ResolveSearch,
			},
			{
				Name:  "list",
				Usage: "Reconcile a JSON file of candidates into catalog tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "avoid-explicit",
						Usage: "Skip explicit tracks",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ResolveList,
			},
		},
	}
}

// playlistCommand manages local playlists.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Local playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a local playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Playlist title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description",
					},
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Owner id (defaults to configured Spotify user)",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make playlist public",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "add",
				Usage: "Append a track to a playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "playlist-id",
						Usage:    "Playlist id",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "track-id",
						Usage:    "Catalog track id",
						Required: true,
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "show",
				Usage: "Show a playlist and its tracks in order",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "playlist-id",
						Usage:    "Playlist id",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistShow,
			},
		},
	}
}

// syncCommand mirrors local playlists onto the external platform.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync playlists to the external platform",
		Commands: []*cli.Command{
			{
				Name:  "push",
				Usage: "Create the remote playlist if needed and push local tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "playlist-id",
						Usage:    "Playlist id",
						Required: true,
					},
				},
				Action: r.SyncPush,
			},
			{
				Name:  "reorder",
				Usage: "Rewrite the remote playlist to match local order",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "playlist-id",
						Usage:    "Playlist id",
						Required: true,
					},
				},
				Action: r.SyncReorder,
			},
			{
				Name:  "remove",
				Usage: "Remove a track locally, then best-effort remotely",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "playlist-id",
						Usage:    "Playlist id",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "track-id",
						Usage:    "Catalog track id",
						Required: true,
					},
				},
				Action: r.SyncRemove,
			},
			{
				Name:  "cover",
				Usage: "Upload a cover image and persist the winning copy",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "playlist-id",
						Usage:    "Playlist id",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source image URL (http(s) or data:)",
						Required: true,
					},
				},
				Action: r.SyncCover,
			},
		},
	}
}
