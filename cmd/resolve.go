package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/shared"
	"github.com/urfave/cli/v3"
)

// ResolveTrack resolves a single candidate and prints the catalog track.
func (r *Runner) ResolveTrack(ctx context.Context, cmd *cli.Command) error {
	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	var candidate models.Candidate
	if id := cmd.Int("id"); id > 0 {
		candidate = models.CandidateFromID(int64(id))
	} else if title := cmd.String("title"); title != "" {
		candidate = models.CandidateFromTitle(title, cmd.String("artist"))
	} else {
		return fmt.Errorf("%w: either --id or --title is required", shared.ErrMissingArgument)
	}

	track, err := env.resolver.Resolve(candidate)
	if err != nil {
		return err
	}

	return r.writeJSON(track, cmd.Bool("pretty"))
}

// ResolveSearch lists catalog tracks matching a normalized title fragment.
func (r *Runner) ResolveSearch(ctx context.Context, cmd *cli.Command) error {
	term := cmd.StringArg("term")
	if term == "" {
		return fmt.Errorf("%w: search term is required", shared.ErrMissingArgument)
	}

	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	tracks, err := env.tracks.Search(term, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return r.writeJSON(tracks, cmd.Bool("pretty"))
}

// candidateInput is the JSON shape accepted by resolve list.
type candidateInput struct {
	ID     int64  `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// ResolveList reconciles a JSON file of candidates into catalog tracks.
func (r *Runner) ResolveList(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to candidates file is required", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read candidates file: %w", err)
	}

	var inputs []candidateInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("failed to parse candidates file: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(inputs))
	for _, in := range inputs {
		if in.ID > 0 {
			candidates = append(candidates, models.CandidateFromID(in.ID))
		} else {
			candidates = append(candidates, models.CandidateFromTitle(in.Title, in.Artist))
		}
	}

	env, err := r.connect(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.reconciler.Reconcile(candidates, int(cmd.Int("limit")), cmd.Bool("avoid-explicit"))
	if err != nil {
		return err
	}

	r.logger.Info("reconciled candidates", "matched", len(result.Tracks), "unmatched", len(result.Unmatched))
	return r.writeJSON(result, cmd.Bool("pretty"))
}
