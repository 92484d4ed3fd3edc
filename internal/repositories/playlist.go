package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/shared"
)

// PlaylistRepository handles playlist rows and their ordered track membership.
//
// Membership positions are 0-based and kept contiguous: every mutation that
// removes a row closes the gap in the same transaction.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist.
func (r *PlaylistRepository) Create(p *models.Playlist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO playlists (owner_id, title, description, public)
		VALUES (?, ?, ?, ?)
	`, p.OwnerID, p.Title, p.Description, p.Public)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get playlist id: %w", err)
	}
	p.ID = id

	return nil
}

// Get retrieves a playlist by id.
func (r *PlaylistRepository) Get(id int64) (*models.Playlist, error) {
	var (
		p                       models.Playlist
		externalID, externalURL sql.NullString
		coverImageURL           sql.NullString
		createdAt, updatedAt    time.Time
	)

	err := r.db.QueryRow(`
		SELECT id, owner_id, title, description, external_id, external_url, cover_image_url, public, created_at, updated_at
		FROM playlists
		WHERE id = ?
	`, id).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &externalID, &externalURL, &coverImageURL, &p.Public, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	p.ExternalID = externalID.String
	p.ExternalURL = externalURL.String
	p.CoverImageURL = coverImageURL.String
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt

	return &p, nil
}

// SetExternalRef records the playlist's external platform identity.
func (r *PlaylistRepository) SetExternalRef(id int64, externalID, externalURL string) error {
	return r.exec(`
		UPDATE playlists
		SET external_id = ?, external_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, externalID, externalURL, id)
}

// UpdateCoverImageURL sets the playlist's cover pointer. A nil url explicitly
// clears the column; callers verify with [PlaylistRepository.CoverImageURL]
// before trusting the write.
func (r *PlaylistRepository) UpdateCoverImageURL(id int64, url *string) error {
	return r.exec(`
		UPDATE playlists
		SET cover_image_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, nullableString(url), id)
}

// CoverImageURL reads back the stored cover pointer (nil when cleared).
func (r *PlaylistRepository) CoverImageURL(id int64) (*string, error) {
	var url sql.NullString
	err := r.db.QueryRow("SELECT cover_image_url FROM playlists WHERE id = ?", id).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cover url: %w", err)
	}
	return stringPtr(url), nil
}

// Entries lists the playlist's membership rows in position order.
func (r *PlaylistRepository) Entries(playlistID int64) ([]models.PlaylistEntry, error) {
	rows, err := r.db.Query(`
		SELECT track_id, position
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var entries []models.PlaylistEntry
	for rows.Next() {
		var e models.PlaylistEntry
		if err := rows.Scan(&e.TrackID, &e.Position); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// TrackIDs lists the playlist's track ids in position order.
func (r *PlaylistRepository) TrackIDs(playlistID int64) ([]int64, error) {
	entries, err := r.Entries(playlistID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.TrackID
	}
	return ids, nil
}

// AddTrack appends a track at the next contiguous position and returns it.
func (r *PlaylistRepository) AddTrack(playlistID, trackID int64) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(position) + 1, 0) FROM playlist_tracks WHERE playlist_id = ?", playlistID,
	).Scan(&position); err != nil {
		return 0, fmt.Errorf("failed to compute position: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)",
		playlistID, trackID, position,
	); err != nil {
		return 0, fmt.Errorf("failed to insert playlist track: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit playlist track: %w", err)
	}

	return position, nil
}

// RemoveTrack deletes a membership row and closes the position gap so
// positions stay contiguous.
func (r *PlaylistRepository) RemoveTrack(playlistID, trackID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRow(
		"SELECT position FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?", playlistID, trackID,
	).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return shared.ErrTrackNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find playlist track: %w", err)
	}

	if _, err := tx.Exec(
		"DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?", playlistID, trackID,
	); err != nil {
		return fmt.Errorf("failed to delete playlist track: %w", err)
	}

	if _, err := tx.Exec(
		"UPDATE playlist_tracks SET position = position - 1 WHERE playlist_id = ? AND position > ?",
		playlistID, position,
	); err != nil {
		return fmt.Errorf("failed to close position gap: %w", err)
	}

	return tx.Commit()
}

// ReplaceTracks swaps the playlist's full membership for trackIDs in order.
func (r *PlaylistRepository) ReplaceTracks(playlistID int64, trackIDs []int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %w", err)
	}

	for i, trackID := range trackIDs {
		if _, err := tx.Exec(
			"INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)",
			playlistID, trackID, i,
		); err != nil {
			return fmt.Errorf("failed to insert playlist track: %w", err)
		}
	}

	return tx.Commit()
}

// exec runs a single statement and requires at least one affected row.
func (r *PlaylistRepository) exec(query string, args ...any) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return shared.ErrPlaylistNotFound
	}

	return nil
}
