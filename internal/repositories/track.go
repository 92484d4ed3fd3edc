package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/shared"
)

// trackColumns is the select list shared by every track lookup.
const trackColumns = "t.id, t.title, t.duration_ms, t.explicit, t.popularity, t.preview_url"

// TrackRepository handles catalog reads and ingestion writes for tracks and
// their ordered artist relations.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a track with its artists, storing normalized forms for later
// fuzzy lookups. The first artist is marked primary.
func (r *TrackRepository) Create(track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO tracks (title, normalized_title, duration_ms, explicit, popularity, preview_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`, track.Title, shared.Normalize(track.Title), track.DurationMS, track.Explicit, track.Popularity, track.PreviewURL)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	trackID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get track id: %w", err)
	}

	for i, artist := range track.Artists {
		artistID, err := upsertArtist(tx, artist.Name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO track_artists (track_id, artist_id, position, is_primary)
			VALUES (?, ?, ?, ?)
		`, trackID, artistID, i, i == 0); err != nil {
			return fmt.Errorf("failed to link artist: %w", err)
		}
		track.Artists[i].ID = artistID
		track.Artists[i].IsPrimary = i == 0
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track: %w", err)
	}

	track.ID = trackID
	return nil
}

// upsertArtist finds an artist by exact name or inserts a new row.
func upsertArtist(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM artists WHERE name = ? ORDER BY id LIMIT 1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query artist: %w", err)
	}

	res, err := tx.Exec("INSERT INTO artists (name, normalized_name) VALUES (?, ?)", name, shared.Normalize(name))
	if err != nil {
		return 0, fmt.Errorf("failed to insert artist: %w", err)
	}
	return res.LastInsertId()
}

// Get retrieves a track by its catalog id.
func (r *TrackRepository) Get(id int64) (*models.Track, error) {
	return r.findOne(fmt.Sprintf("SELECT %s FROM tracks t WHERE t.id = ?", trackColumns), id)
}

// FindByTitle retrieves a track by case-insensitive exact title, optionally
// scoped to an artist name ("" disables the scope).
func (r *TrackRepository) FindByTitle(title, artist string) (*models.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks t WHERE LOWER(t.title) = LOWER(?)", trackColumns)
	args := []any{title}

	if artist != "" {
		query += artistScope("LOWER(a.name) = LOWER(?)")
		args = append(args, artist)
	}

	return r.findOne(query+" ORDER BY t.id LIMIT 1", args...)
}

// FindByNormalizedTitle retrieves a track whose normalized title matches,
// optionally scoped to a case-insensitive exact artist name.
func (r *TrackRepository) FindByNormalizedTitle(normTitle, artist string) (*models.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks t WHERE t.normalized_title = ?", trackColumns)
	args := []any{normTitle}

	if artist != "" {
		query += artistScope("LOWER(a.name) = LOWER(?)")
		args = append(args, artist)
	}

	return r.findOne(query+" ORDER BY t.id LIMIT 1", args...)
}

// FindByNormalizedTitleAndArtist retrieves a track matching both normalized
// title and normalized artist name.
func (r *TrackRepository) FindByNormalizedTitleAndArtist(normTitle, normArtist string) (*models.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks t WHERE t.normalized_title = ?", trackColumns) +
		artistScope("a.normalized_name = ?") +
		" ORDER BY t.id LIMIT 1"
	return r.findOne(query, normTitle, normArtist)
}

// artistScope builds an EXISTS clause restricting a track query to tracks
// credited to an artist matching cond.
func artistScope(cond string) string {
	return ` AND EXISTS (
		SELECT 1 FROM track_artists ta
		JOIN artists a ON a.id = ta.artist_id
		WHERE ta.track_id = t.id AND ` + cond + `
	)`
}

// findOne runs a single-row track query and loads the ordered artist list.
// Misses surface as [shared.ErrTrackNotFound] so callers can tell a miss from
// genuine I/O failure.
func (r *TrackRepository) findOne(query string, args ...any) (*models.Track, error) {
	var (
		t       models.Track
		preview sql.NullString
	)

	err := r.db.QueryRow(query, args...).Scan(&t.ID, &t.Title, &t.DurationMS, &t.Explicit, &t.Popularity, &preview)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	t.PreviewURL = preview.String

	if t.Artists, err = r.artistsFor(t.ID); err != nil {
		return nil, err
	}

	return &t, nil
}

// artistsFor loads a track's artists in their stored order.
func (r *TrackRepository) artistsFor(trackID int64) ([]models.Artist, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.name, ta.is_primary
		FROM track_artists ta
		JOIN artists a ON a.id = ta.artist_id
		WHERE ta.track_id = ?
		ORDER BY ta.position ASC
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// Search lists tracks whose normalized title contains the normalized term,
// ordered by id. Used by the CLI resolve command for inspection.
func (r *TrackRepository) Search(term string, limit int) ([]*models.Track, error) {
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + strings.ReplaceAll(shared.Normalize(term), "%", "") + "%"
	rows, err := r.db.Query(fmt.Sprintf(
		"SELECT %s FROM tracks t WHERE t.normalized_title LIKE ? ORDER BY t.id LIMIT ?", trackColumns,
	), pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		var (
			t       models.Track
			preview sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.DurationMS, &t.Explicit, &t.Popularity, &preview); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		t.PreviewURL = preview.String
		tracks = append(tracks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, t := range tracks {
		if t.Artists, err = r.artistsFor(t.ID); err != nil {
			return nil, err
		}
	}

	return tracks, nil
}
