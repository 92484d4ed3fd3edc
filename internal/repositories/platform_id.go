package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/shared"
)

// PlatformIDRepository maps catalog entities to their external platform
// identifiers. At most one row exists per (entity, platform).
type PlatformIDRepository struct {
	db *sql.DB
}

// NewPlatformIDRepository creates a new PlatformIDRepository with the given database connection
func NewPlatformIDRepository(db *sql.DB) *PlatformIDRepository {
	return &PlatformIDRepository{db: db}
}

// Upsert inserts a mapping or replaces the external id/url of an existing one.
func (r *PlatformIDRepository) Upsert(m *models.PlatformID) error {
	if m.EntityType == "" || m.Platform == "" || m.ExternalID == "" {
		return fmt.Errorf("%w: entity type, platform and external id are required", shared.ErrInvalidInput)
	}

	_, err := r.db.Exec(`
		INSERT INTO platform_ids (entity_type, entity_id, platform, external_id, external_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id, platform)
		DO UPDATE SET external_id = excluded.external_id, external_url = excluded.external_url
	`, m.EntityType, m.EntityID, m.Platform, m.ExternalID, m.ExternalURL)
	if err != nil {
		return fmt.Errorf("failed to upsert platform id: %w", err)
	}

	return nil
}

// Get retrieves the mapping for one entity on one platform.
func (r *PlatformIDRepository) Get(entityType models.EntityType, entityID int64, platform string) (*models.PlatformID, error) {
	var (
		m   models.PlatformID
		url sql.NullString
	)

	err := r.db.QueryRow(`
		SELECT id, entity_type, entity_id, platform, external_id, external_url
		FROM platform_ids
		WHERE entity_type = ? AND entity_id = ? AND platform = ?
	`, entityType, entityID, platform).Scan(&m.ID, &m.EntityType, &m.EntityID, &m.Platform, &m.ExternalID, &url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan platform id: %w", err)
	}

	m.ExternalURL = url.String
	return &m, nil
}

// MapTracks returns external ids for the given catalog track ids on one
// platform. Tracks with no mapping are simply absent from the result.
func (r *PlatformIDRepository) MapTracks(trackIDs []int64, platform string) (map[int64]string, error) {
	mapped := make(map[int64]string, len(trackIDs))
	if len(trackIDs) == 0 {
		return mapped, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(trackIDs)), ",")
	args := make([]any, 0, len(trackIDs)+2)
	args = append(args, models.EntityTrack, platform)
	for _, id := range trackIDs {
		args = append(args, id)
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT entity_id, external_id
		FROM platform_ids
		WHERE entity_type = ? AND platform = ? AND entity_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			trackID    int64
			externalID string
		)
		if err := rows.Scan(&trackID, &externalID); err != nil {
			return nil, fmt.Errorf("failed to scan platform id: %w", err)
		}
		mapped[trackID] = externalID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return mapped, nil
}
