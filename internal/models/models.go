package models

import (
	"fmt"
	"time"
)

// EntityType identifies which catalog entity a PlatformID row maps.
type EntityType string

const (
	EntityTrack    EntityType = "track"
	EntityArtist   EntityType = "artist"
	EntityAlbum    EntityType = "album"
	EntityPlaylist EntityType = "playlist"
)

// Track is a canonical catalog entity. Created by import/ingestion, never by
// the sync engine. DurationMS is always milliseconds; ingestion converts,
// readers never guess units.
type Track struct {
	ID         int64
	Title      string
	DurationMS int
	Explicit   bool
	Popularity int
	PreviewURL string
	Artists    []Artist
}

// PrimaryArtist returns the first-listed artist's name, or "" when none.
func (t *Track) PrimaryArtist() string {
	for _, a := range t.Artists {
		if a.IsPrimary {
			return a.Name
		}
	}
	if len(t.Artists) > 0 {
		return t.Artists[0].Name
	}
	return ""
}

// Validate checks if the track's data is valid and returns an error if not.
func (t *Track) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("track title is required")
	}
	if t.DurationMS < 0 {
		return fmt.Errorf("track duration must be non-negative")
	}
	return nil
}

// Artist is a catalog artist. IsPrimary marks the first-listed artist of a
// track within its ordered artist relation.
type Artist struct {
	ID        int64
	Name      string
	IsPrimary bool
}

// Playlist is the internal source of truth for one playlist. ExternalID and
// ExternalURL are set once the playlist exists on the external platform; a
// playlist has at most one external id at a time.
type Playlist struct {
	ID            int64
	OwnerID       string
	Title         string
	Description   string
	ExternalID    string
	ExternalURL   string
	CoverImageURL string
	Public        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks if the playlist's data is valid and returns an error if not.
func (p *Playlist) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("playlist title is required")
	}
	if p.OwnerID == "" {
		return fmt.Errorf("playlist owner is required")
	}
	return nil
}

// PlaylistEntry is one ordered playlist membership row. Positions are 0-based
// and contiguous per playlist at rest.
type PlaylistEntry struct {
	TrackID  int64
	Position int
}

// PlatformID maps a catalog entity to its identifier on one external platform.
type PlatformID struct {
	ID          int64
	EntityType  EntityType
	EntityID    int64
	Platform    string
	ExternalID  string
	ExternalURL string
}
