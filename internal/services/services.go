// package services defines interface Platform for the external streaming platform REST API
package services

import "context"

// Platform defines the streaming-platform surface the sync engine depends on.
// All calls require a bearer token supplied by [TokenManager].
type Platform interface {
	// CreatePlaylist creates an external playlist and returns its identity.
	CreatePlaylist(ctx context.Context, ownerID, title, description string, public bool) (*PlatformPlaylistRef, error)

	// AddTracks appends tracks (by external URI) to an external playlist.
	// Callers batch to the platform's per-request item limit.
	AddTracks(ctx context.Context, externalID string, uris []string) error

	// RemoveTracks removes tracks (by external URI) from an external playlist.
	RemoveTracks(ctx context.Context, externalID string, uris []string) error

	// GetPlaylist fetches the external playlist snapshot, optionally with its items.
	GetPlaylist(ctx context.Context, externalID string, includeTracks bool) (*PlatformPlaylist, error)

	// UploadCover replaces the playlist's cover with a base64-encoded JPEG.
	UploadCover(ctx context.Context, externalID string, jpegBase64 []byte) error

	// Name returns the platform name (e.g., "spotify") as recorded in platform_ids rows.
	Name() string
}

// PlatformPlaylistRef is the identity of a newly created external playlist.
type PlatformPlaylistRef struct {
	ExternalID  string
	ExternalURL string
}

// PlatformPlaylist is a snapshot of an external playlist.
type PlatformPlaylist struct {
	ExternalID string
	Title      string
	Images     []PlatformImage
	Items      []PlatformPlaylistItem
	Total      int
}

// PlatformPlaylistItem is one track within an external playlist snapshot.
type PlatformPlaylistItem struct {
	ExternalTrackID string
	URI             string
	Title           string
}

// PlatformImage is an image resource attached to an external playlist.
type PlatformImage struct {
	URL    string
	Height int
	Width  int
}
