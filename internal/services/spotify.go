package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/trx/internal/shared"
)

const (
	spotifyAPIBaseURL = "https://api.spotify.com/v1"
	spotifyPlatform   = "spotify"
)

// SpotifyService implements [Platform] against the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	tokens     *TokenManager
	httpClient *http.Client
}

// NewSpotifyService creates a Spotify client. client and baseURL may be zero
// values; production defaults are applied.
func NewSpotifyService(tokens *TokenManager, client *http.Client, baseURL string) *SpotifyService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = spotifyAPIBaseURL
	}
	return &SpotifyService{baseURL: baseURL, tokens: tokens, httpClient: client}
}

// Name returns the platform name used in platform_ids rows.
func (s *SpotifyService) Name() string { return spotifyPlatform }

// TrackURI converts an external track id to the URI form the playlist
// endpoints require.
func TrackURI(externalID string) string { return "spotify:track:" + externalID }

type spotifyPlaylistResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Images []struct {
		URL    string `json:"url"`
		Height int    `json:"height"`
		Width  int    `json:"width"`
	} `json:"images"`
	Tracks spotifyTracksPage `json:"tracks"`
}

// spotifyTracksPage is one page of a playlist's items. The API caps a page at
// 100 items; Next points at the following page until the last one.
type spotifyTracksPage struct {
	Total int     `json:"total"`
	Next  *string `json:"next"`
	Items []struct {
		Track struct {
			ID   string `json:"id"`
			URI  string `json:"uri"`
			Name string `json:"name"`
		} `json:"track"`
	} `json:"items"`
}

// CreatePlaylist creates a playlist owned by ownerID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, title, description string, public bool) (*PlatformPlaylistRef, error) {
	body := map[string]any{
		"name":        title,
		"description": description,
		"public":      public,
	}

	var resp spotifyPlaylistResponse
	url := fmt.Sprintf("%s/users/%s/playlists", s.baseURL, ownerID)
	if err := s.doRequest(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	return &PlatformPlaylistRef{ExternalID: resp.ID, ExternalURL: resp.ExternalURLs.Spotify}, nil
}

// AddTracks appends uris to the playlist. Spotify caps a single request at
// 100 items; callers batch accordingly.
func (s *SpotifyService) AddTracks(ctx context.Context, externalID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	body := map[string]any{"uris": uris}
	url := fmt.Sprintf("%s/playlists/%s/tracks", s.baseURL, externalID)
	if err := s.doRequest(ctx, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("failed to add tracks: %w", err)
	}
	return nil
}

// RemoveTracks removes all occurrences of uris from the playlist.
func (s *SpotifyService) RemoveTracks(ctx context.Context, externalID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	tracks := make([]map[string]string, len(uris))
	for i, uri := range uris {
		tracks[i] = map[string]string{"uri": uri}
	}

	body := map[string]any{"tracks": tracks}
	url := fmt.Sprintf("%s/playlists/%s/tracks", s.baseURL, externalID)
	if err := s.doRequest(ctx, http.MethodDelete, url, body, nil); err != nil {
		return fmt.Errorf("failed to remove tracks: %w", err)
	}
	return nil
}

// GetPlaylist fetches the playlist snapshot, including its items when
// includeTracks is set. Items are paged 100 at a time; every page is fetched
// so the snapshot always holds the full track list.
func (s *SpotifyService) GetPlaylist(ctx context.Context, externalID string, includeTracks bool) (*PlatformPlaylist, error) {
	url := fmt.Sprintf("%s/playlists/%s", s.baseURL, externalID)
	if !includeTracks {
		url += "?fields=id,name,images,tracks(total)"
	}

	var resp spotifyPlaylistResponse
	if err := s.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	playlist := &PlatformPlaylist{
		ExternalID: resp.ID,
		Title:      resp.Name,
		Total:      resp.Tracks.Total,
		Images:     make([]PlatformImage, 0, len(resp.Images)),
		Items:      make([]PlatformPlaylistItem, 0, resp.Tracks.Total),
	}
	for _, img := range resp.Images {
		playlist.Images = append(playlist.Images, PlatformImage{URL: img.URL, Height: img.Height, Width: img.Width})
	}

	page := resp.Tracks
	for {
		for _, item := range page.Items {
			playlist.Items = append(playlist.Items, PlatformPlaylistItem{
				ExternalTrackID: item.Track.ID,
				URI:             item.Track.URI,
				Title:           item.Track.Name,
			})
		}

		if !includeTracks || page.Next == nil || *page.Next == "" {
			break
		}

		var next spotifyTracksPage
		if err := s.doRequest(ctx, http.MethodGet, *page.Next, nil, &next); err != nil {
			return nil, fmt.Errorf("failed to page playlist tracks: %w", err)
		}
		page = next
	}

	return playlist, nil
}

// UploadCover replaces the playlist cover. jpegBase64 is the base64 encoding
// of a JPEG and must stay under Spotify's 256 KB payload cap.
func (s *SpotifyService) UploadCover(ctx context.Context, externalID string, jpegBase64 []byte) error {
	url := fmt.Sprintf("%s/playlists/%s/images", s.baseURL, externalID)
	if err := s.doRaw(ctx, http.MethodPut, url, jpegBase64, "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload cover: %w", err)
	}
	return nil
}

// doRequest performs an authenticated JSON request and decodes the response
// into result when non-nil. A 401 invalidates the cached token and retries
// once with a fresh one; a 429 maps to [shared.RateLimitError].
func (s *SpotifyService) doRequest(ctx context.Context, method, url string, body any, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = data
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := s.tokens.Token(ctx)
		if err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && attempt == 0:
			s.tokens.Invalidate()
			continue
		case resp.StatusCode == http.StatusTooManyRequests:
			return &shared.RateLimitError{RetryAfter: retryAfter(resp)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return &shared.PlatformError{Status: resp.StatusCode, Body: string(data)}
		}

		if result != nil && len(data) > 0 {
			if err := json.Unmarshal(data, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	return shared.ErrAuthExpired
}

// doRaw performs an authenticated request with a non-JSON body, used by the
// cover upload endpoint.
func (s *SpotifyService) doRaw(ctx context.Context, method, url string, body []byte, contentType string) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := s.tokens.Token(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", contentType)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && attempt == 0:
			s.tokens.Invalidate()
			continue
		case resp.StatusCode == http.StatusTooManyRequests:
			return &shared.RateLimitError{RetryAfter: retryAfter(resp)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return &shared.PlatformError{Status: resp.StatusCode, Body: string(data)}
		}

		return nil
	}

	return shared.ErrAuthExpired
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
