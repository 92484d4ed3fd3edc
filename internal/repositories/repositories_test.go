package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newTrack(title string, artists ...string) *models.Track {
	track := &models.Track{Title: title, DurationMS: 180000}
	for _, name := range artists {
		track.Artists = append(track.Artists, models.Artist{Name: name})
	}
	return track
}

func TestTrackRepository(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		track := newTrack("Señorita", "Shawn Mendes", "Camila Cabello")

		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		if track.ID == 0 {
			t.Fatal("track ID should be set after creation")
		}

		retrieved, err := repo.Get(track.ID)
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if retrieved.Title != "Señorita" {
			t.Errorf("expected title Señorita, got %q", retrieved.Title)
		}
		if len(retrieved.Artists) != 2 {
			t.Fatalf("expected 2 artists, got %d", len(retrieved.Artists))
		}
		if !retrieved.Artists[0].IsPrimary || retrieved.Artists[0].Name != "Shawn Mendes" {
			t.Errorf("expected Shawn Mendes as primary artist, got %+v", retrieved.Artists[0])
		}
		if retrieved.Artists[1].IsPrimary {
			t.Error("second artist should not be primary")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if _, err := repo.Get(999); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("FindByTitle", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if err := repo.Create(newTrack("Bohemian Rhapsody", "Queen")); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		found, err := repo.FindByTitle("bohemian rhapsody", "")
		if err != nil {
			t.Fatalf("case-insensitive title lookup failed: %v", err)
		}
		if found.Title != "Bohemian Rhapsody" {
			t.Errorf("unexpected track %q", found.Title)
		}

		if _, err := repo.FindByTitle("Bohemian Rhapsody", "ABBA"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected miss with wrong artist scope, got %v", err)
		}

		if _, err := repo.FindByTitle("Bohemian Rhapsody", "queen"); err != nil {
			t.Errorf("artist scope should be case-insensitive: %v", err)
		}
	})

	t.Run("FindByNormalizedTitle", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if err := repo.Create(newTrack("Don't Stop Me Now", "Queen")); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		found, err := repo.FindByNormalizedTitle(shared.Normalize("Dont Stop Me Now!"), "")
		if err != nil {
			t.Fatalf("normalized lookup failed: %v", err)
		}
		if found.Title != "Don't Stop Me Now" {
			t.Errorf("unexpected track %q", found.Title)
		}
	})

	t.Run("FindByNormalizedTitleAndArtist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if err := repo.Create(newTrack("Señorita", "Shawn Mendes")); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		found, err := repo.FindByNormalizedTitleAndArtist(
			shared.Normalize("senorita"), shared.Normalize("SHAWN MENDES"),
		)
		if err != nil {
			t.Fatalf("normalized artist lookup failed: %v", err)
		}
		if found.Title != "Señorita" {
			t.Errorf("unexpected track %q", found.Title)
		}
	})

	t.Run("DeterministicTieBreak", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		first := newTrack("Duplicate", "Artist A")
		second := newTrack("Duplicate", "Artist B")
		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create first track: %v", err)
		}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create second track: %v", err)
		}

		for range 5 {
			found, err := repo.FindByNormalizedTitle(shared.Normalize("Duplicate"), "")
			if err != nil {
				t.Fatalf("lookup failed: %v", err)
			}
			if found.ID != first.ID {
				t.Fatalf("expected lowest id %d, got %d", first.ID, found.ID)
			}
		}
	})

	t.Run("SharedArtistRow", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		one := newTrack("Track One", "Queen")
		two := newTrack("Track Two", "Queen")
		if err := repo.Create(one); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		if err := repo.Create(two); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		if one.Artists[0].ID != two.Artists[0].ID {
			t.Error("expected both tracks to share one artist row")
		}
	})

	t.Run("Search", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		for _, title := range []string{"Night Fever", "Nightcall", "Daylight"} {
			if err := repo.Create(newTrack(title, "Various")); err != nil {
				t.Fatalf("failed to create track: %v", err)
			}
		}

		tracks, err := repo.Search("night", 10)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(tracks) != 2 {
			t.Errorf("expected 2 matches, got %d", len(tracks))
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	seedPlaylist := func(t *testing.T, db *sql.DB, trackCount int) (*PlaylistRepository, int64, []int64) {
		t.Helper()

		tracks := NewTrackRepository(db)
		ids := make([]int64, 0, trackCount)
		for i := 0; i < trackCount; i++ {
			track := newTrack("Track "+string(rune('A'+i)), "Artist")
			if err := tracks.Create(track); err != nil {
				t.Fatalf("failed to create track: %v", err)
			}
			ids = append(ids, track.ID)
		}

		repo := NewPlaylistRepository(db)
		playlist := &models.Playlist{OwnerID: "user1", Title: "Test Playlist"}
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		for _, id := range ids {
			if _, err := repo.AddTrack(playlist.ID, id); err != nil {
				t.Fatalf("failed to add track: %v", err)
			}
		}

		return repo, playlist.ID, ids
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		playlist := &models.Playlist{OwnerID: "user1", Title: "My Playlist", Description: "desc"}
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		retrieved, err := repo.Get(playlist.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if retrieved.Title != "My Playlist" {
			t.Errorf("unexpected title %q", retrieved.Title)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		if _, err := repo.Get(999); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("AddTrackAssignsContiguousPositions", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo, playlistID, ids := seedPlaylist(t, db, 3)

		entries, err := repo.Entries(playlistID)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i, e := range entries {
			if e.Position != i {
				t.Errorf("entry %d has position %d", i, e.Position)
			}
			if e.TrackID != ids[i] {
				t.Errorf("entry %d has track %d, want %d", i, e.TrackID, ids[i])
			}
		}
	})

	t.Run("RemoveTrackClosesGap", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo, playlistID, ids := seedPlaylist(t, db, 3)

		if err := repo.RemoveTrack(playlistID, ids[1]); err != nil {
			t.Fatalf("failed to remove track: %v", err)
		}

		entries, err := repo.Entries(playlistID)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Position != 0 || entries[1].Position != 1 {
			t.Errorf("positions not contiguous after removal: %+v", entries)
		}
		if entries[0].TrackID != ids[0] || entries[1].TrackID != ids[2] {
			t.Errorf("unexpected track order after removal: %+v", entries)
		}
	})

	t.Run("RemoveMissingTrack", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo, playlistID, _ := seedPlaylist(t, db, 1)

		if err := repo.RemoveTrack(playlistID, 999); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("ReplaceTracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo, playlistID, ids := seedPlaylist(t, db, 3)

		reversed := []int64{ids[2], ids[1], ids[0]}
		if err := repo.ReplaceTracks(playlistID, reversed); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		got, err := repo.TrackIDs(playlistID)
		if err != nil {
			t.Fatalf("failed to list track ids: %v", err)
		}
		for i, id := range reversed {
			if got[i] != id {
				t.Errorf("position %d holds %d, want %d", i, got[i], id)
			}
		}
	})

	t.Run("SetExternalRef", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo, playlistID, _ := seedPlaylist(t, db, 1)

		if err := repo.SetExternalRef(playlistID, "ext123", "https://example.com/pl"); err != nil {
			t.Fatalf("failed to set external ref: %v", err)
		}

		playlist, err := repo.Get(playlistID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if playlist.ExternalID != "ext123" {
			t.Errorf("expected external id ext123, got %q", playlist.ExternalID)
		}
	})

	t.Run("CoverImageURLRoundTrip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo, playlistID, _ := seedPlaylist(t, db, 1)

		url := "https://cdn.example.com/covers/abc.jpg"
		if err := repo.UpdateCoverImageURL(playlistID, &url); err != nil {
			t.Fatalf("failed to update cover url: %v", err)
		}

		stored, err := repo.CoverImageURL(playlistID)
		if err != nil {
			t.Fatalf("failed to read cover url: %v", err)
		}
		if stored == nil || *stored != url {
			t.Errorf("expected %q, got %v", url, stored)
		}

		if err := repo.UpdateCoverImageURL(playlistID, nil); err != nil {
			t.Fatalf("failed to clear cover url: %v", err)
		}
		stored, err = repo.CoverImageURL(playlistID)
		if err != nil {
			t.Fatalf("failed to read cover url: %v", err)
		}
		if stored != nil {
			t.Errorf("expected cleared cover url, got %q", *stored)
		}
	})
}

func TestPlatformIDRepository(t *testing.T) {
	t.Run("UpsertAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		tracks := NewTrackRepository(db)
		track := newTrack("Mapped", "Artist")
		if err := tracks.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		repo := NewPlatformIDRepository(db)
		mapping := &models.PlatformID{
			EntityType: models.EntityTrack,
			EntityID:   track.ID,
			Platform:   "spotify",
			ExternalID: "sp123",
		}
		if err := repo.Upsert(mapping); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		got, err := repo.Get(models.EntityTrack, track.ID, "spotify")
		if err != nil {
			t.Fatalf("failed to get mapping: %v", err)
		}
		if got.ExternalID != "sp123" {
			t.Errorf("expected sp123, got %q", got.ExternalID)
		}
	})

	t.Run("UpsertReplacesExisting", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		tracks := NewTrackRepository(db)
		track := newTrack("Mapped", "Artist")
		if err := tracks.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		repo := NewPlatformIDRepository(db)
		for _, ext := range []string{"old", "new"} {
			if err := repo.Upsert(&models.PlatformID{
				EntityType: models.EntityTrack,
				EntityID:   track.ID,
				Platform:   "spotify",
				ExternalID: ext,
			}); err != nil {
				t.Fatalf("failed to upsert %s: %v", ext, err)
			}
		}

		got, err := repo.Get(models.EntityTrack, track.ID, "spotify")
		if err != nil {
			t.Fatalf("failed to get mapping: %v", err)
		}
		if got.ExternalID != "new" {
			t.Errorf("expected new, got %q", got.ExternalID)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlatformIDRepository(db)
		if _, err := repo.Get(models.EntityTrack, 999, "spotify"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpsertRejectsIncomplete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlatformIDRepository(db)
		err := repo.Upsert(&models.PlatformID{EntityType: models.EntityTrack, EntityID: 1})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("MapTracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		tracks := NewTrackRepository(db)
		var ids []int64
		for _, title := range []string{"One", "Two", "Three"} {
			track := newTrack(title, "Artist")
			if err := tracks.Create(track); err != nil {
				t.Fatalf("failed to create track: %v", err)
			}
			ids = append(ids, track.ID)
		}

		repo := NewPlatformIDRepository(db)
		for i, id := range ids[:2] {
			if err := repo.Upsert(&models.PlatformID{
				EntityType: models.EntityTrack,
				EntityID:   id,
				Platform:   "spotify",
				ExternalID: []string{"sp1", "sp2"}[i],
			}); err != nil {
				t.Fatalf("failed to upsert: %v", err)
			}
		}

		mapped, err := repo.MapTracks(ids, "spotify")
		if err != nil {
			t.Fatalf("failed to map tracks: %v", err)
		}
		if len(mapped) != 2 {
			t.Errorf("expected 2 mappings, got %d", len(mapped))
		}
		if mapped[ids[0]] != "sp1" || mapped[ids[1]] != "sp2" {
			t.Errorf("unexpected mappings %v", mapped)
		}
		if _, ok := mapped[ids[2]]; ok {
			t.Error("unmapped track should be absent from result")
		}
	})

	t.Run("MapTracksEmpty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlatformIDRepository(db)
		mapped, err := repo.MapTracks(nil, "spotify")
		if err != nil {
			t.Fatalf("failed to map tracks: %v", err)
		}
		if len(mapped) != 0 {
			t.Errorf("expected empty map, got %v", mapped)
		}
	})
}
