package tasks

import (
	"database/sql"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trx/internal/models"
	"github.com/desertthunder/trx/internal/repositories"
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

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func createTrack(t *testing.T, repo *repositories.TrackRepository, title string, explicit bool, artists ...string) *models.Track {
	t.Helper()

	track := &models.Track{Title: title, DurationMS: 200000, Explicit: explicit}
	for _, name := range artists {
		track.Artists = append(track.Artists, models.Artist{Name: name})
	}
	if err := repo.Create(track); err != nil {
		t.Fatalf("failed to create track %q: %v", title, err)
	}
	return track
}
