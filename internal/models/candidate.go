package models

import "fmt"

// CandidateKind discriminates how a recommendation candidate identifies a track.
type CandidateKind int

const (
	// CandidateByTitle resolves through title/artist text matching.
	CandidateByTitle CandidateKind = iota
	// CandidateByID carries a direct catalog id; id lookup is authoritative
	// and skips text search entirely.
	CandidateByID
)

// Candidate is an ephemeral recommendation supplied by the upstream source.
// Never persisted.
type Candidate struct {
	Kind    CandidateKind
	TrackID int64
	Title   string
	Artist  string
	Genre   string
}

// CandidateFromTitle builds a text-matching candidate.
func CandidateFromTitle(title, artist string) Candidate {
	return Candidate{Kind: CandidateByTitle, Title: title, Artist: artist}
}

// CandidateFromID builds a fast-path candidate carrying a direct catalog id.
func CandidateFromID(id int64) Candidate {
	return Candidate{Kind: CandidateByID, TrackID: id}
}

// Label renders the candidate for unmatched reporting ("title by artist").
func (c Candidate) Label() string {
	switch {
	case c.Kind == CandidateByID:
		return fmt.Sprintf("catalog id %d", c.TrackID)
	case c.Artist != "":
		return fmt.Sprintf("%s by %s", c.Title, c.Artist)
	default:
		return c.Title
	}
}
