// package repositories provides persistence layer implementations for the catalog.
//
// Repositories are plain database/sql over SQLite. Multi-row lookups used by
// resolution order by id so repeated runs pick the same row.
package repositories

import "database/sql"

// nullableString converts a *string into a sql-friendly value, where nil
// writes SQL NULL (used to explicitly clear a column).
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// stringPtr converts a scanned NullString back into an optional string.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
