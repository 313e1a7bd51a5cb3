package series

import "context"

// Repository persists filter-match records for tournaments.
type Repository interface {
	// SaveMatches upserts match records by tournament ID.
	SaveMatches(ctx context.Context, matches []Match) error

	// ListMatches returns all stored matches, tournament ID ascending.
	ListMatches(ctx context.Context) ([]Match, error)
}
