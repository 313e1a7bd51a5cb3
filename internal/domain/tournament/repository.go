package tournament

import (
	"context"
	"time"
)

// Repository is the durable mirror of remote tournaments plus the discovery
// bookkeeping that decides when the mirror needs refreshing.
type Repository interface {
	// Upsert inserts or refreshes tournaments by ID. Replaying the same
	// batch leaves exactly one row per tournament.
	Upsert(ctx context.Context, tournaments []Tournament) error

	// ListWindow returns cached tournaments for the scope whose start falls
	// inside [startAt, endAt], newest first.
	ListWindow(ctx context.Context, addrState string, videogameID int, startAt, endAt int64) ([]Tournament, error)

	// Coverage reports the cached start-time span for the scope.
	Coverage(ctx context.Context, addrState string, videogameID int) (Coverage, error)

	// DiscoveryLastSynced returns the last discovery mark for the scope, with
	// ok=false when the scope has never been fetched.
	DiscoveryLastSynced(ctx context.Context, addrState string, videogameID int) (time.Time, bool, error)

	// MarkDiscovery records a discovery attempt for the scope at the given
	// time, whether or not it returned rows.
	MarkDiscovery(ctx context.Context, addrState string, videogameID int, at time.Time) error
}
