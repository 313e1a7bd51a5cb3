package event

import "context"

// Repository caches event lists and per-event bundles.
type Repository interface {
	// SaveEvents stores the tournament's events and records that the event
	// list was fetched, even when events is empty.
	SaveEvents(ctx context.Context, tournamentID int64, events []Event) error

	// LoadEvents reports the cached event list for the tournament,
	// distinguishing never-fetched from fetched-and-empty.
	LoadEvents(ctx context.Context, tournamentID int64) (CachedEvents, error)

	// SaveBundle stores the seeds/standings/sets payloads for one event.
	SaveBundle(ctx context.Context, bundle Bundle) error

	// LoadBundle returns the cached bundle, with ok=false when absent.
	LoadBundle(ctx context.Context, eventID int64) (Bundle, bool, error)
}
