package usecase

import (
	"context"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

// RemoteDataSource is the provider surface the pipeline needs. A nil source
// means the pipeline runs offline against the local cache only.
type RemoteDataSource interface {
	// DiscoverTournaments returns the scope's tournaments whose start falls
	// inside [windowStart, windowEnd], newest first.
	DiscoverTournaments(ctx context.Context, filter tournament.Filter, windowStart, windowEnd int64) ([]tournament.Tournament, error)

	// TournamentEvents returns the tournament's event list, possibly empty.
	TournamentEvents(ctx context.Context, tournamentID int64) ([]event.Event, error)

	// EventBundle returns seeds, standings and sets for one event.
	EventBundle(ctx context.Context, eventID int64) (event.Bundle, error)
}
