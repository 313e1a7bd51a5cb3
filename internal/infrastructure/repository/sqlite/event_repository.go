package sqlite

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
)

type EventRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

const upsertEventSQL = `
INSERT INTO events (
    id, tournament_id, slug, name, start_at, num_entrants, videogame_id,
    team_min_players, team_max_players, entrant_size_min, entrant_size_max, last_synced
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    tournament_id = excluded.tournament_id,
    slug = excluded.slug,
    name = excluded.name,
    start_at = excluded.start_at,
    num_entrants = excluded.num_entrants,
    videogame_id = excluded.videogame_id,
    team_min_players = excluded.team_min_players,
    team_max_players = excluded.team_max_players,
    entrant_size_min = excluded.entrant_size_min,
    entrant_size_max = excluded.entrant_size_max,
    last_synced = MAX(events.last_synced, excluded.last_synced)`

// SaveEvents stores the tournament's events and records the fetch in
// event_syncs. An empty list still produces the sync row, so the tournament
// later reads as checked rather than unknown.
func (r *EventRepository) SaveEvents(ctx context.Context, tournamentID int64, events []event.Event) error {
	if tournamentID <= 0 {
		return fmt.Errorf("tournament id must be greater than zero")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save events: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now().Unix()
	for _, ev := range events {
		if ev.ID <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertEventSQL,
			ev.ID, tournamentID, ev.Slug, ev.Name, ev.StartAt, ev.NumEntrants, ev.VideogameID,
			ev.TeamMinPlayers, ev.TeamMaxPlayers, ev.EntrantSizeMin, ev.EntrantSizeMax, now,
		); err != nil {
			return fmt.Errorf("upsert event id=%d: %w", ev.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO event_syncs (tournament_id, last_synced)
VALUES (?, ?)
ON CONFLICT (tournament_id) DO UPDATE SET
    last_synced = MAX(event_syncs.last_synced, excluded.last_synced)`,
		tournamentID, now,
	); err != nil {
		return fmt.Errorf("record event sync tournament_id=%d: %w", tournamentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save events: %w", err)
	}
	return nil
}

// LoadEvents answers the three-state event cache question for a tournament.
func (r *EventRepository) LoadEvents(ctx context.Context, tournamentID int64) (event.CachedEvents, error) {
	var synced int64
	err := r.db.GetContext(ctx, &synced,
		`SELECT last_synced FROM event_syncs WHERE tournament_id = ?`, tournamentID)
	if err != nil {
		if isNotFound(err) {
			return event.CachedEvents{State: event.CacheUnfetched}, nil
		}
		return event.CachedEvents{}, fmt.Errorf("select event sync: %w", err)
	}

	var rows []eventRow
	err = r.db.SelectContext(ctx, &rows, `
SELECT id, tournament_id, slug, name, start_at, num_entrants, videogame_id,
       team_min_players, team_max_players, entrant_size_min, entrant_size_max, last_synced
FROM events
WHERE tournament_id = ?
ORDER BY start_at ASC, id ASC`, tournamentID)
	if err != nil {
		return event.CachedEvents{}, fmt.Errorf("select events: %w", err)
	}
	if len(rows) == 0 {
		return event.CachedEvents{State: event.CacheEmpty}, nil
	}

	out := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.Event{
			ID:             row.ID,
			TournamentID:   row.TournamentID,
			Slug:           row.Slug,
			Name:           row.Name,
			StartAt:        row.StartAt,
			NumEntrants:    row.NumEntrants,
			VideogameID:    row.VideogameID,
			TeamMinPlayers: row.TeamMinPlayers,
			TeamMaxPlayers: row.TeamMaxPlayers,
			EntrantSizeMin: row.EntrantSizeMin,
			EntrantSizeMax: row.EntrantSizeMax,
		})
	}
	return event.CachedEvents{State: event.CachePresent, Events: out}, nil
}

func (r *EventRepository) SaveBundle(ctx context.Context, bundle event.Bundle) error {
	if bundle.EventID <= 0 {
		return fmt.Errorf("bundle event id must be greater than zero")
	}

	seeds, err := sonic.Marshal(bundle.Seeds)
	if err != nil {
		return fmt.Errorf("encode seeds: %w", err)
	}
	standings, err := sonic.Marshal(bundle.Standings)
	if err != nil {
		return fmt.Errorf("encode standings: %w", err)
	}
	sets, err := sonic.Marshal(bundle.Sets)
	if err != nil {
		return fmt.Errorf("encode sets: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO event_bundles (event_id, seeds_json, standings_json, sets_json, last_synced)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (event_id) DO UPDATE SET
    seeds_json = excluded.seeds_json,
    standings_json = excluded.standings_json,
    sets_json = excluded.sets_json,
    last_synced = MAX(event_bundles.last_synced, excluded.last_synced)`,
		bundle.EventID, string(seeds), string(standings), string(sets), r.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert bundle event_id=%d: %w", bundle.EventID, err)
	}
	return nil
}

func (r *EventRepository) LoadBundle(ctx context.Context, eventID int64) (event.Bundle, bool, error) {
	var row bundleRow
	err := r.db.GetContext(ctx, &row, `
SELECT event_id, seeds_json, standings_json, sets_json, last_synced
FROM event_bundles WHERE event_id = ?`, eventID)
	if err != nil {
		if isNotFound(err) {
			return event.Bundle{}, false, nil
		}
		return event.Bundle{}, false, fmt.Errorf("select bundle: %w", err)
	}

	bundle := event.Bundle{EventID: row.EventID}
	if err := sonic.Unmarshal([]byte(row.SeedsJSON), &bundle.Seeds); err != nil {
		return event.Bundle{}, false, fmt.Errorf("decode seeds event_id=%d: %w", eventID, err)
	}
	if err := sonic.Unmarshal([]byte(row.StandingsJSON), &bundle.Standings); err != nil {
		return event.Bundle{}, false, fmt.Errorf("decode standings event_id=%d: %w", eventID, err)
	}
	if err := sonic.Unmarshal([]byte(row.SetsJSON), &bundle.Sets); err != nil {
		return event.Bundle{}, false, fmt.Errorf("decode sets event_id=%d: %w", eventID, err)
	}
	return bundle, true, nil
}
