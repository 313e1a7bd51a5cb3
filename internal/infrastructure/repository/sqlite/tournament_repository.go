package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

type TournamentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTournamentRepository(db *sqlx.DB) *TournamentRepository {
	return &TournamentRepository{db: db, now: time.Now}
}

const upsertTournamentSQL = `
INSERT INTO tournaments (
    id, slug, name, city, addr_state, country_code,
    start_at, end_at, num_attendees, videogame_id, last_synced
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    slug = excluded.slug,
    name = excluded.name,
    city = excluded.city,
    addr_state = excluded.addr_state,
    country_code = excluded.country_code,
    start_at = excluded.start_at,
    end_at = excluded.end_at,
    num_attendees = excluded.num_attendees,
    videogame_id = excluded.videogame_id,
    last_synced = MAX(tournaments.last_synced, excluded.last_synced)`

func (r *TournamentRepository) Upsert(ctx context.Context, tournaments []tournament.Tournament) error {
	if len(tournaments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tournaments: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now().Unix()
	for _, t := range tournaments {
		if t.ID <= 0 {
			continue
		}
		synced := t.LastSynced
		if synced <= 0 {
			synced = now
		}
		if _, err := tx.ExecContext(ctx, upsertTournamentSQL,
			t.ID, t.Slug, t.Name, t.City, t.AddrState, t.CountryCode,
			t.StartAt, t.EndAt, t.NumAttendees, t.VideogameID, synced,
		); err != nil {
			return fmt.Errorf("upsert tournament id=%d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tournaments: %w", err)
	}
	return nil
}

func (r *TournamentRepository) ListWindow(ctx context.Context, addrState string, videogameID int, startAt, endAt int64) ([]tournament.Tournament, error) {
	var rows []tournamentRow
	err := r.db.SelectContext(ctx, &rows, `
SELECT id, slug, name, city, addr_state, country_code,
       start_at, end_at, num_attendees, videogame_id, last_synced
FROM tournaments
WHERE addr_state = ? AND videogame_id = ? AND start_at BETWEEN ? AND ?
ORDER BY start_at DESC, id ASC`,
		addrState, videogameID, startAt, endAt)
	if err != nil {
		return nil, fmt.Errorf("select tournaments window: %w", err)
	}

	out := make([]tournament.Tournament, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TournamentRepository) Coverage(ctx context.Context, addrState string, videogameID int) (tournament.Coverage, error) {
	var row struct {
		Count    int   `db:"count"`
		Earliest int64 `db:"earliest"`
		Latest   int64 `db:"latest"`
	}
	err := r.db.GetContext(ctx, &row, `
SELECT COUNT(*) AS count,
       COALESCE(MIN(start_at), 0) AS earliest,
       COALESCE(MAX(start_at), 0) AS latest
FROM tournaments
WHERE addr_state = ? AND videogame_id = ?`,
		addrState, videogameID)
	if err != nil {
		return tournament.Coverage{}, fmt.Errorf("select tournament coverage: %w", err)
	}
	return tournament.Coverage{
		Count:         row.Count,
		EarliestStart: row.Earliest,
		LatestStart:   row.Latest,
	}, nil
}

func (r *TournamentRepository) DiscoveryLastSynced(ctx context.Context, addrState string, videogameID int) (time.Time, bool, error) {
	var lastSynced int64
	err := r.db.GetContext(ctx, &lastSynced, `
SELECT last_synced FROM discoveries WHERE addr_state = ? AND videogame_id = ?`,
		addrState, videogameID)
	if err != nil {
		if isNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("select discovery mark: %w", err)
	}
	return time.Unix(lastSynced, 0), true, nil
}

func (r *TournamentRepository) MarkDiscovery(ctx context.Context, addrState string, videogameID int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO discoveries (addr_state, videogame_id, last_synced)
VALUES (?, ?, ?)
ON CONFLICT (addr_state, videogame_id) DO UPDATE SET
    last_synced = MAX(discoveries.last_synced, excluded.last_synced)`,
		addrState, videogameID, at.Unix())
	if err != nil {
		return fmt.Errorf("upsert discovery mark: %w", err)
	}
	return nil
}
