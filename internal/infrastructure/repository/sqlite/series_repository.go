package sqlite

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/brackethq/circuit-metrics/internal/domain/series"
)

type SeriesRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSeriesRepository(db *sqlx.DB) *SeriesRepository {
	return &SeriesRepository{db: db, now: time.Now}
}

func (r *SeriesRepository) SaveMatches(ctx context.Context, matches []series.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save series matches: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now().Unix()
	for _, m := range matches {
		if m.TournamentID <= 0 {
			continue
		}
		nameTerms, err := sonic.Marshal(m.NameTerms)
		if err != nil {
			return fmt.Errorf("encode name terms: %w", err)
		}
		slugTerms, err := sonic.Marshal(m.SlugTerms)
		if err != nil {
			return fmt.Errorf("encode slug terms: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO series_matches (tournament_id, name_terms, slug_terms, last_synced)
VALUES (?, ?, ?, ?)
ON CONFLICT (tournament_id) DO UPDATE SET
    name_terms = excluded.name_terms,
    slug_terms = excluded.slug_terms,
    last_synced = MAX(series_matches.last_synced, excluded.last_synced)`,
			m.TournamentID, string(nameTerms), string(slugTerms), now,
		); err != nil {
			return fmt.Errorf("upsert series match tournament_id=%d: %w", m.TournamentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save series matches: %w", err)
	}
	return nil
}

func (r *SeriesRepository) ListMatches(ctx context.Context) ([]series.Match, error) {
	var rows []seriesMatchRow
	err := r.db.SelectContext(ctx, &rows, `
SELECT tournament_id, name_terms, slug_terms, last_synced
FROM series_matches
ORDER BY tournament_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select series matches: %w", err)
	}

	out := make([]series.Match, 0, len(rows))
	for _, row := range rows {
		m := series.Match{TournamentID: row.TournamentID}
		if err := sonic.Unmarshal([]byte(row.NameTerms), &m.NameTerms); err != nil {
			return nil, fmt.Errorf("decode name terms tournament_id=%d: %w", row.TournamentID, err)
		}
		if err := sonic.Unmarshal([]byte(row.SlugTerms), &m.SlugTerms); err != nil {
			return nil, fmt.Errorf("decode slug terms tournament_id=%d: %w", row.TournamentID, err)
		}
		out = append(out, m)
	}
	return out, nil
}
