package sqlite

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/brackethq/circuit-metrics/internal/domain/metrics"
)

type MetricsRepository struct {
	db *sqlx.DB
}

func NewMetricsRepository(db *sqlx.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

const insertMetricsSQL = `
INSERT INTO player_metrics (
    addr_state, videogame_id, months_back, target_character,
    player_id, gamer_tag, events, sets, wins, losses,
    weighted_win_rate, opponent_strength, upset_rate, avg_seed_delta, activity_score,
    avg_entrants, max_entrants, large_event_share,
    character_usage_rate, character_win_rate, character_weighted_win_rate,
    home_region, home_region_inferred, latest_event_start
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Replace swaps the whole batch for the key inside one transaction, so
// concurrent readers never observe a half-written batch.
func (r *MetricsRepository) Replace(ctx context.Context, key metrics.Key, rows []metrics.PlayerMetrics) error {
	key = key.Normalize()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace metrics: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
DELETE FROM player_metrics
WHERE addr_state = ? AND videogame_id = ? AND months_back = ? AND target_character = ?`,
		key.AddrState, key.VideogameID, key.MonthsBack, key.TargetCharacter,
	); err != nil {
		return fmt.Errorf("delete metrics batch: %w", err)
	}

	for _, row := range rows {
		inferred := 0
		if row.HomeRegionInferred {
			inferred = 1
		}
		if _, err := tx.ExecContext(ctx, insertMetricsSQL,
			key.AddrState, key.VideogameID, key.MonthsBack, key.TargetCharacter,
			row.PlayerID, row.GamerTag, row.Events, row.Sets, row.Wins, row.Losses,
			row.WeightedWinRate, row.OpponentStrength, row.UpsetRate, row.AvgSeedDelta, row.ActivityScore,
			row.AvgEntrants, row.MaxEntrants, row.LargeEventShare,
			row.CharacterUsageRate, row.CharacterWinRate, row.CharacterWeightedWinRate,
			row.HomeRegion, inferred, row.LatestEventStart,
		); err != nil {
			return fmt.Errorf("insert metrics player_id=%d: %w", row.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace metrics: %w", err)
	}
	return nil
}

func (r *MetricsRepository) List(ctx context.Context, key metrics.Key, limit int) ([]metrics.PlayerMetrics, error) {
	key = key.Normalize()

	query := `
SELECT addr_state, videogame_id, months_back, target_character,
       player_id, gamer_tag, events, sets, wins, losses,
       weighted_win_rate, opponent_strength, upset_rate, avg_seed_delta, activity_score,
       avg_entrants, max_entrants, large_event_share,
       character_usage_rate, character_win_rate, character_weighted_win_rate,
       home_region, home_region_inferred, latest_event_start
FROM player_metrics
WHERE addr_state = ? AND videogame_id = ? AND months_back = ? AND target_character = ?
ORDER BY (weighted_win_rate IS NULL), weighted_win_rate DESC,
         (opponent_strength IS NULL), opponent_strength DESC,
         player_id ASC`
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	var rows []metricsRow
	if err := r.db.SelectContext(ctx, &rows, query,
		key.AddrState, key.VideogameID, key.MonthsBack, key.TargetCharacter,
	); err != nil {
		return nil, fmt.Errorf("select metrics batch: %w", err)
	}

	out := make([]metrics.PlayerMetrics, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
