package sqlite

import (
	"github.com/brackethq/circuit-metrics/internal/domain/metrics"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

type tournamentRow struct {
	ID           int64  `db:"id"`
	Slug         string `db:"slug"`
	Name         string `db:"name"`
	City         string `db:"city"`
	AddrState    string `db:"addr_state"`
	CountryCode  string `db:"country_code"`
	StartAt      int64  `db:"start_at"`
	EndAt        int64  `db:"end_at"`
	NumAttendees int    `db:"num_attendees"`
	VideogameID  int    `db:"videogame_id"`
	LastSynced   int64  `db:"last_synced"`
}

func (r tournamentRow) toDomain() tournament.Tournament {
	return tournament.Tournament{
		ID:           r.ID,
		Slug:         r.Slug,
		Name:         r.Name,
		City:         r.City,
		AddrState:    r.AddrState,
		CountryCode:  r.CountryCode,
		StartAt:      r.StartAt,
		EndAt:        r.EndAt,
		NumAttendees: r.NumAttendees,
		VideogameID:  r.VideogameID,
		LastSynced:   r.LastSynced,
	}
}

type eventRow struct {
	ID             int64  `db:"id"`
	TournamentID   int64  `db:"tournament_id"`
	Slug           string `db:"slug"`
	Name           string `db:"name"`
	StartAt        int64  `db:"start_at"`
	NumEntrants    int    `db:"num_entrants"`
	VideogameID    int    `db:"videogame_id"`
	TeamMinPlayers *int   `db:"team_min_players"`
	TeamMaxPlayers *int   `db:"team_max_players"`
	EntrantSizeMin *int   `db:"entrant_size_min"`
	EntrantSizeMax *int   `db:"entrant_size_max"`
	LastSynced     int64  `db:"last_synced"`
}

type bundleRow struct {
	EventID       int64  `db:"event_id"`
	SeedsJSON     string `db:"seeds_json"`
	StandingsJSON string `db:"standings_json"`
	SetsJSON      string `db:"sets_json"`
	LastSynced    int64  `db:"last_synced"`
}

type metricsRow struct {
	AddrState       string `db:"addr_state"`
	VideogameID     int    `db:"videogame_id"`
	MonthsBack      int    `db:"months_back"`
	TargetCharacter string `db:"target_character"`

	PlayerID int64  `db:"player_id"`
	GamerTag string `db:"gamer_tag"`

	Events int `db:"events"`
	Sets   int `db:"sets"`
	Wins   int `db:"wins"`
	Losses int `db:"losses"`

	WeightedWinRate  *float64 `db:"weighted_win_rate"`
	OpponentStrength *float64 `db:"opponent_strength"`
	UpsetRate        *float64 `db:"upset_rate"`
	AvgSeedDelta     *float64 `db:"avg_seed_delta"`
	ActivityScore    float64  `db:"activity_score"`

	AvgEntrants     float64 `db:"avg_entrants"`
	MaxEntrants     int     `db:"max_entrants"`
	LargeEventShare float64 `db:"large_event_share"`

	CharacterUsageRate       *float64 `db:"character_usage_rate"`
	CharacterWinRate         *float64 `db:"character_win_rate"`
	CharacterWeightedWinRate *float64 `db:"character_weighted_win_rate"`

	HomeRegion         string `db:"home_region"`
	HomeRegionInferred int    `db:"home_region_inferred"`

	LatestEventStart int64 `db:"latest_event_start"`
}

func (r metricsRow) toDomain() metrics.PlayerMetrics {
	return metrics.PlayerMetrics{
		PlayerID:                 r.PlayerID,
		GamerTag:                 r.GamerTag,
		Events:                   r.Events,
		Sets:                     r.Sets,
		Wins:                     r.Wins,
		Losses:                   r.Losses,
		WeightedWinRate:          r.WeightedWinRate,
		OpponentStrength:         r.OpponentStrength,
		UpsetRate:                r.UpsetRate,
		AvgSeedDelta:             r.AvgSeedDelta,
		ActivityScore:            r.ActivityScore,
		AvgEntrants:              r.AvgEntrants,
		MaxEntrants:              r.MaxEntrants,
		LargeEventShare:          r.LargeEventShare,
		CharacterUsageRate:       r.CharacterUsageRate,
		CharacterWinRate:         r.CharacterWinRate,
		CharacterWeightedWinRate: r.CharacterWeightedWinRate,
		HomeRegion:               r.HomeRegion,
		HomeRegionInferred:       r.HomeRegionInferred != 0,
		LatestEventStart:         r.LatestEventStart,
	}
}

type seriesMatchRow struct {
	TournamentID int64  `db:"tournament_id"`
	NameTerms    string `db:"name_terms"`
	SlugTerms    string `db:"slug_terms"`
	LastSynced   int64  `db:"last_synced"`
}
