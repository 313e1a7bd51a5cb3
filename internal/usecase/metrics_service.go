package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/brackethq/circuit-metrics/internal/domain/metrics"
	"github.com/brackethq/circuit-metrics/internal/domain/results"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
)

const (
	defaultLargeEventThreshold = 64
	// Rank assumed for opponents with neither a seed nor a placement; roughly
	// "out of bracket" at a local.
	defaultUnknownRank = 17
)

// MetricsOptions tunes one metrics computation.
type MetricsOptions struct {
	TargetCharacter     string
	AssumeTargetMain    bool
	LargeEventThreshold int

	// WindowDays and Now anchor the recency part of the activity score.
	WindowDays int
	Now        time.Time
}

func (o MetricsOptions) normalize() MetricsOptions {
	o.TargetCharacter = strings.TrimSpace(o.TargetCharacter)
	if o.LargeEventThreshold <= 0 {
		o.LargeEventThreshold = defaultLargeEventThreshold
	}
	if o.WindowDays <= 0 {
		o.WindowDays = 180
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// MetricsService aggregates player event records into per-player metrics and
// persists precomputed batches.
type MetricsService struct {
	store  metrics.Repository
	logger *logging.Logger
}

func NewMetricsService(store metrics.Repository, logger *logging.Logger) *MetricsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MetricsService{store: store, logger: logger}
}

// ComputeMetrics aggregates records per player. Opponent weight is
// 1/(1+log2(rank)) with rank taken from seed, then placement, then a default,
// so beating seed 1 counts for the most and every weight stays in (0, 1].
// Rate metrics over zero qualifying sets come back nil, never zero.
func (s *MetricsService) ComputeMetrics(records []results.PlayerEventResult, opts MetricsOptions) []metrics.PlayerMetrics {
	opts = opts.normalize()

	byPlayer := make(map[int64][]results.PlayerEventResult)
	order := make([]int64, 0)
	for _, rec := range records {
		if rec.PlayerID <= 0 {
			continue
		}
		if _, seen := byPlayer[rec.PlayerID]; !seen {
			order = append(order, rec.PlayerID)
		}
		byPlayer[rec.PlayerID] = append(byPlayer[rec.PlayerID], rec)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]metrics.PlayerMetrics, 0, len(order))
	for _, playerID := range order {
		out = append(out, computePlayerMetrics(playerID, byPlayer[playerID], opts))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := compareDescNilLast(out[i].WeightedWinRate, out[j].WeightedWinRate); c != 0 {
			return c < 0
		}
		if c := compareDescNilLast(out[i].OpponentStrength, out[j].OpponentStrength); c != 0 {
			return c < 0
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

func computePlayerMetrics(playerID int64, recs []results.PlayerEventResult, opts MetricsOptions) metrics.PlayerMetrics {
	m := metrics.PlayerMetrics{PlayerID: playerID}

	var (
		totalSets, decidedSets, wins, losses int
		weightSum, weightedWins              float64
		strengthSum                          float64
		upsets, decidedWins                  int
		seedDeltaSum                         float64
		seedDeltaCount                       int

		charSets, targetSets                int
		targetDecided, targetWins           int
		targetWeightSum, targetWeightedWins float64
		anyCharacterData                    bool
		largeEvents                         int
		entrantsSum                         int
		regionVotes                         = make(map[string]int)
		fallbackVotes                       = make(map[string]int)
	)

	target := strings.ToLower(opts.TargetCharacter)

	for _, rec := range recs {
		if rec.GamerTag != "" {
			m.GamerTag = rec.GamerTag
		}
		m.Events++
		entrantsSum += rec.NumEntrants
		if rec.NumEntrants > m.MaxEntrants {
			m.MaxEntrants = rec.NumEntrants
		}
		if rec.NumEntrants >= opts.LargeEventThreshold {
			largeEvents++
		}
		if rec.EventStartAt > m.LatestEventStart {
			m.LatestEventStart = rec.EventStartAt
		}
		if rec.Location != nil && rec.Location.State != "" {
			regionVotes[strings.ToUpper(rec.Location.State)]++
		} else if rec.Region != "" {
			fallbackVotes[strings.ToUpper(rec.Region)]++
		}

		ownRank := rankOf(rec.Seed, rec.Placement)

		for _, set := range rec.Sets {
			totalSets++
			rank := rankOf(set.OpponentSeed, set.OpponentPlacement)
			weight := opponentWeight(rank)
			strengthSum += weight

			if set.Outcome.Decided() {
				decidedSets++
				weightSum += weight
				if set.Outcome == results.OutcomeWin {
					wins++
					decidedWins++
					weightedWins += weight
					if rank < ownRank {
						upsets++
					}
				} else {
					losses++
				}
			}

			if rec.Seed != nil && set.OpponentSeed != nil {
				seedDeltaSum += float64(*set.OpponentSeed - *rec.Seed)
				seedDeltaCount++
			}

			if len(set.Characters) > 0 {
				anyCharacterData = true
			}
			if target != "" {
				onTarget := false
				for _, name := range set.Characters {
					if strings.ToLower(name) == target {
						onTarget = true
						break
					}
				}
				if len(set.Characters) > 0 {
					charSets++
				}
				if onTarget {
					targetSets++
					targetWeightSum += weight
					if set.Outcome.Decided() {
						targetDecided++
						if set.Outcome == results.OutcomeWin {
							targetWins++
							targetWeightedWins += weight
						}
					}
				}
			}
		}
	}

	m.Sets = totalSets
	m.Wins = wins
	m.Losses = losses

	if decidedSets > 0 && weightSum > 0 {
		m.WeightedWinRate = ptr(weightedWins / weightSum)
	}
	if totalSets > 0 {
		m.OpponentStrength = ptr(strengthSum / float64(totalSets))
	}
	if decidedWins > 0 {
		m.UpsetRate = ptr(float64(upsets) / float64(decidedWins))
	}
	if seedDeltaCount > 0 {
		m.AvgSeedDelta = ptr(seedDeltaSum / float64(seedDeltaCount))
	}

	if m.Events > 0 {
		m.AvgEntrants = float64(entrantsSum) / float64(m.Events)
		m.LargeEventShare = float64(largeEvents) / float64(m.Events)
	}

	m.ActivityScore = activityScore(m.Events, totalSets, m.LatestEventStart, opts)

	if target != "" {
		switch {
		case charSets > 0:
			m.CharacterUsageRate = ptr(float64(targetSets) / float64(charSets))
		case opts.AssumeTargetMain && !anyCharacterData && totalSets > 0:
			// No recorded picks at all: treat the player as a dedicated main.
			m.CharacterUsageRate = ptr(1.0)
			targetDecided = decidedSets
			targetWins = wins
			targetWeightSum = weightSum
			targetWeightedWins = weightedWins
		}
		if targetDecided > 0 {
			m.CharacterWinRate = ptr(float64(targetWins) / float64(targetDecided))
		}
		if targetWeightSum > 0 {
			m.CharacterWeightedWinRate = ptr(targetWeightedWins / targetWeightSum)
		}
	}

	if len(regionVotes) > 0 {
		m.HomeRegion = majorityVote(regionVotes)
		m.HomeRegionInferred = false
	} else if len(fallbackVotes) > 0 {
		m.HomeRegion = majorityVote(fallbackVotes)
		m.HomeRegionInferred = true
	}

	return m
}

// PersistMetrics atomically replaces the stored batch for the key.
func (s *MetricsService) PersistMetrics(ctx context.Context, key metrics.Key, rows []metrics.PlayerMetrics) error {
	ctx, span := startUsecaseSpan(ctx, "MetricsService.PersistMetrics")
	defer span.End()

	key = key.Normalize()
	if key.AddrState == "" {
		return fmt.Errorf("%w: addr state is required", ErrInvalidInput)
	}
	if err := s.store.Replace(ctx, key, rows); err != nil {
		return fmt.Errorf("replace metrics batch: %w", err)
	}
	s.logger.InfoContext(ctx, "metrics batch replaced",
		"state", key.AddrState, "videogame_id", key.VideogameID, "rows", len(rows))
	return nil
}

// LoadMetrics returns the stored batch, best players first.
func (s *MetricsService) LoadMetrics(ctx context.Context, key metrics.Key, limit int) ([]metrics.PlayerMetrics, error) {
	ctx, span := startUsecaseSpan(ctx, "MetricsService.LoadMetrics")
	defer span.End()

	key = key.Normalize()
	if key.AddrState == "" {
		return nil, fmt.Errorf("%w: addr state is required", ErrInvalidInput)
	}
	rows, err := s.store.List(ctx, key, limit)
	if err != nil {
		return nil, fmt.Errorf("list metrics batch: %w", err)
	}
	return rows, nil
}

func rankOf(seed, placement *int) int {
	if seed != nil && *seed > 0 {
		return *seed
	}
	if placement != nil && *placement > 0 {
		return *placement
	}
	return defaultUnknownRank
}

func opponentWeight(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	return 1 / (1 + math.Log2(float64(rank)))
}

// activityScore blends event volume, set volume and recency into [0, 1).
func activityScore(events, sets int, latestStart int64, opts MetricsOptions) float64 {
	volume := 0.5*(1-math.Exp(-float64(events)/4)) + 0.3*(1-math.Exp(-float64(sets)/20))

	recency := 0.0
	if latestStart > 0 {
		age := opts.Now.Sub(time.Unix(latestStart, 0))
		window := time.Duration(opts.WindowDays) * 24 * time.Hour
		if age < 0 {
			age = 0
		}
		if age < window {
			recency = 1 - float64(age)/float64(window)
		}
	}
	return volume + 0.2*recency
}

func majorityVote(votes map[string]int) string {
	best := ""
	bestCount := 0
	keys := make([]string, 0, len(votes))
	for k := range votes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if votes[k] > bestCount {
			best = k
			bestCount = votes[k]
		}
	}
	return best
}

// compareDescNilLast orders two optional scores descending with nil last.
func compareDescNilLast(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	default:
		return 0
	}
}

func ptr[T any](v T) *T { return &v }
