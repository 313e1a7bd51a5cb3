package usecase

import (
	"context"
	"time"

	"github.com/brackethq/circuit-metrics/internal/domain/metrics"
	"github.com/brackethq/circuit-metrics/internal/domain/series"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
)

// PipelineParams drives one end-to-end precompute run for a region.
type PipelineParams struct {
	Filter tournament.Filter

	TargetCharacter  string
	AssumeTargetMain bool

	// AutoSeries restricts collection to tournaments belonging to the
	// region's selected recurring series.
	AutoSeries bool
	SeriesTopN int
}

// PipelineSummary reports what one run touched.
type PipelineSummary struct {
	AddrState   string
	Tournaments int
	Players     int
	Series      int
	Duration    time.Duration
}

// PipelineService chains discovery, collection, metrics computation and
// persistence into one run.
type PipelineService struct {
	discovery *DiscoveryService
	results   *ResultsService
	metrics   *MetricsService
	series    *SeriesService
	logger    *logging.Logger
}

func NewPipelineService(
	discovery *DiscoveryService,
	results *ResultsService,
	metricsSvc *MetricsService,
	seriesSvc *SeriesService,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{
		discovery: discovery,
		results:   results,
		metrics:   metricsSvc,
		series:    seriesSvc,
		logger:    logger,
	}
}

// PrecomputeRegion runs the full pipeline for one region and replaces the
// stored metrics batch.
func (s *PipelineService) PrecomputeRegion(ctx context.Context, params PipelineParams) (PipelineSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "PipelineService.PrecomputeRegion")
	defer span.End()

	start := time.Now()
	filter := params.Filter.Normalize()

	tournaments, err := s.discovery.DiscoverTournaments(ctx, filter)
	if err != nil {
		return PipelineSummary{}, err
	}

	summary := PipelineSummary{AddrState: filter.AddrState}

	if params.AutoSeries {
		selected, err := s.series.RankSeries(ctx, SeriesRankParams{
			AddrState:   filter.AddrState,
			VideogameID: filter.VideogameID,
			MonthsBack:  filter.MonthsBack,
			TopN:        params.SeriesTopN,
		})
		if err != nil {
			return PipelineSummary{}, err
		}
		summary.Series = len(selected)
		tournaments = restrictToSeries(tournaments, selected)
	}
	summary.Tournaments = len(tournaments)

	records, err := s.results.CollectPlayerResults(ctx, tournaments, filter.VideogameID)
	if err != nil {
		return PipelineSummary{}, err
	}

	rows := s.metrics.ComputeMetrics(records, MetricsOptions{
		TargetCharacter:  params.TargetCharacter,
		AssumeTargetMain: params.AssumeTargetMain,
		WindowDays:       filter.MonthsBack * 30,
	})
	summary.Players = len(rows)

	key := metrics.Key{
		AddrState:       filter.AddrState,
		VideogameID:     filter.VideogameID,
		MonthsBack:      filter.MonthsBack,
		TargetCharacter: params.TargetCharacter,
	}
	if err := s.metrics.PersistMetrics(ctx, key, rows); err != nil {
		return PipelineSummary{}, err
	}

	summary.Duration = time.Since(start)
	s.logger.InfoContext(ctx, "region precompute finished",
		"state", filter.AddrState,
		"tournaments", summary.Tournaments,
		"players", summary.Players,
		"duration_ms", summary.Duration.Milliseconds())
	return summary, nil
}

func restrictToSeries(tournaments []tournament.Tournament, selected []series.Candidate) []tournament.Tournament {
	if len(selected) == 0 {
		return nil
	}
	allowed := make(map[int64]bool)
	for _, cand := range selected {
		for _, id := range cand.TournamentIDs {
			allowed[id] = true
		}
	}
	out := make([]tournament.Tournament, 0, len(allowed))
	for _, t := range tournaments {
		if allowed[t.ID] {
			out = append(out, t)
		}
	}
	return out
}
