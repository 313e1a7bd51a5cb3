package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/brackethq/circuit-metrics/internal/domain/metrics"
	"github.com/brackethq/circuit-metrics/internal/domain/series"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
	"github.com/brackethq/circuit-metrics/internal/platform/cache"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
	"github.com/brackethq/circuit-metrics/internal/usecase"

	sonic "github.com/bytedance/sonic"
)

type Handler struct {
	discoveryService *usecase.DiscoveryService
	metricsService   *usecase.MetricsService
	seriesService    *usecase.SeriesService
	pipelineService  *usecase.PipelineService
	readCache        *cache.Store
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	discoveryService *usecase.DiscoveryService,
	metricsService *usecase.MetricsService,
	seriesService *usecase.SeriesService,
	pipelineService *usecase.PipelineService,
	readCache *cache.Store,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		discoveryService: discoveryService,
		metricsService:   metricsService,
		seriesService:    seriesService,
		pipelineService:  pipelineService,
		readCache:        readCache,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type playerMetricsDTO struct {
	PlayerID int64  `json:"player_id"`
	GamerTag string `json:"gamer_tag"`

	Events int `json:"events"`
	Sets   int `json:"sets"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	WeightedWinRate  *float64 `json:"weighted_win_rate"`
	OpponentStrength *float64 `json:"opponent_strength"`
	UpsetRate        *float64 `json:"upset_rate"`
	AvgSeedDelta     *float64 `json:"avg_seed_delta"`
	ActivityScore    float64  `json:"activity_score"`

	AvgEntrants     float64 `json:"avg_entrants"`
	MaxEntrants     int     `json:"max_entrants"`
	LargeEventShare float64 `json:"large_event_share"`

	CharacterUsageRate       *float64 `json:"character_usage_rate,omitempty"`
	CharacterWinRate         *float64 `json:"character_win_rate,omitempty"`
	CharacterWeightedWinRate *float64 `json:"character_weighted_win_rate,omitempty"`

	HomeRegion         string `json:"home_region,omitempty"`
	HomeRegionInferred bool   `json:"home_region_inferred,omitempty"`

	LatestEventStart int64 `json:"latest_event_start"`
}

func metricsToDTO(m metrics.PlayerMetrics) playerMetricsDTO {
	return playerMetricsDTO{
		PlayerID:                 m.PlayerID,
		GamerTag:                 m.GamerTag,
		Events:                   m.Events,
		Sets:                     m.Sets,
		Wins:                     m.Wins,
		Losses:                   m.Losses,
		WeightedWinRate:          m.WeightedWinRate,
		OpponentStrength:         m.OpponentStrength,
		UpsetRate:                m.UpsetRate,
		AvgSeedDelta:             m.AvgSeedDelta,
		ActivityScore:            m.ActivityScore,
		AvgEntrants:              m.AvgEntrants,
		MaxEntrants:              m.MaxEntrants,
		LargeEventShare:          m.LargeEventShare,
		CharacterUsageRate:       m.CharacterUsageRate,
		CharacterWinRate:         m.CharacterWinRate,
		CharacterWeightedWinRate: m.CharacterWeightedWinRate,
		HomeRegion:               m.HomeRegion,
		HomeRegionInferred:       m.HomeRegionInferred,
		LatestEventStart:         m.LatestEventStart,
	}
}

func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMetrics")
	defer span.End()

	key := metrics.Key{
		AddrState:       r.URL.Query().Get("state"),
		TargetCharacter: r.URL.Query().Get("character"),
	}

	var err error
	if key.VideogameID, err = queryInt(r, "videogame_id", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if key.MonthsBack, err = queryInt(r, "months_back", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	key = key.Normalize()

	cacheKey := fmt.Sprintf("metrics:%s:%d:%d:%s:%d",
		key.AddrState, key.VideogameID, key.MonthsBack, key.TargetCharacter, limit)
	rows, err := h.cachedLoad(ctx, cacheKey, func(ctx context.Context) (any, error) {
		return h.metricsService.LoadMetrics(ctx, key, limit)
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list metrics failed", "state", key.AddrState, "error", err)
		writeError(ctx, w, err)
		return
	}

	list := rows.([]metrics.PlayerMetrics)
	items := make([]playerMetricsDTO, 0, len(list))
	for _, m := range list {
		items = append(items, metricsToDTO(m))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type tournamentDTO struct {
	ID           int64  `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	City         string `json:"city,omitempty"`
	AddrState    string `json:"addr_state"`
	CountryCode  string `json:"country_code,omitempty"`
	StartAt      int64  `json:"start_at"`
	EndAt        int64  `json:"end_at,omitempty"`
	NumAttendees int    `json:"num_attendees"`
}

func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTournaments")
	defer span.End()

	filter := tournament.Filter{
		AddrState:    r.URL.Query().Get("state"),
		NameContains: queryTerms(r, "name_contains"),
		SlugContains: queryTerms(r, "slug_contains"),
	}

	var err error
	if filter.VideogameID, err = queryInt(r, "videogame_id", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if filter.MonthsBack, err = queryInt(r, "months_back", 0); err != nil {
		writeError(ctx, w, err)
		return
	}

	list, err := h.discoveryService.DiscoverTournaments(ctx, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "list tournaments failed", "state", filter.AddrState, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]tournamentDTO, 0, len(list))
	for _, t := range list {
		items = append(items, tournamentDTO{
			ID:           t.ID,
			Slug:         t.Slug,
			Name:         t.Name,
			City:         t.City,
			AddrState:    t.AddrState,
			CountryCode:  t.CountryCode,
			StartAt:      t.StartAt,
			EndAt:        t.EndAt,
			NumAttendees: t.NumAttendees,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type seriesCandidateDTO struct {
	Key            string   `json:"key"`
	Names          []string `json:"names"`
	Slugs          []string `json:"slugs"`
	EventCount     int      `json:"event_count"`
	TotalAttendees int      `json:"total_attendees"`
	MaxAttendees   int      `json:"max_attendees"`
	FirstStartAt   int64    `json:"first_start_at"`
	LastStartAt    int64    `json:"last_start_at"`
	TournamentIDs  []int64  `json:"tournament_ids"`
}

func seriesToDTO(c series.Candidate) seriesCandidateDTO {
	return seriesCandidateDTO{
		Key:            c.Key,
		Names:          c.Names,
		Slugs:          c.Slugs,
		EventCount:     c.EventCount,
		TotalAttendees: c.TotalAttendees,
		MaxAttendees:   c.MaxAttendees,
		FirstStartAt:   c.FirstStartAt,
		LastStartAt:    c.LastStartAt,
		TournamentIDs:  c.TournamentIDs,
	}
}

func (h *Handler) ListSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSeries")
	defer span.End()

	params := usecase.SeriesRankParams{
		AddrState: r.URL.Query().Get("state"),
	}

	var err error
	if params.VideogameID, err = queryInt(r, "videogame_id", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if params.MonthsBack, err = queryInt(r, "months_back", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if params.TopN, err = queryInt(r, "top_n", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if params.MinMaxAttendees, err = queryInt(r, "min_attendees", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if params.MinEventCount, err = queryInt(r, "min_events", 0); err != nil {
		writeError(ctx, w, err)
		return
	}

	cacheKey := fmt.Sprintf("series:%s:%d:%d:%d:%d:%d",
		strings.ToUpper(strings.TrimSpace(params.AddrState)),
		params.VideogameID, params.MonthsBack, params.TopN, params.MinMaxAttendees, params.MinEventCount)
	rows, err := h.cachedLoad(ctx, cacheKey, func(ctx context.Context) (any, error) {
		return h.seriesService.RankSeries(ctx, params)
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list series failed", "state", params.AddrState, "error", err)
		writeError(ctx, w, err)
		return
	}

	list := rows.([]series.Candidate)
	items := make([]seriesCandidateDTO, 0, len(list))
	for _, c := range list {
		items = append(items, seriesToDTO(c))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type recomputeMetricsRequest struct {
	State            string   `json:"state" validate:"required,len=2,alpha"`
	VideogameID      int      `json:"videogame_id" validate:"omitempty,min=1"`
	MonthsBack       int      `json:"months_back" validate:"omitempty,min=1,max=24"`
	TargetCharacter  string   `json:"target_character" validate:"omitempty,max=64"`
	AssumeTargetMain bool     `json:"assume_target_main"`
	AutoSeries       bool     `json:"auto_series"`
	SeriesTopN       int      `json:"series_top_n" validate:"omitempty,min=1,max=100"`
	NameContains     []string `json:"name_contains" validate:"omitempty,dive,required"`
	SlugContains     []string `json:"slug_contains" validate:"omitempty,dive,required"`
}

type pipelineSummaryDTO struct {
	State       string `json:"state"`
	Tournaments int    `json:"tournaments"`
	Players     int    `json:"players"`
	Series      int    `json:"series"`
	DurationMS  int64  `json:"duration_ms"`
}

func (h *Handler) RecomputeMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecomputeMetrics")
	defer span.End()

	var req recomputeMetricsRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.pipelineService.PrecomputeRegion(ctx, usecase.PipelineParams{
		Filter: tournament.Filter{
			AddrState:    req.State,
			VideogameID:  req.VideogameID,
			MonthsBack:   req.MonthsBack,
			NameContains: req.NameContains,
			SlugContains: req.SlugContains,
		},
		TargetCharacter:  req.TargetCharacter,
		AssumeTargetMain: req.AssumeTargetMain,
		AutoSeries:       req.AutoSeries,
		SeriesTopN:       req.SeriesTopN,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "recompute metrics failed", "state", req.State, "error", err)
		writeError(ctx, w, err)
		return
	}

	if h.readCache != nil {
		h.readCache.DeletePrefix(ctx, "metrics:"+summary.AddrState)
		h.readCache.DeletePrefix(ctx, "series:"+summary.AddrState)
	}

	writeSuccess(ctx, w, http.StatusOK, pipelineSummaryDTO{
		State:       summary.AddrState,
		Tournaments: summary.Tournaments,
		Players:     summary.Players,
		Series:      summary.Series,
		DurationMS:  summary.Duration.Milliseconds(),
	})
}

// cachedLoad serves read endpoints through the in-process TTL cache when one
// is configured. Errors are never cached.
func (h *Handler) cachedLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if h.readCache == nil {
		return loader(ctx)
	}
	return h.readCache.GetOrLoad(ctx, key, loader)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: query parameter %q must be an integer", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func queryTerms(r *http.Request, name string) []string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		if term := strings.TrimSpace(part); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
