package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brackethq/circuit-metrics/internal/domain/series"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
)

const defaultDiscoveryStaleAfter = 7 * 24 * time.Hour

// DiscoveryService keeps the local tournament mirror in sync with the
// provider and answers window queries from it.
type DiscoveryService struct {
	tournaments tournament.Repository
	matches     series.Repository
	remote      RemoteDataSource

	staleAfter time.Duration
	logger     *logging.Logger
	now        func() time.Time
}

func NewDiscoveryService(
	tournaments tournament.Repository,
	matches series.Repository,
	remote RemoteDataSource,
	staleAfter time.Duration,
	logger *logging.Logger,
) *DiscoveryService {
	if staleAfter <= 0 {
		staleAfter = defaultDiscoveryStaleAfter
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DiscoveryService{
		tournaments: tournaments,
		matches:     matches,
		remote:      remote,
		staleAfter:  staleAfter,
		logger:      logger,
		now:         time.Now,
	}
}

// DiscoverTournaments returns the scope's tournaments inside the filter
// window, newest first. Fresh, fully-covered scopes are served from cache;
// otherwise only the span past the latest cached start is fetched and merged
// in, with remote rows winning ID collisions. Without a remote source the
// cache is served regardless of age, and an empty cache is an error.
func (s *DiscoveryService) DiscoverTournaments(ctx context.Context, filter tournament.Filter) ([]tournament.Tournament, error) {
	ctx, span := startUsecaseSpan(ctx, "DiscoveryService.DiscoverTournaments")
	defer span.End()

	filter = filter.Normalize()
	if filter.AddrState == "" {
		return nil, fmt.Errorf("%w: addr state is required", ErrInvalidInput)
	}
	if filter.VideogameID <= 0 {
		return nil, fmt.Errorf("%w: videogame id is required", ErrInvalidInput)
	}

	windowStart, windowEnd := filter.WindowBounds(s.now())
	if windowStart > windowEnd {
		return nil, fmt.Errorf("%w: window start is after window end", ErrInvalidInput)
	}

	cached, err := s.tournaments.ListWindow(ctx, filter.AddrState, filter.VideogameID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list cached tournaments: %w", err)
	}

	if s.remote == nil {
		if len(cached) == 0 {
			return nil, fmt.Errorf("%w: no cached tournaments for state=%s videogame=%d", ErrInsufficientOfflineData, filter.AddrState, filter.VideogameID)
		}
		return s.filterByTerms(ctx, filter, cached), nil
	}

	lastSynced, marked, err := s.tournaments.DiscoveryLastSynced(ctx, filter.AddrState, filter.VideogameID)
	if err != nil {
		return nil, fmt.Errorf("load discovery mark: %w", err)
	}
	coverage, err := s.tournaments.Coverage(ctx, filter.AddrState, filter.VideogameID)
	if err != nil {
		return nil, fmt.Errorf("load coverage: %w", err)
	}

	fresh := marked && s.now().Sub(lastSynced) < s.staleAfter
	covered := coverage.Count > 0 && coverage.EarliestStart <= windowStart && coverage.LatestStart >= windowEnd
	if fresh && covered {
		return s.filterByTerms(ctx, filter, cached), nil
	}

	// Delta fetch: once the window head is cached, only the span at or past
	// the newest cached start needs refetching.
	fetchStart := windowStart
	if coverage.Count > 0 && coverage.EarliestStart <= windowStart && coverage.LatestStart > fetchStart {
		fetchStart = coverage.LatestStart
	}

	fetched, fetchErr := s.remote.DiscoverTournaments(ctx, filter, fetchStart, windowEnd)

	// The attempt is recorded whether or not it succeeded, so a flaky scope
	// does not get hammered on every query.
	if markErr := s.tournaments.MarkDiscovery(ctx, filter.AddrState, filter.VideogameID, s.now()); markErr != nil {
		s.logger.WarnContext(ctx, "record discovery mark failed", "state", filter.AddrState, "error", markErr)
	}

	if fetchErr != nil {
		if len(cached) > 0 {
			s.logger.WarnContext(ctx, "tournament fetch failed, serving stale cache", "state", filter.AddrState, "error", fetchErr)
			return s.filterByTerms(ctx, filter, cached), nil
		}
		return nil, fmt.Errorf("discover tournaments state=%s: %w", filter.AddrState, fetchErr)
	}

	for i := range fetched {
		if fetched[i].AddrState == "" {
			fetched[i].AddrState = filter.AddrState
		}
		fetched[i].VideogameID = filter.VideogameID
	}

	if len(fetched) > 0 {
		if err := s.tournaments.Upsert(ctx, fetched); err != nil {
			return nil, fmt.Errorf("persist tournaments: %w", err)
		}
	}

	return s.filterByTerms(ctx, filter, mergeTournaments(cached, fetched)), nil
}

// mergeTournaments combines cached and fetched rows by ID, fetched rows
// winning, newest first.
func mergeTournaments(cached, fetched []tournament.Tournament) []tournament.Tournament {
	byID := make(map[int64]tournament.Tournament, len(cached)+len(fetched))
	for _, t := range cached {
		byID[t.ID] = t
	}
	for _, t := range fetched {
		byID[t.ID] = t
	}

	out := make([]tournament.Tournament, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartAt != out[j].StartAt {
			return out[i].StartAt > out[j].StartAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// filterByTerms applies the filter's substring terms to the result, whatever
// it was served from. Tournaments with a recorded match covering an active
// term pass without rescanning; fresh matches are recorded for the next
// query. Side-table failures degrade to recomputation, never to an error.
func (s *DiscoveryService) filterByTerms(ctx context.Context, filter tournament.Filter, list []tournament.Tournament) []tournament.Tournament {
	if len(filter.NameContains) == 0 && len(filter.SlugContains) == 0 {
		return list
	}
	recorded := s.recordedMatches(ctx)

	out := make([]tournament.Tournament, 0, len(list))
	fresh := make([]series.Match, 0, len(list))
	for _, t := range list {
		if m, ok := recorded[t.ID]; ok && matchCovers(m, filter) {
			out = append(out, t)
			continue
		}
		names, slugs := filter.MatchedTerms(t)
		if len(names) == 0 && len(slugs) == 0 {
			continue
		}
		out = append(out, t)
		fresh = append(fresh, series.Match{
			TournamentID: t.ID,
			NameTerms:    names,
			SlugTerms:    slugs,
		})
	}

	if s.matches != nil && len(fresh) > 0 {
		if err := s.matches.SaveMatches(ctx, fresh); err != nil {
			s.logger.WarnContext(ctx, "record series matches failed", "state", filter.AddrState, "error", err)
		}
	}
	return out
}

func (s *DiscoveryService) recordedMatches(ctx context.Context) map[int64]series.Match {
	if s.matches == nil {
		return nil
	}
	stored, err := s.matches.ListMatches(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "load recorded series matches failed", "error", err)
		return nil
	}
	byID := make(map[int64]series.Match, len(stored))
	for _, m := range stored {
		byID[m.TournamentID] = m
	}
	return byID
}

// matchCovers reports whether a recorded match already answers one of the
// filter's active terms.
func matchCovers(m series.Match, filter tournament.Filter) bool {
	for _, term := range filter.NameContains {
		for _, rec := range m.NameTerms {
			if strings.EqualFold(rec, term) {
				return true
			}
		}
	}
	for _, term := range filter.SlugContains {
		for _, rec := range m.SlugTerms {
			if strings.EqualFold(rec, term) {
				return true
			}
		}
	}
	return false
}
