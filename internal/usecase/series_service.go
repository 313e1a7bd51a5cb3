package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/series"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
)

var (
	slugSuffixRegex = regexp.MustCompile(`-?(week|wk|weekly|monthly|month|vol|volume)?-?\d+$`)
	nameSuffixRegex = regexp.MustCompile(`\s*(week|wk|weekly|monthly|month|vol|volume)\s*\.?\s*#?\d+$`)
	hyphenRunRegex  = regexp.MustCompile(`-{2,}`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// SeriesRankParams scopes one series ranking run.
type SeriesRankParams struct {
	AddrState   string
	VideogameID int
	MonthsBack  int

	TopN            int
	MinMaxAttendees int
	MinEventCount   int
}

func (p SeriesRankParams) normalize() SeriesRankParams {
	p.AddrState = strings.ToUpper(strings.TrimSpace(p.AddrState))
	if p.MonthsBack <= 0 {
		p.MonthsBack = tournament.DefaultMonthsBack
	}
	if p.TopN <= 0 {
		p.TopN = 10
	}
	if p.MinMaxAttendees <= 0 {
		p.MinMaxAttendees = 64
	}
	if p.MinEventCount <= 0 {
		p.MinEventCount = 3
	}
	return p
}

// SeriesService groups cached tournaments into recurring series and ranks
// them by the singles events they ran for the target game. Missing event
// lists are fetched when a remote source is available; identical cache state
// yields identical output.
type SeriesService struct {
	tournaments tournament.Repository
	events      event.Repository
	remote      RemoteDataSource
	logger      *logging.Logger
	now         func() time.Time
}

func NewSeriesService(tournaments tournament.Repository, events event.Repository, remote RemoteDataSource, logger *logging.Logger) *SeriesService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SeriesService{
		tournaments: tournaments,
		events:      events,
		remote:      remote,
		logger:      logger,
		now:         time.Now,
	}
}

// RankSeries detects recurring series among cached tournaments and returns
// them ranked. Selection is the top N by rank plus every series clearing the
// attendance or recurrence thresholds; selected series keep rank order.
func (s *SeriesService) RankSeries(ctx context.Context, params SeriesRankParams) ([]series.Candidate, error) {
	ctx, span := startUsecaseSpan(ctx, "SeriesService.RankSeries")
	defer span.End()

	params = params.normalize()
	if params.AddrState == "" {
		return nil, fmt.Errorf("%w: addr state is required", ErrInvalidInput)
	}

	filter := tournament.Filter{
		AddrState:   params.AddrState,
		VideogameID: params.VideogameID,
		MonthsBack:  params.MonthsBack,
	}
	windowStart, windowEnd := filter.WindowBounds(s.now())
	cached, err := s.tournaments.ListWindow(ctx, params.AddrState, params.VideogameID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list cached tournaments: %w", err)
	}
	if len(cached) == 0 {
		return nil, fmt.Errorf("%w: no cached tournaments for state=%s", ErrInsufficientOfflineData, params.AddrState)
	}

	byKey := make(map[string]*series.Candidate)
	keys := make([]string, 0)
	for _, t := range cached {
		matching, err := s.matchingEvents(ctx, t, params.VideogameID)
		if err != nil {
			return nil, err
		}
		if len(matching) == 0 {
			continue
		}

		key := seriesKey(t)
		cand, ok := byKey[key]
		if !ok {
			cand = &series.Candidate{Key: key}
			byKey[key] = cand
			keys = append(keys, key)
		}

		cand.EventCount += len(matching)
		for _, ev := range matching {
			cand.TotalAttendees += ev.NumEntrants
			if ev.NumEntrants > cand.MaxAttendees {
				cand.MaxAttendees = ev.NumEntrants
			}
		}
		if cand.FirstStartAt == 0 || t.StartAt < cand.FirstStartAt {
			cand.FirstStartAt = t.StartAt
		}
		if t.StartAt > cand.LastStartAt {
			cand.LastStartAt = t.StartAt
		}
		cand.TournamentIDs = append(cand.TournamentIDs, t.ID)
		appendUnique(&cand.Names, t.Name)
		appendUnique(&cand.Slugs, slugTail(t.Slug))
	}

	ranked := make([]series.Candidate, 0, len(byKey))
	for _, key := range keys {
		ranked = append(ranked, *byKey[key])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalAttendees != b.TotalAttendees {
			return a.TotalAttendees > b.TotalAttendees
		}
		if a.EventCount != b.EventCount {
			return a.EventCount > b.EventCount
		}
		if a.MaxAttendees != b.MaxAttendees {
			return a.MaxAttendees > b.MaxAttendees
		}
		return a.Key > b.Key
	})

	selected := make([]series.Candidate, 0, params.TopN)
	for rank, cand := range ranked {
		if rank < params.TopN ||
			cand.MaxAttendees >= params.MinMaxAttendees ||
			cand.EventCount >= params.MinEventCount {
			selected = append(selected, cand)
		}
	}
	return selected, nil
}

// matchingEvents returns the tournament's singles events for the game,
// resolving a never-fetched event list against the remote source. Offline,
// an unfetched tournament contributes nothing rather than guessing.
func (s *SeriesService) matchingEvents(ctx context.Context, t tournament.Tournament, videogameID int) ([]event.Event, error) {
	list, err := resolveEventList(ctx, s.events, s.remote, s.logger, t.ID)
	if err != nil {
		return nil, err
	}
	out := make([]event.Event, 0, len(list))
	for _, ev := range list {
		if ev.IsSingles() && (videogameID <= 0 || ev.VideogameID == videogameID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// seriesKey normalizes a tournament to its series identity: slug tail with
// recurrence suffixes stripped, else normalized name, else the raw ID.
func seriesKey(t tournament.Tournament) string {
	if term := slugTerm(t.Slug); term != "" {
		return term
	}
	if term := nameTerm(t.Name); term != "" {
		return term
	}
	return strconv.FormatInt(t.ID, 10)
}

func slugTail(slug string) string {
	if idx := strings.LastIndex(slug, "/"); idx >= 0 {
		slug = slug[idx+1:]
	}
	return strings.ToLower(slug)
}

func slugTerm(slug string) string {
	term := slugTail(slug)
	term = slugSuffixRegex.ReplaceAllString(term, "")
	term = hyphenRunRegex.ReplaceAllString(term, "-")
	return strings.Trim(term, "-")
}

func nameTerm(name string) string {
	term := strings.ToLower(strings.TrimSpace(name))
	term = whitespaceRegex.ReplaceAllString(term, " ")
	term = nameSuffixRegex.ReplaceAllString(term, "")
	return strings.TrimSpace(term)
}

func appendUnique(list *[]string, value string) {
	if value == "" {
		return
	}
	for _, existing := range *list {
		if existing == value {
			return
		}
	}
	*list = append(*list, value)
}
