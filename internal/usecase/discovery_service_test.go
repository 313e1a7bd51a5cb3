package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brackethq/circuit-metrics/internal/domain/series"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

type stubTournamentRepo struct {
	rows       []tournament.Tournament
	coverage   tournament.Coverage
	lastSynced time.Time
	marked     bool

	upserted  [][]tournament.Tournament
	markCalls []time.Time
}

func (s *stubTournamentRepo) Upsert(_ context.Context, rows []tournament.Tournament) error {
	s.upserted = append(s.upserted, rows)
	return nil
}

func (s *stubTournamentRepo) ListWindow(_ context.Context, _ string, _ int, startAt, endAt int64) ([]tournament.Tournament, error) {
	out := make([]tournament.Tournament, 0, len(s.rows))
	for _, t := range s.rows {
		if t.StartAt >= startAt && t.StartAt <= endAt {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTournamentRepo) Coverage(_ context.Context, _ string, _ int) (tournament.Coverage, error) {
	return s.coverage, nil
}

func (s *stubTournamentRepo) DiscoveryLastSynced(_ context.Context, _ string, _ int) (time.Time, bool, error) {
	return s.lastSynced, s.marked, nil
}

func (s *stubTournamentRepo) MarkDiscovery(_ context.Context, _ string, _ int, at time.Time) error {
	s.markCalls = append(s.markCalls, at)
	return nil
}

type stubSeriesRepo struct {
	saved [][]series.Match
}

func (s *stubSeriesRepo) SaveMatches(_ context.Context, matches []series.Match) error {
	s.saved = append(s.saved, matches)
	return nil
}

func (s *stubSeriesRepo) ListMatches(_ context.Context) ([]series.Match, error) {
	var out []series.Match
	for _, batch := range s.saved {
		out = append(out, batch...)
	}
	return out, nil
}

type stubDiscoveryRemote struct {
	stubRemote

	tournaments []tournament.Tournament
	err         error

	calls    int
	gotStart int64
	gotEnd   int64
}

func (s *stubDiscoveryRemote) DiscoverTournaments(_ context.Context, _ tournament.Filter, windowStart, windowEnd int64) ([]tournament.Tournament, error) {
	s.calls++
	s.gotStart = windowStart
	s.gotEnd = windowEnd
	return s.tournaments, s.err
}

func discoveryNow() time.Time { return time.Unix(1_760_000_000, 0) }

func discoveryFilter() tournament.Filter {
	return tournament.Filter{AddrState: "ga", VideogameID: 1386}
}

func newDiscoveryService(repo *stubTournamentRepo, matches *stubSeriesRepo, remote RemoteDataSource) *DiscoveryService {
	svc := NewDiscoveryService(repo, matches, remote, 7*24*time.Hour, nil)
	svc.now = discoveryNow
	return svc
}

func TestDiscoverTournaments_OfflineEmptyCacheFails(t *testing.T) {
	t.Parallel()

	svc := newDiscoveryService(&stubTournamentRepo{}, &stubSeriesRepo{}, nil)

	_, err := svc.DiscoverTournaments(context.Background(), discoveryFilter())
	if !errors.Is(err, ErrInsufficientOfflineData) {
		t.Fatalf("err=%v want ErrInsufficientOfflineData", err)
	}
}

func TestDiscoverTournaments_OfflineServesCacheRegardlessOfAge(t *testing.T) {
	t.Parallel()

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			{ID: 1, Name: "The Runback 12", StartAt: discoveryNow().Unix() - 1000},
		},
	}
	svc := newDiscoveryService(repo, &stubSeriesRepo{}, nil)

	got, err := svc.DiscoverTournaments(context.Background(), discoveryFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("got=%v want cached row", got)
	}
}

func TestDiscoverTournaments_FreshCoveredScopeSkipsRemote(t *testing.T) {
	t.Parallel()

	now := discoveryNow()
	filter := discoveryFilter().Normalize()
	windowStart, windowEnd := filter.WindowBounds(now)

	repo := &stubTournamentRepo{
		rows:       []tournament.Tournament{{ID: 1, StartAt: now.Unix() - 100}},
		coverage:   tournament.Coverage{Count: 1, EarliestStart: windowStart - 1, LatestStart: windowEnd},
		marked:     true,
		lastSynced: now.Add(-time.Hour),
	}
	remote := &stubDiscoveryRemote{}
	svc := newDiscoveryService(repo, &stubSeriesRepo{}, remote)

	got, err := svc.DiscoverTournaments(context.Background(), discoveryFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("remote calls=%d want=0 for fresh covered scope", remote.calls)
	}
	if len(got) != 1 {
		t.Fatalf("got=%d rows want cached row", len(got))
	}
	if len(repo.markCalls) != 0 {
		t.Fatal("no discovery mark expected when serving from cache")
	}
}

func TestDiscoverTournaments_StaleScopeFetchesDeltaAndMerges(t *testing.T) {
	t.Parallel()

	now := discoveryNow()
	filter := discoveryFilter().Normalize()
	windowStart, _ := filter.WindowBounds(now)

	latestCached := now.Unix() - 5000
	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			{ID: 1, Name: "old name", StartAt: latestCached},
			{ID: 2, StartAt: latestCached - 100},
		},
		coverage:   tournament.Coverage{Count: 2, EarliestStart: windowStart - 1, LatestStart: latestCached},
		marked:     true,
		lastSynced: now.Add(-30 * 24 * time.Hour),
	}
	remote := &stubDiscoveryRemote{
		tournaments: []tournament.Tournament{
			{ID: 1, Name: "new name", StartAt: latestCached},
			{ID: 3, StartAt: now.Unix() - 10},
		},
	}
	svc := newDiscoveryService(repo, &stubSeriesRepo{}, remote)

	got, err := svc.DiscoverTournaments(context.Background(), discoveryFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if remote.gotStart != latestCached {
		t.Fatalf("fetch start=%d want latest cached start %d", remote.gotStart, latestCached)
	}
	if len(repo.markCalls) != 1 {
		t.Fatalf("mark calls=%d want=1", len(repo.markCalls))
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upsert batches=%d want=1", len(repo.upserted))
	}

	if len(got) != 3 {
		t.Fatalf("merged rows=%d want=3", len(got))
	}
	if got[0].ID != 3 {
		t.Fatalf("first row=%d want newest first", got[0].ID)
	}
	for _, row := range got {
		if row.ID == 1 && row.Name != "new name" {
			t.Fatalf("row 1 name=%q: fetched rows must win ID collisions", row.Name)
		}
	}
}

func TestDiscoverTournaments_FetchFailureServesStaleCacheAndMarks(t *testing.T) {
	t.Parallel()

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{{ID: 1, StartAt: discoveryNow().Unix() - 100}},
	}
	remote := &stubDiscoveryRemote{err: errors.New("remote down")}
	svc := newDiscoveryService(repo, &stubSeriesRepo{}, remote)

	got, err := svc.DiscoverTournaments(context.Background(), discoveryFilter())
	if err != nil {
		t.Fatalf("stale cache should be served, got error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got=%d rows want stale cache", len(got))
	}
	if len(repo.markCalls) != 1 {
		t.Fatal("failed attempts must still record the discovery mark")
	}
}

func TestDiscoverTournaments_FetchFailureEmptyCacheFails(t *testing.T) {
	t.Parallel()

	remote := &stubDiscoveryRemote{err: errors.New("remote down")}
	svc := newDiscoveryService(&stubTournamentRepo{}, &stubSeriesRepo{}, remote)

	_, err := svc.DiscoverTournaments(context.Background(), discoveryFilter())
	if err == nil {
		t.Fatal("expected error when fetch fails with nothing cached")
	}
}

func TestDiscoverTournaments_FilterTermsRecordMatches(t *testing.T) {
	t.Parallel()

	now := discoveryNow()
	remote := &stubDiscoveryRemote{
		tournaments: []tournament.Tournament{
			{ID: 1, Name: "The Runback 12", Slug: "tournament/the-runback-12", StartAt: now.Unix() - 10},
			{ID: 2, Name: "Smash Night", Slug: "tournament/smash-night", StartAt: now.Unix() - 20},
		},
	}
	matches := &stubSeriesRepo{}
	svc := newDiscoveryService(&stubTournamentRepo{}, matches, remote)

	filter := discoveryFilter()
	filter.NameContains = []string{"runback"}

	got, err := svc.DiscoverTournaments(context.Background(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("got=%v want only the matching tournament", got)
	}
	if len(matches.saved) != 1 || len(matches.saved[0]) != 1 {
		t.Fatalf("saved matches=%v want one match record", matches.saved)
	}
	if matches.saved[0][0].TournamentID != 1 {
		t.Fatalf("match tournament=%d want=1", matches.saved[0][0].TournamentID)
	}

	_, err = svc.DiscoverTournaments(context.Background(), tournament.Filter{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput for missing state", err)
	}
}

func TestDiscoverTournaments_FreshCacheStillRecordsMatches(t *testing.T) {
	t.Parallel()

	now := discoveryNow()
	filter := discoveryFilter().Normalize()
	windowStart, windowEnd := filter.WindowBounds(now)

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			{ID: 1, Name: "The Runback 12", Slug: "tournament/the-runback-12", StartAt: now.Unix() - 10},
			{ID: 2, Name: "Frame Perfect 3", Slug: "tournament/frame-perfect-3", StartAt: now.Unix() - 20},
		},
		coverage:   tournament.Coverage{Count: 2, EarliestStart: windowStart - 1, LatestStart: windowEnd},
		marked:     true,
		lastSynced: now.Add(-time.Hour),
	}
	matches := &stubSeriesRepo{}
	remote := &stubDiscoveryRemote{}
	svc := newDiscoveryService(repo, matches, remote)

	query := discoveryFilter()
	query.NameContains = []string{"runback"}

	got, err := svc.DiscoverTournaments(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("remote calls=%d want=0 for fresh covered scope", remote.calls)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("got=%v want only the matching tournament", got)
	}
	if len(matches.saved) != 1 || len(matches.saved[0]) != 1 || matches.saved[0][0].TournamentID != 1 {
		t.Fatalf("saved matches=%v want the cached hit recorded", matches.saved)
	}
}

func TestDiscoverTournaments_RecordedMatchesAnswerWithoutRescan(t *testing.T) {
	t.Parallel()

	now := discoveryNow()
	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			// Renamed since the match was recorded; the record still answers.
			{ID: 1, Name: "TR Finale", Slug: "tournament/tr-finale", StartAt: now.Unix() - 10},
		},
	}
	matches := &stubSeriesRepo{
		saved: [][]series.Match{{{TournamentID: 1, NameTerms: []string{"runback"}}}},
	}
	svc := newDiscoveryService(repo, matches, nil)

	filter := discoveryFilter()
	filter.NameContains = []string{"runback"}

	got, err := svc.DiscoverTournaments(context.Background(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("got=%v want the recorded match honored", got)
	}
	if len(matches.saved) != 1 {
		t.Fatalf("saved batches=%d want no re-record for a reused match", len(matches.saved))
	}
}
