package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

func seriesNow() time.Time { return time.Unix(1_760_000_000, 0) }

func newSeriesService(repo *stubTournamentRepo, events *stubEventRepo, remote RemoteDataSource) *SeriesService {
	svc := NewSeriesService(repo, events, remote, nil)
	svc.now = seriesNow
	return svc
}

func weeklyTournament(id int64, n int, attendees int) tournament.Tournament {
	return tournament.Tournament{
		ID:           id,
		Name:         "The Runback Weekly " + string(rune('0'+n)),
		Slug:         "tournament/the-runback-weekly-" + string(rune('0'+n)),
		AddrState:    "GA",
		StartAt:      seriesNow().Unix() - int64(n)*7*24*3600,
		NumAttendees: attendees,
		VideogameID:  1386,
	}
}

func seriesEvent(id, tournamentID int64, entrants int) event.Event {
	ev := singlesEvent(id, tournamentID, seriesNow().Unix())
	ev.NumEntrants = entrants
	return ev
}

func seedEvents(t *testing.T, repo *stubEventRepo, tournamentID int64, events ...event.Event) {
	t.Helper()
	if err := repo.SaveEvents(context.Background(), tournamentID, events); err != nil {
		t.Fatalf("seed events tournament_id=%d: %v", tournamentID, err)
	}
}

func TestRankSeries_GroupsRecurringTournaments(t *testing.T) {
	t.Parallel()

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			weeklyTournament(1, 1, 40),
			weeklyTournament(2, 2, 50),
			weeklyTournament(3, 3, 45),
			{
				ID: 9, Name: "One Off Regional", Slug: "tournament/one-off-regional",
				StartAt: seriesNow().Unix() - 100, NumAttendees: 200, VideogameID: 1386,
			},
		},
	}
	events := newStubEventRepo()
	seedEvents(t, events, 1, seriesEvent(11, 1, 40))
	seedEvents(t, events, 2, seriesEvent(12, 2, 50))
	seedEvents(t, events, 3, seriesEvent(13, 3, 45))
	seedEvents(t, events, 9, seriesEvent(19, 9, 200))
	svc := newSeriesService(repo, events, nil)

	got, err := svc.RankSeries(context.Background(), SeriesRankParams{AddrState: "GA", VideogameID: 1386})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("series=%d want=2", len(got))
	}

	// The one-off has more total attendance and ranks first.
	if got[0].EventCount != 1 || got[0].TotalAttendees != 200 {
		t.Fatalf("first series=%+v want the regional", got[0])
	}
	weekly := got[1]
	if weekly.EventCount != 3 {
		t.Fatalf("weekly event count=%d want=3", weekly.EventCount)
	}
	if weekly.TotalAttendees != 135 || weekly.MaxAttendees != 50 {
		t.Fatalf("weekly attendance=%d/%d want 135/50", weekly.TotalAttendees, weekly.MaxAttendees)
	}
	if len(weekly.TournamentIDs) != 3 {
		t.Fatalf("weekly tournaments=%v want 3 ids", weekly.TournamentIDs)
	}
	if weekly.FirstStartAt >= weekly.LastStartAt {
		t.Fatalf("first=%d last=%d want span", weekly.FirstStartAt, weekly.LastStartAt)
	}
}

func TestRankSeries_AggregatesPerEventNotPerTournament(t *testing.T) {
	t.Parallel()

	// Tournament attendance (100) must not leak into the totals; only the
	// singles events for the game count, per event.
	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{weeklyTournament(1, 1, 100)},
	}
	otherGame := seriesEvent(33, 1, 999)
	otherGame.VideogameID = 1
	events := newStubEventRepo()
	seedEvents(t, events, 1,
		seriesEvent(31, 1, 10),
		seriesEvent(32, 1, 20),
		otherGame,
	)
	svc := newSeriesService(repo, events, nil)

	got, err := svc.RankSeries(context.Background(), SeriesRankParams{AddrState: "GA", VideogameID: 1386})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("series=%d want=1", len(got))
	}
	cand := got[0]
	if cand.EventCount != 2 {
		t.Fatalf("event count=%d want=2", cand.EventCount)
	}
	if cand.TotalAttendees != 30 || cand.MaxAttendees != 20 {
		t.Fatalf("attendance=%d/%d want 30/20", cand.TotalAttendees, cand.MaxAttendees)
	}
}

func TestRankSeries_FetchesMissingEventLists(t *testing.T) {
	t.Parallel()

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			weeklyTournament(1, 1, 40),
			weeklyTournament(2, 2, 50),
		},
	}
	events := newStubEventRepo()
	seedEvents(t, events, 1, seriesEvent(11, 1, 40))
	// Tournament 2 was never checked; its list comes from the remote.
	remote := &stubRemote{
		events: map[int64][]event.Event{
			2: {seriesEvent(12, 2, 50)},
		},
	}
	svc := newSeriesService(repo, events, remote)

	got, err := svc.RankSeries(context.Background(), SeriesRankParams{AddrState: "GA", VideogameID: 1386})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("series=%d want=1", len(got))
	}
	if got[0].EventCount != 2 || got[0].TotalAttendees != 90 {
		t.Fatalf("series=%+v want both weeklies counted", got[0])
	}
	if len(remote.eventCalls) != 1 || remote.eventCalls[0] != 2 {
		t.Fatalf("remote event calls=%v want [2]", remote.eventCalls)
	}
	if _, ok := events.savedEvents[2]; !ok {
		t.Fatal("fetched event list should be recorded")
	}
}

func TestRankSeries_OfflineSkipsUnfetchedTournaments(t *testing.T) {
	t.Parallel()

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			weeklyTournament(1, 1, 40),
			weeklyTournament(2, 2, 50),
		},
	}
	events := newStubEventRepo()
	seedEvents(t, events, 1, seriesEvent(11, 1, 40))
	svc := newSeriesService(repo, events, nil)

	got, err := svc.RankSeries(context.Background(), SeriesRankParams{AddrState: "GA", VideogameID: 1386})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("series=%d want=1", len(got))
	}
	if got[0].EventCount != 1 || got[0].TotalAttendees != 40 {
		t.Fatalf("series=%+v: unchecked tournament must not count offline", got[0])
	}
}

func TestRankSeries_DeterministicAcrossRuns(t *testing.T) {
	t.Parallel()

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			weeklyTournament(1, 1, 40),
			weeklyTournament(2, 2, 40),
			{ID: 5, Name: "Frame Perfect 3", Slug: "tournament/frame-perfect-3",
				StartAt: seriesNow().Unix() - 50, NumAttendees: 80, VideogameID: 1386},
		},
	}
	events := newStubEventRepo()
	seedEvents(t, events, 1, seriesEvent(11, 1, 40))
	seedEvents(t, events, 2, seriesEvent(12, 2, 40))
	seedEvents(t, events, 5, seriesEvent(15, 5, 80))
	svc := newSeriesService(repo, events, nil)
	params := SeriesRankParams{AddrState: "GA", VideogameID: 1386}

	first, err := svc.RankSeries(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.RankSeries(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Fatalf("rank %d differs: %q vs %q", i, first[i].Key, second[i].Key)
		}
	}
}

func TestRankSeries_SelectionUnionKeepsRankOrder(t *testing.T) {
	t.Parallel()

	rows := []tournament.Tournament{
		// A big series that clears TopN on attendance.
		{ID: 1, Name: "Mega Major", Slug: "tournament/mega-major", StartAt: seriesNow().Unix() - 10, NumAttendees: 500, VideogameID: 1386},
		// A small weekly below TopN that clears the recurrence threshold.
		weeklyTournament(10, 1, 10),
		weeklyTournament(11, 2, 10),
		weeklyTournament(12, 3, 10),
		// A middling one-off that clears neither once TopN is 1.
		{ID: 20, Name: "Mid Monthly Bash", Slug: "tournament/mid-monthly-bash", StartAt: seriesNow().Unix() - 30, NumAttendees: 40, VideogameID: 1386},
	}
	events := newStubEventRepo()
	seedEvents(t, events, 1, seriesEvent(101, 1, 500))
	seedEvents(t, events, 10, seriesEvent(110, 10, 10))
	seedEvents(t, events, 11, seriesEvent(111, 11, 10))
	seedEvents(t, events, 12, seriesEvent(112, 12, 10))
	seedEvents(t, events, 20, seriesEvent(120, 20, 40))
	svc := newSeriesService(&stubTournamentRepo{rows: rows}, events, nil)

	got, err := svc.RankSeries(context.Background(), SeriesRankParams{
		AddrState:       "GA",
		VideogameID:     1386,
		TopN:            1,
		MinMaxAttendees: 100,
		MinEventCount:   3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("selected=%d want 2 (top 1 plus recurring weekly)", len(got))
	}
	if got[0].MaxAttendees != 500 {
		t.Fatalf("first selected=%+v want the major", got[0])
	}
	if got[1].EventCount != 3 {
		t.Fatalf("second selected=%+v want the weekly", got[1])
	}
}

func TestRankSeries_EmptyCacheFails(t *testing.T) {
	t.Parallel()

	svc := newSeriesService(&stubTournamentRepo{}, newStubEventRepo(), nil)

	_, err := svc.RankSeries(context.Background(), SeriesRankParams{AddrState: "GA"})
	if !errors.Is(err, ErrInsufficientOfflineData) {
		t.Fatalf("err=%v want ErrInsufficientOfflineData", err)
	}
}

func TestRankSeries_FetchedEmptyTournamentsDoNotCount(t *testing.T) {
	t.Parallel()

	events := newStubEventRepo()
	seedEvents(t, events, 1, seriesEvent(11, 1, 40))
	// Tournament 2's event list was fetched and is empty.
	seedEvents(t, events, 2)

	repo := &stubTournamentRepo{
		rows: []tournament.Tournament{
			weeklyTournament(1, 1, 40),
			weeklyTournament(2, 2, 50),
		},
	}
	svc := newSeriesService(repo, events, nil)

	got, err := svc.RankSeries(context.Background(), SeriesRankParams{AddrState: "GA", VideogameID: 1386})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("series=%d want=1", len(got))
	}
	if got[0].EventCount != 1 || got[0].TotalAttendees != 40 {
		t.Fatalf("series=%+v: fetched-empty tournament must not count", got[0])
	}
}

func TestSeriesKeyStripsRecurrenceSuffixes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slug string
		name string
		want string
	}{
		{slug: "tournament/the-runback-weekly-12", want: "the-runback"},
		{slug: "tournament/frame-perfect-vol-3", want: "frame-perfect"},
		{slug: "tournament/smash-night-45", want: "smash-night"},
		{slug: "", name: "Smash Night Weekly 45", want: "smash night"},
		{slug: "", name: "", want: "77"},
	}
	for _, tt := range tests {
		got := seriesKey(tournament.Tournament{ID: 77, Slug: tt.slug, Name: tt.name})
		if got != tt.want {
			t.Fatalf("seriesKey(slug=%q name=%q)=%q want=%q", tt.slug, tt.name, got, tt.want)
		}
	}
}
