package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/results"
)

func intp(v int) *int { return &v }

func metricsNow() time.Time { return time.Unix(1_700_000_000, 0) }

func decidedSet(win bool, oppSeed *int) results.SetRecord {
	outcome := results.OutcomeLoss
	if win {
		outcome = results.OutcomeWin
	}
	return results.SetRecord{Outcome: outcome, OpponentSeed: oppSeed}
}

func TestComputeMetrics_WeightedWinRateAndStrength(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(nil, nil)
	records := []results.PlayerEventResult{
		{
			PlayerID:     101,
			GamerTag:     "alice",
			EventStartAt: metricsNow().Unix(),
			NumEntrants:  32,
			Seed:         intp(3),
			Sets: []results.SetRecord{
				decidedSet(true, intp(1)),
				decidedSet(false, intp(2)),
			},
		},
	}

	got := svc.ComputeMetrics(records, MetricsOptions{Now: metricsNow()})
	if len(got) != 1 {
		t.Fatalf("players=%d want=1", len(got))
	}
	m := got[0]

	if m.Sets != 2 || m.Wins != 1 || m.Losses != 1 {
		t.Fatalf("sets/wins/losses=%d/%d/%d", m.Sets, m.Wins, m.Losses)
	}

	// Weight for seed 1 is 1, for seed 2 is 1/(1+log2(2)) = 0.5.
	wantRate := 1.0 / 1.5
	if m.WeightedWinRate == nil || math.Abs(*m.WeightedWinRate-wantRate) > 1e-9 {
		t.Fatalf("weighted win rate=%v want=%v", m.WeightedWinRate, wantRate)
	}
	wantStrength := 1.5 / 2
	if m.OpponentStrength == nil || math.Abs(*m.OpponentStrength-wantStrength) > 1e-9 {
		t.Fatalf("opponent strength=%v want=%v", m.OpponentStrength, wantStrength)
	}

	// Both wins and losses against better seeds: the single win over seed 1
	// from seed 3 is an upset.
	if m.UpsetRate == nil || *m.UpsetRate != 1 {
		t.Fatalf("upset rate=%v want=1", m.UpsetRate)
	}
	// Seed deltas: (1-3) and (2-3) average to -1.5.
	if m.AvgSeedDelta == nil || math.Abs(*m.AvgSeedDelta-(-1.5)) > 1e-9 {
		t.Fatalf("avg seed delta=%v want=-1.5", m.AvgSeedDelta)
	}
}

func TestComputeMetrics_NoDecidedSetsYieldsNilRates(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(nil, nil)
	records := []results.PlayerEventResult{
		{
			PlayerID: 101,
			Sets: []results.SetRecord{
				{Outcome: results.OutcomeUnknown},
			},
		},
	}

	got := svc.ComputeMetrics(records, MetricsOptions{Now: metricsNow()})
	m := got[0]
	if m.WeightedWinRate != nil {
		t.Fatalf("weighted win rate=%v want nil", m.WeightedWinRate)
	}
	if m.UpsetRate != nil {
		t.Fatalf("upset rate=%v want nil", m.UpsetRate)
	}
	if m.OpponentStrength == nil {
		t.Fatal("opponent strength should still average over all sets")
	}
}

func TestComputeMetrics_ActivityScoreBounded(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(nil, nil)
	sets := make([]results.SetRecord, 200)
	for i := range sets {
		sets[i] = decidedSet(true, intp(1))
	}
	records := make([]results.PlayerEventResult, 0, 50)
	for i := 0; i < 50; i++ {
		records = append(records, results.PlayerEventResult{
			PlayerID:     101,
			EventStartAt: metricsNow().Unix(),
			Sets:         sets,
		})
	}

	got := svc.ComputeMetrics(records, MetricsOptions{Now: metricsNow()})
	score := got[0].ActivityScore
	if score <= 0 || score >= 1 {
		t.Fatalf("activity score=%v want in (0, 1)", score)
	}

	stale := svc.ComputeMetrics([]results.PlayerEventResult{
		{PlayerID: 102, EventStartAt: metricsNow().Add(-365 * 24 * time.Hour).Unix()},
	}, MetricsOptions{Now: metricsNow(), WindowDays: 180})
	if stale[0].ActivityScore >= score {
		t.Fatal("stale inactive player should score below an active one")
	}
}

func TestComputeMetrics_OrderingPutsNilRatesLast(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(nil, nil)
	records := []results.PlayerEventResult{
		{PlayerID: 300, Sets: []results.SetRecord{{Outcome: results.OutcomeUnknown}}},
		{PlayerID: 100, Sets: []results.SetRecord{decidedSet(true, intp(1))}},
		{PlayerID: 200, Sets: []results.SetRecord{decidedSet(false, intp(1))}},
	}

	got := svc.ComputeMetrics(records, MetricsOptions{Now: metricsNow()})
	if len(got) != 3 {
		t.Fatalf("players=%d want=3", len(got))
	}
	if got[0].PlayerID != 100 || got[1].PlayerID != 200 || got[2].PlayerID != 300 {
		t.Fatalf("order=%d,%d,%d want winners first, nil rates last",
			got[0].PlayerID, got[1].PlayerID, got[2].PlayerID)
	}
}

func TestComputeMetrics_AssumeTargetMain(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(nil, nil)
	records := []results.PlayerEventResult{
		{
			PlayerID: 101,
			Sets: []results.SetRecord{
				decidedSet(true, intp(1)),
				decidedSet(false, intp(4)),
			},
		},
	}

	opts := MetricsOptions{TargetCharacter: "Fox", AssumeTargetMain: true, Now: metricsNow()}
	m := svc.ComputeMetrics(records, opts)[0]
	if m.CharacterUsageRate == nil || *m.CharacterUsageRate != 1 {
		t.Fatalf("usage rate=%v want=1 when assuming mains", m.CharacterUsageRate)
	}
	if m.CharacterWinRate == nil || *m.CharacterWinRate != 0.5 {
		t.Fatalf("character win rate=%v want=0.5", m.CharacterWinRate)
	}

	// With character data present the assumption must not apply.
	records[0].Sets[0].Characters = []string{"Marth"}
	m = svc.ComputeMetrics(records, opts)[0]
	if m.CharacterUsageRate == nil || *m.CharacterUsageRate != 0 {
		t.Fatalf("usage rate=%v want=0 with off-target data", m.CharacterUsageRate)
	}
}

func TestComputeMetrics_HomeRegion(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(nil, nil)

	withLocation := []results.PlayerEventResult{
		{PlayerID: 101, Region: "NC", Location: &event.Location{State: "GA"}},
		{PlayerID: 101, Region: "NC", Location: &event.Location{State: "GA"}},
		{PlayerID: 101, Region: "NC", Location: &event.Location{State: "SC"}},
	}
	m := svc.ComputeMetrics(withLocation, MetricsOptions{Now: metricsNow()})[0]
	if m.HomeRegion != "GA" || m.HomeRegionInferred {
		t.Fatalf("home=%q inferred=%v want GA from explicit locations", m.HomeRegion, m.HomeRegionInferred)
	}

	withoutLocation := []results.PlayerEventResult{
		{PlayerID: 101, Region: "NC"},
		{PlayerID: 101, Region: "NC"},
		{PlayerID: 101, Region: "GA"},
	}
	m = svc.ComputeMetrics(withoutLocation, MetricsOptions{Now: metricsNow()})[0]
	if m.HomeRegion != "NC" || !m.HomeRegionInferred {
		t.Fatalf("home=%q inferred=%v want inferred NC", m.HomeRegion, m.HomeRegionInferred)
	}
}

func TestOpponentWeightMonotone(t *testing.T) {
	t.Parallel()

	prev := opponentWeight(1)
	if prev != 1 {
		t.Fatalf("weight(1)=%v want=1", prev)
	}
	for rank := 2; rank <= 128; rank *= 2 {
		w := opponentWeight(rank)
		if w <= 0 || w >= prev {
			t.Fatalf("weight(%d)=%v must decrease and stay positive", rank, w)
		}
		prev = w
	}
}
