package usecase

import (
	"testing"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/results"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

func singlesEntrant(entrantID, playerID int64, tag string) *event.Entrant {
	return &event.Entrant{
		ID:   entrantID,
		Name: tag,
		Participants: []event.Participant{
			{Player: &event.Player{ID: playerID, GamerTag: tag}},
		},
	}
}

func testTournament() tournament.Tournament {
	return tournament.Tournament{ID: 900, Name: "The Runback", AddrState: "GA"}
}

func testEvent() event.Event {
	return event.Event{ID: 77, Name: "Melee Singles", StartAt: 1_700_000_000, NumEntrants: 2}
}

func TestBuildPlayerEventResults_JoinsSeedsStandingsAndSets(t *testing.T) {
	t.Parallel()

	alice := singlesEntrant(1, 101, "alice")
	bob := singlesEntrant(2, 102, "bob")
	winner := int64(1)

	bundle := event.Bundle{
		Seeds: []event.Seed{
			{SeedNum: 1, Entrant: alice},
			{SeedNum: 2, Entrant: bob},
		},
		Standings: []event.Standing{
			{Placement: 1, Entrant: alice},
			{Placement: 2, Entrant: bob},
		},
		Sets: []event.Set{
			{
				ID:            "set-1",
				WinnerID:      &winner,
				FullRoundText: "Grand Final",
				Slots: []event.Slot{
					{Entrant: alice},
					{Entrant: bob},
				},
			},
		},
	}

	got := BuildPlayerEventResults(testTournament(), testEvent(), bundle)
	if len(got) != 2 {
		t.Fatalf("records=%d want=2", len(got))
	}

	aliceRec := got[0]
	if aliceRec.PlayerID != 101 {
		t.Fatalf("records must be ordered by player id, got %d first", aliceRec.PlayerID)
	}
	if aliceRec.Seed == nil || *aliceRec.Seed != 1 {
		t.Fatalf("alice seed=%v want=1", aliceRec.Seed)
	}
	if aliceRec.Placement == nil || *aliceRec.Placement != 1 {
		t.Fatalf("alice placement=%v want=1", aliceRec.Placement)
	}
	if len(aliceRec.Sets) != 1 {
		t.Fatalf("alice sets=%d want=1", len(aliceRec.Sets))
	}
	set := aliceRec.Sets[0]
	if set.Outcome != results.OutcomeWin {
		t.Fatalf("alice outcome=%v want win", set.Outcome)
	}
	if set.OpponentTag != "bob" {
		t.Fatalf("opponent tag=%q want bob", set.OpponentTag)
	}
	if set.RoundLabel != "Grand Final" {
		t.Fatalf("round label=%q", set.RoundLabel)
	}
	if set.OpponentSeed == nil || *set.OpponentSeed != 2 {
		t.Fatalf("opponent seed=%v want=2", set.OpponentSeed)
	}

	bobRec := got[1]
	if bobRec.Sets[0].Outcome != results.OutcomeLoss {
		t.Fatalf("bob outcome=%v want loss", bobRec.Sets[0].Outcome)
	}
	if bobRec.Region != "GA" {
		t.Fatalf("region=%q want GA", bobRec.Region)
	}
}

func TestBuildPlayerEventResults_UnreportedWinnerStaysUnknown(t *testing.T) {
	t.Parallel()

	bundle := event.Bundle{
		Sets: []event.Set{
			{
				ID:    "set-1",
				Round: 3,
				Slots: []event.Slot{
					{Entrant: singlesEntrant(1, 101, "alice")},
					{Entrant: singlesEntrant(2, 102, "bob")},
				},
			},
		},
	}

	got := BuildPlayerEventResults(testTournament(), testEvent(), bundle)
	if len(got) != 2 {
		t.Fatalf("records=%d want=2", len(got))
	}
	for _, rec := range got {
		if rec.Sets[0].Outcome != results.OutcomeUnknown {
			t.Fatalf("outcome=%v want unknown", rec.Sets[0].Outcome)
		}
		if rec.Sets[0].Outcome.Decided() {
			t.Fatal("unknown outcome must not count as decided")
		}
		if rec.Sets[0].RoundLabel != "3" {
			t.Fatalf("round label=%q want numeric fallback", rec.Sets[0].RoundLabel)
		}
	}
}

func TestBuildPlayerEventResults_PlacementAloneNeverCreatesRecord(t *testing.T) {
	t.Parallel()

	bundle := event.Bundle{
		Standings: []event.Standing{
			{Placement: 5, Entrant: singlesEntrant(3, 103, "carol")},
		},
	}

	got := BuildPlayerEventResults(testTournament(), testEvent(), bundle)
	if len(got) != 0 {
		t.Fatalf("records=%d want=0: placements only enrich", len(got))
	}
}

func TestBuildPlayerEventResults_SkipsTeamsEntrants(t *testing.T) {
	t.Parallel()

	duo := &event.Entrant{
		ID:   4,
		Name: "duo",
		Participants: []event.Participant{
			{Player: &event.Player{ID: 104, GamerTag: "left"}},
			{Player: &event.Player{ID: 105, GamerTag: "right"}},
		},
	}
	winner := int64(4)
	bundle := event.Bundle{
		Seeds: []event.Seed{{SeedNum: 1, Entrant: duo}},
		Sets: []event.Set{
			{
				ID:       "set-1",
				WinnerID: &winner,
				Slots: []event.Slot{
					{Entrant: duo},
					{Entrant: singlesEntrant(5, 106, "solo")},
				},
			},
		},
	}

	got := BuildPlayerEventResults(testTournament(), testEvent(), bundle)
	if len(got) != 1 {
		t.Fatalf("records=%d want=1 (solo only)", len(got))
	}
	if got[0].PlayerID != 106 {
		t.Fatalf("player=%d want solo entrant's player", got[0].PlayerID)
	}
	// The duo still counts as an opponent for the solo player's set.
	if got[0].Sets[0].OpponentEntrantID != 4 {
		t.Fatalf("opponent entrant=%d want=4", got[0].Sets[0].OpponentEntrantID)
	}
}

func TestBuildPlayerEventResults_CharacterSelections(t *testing.T) {
	t.Parallel()

	alice := singlesEntrant(1, 101, "alice")
	bob := singlesEntrant(2, 102, "bob")
	winner := int64(1)

	bundle := event.Bundle{
		Sets: []event.Set{
			{
				ID:       "set-1",
				WinnerID: &winner,
				Slots:    []event.Slot{{Entrant: alice}, {Entrant: bob}},
				Games: []event.Game{
					{
						Selections: []event.Selection{
							{SelectionType: "CHARACTER", Entrant: alice, Character: &event.Character{ID: 1, Name: "Fox"}},
							{SelectionType: "character", Entrant: bob, Character: &event.Character{ID: 2, Name: "Marth"}},
						},
					},
					{
						Selections: []event.Selection{
							// Untyped selections still count as character picks.
							{Entrant: alice, Character: &event.Character{ID: 1, Name: "Fox"}},
							{SelectionType: "STAGE", Entrant: bob, Character: &event.Character{ID: 9, Name: "Battlefield"}},
						},
					},
				},
			},
		},
	}

	got := BuildPlayerEventResults(testTournament(), testEvent(), bundle)
	if len(got) != 2 {
		t.Fatalf("records=%d want=2", len(got))
	}

	aliceChars := got[0].Sets[0].Characters
	if len(aliceChars) != 1 || aliceChars[0] != "Fox" {
		t.Fatalf("alice characters=%v want deduped [Fox]", aliceChars)
	}
	bobChars := got[1].Sets[0].Characters
	if len(bobChars) != 1 || bobChars[0] != "Marth" {
		t.Fatalf("bob characters=%v want [Marth], stage picks ignored", bobChars)
	}
}
