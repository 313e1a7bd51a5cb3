package usecase

import (
	"sort"
	"strconv"
	"strings"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/results"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

// BuildPlayerEventResults joins one event's seeds, standings and sets into
// per-player records. Only singles entrants (exactly one participant with a
// player ID) produce records, and a player appears only when they have at
// least one set or a seed. Placements and locations enrich whatever records
// exist; a placement alone never creates one.
func BuildPlayerEventResults(t tournament.Tournament, ev event.Event, bundle event.Bundle) []results.PlayerEventResult {
	seedByEntrant := make(map[int64]int)
	placementByEntrant := make(map[int64]int)
	locationByEntrant := make(map[int64]*event.Location)
	tagByEntrant := make(map[int64]string)

	records := make(map[int64]*results.PlayerEventResult)

	ensure := func(entrantID int64, player *event.Player) *results.PlayerEventResult {
		if rec, ok := records[entrantID]; ok {
			return rec
		}
		rec := &results.PlayerEventResult{
			PlayerID:       player.ID,
			GamerTag:       player.GamerTag,
			EntrantID:      entrantID,
			EventID:        ev.ID,
			EventName:      ev.Name,
			EventStartAt:   ev.StartAt,
			NumEntrants:    ev.NumEntrants,
			TournamentID:   t.ID,
			TournamentName: t.Name,
			Region:         t.AddrState,
		}
		records[entrantID] = rec
		return rec
	}

	for _, seed := range bundle.Seeds {
		if seed.Entrant == nil || seed.Entrant.ID <= 0 {
			continue
		}
		if seed.SeedNum > 0 {
			seedByEntrant[seed.Entrant.ID] = seed.SeedNum
		}
		noteEntrant(seed.Entrant, tagByEntrant, locationByEntrant)
		if player, ok := singlesPlayer(seed.Entrant); ok && seed.SeedNum > 0 {
			seedNum := seed.SeedNum
			ensure(seed.Entrant.ID, player).Seed = &seedNum
		}
	}

	for _, standing := range bundle.Standings {
		if standing.Entrant == nil || standing.Entrant.ID <= 0 {
			continue
		}
		if standing.Placement > 0 {
			placementByEntrant[standing.Entrant.ID] = standing.Placement
		}
		noteEntrant(standing.Entrant, tagByEntrant, locationByEntrant)
	}

	for _, set := range bundle.Sets {
		appendSetRecords(set, ensure, seedByEntrant, placementByEntrant, tagByEntrant)
	}

	out := make([]results.PlayerEventResult, 0, len(records))
	for entrantID, rec := range records {
		if placement, ok := placementByEntrant[entrantID]; ok {
			p := placement
			rec.Placement = &p
		}
		rec.Location = locationByEntrant[entrantID]
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].EntrantID < out[j].EntrantID
	})
	return out
}

// singlesPlayer extracts the sole player of a singles entrant.
func singlesPlayer(entrant *event.Entrant) (*event.Player, bool) {
	if entrant == nil || len(entrant.Participants) != 1 {
		return nil, false
	}
	player := entrant.Participants[0].Player
	if player == nil || player.ID <= 0 {
		return nil, false
	}
	return player, true
}

func noteEntrant(entrant *event.Entrant, tags map[int64]string, locations map[int64]*event.Location) {
	if entrant.Name != "" {
		tags[entrant.ID] = entrant.Name
	}
	for _, participant := range entrant.Participants {
		if participant.Player != nil && participant.Player.GamerTag != "" {
			tags[entrant.ID] = participant.Player.GamerTag
		}
		if participant.User != nil && participant.User.Location != nil {
			locations[entrant.ID] = participant.User.Location
		}
	}
}

func appendSetRecords(
	set event.Set,
	ensure func(int64, *event.Player) *results.PlayerEventResult,
	seedByEntrant map[int64]int,
	placementByEntrant map[int64]int,
	tagByEntrant map[int64]string,
) {
	for i, slot := range set.Slots {
		player, ok := singlesPlayer(slot.Entrant)
		if !ok {
			continue
		}
		entrantID := slot.Entrant.ID

		var opponent *event.Entrant
		for j, other := range set.Slots {
			if j == i || other.Entrant == nil || other.Entrant.ID <= 0 || other.Entrant.ID == entrantID {
				continue
			}
			if hasAnyPlayer(other.Entrant) {
				opponent = other.Entrant
				break
			}
		}
		if opponent == nil {
			continue
		}

		outcome := results.OutcomeUnknown
		if set.WinnerID != nil {
			if *set.WinnerID == entrantID {
				outcome = results.OutcomeWin
			} else {
				outcome = results.OutcomeLoss
			}
		}

		record := results.SetRecord{
			SetID:             set.ID.String(),
			OpponentEntrantID: opponent.ID,
			OpponentTag:       opponentTag(opponent, tagByEntrant),
			Outcome:           outcome,
			RoundLabel:        roundLabel(set),
			CompletedAt:       set.CompletedAt,
			Characters:        setCharacters(set, entrantID),
		}
		if seed, ok := seedByEntrant[opponent.ID]; ok {
			s := seed
			record.OpponentSeed = &s
		}
		if placement, ok := placementByEntrant[opponent.ID]; ok {
			p := placement
			record.OpponentPlacement = &p
		}

		rec := ensure(entrantID, player)
		rec.Sets = append(rec.Sets, record)
	}
}

func hasAnyPlayer(entrant *event.Entrant) bool {
	for _, participant := range entrant.Participants {
		if participant.Player != nil && participant.Player.ID > 0 {
			return true
		}
	}
	return false
}

func opponentTag(entrant *event.Entrant, tags map[int64]string) string {
	if tag, ok := tags[entrant.ID]; ok {
		return tag
	}
	for _, participant := range entrant.Participants {
		if participant.Player != nil && participant.Player.GamerTag != "" {
			return participant.Player.GamerTag
		}
	}
	return entrant.Name
}

func roundLabel(set event.Set) string {
	if set.FullRoundText != "" {
		return set.FullRoundText
	}
	return strconv.Itoa(set.Round)
}

// setCharacters returns the entrant's picks across the set's games. Untyped
// selections count as character picks; every other selection type is ignored.
func setCharacters(set event.Set, entrantID int64) []string {
	var out []string
	seen := make(map[string]bool)
	for _, game := range set.Games {
		for _, selection := range game.Selections {
			kind := strings.ToUpper(strings.TrimSpace(selection.SelectionType))
			if kind != "" && kind != "CHARACTER" {
				continue
			}
			if selection.Entrant == nil || selection.Entrant.ID != entrantID {
				continue
			}
			if selection.Character == nil || selection.Character.Name == "" {
				continue
			}
			if !seen[selection.Character.Name] {
				seen[selection.Character.Name] = true
				out = append(out, selection.Character.Name)
			}
		}
	}
	return out
}
