package results

import "github.com/brackethq/circuit-metrics/internal/domain/event"

// Outcome is a tri-state set result. Sets without a reported winner stay
// Unknown and never count as losses.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) Decided() bool { return o == OutcomeWin || o == OutcomeLoss }

// SetRecord is one played set from the acting player's perspective.
type SetRecord struct {
	SetID             string
	OpponentEntrantID int64
	OpponentTag       string
	Outcome           Outcome
	RoundLabel        string
	CompletedAt       *int64
	Characters        []string

	OpponentSeed      *int
	OpponentPlacement *int
}

// PlayerEventResult joins one player's seeding, final standing and sets for a
// single event.
type PlayerEventResult struct {
	PlayerID  int64
	GamerTag  string
	EntrantID int64

	EventID        int64
	EventName      string
	EventStartAt   int64
	NumEntrants    int
	TournamentID   int64
	TournamentName string
	Region         string

	Seed      *int
	Placement *int
	Location  *event.Location

	Sets []SetRecord
}
