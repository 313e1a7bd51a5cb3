package event

import "encoding/json"

// Event is one bracketed event inside a tournament.
type Event struct {
	ID           int64  `json:"id"`
	TournamentID int64  `json:"tournamentId"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	StartAt      int64  `json:"startAt"`
	NumEntrants  int    `json:"numEntrants"`
	VideogameID  int    `json:"videogameId"`

	TeamMinPlayers *int `json:"teamMinPlayers,omitempty"`
	TeamMaxPlayers *int `json:"teamMaxPlayers,omitempty"`
	EntrantSizeMin *int `json:"entrantSizeMin,omitempty"`
	EntrantSizeMax *int `json:"entrantSizeMax,omitempty"`
}

// IsSingles reports whether every provided roster constraint is exactly one
// player. Absent constraints are tolerated.
func (e Event) IsSingles() bool {
	for _, c := range []*int{e.TeamMinPlayers, e.TeamMaxPlayers, e.EntrantSizeMin, e.EntrantSizeMax} {
		if c != nil && *c != 1 {
			return false
		}
	}
	return true
}

// CacheState distinguishes a tournament whose event list was never fetched
// from one that was fetched and genuinely has no events.
type CacheState int

const (
	CacheUnfetched CacheState = iota
	CacheEmpty
	CachePresent
)

// CachedEvents is the three-state answer to "what events do we have cached?".
type CachedEvents struct {
	State  CacheState
	Events []Event
}

// Bundle holds the joined raw inputs for one event: seeding, final standings
// and played sets. Field shapes follow the provider payloads so bundles can
// round-trip through storage unchanged.
type Bundle struct {
	EventID   int64      `json:"eventId"`
	Seeds     []Seed     `json:"seeds"`
	Standings []Standing `json:"standings"`
	Sets      []Set      `json:"sets"`
}

type Seed struct {
	SeedNum int      `json:"seedNum"`
	Entrant *Entrant `json:"entrant"`
}

type Standing struct {
	Placement int      `json:"placement"`
	Entrant   *Entrant `json:"entrant"`
}

type Entrant struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants,omitempty"`
}

type Participant struct {
	Player *Player `json:"player"`
	User   *User   `json:"user,omitempty"`
}

type Player struct {
	ID       int64  `json:"id"`
	GamerTag string `json:"gamerTag"`
}

type User struct {
	Location *Location `json:"location"`
}

type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type Set struct {
	ID            json.Number `json:"id"`
	WinnerID      *int64      `json:"winnerId"`
	Round         int         `json:"round"`
	FullRoundText string      `json:"fullRoundText"`
	CompletedAt   *int64      `json:"completedAt,omitempty"`
	Slots         []Slot      `json:"slots"`
	Games         []Game      `json:"games,omitempty"`
}

type Slot struct {
	Entrant *Entrant `json:"entrant"`
}

type Game struct {
	WinnerID   *int64      `json:"winnerId"`
	Selections []Selection `json:"selections,omitempty"`
}

type Selection struct {
	SelectionType string     `json:"selectionType"`
	Entrant       *Entrant   `json:"entrant"`
	Character     *Character `json:"character"`
}

type Character struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
