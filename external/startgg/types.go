package startgg

import (
	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

type pageInfo struct {
	TotalPages int `json:"totalPages"`
}

type tournamentNode struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	City         string `json:"city"`
	AddrState    string `json:"addrState"`
	CountryCode  string `json:"countryCode"`
	StartAt      *int64 `json:"startAt"`
	EndAt        *int64 `json:"endAt"`
	NumAttendees *int   `json:"numAttendees"`
}

func (n tournamentNode) toDomain(videogameID int) tournament.Tournament {
	t := tournament.Tournament{
		ID:          n.ID,
		Name:        n.Name,
		Slug:        n.Slug,
		City:        n.City,
		AddrState:   n.AddrState,
		CountryCode: n.CountryCode,
		VideogameID: videogameID,
	}
	if n.StartAt != nil {
		t.StartAt = *n.StartAt
	}
	if n.EndAt != nil {
		t.EndAt = *n.EndAt
	}
	if n.NumAttendees != nil {
		t.NumAttendees = *n.NumAttendees
	}
	return t
}

type tournamentsData struct {
	Tournaments *struct {
		PageInfo pageInfo         `json:"pageInfo"`
		Nodes    []tournamentNode `json:"nodes"`
	} `json:"tournaments"`
}

type rosterSize struct {
	MinPlayers *int `json:"minPlayers"`
	MaxPlayers *int `json:"maxPlayers"`
}

type eventNode struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug"`
	StartAt        *int64      `json:"startAt"`
	NumEntrants    *int        `json:"numEntrants"`
	Videogame      *struct{ ID int `json:"id"` } `json:"videogame"`
	TeamRosterSize *rosterSize `json:"teamRosterSize"`
	EntrantSizeMin *int        `json:"entrantSizeMin"`
	EntrantSizeMax *int        `json:"entrantSizeMax"`
}

func (n eventNode) toDomain(tournamentID int64) event.Event {
	e := event.Event{
		ID:             n.ID,
		TournamentID:   tournamentID,
		Name:           n.Name,
		Slug:           n.Slug,
		EntrantSizeMin: n.EntrantSizeMin,
		EntrantSizeMax: n.EntrantSizeMax,
	}
	if n.StartAt != nil {
		e.StartAt = *n.StartAt
	}
	if n.NumEntrants != nil {
		e.NumEntrants = *n.NumEntrants
	}
	if n.Videogame != nil {
		e.VideogameID = n.Videogame.ID
	}
	if n.TeamRosterSize != nil {
		e.TeamMinPlayers = n.TeamRosterSize.MinPlayers
		e.TeamMaxPlayers = n.TeamRosterSize.MaxPlayers
	}
	return e
}

type tournamentEventsData struct {
	Tournament *struct {
		ID     int64       `json:"id"`
		Events []eventNode `json:"events"`
	} `json:"tournament"`
}

type eventPhasesData struct {
	Event *struct {
		ID     int64 `json:"id"`
		Phases []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"phases"`
	} `json:"event"`
}

type phaseSeedsData struct {
	Phase *struct {
		ID    int64 `json:"id"`
		Seeds *struct {
			PageInfo pageInfo     `json:"pageInfo"`
			Nodes    []event.Seed `json:"nodes"`
		} `json:"seeds"`
	} `json:"phase"`
}

type eventStandingsData struct {
	Event *struct {
		ID        int64 `json:"id"`
		Standings *struct {
			PageInfo pageInfo         `json:"pageInfo"`
			Nodes    []event.Standing `json:"nodes"`
		} `json:"standings"`
	} `json:"event"`
}

type eventSetsData struct {
	Event *struct {
		ID   int64 `json:"id"`
		Sets *struct {
			PageInfo pageInfo    `json:"pageInfo"`
			Nodes    []event.Set `json:"nodes"`
		} `json:"sets"`
	} `json:"event"`
}
