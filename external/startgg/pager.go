package startgg

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/brackethq/circuit-metrics/internal/domain/event"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
)

// TournamentIterator walks the provider's newest-first tournament pages for
// one discovery scope, yielding only tournaments inside [windowStart,
// windowEnd]. Nodes newer than the window are skipped; the first node older
// than the window ends the walk without touching later pages. Each iterator
// starts from page one.
type TournamentIterator struct {
	client *Client
	filter tournament.Filter

	windowStart int64
	windowEnd   int64

	page       int
	totalPages int

	buf     []tournament.Tournament
	current tournament.Tournament
	done    bool
	err     error
}

// Tournaments returns a lazy iterator over the scope's tournaments within the
// window bounds (unix seconds, inclusive).
func (c *Client) Tournaments(filter tournament.Filter, windowStart, windowEnd int64) *TournamentIterator {
	return &TournamentIterator{
		client:      c,
		filter:      filter.Normalize(),
		windowStart: windowStart,
		windowEnd:   windowEnd,
	}
}

// Next advances the iterator, fetching pages as needed. It returns false when
// the window is exhausted or an error occurred; check Err afterwards.
func (it *TournamentIterator) Next(ctx context.Context) bool {
	for {
		if it.done || it.err != nil {
			return false
		}
		if len(it.buf) == 0 {
			if !it.fetchPage(ctx) {
				return false
			}
			continue
		}

		node := it.buf[0]
		it.buf = it.buf[1:]

		if node.StartAt > it.windowEnd {
			continue
		}
		if node.StartAt < it.windowStart {
			it.done = true
			return false
		}
		it.current = node
		return true
	}
}

func (it *TournamentIterator) Tournament() tournament.Tournament { return it.current }

func (it *TournamentIterator) Err() error { return it.err }

func (it *TournamentIterator) fetchPage(ctx context.Context) bool {
	if it.totalPages > 0 && it.page >= it.totalPages {
		it.done = true
		return false
	}
	it.page++

	variables := map[string]any{
		"perPage":   it.filter.PerPage,
		"page":      it.page,
		"addrState": it.filter.AddrState,
	}
	if it.filter.VideogameID > 0 {
		variables["videogameIds"] = []int{it.filter.VideogameID}
	}

	var data tournamentsData
	if err := it.client.execute(ctx, tournamentsQuery, variables, &data); err != nil {
		it.err = fmt.Errorf("fetch tournaments page=%d state=%s: %w", it.page, it.filter.AddrState, err)
		return false
	}
	if data.Tournaments == nil {
		it.done = true
		return false
	}
	if it.totalPages == 0 {
		it.totalPages = data.Tournaments.PageInfo.TotalPages
	}
	if len(data.Tournaments.Nodes) == 0 {
		it.done = true
		return false
	}

	it.buf = it.buf[:0]
	for _, node := range data.Tournaments.Nodes {
		if node.ID <= 0 || node.StartAt == nil {
			continue
		}
		it.buf = append(it.buf, node.toDomain(it.filter.VideogameID))
	}
	return true
}

// DiscoverTournaments drains the iterator into a slice, newest first.
func (c *Client) DiscoverTournaments(ctx context.Context, filter tournament.Filter, windowStart, windowEnd int64) ([]tournament.Tournament, error) {
	it := c.Tournaments(filter, windowStart, windowEnd)
	out := make([]tournament.Tournament, 0, filter.Normalize().PerPage)
	for it.Next(ctx) {
		out = append(out, it.Tournament())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// TournamentEvents fetches the tournament's event list.
func (c *Client) TournamentEvents(ctx context.Context, tournamentID int64) ([]event.Event, error) {
	var data tournamentEventsData
	variables := map[string]any{"tournamentId": tournamentID}
	if err := c.execute(ctx, tournamentEventsQuery, variables, &data); err != nil {
		return nil, fmt.Errorf("fetch events tournament_id=%d: %w", tournamentID, err)
	}
	if data.Tournament == nil {
		return nil, nil
	}
	out := make([]event.Event, 0, len(data.Tournament.Events))
	for _, node := range data.Tournament.Events {
		if node.ID <= 0 {
			continue
		}
		out = append(out, node.toDomain(tournamentID))
	}
	return out, nil
}

// EventBundle fetches seeds, standings and sets for one event.
func (c *Client) EventBundle(ctx context.Context, eventID int64) (event.Bundle, error) {
	seeds, err := c.EventSeeds(ctx, eventID)
	if err != nil {
		return event.Bundle{}, err
	}
	standings, err := c.EventStandings(ctx, eventID)
	if err != nil {
		return event.Bundle{}, err
	}
	sets, err := c.EventSets(ctx, eventID)
	if err != nil {
		return event.Bundle{}, err
	}
	return event.Bundle{
		EventID:   eventID,
		Seeds:     seeds,
		Standings: standings,
		Sets:      sets,
	}, nil
}

// EventSeeds collects seeding across every phase of the event.
func (c *Client) EventSeeds(ctx context.Context, eventID int64) ([]event.Seed, error) {
	var phases eventPhasesData
	if err := c.execute(ctx, eventPhasesQuery, map[string]any{"eventId": eventID}, &phases); err != nil {
		return nil, fmt.Errorf("fetch phases event_id=%d: %w", eventID, err)
	}
	if phases.Event == nil {
		return nil, nil
	}

	seen := make(map[int64]bool)
	out := make([]event.Seed, 0, c.seedsPerPage)
	for _, phase := range phases.Event.Phases {
		if phase.ID <= 0 {
			continue
		}
		phaseID := phase.ID
		nodes, err := collectPages(ctx, c, c.seedsPerPage, func(page, perPage int) (string, map[string]any) {
			return phaseSeedsQuery, map[string]any{"phaseId": phaseID, "page": page, "perPage": perPage}
		}, func(data *phaseSeedsData) ([]event.Seed, int) {
			if data.Phase == nil || data.Phase.Seeds == nil {
				return nil, 0
			}
			return data.Phase.Seeds.Nodes, data.Phase.Seeds.PageInfo.TotalPages
		})
		if err != nil {
			return nil, fmt.Errorf("fetch seeds event_id=%d phase_id=%d: %w", eventID, phaseID, err)
		}
		for _, seed := range nodes {
			if seed.Entrant != nil && seen[seed.Entrant.ID] {
				continue
			}
			if seed.Entrant != nil {
				seen[seed.Entrant.ID] = true
			}
			out = append(out, seed)
		}
	}
	return out, nil
}

// EventStandings collects the event's final standings.
func (c *Client) EventStandings(ctx context.Context, eventID int64) ([]event.Standing, error) {
	nodes, err := collectPages(ctx, c, c.standingsPerPage, func(page, perPage int) (string, map[string]any) {
		return eventStandingsQuery, map[string]any{"eventId": eventID, "page": page, "perPage": perPage}
	}, func(data *eventStandingsData) ([]event.Standing, int) {
		if data.Event == nil || data.Event.Standings == nil {
			return nil, 0
		}
		return data.Event.Standings.Nodes, data.Event.Standings.PageInfo.TotalPages
	})
	if err != nil {
		return nil, fmt.Errorf("fetch standings event_id=%d: %w", eventID, err)
	}
	return nodes, nil
}

// EventSets collects the event's played sets in standard order.
func (c *Client) EventSets(ctx context.Context, eventID int64) ([]event.Set, error) {
	nodes, err := collectPages(ctx, c, c.setsPerPage, func(page, perPage int) (string, map[string]any) {
		return eventSetsQuery, map[string]any{"eventId": eventID, "page": page, "perPage": perPage}
	}, func(data *eventSetsData) ([]event.Set, int) {
		if data.Event == nil || data.Event.Sets == nil {
			return nil, 0
		}
		return data.Event.Sets.Nodes, data.Event.Sets.PageInfo.TotalPages
	})
	if err != nil {
		return nil, fmt.Errorf("fetch sets event_id=%d: %w", eventID, err)
	}
	return nodes, nil
}

// collectPages walks a paginated collection, shrinking the page size by half
// down to a floor whenever the provider rejects the query for complexity.
// Total pages come from the first successful page at the final page size.
func collectPages[D any, T any](
	ctx context.Context,
	c *Client,
	perPage int,
	build func(page, perPage int) (string, map[string]any),
	extract func(*D) ([]T, int),
) ([]T, error) {
	if perPage <= 0 {
		perPage = perPageFloor
	}

	var out []T
	page := 1
	totalPages := 0
	for {
		query, variables := build(page, perPage)
		var data D
		if err := c.execute(ctx, query, variables, &data); err != nil {
			if crerr.Is(err, ErrComplexity) && perPage > perPageFloor {
				perPage = max(perPage/2, perPageFloor)
				c.logger.WarnContext(ctx, "startgg complexity rejection, shrinking page size", "per_page", perPage)
				// Restart so every page shares the final page size.
				out = out[:0]
				page = 1
				totalPages = 0
				continue
			}
			return nil, err
		}

		nodes, reportedTotal := extract(&data)
		if totalPages == 0 {
			totalPages = reportedTotal
		}
		out = append(out, nodes...)

		if len(nodes) == 0 || (totalPages > 0 && page >= totalPages) {
			return out, nil
		}
		page++
	}
}
