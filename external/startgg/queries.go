package startgg

const tournamentsQuery = `query TournamentsByState($perPage: Int!, $page: Int!, $addrState: String!, $videogameIds: [ID]) {
  tournaments(query: {
    perPage: $perPage
    page: $page
    sortBy: "startAt desc"
    filter: { addrState: $addrState, videogameIds: $videogameIds, past: true }
  }) {
    pageInfo { totalPages }
    nodes {
      id
      name
      slug
      city
      addrState
      countryCode
      startAt
      endAt
      numAttendees
    }
  }
}`

const tournamentEventsQuery = `query TournamentEvents($tournamentId: ID!) {
  tournament(id: $tournamentId) {
    id
    events {
      id
      name
      slug
      startAt
      numEntrants
      videogame { id }
      teamRosterSize { minPlayers maxPlayers }
      entrantSizeMin
      entrantSizeMax
    }
  }
}`

const eventPhasesQuery = `query EventPhases($eventId: ID!) {
  event(id: $eventId) {
    id
    phases { id name }
  }
}`

const phaseSeedsQuery = `query PhaseSeeds($phaseId: ID!, $page: Int!, $perPage: Int!) {
  phase(id: $phaseId) {
    id
    seeds(query: { page: $page, perPage: $perPage }) {
      pageInfo { totalPages }
      nodes {
        seedNum
        entrant {
          id
          name
          participants {
            player { id gamerTag }
            user { location { city state country } }
          }
        }
      }
    }
  }
}`

const eventStandingsQuery = `query EventStandings($eventId: ID!, $page: Int!, $perPage: Int!) {
  event(id: $eventId) {
    id
    standings(query: { page: $page, perPage: $perPage }) {
      pageInfo { totalPages }
      nodes {
        placement
        entrant {
          id
          name
          participants {
            player { id gamerTag }
            user { location { city state country } }
          }
        }
      }
    }
  }
}`

const eventSetsQuery = `query EventSets($eventId: ID!, $page: Int!, $perPage: Int!) {
  event(id: $eventId) {
    id
    sets(page: $page, perPage: $perPage, sortType: STANDARD) {
      pageInfo { totalPages }
      nodes {
        id
        winnerId
        round
        fullRoundText
        completedAt
        slots {
          entrant {
            id
            name
            participants { player { id gamerTag } }
          }
        }
        games {
          winnerId
          selections {
            selectionType
            entrant { id }
            character { id name }
          }
        }
      }
    }
  }
}`
