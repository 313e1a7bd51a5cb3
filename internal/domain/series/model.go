package series

// Candidate is one detected recurring tournament series.
type Candidate struct {
	Key string

	Names []string
	Slugs []string

	EventCount     int
	TotalAttendees int
	MaxAttendees   int

	FirstStartAt int64
	LastStartAt  int64

	TournamentIDs []int64
}

// Match records which discovery filter substrings a tournament satisfied, so
// series-restricted collections can be re-run from cache.
type Match struct {
	TournamentID int64
	NameTerms    []string
	SlugTerms    []string
}
