package tournament

import (
	"strings"
	"time"
)

// Tournament mirrors one remote tournament row. Timestamps are unix seconds.
type Tournament struct {
	ID           int64
	Slug         string
	Name         string
	City         string
	AddrState    string
	CountryCode  string
	StartAt      int64
	EndAt        int64
	NumAttendees int
	VideogameID  int
	LastSynced   int64
}

// DiscoveryMark records when a (region, game) discovery scope was last
// refreshed against the provider, regardless of how much it returned.
type DiscoveryMark struct {
	AddrState   string
	VideogameID int
	LastSynced  time.Time
}

// Coverage summarizes the cached window for a discovery scope.
type Coverage struct {
	Count         int
	EarliestStart int64
	LatestStart   int64
}

const (
	DefaultMonthsBack = 6
	DefaultPerPage    = 50

	monthSeconds = 30 * 24 * 60 * 60
)

// Filter scopes discovery to one region, game and time window.
// Explicit unix bounds take precedence over the months-back arithmetic.
type Filter struct {
	AddrState   string
	VideogameID int
	MonthsBack  int
	PerPage     int

	WindowStartUnix int64
	WindowEndUnix   int64

	NameContains []string
	SlugContains []string
}

func (f Filter) Normalize() Filter {
	f.AddrState = strings.ToUpper(strings.TrimSpace(f.AddrState))
	if f.MonthsBack <= 0 {
		f.MonthsBack = DefaultMonthsBack
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	return f
}

// WindowBounds resolves the inclusive [start, end] window in unix seconds.
func (f Filter) WindowBounds(now time.Time) (int64, int64) {
	f = f.Normalize()
	end := f.WindowEndUnix
	if end <= 0 {
		end = now.Unix()
	}
	start := f.WindowStartUnix
	if start <= 0 {
		start = end - int64(f.MonthsBack)*monthSeconds
	}
	return start, end
}

// MatchedTerms returns the case-insensitive name and slug substrings of the
// filter that t satisfies. Both slices empty means no term filter applied to t.
func (f Filter) MatchedTerms(t Tournament) (names, slugs []string) {
	name := strings.ToLower(t.Name)
	for _, term := range f.NameContains {
		if term != "" && strings.Contains(name, strings.ToLower(term)) {
			names = append(names, term)
		}
	}
	slug := strings.ToLower(t.Slug)
	for _, term := range f.SlugContains {
		if term != "" && strings.Contains(slug, strings.ToLower(term)) {
			slugs = append(slugs, term)
		}
	}
	return names, slugs
}
