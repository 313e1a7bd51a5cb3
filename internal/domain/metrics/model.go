package metrics

import "strings"

// Key identifies one precomputed metrics batch. Batches are replaced
// atomically per key.
type Key struct {
	AddrState       string
	VideogameID     int
	MonthsBack      int
	TargetCharacter string
}

func (k Key) Normalize() Key {
	k.AddrState = strings.ToUpper(strings.TrimSpace(k.AddrState))
	k.TargetCharacter = strings.TrimSpace(k.TargetCharacter)
	if k.MonthsBack <= 0 {
		k.MonthsBack = 6
	}
	return k
}

// PlayerMetrics is one player's aggregated competitive profile for a batch.
// Rate fields are nil when no qualifying sets exist; they are never zero-filled.
type PlayerMetrics struct {
	PlayerID int64
	GamerTag string

	Events int
	Sets   int
	Wins   int
	Losses int

	WeightedWinRate  *float64
	OpponentStrength *float64
	UpsetRate        *float64
	AvgSeedDelta     *float64
	ActivityScore    float64

	AvgEntrants     float64
	MaxEntrants     int
	LargeEventShare float64

	CharacterUsageRate       *float64
	CharacterWinRate         *float64
	CharacterWeightedWinRate *float64

	HomeRegion         string
	HomeRegionInferred bool

	LatestEventStart int64
}
