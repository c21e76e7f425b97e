package srs

import (
	"math"
	"math/rand"
)

// Interval fuzz spreads cards that would otherwise land on the same day.
// The wobble is proportional to the interval, in three bands; intervals
// under 2.5 days are never fuzzed.

type fuzzBand struct {
	start, end, factor float64
}

var fuzzBands = []fuzzBand{
	{start: 2.5, end: 7.0, factor: 0.15},
	{start: 7.0, end: 20.0, factor: 0.10},
	{start: 20.0, end: math.Inf(1), factor: 0.05},
}

// fuzzInterval jitters an interval (whole days) within its band, keeping the
// result in [2, maxDays].
func fuzzInterval(rng *rand.Rand, interval float64, maxDays int) float64 {
	if interval < 2.5 {
		return interval
	}
	delta := 1.0
	for _, b := range fuzzBands {
		delta += b.factor * math.Max(math.Min(interval, b.end)-b.start, 0)
	}
	lo := math.Round(interval - delta)
	hi := math.Min(math.Round(interval+delta), float64(maxDays))
	lo = math.Max(2, math.Min(lo, hi))
	fuzzed := math.Floor(rng.Float64()*(hi-lo+1) + lo)
	return math.Min(fuzzed, float64(maxDays))
}
