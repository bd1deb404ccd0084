package feature

import (
	"trip-pipeline/internal/algo"
	"trip-pipeline/internal/trip"
)

// Pattern tags attached by TagPatterns.
const (
	PatternSlow     = "slow"
	PatternFast     = "fast"
	PatternShort    = "short"
	PatternLong     = "long"
	PatternQuick    = "quick"
	PatternExtended = "extended"
	PatternTraffic  = "traffic"
	PatternLocal    = "local"
	PatternJourney  = "journey"
)

const (
	trafficSpeedKMH    = 5.0
	localDistanceKM    = 0.5
	journeyDurationSec = 1800
)

// TagPatterns classifies each record against the batch it arrived in:
// below the batch p10 or above the p90 of speed, distance and duration,
// plus the fixed traffic/local/journey tags. Thresholds are relative, so
// the same trip can tag differently in a different batch.
func (e *Engine) TagPatterns(recs []trip.EnrichedRecord) {
	if len(recs) == 0 {
		return
	}
	speeds := make([]float64, len(recs))
	distances := make([]float64, len(recs))
	durations := make([]float64, len(recs))
	for i, r := range recs {
		speeds[i] = r.SpeedKMH
		distances[i] = r.DistanceKM
		durations[i] = float64(r.DurationSec)
	}
	speedLo, speedHi := band(speeds)
	distLo, distHi := band(distances)
	durLo, durHi := band(durations)

	for i := range recs {
		r := &recs[i]
		var tags []string
		switch {
		case r.SpeedKMH < speedLo:
			tags = append(tags, PatternSlow)
		case r.SpeedKMH > speedHi:
			tags = append(tags, PatternFast)
		}
		switch {
		case r.DistanceKM < distLo:
			tags = append(tags, PatternShort)
		case r.DistanceKM > distHi:
			tags = append(tags, PatternLong)
		}
		switch {
		case float64(r.DurationSec) < durLo:
			tags = append(tags, PatternQuick)
		case float64(r.DurationSec) > durHi:
			tags = append(tags, PatternExtended)
		}
		if r.SpeedKMH < trafficSpeedKMH {
			tags = append(tags, PatternTraffic)
		}
		if r.DistanceKM < localDistanceKM {
			tags = append(tags, PatternLocal)
		}
		if r.DurationSec > journeyDurationSec {
			tags = append(tags, PatternJourney)
		}
		r.Patterns = tags
	}
}

// band returns the p10/p90 thresholds of the values.
func band(values []float64) (lo, hi float64) {
	sorted := append([]float64(nil), values...)
	algo.SortFloats(sorted)
	lo, _ = algo.Percentile(sorted, 10)
	hi, _ = algo.Percentile(sorted, 90)
	return lo, hi
}
