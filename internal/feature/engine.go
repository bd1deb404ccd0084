// Package feature derives the per-trip analytics fields from cleaned
// records: distance, speed, idle time, efficiency and the temporal
// classification the reporter groups by.
package feature

import (
	"math"
	"time"

	"trip-pipeline/internal/algo"
	"trip-pipeline/internal/trip"
)

// Engine computes derived features for one configuration. Safe for
// concurrent use; it holds only immutable parameters.
type Engine struct {
	params trip.FeatureParams
}

func New(params trip.FeatureParams) *Engine {
	return &Engine{params: params}
}

// Enrich derives the feature set for a single cleaned record. Invalid
// records are not enriched and return ok=false. A record whose features
// come out non-finite is demoted to invalid with the NonFiniteFeature
// flag and also returns ok=false.
func (e *Engine) Enrich(rec trip.CleanedRecord) (trip.EnrichedRecord, bool) {
	if !rec.IsValid {
		return trip.EnrichedRecord{}, false
	}

	out := trip.EnrichedRecord{CleanedRecord: rec}

	// Validation already bounds the duration, but a zero would turn speed
	// into infinity, so it is excluded here as well.
	if rec.DurationSec <= 0 {
		out.IsValid = false
		out.Flags.Add(trip.NonFiniteFeature)
		out.QualityScore = 0
		return out, false
	}

	out.DistanceKM = algo.HaversineKM(rec.PickupLat, rec.PickupLon, rec.DropoffLat, rec.DropoffLon)
	hours := float64(rec.DurationSec) / 3600.0
	out.SpeedKMH = out.DistanceKM / hours
	out.DistancePerMin = out.DistanceKM / (float64(rec.DurationSec) / 60.0)

	hour := rec.PickupTime.Hour()
	out.TimeOfDay = e.params.Hours[hour]
	out.DayOfWeek = rec.PickupTime.Weekday()
	out.PickupMonth = rec.PickupTime.Month()
	out.IsWeekend = out.DayOfWeek == time.Saturday || out.DayOfWeek == time.Sunday
	out.IsRushHour = e.rushHour(out.DayOfWeek, hour)

	out.PickupBorough = e.closestBorough(rec.PickupLat, rec.PickupLon)
	out.DropoffBorough = e.closestBorough(rec.DropoffLat, rec.DropoffLon)
	out.CrossBorough = out.PickupBorough != out.DropoffBorough

	// Complexity: actual duration over the duration the distance would
	// take at the baseline city speed. 1 means the trip took exactly as
	// long as expected.
	out.Complexity = 1
	if out.DistanceKM > 0 && e.params.ComplexityBaselineKMH > 0 {
		expectedSec := out.DistanceKM / e.params.ComplexityBaselineKMH * 3600.0
		out.Complexity = float64(rec.DurationSec) / expectedSec
	}

	if benchmark := e.params.BenchmarkKMH[out.TimeOfDay]; benchmark > 0 {
		out.EfficiencyPct = math.Min(100, out.SpeedKMH/benchmark*100)
	}

	// Idle time: the slack between the actual duration and how long the
	// trip distance would take at the bucket's free-flow speed.
	if freeFlow := e.params.FreeFlowKMH[out.TimeOfDay]; freeFlow > 0 {
		expectedSec := out.DistanceKM / freeFlow * 3600.0
		out.IdleTimeSec = math.Max(0, float64(rec.DurationSec)-expectedSec)
	}

	if !finite(out.DistanceKM, out.SpeedKMH, out.IdleTimeSec, out.EfficiencyPct, out.DistancePerMin, out.Complexity) {
		out.IsValid = false
		out.Flags.Add(trip.NonFiniteFeature)
		out.QualityScore = 0
		return out, false
	}
	return out, true
}

// EnrichBatch enriches the valid records of a batch, preserving input
// order. Records that cannot be enriched are dropped from the result.
func (e *Engine) EnrichBatch(recs []trip.CleanedRecord) []trip.EnrichedRecord {
	out := make([]trip.EnrichedRecord, 0, len(recs))
	for _, rec := range recs {
		if enriched, ok := e.Enrich(rec); ok {
			out = append(out, enriched)
		}
	}
	return out
}

func (e *Engine) closestBorough(lat, lon float64) string {
	best := ""
	bestDist := math.MaxFloat64
	for _, b := range e.params.Boroughs {
		d := algo.HaversineKM(lat, lon, b.Lat, b.Lon)
		if d < bestDist {
			bestDist = d
			best = b.Name
		}
	}
	return best
}

func (e *Engine) rushHour(day time.Weekday, hour int) bool {
	if day == time.Saturday || day == time.Sunday {
		return false
	}
	for _, start := range e.params.RushHourStarts {
		if hour >= start && hour <= start+2 {
			return true
		}
	}
	return false
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
