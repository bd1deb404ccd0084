package stats

import (
	"trip-pipeline/internal/algo"
	"trip-pipeline/internal/trip"
)

// TripField resolves the filterable numeric fields of an enriched record
// by column name. Unknown names report ok=false.
func TripField(r trip.EnrichedRecord, name string) (float64, bool) {
	switch name {
	case "trip_duration":
		return float64(r.DurationSec), true
	case "passenger_count":
		return float64(r.PassengerCount), true
	case "vendor_id":
		return float64(r.VendorID), true
	case "distance_km":
		return r.DistanceKM, true
	case "speed_kmh":
		return r.SpeedKMH, true
	case "idle_time_sec":
		return r.IdleTimeSec, true
	case "efficiency_pct":
		return r.EfficiencyPct, true
	case "quality_score":
		return r.QualityScore, true
	case "pickup_hour":
		return float64(r.PickupTime.Hour()), true
	default:
		return 0, false
	}
}

// FilterTrips returns the records matching every condition, e.g.
// {"speed_kmh": algo.AtLeast(50), "pickup_hour": algo.Between(0, 5)}.
func FilterTrips(recs []trip.EnrichedRecord, conds map[string]algo.Condition) []trip.EnrichedRecord {
	return algo.Filter(recs, conds, TripField)
}
