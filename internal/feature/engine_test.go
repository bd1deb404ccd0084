package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-pipeline/internal/trip"
)

func cleanedAt(pickup time.Time, durationSec int) trip.CleanedRecord {
	return trip.CleanedRecord{
		ID:              "id1",
		VendorID:        2,
		PickupTime:      pickup,
		DropoffTime:     pickup.Add(time.Duration(durationSec) * time.Second),
		PassengerCount:  1,
		PickupLat:       40.75,
		PickupLon:       -73.98,
		DropoffLat:      40.76,
		DropoffLon:      -73.97,
		StoreAndFwdFlag: "N",
		DurationSec:     durationSec,
		IsValid:         true,
		QualityScore:    100,
	}
}

func TestEnrichDistanceAndSpeed(t *testing.T) {
	e := New(trip.DefaultFeatureParams())
	// Monday midday.
	rec := cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 1800)

	out, ok := e.Enrich(rec)
	require.True(t, ok)

	assert.InDelta(t, 1.39, out.DistanceKM, 0.02)
	assert.InDelta(t, 2.79, out.SpeedKMH, 0.05)
	assert.InDelta(t, out.DistanceKM/30.0, out.DistancePerMin, 1e-9)
}

func TestEnrichStationaryTrip(t *testing.T) {
	e := New(trip.DefaultFeatureParams())
	rec := cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 600)
	rec.DropoffLat = rec.PickupLat
	rec.DropoffLon = rec.PickupLon

	out, ok := e.Enrich(rec)
	require.True(t, ok)

	assert.Zero(t, out.DistanceKM)
	assert.Zero(t, out.SpeedKMH)
	assert.Zero(t, out.EfficiencyPct)
	// The whole duration is slack when the trip goes nowhere.
	assert.InDelta(t, 600, out.IdleTimeSec, 1e-9)
}

func TestEnrichTemporalClassification(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	tests := []struct {
		name    string
		pickup  time.Time
		bucket  trip.TimeBucket
		weekend bool
		rush    bool
	}{
		{"weekday night", time.Date(2016, 3, 14, 3, 0, 0, 0, time.UTC), trip.BucketNight, false, false},
		{"weekday morning rush", time.Date(2016, 3, 14, 8, 0, 0, 0, time.UTC), trip.BucketMorningRush, false, true},
		{"weekday midday", time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), trip.BucketMidday, false, false},
		{"weekday evening rush", time.Date(2016, 3, 14, 17, 30, 0, 0, time.UTC), trip.BucketEveningRush, false, true},
		{"weekday late evening still rush", time.Date(2016, 3, 14, 19, 0, 0, 0, time.UTC), trip.BucketEvening, false, true},
		{"weekday evening", time.Date(2016, 3, 14, 21, 0, 0, 0, time.UTC), trip.BucketEvening, false, false},
		{"saturday morning", time.Date(2016, 3, 12, 8, 0, 0, 0, time.UTC), trip.BucketMorningRush, true, false},
		{"sunday evening", time.Date(2016, 3, 13, 18, 0, 0, 0, time.UTC), trip.BucketEveningRush, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := e.Enrich(cleanedAt(tt.pickup, 600))
			require.True(t, ok)

			assert.Equal(t, tt.bucket, out.TimeOfDay)
			assert.Equal(t, tt.weekend, out.IsWeekend)
			assert.Equal(t, tt.rush, out.IsRushHour)
			assert.Equal(t, tt.pickup.Weekday(), out.DayOfWeek)
		})
	}
}

func TestEnrichEfficiency(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	t.Run("slow midday trip", func(t *testing.T) {
		out, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 1800))
		require.True(t, ok)
		// ~2.79 km/h against the 32 km/h midday benchmark.
		assert.InDelta(t, 8.7, out.EfficiencyPct, 0.3)
	})

	t.Run("capped at 100", func(t *testing.T) {
		out, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 60))
		require.True(t, ok)
		assert.Equal(t, 100.0, out.EfficiencyPct)
	})
}

func TestEnrichIdleTime(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	t.Run("slack above free flow time", func(t *testing.T) {
		out, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 1800))
		require.True(t, ok)
		// ~1.39 km at the 30 km/h midday free flow takes ~167s.
		assert.InDelta(t, 1633, out.IdleTimeSec, 10)
	})

	t.Run("clamped at zero for fast trips", func(t *testing.T) {
		out, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 60))
		require.True(t, ok)
		assert.Zero(t, out.IdleTimeSec)
	})
}

func TestEnrichBenchmarkSensitivity(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	// Same geometry and duration, so identical speed; only the pickup
	// hour differs. Morning and evening rush use different benchmarks.
	morning, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 8, 0, 0, 0, time.UTC), 600))
	require.True(t, ok)
	evening, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 17, 0, 0, 0, time.UTC), 600))
	require.True(t, ok)

	assert.InDelta(t, morning.SpeedKMH, evening.SpeedKMH, 1e-9)
	assert.NotEqual(t, morning.EfficiencyPct, evening.EfficiencyPct)
	assert.Greater(t, evening.EfficiencyPct, morning.EfficiencyPct)
}

func TestEnrichComplexity(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	// ~1.39 km at the 20 km/h baseline should take ~250s; the trip took 1800.
	out, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 1800))
	require.True(t, ok)
	assert.InDelta(t, 7.19, out.Complexity, 0.15)

	t.Run("stationary defaults to 1", func(t *testing.T) {
		rec := cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 600)
		rec.DropoffLat = rec.PickupLat
		rec.DropoffLon = rec.PickupLon
		out, ok := e.Enrich(rec)
		require.True(t, ok)
		assert.Equal(t, 1.0, out.Complexity)
	})
}

func TestEnrichPickupMonth(t *testing.T) {
	e := New(trip.DefaultFeatureParams())
	out, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 600))
	require.True(t, ok)
	assert.Equal(t, time.March, out.PickupMonth)
}

func TestEnrichBoroughs(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	t.Run("within manhattan", func(t *testing.T) {
		out, ok := e.Enrich(cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 600))
		require.True(t, ok)
		assert.Equal(t, "Manhattan", out.PickupBorough)
		assert.Equal(t, "Manhattan", out.DropoffBorough)
		assert.False(t, out.CrossBorough)
	})

	t.Run("manhattan to brooklyn", func(t *testing.T) {
		rec := cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 1800)
		rec.DropoffLat = 40.6782
		rec.DropoffLon = -73.9442
		out, ok := e.Enrich(rec)
		require.True(t, ok)
		assert.Equal(t, "Manhattan", out.PickupBorough)
		assert.Equal(t, "Brooklyn", out.DropoffBorough)
		assert.True(t, out.CrossBorough)
	})
}

func TestTagPatternsBands(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	// Speeds 10..100; p10 is 19 and p90 is 91, so only the extremes tag.
	recs := make([]trip.EnrichedRecord, 10)
	for i := range recs {
		recs[i] = trip.EnrichedRecord{
			CleanedRecord: trip.CleanedRecord{ID: string(rune('a' + i)), DurationSec: 600, IsValid: true},
			SpeedKMH:      float64((i + 1) * 10),
			DistanceKM:    5,
		}
	}
	e.TagPatterns(recs)

	assert.Equal(t, []string{PatternSlow}, recs[0].Patterns)
	assert.Equal(t, []string{PatternFast}, recs[9].Patterns)
	for _, r := range recs[1:9] {
		assert.Empty(t, r.Patterns, "trip %s", r.ID)
	}
}

func TestTagPatternsFixedThresholds(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	recs := []trip.EnrichedRecord{{
		CleanedRecord: trip.CleanedRecord{ID: "crawl", DurationSec: 2000, IsValid: true},
		SpeedKMH:      3,
		DistanceKM:    0.3,
	}}
	e.TagPatterns(recs)

	// A single-record batch has degenerate percentiles, so only the
	// absolute thresholds fire.
	assert.Equal(t, []string{PatternTraffic, PatternLocal, PatternJourney}, recs[0].Patterns)
}

func TestEnrichZeroDuration(t *testing.T) {
	e := New(trip.DefaultFeatureParams())
	rec := cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 600)
	rec.DurationSec = 0

	out, ok := e.Enrich(rec)
	assert.False(t, ok)
	assert.False(t, out.IsValid)
	assert.True(t, out.Flags.Has(trip.NonFiniteFeature))
}

func TestEnrichSkipsInvalid(t *testing.T) {
	e := New(trip.DefaultFeatureParams())
	rec := cleanedAt(time.Date(2016, 3, 14, 12, 0, 0, 0, time.UTC), 600)
	rec.IsValid = false

	_, ok := e.Enrich(rec)
	assert.False(t, ok)
}

func TestEnrichBatchPreservesOrder(t *testing.T) {
	e := New(trip.DefaultFeatureParams())

	a := cleanedAt(time.Date(2016, 3, 14, 8, 0, 0, 0, time.UTC), 600)
	a.ID = "a"
	bad := cleanedAt(time.Date(2016, 3, 14, 9, 0, 0, 0, time.UTC), 600)
	bad.ID = "bad"
	bad.IsValid = false
	b := cleanedAt(time.Date(2016, 3, 14, 10, 0, 0, 0, time.UTC), 600)
	b.ID = "b"

	out := e.EnrichBatch([]trip.CleanedRecord{a, bad, b})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}
