// Package cleaner validates and repairs raw trip batches. It never rejects
// a whole batch: every defect is isolated to its record, which is either
// repaired (imputation) or kept with IsValid=false and the flags needed to
// explain the exclusion.
package cleaner

import (
	"fmt"
	"math"

	"trip-pipeline/internal/algo"
	"trip-pipeline/internal/trip"
)

// Stats counts what happened to one batch, mirroring the counters the
// pipeline reports at the end of a run.
type Stats struct {
	Total            int
	Valid            int
	Invalid          int
	Duplicates       int
	Imputations      int
	CoordinateErrors int
	TemporalErrors   int
	DurationErrors   int
	DurationOutliers int
}

// Cleaner applies the validation rules of one configuration. It is
// stateless across batches; the duplicate index lives only inside a single
// Clean call.
type Cleaner struct {
	params trip.ValidationParams
}

func New(params trip.ValidationParams) *Cleaner {
	return &Cleaner{params: params}
}

// Clean validates the batch record by record and returns every record,
// valid or not, in input order.
func (c *Cleaner) Clean(batch []trip.RawRecord) ([]trip.CleanedRecord, Stats) {
	stats := Stats{Total: len(batch)}
	out := make([]trip.CleanedRecord, 0, len(batch))
	seen := make(map[string]struct{}, len(batch))

	for _, raw := range batch {
		rec := c.cleanOne(raw, seen, &stats)
		out = append(out, rec)
	}

	c.flagDurationOutliers(out, &stats)

	for i := range out {
		out[i].QualityScore = scoreFromFlags(out[i].Flags, out[i].IsValid, c.params.Weights)
		if out[i].IsValid {
			stats.Valid++
		} else {
			stats.Invalid++
		}
	}
	return out, stats
}

func (c *Cleaner) cleanOne(raw trip.RawRecord, seen map[string]struct{}, stats *Stats) trip.CleanedRecord {
	rec := trip.CleanedRecord{
		ID:              raw.ID,
		PickupTime:      raw.PickupTime,
		DropoffTime:     raw.DropoffTime,
		PickupLat:       raw.PickupLat,
		PickupLon:       raw.PickupLon,
		DropoffLat:      raw.DropoffLat,
		DropoffLon:      raw.DropoffLon,
		StoreAndFwdFlag: raw.StoreAndFwdFlag,
		DurationSec:     raw.DurationSec,
		IsValid:         true,
	}

	// Missing-value imputation (soft).
	if raw.PassengerCount == nil || *raw.PassengerCount <= 0 {
		rec.PassengerCount = c.params.DefaultPassengers
		rec.Flags.Add(trip.ImputedPassengerCount)
		stats.Imputations++
	} else {
		rec.PassengerCount = *raw.PassengerCount
	}
	if raw.StoreAndFwdFlag == "" {
		rec.StoreAndFwdFlag = c.params.DefaultStoreAndFwd
		rec.Flags.Add(trip.ImputedStoreAndFwd)
		stats.Imputations++
	}
	if raw.VendorID == nil || *raw.VendorID <= 0 {
		rec.VendorID = c.params.DefaultVendorID
		rec.Flags.Add(trip.ImputedVendorID)
		stats.Imputations++
	} else {
		rec.VendorID = *raw.VendorID
	}

	// Geographic validation (hard). (0,0) is a null-island sentinel and
	// never valid regardless of the configured box.
	if !c.coordinatesValid(rec) {
		rec.IsValid = false
		rec.Flags.Add(trip.InvalidCoordinates)
		stats.CoordinateErrors++
		return rec
	}

	// Temporal validation (hard).
	if !rec.DropoffTime.After(rec.PickupTime) {
		rec.IsValid = false
		rec.Flags.Add(trip.InvalidTimeOrder)
		stats.TemporalErrors++
		return rec
	}
	computed := int(rec.DropoffTime.Sub(rec.PickupTime).Seconds())
	if diff := rec.DurationSec - computed; diff > c.params.DurationToleranceSec || diff < -c.params.DurationToleranceSec {
		rec.Flags.Add(trip.DurationMismatch)
	}
	if rec.DurationSec < c.params.MinDurationSec || rec.DurationSec > c.params.MaxDurationSec {
		rec.IsValid = false
		rec.Flags.Add(trip.InvalidDuration)
		stats.DurationErrors++
		return rec
	}

	// Passenger bound (soft).
	if rec.PassengerCount > c.params.MaxPassengers {
		rec.Flags.Add(trip.PassengerOutlier)
	}

	// Duplicate detection over records that survived the hard checks.
	// First occurrence by input order wins.
	key := duplicateKey(rec)
	if _, dup := seen[key]; dup {
		rec.IsValid = false
		rec.Flags.Add(trip.Duplicate)
		stats.Duplicates++
		return rec
	}
	seen[key] = struct{}{}

	return rec
}

func (c *Cleaner) coordinatesValid(rec trip.CleanedRecord) bool {
	if rec.PickupLat == 0 && rec.PickupLon == 0 {
		return false
	}
	if rec.DropoffLat == 0 && rec.DropoffLon == 0 {
		return false
	}
	return c.params.Bounds.Contains(rec.PickupLat, rec.PickupLon) &&
		c.params.Bounds.Contains(rec.DropoffLat, rec.DropoffLon)
}

// flagDurationOutliers runs the batch-level IQR pass over the durations of
// still-valid records. Outliers are flagged for the quality score, not
// invalidated. Large batches are thinned with a deterministic stride so the
// fence computation stays cheap.
func (c *Cleaner) flagDurationOutliers(recs []trip.CleanedRecord, stats *Stats) {
	if c.params.OutlierIQRMultiplier <= 0 {
		return
	}
	durations := make([]float64, 0, len(recs))
	for i := range recs {
		if recs[i].IsValid {
			durations = append(durations, float64(recs[i].DurationSec))
		}
	}
	sample := durations
	if limit := c.params.OutlierSampleLimit; limit > 0 && len(durations) > limit {
		stride := (len(durations) + limit - 1) / limit
		sample = make([]float64, 0, limit)
		for i := 0; i < len(durations); i += stride {
			sample = append(sample, durations[i])
		}
	}
	bounds, ok := algo.OutlierBounds(sample, c.params.OutlierIQRMultiplier)
	if !ok || bounds.IQR == 0 {
		return
	}
	for i := range recs {
		if recs[i].IsValid && bounds.Outlier(float64(recs[i].DurationSec)) {
			recs[i].Flags.Add(trip.DurationOutlier)
			stats.DurationOutliers++
		}
	}
}

func scoreFromFlags(flags trip.AnomalySet, valid bool, w trip.QualityWeights) float64 {
	if !valid {
		return 0
	}
	score := 100.0
	for _, k := range flags.Kinds() {
		switch k {
		case trip.ImputedPassengerCount, trip.ImputedStoreAndFwd, trip.ImputedVendorID:
			score -= w.Imputation
		case trip.PassengerOutlier:
			score -= w.PassengerOutlier
		case trip.DurationMismatch:
			score -= w.DurationMismatch
		case trip.DurationOutlier:
			score -= w.DurationOutlier
		}
	}
	return math.Max(0, score)
}

// duplicateKey builds the normalized key two records must share to count
// as duplicates. Coordinates are rounded to six decimals (about 0.1 m),
// so the match is exact at source precision, not proximity.
func duplicateKey(rec trip.CleanedRecord) string {
	return fmt.Sprintf("%d|%d|%d|%.6f|%.6f|%.6f|%.6f|%d",
		rec.VendorID,
		rec.PickupTime.Unix(),
		rec.DropoffTime.Unix(),
		rec.PickupLat, rec.PickupLon,
		rec.DropoffLat, rec.DropoffLon,
		rec.PassengerCount,
	)
}
