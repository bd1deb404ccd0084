package trip

import "time"

// RawRecord is one trip row exactly as it came off the source file.
// Optional columns that may arrive empty are pointers (nil = missing);
// the cleaner decides how to impute them. Raw records are never mutated.
type RawRecord struct {
	ID              string
	VendorID        *int
	PickupTime      time.Time
	DropoffTime     time.Time
	PassengerCount  *int
	PickupLat       float64
	PickupLon       float64
	DropoffLat      float64
	DropoffLon      float64
	StoreAndFwdFlag string // "Y"/"N", "" when missing
	DurationSec     int
}

// CleanedRecord is a RawRecord after validation and imputation. All fields
// the feature engine reads are concrete here; if that could not be achieved
// the record carries IsValid=false and the flags explaining why.
type CleanedRecord struct {
	ID              string
	VendorID        int
	PickupTime      time.Time
	DropoffTime     time.Time
	PassengerCount  int
	PickupLat       float64
	PickupLon       float64
	DropoffLat      float64
	DropoffLon      float64
	StoreAndFwdFlag string
	DurationSec     int

	IsValid      bool
	QualityScore float64
	Flags        AnomalySet
}

// EnrichedRecord adds the derived features. Every numeric here is finite;
// records that cannot produce finite values never become EnrichedRecords.
type EnrichedRecord struct {
	CleanedRecord

	DistanceKM     float64
	SpeedKMH       float64
	IdleTimeSec    float64
	EfficiencyPct  float64
	DistancePerMin float64
	Complexity     float64
	TimeOfDay      TimeBucket
	DayOfWeek      time.Weekday
	PickupMonth    time.Month
	IsWeekend      bool
	IsRushHour     bool

	PickupBorough  string
	DropoffBorough string
	CrossBorough   bool

	// Patterns is filled by a batch-level pass once percentile
	// thresholds are known; empty means an unremarkable trip.
	Patterns []string
}

// TimeBucket is the coarse time-of-day classification of a pickup.
type TimeBucket string

const (
	BucketNight       TimeBucket = "night"
	BucketMorningRush TimeBucket = "morning_rush"
	BucketMidday      TimeBucket = "midday"
	BucketEveningRush TimeBucket = "evening_rush"
	BucketEvening     TimeBucket = "evening"
)

// Buckets lists all time-of-day buckets in chronological order.
func Buckets() []TimeBucket {
	return []TimeBucket{BucketNight, BucketMorningRush, BucketMidday, BucketEveningRush, BucketEvening}
}
