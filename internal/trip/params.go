package trip

// BoundingBox is the geographic envelope valid coordinates must fall in.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box (inclusive).
// NaN coordinates compare false on every bound and are therefore outside.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// NYCBounds is the default envelope, the approximate NYC city limits.
func NYCBounds() BoundingBox {
	return BoundingBox{MinLat: 40.4774, MaxLat: 40.9176, MinLon: -74.2591, MaxLon: -73.7004}
}

// QualityWeights are the per-flag penalties subtracted from the 100-point
// quality score. Hard-invalid conditions cap the score at 0 regardless.
type QualityWeights struct {
	Imputation       float64
	PassengerOutlier float64
	DurationMismatch float64
	DurationOutlier  float64
}

func DefaultQualityWeights() QualityWeights {
	return QualityWeights{Imputation: 5, PassengerOutlier: 5, DurationMismatch: 15, DurationOutlier: 10}
}

// ValidationParams collects every tunable of the cleaner. Values are passed
// in explicitly so distinct configurations (other cities, test fixtures)
// can run side by side.
type ValidationParams struct {
	Bounds               BoundingBox
	MinDurationSec       int
	MaxDurationSec       int
	DurationToleranceSec int
	MaxPassengers        int

	DefaultPassengers  int
	DefaultVendorID    int
	DefaultStoreAndFwd string

	Weights QualityWeights

	// Batch-level IQR pass over valid-record durations.
	OutlierIQRMultiplier float64
	OutlierSampleLimit   int // sample above this batch size; 0 disables sampling
}

func DefaultValidationParams() ValidationParams {
	return ValidationParams{
		Bounds:               NYCBounds(),
		MinDurationSec:       60,
		MaxDurationSec:       3600,
		DurationToleranceSec: 5,
		MaxPassengers:        8,
		DefaultPassengers:    1,
		DefaultVendorID:      1,
		DefaultStoreAndFwd:   "N",
		Weights:              DefaultQualityWeights(),
		OutlierIQRMultiplier: 2.0,
		OutlierSampleLimit:   100000,
	}
}

// HourTable maps each hour of day 0..23 to a time bucket.
type HourTable [24]TimeBucket

// DefaultHourTable: 0-5 night, 6-9 morning rush, 10-15 midday,
// 16-18 evening rush, 19-23 evening.
func DefaultHourTable() HourTable {
	var t HourTable
	for h := 0; h < 24; h++ {
		switch {
		case h <= 5:
			t[h] = BucketNight
		case h <= 9:
			t[h] = BucketMorningRush
		case h <= 15:
			t[h] = BucketMidday
		case h <= 18:
			t[h] = BucketEveningRush
		default:
			t[h] = BucketEvening
		}
	}
	return t
}

// SpeedTable holds one km/h figure per time bucket.
type SpeedTable map[TimeBucket]float64

// Borough is a named zone with its approximate center. Trips are assigned
// to whichever center is nearest.
type Borough struct {
	Name string
	Lat  float64
	Lon  float64
}

// NYCBoroughs returns the five borough centers used for zone
// classification.
func NYCBoroughs() []Borough {
	return []Borough{
		{Name: "Manhattan", Lat: 40.7831, Lon: -73.9712},
		{Name: "Brooklyn", Lat: 40.6782, Lon: -73.9442},
		{Name: "Queens", Lat: 40.7282, Lon: -73.7949},
		{Name: "Bronx", Lat: 40.8448, Lon: -73.8648},
		{Name: "Staten Island", Lat: 40.5795, Lon: -74.1502},
	}
}

// DefaultSpeedBucketEdges are the lower bounds of the speed distribution
// bands in km/h; the last band is open-ended.
func DefaultSpeedBucketEdges() []float64 {
	return []float64{0, 10, 20, 30, 40, 50}
}

// FeatureParams collects the feature engine tunables. Benchmarks vary by
// bucket: an evening-rush trip at the same speed as a morning-rush one
// scores differently because the attainable speed differs.
type FeatureParams struct {
	Hours          HourTable
	BenchmarkKMH   SpeedTable
	FreeFlowKMH    SpeedTable
	RushHourStarts [2]int // weekday rush windows [start..start+2]: morning, evening

	Boroughs []Borough

	// ComplexityBaselineKMH is the reference city speed the complexity
	// ratio compares actual duration against.
	ComplexityBaselineKMH float64
}

func DefaultFeatureParams() FeatureParams {
	return FeatureParams{
		Hours: DefaultHourTable(),
		BenchmarkKMH: SpeedTable{
			BucketNight:       45,
			BucketMorningRush: 28,
			BucketMidday:      32,
			BucketEveningRush: 24,
			BucketEvening:     35,
		},
		FreeFlowKMH: SpeedTable{
			BucketNight:       40,
			BucketMorningRush: 25,
			BucketMidday:      30,
			BucketEveningRush: 22,
			BucketEvening:     32,
		},
		RushHourStarts:        [2]int{7, 17},
		Boroughs:              NYCBoroughs(),
		ComplexityBaselineKMH: 20,
	}
}
