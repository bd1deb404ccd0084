package trip

import "strings"

// AnomalyKind identifies one defect found during cleaning or enrichment.
type AnomalyKind uint16

const (
	ImputedPassengerCount AnomalyKind = 1 << iota
	ImputedStoreAndFwd
	ImputedVendorID
	InvalidCoordinates
	InvalidTimeOrder
	InvalidDuration
	DurationMismatch
	PassengerOutlier
	Duplicate
	DurationOutlier
	NonFiniteFeature
)

var anomalyNames = []struct {
	kind AnomalyKind
	name string
}{
	{ImputedPassengerCount, "imputed_passenger_count"},
	{ImputedStoreAndFwd, "imputed_store_and_fwd"},
	{ImputedVendorID, "imputed_vendor_id"},
	{InvalidCoordinates, "invalid_coordinates"},
	{InvalidTimeOrder, "invalid_time_order"},
	{InvalidDuration, "invalid_duration"},
	{DurationMismatch, "duration_mismatch"},
	{PassengerOutlier, "passenger_outlier"},
	{Duplicate, "duplicate"},
	{DurationOutlier, "duration_outlier"},
	{NonFiniteFeature, "non_finite_feature"},
}

func (k AnomalyKind) String() string {
	for _, e := range anomalyNames {
		if e.kind == k {
			return e.name
		}
	}
	return "unknown"
}

// AnomalySet is a bit set of AnomalyKind values. The zero value is empty.
type AnomalySet uint16

func (s *AnomalySet) Add(k AnomalyKind)     { *s |= AnomalySet(k) }
func (s AnomalySet) Has(k AnomalyKind) bool { return s&AnomalySet(k) != 0 }
func (s AnomalySet) Empty() bool            { return s == 0 }

// Kinds returns the flags present in the set, in declaration order.
func (s AnomalySet) Kinds() []AnomalyKind {
	var out []AnomalyKind
	for _, e := range anomalyNames {
		if s.Has(e.kind) {
			out = append(out, e.kind)
		}
	}
	return out
}

// String renders the set as a stable comma-separated list, the form the
// loader persists into the anomaly_flags column.
func (s AnomalySet) String() string {
	if s.Empty() {
		return ""
	}
	var names []string
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ",")
}
