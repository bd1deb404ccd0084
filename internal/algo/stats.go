package algo

// Summary is a single-pass aggregate over a numeric sequence. Order
// statistics (median, percentiles) need a full sort and are computed
// separately via Percentile.
type Summary struct {
	Count int
	Sum   float64
	Mean  float64
	Min   float64
	Max   float64
}

// Describe computes count/sum/mean/min/max in one pass. The zero Summary
// is returned for empty input.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(values), Min: values[0], Max: values[0]}
	for _, v := range values {
		s.Sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = s.Sum / float64(s.Count)
	return s
}

// GroupBy buckets items by key and aggregates value within each bucket in
// a single pass over the input.
func GroupBy[T any, K comparable](items []T, key func(T) K, value func(T) float64) map[K]Summary {
	sums := make(map[K]Summary)
	for _, it := range items {
		k := key(it)
		v := value(it)
		s, seen := sums[k]
		if !seen {
			s = Summary{Min: v, Max: v}
		}
		s.Count++
		s.Sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sums[k] = s
	}
	for k, s := range sums {
		s.Mean = s.Sum / float64(s.Count)
		sums[k] = s
	}
	return sums
}

// Percentile computes the p-th percentile (0..100) of an already-sorted
// ascending sequence by linear interpolation at rank p/100*(n-1).
// ok is false for empty input; the caller decides the default.
func Percentile(sorted []float64, p float64) (float64, bool) {
	n := len(sorted)
	if n == 0 {
		return 0, false
	}
	if p <= 0 {
		return sorted[0], true
	}
	if p >= 100 {
		return sorted[n-1], true
	}
	pos := p / 100 * float64(n-1)
	lo := int(pos)
	hi := lo + 1
	if hi > n-1 {
		hi = n - 1
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w, true
}

// Median is the 50th percentile of an unsorted sequence.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	SortFloats(sorted)
	return Percentile(sorted, 50)
}

// Bounds describes the IQR outlier fence for a sequence.
type Bounds struct {
	Q1, Q3, IQR  float64
	Lower, Upper float64
}

// Outlier reports whether v falls outside the fence.
func (b Bounds) Outlier(v float64) bool { return v < b.Lower || v > b.Upper }

// OutlierBounds sorts a copy of values and builds the IQR fence
// [Q1 - m*IQR, Q3 + m*IQR]. A single value yields Q1 == Q3 and a
// zero-width IQR, so nothing is flagged; empty input reports ok=false.
func OutlierBounds(values []float64, multiplier float64) (Bounds, bool) {
	if len(values) == 0 {
		return Bounds{}, false
	}
	sorted := append([]float64(nil), values...)
	SortFloats(sorted)
	q1, _ := Percentile(sorted, 25)
	q3, _ := Percentile(sorted, 75)
	b := Bounds{Q1: q1, Q3: q3, IQR: q3 - q1}
	b.Lower = q1 - multiplier*b.IQR
	b.Upper = q3 + multiplier*b.IQR
	return b, true
}
