// Package algo holds the self-contained analytical primitives the pipeline
// is built on: sorting, filtering, percentile/IQR statistics, grouping and
// geodesic distance. Everything here is generic over caller-supplied key
// functions and knows nothing about trip records.
package algo

// SortBy sorts items in place by the numeric key, ascending unless desc is
// set. It is a three-way-partition quicksort with a median-of-three pivot
// and an explicit worklist: equal keys are never recursed on, so runs of
// repeated keys (hour values, bucketed speeds) stay cheap, and sorted or
// reverse-sorted input does not degrade to quadratic time. Ties keep an
// order but not necessarily input order.
func SortBy[T any](items []T, key func(T) float64, desc bool) {
	if len(items) < 2 {
		return
	}
	less := func(a, b float64) bool {
		if desc {
			return a > b
		}
		return a < b
	}

	type span struct{ lo, hi int }
	stack := make([]span, 0, 32)
	stack = append(stack, span{0, len(items) - 1})

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lo, hi := s.lo, s.hi
		if hi-lo < 1 {
			continue
		}

		pivot := medianOfThree(key(items[lo]), key(items[(lo+hi)/2]), key(items[hi]), less)

		// Dutch-flag partition: [lo,lt) < pivot, [lt,i) == pivot, (gt,hi] > pivot.
		lt, i, gt := lo, lo, hi
		for i <= gt {
			k := key(items[i])
			switch {
			case less(k, pivot):
				items[i], items[lt] = items[lt], items[i]
				lt++
				i++
			case less(pivot, k):
				items[i], items[gt] = items[gt], items[i]
				gt--
			default:
				i++
			}
		}

		// Push the larger side first so the worklist stays logarithmic.
		left := span{lo, lt - 1}
		right := span{gt + 1, hi}
		if (left.hi - left.lo) > (right.hi - right.lo) {
			stack = append(stack, left, right)
		} else {
			stack = append(stack, right, left)
		}
	}
}

// SortFloats sorts the slice ascending in place.
func SortFloats(values []float64) {
	SortBy(values, func(v float64) float64 { return v }, false)
}

func medianOfThree(a, b, c float64, less func(x, y float64) bool) float64 {
	if less(b, a) {
		a, b = b, a
	}
	if less(c, b) {
		b = c
		if less(b, a) {
			b = a
		}
	}
	return b
}
