package algo

// Condition constrains one numeric field: either an exact value or an
// inclusive range with either bound optional.
type Condition struct {
	eq       *float64
	min, max *float64
}

// Eq matches values equal to v.
func Eq(v float64) Condition { return Condition{eq: &v} }

// Between matches values in [min, max] inclusive.
func Between(min, max float64) Condition { return Condition{min: &min, max: &max} }

// AtLeast matches values >= v.
func AtLeast(v float64) Condition { return Condition{min: &v} }

// AtMost matches values <= v.
func AtMost(v float64) Condition { return Condition{max: &v} }

func (c Condition) matches(v float64) bool {
	if c.eq != nil {
		return v == *c.eq
	}
	if c.min != nil && v < *c.min {
		return false
	}
	if c.max != nil && v > *c.max {
		return false
	}
	return true
}

// Filter returns the items satisfying every condition. The field accessor
// resolves a condition name to the item's value; reporting ok=false means
// the field is absent, which is a non-match rather than an error.
func Filter[T any](items []T, conds map[string]Condition, field func(T, string) (float64, bool)) []T {
	if len(conds) == 0 {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	var out []T
	for _, it := range items {
		ok := true
		for name, cond := range conds {
			v, present := field(it, name)
			if !present || !cond.matches(v) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, it)
		}
	}
	return out
}
