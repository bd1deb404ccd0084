package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKM(t *testing.T) {
	t.Run("identical points", func(t *testing.T) {
		assert.Zero(t, HaversineKM(40.7128, -74.0060, 40.7128, -74.0060))
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := HaversineKM(40.7128, -74.0060, 40.7306, -73.9352)
		ba := HaversineKM(40.7306, -73.9352, 40.7128, -74.0060)
		assert.InDelta(t, ab, ba, 1e-12)
	})

	t.Run("lower manhattan to east village", func(t *testing.T) {
		d := HaversineKM(40.7128, -74.0060, 40.7306, -73.9352)
		assert.InDelta(t, 6.4, d, 0.2)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := HaversineKM(40, -74, 41, -74)
		assert.InDelta(t, 111.2, d, 0.5)
	})
}
