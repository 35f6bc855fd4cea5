package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustIntToUint32(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(42), MustIntToUint32(42))
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(0), MustIntToUint32(0))
	})

	t.Run("negative_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: int to uint32 out of bounds", func() {
			MustIntToUint32(-1)
		})
	})
}

func TestClampUint64ToInt64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(7), ClampUint64ToInt64(7))
	assert.Equal(t, int64(math.MaxInt64), ClampUint64ToInt64(math.MaxInt64))
	assert.Equal(t, int64(math.MaxInt64), ClampUint64ToInt64(math.MaxUint64))
}
