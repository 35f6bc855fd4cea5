package ostree //nolint:testpackage // shares helpers with tree_test.go.

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Randomized tests.

// oracle provides an interface similar to Tree, but stores
// data in a sorted slice.
type oracle struct {
	data []int
}

func (o *oracle) Add(value int) bool {
	idx, found := slices.BinarySearch(o.data, value)
	if found {
		return false
	}

	o.data = slices.Insert(o.data, idx, value)

	return true
}

func (o *oracle) Remove(value int) bool {
	idx, found := slices.BinarySearch(o.data, value)
	if !found {
		return false
	}

	o.data = slices.Delete(o.data, idx, idx+1)

	return true
}

func (o *oracle) RandomExistingValue(rng *rand.Rand) int {
	return o.data[rng.Intn(len(o.data))]
}

func (o *oracle) Predecessor(value int) (int, bool) {
	idx, _ := slices.BinarySearch(o.data, value)
	if idx == 0 {
		return 0, false
	}

	return o.data[idx-1], true
}

func (o *oracle) Successor(value int) (int, bool) {
	idx, found := slices.BinarySearch(o.data, value)
	if found {
		idx++
	}

	if idx == len(o.data) {
		return 0, false
	}

	return o.data[idx], true
}

func (o *oracle) Rank(value int) int {
	idx, _ := slices.BinarySearch(o.data, value)

	return idx
}

func compareContents(tb testing.TB, orc *oracle, tree *Tree[int]) {
	tb.Helper()

	requireValid(tb, tree)
	require.Equal(tb, len(orc.data), tree.Len())
	require.Equal(tb, orc.data, tree.Values())
}

func TestRandomized(t *testing.T) {
	t.Parallel()

	const numValues = 1000

	orc := &oracle{data: []int{}}
	tree := NewOrdered[int]()
	rng := rand.New(rand.NewSource(0))

	for range 10000 {
		op := rng.Intn(100)

		switch {
		case op < 50:
			value := rng.Intn(numValues)
			assert.Equal(t, orc.Add(value), tree.Add(value), "Add %d", value)
			compareContents(t, orc, tree)
		case op < 80 && len(orc.data) > 0:
			value := orc.RandomExistingValue(rng)
			orc.Remove(value)
			require.True(t, tree.Remove(value), "RemoveExisting %d", value)
			compareContents(t, orc, tree)
		case op < 85:
			value := rng.Intn(numValues)
			assert.Equal(t, orc.Remove(value), tree.Remove(value), "Remove %d", value)
			compareContents(t, orc, tree)
		case op < 90:
			value := rng.Intn(numValues)
			expected, expectedOK := orc.Predecessor(value)
			got, ok := tree.Predecessor(value)
			require.Equal(t, expectedOK, ok, "Predecessor %d", value)
			assert.Equal(t, expected, got, "Predecessor %d", value)

			expected, expectedOK = orc.Successor(value)
			got, ok = tree.Successor(value)
			require.Equal(t, expectedOK, ok, "Successor %d", value)
			assert.Equal(t, expected, got, "Successor %d", value)
		case op < 95:
			value := rng.Intn(numValues)
			assert.Equal(t, orc.Rank(value), tree.Rank(value), "Rank %d", value)
			assert.Equal(t, slices.Contains(orc.data, value), tree.Contains(value), "Contains %d", value)
		default:
			if len(orc.data) == 0 {
				_, err := tree.At(0)
				require.ErrorIs(t, err, ErrEmptyTree)

				continue
			}

			idx := rng.Intn(len(orc.data))
			got, err := tree.At(idx)
			require.NoError(t, err)
			assert.Equal(t, orc.data[idx], got, "At %d", idx)
		}
	}

	stats := tree.Stats()
	assert.Positive(t, stats.SingleRotations)
	assert.Positive(t, stats.DoubleRotations)
	assert.Equal(t, tree.Len(), stats.Slots)
}
