package verify

import "slices"

// oracle provides an interface similar to Set, but stores
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

func (o *oracle) Rank(value int) int {
	idx, _ := slices.BinarySearch(o.data, value)

	return idx
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

func (o *oracle) divergence(set Set, reason string) *Divergence {
	return &Divergence{
		Reason:   reason,
		Expected: slices.Clone(o.data),
		Actual:   set.Values(),
	}
}
