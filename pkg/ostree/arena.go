package ostree

import (
	"math"

	"github.com/Sumatoshi-tech/ostree/pkg/safeconv"
)

// nilNode is the reserved arena slot standing for an absent node.
const nilNode uint32 = 0

// maxSlots is the largest number of arena slots, including the reserved one.
const maxSlots = math.MaxUint32

// node is a single tree node. Links are arena indices, nilNode when absent.
type node[T any] struct {
	value  T
	parent uint32
	left   uint32
	right  uint32
	height int
	count  int
}

// arena owns every node of a tree. Slot 0 is reserved; released slots are
// kept on the free list and handed out again before the storage grows.
type arena[T any] struct {
	storage []node[T]
	gaps    []uint32
}

// malloc allocates a leaf holding value under parent and returns its index.
// The storage slice may be reallocated, so callers must not keep pointers
// into it across this call.
func (a *arena[T]) malloc(value T, parent uint32) uint32 {
	if len(a.storage) == 0 {
		// Zero is reserved.
		a.storage = append(a.storage, node[T]{})
	}

	leaf := node[T]{value: value, parent: parent, height: 1, count: 1}

	if n := len(a.gaps); n > 0 {
		idx := a.gaps[n-1]
		a.gaps = a.gaps[:n-1]
		a.storage[idx] = leaf

		return idx
	}

	if uint64(len(a.storage)) >= maxSlots {
		panic("ostree: arena exhausted")
	}

	a.storage = append(a.storage, leaf)

	return safeconv.MustIntToUint32(len(a.storage) - 1)
}

// free releases the slot. The slot is zeroed so the value can be collected.
func (a *arena[T]) free(idx uint32) {
	if idx == nilNode {
		panic("ostree: node #0 is special and cannot be deallocated")
	}

	a.storage[idx] = node[T]{}
	a.gaps = append(a.gaps, idx)
}

// reset drops all nodes and the backing storage.
func (a *arena[T]) reset() {
	a.storage = nil
	a.gaps = nil
}

// used returns the number of live nodes.
func (a *arena[T]) used() int {
	if len(a.storage) == 0 {
		return 0
	}

	return len(a.storage) - 1 - len(a.gaps)
}

// vacant returns the number of released slots waiting for reuse.
func (a *arena[T]) vacant() int {
	return len(a.gaps)
}
