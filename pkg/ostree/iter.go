package ostree

import "iter"

// All returns an iterator over the values in ascending order.
//
// The tree must not be modified while the iteration is in progress.
func (t *Tree[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if t.root == nilNode {
			return
		}

		for cursor := t.minOf(t.root); cursor != nilNode; cursor = t.next(cursor) {
			if !yield(t.nodes.storage[cursor].value) {
				return
			}
		}
	}
}

// Backward returns an iterator over the values in descending order.
//
// The tree must not be modified while the iteration is in progress.
func (t *Tree[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		if t.root == nilNode {
			return
		}

		for cursor := t.maxOf(t.root); cursor != nilNode; cursor = t.prev(cursor) {
			if !yield(t.nodes.storage[cursor].value) {
				return
			}
		}
	}
}

// Enumerate returns an iterator over (index, value) pairs in ascending order.
func (t *Tree[T]) Enumerate() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		index := 0

		for v := range t.All() {
			if !yield(index, v) {
				return
			}

			index++
		}
	}
}

// next returns the in-order successor node of idx, nilNode after the last one.
func (t *Tree[T]) next(idx uint32) uint32 {
	storage := t.nodes.storage

	if storage[idx].right != nilNode {
		return t.minOf(storage[idx].right)
	}

	for {
		parent := storage[idx].parent
		if parent == nilNode || storage[parent].left == idx {
			return parent
		}

		idx = parent
	}
}

// prev returns the in-order predecessor node of idx, nilNode before the first one.
func (t *Tree[T]) prev(idx uint32) uint32 {
	storage := t.nodes.storage

	if storage[idx].left != nilNode {
		return t.maxOf(storage[idx].left)
	}

	for {
		parent := storage[idx].parent
		if parent == nilNode || storage[parent].right == idx {
			return parent
		}

		idx = parent
	}
}
