// Package ostree provides an AVL-balanced order-statistics tree: an ordered
// set of unique values that also answers rank queries ("the k-th smallest
// value", "how many values are smaller than x") in O(log N).
//
// Nodes live in an arena owned by the tree and refer to each other by index,
// so the parent back-references never form pointer cycles. Every node keeps
// its height and subtree size; both are repaired bottom-up after each
// mutation while the AVL balance is restored with single or double rotations.
package ostree

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
)

// Sentinel errors returned by tree queries.
var (
	// ErrEmptyTree is returned by Min, Max and At on a tree with no values.
	ErrEmptyTree = errors.New("tree is empty")

	// ErrIndexOutOfRange is returned by At for an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvariantViolation is returned by Validate when the structure is corrupt.
	ErrInvariantViolation = errors.New("tree invariant violated")
)

// Tree is an ordered set of unique values kept in an AVL tree augmented with
// subtree sizes.
//
// The tree is not safe for concurrent use. A Tree must be created with New,
// NewOrdered or FromSlice.
type Tree[T any] struct {
	compare func(a, b T) int
	nodes   arena[T]
	root    uint32
	stats   Stats
}

// Stats holds counters describing the work done by a tree.
type Stats struct {
	// SingleRotations counts LL and RR rebalancing steps.
	SingleRotations uint64 `json:"single_rotations" yaml:"single_rotations"`
	// DoubleRotations counts LR and RL rebalancing steps.
	DoubleRotations uint64 `json:"double_rotations" yaml:"double_rotations"`
	// Slots is the number of live arena slots.
	Slots int `json:"slots" yaml:"slots"`
	// FreeSlots is the number of released arena slots waiting for reuse.
	FreeSlots int `json:"free_slots" yaml:"free_slots"`
}

// New creates an empty tree ordered by compare, which must return a negative
// number when a < b, zero when a == b and a positive number when a > b.
func New[T any](compare func(a, b T) int) *Tree[T] {
	if compare == nil {
		panic("ostree: nil comparator")
	}

	return &Tree[T]{compare: compare}
}

// NewOrdered creates an empty tree using the natural ordering of T.
func NewOrdered[T cmp.Ordered]() *Tree[T] {
	return New(cmp.Compare[T])
}

// FromSlice creates a tree holding values. Later duplicates are dropped.
func FromSlice[T any](compare func(a, b T) int, values []T) *Tree[T] {
	tree := New(compare)
	for _, v := range values {
		tree.Add(v)
	}

	return tree
}

// Len returns the number of values in the tree.
func (t *Tree[T]) Len() int {
	return t.countOf(t.root)
}

// Height returns the height of the tree, 0 when empty.
func (t *Tree[T]) Height() int {
	return t.heightOf(t.root)
}

// Stats returns rotation counters and arena occupancy.
func (t *Tree[T]) Stats() Stats {
	stats := t.stats
	stats.Slots = t.nodes.used()
	stats.FreeSlots = t.nodes.vacant()

	return stats
}

// Add inserts value. It returns false and leaves the tree unchanged when an
// equal value is already present.
func (t *Tree[T]) Add(value T) bool {
	if t.root == nilNode {
		t.root = t.nodes.malloc(value, nilNode)

		return true
	}

	cursor := t.root

	for {
		current := t.nodes.storage[cursor]
		comp := t.compare(value, current.value)

		switch {
		case comp == 0:
			return false
		case comp < 0:
			if current.left == nilNode {
				leaf := t.nodes.malloc(value, cursor)
				t.nodes.storage[cursor].left = leaf
				t.retrace(cursor)

				return true
			}

			cursor = current.left
		default:
			if current.right == nilNode {
				leaf := t.nodes.malloc(value, cursor)
				t.nodes.storage[cursor].right = leaf
				t.retrace(cursor)

				return true
			}

			cursor = current.right
		}
	}
}

// AddSeq adds every value produced by seq and returns how many were inserted.
func (t *Tree[T]) AddSeq(seq iter.Seq[T]) int {
	added := 0

	for v := range seq {
		if t.Add(v) {
			added++
		}
	}

	return added
}

// Remove deletes value and reports whether it was present.
//
// A node with two children takes over the value of its in-order predecessor,
// and the predecessor node, which has no right child, is spliced out instead.
func (t *Tree[T]) Remove(value T) bool {
	target := t.find(value)
	if target == nilNode {
		return false
	}

	storage := t.nodes.storage

	if storage[target].left != nilNode && storage[target].right != nilNode {
		pred := t.maxOf(storage[target].left)
		storage[target].value = storage[pred].value
		target = pred
	}

	child := storage[target].left
	if child == nilNode {
		child = storage[target].right
	}

	parent := storage[target].parent
	t.replaceChild(parent, target, child)
	t.nodes.free(target)

	if t.root == nilNode {
		t.nodes.reset()

		return true
	}

	t.retrace(parent)

	return true
}

// Contains reports whether value is in the tree.
func (t *Tree[T]) Contains(value T) bool {
	return t.find(value) != nilNode
}

// Min returns the smallest value.
func (t *Tree[T]) Min() (T, error) {
	if t.root == nilNode {
		var zero T

		return zero, ErrEmptyTree
	}

	return t.nodes.storage[t.minOf(t.root)].value, nil
}

// Max returns the largest value.
func (t *Tree[T]) Max() (T, error) {
	if t.root == nilNode {
		var zero T

		return zero, ErrEmptyTree
	}

	return t.nodes.storage[t.maxOf(t.root)].value, nil
}

// Predecessor returns the largest value strictly less than value.
func (t *Tree[T]) Predecessor(value T) (T, bool) {
	var (
		best  T
		found bool
	)

	storage := t.nodes.storage
	cursor := t.root

	for cursor != nilNode {
		current := &storage[cursor]
		if t.compare(current.value, value) < 0 {
			best, found = current.value, true
			cursor = current.right
		} else {
			cursor = current.left
		}
	}

	return best, found
}

// Successor returns the smallest value strictly greater than value.
func (t *Tree[T]) Successor(value T) (T, bool) {
	var (
		best  T
		found bool
	)

	storage := t.nodes.storage
	cursor := t.root

	for cursor != nilNode {
		current := &storage[cursor]
		if t.compare(current.value, value) > 0 {
			best, found = current.value, true
			cursor = current.left
		} else {
			cursor = current.right
		}
	}

	return best, found
}

// PredecessorOr returns the largest value strictly less than value, or
// fallback when there is none.
func (t *Tree[T]) PredecessorOr(value, fallback T) T {
	if pred, ok := t.Predecessor(value); ok {
		return pred
	}

	return fallback
}

// SuccessorOr returns the smallest value strictly greater than value, or
// fallback when there is none.
func (t *Tree[T]) SuccessorOr(value, fallback T) T {
	if succ, ok := t.Successor(value); ok {
		return succ
	}

	return fallback
}

// At returns the index-th smallest value, counting from 0.
func (t *Tree[T]) At(index int) (T, error) {
	var zero T

	if t.root == nilNode {
		return zero, fmt.Errorf("%w: %w: index %d", ErrEmptyTree, ErrIndexOutOfRange, index)
	}

	if size := t.Len(); index < 0 || index >= size {
		return zero, fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, index, size)
	}

	storage := t.nodes.storage
	cursor := t.root

	for {
		leftCount := t.countOf(storage[cursor].left)

		switch {
		case index < leftCount:
			cursor = storage[cursor].left
		case index == leftCount:
			return storage[cursor].value, nil
		default:
			index -= leftCount + 1
			cursor = storage[cursor].right
		}
	}
}

// Rank returns the number of values strictly less than value. For a stored
// value this is its index, so At(Rank(v)) == v.
func (t *Tree[T]) Rank(value T) int {
	storage := t.nodes.storage
	rank := 0
	cursor := t.root

	for cursor != nilNode {
		comp := t.compare(value, storage[cursor].value)

		switch {
		case comp < 0:
			cursor = storage[cursor].left
		case comp == 0:
			return rank + t.countOf(storage[cursor].left)
		default:
			rank += t.countOf(storage[cursor].left) + 1
			cursor = storage[cursor].right
		}
	}

	return rank
}

// Values returns all values in ascending order.
func (t *Tree[T]) Values() []T {
	values := make([]T, 0, t.Len())
	for v := range t.All() {
		values = append(values, v)
	}

	return values
}

// Clear removes all values and releases the node storage.
func (t *Tree[T]) Clear() {
	t.root = nilNode
	t.nodes.reset()
}

// find returns the index of the node holding value, nilNode if absent.
func (t *Tree[T]) find(value T) uint32 {
	storage := t.nodes.storage
	cursor := t.root

	for cursor != nilNode {
		comp := t.compare(value, storage[cursor].value)

		switch {
		case comp == 0:
			return cursor
		case comp < 0:
			cursor = storage[cursor].left
		default:
			cursor = storage[cursor].right
		}
	}

	return nilNode
}

// minOf returns the leftmost node of the subtree rooted at idx.
func (t *Tree[T]) minOf(idx uint32) uint32 {
	storage := t.nodes.storage
	for storage[idx].left != nilNode {
		idx = storage[idx].left
	}

	return idx
}

// maxOf returns the rightmost node of the subtree rooted at idx.
func (t *Tree[T]) maxOf(idx uint32) uint32 {
	storage := t.nodes.storage
	for storage[idx].right != nilNode {
		idx = storage[idx].right
	}

	return idx
}

func (t *Tree[T]) heightOf(idx uint32) int {
	if idx == nilNode {
		return 0
	}

	return t.nodes.storage[idx].height
}

func (t *Tree[T]) countOf(idx uint32) int {
	if idx == nilNode {
		return 0
	}

	return t.nodes.storage[idx].count
}
