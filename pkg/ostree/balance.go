package ostree

// update recomputes height and subtree size of idx from its children.
func (t *Tree[T]) update(idx uint32) {
	nd := &t.nodes.storage[idx]
	nd.height = 1 + max(t.heightOf(nd.left), t.heightOf(nd.right))
	nd.count = 1 + t.countOf(nd.left) + t.countOf(nd.right)
}

// balanceFactor returns height(left) - height(right) of idx.
func (t *Tree[T]) balanceFactor(idx uint32) int {
	nd := &t.nodes.storage[idx]

	return t.heightOf(nd.left) - t.heightOf(nd.right)
}

// retrace walks from idx up to the root, repairing heights and sizes and
// rotating every node whose balance factor left [-1, 1]. It never stops
// early: sizes change along the whole path even once heights are stable.
func (t *Tree[T]) retrace(idx uint32) {
	for idx != nilNode {
		t.update(idx)
		idx = t.rebalance(idx)
		idx = t.nodes.storage[idx].parent
	}
}

// rebalance restores the AVL property at idx and returns the root of the
// resulting subtree.
func (t *Tree[T]) rebalance(idx uint32) uint32 {
	storage := t.nodes.storage
	balance := t.balanceFactor(idx)

	switch {
	case balance > 1:
		left := storage[idx].left
		if t.heightOf(storage[left].left) < t.heightOf(storage[left].right) {
			// LR.
			t.rotateLeft(left)
			t.stats.DoubleRotations++
		} else {
			// LL.
			t.stats.SingleRotations++
		}

		return t.rotateRight(idx)
	case balance < -1:
		right := storage[idx].right
		if t.heightOf(storage[right].right) < t.heightOf(storage[right].left) {
			// RL.
			t.rotateRight(right)
			t.stats.DoubleRotations++
		} else {
			// RR.
			t.stats.SingleRotations++
		}

		return t.rotateLeft(idx)
	default:
		return idx
	}
}

// rotateDirection performs a tree rotation at pivot and returns the node that
// took its place. isLeft=true performs left rotation, isLeft=false performs
// right rotation.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
// Heights and sizes of both moved nodes are recomputed, pivot first.
func (t *Tree[T]) rotateDirection(pivot uint32, isLeft bool) uint32 {
	storage := t.nodes.storage

	var child, inner uint32

	if isLeft {
		child = storage[pivot].right
		inner = storage[child].left
		storage[pivot].right = inner
		storage[child].left = pivot
	} else {
		child = storage[pivot].left
		inner = storage[child].right
		storage[pivot].left = inner
		storage[child].right = pivot
	}

	if inner != nilNode {
		storage[inner].parent = pivot
	}

	t.replaceChild(storage[pivot].parent, pivot, child)
	storage[pivot].parent = child

	t.update(pivot)
	t.update(child)

	return child
}

func (t *Tree[T]) rotateLeft(idx uint32) uint32 {
	return t.rotateDirection(idx, true)
}

func (t *Tree[T]) rotateRight(idx uint32) uint32 {
	return t.rotateDirection(idx, false)
}

// replaceChild makes replacement take the place of old under parent. A
// nilNode parent means old is the root.
func (t *Tree[T]) replaceChild(parent, old, replacement uint32) {
	storage := t.nodes.storage

	switch {
	case parent == nilNode:
		t.root = replacement
	case storage[parent].left == old:
		storage[parent].left = replacement
	default:
		storage[parent].right = replacement
	}

	if replacement != nilNode {
		storage[replacement].parent = parent
	}
}
