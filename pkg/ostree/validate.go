package ostree

import "fmt"

// Validate checks every structural invariant of the tree: strict BST order,
// AVL balance, cached heights and subtree sizes, parent links and arena
// accounting. It runs in O(N) and is meant for tests and diagnostics; the
// mutating operations never call it.
func (t *Tree[T]) Validate() error {
	if t.root == nilNode {
		if used := t.nodes.used(); used != 0 {
			return fmt.Errorf("%w: empty tree holds %d arena slots", ErrInvariantViolation, used)
		}

		return nil
	}

	if parent := t.nodes.storage[t.root].parent; parent != nilNode {
		return fmt.Errorf("%w: root #%d has parent #%d", ErrInvariantViolation, t.root, parent)
	}

	_, count, err := t.validateSubtree(t.root, nilNode, nilNode)
	if err != nil {
		return err
	}

	if used := t.nodes.used(); used != count {
		return fmt.Errorf("%w: %d nodes reachable, %d arena slots in use", ErrInvariantViolation, count, used)
	}

	return nil
}

// validateSubtree checks the subtree rooted at idx, whose values must lie
// strictly between the values of the lower and upper bound nodes (nilNode
// meaning unbounded). It returns the recomputed height and size.
func (t *Tree[T]) validateSubtree(idx, lower, upper uint32) (height, count int, err error) {
	if idx == nilNode {
		return 0, 0, nil
	}

	storage := t.nodes.storage
	nd := &storage[idx]

	if lower != nilNode && t.compare(storage[lower].value, nd.value) >= 0 {
		return 0, 0, fmt.Errorf("%w: node #%d is not greater than its lower bound #%d", ErrInvariantViolation, idx, lower)
	}

	if upper != nilNode && t.compare(nd.value, storage[upper].value) >= 0 {
		return 0, 0, fmt.Errorf("%w: node #%d is not less than its upper bound #%d", ErrInvariantViolation, idx, upper)
	}

	for _, child := range [2]uint32{nd.left, nd.right} {
		if child != nilNode && storage[child].parent != idx {
			return 0, 0, fmt.Errorf("%w: node #%d has parent #%d, expected #%d",
				ErrInvariantViolation, child, storage[child].parent, idx)
		}
	}

	leftHeight, leftCount, err := t.validateSubtree(nd.left, lower, idx)
	if err != nil {
		return 0, 0, err
	}

	rightHeight, rightCount, err := t.validateSubtree(nd.right, idx, upper)
	if err != nil {
		return 0, 0, err
	}

	if diff := leftHeight - rightHeight; diff > 1 || diff < -1 {
		return 0, 0, fmt.Errorf("%w: node #%d has balance factor %d", ErrInvariantViolation, idx, diff)
	}

	height = 1 + max(leftHeight, rightHeight)
	if nd.height != height {
		return 0, 0, fmt.Errorf("%w: node #%d caches height %d, actual %d", ErrInvariantViolation, idx, nd.height, height)
	}

	count = 1 + leftCount + rightCount
	if nd.count != count {
		return 0, 0, fmt.Errorf("%w: node #%d caches count %d, actual %d", ErrInvariantViolation, idx, nd.count, count)
	}

	return height, count, nil
}
