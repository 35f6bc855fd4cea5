package ostree

import (
	"fmt"
	"strings"
)

// emptyDrawing is what PrettyPrint returns for a tree without values.
const emptyDrawing = "────┤ empty"

// PrettyPrint returns a sideways drawing of the tree: right subtrees above
// their parent, left subtrees below. Each line shows the value, the node
// height and the subtree size.
func (t *Tree[T]) PrettyPrint() string {
	if t == nil || t.root == nilNode {
		return emptyDrawing
	}

	var out strings.Builder

	t.output(&out, t.root, "", false)

	return out.String()
}

func (t *Tree[T]) output(out *strings.Builder, idx uint32, prefix string, isTail bool) {
	nd := &t.nodes.storage[idx]

	if nd.right != nilNode {
		newPrefix := prefix
		if isTail {
			newPrefix += "│\t"
		} else {
			newPrefix += "\t"
		}

		t.output(out, nd.right, newPrefix, false)
	}

	out.WriteString(prefix)

	if isTail {
		out.WriteString("└──")
	} else {
		out.WriteString("┌──")
	}

	fmt.Fprintf(out, "%v h=%d n=%d\n", nd.value, nd.height, nd.count)

	if nd.left != nilNode {
		newPrefix := prefix
		if isTail {
			newPrefix += "\t"
		} else {
			newPrefix += "│\t"
		}

		t.output(out, nd.left, newPrefix, true)
	}
}
