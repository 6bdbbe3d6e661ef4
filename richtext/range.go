package richtext

import (
	"golang.org/x/net/html"
)

// Boundary is a point in the tree. Inside a text node Offset counts runes,
// inside an element it counts children.
type Boundary struct {
	Node   *html.Node
	Offset int
}

// Range is a selection between two boundaries. A collapsed range is a caret.
type Range struct {
	Start Boundary
	End   Boundary
}

func Caret(n *html.Node, offset int) Range {
	b := Boundary{Node: n, Offset: offset}
	return Range{Start: b, End: b}
}

// Contents selects every child of n.
func Contents(n *html.Node) Range {
	return Range{
		Start: Boundary{Node: n, Offset: 0},
		End:   Boundary{Node: n, Offset: maxOffset(n)},
	}
}

func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// Within reports whether both ends of r lie inside root.
func (r Range) Within(root *html.Node) bool {
	if root == nil || r.Start.Node == nil || r.End.Node == nil {
		return false
	}
	return contains(root, r.Start.Node) && contains(root, r.End.Node)
}

func (b Boundary) clamp() Boundary {
	if b.Offset < 0 {
		b.Offset = 0
	}
	if m := maxOffset(b.Node); b.Offset > m {
		b.Offset = m
	}
	return b
}

// path is the index path from the tree root down to b.
func (b Boundary) path() []int {
	var path []int
	for n := b.Node; n.Parent != nil; n = n.Parent {
		path = append(path, indexOf(n))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return append(path, b.Offset)
}

func compareBoundaries(a, b Boundary) int {
	if a.Node == b.Node {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	}

	pa, pb := a.path(), b.path()
	for i := 0; i < len(pa) && i < len(pb); i++ {
		switch {
		case pa[i] < pb[i]:
			return -1
		case pa[i] > pb[i]:
			return 1
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	}
	return 0
}

// normalize clamps offsets and orders a backward range.
func (r Range) normalize() Range {
	r.Start, r.End = r.Start.clamp(), r.End.clamp()
	if compareBoundaries(r.Start, r.End) > 0 {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

// position is a point between two children of parent. A nil before means
// the end of parent.
type position struct {
	parent *html.Node
	before *html.Node
}

func (p position) insert(n *html.Node) {
	p.parent.InsertBefore(n, p.before)
}

func (p position) boundary() Boundary {
	if p.before == nil {
		return Boundary{Node: p.parent, Offset: childCount(p.parent)}
	}
	return Boundary{Node: p.parent, Offset: indexOf(p.before)}
}

// split turns b into a position between nodes, splitting a text node in two
// when b falls inside it.
func (b Boundary) split() position {
	n := b.Node
	switch {
	case n.Type == html.TextNode:
		if b.Offset <= 0 {
			return position{n.Parent, n}
		}
		runes := []rune(n.Data)
		if b.Offset >= len(runes) {
			return position{n.Parent, n.NextSibling}
		}
		tail := newText(string(runes[b.Offset:]))
		n.Data = string(runes[:b.Offset])
		n.Parent.InsertBefore(tail, n.NextSibling)
		return position{n.Parent, tail}

	case isVoid(n):
		if b.Offset <= 0 {
			return position{n.Parent, n}
		}
		return position{n.Parent, n.NextSibling}
	}
	return position{n, childAt(n, b.Offset)}
}

func commonAncestor(a, b *html.Node) *html.Node {
	seen := make(map[*html.Node]bool)
	for n := a; n != nil; n = n.Parent {
		seen[n] = true
	}
	for n := b; n != nil; n = n.Parent {
		if seen[n] {
			return n
		}
	}
	return nil
}

// lift moves p up until its parent is top. Elements cut in the middle are
// split in two, the second half being a shallow clone holding the trailing
// children.
func lift(p position, top *html.Node) position {
	for p.parent != top {
		el := p.parent
		switch {
		case p.before == el.FirstChild:
			p = position{el.Parent, el}
		case p.before == nil:
			p = position{el.Parent, el.NextSibling}
		default:
			clone := shallowClone(el)
			for n := p.before; n != nil; {
				next := n.NextSibling
				el.RemoveChild(n)
				clone.AppendChild(n)
				n = next
			}
			el.Parent.InsertBefore(clone, el.NextSibling)
			p = position{el.Parent, clone}
		}
	}
	return p
}

// extractContents detaches the nodes covered by r and returns them with the
// position they were taken from. Partially selected elements are split so
// that only the selected part moves.
func extractContents(r Range) ([]*html.Node, position) {
	end := r.End.split()
	start := r.Start.split()

	top := commonAncestor(start.parent, end.parent)
	start = lift(start, top)
	end = lift(end, top)

	var nodes []*html.Node
	for n := start.before; n != nil && n != end.before; {
		next := n.NextSibling
		top.RemoveChild(n)
		nodes = append(nodes, n)
		n = next
	}
	return nodes, position{top, end.before}
}

// deleteContents removes the nodes covered by r and returns the caret left
// behind.
func deleteContents(r Range) Range {
	if r.Collapsed() {
		return r
	}
	_, pos := extractContents(r)
	b := pos.boundary()
	return Caret(b.Node, b.Offset)
}

// shiftForRemoval fixes a boundary of parent after the child at index was
// removed.
func (b Boundary) shiftForRemoval(parent *html.Node, index int) Boundary {
	if b.Node == parent && b.Offset > index {
		b.Offset--
	}
	return b
}
