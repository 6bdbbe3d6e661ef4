package richtext

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func newElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

func newText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func isElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, tag := range tags {
		if n.Data == tag {
			return true
		}
	}
	return false
}

// isVoid reports elements that can never hold children or a caret.
func isVoid(n *html.Node) bool {
	return isElement(n, "img", "br", "hr", "input", "wbr", "area", "col", "embed", "source")
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	if !isElement(n) {
		return false
	}
	v, _ := getAttr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// contains reports whether n is ancestor or one of its descendants.
func contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

func childCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// childAt returns the i-th child, or nil past the last one.
func childAt(n *html.Node, i int) *html.Node {
	c := n.FirstChild
	for ; c != nil && i > 0; i-- {
		c = c.NextSibling
	}
	return c
}

func indexOf(n *html.Node) int {
	i := 0
	for c := n.PrevSibling; c != nil; c = c.PrevSibling {
		i++
	}
	return i
}

func textLen(n *html.Node) int {
	return utf8.RuneCountInString(n.Data)
}

// maxOffset is the largest valid boundary offset inside n.
func maxOffset(n *html.Node) int {
	if n.Type == html.TextNode {
		return textLen(n)
	}
	return childCount(n)
}

// walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// shallowClone copies an element without its children. The id attribute is
// not carried over.
func shallowClone(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		Data:      n.Data,
		DataAtom:  n.DataAtom,
		Namespace: n.Namespace,
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "id" {
			continue
		}
		clone.Attr = append(clone.Attr, a)
	}
	return clone
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

func fragmentContext() *html.Node {
	return newElement("div")
}

func parseFragment(content string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(content), fragmentContext())
}

func setInnerHTML(n *html.Node, content string) error {
	nodes, err := parseFragment(content)
	if err != nil {
		return err
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func innerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			break
		}
	}
	return b.String()
}

// styleDecls parses an inline style attribute into lowercased properties.
func styleDecls(n *html.Node) map[string]string {
	if !isElement(n) {
		return nil
	}
	v, ok := getAttr(n, "style")
	if !ok {
		return nil
	}

	decls := make(map[string]string)
	for _, decl := range strings.Split(v, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		if prop != "" && val != "" {
			decls[prop] = val
		}
	}
	return decls
}
