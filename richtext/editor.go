package richtext

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/mbolis/quick-forms/log"
)

type Event int

const (
	EventKeyUp Event = iota
	EventMouseUp
	EventSelectionChange
	EventFocus
	EventClick
)

// Editor drives one surface: it keeps the styles active at the selection
// and applies formatting and images to the surface content.
type Editor struct {
	surface  Surface
	onChange func(content string)
	active   StyleSet
	cancel   func()
}

// NewEditor attaches an editor to s. onChange, if not nil, receives the
// serialized content after every edit.
func NewEditor(s Surface, onChange func(content string)) *Editor {
	e := &Editor{surface: s, onChange: onChange}
	e.cancel = s.OnSelectionChange(func() {
		e.HandleEvent(EventSelectionChange)
	})
	return e
}

// Close stops listening to selection changes.
func (e *Editor) Close() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Editor) logFields() log.Fields {
	fields := log.Fields{}
	if s, ok := e.surface.(interface{ ID() string }); ok {
		fields["surface"] = s.ID()
	}
	return fields
}

func (e *Editor) ActiveStyles() StyleSet {
	return e.active
}

// Content is the serialized content of the surface, empty when unmounted.
func (e *Editor) Content() string {
	root := e.surface.Root()
	if root == nil {
		return ""
	}
	return innerHTML(root)
}

func (e *Editor) changed() string {
	content := e.Content()
	if e.onChange != nil {
		e.onChange(content)
	}
	return content
}

// selection returns the root and the selection when the latter lies inside
// the surface.
func (e *Editor) selection() (*html.Node, Range, bool) {
	root := e.surface.Root()
	if root == nil {
		return nil, Range{}, false
	}
	r, ok := e.surface.Selection()
	if !ok || !r.Within(root) {
		return root, Range{}, false
	}
	return root, r, true
}

// HandleEvent refreshes the active styles.
func (e *Editor) HandleEvent(ev Event) {
	switch ev {
	case EventKeyUp, EventMouseUp, EventSelectionChange, EventFocus, EventClick:
		e.ComputeActiveStyles()
	}
}

// ComputeActiveStyles recomputes the styles at the selection. A selection
// outside the surface leaves the current state untouched.
func (e *Editor) ComputeActiveStyles() StyleSet {
	root, r, ok := e.selection()
	if !ok {
		return e.active
	}

	set := e.surface.QueryFormattingState()
	set = set.Union(computedStyles(r.Start.Node, root))
	set = set.Union(tagStyles(r.Start.Node, root))
	e.active = set
	return set
}

// computedStyles resolves inline styles the way they cascade: the nearest
// font-weight and font-style win, underline applies from any ancestor.
func computedStyles(anchor, root *html.Node) StyleSet {
	var set StyleSet
	weightSeen, styleSeen := false, false

	for n := anchor; n != nil; n = n.Parent {
		decls := styleDecls(n)
		if w, ok := decls["font-weight"]; ok && !weightSeen {
			weightSeen = true
			if isBoldWeight(w) {
				set = set.With(Bold)
			}
		}
		if s, ok := decls["font-style"]; ok && !styleSeen {
			styleSeen = true
			if s == "italic" || s == "oblique" {
				set = set.With(Italic)
			}
		}
		for _, prop := range []string{"text-decoration", "text-decoration-line"} {
			if strings.Contains(decls[prop], "underline") {
				set = set.With(Underline)
			}
		}
		if n == root {
			break
		}
	}
	return set
}

func isBoldWeight(w string) bool {
	switch w {
	case "bold", "bolder", "700", "800", "900":
		return true
	}
	return false
}

func tagStyles(anchor, root *html.Node) StyleSet {
	var set StyleSet
	for n := anchor; n != nil && n != root; n = n.Parent {
		if isElement(n) {
			if s := styleOfTag(n.Data); s != 0 {
				set = set.With(s)
			}
		}
	}
	return set
}

// ToggleStyle applies s to the selection and returns the new content.
// Without a selection inside the surface it only focuses the surface.
func (e *Editor) ToggleStyle(s Style) string {
	root, r, ok := e.selection()
	if root == nil {
		log.WithFields(e.logFields()).Debugf("richtext.toggle_style.unmounted: %v", s)
		return ""
	}
	if !ok {
		e.surface.Focus()
		return e.Content()
	}

	if !e.surface.ExecFormat(s) {
		e.wrap(r, s)
	}
	content := e.changed()
	e.ComputeActiveStyles()
	return content
}

// wrap is the formatting fallback: the selected nodes are moved into a new
// style element which is then selected. A caret gets an empty element with
// the caret inside, so typed text picks up the style.
func (e *Editor) wrap(r Range, s Style) {
	wrapper := newElement(s.tag())

	if r.Collapsed() {
		r.Start.split().insert(wrapper)
		e.surface.Select(Caret(wrapper, 0))
		return
	}

	nodes, pos := extractContents(r)
	for _, n := range nodes {
		wrapper.AppendChild(n)
	}
	pos.insert(wrapper)
	e.surface.Select(Contents(wrapper))
}
