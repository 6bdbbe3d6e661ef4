package richtext

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Surface is an editable region of rich content.
//
// Selection returns the selection of the whole page, which may lie outside
// the surface; callers check it with Range.Within(Root()).
type Surface interface {
	// Root is the editable element, nil when the surface is not mounted.
	Root() *html.Node
	Selection() (Range, bool)
	Select(r Range)
	Focus()

	// QueryFormattingState and ExecFormat are the native formatting
	// engine of the host, if any. ExecFormat reports whether it applied
	// the style.
	QueryFormattingState() StyleSet
	ExecFormat(s Style) bool

	OnSelectionChange(fn func()) (cancel func())
}

var (
	ErrAlreadyMounted = errors.New("surface already mounted")
	ErrInvalidID      = errors.New("invalid surface id")
)

type listener struct {
	id int
	fn func()
}

// Page is a headless document hosting any number of editable surfaces. Like
// a browser window it has exactly one selection, shared by all surfaces.
//
// A Page is not safe for concurrent use.
type Page struct {
	doc  *html.Node
	body *html.Node

	sel       *Range
	listeners []listener
	nextID    int
}

func NewPage() *Page {
	doc := &html.Node{Type: html.DocumentNode}
	root := newElement("html")
	body := newElement("body")
	doc.AppendChild(root)
	root.AppendChild(body)
	return &Page{doc: doc, body: body}
}

// Mount appends an editable element with the given id and content to the
// page.
func (p *Page) Mount(id, content string) (*PageSurface, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if p.element(id) != nil {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyMounted, id)
	}

	host := newElement("div",
		html.Attribute{Key: "id", Val: id},
		html.Attribute{Key: "contenteditable", Val: "true"},
	)
	if err := setInnerHTML(host, content); err != nil {
		return nil, err
	}
	p.body.AppendChild(host)
	return &PageSurface{page: p, id: id}, nil
}

// Unmount detaches the surface with the given id. A selection inside it is
// dropped.
func (p *Page) Unmount(id string) {
	host := p.element(id)
	if host == nil {
		return
	}
	inside := p.sel != nil && (contains(host, p.sel.Start.Node) || contains(host, p.sel.End.Node))
	host.Parent.RemoveChild(host)
	if inside {
		p.ClearSelection()
	}
}

// Surface returns a handle on the surface with the given id, mounted or not.
func (p *Page) Surface(id string) *PageSurface {
	return &PageSurface{page: p, id: id}
}

func (p *Page) element(id string) *html.Node {
	var found *html.Node
	walk(p.body, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if v, ok := getAttr(n, "id"); ok && isElement(n) && v == id {
			found = n
			return false
		}
		return true
	})
	return found
}

func (p *Page) Selection() (Range, bool) {
	if p.sel == nil {
		return Range{}, false
	}
	return *p.sel, true
}

// Select replaces the selection and notifies selection-change listeners.
// Ranges with a boundary outside the page clear the selection.
func (p *Page) Select(r Range) {
	if r.Start.Node == nil || r.End.Node == nil ||
		!contains(p.doc, r.Start.Node) || !contains(p.doc, r.End.Node) {
		p.ClearSelection()
		return
	}
	r = r.normalize()
	p.sel = &r
	p.notify()
}

func (p *Page) ClearSelection() {
	if p.sel == nil {
		return
	}
	p.sel = nil
	p.notify()
}

func (p *Page) subscribe(fn func()) func() {
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listener{id: id, fn: fn})

	return func() {
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

func (p *Page) notify() {
	listeners := append([]listener(nil), p.listeners...)
	for _, l := range listeners {
		l.fn()
	}
}

func editableHost(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if v, ok := getAttr(n, "contenteditable"); ok && isElement(n) && (v == "" || v == "true") {
			return n
		}
	}
	return nil
}

// InsertText types text at the selection, replacing selected content. It
// reports false when the selection is not inside an editable surface.
func (p *Page) InsertText(text string) bool {
	r, ok := p.Selection()
	if !ok || editableHost(r.Start.Node) == nil || editableHost(r.End.Node) == nil {
		return false
	}

	r = deleteContents(r)
	b := r.Start
	n := b.Node

	if n.Type == html.TextNode {
		runes := []rune(n.Data)
		n.Data = string(runes[:b.Offset]) + text + string(runes[b.Offset:])
		p.Select(Caret(n, b.Offset+utf8.RuneCountInString(text)))
		return true
	}

	pos := b.split()
	prev := pos.parent.LastChild
	if pos.before != nil {
		prev = pos.before.PrevSibling
	}
	if prev != nil && prev.Type == html.TextNode {
		prev.Data += text
		p.Select(Caret(prev, textLen(prev)))
		return true
	}

	t := newText(text)
	pos.insert(t)
	p.Select(Caret(t, textLen(t)))
	return true
}

// HTML renders the content of the page body.
func (p *Page) HTML() string {
	return innerHTML(p.body)
}

// PageSurface is a surface mounted on a Page. The headless page has no
// native formatting engine.
type PageSurface struct {
	page *Page
	id   string
}

func (s *PageSurface) ID() string { return s.id }

func (s *PageSurface) Root() *html.Node {
	return s.page.element(s.id)
}

func (s *PageSurface) Selection() (Range, bool) {
	return s.page.Selection()
}

func (s *PageSurface) Select(r Range) {
	s.page.Select(r)
}

// Focus moves the caret to the start of the surface unless the selection
// is already inside it.
func (s *PageSurface) Focus() {
	root := s.Root()
	if root == nil {
		return
	}
	if r, ok := s.page.Selection(); ok && r.Within(root) {
		return
	}
	s.page.Select(Caret(root, 0))
}

func (s *PageSurface) QueryFormattingState() StyleSet { return 0 }

func (s *PageSurface) ExecFormat(Style) bool { return false }

func (s *PageSurface) OnSelectionChange(fn func()) func() {
	return s.page.subscribe(fn)
}
