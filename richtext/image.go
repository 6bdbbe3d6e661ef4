package richtext

import (
	"golang.org/x/net/html"

	"github.com/mbolis/quick-forms/log"
)

const (
	imageStyle = "max-width: 100%; height: auto; display: block; margin: 10px 0;"

	ImageWrapperClass = "editor-image"
	ImageRemoveClass  = "editor-image-remove"
)

type imageOptions struct {
	alt           string
	removeControl bool
}

type ImageOption func(*imageOptions)

func WithAlt(alt string) ImageOption {
	return func(o *imageOptions) { o.alt = alt }
}

// WithRemoveControl wraps the image together with a remove affordance.
func WithRemoveControl() ImageOption {
	return func(o *imageOptions) { o.removeControl = true }
}

func newImage(src string, o imageOptions) (img, unit *html.Node) {
	img = newElement("img",
		html.Attribute{Key: "src", Val: src},
		html.Attribute{Key: "alt", Val: o.alt},
		html.Attribute{Key: "style", Val: imageStyle},
	)
	if !o.removeControl {
		return img, img
	}

	wrapper := newElement("div", html.Attribute{Key: "class", Val: ImageWrapperClass})
	remove := newElement("span",
		html.Attribute{Key: "class", Val: ImageRemoveClass},
		html.Attribute{Key: "role", Val: "button"},
		html.Attribute{Key: "aria-label", Val: "Remove image"},
	)
	wrapper.AppendChild(img)
	wrapper.AppendChild(remove)
	return img, wrapper
}

// InsertImage puts an image followed by a line break at the selection,
// replacing selected content, and leaves the caret after the break. With no
// selection inside the surface the image is appended. On an unmounted
// surface nothing happens.
func (e *Editor) InsertImage(src string, opts ...ImageOption) string {
	var o imageOptions
	for _, opt := range opts {
		opt(&o)
	}

	root, r, ok := e.selection()
	if root == nil {
		log.WithFields(e.logFields()).Warnf("richtext.insert_image.unmounted: %s", src)
		return ""
	}

	_, unit := newImage(src, o)
	br := newElement("br")

	var pos position
	switch {
	case !ok:
		pos = position{root, nil}
	case r.Collapsed():
		pos = r.Start.split()
	default:
		_, pos = extractContents(r)
	}
	pos.insert(unit)
	pos.insert(br)

	e.surface.Select(Caret(br.Parent, indexOf(br)+1))
	return e.changed()
}

// RemoveImage removes img, and the wrapper holding its remove control if
// there is one. Nodes outside the surface are left alone.
func (e *Editor) RemoveImage(img *html.Node) string {
	root := e.surface.Root()
	if root == nil {
		log.WithFields(e.logFields()).Warn("richtext.remove_image.unmounted")
		return ""
	}
	if !isElement(img, "img") || img == root || !contains(root, img) {
		log.WithFields(e.logFields()).Debug("richtext.remove_image.not_found")
		return e.Content()
	}

	target := img
	if p := img.Parent; p != root && hasClass(p, ImageWrapperClass) {
		target = p
	}

	parent, index := target.Parent, indexOf(target)
	r, hasSel := e.surface.Selection()
	parent.RemoveChild(target)

	if hasSel {
		switch {
		case contains(target, r.Start.Node) || contains(target, r.End.Node):
			e.surface.Select(Caret(parent, index))
		case r.Start.Node == parent || r.End.Node == parent:
			r.Start = r.Start.shiftForRemoval(parent, index)
			r.End = r.End.shiftForRemoval(parent, index)
			e.surface.Select(r)
		}
	}
	return e.changed()
}

// Images lists the images of the surface in document order.
func (e *Editor) Images() []*html.Node {
	root := e.surface.Root()
	if root == nil {
		return nil
	}

	var images []*html.Node
	walk(root, func(n *html.Node) bool {
		if isElement(n, "img") {
			images = append(images, n)
		}
		return true
	})
	return images
}

// ImageBySrc returns the first image with the given src, or nil.
func (e *Editor) ImageBySrc(src string) *html.Node {
	for _, img := range e.Images() {
		if v, _ := getAttr(img, "src"); v == src {
			return img
		}
	}
	return nil
}
