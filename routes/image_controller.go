package routes

import (
	"fmt"
	"net/http"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/richtext"
)

const editorID = "content"

// imageTarget names the rich text an image goes into: the form title, its
// description or the label of the field at index Field.
type imageTarget struct {
	Target string `json:"target"`
	Field  *int   `json:"field,omitempty"`
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
}

func (t imageTarget) content(form *model.Schema) (*string, error) {
	switch t.Target {
	case "title":
		return &form.Title, nil
	case "description":
		return &form.Description, nil
	case "label":
		if t.Field == nil {
			return nil, fmt.Errorf("%w: missing field index", errBadRequest)
		}
		index := *t.Field
		if index < 0 || index >= len(form.Fields) {
			return nil, fmt.Errorf("%w: %d", model.ErrIndexOutOfRange, index)
		}
		return &form.Fields[index].Label, nil
	}
	return nil, fmt.Errorf("%w: unknown target %q", errBadRequest, t.Target)
}

// withEditor mounts content on a headless page and runs edit on it.
func withEditor(content string, edit func(ed *richtext.Editor) (string, error)) (string, error) {
	page := richtext.NewPage()
	surface, err := page.Mount(editorID, content)
	if err != nil {
		return content, err
	}
	ed := richtext.NewEditor(surface, func(string) {
		log.Debug("richtext.changed")
	})
	defer ed.Close()

	return edit(ed)
}

func editImage(r *http.Request, form model.Schema, edit func(ed *richtext.Editor, t imageTarget) (string, error)) (model.Schema, error) {
	var t imageTarget
	if err := decodeBody(r, &t); err != nil {
		return form, err
	}
	if t.Src == "" {
		return form, fmt.Errorf("%w: missing image src", errBadRequest)
	}

	out := form.Clone()
	content, err := t.content(&out)
	if err != nil {
		return form, err
	}

	edited, err := withEditor(*content, func(ed *richtext.Editor) (string, error) {
		return edit(ed, t)
	})
	if err != nil {
		return form, err
	}
	*content = edited
	return out, nil
}

// InsertFormImage embeds an image at the end of the targeted rich text.
func InsertFormImage(app app.App) http.HandlerFunc {
	return editForm(app, "insert_image", func(r *http.Request, form model.Schema) (model.Schema, error) {
		return editImage(r, form, func(ed *richtext.Editor, t imageTarget) (string, error) {
			if !model.IsImageRef(t.Src) {
				return "", fmt.Errorf("%w: src: must be an http(s) URL or an absolute path", errInvalid)
			}

			var opts []richtext.ImageOption
			if t.Alt != "" {
				opts = append(opts, richtext.WithAlt(t.Alt))
			}
			return ed.InsertImage(t.Src, opts...), nil
		})
	})
}

// RemoveFormImage drops the first embedded image with the given src.
func RemoveFormImage(app app.App) http.HandlerFunc {
	return editForm(app, "remove_image", func(r *http.Request, form model.Schema) (model.Schema, error) {
		return editImage(r, form, func(ed *richtext.Editor, t imageTarget) (string, error) {
			img := ed.ImageBySrc(t.Src)
			if img == nil {
				return "", fmt.Errorf("%w: image %q", errNotFound, t.Src)
			}
			return ed.RemoveImage(img), nil
		})
	})
}
