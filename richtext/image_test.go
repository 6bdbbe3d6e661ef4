package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const imgStyle = `style="max-width: 100%; height: auto; display: block; margin: 10px 0;"`

func TestInsertImage_AtCaret(t *testing.T) {
	page := NewPage()
	s, e := mount(t, page, "label", "ab")

	page.Select(Caret(s.Root().FirstChild, 1))
	out := e.InsertImage("/uploads/forms/x.png")

	assert.Equal(t, `a<img src="/uploads/forms/x.png" alt="" `+imgStyle+`/><br/>b`, out)

	r, ok := page.Selection()
	require.True(t, ok)
	assert.True(t, r.Collapsed())
	assert.Equal(t, Boundary{Node: s.Root(), Offset: 3}, r.Start, "caret sits after the line break")
}

func TestInsertImage_TypingContinuesAfterImage(t *testing.T) {
	page := NewPage()
	s, e := mount(t, page, "label", "ab")

	page.Select(Caret(s.Root().FirstChild, 1))
	e.InsertImage("/uploads/forms/x.png")
	require.True(t, page.InsertText("c"))
	e.ToggleStyle(Bold)

	img := e.ImageBySrc("/uploads/forms/x.png")
	require.NotNil(t, img)
	assert.Nil(t, img.FirstChild)
	assert.Equal(t,
		`a<img src="/uploads/forms/x.png" alt="" `+imgStyle+`/><br/>c<strong></strong>b`,
		e.Content())
}

func TestInsertImage_ReplacesSelection(t *testing.T) {
	page := NewPage()
	s, e := mount(t, page, "label", "abc")

	selectText(page, s.Root().FirstChild, 1, 2)
	out := e.InsertImage("https://cdn.example.com/y.gif", WithAlt("why"))

	assert.Equal(t, `a<img src="https://cdn.example.com/y.gif" alt="why" `+imgStyle+`/><br/>c`, out)
}

func TestInsertImage_AppendsWithoutSelection(t *testing.T) {
	page := NewPage()
	s, e := mount(t, page, "label", "<p>hi</p>")

	out := e.InsertImage("/a.png")

	assert.Equal(t, `<p>hi</p><img src="/a.png" alt="" `+imgStyle+`/><br/>`, out)
	r, ok := page.Selection()
	require.True(t, ok)
	assert.Equal(t, Caret(s.Root(), 3), r)
}

func TestInsertImage_AppendsWhenSelectionElsewhere(t *testing.T) {
	page := NewPage()
	_, ea := mount(t, page, "a", "alpha")
	b, _ := mount(t, page, "b", "beta")

	selectText(page, b.Root().FirstChild, 0, 4)
	out := ea.InsertImage("/a.png")

	assert.Equal(t, `alpha<img src="/a.png" alt="" `+imgStyle+`/><br/>`, out)
	assert.Equal(t, "beta", innerHTML(b.Root()))
}

func TestInsertImage_WithRemoveControl(t *testing.T) {
	page := NewPage()
	_, e := mount(t, page, "label", "")

	out := e.InsertImage("/a.png", WithRemoveControl())

	assert.Equal(t,
		`<div class="editor-image"><img src="/a.png" alt="" `+imgStyle+`/>`+
			`<span class="editor-image-remove" role="button" aria-label="Remove image"></span></div><br/>`,
		out)
}

func TestInsertImage_Unmounted(t *testing.T) {
	page := NewPage()
	called := false
	e := NewEditor(page.Surface("gone"), func(string) { called = true })
	defer e.Close()

	assert.Equal(t, "", e.InsertImage("/a.png"))
	assert.False(t, called)
}

func TestRemoveImage_WithWrapper(t *testing.T) {
	page := NewPage()
	s, e := mount(t, page, "label", "<p>hi</p>")

	e.InsertImage("/a.png", WithRemoveControl())
	out := e.RemoveImage(e.ImageBySrc("/a.png"))

	assert.Equal(t, "<p>hi</p><br/>", out)
	assert.Empty(t, e.Images())

	r, ok := page.Selection()
	require.True(t, ok)
	assert.Equal(t, Caret(s.Root(), 2), r, "caret keeps its place after the break")
}

func TestRemoveImage_ExactNode(t *testing.T) {
	page := NewPage()
	_, e := mount(t, page, "label", `<p><img src="/a.png"><img src="/b.png"></p>`)

	out := e.RemoveImage(e.ImageBySrc("/a.png"))

	assert.Equal(t, `<p><img src="/b.png"/></p>`, out)
}

func TestRemoveImage_SelectionInside(t *testing.T) {
	page := NewPage()
	s, e := mount(t, page, "label", `x<div class="editor-image"><img src="/a.png"><span class="editor-image-remove"></span></div>`)

	wrapper := s.Root().LastChild
	page.Select(Caret(wrapper, 1))
	e.RemoveImage(e.ImageBySrc("/a.png"))

	r, ok := page.Selection()
	require.True(t, ok)
	assert.Equal(t, Caret(s.Root(), 1), r)
}

func TestRemoveImage_ForeignNode(t *testing.T) {
	page := NewPage()
	_, ea := mount(t, page, "a", "alpha")
	_, eb := mount(t, page, "b", `<img src="/b.png">`)

	assert.Equal(t, "alpha", ea.RemoveImage(eb.ImageBySrc("/b.png")))
	assert.Len(t, eb.Images(), 1)
	assert.Equal(t, "alpha", ea.RemoveImage(nil))
}
