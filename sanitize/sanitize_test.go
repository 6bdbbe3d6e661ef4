package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_StripsScriptKeepsBold(t *testing.T) {
	out := Sanitize(`<script>alert(1)</script><b>ok</b>`)

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert")
	assert.Contains(t, out, "<b>ok</b>")
}

func TestSanitize_AllowList(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		keep    []string
		dropped []string
	}{
		{
			name:    "formatting tags survive",
			in:      `<p><strong>a</strong><em>b</em><u>c</u><i>d</i><br></p>`,
			keep:    []string{"<p>", "<strong>a</strong>", "<em>b</em>", "<u>c</u>", "<i>d</i>", "<br"},
			dropped: nil,
		},
		{
			name:    "event handlers removed",
			in:      `<div onclick="steal()" class="x">hi</div>`,
			keep:    []string{`class="x"`, "hi"},
			dropped: []string{"onclick", "steal"},
		},
		{
			name:    "links unwrapped",
			in:      `<a href="https://example.com">go</a>`,
			keep:    []string{"go"},
			dropped: []string{"<a", "href"},
		},
		{
			name:    "javascript src dropped",
			in:      `<img src="javascript:alert(1)" alt="x">`,
			dropped: []string{"javascript:"},
		},
		{
			name:    "data src dropped",
			in:      `<img src="data:image/png;base64,AAAA" alt="x">`,
			dropped: []string{"data:"},
		},
		{
			name:    "mailto src dropped",
			in:      `<img src="mailto:a@b.c" alt="x">`,
			keep:    []string{`alt="x"`},
			dropped: []string{"mailto:", "src="},
		},
		{
			name:    "relative src kept",
			in:      `<img src="/uploads/forms/a.png">`,
			keep:    []string{`src="/uploads/forms/a.png"`},
			dropped: nil,
		},
		{
			name:    "image attributes kept",
			in:      `<img src="https://cdn.example.com/a.png" alt="banner" style="max-width: 100%">`,
			keep:    []string{`src="https://cdn.example.com/a.png"`, `alt="banner"`, "max-width"},
			dropped: nil,
		},
		{
			name:    "iframe and style blocks removed",
			in:      `<iframe src="https://evil"></iframe><style>body{}</style>text`,
			keep:    []string{"text"},
			dropped: []string{"iframe", "body{}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Sanitize(tt.in)
			for _, s := range tt.keep {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.dropped {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		`<script>alert(1)</script><b>ok</b>`,
		`<p>One<br>Two</p><div class="editor-image"><img src="/uploads/forms/a.png" alt="" style="max-width: 100%; height: auto; display: block"></div>`,
		`<p onmouseover="x()"><span style="color:red">red</span> & <em>more</em></p>`,
		`<b><i>unclosed`,
		`<img src="javascript:alert(1)">`,
		`&lt;b&gt; escaped &amp; fine`,
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world", PlainText("<p><b>Hello</b> world</p>"))
	assert.Equal(t, "", PlainText("<p> <br> </p>"))
	assert.Equal(t, "", PlainText(""))
	assert.Equal(t, "Bar & Grill", PlainText("Bar & Grill"))
	assert.Equal(t, "Bar & Grill", PlainText("<p>Bar &amp; Grill</p>"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("<p><br></p>"))
	assert.False(t, IsBlank("<p>Name</p>"))
	assert.False(t, IsBlank(`<img src="https://cdn.example.com/a.png">`))
}
