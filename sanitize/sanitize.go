// Package sanitize cleans rich text before it reaches a render path.
//
// Editor output is persisted as-is. Anything that gets injected as raw HTML
// (public form view, previews, image extraction) goes through Sanitize first.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once

	strict     *bluemonday.Policy
	strictOnce sync.Once
)

// AllowedTags lists the only elements that survive Sanitize.
var AllowedTags = []string{"b", "i", "u", "strong", "em", "img", "br", "p", "div"}

// AllowedAttrs lists the only attributes that survive Sanitize.
var AllowedAttrs = []string{"src", "alt", "class", "style"}

// inline styles produced by the editor (image layout, fallback formatting)
var allowedStyles = []string{
	"max-width", "height", "display", "margin",
	"font-weight", "font-style", "text-decoration", "text-decoration-line",
	"text-align",
}

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.NewPolicy()
		policy.AllowElements(AllowedTags...)
		policy.AllowAttrs(AllowedAttrs...).Globally()
		policy.AllowStyles(allowedStyles...).Globally()

		// http(s) and relative URLs only: javascript: and data: are dropped
		policy.RequireParseableURLs(true)
		policy.AllowRelativeURLs(true)
		policy.AllowURLSchemes("http", "https")
	})
	return policy
}

func getStrict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Sanitize strips html down to the rich text allow-list.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return getPolicy().Sanitize(html)
}

// PlainText removes every tag and returns the trimmed text content, with
// entities decoded.
func PlainText(content string) string {
	if content == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getStrict().Sanitize(content)))
}

// IsBlank reports whether rich content carries neither text nor images.
func IsBlank(html string) bool {
	if PlainText(html) != "" {
		return false
	}
	return !strings.Contains(Sanitize(html), "<img")
}
