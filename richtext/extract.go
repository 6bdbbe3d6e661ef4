package richtext

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/sanitize"
)

// PreviewContainerClass marks markup that is itself a preview gallery.
// Images inside it are not collected again.
const PreviewContainerClass = "image-preview-container"

type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

type Previews struct {
	URLs []string `json:"urls"`
	More int      `json:"more,omitempty"`
}

// images parses sanitized content and calls fn on every img element, in
// document order. Subtrees rejected by skip are not visited.
func images(content string, skip func(*html.Node) bool, fn func(*html.Node)) {
	if strings.TrimSpace(content) == "" {
		return
	}
	nodes, err := parseFragment(sanitize.Sanitize(content))
	if err != nil {
		log.WithError(err).Debug("richtext.extract.parse")
		return
	}

	for _, n := range nodes {
		walk(n, func(n *html.Node) bool {
			if skip != nil && skip(n) {
				return false
			}
			if isElement(n, "img") {
				fn(n)
			}
			return true
		})
	}
}

func imageSrc(n *html.Node) string {
	src, _ := getAttr(n, "src")
	return strings.TrimSpace(src)
}

func collectURLs(content string, skip func(*html.Node) bool) []string {
	urls := []string{}
	seen := make(map[string]bool)
	images(content, skip, func(n *html.Node) {
		src := imageSrc(n)
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls
}

// ExtractImageURLs returns the image URLs referenced by content, in order of
// first appearance and without duplicates.
func ExtractImageURLs(content string) []string {
	return collectURLs(content, nil)
}

// ExtractImageElements returns one entry per image with a src, duplicates
// included.
func ExtractImageElements(content string) []Image {
	var out []Image
	images(content, nil, func(n *html.Node) {
		src := imageSrc(n)
		if src == "" {
			return
		}
		alt, _ := getAttr(n, "alt")
		out = append(out, Image{Src: src, Alt: alt})
	})
	return out
}

// PreviewImages collects at most limit image URLs for a preview strip and
// counts the ones left out. A limit of zero or less means no limit.
func PreviewImages(content string, limit int) Previews {
	urls := collectURLs(content, func(n *html.Node) bool {
		return hasClass(n, PreviewContainerClass)
	})
	if limit <= 0 || len(urls) <= limit {
		return Previews{URLs: urls}
	}
	return Previews{URLs: urls[:limit], More: len(urls) - limit}
}
