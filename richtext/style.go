// Package richtext edits rich content on headless editable surfaces and
// extracts images from stored rich content.
package richtext

import (
	"fmt"
	"strings"
)

type Style uint8

const (
	Bold Style = 1 << iota
	Italic
	Underline
)

var styleNames = map[Style]string{
	Bold:      "bold",
	Italic:    "italic",
	Underline: "underline",
}

func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Style(%d)", uint8(s))
}

// ParseStyle accepts "bold", "italic" and "underline".
func ParseStyle(s string) (Style, error) {
	for style, name := range styleNames {
		if name == s {
			return style, nil
		}
	}
	return 0, fmt.Errorf("unknown style %q", s)
}

// tag is the semantic element used when a style is applied by wrapping.
func (s Style) tag() string {
	switch s {
	case Bold:
		return "strong"
	case Italic:
		return "em"
	case Underline:
		return "u"
	}
	return ""
}

func styleOfTag(tag string) Style {
	switch tag {
	case "b", "strong":
		return Bold
	case "i", "em":
		return Italic
	case "u":
		return Underline
	}
	return 0
}

// StyleSet is a set of independent styles.
type StyleSet uint8

func NewStyleSet(styles ...Style) StyleSet {
	var set StyleSet
	for _, s := range styles {
		set = set.With(s)
	}
	return set
}

func (set StyleSet) Has(s Style) bool      { return set&StyleSet(s) != 0 }
func (set StyleSet) With(s Style) StyleSet { return set | StyleSet(s) }

func (set StyleSet) Union(other StyleSet) StyleSet { return set | other }

// Styles lists the members in bold, italic, underline order.
func (set StyleSet) Styles() []Style {
	var out []Style
	for _, s := range []Style{Bold, Italic, Underline} {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

func (set StyleSet) String() string {
	names := make([]string, 0, 3)
	for _, s := range set.Styles() {
		names = append(names, s.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

func (set StyleSet) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range set.Styles() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"` + s.String() + `"`)
	}
	b.WriteByte(']')
	return []byte(b.String()), nil
}
