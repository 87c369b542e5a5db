// Package prose wraps raw CMS HTML in typographic containers.
package prose

import (
	"html/template"
	"strings"
)

type Size int

const (
	SizeLg Size = iota
	SizeSm
	SizeBase
	SizeXl
)

type Width int

const (
	WidthNone Width = iota
	WidthProse
	WidthFull
)

type Wrapper int

const (
	WrapDiv Wrapper = iota
	WrapArticle
	WrapSection
)

// Options selects the container. The zero value is a large, unconstrained
// div.
type Options struct {
	Size     Size
	MaxWidth Width
	Wrapper  Wrapper
	Class    string
}

var sizeClass = map[Size]string{
	SizeSm:   "prose-sm",
	SizeBase: "prose-base",
	SizeLg:   "prose-lg",
	SizeXl:   "prose-xl",
}

var widthClass = map[Width]string{
	WidthProse: "max-w-prose",
	WidthNone:  "max-w-none",
	WidthFull:  "max-w-full",
}

var wrapperTag = map[Wrapper]string{
	WrapDiv:     "div",
	WrapArticle: "article",
	WrapSection: "section",
}

// Render returns html inside a prose container.
//
// The HTML is not sanitized. It must come from the authenticated WordPress
// backend, which is trusted to have filtered author input.
func Render(html string, opts Options) template.HTML {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	size, ok := sizeClass[opts.Size]
	if !ok {
		size = sizeClass[SizeLg]
	}
	width, ok := widthClass[opts.MaxWidth]
	if !ok {
		width = widthClass[WidthNone]
	}
	tag, ok := wrapperTag[opts.Wrapper]
	if !ok {
		tag = "div"
	}

	class := "prose " + size + " " + width
	if c := strings.TrimSpace(opts.Class); c != "" {
		class += " " + c
	}

	var b strings.Builder
	b.Grow(len(html) + len(class) + 32)
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(` class="`)
	b.WriteString(template.HTMLEscapeString(class))
	b.WriteString(`">`)
	b.WriteString(html)
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
	return template.HTML(b.String())
}
