package blocks

import (
	"bytes"
	_ "embed"
	"html/template"
	"strconv"
	"strings"
)

//go:embed core.tmpl
var coreTemplates string

var core = template.Must(template.New("core").Parse(coreTemplates))

// exec renders one named core template. The templates are fixed at build
// time, so a failure here is a bug and yields empty output.
func exec(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := core.ExecuteTemplate(&buf, name, data); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

// trusted marks CMS rich text as HTML. Rich text attributes are authored and
// filtered in WordPress.
func trusted(s string) template.HTML { return template.HTML(s) }

func registerCore(r *Registry) {
	r.Register("core/paragraph", Typed(renderParagraph))
	r.Register("core/heading", Typed(renderHeading))
	r.Register("core/list", Typed(renderList))
	r.Register("core/list-item", Typed(renderListItem))
	r.Register("core/quote", Typed(renderQuote))
	r.Register("core/image", Typed(renderImage))
	r.Register("core/gallery", Typed(renderGallery))
	r.Register("core/embed", Typed(embedRenderer("")))
	for _, name := range []string{"core-embed/youtube", "core-embed/vimeo", "core-embed/twitter"} {
		r.Register(name, Typed(embedRenderer(providerFromName(name))))
	}
	r.Register("core/columns", Typed(renderColumns))
	r.Register("core/column", Typed(renderColumn))
	r.Register("core/buttons", Typed(renderButtons))
	r.Register("core/button", Typed(renderButton))
	r.Register("core/separator", Typed(renderSeparator))
	r.Register("core/spacer", Typed(renderSpacer))
}

type textView struct {
	ID      string
	Level   int
	Class   string
	Style   template.CSS
	Content template.HTML
}

func renderParagraph(a Paragraph, _ template.HTML) template.HTML {
	if strings.TrimSpace(a.Content) == "" {
		return ""
	}
	var d decls
	d.common(a.Style)
	class := classes(
		prefixed("has-text-align-", a.Align),
		dropCap(a.DropCap),
		textColorClass(a.TextColor),
		backgroundClass(a.BackgroundColor),
		fontSizeClass(a.FontSize),
		a.ClassName,
	)
	return exec("paragraph", textView{Class: class, Style: d.CSS(), Content: trusted(a.Content)})
}

func dropCap(on bool) string {
	if on {
		return "has-drop-cap"
	}
	return ""
}

func fontSizeClass(slug string) string {
	if slug == "" {
		return ""
	}
	return "has-" + slug + "-font-size"
}

func renderHeading(a Heading, _ template.HTML) template.HTML {
	if strings.TrimSpace(a.Content) == "" {
		return ""
	}
	level := a.Level
	if level < 1 || level > 6 {
		level = 2
	}
	var d decls
	d.common(a.Style)
	class := classes(
		"wp-block-heading",
		prefixed("has-text-align-", a.TextAlign),
		textColorClass(a.TextColor),
		backgroundClass(a.BackgroundColor),
		a.ClassName,
	)
	return exec("heading", textView{
		ID:      a.Anchor,
		Level:   level,
		Class:   class,
		Style:   d.CSS(),
		Content: trusted(a.Content),
	})
}

type listView struct {
	Ordered  bool
	Start    string
	Reversed bool
	Class    string
	Style    template.CSS
	Items    template.HTML
}

func renderList(a List, children template.HTML) template.HTML {
	items := children
	if items == "" {
		items = trusted(a.Values)
	}
	if strings.TrimSpace(string(items)) == "" {
		return ""
	}
	var d decls
	d.common(a.Style)
	v := listView{
		Ordered: a.Ordered,
		Class:   classes("wp-block-list", a.ClassName),
		Style:   d.CSS(),
		Items:   items,
	}
	if a.Ordered {
		v.Reversed = a.Reversed
		if a.Start != nil {
			v.Start = strconv.Itoa(*a.Start)
		}
	}
	return exec("list", v)
}

type listItemView struct {
	Class    string
	Style    template.CSS
	Content  template.HTML
	Children template.HTML
}

func renderListItem(a ListItem, children template.HTML) template.HTML {
	var d decls
	d.common(a.Style)
	return exec("list-item", listItemView{
		Class:    a.ClassName,
		Style:    d.CSS(),
		Content:  trusted(a.Content),
		Children: children,
	})
}

type quoteView struct {
	Class    string
	Style    template.CSS
	Body     template.HTML
	Citation template.HTML
}

func renderQuote(a Quote, children template.HTML) template.HTML {
	body := children
	if body == "" {
		body = trusted(a.Value)
	}
	if strings.TrimSpace(string(body)) == "" && a.Citation == "" {
		return ""
	}
	var d decls
	d.common(a.Style)
	class := classes(
		"wp-block-quote",
		prefixed("has-text-align-", a.Align),
		a.ClassName,
	)
	return exec("quote", quoteView{
		Class:    class,
		Style:    d.CSS(),
		Body:     body,
		Citation: trusted(a.Citation),
	})
}

type imageView struct {
	Class         string
	Style         template.CSS
	URL, Alt      string
	Title         string
	Width, Height int
	Href          string
	Target, Rel   string
	Caption       template.HTML
}

func renderImage(a Image, _ template.HTML) template.HTML {
	if a.URL == "" {
		return ""
	}
	align := a.Align
	if align == "" {
		align = "center"
	}
	v := imageView{
		Class:   classes("wp-block-image", "align"+align, a.ClassName),
		URL:     a.URL,
		Alt:     a.Alt,
		Title:   a.Title,
		Width:   orDefault(int(a.Width), 800),
		Height:  orDefault(int(a.Height), 600),
		Href:    a.Href,
		Caption: trusted(a.Caption),
	}
	var d decls
	d.set("border-radius", a.Style.Border.Radius)
	v.Style = d.CSS()
	if a.Href != "" && a.LinkTarget != "" {
		v.Target = a.LinkTarget
		if a.LinkTarget == "_blank" {
			v.Rel = "noopener noreferrer"
		}
	}
	return exec("image", v)
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

type galleryItem struct {
	URL, Alt, Caption string
	Href              string
	External          bool
}

type galleryView struct {
	Class    string
	Crop     bool
	Children template.HTML
	Images   []galleryItem
	Caption  template.HTML
}

func renderGallery(a Gallery, children template.HTML) template.HTML {
	cols := a.Columns
	if cols < 1 || cols > 6 {
		cols = 3
	}
	v := galleryView{
		Class:    classes("wp-block-gallery", "columns-"+strconv.Itoa(cols), prefixed("align", a.Align), a.ClassName),
		Crop:     a.ImageCrop == nil || *a.ImageCrop,
		Children: children,
		Caption:  trusted(a.Caption),
	}
	if children == "" {
		for _, img := range a.Images {
			if img.URL == "" {
				continue
			}
			it := galleryItem{URL: img.URL, Alt: img.Alt, Caption: img.Caption}
			switch a.LinkTo {
			case "media":
				it.Href, it.External = img.URL, true
			case "attachment":
				it.Href = img.Link
			}
			v.Images = append(v.Images, it)
		}
		if len(v.Images) == 0 {
			return ""
		}
	}
	if v.Crop {
		v.Class = classes(v.Class, "is-cropped")
	}
	return exec("gallery", v)
}

type embedView struct {
	Class      string
	URL, Src   string
	Host       string
	Title      string
	Responsive bool
	Caption    template.HTML
}

// embedRenderer renders core/embed. A non-empty provider stands in for a
// missing providerNameSlug, for the legacy core-embed/* blocks.
func embedRenderer(provider string) func(Embed, template.HTML) template.HTML {
	return func(a Embed, _ template.HTML) template.HTML {
		if a.URL == "" {
			return ""
		}
		slug := a.ProviderNameSlug
		if slug == "" {
			slug = provider
		}
		align := a.Align
		if align == "" {
			align = "center"
		}
		v := embedView{
			URL:        a.URL,
			Host:       embedHost(a.URL),
			Responsive: a.Responsive == nil || *a.Responsive,
			Caption:    trusted(a.Caption),
		}
		base := classes("wp-block-embed", "align"+align, prefixed("is-provider-", slug), a.ClassName)

		if src := embedURL(a.URL); src != "" && isVideo(a.URL, slug) {
			v.Src = src
			v.Title = "Embedded video"
			if a.Caption != "" && !strings.Contains(a.Caption, "<") {
				v.Title = a.Caption
			}
			v.Class = classes(base, "is-type-video")
			return exec("embed-video", v)
		}
		if isTwitter(a.URL, slug) {
			v.Class = classes(base, "is-type-rich")
			return exec("embed-twitter", v)
		}
		v.Class = base
		return exec("embed-generic", v)
	}
}

type containerView struct {
	Class    string
	Style    template.CSS
	Children template.HTML
}

func renderColumns(a Columns, children template.HTML) template.HTML {
	va := a.VerticalAlignment
	if va == "" {
		va = "top"
	}
	stacked := a.IsStackedOnMobile == nil || *a.IsStackedOnMobile
	var d decls
	d.common(a.Style)
	gap := string(a.Style.Spacing.BlockGap)
	if gap == "" {
		gap = "1.5rem"
	}
	d.set("gap", gap)
	class := classes(
		"wp-block-columns",
		"are-vertically-aligned-"+va,
		notStacked(stacked),
		a.ClassName,
	)
	return exec("container", containerView{Class: class, Style: d.CSS(), Children: children})
}

func notStacked(stacked bool) string {
	if stacked {
		return ""
	}
	return "is-not-stacked-on-mobile"
}

func renderColumn(a Column, children template.HTML) template.HTML {
	var d decls
	if a.Width != "" {
		d.set("flex-basis", a.Width)
		d.set("flex-grow", "0")
	} else {
		d.set("flex", "1 1 0%")
	}
	d.padding(a.Style.Spacing.Padding)
	d.set("background-color", a.Style.Color.Background)
	class := classes(
		"wp-block-column",
		prefixed("is-vertically-aligned-", a.VerticalAlignment),
		a.ClassName,
	)
	return exec("container", containerView{Class: class, Style: d.CSS(), Children: children})
}

func renderButtons(a Buttons, children template.HTML) template.HTML {
	justify := a.Layout.JustifyContent
	if justify == "" {
		justify = "left"
	}
	var d decls
	gap := string(a.Style.Spacing.BlockGap)
	if gap == "" {
		gap = "1rem"
	}
	d.set("gap", gap)
	class := classes(
		"wp-block-buttons",
		"is-content-justification-"+justify,
		vertical(a.Layout.Orientation),
		a.ClassName,
	)
	return exec("container", containerView{Class: class, Style: d.CSS(), Children: children})
}

func vertical(orientation string) string {
	if orientation == "vertical" {
		return "is-vertical"
	}
	return ""
}

type buttonView struct {
	WrapClass   string
	Class       string
	Style       template.CSS
	Href        string
	Target, Rel string
	Text        template.HTML
}

func renderButton(a Button, _ template.HTML) template.HTML {
	if strings.TrimSpace(a.Text) == "" {
		return ""
	}
	outline := hasClass(a.ClassName, "is-style-outline")

	var d decls
	var named string
	switch {
	case a.Gradient != "":
		d.set("background", gradientValue(a.Gradient))
	case a.Style.Color.Background != "":
		d.set("background-color", a.Style.Color.Background)
	case a.BackgroundColor != "" && !outline:
		named = backgroundClass(a.BackgroundColor)
	}
	var textClass string
	if a.Style.Color.Text != "" {
		d.set("color", a.Style.Color.Text)
	} else {
		textClass = textColorClass(a.TextColor)
	}
	d.set("border-radius", a.Style.Border.Radius)
	d.set("border-width", a.Style.Border.Width)
	if a.Style.Border.Color != "" {
		d.set("border-color", a.Style.Border.Color)
		d.set("border-style", "solid")
	}
	d.padding(a.Style.Spacing.Padding)

	wrap := classes("wp-block-button", a.ClassName)
	if a.Width > 0 {
		wrap = classes(wrap, "has-custom-width", "wp-block-button__width-"+strconv.Itoa(int(a.Width)))
	}

	v := buttonView{
		WrapClass: wrap,
		Class:     classes("wp-block-button__link", "wp-element-button", named, textClass),
		Style:     d.CSS(),
		Href:      a.URL,
		Text:      trusted(a.Text),
	}
	internal := strings.HasPrefix(a.URL, "/") || strings.HasPrefix(a.URL, "#")
	if a.URL != "" && !internal {
		v.Target = a.LinkTarget
		v.Rel = a.Rel
		if v.Rel == "" && a.LinkTarget == "_blank" {
			v.Rel = "noopener noreferrer"
		}
	}
	return exec("button", v)
}

// gradientValue resolves a preset gradient slug to its custom property.
// Literal CSS gradients pass through.
func gradientValue(g string) string {
	if strings.Contains(g, "(") {
		return g
	}
	return "var(--wp--preset--gradient--" + g + ")"
}

func renderSeparator(a Separator, _ template.HTML) template.HTML {
	class := classes("wp-block-separator", a.ClassName)
	if !hasClass(a.ClassName, "is-style-wide") && !hasClass(a.ClassName, "is-style-dots") {
		class = classes(class, "is-style-default")
	}
	var d decls
	d.set("background-color", a.Style.Color.Background)
	d.set("opacity", a.Opacity)
	return exec("separator", containerView{Class: class, Style: d.CSS()})
}

func renderSpacer(a Spacer, _ template.HTML) template.HTML {
	h := string(a.Height)
	if h == "" {
		h = "100px"
	}
	var d decls
	d.set("height", h)
	return exec("spacer", containerView{Class: classes("wp-block-spacer", a.ClassName), Style: d.CSS()})
}
