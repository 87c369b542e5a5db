package templates

import (
	"context"
	"html/template"
	"strings"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/prose"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// ACF flexible content rows arrive as FlexibleContentFlexibleContent<X>Layout.
const layoutPrefix = "FlexibleContentFlexibleContent"

var layoutKinds = map[string]string{
	"HeroLayout":        "hero",
	"HeadingLayout":     "heading",
	"CtaButtonsLayout":  "cta",
	"ImageModuleLayout": "image",
	"WysiwygLayout":     "wysiwyg",
	"AccordionLayout":   "accordion",
}

type buttonView struct {
	URL    string
	Title  string
	Target string
}

type accordionView struct {
	Heading string
	Content template.HTML
	Open    bool
}

type layoutView struct {
	Kind       string
	ID         string
	Class      string
	Heading    string
	Subheading string
	Content    template.HTML
	Background string
	Image      *wp.Image
	Caption    string
	Buttons    []buttonView
	Items      []accordionView
}

type landingView struct {
	Title   string
	Content template.HTML
	Layouts []layoutView
}

func (p *Pages) landingView(ctx context.Context, n wp.Node) any {
	pg, ok := n.(*wp.Page)
	if !ok || pg == nil {
		return p.defaultView(ctx, n)
	}
	v := landingView{Title: orDefault(pg.Title, "Untitled")}
	if pg.ACF != nil {
		for i, fl := range pg.ACF.FlexibleContent {
			lv, ok := buildLayout(fl)
			if !ok {
				log.FromContext(ctx).Warn(ctx, "skipping unsupported landing layout",
					"layout", fl.Typename,
					"index", i,
					"uri", pg.URI(),
				)
				continue
			}
			if lv.Kind != "" {
				v.Layouts = append(v.Layouts, lv)
			}
		}
	}
	if len(v.Layouts) == 0 {
		v.Content = p.body(ctx, pg.Blocks, pg.Content)
	}
	return v
}

// buildLayout converts one ACF row. ok is false for an unknown layout; a
// known layout with nothing to show returns an empty Kind.
func buildLayout(fl wp.FlexLayout) (layoutView, bool) {
	kind, ok := layoutKinds[strings.TrimPrefix(fl.Typename, layoutPrefix)]
	if !ok {
		return layoutView{}, false
	}

	lv := layoutView{
		Kind:       kind,
		ID:         strings.TrimSpace(fl.BandID),
		Heading:    strings.TrimSpace(fl.Heading),
		Subheading: strings.TrimSpace(fl.Subheading),
	}
	cls := []string{"band", "band-" + kind}
	if a := alignment(fl.TextAlignment); a != "" {
		cls = append(cls, "text-"+a)
	}
	if extra := strings.TrimSpace(fl.BandClasses); extra != "" {
		cls = append(cls, extra)
	}
	lv.Class = strings.Join(cls, " ")

	switch kind {
	case "hero":
		lv.Content = prose.Render(fl.Content, prose.Options{Size: prose.SizeXl})
		if img := fl.BackgroundImage.Node; img != nil {
			lv.Background = img.SourceURL
		}
		lv.Buttons = buttons(fl.Buttons, "Learn More")
		if lv.Heading == "" && lv.Content == "" {
			return layoutView{}, true
		}
	case "heading":
		if lv.Heading == "" {
			return layoutView{}, true
		}
	case "cta":
		lv.Buttons = buttons(fl.Buttons, "Click Here")
		if len(lv.Buttons) == 0 {
			return layoutView{}, true
		}
	case "image":
		lv.Image = fl.Image.Node
		lv.Caption = strings.TrimSpace(fl.Caption)
		if lv.Image == nil || lv.Image.SourceURL == "" {
			return layoutView{}, true
		}
	case "wysiwyg":
		lv.Content = prose.Render(fl.Content, prose.Options{})
		if lv.Content == "" {
			return layoutView{}, true
		}
	case "accordion":
		for _, it := range fl.AccordionItems {
			if strings.TrimSpace(it.Heading) == "" {
				continue
			}
			lv.Items = append(lv.Items, accordionView{
				Heading: it.Heading,
				Content: prose.Render(it.Content, prose.Options{Size: prose.SizeBase}),
				Open:    strings.EqualFold(it.DefaultState, "open"),
			})
		}
		if len(lv.Items) == 0 {
			return layoutView{}, true
		}
	}
	return lv, true
}

func buttons(rows []wp.ButtonRow, defTitle string) []buttonView {
	var out []buttonView
	for _, r := range rows {
		if r.Button == nil || strings.TrimSpace(r.Button.URL) == "" {
			continue
		}
		out = append(out, buttonView{
			URL:    r.Button.URL,
			Title:  orDefault(r.Button.Title, defTitle),
			Target: r.Button.Target,
		})
	}
	return out
}

func alignment(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "left", "center", "right":
		return s
	}
	return ""
}
