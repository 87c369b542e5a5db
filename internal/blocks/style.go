package blocks

import (
	"html/template"
	"strings"
)

// classes joins the non-empty parts with single spaces.
func classes(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func hasClass(list, class string) bool {
	for _, c := range strings.Fields(list) {
		if c == class {
			return true
		}
	}
	return false
}

func prefixed(prefix, v string) string {
	if v == "" {
		return ""
	}
	return prefix + v
}

func textColorClass(slug string) string {
	if slug == "" {
		return ""
	}
	return "has-text-color has-" + slug + "-color"
}

func backgroundClass(slug string) string {
	if slug == "" {
		return ""
	}
	return "has-background has-" + slug + "-background-color"
}

// decls accumulates inline CSS declarations.
type decls []string

// set appends prop:value when value is non-empty. Values may reference
// presets as "var:preset|color|primary".
func (d *decls) set(prop, value string) {
	value = cssValue(value)
	if value == "" {
		return
	}
	*d = append(*d, prop+":"+value)
}

func (d decls) CSS() template.CSS {
	return template.CSS(strings.Join(d, ";"))
}

var cssStrip = strings.NewReplacer(
	";", "", "{", "", "}", "", "<", "", ">", "",
	`"`, "", "'", "", `\`, "", "\n", "", "\r", "",
)

func cssValue(v string) string {
	v = strings.TrimSpace(cssStrip.Replace(v))
	if rest, ok := strings.CutPrefix(v, "var:"); ok {
		return "var(--wp--" + strings.ReplaceAll(rest, "|", "--") + ")"
	}
	return v
}

// common applies the color, typography and border parts of s.
func (d *decls) common(s Style) {
	d.set("color", s.Color.Text)
	d.set("background-color", s.Color.Background)
	d.set("font-size", s.Typography.FontSize)
	d.set("line-height", s.Typography.LineHeight)
	d.set("font-weight", s.Typography.FontWeight)
	d.padding(s.Spacing.Padding)
	d.set("border-radius", s.Border.Radius)
	d.set("border-width", s.Border.Width)
	if s.Border.Color != "" {
		d.set("border-color", s.Border.Color)
		d.set("border-style", "solid")
	}
}

func (d *decls) padding(b Box) {
	d.set("padding-top", b.Top)
	d.set("padding-right", b.Right)
	d.set("padding-bottom", b.Bottom)
	d.set("padding-left", b.Left)
}
