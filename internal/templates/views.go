package templates

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/blocks"
	"github.com/beaconhillfe/bhfe-web/internal/prose"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// The view types below are what the page templates execute against.
// Fields typed template.HTML carry markup from WordPress unescaped; every
// other string is escaped by html/template.

type crumb struct {
	Label string
	URI   string
}

type defaultView struct {
	Title   string
	Type    string
	Content template.HTML
}

type pageView struct {
	Title    string
	Crumbs   []crumb
	Image    *wp.Image
	Body     template.HTML
	Children []wp.Link
}

type postView struct {
	Title      string
	Crumbs     []crumb
	Categories []wp.Term
	Author     string
	AvatarURL  string
	Date       string
	DateTime   string
	Image      *wp.Image
	Body       template.HTML
}

type creditView struct {
	Amount string
	Name   string
}

type courseView struct {
	Title       string
	Number      string
	Crumbs      []crumb
	Credits     []creditView
	EnrollURL   string
	Description template.HTML
	Preview     template.HTML
	Materials   []wp.Material
}

type categoryView struct {
	Name        string
	Badge       string
	CountLabel  string
	Description string
}

type contactView struct {
	Title     string
	Body      template.HTML
	Address   template.HTML
	Phone     string
	PhoneHref template.URL
	Email     string
	Hours     string
	MapEmbed  template.HTML
}

func (v contactView) HasDetails() bool {
	return v.Address != "" || v.Phone != "" || v.Email != "" || v.Hours != "" || v.MapEmbed != ""
}

const entryClass = "entry-content"

// body renders the block tree of a page or post, or its classic content
// when it has no blocks.
func (p *Pages) body(ctx context.Context, bs []blocks.Block, content string) template.HTML {
	return p.blocks.RenderWrapped(ctx, bs, content, entryClass)
}

func (p *Pages) defaultView(ctx context.Context, n wp.Node) any {
	v := defaultView{Title: wp.Title(n)}
	if v.Title == "" {
		v.Title = "Untitled"
	}
	if wp.IsNil(n) {
		return v
	}
	v.Type = string(n.Type())

	switch x := n.(type) {
	case *wp.Page:
		v.Content = p.body(ctx, x.Blocks, x.Content)
	case *wp.Post:
		v.Content = p.body(ctx, x.Blocks, x.Content)
	case *wp.Course:
		v.Content = prose.Render(x.Description, prose.Options{})
	case *wp.Taxonomy:
		v.Content = prose.Render(template.HTMLEscapeString(x.Description), prose.Options{})
	case *wp.Unknown:
		v.Content = prose.Render(x.Content, prose.Options{})
	}
	return v
}

func (p *Pages) pageView(ctx context.Context, n wp.Node) any {
	pg, ok := n.(*wp.Page)
	if !ok || pg == nil {
		return p.defaultView(ctx, n)
	}
	v := pageView{
		Title:    pg.Title,
		Image:    pg.FeaturedImage.Node,
		Body:     p.body(ctx, pg.Blocks, pg.Content),
		Children: visibleLinks(pg.Children.Nodes),
	}
	v.Crumbs = []crumb{{Label: "Home", URI: "/"}}
	if parent := pg.Parent.Node; parent != nil && parent.URI != "" {
		v.Crumbs = append(v.Crumbs, crumb{Label: orDefault(parent.Title, "Parent"), URI: parent.URI})
	}
	v.Crumbs = append(v.Crumbs, crumb{Label: orDefault(pg.Title, "Untitled")})
	return v
}

func (p *Pages) postView(ctx context.Context, n wp.Node) any {
	post, ok := n.(*wp.Post)
	if !ok || post == nil {
		return p.defaultView(ctx, n)
	}
	v := postView{
		Title:      post.Title,
		Categories: post.Categories.Nodes,
		Image:      post.FeaturedImage.Node,
		Body:       p.body(ctx, post.Blocks, post.Content),
		Crumbs: []crumb{
			{Label: "Home", URI: "/"},
			{Label: "Blog", URI: "/blog/"},
			{Label: orDefault(post.Title, "Untitled")},
		},
	}
	if a := post.Author.Node; a != nil {
		v.Author = a.Name
		if a.Avatar != nil {
			v.AvatarURL = a.Avatar.URL
		}
	}
	v.Date, v.DateTime = FormatDate(post.Date)
	return v
}

func (p *Pages) courseView(ctx context.Context, n wp.Node) any {
	c, ok := n.(*wp.Course)
	if !ok || c == nil {
		return p.defaultView(ctx, n)
	}
	v := courseView{
		Title:       orDefault(c.Title, "Untitled"),
		Number:      c.CourseNumber,
		Description: prose.Render(c.Description, prose.Options{}),
		Preview:     prose.Render(c.Preview, prose.Options{Size: prose.SizeBase}),
		Crumbs: []crumb{
			{Label: "Home", URI: "/"},
			{Label: "Courses", URI: "/courses/"},
			{Label: orDefault(c.Title, "Untitled")},
		},
	}
	for _, cr := range c.Credits {
		amount, name := strings.TrimSpace(cr.Credits), strings.TrimSpace(cr.Name)
		if amount == "" && name == "" {
			continue
		}
		v.Credits = append(v.Credits, creditView{Amount: amount, Name: name})
	}
	if c.WooProductID > 0 {
		v.EnrollURL = fmt.Sprintf("/checkout/?add-to-cart=%d", c.WooProductID)
	}
	for _, m := range c.Materials {
		if m.Title != "" || m.File != "" {
			v.Materials = append(v.Materials, m)
		}
	}
	return v
}

func (p *Pages) categoryView(ctx context.Context, n wp.Node) any {
	t, ok := n.(*wp.Taxonomy)
	if !ok || t == nil {
		return p.defaultView(ctx, n)
	}
	v := categoryView{
		Name:        orDefault(t.Name, "Untitled"),
		Badge:       "Category",
		CountLabel:  Plural(t.Count, "post", "posts"),
		Description: strings.TrimSpace(t.Description),
	}
	if t.Type() == wp.TypeTag {
		v.Badge = "Tag"
	}
	return v
}

func (p *Pages) contactView(ctx context.Context, n wp.Node) any {
	pg, ok := n.(*wp.Page)
	if !ok || pg == nil {
		return p.defaultView(ctx, n)
	}
	v := contactView{
		Title: orDefault(pg.Title, "Contact Us"),
		Body:  p.body(ctx, pg.Blocks, pg.Content),
	}
	if c := pg.Contact; c != nil {
		v.Address = template.HTML(c.Address)
		v.Phone = strings.TrimSpace(c.Phone)
		if d := digits(c.Phone); d != "" {
			v.PhoneHref = template.URL("tel:" + d)
		}
		v.Email = strings.TrimSpace(c.Email)
		v.Hours = strings.TrimSpace(c.Hours)
		v.MapEmbed = template.HTML(c.MapEmbed)
	}
	return v
}

// FormatDate renders a WordPress date as "January 2, 2006" together with
// an RFC 3339 value for <time datetime>. Unparseable input is returned as
// the display value with an empty datetime.
func FormatDate(s string) (display, datetime string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2, 2006"), t.Format("2006-01-02")
		}
	}
	return s, ""
}

// Plural formats n with the singular or plural noun.
func Plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func visibleLinks(ls []wp.Link) []wp.Link {
	out := make([]wp.Link, 0, len(ls))
	for _, l := range ls {
		if l.URI != "" && l.Title != "" {
			out = append(out, l)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
