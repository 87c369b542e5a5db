package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/beaconhillfe/bhfe-web/internal/blocks"
	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/webassets"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

func newPages(t *testing.T) *Pages {
	t.Helper()
	p, err := NewPages(nil, webassets.TemplatesFS())
	if err != nil {
		t.Fatalf("NewPages: %v", err)
	}
	return p
}

func render(t *testing.T, tpl *Template, ctx context.Context, n wp.Node) string {
	t.Helper()
	html, err := tpl.Render(ctx, n)
	if err != nil {
		t.Fatalf("%s.Render: %v", tpl.Name, err)
	}
	return string(html)
}

func wantContains(t *testing.T, got string, subs ...string) {
	t.Helper()
	for _, s := range subs {
		if !strings.Contains(got, s) {
			t.Errorf("output missing %q\n%s", s, got)
		}
	}
}

func wantNotContains(t *testing.T, got string, subs ...string) {
	t.Helper()
	for _, s := range subs {
		if strings.Contains(got, s) {
			t.Errorf("output should not contain %q\n%s", s, got)
		}
	}
}

// --- construction

func TestNewPages_AllTemplates(t *testing.T) {
	p := newPages(t)
	for name, tpl := range map[string]*Template{
		NameDefault:  p.Default(),
		NamePage:     p.Page(),
		NamePost:     p.Post(),
		NameCourse:   p.Course(),
		NameCategory: p.Category(),
		NameLanding:  p.Landing(),
		NameContact:  p.Contact(),
	} {
		if tpl == nil || tpl.Name != name {
			t.Errorf("%s: got %+v", name, tpl)
		}
	}
}

func TestDefaultRegistry(t *testing.T) {
	p := newPages(t)
	r := DefaultRegistry(p)
	res := NewResolver(r, p.Default(), ResolverOptions{})
	ctx := context.Background()

	if got := res.Resolve(ctx, page(func(pg *wp.Page) { pg.Template.Name = "Contact Page" })); got != p.Contact() {
		t.Fatalf("contact hint resolved to %s", got.Name)
	}
	if got := res.Resolve(ctx, &wp.Taxonomy{Base: wp.Base{Typename: wp.TypeTag}}); got != p.Category() {
		t.Fatalf("tag resolved to %s", got.Name)
	}
	if got := res.Resolve(ctx, &wp.Course{Base: wp.Base{Typename: wp.TypeCourse}}); got != p.Course() {
		t.Fatalf("course resolved to %s", got.Name)
	}
}

// --- Default

func TestDefault(t *testing.T) {
	p := newPages(t)
	ctx := context.Background()

	out := render(t, p.Default(), ctx, &wp.Unknown{Base: wp.Base{Typename: "Event"}})
	wantContains(t, out, "Untitled", "Content Type: Event", "No content available for this page.")

	out = render(t, p.Default(), ctx, &wp.Unknown{
		Base:    wp.Base{Typename: "Event"},
		Title:   "Spring Gala",
		Content: "<p>Join us</p>",
	})
	wantContains(t, out, "Spring Gala", `<div class="prose prose-lg max-w-none"><p>Join us</p></div>`)
	wantNotContains(t, out, "No content available")

	out = render(t, p.Default(), ctx, nil)
	wantContains(t, out, "Untitled")
	wantNotContains(t, out, "Content Type:")
}

func TestDefault_EscapesTitle(t *testing.T) {
	p := newPages(t)
	out := render(t, p.Default(), context.Background(), &wp.Unknown{
		Base:  wp.Base{Typename: "Event"},
		Title: "<script>alert(1)</script>",
	})
	wantNotContains(t, out, "<script>")
	wantContains(t, out, "&lt;script&gt;")
}

// --- Page

func TestPage(t *testing.T) {
	p := newPages(t)
	pg := page(func(pg *wp.Page) {
		pg.Title = "Our Team"
		pg.Parent.Node = &wp.Link{Title: "About", URI: "/about/"}
		pg.Children.Nodes = []wp.Link{
			{Title: "Instructors", URI: "/about/team/instructors/"},
			{Title: "", URI: "/about/team/hidden/"},
		}
		pg.FeaturedImage.Node = &wp.Image{SourceURL: "https://cdn.example.org/team.jpg", AltText: "Team photo"}
		pg.Blocks = []blocks.Block{
			{Name: "core/paragraph", Attrs: blocks.Paragraph{Content: "Meet the team"}},
		}
		pg.Content = "<p>classic content</p>"
	})

	out := render(t, p.Page(), context.Background(), pg)
	wantContains(t, out,
		`<a href="/about/">About</a>`,
		`<span aria-current="page">Our Team</span>`,
		`<img src="https://cdn.example.org/team.jpg" alt="Team photo"`,
		`<div class="entry-content">`,
		"Meet the team",
		"In This Section",
		`<a href="/about/team/instructors/">Instructors</a>`,
	)
	wantNotContains(t, out, "classic content", "/about/team/hidden/")
}

func TestPage_ClassicContentNoSidebar(t *testing.T) {
	p := newPages(t)
	pg := page(func(pg *wp.Page) {
		pg.Title = "About"
		pg.Content = "<p>Hello</p>"
	})
	out := render(t, p.Page(), context.Background(), pg)
	wantContains(t, out, `<div class="prose prose-lg max-w-none entry-content"><p>Hello</p></div>`)
	wantNotContains(t, out, "In This Section", "featured-image", "has-sidebar")
}

func TestTemplates_WrongVariantUsesDefaultView(t *testing.T) {
	p := newPages(t)
	course := &wp.Course{Base: wp.Base{Typename: wp.TypeCourse}, Title: "Ethics"}
	for _, tpl := range []*Template{p.Page(), p.Post(), p.Category(), p.Landing(), p.Contact()} {
		out := render(t, tpl, context.Background(), course)
		wantContains(t, out, "Ethics", "Content Type: FlmsCourse")
	}
	out := render(t, p.Course(), context.Background(), page())
	wantContains(t, out, "Content Type: Page")
}

// --- Post

func TestPost(t *testing.T) {
	p := newPages(t)
	post := &wp.Post{
		Base:    wp.Base{Typename: wp.TypePost, Date: "2024-01-15T10:30:00"},
		Title:   "Tax Season Tips",
		Content: "<p>File early.</p>",
	}
	post.Categories.Nodes = []wp.Term{{Name: "Tax", URI: "/category/tax/"}}
	post.Author.Node = &wp.Author{Name: "Dana Reyes", Avatar: &wp.Avatar{URL: "https://cdn.example.org/a.png"}}

	out := render(t, p.Post(), context.Background(), post)
	wantContains(t, out,
		`<a href="/blog/">Blog</a>`,
		`<a class="badge" href="/category/tax/">Tax</a>`,
		"Dana Reyes",
		`src="https://cdn.example.org/a.png"`,
		`<time class="post-date" datetime="2024-01-15">January 15, 2024</time>`,
		"File early.",
		"Back to Blog",
	)
}

func TestPost_MissingFields(t *testing.T) {
	p := newPages(t)
	out := render(t, p.Post(), context.Background(), &wp.Post{Base: wp.Base{Typename: wp.TypePost}, Title: "Bare"})
	wantContains(t, out, "Bare", "Back to Blog")
	wantNotContains(t, out, "post-categories", "<time", "post-author", "featured-image")
}

// --- Course

func TestCourse(t *testing.T) {
	p := newPages(t)
	c := &wp.Course{
		Base:         wp.Base{Typename: wp.TypeCourse},
		Title:        "Ethics for CPAs",
		CourseNumber: "101",
		Description:  "<p>Covers the code of conduct.</p>",
		Preview:      "<p>Chapter one.</p>",
		WooProductID: 55,
		Credits: []wp.Credit{
			{Name: "CPE", Credits: "4"},
			{},
		},
		Materials: []wp.Material{
			{Title: "Workbook", File: "https://cdn.example.org/workbook.pdf"},
			{},
		},
	}
	out := render(t, p.Course(), context.Background(), c)
	wantContains(t, out,
		`<span class="badge">#101</span>`,
		"<li>4 CPE</li>",
		`href="/checkout/?add-to-cart=55"`,
		"Covers the code of conduct.",
		"Course Preview",
		"Chapter one.",
		`<a href="https://cdn.example.org/workbook.pdf" target="_blank" rel="noopener noreferrer">Workbook</a>`,
	)
	wantNotContains(t, out, "Contact us for enrollment options", "No description available", "<li> </li>", "<li></li>")
}

func TestCourse_Empty(t *testing.T) {
	p := newPages(t)
	out := render(t, p.Course(), context.Background(), &wp.Course{Base: wp.Base{Typename: wp.TypeCourse}})
	wantContains(t, out, "Untitled", "No description available for this course.", "Contact us for enrollment options.")
	wantNotContains(t, out, "Course Preview", "Course Materials", "badge", "add-to-cart")
}

// --- Category

func TestCategory(t *testing.T) {
	p := newPages(t)
	tests := []struct {
		name string
		node *wp.Taxonomy
		want []string
	}{
		{
			"category plural",
			&wp.Taxonomy{Base: wp.Base{Typename: wp.TypeCategory}, Name: "Tax", Count: 3, Description: "Tax news"},
			[]string{`<span class="badge">Category</span>`, "3 posts", "Tax news", "Back to Blog"},
		},
		{
			"tag singular",
			&wp.Taxonomy{Base: wp.Base{Typename: wp.TypeTag}, Name: "ethics", Count: 1},
			[]string{`<span class="badge">Tag</span>`, "1 post<", "ethics"},
		},
		{
			"zero",
			&wp.Taxonomy{Base: wp.Base{Typename: wp.TypeCategory}, Name: "Empty"},
			[]string{"0 posts"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantContains(t, render(t, p.Category(), context.Background(), tt.node), tt.want...)
		})
	}
}

// --- Landing

func TestLanding_Layouts(t *testing.T) {
	p := newPages(t)
	pg := page(func(pg *wp.Page) {
		pg.Title = "Welcome"
		pg.Content = "<p>fallback</p>"
		pg.ACF = &wp.PageFields{FlexibleContent: []wp.FlexLayout{
			{
				Typename:        "FlexibleContentFlexibleContentHeroLayout",
				BandID:          "top",
				Heading:         "Learn with us",
				TextAlignment:   "Center",
				BackgroundImage: wp.Edge[wp.Image]{Node: &wp.Image{SourceURL: "https://cdn.example.org/hero.jpg"}},
				Buttons:         []wp.ButtonRow{{Button: &wp.ACFLink{URL: "/courses/"}}, {Button: nil}},
			},
			{Typename: "FlexibleContentFlexibleContentCarouselLayout", Heading: "skip me"},
			{
				Typename: "FlexibleContentFlexibleContentCtaButtonsLayout",
				Buttons:  []wp.ButtonRow{{Button: &wp.ACFLink{URL: "https://partner.example.org", Target: "_blank"}}},
			},
			{
				Typename: "FlexibleContentFlexibleContentAccordionLayout",
				Heading:  "FAQ",
				AccordionItems: []wp.AccordionItem{
					{Heading: "Is it online?", Content: "<p>Yes.</p>", DefaultState: "open"},
					{Heading: "Refunds?", Content: "<p>Within 30 days.</p>", DefaultState: "closed"},
				},
			},
			{Typename: "FlexibleContentFlexibleContentWysiwygLayout"},
		}}
	})

	spy := newSpyLogger()
	ctx := log.WithContext(context.Background(), spy)
	out := render(t, p.Landing(), ctx, pg)

	wantContains(t, out,
		`<section class="band band-hero text-center" id="top" style="background-image:url('https://cdn.example.org/hero.jpg')">`,
		"<h1>Learn with us</h1>",
		`<a class="btn" href="/courses/">Learn More</a>`,
		`<a class="btn" href="https://partner.example.org" target="_blank" rel="noopener noreferrer">Click Here</a>`,
		`<details class="accordion-item" open><summary>Is it online?</summary>`,
		`<details class="accordion-item"><summary>Refunds?</summary>`,
	)
	wantNotContains(t, out, "skip me", "fallback", "band-wysiwyg")
	if spy.warnCount() != 1 {
		t.Fatalf("expected one warning for the unknown layout, got %d", spy.warnCount())
	}
}

func TestLanding_NoLayoutsFallsBack(t *testing.T) {
	p := newPages(t)
	pg := page(func(pg *wp.Page) {
		pg.Title = "Welcome"
		pg.Content = "<p>Hello</p>"
		pg.ACF = &wp.PageFields{TemplateType: "template-landing"}
	})
	out := render(t, p.Landing(), context.Background(), pg)
	wantContains(t, out, `<h1 class="page-title">Welcome</h1>`, "<p>Hello</p>")
	wantNotContains(t, out, "<section")
}

// --- Contact

func TestContact(t *testing.T) {
	p := newPages(t)
	pg := page(func(pg *wp.Page) {
		pg.Content = "<p>Reach out any time.</p>"
		pg.Contact = &wp.ContactFields{
			Address:  "<p>1 Beacon St<br>Boston, MA</p>",
			Phone:    "(555) 123-4567",
			Email:    "info@example.org",
			Hours:    "Mon-Fri 9-5",
			MapEmbed: `<iframe src="https://maps.example.org/embed"></iframe>`,
		}
	})
	out := render(t, p.Contact(), context.Background(), pg)
	wantContains(t, out,
		`<h1 class="page-title">Contact Us</h1>`,
		"Reach out any time.",
		"Get in Touch",
		"<p>1 Beacon St<br>Boston, MA</p>",
		`<a href="tel:5551234567">(555) 123-4567</a>`,
		`<a href="mailto:info@example.org">info@example.org</a>`,
		"Mon-Fri 9-5",
		`<iframe src="https://maps.example.org/embed"></iframe>`,
	)
}

func TestContact_NoDetails(t *testing.T) {
	p := newPages(t)
	out := render(t, p.Contact(), context.Background(), page(func(pg *wp.Page) { pg.Title = "Reach Us" }))
	wantContains(t, out, "Reach Us")
	wantNotContains(t, out, "Get in Touch")
}

// --- helpers

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, display, datetime string
	}{
		{"2024-01-15T10:30:00", "January 15, 2024", "2024-01-15"},
		{"2023-12-01T00:00:00Z", "December 1, 2023", "2023-12-01"},
		{"2022-07-04", "July 4, 2022", "2022-07-04"},
		{"yesterday", "yesterday", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		d, dt := FormatDate(tt.in)
		if d != tt.display || dt != tt.datetime {
			t.Errorf("FormatDate(%q) = %q, %q; want %q, %q", tt.in, d, dt, tt.display, tt.datetime)
		}
	}
}

func TestPlural(t *testing.T) {
	if Plural(1, "post", "posts") != "1 post" || Plural(2, "post", "posts") != "2 posts" {
		t.Fatal("Plural mismatch")
	}
}
