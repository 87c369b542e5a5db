package site

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/otelx"
	"github.com/beaconhillfe/bhfe-web/internal/pagecache"
	"github.com/beaconhillfe/bhfe-web/internal/prose"
	"github.com/beaconhillfe/bhfe-web/internal/templates"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

const (
	defaultSiteName = "Beacon Hill Financial Educators"
	defaultTagline  = "Professional continuing education for financial professionals"

	contentTypeHTML = "text/html; charset=utf-8"
)

type layoutData struct {
	Lang        string
	Title       string
	Description string
	NoIndex     bool
	Preview     *bannerData
	Staging     bool
	SiteName    string
	Body        template.HTML
	Year        int
}

type bannerData struct {
	PostType string
	PostID   string
	ExitTo   string
}

// page describes one response before it is wrapped in the layout.
type page struct {
	status      int
	title       string
	description string
	noIndex     bool
	preview     *bannerData
	template    string
	body        template.HTML
}

type messageData struct {
	Heading  string
	Lines    []string
	Items    []string
	Detail   string
	HomeLink bool
}

// execute runs a site/* template into an HTML fragment.
func (s *Site) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", xerrors.Wrapf(err, "execute %s", name)
	}
	return template.HTML(buf.String()), nil
}

// layout wraps p in the site chrome. The returned page is ready to cache.
func (s *Site) layout(ctx context.Context, p page) (pagecache.Page, error) {
	set := s.settings(ctx)
	title := set.Title
	if p.title != "" && p.title != set.Title {
		title = p.title + " | " + set.Title
	}
	data := layoutData{
		Lang:        orDefault(set.Language, "en"),
		Title:       title,
		Description: p.description,
		NoIndex:     p.noIndex || !s.opts.Production,
		Preview:     p.preview,
		Staging:     !s.opts.Production,
		SiteName:    set.Title,
		Body:        p.body,
		Year:        s.now().Year(),
	}
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "site/layout", data); err != nil {
		return pagecache.Page{}, xerrors.Wrap(err, "execute site/layout")
	}
	status := p.status
	if status == 0 {
		status = http.StatusOK
	}
	return pagecache.Page{Status: status, ContentType: contentTypeHTML, Body: buf.Bytes(), Template: p.template}, nil
}

// renderNode renders n through its resolved template and wraps it.
func (s *Site) renderNode(ctx context.Context, n wp.Node, banner *bannerData) (pg pagecache.Page, err error) {
	t := s.resolver.Resolve(ctx, n)
	ctx, span := otelx.Start(ctx, "site.render",
		attribute.String("site.template", t.Name),
		attribute.String("site.content_type", string(n.Type())),
	)
	defer func() { otelx.End(span, err) }()

	start := time.Now()
	body, err := t.Render(ctx, n)
	if err != nil {
		return pagecache.Page{}, xerrors.Wrapf(err, "render %s", n.URI())
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveRender(t.Name, time.Since(start))
	}
	return s.layout(ctx, page{
		title:       wp.Title(n),
		description: describe(n),
		noIndex:     banner != nil,
		preview:     banner,
		template:    t.Name,
		body:        body,
	})
}

// message renders a site/message page with the given status.
func (s *Site) message(ctx context.Context, status int, title string, m messageData, banner *bannerData) (pagecache.Page, error) {
	body, err := s.execute("site/message", m)
	if err != nil {
		return pagecache.Page{}, err
	}
	return s.layout(ctx, page{status: status, title: title, noIndex: true, preview: banner, template: "message", body: body})
}

func (s *Site) notFoundPage(ctx context.Context) (pagecache.Page, error) {
	return s.message(ctx, http.StatusNotFound, "Page Not Found", messageData{
		Heading:  "Page Not Found",
		Lines:    []string{"The page you are looking for does not exist or has moved."},
		HomeLink: true,
	}, nil)
}

// write sends a rendered page. cacheResult becomes the X-Cache header
// when set.
func (s *Site) write(w http.ResponseWriter, r *http.Request, p pagecache.Page, cacheResult string) {
	h := w.Header()
	h.Set("Content-Type", orDefault(p.ContentType, contentTypeHTML))
	if cacheResult != "" {
		h.Set("X-Cache", cacheResult)
	}
	if h.Get("Cache-Control") == "" {
		if p.Status == http.StatusOK {
			h.Set("Cache-Control", "public, max-age=0, must-revalidate")
		} else {
			h.Set("Cache-Control", "no-cache")
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(p.Body)))
	w.WriteHeader(p.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(p.Body)
	}
}

// fail writes an error response. The layout is tried first; if it cannot
// render, the static fallback file is served.
func (s *Site) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	ctx := r.Context()
	l := s.loggerFor(ctx)
	if err != nil {
		l.Error(ctx, err, "page render failed", "status_code", status)
	}
	w.Header().Set("Cache-Control", "no-store")

	var (
		p    pagecache.Page
		perr error
	)
	if status == http.StatusNotFound {
		p, perr = s.notFoundPage(ctx)
	} else {
		p, perr = s.message(ctx, status, "Something went wrong", messageData{
			Heading:  "Something went wrong",
			Lines:    []string{"We could not load this page right now. Please try again shortly."},
			HomeLink: true,
		}, nil)
	}
	if perr == nil {
		s.write(w, r, p, "")
		return
	}
	l.Error(ctx, perr, "error page render failed")
	s.serveFallback(w, r, status, l)
}

func (s *Site) serveFallback(w http.ResponseWriter, r *http.Request, status int, l log.Logger) {
	name := maintenanceFile
	if status == http.StatusNotFound && existsFile(s.opts.FallbackFS, notFoundFile) {
		name = notFoundFile
	}
	if name == maintenanceFile {
		w.Header().Set("Retry-After", "60")
	}
	l.Warn(r.Context(), "serving fallback page", "file", name, "status_code", status)
	serveFileWithStatus(w, r, status, s.opts.FallbackFS, name)
}

// describe returns the meta description for n.
func describe(n wp.Node) string {
	switch v := n.(type) {
	case *wp.Post:
		if d := prose.Description(v.Excerpt); d != "" {
			return d
		}
		return prose.Description(v.Content)
	case *wp.Page:
		return prose.Description(v.Content)
	case *wp.Course:
		return prose.Description(v.Description)
	case *wp.Taxonomy:
		return prose.Description(v.Description)
	case *wp.Unknown:
		return prose.Description(v.Content)
	}
	return ""
}

// --- cards

type courseCard struct {
	Number  string
	URI     string
	Title   string
	Summary string
	Credits []string
}

type postCard struct {
	Image    *wp.Image
	URI      string
	Title    string
	Date     string
	DateTime string
	Excerpt  string
}

const cardSummaryLen = 150

func courseCards(cs []wp.Course) []courseCard {
	out := make([]courseCard, 0, len(cs))
	for i := range cs {
		c := &cs[i]
		card := courseCard{
			Number:  c.CourseNumber,
			URI:     courseURI(c),
			Title:   c.Title,
			Summary: prose.Truncate(prose.PlainText(c.Description), cardSummaryLen),
		}
		for _, cr := range c.Credits {
			if cr.Name == "" || strings.TrimSpace(cr.Credits) == "" {
				continue
			}
			card.Credits = append(card.Credits, strings.TrimSpace(cr.Credits)+" "+cr.Name)
		}
		out = append(out, card)
	}
	return out
}

func courseURI(c *wp.Course) string {
	switch {
	case c.NodeURI != "":
		return wp.NormalizeURI(c.NodeURI)
	case c.Slug != "":
		return "/course/" + c.Slug + "/"
	}
	return "/courses/"
}

func postCards(ps []wp.Post) []postCard {
	out := make([]postCard, 0, len(ps))
	for i := range ps {
		p := &ps[i]
		uri := "/blog/" + p.Slug + "/"
		if p.Slug == "" {
			uri = wp.NormalizeURI(p.NodeURI)
		}
		date, dt := templates.FormatDate(p.Date)
		out = append(out, postCard{
			Image:    p.FeaturedImage.Node,
			URI:      uri,
			Title:    p.Title,
			Date:     date,
			DateTime: dt,
			Excerpt:  prose.Description(p.Excerpt),
		})
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
