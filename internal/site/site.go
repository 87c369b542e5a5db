package site

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beaconhillfe/bhfe-web/internal/httpmw"
	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/pagecache"
	"github.com/beaconhillfe/bhfe-web/internal/preview"
	"github.com/beaconhillfe/bhfe-web/internal/templates"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

const (
	maintenanceFile = "maintenance.html"
	notFoundFile    = "404.html"

	featuredCourses = 6
	homePosts       = 3
)

type Site struct {
	opts     Options
	src      Source
	resolver *templates.Resolver
	cache    *pagecache.Cache
	preview  *preview.Manager
	tmpl     *template.Template
	logger   log.Logger
	now      func() time.Time
}

func New(opts Options) (*Site, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	tmpl, err := template.New("site").ParseFS(opts.TemplatesFS, "partials/*.html", "site/*.html")
	if err != nil {
		return nil, xerrors.Wrap(err, "parse site templates")
	}
	for _, name := range []string{"site/layout", "site/home", "site/blog", "site/courses", "site/message"} {
		if tmpl.Lookup(name) == nil {
			return nil, xerrors.Newf("site template %q is not defined", name)
		}
	}
	return &Site{
		opts:     opts,
		src:      opts.Source,
		resolver: opts.Templates,
		cache:    opts.Cache,
		preview:  opts.Preview,
		tmpl:     tmpl,
		logger:   opts.Logger.With("component", "site"),
		now:      time.Now,
	}, nil
}

// Routes registers every public route on r. The catch-all is registered
// last through NotFound so more specific routes always win.
func (s *Site) Routes(r chi.Router) {
	r.Handle("/static/*", httpmw.Scope("static")(s.staticHandler()))
	r.With(httpmw.Scope("robots")).Get("/robots.txt", s.handleRobots)
	r.With(httpmw.Scope("sitemap")).Get("/sitemap.xml", s.handleSitemap)

	r.With(httpmw.Scope("home")).Get("/", s.handleHome)
	r.With(httpmw.Scope("blog")).Get("/blog", s.handleBlog)
	r.With(httpmw.Scope("blog")).Get("/blog/", s.handleBlog)
	r.With(httpmw.Scope("post")).Get("/blog/{slug}", s.handlePost)
	r.With(httpmw.Scope("post")).Get("/blog/{slug}/", s.handlePost)
	r.With(httpmw.Scope("courses")).Get("/courses", s.handleCourses)
	r.With(httpmw.Scope("courses")).Get("/courses/", s.handleCourses)

	r.With(httpmw.Scope("preview")).Get("/preview/*", s.handlePreview)
	r.With(httpmw.Scope("api.preview")).Get("/api/preview", s.handleAPIPreview)
	r.With(httpmw.Scope("api.exit-preview")).Get("/api/exit-preview", s.handleExitPreview)
	r.With(httpmw.Scope("api.exit-preview")).Post("/api/exit-preview", s.handleExitPreviewPost)

	r.NotFound(httpmw.Scope("content")(http.HandlerFunc(s.handleContent)).ServeHTTP)
	r.MethodNotAllowed(s.handleMethodNotAllowed)
}

func (s *Site) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func (s *Site) loggerFor(ctx context.Context) log.Logger {
	if l := log.FromContext(ctx); l != log.Nop() {
		return l
	}
	return s.logger
}
