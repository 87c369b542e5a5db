package site

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/beaconhillfe/bhfe-web/internal/catalog"
	"github.com/beaconhillfe/bhfe-web/internal/pagecache"
	"github.com/beaconhillfe/bhfe-web/internal/pathutil"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// maxCursorLen bounds the ?after= cursor that becomes part of a cache key.
const maxCursorLen = 256

var validSlug = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_%-]{0,199}$`)

// serveCached answers from the page cache. A request carrying a preview
// session skips the cache entirely.
func (s *Site) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, fill pagecache.FillFunc) {
	ctx := r.Context()
	if sess := s.preview.Read(ctx, r); sess.Enabled {
		s.cache.CountBypass()
		p, err := fill(ctx)
		if err != nil {
			s.fail(w, r, statusFor(err), err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		s.write(w, r, p, pagecache.Bypass)
		return
	}
	p, result, err := s.cache.Get(ctx, key, ttl, fill)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	s.write(w, r, p, result)
}

// canonical redirects to the trailing-slash form of the path. It reports
// whether it wrote a response.
func canonical(w http.ResponseWriter, r *http.Request, want string) bool {
	if r.URL.Path == want {
		return false
	}
	target := want
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	// 308 keeps the method even though only GET/HEAD reach here
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
	return true
}

type homeData struct {
	Title   string
	Tagline string
	Courses []courseCard
	Posts   []postCard
}

func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "page:/", s.opts.Revalidate.Lists, func(ctx context.Context) (pagecache.Page, error) {
		var (
			courses []wp.Course
			posts   wp.PostList
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			courses, err = s.src.FeaturedCourses(gctx, featuredCourses)
			return upstream(err)
		})
		g.Go(func() (err error) {
			posts, err = s.src.Posts(gctx, homePosts, "")
			return upstream(err)
		})
		if err := g.Wait(); err != nil {
			return pagecache.Page{}, err
		}

		set := s.settings(ctx)
		tagline := orDefault(set.Description, defaultTagline)
		body, err := s.execute("site/home", homeData{
			Title:   set.Title,
			Tagline: tagline,
			Courses: courseCards(courses),
			Posts:   postCards(posts.Posts),
		})
		if err != nil {
			return pagecache.Page{}, err
		}
		return s.layout(ctx, page{title: set.Title, description: tagline, template: "home", body: body})
	})
}

type blogData struct {
	Posts []postCard
	Next  string
}

func (s *Site) handleBlog(w http.ResponseWriter, r *http.Request) {
	if canonical(w, r, "/blog/") {
		return
	}
	after := r.URL.Query().Get("after")
	if len(after) > maxCursorLen {
		s.fail(w, r, http.StatusNotFound, nil)
		return
	}
	key := "page:/blog/"
	if after != "" {
		key += "?after=" + url.QueryEscape(after)
	}
	s.serveCached(w, r, key, s.opts.Revalidate.Lists, func(ctx context.Context) (pagecache.Page, error) {
		list, err := s.src.Posts(ctx, s.opts.PostsPerPage, after)
		if err != nil {
			return pagecache.Page{}, upstream(err)
		}
		data := blogData{Posts: postCards(list.Posts)}
		if list.PageInfo.HasNextPage && list.PageInfo.EndCursor != "" {
			data.Next = "/blog/?after=" + url.QueryEscape(list.PageInfo.EndCursor)
		}
		body, err := s.execute("site/blog", data)
		if err != nil {
			return pagecache.Page{}, err
		}
		return s.layout(ctx, page{
			title:       "Blog",
			description: "Latest articles and insights from " + s.settings(ctx).Title,
			template:    "blog",
			body:        body,
		})
	})
}

func (s *Site) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !validSlug.MatchString(slug) {
		s.fail(w, r, http.StatusNotFound, nil)
		return
	}
	uri := "/blog/" + slug + "/"
	if canonical(w, r, uri) {
		return
	}
	s.serveCached(w, r, "page:"+uri, s.opts.Revalidate.Content, func(ctx context.Context) (pagecache.Page, error) {
		post, err := s.src.PostBySlug(ctx, slug)
		if err != nil {
			return pagecache.Page{}, upstream(err)
		}
		if post == nil {
			return s.notFoundPage(ctx)
		}
		return s.renderNode(ctx, post, nil)
	})
}

type designationOption struct {
	Slug    string
	Label   string
	Checked bool
}

type sortOption struct {
	Value    string
	Label    string
	Selected bool
}

type coursesData struct {
	Filter       catalog.Filter
	Designations []designationOption
	Sorts        []sortOption
	Courses      []courseCard
	Total        int
}

func (s *Site) handleCourses(w http.ResponseWriter, r *http.Request) {
	if canonical(w, r, "/courses/") {
		return
	}
	f := catalog.ParseFilter(r.URL.Query())
	key := "page:/courses/"
	if q := f.Query().Encode(); q != "" {
		key += "?" + q
	}
	s.serveCached(w, r, key, s.opts.Revalidate.Lists, func(ctx context.Context) (pagecache.Page, error) {
		all, err := s.courses(ctx)
		if err != nil {
			return pagecache.Page{}, err
		}
		res := catalog.Apply(all, f)

		data := coursesData{Filter: f, Courses: courseCards(res.Courses), Total: res.Total}
		for _, d := range catalog.Designations {
			data.Designations = append(data.Designations, designationOption{Slug: d.Slug, Label: d.Label, Checked: f.HasDesignation(d.Slug)})
		}
		for _, o := range catalog.SortOptions {
			data.Sorts = append(data.Sorts, sortOption{Value: string(o.Sort), Label: o.Label, Selected: o.Sort == f.Sort})
		}
		body, err := s.execute("site/courses", data)
		if err != nil {
			return pagecache.Page{}, err
		}
		return s.layout(ctx, page{
			title:       "Courses",
			description: "Browse continuing education courses for CPA, CFP, EA and other financial professionals.",
			template:    "courses",
			body:        body,
		})
	})
}

// handleContent is the catch-all: any path WordPress may know about.
func (s *Site) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.handleMethodNotAllowed(w, r)
		return
	}
	uri, ok := pathutil.CleanURI(r.URL.Path)
	if !ok {
		s.fail(w, r, http.StatusNotFound, nil)
		return
	}
	if canonical(w, r, uri) {
		return
	}
	s.serveCached(w, r, "page:"+uri, s.opts.Revalidate.Content, s.fillContent(uri))
}

func (s *Site) fillContent(uri string) pagecache.FillFunc {
	return func(ctx context.Context) (pagecache.Page, error) {
		n, err := s.src.ContentByURI(ctx, uri)
		if err != nil {
			return pagecache.Page{}, upstream(err)
		}
		if wp.IsNil(n) {
			return s.notFoundPage(ctx)
		}
		return s.renderNode(ctx, n, nil)
	}
}

func (s *Site) handleRobots(w http.ResponseWriter, r *http.Request) {
	body := "User-agent: *\nDisallow: /\n"
	if s.opts.Production {
		body = "User-agent: *\nAllow: /\n"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", otherCacheControl)
	_, _ = w.Write([]byte(body))
}

// the sitemap stays empty while the site is staged
const emptySitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>
`

func (s *Site) handleSitemap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", otherCacheControl)
	_, _ = w.Write([]byte(strings.TrimLeft(emptySitemap, "\n")))
}
