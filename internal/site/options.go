package site

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/pagecache"
	"github.com/beaconhillfe/bhfe-web/internal/preview"
	"github.com/beaconhillfe/bhfe-web/internal/templates"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

var ErrInvalidOptions = errors.New("site: invalid options")

// Source is the WordPress data the site reads. *wp.Client implements it.
type Source interface {
	ContentByURI(ctx context.Context, uri string) (wp.Node, error)
	PreviewContent(ctx context.Context, id string) (wp.Node, error)
	PostBySlug(ctx context.Context, slug string) (*wp.Post, error)
	Posts(ctx context.Context, first int, after string) (wp.PostList, error)
	Courses(ctx context.Context) ([]wp.Course, error)
	FeaturedCourses(ctx context.Context, n int) ([]wp.Course, error)
	Settings(ctx context.Context) (wp.Settings, error)
	Authorize(ctx context.Context, code string) (wp.Authorization, error)
}

var _ Source = (*wp.Client)(nil)

type Metrics interface {
	IncPreview(result string)
	ObserveRender(template string, d time.Duration)
}

// Revalidate holds the cache lifetimes per kind of page.
type Revalidate struct {
	Content  time.Duration
	Lists    time.Duration
	Settings time.Duration
}

type Options struct {
	Logger  log.Logger
	Metrics Metrics

	Source    Source
	Templates *templates.Resolver
	Cache     *pagecache.Cache
	Preview   *preview.Manager

	// TemplatesFS holds partials/*.html and site/*.html.
	TemplatesFS fs.FS
	StaticFS    fs.FS
	// FallbackFS holds 404.html and maintenance.html, served when the
	// layout itself cannot render.
	FallbackFS fs.FS

	Production   bool
	Revalidate   Revalidate
	PostsPerPage int
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Cache == nil {
		o.Cache = pagecache.New(pagecache.Options{Logger: o.Logger})
	}
	if o.Preview == nil {
		o.Preview = preview.NewManager(nil, preview.Options{})
	}
	if o.Revalidate.Content <= 0 {
		o.Revalidate.Content = 60 * time.Second
	}
	if o.Revalidate.Lists <= 0 {
		o.Revalidate.Lists = 300 * time.Second
	}
	if o.Revalidate.Settings <= 0 {
		o.Revalidate.Settings = time.Hour
	}
	if o.PostsPerPage <= 0 {
		o.PostsPerPage = 12
	}
}

func (o *Options) validate() error {
	var errs []error
	if o.Source == nil {
		errs = append(errs, errors.New("Source is nil"))
	}
	if o.Templates == nil {
		errs = append(errs, errors.New("Templates is nil"))
	}
	if o.TemplatesFS == nil {
		errs = append(errs, errors.New("TemplatesFS is nil"))
	}
	if o.StaticFS == nil {
		errs = append(errs, errors.New("StaticFS is nil"))
	}
	if o.FallbackFS == nil {
		errs = append(errs, errors.New("FallbackFS is nil"))
	} else if _, err := fs.Stat(o.FallbackFS, maintenanceFile); err != nil {
		errs = append(errs, errors.New("FallbackFS has no "+maintenanceFile))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidOptions}, errs...)...)
	}
	return nil
}
