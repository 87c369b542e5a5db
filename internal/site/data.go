package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/pagecache"
	"github.com/beaconhillfe/bhfe-web/internal/pathutil"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// Cache keys for data shared between pages. Rendered pages use "page:"
// plus their URI.
const (
	keySettings = "data:settings"
	keyCourses  = "data:courses"
)

// upstreamError marks a failed WordPress call so handlers answer 502.
type upstreamError struct{ err error }

func (e *upstreamError) Error() string { return "wordpress: " + e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

func upstream(err error) error {
	if err == nil {
		return nil
	}
	return &upstreamError{err: err}
}

func statusFor(err error) int {
	var ue *upstreamError
	if errors.As(err, &ue) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// cachedJSON stores a fetched value in the page cache as a JSON body so
// settings and the course list share the cache's refresh and eviction.
func (s *Site) cachedJSON(ctx context.Context, key string, ttl time.Duration, dst any, fetch func(context.Context) (any, error)) error {
	p, _, err := s.cache.Get(ctx, key, ttl, func(ctx context.Context) (pagecache.Page, error) {
		v, err := fetch(ctx)
		if err != nil {
			return pagecache.Page{}, upstream(err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return pagecache.Page{}, xerrors.Wrapf(err, "encode %s", key)
		}
		return pagecache.Page{Status: http.StatusOK, ContentType: "application/json", Body: b, Template: "data"}, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(p.Body, dst)
}

// settings never fails: pages still render with the default site name
// when WordPress cannot answer.
func (s *Site) settings(ctx context.Context) wp.Settings {
	var set wp.Settings
	err := s.cachedJSON(ctx, keySettings, s.opts.Revalidate.Settings, &set, func(ctx context.Context) (any, error) {
		return s.src.Settings(ctx)
	})
	if err != nil {
		s.loggerFor(ctx).Warn(ctx, "site settings unavailable, using defaults", "error", err)
	}
	if set.Title == "" {
		set.Title = defaultSiteName
	}
	return set
}

func (s *Site) courses(ctx context.Context) ([]wp.Course, error) {
	var cs []wp.Course
	err := s.cachedJSON(ctx, keyCourses, s.opts.Revalidate.Lists, &cs, func(ctx context.Context) (any, error) {
		return s.src.Courses(ctx)
	})
	return cs, err
}

// Ping fetches the site settings once, bypassing the cache. It backs the
// readiness latch.
func (s *Site) Ping(ctx context.Context) error {
	if _, err := s.src.Settings(ctx); err != nil {
		return upstream(err)
	}
	return nil
}

// Prewarm renders uris into the page cache ahead of traffic. Failed pages
// are skipped and reported in the joined error.
func (s *Site) Prewarm(ctx context.Context, uris []string) (int, error) {
	keys := make([]string, 0, len(uris))
	for _, u := range uris {
		if uri, ok := pathutil.CleanURI(u); ok {
			keys = append(keys, "page:"+uri)
		}
	}
	n, err := s.cache.Prewarm(ctx, keys, s.opts.Revalidate.Content, pagecache.DefaultPrewarmConcurrency, func(key string) pagecache.FillFunc {
		return s.fillContent(strings.TrimPrefix(key, "page:"))
	})
	s.logger.Info(ctx, "page cache prewarmed", "pages", n, "requested", len(keys))
	return n, err
}
