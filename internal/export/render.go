// Package export pre-renders the site into a release bundle and publishes
// it behind an S3 object and an SSM hash pointer.
package export

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/pathutil"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

var ErrNoPages = errors.New("export: no pages rendered")

type Options struct {
	Logger log.Logger

	// Handler serves the site. Requests never leave the process.
	Handler http.Handler

	Concurrency int
	BuildID     string
	Now         func() time.Time

	// Discover follows local links and /static/ assets found in rendered
	// pages, up to MaxPages files.
	Discover bool
	MaxPages int
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.BuildID == "" {
		o.BuildID = uuid.NewString()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 5000
	}
}

type fetched struct {
	uri   string
	body  []byte
	page  bool
	skip  bool
	links []string
}

// Render requests every uri from the site handler and packs the pages
// into a bundle. Pages answering 404 or a redirect are skipped; any other
// non-200 status fails the export.
func Render(ctx context.Context, opts Options, uris []string) (*Bundle, error) {
	opts.setDefaults()
	if opts.Handler == nil {
		return nil, xerrors.New("export: Handler is nil")
	}
	L := opts.Logger.With("component", "export", "build_id", opts.BuildID)

	seen := make(map[string]bool, len(uris))
	var queue []string
	for _, u := range uris {
		if target, ok := normalizeTarget(u); ok && !seen[target] {
			seen[target] = true
			queue = append(queue, target)
		}
	}

	files := make(map[string][]byte)
	var pages []string

	for len(queue) > 0 {
		results := make([]fetched, len(queue))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for i, uri := range queue {
			g.Go(func() error {
				res, err := fetch(gctx, opts.Handler, uri, opts.Discover)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []string
		for _, res := range results {
			if res.skip {
				L.Warn(ctx, "export skipped uri", "uri", res.uri)
				continue
			}
			files[FilePath(res.uri)] = res.body
			if res.page {
				pages = append(pages, res.uri)
			}
			for _, l := range res.links {
				if seen[l] || len(seen) >= opts.MaxPages {
					continue
				}
				seen[l] = true
				next = append(next, l)
			}
		}
		queue = next
	}

	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	b, err := pack(files, Manifest{
		BuildID:     opts.BuildID,
		GeneratedAt: opts.Now().UTC().Truncate(time.Second),
		URIs:        pages,
	})
	if err != nil {
		return nil, err
	}
	L.Info(ctx, "export bundle built",
		"pages", len(pages),
		"files", len(files),
		"bytes", len(b.Data),
		"sha256", b.SHA256,
	)
	return b, nil
}

func fetch(ctx context.Context, h http.Handler, uri string, discover bool) (fetched, error) {
	if err := ctx.Err(); err != nil {
		return fetched{}, err
	}
	req := httptest.NewRequest(http.MethodGet, uri, http.NoBody).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := fetched{uri: uri}
	switch {
	case rec.Code == http.StatusOK:
	case rec.Code == http.StatusNotFound, rec.Code >= 300 && rec.Code < 400:
		res.skip = true
		return res, nil
	default:
		return res, xerrors.Newf("export: render %s: status %d", uri, rec.Code)
	}

	res.body = rec.Body.Bytes()
	res.page = strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html")
	if res.page && discover {
		links, err := discoverLinks(res.body)
		if err != nil {
			return res, xerrors.Wrapf(err, "export: parse %s", uri)
		}
		res.links = links
	}
	return res, nil
}

// discoverLinks returns the local page links and /static/ asset references
// in an HTML document.
func discoverLinks(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var out []string
	doc.Find("a[href], link[href]").Each(func(_ int, s *goquery.Selection) {
		if target, ok := normalizeTarget(s.AttrOr("href", "")); ok {
			out = append(out, target)
		}
	})
	doc.Find("script[src], img[src]").Each(func(_ int, s *goquery.Selection) {
		if target, ok := normalizeTarget(s.AttrOr("src", "")); ok && isAsset(target) {
			out = append(out, target)
		}
	})
	return out, nil
}

// normalizeTarget turns an href into an exportable uri. Only local paths
// qualify; preview, api and health routes never do.
func normalizeTarget(href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "", false
	}
	p := u.Path
	for _, prefix := range []string{"/api/", "/preview/", "/-/"} {
		if strings.HasPrefix(p, prefix) {
			return "", false
		}
	}
	if strings.HasPrefix(p, "/static/") {
		if pathutil.HasDotSegments(p) || strings.HasSuffix(p, "/") {
			return "", false
		}
		return path.Clean(p), true
	}
	return pathutil.CleanURI(p)
}

func isAsset(uri string) bool {
	return strings.HasPrefix(uri, "/static/")
}
