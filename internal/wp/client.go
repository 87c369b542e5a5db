// Package wp fetches typed content from the WordPress GraphQL API.
package wp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/otelx"
	"github.com/beaconhillfe/bhfe-web/internal/version"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// Metrics observes GraphQL round trips by operation name.
type Metrics interface {
	ObserveQuery(op string, d time.Duration, err error)
}

type Options struct {
	// BaseURL is the WordPress origin, without the /graphql suffix.
	BaseURL string
	Timeout time.Duration

	// FaustSecret authenticates preview token exchanges.
	FaustSecret string

	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client

	Logger  log.Logger
	Metrics Metrics
}

type Client struct {
	base    string
	secret  string
	gql     *graphql.Client
	hc      *http.Client
	ua      string
	logger  log.Logger
	metrics Metrics
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, xerrors.New("wp: BaseURL is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		base:    base,
		secret:  opts.FaustSecret,
		gql:     graphql.NewClient(base+"/graphql", graphql.WithHTTPClient(hc)),
		hc:      hc,
		ua:      version.Get().UserAgent(),
		logger:  opts.Logger.With("component", "wp"),
		metrics: opts.Metrics,
	}, nil
}

// run executes one GraphQL operation and decodes its data into resp.
func (c *Client) run(ctx context.Context, op, query string, vars map[string]any, resp any) (err error) {
	ctx, span := otelx.Start(ctx, "wp."+op, attribute.String("graphql.operation.name", op))
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveQuery(op, time.Since(start), err)
		}
		otelx.End(span, err)
	}()

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	req.Header.Set("User-Agent", c.ua)

	if err := c.gql.Run(ctx, req, resp); err != nil {
		return xerrors.Wrapf(err, "wordpress %s", op)
	}
	return nil
}

// ContentByURI returns the node at uri, or nil when WordPress has none.
func (c *Client) ContentByURI(ctx context.Context, uri string) (Node, error) {
	var resp struct {
		NodeByURI json.RawMessage `json:"nodeByUri"`
	}
	if err := c.run(ctx, "ContentByURI", queryContentByURI, map[string]any{"uri": NormalizeURI(uri)}, &resp); err != nil {
		return nil, err
	}
	return DecodeNode(resp.NodeByURI)
}

// PreviewContent fetches the latest revision of a node by database id,
// drafts included.
func (c *Client) PreviewContent(ctx context.Context, id string) (Node, error) {
	var resp struct {
		ContentNode json.RawMessage `json:"contentNode"`
	}
	if err := c.run(ctx, "PreviewContent", queryPreviewContent, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	return DecodeNode(resp.ContentNode)
}

// PostBySlug returns nil when no post has slug.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	var resp struct {
		Post json.RawMessage `json:"post"`
	}
	if err := c.run(ctx, "PostBySlug", queryPostBySlug, map[string]any{"slug": slug}, &resp); err != nil {
		return nil, err
	}
	n, err := DecodeNode(resp.Post)
	if err != nil || n == nil {
		return nil, err
	}
	p, ok := n.(*Post)
	if !ok {
		return nil, nil
	}
	return p, nil
}

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type PostList struct {
	Posts    []Post
	PageInfo PageInfo
}

// Posts returns one page of posts starting after the cursor.
func (c *Client) Posts(ctx context.Context, first int, after string) (PostList, error) {
	var resp struct {
		Posts struct {
			Nodes    []Post   `json:"nodes"`
			PageInfo PageInfo `json:"pageInfo"`
		} `json:"posts"`
	}
	vars := map[string]any{"first": first}
	if after != "" {
		vars["after"] = after
	}
	if err := c.run(ctx, "Posts", queryPosts, vars, &resp); err != nil {
		return PostList{}, err
	}
	return PostList{Posts: resp.Posts.Nodes, PageInfo: resp.Posts.PageInfo}, nil
}

// maxCoursePages bounds Courses pagination.
const maxCoursePages = 50

// Courses walks every page of the course connection.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var (
		out   []Course
		after string
	)
	for range maxCoursePages {
		var resp struct {
			FlmsCourses struct {
				Nodes    []Course `json:"nodes"`
				PageInfo PageInfo `json:"pageInfo"`
			} `json:"flmsCourses"`
		}
		vars := map[string]any{"first": 100}
		if after != "" {
			vars["after"] = after
		}
		if err := c.run(ctx, "Courses", queryCourses, vars, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.FlmsCourses.Nodes...)
		pi := resp.FlmsCourses.PageInfo
		if !pi.HasNextPage || pi.EndCursor == "" || pi.EndCursor == after {
			return out, nil
		}
		after = pi.EndCursor
	}
	c.logger.Warn(ctx, "course pagination stopped at page limit", "pages", maxCoursePages, "courses", len(out))
	return out, nil
}

// FeaturedCourses returns the first n courses.
func (c *Client) FeaturedCourses(ctx context.Context, n int) ([]Course, error) {
	var resp struct {
		FlmsCourses struct {
			Nodes []Course `json:"nodes"`
		} `json:"flmsCourses"`
	}
	if err := c.run(ctx, "FeaturedCourses", queryCourses, map[string]any{"first": n}, &resp); err != nil {
		return nil, err
	}
	return resp.FlmsCourses.Nodes, nil
}

// excludedURIs are served by dedicated routes or not pre-rendered at all.
var excludedURIs = map[string]bool{
	"/":                 true,
	"/login/":           true,
	"/register/":        true,
	"/forgot-password/": true,
}

// StaticURIs lists the page and course URIs to pre-render.
func (c *Client) StaticURIs(ctx context.Context) ([]string, error) {
	var pages struct {
		Pages Connection[struct {
			URI string `json:"uri"`
		}] `json:"pages"`
	}
	if err := c.run(ctx, "PageURIs", queryPageURIs, map[string]any{"first": 500}, &pages); err != nil {
		return nil, err
	}
	var courses struct {
		FlmsCourses Connection[struct {
			URI  string `json:"uri"`
			Slug string `json:"slug"`
		}] `json:"flmsCourses"`
	}
	if err := c.run(ctx, "CourseURIs", queryCourseURIs, map[string]any{"first": 500}, &courses); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		u = NormalizeURI(u)
		if u == "/" || seen[u] || excludedURIs[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	for _, p := range pages.Pages.Nodes {
		if p.URI != "" {
			add(p.URI)
		}
	}
	for _, co := range courses.FlmsCourses.Nodes {
		switch {
		case co.URI != "":
			add(co.URI)
		case co.Slug != "":
			add("/course/" + co.Slug + "/")
		}
	}
	return out, nil
}

type Settings struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Language    string `json:"language"`
	Timezone    string `json:"timezone"`
}

func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var resp struct {
		GeneralSettings Settings `json:"generalSettings"`
	}
	if err := c.run(ctx, "Settings", querySettings, nil, &resp); err != nil {
		return Settings{}, err
	}
	return resp.GeneralSettings, nil
}

// NormalizeURI returns uri with a leading and a trailing slash.
func NormalizeURI(uri string) string {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri
}
