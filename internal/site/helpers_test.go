package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beaconhillfe/bhfe-web/internal/cryptoutil"
	"github.com/beaconhillfe/bhfe-web/internal/preview"
	"github.com/beaconhillfe/bhfe-web/internal/templates"
	"github.com/beaconhillfe/bhfe-web/internal/webassets"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

var errUpstream = errors.New("graphql: connection refused")

type fakeSource struct {
	mu       sync.Mutex
	nodes    map[string]wp.Node
	previews map[string]wp.Node
	posts    []wp.Post
	courses  []wp.Course
	settings wp.Settings
	auth     map[string]wp.Authorization
	err      error

	calls  map[string]int
	afters []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		nodes:    map[string]wp.Node{},
		previews: map[string]wp.Node{},
		auth:     map[string]wp.Authorization{},
		settings: wp.Settings{Title: "Beacon Hill Test", Description: "Tagline here", Language: "en-US"},
		calls:    map[string]int{},
	}
}

func (f *fakeSource) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.err
}

func (f *fakeSource) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSource) ContentByURI(_ context.Context, uri string) (wp.Node, error) {
	if err := f.hit("ContentByURI"); err != nil {
		return nil, err
	}
	return f.nodes[uri], nil
}

func (f *fakeSource) PreviewContent(_ context.Context, id string) (wp.Node, error) {
	if err := f.hit("PreviewContent"); err != nil {
		return nil, err
	}
	return f.previews[id], nil
}

func (f *fakeSource) PostBySlug(_ context.Context, slug string) (*wp.Post, error) {
	if err := f.hit("PostBySlug"); err != nil {
		return nil, err
	}
	for i := range f.posts {
		if f.posts[i].Slug == slug {
			p := f.posts[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeSource) Posts(_ context.Context, first int, after string) (wp.PostList, error) {
	if err := f.hit("Posts"); err != nil {
		return wp.PostList{}, err
	}
	f.mu.Lock()
	f.afters = append(f.afters, after)
	f.mu.Unlock()
	out := f.posts
	if len(out) > first {
		out = out[:first]
	}
	return wp.PostList{Posts: out, PageInfo: wp.PageInfo{HasNextPage: len(f.posts) > first, EndCursor: "abc=="}}, nil
}

func (f *fakeSource) Courses(context.Context) ([]wp.Course, error) {
	if err := f.hit("Courses"); err != nil {
		return nil, err
	}
	return f.courses, nil
}

func (f *fakeSource) FeaturedCourses(_ context.Context, n int) ([]wp.Course, error) {
	if err := f.hit("FeaturedCourses"); err != nil {
		return nil, err
	}
	if len(f.courses) > n {
		return f.courses[:n], nil
	}
	return f.courses, nil
}

func (f *fakeSource) Settings(context.Context) (wp.Settings, error) {
	if err := f.hit("Settings"); err != nil {
		return wp.Settings{}, err
	}
	return f.settings, nil
}

func (f *fakeSource) Authorize(_ context.Context, code string) (wp.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auth[code]
	if !ok {
		return wp.Authorization{}, errors.New("authorize: 401")
	}
	return a, nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	previews []string
	renders  map[string]int
}

func (m *fakeMetrics) IncPreview(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previews = append(m.previews, result)
}

func (m *fakeMetrics) ObserveRender(template string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renders == nil {
		m.renders = map[string]int{}
	}
	m.renders[template]++
}

func testResolver(t *testing.T) *templates.Resolver {
	t.Helper()
	p, err := templates.NewPages(nil, webassets.TemplatesFS())
	if err != nil {
		t.Fatalf("NewPages: %v", err)
	}
	return templates.NewResolver(templates.DefaultRegistry(p), p.Default(), templates.ResolverOptions{})
}

func testOptions(t *testing.T, src Source) Options {
	t.Helper()
	signer, err := cryptoutil.NewHMACSigner(bytes.Repeat([]byte("k"), cryptoutil.MinHMACKeyLen))
	if err != nil {
		t.Fatalf("NewHMACSigner: %v", err)
	}
	return Options{
		Source:      src,
		Templates:   testResolver(t),
		Preview:     preview.NewManager(signer, preview.Options{}),
		TemplatesFS: webassets.TemplatesFS(),
		StaticFS:    webassets.StaticFS(),
		FallbackFS:  webassets.FallbackFS(),
	}
}

// newTestRouter builds a Site over src. edit may adjust the options.
func newTestRouter(t *testing.T, src Source, edit func(*Options)) http.Handler {
	t.Helper()
	opts := testOptions(t, src)
	if edit != nil {
		edit(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func do(h http.Handler, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func previewCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == preview.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", preview.CookieName)
	return nil
}

func aboutPage() *wp.Page {
	return &wp.Page{
		Base:    wp.Base{Typename: wp.TypePage, NodeID: "cG9zdDox", DatabaseID: 7, NodeURI: "/about/"},
		Title:   "About Us",
		Content: "<p>We teach ethics &amp; tax.</p>",
	}
}
