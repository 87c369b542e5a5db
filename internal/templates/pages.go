package templates

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"

	"github.com/beaconhillfe/bhfe-web/internal/blocks"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// Pages holds the stock page templates. They are parsed from
// partials/*.html and pages/*.html in the supplied filesystem; each page
// file defines "page/<name>".
type Pages struct {
	blocks *blocks.Renderer
	tmpl   *template.Template
	byName map[string]*Template
}

func NewPages(br *blocks.Renderer, fsys fs.FS) (*Pages, error) {
	if br == nil {
		br = blocks.NewRenderer(blocks.NewCoreRegistry(), blocks.Options{})
	}
	t, err := template.New("pages").ParseFS(fsys, "partials/*.html", "pages/*.html")
	if err != nil {
		return nil, xerrors.Wrap(err, "parse page templates")
	}

	p := &Pages{blocks: br, tmpl: t, byName: make(map[string]*Template)}
	for name, view := range map[string]viewFunc{
		NameDefault:  p.defaultView,
		NamePage:     p.pageView,
		NamePost:     p.postView,
		NameCourse:   p.courseView,
		NameCategory: p.categoryView,
		NameLanding:  p.landingView,
		NameContact:  p.contactView,
	} {
		if t.Lookup("page/"+name) == nil {
			return nil, xerrors.Newf("page template %q not defined", "page/"+name)
		}
		p.byName[name] = p.template(name, view)
	}
	return p, nil
}

// viewFunc builds the data for one template. A view handed a node it does
// not understand returns a defaultView, which runs page/default instead.
type viewFunc func(ctx context.Context, n wp.Node) any

func (p *Pages) template(name string, view viewFunc) *Template {
	return &Template{
		Name: name,
		Render: func(ctx context.Context, n wp.Node) (template.HTML, error) {
			data := view(ctx, n)
			tname := "page/" + name
			if _, ok := data.(defaultView); ok {
				tname = "page/" + NameDefault
			}
			var buf bytes.Buffer
			if err := p.tmpl.ExecuteTemplate(&buf, tname, data); err != nil {
				return "", xerrors.Wrapf(err, "execute %s template", name)
			}
			return template.HTML(buf.String()), nil
		},
	}
}

func (p *Pages) Default() *Template  { return p.byName[NameDefault] }
func (p *Pages) Page() *Template     { return p.byName[NamePage] }
func (p *Pages) Post() *Template     { return p.byName[NamePost] }
func (p *Pages) Course() *Template   { return p.byName[NameCourse] }
func (p *Pages) Category() *Template { return p.byName[NameCategory] }
func (p *Pages) Landing() *Template  { return p.byName[NameLanding] }
func (p *Pages) Contact() *Template  { return p.byName[NameContact] }

// DefaultRegistry wires the stock templates to their content types and
// page template names.
func DefaultRegistry(p *Pages) *Registry {
	r := NewRegistry()
	r.Register(wp.TypePage, p.Page())
	r.Register(wp.TypePage, p.Landing(), "template-landing", "Landing Page")
	r.Register(wp.TypePage, p.Contact(), "template-contact", "Contact Page")
	r.Register(wp.TypePost, p.Post())
	r.Register(wp.TypeCourse, p.Course())
	r.Register(wp.TypeCategory, p.Category())
	r.Register(wp.TypeTag, p.Category())
	return r
}
