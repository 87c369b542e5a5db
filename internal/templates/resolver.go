package templates

import (
	"context"
	"html/template"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// ResolveMetrics counts resolutions per content type and template name.
type ResolveMetrics interface {
	IncTemplateResolved(contentType, template string)
}

type ResolverOptions struct {
	Logger  log.Logger
	Metrics ResolveMetrics
}

// Resolver selects the template for a node. It never returns nil.
type Resolver struct {
	reg     *Registry
	def     *Template
	logger  log.Logger
	metrics ResolveMetrics
}

// NewResolver returns a Resolver over reg that answers def when nothing more
// specific applies. A nil def renders an empty body.
func NewResolver(reg *Registry, def *Template, opts ResolverOptions) *Resolver {
	if reg == nil {
		reg = NewRegistry()
	}
	if def == nil {
		def = &Template{
			Name:   NameDefault,
			Render: func(context.Context, wp.Node) (template.HTML, error) { return "", nil },
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Resolver{reg: reg, def: def, logger: opts.Logger, metrics: opts.Metrics}
}

func (r *Resolver) Resolve(ctx context.Context, n wp.Node) *Template {
	if wp.IsNil(n) || n.Type() == "" {
		r.count("none", r.def.Name)
		return r.def
	}

	ct := n.Type()
	t, ok := r.reg.lookup(ct, Hint(n.TemplateHint()))
	if !ok {
		r.loggerFor(ctx).Warn(ctx, "no template registered for content type",
			"content_type", string(ct),
			"node_id", n.ID(),
			"uri", n.URI(),
		)
		r.count(string(ct), "unregistered")
		return r.def
	}
	r.count(string(ct), t.Name)
	return t
}

// Default is the template used for nil, untyped and unregistered nodes.
func (r *Resolver) Default() *Template { return r.def }

// Hint returns the first non-empty template hint: template.templateName,
// then the legacy template string, then pageTemplate, then the ACF
// templateType.
func Hint(h wp.Hints) string {
	for _, s := range []string{h.TemplateName, h.Template, h.PageTemplate, h.ACFTemplateType} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (r *Resolver) count(ct, name string) {
	if r.metrics != nil {
		r.metrics.IncTemplateResolved(ct, name)
	}
}

func (r *Resolver) loggerFor(ctx context.Context) log.Logger {
	if l := log.FromContext(ctx); l != log.Nop() {
		return l
	}
	return r.logger
}
