package blocks

import (
	"context"
	"html/template"
	"strings"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/prose"
)

// Metrics records block fallbacks by kind: rendered, original or empty.
type Metrics interface {
	IncBlockFallback(kind string)
}

type Options struct {
	Logger  log.Logger
	Metrics Metrics

	// Development enables a warning for blocks that render to nothing.
	Development bool
}

// Renderer walks block trees against a Registry.
type Renderer struct {
	reg     *Registry
	logger  log.Logger
	metrics Metrics
	dev     bool
}

func NewRenderer(reg *Registry, opts Options) *Renderer {
	if reg == nil {
		reg = NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Renderer{
		reg:     reg,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		dev:     opts.Development,
	}
}

// Render renders bs in order. When bs is empty, fallback is rendered as
// prose instead.
//
// Output is not sanitized. Block HTML and fallback HTML come from the
// authenticated WordPress backend and are emitted as received.
func (r *Renderer) Render(ctx context.Context, bs []Block, fallback string) template.HTML {
	return r.RenderWrapped(ctx, bs, fallback, "")
}

// RenderWrapped is Render with the output placed in a div carrying class.
// An empty class adds no wrapper.
func (r *Renderer) RenderWrapped(ctx context.Context, bs []Block, fallback, class string) template.HTML {
	if len(bs) == 0 {
		if fallback == "" {
			return ""
		}
		return prose.Render(fallback, prose.Options{Class: class})
	}

	var b strings.Builder
	class = strings.TrimSpace(class)
	if class != "" {
		b.WriteString(`<div class="`)
		b.WriteString(template.HTMLEscapeString(class))
		b.WriteString(`">`)
	}
	for i := range bs {
		b.WriteString(string(r.RenderBlock(ctx, bs[i])))
	}
	if class != "" {
		b.WriteString("</div>")
	}
	return template.HTML(b.String())
}

// RenderBlock renders one block and its descendants.
func (r *Renderer) RenderBlock(ctx context.Context, blk Block) template.HTML {
	if fn, ok := r.reg.Get(blk.Name); ok && !(blk.BadAttrs && blk.hasFallback()) {
		var children strings.Builder
		for i := range blk.Children {
			children.WriteString(string(r.RenderBlock(ctx, blk.Children[i])))
		}
		attrs := blk.Attrs
		if attrs == nil {
			attrs = Unknown{}
		}
		return fn(attrs, template.HTML(children.String()))
	}

	html, kind := blk.fallbackHTML()
	if r.metrics != nil {
		r.metrics.IncBlockFallback(kind)
	}
	if kind == fallbackEmpty && r.dev {
		r.loggerFor(ctx).Warn(ctx, "unknown block has no html fallback",
			"block", blk.Name,
			"children", len(blk.Children),
		)
	}
	return template.HTML(html)
}

func (r *Renderer) loggerFor(ctx context.Context) log.Logger {
	if l := log.FromContext(ctx); l != log.Nop() {
		return l
	}
	return r.logger
}
