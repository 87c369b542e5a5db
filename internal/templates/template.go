// Package templates maps WordPress content nodes onto page templates.
//
// A Registry holds one default template per content type plus named
// overrides. A Resolver picks the template for a node from its type and the
// template hint WordPress sent with it. Pages provides the stock templates.
package templates

import (
	"context"
	"html/template"

	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// Names of the stock templates. They double as metric labels.
const (
	NameDefault  = "default"
	NamePage     = "page"
	NamePost     = "post"
	NameCourse   = "course"
	NameCategory = "category"
	NameLanding  = "landing"
	NameContact  = "contact"
)

// RenderFunc renders the main content of a page for n. n may be nil for the
// default template.
type RenderFunc func(ctx context.Context, n wp.Node) (template.HTML, error)

type Template struct {
	Name   string
	Render RenderFunc
}
