// Package webassets embeds the html/template sources, static files and the
// last-resort error pages served when templates cannot run.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed fallback static templates
var embedded embed.FS

// TemplatesFS holds partials/, pages/ and site/ template sources.
func TemplatesFS() fs.FS { return mustSub("templates") }

// StaticFS is served under /static/.
func StaticFS() fs.FS { return mustSub("static") }

// FallbackFS holds plain HTML pages that need no template execution.
func FallbackFS() fs.FS { return mustSub("fallback") }

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return sub
}
