// Package blocks renders Gutenberg block trees to HTML.
//
// A Block carries typed attributes decoded from the editor payload. Blocks
// whose name has a registered renderer are rendered bottom-up: children
// first, then the parent with the children's markup. Blocks without a
// renderer fall back to the HTML WordPress rendered for them.
//
// Block HTML originates from the authenticated WordPress backend and is
// emitted without sanitization. WordPress is the sanitization authority for
// everything this package renders.
package blocks

// Block is one node of a Gutenberg block tree.
type Block struct {
	Name         string
	Attrs        Attributes
	Children     []Block
	RenderedHTML string
	// OriginalHTML is the saved post markup. The WordPress query does not
	// select it; callers that build blocks from other payloads set it.
	OriginalHTML string
	// BadAttrs is set when the attribute payload failed to decode. Such a
	// block renders from its HTML even when its name is registered.
	BadAttrs     bool
}

// fallbackHTML returns the precomputed markup for the block, rendered HTML
// first.
func (b Block) fallbackHTML() (string, string) {
	switch {
	case b.RenderedHTML != "":
		return b.RenderedHTML, fallbackRendered
	case b.OriginalHTML != "":
		return b.OriginalHTML, fallbackOriginal
	default:
		return "", fallbackEmpty
	}
}

func (b Block) hasFallback() bool {
	return b.RenderedHTML != "" || b.OriginalHTML != ""
}

const (
	fallbackRendered = "rendered"
	fallbackOriginal = "original"
	fallbackEmpty    = "empty"
)
