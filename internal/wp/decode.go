package wp

import (
	"bytes"
	"encoding/json"

	"github.com/beaconhillfe/bhfe-web/internal/blocks"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// TemplateRef is the Page.template field. Current schemas return an object
// carrying templateName; older ones a bare string.
type TemplateRef struct {
	Name   string
	Legacy string
}

func (t *TemplateRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &t.Legacy)
	}
	var obj struct {
		TemplateName string `json:"templateName"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	t.Name = obj.TemplateName
	return nil
}

// editorBlock is one entry of editorBlocks(flat: true).
type editorBlock struct {
	Name           string          `json:"name"`
	ClientID       string          `json:"clientId"`
	ParentClientID string          `json:"parentClientId"`
	RenderedHTML   string          `json:"renderedHtml"`
	Attributes     json.RawMessage `json:"attributes"`
}

// DecodeNode decodes a GraphQL content node. A JSON null yields a nil Node
// and no error.
func DecodeNode(raw json.RawMessage) (Node, error) {
	if isNull(raw) {
		return nil, nil
	}
	var head struct {
		Typename     ContentType   `json:"__typename"`
		EditorBlocks []editorBlock `json:"editorBlocks"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, xerrors.Wrap(err, "decode content node")
	}

	var n Node
	switch head.Typename {
	case TypePage:
		n = &Page{}
	case TypePost:
		n = &Post{}
	case TypeCourse:
		n = &Course{}
	case TypeCategory, TypeTag:
		n = &Taxonomy{}
	default:
		n = &Unknown{}
	}
	if err := json.Unmarshal(raw, n); err != nil {
		return nil, xerrors.Wrapf(err, "decode %s node", head.Typename)
	}

	switch v := n.(type) {
	case *Page:
		v.Blocks = buildTree(head.EditorBlocks)
	case *Post:
		v.Blocks = buildTree(head.EditorBlocks)
	}
	return n, nil
}

// buildTree rebuilds the block hierarchy from a flat editorBlocks list.
// Sibling order follows list order. Blocks whose parent is missing from the
// list, or whose ancestry loops back on itself, are attached at the root.
// Attributes that fail to decode leave the block with blocks.Unknown and
// BadAttrs set, so it renders through its HTML.
func buildTree(flat []editorBlock) []blocks.Block {
	if len(flat) == 0 {
		return nil
	}
	known := make(map[string]bool, len(flat))
	for _, b := range flat {
		if b.ClientID != "" {
			known[b.ClientID] = true
		}
	}
	children := make(map[string][]int, len(flat))
	var roots []int
	for i, b := range flat {
		if b.ParentClientID == "" || !known[b.ParentClientID] || b.ParentClientID == b.ClientID {
			roots = append(roots, i)
			continue
		}
		children[b.ParentClientID] = append(children[b.ParentClientID], i)
	}

	seen := make([]bool, len(flat))
	var build func(i int) blocks.Block
	build = func(i int) blocks.Block {
		seen[i] = true
		eb := flat[i]
		attrs, err := blocks.DecodeAttributes(eb.Name, eb.Attributes)
		out := blocks.Block{
			Name:         eb.Name,
			Attrs:        attrs,
			RenderedHTML: eb.RenderedHTML,
			BadAttrs:     err != nil,
		}
		for _, c := range children[eb.ClientID] {
			if !seen[c] {
				out.Children = append(out.Children, build(c))
			}
		}
		return out
	}

	tree := make([]blocks.Block, 0, len(roots))
	for _, i := range roots {
		tree = append(tree, build(i))
	}
	// parent cycles are unreachable from any root
	for i := range flat {
		if !seen[i] {
			tree = append(tree, build(i))
		}
	}
	return tree
}

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || string(b) == "null"
}
