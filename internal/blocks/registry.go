package blocks

import (
	"html/template"
	"sort"
	"sync"
)

// RenderFunc renders one block given its attributes and the already
// rendered markup of its children.
type RenderFunc func(attrs Attributes, children template.HTML) template.HTML

// Registry maps block names to renderers. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	m  map[string]RenderFunc
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]RenderFunc)}
}

// NewCoreRegistry returns a registry preloaded with the core block set.
func NewCoreRegistry() *Registry {
	r := NewRegistry()
	registerCore(r)
	return r
}

// Register inserts or replaces the renderer for name. Empty names and nil
// renderers are ignored.
func (r *Registry) Register(name string, fn RenderFunc) {
	if name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	r.m[name] = fn
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (RenderFunc, bool) {
	r.mu.RLock()
	fn, ok := r.m[name]
	r.mu.RUnlock()
	return fn, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.m))
	for n := range r.m {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Typed adapts a renderer over one attribute struct. Attributes of any other
// variant reach fn as the zero value.
func Typed[T Attributes](fn func(attrs T, children template.HTML) template.HTML) RenderFunc {
	return func(a Attributes, children template.HTML) template.HTML {
		v, _ := a.(T)
		return fn(v, children)
	}
}
