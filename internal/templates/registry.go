package templates

import (
	"sort"
	"sync"

	"github.com/beaconhillfe/bhfe-web/internal/wp"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

type entry struct {
	def   *Template
	named map[string]*Template
}

// Registry maps content types to templates. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[wp.ContentType]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[wp.ContentType]*entry)}
}

// Register sets the default template for ct, or with names, adds t as a named
// override under each of them. The first template registered for a type
// becomes its default either way.
func (r *Registry) Register(ct wp.ContentType, t *Template, names ...string) {
	if ct == "" || t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[ct]
	if !ok {
		e = &entry{def: t, named: make(map[string]*Template)}
		r.entries[ct] = e
	}
	if len(names) == 0 {
		e.def = t
		return
	}
	for _, n := range names {
		if n != "" {
			e.named[n] = t
		}
	}
}

func (r *Registry) Has(ct wp.ContentType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[ct]
	return ok
}

func (r *Registry) HasTemplate(ct wp.ContentType, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[ct]
	if !ok {
		return false
	}
	_, ok = e.named[name]
	return ok
}

// Alias makes alias select the same template as the existing override name.
func (r *Registry) Alias(ct wp.ContentType, alias, name string) error {
	if alias == "" {
		return xerrors.Newf("empty alias for %s template %q", ct, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[ct]
	if !ok {
		return xerrors.Newf("alias %q: no templates registered for %s", alias, ct)
	}
	t, ok := e.named[name]
	if !ok {
		return xerrors.Newf("alias %q: %s has no template named %q", alias, ct, name)
	}
	e.named[alias] = t
	return nil
}

// Types lists registered content types, sorted.
func (r *Registry) Types() []wp.ContentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wp.ContentType, 0, len(r.entries))
	for ct := range r.entries {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// lookup returns the override named hint, else the default. ok is false when
// ct has no entry at all.
func (r *Registry) lookup(ct wp.ContentType, hint string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[ct]
	if !ok {
		return nil, false
	}
	if hint != "" {
		if t, ok := e.named[hint]; ok {
			return t, true
		}
	}
	return e.def, true
}
