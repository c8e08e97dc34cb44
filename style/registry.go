package style

import (
	"fmt"
	"sort"

	"github.com/maruel/natural"
)

// Registry is the per-document table of named styles plus the document
// default attribute set. There is no process-wide registry: every Document
// owns exactly one instance.
type Registry struct {
	named map[string]*Named
	def   Attrs
}

// Named is a registered style. Parent, when non-empty, names another
// registered style whose attributes are inherited before this set is
// applied.
type Named struct {
	Name   string
	Parent string
	Attrs  Attrs
}

// CyclicStyleError is returned by Define when the requested parent chain
// would cycle back to the style being defined.
type CyclicStyleError struct {
	Name  string
	Chain []string
}

func (e *CyclicStyleError) Error() string {
	return fmt.Sprintf("style %q: parent chain cycles: %v", e.Name, e.Chain)
}

// NewRegistry returns an empty registry with a zero default style.
func NewRegistry() *Registry {
	return &Registry{named: make(map[string]*Named)}
}

// Default returns the document default attribute set.
func (r *Registry) Default() Attrs {
	return r.def.Clone()
}

// SetDefault replaces the document default attribute set.
func (r *Registry) SetDefault(attrs Attrs) {
	r.def = attrs.Clone()
}

// Define registers or replaces a named style. The registry is left
// unchanged when the resulting parent chain would cycle.
func (r *Registry) Define(name string, attrs Attrs, parent string) error {
	if name == "" {
		return fmt.Errorf("style name must not be empty")
	}
	// Walk the would-be parent chain against the current table before
	// touching anything.
	chain := []string{name}
	for cur := parent; cur != ""; {
		chain = append(chain, cur)
		if cur == name {
			return &CyclicStyleError{Name: name, Chain: chain}
		}
		next, ok := r.named[cur]
		if !ok {
			break
		}
		cur = next.Parent
	}
	r.named[name] = &Named{Name: name, Parent: parent, Attrs: attrs.Clone()}
	return nil
}

// Lookup returns the named style definition.
func (r *Registry) Lookup(name string) (*Named, bool) {
	n, ok := r.named[name]
	return n, ok
}

// Names returns all registered style names in natural order, for UI
// population.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.named))
	for name := range r.named {
		out = append(out, name)
	}
	sort.Sort(natural.StringSlice(out))
	return out
}

// Flatten computes the attribute set a named style contributes, walking its
// parent chain root-first so that children override parents. Unknown names
// contribute nothing.
func (r *Registry) Flatten(name string) Attrs {
	var chain []*Named
	seen := make(map[string]bool)
	for cur := name; cur != "" && !seen[cur]; {
		seen[cur] = true
		n, ok := r.named[cur]
		if !ok {
			break
		}
		chain = append(chain, n)
		cur = n.Parent
	}
	var out Attrs
	for i := len(chain) - 1; i >= 0; i-- {
		out = Overlay(chain[i].Attrs, out)
	}
	return out
}

// Resolve computes the effective attribute set for a run: local overrides
// win over the paragraph-assigned named style, which wins over the document
// default. The result has every layer flattened in that order.
func (r *Registry) Resolve(local Attrs, paragraphStyle string) Attrs {
	out := r.def.Clone()
	if paragraphStyle != "" {
		out = Overlay(r.Flatten(paragraphStyle), out)
	}
	return Overlay(local, out)
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	out.def = r.def.Clone()
	for name, n := range r.named {
		out.named[name] = &Named{Name: n.Name, Parent: n.Parent, Attrs: n.Attrs.Clone()}
	}
	return out
}

// Equal compares two registries structurally.
func (r *Registry) Equal(other *Registry) bool {
	if r == nil || other == nil {
		return r == other
	}
	if !r.def.Equal(other.def) {
		return false
	}
	if len(r.named) != len(other.named) {
		return false
	}
	for name, n := range r.named {
		o, ok := other.named[name]
		if !ok || o.Parent != n.Parent || !o.Attrs.Equal(n.Attrs) {
			return false
		}
	}
	return true
}
