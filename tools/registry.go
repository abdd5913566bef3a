package tools

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the static mapping from tool name to Spec. Built once per
// toolbox; read-only afterwards, so it needs no locking.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds the full tool table over the given toolbox.
func NewRegistry(tb *Toolbox) *Registry {
	r := &Registry{specs: make(map[string]Spec)}

	add := func(spec Spec) {
		r.specs[spec.Name] = spec
	}

	add(Spec{
		Name:        "help.tools",
		Description: "Listar as ferramentas disponíveis com parâmetros",
		Params:      map[string]string{},
		Func:        r.helpTools,
	})

	for _, spec := range tb.filesystemSpecs() {
		add(spec)
	}
	for _, spec := range tb.shellSpecs() {
		add(spec)
	}
	for _, spec := range tb.gitSpecs() {
		add(spec)
	}
	for _, spec := range tb.webSpecs() {
		add(spec)
	}
	for _, spec := range tb.marketSpecs() {
		add(spec)
	}
	for _, spec := range tb.clockSpecs() {
		add(spec)
	}
	for _, spec := range tb.geoSpecs() {
		add(spec)
	}
	for _, spec := range tb.spreadsheetSpecs() {
		add(spec)
	}

	return r
}

// Lookup returns the spec for name. An absent name is not an error at this
// layer; the dispatcher turns it into a failed result.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Names returns all tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns every spec, sorted by name.
func (r *Registry) List() []Spec {
	specs := make([]Spec, 0, len(r.specs))
	for _, name := range r.Names() {
		specs = append(specs, r.specs[name])
	}
	return specs
}

// Describe renders the one-line-per-tool listing injected into the system
// prompt so the model knows the exact tool names and parameters.
func (r *Registry) Describe() string {
	lines := []string{"Ferramentas disponíveis (use exatamente estes nomes):"}
	for _, spec := range r.List() {
		lines = append(lines, fmt.Sprintf("- %s {%s}", spec.Name, strings.Join(spec.paramNames(), ", ")))
	}
	return strings.Join(lines, "\n")
}
