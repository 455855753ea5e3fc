// Package graph holds the parameter configuration registry: declaration
// wiring, structural validation, data-source resolution, and the cascading
// recompute that projects per-request parameter sets.
package graph

import (
	"fmt"

	"paramcore/pkg/params"
)

// User supplies the requester attributes consumed when narrowing options by
// user group. Implementations must be safe for concurrent reads.
type User interface {
	// Attribute returns the value of the named user field, when present.
	Attribute(name string) (string, bool)
}

// Attributes is a map-backed User for callers and tests.
type Attributes map[string]string

// Attribute implements User.
func (a Attributes) Attribute(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// Graph is the registry of parameter configs for one project. It is built
// once at project load, validated, and then read concurrently by requests
// without further mutation.
type Graph struct {
	names    []string
	configs  map[string]*params.Config
	children map[string][]string
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		configs:  make(map[string]*params.Config),
		children: make(map[string][]string),
	}
}

// Register appends a config in declaration order. Parents must be registered
// before their children; registering a child marks its parent trigger-refresh
// and records the child edge.
func (g *Graph) Register(cfg params.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, exists := g.configs[cfg.Name]; exists {
		return params.Configf(cfg.Name, "duplicate config name")
	}
	if cfg.ParentName != "" {
		parent, ok := g.configs[cfg.ParentName]
		if !ok {
			return params.Configf(cfg.Name, "parent %q is not registered; parents must be declared before children", cfg.ParentName)
		}
		parent.TriggerRefresh = true
		g.children[cfg.ParentName] = append(g.children[cfg.ParentName], cfg.Name)
	}
	stored := cfg
	g.configs[cfg.Name] = &stored
	g.names = append(g.names, cfg.Name)
	return nil
}

// Names returns the registered config names in declaration order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Config returns the registered config by name.
func (g *Graph) Config(name string) (*params.Config, bool) {
	cfg, ok := g.configs[name]
	return cfg, ok
}

// Children returns the child config names declared against name, in
// registration order.
func (g *Graph) Children(name string) []string {
	kids := g.children[name]
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// Validate checks the cross-config invariants once all configs, including
// resolved data-source configs, have been registered:
//   - every parent edge points at a selection-kind config;
//   - a non-selection config never carries two options sharing a parent
//     option id within the same user group, since default resolution would
//     be ambiguous. Duplicates across different groups are tolerated.
func (g *Graph) Validate() error {
	for _, name := range g.names {
		cfg := g.configs[name]
		if cfg.ParentName != "" {
			parent, ok := g.configs[cfg.ParentName]
			if !ok {
				return params.Configf(name, "parent %q is not registered", cfg.ParentName)
			}
			if !parent.Kind.IsSelection() {
				return params.Configf(name, "parent %q has kind %s; parents must be selection kinds", cfg.ParentName, parent.Kind)
			}
		}
		if !cfg.Kind.IsSelection() {
			if err := checkParentIDAmbiguity(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkParentIDAmbiguity accumulates parent option ids per user group across
// the whole option universe. Options without group restrictions share one
// unrestricted bucket.
func checkParentIDAmbiguity(cfg *params.Config) error {
	seen := make(map[string]map[string]struct{})
	for _, opt := range cfg.Options {
		groups := opt.UserGroups
		if len(groups) == 0 {
			groups = []string{""}
		}
		for _, group := range groups {
			ids := seen[group]
			if ids == nil {
				ids = make(map[string]struct{})
				seen[group] = ids
			}
			for _, parentID := range opt.ParentIDs {
				if _, dup := ids[parentID]; dup {
					return params.Configf(cfg.Name,
						"parent option id %q appears on two options within user group %q; a %s parameter can resolve at most one value per parent option",
						parentID, group, cfg.Kind)
				}
				ids[parentID] = struct{}{}
			}
		}
	}
	return nil
}

// Instantiate projects every registered config into a live parameter for the
// given user. A single forward pass over declaration order suffices because
// parents always precede their children: each child narrows against the
// parent's freshly computed default selection.
func (g *Graph) Instantiate(user User) (params.Set, error) {
	set := params.NewSet(len(g.names))
	for _, name := range g.names {
		cfg := g.configs[name]
		group := g.userGroup(cfg, user)
		var parentIDs []string
		if cfg.ParentName != "" {
			parent, ok := set.Get(cfg.ParentName)
			if !ok {
				return params.Set{}, params.Configf(name, "parent %q missing from instantiation pass", cfg.ParentName)
			}
			parentIDs = parent.SelectedIDs()
		}
		set.Add(params.NewParameter(cfg, group, parentIDs))
	}
	return set, nil
}

// Dependents recomputes the transitive descendants of changed against the
// base set and returns the diff: the changed parameter plus every descendant,
// never ancestors or unrelated siblings. Parameters absent from the diff are
// untouched when the caller merges it back.
func (g *Graph) Dependents(set params.Set, changed params.Parameter) (params.Set, error) {
	diff := params.NewSet(1 + len(g.children[changed.Config.Name]))
	diff.Add(changed)
	if err := g.cascade(set, changed, &diff); err != nil {
		return params.Set{}, err
	}
	return diff, nil
}

func (g *Graph) cascade(set params.Set, parent params.Parameter, diff *params.Set) error {
	for _, childName := range g.children[parent.Config.Name] {
		cfg := g.configs[childName]
		prior, ok := set.Get(childName)
		if !ok {
			return params.Configf(childName, "declared child missing from live set")
		}
		child := params.NewParameter(cfg, prior.UserGroup, parent.SelectedIDs())
		diff.Add(child)
		if err := g.cascade(set, child, diff); err != nil {
			return err
		}
	}
	return nil
}

// ApplySelection parses raw input for the named parameter, recomputes its
// descendants, and returns a new set with the diff merged in. On failure the
// input set is unchanged and no new set is produced.
func (g *Graph) ApplySelection(set params.Set, name, raw string) (params.Set, error) {
	p, ok := set.Get(name)
	if !ok {
		return params.Set{}, params.Inputf(name, "unknown parameter")
	}
	next, err := p.WithSelection(raw)
	if err != nil {
		return params.Set{}, err
	}
	diff, err := g.Dependents(set, next)
	if err != nil {
		return params.Set{}, err
	}
	return set.Merge(diff), nil
}

// Apply folds a caller-supplied selection map into the set, applying entries
// in declaration order so parent selections land before their children's.
func (g *Graph) Apply(set params.Set, selections map[string]string) (params.Set, error) {
	if len(selections) == 0 {
		return set, nil
	}
	applied := 0
	for _, name := range g.names {
		raw, ok := selections[name]
		if !ok {
			continue
		}
		next, err := g.ApplySelection(set, name, raw)
		if err != nil {
			return params.Set{}, err
		}
		set = next
		applied++
	}
	if applied != len(selections) {
		for name := range selections {
			if _, ok := g.configs[name]; !ok {
				return params.Set{}, params.Inputf(name, "unknown parameter")
			}
		}
		return params.Set{}, fmt.Errorf("selection map not fully applied")
	}
	return set, nil
}

func (g *Graph) userGroup(cfg *params.Config, user User) *string {
	if cfg.UserAttribute == "" || user == nil {
		return nil
	}
	v, ok := user.Attribute(cfg.UserAttribute)
	if !ok {
		return nil
	}
	return &v
}
