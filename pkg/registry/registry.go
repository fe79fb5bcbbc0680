package registry

import (
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// Registry holds the full set of configured containers, indexed by name.
type Registry struct {
	containers map[string]*types.Container
	order      []string
}

// New builds a registry from a slice of containers, preserving their
// declaration order for stable iteration and tie-breaking.
func New(containers []*types.Container) (*Registry, error) {
	r := &Registry{containers: make(map[string]*types.Container, len(containers))}
	for _, c := range containers {
		if _, exists := r.containers[c.Name]; exists {
			return nil, perror.New(perror.KindConfigParse, "duplicate container name", c.Name)
		}
		r.containers[c.Name] = c
		r.order = append(r.order, c.Name)
	}
	return r, nil
}

// List returns every configured container in declaration order.
func (r *Registry) List() []*types.Container {
	out := make([]*types.Container, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.containers[name])
	}
	return out
}

// Resolve returns the container with the given name.
func (r *Registry) Resolve(name string) (*types.Container, error) {
	c, ok := r.containers[name]
	if !ok {
		return nil, perror.New(perror.KindUnknownContainer, "no such container", name)
	}
	return c, nil
}

type color int

const (
	white color = iota
	grey
	black
)

// DependencyClosure computes the set of containers reachable from the
// requested names via their Dependencies edges, including the requested
// names themselves, returned in topological order (dependencies before
// dependents). Siblings are visited in declared dependency order, so
// repeated runs over the same registry produce the same walk order. A
// dependency cycle is reported as a typed error naming every container
// on the cycle.
func (r *Registry) DependencyClosure(names []string) ([]*types.Container, error) {
	colors := make(map[string]color, len(r.containers))
	var order []*types.Container
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch colors[name] {
		case black:
			return nil
		case grey:
			return perror.New(perror.KindCyclicDependency, "dependency cycle detected", append(append([]string{}, stack...), name)...)
		}
		c, ok := r.containers[name]
		if !ok {
			return perror.New(perror.KindUnknownContainer, "no such container", name)
		}

		colors[name] = grey
		stack = append(stack, name)

		for _, dep := range c.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		colors[name] = black
		order = append(order, c)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
